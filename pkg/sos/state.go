package sos

import (
	"errors"

	"liyu1981.xyz/sos-safety-service/pkg/models"
)

var (
	ErrBusy              = errors.New("an SOS is already in progress")
	ErrInvalidTransition = errors.New("operation not allowed in current SOS state")
	ErrInvalidTrigger    = errors.New("invalid trigger type")
)

const (
	DefaultCountdown = 5

	MessageNoLocation       = "unable to get current location"
	MessagePermissionDenied = "location permission denied"
	MessageRemoteFailure    = "failed to send SOS alert"
	MessageSaveFailure      = "failed to save SOS event"

	NotesCancelledByUser = "Cancelled by user"
)

type Status string

const (
	StatusIdle      Status = "idle"
	StatusCountdown Status = "countdown"
	StatusActive    Status = "active"
	StatusError     Status = "error"
)

// State is one observable point of the SOS lifecycle.
type State struct {
	Status      Status             `json:"status"`
	Remaining   int                `json:"remaining"`
	TriggerType models.TriggerType `json:"trigger_type,omitempty"`
	// Committing is set while the countdown has reached zero and the event
	// is being located and persisted.
	Committing bool             `json:"committing,omitempty"`
	Event      *models.SosEvent `json:"event,omitempty"`
	Message    string           `json:"message,omitempty"`
}

func Idle() State { return State{Status: StatusIdle} }

func Countdown(n int, triggerType models.TriggerType) State {
	return State{Status: StatusCountdown, Remaining: n, TriggerType: triggerType}
}

func Active(event *models.SosEvent) State {
	return State{Status: StatusActive, TriggerType: event.Type, Event: event}
}

func Error(message string, triggerType models.TriggerType) State {
	return State{Status: StatusError, Message: message, TriggerType: triggerType}
}

// Feedback is the haptic/audio hook driven by the countdown.
type Feedback interface {
	CountdownTick(remaining int)
	Activated()
}

type nopFeedback struct{}

func (nopFeedback) CountdownTick(int) {}
func (nopFeedback) Activated()        {}
