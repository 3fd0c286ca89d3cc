package sos

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"liyu1981.xyz/sos-safety-service/pkg/common"
	"liyu1981.xyz/sos-safety-service/pkg/location"
	"liyu1981.xyz/sos-safety-service/pkg/metrics"
	"liyu1981.xyz/sos-safety-service/pkg/models"
)

type commitError struct {
	message string
	result  string
	err     error
}

func (e *commitError) Error() string { return fmt.Sprintf("%s: %v", e.message, e.err) }
func (e *commitError) Unwrap() error { return e.err }

func (c *Coordinator) startCommit(ctx context.Context, triggerType models.TriggerType, pinned *models.LocationSnapshot) {
	c.spawn(func() {
		event, err := c.commit(ctx, triggerType, pinned)
		c.post(ctx, func() { c.finishCommit(ctx, triggerType, event, err) })
	})
}

// commit locates the device and persists the event remote-first, so no
// local row exists without its remote counterpart.
func (c *Coordinator) commit(ctx context.Context, triggerType models.TriggerType, pinned *models.LocationSnapshot) (*models.SosEvent, error) {
	loc, err := c.locate(ctx, pinned)
	if err != nil {
		message := MessageNoLocation
		if errors.Is(err, location.ErrPermissionDenied) {
			message = MessagePermissionDenied
		}
		return nil, &commitError{message: message, result: "location_error", err: err}
	}

	event := (&models.SosEvent{
		Type:             triggerType,
		Timestamp:        c.clock.Now(),
		NotifiedContacts: []uint{},
	}).WithLocation(loc)
	event.IsTracking = false
	event.IsSosLocation = false

	remoteID, err := c.sink.Create(ctx, event)
	if err != nil {
		return nil, &commitError{message: MessageRemoteFailure, result: "remote_error", err: err}
	}
	event.RemoteID = &remoteID

	if err := c.safety.Event.Insert(ctx, event); err != nil {
		logger().Error("Remote SOS document has no local event", zap.String("remote_id", remoteID), zap.Error(err))
		return nil, &commitError{message: MessageSaveFailure, result: "persistence_error", err: err}
	}

	sosFix := loc
	sosFix.ID = 0
	sosFix.IsTracking = false
	sosFix.IsSosLocation = true
	if err := c.safety.History.Insert(ctx, &sosFix); err != nil {
		logger().Warn("Failed to record SOS location", zap.Uint("event_id", event.ID), zap.Error(err))
	}
	return event, nil
}

func (c *Coordinator) locate(ctx context.Context, pinned *models.LocationSnapshot) (models.LocationSnapshot, error) {
	if pinned != nil {
		return *pinned, nil
	}
	loc, err := c.locator.Snapshot(ctx)
	if err == nil {
		return loc, nil
	}
	logger().Warn("Current location unavailable, falling back to last known", zap.Error(err))

	loc, lastErr := c.locator.LastKnown(ctx)
	if lastErr == nil {
		return loc, nil
	}
	if errors.Is(err, location.ErrPermissionDenied) || errors.Is(lastErr, location.ErrPermissionDenied) {
		return models.LocationSnapshot{}, location.ErrPermissionDenied
	}
	return models.LocationSnapshot{}, errors.Join(err, lastErr)
}

func (c *Coordinator) finishCommit(ctx context.Context, triggerType models.TriggerType, event *models.SosEvent, err error) {
	cancelled := c.pendingCancel
	c.pendingCancel = false
	c.pinned = nil

	if err != nil {
		var ce *commitError
		result, message := "error", err.Error()
		if errors.As(err, &ce) {
			result, message = ce.result, ce.message
		}
		metrics.SosCommitsTotal.WithLabelValues(result).Inc()
		logger().Error("SOS commit failed", zap.String("type", string(triggerType)), zap.String("result", result), zap.Error(err))

		if cancelled {
			c.setState(Idle())
			return
		}
		c.setState(Error(message, triggerType))
		return
	}

	metrics.SosCommitsTotal.WithLabelValues("success").Inc()
	logger().Info("SOS event committed",
		zap.Uint("event_id", event.ID),
		zap.Stringp("remote_id", event.RemoteID),
		zap.String("type", string(event.Type)),
		zap.Float64("latitude", event.Latitude),
		zap.Float64("longitude", event.Longitude))

	c.setState(Active(event))
	c.feedback.Activated()

	notified := *event
	c.spawn(func() { c.notify(ctx, notified) })

	if cancelled {
		c.cancelActive(ctx, event)
	}
}

// notify runs detached from the lifecycle; nothing it does can fail the
// SOS.
func (c *Coordinator) notify(ctx context.Context, event models.SosEvent) {
	contacts, err := c.safety.Contact.GetAll(ctx)
	if err != nil {
		logger().Error("Failed to load contacts for SOS", zap.Uint("event_id", event.ID), zap.Error(err))
		return
	}

	outcomes := c.notifier.NotifyAll(ctx, contacts, event.Location())
	delivered := common.Mapper(
		common.Filter(outcomes, func(o models.DeliveryOutcome) bool { return o.Delivered }),
		func(o models.DeliveryOutcome) uint { return o.ContactID },
	)
	if delivered == nil {
		delivered = []uint{}
	}

	if err := c.safety.Event.SetNotifiedContacts(ctx, event.ID, delivered); err != nil {
		logger().Warn("Failed to record notified contacts", zap.Uint("event_id", event.ID), zap.Error(err))
		return
	}
	if event.RemoteID != nil {
		if err := c.sink.MarkNotified(ctx, *event.RemoteID, delivered); err != nil {
			logger().Warn("Failed to mirror notified contacts", zap.String("remote_id", *event.RemoteID), zap.Error(err))
		}
	}

	c.post(ctx, func() {
		if c.state.Status == StatusActive && c.state.Event != nil && c.state.Event.ID == event.ID {
			updated := *c.state.Event
			updated.NotifiedContacts = delivered
			c.setState(Active(&updated))
		}
	})
}

// resolveEvent resolves locally and mirrors the result remotely. Only the
// local failure is reported.
func (c *Coordinator) resolveEvent(ctx context.Context, event *models.SosEvent, notes string) (*models.SosEvent, error) {
	resolved, err := c.safety.Event.Resolve(ctx, event.ID, &notes, c.clock.Now())
	if err != nil {
		return nil, err
	}
	if resolved.RemoteID != nil {
		if err := c.sink.MarkResolved(ctx, *resolved.RemoteID, resolved); err != nil {
			logger().Warn("Failed to mirror SOS resolution", zap.String("remote_id", *resolved.RemoteID), zap.Error(err))
		}
	}
	return resolved, nil
}
