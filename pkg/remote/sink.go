package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"liyu1981.xyz/sos-safety-service/pkg/common"
	"liyu1981.xyz/sos-safety-service/pkg/models"
)

// EventSink mirrors SOS events to the remote document store.
type EventSink interface {
	Create(ctx context.Context, event *models.SosEvent) (string, error)
	Update(ctx context.Context, remoteID string, event *models.SosEvent) error
	// MarkNotified, MarkResolved and UpdateNotes each merge only the fields
	// they own, so concurrent mirrors of one event never overwrite each
	// other.
	MarkNotified(ctx context.Context, remoteID string, contactIDs []uint) error
	MarkResolved(ctx context.Context, remoteID string, event *models.SosEvent) error
	UpdateNotes(ctx context.Context, remoteID string, notes *string) error
	// Observe streams the user's events newest first, re-sending the full
	// list on every change until ctx is done.
	Observe(ctx context.Context, userID string) (<-chan []models.RemoteEvent, error)
}

// Publisher fans a push message out to the user's contacts.
type Publisher interface {
	Publish(ctx context.Context, msg models.PushMessage) error
}

// eventDocument is the wire shape of an sos_events document. Times are
// unix milliseconds.
type eventDocument struct {
	ID                      string             `json:"id,omitempty"`
	UserID                  string             `json:"userId"`
	LocalID                 uint               `json:"localId,omitempty"`
	Type                    models.TriggerType `json:"type"`
	Latitude                float64            `json:"latitude"`
	Longitude               float64            `json:"longitude"`
	Address                 *string            `json:"address,omitempty"`
	IsResolved              bool               `json:"isResolved"`
	ResolvedAt              *int64             `json:"resolvedAt,omitempty"`
	Notes                   *string            `json:"notes,omitempty"`
	ContactsNotified        []uint             `json:"contactsNotified"`
	EmergencyServicesCalled bool               `json:"emergencyServicesCalled"`
	ResponseTime            *int64             `json:"responseTime,omitempty"`
	Timestamp               int64              `json:"timestamp"`
	CreatedAt               *int64             `json:"createdAt,omitempty"`
	UpdatedAt               *int64             `json:"updatedAt,omitempty"`
}

func toDocument(userID string, event *models.SosEvent) (Document, error) {
	wire := eventDocument{
		UserID:                  userID,
		LocalID:                 event.ID,
		Type:                    event.Type,
		Latitude:                event.Latitude,
		Longitude:               event.Longitude,
		Address:                 event.Address,
		IsResolved:              event.IsResolved,
		Notes:                   event.Notes,
		ContactsNotified:        event.NotifiedContacts,
		EmergencyServicesCalled: event.EmergencyServicesCalled,
		Timestamp:               event.Timestamp.UnixMilli(),
	}
	if wire.ContactsNotified == nil {
		wire.ContactsNotified = []uint{}
	}
	if event.ResolvedAt != nil {
		wire.ResolvedAt = common.Ptr(event.ResolvedAt.UnixMilli())
	}
	if event.ResponseTime != nil {
		wire.ResponseTime = common.Ptr(event.ResponseTime.Milliseconds())
	}

	raw, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	doc := Document{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return doc, nil
}

func millisPtr(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := time.UnixMilli(*ms)
	return &t
}

func fromDocument(doc Document) (models.RemoteEvent, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return models.RemoteEvent{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	var wire eventDocument
	if err := json.Unmarshal(raw, &wire); err != nil {
		return models.RemoteEvent{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	contacts := wire.ContactsNotified
	if contacts == nil {
		contacts = []uint{}
	}
	return models.RemoteEvent{
		ID:               wire.ID,
		UserID:           wire.UserID,
		Type:             wire.Type,
		Latitude:         wire.Latitude,
		Longitude:        wire.Longitude,
		Address:          wire.Address,
		IsResolved:       wire.IsResolved,
		ResolvedAt:       millisPtr(wire.ResolvedAt),
		Notes:            wire.Notes,
		ContactsNotified: contacts,
		EmergencyCalled:  wire.EmergencyServicesCalled,
		ResponseTimeMs:   wire.ResponseTime,
		Timestamp:        time.UnixMilli(wire.Timestamp),
		CreatedAt:        millisPtr(wire.CreatedAt),
		UpdatedAt:        millisPtr(wire.UpdatedAt),
	}, nil
}

// DocumentSink implements EventSink on top of a Store. After a successful
// create it asks the Publisher to alert the user's contacts.
type DocumentSink struct {
	store     Store
	userID    string
	publisher Publisher
}

func NewDocumentSink(store Store, userID string, publisher Publisher) *DocumentSink {
	return &DocumentSink{store: store, userID: userID, publisher: publisher}
}

func sinkLogger() *zap.Logger {
	return common.GetCategoryLogger(common.LoggerNameSosCore, common.LoggerCategorySosRemote)
}

func remoteError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrRemote, op, err)
}

func (s *DocumentSink) Create(ctx context.Context, event *models.SosEvent) (string, error) {
	logger := sinkLogger()

	doc, err := toDocument(s.userID, event)
	if err != nil {
		return "", remoteError("create", err)
	}
	id, err := s.store.Add(ctx, common.CollectionSosEvents, doc)
	if err != nil {
		logger.Error("Failed to create remote event", zap.Error(err))
		return "", remoteError("create", err)
	}
	logger.Info("Remote event created", zap.String("remote_id", id))

	if s.publisher != nil {
		msg := models.PushMessage{
			Type:  models.PushTypeSosAlert,
			Title: "🚨 Emergency Alert",
			Body:  "Your emergency contact needs help!",
			Data: map[string]string{
				"type":     string(models.PushTypeSosAlert),
				"event_id": id,
				"user_id":  s.userID,
				"location": strconv.FormatFloat(event.Latitude, 'f', -1, 64) + "," +
					strconv.FormatFloat(event.Longitude, 'f', -1, 64),
			},
		}
		if err := s.publisher.Publish(ctx, msg); err != nil {
			logger.Warn("Failed to fan out SOS push", zap.String("remote_id", id), zap.Error(err))
		}
	}
	return id, nil
}

func (s *DocumentSink) Update(ctx context.Context, remoteID string, event *models.SosEvent) error {
	doc, err := toDocument(s.userID, event)
	if err != nil {
		return remoteError("update", err)
	}
	return s.merge(ctx, "update", remoteID, doc)
}

func (s *DocumentSink) MarkNotified(ctx context.Context, remoteID string, contactIDs []uint) error {
	if contactIDs == nil {
		contactIDs = []uint{}
	}
	return s.merge(ctx, "mark notified", remoteID, Document{"contactsNotified": contactIDs})
}

// MarkResolved writes the resolution fields of an already resolved event.
func (s *DocumentSink) MarkResolved(ctx context.Context, remoteID string, event *models.SosEvent) error {
	if !event.IsResolved || event.ResolvedAt == nil {
		return remoteError("mark resolved", fmt.Errorf("%w: event %d is not resolved", ErrInvalidDocument, event.ID))
	}
	doc := Document{
		"isResolved": true,
		"resolvedAt": event.ResolvedAt.UnixMilli(),
		"notes":      event.Notes,
	}
	if event.ResponseTime != nil {
		doc["responseTime"] = event.ResponseTime.Milliseconds()
	}
	return s.merge(ctx, "mark resolved", remoteID, doc)
}

func (s *DocumentSink) UpdateNotes(ctx context.Context, remoteID string, notes *string) error {
	return s.merge(ctx, "update notes", remoteID, Document{"notes": notes})
}

func (s *DocumentSink) merge(ctx context.Context, op, remoteID string, doc Document) error {
	if remoteID == "" {
		return remoteError(op, fmt.Errorf("%w: empty remote id", ErrInvalidDocument))
	}
	if err := s.store.Set(ctx, common.CollectionSosEvents, remoteID, doc, true); err != nil {
		sinkLogger().Error("Failed to update remote event", zap.String("op", op), zap.String("remote_id", remoteID), zap.Error(err))
		return remoteError(op, err)
	}
	return nil
}

func (s *DocumentSink) Observe(ctx context.Context, userID string) (<-chan []models.RemoteEvent, error) {
	docs, err := s.store.Watch(ctx, Query{
		Collection: common.CollectionSosEvents,
		Field:      "userId",
		Value:      userID,
		OrderBy:    "timestamp",
		Descending: true,
	})
	if err != nil {
		return nil, remoteError("observe", err)
	}

	return relay(ctx, docs, fromDocument, nil), nil
}

// IsNetwork and IsAuth classify errors from any Store or EventSink.
func IsNetwork(err error) bool { return errors.Is(err, ErrNetwork) }

func IsAuth(err error) bool { return errors.Is(err, ErrAuth) }

// LogPublisher only records the fan-out. It is used when no broker is
// configured.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, msg models.PushMessage) error {
	sinkLogger().Info("SOS push fan-out", zap.String("type", string(msg.Type)), zap.Any("data", msg.Data))
	return nil
}
