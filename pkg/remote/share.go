package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"liyu1981.xyz/sos-safety-service/pkg/common"
	"liyu1981.xyz/sos-safety-service/pkg/location"
	"liyu1981.xyz/sos-safety-service/pkg/models"
)

type shareDocument struct {
	ID               string  `json:"id,omitempty"`
	UserID           string  `json:"userId"`
	SharedWithUserID string  `json:"sharedWithUserId"`
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	Address          *string `json:"address,omitempty"`
	IsActive         bool    `json:"isActive"`
	ExpiresAt        *int64  `json:"expiresAt,omitempty"`
	TripName         *string `json:"tripName,omitempty"`
	EstimatedArrival *int64  `json:"estimatedArrival,omitempty"`
	Timestamp        int64   `json:"timestamp"`
}

func fromShareDocument(doc Document) (models.LocationShare, error) {
	var wire shareDocument
	if err := decodeDocument(doc, &wire); err != nil {
		return models.LocationShare{}, err
	}
	return models.LocationShare{
		ID:               wire.ID,
		UserID:           wire.UserID,
		SharedWithUserID: wire.SharedWithUserID,
		Latitude:         wire.Latitude,
		Longitude:        wire.Longitude,
		Address:          wire.Address,
		IsActive:         wire.IsActive,
		ExpiresAt:        millisPtr(wire.ExpiresAt),
		TripName:         wire.TripName,
		EstimatedArrival: millisPtr(wire.EstimatedArrival),
		Timestamp:        time.UnixMilli(wire.Timestamp),
	}, nil
}

// LocationShareSink shares the user's position with another user through
// the locations collection.
type LocationShareSink struct {
	store     Store
	userID    string
	publisher Publisher
	clock     common.Clock
}

func NewLocationShareSink(store Store, userID string, publisher Publisher, clock common.Clock) *LocationShareSink {
	if clock == nil {
		clock = common.RealClock{}
	}
	return &LocationShareSink{store: store, userID: userID, publisher: publisher, clock: clock}
}

// Share stores an active share and tells the other user about it.
func (s *LocationShareSink) Share(ctx context.Context, share *models.LocationShare) (string, error) {
	logger := sinkLogger()

	if share.SharedWithUserID == "" {
		return "", remoteError("share location", fmt.Errorf("%w: no recipient", ErrInvalidDocument))
	}
	if share.SharedWithUserID == s.userID {
		return "", remoteError("share location", fmt.Errorf("%w: cannot share with yourself", ErrInvalidDocument))
	}
	if !location.ValidCoordinates(share.Latitude, share.Longitude) {
		return "", remoteError("share location", fmt.Errorf("%w: coordinates out of range", ErrInvalidDocument))
	}
	now := s.clock.Now()
	if share.ExpiresAt != nil && !share.ExpiresAt.After(now) {
		return "", remoteError("share location", fmt.Errorf("%w: already expired", ErrInvalidDocument))
	}
	if share.Timestamp.IsZero() {
		share.Timestamp = now
	}

	doc, err := encodeDocument(shareDocument{
		UserID:           s.userID,
		SharedWithUserID: share.SharedWithUserID,
		Latitude:         share.Latitude,
		Longitude:        share.Longitude,
		Address:          share.Address,
		IsActive:         true,
		ExpiresAt:        millisOf(share.ExpiresAt),
		TripName:         share.TripName,
		EstimatedArrival: millisOf(share.EstimatedArrival),
		Timestamp:        share.Timestamp.UnixMilli(),
	})
	if err != nil {
		return "", remoteError("share location", err)
	}
	id, err := s.store.Add(ctx, common.CollectionLocations, doc)
	if err != nil {
		logger.Error("Failed to share location", zap.Error(err))
		return "", remoteError("share location", err)
	}
	logger.Info("Location shared", zap.String("share_id", id), zap.String("shared_with", share.SharedWithUserID))

	if s.publisher != nil {
		msg := models.PushMessage{
			Type:  models.PushTypeLocationShare,
			Title: "Location Shared",
			Body:  s.senderName(ctx) + " is sharing their location with you",
			Data: map[string]string{
				"type":         string(models.PushTypeLocationShare),
				"share_id":     id,
				"user_id":      s.userID,
				"recipient_id": share.SharedWithUserID,
			},
		}
		if err := s.publisher.Publish(ctx, msg); err != nil {
			logger.Warn("Failed to push location share", zap.String("share_id", id), zap.Error(err))
		}
	}
	return id, nil
}

func (s *LocationShareSink) senderName(ctx context.Context) string {
	doc, err := s.store.Get(ctx, common.CollectionUsers, s.userID)
	if err != nil {
		if !errors.Is(err, ErrDocumentNotFound) {
			sinkLogger().Warn("Failed to load sharing user", zap.Error(err))
		}
		return "Someone"
	}
	if name, ok := doc["name"].(string); ok && name != "" {
		return name
	}
	return "Someone"
}

// Stop ends a share the user owns.
func (s *LocationShareSink) Stop(ctx context.Context, id string) error {
	if id == "" {
		return remoteError("stop share", fmt.Errorf("%w: empty share id", ErrInvalidDocument))
	}
	doc, err := s.store.Get(ctx, common.CollectionLocations, id)
	if err != nil {
		return remoteError("stop share", err)
	}
	if owner, _ := doc["userId"].(string); owner != s.userID {
		return remoteError("stop share", fmt.Errorf("%w: share %s belongs to another user", ErrAuth, id))
	}
	if err := s.store.Set(ctx, common.CollectionLocations, id, Document{"isActive": false}, true); err != nil {
		return remoteError("stop share", err)
	}
	return nil
}

// ObserveShared streams the active, unexpired shares sent to userID,
// newest first, on every change until ctx is done.
func (s *LocationShareSink) ObserveShared(ctx context.Context, userID string) (<-chan []models.LocationShare, error) {
	docs, err := s.store.Watch(ctx, Query{
		Collection: common.CollectionLocations,
		Field:      "sharedWithUserId",
		Value:      userID,
		OrderBy:    "timestamp",
		Descending: true,
	})
	if err != nil {
		return nil, remoteError("observe shares", err)
	}
	return relay(ctx, docs, fromShareDocument, func(share models.LocationShare) bool {
		return share.Active(s.clock.Now())
	}), nil
}

// Shared is the current result of ObserveShared.
func (s *LocationShareSink) Shared(ctx context.Context, userID string) ([]models.LocationShare, error) {
	return first(ctx, func(ctx context.Context) (<-chan []models.LocationShare, error) {
		return s.ObserveShared(ctx, userID)
	})
}
