package remote

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"liyu1981.xyz/sos-safety-service/pkg/common"
	"liyu1981.xyz/sos-safety-service/pkg/location"
	"liyu1981.xyz/sos-safety-service/pkg/models"
)

const (
	DefaultNearbyRadiusKm = 5.0
	// NearbyAlertLimit caps how many of the newest open alerts are
	// considered before the distance filter.
	NearbyAlertLimit = 50
)

type communityDocument struct {
	ID          string                    `json:"id,omitempty"`
	UserID      string                    `json:"userId"`
	AlertType   models.CommunityAlertType `json:"alertType"`
	Title       string                    `json:"title"`
	Description string                    `json:"description"`
	Latitude    float64                   `json:"latitude"`
	Longitude   float64                   `json:"longitude"`
	Address     *string                   `json:"address,omitempty"`
	IsVerified  bool                      `json:"isVerified"`
	VerifiedBy  *string                   `json:"verifiedBy,omitempty"`
	IsResolved  bool                      `json:"isResolved"`
	ResolvedAt  *int64                    `json:"resolvedAt,omitempty"`
	Upvotes     int                       `json:"upvotes"`
	Downvotes   int                       `json:"downvotes"`
	ReportedBy  []string                  `json:"reportedBy"`
	Timestamp   int64                     `json:"timestamp"`
}

func fromCommunityDocument(doc Document) (models.CommunityAlert, error) {
	var wire communityDocument
	if err := decodeDocument(doc, &wire); err != nil {
		return models.CommunityAlert{}, err
	}
	reportedBy := wire.ReportedBy
	if reportedBy == nil {
		reportedBy = []string{}
	}
	return models.CommunityAlert{
		ID:          wire.ID,
		UserID:      wire.UserID,
		AlertType:   wire.AlertType,
		Title:       wire.Title,
		Description: wire.Description,
		Latitude:    wire.Latitude,
		Longitude:   wire.Longitude,
		Address:     wire.Address,
		IsVerified:  wire.IsVerified,
		VerifiedBy:  wire.VerifiedBy,
		IsResolved:  wire.IsResolved,
		ResolvedAt:  millisPtr(wire.ResolvedAt),
		Upvotes:     wire.Upvotes,
		Downvotes:   wire.Downvotes,
		ReportedBy:  reportedBy,
		Timestamp:   time.UnixMilli(wire.Timestamp),
	}, nil
}

// CommunityAlertSink stores community safety reports and finds the open
// ones near a position.
type CommunityAlertSink struct {
	store     Store
	userID    string
	publisher Publisher
	clock     common.Clock
}

func NewCommunityAlertSink(store Store, userID string, publisher Publisher, clock common.Clock) *CommunityAlertSink {
	if clock == nil {
		clock = common.RealClock{}
	}
	return &CommunityAlertSink{store: store, userID: userID, publisher: publisher, clock: clock}
}

func validateAlert(alert *models.CommunityAlert) error {
	if !alert.AlertType.Valid() {
		return fmt.Errorf("%w: unknown alert type %q", ErrInvalidDocument, alert.AlertType)
	}
	if !location.ValidCoordinates(alert.Latitude, alert.Longitude) {
		return fmt.Errorf("%w: coordinates out of range", ErrInvalidDocument)
	}
	return nil
}

// Create reports a new open alert as the sink's user and fans a community
// push out once it is stored.
func (s *CommunityAlertSink) Create(ctx context.Context, alert *models.CommunityAlert) (string, error) {
	logger := sinkLogger()

	if err := validateAlert(alert); err != nil {
		return "", remoteError("create alert", err)
	}
	if alert.Timestamp.IsZero() {
		alert.Timestamp = s.clock.Now()
	}
	reportedBy := alert.ReportedBy
	if reportedBy == nil {
		reportedBy = []string{}
	}
	doc, err := encodeDocument(communityDocument{
		UserID:      s.userID,
		AlertType:   alert.AlertType,
		Title:       alert.Title,
		Description: alert.Description,
		Latitude:    alert.Latitude,
		Longitude:   alert.Longitude,
		Address:     alert.Address,
		ReportedBy:  reportedBy,
		Timestamp:   alert.Timestamp.UnixMilli(),
	})
	if err != nil {
		return "", remoteError("create alert", err)
	}

	id, err := s.store.Add(ctx, common.CollectionCommunityAlerts, doc)
	if err != nil {
		logger.Error("Failed to create community alert", zap.Error(err))
		return "", remoteError("create alert", err)
	}
	logger.Info("Community alert created", zap.String("alert_id", id), zap.String("alert_type", string(alert.AlertType)))

	if s.publisher != nil {
		msg := models.PushMessage{
			Type:  models.PushTypeCommunityAlert,
			Title: alert.Title,
			Body:  alert.Description,
			Data: map[string]string{
				"type":       string(models.PushTypeCommunityAlert),
				"alert_id":   id,
				"alert_type": string(alert.AlertType),
				"user_id":    s.userID,
				"location": strconv.FormatFloat(alert.Latitude, 'f', -1, 64) + "," +
					strconv.FormatFloat(alert.Longitude, 'f', -1, 64),
			},
		}
		if err := s.publisher.Publish(ctx, msg); err != nil {
			logger.Warn("Failed to fan out community alert", zap.String("alert_id", id), zap.Error(err))
		}
	}
	return id, nil
}

// Resolve closes the alert so it drops out of nearby results.
func (s *CommunityAlertSink) Resolve(ctx context.Context, id string) error {
	if id == "" {
		return remoteError("resolve alert", fmt.Errorf("%w: empty alert id", ErrInvalidDocument))
	}
	if _, err := s.store.Get(ctx, common.CollectionCommunityAlerts, id); err != nil {
		return remoteError("resolve alert", err)
	}
	doc := Document{"isResolved": true, "resolvedAt": s.clock.Now().UnixMilli()}
	if err := s.store.Set(ctx, common.CollectionCommunityAlerts, id, doc, true); err != nil {
		return remoteError("resolve alert", err)
	}
	return nil
}

// ObserveNearby streams the open alerts within radiusKm of the position,
// newest first, on every change until ctx is done. A non-positive radius
// means DefaultNearbyRadiusKm.
func (s *CommunityAlertSink) ObserveNearby(ctx context.Context, lat, lon, radiusKm float64) (<-chan []models.CommunityAlert, error) {
	if !location.ValidCoordinates(lat, lon) {
		return nil, remoteError("observe alerts", fmt.Errorf("%w: coordinates out of range", ErrInvalidDocument))
	}
	if radiusKm <= 0 {
		radiusKm = DefaultNearbyRadiusKm
	}
	docs, err := s.store.Watch(ctx, Query{
		Collection: common.CollectionCommunityAlerts,
		Field:      "isResolved",
		Value:      false,
		OrderBy:    "timestamp",
		Descending: true,
	})
	if err != nil {
		return nil, remoteError("observe alerts", err)
	}

	limited := make(chan []Document, 1)
	go func() {
		defer close(limited)
		for batch := range docs {
			if len(batch) > NearbyAlertLimit {
				batch = batch[:NearbyAlertLimit]
			}
			select {
			case limited <- batch:
			case <-ctx.Done():
				return
			}
		}
	}()

	radiusMeters := radiusKm * 1000
	return relay(ctx, limited, fromCommunityDocument, func(a models.CommunityAlert) bool {
		return location.Distance(lat, lon, a.Latitude, a.Longitude) <= radiusMeters
	}), nil
}

// Nearby is the current result of ObserveNearby.
func (s *CommunityAlertSink) Nearby(ctx context.Context, lat, lon, radiusKm float64) ([]models.CommunityAlert, error) {
	return first(ctx, func(ctx context.Context) (<-chan []models.CommunityAlert, error) {
		return s.ObserveNearby(ctx, lat, lon, radiusKm)
	})
}
