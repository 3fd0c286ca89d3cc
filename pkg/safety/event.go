package safety

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"liyu1981.xyz/sos-safety-service/pkg/common"
	"liyu1981.xyz/sos-safety-service/pkg/models"
)

func eventLogger() *zap.Logger {
	return common.GetCategoryLogger(common.LoggerNameSosCore, common.LoggerCategorySosEvent)
}

func validateEvent(event *models.SosEvent) error {
	if !event.Type.Valid() {
		return fmt.Errorf("%w: unknown trigger type %q", ErrInvalidEvent, event.Type)
	}
	if event.IsResolved != (event.ResolvedAt != nil) {
		return fmt.Errorf("%w: resolved_at must be set exactly when resolved", ErrInvalidEvent)
	}
	if event.ResolvedAt != nil && event.ResolvedAt.Before(event.Timestamp) {
		return fmt.Errorf("%w: resolved_at precedes timestamp", ErrInvalidEvent)
	}
	return nil
}

func (s *Safety) insertEvent(ctx context.Context, event *models.SosEvent) error {
	logger := eventLogger()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.NotifiedContacts == nil {
		event.NotifiedContacts = []uint{}
	}
	if err := validateEvent(event); err != nil {
		return err
	}
	event.ID = 0

	if err := s.Db.Conn.WithContext(ctx).Create(event).Error; err != nil {
		logger.Error("Failed to insert event", zap.Error(err))
		return storeError(err)
	}

	logger.Info("Event recorded", zap.Uint("id", event.ID), zap.String("type", string(event.Type)))
	return nil
}

func (s *Safety) updateEvent(ctx context.Context, event *models.SosEvent) error {
	if event.ID == 0 {
		return fmt.Errorf("%w: id is required", ErrInvalidEvent)
	}
	if err := validateEvent(event); err != nil {
		return err
	}

	return storeError(s.Db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.SosEvent
		if err := tx.First(&existing, event.ID).Error; err != nil {
			return err
		}
		if existing.IsResolved {
			if !sameExceptNotes(&existing, event) {
				return ErrAlreadyResolved
			}
			return tx.Model(&existing).Update("notes", event.Notes).Error
		}
		return tx.Save(event).Error
	}))
}

// sameExceptNotes reports whether b differs from a in nothing but Notes.
func sameExceptNotes(a, b *models.SosEvent) bool {
	return a.Type == b.Type &&
		ptrEqual(a.RemoteID, b.RemoteID) &&
		a.Latitude == b.Latitude &&
		a.Longitude == b.Longitude &&
		a.Accuracy == b.Accuracy &&
		ptrEqual(a.Altitude, b.Altitude) &&
		ptrEqual(a.Speed, b.Speed) &&
		ptrEqual(a.Bearing, b.Bearing) &&
		ptrEqual(a.Address, b.Address) &&
		a.IsTracking == b.IsTracking &&
		a.IsSosLocation == b.IsSosLocation &&
		a.Timestamp.Equal(b.Timestamp) &&
		a.IsResolved == b.IsResolved &&
		a.ResolvedAt != nil && b.ResolvedAt != nil && a.ResolvedAt.Equal(*b.ResolvedAt) &&
		slices.Equal(a.NotifiedContacts, b.NotifiedContacts) &&
		a.EmergencyServicesCalled == b.EmergencyServicesCalled &&
		ptrEqual(a.ResponseTime, b.ResponseTime)
}

func ptrEqual[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (s *Safety) getEvent(ctx context.Context, id uint) (*models.SosEvent, error) {
	var event models.SosEvent
	if err := s.Db.Conn.WithContext(ctx).First(&event, id).Error; err != nil {
		return nil, storeError(err)
	}
	return &event, nil
}

func (s *Safety) findEvents(ctx context.Context, query string, args ...any) ([]models.SosEvent, error) {
	var events []models.SosEvent
	err := s.Db.Conn.WithContext(ctx).
		Where(query, args...).
		Order("timestamp desc").
		Order("id desc").
		Find(&events).Error
	return events, storeError(err)
}

func (s *Safety) getLatestEvent(ctx context.Context) (*models.SosEvent, error) {
	var event models.SosEvent
	err := s.Db.Conn.WithContext(ctx).Order("timestamp desc").Order("id desc").First(&event).Error
	if err != nil {
		return nil, storeError(err)
	}
	return &event, nil
}

func (s *Safety) countEventsSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := s.Db.Conn.WithContext(ctx).Model(&models.SosEvent{}).Where("timestamp >= ?", since).Count(&count).Error
	return count, storeError(err)
}

// resolveEvent marks the event resolved. Resolution is terminal, a second
// call fails with ErrAlreadyResolved.
func (s *Safety) resolveEvent(ctx context.Context, id uint, notes *string, at time.Time) (*models.SosEvent, error) {
	logger := eventLogger()

	var event models.SosEvent
	err := s.Db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&event, id).Error; err != nil {
			return err
		}
		if event.IsResolved {
			return ErrAlreadyResolved
		}
		if at.Before(event.Timestamp) {
			at = event.Timestamp
		}
		responseTime := at.Sub(event.Timestamp)
		event.IsResolved = true
		event.ResolvedAt = &at
		event.ResponseTime = &responseTime
		if notes != nil {
			event.Notes = notes
		}
		return tx.Save(&event).Error
	})
	if err != nil {
		return nil, storeError(err)
	}

	logger.Info("Event resolved", zap.Uint("id", id), zap.Duration("response_time", *event.ResponseTime))
	return &event, nil
}

func (s *Safety) updateEventNotes(ctx context.Context, id uint, notes string) (*models.SosEvent, error) {
	var event models.SosEvent
	err := s.Db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&event, id).Error; err != nil {
			return err
		}
		event.Notes = &notes
		return tx.Model(&event).Update("notes", notes).Error
	})
	if err != nil {
		return nil, storeError(err)
	}
	return &event, nil
}

func (s *Safety) setNotifiedContacts(ctx context.Context, id uint, contactIDs []uint) error {
	if contactIDs == nil {
		contactIDs = []uint{}
	}
	return storeError(s.Db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var event models.SosEvent
		if err := tx.First(&event, id).Error; err != nil {
			return err
		}
		event.NotifiedContacts = contactIDs
		return tx.Save(&event).Error
	}))
}

// deleteEventsOlderThan keeps open events and events pinned to an SOS
// location regardless of age.
func (s *Safety) deleteEventsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.Db.Conn.WithContext(ctx).
		Where("timestamp < ? AND is_resolved = ? AND is_sos_location = ?", cutoff, true, false).
		Delete(&models.SosEvent{})
	return result.RowsAffected, storeError(result.Error)
}

type IEventImpl struct {
	safety *Safety
}

func (ie *IEventImpl) Insert(ctx context.Context, event *models.SosEvent) error {
	return ie.safety.insertEvent(ctx, event)
}

func (ie *IEventImpl) Update(ctx context.Context, event *models.SosEvent) error {
	return ie.safety.updateEvent(ctx, event)
}

func (ie *IEventImpl) GetByID(ctx context.Context, id uint) (*models.SosEvent, error) {
	return ie.safety.getEvent(ctx, id)
}

func (ie *IEventImpl) GetByDateRange(ctx context.Context, from, to time.Time) ([]models.SosEvent, error) {
	return ie.safety.findEvents(ctx, "timestamp >= ? AND timestamp <= ?", from, to)
}

func (ie *IEventImpl) GetByType(ctx context.Context, triggerType models.TriggerType) ([]models.SosEvent, error) {
	return ie.safety.findEvents(ctx, "type = ?", triggerType)
}

func (ie *IEventImpl) GetLatest(ctx context.Context) (*models.SosEvent, error) {
	return ie.safety.getLatestEvent(ctx)
}

func (ie *IEventImpl) GetActive(ctx context.Context) ([]models.SosEvent, error) {
	return ie.safety.findEvents(ctx, "is_resolved = ?", false)
}

func (ie *IEventImpl) CountSince(ctx context.Context, since time.Time) (int64, error) {
	return ie.safety.countEventsSince(ctx, since)
}

func (ie *IEventImpl) Resolve(ctx context.Context, id uint, notes *string, at time.Time) (*models.SosEvent, error) {
	return ie.safety.resolveEvent(ctx, id, notes, at)
}

func (ie *IEventImpl) UpdateNotes(ctx context.Context, id uint, notes string) (*models.SosEvent, error) {
	return ie.safety.updateEventNotes(ctx, id, notes)
}

func (ie *IEventImpl) SetNotifiedContacts(ctx context.Context, id uint, contactIDs []uint) error {
	return ie.safety.setNotifiedContacts(ctx, id, contactIDs)
}

func (ie *IEventImpl) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return ie.safety.deleteEventsOlderThan(ctx, cutoff)
}

func (s *Safety) GetIEvent() IEvent {
	return &IEventImpl{safety: s}
}
