package safety

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"liyu1981.xyz/sos-safety-service/pkg/common"
	"liyu1981.xyz/sos-safety-service/pkg/models"
)

func (s *Safety) insertSnapshot(ctx context.Context, snapshot *models.LocationSnapshot) error {
	logger := common.GetCategoryLogger(common.LoggerNameSosCore, common.LoggerCategorySosHistory)

	if snapshot.Latitude < -90 || snapshot.Latitude > 90 || snapshot.Longitude < -180 || snapshot.Longitude > 180 {
		return fmt.Errorf("%w: coordinates out of range", ErrInvalidEvent)
	}
	if snapshot.Timestamp.IsZero() {
		snapshot.Timestamp = time.Now()
	}
	snapshot.ID = 0

	if err := s.Db.Conn.WithContext(ctx).Create(snapshot).Error; err != nil {
		logger.Error("Failed to record location", zap.Error(err))
		return storeError(err)
	}
	logger.Debug("Location recorded",
		zap.Uint("id", snapshot.ID),
		zap.Bool("tracking", snapshot.IsTracking),
		zap.Bool("sos", snapshot.IsSosLocation))
	return nil
}

func (s *Safety) getLatestSnapshot(ctx context.Context) (*models.LocationSnapshot, error) {
	var snapshot models.LocationSnapshot
	err := s.Db.Conn.WithContext(ctx).Order("timestamp desc").Order("id desc").First(&snapshot).Error
	if err != nil {
		return nil, storeError(err)
	}
	return &snapshot, nil
}

func (s *Safety) getSnapshotsByDateRange(ctx context.Context, from, to time.Time) ([]models.LocationSnapshot, error) {
	var snapshots []models.LocationSnapshot
	err := s.Db.Conn.WithContext(ctx).
		Where("timestamp >= ? AND timestamp <= ?", from, to).
		Order("timestamp asc").
		Find(&snapshots).Error
	return snapshots, storeError(err)
}

func (s *Safety) recentTracking(ctx context.Context, limit int) ([]models.LocationSnapshot, error) {
	if limit <= 0 {
		limit = 100
	}
	var snapshots []models.LocationSnapshot
	err := s.Db.Conn.WithContext(ctx).
		Where("is_tracking = ?", true).
		Order("timestamp desc").
		Limit(limit).
		Find(&snapshots).Error
	return snapshots, storeError(err)
}

func (s *Safety) countSnapshotsSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := s.Db.Conn.WithContext(ctx).Model(&models.LocationSnapshot{}).Where("timestamp >= ?", since).Count(&count).Error
	return count, storeError(err)
}

func (s *Safety) clearTrackingFlags(ctx context.Context) error {
	return storeError(s.Db.Conn.WithContext(ctx).
		Model(&models.LocationSnapshot{}).
		Where("is_tracking = ?", true).
		Update("is_tracking", false).Error)
}

// deleteSnapshotsOlderThan never removes tracking or SOS rows.
func (s *Safety) deleteSnapshotsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.Db.Conn.WithContext(ctx).
		Where("timestamp < ? AND is_tracking = ? AND is_sos_location = ?", cutoff, false, false).
		Delete(&models.LocationSnapshot{})
	return result.RowsAffected, storeError(result.Error)
}

type IHistoryImpl struct {
	safety *Safety
}

func (ih *IHistoryImpl) Insert(ctx context.Context, snapshot *models.LocationSnapshot) error {
	return ih.safety.insertSnapshot(ctx, snapshot)
}

func (ih *IHistoryImpl) GetLatest(ctx context.Context) (*models.LocationSnapshot, error) {
	return ih.safety.getLatestSnapshot(ctx)
}

func (ih *IHistoryImpl) GetByDateRange(ctx context.Context, from, to time.Time) ([]models.LocationSnapshot, error) {
	return ih.safety.getSnapshotsByDateRange(ctx, from, to)
}

func (ih *IHistoryImpl) RecentTracking(ctx context.Context, limit int) ([]models.LocationSnapshot, error) {
	return ih.safety.recentTracking(ctx, limit)
}

func (ih *IHistoryImpl) CountSince(ctx context.Context, since time.Time) (int64, error) {
	return ih.safety.countSnapshotsSince(ctx, since)
}

func (ih *IHistoryImpl) ClearTrackingFlags(ctx context.Context) error {
	return ih.safety.clearTrackingFlags(ctx)
}

func (ih *IHistoryImpl) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return ih.safety.deleteSnapshotsOlderThan(ctx, cutoff)
}

func (s *Safety) GetIHistory() IHistory {
	return &IHistoryImpl{safety: s}
}
