package safety

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"liyu1981.xyz/sos-safety-service/pkg/common"
	"liyu1981.xyz/sos-safety-service/pkg/models"
	_ "liyu1981.xyz/sos-safety-service/pkg/testing"
)

func TestRetentionPrune(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, s, _, _, _ := GetMockSafetyWithMemorySqliteDialector(t, false, false, false)
	defer ctrl.Finish()
	ctx := context.Background()

	now := time.Now().Truncate(time.Second)
	clock := common.NewManualClock(now)
	old := now.Add(-31 * 24 * time.Hour)

	oldEvent := newEvent(old, models.TriggerTypeManual)
	require.NoError(t, s.Event.Insert(ctx, oldEvent))
	_, err := s.Event.Resolve(ctx, oldEvent.ID, nil, old.Add(time.Minute))
	require.NoError(t, err)

	openEvent := newEvent(old, models.TriggerTypeShake)
	require.NoError(t, s.Event.Insert(ctx, openEvent))

	require.NoError(t, s.History.Insert(ctx, &models.LocationSnapshot{Latitude: 1, Timestamp: old}))
	require.NoError(t, s.History.Insert(ctx, &models.LocationSnapshot{Latitude: 2, Timestamp: now}))

	result, err := NewRetention(s, 30, clock).Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.EventsDeleted)
	assert.Equal(t, int64(1), result.LocationsDeleted)
	assert.True(t, result.Cutoff.Equal(now.Add(-30*24*time.Hour)))

	_, err = s.Event.GetByID(ctx, openEvent.ID)
	assert.NoError(t, err)
}

func TestRetentionPrune_StopsOnEventFailure(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, s, _, mockIEvent, mockIHistory := GetMockSafetyWithMemorySqliteDialector(t, false, true, true)
	defer ctrl.Finish()

	mockIEvent.EXPECT().DeleteOlderThan(gomock.Any(), gomock.Any()).Return(int64(0), ErrPersistence)
	mockIHistory.EXPECT().DeleteOlderThan(gomock.Any(), gomock.Any()).Times(0)

	_, err := NewRetention(s, 30, nil).Prune(context.Background())
	assert.True(t, errors.Is(err, ErrPersistence))
}

func TestRetentionSchedule(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, s, _, _, _ := GetMockSafetyWithMemorySqliteDialector(t, false, false, false)
	defer ctrl.Finish()

	r := NewRetention(s, 30, nil)
	assert.Error(t, r.Start("not a schedule"))

	require.NoError(t, r.Start("@daily"))
	r.Stop()
	r.Stop()
}
