package location

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"liyu1981.xyz/sos-safety-service/pkg/common"
	"liyu1981.xyz/sos-safety-service/pkg/models"
)

var (
	ErrPermissionDenied    = errors.New("location permission denied")
	ErrLocationUnavailable = errors.New("location unavailable")
	ErrInvalidFix          = errors.New("invalid location fix")
	ErrTrackingActive      = errors.New("location tracking already active")
)

// Source is the platform positioning boundary.
type Source interface {
	// Current returns a fresh fix, waiting for one until ctx is done.
	Current(ctx context.Context) (models.LocationSnapshot, error)
	// LastKnown returns the most recent fix without waiting.
	LastKnown(ctx context.Context) (models.LocationSnapshot, error)
}

// FeedSource is fed fixes by the device shell. A fix older than maxAge is
// not current, but is still the last known one.
type FeedSource struct {
	mu      sync.Mutex
	fix     *models.LocationSnapshot
	granted bool
	maxAge  time.Duration
	clock   common.Clock
	updated chan struct{}
}

func NewFeedSource(maxAge time.Duration, clock common.Clock) *FeedSource {
	if clock == nil {
		clock = common.RealClock{}
	}
	return &FeedSource{
		granted: true,
		maxAge:  maxAge,
		clock:   clock,
		updated: make(chan struct{}),
	}
}

func (f *FeedSource) Report(fix models.LocationSnapshot) error {
	if !ValidCoordinates(fix.Latitude, fix.Longitude) {
		return fmt.Errorf("%w: (%v, %v)", ErrInvalidFix, fix.Latitude, fix.Longitude)
	}
	if fix.Timestamp.IsZero() {
		fix.Timestamp = f.clock.Now()
	}
	fix.ID = 0
	fix.IsTracking = false
	fix.IsSosLocation = false

	f.mu.Lock()
	f.fix = &fix
	close(f.updated)
	f.updated = make(chan struct{})
	f.mu.Unlock()
	return nil
}

func (f *FeedSource) SetPermission(granted bool) {
	f.mu.Lock()
	f.granted = granted
	f.mu.Unlock()
}

func (f *FeedSource) Permission() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.granted
}

func (f *FeedSource) Current(ctx context.Context) (models.LocationSnapshot, error) {
	for {
		f.mu.Lock()
		if !f.granted {
			f.mu.Unlock()
			return models.LocationSnapshot{}, ErrPermissionDenied
		}
		if f.fix != nil && (f.maxAge <= 0 || f.clock.Now().Sub(f.fix.Timestamp) <= f.maxAge) {
			fix := *f.fix
			f.mu.Unlock()
			return fix, nil
		}
		updated := f.updated
		f.mu.Unlock()

		select {
		case <-updated:
		case <-ctx.Done():
			return models.LocationSnapshot{}, fmt.Errorf("%w: no fresh fix", ErrLocationUnavailable)
		}
	}
}

func (f *FeedSource) LastKnown(ctx context.Context) (models.LocationSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.granted {
		return models.LocationSnapshot{}, ErrPermissionDenied
	}
	if f.fix == nil {
		return models.LocationSnapshot{}, fmt.Errorf("%w: no fix reported yet", ErrLocationUnavailable)
	}
	return *f.fix, nil
}
