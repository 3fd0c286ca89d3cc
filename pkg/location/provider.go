package location

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"liyu1981.xyz/sos-safety-service/pkg/common"
	"liyu1981.xyz/sos-safety-service/pkg/models"
	"liyu1981.xyz/sos-safety-service/pkg/safety"
)

type TrackingOptions struct {
	Interval        time.Duration
	Fastest         time.Duration
	MinDisplacement float64
}

type Options struct {
	Geocoder Geocoder
	// History records tracking fixes when set.
	History safety.IHistory
	Clock   common.Clock
	// Timeout bounds a Snapshot request.
	Timeout time.Duration
}

// Provider wraps a Source with address resolution and continuous tracking.
type Provider struct {
	source   Source
	geocoder Geocoder
	history  safety.IHistory
	clock    common.Clock
	timeout  time.Duration

	mu       sync.Mutex
	tracking *trackingSession
}

type trackingSession struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func NewProvider(source Source, opts Options) *Provider {
	if opts.Clock == nil {
		opts.Clock = common.RealClock{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Provider{
		source:   source,
		geocoder: opts.Geocoder,
		history:  opts.History,
		clock:    opts.Clock,
		timeout:  opts.Timeout,
	}
}

func logger() *zap.Logger {
	return common.GetCategoryLogger(common.LoggerNameSosCore, common.LoggerCategorySosLocation)
}

// Snapshot requests a fresh fix. Both snapshot flags are false.
func (p *Provider) Snapshot(ctx context.Context) (models.LocationSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	fix, err := p.source.Current(ctx)
	if err != nil {
		return models.LocationSnapshot{}, err
	}
	return p.enrich(ctx, fix), nil
}

func (p *Provider) LastKnown(ctx context.Context) (models.LocationSnapshot, error) {
	fix, err := p.source.LastKnown(ctx)
	if err != nil {
		return models.LocationSnapshot{}, err
	}
	return p.enrich(ctx, fix), nil
}

// enrich fills the address when a geocoder is configured. Lookup failures
// leave the address empty.
func (p *Provider) enrich(ctx context.Context, fix models.LocationSnapshot) models.LocationSnapshot {
	fix.IsTracking = false
	fix.IsSosLocation = false
	if p.geocoder == nil || fix.Address != nil {
		return fix
	}
	address, err := p.geocoder.ReverseGeocode(ctx, fix.Latitude, fix.Longitude)
	if err != nil {
		logger().Warn("Reverse geocoding failed", zap.Error(err))
		return fix
	}
	if address != "" {
		fix.Address = &address
	}
	return fix
}

func (p *Provider) IsTracking() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tracking != nil
}

// StartTracking polls the source every Fastest and emits a fix once
// Interval has elapsed since the previous emission or the device moved at
// least MinDisplacement metres. The channel closes after StopTracking or
// when ctx is done.
func (p *Provider) StartTracking(ctx context.Context, opts TrackingOptions) (<-chan models.LocationSnapshot, error) {
	if opts.Fastest <= 0 {
		opts.Fastest = 5 * time.Second
	}
	if opts.Interval < opts.Fastest {
		opts.Interval = opts.Fastest
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tracking != nil {
		return nil, ErrTrackingActive
	}

	trackCtx, cancel := context.WithCancel(ctx)
	session := &trackingSession{cancel: cancel, done: make(chan struct{})}
	p.tracking = session

	out := make(chan models.LocationSnapshot, 16)
	ticker := p.clock.NewTicker(opts.Fastest)

	go func() {
		defer close(session.done)
		defer close(out)
		defer ticker.Stop()
		defer func() {
			p.mu.Lock()
			if p.tracking == session {
				p.tracking = nil
			}
			p.mu.Unlock()
		}()

		logger().Info("Location tracking started",
			zap.Duration("interval", opts.Interval),
			zap.Duration("fastest", opts.Fastest),
			zap.Float64("min_displacement", opts.MinDisplacement))

		var last *models.LocationSnapshot
		var lastEmit time.Time
		for {
			select {
			case <-trackCtx.Done():
				logger().Info("Location tracking stopped")
				return
			case <-ticker.C():
			}

			fix, err := p.source.LastKnown(trackCtx)
			if err != nil {
				logger().Debug("No fix for tracking tick", zap.Error(err))
				continue
			}
			if last != nil {
				if !fix.Timestamp.After(last.Timestamp) {
					continue
				}
				moved := Distance(last.Latitude, last.Longitude, fix.Latitude, fix.Longitude)
				if p.clock.Now().Sub(lastEmit) < opts.Interval && moved < opts.MinDisplacement {
					continue
				}
			}

			snapshot := p.enrich(trackCtx, fix)
			snapshot.IsTracking = true
			if p.history != nil {
				if err := p.history.Insert(trackCtx, &snapshot); err != nil {
					logger().Error("Failed to record tracking fix", zap.Error(err))
				}
			}
			last = &snapshot
			lastEmit = p.clock.Now()

			select {
			case out <- snapshot:
			default:
				logger().Warn("Tracking consumer is behind, dropping fix")
			}
		}
	}()

	return out, nil
}

// StopTracking ends the running session, if any, and waits for it to wind
// down.
func (p *Provider) StopTracking() {
	p.mu.Lock()
	session := p.tracking
	p.mu.Unlock()
	if session == nil {
		return
	}
	session.cancel()
	<-session.done
}
