package safety

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"liyu1981.xyz/sos-safety-service/pkg/common"
	"liyu1981.xyz/sos-safety-service/pkg/metrics"
)

type RetentionResult struct {
	Cutoff           time.Time `json:"cutoff"`
	EventsDeleted    int64     `json:"events_deleted"`
	LocationsDeleted int64     `json:"locations_deleted"`
}

// Retention prunes old events and location history, either on a cron
// schedule or on demand.
type Retention struct {
	safety *Safety
	window time.Duration
	clock  common.Clock
	cron   *cron.Cron
}

func NewRetention(s *Safety, days int, clock common.Clock) *Retention {
	if clock == nil {
		clock = common.RealClock{}
	}
	if days <= 0 {
		days = 30
	}
	return &Retention{
		safety: s,
		window: time.Duration(days) * 24 * time.Hour,
		clock:  clock,
	}
}

func (r *Retention) Prune(ctx context.Context) (RetentionResult, error) {
	logger := common.GetCategoryLogger(common.LoggerNameSosCore, common.LoggerCategorySosRetention)

	result := RetentionResult{Cutoff: r.clock.Now().Add(-r.window)}

	events, err := r.safety.Event.DeleteOlderThan(ctx, result.Cutoff)
	if err != nil {
		logger.Error("Failed to prune events", zap.Error(err))
		return result, err
	}
	result.EventsDeleted = events

	locations, err := r.safety.History.DeleteOlderThan(ctx, result.Cutoff)
	if err != nil {
		logger.Error("Failed to prune location history", zap.Error(err))
		return result, err
	}
	result.LocationsDeleted = locations

	metrics.RetentionDeletedTotal.WithLabelValues("sos_events").Add(float64(events))
	metrics.RetentionDeletedTotal.WithLabelValues("location_history").Add(float64(locations))

	logger.Info("Retention pass completed",
		zap.Time("cutoff", result.Cutoff),
		zap.Int64("events_deleted", events),
		zap.Int64("locations_deleted", locations))
	return result, nil
}

// Start schedules Prune with a standard five-field cron expression or a
// descriptor such as "@daily".
func (r *Retention) Start(schedule string) error {
	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
	if _, err := c.AddFunc(schedule, func() { _, _ = r.Prune(context.Background()) }); err != nil {
		return fmt.Errorf("invalid retention schedule %q: %w", schedule, err)
	}
	r.cron = c
	c.Start()
	return nil
}

func (r *Retention) Stop() {
	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
	r.cron = nil
}
