package sos

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"liyu1981.xyz/sos-safety-service/pkg/common"
	"liyu1981.xyz/sos-safety-service/pkg/location"
	"liyu1981.xyz/sos-safety-service/pkg/metrics"
	"liyu1981.xyz/sos-safety-service/pkg/models"
	"liyu1981.xyz/sos-safety-service/pkg/remote"
	"liyu1981.xyz/sos-safety-service/pkg/safety"
)

// Locator is the part of the location provider the coordinator needs.
type Locator interface {
	Snapshot(ctx context.Context) (models.LocationSnapshot, error)
	LastKnown(ctx context.Context) (models.LocationSnapshot, error)
}

type Notifier interface {
	NotifyAll(ctx context.Context, contacts []models.Contact, loc models.LocationSnapshot) []models.DeliveryOutcome
}

type Options struct {
	Countdown int
	Clock     common.Clock
	Feedback  Feedback
}

// Coordinator owns the SOS lifecycle. Every transition happens on the
// goroutine running Run; collaborator I/O runs on worker goroutines whose
// results are applied back on that loop.
type Coordinator struct {
	safety   *safety.Safety
	locator  Locator
	sink     remote.EventSink
	notifier Notifier
	clock    common.Clock
	feedback Feedback
	n        int

	commands chan command
	results  chan func()
	workers  sync.WaitGroup

	// loop-owned
	state         State
	ticker        common.Ticker
	lastType      models.TriggerType
	pinned        *models.LocationSnapshot
	pendingCancel bool
	resolving     bool
	resolveReply  chan error

	mu          sync.Mutex
	published   State
	subscribers map[chan State]struct{}
}

type commandKind int

const (
	cmdTrigger commandKind = iota
	cmdCancel
	cmdResolve
	cmdRetry
)

type command struct {
	kind        commandKind
	triggerType models.TriggerType
	pinned      *models.LocationSnapshot
	notes       string
	reply       chan error
}

func New(s *safety.Safety, locator Locator, sink remote.EventSink, notifier Notifier, opts Options) *Coordinator {
	if opts.Countdown <= 0 {
		opts.Countdown = DefaultCountdown
	}
	if opts.Clock == nil {
		opts.Clock = common.RealClock{}
	}
	if opts.Feedback == nil {
		opts.Feedback = nopFeedback{}
	}
	return &Coordinator{
		safety:      s,
		locator:     locator,
		sink:        sink,
		notifier:    notifier,
		clock:       opts.Clock,
		feedback:    opts.Feedback,
		n:           opts.Countdown,
		commands:    make(chan command),
		results:     make(chan func(), 16),
		state:       Idle(),
		published:   Idle(),
		subscribers: map[chan State]struct{}{},
	}
}

func logger() *zap.Logger {
	return common.GetCategoryLogger(common.LoggerNameSosCore, common.LoggerCategorySosCoordinator)
}

// Run drives the event loop until ctx is done. It returns once the
// in-flight collaborator calls have finished.
func (c *Coordinator) Run(ctx context.Context) error {
	logger().Info("SOS coordinator started", zap.Int("countdown", c.n))
	defer c.workers.Wait()
	defer c.stopTicker()

	for {
		var tick <-chan time.Time
		if c.ticker != nil {
			tick = c.ticker.C()
		}

		select {
		case <-ctx.Done():
			logger().Info("SOS coordinator stopped")
			return ctx.Err()
		case cmd := <-c.commands:
			c.handle(ctx, cmd)
		case apply := <-c.results:
			apply()
		case <-tick:
			// a cancel issued in the same tick window must win
			c.drainCommands(ctx)
			if c.ticker != nil && c.state.Status == StatusCountdown {
				c.tick(ctx)
			}
		}
	}
}

func (c *Coordinator) drainCommands(ctx context.Context) {
	for {
		select {
		case cmd := <-c.commands:
			c.handle(ctx, cmd)
		default:
			return
		}
	}
}

func (c *Coordinator) send(ctx context.Context, cmd command) error {
	cmd.reply = make(chan error, 1)
	select {
	case c.commands <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Trigger starts the countdown for a new SOS.
func (c *Coordinator) Trigger(ctx context.Context, triggerType models.TriggerType) error {
	return c.send(ctx, command{kind: cmdTrigger, triggerType: triggerType})
}

// TriggerAt starts the countdown with a location already known to the
// caller, skipping the location provider at commit.
func (c *Coordinator) TriggerAt(ctx context.Context, triggerType models.TriggerType, snapshot models.LocationSnapshot) error {
	if !location.ValidCoordinates(snapshot.Latitude, snapshot.Longitude) {
		return location.ErrInvalidFix
	}
	if snapshot.Timestamp.IsZero() {
		snapshot.Timestamp = c.clock.Now()
	}
	return c.send(ctx, command{kind: cmdTrigger, triggerType: triggerType, pinned: &snapshot})
}

func (c *Coordinator) Cancel(ctx context.Context) error {
	return c.send(ctx, command{kind: cmdCancel})
}

// Resolve marks the active SOS resolved. A store failure is returned and
// the SOS stays active.
func (c *Coordinator) Resolve(ctx context.Context, notes string) error {
	return c.send(ctx, command{kind: cmdResolve, notes: notes})
}

// Retry restarts the countdown after a failed commit with the trigger type
// that failed.
func (c *Coordinator) Retry(ctx context.Context) error {
	return c.send(ctx, command{kind: cmdRetry})
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.published
}

// Subscribe delivers the current state and every later change until ctx is
// done. Slow readers only ever miss intermediate states, never the latest.
func (c *Coordinator) Subscribe(ctx context.Context) <-chan State {
	ch := make(chan State, 8)
	c.mu.Lock()
	c.subscribers[ch] = struct{}{}
	ch <- c.published
	c.mu.Unlock()

	go func() {
		<-ctx.Done()
		c.mu.Lock()
		delete(c.subscribers, ch)
		close(ch)
		c.mu.Unlock()
	}()
	return ch
}

func (c *Coordinator) setState(s State) {
	c.state = s
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = s
	for ch := range c.subscribers {
		select {
		case ch <- s:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- s:
			default:
			}
		}
	}
}

func (c *Coordinator) handle(ctx context.Context, cmd command) {
	var err error
	switch cmd.kind {
	case cmdTrigger:
		err = c.onTrigger(cmd.triggerType, cmd.pinned)
	case cmdCancel:
		err = c.onCancel(ctx)
	case cmdResolve:
		if err = c.onResolve(ctx, cmd.notes, cmd.reply); err == nil {
			// replied once the store answers
			return
		}
	case cmdRetry:
		err = c.onRetry()
	}
	cmd.reply <- err
}

func (c *Coordinator) onTrigger(triggerType models.TriggerType, pinned *models.LocationSnapshot) error {
	if !triggerType.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTrigger, triggerType)
	}
	switch c.state.Status {
	case StatusCountdown, StatusActive:
		return ErrBusy
	}
	c.startCountdown(triggerType, pinned)
	return nil
}

func (c *Coordinator) onRetry() error {
	if c.state.Status != StatusError {
		return ErrInvalidTransition
	}
	c.startCountdown(c.lastType, nil)
	return nil
}

func (c *Coordinator) startCountdown(triggerType models.TriggerType, pinned *models.LocationSnapshot) {
	c.lastType = triggerType
	c.pinned = pinned
	c.pendingCancel = false
	metrics.SosTriggersTotal.WithLabelValues(string(triggerType)).Inc()

	logger().Info("SOS countdown started",
		zap.String("type", string(triggerType)),
		zap.Int("countdown", c.n),
		zap.Bool("pinned_location", pinned != nil))

	c.ticker = c.clock.NewTicker(time.Second)
	c.setState(Countdown(c.n, triggerType))
}

func (c *Coordinator) stopTicker() {
	if c.ticker != nil {
		c.ticker.Stop()
		c.ticker = nil
	}
}

func (c *Coordinator) tick(ctx context.Context) {
	remaining := c.state.Remaining - 1
	c.feedback.CountdownTick(remaining)
	if remaining > 0 {
		c.setState(Countdown(remaining, c.state.TriggerType))
		return
	}

	c.stopTicker()
	s := Countdown(0, c.state.TriggerType)
	s.Committing = true
	c.setState(s)
	c.startCommit(ctx, c.state.TriggerType, c.pinned)
}

func (c *Coordinator) onCancel(ctx context.Context) error {
	switch c.state.Status {
	case StatusCountdown:
		if c.state.Committing {
			c.pendingCancel = true
			logger().Info("SOS cancel requested during commit")
			return nil
		}
		c.stopTicker()
		logger().Info("SOS countdown cancelled", zap.Int("remaining", c.state.Remaining))
		c.setState(Idle())
	case StatusActive:
		if c.resolving {
			c.pendingCancel = true
			return nil
		}
		c.cancelActive(ctx, c.state.Event)
	case StatusError:
		c.setState(Idle())
	}
	return nil
}

// cancelActive resolves the event in the background and returns to idle
// without waiting for the store.
func (c *Coordinator) cancelActive(ctx context.Context, event *models.SosEvent) {
	c.setState(Idle())
	c.spawn(func() {
		notes := NotesCancelledByUser
		if _, err := c.resolveEvent(ctx, event, notes); err != nil {
			logger().Warn("Failed to resolve cancelled SOS", zap.Uint("event_id", event.ID), zap.Error(err))
		}
	})
}

func (c *Coordinator) onResolve(ctx context.Context, notes string, reply chan error) error {
	if c.state.Status != StatusActive {
		return ErrInvalidTransition
	}
	if c.resolving {
		return ErrBusy
	}
	c.resolving = true
	c.resolveReply = reply
	event := c.state.Event

	c.spawn(func() {
		resolved, err := c.resolveEvent(ctx, event, notes)
		c.post(ctx, func() { c.finishResolve(ctx, event, resolved, err) })
	})
	return nil
}

func (c *Coordinator) finishResolve(ctx context.Context, event *models.SosEvent, resolved *models.SosEvent, err error) {
	c.resolving = false
	reply := c.resolveReply
	c.resolveReply = nil

	if err != nil {
		logger().Error("Failed to resolve SOS", zap.Uint("event_id", event.ID), zap.Error(err))
		reply <- err
		if c.pendingCancel {
			c.pendingCancel = false
			c.cancelActive(ctx, event)
		}
		return
	}

	c.pendingCancel = false
	logger().Info("SOS resolved", zap.Uint("event_id", resolved.ID), zap.Durationp("response_time", resolved.ResponseTime))
	c.setState(Idle())
	reply <- nil
}

func (c *Coordinator) spawn(fn func()) {
	c.workers.Add(1)
	go func() {
		defer c.workers.Done()
		fn()
	}()
}

func (c *Coordinator) post(ctx context.Context, apply func()) {
	select {
	case c.results <- apply:
	case <-ctx.Done():
	}
}
