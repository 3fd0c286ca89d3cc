package sos

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"liyu1981.xyz/sos-safety-service/pkg/common"
	"liyu1981.xyz/sos-safety-service/pkg/db"
	"liyu1981.xyz/sos-safety-service/pkg/models"
	"liyu1981.xyz/sos-safety-service/pkg/remote"
	"liyu1981.xyz/sos-safety-service/pkg/safety"
	"liyu1981.xyz/sos-safety-service/pkg/sos/mocks"
)

var newYork = models.LocationSnapshot{
	Latitude:  40.7128,
	Longitude: -74.0060,
	Accuracy:  8,
	Address:   common.Ptr("Broadway, New York, NY 10007"),
	Timestamp: time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC),
}

type fixture struct {
	ctrl     *gomock.Controller
	clock    *common.ManualClock
	safety   *safety.Safety
	store    *remote.MemoryStore
	locator  *mocks.MockLocator
	notifier *mocks.MockNotifier
	feedback *mocks.MockFeedback
	coord    *Coordinator
}

type fixtureOpts struct {
	countdown int
	sink      remote.EventSink
	event     safety.IEvent
	wrapEvent func(safety.IEvent) safety.IEvent
	feedback  bool
}

func newFixture(t *testing.T, opts fixtureOpts) *fixture {
	t.Helper()
	common.SetTestLoggerNop()

	ctrl := gomock.NewController(t)
	database, err := db.Open(db.UseMemorySqliteDialector())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	s := safety.New(database)
	if opts.event != nil {
		s.WithServices(safety.ServiceOpts{Event: opts.event})
	}
	if opts.wrapEvent != nil {
		s.WithServices(safety.ServiceOpts{Event: opts.wrapEvent(s.Event)})
	}

	f := &fixture{
		ctrl:     ctrl,
		clock:    common.NewManualClock(newYork.Timestamp),
		safety:   s,
		store:    remote.NewMemoryStore(nil),
		locator:  mocks.NewMockLocator(ctrl),
		notifier: mocks.NewMockNotifier(ctrl),
		feedback: mocks.NewMockFeedback(ctrl),
	}

	sink := opts.sink
	if sink == nil {
		sink = remote.NewDocumentSink(f.store, "user-1", nil)
	}
	var feedback Feedback
	if opts.feedback {
		feedback = f.feedback
	}
	f.coord = New(s, f.locator, sink, f.notifier, Options{Countdown: opts.countdown, Clock: f.clock, Feedback: feedback})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = f.coord.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return f
}

func (f *fixture) waitFor(t *testing.T, pred func(State) bool) State {
	t.Helper()
	require.Eventually(t, func() bool { return pred(f.coord.State()) }, 2*time.Second, 5*time.Millisecond)
	return f.coord.State()
}

func (f *fixture) waitStatus(t *testing.T, status Status) State {
	t.Helper()
	return f.waitFor(t, func(s State) bool { return s.Status == status && !s.Committing })
}

// tickTo advances the countdown until it shows remaining.
func (f *fixture) tickTo(t *testing.T, remaining int) {
	t.Helper()
	for f.coord.State().Remaining > remaining {
		want := f.coord.State().Remaining - 1
		require.True(t, f.clock.Tick())
		f.waitFor(t, func(s State) bool { return s.Remaining == want || s.Status != StatusCountdown })
	}
}

func (f *fixture) eventCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.safety.Db.Conn.Model(&models.SosEvent{}).Count(&n).Error)
	return n
}

func (f *fixture) addContacts(t *testing.T, contacts ...models.Contact) []models.Contact {
	t.Helper()
	for i := range contacts {
		require.NoError(t, f.safety.Contact.Insert(context.Background(), &contacts[i]))
	}
	return contacts
}

// expectNotify registers one dispatch and returns a channel closed once it
// has happened.
func (f *fixture) expectNotify(outcomes []models.DeliveryOutcome) <-chan struct{} {
	called := make(chan struct{})
	f.notifier.EXPECT().NotifyAll(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, []models.Contact, models.LocationSnapshot) []models.DeliveryOutcome {
			close(called)
			return outcomes
		})
	return called
}

// gatedEvents holds SetNotifiedContacts until release is closed.
type gatedEvents struct {
	safety.IEvent
	reached chan struct{}
	release chan struct{}
}

func newGatedEvents(inner safety.IEvent) *gatedEvents {
	return &gatedEvents{IEvent: inner, reached: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedEvents) SetNotifiedContacts(ctx context.Context, id uint, contactIDs []uint) error {
	close(g.reached)
	<-g.release
	return g.IEvent.SetNotifiedContacts(ctx, id, contactIDs)
}

func waitClosed(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting")
	}
}
