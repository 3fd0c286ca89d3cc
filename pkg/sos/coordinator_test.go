package sos

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"liyu1981.xyz/sos-safety-service/pkg/common"
	"liyu1981.xyz/sos-safety-service/pkg/location"
	"liyu1981.xyz/sos-safety-service/pkg/models"
	"liyu1981.xyz/sos-safety-service/pkg/remote"
	"liyu1981.xyz/sos-safety-service/pkg/safety"
	remoteMocks "liyu1981.xyz/sos-safety-service/pkg/remote/mocks"
	safetyMocks "liyu1981.xyz/sos-safety-service/pkg/safety/mocks"
)

func TestCoordinator_CountdownTicks(t *testing.T) {
	for _, triggerType := range models.TriggerTypes {
		t.Run(string(triggerType), func(t *testing.T) {
			f := newFixture(t, fixtureOpts{countdown: 5, feedback: true})
			ctx := context.Background()

			gomock.InOrder(
				f.feedback.EXPECT().CountdownTick(4),
				f.feedback.EXPECT().CountdownTick(3),
				f.feedback.EXPECT().CountdownTick(2),
				f.feedback.EXPECT().CountdownTick(1),
				f.feedback.EXPECT().CountdownTick(0),
				f.feedback.EXPECT().Activated(),
			)
			f.locator.EXPECT().Snapshot(gomock.Any()).Return(newYork, nil)
			notified := f.expectNotify(nil)

			require.NoError(t, f.coord.Trigger(ctx, triggerType))
			assert.Equal(t, Countdown(5, triggerType), f.coord.State())

			for n := 4; n >= 1; n-- {
				require.True(t, f.clock.Tick())
				s := f.waitFor(t, func(s State) bool { return s.Remaining == n })
				assert.Equal(t, StatusCountdown, s.Status)
			}
			require.True(t, f.clock.Tick())

			s := f.waitStatus(t, StatusActive)
			assert.Equal(t, triggerType, s.Event.Type)
			assert.Equal(t, 0, f.clock.LiveTickers())
			waitClosed(t, notified)
		})
	}
}

func TestCoordinator_CancelDuringCountdown(t *testing.T) {
	for ticks := 0; ticks < 5; ticks++ {
		f := newFixture(t, fixtureOpts{countdown: 5})
		ctx := context.Background()

		require.NoError(t, f.coord.Trigger(ctx, models.TriggerTypeManual))
		f.tickTo(t, 5-ticks)
		require.NoError(t, f.coord.Cancel(ctx))

		assert.Equal(t, Idle(), f.coord.State())
		assert.False(t, f.clock.Tick())
		assert.Equal(t, 0, f.clock.LiveTickers())
		assert.Zero(t, f.eventCount(t))
	}
}

// The loop is held busy while the final tick and a cancel queue up, so it
// sees both at once. Whichever it picks, the cancel must win.
func TestCoordinator_CancelRacingFinalTick(t *testing.T) {
	for i := 0; i < 50; i++ {
		f := newFixture(t, fixtureOpts{countdown: 2})
		ctx := context.Background()

		require.NoError(t, f.coord.Trigger(ctx, models.TriggerTypeShake))
		f.tickTo(t, 1)

		busy, hold := make(chan struct{}), make(chan struct{})
		f.coord.results <- func() {
			close(busy)
			<-hold
		}
		waitClosed(t, busy)

		cancelled := make(chan struct{})
		go func() {
			defer close(cancelled)
			assert.NoError(t, f.coord.Cancel(ctx))
		}()
		ticked := make(chan struct{})
		go func() {
			defer close(ticked)
			f.clock.Tick()
		}()
		time.Sleep(10 * time.Millisecond)
		close(hold)
		waitClosed(t, cancelled)
		waitClosed(t, ticked)

		assert.Equal(t, Idle(), f.coord.State())
		assert.Zero(t, f.eventCount(t))
		assert.Equal(t, 0, f.clock.LiveTickers())

		watchCtx, stop := context.WithCancel(ctx)
		docs, err := f.store.Watch(watchCtx, remote.Query{Collection: common.CollectionSosEvents})
		require.NoError(t, err)
		assert.Empty(t, <-docs)
		stop()
	}
}

func TestCoordinator_CommitAndResolve(t *testing.T) {
	f := newFixture(t, fixtureOpts{countdown: 5})
	ctx := context.Background()

	contacts := f.addContacts(t,
		models.Contact{Name: "Alice", PhoneNumber: "+15551230001"},
		models.Contact{Name: "Bob", PhoneNumber: "+15551230002"},
	)

	f.locator.EXPECT().Snapshot(gomock.Any()).Return(newYork, nil)
	f.notifier.EXPECT().NotifyAll(gomock.Any(), gomock.Len(2), gomock.Any()).
		DoAndReturn(func(_ context.Context, cs []models.Contact, loc models.LocationSnapshot) []models.DeliveryOutcome {
			assert.Equal(t, 40.7128, loc.Latitude)
			return []models.DeliveryOutcome{
				{ContactID: cs[0].ID, Delivered: true},
				{ContactID: cs[1].ID, Error: "gateway timeout"},
			}
		})

	require.NoError(t, f.coord.Trigger(ctx, models.TriggerTypeManual))
	f.tickTo(t, 0)
	s := f.waitStatus(t, StatusActive)

	require.Equal(t, int64(1), f.eventCount(t))
	event, err := f.safety.Event.GetByID(ctx, s.Event.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TriggerTypeManual, event.Type)
	assert.Equal(t, 40.7128, event.Latitude)
	assert.Equal(t, -74.0060, event.Longitude)
	assert.False(t, event.IsResolved)
	require.NotNil(t, event.RemoteID)

	doc, err := f.store.Get(ctx, common.CollectionSosEvents, *event.RemoteID)
	require.NoError(t, err)
	assert.Equal(t, "manual", doc["type"])

	sosFixes, err := f.safety.History.GetByDateRange(ctx, newYork.Timestamp.Add(-time.Minute), newYork.Timestamp.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, sosFixes, 1)
	assert.True(t, sosFixes[0].IsSosLocation)

	s = f.waitFor(t, func(s State) bool { return s.Event != nil && len(s.Event.NotifiedContacts) == 1 })
	assert.Equal(t, []uint{contacts[0].ID}, s.Event.NotifiedContacts)
	require.Eventually(t, func() bool {
		doc, err := f.store.Get(ctx, common.CollectionSosEvents, *event.RemoteID)
		return err == nil && len(doc["contactsNotified"].([]any)) == 1
	}, time.Second, 5*time.Millisecond)

	f.clock.Advance(90 * time.Second)
	require.NoError(t, f.coord.Resolve(ctx, "safe"))
	assert.Equal(t, Idle(), f.coord.State())

	resolved, err := f.safety.Event.GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.True(t, resolved.IsResolved)
	assert.Equal(t, "safe", *resolved.Notes)
	require.NotNil(t, resolved.ResolvedAt)
	assert.False(t, resolved.ResolvedAt.Before(resolved.Timestamp))
	assert.Equal(t, []uint{contacts[0].ID}, resolved.NotifiedContacts)

	again, err := f.safety.Event.GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, resolved, again)

	doc, err = f.store.Get(ctx, common.CollectionSosEvents, *event.RemoteID)
	require.NoError(t, err)
	assert.Equal(t, true, doc["isResolved"])
	assert.Equal(t, "safe", doc["notes"])
}

func TestCoordinator_ResolveWhileNotifying(t *testing.T) {
	var gate *gatedEvents
	f := newFixture(t, fixtureOpts{countdown: 1, wrapEvent: func(inner safety.IEvent) safety.IEvent {
		gate = newGatedEvents(inner)
		return gate
	}})
	ctx := context.Background()

	contacts := f.addContacts(t, models.Contact{Name: "Alice", PhoneNumber: "+15551230001"})
	f.locator.EXPECT().Snapshot(gomock.Any()).Return(newYork, nil)
	f.expectNotify([]models.DeliveryOutcome{{ContactID: contacts[0].ID, Delivered: true}})

	require.NoError(t, f.coord.Trigger(ctx, models.TriggerTypePanicButton))
	f.tickTo(t, 0)
	s := f.waitStatus(t, StatusActive)
	remoteID := *s.Event.RemoteID
	released := false
	t.Cleanup(func() {
		if !released {
			close(gate.release)
		}
	})

	waitClosed(t, gate.reached)
	f.clock.Advance(30 * time.Second)
	require.NoError(t, f.coord.Resolve(ctx, "safe"))
	assert.Equal(t, Idle(), f.coord.State())
	close(gate.release)
	released = true

	require.Eventually(t, func() bool {
		doc, err := f.store.Get(ctx, common.CollectionSosEvents, remoteID)
		return err == nil && len(doc["contactsNotified"].([]any)) == 1
	}, 2*time.Second, 5*time.Millisecond)

	local, err := f.safety.Event.GetByID(ctx, s.Event.ID)
	require.NoError(t, err)
	assert.True(t, local.IsResolved)
	assert.Equal(t, []uint{contacts[0].ID}, local.NotifiedContacts)

	doc, err := f.store.Get(ctx, common.CollectionSosEvents, remoteID)
	require.NoError(t, err)
	assert.Equal(t, true, doc["isResolved"])
	assert.Equal(t, float64(local.ResolvedAt.UnixMilli()), doc["resolvedAt"])
	assert.Equal(t, "safe", doc["notes"])
	assert.Equal(t, []any{float64(contacts[0].ID)}, doc["contactsNotified"])
}

func TestCoordinator_RemoteFailureLeavesNoLocalRow(t *testing.T) {
	ctrl := gomock.NewController(t)
	sink := remoteMocks.NewMockEventSink(ctrl)
	f := newFixture(t, fixtureOpts{countdown: 2, sink: sink})
	ctx := context.Background()

	f.locator.EXPECT().Snapshot(gomock.Any()).Return(newYork, nil).Times(2)
	sink.EXPECT().Create(gomock.Any(), gomock.Any()).
		Return("", fmt.Errorf("%w: create: %w", remote.ErrRemote, remote.ErrNetwork)).Times(2)

	require.NoError(t, f.coord.Trigger(ctx, models.TriggerTypeShake))
	f.tickTo(t, 0)
	s := f.waitStatus(t, StatusError)
	assert.Equal(t, MessageRemoteFailure, s.Message)
	assert.Zero(t, f.eventCount(t))

	require.NoError(t, f.coord.Retry(ctx))
	assert.Equal(t, Countdown(2, models.TriggerTypeShake), f.coord.State())
	f.tickTo(t, 0)
	f.waitStatus(t, StatusError)
	assert.Zero(t, f.eventCount(t))

	require.NoError(t, f.coord.Cancel(ctx))
	assert.Equal(t, Idle(), f.coord.State())
}

func TestCoordinator_NoLocation(t *testing.T) {
	tests := []struct {
		name      string
		current   error
		lastKnown error
		message   string
	}{
		{"unavailable", location.ErrLocationUnavailable, location.ErrLocationUnavailable, MessageNoLocation},
		{"permission denied", location.ErrPermissionDenied, location.ErrPermissionDenied, MessagePermissionDenied},
		{"timeout then no fix", context.DeadlineExceeded, location.ErrLocationUnavailable, MessageNoLocation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			sink := remoteMocks.NewMockEventSink(ctrl)
			f := newFixture(t, fixtureOpts{countdown: 1, sink: sink})
			ctx := context.Background()

			f.locator.EXPECT().Snapshot(gomock.Any()).Return(models.LocationSnapshot{}, tt.current)
			f.locator.EXPECT().LastKnown(gomock.Any()).Return(models.LocationSnapshot{}, tt.lastKnown)

			require.NoError(t, f.coord.Trigger(ctx, models.TriggerTypePanicButton))
			f.tickTo(t, 0)
			s := f.waitStatus(t, StatusError)
			assert.Equal(t, tt.message, s.Message)
			assert.Equal(t, models.TriggerTypePanicButton, s.TriggerType)
			assert.Zero(t, f.eventCount(t))
		})
	}
}

func TestCoordinator_FallsBackToLastKnown(t *testing.T) {
	f := newFixture(t, fixtureOpts{countdown: 1})
	ctx := context.Background()

	lastKnown := newYork
	lastKnown.Latitude = 40.7000
	f.locator.EXPECT().Snapshot(gomock.Any()).Return(models.LocationSnapshot{}, context.DeadlineExceeded)
	f.locator.EXPECT().LastKnown(gomock.Any()).Return(lastKnown, nil)
	notified := f.expectNotify(nil)

	require.NoError(t, f.coord.Trigger(ctx, models.TriggerTypeManual))
	f.tickTo(t, 0)
	s := f.waitStatus(t, StatusActive)
	assert.Equal(t, 40.7000, s.Event.Latitude)
	waitClosed(t, notified)
}

func TestCoordinator_Transitions(t *testing.T) {
	f := newFixture(t, fixtureOpts{countdown: 1})
	ctx := context.Background()

	assert.ErrorIs(t, f.coord.Resolve(ctx, "safe"), ErrInvalidTransition)
	assert.ErrorIs(t, f.coord.Retry(ctx), ErrInvalidTransition)
	assert.NoError(t, f.coord.Cancel(ctx))
	assert.ErrorIs(t, f.coord.Trigger(ctx, "earthquake"), ErrInvalidTrigger)

	require.NoError(t, f.coord.Trigger(ctx, models.TriggerTypeManual))
	assert.ErrorIs(t, f.coord.Trigger(ctx, models.TriggerTypeShake), ErrBusy)
	assert.ErrorIs(t, f.coord.Retry(ctx), ErrInvalidTransition)

	f.locator.EXPECT().Snapshot(gomock.Any()).Return(newYork, nil)
	notified := f.expectNotify(nil)
	f.tickTo(t, 0)
	f.waitStatus(t, StatusActive)
	assert.ErrorIs(t, f.coord.Trigger(ctx, models.TriggerTypeShake), ErrBusy)
	waitClosed(t, notified)
}

func TestCoordinator_CancelActive(t *testing.T) {
	f := newFixture(t, fixtureOpts{countdown: 1})
	ctx := context.Background()

	f.locator.EXPECT().Snapshot(gomock.Any()).Return(newYork, nil)
	notified := f.expectNotify(nil)

	require.NoError(t, f.coord.Trigger(ctx, models.TriggerTypeManual))
	f.tickTo(t, 0)
	s := f.waitStatus(t, StatusActive)
	waitClosed(t, notified)

	require.NoError(t, f.coord.Cancel(ctx))
	assert.Equal(t, Idle(), f.coord.State())

	require.Eventually(t, func() bool {
		event, err := f.safety.Event.GetByID(ctx, s.Event.ID)
		return err == nil && event.IsResolved && event.Notes != nil && *event.Notes == NotesCancelledByUser
	}, 2*time.Second, 5*time.Millisecond)
}

func TestCoordinator_CancelDuringCommit(t *testing.T) {
	f := newFixture(t, fixtureOpts{countdown: 1})
	ctx := context.Background()

	release := make(chan struct{})
	f.locator.EXPECT().Snapshot(gomock.Any()).DoAndReturn(func(context.Context) (models.LocationSnapshot, error) {
		<-release
		return newYork, nil
	})
	notified := f.expectNotify(nil)

	require.NoError(t, f.coord.Trigger(ctx, models.TriggerTypeManual))
	require.True(t, f.clock.Tick())
	f.waitFor(t, func(s State) bool { return s.Committing })

	require.NoError(t, f.coord.Cancel(ctx))
	assert.True(t, f.coord.State().Committing)
	close(release)

	f.waitFor(t, func(s State) bool { return s.Status == StatusIdle })
	waitClosed(t, notified)
	require.Eventually(t, func() bool {
		event, err := f.safety.Event.GetLatest(ctx)
		return err == nil && event.IsResolved && event.Notes != nil && *event.Notes == NotesCancelledByUser
	}, 2*time.Second, 5*time.Millisecond)
}

func TestCoordinator_ResolveFailureKeepsActive(t *testing.T) {
	ctrl := gomock.NewController(t)
	events := safetyMocks.NewMockIEvent(ctrl)
	f := newFixture(t, fixtureOpts{countdown: 1, event: events})
	ctx := context.Background()

	events.EXPECT().Insert(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e *models.SosEvent) error {
		e.ID = 42
		return nil
	})
	events.EXPECT().SetNotifiedContacts(gomock.Any(), uint(42), []uint{}).Return(nil).AnyTimes()
	events.EXPECT().GetByID(gomock.Any(), uint(42)).Return(&models.SosEvent{ID: 42, RemoteID: common.Ptr("r1"), Type: models.TriggerTypeManual}, nil).AnyTimes()
	events.EXPECT().Resolve(gomock.Any(), uint(42), gomock.Any(), gomock.Any()).Return(nil, safety.ErrPersistence)
	f.locator.EXPECT().Snapshot(gomock.Any()).Return(newYork, nil)
	notified := f.expectNotify(nil)

	require.NoError(t, f.coord.Trigger(ctx, models.TriggerTypeManual))
	f.tickTo(t, 0)
	waitClosed(t, notified)

	err := f.coord.Resolve(ctx, "safe")
	assert.ErrorIs(t, err, safety.ErrPersistence)
	s := f.coord.State()
	assert.Equal(t, StatusActive, s.Status)
	assert.Equal(t, uint(42), s.Event.ID)
}

func TestCoordinator_TriggerAt(t *testing.T) {
	f := newFixture(t, fixtureOpts{countdown: 1})
	ctx := context.Background()

	bad := newYork
	bad.Latitude = 123
	assert.ErrorIs(t, f.coord.TriggerAt(ctx, models.TriggerTypePanicButton, bad), location.ErrInvalidFix)

	notified := f.expectNotify(nil)
	require.NoError(t, f.coord.TriggerAt(ctx, models.TriggerTypeRouteDeviation, newYork))
	f.tickTo(t, 0)
	s := f.waitStatus(t, StatusActive)
	assert.Equal(t, models.TriggerTypeRouteDeviation, s.Event.Type)
	assert.Equal(t, *newYork.Address, *s.Event.Address)

	latest, err := f.safety.History.GetLatest(ctx)
	require.NoError(t, err)
	assert.True(t, latest.IsSosLocation)
	assert.Equal(t, 40.7128, latest.Latitude)
	waitClosed(t, notified)
}

func TestCoordinator_Subscribe(t *testing.T) {
	f := newFixture(t, fixtureOpts{countdown: 2})
	ctx, cancel := context.WithCancel(context.Background())

	updates := f.coord.Subscribe(ctx)
	assert.Equal(t, Idle(), <-updates)

	require.NoError(t, f.coord.Trigger(ctx, models.TriggerTypeManual))
	assert.Equal(t, Countdown(2, models.TriggerTypeManual), <-updates)
	require.NoError(t, f.coord.Cancel(ctx))
	assert.Equal(t, Idle(), <-updates)

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-updates:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func TestCoordinator_CommandsNeedRunningLoop(t *testing.T) {
	common.SetTestLoggerNop()
	c := New(nil, nil, nil, nil, Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.True(t, errors.Is(c.Trigger(ctx, models.TriggerTypeManual), context.DeadlineExceeded))
}
