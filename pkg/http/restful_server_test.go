package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "liyu1981.xyz/sos-safety-service/pkg/testing"

	"liyu1981.xyz/sos-safety-service/pkg/common"
	"liyu1981.xyz/sos-safety-service/pkg/db"
	"liyu1981.xyz/sos-safety-service/pkg/location"
	"liyu1981.xyz/sos-safety-service/pkg/models"
	"liyu1981.xyz/sos-safety-service/pkg/notify"
	"liyu1981.xyz/sos-safety-service/pkg/remote"
	"liyu1981.xyz/sos-safety-service/pkg/safety"
	"liyu1981.xyz/sos-safety-service/pkg/sos"
)

var testStart = time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

type testServer struct {
	*RestfulServer
	clock *common.ManualClock
	store *remote.MemoryStore
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	common.SetTestLoggerNop()
	gin.SetMode(gin.TestMode)

	database, err := db.Open(db.UseMemorySqliteDialector())
	require.NoError(t, err)

	clock := common.NewManualClock(testStart)
	s := safety.New(database)
	feed := location.NewFeedSource(0, clock)
	provider := location.NewProvider(feed, location.Options{History: s.History, Clock: clock, Timeout: time.Second})
	store := remote.NewMemoryStore(clock)
	sink := remote.NewDocumentSink(store, "user-1", nil)
	dispatcher := notify.NewDispatcher(notify.LogSender{}, notify.DispatcherOpts{UserName: "Alex"})
	coord := sos.New(s, provider, sink, dispatcher, sos.Options{Countdown: 2, Clock: clock})

	rs := &RestfulServer{
		Server:      gin.New(),
		Safety:      s,
		Coordinator: coord,
		Location:    provider,
		Feed:        feed,
		Sink:        sink,
		Community:   remote.NewCommunityAlertSink(store, "user-1", nil, clock),
		Shares:      remote.NewLocationShareSink(store, "user-1", nil, clock),
		Users:       remote.NewUserDirectory(store),
		Hub:         NewHub(),
		Retention:   safety.NewRetention(s, 30, clock),
		UserID:      "user-1",
		Tracking:    location.TrackingOptions{Interval: 10 * time.Second, Fastest: 5 * time.Second},
		// default we use no limiter, if need, later assign it rs.RateLimiterStore = safety.NewRateLimiterStore(...)
	}
	rs.Push = notify.NewPushHandler(rs.Hub)
	rs.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = coord.Run(ctx)
	}()
	go rs.StreamStates(ctx)
	t.Cleanup(func() {
		provider.StopTracking()
		cancel()
		<-done
		_ = database.Close()
	})

	return &testServer{RestfulServer: rs, clock: clock, store: store}
}

func (ts *testServer) do(method, target string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	ts.Server.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (ts *testServer) waitStatus(t *testing.T, status sos.Status) sos.State {
	t.Helper()
	require.Eventually(t, func() bool {
		s := ts.Coordinator.State()
		return s.Status == status && !s.Committing
	}, 2*time.Second, 5*time.Millisecond)
	return ts.Coordinator.State()
}

func (ts *testServer) runCountdown(t *testing.T) {
	t.Helper()
	for range 2 {
		require.True(t, ts.clock.Tick())
	}
}

func dialWS(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	u.Scheme = "ws"
	u.Path = path
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

type frame struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// readUntil returns the first frame of the given kind.
func readUntil(t *testing.T, conn *websocket.Conn, kind string) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var f frame
		require.NoError(t, conn.ReadJSON(&f))
		if f.Kind == kind {
			return f
		}
	}
}

func TestHealthCheck(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	ts := setupTestServer(t)

	ts.do(http.MethodGet, "/healthz", nil)
	w := ts.do(http.MethodGet, "/metrics", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestContactsCRUD(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(http.MethodPost, "/contacts", ContactRequest{Name: "Mom", PhoneNumber: "(555) 123-4567"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	mom := decode[models.Contact](t, w)
	assert.NotZero(t, mom.ID)
	assert.Equal(t, "+15551234567", mom.PhoneNumber)

	w = ts.do(http.MethodPost, "/contacts", ContactRequest{Name: "Dad", PhoneNumber: "555-987-6543", IsPrimary: true})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	dad := decode[models.Contact](t, w)

	w = ts.do(http.MethodGet, "/contacts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	contacts := decode[[]models.Contact](t, w)
	require.Len(t, contacts, 2)
	assert.Equal(t, dad.ID, contacts[0].ID, "primary contacts sort first")

	w = ts.do(http.MethodPost, fmt.Sprintf("/contacts/%d/primary", mom.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	primaries, err := ts.Safety.Contact.GetPrimary(context.Background())
	require.NoError(t, err)
	require.Len(t, primaries, 1)
	assert.Equal(t, mom.ID, primaries[0].ID)

	w = ts.do(http.MethodPut, fmt.Sprintf("/contacts/%d", dad.ID), ContactRequest{Name: "Father", PhoneNumber: "5559876543"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Father", decode[models.Contact](t, w).Name)

	w = ts.do(http.MethodDelete, fmt.Sprintf("/contacts/%d", dad.ID), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = ts.do(http.MethodDelete, fmt.Sprintf("/contacts/%d", dad.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = ts.do(http.MethodPut, "/contacts/999", ContactRequest{Name: "Ghost", PhoneNumber: "5550000000"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestContacts_Invalid(t *testing.T) {
	ts := setupTestServer(t)

	tests := []struct {
		name   string
		target string
		body   any
		want   int
	}{
		{"missing name", "/contacts", map[string]any{"phone_number": "5551234567"}, http.StatusBadRequest},
		{"short phone", "/contacts", ContactRequest{Name: "Bob", PhoneNumber: "12345"}, http.StatusBadRequest},
		{"bad id", "/contacts/abc/primary", nil, http.StatusBadRequest},
		{"unknown id", "/contacts/42/primary", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(http.MethodPost, tt.target, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestSosLifecycle(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(http.MethodPost, "/contacts", ContactRequest{Name: "Mom", PhoneNumber: "5551234567", IsPrimary: true})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	mom := decode[models.Contact](t, w)

	w = ts.do(http.MethodPost, "/location", map[string]any{"latitude": 40.7128, "longitude": -74.0060, "accuracy": 5})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(http.MethodPost, "/sos/trigger", map[string]any{"type": "panic_button"})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	state := decode[sos.State](t, w)
	assert.Equal(t, sos.StatusCountdown, state.Status)
	assert.Equal(t, 2, state.Remaining)

	w = ts.do(http.MethodPost, "/sos/trigger", map[string]any{"type": "manual"})
	assert.Equal(t, http.StatusConflict, w.Code)

	ts.runCountdown(t)
	active := ts.waitStatus(t, sos.StatusActive)
	require.NotNil(t, active.Event)
	require.NotNil(t, active.Event.RemoteID)
	assert.Equal(t, models.TriggerTypePanicButton, active.Event.Type)

	require.Eventually(t, func() bool {
		s := ts.Coordinator.State()
		return s.Event != nil && len(s.Event.NotifiedContacts) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []uint{mom.ID}, ts.Coordinator.State().Event.NotifiedContacts)

	w = ts.do(http.MethodGet, "/sos/state", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, sos.StatusActive, decode[sos.State](t, w).Status)

	ts.clock.Advance(90 * time.Second)
	w = ts.do(http.MethodPost, "/sos/resolve", ResolveRequest{Notes: "I am safe"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, sos.StatusIdle, decode[sos.State](t, w).Status)

	w = ts.do(http.MethodGet, "/events/latest", nil)
	require.Equal(t, http.StatusOK, w.Code)
	event := decode[models.SosEvent](t, w)
	assert.True(t, event.IsResolved)
	require.NotNil(t, event.Notes)
	assert.Equal(t, "I am safe", *event.Notes)
	require.NotNil(t, event.ResponseTime)
	assert.GreaterOrEqual(t, *event.ResponseTime, 90*time.Second)

	doc, err := ts.store.Get(context.Background(), common.CollectionSosEvents, *event.RemoteID)
	require.NoError(t, err)
	assert.Equal(t, true, doc["isResolved"])

	w = ts.do(http.MethodPost, "/sos/resolve", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSosTriggerAtAndCancel(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(http.MethodPost, "/sos/trigger", map[string]any{"type": "shake", "latitude": 100.0, "longitude": 0.5})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodPost, "/sos/trigger", map[string]any{"type": "shake", "latitude": 51.5074, "longitude": -0.1278, "address": "London"})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	w = ts.do(http.MethodPost, "/sos/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, sos.StatusIdle, decode[sos.State](t, w).Status)

	w = ts.do(http.MethodPost, "/sos/retry", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(http.MethodGet, "/events", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]models.SosEvent](t, w))
}

func TestSosNoLocationThenRetry(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(http.MethodPost, "/location/permission", PermissionRequest{Granted: false})
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(http.MethodPost, "/sos/trigger", map[string]any{"type": "manual"})
	require.Equal(t, http.StatusAccepted, w.Code)
	ts.runCountdown(t)
	failed := ts.waitStatus(t, sos.StatusError)
	assert.Equal(t, sos.MessagePermissionDenied, failed.Message)

	w = ts.do(http.MethodPost, "/location/permission", PermissionRequest{Granted: true})
	require.Equal(t, http.StatusOK, w.Code)
	w = ts.do(http.MethodPost, "/location", map[string]any{"latitude": 48.8566, "longitude": 2.3522})
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(http.MethodPost, "/sos/retry", nil)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	ts.runCountdown(t)
	active := ts.waitStatus(t, sos.StatusActive)
	assert.Equal(t, models.TriggerTypeManual, active.Event.Type)
	assert.InDelta(t, 48.8566, active.Event.Latitude, 1e-9)

	w = ts.do(http.MethodPost, "/sos/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Eventually(t, func() bool {
		e, err := ts.Safety.Event.GetLatest(context.Background())
		return err == nil && e.IsResolved && e.Notes != nil && *e.Notes == sos.NotesCancelledByUser
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSosTrigger_Invalid(t *testing.T) {
	ts := setupTestServer(t)

	for _, body := range []any{
		map[string]any{},
		map[string]any{"type": "earthquake"},
	} {
		w := ts.do(http.MethodPost, "/sos/trigger", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	}
	assert.Equal(t, sos.StatusIdle, ts.Coordinator.State().Status)
}

func TestSosRateLimit(t *testing.T) {
	ts := setupTestServer(t)
	ts.RateLimiterStore = safety.NewRateLimiterStore(10, 10)

	clientID := uuid.NewString()
	w := ts.do(http.MethodPost, "/clients/"+clientID+"/limiter", LimiterRequest{Rate: 0.001, Burst: 2})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	for i := range 3 {
		req := httptest.NewRequest(http.MethodPost, "/sos/cancel", nil)
		req.Header.Set(HeaderClientID, clientID)
		w := httptest.NewRecorder()
		ts.Server.ServeHTTP(w, req)

		if i < 2 {
			assert.Equal(t, http.StatusOK, w.Code)
		} else {
			assert.Equal(t, http.StatusTooManyRequests, w.Code)
		}
	}

	// other clients keep their own budget
	req := httptest.NewRequest(http.MethodPost, "/sos/cancel", nil)
	req.Header.Set(HeaderClientID, uuid.NewString())
	w = httptest.NewRecorder()
	ts.Server.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// reads are never limited
	req = httptest.NewRequest(http.MethodGet, "/sos/state", nil)
	req.Header.Set(HeaderClientID, clientID)
	w = httptest.NewRecorder()
	ts.Server.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestEventsQueryAndNotes(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()

	remoteID := "remote-1"
	require.NoError(t, ts.store.Set(ctx, common.CollectionSosEvents, remoteID, remote.Document{"userId": "user-1"}, false))

	shake := &models.SosEvent{Type: models.TriggerTypeShake, Latitude: 1, Longitude: 2, Timestamp: testStart.Add(-48 * time.Hour), RemoteID: &remoteID}
	manual := &models.SosEvent{Type: models.TriggerTypeManual, Latitude: 3, Longitude: 4, Timestamp: testStart.Add(-time.Hour)}
	require.NoError(t, ts.Safety.Event.Insert(ctx, shake))
	require.NoError(t, ts.Safety.Event.Insert(ctx, manual))

	w := ts.do(http.MethodGet, "/events?type=shake", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	byType := decode[[]models.SosEvent](t, w)
	require.Len(t, byType, 1)
	assert.Equal(t, shake.ID, byType[0].ID)

	from := url.QueryEscape(testStart.Add(-2 * time.Hour).Format(time.RFC3339))
	w = ts.do(http.MethodGet, "/events?from="+from, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	byRange := decode[[]models.SosEvent](t, w)
	require.Len(t, byRange, 1)
	assert.Equal(t, manual.ID, byRange[0].ID)

	w = ts.do(http.MethodGet, "/events", nil)
	require.Equal(t, http.StatusOK, w.Code)
	all := decode[[]models.SosEvent](t, w)
	require.Len(t, all, 2)
	assert.Equal(t, manual.ID, all[0].ID, "newest first")

	w = ts.do(http.MethodGet, "/events?type=earthquake", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodGet, fmt.Sprintf("/events/%d", shake.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.TriggerTypeShake, decode[models.SosEvent](t, w).Type)

	w = ts.do(http.MethodGet, "/events/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(http.MethodPut, fmt.Sprintf("/events/%d/notes", shake.ID), NotesRequest{Notes: "False alarm"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[models.SosEvent](t, w)
	require.NotNil(t, updated.Notes)
	assert.Equal(t, "False alarm", *updated.Notes)

	doc, err := ts.store.Get(ctx, common.CollectionSosEvents, remoteID)
	require.NoError(t, err)
	assert.Equal(t, "False alarm", doc["notes"])

	w = ts.do(http.MethodPut, fmt.Sprintf("/events/%d/notes", shake.ID), map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLatestEvent_Empty(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(http.MethodGet, "/events/latest", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLocationEndpoints(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(http.MethodPost, "/location", map[string]any{"latitude": 91.0, "longitude": 0.0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodPost, "/location", map[string]any{"latitude": 35.6762, "longitude": 139.6503, "accuracy": 12, "speed": 1.5})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(http.MethodGet, "/location/current", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	current := decode[models.LocationSnapshot](t, w)
	assert.InDelta(t, 35.6762, current.Latitude, 1e-9)
	require.NotNil(t, current.Speed)
	assert.Equal(t, 1.5, *current.Speed)
	assert.Equal(t, testStart, current.Timestamp.UTC())

	w = ts.do(http.MethodPost, "/location/tracking/start", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	w = ts.do(http.MethodPost, "/location/tracking/start", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.True(t, ts.Location.IsTracking())

	w = ts.do(http.MethodPost, "/location/permission", PermissionRequest{Granted: false})
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, ts.Location.IsTracking())

	w = ts.do(http.MethodGet, "/location/current", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(http.MethodPost, "/location/tracking/stop", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLocationHistory(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()

	for i, tracking := range []bool{true, false, true} {
		snapshot := &models.LocationSnapshot{
			Latitude:   10 + float64(i),
			Longitude:  20,
			Timestamp:  testStart.Add(time.Duration(i) * time.Minute),
			IsTracking: tracking,
		}
		require.NoError(t, ts.Safety.History.Insert(ctx, snapshot))
	}

	w := ts.do(http.MethodGet, "/location/history", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	all := decode[[]models.LocationSnapshot](t, w)
	require.Len(t, all, 3)
	assert.InDelta(t, 10.0, all[0].Latitude, 1e-9, "oldest first")

	w = ts.do(http.MethodGet, "/location/history?recent=1", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	recent := decode[[]models.LocationSnapshot](t, w)
	require.Len(t, recent, 1)
	assert.InDelta(t, 12.0, recent[0].Latitude, 1e-9)
	assert.True(t, recent[0].IsTracking)
}

func TestPushRendersToWebsocket(t *testing.T) {
	ts := setupTestServer(t)
	srv := httptest.NewServer(ts.Server)
	defer srv.Close()

	conn := dialWS(t, srv, "/sos/stream")
	initial := readUntil(t, conn, KindSosState)
	var state sos.State
	require.NoError(t, json.Unmarshal(initial.Payload, &state))
	assert.Equal(t, sos.StatusIdle, state.Status)
	require.Eventually(t, func() bool { return ts.Hub.Len() == 1 }, time.Second, 5*time.Millisecond)

	w := ts.do(http.MethodPost, "/push", models.PushMessage{
		Type: models.PushTypeSosAlert,
		Data: map[string]string{"message": "Alex needs help"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rendered := decode[models.LocalNotification](t, w)
	assert.Equal(t, models.PriorityMax, rendered.Priority)
	assert.Equal(t, "Alex needs help", rendered.Body)

	f := readUntil(t, conn, KindNotification)
	var shown models.LocalNotification
	require.NoError(t, json.Unmarshal(f.Payload, &shown))
	assert.Equal(t, rendered, shown)

	w = ts.do(http.MethodPost, "/push", map[string]any{"type": "weather"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStreamCarriesStateChanges(t *testing.T) {
	ts := setupTestServer(t)
	srv := httptest.NewServer(ts.Server)
	defer srv.Close()

	conn := dialWS(t, srv, "/sos/stream")
	readUntil(t, conn, KindSosState)
	require.Eventually(t, func() bool { return ts.Hub.Len() == 1 }, time.Second, 5*time.Millisecond)

	w := ts.do(http.MethodPost, "/sos/trigger", map[string]any{"type": "route_deviation"})
	require.Equal(t, http.StatusAccepted, w.Code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var f frame
		require.NoError(t, conn.ReadJSON(&f))
		if f.Kind != KindSosState {
			continue
		}
		var s sos.State
		require.NoError(t, json.Unmarshal(f.Payload, &s))
		if s.Status == sos.StatusCountdown {
			assert.Equal(t, models.TriggerTypeRouteDeviation, s.TriggerType)
			break
		}
	}
}

func TestRemoteStream(t *testing.T) {
	ts := setupTestServer(t)
	srv := httptest.NewServer(ts.Server)
	defer srv.Close()

	conn := dialWS(t, srv, "/events/remote/stream")
	first := readUntil(t, conn, KindRemoteEvents)
	assert.JSONEq(t, `[]`, string(first.Payload))

	_, err := ts.Sink.Create(context.Background(), &models.SosEvent{
		Type:      models.TriggerTypeManual,
		Latitude:  40.7128,
		Longitude: -74.0060,
		Timestamp: testStart,
	})
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var f frame
		require.NoError(t, conn.ReadJSON(&f))
		var events []models.RemoteEvent
		require.NoError(t, json.Unmarshal(f.Payload, &events))
		if len(events) == 1 {
			assert.Equal(t, "user-1", events[0].UserID)
			assert.Equal(t, models.TriggerTypeManual, events[0].Type)
			return
		}
	}
}

func TestRetentionEndpoint(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()

	oldAt := testStart.AddDate(0, 0, -45)
	resolvedAt := oldAt.Add(time.Hour)
	old := &models.SosEvent{Type: models.TriggerTypeManual, Timestamp: oldAt, IsResolved: true, ResolvedAt: &resolvedAt}
	open := &models.SosEvent{Type: models.TriggerTypeManual, Timestamp: oldAt}
	recent := &models.SosEvent{Type: models.TriggerTypeShake, Timestamp: testStart.Add(-time.Hour)}
	for _, e := range []*models.SosEvent{old, open, recent} {
		require.NoError(t, ts.Safety.Event.Insert(ctx, e))
	}

	w := ts.do(http.MethodPost, "/maintenance/retention", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decode[safety.RetentionResult](t, w)
	assert.Equal(t, int64(1), result.EventsDeleted)
	assert.True(t, strings.HasPrefix(result.Cutoff.UTC().Format(time.RFC3339), "2026-09-17"))

	_, err := ts.Safety.Event.GetByID(ctx, old.ID)
	assert.ErrorIs(t, err, safety.ErrNotFound)
	_, err = ts.Safety.Event.GetByID(ctx, open.ID)
	assert.NoError(t, err)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{safety.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("wrap: %w", safety.ErrInvalidContact), http.StatusBadRequest},
		{sos.ErrBusy, http.StatusConflict},
		{sos.ErrInvalidTransition, http.StatusConflict},
		{location.ErrTrackingActive, http.StatusConflict},
		{location.ErrPermissionDenied, http.StatusForbidden},
		{location.ErrLocationUnavailable, http.StatusServiceUnavailable},
		{fmt.Errorf("%w: create: %w", remote.ErrRemote, remote.ErrNetwork), http.StatusBadGateway},
		{fmt.Errorf("%w: get user: %w", remote.ErrRemote, remote.ErrDocumentNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: share: %w", remote.ErrRemote, remote.ErrInvalidDocument), http.StatusBadRequest},
		{fmt.Errorf("%w: stop share: %w", remote.ErrRemote, remote.ErrAuth), http.StatusForbidden},
		{safety.ErrPersistence, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestCommunityAlerts(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(http.MethodPost, "/community/alerts", map[string]any{
		"alert_type":  "harassment",
		"title":       "Man following people",
		"description": "Near the subway entrance",
		"latitude":    40.7130,
		"longitude":   -74.0070,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[models.CommunityAlert](t, w)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "user-1", created.UserID)

	w = ts.do(http.MethodPost, "/community/alerts", map[string]any{
		"alert_type": "accident",
		"title":      "Crash on the bridge",
		"latitude":   40.7580,
		"longitude":  -73.9855,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = ts.do(http.MethodGet, "/community/alerts/nearby?lat=40.7128&lon=-74.0060", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	nearby := decode[[]models.CommunityAlert](t, w)
	require.Len(t, nearby, 1)
	assert.Equal(t, created.ID, nearby[0].ID)

	w = ts.do(http.MethodGet, "/community/alerts/nearby?lat=40.7128&lon=-74.0060&radius_km=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.CommunityAlert](t, w), 2)

	w = ts.do(http.MethodPost, "/community/alerts/"+created.ID+"/resolve", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = ts.do(http.MethodGet, "/community/alerts/nearby?lat=40.7128&lon=-74.0060", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = ts.do(http.MethodPost, "/community/alerts/missing/resolve", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = ts.do(http.MethodPost, "/community/alerts", map[string]any{"alert_type": "weather", "title": "x", "latitude": 1, "longitude": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = ts.do(http.MethodGet, "/community/alerts/nearby?lat=95&lon=0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLocationShares(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()

	friend := remote.NewLocationShareSink(ts.store, "friend-1", nil, ts.clock)
	_, err := friend.Share(ctx, &models.LocationShare{SharedWithUserID: "user-1", Latitude: 40.7306, Longitude: -73.9866})
	require.NoError(t, err)

	w := ts.do(http.MethodGet, "/shares", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	shares := decode[[]models.LocationShare](t, w)
	require.Len(t, shares, 1)
	assert.Equal(t, "friend-1", shares[0].UserID)

	w = ts.do(http.MethodPost, "/shares", map[string]any{
		"shared_with_user_id": "friend-1",
		"latitude":            40.7128,
		"longitude":           -74.0060,
		"trip_name":           "walk home",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	mine := decode[models.LocationShare](t, w)
	assert.True(t, mine.IsActive)

	sharedWithFriend, err := friend.Shared(ctx, "friend-1")
	require.NoError(t, err)
	require.Len(t, sharedWithFriend, 1)
	assert.Equal(t, "walk home", *sharedWithFriend[0].TripName)

	w = ts.do(http.MethodDelete, "/shares/"+shares[0].ID, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = ts.do(http.MethodDelete, "/shares/"+mine.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	sharedWithFriend, err = friend.Shared(ctx, "friend-1")
	require.NoError(t, err)
	assert.Empty(t, sharedWithFriend)

	w = ts.do(http.MethodPost, "/shares", map[string]any{"shared_with_user_id": "user-1", "latitude": 1, "longitude": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProfileAndInvitations(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(http.MethodGet, "/profile", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = ts.do(http.MethodPut, "/profile/fcm-token", TokenRequest{Token: "token-1"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(http.MethodPut, "/profile", map[string]any{
		"name":                   "Alex",
		"phone_number":           "+15551230009",
		"allow_community_alerts": true,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	profile := decode[models.UserProfile](t, w)
	assert.Equal(t, "user-1", profile.ID)
	assert.Equal(t, "Alex", profile.Name)
	assert.Equal(t, []string{}, profile.EmergencyContacts)

	w = ts.do(http.MethodPut, "/profile/fcm-token", TokenRequest{Token: "token-1"})
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = ts.do(http.MethodPut, "/profile", map[string]any{"name": "Alex K", "phone_number": "+15551230009"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	profile = decode[models.UserProfile](t, w)
	assert.Equal(t, "Alex K", profile.Name)
	require.NotNil(t, profile.FcmToken)
	assert.Equal(t, "token-1", *profile.FcmToken)
	assert.False(t, profile.AllowCommunityAlerts)

	w = ts.do(http.MethodPut, "/profile", map[string]any{"name": "Alex"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodPost, "/invitations", InvitationRequest{InviteePhone: "+15551230010"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	invitation := decode[models.Invitation](t, w)
	assert.Equal(t, "user-1", invitation.InvitedBy)
	assert.Equal(t, models.InvitationPending, invitation.Status)

	doc, err := ts.store.Get(context.Background(), common.CollectionInvitations, invitation.ID)
	require.NoError(t, err)
	assert.Equal(t, "+15551230010", doc["inviteePhone"])
}
