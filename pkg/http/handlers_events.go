package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"liyu1981.xyz/sos-safety-service/pkg/models"

	z "github.com/Oudwins/zog"
	"github.com/Oudwins/zog/zhttp"
)

var eventQuerySchema = z.Struct(z.Shape{
	"From": z.Time(),
	"To":   z.Time(),
	"Type": z.String().OneOf([]string{
		string(models.TriggerTypeManual),
		string(models.TriggerTypeShake),
		string(models.TriggerTypePanicButton),
		string(models.TriggerTypeRouteDeviation),
	}),
})

type NotesRequest struct {
	Notes string `json:"notes" zog:"notes"`
}

var notesRequestSchema = z.Struct(z.Shape{
	"Notes": z.String().Required(),
})

// GetEvents lists events newest first, by trigger type when type is
// given, otherwise within [from, to].
func (rs *RestfulServer) GetEvents(c *gin.Context) {
	var q RangeQuery
	if err := eventQuerySchema.Parse(zhttp.Request(c.Request), &q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	ctx := c.Request.Context()
	var events []models.SosEvent
	var err error
	if q.Type != "" {
		events, err = rs.Safety.Event.GetByType(ctx, models.TriggerType(q.Type))
	} else {
		from, to := q.bounds()
		events, err = rs.Safety.Event.GetByDateRange(ctx, from, to)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	if events == nil {
		events = []models.SosEvent{}
	}
	c.JSON(http.StatusOK, events)
}

func (rs *RestfulServer) GetLatestEvent(c *gin.Context) {
	event, err := rs.Safety.Event.GetLatest(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

func (rs *RestfulServer) GetEvent(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	event, err := rs.Safety.Event.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

// PutEventNotes edits the notes of any event, resolved or not, and
// mirrors the edit to the remote document when there is one.
func (rs *RestfulServer) PutEventNotes(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req NotesRequest
	if err := notesRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	ctx := c.Request.Context()
	event, err := rs.Safety.Event.UpdateNotes(ctx, id, req.Notes)
	if err != nil {
		writeError(c, err)
		return
	}
	if event.RemoteID != nil && rs.Sink != nil {
		if err := rs.Sink.UpdateNotes(ctx, *event.RemoteID, event.Notes); err != nil {
			logger().Warn("Failed to mirror event notes", zap.String("remote_id", *event.RemoteID), zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, event)
}

// GetRemoteStream upgrades to a websocket that receives the user's remote
// events on every change until the peer goes away.
func (rs *RestfulServer) GetRemoteStream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger().Warn("Websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.WithoutCancel(c.Request.Context()))
	defer cancel()

	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	snapshots, err := rs.Sink.Observe(ctx, rs.UserID)
	if err != nil {
		logger().Error("Failed to observe remote events", zap.Error(err))
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, err.Error()))
		return
	}

	for events := range snapshots {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(Envelope{Kind: KindRemoteEvents, Payload: events}); err != nil {
			return
		}
	}
}
