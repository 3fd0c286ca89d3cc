package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"liyu1981.xyz/sos-safety-service/pkg/models"
)

const (
	KindSosState     = "sos_state"
	KindNotification = "notification"
	KindLocation     = "location"
	KindRemoteEvents = "remote_events"

	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = (pongWait * 9) / 10
	sendBufSize = 32
)

// Envelope is the frame written to websocket clients.
type Envelope struct {
	Kind    string `json:"kind"`
	Payload any    `json:"payload"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the UI shell connects from a local webview
	CheckOrigin: func(r *http.Request) bool { return true },
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans frames out to the connected UI shells. It is also the Renderer
// for inbound push notifications.
type Hub struct {
	mu      sync.Mutex
	clients map[*hubClient]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: map[*hubClient]struct{}{}}
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast queues one frame for every client. A client whose buffer is
// full is disconnected.
func (h *Hub) Broadcast(kind string, payload any) {
	frame, err := json.Marshal(Envelope{Kind: kind, Payload: payload})
	if err != nil {
		logger().Error("Failed to encode websocket frame", zap.String("kind", kind), zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.clients {
		select {
		case cl.send <- frame:
		default:
			logger().Warn("Websocket client is behind, disconnecting")
			h.removeLocked(cl)
		}
	}
}

func (h *Hub) Render(ctx context.Context, n models.LocalNotification) error {
	h.Broadcast(KindNotification, n)
	return nil
}

func (h *Hub) removeLocked(cl *hubClient) {
	if _, ok := h.clients[cl]; ok {
		delete(h.clients, cl)
		close(cl.send)
	}
}

func (h *Hub) remove(cl *hubClient) {
	h.mu.Lock()
	h.removeLocked(cl)
	h.mu.Unlock()
}

// Serve upgrades the request and registers the connection. initial frames
// are sent before any broadcast.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, initial ...Envelope) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	cl := &hubClient{conn: conn, send: make(chan []byte, sendBufSize)}
	h.mu.Lock()
	for _, env := range initial {
		if frame, err := json.Marshal(env); err == nil {
			cl.send <- frame
		}
	}
	h.clients[cl] = struct{}{}
	h.mu.Unlock()

	go cl.writePump()
	go h.readPump(cl)
	return nil
}

// readPump only watches for the peer going away.
func (h *Hub) readPump(cl *hubClient) {
	defer func() {
		h.remove(cl)
		_ = cl.conn.Close()
	}()
	cl.conn.SetReadLimit(512)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger().Debug("Websocket read failed", zap.Error(err))
			}
			return
		}
	}
}

func (cl *hubClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = cl.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
