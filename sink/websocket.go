package sink

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nvr-ai/go-motion/pipeline"
)

const (
	// EventWelcome is sent once to every new client.
	EventWelcome = "welcome"
	// EventMotion carries the regions of one frame.
	EventMotion = "motion"

	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = (pongWait * 9) / 10
	sendBacklog = 64
)

// Box is a region as sent over the wire.
type Box struct {
	X    int `json:"x"`
	Y    int `json:"y"`
	W    int `json:"w"`
	H    int `json:"h"`
	Area int `json:"area"`
}

// Event is the JSON message broadcast to websocket clients.
type Event struct {
	Type      string `json:"type"`
	ClientID  string `json:"client_id,omitempty"`
	Seq       int64  `json:"seq"`
	Timestamp int64  `json:"timestamp"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	Bootstrap bool   `json:"bootstrap,omitempty"`
	Regions   []Box  `json:"regions,omitempty"`

	// EventID and DurationMS describe motion_start and motion_end events.
	EventID    int   `json:"event_id,omitempty"`
	DurationMS int64 `json:"duration_ms,omitempty"`
}

type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan Event
}

// WebSocket is an http.Handler that upgrades connections and a pipeline.Sink
// that broadcasts motion events to them. Clients that fall behind lose events
// instead of blocking the pipeline.
type WebSocket struct {
	upgrader   websocket.Upgrader
	logger     *slog.Logger
	onlyMotion bool

	mu      sync.RWMutex
	clients map[string]*wsClient
	dropped uint64
}

// NewWebSocket returns a hub with no clients. When onlyMotion is set, frames
// without regions are not broadcast.
func NewWebSocket(logger *slog.Logger, onlyMotion bool) *WebSocket {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocket{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger:     logger,
		onlyMotion: onlyMotion,
		clients:    make(map[string]*wsClient),
	}
}

// ServeHTTP upgrades the request and registers the client. The optional
// clientId query parameter names the client; a uuid is used otherwise.
func (h *WebSocket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket: upgrade failed", "error", err)
		return
	}

	id := r.URL.Query().Get("clientId")
	if id == "" {
		id = uuid.New().String()
	}
	c := &wsClient{id: id, conn: conn, send: make(chan Event, sendBacklog)}
	c.send <- Event{Type: EventWelcome, ClientID: id, Timestamp: time.Now().UnixMilli()}

	h.mu.Lock()
	if old, ok := h.clients[id]; ok {
		close(old.send)
	}
	h.clients[id] = c
	h.mu.Unlock()
	h.logger.Info("websocket: client connected", "client", id)

	go h.writePump(c)
	go h.readPump(c)
}

// readPump discards client messages and unregisters the client when the
// connection ends.
func (h *WebSocket) readPump(c *wsClient) {
	defer h.unregister(c)

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket: read failed", "client", c.id, "error", err)
			}
			return
		}
	}
}

func (h *WebSocket) writePump(c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *WebSocket) unregister(c *wsClient) {
	h.mu.Lock()
	if cur, ok := h.clients[c.id]; ok && cur == c {
		delete(h.clients, c.id)
		close(c.send)
	}
	h.mu.Unlock()
	h.logger.Info("websocket: client disconnected", "client", c.id)
}

// Clients returns the number of connected clients.
func (h *WebSocket) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns how many events were discarded for slow clients.
func (h *WebSocket) Dropped() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

// Put broadcasts res to every client. It never fails.
func (h *WebSocket) Put(res pipeline.Result) error {
	if res.Frame == nil || (h.onlyMotion && len(res.Regions) == 0) {
		return nil
	}
	h.Broadcast(NewEvent(res))
	return nil
}

// Broadcast queues ev for every client, dropping it for clients whose backlog
// is full.
func (h *WebSocket) Broadcast(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients {
		select {
		case c.send <- ev:
		default:
			h.dropped++
		}
	}
}

// Close disconnects every client.
func (h *WebSocket) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		close(c.send)
		delete(h.clients, id)
	}
}

// NewMotionEvent converts a debounced motion event into its wire form.
func NewMotionEvent(ev MotionEvent) Event {
	return Event{
		Type:       string(ev.Kind),
		Seq:        ev.Seq,
		Timestamp:  ev.Last.UnixMilli(),
		EventID:    ev.ID,
		DurationMS: ev.Duration().Milliseconds(),
	}
}

// NewEvent converts a pipeline result into its wire form.
func NewEvent(res pipeline.Result) Event {
	ev := Event{
		Type:      EventMotion,
		Seq:       res.Frame.Seq(),
		Timestamp: res.Frame.Timestamp().UnixMilli(),
		Width:     res.Frame.Width(),
		Height:    res.Frame.Height(),
		Bootstrap: res.Bootstrap,
		Regions:   make([]Box, len(res.Regions)),
	}
	for i, r := range res.Regions {
		x, y, w, h := r.XYWH()
		ev.Regions[i] = Box{X: x, Y: y, W: w, H: h, Area: r.Area}
	}
	return ev
}
