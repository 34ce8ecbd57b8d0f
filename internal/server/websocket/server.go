package websocket

import (
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/brianly1003/sftplister/internal/domain/events"
	"github.com/brianly1003/sftplister/internal/domain/ports"
	"github.com/brianly1003/sftplister/internal/hub"
	"github.com/brianly1003/sftplister/internal/metrics"
	"github.com/brianly1003/sftplister/internal/sync"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 15 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 90 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4 * 1024

	// Send buffer size per client.
	sendBufferSize = 1024

	// DefaultHeartbeatInterval is the application-level heartbeat period.
	DefaultHeartbeatInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are checked by the HTTP server before the upgrade.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler upgrades requests to WebSocket and subscribes each client to the
// event hub. An optional "types" query parameter (comma separated) limits
// the event types a client receives.
type Handler struct {
	hub ports.EventHub

	mu      sync.RWMutex
	clients map[string]*Client

	heartbeatInterval time.Duration
	heartbeatDone     chan struct{}
	heartbeatSeq      int64
	startTime         time.Time
	closeOnce         sync.Once
}

// NewHandler creates a WebSocket handler publishing hub events.
func NewHandler(h ports.EventHub) *Handler {
	return &Handler{
		hub:               h,
		clients:           make(map[string]*Client),
		heartbeatInterval: DefaultHeartbeatInterval,
		heartbeatDone:     make(chan struct{}),
		startTime:         time.Now(),
	}
}

// SetHeartbeatInterval overrides the heartbeat period. Call before Start.
func (h *Handler) SetHeartbeatInterval(d time.Duration) {
	h.heartbeatInterval = d
}

// Start begins the heartbeat broadcaster.
func (h *Handler) Start() {
	go h.heartbeatLoop()
}

// Close stops the heartbeat and disconnects every client.
func (h *Handler) Close() {
	h.closeOnce.Do(func() {
		close(h.heartbeatDone)

		h.mu.Lock()
		for _, client := range h.clients {
			client.Close()
		}
		h.clients = make(map[string]*Client)
		h.mu.Unlock()
		metrics.SetWSClients(0)
	})
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	types := parseTypes(r.URL.Query().Get("types"))

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade connection")
		return
	}

	client := NewClient(conn, func(id string) {
		if h.hub != nil {
			h.hub.Unsubscribe(id)
		}
		h.removeClient(id)
	})

	h.mu.Lock()
	h.clients[client.ID()] = client
	count := len(h.clients)
	h.mu.Unlock()
	metrics.SetWSClients(count)

	if h.hub != nil {
		h.hub.Subscribe(hub.NewFilteredSubscriber(NewClientSubscriber(client), types...))
	}

	log.Info().
		Str("client_id", client.ID()).
		Str("remote_addr", conn.RemoteAddr().String()).
		Int("types", len(types)).
		Msg("stream client connected")

	client.Start()
}

func parseTypes(raw string) []events.EventType {
	var types []events.EventType
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			types = append(types, events.EventType(t))
		}
	}
	return types
}

func (h *Handler) removeClient(id string) {
	h.mu.Lock()
	delete(h.clients, id)
	count := len(h.clients)
	h.mu.Unlock()

	metrics.SetWSClients(count)
	log.Info().Str("client_id", id).Msg("stream client disconnected")
}

// ClientCount returns the number of connected clients.
func (h *Handler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Handler) heartbeatLoop() {
	ticker := time.NewTicker(h.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.heartbeatDone:
			return
		case <-ticker.C:
			h.broadcastHeartbeat()
		}
	}
}

// broadcastHeartbeat sends a heartbeat event to every connected client,
// bypassing type filters.
func (h *Handler) broadcastHeartbeat() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.clients) == 0 {
		return
	}

	seq := atomic.AddInt64(&h.heartbeatSeq, 1)
	heartbeat := events.NewHeartbeatEvent(seq, int64(time.Since(h.startTime).Seconds()))

	data, err := heartbeat.ToJSON()
	if err != nil {
		log.Warn().Err(err).Msg("failed to serialize heartbeat")
		return
	}

	for _, client := range h.clients {
		_ = client.Send(data)
	}
	log.Trace().Int64("seq", seq).Int("clients", len(h.clients)).Msg("heartbeat sent")
}
