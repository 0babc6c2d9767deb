package events

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"transitkiosk/backend/services/transit-service/internal/metrics"
)

// Hub fans trip events out to websocket subscribers connected to this instance.
type Hub struct {
	mu           sync.RWMutex
	clients      map[string]*Connection
	pingInterval time.Duration
	writeTimeout time.Duration
	upgrader     websocket.Upgrader
	logger       *zap.Logger
	metrics      *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub builds a hub. Non-positive intervals fall back to 30s ping and 10s write timeout.
func NewHub(pingInterval, writeTimeout time.Duration, logger *zap.Logger, m *metrics.Metrics) *Hub {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:      make(map[string]*Connection),
		pingInterval: pingInterval,
		writeTimeout: writeTimeout,
		logger:       logger,
		metrics:      m,
		ctx:          ctx,
		cancel:       cancel,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// AllowOrigins restricts upgrades to requests whose Origin header is in origins. Requests
// without an Origin header are not browsers and are always accepted. No origins means any.
func (h *Hub) AllowOrigins(origins []string) {
	if len(origins) == 0 {
		return
	}
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[strings.TrimRight(strings.ToLower(o), "/")] = struct{}{}
	}
	h.upgrader.CheckOrigin = func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowed[strings.TrimRight(strings.ToLower(origin), "/")]
		return ok
	}
}

// Publish broadcasts ev to every matching subscriber.
func (h *Hub) Publish(_ context.Context, ev TripEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if c.filter.Matches(ev) {
			c.deliver(data)
		}
	}
	return nil
}

// Clients returns the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Run blocks until ctx is cancelled and then disconnects every subscriber.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.Close()
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.cancel()
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		_ = c.ws.Close()
	}
}

// HandleWS is the HTTP handler for GET /ws/trips. Optional card_id and station_id query
// parameters narrow the feed.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	filter, err := parseSubscription(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(h.ctx)
	client := newConnection(uuid.NewString(), conn, filter, h.writeTimeout, h.logger, func(id string) {
		h.remove(id)
		cancel()
	})
	h.add(client)

	go client.Start(ctx, h.pingInterval)
	h.logger.Info("feed client connected",
		zap.String("client_id", client.ID()),
		zap.Int64("card_id", filter.CardID),
		zap.Int64("station_id", filter.StationID))
}

func (h *Hub) add(c *Connection) {
	h.mu.Lock()
	h.clients[c.ID()] = c
	h.mu.Unlock()
	h.metrics.FeedClientsChanged(1)
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	c, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
		close(c.send)
	}
	h.mu.Unlock()
	if ok {
		h.metrics.FeedClientsChanged(-1)
	}
}

func parseSubscription(r *http.Request) (Subscription, error) {
	var s Subscription
	q := r.URL.Query()
	if raw := q.Get("card_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return s, errBadFilter("card_id")
		}
		s.CardID = id
	}
	if raw := q.Get("station_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return s, errBadFilter("station_id")
		}
		s.StationID = id
	}
	return s, nil
}

type errBadFilter string

func (e errBadFilter) Error() string {
	return string(e) + " must be an integer"
}
