package websocket

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	gorilla "github.com/gorilla/websocket"

	"sheetlens/internal/infrastructure"
	"sheetlens/internal/services"
)

// Hub keeps the set of open analysis sessions. Sessions never talk to each
// other; the hub exists for accounting and for closing everything on
// shutdown.
type Hub struct {
	sessions   map[*Session]struct{}
	register   chan *Session
	unregister chan *Session

	mu      sync.RWMutex
	metrics *infrastructure.Metrics
	logger  *slog.Logger

	totalSessions int64

	quit    chan struct{}
	done    chan struct{}
	running bool
	once    sync.Once
}

// NewHub creates a new Hub. metrics may be nil.
func NewHub(metrics *infrastructure.Metrics, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		sessions:   make(map[*Session]struct{}),
		register:   make(chan *Session),
		unregister: make(chan *Session),
		metrics:    metrics,
		logger:     infrastructure.WithComponent(logger, "websocket.hub"),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start runs the hub loop in its own goroutine. Calling it twice is a no-op.
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.run()
}

// Stop closes every open session and ends the hub loop.
func (h *Hub) Stop() {
	h.once.Do(func() { close(h.quit) })

	h.mu.RLock()
	running := h.running
	h.mu.RUnlock()
	if running {
		<-h.done
	}
}

func (h *Hub) run() {
	defer close(h.done)
	for {
		select {
		case <-h.quit:
			h.closeAll()
			h.logger.Info("Hub shutting down")
			return

		case s := <-h.register:
			h.mu.Lock()
			h.sessions[s] = struct{}{}
			h.totalSessions++
			count := len(h.sessions)
			h.mu.Unlock()

			h.addActive(s.ctx, 1)
			h.logger.InfoContext(s.ctx, "Session registered",
				slog.String("session_id", s.id),
				slog.Int("active_sessions", count))

		case s := <-h.unregister:
			h.mu.Lock()
			_, ok := h.sessions[s]
			delete(h.sessions, s)
			count := len(h.sessions)
			h.mu.Unlock()
			if !ok {
				continue
			}

			h.addActive(s.ctx, -1)
			h.logger.InfoContext(s.ctx, "Session unregistered",
				slog.String("session_id", s.id),
				slog.Int("active_sessions", count),
				slog.Duration("session_duration", time.Since(s.connectedAt)))
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	sessions := make([]*Session, 0, len(h.sessions))
	for s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.sessions = make(map[*Session]struct{})
	h.mu.Unlock()

	for _, s := range sessions {
		h.addActive(s.ctx, -1)
		s.close(gorilla.CloseGoingAway, "server shutting down")
	}
}

func (h *Hub) addActive(ctx context.Context, delta int64) {
	if h.metrics != nil {
		h.metrics.WebSocketSessions.Add(ctx, delta)
	}
}

// Register adds s to the hub. It reports false once the hub has stopped.
func (h *Hub) Register(s *Session) bool {
	select {
	case h.register <- s:
		return true
	case <-h.quit:
		return false
	}
}

// Unregister removes s from the hub
func (h *Hub) Unregister(s *Session) {
	select {
	case h.unregister <- s:
	case <-h.quit:
	}
}

// SessionCount returns the number of open sessions
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Health reports the hub state for readiness checks.
func (h *Hub) Health(ctx context.Context) services.ServiceHealth {
	select {
	case <-h.quit:
		return services.ServiceHealth{Status: "stopped", Message: "websocket hub stopped"}
	default:
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.running {
		return services.ServiceHealth{Status: "not_ready", Message: "websocket hub not started"}
	}
	return services.Ready(fmt.Sprintf("%d active sessions, %d total", len(h.sessions), h.totalSessions))
}
