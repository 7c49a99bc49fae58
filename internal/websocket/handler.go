package websocket

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	gorilla "github.com/gorilla/websocket"

	"sheetlens/internal/config"
	apierrors "sheetlens/internal/errors"
)

// Handler upgrades /ws/analyze requests into analysis sessions
type Handler struct {
	hub            *Hub
	analyzer       Analyzer
	validator      StructValidator
	problems       *apierrors.ErrorHandler
	cfg            config.WebSocketConfig
	allowedOrigins []string
	readLimit      int64
	upgrader       gorilla.Upgrader
	logger         *slog.Logger
}

// NewHandler creates the upgrade handler. readLimit bounds a single frame
// and so the size of an uploaded workbook.
func NewHandler(hub *Hub, analyzer Analyzer, validator StructValidator, problems *apierrors.ErrorHandler, cfg config.WebSocketConfig, allowedOrigins []string, readLimit int64, logger *slog.Logger) *Handler {
	h := &Handler{
		hub:            hub,
		analyzer:       analyzer,
		validator:      validator,
		problems:       problems,
		cfg:            cfg,
		allowedOrigins: allowedOrigins,
		readLimit:      readLimit,
		logger:         logger.With(slog.String("handler", "websocket")),
	}
	h.upgrader = gorilla.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin:     h.checkOrigin,
		Error:           h.upgradeError,
	}
	return h
}

// ServeHTTP handles GET /ws/analyze
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already answered through upgradeError
		return
	}

	s := newSession(h, conn, r)
	if !h.hub.Register(s) {
		s.close(gorilla.CloseTryAgainLater, "server shutting down")
		s.cancel()
		return
	}
	h.logger.InfoContext(s.ctx, "WebSocket session opened",
		slog.String("session_id", s.id),
		slog.String("remote_addr", r.RemoteAddr))

	go s.WritePump()
	go s.ReadPump()
}

// checkOrigin allows same-origin requests, requests without an Origin header
// and the configured origins.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
		return true
	}
	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	h.logger.WarnContext(r.Context(), "WebSocket origin not allowed",
		slog.String("origin", origin),
		slog.Any("allowed_origins", h.allowedOrigins))
	return false
}

func (h *Handler) upgradeError(w http.ResponseWriter, r *http.Request, status int, reason error) {
	h.logger.WarnContext(r.Context(), "WebSocket upgrade failed",
		slog.Int("status", status),
		slog.String("reason", reason.Error()),
		slog.String("origin", r.Header.Get("Origin")))

	h.problems.HandleError(w, r, apierrors.WebSocketUpgradeFailed(status, reason))
}
