package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	gorilla "github.com/gorilla/websocket"

	"sheetlens/internal/config"
	apierrors "sheetlens/internal/errors"
	"sheetlens/internal/infrastructure"
	"sheetlens/internal/services"
	"sheetlens/pkg/contracts/domain"
)

// sendBuffer is the number of outbound frames queued per session
const sendBuffer = 16

// Analyzer runs analyses for a session
type Analyzer interface {
	Analyze(ctx context.Context, req services.AnalysisRequest) (*domain.Report, error)
	SheetNames(ctx context.Context, workbook []byte) ([]string, error)
}

// StructValidator validates tagged structs
type StructValidator interface {
	ValidateStruct(v interface{}) error
}

// Session is one browser connection. The browser uploads a workbook as a
// binary frame, then sends analyze messages to explore it; each one is
// answered with a report or an error frame.
type Session struct {
	hub       *Hub
	conn      *gorilla.Conn
	send      chan []byte
	analyzer  Analyzer
	validator StructValidator
	problems  *apierrors.ErrorHandler
	request   *http.Request
	cfg       config.WebSocketConfig
	readLimit int64

	id          string
	traceID     string
	connectedAt time.Time
	ctx         context.Context
	cancel      context.CancelFunc
	closeOnce   sync.Once

	// workbook is touched only by ReadPump
	workbook []byte

	logger *slog.Logger
}

func newSession(h *Handler, conn *gorilla.Conn, r *http.Request) *Session {
	id := uuid.New().String()
	traced, traceID := infrastructure.EnsureTraceID(context.WithoutCancel(r.Context()), id)
	ctx, cancel := context.WithCancel(traced)

	return &Session{
		hub:         h.hub,
		conn:        conn,
		send:        make(chan []byte, sendBuffer),
		analyzer:    h.analyzer,
		validator:   h.validator,
		problems:    h.problems,
		request:     r,
		cfg:         h.cfg,
		readLimit:   h.readLimit,
		id:          id,
		traceID:     traceID,
		connectedAt: time.Now(),
		ctx:         ctx,
		cancel:      cancel,
		logger: infrastructure.WithComponent(h.logger, "websocket.session").
			With(slog.String("session_id", id)),
	}
}

// ID returns the session identifier sent in the connection message
func (s *Session) ID() string { return s.id }

// ReadPump reads frames until the connection fails. It is the only producer
// on the send channel and closes it on exit.
func (s *Session) ReadPump() {
	defer func() {
		s.cancel()
		close(s.send)
		s.hub.Unregister(s)
		s.logger.InfoContext(s.ctx, "Session closed",
			slog.Duration("session_duration", time.Since(s.connectedAt)))
	}()

	s.conn.SetReadLimit(s.readLimit)
	_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	})

	s.reply(ServerMessage{Type: TypeConnection, SessionID: s.id, TraceID: s.traceID})

	for {
		kind, data, err := s.conn.ReadMessage()
		if err != nil {
			if gorilla.IsUnexpectedCloseError(err, gorilla.CloseGoingAway, gorilla.CloseNormalClosure, gorilla.CloseNoStatusReceived) {
				s.logger.WarnContext(s.ctx, "Unexpected WebSocket close",
					slog.String("error", err.Error()))
			}
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))

		switch kind {
		case gorilla.BinaryMessage:
			s.handleWorkbook(data)
		case gorilla.TextMessage:
			s.handleText(data)
		}
	}
}

func (s *Session) handleWorkbook(data []byte) {
	sheets, err := s.analyzer.SheetNames(s.ctx, data)
	if err != nil {
		s.replyError(err, nil)
		return
	}
	s.workbook = data
	s.logger.DebugContext(s.ctx, "Workbook received",
		slog.Int("bytes", len(data)),
		slog.Int("sheets", len(sheets)))
	s.reply(ServerMessage{Type: TypeWorkbook, Size: len(data), Sheets: sheets})
}

func (s *Session) handleText(data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.replyError(apierrors.InvalidRequestWithError(err), nil)
		return
	}
	if err := s.validator.ValidateStruct(msg); err != nil {
		s.replyError(err, nil)
		return
	}

	switch msg.Type {
	case TypeHeartbeat:
		s.logger.DebugContext(s.ctx, "Heartbeat received")
	case TypeAnalyze:
		s.analyze(msg)
	}
}

func (s *Session) analyze(msg ClientMessage) {
	if len(s.workbook) == 0 {
		s.replyError(apierrors.ErrMissingFile, nil)
		return
	}

	req := services.AnalysisRequest{
		Workbook:    s.workbook,
		Sheet:       msg.Sheet,
		DateColumn:  msg.DateColumn,
		Series:      msg.Series,
		PreviewRows: msg.PreviewRows,
	}
	var err error
	if req.Start, err = parseDate(msg.Start); err != nil {
		s.replyError(err, nil)
		return
	}
	if req.End, err = parseDate(msg.End); err != nil {
		s.replyError(err, nil)
		return
	}

	report, err := s.analyzer.Analyze(s.ctx, req)
	if err != nil {
		s.replyError(err, report)
		return
	}
	s.reply(ServerMessage{Type: TypeReport, Report: report})
}

func (s *Session) replyError(err error, report *domain.Report) {
	problem := s.problems.ErrorToProblem(err, s.request)
	s.logger.WarnContext(s.ctx, "Session request failed",
		slog.Int("status", problem.Status),
		slog.String("error", err.Error()))
	s.reply(ServerMessage{Type: TypeError, Error: problem, Report: report})
}

// reply queues msg. A session that cannot keep up loses the frame rather
// than blocking its reader.
func (s *Session) reply(msg ServerMessage) {
	msg.Timestamp = time.Now().UTC()
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.ErrorContext(s.ctx, "Failed to encode message",
			slog.String("type", msg.Type),
			slog.String("error", err.Error()))
		return
	}
	select {
	case s.send <- data:
	default:
		s.logger.WarnContext(s.ctx, "Session send buffer full, dropping message",
			slog.String("type", msg.Type))
	}
}

// WritePump writes queued frames and keeps the connection alive with pings.
func (s *Session) WritePump() {
	ticker := time.NewTicker(s.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case message, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
			if !ok {
				_ = s.conn.WriteMessage(gorilla.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(gorilla.TextMessage, message); err != nil {
				s.logger.WarnContext(s.ctx, "Error writing message to WebSocket",
					slog.String("error", err.Error()))
				return
			}

		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
			if err := s.conn.WriteMessage(gorilla.PingMessage, nil); err != nil {
				s.logger.DebugContext(s.ctx, "Failed to send ping",
					slog.String("error", err.Error()))
				return
			}
		}
	}
}

// close sends a close frame and drops the connection, which ends both pumps.
func (s *Session) close(code int, text string) {
	s.closeOnce.Do(func() {
		deadline := time.Now().Add(s.cfg.WriteWait)
		_ = s.conn.WriteControl(gorilla.CloseMessage, gorilla.FormatCloseMessage(code, text), deadline)
		_ = s.conn.Close()
	})
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		return nil, apierrors.InvalidRequestWithError(fmt.Errorf("invalid date %q: %w", s, err))
	}
	return &t, nil
}
