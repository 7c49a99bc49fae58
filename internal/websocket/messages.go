package websocket

import (
	"time"

	apierrors "sheetlens/internal/errors"
	"sheetlens/pkg/contracts/domain"
)

// Message types exchanged with the browser
const (
	TypeConnection = "connection"
	TypeHeartbeat  = "heartbeat"
	TypeAnalyze    = "analyze"
	TypeWorkbook   = "workbook"
	TypeReport     = "report"
	TypeError      = "error"
)

// ClientMessage is a text frame sent by the browser. The workbook itself
// travels as a binary frame before the first analyze message.
type ClientMessage struct {
	Type        string `json:"type" validate:"required,oneof=analyze heartbeat"`
	Sheet       string `json:"sheet" validate:"max=31"`
	DateColumn  string `json:"date_column" validate:"max=255"`
	Start       string `json:"start" validate:"omitempty,isodate"`
	End         string `json:"end" validate:"omitempty,isodate"`
	Series      string `json:"series" validate:"max=255"`
	PreviewRows int    `json:"preview_rows" validate:"gte=-1,lte=100000"`
}

// ServerMessage is a text frame sent to the browser
type ServerMessage struct {
	Type      string                    `json:"type"`
	SessionID string                    `json:"session_id,omitempty"`
	TraceID   string                    `json:"trace_id,omitempty"`
	Size      int                       `json:"size,omitempty"`
	Sheets    []string                  `json:"sheets,omitempty"`
	Report    *domain.Report            `json:"report,omitempty"`
	Error     *apierrors.ProblemDetails `json:"error,omitempty"`
	Timestamp time.Time                 `json:"timestamp"`
}
