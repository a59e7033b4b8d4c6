package store

import (
	"context"
	"errors"
	"time"
)

// ErrStorage marks persistence failures. Unlike every other failure in
// a turn, these are fatal: callers retry the whole turn or surface the
// error, never fabricate a message.
var ErrStorage = errors.New("storage failure")

type Session struct {
	Id        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is one turn half. Append-only; ordering within a session is
// by timestamp and is the only order ever shown to a model.
type Message struct {
	Id        int64     `json:"id"`
	SessionId string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	ParentId  *int64    `json:"parent_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// QueryContext snapshots how much history was visible when a structured
// query was parsed.
type QueryContext struct {
	HistoryLength  int `json:"history_length"`
	WindowedLength int `json:"windowed_length"`
}

type Store interface {
	GetOrCreateSession(ctx context.Context, sessionId string) (string, error)
	ListSessions(ctx context.Context) ([]Session, error)
	DeleteSession(ctx context.Context, sessionId string) error
	GetHistory(ctx context.Context, sessionId string) ([]Message, error)
	AppendMessage(ctx context.Context, sessionId string, role string, content string, parentId *int64) (int64, error)
	CreateStructuredQuery(ctx context.Context, sessionId string, messageId int64, kind string, params map[string]string, queryCtx QueryContext) (int64, error)
	AppendExecutionLog(ctx context.Context, queryId int64, rawQuery string, duration time.Duration, resultCount int) error
	Close() error
}
