package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/w-h-a/salesbot/composer"
	"github.com/w-h-a/salesbot/formatter"
	"github.com/w-h-a/salesbot/query"
	"github.com/w-h-a/salesbot/records"
	"github.com/w-h-a/salesbot/store"
	"github.com/w-h-a/salesbot/util/window"
)

type Parser interface {
	Parse(ctx context.Context, input string, history []store.Message) *query.Query
}

type Retriever interface {
	Retrieve(ctx context.Context, q *query.Query) ([]records.Record, error)
}

type Composer interface {
	Compose(ctx context.Context, summary string, question string, history []store.Message) (string, error)
}

type Conversationalist interface {
	Reply(ctx context.Context, history []store.Message, input string) (string, error)
}

type Service struct {
	store     store.Store
	parser    Parser
	retriever Retriever
	composer  Composer
	fallback  Conversationalist
	window    int
	mtx       sync.Mutex
	sessions  map[string]*sync.Mutex
}

// Respond runs one conversational turn: parse intent, retrieve records,
// answer with a deterministic summary plus a narrative, or fall back to
// open conversation. Persistence failures are the only errors that
// escape; model and retrieval failures degrade into a usable reply.
func (s *Service) Respond(ctx context.Context, sessionId string, input string) (string, error) {
	if len(strings.TrimSpace(input)) == 0 {
		return "", errors.New("user input is required")
	}

	unlock := s.lockSession(sessionId)
	defer unlock()

	// 1. Load the history the models will see.
	history, err := s.store.GetHistory(ctx, sessionId)
	if err != nil {
		return "", err
	}

	windowed := window.Last(history, s.window)

	// 2. Parse against the windowed history. A nil query means no
	// structured intent; the turn goes to open conversation.
	q := s.parser.Parse(ctx, input, windowed)

	// 3. Persist the user message before any execution so every
	// downstream row can reference it.
	userMsgId, err := s.store.AppendMessage(ctx, sessionId, "user", input, nil)
	if err != nil {
		return "", err
	}

	var reply string

	if q != nil && q.Kind.Structured() {
		reply, err = s.respondStructured(ctx, sessionId, userMsgId, q, input, windowed, len(history))
		if err != nil {
			return "", err
		}
	} else {
		reply = s.respondOpen(ctx, sessionId, windowed, input)
	}

	// 4. Persist the assistant half, linked to the triggering message.
	if _, err := s.store.AppendMessage(ctx, sessionId, "assistant", reply, &userMsgId); err != nil {
		return "", err
	}

	slog.InfoContext(
		ctx, "turn complete",
		"session", sessionId,
		"structured", q != nil && q.Kind.Structured(),
	)

	return reply, nil
}

func (s *Service) respondStructured(
	ctx context.Context,
	sessionId string,
	userMsgId int64,
	q *query.Query,
	input string,
	windowed []store.Message,
	historyLen int,
) (string, error) {
	queryId, err := s.store.CreateStructuredQuery(
		ctx,
		sessionId,
		userMsgId,
		q.Kind.String(),
		q.Params(),
		store.QueryContext{
			HistoryLength:  historyLen,
			WindowedLength: len(windowed),
		},
	)
	if err != nil {
		return "", err
	}

	started := time.Now()

	recs, err := s.retriever.Retrieve(ctx, q)
	if err != nil {
		// Retrieval trouble is not a turn failure: treat it as an
		// empty result and let the fallback carry the conversation.
		slog.WarnContext(ctx, "retrieval failed", "session", sessionId, "error", err)
		recs = nil
	}

	// The execution log is written regardless of outcome.
	if err := s.store.AppendExecutionLog(ctx, queryId, rawRepr(q), time.Since(started), len(recs)); err != nil {
		return "", err
	}

	if len(recs) == 0 {
		return s.respondOpen(ctx, sessionId, windowed, input), nil
	}

	summary := formatter.Summarize(recs, q.Field, q.Entity)

	narrative, err := s.composer.Compose(ctx, summary, input, windowed)
	if err != nil {
		// The numbers still stand on their own.
		slog.WarnContext(ctx, "narrative failed", "session", sessionId, "error", err)
		narrative = ""
	}

	return composer.Combine(summary, narrative), nil
}

func (s *Service) respondOpen(ctx context.Context, sessionId string, windowed []store.Message, input string) string {
	reply, err := s.fallback.Reply(ctx, windowed, input)
	if err != nil {
		// Reply already degraded to an apology; record why.
		slog.WarnContext(ctx, "fallback failed", "session", sessionId, "error", err)
	}
	return reply
}

func (s *Service) lockSession(sessionId string) func() {
	s.mtx.Lock()
	mtx, ok := s.sessions[sessionId]
	if !ok {
		mtx = &sync.Mutex{}
		s.sessions[sessionId] = mtx
	}
	s.mtx.Unlock()

	mtx.Lock()
	return mtx.Unlock
}

func rawRepr(q *query.Query) string {
	return fmt.Sprintf("%s entity=%q field=%s", q.Kind, q.Entity, q.Field.OrDefault())
}

func New(
	st store.Store,
	parser Parser,
	retriever Retriever,
	composer Composer,
	fallback Conversationalist,
	contextWindow int,
) *Service {
	if st == nil {
		panic("a store is required")
	}

	if parser == nil {
		panic("a parser is required")
	}

	if retriever == nil {
		panic("a retriever is required")
	}

	if composer == nil {
		panic("a composer is required")
	}

	if fallback == nil {
		panic("a fallback conversationalist is required")
	}

	if contextWindow <= 0 {
		contextWindow = 8
	}

	return &Service{
		store:     st,
		parser:    parser,
		retriever: retriever,
		composer:  composer,
		fallback:  fallback,
		window:    contextWindow,
		mtx:       sync.Mutex{},
		sessions:  map[string]*sync.Mutex{},
	}
}
