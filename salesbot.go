// Package salesbot answers natural-language questions about sales
// records. A turn is parsed into a structured query when possible,
// answered from retrieved records with a deterministic summary plus a
// model narrative, and falls back to open conversation otherwise.
package salesbot

import (
	"context"
	"time"

	"github.com/w-h-a/salesbot/completion"
	"github.com/w-h-a/salesbot/composer"
	"github.com/w-h-a/salesbot/fallback"
	"github.com/w-h-a/salesbot/internal/service/conversation"
	"github.com/w-h-a/salesbot/internal/service/session"
	"github.com/w-h-a/salesbot/parser"
	"github.com/w-h-a/salesbot/records"
	"github.com/w-h-a/salesbot/retrieval"
	"github.com/w-h-a/salesbot/store"
)

type Bot struct {
	conversation *conversation.Service
	session      *session.Service
	store        store.Store
	source       records.Source
}

func (b *Bot) NewSession(ctx context.Context, id string) (string, error) {
	return b.session.GetOrCreate(ctx, id)
}

func (b *Bot) ListSessions(ctx context.Context) ([]store.Session, error) {
	return b.session.List(ctx)
}

func (b *Bot) History(ctx context.Context, sessionId string) ([]store.Message, error) {
	return b.session.History(ctx, sessionId)
}

func (b *Bot) DeleteSession(ctx context.Context, sessionId string) error {
	return b.session.Delete(ctx, sessionId)
}

// Respond runs one conversational turn and returns the assistant's
// reply. The only error class that escapes is a persistence failure;
// everything else degrades into a usable response.
func (b *Bot) Respond(ctx context.Context, sessionId string, input string) (string, error) {
	return b.conversation.Respond(ctx, sessionId, input)
}

func (b *Bot) Close() error {
	if err := b.source.Close(); err != nil {
		return err
	}
	return b.store.Close()
}

func New(
	st store.Store,
	source records.Source,
	model completion.Client,
	contextWindow int,
	retryAttempts int,
	retryDelay time.Duration,
	fallbackOpts ...fallback.Option,
) *Bot {
	conv := conversation.New(
		st,
		parser.New(model),
		retrieval.New(source),
		composer.New(model, retryAttempts, retryDelay),
		fallback.New(model, fallbackOpts...),
		contextWindow,
	)

	sess := session.New(
		st,
	)

	bot := &Bot{
		conversation: conv,
		session:      sess,
		store:        st,
		source:       source,
	}

	return bot
}
