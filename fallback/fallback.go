// Package fallback produces an open-domain streamed reply for turns
// with no structured intent or no matching records.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/w-h-a/salesbot/completion"
	"github.com/w-h-a/salesbot/store"
)

// ErrGeneration marks a failed stream. The partial text is discarded
// and Apology is returned in its place; partial text is never
// persisted as a final message.
var ErrGeneration = errors.New("generation failure")

// Apology is the fixed reply when the stream fails at any point.
const Apology = "抱歉，处理您的请求时出现错误。请重试。"

const systemPrompt = "你是一名专业的销售数据助理，友好、简洁地回答用户的问题。"

type Option func(*Options)

type Options struct {
	OnDelta func(chunk string)
}

// WithOnDelta hands each increment to an observer (a UI rendering
// hook). Observed partials are not canonical; only the fully drained
// text is.
func WithOnDelta(fn func(chunk string)) Option {
	return func(o *Options) {
		o.OnDelta = fn
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

type Conversationalist struct {
	client  completion.Client
	options Options
}

// Reply streams a completion over the history plus the new user
// message and drains it to completion before returning. On any stream
// failure the returned text is Apology and the error is reported for
// logging.
func (c *Conversationalist) Reply(ctx context.Context, history []store.Message, input string) (string, error) {
	messages := make([]completion.Message, 0, len(history)+2)
	messages = append(messages, completion.Message{
		Role:    completion.RoleSystem,
		Content: systemPrompt,
	})
	for _, msg := range history {
		messages = append(messages, completion.Message{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}
	messages = append(messages, completion.Message{
		Role:    completion.RoleUser,
		Content: input,
	})

	stream, err := c.client.Stream(ctx, completion.Request{Messages: messages})
	if err != nil {
		slog.ErrorContext(ctx, "fallback stream failed to open", "error", err)
		return Apology, fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	defer stream.Close()

	var sb strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			slog.ErrorContext(ctx, "fallback stream broke mid-reply", "error", err)
			return Apology, fmt.Errorf("%w: %v", ErrGeneration, err)
		}

		sb.WriteString(chunk)

		if c.options.OnDelta != nil {
			c.options.OnDelta(chunk)
		}
	}

	return sb.String(), nil
}

func New(client completion.Client, opts ...Option) *Conversationalist {
	if client == nil {
		panic("completion client is required")
	}

	return &Conversationalist{
		client:  client,
		options: NewOptions(opts...),
	}
}
