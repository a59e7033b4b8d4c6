// Package composer asks the model for prose that supplements a
// deterministic summary. The summary is authoritative for numbers; the
// narrative only explains it.
package composer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/w-h-a/salesbot/completion"
	"github.com/w-h-a/salesbot/store"
)

// ErrGeneration marks a narrative call that failed on every attempt.
// Callers fall back to the deterministic summary alone.
var ErrGeneration = errors.New("generation failure")

const systemPrompt = "你是一名专业的销售数据助理。根据上下文信息中的查询结果回答用户的问题，可以补充说明和建议，但不得与上下文中的数字相矛盾。"

type Composer struct {
	client   completion.Client
	attempts int
	delay    time.Duration
}

// Compose builds a single request embedding the deterministic summary
// and the original question, retrying transient failures with a fixed
// delay. No backoff: the bound is small and the simplicity is the
// point.
func (c *Composer) Compose(ctx context.Context, summary string, question string, history []store.Message) (string, error) {
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
		Content: fmt.Sprintf("上下文信息:\n%s\n\n用户问题: %s", summary, question),
	})

	req := completion.Request{Messages: messages}

	var lastErr error
	for attempt := 0; attempt < c.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", ErrGeneration, ctx.Err())
			case <-time.After(c.delay):
			}
		}

		result, err := c.client.Complete(ctx, req)
		if err == nil {
			return result, nil
		}

		lastErr = err
		slog.WarnContext(ctx, "narrative attempt failed", "attempt", attempt+1, "error", err)
	}

	return "", fmt.Errorf("%w: %v", ErrGeneration, lastErr)
}

// Combine is the response layout: summary, blank line, narrative. An
// empty narrative yields the summary alone.
func Combine(summary string, narrative string) string {
	if len(narrative) == 0 {
		return summary
	}
	return summary + "\n\n" + narrative
}

func New(client completion.Client, attempts int, delay time.Duration) *Composer {
	if client == nil {
		panic("completion client is required")
	}

	if attempts <= 0 {
		attempts = 3
	}

	if delay <= 0 {
		delay = time.Second
	}

	return &Composer{
		client:   client,
		attempts: attempts,
		delay:    delay,
	}
}
