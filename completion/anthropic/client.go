package anthropic

import (
	"context"
	"errors"
	"io"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
	"github.com/w-h-a/salesbot/completion"
)

const jsonInstruction = "Respond with a single JSON object and nothing else."

type anthropicClient struct {
	options completion.Options
	client  *anthropic.Client
}

func (c *anthropicClient) Complete(ctx context.Context, req completion.Request) (string, error) {
	ctx, cancel := c.options.Deadline(ctx)
	defer cancel()

	rsp, err := c.client.Messages.New(ctx, c.convert(req))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, content := range rsp.Content {
		if text, ok := content.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(text.Text)
		}
	}

	result := b.String()
	if len(result) == 0 {
		return "", errors.New("no response from Anthropic")
	}

	return result, nil
}

func (c *anthropicClient) Stream(ctx context.Context, req completion.Request) (completion.Stream, error) {
	ctx, cancel := c.options.Deadline(ctx)

	stream := c.client.Messages.NewStreaming(ctx, c.convert(req))

	return &anthropicStream{stream: stream, cancel: cancel}, nil
}

func (c *anthropicClient) convert(req completion.Request) anthropic.MessageNewParams {
	var system []string
	messages := make([]anthropic.MessageParam, 0, len(req.Messages))

	for _, msg := range req.Messages {
		switch msg.Role {
		case completion.RoleSystem:
			system = append(system, msg.Content)
		case completion.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	// Anthropic has no response-format switch, so JSON output is
	// constrained through the system prompt instead.
	if req.JSONObject {
		system = append(system, jsonInstruction)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.options.Model),
		MaxTokens: int64(c.options.MaxTokens),
		Messages:  messages,
	}

	if len(system) > 0 {
		params.System = []anthropic.TextBlockParam{
			{Text: strings.Join(system, "\n\n")},
		}
	}

	return params
}

type anthropicStream struct {
	stream *ssestream.Stream[anthropic.MessageStreamEventUnion]
	cancel context.CancelFunc
}

func (s *anthropicStream) Recv() (string, error) {
	for s.stream.Next() {
		event := s.stream.Current()
		if delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent); ok {
			if len(delta.Delta.Text) > 0 {
				return delta.Delta.Text, nil
			}
		}
	}

	if err := s.stream.Err(); err != nil {
		return "", err
	}

	return "", io.EOF
}

func (s *anthropicStream) Close() error {
	s.cancel()
	return s.stream.Close()
}

func NewClient(opts ...completion.Option) completion.Client {
	options := completion.NewOptions(opts...)

	c := &anthropicClient{
		options: options,
	}

	clientOpts := []anthropicopt.RequestOption{
		anthropicopt.WithAPIKey(options.ApiKey),
	}
	if len(options.BaseURL) > 0 {
		clientOpts = append(clientOpts, anthropicopt.WithBaseURL(options.BaseURL))
	}

	client := anthropic.NewClient(clientOpts...)

	c.client = &client

	return c
}
