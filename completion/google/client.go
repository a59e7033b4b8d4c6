package google

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/w-h-a/salesbot/completion"
	"google.golang.org/api/iterator"
	genaiopt "google.golang.org/api/option"
)

type googleClient struct {
	options completion.Options
	client  *genai.Client
}

func (c *googleClient) Complete(ctx context.Context, req completion.Request) (string, error) {
	ctx, cancel := c.options.Deadline(ctx)
	defer cancel()

	chat, parts := c.convert(req)

	rsp, err := chat.SendMessage(ctx, parts...)
	if err != nil {
		return "", err
	}

	result := flatten(rsp)
	if len(result) == 0 {
		return "", errors.New("no response from Google")
	}

	return result, nil
}

func (c *googleClient) Stream(ctx context.Context, req completion.Request) (completion.Stream, error) {
	ctx, cancel := c.options.Deadline(ctx)

	chat, parts := c.convert(req)

	iter := chat.SendMessageStream(ctx, parts...)

	return &googleStream{iter: iter, cancel: cancel}, nil
}

// convert maps the request onto a chat session: system messages become
// the system instruction, prior turns become history, and the final
// user message is what gets sent.
func (c *googleClient) convert(req completion.Request) (*genai.ChatSession, []genai.Part) {
	model := c.client.GenerativeModel(c.options.Model)
	temperature := c.options.Temperature
	model.Temperature = &temperature

	if req.JSONObject {
		model.ResponseMIMEType = "application/json"
	}

	var system []string
	var history []*genai.Content
	var last string

	for i, msg := range req.Messages {
		switch msg.Role {
		case completion.RoleSystem:
			system = append(system, msg.Content)
		case completion.RoleAssistant:
			history = append(history, &genai.Content{
				Role:  "model",
				Parts: []genai.Part{genai.Text(msg.Content)},
			})
		default:
			if i == len(req.Messages)-1 {
				last = msg.Content
				continue
			}
			history = append(history, &genai.Content{
				Role:  "user",
				Parts: []genai.Part{genai.Text(msg.Content)},
			})
		}
	}

	if len(system) > 0 {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(strings.Join(system, "\n\n"))},
		}
	}

	chat := model.StartChat()
	chat.History = history

	return chat, []genai.Part{genai.Text(last)}
}

func flatten(rsp *genai.GenerateContentResponse) string {
	if len(rsp.Candidates) == 0 || rsp.Candidates[0].Content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range rsp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}

	return b.String()
}

type googleStream struct {
	iter   *genai.GenerateContentResponseIterator
	cancel context.CancelFunc
}

func (s *googleStream) Recv() (string, error) {
	for {
		rsp, err := s.iter.Next()
		if errors.Is(err, iterator.Done) {
			return "", io.EOF
		}
		if err != nil {
			return "", err
		}
		if text := flatten(rsp); len(text) > 0 {
			return text, nil
		}
	}
}

func (s *googleStream) Close() error {
	s.cancel()
	return nil
}

func NewClient(opts ...completion.Option) completion.Client {
	options := completion.NewOptions(opts...)

	c := &googleClient{
		options: options,
	}

	client, err := genai.NewClient(
		context.Background(),
		genaiopt.WithAPIKey(options.ApiKey),
	)
	if err != nil {
		panic(err)
	}

	c.client = client

	return c
}
