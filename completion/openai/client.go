package openai

import (
	"context"
	"errors"

	"github.com/sashabaranov/go-openai"
	"github.com/w-h-a/salesbot/completion"
)

type openAIClient struct {
	options completion.Options
	client  *openai.Client
}

func (c *openAIClient) Complete(ctx context.Context, req completion.Request) (string, error) {
	ctx, cancel := c.options.Deadline(ctx)
	defer cancel()

	rsp, err := c.client.CreateChatCompletion(ctx, c.convert(req))
	if err != nil {
		return "", err
	}

	if len(rsp.Choices) == 0 || len(rsp.Choices[0].Message.Content) == 0 {
		return "", errors.New("no response from OpenAI")
	}

	return rsp.Choices[0].Message.Content, nil
}

func (c *openAIClient) Stream(ctx context.Context, req completion.Request) (completion.Stream, error) {
	ctx, cancel := c.options.Deadline(ctx)

	stream, err := c.client.CreateChatCompletionStream(ctx, c.convert(req))
	if err != nil {
		cancel()
		return nil, err
	}

	return &openAIStream{stream: stream, cancel: cancel}, nil
}

func (c *openAIClient) convert(req completion.Request) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	out := openai.ChatCompletionRequest{
		Model:       c.options.Model,
		Messages:    messages,
		Temperature: c.options.Temperature,
	}

	if req.JSONObject {
		out.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	return out
}

type openAIStream struct {
	stream *openai.ChatCompletionStream
	cancel context.CancelFunc
}

func (s *openAIStream) Recv() (string, error) {
	for {
		rsp, err := s.stream.Recv()
		if err != nil {
			return "", err
		}
		if len(rsp.Choices) == 0 {
			continue
		}
		return rsp.Choices[0].Delta.Content, nil
	}
}

func (s *openAIStream) Close() error {
	s.cancel()
	return s.stream.Close()
}

func NewClient(opts ...completion.Option) completion.Client {
	options := completion.NewOptions(opts...)

	c := &openAIClient{
		options: options,
	}

	config := openai.DefaultConfig(options.ApiKey)
	if len(options.BaseURL) > 0 {
		config.BaseURL = options.BaseURL
	}

	c.client = openai.NewClientWithConfig(config)

	return c
}
