package completion

import "context"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a model conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a single completion request. When JSONObject is set the
// client constrains the model to emit exactly one JSON object.
type Request struct {
	Messages   []Message
	JSONObject bool
}

// Client is a chat-completion service.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
	Stream(ctx context.Context, req Request) (Stream, error)
}

// Stream is a finite, non-restartable sequence of text increments.
// Recv returns io.EOF once the stream is drained. Only the fully
// drained text is canonical; callers must not treat partials as final.
type Stream interface {
	Recv() (string, error)
	Close() error
}
