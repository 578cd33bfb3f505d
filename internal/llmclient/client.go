// internal/llmclient/client.go
package llmclient

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrMissingAPIKey is returned when a provider is configured without credentials.
var ErrMissingAPIKey = errors.New("llm API key is not configured")

// ErrMissingEndpoint is returned when an OpenAI-compatible provider has no endpoint.
var ErrMissingEndpoint = errors.New("llm API endpoint is not configured")

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request describes a single completion call. Messages are sent in order after the system prompt.
type Request struct {
	ID           string
	SystemPrompt string
	Messages     []Message
	Temperature  float32
	MaxTokens    int
	ForceJSON    bool
}

// Chunk is one ordered piece of a streamed reply. The final chunk has Done set and carries the
// accumulated text in Text, or the failure in Err.
type Chunk struct {
	RequestID string
	Text      string
	Done      bool
	Err       error
}

// Client is the transport to a language model.
type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
	// Stream delivers the reply as chunks. The channel is closed after the Done chunk, or
	// without one if ctx is cancelled while the consumer is not reading.
	Stream(ctx context.Context, req Request) (<-chan Chunk, error)
	Close() error
}

// ensureID assigns a request ID when the caller did not supply one.
func ensureID(req Request) Request {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	return req
}

// UserPrompt is shorthand for a request consisting of one user message.
func UserPrompt(system, user string) Request {
	return Request{
		SystemPrompt: system,
		Messages:     []Message{{Role: RoleUser, Content: user}},
	}
}

// emitter forwards stream pieces in order and guarantees exactly one Done chunk.
type emitter struct {
	ctx  context.Context
	id   string
	out  chan<- Chunk
	text []byte
}

// send forwards a delta. It reports false when the consumer's context is gone.
func (e *emitter) send(delta string) bool {
	if delta == "" {
		return true
	}
	e.text = append(e.text, delta...)
	select {
	case e.out <- Chunk{RequestID: e.id, Text: delta}:
		return true
	case <-e.ctx.Done():
		return false
	}
}

func (e *emitter) finish(err error) {
	final := Chunk{RequestID: e.id, Done: true, Err: err}
	if err == nil {
		final.Text = string(e.text)
	}
	select {
	case e.out <- final:
	case <-e.ctx.Done():
	}
}
