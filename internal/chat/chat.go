// Package chat joins the persona catalog with a model backend to answer one
// conversation turn.
package chat

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/efebarandurmaz/muse/internal/llm"
	"github.com/efebarandurmaz/muse/internal/observability"
	"github.com/efebarandurmaz/muse/internal/persona"
)

// Turn is one request from the chat UI.
type Turn struct {
	Persona  string        `json:"persona"`
	Model    string        `json:"model,omitempty"` // overrides the persona's model when set
	Messages []llm.Message `json:"messages"`
	Stream   bool          `json:"stream,omitempty"`
}

// Service answers turns with the persona's voice.
type Service struct {
	gen    llm.Generator
	logger *slog.Logger
}

// NewService wraps gen. A nil logger means slog.Default().
func NewService(gen llm.Generator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{gen: gen, logger: logger}
}

// Respond resolves the persona and relays the conversation. Like
// llm.Generator, failures come back inside the result.
func (s *Service) Respond(ctx context.Context, turn Turn) (persona.Persona, *llm.Result) {
	p, known := persona.Lookup(turn.Persona)
	if !known {
		if turn.Persona != "" {
			s.logger.Warn("unknown persona, using default",
				"requested", turn.Persona, "default", persona.DefaultKey)
		}
		p = persona.Resolve(turn.Persona)
	}
	observability.RecordPersona(trace.SpanFromContext(ctx), p.Key, !known)

	model := turn.Model
	if model == "" {
		model = p.Model
	}

	res := s.gen.Generate(ctx, llm.GenerateRequest{
		Model:        model,
		Messages:     turn.Messages,
		SystemPrompt: p.SystemPrompt,
		Stream:       turn.Stream,
		Options:      llm.Options(p.Options),
	})
	return p, res
}

// Reply extracts the assistant text from a non-streamed chat payload, with
// reasoning blocks removed.
func Reply(res *llm.Result) (string, error) {
	if res == nil {
		return "", errors.New("no result")
	}
	if err := res.Err(); err != nil {
		return "", err
	}
	if res.Stream != nil {
		return "", errors.New("streamed result has no payload")
	}

	msg, ok := res.Payload["message"].(map[string]any)
	if !ok {
		return "", errors.New("payload has no message object")
	}
	content, ok := msg["content"].(string)
	if !ok {
		return "", errors.New("message has no content")
	}
	return llm.StripThinking(content), nil
}
