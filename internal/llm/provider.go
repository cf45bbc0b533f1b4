package llm

import "context"

// Generator is the interface model backends implement.
type Generator interface {
	// Generate relays a conversation and never returns a Go error; failures
	// come back as a Result whose Error field is set.
	Generate(ctx context.Context, req GenerateRequest) *Result
	// HealthCheck reports whether the backend answers at all.
	HealthCheck(ctx context.Context) bool
}
