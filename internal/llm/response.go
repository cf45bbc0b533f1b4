package llm

import (
	"encoding/json"
	"errors"
	"io"
)

// Result is the outcome of Generate. Exactly one of Payload, Stream or Error
// is set.
type Result struct {
	// Payload is the decoded JSON body of a non-streamed reply.
	Payload map[string]any
	// Stream is the unread body of a streamed reply. The caller must read it
	// to the end or Close it.
	Stream io.ReadCloser
	// Error describes why the call failed.
	Error string
}

// Failure builds an error record from err.
func Failure(err error) *Result {
	return &Result{Error: err.Error()}
}

// Failed reports whether the result is an error record.
func (r *Result) Failed() bool {
	return r.Error != ""
}

// Err returns the error record as an error, or nil on success.
func (r *Result) Err() error {
	if !r.Failed() {
		return nil
	}
	return errors.New(r.Error)
}

// MarshalJSON renders the payload itself, or {"error": "..."} for failures.
func (r *Result) MarshalJSON() ([]byte, error) {
	if r.Failed() {
		return json.Marshal(map[string]string{"error": r.Error})
	}
	return json.Marshal(r.Payload)
}
