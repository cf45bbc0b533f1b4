package ollama

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/efebarandurmaz/muse/internal/llm"
)

// Chunk is one NDJSON frame of a streamed /api/chat reply.
type Chunk struct {
	Model      string      `json:"model"`
	CreatedAt  string      `json:"created_at"`
	Message    llm.Message `json:"message"`
	Done       bool        `json:"done"`
	DoneReason string      `json:"done_reason,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// StreamReader decodes the body of a streamed Generate result. Generate never
// reads the stream itself; callers that want frames wrap Result.Stream here.
type StreamReader struct {
	dec  *json.Decoder
	done bool
}

// NewStreamReader reads frames from r.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{dec: json.NewDecoder(r)}
}

// Next returns the next frame, or io.EOF once the final frame has been read
// or the body ends.
func (s *StreamReader) Next() (*Chunk, error) {
	if s.done {
		return nil, io.EOF
	}
	var c Chunk
	if err := s.dec.Decode(&c); err != nil {
		if errors.Is(err, io.EOF) {
			s.done = true
			return nil, io.EOF
		}
		return nil, fmt.Errorf("decode stream frame: %w", err)
	}
	if c.Error != "" {
		s.done = true
		return nil, fmt.Errorf("ollama stream: %s", c.Error)
	}
	if c.Done {
		s.done = true
	}
	return &c, nil
}
