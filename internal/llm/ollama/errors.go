package ollama

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrUnreachable is returned by WaitReady when the server never answered.
var ErrUnreachable = errors.New("ollama: server unreachable")

// StatusError describes a non-2xx reply.
type StatusError struct {
	StatusCode int
	Status     string
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s for url: %s", e.Status, e.URL)
	}
	return fmt.Sprintf("%s for url: %s: %s", e.Status, e.URL, e.Body)
}

func statusError(resp *http.Response, url string) *StatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		URL:        url,
		Body:       strings.TrimSpace(string(body)),
	}
}
