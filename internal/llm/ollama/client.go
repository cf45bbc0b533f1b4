// Package ollama relays chat turns to an Ollama server over its HTTP API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/efebarandurmaz/muse/internal/llm"
	"github.com/efebarandurmaz/muse/internal/observability"
)

const (
	// DefaultBaseURL is where a local Ollama listens out of the box.
	DefaultBaseURL = "http://localhost:11434"

	chatPath = "/api/chat"
	tagsPath = "/api/tags"

	maxErrorBody = 4 << 10

	// RequestIDHeader carries the id that ties a chat call's log lines to its
	// span.
	RequestIDHeader = "X-Request-ID"
)

// Default is a process-wide client for the default base URL. It holds no
// per-call state and may be shared freely.
var Default = New(DefaultBaseURL)

var _ llm.Generator = (*Client)(nil)

// Client implements llm.Generator for the Ollama chat endpoint.
type Client struct {
	baseURL string
	chatURL string
	http    *http.Client
	logger  *slog.Logger
	metrics *observability.Metrics
}

// Option configures a Client at construction.
type Option func(*Client)

// WithHTTPClient replaces the transport. Use it to impose a timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger used for failure diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMetrics records request counts and latency into m.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a client for baseURL. An empty baseURL means DefaultBaseURL.
func New(baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: baseURL,
		chatURL: baseURL + chatPath,
		http:    &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server root this client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.Default()
}

// HealthCheck sends a plain GET to the base URL. Any HTTP response counts as
// alive, whatever its status; only a transport failure yields false.
func (c *Client) HealthCheck(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()
	return true
}

// Generate posts one chat request. With req.Stream set the live body is handed
// back unread; otherwise the JSON reply is decoded into Result.Payload. Every
// failure, including a non-2xx status in either mode, becomes an error record.
func (c *Client) Generate(ctx context.Context, req llm.GenerateRequest) *llm.Result {
	requestID := uuid.NewString()
	ctx, span := observability.StartLLMSpan(ctx, "ollama", req.Model)
	defer span.End()
	observability.RecordRequestID(span, requestID)

	start := time.Now()
	res := c.generate(ctx, req, requestID)
	c.metrics.RecordLLMRequest(time.Since(start), req.Stream, res.Failed())

	if res.Failed() {
		observability.RecordError(span, res.Err())
		c.log().Error("Error communicating with Ollama",
			"request_id", requestID,
			"url", c.chatURL,
			"model", req.Model,
			"stream", req.Stream,
			"error", res.Error,
		)
		return res
	}
	c.log().Debug("ollama chat",
		"request_id", requestID,
		"model", req.Model,
		"stream", req.Stream,
		"duration", time.Since(start),
	)
	return res
}

func (c *Client) generate(ctx context.Context, req llm.GenerateRequest, requestID string) *llm.Result {
	data, err := json.Marshal(newChatRequest(req))
	if err != nil {
		return llm.Failure(fmt.Errorf("encode chat request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.chatURL, bytes.NewReader(data))
	if err != nil {
		return llm.Failure(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(RequestIDHeader, requestID)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return llm.Failure(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return llm.Failure(statusError(resp, c.chatURL))
	}

	if req.Stream {
		c.metrics.StreamOpened()
		return &llm.Result{Stream: &trackedBody{ReadCloser: resp.Body, onClose: c.metrics.StreamClosed}}
	}
	defer resp.Body.Close()

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return llm.Failure(fmt.Errorf("decode chat response: %w", err))
	}
	if payload == nil {
		return llm.Failure(errors.New("decode chat response: empty body"))
	}
	return &llm.Result{Payload: payload}
}

// chatRequest is the /api/chat wire body.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []llm.Message `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  llm.Options   `json:"options,omitempty"`
}

func newChatRequest(req llm.GenerateRequest) chatRequest {
	return chatRequest{
		Model:    req.Model,
		Messages: buildMessages(req.SystemPrompt, req.Messages),
		Stream:   req.Stream,
		Options:  req.Options,
	}
}

// buildMessages returns a fresh slice; the caller's messages are never aliased.
func buildMessages(systemPrompt string, messages []llm.Message) []llm.Message {
	out := make([]llm.Message, 0, len(messages)+1)
	if systemPrompt != "" {
		out = append(out, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	}
	return append(out, messages...)
}

// trackedBody reports the first Close so open streams can be counted.
type trackedBody struct {
	io.ReadCloser
	once    sync.Once
	onClose func()
}

func (b *trackedBody) Close() error {
	err := b.ReadCloser.Close()
	b.once.Do(b.onClose)
	return err
}
