package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Hook priorities. Lower runs first.
const (
	PriorityProbes  = 5
	PriorityHTTP    = 10
	PriorityTracing = 80
)

// ShutdownHook is a function called during shutdown.
type ShutdownHook struct {
	Name     string
	Priority int
	Fn       func(ctx context.Context) error
}

// ShutdownConfig configures the shutdown handler.
type ShutdownConfig struct {
	// Timeout for all hooks together (default: 30s).
	Timeout time.Duration
	Logger  *slog.Logger
}

// DefaultShutdownConfig returns default configuration.
func DefaultShutdownConfig() *ShutdownConfig {
	return &ShutdownConfig{Timeout: 30 * time.Second}
}

// ShutdownHandler runs registered hooks in priority order once its context
// ends. Signal wiring is left to the caller (signal.NotifyContext).
type ShutdownHandler struct {
	mu      sync.Mutex
	hooks   []ShutdownHook
	timeout time.Duration
	logger  *slog.Logger
	once    sync.Once
	done    chan struct{}
	err     error
}

// NewShutdownHandler creates a new shutdown handler.
func NewShutdownHandler(config *ShutdownConfig) *ShutdownHandler {
	if config == nil {
		config = DefaultShutdownConfig()
	}
	h := &ShutdownHandler{
		timeout: config.Timeout,
		logger:  config.Logger,
		done:    make(chan struct{}),
	}
	if h.timeout <= 0 {
		h.timeout = 30 * time.Second
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	return h
}

// RegisterHook adds a hook. Hooks of equal priority keep registration order.
func (s *ShutdownHandler) RegisterHook(name string, priority int, fn func(ctx context.Context) error) {
	s.Register(ShutdownHook{Name: name, Priority: priority, Fn: fn})
}

// Register adds a prebuilt hook.
func (s *ShutdownHandler) Register(hook ShutdownHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, hook)
	sort.SliceStable(s.hooks, func(i, j int) bool { return s.hooks[i].Priority < s.hooks[j].Priority })
}

// Run blocks until ctx is done, then runs every hook and returns their
// joined errors. Later calls return the first result without rerunning.
func (s *ShutdownHandler) Run(ctx context.Context) error {
	<-ctx.Done()
	s.once.Do(func() {
		s.err = s.runHooks()
		close(s.done)
	})
	<-s.done
	return s.err
}

// Done closes once every hook has run.
func (s *ShutdownHandler) Done() <-chan struct{} {
	return s.done
}

func (s *ShutdownHandler) runHooks() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	s.mu.Lock()
	hooks := make([]ShutdownHook, len(s.hooks))
	copy(hooks, s.hooks)
	s.mu.Unlock()

	var errs []error
	for _, hook := range hooks {
		start := time.Now()
		if err := hook.Fn(ctx); err != nil {
			s.logger.Error("shutdown hook failed", "hook", hook.Name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", hook.Name, err))
			continue
		}
		s.logger.Debug("shutdown hook done", "hook", hook.Name, "duration", time.Since(start))
	}
	return errors.Join(errs...)
}

// HTTPServerShutdownHook stops a server from accepting new connections.
func HTTPServerShutdownHook(name string, shutdownFn func(ctx context.Context) error) ShutdownHook {
	return ShutdownHook{Name: name, Priority: PriorityHTTP, Fn: shutdownFn}
}

// TracingShutdownHook flushes buffered spans.
func TracingShutdownHook(shutdownFn func(ctx context.Context) error) ShutdownHook {
	return ShutdownHook{Name: "tracing", Priority: PriorityTracing, Fn: shutdownFn}
}

// GracefulServer ties the probe server to shutdown: readiness drops as soon
// as shutdown begins, then the hooks run.
type GracefulServer struct {
	Health   *HealthServer
	Shutdown *ShutdownHandler
}

// NewGracefulServer creates a server with health checks and graceful shutdown.
func NewGracefulServer(healthConfig *HealthConfig, shutdownConfig *ShutdownConfig) *GracefulServer {
	g := &GracefulServer{
		Health:   NewHealthServer(healthConfig),
		Shutdown: NewShutdownHandler(shutdownConfig),
	}
	g.Shutdown.RegisterHook("probes", PriorityProbes, func(context.Context) error {
		g.Health.SetReady(false)
		return nil
	})
	return g
}

// Run serves probes on addr until ctx ends, then runs the shutdown hooks.
// A listener failure cancels the run early and is returned with hook errors.
func (g *GracefulServer) Run(ctx context.Context, addr string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g.Health.SetReady(true)
	serveErr := make(chan error, 1)
	go func() {
		err := g.Health.Serve(ctx, addr)
		if err != nil {
			cancel()
		}
		serveErr <- err
	}()

	hookErr := g.Shutdown.Run(ctx)
	return errors.Join(<-serveErr, hookErr)
}
