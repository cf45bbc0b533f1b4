package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/efebarandurmaz/muse/internal/chat"
	"github.com/efebarandurmaz/muse/internal/config"
	"github.com/efebarandurmaz/muse/internal/llm"
	"github.com/efebarandurmaz/muse/internal/llm/ollama"
	"github.com/efebarandurmaz/muse/internal/observability"
	"github.com/efebarandurmaz/muse/internal/persona"
	"github.com/efebarandurmaz/muse/internal/render"
	"github.com/efebarandurmaz/muse/internal/server"
)

const version = "0.1.0"

// app is the state shared by every subcommand once flags are parsed.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	client  *ollama.Client
	styles  *render.Styles
	out     io.Writer
	errOut  io.Writer
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	var (
		configPath string
		baseURL    string
		logLevel   string
		a          = &app{out: out, errOut: errOut, styles: render.DefaultStyles()}
	)

	rootCmd := &cobra.Command{
		Use:          "muse",
		Short:        "Persona chat relay for a local Ollama server",
		SilenceUsage: true,
		Version:      version,
	}
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return a.setup(configPath, baseURL, logLevel)
	}
	rootCmd.SetOut(out)
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (YAML)")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Ollama base URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(
		a.personasCmd(),
		a.chatCmd(),
		a.healthCmd(),
		a.modelsCmd(),
		a.serveCmd(),
	)
	return rootCmd
}

func (a *app) setup(configPath, baseURL, logLevel string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if baseURL != "" {
		cfg.LLM.BaseURL = baseURL
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	if _, err := observability.ParseLevel(cfg.Log.Level); err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = observability.NewLogger(a.errOut, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(a.logger)

	a.metrics = observability.NewMetrics()
	opts := []ollama.Option{ollama.WithLogger(a.logger), ollama.WithMetrics(a.metrics)}
	if cfg.LLM.Timeout > 0 {
		opts = append(opts, ollama.WithHTTPClient(&http.Client{Timeout: cfg.LLM.Timeout}))
	}
	a.client = ollama.New(cfg.LLM.BaseURL, opts...)
	return nil
}

func (a *app) personasCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "personas",
		Short: "List the available personas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list := persona.List()
			if output == render.FormatTable {
				fmt.Fprintln(a.out, a.styles.PersonaTable(list))
				return nil
			}
			return render.Encode(a.out, output, list)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", render.FormatTable, "Output format: table, json, yaml")
	return cmd
}

func (a *app) chatCmd() *cobra.Command {
	var (
		personaKey string
		model      string
		stream     bool
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "chat [flags] message...",
		Short: "Send one message to a persona and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			turn := chat.Turn{
				Persona:  personaKey,
				Model:    model,
				Messages: []llm.Message{{Role: llm.RoleUser, Content: strings.Join(args, " ")}},
				Stream:   stream && !asJSON,
			}
			return a.runChat(cmd.Context(), turn, asJSON)
		},
	}
	cmd.Flags().StringVarP(&personaKey, "persona", "p", persona.DefaultKey, "Persona key: "+strings.Join(persona.Keys(), ", "))
	cmd.Flags().StringVarP(&model, "model", "m", "", "Model override (default: the persona's model)")
	cmd.Flags().BoolVar(&stream, "stream", false, "Print the reply as it is generated")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw result record as JSON")
	return cmd
}

func (a *app) runChat(ctx context.Context, turn chat.Turn, asJSON bool) error {
	svc := chat.NewService(a.client, a.logger)
	p, res := svc.Respond(ctx, turn)

	if asJSON {
		if err := render.Encode(a.out, render.FormatJSON, res); err != nil {
			return err
		}
		return res.Err()
	}
	if err := res.Err(); err != nil {
		return fmt.Errorf("chat with %s: %w", p.Key, err)
	}

	label := a.styles.Speaker(p.Key).Render(p.Name + ":")
	if res.Stream != nil {
		defer res.Stream.Close()
		fmt.Fprint(a.out, label+" ")
		if err := copyStream(a.out, res.Stream); err != nil {
			return err
		}
		fmt.Fprintln(a.out)
		return nil
	}

	reply, err := chat.Reply(res)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, label, reply)
	return nil
}

// copyStream prints streamed reply text as frames arrive.
func copyStream(w io.Writer, body io.Reader) error {
	r := ollama.NewStreamReader(body)
	for {
		chunk, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprint(w, chunk.Message.Content)
	}
}

func (a *app) healthCmd() *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check whether the Ollama server is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ok := a.client.HealthCheck(ctx)
			if !ok && wait > 0 {
				ok = a.client.WaitReady(ctx, wait) == nil
			}
			fmt.Fprintln(a.out, a.client.BaseURL(), a.styles.Status(ok))
			if !ok {
				return fmt.Errorf("ollama at %s: %w", a.client.BaseURL(), ollama.ErrUnreachable)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 0, "Keep retrying for up to this long (e.g. 30s)")
	return cmd
}

func (a *app) modelsCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List models installed on the Ollama server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			models, err := a.client.Models(cmd.Context())
			if err != nil {
				return err
			}
			if output == render.FormatTable {
				fmt.Fprintln(a.out, a.styles.ModelTable(models))
				return nil
			}
			return render.Encode(a.out, output, models)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", render.FormatTable, "Output format: table, json, yaml")
	return cmd
}

func (a *app) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve health probes and metrics until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, :8080)")
	return cmd
}

func (a *app) serve(ctx context.Context, addr string) error {
	tp, err := observability.InitTracing(ctx, &observability.TracingConfig{
		ServiceName:    a.cfg.Tracing.ServiceName,
		ServiceVersion: version,
		OTLPEndpoint:   a.cfg.Tracing.Endpoint,
		SampleRate:     a.cfg.Tracing.SampleRate,
	})
	if err != nil {
		return err
	}

	g := server.NewGracefulServer(
		&server.HealthConfig{Version: version},
		&server.ShutdownConfig{Timeout: 10 * time.Second, Logger: a.logger},
	)
	g.Health.RegisterCheck("ollama", server.LLMHealthChecker(a.client.BaseURL(), a.client.HealthCheck))
	g.Health.RegisterCheck("personas", server.PersonaCatalogChecker())
	g.Health.Mount("/metrics", a.metrics.Handler())
	g.Shutdown.Register(server.TracingShutdownHook(tp.Shutdown))

	a.logger.Info("serving probes", "addr", addr, "ollama", a.client.BaseURL())
	err = g.Run(ctx, addr)
	a.logger.Info("shutdown complete")
	return err
}
