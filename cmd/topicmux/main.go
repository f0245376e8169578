// Command topicmux is an interactive topic pub/sub client.
//
// It connects to an adonis-websocket compatible server, joins topics and
// sends or prints events from a readline prompt.
//
// Usage:
//
//	topicmux [flags]
//
// Settings come from built-in defaults, a .env file, the YAML file named by
// -config, TOPICMUX_* environment variables and finally flags.
//
// Examples:
//
//	# Connect to a local server
//	topicmux -url ws://localhost:3333
//
//	# Find the server with mDNS and capture a protocol log
//	topicmux -discover -protocol-log session.tlog
//
//	# Use CBOR frames, a JWT and expose metrics
//	topicmux -url wss://chat.example.com -encoder cbor -jwt "$TOKEN" -metrics-addr :9100
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/topicmux/topicmux-go/cmd/topicmux/interactive"
	"github.com/topicmux/topicmux-go/internal/config"
	"github.com/topicmux/topicmux-go/pkg/client"
	"github.com/topicmux/topicmux-go/pkg/discovery"
	"github.com/topicmux/topicmux-go/pkg/log"
	"github.com/topicmux/topicmux-go/pkg/metrics"
	"github.com/topicmux/topicmux-go/pkg/wire"
)

func main() {
	flags := config.RegisterFlags(flag.CommandLine)
	flag.Parse()

	cfg, err := config.Load(config.LoadOptions{File: flags.File})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := flags.Apply(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	// Startup logs go to stderr until the prompt owns the terminal.
	logger := newLogger(os.Stderr, cfg)

	baseURL := cfg.URL
	if cfg.Discover {
		srv, err := discover(ctx, cfg, logger)
		if err != nil {
			return err
		}
		baseURL = srv.BaseURL()
		if srv.Path != "" && cfg.Path == config.DefaultPath {
			cfg.Path = srv.Path
		}
		if srv.Encoder != "" && cfg.Encoder == config.DefaultEncoder {
			cfg.Encoder = srv.Encoder
		}
	}

	shell, err := interactive.New()
	if err != nil {
		return err
	}
	defer shell.Close()

	// Route logs through readline so they do not corrupt the prompt.
	logger = newLogger(shell.Stderr(), cfg)

	clientCfg, closeLogs, err := clientConfig(cfg, logger)
	if err != nil {
		return err
	}
	defer closeLogs()

	var registry *prometheus.Registry
	if cfg.MetricsAddr != "" {
		registry = prometheus.NewRegistry()
		clientCfg.Metrics = metrics.New(metrics.WithRegistry(registry))
	}

	conn, err := client.New(baseURL, clientCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Debug("close", slog.Any("error", err))
		}
	}()
	applyAuth(conn, cfg.Auth)
	shell.Attach(conn)

	if registry != nil {
		srv := serveMetrics(cfg.MetricsAddr, registry, logger)
		defer func() {
			shutdownCtx, stop := context.WithTimeout(context.Background(), 2*time.Second)
			defer stop()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	logger.Info("connecting", slog.String("url", conn.URL()))
	if err := connect(ctx, conn, logger); err != nil {
		return err
	}

	shell.Run(ctx, cancel)
	return nil
}

// connect dials once. A failed dial is only fatal when the connection gave
// up; otherwise a reconnect is already scheduled.
func connect(ctx context.Context, conn *client.Connection, logger *slog.Logger) error {
	err := conn.Connect(ctx)
	if err == nil {
		return nil
	}
	if conn.State() == client.StateTerminated {
		return err
	}
	logger.Warn("initial connect failed, retrying", slog.Any("error", err))
	return nil
}

func newLogger(w io.Writer, cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// clientConfig maps CLI settings onto a client.Config. The returned func
// closes the protocol log file, if any.
func clientConfig(cfg config.Config, logger *slog.Logger) (client.Config, func(), error) {
	cc := client.DefaultConfig()
	cc.Path = cfg.Path
	cc.Reconnection = cfg.Reconnection
	cc.ReconnectionAttempts = cfg.ReconnectionAttempts
	cc.ReconnectionDelay = cfg.ReconnectionDelay
	cc.Query = cfg.Query
	cc.Logger = logger

	enc, err := wire.EncoderByName(strings.ToLower(cfg.Encoder))
	if err != nil {
		return client.Config{}, nil, err
	}
	cc.Encoder = enc

	closeLogs := func() {}
	var loggers []log.Logger
	if cfg.ProtocolLog != "" {
		fl, err := log.NewFileLogger(cfg.ProtocolLog)
		if err != nil {
			return client.Config{}, nil, fmt.Errorf("protocol log: %w", err)
		}
		loggers = append(loggers, fl)
		closeLogs = func() { _ = fl.Close() }
	}
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		loggers = append(loggers, log.NewSlogAdapter(logger))
	}
	if len(loggers) > 0 {
		cc.ProtocolLogger = log.NewMultiLogger(loggers...)
	}

	return cc, closeLogs, nil
}

func applyAuth(conn *client.Connection, auth config.Auth) {
	switch {
	case auth.JWT != "":
		conn.WithJwtToken(auth.JWT)
	case auth.APIToken != "":
		conn.WithApiToken(auth.APIToken)
	case auth.Username != "" || auth.Password != "":
		conn.WithBasicAuth(auth.Username, auth.Password)
	}
}

func discover(ctx context.Context, cfg config.Config, logger *slog.Logger) (*discovery.Server, error) {
	browser := discovery.NewBrowser(discovery.BrowserConfig{
		Interface: cfg.DiscoverInterface,
		Logger:    logger,
	})
	defer browser.Stop()

	lookupCtx, cancel := context.WithTimeout(ctx, cfg.DiscoverTimeout)
	defer cancel()

	logger.Info("looking for server", slog.String("service", discovery.ServiceType), slog.String("instance", cfg.DiscoverInstance))
	srv, err := browser.Lookup(lookupCtx, cfg.DiscoverInstance)
	if err != nil {
		return nil, err
	}
	logger.Info("server found", slog.String("instance", srv.Instance), slog.String("url", srv.BaseURL()))
	return srv, nil
}

func serveMetrics(addr string, registry *prometheus.Registry, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", slog.Any("error", err))
		}
	}()
	logger.Info("serving metrics", slog.String("addr", addr))
	return srv
}
