package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-relay/client"
	"chat-relay/contract"
	"chat-relay/infrastructure/grpc/server"
	"chat-relay/moderation"
	"chat-relay/observability"
	"chat-relay/runtime"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/samber/lo"
)

// Exit codes to provide meaningful status to the operating system or service manager.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const (
	defaultClientName = "Nobody"
	usage             = "usage: chat-relay server | chat-relay client [name]"
	stopTimeout       = 5 * time.Second
)

func main() {
	code, err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chat-relay terminated with error: %v\n", err)
	}
	os.Exit(code)
}

type mode int

const (
	unknownMode mode = iota
	serverMode
	clientMode
)

// parseArgs selects the role. Anything it does not recognise is unknownMode.
func parseArgs(args []string) (mode, string) {
	switch {
	case len(args) == 1 && args[0] == "server":
		return serverMode, ""
	case len(args) == 1 && args[0] == "client":
		return clientMode, defaultClientName
	case len(args) == 2 && args[0] == "client":
		return clientMode, args[1]
	default:
		return unknownMode, ""
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	_ = godotenv.Load()

	m, name := parseArgs(args)
	if m == unknownMode {
		fmt.Fprintln(stderr, usage)
		return exitOK, nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if m == clientMode {
		return runClient(ctx, name, stdin, stdout)
	}
	return runServer(ctx, stdout)
}

func runClient(ctx context.Context, name string, stdin io.Reader, stdout io.Writer) (int, error) {
	cfg, err := client.LoadConfig()
	if err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	// The terminal is the chat window, so the client stays quiet by default.
	log := logs.GetLoggerFromString(lo.CoalesceOrEmpty(os.Getenv("CHAT_LOG_LEVEL"), "ERROR"))
	return client.New(log, cfg, name, stdin, stdout).Run(ctx)
}

func runServer(ctx context.Context, stdout io.Writer) (int, error) {
	// 1. Configuration & Logger
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	censor, err := loadModerator(config, log)
	if err != nil {
		return exitConfig, err
	}

	// 2. Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(registry)

	// 3. Chat core
	chat := runtime.NewServer(log, runtime.Options{
		Address:              config.Address(),
		PoolSize:             config.PoolSize,
		SubscriptionCapacity: config.SubscriptionCapacity,
		FrameSize:            config.FrameSize,
		AcceptPollTimeout:    config.AcceptPollTimeout,
		RestartDelay:         config.RestartDelay,
		MetricInterval:       config.MetricInterval,
		LowCapacityThreshold: config.LowCapacityThreshold,
		Censor:               censor,
	}, metrics)
	if err := chat.Start(ctx); err != nil {
		return exitRuntime, err
	}

	// 4. Side servers
	errChan := make(chan error, 2)
	var metricsServer *http.Server
	if config.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.Handler(registry))
		metricsServer = &http.Server{Addr: config.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			log.Info("Starting metrics server", "address", config.MetricsAddr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}
	var health *server.HealthServer
	if config.HealthAddr != "" {
		health, err = server.NewHealthServer(log, config.HealthAddr)
		if err != nil {
			chat.Stop()
			return exitRuntime, err
		}
		health.SetServing(true)
		go func() {
			if err := health.Serve(); err != nil {
				errChan <- err
			}
		}()
	}

	// 5. Wait for Stop or Error
	code := exitOK
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err = <-errChan:
		log.Error("Side server failed", "error", err)
		code = exitRuntime
	}

	// 6. Final Cleanup
	if health != nil {
		health.SetServing(false)
	}
	chat.Stop()
	if metricsServer != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		_ = metricsServer.Shutdown(stopCtx)
		cancel()
	}
	if health != nil {
		health.Stop()
	}
	printReport(stdout, chat.PoolStats(), chat.Restarts(), chat.CensoredMessages())
	log.Info("Program stopped cleanly")
	return code, err
}

// loadModerator returns nil when no word lists are configured.
func loadModerator(config Config, log *slog.Logger) (contract.Censor, error) {
	if config.CensoredDir == "" {
		return nil, nil
	}
	char, err := config.CharacterRune()
	if err != nil {
		return nil, err
	}
	data, err := moderation.NewCensoredLoader(os.DirFS(config.CensoredDir)).LoadAll(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load censored words: %w", err)
	}
	moderator, err := moderation.NewModerator(data.Words, char, log)
	if err != nil {
		return nil, err
	}
	log.Info("Moderation enabled", "languages", data.Languages, "words", len(data.Words))
	return moderator, nil
}
