package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parking-garage/internal/config"
	"parking-garage/internal/garage"
	"parking-garage/internal/logging"
	"parking-garage/internal/server"
	"parking-garage/internal/session"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "parking-garage: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	flag.StringVar(&cfg.Mode, "mode", cfg.Mode, "Mode to run: cli, server, or both")
	flag.StringVar(&cfg.Port, "port", cfg.Port, "Port for HTTP server")
	flag.IntVar(&cfg.GarageCapacity, "capacity", cfg.GarageCapacity, "Capacity of new garages")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	telemetryProvider, err := garage.NewTelemetryProvider(ctx, garage.TelemetryConfig{
		ServiceName: cfg.OTelServiceName,
		Environment: cfg.Environment,
		Endpoint:    cfg.OTelEndpoint,
	})
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}
	defer shutdownTelemetry(telemetryProvider)

	// The shell owns stdout in cli and both modes.
	logOutput := os.Stderr
	if cfg.Mode == "server" {
		logOutput = os.Stdout
	}
	logging.Init(logOutput, cfg.OTelServiceName, cfg.Environment)

	switch cfg.Mode {
	case "cli":
		return runCLI(ctx, cfg, telemetryProvider)
	case "server":
		return runServer(ctx, cfg, telemetryProvider)
	default:
		return runBoth(ctx, cfg, telemetryProvider)
	}
}

func runCLI(ctx context.Context, cfg *config.Config, telemetryProvider *garage.TelemetryProvider) error {
	shell := garage.NewShell(telemetryProvider, cfg.GarageCapacity, cfg.GarageMaxCapacity, os.Stdin, os.Stdout)

	done := make(chan error, 1)
	go func() {
		done <- shell.Run(ctx)
	}()

	// Scan blocks on stdin, so a signal cannot wait for the shell to notice.
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		logging.Info(context.Background(), "shutting down shell")
		return nil
	}
}

func newServer(ctx context.Context, cfg *config.Config, telemetryProvider *garage.TelemetryProvider) *server.Server {
	sessions := session.NewManager(telemetryProvider, cfg.MaxSessions)
	go sessions.Run(ctx, time.Minute, cfg.SessionTTL)

	return server.NewServer(server.Options{
		Port:            cfg.Port,
		ServiceName:     cfg.OTelServiceName,
		DefaultCapacity: cfg.GarageCapacity,
		MaxCapacity:     cfg.GarageMaxCapacity,
		Tracer:          telemetryProvider.Tracer(),
	}, sessions)
}

func runServer(ctx context.Context, cfg *config.Config, telemetryProvider *garage.TelemetryProvider) error {
	srv := newServer(ctx, cfg, telemetryProvider)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Start()
	}()
	logging.Info(ctx, "server mode", "address", srv.GetAddress())

	select {
	case err := <-serverDone:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
		logging.Info(context.Background(), "received shutdown signal")
		return shutdownServer(srv)
	}
}

func runBoth(ctx context.Context, cfg *config.Config, telemetryProvider *garage.TelemetryProvider) error {
	srv := newServer(ctx, cfg, telemetryProvider)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Start()
	}()

	cliDone := make(chan error, 1)
	go func() {
		cliDone <- runCLI(ctx, cfg, telemetryProvider)
	}()

	select {
	case err := <-serverDone:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case err := <-cliDone:
		logging.Info(context.Background(), "CLI exited")
		return errors.Join(err, shutdownServer(srv))
	case <-ctx.Done():
		logging.Info(context.Background(), "received shutdown signal")
		return shutdownServer(srv)
	}
}

func shutdownServer(srv *server.Server) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func shutdownTelemetry(telemetryProvider *garage.TelemetryProvider) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := telemetryProvider.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "error shutting down telemetry: %v\n", err)
	}
}
