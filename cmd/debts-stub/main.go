package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samvad-hq/samvad-debts-client/internal/config"
	"github.com/samvad-hq/samvad-debts-client/internal/logger"
	"github.com/samvad-hq/samvad-debts-client/internal/stubserver"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "debts-stub start failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	fs := pflag.NewFlagSet("debts-stub", pflag.ContinueOnError)
	fs.String("stub-addr", "", "listen address")
	fs.String("log-level", "", "log level")
	seedFile := fs.String("seed", "", "JSON file with an array of debts to preload")
	if err := fs.Parse(os.Args[1:]); err != nil {
		return err
	}

	cfg, err := config.Load(fs)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if _, err := logger.Init(cfg); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	srv, err := stubserver.New(stubserver.Options{Log: logger.Global()})
	if err != nil {
		return fmt.Errorf("init stub server: %w", err)
	}
	if *seedFile != "" {
		if err := seed(srv, *seedFile); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Listen(cfg.StubAddr) }()
	logger.InfoObj("debts stub listening", "addr", cfg.StubAddr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.InfoObj("debts stub shutting down", "reason", ctx.Err().Error())
		return srv.Shutdown()
	}
}

func seed(srv *stubserver.Server, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	var records []map[string]any
	if err := json.Unmarshal(raw, &records); err != nil {
		return fmt.Errorf("decode seed file: %w", err)
	}
	if err := srv.Seed(records...); err != nil {
		return fmt.Errorf("seed stub: %w", err)
	}
	logger.InfoObj("debts stub seeded", "count", len(records))
	return nil
}
