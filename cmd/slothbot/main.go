package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/slothwatch/slothbot/internal/adapter/driven/github"
	"github.com/slothwatch/slothbot/internal/adapter/driven/ledger"
	"github.com/slothwatch/slothbot/internal/alert"
	"github.com/slothwatch/slothbot/internal/application"
	"github.com/slothwatch/slothbot/internal/config"
	"github.com/slothwatch/slothbot/internal/messages"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on missing required env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// 2. Route warnings and errors to the operator webhook when configured.
	handler := alert.NewHandler(slog.NewTextHandler(os.Stderr, nil), cfg.AlertWebhookURL)
	slog.SetDefault(slog.New(handler))
	slog.Info("config loaded",
		"read_tokens", len(cfg.ReadTokens),
		"event_tick", cfg.EventTick,
		"maintenance_every", cfg.MaintenanceEvery,
		"mainnet", cfg.LedgerMainnet,
	)

	// 3. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Create the platform client and log the credential budget.
	platform, err := github.NewClient(ctx, cfg.WriteToken, cfg.ReadTokens)
	if err != nil {
		return err
	}
	if limits, err := platform.RateLimits(ctx); err != nil {
		slog.Warn("rate limit check failed", "error", err)
	} else {
		slog.Info("platform client ready", "core_remaining", limits.GetCore().Remaining)
	}

	// 5. Dial the ledger.
	endpoint := cfg.LedgerRPC
	if endpoint == "" {
		endpoint = ledger.TestnetEndpoint
		if cfg.LedgerMainnet {
			endpoint = ledger.MainnetEndpoint
		}
	}
	ledgerClient, err := ledger.Dial(ctx, endpoint, cfg.LedgerContract, cfg.LedgerSecretKey)
	if err != nil {
		return err
	}
	defer ledgerClient.Close()
	slog.Info("ledger client ready", "endpoint", endpoint, "contract", cfg.LedgerContract)

	// 6. Load the reply templates.
	loader, err := messages.Load(cfg.MessageFile, nil)
	if err != nil {
		return err
	}
	slog.Info("messages loaded", "bot_name", loader.BotName())

	// 7. Wire the dispatcher and start the tick loop.
	dispatcher := application.NewDispatcher(platform, ledgerClient, loader)
	service := application.NewService(platform, ledgerClient, dispatcher, cfg.EventTick, cfg.MaintenanceEvery)

	if err := service.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	slog.Info("shutdown complete")
	return nil
}
