// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	// WriteToken is the credential used for every mutating platform call.
	WriteToken string
	// ReadTokens are the credentials polled round-robin for notifications.
	// Defaults to the write token when unset.
	ReadTokens []string

	LedgerRPC       string
	LedgerContract  string
	LedgerSecretKey string
	LedgerMainnet   bool

	MessageFile     string
	AlertWebhookURL string

	// EventTick is the notification polling period.
	EventTick time.Duration
	// MaintenanceEvery is how many event ticks pass between maintenance runs.
	MaintenanceEvery uint64
}

// Load reads configuration from environment variables and returns a validated
// Config. Required: SLOTHBOT_WRITE_TOKEN, SLOTHBOT_LEDGER_CONTRACT,
// SLOTHBOT_LEDGER_SECRET_KEY, SLOTHBOT_MESSAGE_FILE. Optional with defaults:
// SLOTHBOT_READ_TOKENS (comma-separated, defaults to the write token),
// SLOTHBOT_LEDGER_RPC (derived from SLOTHBOT_LEDGER_MAINNET when unset),
// SLOTHBOT_EVENT_TICK (60s), SLOTHBOT_MAINTENANCE_EVERY (60),
// SLOTHBOT_ALERT_WEBHOOK_URL (disabled when empty).
func Load() (*Config, error) {
	writeToken := os.Getenv("SLOTHBOT_WRITE_TOKEN")
	if writeToken == "" {
		return nil, fmt.Errorf("SLOTHBOT_WRITE_TOKEN is required")
	}

	contract := os.Getenv("SLOTHBOT_LEDGER_CONTRACT")
	if contract == "" {
		return nil, fmt.Errorf("SLOTHBOT_LEDGER_CONTRACT is required")
	}
	secretKey := os.Getenv("SLOTHBOT_LEDGER_SECRET_KEY")
	if secretKey == "" {
		return nil, fmt.Errorf("SLOTHBOT_LEDGER_SECRET_KEY is required")
	}
	messageFile := os.Getenv("SLOTHBOT_MESSAGE_FILE")
	if messageFile == "" {
		return nil, fmt.Errorf("SLOTHBOT_MESSAGE_FILE is required")
	}

	readTokens := []string{writeToken}
	if v, ok := os.LookupEnv("SLOTHBOT_READ_TOKENS"); ok && v != "" {
		readTokens = nil
		for _, token := range strings.Split(v, ",") {
			token = strings.TrimSpace(token)
			if token != "" {
				readTokens = append(readTokens, token)
			}
		}
		if len(readTokens) == 0 {
			return nil, fmt.Errorf("SLOTHBOT_READ_TOKENS is set but holds no tokens")
		}
	}

	mainnet := false
	if v, ok := os.LookupEnv("SLOTHBOT_LEDGER_MAINNET"); ok {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("SLOTHBOT_LEDGER_MAINNET has invalid bool %q: %w", v, err)
		}
		mainnet = parsed
	}
	ledgerRPC := os.Getenv("SLOTHBOT_LEDGER_RPC")

	eventTick := 60 * time.Second
	if v, ok := os.LookupEnv("SLOTHBOT_EVENT_TICK"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("SLOTHBOT_EVENT_TICK has invalid duration %q: %w", v, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("SLOTHBOT_EVENT_TICK must be positive, got %q", v)
		}
		eventTick = parsed
	}

	maintenanceEvery := uint64(60)
	if v, ok := os.LookupEnv("SLOTHBOT_MAINTENANCE_EVERY"); ok {
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("SLOTHBOT_MAINTENANCE_EVERY has invalid count %q: %w", v, err)
		}
		maintenanceEvery = parsed
	}

	return &Config{
		WriteToken:       writeToken,
		ReadTokens:       readTokens,
		LedgerRPC:        ledgerRPC,
		LedgerContract:   contract,
		LedgerSecretKey:  secretKey,
		LedgerMainnet:    mainnet,
		MessageFile:      messageFile,
		AlertWebhookURL:  os.Getenv("SLOTHBOT_ALERT_WEBHOOK_URL"),
		EventTick:        eventTick,
		MaintenanceEvery: maintenanceEvery,
	}, nil
}
