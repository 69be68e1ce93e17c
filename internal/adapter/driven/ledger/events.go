package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/slothwatch/slothbot/internal/domain/model"
)

// txResult is the broadcast_call response.
type txResult struct {
	Status string   `json:"status"`
	Logs   []string `json:"logs"`
}

// mutate signs and submits a contract call, then decodes domain events from
// the transaction logs. A non-success transaction status is an error and the
// caller must not update its in-memory snapshot.
func (c *Client) mutate(ctx context.Context, method string, args any) ([]model.DomainEvent, error) {
	call, err := c.signer.sign(c.contract, method, args)
	if err != nil {
		return nil, err
	}

	var result txResult
	if err := c.rpc.CallContext(ctx, &result, "broadcast_call", call); err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	if result.Status != "success" {
		return nil, fmt.Errorf("%s: transaction status %q", method, result.Status)
	}

	events := parseLogs(result.Logs)
	for _, ev := range events {
		slog.Debug("ledger event", "method", method, "kind", ev.Kind)
	}
	return events, nil
}

// parseLogs decodes each log line as a single-key JSON object naming one
// domain event. Unparseable lines are skipped: the contract is free to log
// anything, and control flow never depends on these events.
func parseLogs(lines []string) []model.DomainEvent {
	var events []model.DomainEvent
	for _, line := range lines {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal([]byte(line), &obj); err != nil || len(obj) != 1 {
			continue
		}
		for kind, payload := range obj {
			events = append(events, model.DomainEvent{Kind: kind, Payload: payload})
		}
	}
	return events
}
