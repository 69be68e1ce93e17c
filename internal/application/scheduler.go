package application

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/slothwatch/slothbot/internal/domain/model"
	"github.com/slothwatch/slothbot/internal/domain/port/driven"
)

// Service runs the bot's two timers: the event tick reading platform
// notifications, and the maintenance pass every maintenanceEvery ticks.
type Service struct {
	platform   driven.PlatformClient
	ledger     driven.LedgerClient
	dispatcher *Dispatcher

	eventTick        time.Duration
	maintenanceEvery uint64

	// Now is overridable in tests.
	Now func() time.Time
}

// NewService wires the scheduler. maintenanceEvery is measured in event
// ticks; zero disables maintenance.
func NewService(platform driven.PlatformClient, ledger driven.LedgerClient, dispatcher *Dispatcher, eventTick time.Duration, maintenanceEvery uint64) *Service {
	return &Service{
		platform:         platform,
		ledger:           ledger,
		dispatcher:       dispatcher,
		eventTick:        eventTick,
		maintenanceEvery: maintenanceEvery,
		Now:              time.Now,
	}
}

// Start runs the tick loop until the context is cancelled. The first tick
// fires immediately and includes a maintenance pass, so a restart reconciles
// without waiting an hour.
func (s *Service) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.eventTick)
	defer ticker.Stop()

	for tick := uint64(0); ; tick++ {
		if s.maintenanceEvery > 0 && tick%s.maintenanceEvery == 0 {
			s.runMaintenance(ctx)
		}
		s.runEventTick(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// runEventTick reads one batch of notifications and dispatches the resulting
// events.
func (s *Service) runEventTick(ctx context.Context) {
	events, err := s.platform.GetEvents(ctx)
	if err != nil {
		slog.Error("reading platform events failed", "error", err)
		return
	}
	if len(events) == 0 {
		return
	}
	slog.Info("event tick", "events", len(events))
	s.processEvents(ctx, events)
}

// processEvents groups events by PR and executes each group in its own
// goroutine; within a group events run strictly sequentially.
func (s *Service) processEvents(ctx context.Context, events []model.Event) {
	if len(events) == 0 {
		return
	}

	groups := map[string][]model.Event{}
	for _, ev := range events {
		id := ev.FullID()
		groups[id] = append(groups[id], ev)
	}

	g, ctx := errgroup.WithContext(ctx)
	for id, group := range groups {
		g.Go(func() error {
			if err := s.dispatcher.ExecuteGroup(ctx, group); err != nil {
				slog.Error("event group failed", "pr", id, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}
