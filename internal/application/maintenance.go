package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/slothwatch/slothbot/internal/domain/model"
)

// staleAfter is how long a PR may sit without updates before maintenance
// retires it.
const staleAfter = 14 * 24 * time.Hour

// runMaintenance reconciles ledger state with the platform in two passes.
// Merges must land before finalizes, so the first pass is dispatched fully
// before the second is enumerated.
func (s *Service) runMaintenance(ctx context.Context) {
	s.processEvents(ctx, s.reconcileUnmerged(ctx))
	s.processEvents(ctx, s.reconcileUnfinalized(ctx))
}

// reconcileUnmerged synthesizes Merge events for ledger-unmerged PRs the
// platform reports merged, and Stale events for ones closed or idle too long.
func (s *Service) reconcileUnmerged(ctx context.Context) []model.Event {
	unmerged, err := s.ledger.ListUnmerged(ctx)
	if err != nil {
		slog.Error("listing unmerged PRs failed", "error", err)
		return nil
	}

	now := s.Now()
	var events []model.Event
	for _, lpr := range unmerged {
		info := lpr.RepoInfo()
		pr, err := s.platform.GetPullRequest(ctx, info)
		if err != nil {
			slog.Warn("fetching PR for maintenance failed", "pr", info.FullID(), "error", err)
			continue
		}

		switch {
		case pr.IsMerged():
			reviewers, err := s.platform.ApprovedReviewers(ctx, info)
			if err != nil {
				slog.Warn("listing reviewers failed", "pr", info.FullID(), "error", err)
			}
			events = append(events, model.Event{
				Kind: model.ActionEvent{
					Action: model.MergeAction{
						Merger:    model.User{Login: pr.MergedBy},
						Reviewers: reviewers,
					},
					PR: pr,
				},
				Time: *pr.Merged,
			})

		case pr.Closed || now.Sub(pr.Updated) > staleAfter:
			events = append(events, model.Event{
				Kind: model.ActionEvent{Action: model.StaleAction{}, PR: pr},
				Time: now,
			})
		}
	}
	return events
}

// reconcileUnfinalized synthesizes Finalize events for merged PRs whose
// cooldown has been reached, timestamped with the ledger's ready-to-move time
// when it provides one.
func (s *Service) reconcileUnfinalized(ctx context.Context) []model.Event {
	unfinalized, err := s.ledger.ListUnfinalized(ctx)
	if err != nil {
		slog.Error("listing unfinalized PRs failed", "error", err)
		return nil
	}

	now := s.Now()
	var events []model.Event
	for _, lpr := range unfinalized {
		info := lpr.RepoInfo()
		pr, err := s.platform.GetPullRequest(ctx, info)
		if err != nil {
			slog.Warn("fetching PR for maintenance failed", "pr", info.FullID(), "error", err)
			continue
		}

		at := now
		if lpr.ReadyToMove != nil {
			at = *lpr.ReadyToMove
		}
		events = append(events, model.Event{
			Kind: model.ActionEvent{Action: model.FinalizeAction{}, PR: pr},
			Time: at,
		})
	}
	return events
}
