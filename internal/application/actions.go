package application

import (
	"context"
	"strings"

	"github.com/slothwatch/slothbot/internal/domain/model"
	"github.com/slothwatch/slothbot/internal/messages"
)

// handleMerge records the merge in the ledger. When nobody scored the PR
// before merge, pre-merge score comments are replayed muted; failing that, a
// reply nudges whoever can still score it.
func (d *Dispatcher) handleMerge(ctx context.Context, pr *model.PullRequest, action model.MergeAction, info *model.PRInfo) (Outcome, error) {
	if info.Merged {
		return skipped()
	}

	if _, err := d.ledger.Merge(ctx, pr.RepoInfo); err != nil {
		return Outcome{}, err
	}
	info.Merged = true

	if info.PausedRepo || info.BlockedRepo {
		return success(false)
	}
	if len(info.Votes) > 0 {
		return success(true)
	}

	scores, err := d.platform.PreMergeScores(ctx, pr)
	if err != nil {
		return Outcome{}, err
	}
	active, err := d.platform.IsActivePR(ctx, pr.RepoInfo, pr.Author.Login)
	if err != nil {
		return Outcome{}, err
	}
	autoscore := "1"
	if active {
		autoscore = "2"
	}

	switch {
	case len(scores) > 0:
		for _, s := range scores {
			pc := prContext{pr: pr, sender: s.Sender, info: info}
			if _, err := d.handleScore(ctx, pc, s.Raw, true); err != nil {
				return Outcome{}, err
			}
		}

	case action.Merger.Login != pr.Author.Login:
		if err := d.reply(ctx, pr.RepoInfo, messages.MergeWithoutScoreByOtherParty, map[string]string{
			"maintainer":      action.Merger.Login,
			"potential_score": autoscore,
		}); err != nil {
			return Outcome{}, err
		}

	case len(action.Reviewers) > 0:
		if err := d.reply(ctx, pr.RepoInfo, messages.MergeWithoutScoreByOtherParty, map[string]string{
			"maintainer":      strings.Join(action.Reviewers, " @"),
			"potential_score": autoscore,
		}); err != nil {
			return Outcome{}, err
		}

	default:
		if err := d.reply(ctx, pr.RepoInfo, messages.MergeWithoutScoreByAuthorWithoutReviewers, map[string]string{
			"user":            pr.Author.Login,
			"potential_score": autoscore,
		}); err != nil {
			return Outcome{}, err
		}
	}
	return success(true)
}

// handleStale retires an abandoned PR and resets the tracking snapshot so a
// later Include starts over.
func (d *Dispatcher) handleStale(ctx context.Context, pr *model.PullRequest, info *model.PRInfo) (Outcome, error) {
	if info.Merged {
		return skipped()
	}

	if _, err := d.ledger.Stale(ctx, pr.RepoInfo); err != nil {
		return Outcome{}, err
	}
	info.ResetAfterStale()

	if !info.AllowedRepo || info.Paused {
		return success(false)
	}
	if pr.Closed {
		return success(true)
	}
	if err := d.reply(ctx, pr.RepoInfo, messages.Stale, map[string]string{
		"user": pr.Author.Login,
	}); err != nil {
		return Outcome{}, err
	}
	return success(true)
}

// handleFinalize settles the PR's score in the ledger once the cooldown has
// passed.
func (d *Dispatcher) handleFinalize(ctx context.Context, pr *model.PullRequest, info *model.PRInfo) (Outcome, error) {
	if info.Executed {
		return skipped()
	}

	active, err := d.platform.IsActivePR(ctx, pr.RepoInfo, pr.Author.Login)
	if err != nil {
		return Outcome{}, err
	}
	if _, err := d.ledger.Finalize(ctx, pr.RepoInfo, active); err != nil {
		return Outcome{}, err
	}
	info.Executed = true

	if !info.AllowedRepo {
		return success(false)
	}
	if err := d.reply(ctx, pr.RepoInfo, messages.Final, map[string]string{
		"user":  pr.Author.Login,
		"score": formatScore(info.AverageScore()),
	}); err != nil {
		return Outcome{}, err
	}
	return success(true)
}
