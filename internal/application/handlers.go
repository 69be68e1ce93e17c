package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/slothwatch/slothbot/internal/domain/model"
	"github.com/slothwatch/slothbot/internal/messages"
)

// includeWindow is how long after a close or merge a PR still accepts
// Include.
const includeWindow = 24 * time.Hour

// handleInclude starts tracking a PR. The first successful Include also
// posts the status comment, so it never queues a separate status refresh.
func (d *Dispatcher) handleInclude(ctx context.Context, pc prContext) (Outcome, error) {
	info, pr := pc.info, pc.pr
	if info.Exists {
		return skipped()
	}

	now := d.Now()
	closedTooLong := pr.Closed && !pr.IsMerged() && pr.ClosedAt != nil && now.Sub(*pr.ClosedAt) >= includeWindow
	mergedTooLong := pr.IsMerged() && now.Sub(*pr.Merged) >= includeWindow
	if closedTooLong || mergedTooLong {
		return d.replyWithError(ctx, pr.RepoInfo, messages.ErrorLateInclude, map[string]string{
			"user": pc.sender.Login,
		})
	}

	if info.Excluded && !pc.sender.IsMaintainer() {
		return d.replyWithError(ctx, pr.RepoInfo, messages.ErrorRightsViolation, map[string]string{
			"user": pc.sender.Login,
		})
	}

	// A stranger starting tracking for an unregistered author turns into an
	// invitation instead of a silent include.
	if pc.sender.Login != pr.Author.Login {
		author, err := d.ledger.UserInfo(ctx, pr.Author.Login)
		if err != nil {
			return Outcome{}, err
		}
		if author == nil {
			if _, err := d.platform.PostReply(ctx, pr.RepoInfo, d.messages.InviteMessage(pr.Author.Login, pc.sender.Login)); err != nil {
				return Outcome{}, err
			}
			return success(false)
		}
	}

	if _, err := d.ledger.Include(ctx, pr, pc.sender.IsMaintainer()); err != nil {
		return Outcome{}, err
	}
	info.Exists = true
	info.Excluded = false

	if pc.comment != nil && pc.comment.CommentID != nil {
		if err := d.platform.React(ctx, pr.RepoInfo, *pc.comment.CommentID); err != nil {
			slog.Warn("reaction failed", "pr", pr.RepoInfo.FullID(), "error", err)
		}
	}

	body := d.messages.Render(messages.IncludeBasic, map[string]string{
		"user": pr.Author.Login,
	})
	if _, err := d.platform.PostReply(ctx, pr.RepoInfo, body); err != nil {
		return Outcome{}, err
	}
	return success(false)
}

// handleScore records a reviewer's vote. A muted score (the merge path
// replaying pre-merge score comments) suppresses every reply but still
// mutates the ledger under the same authorization rules.
func (d *Dispatcher) handleScore(ctx context.Context, pc prContext, raw string, muted bool) (Outcome, error) {
	info, pr := pc.info, pc.pr
	if info.Executed {
		return skipped()
	}

	if !info.Exists {
		if _, err := d.handleInclude(ctx, pc); err != nil {
			return Outcome{}, err
		}
		if !info.Exists {
			return skipped()
		}
	}

	if pc.sender.Login == pr.Author.Login {
		if muted {
			return skipped()
		}
		return d.replyWithError(ctx, pr.RepoInfo, messages.ErrorSelfScore, map[string]string{
			"user": pc.sender.Login,
		})
	}

	if !pc.sender.IsMaintainer() {
		if muted {
			return skipped()
		}
		return d.replyWithError(ctx, pr.RepoInfo, messages.ErrorRightsViolation, map[string]string{
			"user": pc.sender.Login,
		})
	}

	score, edited := model.NormalizeScore(raw)
	if _, err := d.ledger.Score(ctx, pr.RepoInfo, pc.sender.Login, score); err != nil {
		return Outcome{}, err
	}
	info.SetVote(pc.sender.Login, score)

	switch {
	case edited && !muted:
		if err := d.reply(ctx, pr.RepoInfo, messages.CorrectableScoring, map[string]string{
			"reviewer":        pc.sender.Login,
			"corrected_score": formatScore(score),
			"score":           raw,
		}); err != nil {
			return Outcome{}, err
		}
	case !edited && !muted && pc.comment != nil && pc.comment.CommentID != nil:
		if err := d.platform.React(ctx, pr.RepoInfo, *pc.comment.CommentID); err != nil {
			slog.Warn("reaction failed", "pr", pr.RepoInfo.FullID(), "error", err)
		}
	}
	return success(true)
}

// handlePause pauses the repository; maintainers only.
func (d *Dispatcher) handlePause(ctx context.Context, pc prContext) (Outcome, error) {
	if !pc.sender.IsMaintainer() {
		return d.replyWithError(ctx, pc.pr.RepoInfo, messages.ErrorRightsViolation, map[string]string{
			"user": pc.sender.Login,
		})
	}
	if pc.info.PausedRepo {
		return d.replyWithError(ctx, pc.pr.RepoInfo, messages.ErrorPausePaused, map[string]string{
			"user": pc.sender.Login,
		})
	}

	if _, err := d.ledger.Pause(ctx, pc.pr.RepoInfo.Owner, pc.pr.RepoInfo.Repo); err != nil {
		return Outcome{}, err
	}
	pc.info.PausedRepo = true
	pc.info.Paused = true

	if err := d.reply(ctx, pc.pr.RepoInfo, messages.Pause, map[string]string{
		"user": pc.sender.Login,
	}); err != nil {
		return Outcome{}, err
	}
	return success(false)
}

// handleUnpause resumes a paused repository; maintainers only. fromIssue
// selects the issue-path reply wording.
func (d *Dispatcher) handleUnpause(ctx context.Context, pc prContext, fromIssue bool) (Outcome, error) {
	if !pc.sender.IsMaintainer() {
		return d.replyWithError(ctx, pc.pr.RepoInfo, messages.ErrorRightsViolation, map[string]string{
			"user": pc.sender.Login,
		})
	}
	if !pc.info.PausedRepo {
		return d.replyWithError(ctx, pc.pr.RepoInfo, messages.ErrorUnpauseUnpaused, map[string]string{
			"user": pc.sender.Login,
		})
	}

	if _, err := d.ledger.Unpause(ctx, pc.pr.RepoInfo.Owner, pc.pr.RepoInfo.Repo); err != nil {
		return Outcome{}, err
	}
	pc.info.PausedRepo = false
	pc.info.Paused = false

	cat := messages.Unpause
	if fromIssue {
		cat = messages.UnpauseIssue
	}
	if err := d.reply(ctx, pc.pr.RepoInfo, cat, map[string]string{
		"user": pc.sender.Login,
	}); err != nil {
		return Outcome{}, err
	}
	return success(false)
}

// handleExclude removes the PR from tracking; maintainers only.
func (d *Dispatcher) handleExclude(ctx context.Context, pc prContext) (Outcome, error) {
	if !pc.sender.IsMaintainer() {
		return d.replyWithError(ctx, pc.pr.RepoInfo, messages.ErrorRightsViolation, map[string]string{
			"user": pc.sender.Login,
		})
	}

	if _, err := d.ledger.Exclude(ctx, pc.pr.RepoInfo); err != nil {
		return Outcome{}, err
	}
	pc.info.Excluded = true

	if err := d.reply(ctx, pc.pr.RepoInfo, messages.Exclude, map[string]string{
		"user": pc.sender.Login,
	}); err != nil {
		return Outcome{}, err
	}
	return success(false)
}

// handleUnknown treats the first mention on an untracked PR as an Include;
// anything else gets the unknown-command reply.
func (d *Dispatcher) handleUnknown(ctx context.Context, pc prContext, cmd model.UnknownCommand) (Outcome, error) {
	if !pc.info.Exists {
		return d.handleInclude(ctx, pc)
	}
	return d.replyWithError(ctx, pc.pr.RepoInfo, messages.ErrorUnknownCommand, map[string]string{
		"user":    pc.sender.Login,
		"command": cmd.Verb,
	})
}
