// Package application contains the event dispatcher, command and action
// handlers, the maintenance loop, and the tick scheduler.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/slothwatch/slothbot/internal/domain/model"
	"github.com/slothwatch/slothbot/internal/domain/port/driven"
	"github.com/slothwatch/slothbot/internal/messages"
)

// Result classifies what a handler did with an event.
type Result int

const (
	ResultSkipped Result = iota
	ResultRepliedWithError
	ResultSuccess
)

// Outcome is a handler's result plus whether the status comment needs a
// refresh after the PR's event list completes.
type Outcome struct {
	Result       Result
	UpdateStatus bool
}

func skipped() (Outcome, error) {
	return Outcome{Result: ResultSkipped}, nil
}

func success(updateStatus bool) (Outcome, error) {
	return Outcome{Result: ResultSuccess, UpdateStatus: updateStatus}, nil
}

// Dispatcher executes events against a freshly read ledger snapshot,
// enforcing the gating precedence before any command handler runs.
type Dispatcher struct {
	platform driven.PlatformClient
	ledger   driven.LedgerClient
	messages *messages.Loader

	// Now is the clock used for the include window and stale checks;
	// overridable in tests.
	Now func() time.Time
}

// NewDispatcher wires the dispatcher with its driven ports.
func NewDispatcher(platform driven.PlatformClient, ledger driven.LedgerClient, loader *messages.Loader) *Dispatcher {
	return &Dispatcher{
		platform: platform,
		ledger:   ledger,
		messages: loader,
		Now:      time.Now,
	}
}

// prContext threads one PR command's surroundings through the handlers.
type prContext struct {
	pr       *model.PullRequest
	sender   model.User
	comment  *model.Comment
	info     *model.PRInfo
	botReply *model.Comment
}

// ExecuteGroup runs one PR's (or issue's) events serially in ascending time
// order against a single fresh PRInfo snapshot. Handlers mutate the snapshot
// as they write to the ledger so later events in the tick observe earlier
// writes. Afterwards the status comment is refreshed if any handler asked
// for it, and notifications whose events all completed are marked read.
func (d *Dispatcher) ExecuteGroup(ctx context.Context, events []model.Event) error {
	if len(events) == 0 {
		return nil
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Time.Before(events[j].Time)
	})

	repoInfo := events[0].Kind.RepoInfo()
	info, err := d.ledger.CheckInfo(ctx, repoInfo)
	if err != nil {
		return fmt.Errorf("reading ledger snapshot for %s: %w", repoInfo.FullID(), err)
	}

	var (
		updateStatus bool
		pr           *model.PullRequest
		botReply     *model.Comment
		failed       = map[string]bool{}
	)
	for _, ev := range events {
		if ev.BotReply != nil {
			botReply = ev.BotReply
		}
		if p := eventPR(ev); p != nil {
			pr = p
		}

		out, err := d.Execute(ctx, ev, info)
		if err != nil {
			slog.Error("event handler failed", "pr", ev.FullID(), "error", err)
			if n := ev.Notification(); n != nil {
				failed[n.ID] = true
			}
			continue
		}
		updateStatus = updateStatus || out.UpdateStatus
	}

	if updateStatus && pr != nil {
		if err := d.refreshStatus(ctx, pr, info, botReply); err != nil {
			slog.Error("status refresh failed", "pr", repoInfo.FullID(), "error", err)
		}
	}

	d.markProcessedRead(ctx, events, failed)
	return nil
}

// markProcessedRead marks each distinct notification read unless one of its
// events failed; unread notifications are re-observed next tick.
func (d *Dispatcher) markProcessedRead(ctx context.Context, events []model.Event, failed map[string]bool) {
	done := map[string]bool{}
	for _, ev := range events {
		n := ev.Notification()
		if n == nil || done[n.ID] || failed[n.ID] {
			continue
		}
		done[n.ID] = true
		if err := d.platform.MarkRead(ctx, n); err != nil {
			slog.Warn("mark read failed", "notification", n.ID, "error", err)
		}
	}
}

// Execute runs a single event. Commands pass the gating chain first;
// synthesized actions carry their own state checks.
func (d *Dispatcher) Execute(ctx context.Context, ev model.Event, info *model.PRInfo) (Outcome, error) {
	switch k := ev.Kind.(type) {
	case model.PRCommandEvent:
		return d.executePRCommand(ctx, k, info, ev.BotReply)
	case model.IssueCommandEvent:
		return d.executeIssueCommand(ctx, k, info)
	case model.ActionEvent:
		return d.executeAction(ctx, k, info)
	default:
		return Outcome{}, fmt.Errorf("unhandled event kind %T", ev.Kind)
	}
}

// executePRCommand applies the gating precedence, first match returns:
// disallowed org, blocked repo, paused repo, executed PR, excluded PR, then
// the per-command handler.
func (d *Dispatcher) executePRCommand(ctx context.Context, k model.PRCommandEvent, info *model.PRInfo, botReply *model.Comment) (Outcome, error) {
	pc := prContext{
		pr:       k.PR,
		sender:   k.Sender,
		comment:  k.Comment,
		info:     info,
		botReply: botReply,
	}
	firstInteraction := botReply == nil

	switch {
	case !info.AllowedRepo:
		if firstInteraction {
			return d.replyWithError(ctx, k.PR.RepoInfo, messages.ErrorOrgNotInAllowedList, map[string]string{
				"user": k.Sender.Login,
			})
		}
		return skipped()

	case info.BlockedRepo:
		return skipped()

	case info.Paused && !isPauseOrUnpause(k.Command):
		if firstInteraction {
			return d.replyWithError(ctx, k.PR.RepoInfo, messages.ErrorPaused, map[string]string{
				"user": k.Sender.Login,
			})
		}
		return skipped()

	case info.Executed:
		if _, isScore := k.Command.(model.ScoreCommand); isScore {
			return d.replyWithError(ctx, k.PR.RepoInfo, messages.ErrorLateScoring, map[string]string{
				"user": k.Sender.Login,
			})
		}
		return skipped()
	}

	if _, isInclude := k.Command.(model.IncludeCommand); info.Excluded && !isInclude {
		return skipped()
	}

	switch cmd := k.Command.(type) {
	case model.IncludeCommand:
		return d.handleInclude(ctx, pc)
	case model.ScoreCommand:
		return d.handleScore(ctx, pc, cmd.Raw, false)
	case model.PauseCommand:
		return d.handlePause(ctx, pc)
	case model.UnpauseCommand:
		return d.handleUnpause(ctx, pc, cmd.FromIssue)
	case model.ExcludeCommand:
		return d.handleExclude(ctx, pc)
	case model.UpdateCommand:
		return success(true)
	case model.UnknownCommand:
		return d.handleUnknown(ctx, pc, cmd)
	default:
		return Outcome{}, fmt.Errorf("unhandled command %T", k.Command)
	}
}

// executeIssueCommand handles the issue-path unpause approval. The blocked
// gate replies here, unlike the silent PR path.
func (d *Dispatcher) executeIssueCommand(ctx context.Context, k model.IssueCommandEvent, info *model.PRInfo) (Outcome, error) {
	switch {
	case !info.AllowedRepo:
		return d.replyWithError(ctx, k.Repo, messages.ErrorOrgNotInAllowedList, map[string]string{
			"user": k.Sender.Login,
		})
	case info.BlockedRepo:
		return d.replyWithError(ctx, k.Repo, messages.ErrorRepoIsBanned, map[string]string{
			"user": k.Sender.Login,
		})
	}

	pc := prContext{
		pr: &model.PullRequest{
			RepoInfo: k.Repo,
			Author:   k.Sender,
		},
		sender: k.Sender,
		info:   info,
	}
	return d.handleUnpause(ctx, pc, true)
}

func (d *Dispatcher) executeAction(ctx context.Context, k model.ActionEvent, info *model.PRInfo) (Outcome, error) {
	switch action := k.Action.(type) {
	case model.MergeAction:
		return d.handleMerge(ctx, k.PR, action, info)
	case model.StaleAction:
		return d.handleStale(ctx, k.PR, info)
	case model.FinalizeAction:
		return d.handleFinalize(ctx, k.PR, info)
	default:
		return Outcome{}, fmt.Errorf("unhandled action %T", k.Action)
	}
}

func isPauseOrUnpause(cmd model.PRCommand) bool {
	switch cmd.(type) {
	case model.PauseCommand, model.UnpauseCommand:
		return true
	}
	return false
}

func eventPR(ev model.Event) *model.PullRequest {
	switch k := ev.Kind.(type) {
	case model.PRCommandEvent:
		return k.PR
	case model.ActionEvent:
		return k.PR
	}
	return nil
}

// reply renders a category and posts it as a comment.
func (d *Dispatcher) reply(ctx context.Context, info model.RepoInfo, cat messages.Category, vars map[string]string) error {
	if _, err := d.platform.PostReply(ctx, info, d.messages.Render(cat, vars)); err != nil {
		return fmt.Errorf("replying on %s: %w", info.FullID(), err)
	}
	return nil
}

// replyWithError posts a user-visible refusal and classifies the outcome.
func (d *Dispatcher) replyWithError(ctx context.Context, info model.RepoInfo, cat messages.Category, vars map[string]string) (Outcome, error) {
	if err := d.reply(ctx, info, cat, vars); err != nil {
		return Outcome{}, err
	}
	return Outcome{Result: ResultRepliedWithError}, nil
}

func formatScore(score uint32) string {
	return strconv.FormatUint(uint64(score), 10)
}
