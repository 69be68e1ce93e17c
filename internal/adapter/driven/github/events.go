package github

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	gh "github.com/google/go-github/v82/github"
	"golang.org/x/sync/errgroup"

	"github.com/slothwatch/slothbot/internal/domain/model"
)

// notificationWorkers bounds the per-notification fan-out inside one tick.
const notificationWorkers = 10

// GetEvents lists unread participating notifications through the next read
// shard and reconstructs events from each relevant one. Per-notification
// failures are logged and skipped; the notification stays unread so the next
// tick retries.
func (c *Client) GetEvents(ctx context.Context) ([]model.Event, error) {
	shardID, shard := c.nextRead()

	notifications, err := c.listNotifications(ctx, shard)
	if err != nil {
		return nil, err
	}

	var (
		mu     sync.Mutex
		events []model.Event
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(notificationWorkers)
	for _, n := range notifications {
		g.Go(func() error {
			evs, err := c.parseNotification(gctx, shard, shardID, n)
			if err != nil {
				slog.Error("notification parse failed",
					"notification", n.GetID(),
					"subject", n.GetSubject().GetTitle(),
					"error", err,
				)
				return nil
			}
			mu.Lock()
			events = append(events, evs...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slog.Debug("events collected", "shard", shardID, "notifications", len(notifications), "events", len(events))
	return events, nil
}

func (c *Client) listNotifications(ctx context.Context, shard readShard) ([]*gh.Notification, error) {
	opts := &gh.NotificationListOptions{
		All:           false,
		Participating: true,
		ListOptions:   gh.ListOptions{PerPage: 50},
	}

	var all []*gh.Notification
	for {
		notifications, resp, err := shard.gh.Activity.ListNotifications(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("listing notifications (page %d): %w", opts.Page, err)
		}
		all = append(all, notifications...)
		if resp.NextPage == 0 {
			return all, nil
		}
		opts.Page = resp.NextPage
	}
}

// parseNotification turns one notification into events. Irrelevant reasons
// and subject types are marked read immediately.
func (c *Client) parseNotification(ctx context.Context, shard readShard, shardID int, n *gh.Notification) ([]model.Event, error) {
	note := &model.Notification{ID: n.GetID(), ReadClientID: shardID}

	reason := n.GetReason()
	if reason != "mention" && reason != "state_change" {
		return nil, c.MarkRead(ctx, note)
	}

	switch n.GetSubject().GetType() {
	case "PullRequest":
		return c.parsePREvent(ctx, shard, note, n.GetSubject().GetURL())
	case "Issue":
		return c.parseIssueEvent(ctx, shard, note, n.GetSubject().GetURL())
	default:
		return nil, c.MarkRead(ctx, note)
	}
}

// parsePREvent reconstructs the command stream of a PR notification: the
// conversation is walked newest-first until the backstop (the bot's most
// recent own comment), commands found above it are reversed to chronological
// order, a PR-body mention adds an Include, and a merged PR appends a Merge
// action.
func (c *Client) parsePREvent(ctx context.Context, shard readShard, note *model.Notification, subjectURL string) ([]model.Event, error) {
	info, err := parseSubjectURL(subjectURL)
	if err != nil {
		return nil, err
	}

	pr, err := c.getPullRequest(ctx, shard.gh, info)
	if err != nil {
		return nil, err
	}

	if pr.Closed && !pr.IsMerged() {
		event := model.Event{
			Kind: model.ActionEvent{Action: model.StaleAction{}, PR: pr},
			Time: time.Now(),
		}
		if err := c.MarkRead(ctx, note); err != nil {
			slog.Warn("mark read failed", "notification", note.ID, "error", err)
		}
		return []model.Event{event}, nil
	}

	conversation, err := c.listConversation(ctx, shard.gh, info)
	if err != nil {
		return nil, err
	}

	botReply := c.firstBotComment(conversation)

	var events []model.Event
	for i := len(conversation) - 1; i >= 0; i-- {
		comment := conversation[i]
		if c.isOwnHandle(comment.User.Login) {
			break
		}
		for _, handle := range c.handles {
			cmd, ok := model.ParsePRCommand(handle, comment.Text)
			if !ok {
				continue
			}
			events = append(events, model.Event{
				Kind: model.PRCommandEvent{
					Command:      cmd,
					Sender:       comment.User,
					PR:           pr,
					Comment:      &comment,
					Notification: note,
				},
				BotReply: botReply,
				Time:     comment.Timestamp,
			})
			break
		}
	}
	reverse(events)

	if cmd, ts, ok := model.ParsePRCommandFromBody(c.writeLogin, pr); ok {
		events = append(events, model.Event{
			Kind: model.PRCommandEvent{
				Command:      cmd,
				Sender:       pr.Author,
				PR:           pr,
				Notification: note,
			},
			BotReply: botReply,
			Time:     ts,
		})
	}

	if pr.IsMerged() {
		reviews, err := c.listReviews(ctx, shard.gh, info)
		if err != nil {
			return nil, err
		}
		events = append(events, model.Event{
			Kind: model.ActionEvent{
				Action: model.MergeAction{
					Merger:    model.User{Login: pr.MergedBy},
					Reviewers: approvedReviewers(reviews),
				},
				PR: pr,
			},
			BotReply: botReply,
			Time:     *pr.Merged,
		})
	}

	if len(events) == 0 {
		return nil, c.MarkRead(ctx, note)
	}
	return events, nil
}

// parseIssueEvent applies the same backstop walk to an issue's comments, but
// only the unpause approval command is recognized there.
func (c *Client) parseIssueEvent(ctx context.Context, shard readShard, note *model.Notification, subjectURL string) ([]model.Event, error) {
	info, err := parseSubjectURL(subjectURL)
	if err != nil {
		return nil, err
	}

	comments, err := c.listComments(ctx, shard.gh, info)
	if err != nil {
		return nil, err
	}

	var events []model.Event
	for i := len(comments) - 1; i >= 0; i-- {
		comment := comments[i]
		if c.isOwnHandle(comment.User.Login) {
			break
		}
		for _, handle := range c.handles {
			cmd, ok := model.ParseIssueCommand(handle, comment.Text)
			if !ok {
				continue
			}
			events = append(events, model.Event{
				Kind: model.IssueCommandEvent{
					Command:      cmd,
					Sender:       comment.User,
					Repo:         info,
					Notification: note,
				},
				Time: comment.Timestamp,
			})
			break
		}
	}
	reverse(events)

	if len(events) == 0 {
		return nil, c.MarkRead(ctx, note)
	}
	return events, nil
}

// firstBotComment returns the earliest comment authored by the write
// credential, the status comment.
func (c *Client) firstBotComment(conversation []model.Comment) *model.Comment {
	for i := range conversation {
		if conversation[i].User.Login == c.writeLogin && conversation[i].CommentID != nil {
			return &conversation[i]
		}
	}
	return nil
}

func reverse(events []model.Event) {
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
}
