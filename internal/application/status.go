package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/slothwatch/slothbot/internal/domain/model"
)

// refreshStatus edits the bot's status comment in place, or posts it when the
// bot has not commented yet. botReply is the comment observed during event
// parsing; when nil the PR's comments are consulted directly.
func (d *Dispatcher) refreshStatus(ctx context.Context, pr *model.PullRequest, info *model.PRInfo, botReply *model.Comment) error {
	if botReply == nil {
		found, err := d.platform.GetBotComment(ctx, pr.RepoInfo)
		if err != nil {
			return fmt.Errorf("locating status comment on %s: %w", pr.RepoInfo.FullID(), err)
		}
		botReply = found
	}

	body := renderStatus(pr, info, d.messages.BotName())
	if botReply != nil && botReply.CommentID != nil {
		if err := d.platform.EditComment(ctx, pr.RepoInfo, *botReply.CommentID, body); err != nil {
			return fmt.Errorf("editing status comment on %s: %w", pr.RepoInfo.FullID(), err)
		}
		return nil
	}
	if _, err := d.platform.PostReply(ctx, pr.RepoInfo, body); err != nil {
		return fmt.Errorf("posting status comment on %s: %w", pr.RepoInfo.FullID(), err)
	}
	return nil
}

// renderStatus builds the status comment body: the vote table, the running
// average, and the PR's lifecycle stage.
func renderStatus(pr *model.PullRequest, info *model.PRInfo, botName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### %s status for @%s\n\n", botName, pr.Author.Login)

	if len(info.Votes) == 0 {
		b.WriteString("No scores yet.\n")
	} else {
		b.WriteString("| Reviewer | Score |\n|---|---|\n")
		for _, v := range info.Votes {
			fmt.Fprintf(&b, "| @%s | %d |\n", v.User, v.Score)
		}
		fmt.Fprintf(&b, "\nAverage score: **%d**\n", info.AverageScore())
	}

	fmt.Fprintf(&b, "\nStage: %s\n", stage(info))
	return b.String()
}

func stage(info *model.PRInfo) string {
	switch {
	case info.Excluded:
		return "excluded"
	case info.Executed:
		return "finalized"
	case info.Merged:
		return "merged, awaiting finalization"
	case info.Paused:
		return "paused"
	case info.Exists:
		return "tracked, awaiting scores"
	default:
		return "not tracked"
	}
}
