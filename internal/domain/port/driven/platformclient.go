package driven

import (
	"context"

	"github.com/slothwatch/slothbot/internal/domain/model"
)

// PlatformClient defines the driven port for the hosted code platform.
// GetEvents reads notifications and reconstructs the command stream; the
// remaining methods are the targeted reads and writes the handlers need.
type PlatformClient interface {
	// GetEvents lists unread notifications through the next read credential
	// and turns each relevant one into zero or more chronologically ordered
	// events.
	GetEvents(ctx context.Context) ([]model.Event, error)

	GetPullRequest(ctx context.Context, info model.RepoInfo) (*model.PullRequest, error)
	// GetBotComment returns the bot's first comment on the PR (the status
	// comment), or nil when the bot has not replied yet.
	GetBotComment(ctx context.Context, info model.RepoInfo) (*model.Comment, error)
	// IsActivePR reports whether at least two distinct users other than the
	// bot and the PR author commented or reviewed.
	IsActivePR(ctx context.Context, info model.RepoInfo, author string) (bool, error)
	// PreMergeScores returns score commands found in comments posted before
	// the PR's merge time.
	PreMergeScores(ctx context.Context, pr *model.PullRequest) ([]model.PendingScore, error)
	// ApprovedReviewers returns the logins of approved or pending reviews.
	ApprovedReviewers(ctx context.Context, info model.RepoInfo) ([]string, error)

	PostReply(ctx context.Context, info model.RepoInfo, text string) (*model.Comment, error)
	EditComment(ctx context.Context, info model.RepoInfo, commentID int64, text string) error
	// React adds a thumbs-up reaction to the comment.
	React(ctx context.Context, info model.RepoInfo, commentID int64) error
	// MarkRead marks the notification's thread read, through the same read
	// credential that observed it.
	MarkRead(ctx context.Context, n *model.Notification) error
}
