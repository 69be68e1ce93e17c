package driven

import (
	"context"

	"github.com/slothwatch/slothbot/internal/domain/model"
)

// LedgerClient defines the driven port for the authoritative state store.
// Mutations return the domain events decoded from the transaction's logs;
// a non-success transaction status surfaces as an error.
type LedgerClient interface {
	// CheckInfo reads a fresh PR snapshot for gating decisions.
	CheckInfo(ctx context.Context, info model.RepoInfo) (*model.PRInfo, error)
	// UserInfo returns the registered user, or nil when unknown.
	UserInfo(ctx context.Context, login string) (*model.LedgerUser, error)

	Include(ctx context.Context, pr *model.PullRequest, isMaintainer bool) ([]model.DomainEvent, error)
	Score(ctx context.Context, info model.RepoInfo, reviewer string, score uint32) ([]model.DomainEvent, error)
	Merge(ctx context.Context, info model.RepoInfo) ([]model.DomainEvent, error)
	Stale(ctx context.Context, info model.RepoInfo) ([]model.DomainEvent, error)
	Finalize(ctx context.Context, info model.RepoInfo, active bool) ([]model.DomainEvent, error)
	Exclude(ctx context.Context, info model.RepoInfo) ([]model.DomainEvent, error)
	Pause(ctx context.Context, owner, repo string) ([]model.DomainEvent, error)
	Unpause(ctx context.Context, owner, repo string) ([]model.DomainEvent, error)

	ListUnmerged(ctx context.Context) ([]model.LedgerPR, error)
	ListUnfinalized(ctx context.Context) ([]model.LedgerPR, error)
}
