// Package ledger implements the LedgerClient port over JSON-RPC. View
// methods are plain calls; mutations submit an ed25519-signed function call
// against the contract and decode domain events from the transaction logs.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/slothwatch/slothbot/internal/domain/model"
	"github.com/slothwatch/slothbot/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.LedgerClient = (*Client)(nil)

// Default RPC endpoints per network, used when no explicit endpoint is
// configured.
const (
	MainnetEndpoint = "https://rpc.mainnet.slothchain.io"
	TestnetEndpoint = "https://rpc.testnet.slothchain.io"
)

// pageLimit is the page size for the ledger's paginated views.
const pageLimit = 100

// Client talks JSON-RPC to the ledger node. The underlying rpc.Client is
// safe for concurrent use, so one Client is shared by all tasks.
type Client struct {
	rpc      *rpc.Client
	contract string
	signer   *signer
}

// Dial connects to the ledger endpoint. The transport retries transient
// failures via retryablehttp; retry logging is silenced so it does not
// bypass slog.
func Dial(ctx context.Context, endpoint, contract, secretKey string) (*Client, error) {
	signer, err := newSigner(secretKey)
	if err != nil {
		return nil, err
	}

	retry := retryablehttp.NewClient()
	retry.RetryMax = 3
	retry.Logger = nil

	rpcClient, err := rpc.DialOptions(ctx, endpoint, rpc.WithHTTPClient(retry.StandardClient()))
	if err != nil {
		return nil, fmt.Errorf("dialing ledger endpoint %s: %w", endpoint, err)
	}

	return &Client{
		rpc:      rpcClient,
		contract: contract,
		signer:   signer,
	}, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.rpc.Close()
}

// prLocator is the argument shape shared by all per-PR calls.
type prLocator struct {
	Org    string `json:"org"`
	Repo   string `json:"repo"`
	Number int    `json:"number"`
}

func locate(info model.RepoInfo) prLocator {
	return prLocator{Org: info.Owner, Repo: info.Repo, Number: info.Number}
}

// CheckInfo reads the ledger's snapshot of a PR.
func (c *Client) CheckInfo(ctx context.Context, info model.RepoInfo) (*model.PRInfo, error) {
	var out model.PRInfo
	if err := c.rpc.CallContext(ctx, &out, "check_info", locate(info)); err != nil {
		return nil, fmt.Errorf("check_info %s: %w", info.FullID(), err)
	}
	return &out, nil
}

// UserInfo returns the registered user, or nil when the ledger does not know
// the login.
func (c *Client) UserInfo(ctx context.Context, login string) (*model.LedgerUser, error) {
	var out *model.LedgerUser
	arg := struct {
		Handle string `json:"handle"`
	}{Handle: login}
	if err := c.rpc.CallContext(ctx, &out, "user", arg); err != nil {
		return nil, fmt.Errorf("user %s: %w", login, err)
	}
	return out, nil
}

// Include starts tracking a PR.
func (c *Client) Include(ctx context.Context, pr *model.PullRequest, isMaintainer bool) ([]model.DomainEvent, error) {
	args := struct {
		prLocator
		CreatedAt    time.Time `json:"created_at"`
		IsMaintainer bool      `json:"is_maintainer"`
	}{
		prLocator:    locate(pr.RepoInfo),
		CreatedAt:    pr.Created,
		IsMaintainer: isMaintainer,
	}
	return c.mutate(ctx, "sloth_include", args)
}

// Score records a reviewer's vote.
func (c *Client) Score(ctx context.Context, info model.RepoInfo, reviewer string, score uint32) ([]model.DomainEvent, error) {
	args := struct {
		prLocator
		Reviewer string `json:"reviewer"`
		Score    uint32 `json:"score"`
	}{
		prLocator: locate(info),
		Reviewer:  reviewer,
		Score:     score,
	}
	return c.mutate(ctx, "sloth_scored", args)
}

// Merge records that the PR was merged.
func (c *Client) Merge(ctx context.Context, info model.RepoInfo) ([]model.DomainEvent, error) {
	return c.mutate(ctx, "sloth_merged", locate(info))
}

// Stale drops an inactive PR from tracking.
func (c *Client) Stale(ctx context.Context, info model.RepoInfo) ([]model.DomainEvent, error) {
	return c.mutate(ctx, "sloth_stale", locate(info))
}

// Finalize moves a merged, scored PR past its grace period.
func (c *Client) Finalize(ctx context.Context, info model.RepoInfo, active bool) ([]model.DomainEvent, error) {
	args := struct {
		prLocator
		Active bool `json:"active"`
	}{
		prLocator: locate(info),
		Active:    active,
	}
	return c.mutate(ctx, "sloth_finalize", args)
}

// Exclude removes a PR from tracking until an explicit Include.
func (c *Client) Exclude(ctx context.Context, info model.RepoInfo) ([]model.DomainEvent, error) {
	return c.mutate(ctx, "sloth_exclude", locate(info))
}

type repoLocator struct {
	Org  string `json:"org"`
	Repo string `json:"repo"`
}

// Pause pauses the whole repository.
func (c *Client) Pause(ctx context.Context, owner, repo string) ([]model.DomainEvent, error) {
	return c.mutate(ctx, "pause_repo", repoLocator{Org: owner, Repo: repo})
}

// Unpause resumes a paused repository.
func (c *Client) Unpause(ctx context.Context, owner, repo string) ([]model.DomainEvent, error) {
	return c.mutate(ctx, "unpause_repo", repoLocator{Org: owner, Repo: repo})
}

// pageArgs is the argument shape of the paginated views.
type pageArgs struct {
	Page  uint64 `json:"page"`
	Limit uint64 `json:"limit"`
}

// ListUnmerged returns every tracked PR the ledger still considers unmerged.
func (c *Client) ListUnmerged(ctx context.Context) ([]model.LedgerPR, error) {
	return collectPages(ctx, func(ctx context.Context, page, limit uint64) ([]model.LedgerPR, error) {
		var out []model.LedgerPR
		if err := c.rpc.CallContext(ctx, &out, "unmerged_prs", pageArgs{Page: page, Limit: limit}); err != nil {
			return nil, fmt.Errorf("unmerged_prs page %d: %w", page, err)
		}
		return out, nil
	})
}

// ListUnfinalized returns every merged PR whose grace period may have passed.
func (c *Client) ListUnfinalized(ctx context.Context) ([]model.LedgerPR, error) {
	return collectPages(ctx, func(ctx context.Context, page, limit uint64) ([]model.LedgerPR, error) {
		var out []model.LedgerPR
		if err := c.rpc.CallContext(ctx, &out, "unfinalized_prs", pageArgs{Page: page, Limit: limit}); err != nil {
			return nil, fmt.Errorf("unfinalized_prs page %d: %w", page, err)
		}
		return out, nil
	})
}

// ListPRs returns every tracked PR.
func (c *Client) ListPRs(ctx context.Context) ([]model.LedgerPR, error) {
	return collectPages(ctx, func(ctx context.Context, page, limit uint64) ([]model.LedgerPR, error) {
		var out []model.LedgerPR
		if err := c.rpc.CallContext(ctx, &out, "prs", pageArgs{Page: page, Limit: limit}); err != nil {
			return nil, fmt.Errorf("prs page %d: %w", page, err)
		}
		return out, nil
	})
}

// ListUsers returns every registered participant.
func (c *Client) ListUsers(ctx context.Context) ([]model.LedgerUser, error) {
	return collectPages(ctx, func(ctx context.Context, page, limit uint64) ([]model.LedgerUser, error) {
		var out []model.LedgerUser
		if err := c.rpc.CallContext(ctx, &out, "users", pageArgs{Page: page, Limit: limit}); err != nil {
			return nil, fmt.Errorf("users page %d: %w", page, err)
		}
		return out, nil
	})
}

// ListRepos returns every repository the ledger knows about.
func (c *Client) ListRepos(ctx context.Context) ([]model.LedgerRepo, error) {
	return collectPages(ctx, func(ctx context.Context, page, limit uint64) ([]model.LedgerRepo, error) {
		var out []model.LedgerRepo
		if err := c.rpc.CallContext(ctx, &out, "repos", pageArgs{Page: page, Limit: limit}); err != nil {
			return nil, fmt.Errorf("repos page %d: %w", page, err)
		}
		return out, nil
	})
}

// collectPages iterates a paginated view until an empty or short page.
func collectPages[T any](ctx context.Context, fetch func(ctx context.Context, page, limit uint64) ([]T, error)) ([]T, error) {
	var all []T
	for page := uint64(0); ; page++ {
		items, err := fetch(ctx, page, pageLimit)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if uint64(len(items)) < pageLimit {
			return all, nil
		}
	}
}
