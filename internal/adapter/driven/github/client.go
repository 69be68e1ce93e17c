// Package github implements the PlatformClient port using the go-github
// library. One write credential performs every mutation; N read credentials
// are rotated round-robin for notification polling so their independent rate
// budgets amortize.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/slothwatch/slothbot/internal/domain/model"
	"github.com/slothwatch/slothbot/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.PlatformClient = (*Client)(nil)

// readShard is one read credential's client together with its resolved login.
type readShard struct {
	gh    *gh.Client
	login string
}

// Client implements the driven.PlatformClient port.
type Client struct {
	write      *gh.Client
	writeLogin string
	read       []readShard
	handles    []string // union of all credential logins, the backstop set

	readCounter   atomic.Uint64
	writeRequests atomic.Uint64
}

// newGHClient builds a go-github client with the transport stack used for
// every credential:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client with PAT auth)
func newGHClient(token string) *gh.Client {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	return gh.NewClient(rateLimitClient).WithAuthToken(token)
}

// NewClient creates a platform client and resolves the login of every
// credential. The write credential's login is the handle status comments are
// attributed to; the union of all logins is the own-handles backstop set.
func NewClient(ctx context.Context, writeToken string, readTokens []string) (*Client, error) {
	if len(readTokens) == 0 {
		return nil, fmt.Errorf("at least one read token is required")
	}

	write := newGHClient(writeToken)
	writeUser, _, err := write.Users.Get(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("resolving write credential login: %w", err)
	}

	c := &Client{
		write:      write,
		writeLogin: writeUser.GetLogin(),
	}
	seen := map[string]bool{c.writeLogin: true}
	c.handles = append(c.handles, c.writeLogin)

	for i, token := range readTokens {
		client := newGHClient(token)
		user, _, err := client.Users.Get(ctx, "")
		if err != nil {
			return nil, fmt.Errorf("resolving read credential %d login: %w", i, err)
		}
		login := user.GetLogin()
		c.read = append(c.read, readShard{gh: client, login: login})
		if !seen[login] {
			seen[login] = true
			c.handles = append(c.handles, login)
		}
	}

	slog.Info("platform client ready",
		"write_login", c.writeLogin,
		"read_shards", len(c.read),
		"handles", c.handles,
	)
	return c, nil
}

// NewClientWithBaseURL creates a Client against a custom API base URL with
// pre-resolved logins. Intended for tests with an httptest server.
func NewClientWithBaseURL(httpClient *http.Client, baseURL, writeLogin string, readLogins []string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}

	mk := func() *gh.Client {
		client := gh.NewClient(httpClient)
		client.BaseURL = u
		return client
	}

	c := &Client{
		write:      mk(),
		writeLogin: writeLogin,
	}
	seen := map[string]bool{writeLogin: true}
	c.handles = append(c.handles, writeLogin)

	for _, login := range readLogins {
		c.read = append(c.read, readShard{gh: mk(), login: login})
		if !seen[login] {
			seen[login] = true
			c.handles = append(c.handles, login)
		}
	}
	return c, nil
}

// Handles returns the own-handles set.
func (c *Client) Handles() []string {
	return c.handles
}

// WriteLogin returns the login of the write credential.
func (c *Client) WriteLogin() string {
	return c.writeLogin
}

// WriteRequests returns the number of mutating platform calls made so far.
func (c *Client) WriteRequests() uint64 {
	return c.writeRequests.Load()
}

// nextRead picks the next read shard by atomic fetch-and-increment.
func (c *Client) nextRead() (int, readShard) {
	idx := int(c.readCounter.Add(1)-1) % len(c.read)
	return idx, c.read[idx]
}

// shardFor returns the read shard a notification was observed through. An
// out-of-range index is a programming error, not a transient condition.
func (c *Client) shardFor(n *model.Notification) (readShard, error) {
	if n.ReadClientID < 0 || n.ReadClientID >= len(c.read) {
		return readShard{}, fmt.Errorf("read client id %d out of range [0,%d)", n.ReadClientID, len(c.read))
	}
	return c.read[n.ReadClientID], nil
}

// RateLimits returns the write credential's current rate limit view.
func (c *Client) RateLimits(ctx context.Context) (*gh.RateLimits, error) {
	limits, _, err := c.write.RateLimit.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching rate limits: %w", err)
	}
	return limits, nil
}

// GetPullRequest fetches a PR through the next read shard.
func (c *Client) GetPullRequest(ctx context.Context, info model.RepoInfo) (*model.PullRequest, error) {
	_, shard := c.nextRead()
	return c.getPullRequest(ctx, shard.gh, info)
}

func (c *Client) getPullRequest(ctx context.Context, client *gh.Client, info model.RepoInfo) (*model.PullRequest, error) {
	pr, _, err := client.PullRequests.Get(ctx, info.Owner, info.Repo, info.Number)
	if err != nil {
		return nil, fmt.Errorf("fetching pull request %s: %w", info.FullID(), err)
	}
	return mapPullRequest(pr, info), nil
}

// GetBotComment pages through the PR's comments until one authored by the
// write credential is found; nil when the bot has not replied yet.
func (c *Client) GetBotComment(ctx context.Context, info model.RepoInfo) (*model.Comment, error) {
	opts := &gh.IssueListCommentsOptions{
		ListOptions: gh.ListOptions{PerPage: 100},
	}
	for {
		comments, resp, err := c.write.Issues.ListComments(ctx, info.Owner, info.Repo, info.Number, opts)
		if err != nil {
			return nil, fmt.Errorf("listing comments for %s (page %d): %w", info.FullID(), opts.Page, err)
		}
		for _, comment := range comments {
			if comment.GetUser().GetLogin() == c.writeLogin {
				mapped := mapIssueComment(comment)
				return &mapped, nil
			}
		}
		if resp.NextPage == 0 {
			return nil, nil
		}
		opts.Page = resp.NextPage
	}
}

// IsActivePR reports whether at least two distinct users other than the bot
// handles and the PR author commented or reviewed.
func (c *Client) IsActivePR(ctx context.Context, info model.RepoInfo, author string) (bool, error) {
	_, shard := c.nextRead()
	conversation, err := c.listConversation(ctx, shard.gh, info)
	if err != nil {
		return false, err
	}

	distinct := map[string]bool{}
	for _, comment := range conversation {
		login := comment.User.Login
		if login == author || c.isOwnHandle(login) {
			continue
		}
		distinct[login] = true
	}
	return len(distinct) >= 2, nil
}

// PreMergeScores scans the conversation for score commands posted before the
// PR's merge time.
func (c *Client) PreMergeScores(ctx context.Context, pr *model.PullRequest) ([]model.PendingScore, error) {
	if pr.Merged == nil {
		return nil, nil
	}

	_, shard := c.nextRead()
	conversation, err := c.listConversation(ctx, shard.gh, pr.RepoInfo)
	if err != nil {
		return nil, err
	}

	var scores []model.PendingScore
	for _, comment := range conversation {
		if !comment.Timestamp.Before(*pr.Merged) || c.isOwnHandle(comment.User.Login) {
			continue
		}
		for _, handle := range c.handles {
			cmd, ok := model.ParsePRCommand(handle, comment.Text)
			if !ok {
				continue
			}
			if score, isScore := cmd.(model.ScoreCommand); isScore {
				scores = append(scores, model.PendingScore{Sender: comment.User, Raw: score.Raw})
			}
			break
		}
	}
	return scores, nil
}

// ApprovedReviewers returns the deduplicated logins of reviews in approved or
// pending state.
func (c *Client) ApprovedReviewers(ctx context.Context, info model.RepoInfo) ([]string, error) {
	_, shard := c.nextRead()
	reviews, err := c.listReviews(ctx, shard.gh, info)
	if err != nil {
		return nil, err
	}
	return approvedReviewers(reviews), nil
}

// PostReply adds a PR-level comment through the write credential.
func (c *Client) PostReply(ctx context.Context, info model.RepoInfo, text string) (*model.Comment, error) {
	c.writeRequests.Add(1)
	comment, _, err := c.write.Issues.CreateComment(ctx, info.Owner, info.Repo, info.Number, &gh.IssueComment{
		Body: gh.Ptr(text),
	})
	if err != nil {
		return nil, fmt.Errorf("posting reply on %s: %w", info.FullID(), err)
	}
	mapped := mapIssueComment(comment)
	return &mapped, nil
}

// EditComment rewrites an existing comment body in place.
func (c *Client) EditComment(ctx context.Context, info model.RepoInfo, commentID int64, text string) error {
	c.writeRequests.Add(1)
	_, _, err := c.write.Issues.EditComment(ctx, info.Owner, info.Repo, commentID, &gh.IssueComment{
		Body: gh.Ptr(text),
	})
	if err != nil {
		return fmt.Errorf("editing comment %d on %s/%s: %w", commentID, info.Owner, info.Repo, err)
	}
	return nil
}

// React adds a thumbs-up reaction to the comment.
func (c *Client) React(ctx context.Context, info model.RepoInfo, commentID int64) error {
	c.writeRequests.Add(1)
	_, _, err := c.write.Reactions.CreateIssueCommentReaction(ctx, info.Owner, info.Repo, commentID, "+1")
	if err != nil {
		return fmt.Errorf("reacting to comment %d on %s/%s: %w", commentID, info.Owner, info.Repo, err)
	}
	return nil
}

// MarkRead marks the notification's thread read through the same credential
// that observed it.
func (c *Client) MarkRead(ctx context.Context, n *model.Notification) error {
	shard, err := c.shardFor(n)
	if err != nil {
		return err
	}
	c.writeRequests.Add(1)
	if _, err := shard.gh.Activity.MarkThreadRead(ctx, n.ID); err != nil {
		return fmt.Errorf("marking notification %s read: %w", n.ID, err)
	}
	return nil
}

func (c *Client) isOwnHandle(login string) bool {
	for _, h := range c.handles {
		if strings.EqualFold(h, login) {
			return true
		}
	}
	return false
}

// listConversation merges issue comments and reviews into one chronologically
// ascending slice of normalized comments.
func (c *Client) listConversation(ctx context.Context, client *gh.Client, info model.RepoInfo) ([]model.Comment, error) {
	comments, err := c.listComments(ctx, client, info)
	if err != nil {
		return nil, err
	}
	reviews, err := c.listReviews(ctx, client, info)
	if err != nil {
		return nil, err
	}

	merged := make([]model.Comment, 0, len(comments)+len(reviews))
	merged = append(merged, comments...)
	for _, r := range reviews {
		merged = append(merged, mapReview(r))
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp.Before(merged[j].Timestamp)
	})
	return merged, nil
}

func (c *Client) listComments(ctx context.Context, client *gh.Client, info model.RepoInfo) ([]model.Comment, error) {
	opts := &gh.IssueListCommentsOptions{
		ListOptions: gh.ListOptions{PerPage: 100},
	}
	var all []model.Comment
	for {
		comments, resp, err := client.Issues.ListComments(ctx, info.Owner, info.Repo, info.Number, opts)
		if err != nil {
			return nil, fmt.Errorf("listing comments for %s (page %d): %w", info.FullID(), opts.Page, err)
		}
		for _, comment := range comments {
			all = append(all, mapIssueComment(comment))
		}
		if resp.NextPage == 0 {
			return all, nil
		}
		opts.Page = resp.NextPage
	}
}

func (c *Client) listReviews(ctx context.Context, client *gh.Client, info model.RepoInfo) ([]*gh.PullRequestReview, error) {
	opts := &gh.ListOptions{PerPage: 100}
	var all []*gh.PullRequestReview
	for {
		reviews, resp, err := client.PullRequests.ListReviews(ctx, info.Owner, info.Repo, info.Number, opts)
		if err != nil {
			return nil, fmt.Errorf("listing reviews for %s (page %d): %w", info.FullID(), opts.Page, err)
		}
		all = append(all, reviews...)
		if resp.NextPage == 0 {
			return all, nil
		}
		opts.Page = resp.NextPage
	}
}

// approvedReviewers extracts deduplicated logins of approved or pending
// reviews, preserving review order.
func approvedReviewers(reviews []*gh.PullRequestReview) []string {
	var logins []string
	seen := map[string]bool{}
	for _, r := range reviews {
		state := strings.ToUpper(r.GetState())
		if state != "APPROVED" && state != "PENDING" {
			continue
		}
		login := r.GetUser().GetLogin()
		if login == "" || seen[login] {
			continue
		}
		seen[login] = true
		logins = append(logins, login)
	}
	return logins
}

// mapPullRequest converts a go-github PullRequest to the domain model.
// GetXxx() helpers are used throughout to avoid nil pointer panics.
func mapPullRequest(pr *gh.PullRequest, info model.RepoInfo) *model.PullRequest {
	var merged, closedAt *time.Time
	if !pr.GetMergedAt().IsZero() {
		t := pr.GetMergedAt().Time
		merged = &t
	}
	if !pr.GetClosedAt().IsZero() {
		t := pr.GetClosedAt().Time
		closedAt = &t
	}

	return &model.PullRequest{
		RepoInfo: info,
		Author: model.User{
			Login:       pr.GetUser().GetLogin(),
			Association: model.Association(pr.GetAuthorAssociation()),
		},
		Created:  pr.GetCreatedAt().Time,
		Merged:   merged,
		Updated:  pr.GetUpdatedAt().Time,
		Body:     pr.GetBody(),
		Closed:   pr.GetState() == "closed",
		ClosedAt: closedAt,
		MergedBy: pr.GetMergedBy().GetLogin(),
	}
}

// mapIssueComment converts a go-github IssueComment to a normalized Comment.
func mapIssueComment(comment *gh.IssueComment) model.Comment {
	id := comment.GetID()
	return model.Comment{
		ID: id,
		User: model.User{
			Login:       comment.GetUser().GetLogin(),
			Association: model.Association(comment.GetAuthorAssociation()),
		},
		Timestamp: comment.GetCreatedAt().Time,
		Text:      comment.GetBody(),
		CommentID: &id,
	}
}

// mapReview converts a review to the same normalized shape as a comment.
// Reviews carry no reactable comment ID.
func mapReview(r *gh.PullRequestReview) model.Comment {
	return model.Comment{
		ID: r.GetID(),
		User: model.User{
			Login:       r.GetUser().GetLogin(),
			Association: model.Association(r.GetAuthorAssociation()),
		},
		Timestamp: r.GetSubmittedAt().Time,
		Text:      r.GetBody(),
	}
}

// parseSubjectURL extracts the repo locator from a notification subject API
// URL of the form .../repos/{owner}/{repo}/{pulls|issues}/{number}.
func parseSubjectURL(subjectURL string) (model.RepoInfo, error) {
	u, err := url.Parse(subjectURL)
	if err != nil {
		return model.RepoInfo{}, fmt.Errorf("parsing subject url %q: %w", subjectURL, err)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, seg := range segments {
		if seg != "repos" || i+4 >= len(segments) {
			continue
		}
		number, err := strconv.Atoi(segments[i+4])
		if err != nil {
			return model.RepoInfo{}, fmt.Errorf("subject url %q: invalid number %q", subjectURL, segments[i+4])
		}
		return model.RepoInfo{
			Owner:  segments[i+1],
			Repo:   segments[i+2],
			Number: number,
		}, nil
	}
	return model.RepoInfo{}, fmt.Errorf("subject url %q: no repos path", subjectURL)
}
