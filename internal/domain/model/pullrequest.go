package model

import "time"

// PullRequest is the bot's view of a platform pull request. It mirrors the
// upstream PR object for the duration of one event; nothing here is persisted.
type PullRequest struct {
	RepoInfo RepoInfo
	Author   User
	Created  time.Time
	Merged   *time.Time // nil while the PR is open or closed-unmerged
	Updated  time.Time
	Body     string
	Closed   bool
	ClosedAt *time.Time // nil while the PR is open
	MergedBy string // login of the merging user, empty while unmerged
}

// IsMerged reports whether the PR has a merge timestamp.
func (p *PullRequest) IsMerged() bool {
	return p.Merged != nil
}

// MergedWithin reports whether the PR was merged less than d ago.
func (p *PullRequest) MergedWithin(d time.Duration, now time.Time) bool {
	return p.Merged != nil && now.Sub(*p.Merged) < d
}
