package model

import "fmt"

// RepoInfo locates a single pull request or issue on the platform.
type RepoInfo struct {
	Owner  string
	Repo   string
	Number int
}

// FullID is the globally unique "owner/repo/number" identifier used as the
// grouping key for per-PR serial execution and as the ledger's PR key.
func (r RepoInfo) FullID() string {
	return fmt.Sprintf("%s/%s/%d", r.Owner, r.Repo, r.Number)
}

// FullRepo is the "owner/repo" pair without the number.
func (r RepoInfo) FullRepo() string {
	return r.Owner + "/" + r.Repo
}
