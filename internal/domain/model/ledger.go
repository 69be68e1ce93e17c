package model

import (
	"encoding/json"
	"time"
)

// LedgerPR is a PR record as returned by the ledger's list views.
type LedgerPR struct {
	Org         string     `json:"org"`
	Repo        string     `json:"repo"`
	Number      int        `json:"number"`
	ReadyToMove *time.Time `json:"ready_to_move_at,omitempty"`
}

// RepoInfo converts the ledger record into the platform locator.
func (p LedgerPR) RepoInfo() RepoInfo {
	return RepoInfo{Owner: p.Org, Repo: p.Repo, Number: p.Number}
}

// LedgerUser is a registered participant as stored by the ledger.
type LedgerUser struct {
	Handle        string `json:"handle"`
	TotalScore    uint64 `json:"total_score"`
	CurrentStreak uint32 `json:"current_streak"`
}

// LedgerRepo is a repository record as stored by the ledger.
type LedgerRepo struct {
	Org     string `json:"org"`
	Repo    string `json:"repo"`
	Paused  bool   `json:"paused"`
	Blocked bool   `json:"blocked"`
}

// DomainEvent is one event a ledger mutation emitted into its transaction
// logs. Observed for logging and metrics only; control flow never depends
// on it.
type DomainEvent struct {
	Kind    string
	Payload json.RawMessage
}
