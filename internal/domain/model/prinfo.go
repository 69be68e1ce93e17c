package model

// Vote is one reviewer's recorded score for a PR.
type Vote struct {
	User  string `json:"user"`
	Score uint32 `json:"score"`
}

// PRInfo is the ledger's snapshot of a PR, read freshly at the start of each
// per-PR execution and mutated in memory as handlers write to the ledger, so
// later commands in the same tick observe earlier writes.
type PRInfo struct {
	Exists      bool   `json:"exist"`
	Merged      bool   `json:"merged"`
	Executed    bool   `json:"executed"`
	Excluded    bool   `json:"excluded"`
	Paused      bool   `json:"paused"`
	PausedRepo  bool   `json:"paused_repo"`
	BlockedRepo bool   `json:"blocked_repo"`
	AllowedRepo bool   `json:"allowed_repo"`
	Votes       []Vote `json:"votes"`
}

// AverageScore is the floor of the vote mean, or 0 without votes.
func (i *PRInfo) AverageScore() uint32 {
	if len(i.Votes) == 0 {
		return 0
	}
	var sum uint32
	for _, v := range i.Votes {
		sum += v.Score
	}
	return sum / uint32(len(i.Votes))
}

// SetVote replaces the user's existing vote or appends a new one.
func (i *PRInfo) SetVote(user string, score uint32) {
	for idx := range i.Votes {
		if i.Votes[idx].User == user {
			i.Votes[idx].Score = score
			return
		}
	}
	i.Votes = append(i.Votes, Vote{User: user, Score: score})
}

// ResetAfterStale clears the tracking fields the ledger drops on a stale
// transition; repo-level flags are unaffected.
func (i *PRInfo) ResetAfterStale() {
	i.Exists = false
	i.Votes = nil
	i.Merged = false
	i.Executed = false
}
