package model

// Action is a synthesized state transition, produced either while parsing a
// notification (merge, stale) or by the maintenance loop (merge, stale,
// finalize). Like PRCommand it is a closed set.
type Action interface {
	isAction()
}

// MergeAction records that the PR was merged on the platform.
type MergeAction struct {
	Merger    User
	Reviewers []string // logins of approved or pending reviews, deduplicated
}

// StaleAction records that the PR went inactive or was closed unmerged.
type StaleAction struct{}

// FinalizeAction moves a scored, merged PR past its grace period.
type FinalizeAction struct{}

func (MergeAction) isAction()    {}
func (StaleAction) isAction()    {}
func (FinalizeAction) isAction() {}
