package model

import "time"

// EventKind is the closed set of things the dispatcher can execute: a PR
// command, an issue command, or a synthesized action.
type EventKind interface {
	isEventKind()
	// RepoInfo locates the PR or issue the event belongs to.
	RepoInfo() RepoInfo
}

// PRCommandEvent is a user command found in a PR comment, review, or the PR
// description.
type PRCommandEvent struct {
	Command      PRCommand
	Sender       User
	PR           *PullRequest
	Comment      *Comment // triggering comment; nil for body mentions
	Notification *Notification
}

// IssueCommandEvent is an unpause approval found in an issue comment.
type IssueCommandEvent struct {
	Command      UnpauseCommand
	Sender       User
	Repo         RepoInfo
	Notification *Notification
}

// ActionEvent is a synthesized merge, stale, or finalize transition.
type ActionEvent struct {
	Action Action
	PR     *PullRequest
}

func (PRCommandEvent) isEventKind()    {}
func (IssueCommandEvent) isEventKind() {}
func (ActionEvent) isEventKind()       {}

func (e PRCommandEvent) RepoInfo() RepoInfo    { return e.PR.RepoInfo }
func (e IssueCommandEvent) RepoInfo() RepoInfo { return e.Repo }
func (e ActionEvent) RepoInfo() RepoInfo       { return e.PR.RepoInfo }

// Event pairs an event kind with the time it happened and, when one exists,
// the bot's first reply on the PR (the status comment). Events for the same
// FullID execute strictly in ascending Time order.
type Event struct {
	Kind     EventKind
	BotReply *Comment
	Time     time.Time
}

// FullID is the per-PR grouping key for serial execution.
func (e Event) FullID() string {
	return e.Kind.RepoInfo().FullID()
}

// Notification returns the notification that produced the event, or nil for
// synthesized actions.
func (e Event) Notification() *Notification {
	switch k := e.Kind.(type) {
	case PRCommandEvent:
		return k.Notification
	case IssueCommandEvent:
		return k.Notification
	}
	return nil
}
