package model

import "time"

// Comment is a normalized PR/issue comment or review. Reviews map to the
// same shape with a nil CommentID, so they can never be reacted to.
type Comment struct {
	ID        int64
	User      User
	Timestamp time.Time
	Text      string
	CommentID *int64
}

// PendingScore is a score command found in comments posted before the PR was
// merged. The merge handler replays these as muted scores.
type PendingScore struct {
	Sender User
	Raw    string
}
