package model

import (
	"strconv"
	"strings"
	"time"
)

// PRCommand is the closed set of commands a user can address to the bot on a
// pull request. Exhaustive type switches over the concrete variants replace
// virtual dispatch.
type PRCommand interface {
	isPRCommand()
}

// IncludeCommand starts tracking a PR in the ledger.
type IncludeCommand struct{}

// ScoreCommand carries the raw, unvalidated score text.
type ScoreCommand struct {
	Raw string
}

// PauseCommand pauses the whole repository.
type PauseCommand struct{}

// UnpauseCommand resumes a paused repository. FromIssue marks commands that
// arrived through the issue path rather than a PR comment.
type UnpauseCommand struct {
	FromIssue bool
}

// ExcludeCommand removes a PR from tracking.
type ExcludeCommand struct{}

// UpdateCommand refreshes the status comment without any ledger write.
type UpdateCommand struct{}

// UnknownCommand is any mention whose verb matched no alias.
type UnknownCommand struct {
	Verb string
	Args string
}

func (IncludeCommand) isPRCommand() {}
func (ScoreCommand) isPRCommand()   {}
func (PauseCommand) isPRCommand()   {}
func (UnpauseCommand) isPRCommand() {}
func (ExcludeCommand) isPRCommand() {}
func (UpdateCommand) isPRCommand()  {}
func (UnknownCommand) isPRCommand() {}

// ExtractCommand finds the first bot mention in text and splits the rest of
// that line into a verb and its arguments. Matching is case-insensitive. The
// mention must stand alone: it has to start a whitespace-delimited token and
// be followed by whitespace or the end of input. A mention at the end of a
// line yields an empty verb.
func ExtractCommand(botHandle, text string) (verb, args string, ok bool) {
	body := strings.ToLower(text)
	mention := "@" + strings.ToLower(botHandle)

	from := 0
	for {
		i := strings.Index(body[from:], mention)
		if i < 0 {
			return "", "", false
		}
		i += from
		end := i + len(mention)

		startsToken := i == 0 || isSpace(body[i-1])
		endsToken := end == len(body) || isSpace(body[end])
		if !startsToken || !endsToken {
			from = end
			continue
		}

		rest := body[end:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[:nl]
		}
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			return "", "", true
		}
		return fields[0], strings.Join(fields[1:], " "), true
	}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// ParsePRCommand parses a comment body into a PRCommand. The boolean is
// false when the body contains no standalone bot mention.
func ParsePRCommand(botHandle, text string) (PRCommand, bool) {
	verb, args, ok := ExtractCommand(botHandle, text)
	if !ok {
		return nil, false
	}

	switch verb {
	case "score", "score:", "rate", "value":
		return ScoreCommand{Raw: args}, true
	case "pause", "block":
		return PauseCommand{}, true
	case "unpause", "resume", "unblock":
		return UnpauseCommand{}, true
	case "exclude", "leave":
		return ExcludeCommand{}, true
	case "include", "in", "start", "join", "invite":
		return IncludeCommand{}, true
	case "update":
		return UpdateCommand{}, true
	}

	if verb != "" && isAllDigits(verb) {
		return ScoreCommand{Raw: verb}, true
	}
	return UnknownCommand{Verb: verb, Args: args}, true
}

// ParsePRCommandFromBody detects a bot mention anywhere in the PR description
// and treats it as an Include. The returned timestamp is the PR's updated
// time, since the description carries no timestamp of its own.
func ParsePRCommandFromBody(botHandle string, pr *PullRequest) (PRCommand, time.Time, bool) {
	if !strings.Contains(strings.ToLower(pr.Body), strings.ToLower("@"+botHandle)) {
		return nil, time.Time{}, false
	}
	return IncludeCommand{}, pr.Updated, true
}

// ParseIssueCommand parses an issue comment. Only an unpause approval is
// recognized on the issue path.
func ParseIssueCommand(botHandle, text string) (UnpauseCommand, bool) {
	verb, _, ok := ExtractCommand(botHandle, text)
	if !ok {
		return UnpauseCommand{}, false
	}
	switch verb {
	case "yes", "approve", "add", "accept":
		return UnpauseCommand{FromIssue: true}, true
	}
	return UnpauseCommand{}, false
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// allowedScores is the Fibonacci-style scale a reviewer may award,
// in ascending order.
var allowedScores = [...]uint32{0, 1, 2, 3, 5, 8, 13}

// NormalizeScore parses the first token of raw as an unsigned integer and
// clamps it to the allowed scale. edited reports that the stored score
// differs from what the reviewer typed: unparseable input becomes 0, and any
// off-scale value snaps to the nearest allowed score, preferring the smaller
// one on ties.
func NormalizeScore(raw string) (score uint32, edited bool) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return 0, true
	}

	n, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil {
		return 0, true
	}
	v := uint32(n)

	best := allowedScores[0]
	bestDist := distance(v, best)
	for _, a := range allowedScores[1:] {
		if d := distance(v, a); d < bestDist {
			best, bestDist = a, d
		}
	}
	return best, bestDist != 0
}

func distance(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}
