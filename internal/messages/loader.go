// Package messages loads the reply template table and renders comment bodies.
// Rendering is pure string work: no I/O, and the random template choice is
// driven by an injected source so tests stay deterministic.
package messages

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"regexp"
	"strings"
	"sync"
)

// Category keys one list of reply templates.
type Category string

const (
	IncludeBasic                             Category = "IncludeBasic"
	CorrectableScoring                       Category = "CorrectableScoring"
	CorrectZeroScoring                       Category = "CorrectZeroScoring"
	CorrectNonzeroScoring                    Category = "CorrectNonzeroScoring"
	Exclude                                  Category = "Exclude"
	Pause                                    Category = "Pause"
	Unpause                                  Category = "Unpause"
	UnpauseIssue                             Category = "UnpauseIssue"
	MergeWithScore                           Category = "MergeWithScore"
	MergeWithoutScoreByOtherParty            Category = "MergeWithoutScoreByOtherParty"
	MergeWithoutScoreByAuthorWithoutReviewers Category = "MergeWithoutScoreByAuthorWithoutReviewers"
	Final                                    Category = "Final"
	Stale                                    Category = "Stale"
	ErrorUnknownCommand                      Category = "ErrorUnknownCommand"
	ErrorRightsViolation                     Category = "ErrorRightsViolation"
	ErrorLateInclude                         Category = "ErrorLateInclude"
	ErrorLateScoring                         Category = "ErrorLateScoring"
	ErrorSelfScore                           Category = "ErrorSelfScore"
	ErrorOrgNotInAllowedList                 Category = "ErrorOrgNotInAllowedList"
	ErrorPaused                              Category = "ErrorPaused"
	ErrorPausePaused                         Category = "ErrorPausePaused"
	ErrorUnpauseUnpaused                     Category = "ErrorUnpauseUnpaused"
	ErrorRepoIsBanned                        Category = "ErrorRepoIsBanned"
)

// allCategories is the closed set; Load fails when any is missing.
var allCategories = []Category{
	IncludeBasic, CorrectableScoring, CorrectZeroScoring, CorrectNonzeroScoring,
	Exclude, Pause, Unpause, UnpauseIssue, MergeWithScore,
	MergeWithoutScoreByOtherParty, MergeWithoutScoreByAuthorWithoutReviewers,
	Final, Stale, ErrorUnknownCommand, ErrorRightsViolation, ErrorLateInclude,
	ErrorLateScoring, ErrorSelfScore, ErrorOrgNotInAllowedList, ErrorPaused,
	ErrorPausePaused, ErrorUnpauseUnpaused, ErrorRepoIsBanned,
}

// messageFile is the on-disk JSON shape of the template table.
type messageFile struct {
	Link            string                `json:"link"`
	LeaderboardLink string                `json:"leaderboard-link"`
	Form            string                `json:"form"`
	BotName         string                `json:"bot-name"`
	Messages        map[Category][]string `json:"messages"`
}

var placeholderRe = regexp.MustCompile(`\{[a-zA-Z][a-zA-Z0-9_-]*\}`)

// Loader holds the macro-expanded template table and a guarded random source
// for template choice.
type Loader struct {
	messages map[Category][]string
	botName  string
	form     string

	mu  sync.Mutex
	rng *rand.Rand
}

// Load reads the message file, verifies the closed category set, and
// substitutes the document-wide macros once. rng may be nil, in which case an
// unseeded-by-test source is used.
func Load(path string, rng *rand.Rand) (*Loader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading message file: %w", err)
	}
	return Parse(data, rng)
}

// Parse builds a Loader from raw message-file bytes.
func Parse(data []byte, rng *rand.Rand) (*Loader, error) {
	var file messageFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing message file: %w", err)
	}

	macros := map[string]string{
		"link":             file.Link,
		"leaderboard-link": file.LeaderboardLink,
		"form":             file.Form,
		"bot-name":         file.BotName,
	}

	expanded := make(map[Category][]string, len(file.Messages))
	for _, cat := range allCategories {
		templates, ok := file.Messages[cat]
		if !ok || len(templates) == 0 {
			return nil, fmt.Errorf("message file: category %q has no templates", cat)
		}
		out := make([]string, len(templates))
		for i, tpl := range templates {
			out[i] = substitute(tpl, macros)
		}
		expanded[cat] = out
	}

	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	return &Loader{
		messages: expanded,
		botName:  file.BotName,
		form:     substitute(file.Form, macros),
		rng:      rng,
	}, nil
}

// BotName is the display name substituted for the {bot-name} macro.
func (l *Loader) BotName() string {
	return l.botName
}

// Render picks one of the category's templates uniformly at random and
// substitutes the remaining placeholders. A placeholder with no provided
// value is logged and left as-is.
func (l *Loader) Render(cat Category, vars map[string]string) string {
	templates := l.messages[cat]

	l.mu.Lock()
	tpl := templates[l.rng.Intn(len(templates))]
	l.mu.Unlock()

	out := substitute(tpl, vars)
	for _, leftover := range placeholderRe.FindAllString(out, -1) {
		slog.Warn("message variable missing", "category", string(cat), "placeholder", leftover)
	}
	return out
}

// InviteMessage builds the reply inviting a PR author who is not yet a
// registered participant.
func (l *Loader) InviteMessage(author, sender string) string {
	return fmt.Sprintf(
		"@%s, @%s wants to track this pull request for you. Reply with `@%s include` to join in. %s",
		author, sender, l.botName, l.form,
	)
}

func substitute(s string, vars map[string]string) string {
	for k, v := range vars {
		s = strings.ReplaceAll(s, "{"+k+"}", v)
	}
	return s
}
