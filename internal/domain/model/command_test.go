package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slothwatch/slothbot/internal/domain/model"
)

func TestExtractCommand(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantVerb string
		wantArgs string
		wantOK   bool
	}{
		{"simple", "@bot score 5", "score", "5", true},
		{"leading text", "Hello @bot world", "world", "", true},
		{"case insensitive", "@BOT Score 5", "score", "5", true},
		{"extra whitespace", "  @bot\tscore   5  ", "score", "5", true},
		{"mention at end of text", "thanks @bot", "", "", true},
		{"mention at end of line", "thanks @bot\nscore 5", "", "", true},
		{"mid-word mention ignored", "mail me at foo@bot today", "", "", false},
		{"mention glued to suffix ignored", "@botling hello", "", "", false},
		{"no mention", "just a comment", "", "", false},
		{"mention on later line", "first line\n@bot include", "include", "", true},
		{"multiword args", "@bot unknown one two", "unknown", "one two", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verb, args, ok := model.ExtractCommand("bot", tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantVerb, verb)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestParsePRCommand(t *testing.T) {
	tests := []struct {
		name string
		text string
		want model.PRCommand
	}{
		{"score", "@bot score 5", model.ScoreCommand{Raw: "5"}},
		{"score colon alias", "@bot score: 8", model.ScoreCommand{Raw: "8"}},
		{"rate alias", "@bot rate 3", model.ScoreCommand{Raw: "3"}},
		{"value alias", "@bot value 13", model.ScoreCommand{Raw: "13"}},
		{"bare digits verb", "@bot 5", model.ScoreCommand{Raw: "5"}},
		{"pause", "@bot pause", model.PauseCommand{}},
		{"block alias", "@bot block", model.PauseCommand{}},
		{"unpause", "@bot unpause", model.UnpauseCommand{}},
		{"resume alias", "@bot resume", model.UnpauseCommand{}},
		{"unblock alias", "@bot unblock", model.UnpauseCommand{}},
		{"exclude", "@bot exclude", model.ExcludeCommand{}},
		{"leave alias", "@bot leave", model.ExcludeCommand{}},
		{"include", "@bot include", model.IncludeCommand{}},
		{"in alias", "@bot in", model.IncludeCommand{}},
		{"start alias", "@bot start", model.IncludeCommand{}},
		{"join alias", "@bot join", model.IncludeCommand{}},
		{"invite alias", "@bot invite", model.IncludeCommand{}},
		{"update", "@bot update", model.UpdateCommand{}},
		{"unknown verb", "@bot frobnicate now", model.UnknownCommand{Verb: "frobnicate", Args: "now"}},
		{"empty verb is unknown", "thanks @bot", model.UnknownCommand{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, ok := model.ParsePRCommand("bot", tt.text)
			require.True(t, ok)
			assert.Equal(t, tt.want, cmd)
		})
	}

	t.Run("no mention", func(t *testing.T) {
		_, ok := model.ParsePRCommand("bot", "nothing here")
		assert.False(t, ok)
	})
}

func TestParsePRCommandFromBody(t *testing.T) {
	updated := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	pr := &model.PullRequest{
		Body:    "This closes #12.\n\ncc @Bot please track",
		Updated: updated,
	}

	cmd, ts, ok := model.ParsePRCommandFromBody("bot", pr)
	require.True(t, ok)
	assert.Equal(t, model.IncludeCommand{}, cmd)
	assert.Equal(t, updated, ts)

	pr.Body = "no mention at all"
	_, _, ok = model.ParsePRCommandFromBody("bot", pr)
	assert.False(t, ok)
}

func TestParseIssueCommand(t *testing.T) {
	for _, verb := range []string{"yes", "approve", "add", "accept"} {
		cmd, ok := model.ParseIssueCommand("bot", "@bot "+verb)
		require.True(t, ok, verb)
		assert.True(t, cmd.FromIssue)
	}

	_, ok := model.ParseIssueCommand("bot", "@bot include")
	assert.False(t, ok)

	_, ok = model.ParseIssueCommand("bot", "no mention")
	assert.False(t, ok)
}

func TestNormalizeScore(t *testing.T) {
	tests := []struct {
		raw        string
		want       uint32
		wantEdited bool
	}{
		{"0", 0, false},
		{"1", 1, false},
		{"2", 2, false},
		{"3", 3, false},
		{"5", 5, false},
		{"8", 8, false},
		{"13", 13, false},
		{"  5  ", 5, false},
		{"5 ignored trailing", 5, false},
		{"4", 3, true},  // tie between 3 and 5 snaps low
		{"7", 8, true},
		{"6", 5, true},
		{"9", 8, true},
		{"11", 13, true},
		{"100", 13, true},
		{"", 0, true},
		{"abc", 0, true},
		{"-1", 0, true},
		{"3.5", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			score, edited := model.NormalizeScore(tt.raw)
			assert.Equal(t, tt.want, score)
			assert.Equal(t, tt.wantEdited, edited)
		})
	}
}
