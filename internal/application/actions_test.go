package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slothwatch/slothbot/internal/domain/model"
)

func mergedPR(mergedBy string) *model.PullRequest {
	pr := testPR()
	at := time.Now().Add(-time.Hour)
	pr.Merged = &at
	pr.Closed = true
	pr.ClosedAt = &at
	pr.MergedBy = mergedBy
	return pr
}

func actionEvent(action model.Action, pr *model.PullRequest) model.Event {
	return model.Event{
		Kind: model.ActionEvent{Action: action, PR: pr},
		Time: time.Now(),
	}
}

func TestMerge_AuthorMergedWithReviewers(t *testing.T) {
	d, platform, ledger := newTestDispatcher(t)
	info := openInfo()
	info.Exists = true

	action := model.MergeAction{
		Merger:    author,
		Reviewers: []string{"r1", "r2"},
	}
	out, err := d.Execute(context.Background(), actionEvent(action, mergedPR(author.Login)), info)

	require.NoError(t, err)
	assert.Equal(t, ResultSuccess, out.Result)
	assert.True(t, out.UpdateStatus)
	assert.True(t, info.Merged)
	assert.Equal(t, []string{"merge acme/widgets/7"}, ledger.calls)
	assert.Equal(t, "MergeWithoutScoreByOtherParty r1 @r2 1", firstReply(t, platform))
}

func TestMerge_OtherPartyMergedActivePR(t *testing.T) {
	d, platform, ledger := newTestDispatcher(t)
	platform.active = true
	info := openInfo()
	info.Exists = true

	action := model.MergeAction{Merger: maintainer}
	out, err := d.Execute(context.Background(), actionEvent(action, mergedPR(maintainer.Login)), info)

	require.NoError(t, err)
	assert.Equal(t, ResultSuccess, out.Result)
	assert.Equal(t, []string{"merge acme/widgets/7"}, ledger.calls)
	assert.Equal(t, "MergeWithoutScoreByOtherParty maude 2", firstReply(t, platform))
}

func TestMerge_AuthorMergedNoReviewers(t *testing.T) {
	d, platform, _ := newTestDispatcher(t)
	info := openInfo()
	info.Exists = true

	action := model.MergeAction{Merger: author}
	out, err := d.Execute(context.Background(), actionEvent(action, mergedPR(author.Login)), info)

	require.NoError(t, err)
	assert.Equal(t, ResultSuccess, out.Result)
	assert.Equal(t, "MergeWithoutScoreByAuthorWithoutReviewers alice 1", firstReply(t, platform))
}

func TestMerge_ReplaysPreMergeScoresMuted(t *testing.T) {
	d, platform, ledger := newTestDispatcher(t)
	platform.preScores = []model.PendingScore{
		{Sender: maintainer, Raw: "7"},
		{Sender: author, Raw: "5"}, // self-score, dropped silently
	}
	info := openInfo()
	info.Exists = true

	action := model.MergeAction{Merger: maintainer}
	out, err := d.Execute(context.Background(), actionEvent(action, mergedPR(maintainer.Login)), info)

	require.NoError(t, err)
	assert.Equal(t, ResultSuccess, out.Result)
	assert.Equal(t, []string{
		"merge acme/widgets/7",
		"score acme/widgets/7 maude 8",
	}, ledger.calls)
	assert.Empty(t, platform.replies)
	assert.Equal(t, []model.Vote{{User: "maude", Score: 8}}, info.Votes)
}

func TestMerge_ExistingVotesNoReply(t *testing.T) {
	d, platform, ledger := newTestDispatcher(t)
	info := openInfo()
	info.Exists = true
	info.Votes = []model.Vote{{User: "maude", Score: 8}}

	out, err := d.Execute(context.Background(), actionEvent(model.MergeAction{Merger: maintainer}, mergedPR(maintainer.Login)), info)

	require.NoError(t, err)
	assert.Equal(t, ResultSuccess, out.Result)
	assert.True(t, out.UpdateStatus)
	assert.Equal(t, []string{"merge acme/widgets/7"}, ledger.calls)
	assert.Empty(t, platform.replies)
}

func TestMerge_PausedRepoRecordsWithoutStatus(t *testing.T) {
	d, platform, ledger := newTestDispatcher(t)
	info := openInfo()
	info.Exists = true
	info.PausedRepo = true

	out, err := d.Execute(context.Background(), actionEvent(model.MergeAction{Merger: maintainer}, mergedPR(maintainer.Login)), info)

	require.NoError(t, err)
	assert.Equal(t, ResultSuccess, out.Result)
	assert.False(t, out.UpdateStatus)
	assert.Equal(t, []string{"merge acme/widgets/7"}, ledger.calls)
	assert.Empty(t, platform.replies)
}

func TestMerge_AlreadyMergedSkips(t *testing.T) {
	d, _, ledger := newTestDispatcher(t)
	info := openInfo()
	info.Exists = true
	info.Merged = true

	out, err := d.Execute(context.Background(), actionEvent(model.MergeAction{Merger: maintainer}, mergedPR(maintainer.Login)), info)

	require.NoError(t, err)
	assert.Equal(t, ResultSkipped, out.Result)
	assert.Empty(t, ledger.calls)
}

func TestStale_ResetsAndReplies(t *testing.T) {
	d, platform, ledger := newTestDispatcher(t)
	info := openInfo()
	info.Exists = true
	info.Votes = []model.Vote{{User: "maude", Score: 8}}

	out, err := d.Execute(context.Background(), actionEvent(model.StaleAction{}, testPR()), info)

	require.NoError(t, err)
	assert.Equal(t, ResultSuccess, out.Result)
	assert.True(t, out.UpdateStatus)
	assert.Equal(t, []string{"stale acme/widgets/7"}, ledger.calls)
	assert.False(t, info.Exists)
	assert.Empty(t, info.Votes)
	assert.Equal(t, "Stale alice", firstReply(t, platform))
}

func TestStale_ClosedPRNoReply(t *testing.T) {
	d, platform, ledger := newTestDispatcher(t)
	info := openInfo()
	info.Exists = true

	pr := testPR()
	pr.Closed = true
	out, err := d.Execute(context.Background(), actionEvent(model.StaleAction{}, pr), info)

	require.NoError(t, err)
	assert.Equal(t, ResultSuccess, out.Result)
	assert.True(t, out.UpdateStatus)
	assert.Equal(t, []string{"stale acme/widgets/7"}, ledger.calls)
	assert.Empty(t, platform.replies)
}

func TestStale_PausedRepoSilent(t *testing.T) {
	d, platform, ledger := newTestDispatcher(t)
	info := openInfo()
	info.Exists = true
	info.Paused = true

	out, err := d.Execute(context.Background(), actionEvent(model.StaleAction{}, testPR()), info)

	require.NoError(t, err)
	assert.Equal(t, ResultSuccess, out.Result)
	assert.False(t, out.UpdateStatus)
	assert.Equal(t, []string{"stale acme/widgets/7"}, ledger.calls)
	assert.Empty(t, platform.replies)
}

func TestStale_MergedSkips(t *testing.T) {
	d, _, ledger := newTestDispatcher(t)
	info := openInfo()
	info.Merged = true

	out, err := d.Execute(context.Background(), actionEvent(model.StaleAction{}, testPR()), info)

	require.NoError(t, err)
	assert.Equal(t, ResultSkipped, out.Result)
	assert.Empty(t, ledger.calls)
}

func TestFinalize_SettlesAndReplies(t *testing.T) {
	d, platform, ledger := newTestDispatcher(t)
	platform.active = true
	info := openInfo()
	info.Exists = true
	info.Merged = true
	info.Votes = []model.Vote{{User: "maude", Score: 8}, {User: "rita", Score: 5}}

	out, err := d.Execute(context.Background(), actionEvent(model.FinalizeAction{}, mergedPR(maintainer.Login)), info)

	require.NoError(t, err)
	assert.Equal(t, ResultSuccess, out.Result)
	assert.True(t, out.UpdateStatus)
	assert.True(t, info.Executed)
	assert.Equal(t, []string{"finalize acme/widgets/7 active=true"}, ledger.calls)
	assert.Equal(t, "Final alice 6", firstReply(t, platform))
}

func TestFinalize_AlreadyExecutedSkips(t *testing.T) {
	d, _, ledger := newTestDispatcher(t)
	info := openInfo()
	info.Executed = true

	out, err := d.Execute(context.Background(), actionEvent(model.FinalizeAction{}, mergedPR(maintainer.Login)), info)

	require.NoError(t, err)
	assert.Equal(t, ResultSkipped, out.Result)
	assert.Empty(t, ledger.calls)
}
