package github_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ghAdapter "github.com/slothwatch/slothbot/internal/adapter/driven/github"
	"github.com/slothwatch/slothbot/internal/domain/model"
)

// newTestClient creates a Client backed by the given httptest handler, with
// the write login "slothbot" and two read shards.
func newTestClient(t *testing.T, handler http.Handler) *ghAdapter.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := ghAdapter.NewClientWithBaseURL(
		server.Client(),
		server.URL+"/",
		"slothbot",
		[]string{"sloth-read-0", "sloth-read-1"},
	)
	require.NoError(t, err)
	return client
}

type userJSON struct {
	Login string `json:"login"`
}

type commentJSON struct {
	ID                int64    `json:"id"`
	User              userJSON `json:"user"`
	Body              string   `json:"body"`
	AuthorAssociation string   `json:"author_association"`
	CreatedAt         string   `json:"created_at"`
}

type reviewJSON struct {
	ID          int64    `json:"id"`
	User        userJSON `json:"user"`
	Body        string   `json:"body"`
	State       string   `json:"state"`
	SubmittedAt string   `json:"submitted_at"`
}

type prJSON struct {
	Number            int       `json:"number"`
	State             string    `json:"state"`
	Body              string    `json:"body"`
	User              userJSON  `json:"user"`
	AuthorAssociation string    `json:"author_association"`
	CreatedAt         string    `json:"created_at"`
	UpdatedAt         string    `json:"updated_at"`
	MergedAt          *string   `json:"merged_at,omitempty"`
	MergedBy          *userJSON `json:"merged_by,omitempty"`
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestGetPullRequest_Mapping(t *testing.T) {
	mergedAt := "2026-08-01T10:00:00Z"
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/repos/acme/widgets/pulls/7", r.URL.Path)
		writeJSON(t, w, prJSON{
			Number:            7,
			State:             "closed",
			Body:              "fixes things",
			User:              userJSON{Login: "alice"},
			AuthorAssociation: "CONTRIBUTOR",
			CreatedAt:         "2026-07-30T00:00:00Z",
			UpdatedAt:         "2026-08-01T10:00:00Z",
			MergedAt:          &mergedAt,
			MergedBy:          &userJSON{Login: "maintainer1"},
		})
	})

	client := newTestClient(t, handler)
	pr, err := client.GetPullRequest(context.Background(), model.RepoInfo{Owner: "acme", Repo: "widgets", Number: 7})

	require.NoError(t, err)
	assert.Equal(t, "alice", pr.Author.Login)
	assert.Equal(t, model.AssociationContributor, pr.Author.Association)
	assert.True(t, pr.IsMerged())
	assert.True(t, pr.Closed)
	assert.Equal(t, "maintainer1", pr.MergedBy)
	assert.Equal(t, "acme/widgets/7", pr.RepoInfo.FullID())
}

func TestGetBotComment_FindsFirstOwnComment(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []commentJSON{
			{ID: 1, User: userJSON{Login: "alice"}, Body: "first", CreatedAt: "2026-08-01T00:00:00Z"},
			{ID: 2, User: userJSON{Login: "slothbot"}, Body: "status", CreatedAt: "2026-08-01T01:00:00Z"},
			{ID: 3, User: userJSON{Login: "slothbot"}, Body: "later", CreatedAt: "2026-08-01T02:00:00Z"},
		})
	})

	client := newTestClient(t, handler)
	comment, err := client.GetBotComment(context.Background(), model.RepoInfo{Owner: "o", Repo: "r", Number: 1})

	require.NoError(t, err)
	require.NotNil(t, comment)
	assert.Equal(t, int64(2), comment.ID)
	assert.Equal(t, "status", comment.Text)
}

func TestGetBotComment_NoneFound(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []commentJSON{
			{ID: 1, User: userJSON{Login: "alice"}, Body: "hi", CreatedAt: "2026-08-01T00:00:00Z"},
		})
	})

	client := newTestClient(t, handler)
	comment, err := client.GetBotComment(context.Background(), model.RepoInfo{Owner: "o", Repo: "r", Number: 1})

	require.NoError(t, err)
	assert.Nil(t, comment)
}

func TestIsActivePR(t *testing.T) {
	comments := []commentJSON{
		{ID: 1, User: userJSON{Login: "author1"}, Body: "my pr", CreatedAt: "2026-08-01T00:00:00Z"},
		{ID: 2, User: userJSON{Login: "slothbot"}, Body: "status", CreatedAt: "2026-08-01T01:00:00Z"},
		{ID: 3, User: userJSON{Login: "reviewer1"}, Body: "looks ok", CreatedAt: "2026-08-01T02:00:00Z"},
	}
	reviews := []reviewJSON{}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/repos/o/r/issues/1/comments":
			writeJSON(t, w, comments)
		case r.URL.Path == "/repos/o/r/pulls/1/reviews":
			writeJSON(t, w, reviews)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	client := newTestClient(t, handler)
	info := model.RepoInfo{Owner: "o", Repo: "r", Number: 1}

	// Only one distinct non-bot non-author participant.
	active, err := client.IsActivePR(context.Background(), info, "author1")
	require.NoError(t, err)
	assert.False(t, active)

	// A second distinct participant via a review crosses the threshold.
	reviews = append(reviews, reviewJSON{
		ID: 9, User: userJSON{Login: "reviewer2"}, State: "COMMENTED", SubmittedAt: "2026-08-01T03:00:00Z",
	})
	active, err = client.IsActivePR(context.Background(), info, "author1")
	require.NoError(t, err)
	assert.True(t, active)
}

func TestApprovedReviewers(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []reviewJSON{
			{ID: 1, User: userJSON{Login: "r1"}, State: "APPROVED", SubmittedAt: "2026-08-01T00:00:00Z"},
			{ID: 2, User: userJSON{Login: "r2"}, State: "CHANGES_REQUESTED", SubmittedAt: "2026-08-01T01:00:00Z"},
			{ID: 3, User: userJSON{Login: "r3"}, State: "PENDING", SubmittedAt: "2026-08-01T02:00:00Z"},
			{ID: 4, User: userJSON{Login: "r1"}, State: "APPROVED", SubmittedAt: "2026-08-01T03:00:00Z"},
		})
	})

	client := newTestClient(t, handler)
	reviewers, err := client.ApprovedReviewers(context.Background(), model.RepoInfo{Owner: "o", Repo: "r", Number: 1})

	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r3"}, reviewers)
}

func TestMarkRead_OutOfRangeShardIsError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	err := client.MarkRead(context.Background(), &model.Notification{ID: "1", ReadClientID: 5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestPreMergeScores(t *testing.T) {
	merged := "2026-08-10T00:00:00Z"
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/repos/o/r/issues/3/comments":
			writeJSON(t, w, []commentJSON{
				{ID: 1, User: userJSON{Login: "m1"}, Body: "@slothbot score 5", AuthorAssociation: "MEMBER", CreatedAt: "2026-08-09T00:00:00Z"},
				{ID: 2, User: userJSON{Login: "m2"}, Body: "@slothbot 8", AuthorAssociation: "OWNER", CreatedAt: "2026-08-09T01:00:00Z"},
				{ID: 3, User: userJSON{Login: "m3"}, Body: "@slothbot include", AuthorAssociation: "MEMBER", CreatedAt: "2026-08-09T02:00:00Z"},
				{ID: 4, User: userJSON{Login: "m4"}, Body: "@slothbot score 3", AuthorAssociation: "MEMBER", CreatedAt: "2026-08-11T00:00:00Z"},
			})
		case r.URL.Path == "/repos/o/r/pulls/3/reviews":
			writeJSON(t, w, []reviewJSON{})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	client := newTestClient(t, handler)
	mergedAt := mustTime(t, merged)
	pr := &model.PullRequest{
		RepoInfo: model.RepoInfo{Owner: "o", Repo: "r", Number: 3},
		Merged:   &mergedAt,
	}

	scores, err := client.PreMergeScores(context.Background(), pr)
	require.NoError(t, err)

	// Only score commands posted before the merge time count; the include at
	// ID 3 and the post-merge score at ID 4 are ignored.
	require.Len(t, scores, 2)
	assert.Equal(t, "m1", scores[0].Sender.Login)
	assert.Equal(t, "5", scores[0].Raw)
	assert.Equal(t, "m2", scores[1].Sender.Login)
	assert.Equal(t, "8", scores[1].Raw)
}
