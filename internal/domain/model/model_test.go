package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/slothwatch/slothbot/internal/domain/model"
)

func TestUserIsMaintainer(t *testing.T) {
	tests := []struct {
		association model.Association
		want        bool
	}{
		{model.AssociationOwner, true},
		{model.AssociationMember, true},
		{model.AssociationCollaborator, true},
		{model.AssociationContributor, false},
		{model.AssociationFirstTimeContributor, false},
		{model.AssociationFirstTimer, false},
		{model.AssociationNone, false},
	}

	for _, tt := range tests {
		u := model.User{Login: "u", Association: tt.association}
		assert.Equal(t, tt.want, u.IsMaintainer(), string(tt.association))
	}
}

func TestRepoInfoFullID(t *testing.T) {
	info := model.RepoInfo{Owner: "acme", Repo: "widgets", Number: 42}
	assert.Equal(t, "acme/widgets/42", info.FullID())
	assert.Equal(t, "acme/widgets", info.FullRepo())
}

func TestPRInfoAverageScore(t *testing.T) {
	info := &model.PRInfo{}
	assert.Equal(t, uint32(0), info.AverageScore())

	info.Votes = []model.Vote{{User: "a", Score: 5}, {User: "b", Score: 8}}
	assert.Equal(t, uint32(6), info.AverageScore()) // floor of 6.5

	info.Votes = append(info.Votes, model.Vote{User: "c", Score: 13})
	assert.Equal(t, uint32(8), info.AverageScore())
}

func TestPRInfoSetVote(t *testing.T) {
	info := &model.PRInfo{}

	info.SetVote("alice", 5)
	info.SetVote("bob", 3)
	info.SetVote("alice", 8) // replaces, does not append

	assert.Equal(t, []model.Vote{{User: "alice", Score: 8}, {User: "bob", Score: 3}}, info.Votes)
}

func TestPRInfoResetAfterStale(t *testing.T) {
	info := &model.PRInfo{
		Exists:      true,
		Merged:      true,
		Executed:    true,
		Excluded:    true,
		AllowedRepo: true,
		PausedRepo:  true,
		Votes:       []model.Vote{{User: "a", Score: 2}},
	}

	info.ResetAfterStale()

	assert.False(t, info.Exists)
	assert.False(t, info.Merged)
	assert.False(t, info.Executed)
	assert.Empty(t, info.Votes)
	// Repo-level flags survive.
	assert.True(t, info.AllowedRepo)
	assert.True(t, info.PausedRepo)
	assert.True(t, info.Excluded)
}
