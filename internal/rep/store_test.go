package rep_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repwatch/repwatch/internal/rep"
)

const (
	testAuthorID = uint64(100)
	testVoterID  = uint64(200)
	testToken    = "So11111111111111111111111111111111111111112"
)

func TestApplyVoteOutcomes(t *testing.T) {
	t.Parallel()
	store := rep.NewStore()

	outcome := store.ApplyVote(testAuthorID, testVoterID, testToken, "SOL", rep.VoteGood)
	assert.Equal(t, rep.OutcomeAdded, outcome)

	// Same stance again leaves the aggregates untouched.
	outcome = store.ApplyVote(testAuthorID, testVoterID, testToken, "SOL", rep.VoteGood)
	assert.Equal(t, rep.OutcomeNoop, outcome)

	user := store.User(testAuthorID)
	require.NotNil(t, user)
	assert.Equal(t, 1, user.Good)
	assert.Equal(t, 0, user.Bad)
}

func TestApplyVoteSwitchConservesTotal(t *testing.T) {
	t.Parallel()
	store := rep.NewStore()

	store.ApplyVote(testAuthorID, testVoterID, testToken, "SOL", rep.VoteGood)
	outcome := store.ApplyVote(testAuthorID, testVoterID, testToken, "SOL", rep.VoteBad)
	assert.Equal(t, rep.OutcomeSwitched, outcome)

	user := store.User(testAuthorID)
	assert.Equal(t, 0, user.Good)
	assert.Equal(t, 1, user.Bad)

	token := user.Tokens[testToken]
	require.NotNil(t, token)
	assert.Empty(t, token.GoodVoters)
	assert.Equal(t, []uint64{testVoterID}, token.BadVoters)
	assert.Equal(t, 0, token.Good)
	assert.Equal(t, 1, token.Bad)
}

func TestApplyVoteMutualExclusion(t *testing.T) {
	t.Parallel()
	store := rep.NewStore()

	// Flip stance several times; the voter must always hold exactly one.
	for range 5 {
		store.ApplyVote(testAuthorID, testVoterID, testToken, "SOL", rep.VoteGood)
		store.ApplyVote(testAuthorID, testVoterID, testToken, "SOL", rep.VoteBad)
	}

	token := store.User(testAuthorID).Tokens[testToken]
	assert.Len(t, token.GoodVoters, 0)
	assert.Len(t, token.BadVoters, 1)
	assert.Equal(t, 1, token.Good+token.Bad)
}

func TestApplyVoteSymbolLastWriteWins(t *testing.T) {
	t.Parallel()
	store := rep.NewStore()

	store.ApplyVote(testAuthorID, testVoterID, testToken, "OLD", rep.VoteGood)
	store.ApplyVote(testAuthorID, 201, testToken, "NEW", rep.VoteGood)

	assert.Equal(t, "NEW", store.User(testAuthorID).Tokens[testToken].Symbol)
}

func TestRetractVote(t *testing.T) {
	t.Parallel()
	store := rep.NewStore()

	store.ApplyVote(testAuthorID, testVoterID, testToken, "SOL", rep.VoteGood)

	assert.True(t, store.RetractVote(testAuthorID, testVoterID, testToken, rep.VoteGood))

	user := store.User(testAuthorID)
	assert.Equal(t, 0, user.Good)
	assert.Empty(t, user.Tokens[testToken].GoodVoters)

	// Duplicate retraction is a no-op and can never drive counters negative.
	assert.False(t, store.RetractVote(testAuthorID, testVoterID, testToken, rep.VoteGood))
	assert.Equal(t, 0, user.Good)
}

func TestRetractVoteUnknownTargets(t *testing.T) {
	t.Parallel()
	store := rep.NewStore()

	assert.False(t, store.RetractVote(999, testVoterID, testToken, rep.VoteGood))

	store.ApplyVote(testAuthorID, testVoterID, testToken, "SOL", rep.VoteGood)
	assert.False(t, store.RetractVote(testAuthorID, testVoterID, "other", rep.VoteGood))
	assert.False(t, store.RetractVote(testAuthorID, 999, testToken, rep.VoteGood))
}

func TestAdminVotes(t *testing.T) {
	t.Parallel()
	store := rep.NewStore()

	store.ApplyAdminVote(testAuthorID, rep.VoteGood, 3)
	store.ApplyAdminVote(testAuthorID, rep.VoteBad, 1)

	user := store.User(testAuthorID)
	assert.Equal(t, 3, user.Good)
	assert.Equal(t, 1, user.Bad)

	store.RetractAdminVote(testAuthorID, rep.VoteBad)
	store.RetractAdminVote(testAuthorID, rep.VoteBad)
	assert.Equal(t, 0, user.Bad, "retraction clamps at zero")

	store.RetractAdminVote(999, rep.VoteGood)
	assert.Nil(t, store.User(999), "retracting from an unknown user creates nothing")
}

func TestTopTokensRanking(t *testing.T) {
	t.Parallel()
	store := rep.NewStore()

	store.ApplyVote(testAuthorID, 1, "tokenA", "AAA", rep.VoteGood)
	store.ApplyVote(testAuthorID, 2, "tokenA", "AAA", rep.VoteGood)
	store.ApplyVote(testAuthorID, 3, "tokenA", "AAA", rep.VoteBad)
	store.ApplyVote(testAuthorID, 1, "tokenB", "BBB", rep.VoteGood)

	top := store.User(testAuthorID).TopTokens(1)
	require.Len(t, top, 1)
	assert.Equal(t, "tokenA", top[0].Address)
	assert.Equal(t, 2, top[0].Good)
	assert.Equal(t, 1, top[0].Bad)
}
