package rep_test

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/repwatch/repwatch/internal/rep"
)

const (
	testGuildID   = uint64(10)
	testChannelID = uint64(20)
	testMessageID = uint64(30)
)

// countingFlusher records how many snapshot requests mutations produced.
type countingFlusher struct {
	requests atomic.Int64
}

func (f *countingFlusher) Request() {
	f.requests.Add(1)
}

func newTestService(t *testing.T) *rep.Service {
	t.Helper()
	return rep.NewService(zap.NewNop())
}

func reaction(actorID uint64, emoji string) rep.ReactionEvent {
	return rep.ReactionEvent{
		GuildID:   testGuildID,
		ChannelID: testChannelID,
		MessageID: testMessageID,
		ActorID:   actorID,
		Emoji:     emoji,
	}
}

func TestVotingLifecycle(t *testing.T) {
	t.Parallel()
	service := newTestService(t)
	service.TrackMessage(testMessageID, testAuthorID, testToken, "SOL")

	// Two voters react with the good glyph.
	result := service.HandleReactionAdded(reaction(200, rep.GlyphGood))
	require.Equal(t, rep.ResultVoted, result.Kind)
	assert.Equal(t, rep.OutcomeAdded, result.Outcome)
	require.NotNil(t, result.Record)

	result2 := service.HandleReactionAdded(reaction(201, rep.GlyphGood))
	require.Equal(t, rep.ResultVoted, result2.Kind)

	board := service.Leaderboard()
	require.Len(t, board, 1)
	assert.Equal(t, testAuthorID, board[0].UserID)
	assert.Equal(t, 2, board[0].Score)

	// First voter pulls their reaction.
	removed := service.HandleReactionRemoved(reaction(200, rep.GlyphGood))
	require.Equal(t, rep.ResultRemoved, removed.Kind)
	assert.Equal(t, result.Record.VoteID, removed.Record.VoteID)

	board = service.Leaderboard()
	require.Len(t, board, 1)
	assert.Equal(t, 1, board[0].Score)

	// An admin reverses the second vote by ID.
	removal := service.RemoveVotesByID([]string{result2.Record.VoteID})
	assert.Equal(t, []string{result2.Record.VoteID}, removal.Removed)
	assert.Empty(t, service.Leaderboard())

	// Reversal is one-way; a second attempt reports it as such.
	removal = service.RemoveVotesByID([]string{result2.Record.VoteID})
	assert.Empty(t, removal.Removed)
	assert.Equal(t, []string{result2.Record.VoteID}, removal.AlreadyReversed)
}

func TestVoteSwitch(t *testing.T) {
	t.Parallel()
	service := newTestService(t)
	service.TrackMessage(testMessageID, testAuthorID, testToken, "SOL")

	service.HandleReactionAdded(reaction(200, rep.GlyphGood))
	result := service.HandleReactionAdded(reaction(200, rep.GlyphBad))

	require.Equal(t, rep.ResultVoted, result.Kind)
	assert.Equal(t, rep.OutcomeSwitched, result.Outcome)

	profile, ok := service.Profile(testAuthorID)
	require.True(t, ok)
	assert.Equal(t, 0, profile.Good)
	assert.Equal(t, 1, profile.Bad)
	assert.Equal(t, -1, profile.Score())
}

func TestSelfVoteRejected(t *testing.T) {
	t.Parallel()
	service := newTestService(t)
	service.TrackMessage(testMessageID, testAuthorID, testToken, "SOL")

	result := service.HandleReactionAdded(reaction(testAuthorID, rep.GlyphGood))
	assert.Equal(t, rep.ResultSelfVote, result.Kind)
	assert.Equal(t, testAuthorID, result.Context.AuthorID)

	_, ok := service.Profile(testAuthorID)
	assert.False(t, ok, "rejected self-vote must not create an aggregate")
}

func TestReactionIgnoredCases(t *testing.T) {
	t.Parallel()
	service := newTestService(t)
	service.TrackMessage(testMessageID, testAuthorID, testToken, "SOL")

	// Unrecognized glyph.
	result := service.HandleReactionAdded(reaction(200, "👍"))
	assert.Equal(t, rep.ResultIgnored, result.Kind)

	// Untracked message.
	event := reaction(200, rep.GlyphGood)
	event.MessageID = 999
	assert.Equal(t, rep.ResultIgnored, service.HandleReactionAdded(event).Kind)

	// Removal with no matching active vote.
	assert.Equal(t, rep.ResultIgnored, service.HandleReactionRemoved(reaction(200, rep.GlyphGood)).Kind)
}

func TestDisabledVoter(t *testing.T) {
	t.Parallel()
	service := newTestService(t)
	service.TrackMessage(testMessageID, testAuthorID, testToken, "SOL")

	assert.True(t, service.ToggleDisabledVoter(200))
	assert.True(t, service.IsDisabledVoter(200))

	result := service.HandleReactionAdded(reaction(200, rep.GlyphGood))
	assert.Equal(t, rep.ResultIgnored, result.Kind)

	// Re-enabling restores voting.
	assert.False(t, service.ToggleDisabledVoter(200))
	result = service.HandleReactionAdded(reaction(200, rep.GlyphGood))
	assert.Equal(t, rep.ResultVoted, result.Kind)
}

func TestAddAdminVotes(t *testing.T) {
	t.Parallel()
	service := newTestService(t)

	records, err := service.AddAdminVotes(1, testAuthorID, rep.VoteGood, 3)
	require.NoError(t, err)
	require.Len(t, records, 3)

	for _, record := range records {
		assert.True(t, record.IsAdmin())
		assert.Equal(t, uint64(1), record.VoterID)
		assert.NotEmpty(t, record.VoteID)
	}

	profile, ok := service.Profile(testAuthorID)
	require.True(t, ok)
	assert.Equal(t, 3, profile.Good)

	// Each admin vote is individually reversible.
	removal := service.RemoveVotesByID([]string{records[0].VoteID})
	assert.Len(t, removal.Removed, 1)

	profile, _ = service.Profile(testAuthorID)
	assert.Equal(t, 2, profile.Good)
}

func TestAddAdminVotesInvalidAmount(t *testing.T) {
	t.Parallel()
	service := newTestService(t)

	_, err := service.AddAdminVotes(1, testAuthorID, rep.VoteGood, 0)
	assert.ErrorIs(t, err, rep.ErrInvalidAmount)

	_, err = service.AddAdminVotes(1, testAuthorID, rep.VoteGood, -5)
	assert.ErrorIs(t, err, rep.ErrInvalidAmount)
}

func TestRemoveVotesByIDPartitions(t *testing.T) {
	t.Parallel()
	service := newTestService(t)
	service.TrackMessage(testMessageID, testAuthorID, testToken, "SOL")

	result := service.HandleReactionAdded(reaction(200, rep.GlyphGood))
	require.Equal(t, rep.ResultVoted, result.Kind)

	removal := service.RemoveVotesByID([]string{
		" " + result.Record.VoteID + " ", // surrounding whitespace is tolerated
		"bogus-id",
		"",
	})

	assert.Equal(t, []string{result.Record.VoteID}, removal.Removed)
	assert.Equal(t, []string{"bogus-id"}, removal.NotFound)
	assert.Empty(t, removal.AlreadyReversed)
}

func TestLeaderboardOrdering(t *testing.T) {
	t.Parallel()
	service := newTestService(t)

	_, err := service.AddAdminVotes(1, 101, rep.VoteGood, 5)
	require.NoError(t, err)
	_, err = service.AddAdminVotes(1, 102, rep.VoteGood, 2)
	require.NoError(t, err)
	_, err = service.AddAdminVotes(1, 102, rep.VoteBad, 1)
	require.NoError(t, err)
	_, err = service.AddAdminVotes(1, 103, rep.VoteGood, 1)
	require.NoError(t, err)

	board := service.Leaderboard()
	require.Len(t, board, 3)
	assert.Equal(t, uint64(101), board[0].UserID)
	assert.Equal(t, uint64(102), board[1].UserID, "ties on score break by good votes")
	assert.Equal(t, uint64(103), board[2].UserID)
}

func TestAuditChannel(t *testing.T) {
	t.Parallel()
	service := newTestService(t)

	_, ok := service.AuditChannel(testGuildID)
	assert.False(t, ok)

	service.SetAuditChannel(testGuildID, testChannelID)
	channelID, ok := service.AuditChannel(testGuildID)
	assert.True(t, ok)
	assert.Equal(t, testChannelID, channelID)
}

func TestResolveSymbol(t *testing.T) {
	t.Parallel()
	service := newTestService(t)
	service.TrackMessage(testMessageID, testAuthorID, testToken, "SOL")
	service.HandleReactionAdded(reaction(200, rep.GlyphGood))

	assert.Equal(t, "SOL", service.ResolveSymbol(testAuthorID, testToken))
	assert.Equal(t, rep.TokenUnknown, service.ResolveSymbol(testAuthorID, rep.TokenAdminAdded))
	assert.Equal(t, "abcdef...", service.ResolveSymbol(testAuthorID, "abcdef123"))
}

func TestMutationsRequestFlush(t *testing.T) {
	t.Parallel()
	service := newTestService(t)
	flusher := &countingFlusher{}
	service.SetFlusher(flusher)
	service.TrackMessage(testMessageID, testAuthorID, testToken, "SOL")

	service.HandleReactionAdded(reaction(200, rep.GlyphGood))
	service.HandleReactionRemoved(reaction(200, rep.GlyphGood))
	service.ToggleDisabledVoter(300)
	service.SetAuditChannel(testGuildID, testChannelID)

	assert.Equal(t, int64(4), flusher.requests.Load())

	// Ignored events must not trigger snapshots.
	before := flusher.requests.Load()
	service.HandleReactionAdded(reaction(200, "👍"))
	service.RemoveVotesByID([]string{"bogus"})
	assert.Equal(t, before, flusher.requests.Load())
}
