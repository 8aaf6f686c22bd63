package rep_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repwatch/repwatch/internal/rep"
)

func TestExportStateIsolation(t *testing.T) {
	t.Parallel()
	service := newTestService(t)
	service.TrackMessage(testMessageID, testAuthorID, testToken, "SOL")
	service.HandleReactionAdded(reaction(200, rep.GlyphGood))

	state := service.ExportState()
	require.Len(t, state.Users, 1)
	require.Len(t, state.Log, 1)
	require.Len(t, state.Active, 1)

	// Later mutations must not leak into the exported copy.
	service.HandleReactionAdded(reaction(201, rep.GlyphGood))
	service.HandleReactionRemoved(reaction(200, rep.GlyphGood))

	assert.Len(t, state.Log, 1)
	assert.Equal(t, 1, state.Users[testAuthorID].Good)
	for _, record := range state.Log {
		assert.False(t, record.Reversed)
	}
}

func TestLoadStateRoundTrip(t *testing.T) {
	t.Parallel()
	service := newTestService(t)
	service.TrackMessage(testMessageID, testAuthorID, testToken, "SOL")
	service.HandleReactionAdded(reaction(200, rep.GlyphGood))
	service.ToggleDisabledVoter(300)
	service.SetAuditChannel(testGuildID, testChannelID)

	restored := newTestService(t)
	restored.LoadState(service.ExportState())

	profile, ok := restored.Profile(testAuthorID)
	require.True(t, ok)
	assert.Equal(t, 1, profile.Good)
	assert.True(t, restored.IsDisabledVoter(300))

	channelID, ok := restored.AuditChannel(testGuildID)
	assert.True(t, ok)
	assert.Equal(t, testChannelID, channelID)

	votes := restored.RecentActiveVotes(10)
	require.Len(t, votes, 1)
	assert.Equal(t, uint64(200), votes[0].VoterID)
}

func TestLoadStateDropsReversedActives(t *testing.T) {
	t.Parallel()

	record := &rep.VoteRecord{
		VoteID:       "abc",
		VoterID:      200,
		AuthorID:     testAuthorID,
		TokenAddress: testToken,
		Type:         rep.VoteGood,
		Timestamp:    time.Now().UTC(),
		Reversed:     true,
	}

	state := rep.NewState()
	state.Log[record.VoteID] = record
	// A crash between writes can leave a reversed record in the active index.
	state.Active[record.VoteID] = record

	service := newTestService(t)
	service.LoadState(state)

	assert.Empty(t, service.RecentActiveVotes(10))
}

func TestNormalizeBackfillsSymbols(t *testing.T) {
	t.Parallel()

	state := rep.NewState()
	state.Users[testAuthorID] = &rep.UserAggregate{
		Good: 1,
		Tokens: map[string]*rep.TokenAggregate{
			testToken: {Good: 1, GoodVoters: []uint64{200}},
		},
	}

	state.Normalize()

	assert.Equal(t, "So1111...", state.Users[testAuthorID].Tokens[testToken].Symbol)
}
