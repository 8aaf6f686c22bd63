package rep_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/repwatch/repwatch/internal/rep"
)

func TestLedgerRecord(t *testing.T) {
	t.Parallel()
	ledger := rep.NewLedger(zap.NewNop())

	record := ledger.Record(testVoterID, testAuthorID, testToken, rep.VoteGood, 555)

	require.NotEmpty(t, record.VoteID)
	assert.False(t, record.Reversed)
	assert.WithinDuration(t, time.Now().UTC(), record.Timestamp, time.Minute)
	assert.Same(t, record, ledger.Get(record.VoteID))
}

func TestLedgerReverse(t *testing.T) {
	t.Parallel()
	ledger := rep.NewLedger(zap.NewNop())

	record := ledger.Record(testVoterID, testAuthorID, testToken, rep.VoteGood, 555)

	assert.Equal(t, rep.ReverseOK, ledger.Reverse(record.VoteID))
	assert.True(t, record.Reversed)
	assert.Empty(t, ledger.RecentActive(10))

	// The reversed record stays in the log for auditing.
	assert.Same(t, record, ledger.Get(record.VoteID))

	assert.Equal(t, rep.ReverseAlreadyReversed, ledger.Reverse(record.VoteID))
	assert.Equal(t, rep.ReverseNotFound, ledger.Reverse("no-such-id"))
}

func TestFindActiveMatch(t *testing.T) {
	t.Parallel()
	ledger := rep.NewLedger(zap.NewNop())

	record := ledger.Record(testVoterID, testAuthorID, testToken, rep.VoteGood, 555)

	match := ledger.FindActiveMatch(testVoterID, testAuthorID, testToken, rep.VoteGood, 555)
	require.NotNil(t, match)
	assert.Equal(t, record.VoteID, match.VoteID)

	// Mismatches on any field produce no match.
	assert.Nil(t, ledger.FindActiveMatch(testVoterID, testAuthorID, testToken, rep.VoteBad, 555))
	assert.Nil(t, ledger.FindActiveMatch(testVoterID, testAuthorID, testToken, rep.VoteGood, 556))
	assert.Nil(t, ledger.FindActiveMatch(999, testAuthorID, testToken, rep.VoteGood, 555))

	// Reversed records are no longer matchable.
	ledger.Reverse(record.VoteID)
	assert.Nil(t, ledger.FindActiveMatch(testVoterID, testAuthorID, testToken, rep.VoteGood, 555))
}

func TestFindActiveMatchNewestWins(t *testing.T) {
	t.Parallel()
	ledger := rep.NewLedger(zap.NewNop())

	older := ledger.Record(testVoterID, testAuthorID, testToken, rep.VoteGood, 555)
	newer := ledger.Record(testVoterID, testAuthorID, testToken, rep.VoteGood, 555)
	older.Timestamp = time.Now().UTC().Add(-time.Hour)
	newer.Timestamp = time.Now().UTC()

	match := ledger.FindActiveMatch(testVoterID, testAuthorID, testToken, rep.VoteGood, 555)
	require.NotNil(t, match)
	assert.Equal(t, newer.VoteID, match.VoteID)
}

func TestRecentActiveOrder(t *testing.T) {
	t.Parallel()
	ledger := rep.NewLedger(zap.NewNop())

	now := time.Now().UTC()
	first := ledger.Record(1, testAuthorID, testToken, rep.VoteGood, 1)
	second := ledger.Record(2, testAuthorID, testToken, rep.VoteGood, 2)
	third := ledger.Record(3, testAuthorID, testToken, rep.VoteBad, 3)
	first.Timestamp = now.Add(-2 * time.Hour)
	second.Timestamp = now.Add(-time.Hour)
	third.Timestamp = now

	recent := ledger.RecentActive(2)
	require.Len(t, recent, 2)
	assert.Equal(t, third.VoteID, recent[0].VoteID)
	assert.Equal(t, second.VoteID, recent[1].VoteID)
}
