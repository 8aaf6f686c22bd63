package rep

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReverseResult reports the outcome of a reversal attempt. Reversing an
// already-reversed record is a distinct outcome, not an error.
type ReverseResult int

const (
	ReverseOK ReverseResult = iota
	ReverseAlreadyReversed
	ReverseNotFound
)

// Ledger is the append-only audit log of vote records plus a derived index of
// the records that are still active. It is not safe for concurrent use on its
// own; the Service serializes access.
type Ledger struct {
	log    map[string]*VoteRecord
	active map[string]*VoteRecord
	logger *zap.Logger
}

// NewLedger creates an empty vote ledger.
func NewLedger(logger *zap.Logger) *Ledger {
	return &Ledger{
		log:    make(map[string]*VoteRecord),
		active: make(map[string]*VoteRecord),
		logger: logger.Named("ledger"),
	}
}

// Record appends a new active vote record with a generated ID and creation
// timestamp, and returns it.
func (l *Ledger) Record(voterID, authorID uint64, tokenAddress string, vt VoteType, messageID uint64) *VoteRecord {
	record := &VoteRecord{
		VoteID:       uuid.New().String(),
		VoterID:      voterID,
		AuthorID:     authorID,
		TokenAddress: tokenAddress,
		Type:         vt,
		MessageID:    messageID,
		Timestamp:    time.Now().UTC(),
	}

	l.log[record.VoteID] = record
	l.active[record.VoteID] = record
	return record
}

// Get returns the record with the given ID, or nil if none exists.
func (l *Ledger) Get(voteID string) *VoteRecord {
	return l.log[voteID]
}

// Log returns the full record map. Callers must not mutate it.
func (l *Ledger) Log() map[string]*VoteRecord {
	return l.log
}

// Active returns the active-record index. Callers must not mutate it.
func (l *Ledger) Active() map[string]*VoteRecord {
	return l.active
}

// Reverse marks the record with the given ID as reversed and drops it from the
// active index. The transition is one-way and idempotent.
func (l *Ledger) Reverse(voteID string) ReverseResult {
	record, ok := l.log[voteID]
	if !ok {
		return ReverseNotFound
	}
	if record.Reversed {
		return ReverseAlreadyReversed
	}

	record.Reversed = true
	delete(l.active, voteID)
	return ReverseOK
}

// FindActiveMatch scans the active index for the vote matching the given
// fields. The store's mutual-exclusion invariant means at most one match is
// expected; if several are found the most recently created one wins and a
// warning is logged so the inconsistency is visible.
func (l *Ledger) FindActiveMatch(voterID, authorID uint64, tokenAddress string, vt VoteType, messageID uint64) *VoteRecord {
	var matches []*VoteRecord

	for _, record := range l.active {
		if record.VoterID == voterID &&
			record.AuthorID == authorID &&
			record.TokenAddress == tokenAddress &&
			record.Type == vt &&
			record.MessageID == messageID {
			matches = append(matches, record)
		}
	}

	if len(matches) == 0 {
		return nil
	}

	newest := matches[0]
	for _, record := range matches[1:] {
		if record.Timestamp.After(newest.Timestamp) {
			newest = record
		}
	}

	if len(matches) > 1 {
		l.logger.Warn("Ambiguous vote state: multiple active matches",
			zap.Int("matches", len(matches)),
			zap.Uint64("voter_id", voterID),
			zap.Uint64("author_id", authorID),
			zap.String("token_address", tokenAddress),
			zap.String("vote_type", vt.String()),
			zap.String("chosen_vote_id", newest.VoteID))
	}

	return newest
}

// RecentActive returns up to n active records, newest first.
func (l *Ledger) RecentActive(n int) []*VoteRecord {
	records := make([]*VoteRecord, 0, len(l.active))
	for _, record := range l.active {
		records = append(records, record)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})

	if len(records) > n {
		records = records[:n]
	}
	return records
}
