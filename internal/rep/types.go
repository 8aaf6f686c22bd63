package rep

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

const (
	// TokenUnknown is the sentinel address used when no token address could be
	// extracted from a tracked message.
	TokenUnknown = "unknown"

	// TokenAdminAdded is the pseudo-token address attached to votes created by
	// administrators. These votes count toward user totals only and never touch
	// any token aggregate.
	TokenAdminAdded = "admin_added"
)

var (
	// ErrInvalidAmount is returned when an admin adjustment requests a
	// non-positive vote count.
	ErrInvalidAmount = errors.New("vote amount must be positive")

	// ErrUnknownVoteType is returned when parsing an unrecognized vote type.
	ErrUnknownVoteType = errors.New("unknown vote type")
)

// VoteType identifies the direction of a reputation vote.
type VoteType int

const (
	VoteGood VoteType = iota
	VoteBad
)

// String returns the wire representation used in snapshots and audit logs.
func (v VoteType) String() string {
	if v == VoteBad {
		return "bad"
	}
	return "good"
}

// Opposite returns the other vote direction.
func (v VoteType) Opposite() VoteType {
	if v == VoteGood {
		return VoteBad
	}
	return VoteGood
}

// MarshalJSON encodes the vote type as its string form so snapshots stay
// compatible with data written by earlier versions of the bot.
func (v VoteType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + v.String() + `"`), nil
}

// UnmarshalJSON decodes the string form of a vote type.
func (v *VoteType) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"good"`:
		*v = VoteGood
	case `"bad"`:
		*v = VoteBad
	default:
		return fmt.Errorf("%w: %s", ErrUnknownVoteType, data)
	}
	return nil
}

// ParseVoteType converts the string form of a vote type back to its enum value.
func ParseVoteType(s string) (VoteType, error) {
	switch s {
	case "good":
		return VoteGood, nil
	case "bad":
		return VoteBad, nil
	default:
		return VoteGood, fmt.Errorf("%w: %q", ErrUnknownVoteType, s)
	}
}

// TokenAggregate holds the running totals for a single token under one user.
// Voter sets are kept as ordered slices so snapshots round-trip deterministically.
type TokenAggregate struct {
	Symbol     string   `json:"symbol"`
	Good       int      `json:"good"`
	Bad        int      `json:"bad"`
	GoodVoters []uint64 `json:"goodvoters"`
	BadVoters  []uint64 `json:"badvoters"`
}

// Voters returns the voter set for the given vote type.
func (t *TokenAggregate) Voters(vt VoteType) []uint64 {
	if vt == VoteBad {
		return t.BadVoters
	}
	return t.GoodVoters
}

// UserAggregate holds the running reputation totals for one user, including
// admin-added votes that are not bound to any token.
type UserAggregate struct {
	Good   int                        `json:"good"`
	Bad    int                        `json:"bad"`
	Tokens map[string]*TokenAggregate `json:"tokens"`
}

// Score returns good minus bad votes.
func (u *UserAggregate) Score() int {
	return u.Good - u.Bad
}

// TokenEntry pairs a token address with its aggregate for ranked listings.
type TokenEntry struct {
	Address string
	*TokenAggregate
}

// TopTokens returns up to n of the user's tokens ranked by total vote count.
func (u *UserAggregate) TopTokens(n int) []TokenEntry {
	entries := make([]TokenEntry, 0, len(u.Tokens))
	for address, token := range u.Tokens {
		entries = append(entries, TokenEntry{Address: address, TokenAggregate: token})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Good+entries[i].Bad > entries[j].Good+entries[j].Bad
	})

	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// VoteRecord is one entry in the append-only vote ledger. Records are never
// deleted; reversal is a one-way transition of the Reversed flag.
type VoteRecord struct {
	VoteID       string    `json:"vote_id"`
	VoterID      uint64    `json:"voter_id"`
	AuthorID     uint64    `json:"author_id"`
	TokenAddress string    `json:"token_address"`
	Type         VoteType  `json:"vote_type"`
	MessageID    uint64    `json:"message_id"`
	Timestamp    time.Time `json:"timestamp"`
	Reversed     bool      `json:"reversed"`
}

// IsAdmin reports whether the record was created by an admin adjustment rather
// than a reaction event.
func (r *VoteRecord) IsAdmin() bool {
	return r.TokenAddress == TokenAdminAdded
}

// TrackedMessage binds a bot-posted voting message to the author and token
// context its reactions are interpreted against.
type TrackedMessage struct {
	AuthorID     uint64 `json:"author"`
	TokenAddress string `json:"token_address"`
	TokenSymbol  string `json:"token_symbol"`
}

// VoteOutcome describes the aggregate-level effect of applying a vote.
type VoteOutcome int

const (
	// OutcomeAdded means the voter held no prior stance on the token.
	OutcomeAdded VoteOutcome = iota
	// OutcomeSwitched means the voter's opposite stance was replaced.
	OutcomeSwitched
	// OutcomeNoop means the voter already held the same stance; aggregates
	// were left untouched.
	OutcomeNoop
)

// String returns a human-readable form for audit notifications.
func (o VoteOutcome) String() string {
	switch o {
	case OutcomeSwitched:
		return "Switched"
	case OutcomeNoop:
		return "Unchanged"
	default:
		return "Added"
	}
}
