package rep

// Store holds the in-memory reputation aggregates for all users. It is not
// safe for concurrent use on its own; the Service serializes access.
type Store struct {
	users map[uint64]*UserAggregate
}

// NewStore creates an empty reputation store.
func NewStore() *Store {
	return &Store{users: make(map[uint64]*UserAggregate)}
}

// GetOrCreateUser returns the aggregate for the given user, creating a zeroed
// one on first access. Aggregates are never deleted.
func (s *Store) GetOrCreateUser(id uint64) *UserAggregate {
	user, ok := s.users[id]
	if !ok {
		user = &UserAggregate{Tokens: make(map[string]*TokenAggregate)}
		s.users[id] = user
	}
	return user
}

// User returns the aggregate for the given user, or nil if none exists.
func (s *Store) User(id uint64) *UserAggregate {
	return s.users[id]
}

// Users returns the full aggregate map. Callers must not mutate it.
func (s *Store) Users() map[uint64]*UserAggregate {
	return s.users
}

// ApplyVote applies a voter's stance on a token under the given author. An
// opposite stance held by the same voter is removed first, so a voter holds at
// most one active stance per token. Re-applying an identical stance leaves the
// aggregates untouched. The token symbol is overwritten with the latest
// extracted value on every call.
func (s *Store) ApplyVote(authorID, voterID uint64, tokenAddress, symbol string, vt VoteType) VoteOutcome {
	user := s.GetOrCreateUser(authorID)

	token, ok := user.Tokens[tokenAddress]
	if !ok {
		token = &TokenAggregate{Symbol: symbol}
		user.Tokens[tokenAddress] = token
	}
	token.Symbol = symbol

	if containsVoter(token.Voters(vt), voterID) {
		return OutcomeNoop
	}

	outcome := OutcomeAdded
	opposite := vt.Opposite()
	if containsVoter(token.Voters(opposite), voterID) {
		s.removeStance(user, token, opposite, voterID)
		outcome = OutcomeSwitched
	}

	if vt == VoteGood {
		token.GoodVoters = append(token.GoodVoters, voterID)
		token.Good++
		user.Good++
	} else {
		token.BadVoters = append(token.BadVoters, voterID)
		token.Bad++
		user.Bad++
	}

	return outcome
}

// RetractVote removes a voter's stance on a token if present, decrementing
// both token and user counters. Counters are clamped at zero so duplicate or
// out-of-order retractions can never drive an aggregate negative.
func (s *Store) RetractVote(authorID, voterID uint64, tokenAddress string, vt VoteType) bool {
	user, ok := s.users[authorID]
	if !ok {
		return false
	}

	token, ok := user.Tokens[tokenAddress]
	if !ok {
		return false
	}

	if !containsVoter(token.Voters(vt), voterID) {
		return false
	}

	s.removeStance(user, token, vt, voterID)
	return true
}

// ApplyAdminVote adds count votes of the given type to the user aggregate
// under the admin pseudo-token. Voter sets are not involved.
func (s *Store) ApplyAdminVote(authorID uint64, vt VoteType, count int) {
	user := s.GetOrCreateUser(authorID)
	if vt == VoteGood {
		user.Good += count
	} else {
		user.Bad += count
	}
}

// RetractAdminVote removes a single admin-added vote from the user aggregate,
// clamped at zero.
func (s *Store) RetractAdminVote(authorID uint64, vt VoteType) {
	user, ok := s.users[authorID]
	if !ok {
		return
	}
	if vt == VoteGood {
		user.Good = clampZero(user.Good - 1)
	} else {
		user.Bad = clampZero(user.Bad - 1)
	}
}

// removeStance drops the voter from the matching voter set and decrements the
// token and user counters with a floor at zero.
func (s *Store) removeStance(user *UserAggregate, token *TokenAggregate, vt VoteType, voterID uint64) {
	if vt == VoteGood {
		token.GoodVoters = removeVoter(token.GoodVoters, voterID)
		token.Good = clampZero(token.Good - 1)
		user.Good = clampZero(user.Good - 1)
	} else {
		token.BadVoters = removeVoter(token.BadVoters, voterID)
		token.Bad = clampZero(token.Bad - 1)
		user.Bad = clampZero(user.Bad - 1)
	}
}

func containsVoter(voters []uint64, id uint64) bool {
	for _, v := range voters {
		if v == id {
			return true
		}
	}
	return false
}

func removeVoter(voters []uint64, id uint64) []uint64 {
	for i, v := range voters {
		if v == id {
			return append(voters[:i], voters[i+1:]...)
		}
	}
	return voters
}

func clampZero(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
