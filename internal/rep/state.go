package rep

import "sort"

// State is the complete serializable form of the ledger service: the five
// durable records written by every snapshot.
type State struct {
	Users         map[uint64]*UserAggregate `json:"users"`
	Log           map[string]*VoteRecord    `json:"log"`
	Active        map[string]*VoteRecord    `json:"active"`
	Disabled      []uint64                  `json:"disabled"`
	AuditChannels map[uint64]uint64         `json:"audit_channels"`
}

// NewState returns an empty state with all maps initialized.
func NewState() *State {
	return &State{
		Users:         make(map[uint64]*UserAggregate),
		Log:           make(map[string]*VoteRecord),
		Active:        make(map[string]*VoteRecord),
		AuditChannels: make(map[uint64]uint64),
	}
}

// Normalize fills nil maps and backfills token symbols missing from snapshots
// written before symbols were stored.
func (s *State) Normalize() {
	if s.Users == nil {
		s.Users = make(map[uint64]*UserAggregate)
	}
	if s.Log == nil {
		s.Log = make(map[string]*VoteRecord)
	}
	if s.Active == nil {
		s.Active = make(map[string]*VoteRecord)
	}
	if s.AuditChannels == nil {
		s.AuditChannels = make(map[uint64]uint64)
	}

	for _, user := range s.Users {
		if user.Tokens == nil {
			user.Tokens = make(map[string]*TokenAggregate)
		}
		for address, token := range user.Tokens {
			if token.Symbol == "" {
				token.Symbol = DeriveSymbolDefault(address)
			}
		}
	}
}

// ExportState deep-copies the full service state under the service lock, so a
// snapshot never observes a half-applied mutation.
func (s *Service) ExportState() *State {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := NewState()

	for id, user := range s.store.Users() {
		copied := &UserAggregate{
			Good:   user.Good,
			Bad:    user.Bad,
			Tokens: make(map[string]*TokenAggregate, len(user.Tokens)),
		}
		for address, token := range user.Tokens {
			copied.Tokens[address] = &TokenAggregate{
				Symbol:     token.Symbol,
				Good:       token.Good,
				Bad:        token.Bad,
				GoodVoters: append([]uint64(nil), token.GoodVoters...),
				BadVoters:  append([]uint64(nil), token.BadVoters...),
			}
		}
		state.Users[id] = copied
	}

	for id, record := range s.ledger.Log() {
		copied := *record
		state.Log[id] = &copied
	}
	for id := range s.ledger.Active() {
		state.Active[id] = state.Log[id]
	}

	state.Disabled = make([]uint64, 0, len(s.disabled))
	for id := range s.disabled {
		state.Disabled = append(state.Disabled, id)
	}
	sort.Slice(state.Disabled, func(i, j int) bool { return state.Disabled[i] < state.Disabled[j] })

	for guildID, channelID := range s.auditChannels {
		state.AuditChannels[guildID] = channelID
	}

	return state
}

// LoadState replaces the service's in-memory state with a restored snapshot.
// Active index entries are re-pointed at their log records so a later reversal
// updates both views; entries whose record is already reversed are dropped.
func (s *Service) LoadState(state *State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state.Normalize()

	s.store.users = state.Users
	s.ledger.log = state.Log

	s.ledger.active = make(map[string]*VoteRecord, len(state.Active))
	for id, loaded := range state.Active {
		record, ok := state.Log[id]
		if !ok {
			record = loaded
			state.Log[id] = loaded
		}
		if !record.Reversed {
			s.ledger.active[id] = record
		}
	}

	s.disabled = make(map[uint64]struct{}, len(state.Disabled))
	for _, id := range state.Disabled {
		s.disabled[id] = struct{}{}
	}

	s.auditChannels = state.AuditChannels
}
