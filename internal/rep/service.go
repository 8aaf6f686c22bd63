package rep

import (
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

const (
	// GlyphGood is the reaction glyph counted as a good vote.
	GlyphGood = "🟢"
	// GlyphBad is the reaction glyph counted as a bad vote.
	GlyphBad = "🔴"
)

// ParseGlyph maps a reaction glyph to its vote type. The second return value
// is false for unrecognized glyphs.
func ParseGlyph(glyph string) (VoteType, bool) {
	switch glyph {
	case GlyphGood:
		return VoteGood, true
	case GlyphBad:
		return VoteBad, true
	default:
		return VoteGood, false
	}
}

// FlushRequester is notified after every successful ledger mutation so the
// persistence layer can snapshot the new state. Requests are fire-and-forget.
type FlushRequester interface {
	Request()
}

// ReactionEvent is a raw add/remove reaction event from the gateway, reduced
// to the fields the reconciler needs.
type ReactionEvent struct {
	GuildID   uint64
	ChannelID uint64
	MessageID uint64
	ActorID   uint64
	Emoji     string
}

// ResultKind classifies what a reaction event did to the ledger.
type ResultKind int

const (
	// ResultIgnored means the event matched no tracked context or the actor
	// may not vote; nothing was mutated.
	ResultIgnored ResultKind = iota
	// ResultSelfVote means the author reacted to their own voting message; the
	// caller should issue the compensating removal and notice.
	ResultSelfVote
	// ResultVoted means a vote was applied and recorded.
	ResultVoted
	// ResultRemoved means an active vote was retracted and reversed.
	ResultRemoved
)

// ReactionResult reports the effect of reconciling one reaction event.
type ReactionResult struct {
	Kind    ResultKind
	Outcome VoteOutcome
	Type    VoteType
	Record  *VoteRecord
	Context TrackedMessage
}

// Service is the single facade over the reputation store, the vote ledger,
// tracked messages, the disabled-voter set and per-guild audit sinks. All
// mutating operations run under one lock so a store mutation and its companion
// ledger write are a single atomic unit, and so snapshots never observe a
// half-applied mutation.
type Service struct {
	mu            sync.Mutex
	store         *Store
	ledger        *Ledger
	tracked       map[uint64]TrackedMessage
	disabled      map[uint64]struct{}
	auditChannels map[uint64]uint64
	flusher       FlushRequester
	logger        *zap.Logger
}

// NewService creates an empty reputation service.
func NewService(logger *zap.Logger) *Service {
	return &Service{
		store:         NewStore(),
		ledger:        NewLedger(logger),
		tracked:       make(map[uint64]TrackedMessage),
		disabled:      make(map[uint64]struct{}),
		auditChannels: make(map[uint64]uint64),
		logger:        logger.Named("rep"),
	}
}

// SetFlusher wires the persistence trigger. Must be called before events flow;
// a nil flusher disables snapshotting (used in tests).
func (s *Service) SetFlusher(f FlushRequester) {
	s.mu.Lock()
	s.flusher = f
	s.mu.Unlock()
}

// requestFlush must be called with the lock held.
func (s *Service) requestFlush() {
	if s.flusher != nil {
		s.flusher.Request()
	}
}

// TrackMessage registers a bot-posted voting message so later reactions on it
// resolve to the given author/token context.
func (s *Service) TrackMessage(messageID, authorID uint64, tokenAddress, tokenSymbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tracked[messageID] = TrackedMessage{
		AuthorID:     authorID,
		TokenAddress: tokenAddress,
		TokenSymbol:  tokenSymbol,
	}
}

// TrackedMessage returns the context for a tracked message, if any.
func (s *Service) TrackedMessage(messageID uint64) (TrackedMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, ok := s.tracked[messageID]
	return ctx, ok
}

// HandleReactionAdded reconciles an add-reaction event against the ledger.
// Disabled voters, unrecognized glyphs and untracked messages are ignored.
// Self-votes are rejected without mutation; the caller performs compensation.
func (s *Service) HandleReactionAdded(event ReactionEvent) ReactionResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.disabled[event.ActorID]; ok {
		return ReactionResult{Kind: ResultIgnored}
	}

	vt, ok := ParseGlyph(event.Emoji)
	if !ok {
		return ReactionResult{Kind: ResultIgnored}
	}

	ctx, ok := s.tracked[event.MessageID]
	if !ok {
		return ReactionResult{Kind: ResultIgnored}
	}

	if event.ActorID == ctx.AuthorID {
		return ReactionResult{Kind: ResultSelfVote, Type: vt, Context: ctx}
	}

	outcome := s.store.ApplyVote(ctx.AuthorID, event.ActorID, ctx.TokenAddress, ctx.TokenSymbol, vt)
	record := s.ledger.Record(event.ActorID, ctx.AuthorID, ctx.TokenAddress, vt, event.MessageID)

	s.logger.Debug("Vote applied",
		zap.String("vote_id", record.VoteID),
		zap.Uint64("voter_id", event.ActorID),
		zap.Uint64("author_id", ctx.AuthorID),
		zap.String("token_address", ctx.TokenAddress),
		zap.String("vote_type", vt.String()),
		zap.String("outcome", outcome.String()))

	s.requestFlush()

	return ReactionResult{
		Kind:    ResultVoted,
		Outcome: outcome,
		Type:    vt,
		Record:  record,
		Context: ctx,
	}
}

// HandleReactionRemoved reconciles a remove-reaction event. Removing a
// reaction that never produced an active vote is a no-op, so duplicate or
// replayed removals cannot drive counters negative.
func (s *Service) HandleReactionRemoved(event ReactionEvent) ReactionResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.disabled[event.ActorID]; ok {
		return ReactionResult{Kind: ResultIgnored}
	}

	vt, ok := ParseGlyph(event.Emoji)
	if !ok {
		return ReactionResult{Kind: ResultIgnored}
	}

	ctx, ok := s.tracked[event.MessageID]
	if !ok {
		return ReactionResult{Kind: ResultIgnored}
	}

	// Self-votes never reach the ledger, so the author removing their own
	// reaction has nothing to reconcile.
	if event.ActorID == ctx.AuthorID {
		return ReactionResult{Kind: ResultIgnored}
	}

	match := s.ledger.FindActiveMatch(event.ActorID, ctx.AuthorID, ctx.TokenAddress, vt, event.MessageID)
	if match == nil {
		return ReactionResult{Kind: ResultIgnored}
	}

	s.store.RetractVote(ctx.AuthorID, event.ActorID, ctx.TokenAddress, vt)
	s.ledger.Reverse(match.VoteID)

	s.logger.Debug("Vote retracted",
		zap.String("vote_id", match.VoteID),
		zap.Uint64("voter_id", event.ActorID),
		zap.Uint64("author_id", ctx.AuthorID),
		zap.String("vote_type", vt.String()))

	s.requestFlush()

	return ReactionResult{
		Kind:    ResultRemoved,
		Type:    vt,
		Record:  match,
		Context: ctx,
	}
}

// AddAdminVotes creates count independent admin vote records for the target
// user, each individually reversible. The voter recorded on each is the admin
// who issued the adjustment.
func (s *Service) AddAdminVotes(adminID, targetID uint64, vt VoteType, count int) ([]*VoteRecord, error) {
	if count <= 0 {
		return nil, ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]*VoteRecord, 0, count)
	for range count {
		s.store.ApplyAdminVote(targetID, vt, 1)
		records = append(records, s.ledger.Record(adminID, targetID, TokenAdminAdded, vt, 0))
	}

	s.logger.Info("Admin votes added",
		zap.Uint64("admin_id", adminID),
		zap.Uint64("target_id", targetID),
		zap.String("vote_type", vt.String()),
		zap.Int("count", count))

	s.requestFlush()
	return records, nil
}

// RemovalResult partitions the IDs handed to RemoveVotesByID by outcome.
type RemovalResult struct {
	Removed         []string
	AlreadyReversed []string
	NotFound        []string
}

// RemoveVotesByID reverses the votes with the given IDs, admin-originated or
// reaction-originated alike. Each ID is resolved independently; unknown and
// already-reversed IDs are reported rather than failing the batch.
func (s *Service) RemoveVotesByID(ids []string) RemovalResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result RemovalResult

	mutated := false
	for _, raw := range ids {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}

		record := s.ledger.Get(id)
		if record == nil {
			result.NotFound = append(result.NotFound, id)
			continue
		}
		if record.Reversed {
			result.AlreadyReversed = append(result.AlreadyReversed, id)
			continue
		}

		if record.IsAdmin() {
			s.store.RetractAdminVote(record.AuthorID, record.Type)
		} else if !s.store.RetractVote(record.AuthorID, record.VoterID, record.TokenAddress, record.Type) {
			// Voter set already lacked the stance; still clamp the user total
			// so the record's effect is undone exactly once.
			s.store.RetractAdminVote(record.AuthorID, record.Type)
		}
		s.ledger.Reverse(id)

		result.Removed = append(result.Removed, id)
		mutated = true
	}

	if mutated {
		s.requestFlush()
	}
	return result
}

// ToggleDisabledVoter flips the target's membership in the disabled-voter set
// and reports whether the user is now disabled.
func (s *Service) ToggleDisabledVoter(userID uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.disabled[userID]; ok {
		delete(s.disabled, userID)
		s.requestFlush()
		return false
	}

	s.disabled[userID] = struct{}{}
	s.requestFlush()
	return true
}

// IsDisabledVoter reports whether the user is excluded from voting.
func (s *Service) IsDisabledVoter(userID uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.disabled[userID]
	return ok
}

// SetAuditChannel configures the audit sink channel for a guild.
func (s *Service) SetAuditChannel(guildID, channelID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.auditChannels[guildID] = channelID
	s.requestFlush()
}

// AuditChannel returns the configured audit sink for a guild, if any.
func (s *Service) AuditChannel(guildID uint64) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	channelID, ok := s.auditChannels[guildID]
	return channelID, ok
}

// Profile returns a deep copy of the user's aggregate. The second return value
// is false when the user has never received a vote.
func (s *Service) Profile(userID uint64) (UserAggregate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user := s.store.User(userID)
	if user == nil {
		return UserAggregate{Tokens: map[string]*TokenAggregate{}}, false
	}

	copied := UserAggregate{
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
	return copied, true
}

// LeaderboardEntry is one ranked row of the reputation leaderboard.
type LeaderboardEntry struct {
	UserID uint64
	Good   int
	Bad    int
	Score  int
}

// Leaderboard returns every user with at least one vote, ranked by descending
// score, then descending good votes, then ascending bad votes.
func (s *Service) Leaderboard() []LeaderboardEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]LeaderboardEntry, 0, len(s.store.Users()))
	for id, user := range s.store.Users() {
		if user.Good == 0 && user.Bad == 0 {
			continue
		}
		entries = append(entries, LeaderboardEntry{
			UserID: id,
			Good:   user.Good,
			Bad:    user.Bad,
			Score:  user.Score(),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if entries[i].Good != entries[j].Good {
			return entries[i].Good > entries[j].Good
		}
		return entries[i].Bad < entries[j].Bad
	})

	return entries
}

// RecentActiveVotes returns up to n active vote records, newest first.
func (s *Service) RecentActiveVotes(n int) []*VoteRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.ledger.RecentActive(n)
	copies := make([]*VoteRecord, len(records))
	for i, record := range records {
		copied := *record
		copies[i] = &copied
	}
	return copies
}

// ResolveSymbol returns the display symbol for a vote's token, falling back to
// the derived default when the token is unknown to the store.
func (s *Service) ResolveSymbol(authorID uint64, tokenAddress string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tokenAddress == TokenAdminAdded {
		return TokenUnknown
	}
	if user := s.store.User(authorID); user != nil {
		if token, ok := user.Tokens[tokenAddress]; ok && token.Symbol != "" {
			return token.Symbol
		}
	}
	return DeriveSymbolDefault(tokenAddress)
}
