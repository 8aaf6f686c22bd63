package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/repwatch/repwatch/internal/rep"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// Keys of the five durable records. Each is a complete JSON snapshot
// overwritten on every flush.
const (
	KeyReputation     = "repwatch:reputation"
	KeyVoteLog        = "repwatch:vote_log"
	KeyActiveVotes    = "repwatch:active_votes"
	KeyDisabledVoters = "repwatch:disabled_voters"
	KeyAuditChannels  = "repwatch:audit_channels"
)

// Snapshotter serializes ledger state to a blob store and reconstructs it.
type Snapshotter struct {
	store  BlobStore
	logger *zap.Logger
}

// NewSnapshotter creates a snapshotter over the given blob store.
func NewSnapshotter(store BlobStore, logger *zap.Logger) *Snapshotter {
	return &Snapshotter{
		store:  store,
		logger: logger.Named("snapshot"),
	}
}

// Snapshot writes all five records. Records are written in parallel; each
// individual write is atomic, so a failure leaves at worst a consistent mix of
// old and new records, never a partially written one.
func (s *Snapshotter) Snapshot(ctx context.Context, state *rep.State) error {
	records := []struct {
		key   string
		value any
	}{
		{KeyReputation, state.Users},
		{KeyVoteLog, state.Log},
		{KeyActiveVotes, state.Active},
		{KeyDisabledVoters, state.Disabled},
		{KeyAuditChannels, state.AuditChannels},
	}

	p := pool.New().WithContext(ctx).WithCancelOnError()
	for _, record := range records {
		p.Go(func(ctx context.Context) error {
			blob, err := sonic.Marshal(record.value)
			if err != nil {
				return fmt.Errorf("failed to marshal %q: %w", record.key, err)
			}
			return s.store.Put(ctx, record.key, blob)
		})
	}

	if err := p.Wait(); err != nil {
		return err
	}

	s.logger.Debug("Snapshot written",
		zap.Int("users", len(state.Users)),
		zap.Int("votes", len(state.Log)),
		zap.Int("active", len(state.Active)))
	return nil
}

// Restore loads all records from the blob store. Missing records are treated
// as empty initial state; token aggregates stored without a symbol get a
// derived default via State.Normalize.
func (s *Snapshotter) Restore(ctx context.Context) (*rep.State, error) {
	state := rep.NewState()

	if err := s.restoreRecord(ctx, KeyReputation, &state.Users); err != nil {
		return nil, err
	}
	if err := s.restoreRecord(ctx, KeyVoteLog, &state.Log); err != nil {
		return nil, err
	}
	if err := s.restoreRecord(ctx, KeyActiveVotes, &state.Active); err != nil {
		return nil, err
	}
	if err := s.restoreRecord(ctx, KeyDisabledVoters, &state.Disabled); err != nil {
		return nil, err
	}
	if err := s.restoreRecord(ctx, KeyAuditChannels, &state.AuditChannels); err != nil {
		return nil, err
	}

	state.Normalize()

	s.logger.Info("State restored",
		zap.Int("users", len(state.Users)),
		zap.Int("votes", len(state.Log)),
		zap.Int("active", len(state.Active)),
		zap.Int("disabled_voters", len(state.Disabled)))
	return state, nil
}

// restoreRecord loads one record into v, leaving v untouched when the record
// has never been written.
func (s *Snapshotter) restoreRecord(ctx context.Context, key string, v any) error {
	blob, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}

	if err := sonic.Unmarshal(blob, v); err != nil {
		return fmt.Errorf("failed to unmarshal %q: %w", key, err)
	}
	return nil
}
