package storage

import (
	"context"
	"time"

	"github.com/repwatch/repwatch/internal/rep"
	"github.com/repwatch/repwatch/pkg/utils"
	"go.uber.org/zap"
)

// StateSource provides a consistent copy of the ledger state to snapshot.
type StateSource interface {
	ExportState() *rep.State
}

// Flusher serializes snapshot writes on a single background goroutine.
// Requests are fire-and-forget and coalesced: a burst of mutations produces
// one snapshot rather than one write per event. A failed snapshot is logged
// and retried on the next request; in-memory state stays authoritative.
type Flusher struct {
	snapshotter *Snapshotter
	source      StateSource
	logger      *zap.Logger
	coalesce    time.Duration
	requests    chan struct{}
	stop        chan struct{}
	done        chan struct{}
}

// NewFlusher creates a flusher that waits coalesce between the first request
// of a burst and the actual snapshot.
func NewFlusher(snapshotter *Snapshotter, source StateSource, coalesce time.Duration, logger *zap.Logger) *Flusher {
	return &Flusher{
		snapshotter: snapshotter,
		source:      source,
		logger:      logger.Named("flusher"),
		coalesce:    coalesce,
		requests:    make(chan struct{}, 1),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Start launches the background flush loop.
func (f *Flusher) Start() {
	go f.run()
}

// Request asks for a snapshot of the current state. Never blocks; a request
// arriving while one is already pending is absorbed into it.
func (f *Flusher) Request() {
	select {
	case f.requests <- struct{}{}:
	default:
	}
}

// Stop shuts the flush loop down, writing one final snapshot if a request is
// still pending.
func (f *Flusher) Stop() {
	close(f.stop)
	<-f.done
}

func (f *Flusher) run() {
	defer close(f.done)

	for {
		select {
		case <-f.stop:
			f.flushPending()
			return

		case <-f.requests:
			if !f.waitCoalesce() {
				f.flush()
				return
			}

			// Absorb requests that arrived during the coalescing window.
			select {
			case <-f.requests:
			default:
			}

			f.flush()
		}
	}
}

// waitCoalesce sleeps for the coalescing window. Returns false when the
// flusher was stopped while waiting.
func (f *Flusher) waitCoalesce() bool {
	if f.coalesce <= 0 {
		return true
	}

	timer := time.NewTimer(f.coalesce)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-f.stop:
		return false
	}
}

func (f *Flusher) flushPending() {
	select {
	case <-f.requests:
		f.flush()
	default:
	}
}

func (f *Flusher) flush() {
	state := f.source.ExportState()

	_, err := utils.WithRetry(context.Background(), func() (struct{}, error) {
		return struct{}{}, f.snapshotter.Snapshot(context.Background(), state)
	}, utils.GetSnapshotRetryOptions())
	if err != nil {
		f.logger.Error("Failed to write snapshot; will retry on next mutation", zap.Error(err))
	}
}
