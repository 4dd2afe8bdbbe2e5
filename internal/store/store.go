// Package store persists the engine state as one opaque blob per scope.
// Writes go through a write-behind Writer that coalesces bursts of changes.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrNoState is returned by Gateway.Load when nothing has been saved yet.
var ErrNoState = errors.New("no persisted state")

// Gateway loads and saves the state blob.
type Gateway interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

// SnapshotFunc serialises the current state.
type SnapshotFunc func() ([]byte, error)

// DefaultFlushDelay is the debounce window of a Writer.
const DefaultFlushDelay = 500 * time.Millisecond

// shutdownFlushTimeout bounds the final flush after Run's context ends.
const shutdownFlushTimeout = 5 * time.Second

// Writer is a write-behind cache in front of a Gateway. MarkDirty is cheap and
// never blocks; Run saves a fresh snapshot once the debounce window elapses.
type Writer struct {
	gw       Gateway
	snapshot SnapshotFunc
	delay    time.Duration

	dirty  atomic.Bool
	signal chan struct{}
	mu     sync.Mutex // serialises saves
}

// NewWriter creates a new Writer instance.
func NewWriter(gw Gateway, snapshot SnapshotFunc, delay time.Duration) *Writer {
	if delay <= 0 {
		delay = DefaultFlushDelay
	}
	return &Writer{
		gw:       gw,
		snapshot: snapshot,
		delay:    delay,
		signal:   make(chan struct{}, 1),
	}
}

// MarkDirty records that the state changed and schedules a flush.
func (w *Writer) MarkDirty() {
	w.dirty.Store(true)
	select {
	case w.signal <- struct{}{}:
	default:
	}
}

// Dirty reports whether changes are waiting to be saved.
func (w *Writer) Dirty() bool {
	return w.dirty.Load()
}

// Run flushes coalesced changes until ctx is done, then performs a final flush.
func (w *Writer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return w.finalFlush(ctx)
		case <-w.signal:
		}

		timer := time.NewTimer(w.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return w.finalFlush(ctx)
		case <-timer.C:
		}

		if err := w.Flush(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to flush state")
		}
	}
}

func (w *Writer) finalFlush(ctx context.Context) error {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownFlushTimeout)
	defer cancel()
	if err := w.Flush(fctx); err != nil {
		return fmt.Errorf("failed to flush state on shutdown: %w", err)
	}
	return nil
}

// Flush saves a snapshot now if anything changed since the last save.
// A failed save leaves the writer dirty so the next flush retries.
func (w *Writer) Flush(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.dirty.Swap(false) {
		return nil
	}
	data, err := w.snapshot()
	if err != nil {
		w.dirty.Store(true)
		return fmt.Errorf("failed to snapshot state: %w", err)
	}
	if err := w.gw.Save(ctx, data); err != nil {
		w.dirty.Store(true)
		return fmt.Errorf("failed to save state: %w", err)
	}
	log.Debug().Int("bytes", len(data)).Msg("State flushed")
	return nil
}

// MemoryGateway keeps the blob in memory. Used with storage.driver=memory and in tests.
type MemoryGateway struct {
	mu    sync.Mutex
	data  []byte
	saves int
}

// NewMemoryGateway creates an empty in-memory gateway.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{}
}

// Load returns the last saved blob or ErrNoState.
func (g *MemoryGateway) Load(_ context.Context) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.data == nil {
		return nil, ErrNoState
	}
	out := make([]byte, len(g.data))
	copy(out, g.data)
	return out, nil
}

// Save stores a copy of data.
func (g *MemoryGateway) Save(_ context.Context, data []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.data = append([]byte(nil), data...)
	g.saves++
	return nil
}

// Saves returns how many times Save was called.
func (g *MemoryGateway) Saves() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.saves
}
