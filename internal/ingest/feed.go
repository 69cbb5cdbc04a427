package ingest

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/opsboard/internal/core"
	"github.com/vovakirdan/opsboard/internal/store"
)

// UpdateSource pushes batches of messages from the backend.
type UpdateSource interface {
	SubscribeToUpdates(cb func([]core.Message)) (unsubscribe func())
}

// Feed relays pushed backend messages into the communication store. Pushed
// batches are buffered and applied on the next tick, through the same
// ingestion path the simulator uses.
type Feed struct {
	loop

	source UpdateSource
	comm   *store.Communication

	mu          sync.Mutex
	pending     []core.Message
	unsubscribe func()
}

// NewFeed creates a stopped feed.
func NewFeed(source UpdateSource, comm *store.Communication, logger *zerolog.Logger) *Feed {
	f := &Feed{source: source, comm: comm}
	f.loop.init("feed", logger, f.tick)
	f.onStart = f.subscribe
	f.onStop = f.release
	return f
}

// Pending returns how many pushed messages wait for the next tick.
func (f *Feed) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

func (f *Feed) subscribe() {
	f.mu.Lock()
	f.pending = nil
	f.mu.Unlock()
	unsubscribe := f.source.SubscribeToUpdates(f.enqueue)

	f.mu.Lock()
	f.unsubscribe = unsubscribe
	f.mu.Unlock()
}

func (f *Feed) release() {
	f.mu.Lock()
	unsubscribe := f.unsubscribe
	f.unsubscribe = nil
	f.pending = nil
	f.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (f *Feed) enqueue(batch []core.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = append(f.pending, batch...)
}

func (f *Feed) tick(alive func() bool) {
	f.mu.Lock()
	batch := f.pending
	f.pending = nil
	f.mu.Unlock()

	for _, msg := range batch {
		if !alive() {
			return
		}
		if err := f.comm.IngestExternalMessage(msg); err != nil {
			f.log.Warn().Err(err).Str("channel", f.name).Str("message_id", msg.ID).Msg("pushed message rejected")
		}
	}
}
