// Package ingest feeds outside-world events into the domain stores. A
// channel runs ticks on a fixed interval, one at a time, until stopped.
package ingest

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/opsboard/internal/core"
)

// ErrChannelRunning is returned by Start when the channel already runs.
var ErrChannelRunning = errors.New("ingest: channel already running")

// Handle identifies one run of a channel. The zero Handle never matches a
// run.
type Handle struct {
	run uint64
}

// Channel is a source of events.
type Channel interface {
	Start(interval time.Duration) (Handle, error)
	Stop(h Handle)
}

// tickFunc applies one tick of events. It must call alive before applying
// each event and return once alive reports false.
type tickFunc func(alive func() bool)

type run struct {
	id     uint64
	halted atomic.Bool
	stop   chan struct{}
	done   chan struct{}
}

func (r *run) alive() bool { return !r.halted.Load() }

// loop drives a tickFunc from a ticker. Stop waits for the tick in flight,
// so calling Stop from inside a tick of the same channel deadlocks.
type loop struct {
	name string
	log  *zerolog.Logger
	tick tickFunc

	// onStart and onStop run under mu, around the ticking goroutine.
	onStart func()
	onStop  func()

	mu      sync.Mutex
	lastRun uint64
	current *run

	tickMu sync.Mutex
}

func (l *loop) init(name string, logger *zerolog.Logger, tick tickFunc) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l.name = name
	l.log = logger
	l.tick = tick
}

// Start begins ticking every interval.
func (l *loop) Start(interval time.Duration) (Handle, error) {
	if interval <= 0 {
		return Handle{}, core.ValidationError("interval", "must be positive, got %s", interval)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current != nil {
		return Handle{}, ErrChannelRunning
	}

	l.lastRun++
	r := &run{
		id:   l.lastRun,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	l.current = r
	if l.onStart != nil {
		l.onStart()
	}
	go l.run(r, interval)

	l.log.Info().Str("channel", l.name).Dur("interval", interval).Msg("ingest channel started")
	return Handle{run: r.id}, nil
}

// Stop ends the run identified by h and waits for its tick in flight.
// Stopping twice or with a stale handle does nothing.
func (l *loop) Stop(h Handle) {
	l.mu.Lock()
	r := l.current
	if r == nil || r.id != h.run {
		l.mu.Unlock()
		return
	}
	r.halted.Store(true)
	close(r.stop)
	<-r.done
	l.current = nil
	if l.onStop != nil {
		l.onStop()
	}
	l.mu.Unlock()

	l.log.Info().Str("channel", l.name).Msg("ingest channel stopped")
}

// Running reports whether the channel has an active run.
func (l *loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current != nil
}

// Step runs a single tick synchronously, whether or not the channel runs.
func (l *loop) Step() {
	l.tickMu.Lock()
	defer l.tickMu.Unlock()
	l.tick(func() bool { return true })
}

func (l *loop) run(r *run, interval time.Duration) {
	defer close(r.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			l.tickMu.Lock()
			if r.alive() {
				l.tick(r.alive)
			}
			l.tickMu.Unlock()
		}
	}
}
