package core

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// SubscriptionHandle is the opaque token a consumer keeps to cancel a subscription.
type SubscriptionHandle struct {
	id     uint64
	domain Domain
}

// ID returns the subscription identifier used in logs.
func (h SubscriptionHandle) ID() uint64 { return h.id }

// Domain returns the domain the subscription listens to.
func (h SubscriptionHandle) Domain() Domain { return h.domain }

type subscription struct {
	id        uint64
	domain    Domain
	callback  Callback
	predicate Predicate

	// mu is held for the whole delivery so a cancel can't slip between
	// the active check and the callback.
	mu     sync.Mutex
	active atomic.Bool
}

// Registry dispatches committed snapshots to the subscribers of a domain.
type Registry struct {
	mu        sync.RWMutex
	nextID    uint64
	subs      map[Domain][]*subscription
	byID      map[uint64]*subscription
	delivered map[Domain]uint64
	onError   func(*SubscriberCallbackError)
	log       *zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zerolog.Logger) *Registry {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Registry{
		subs:      make(map[Domain][]*subscription),
		byID:      make(map[uint64]*subscription),
		delivered: make(map[Domain]uint64),
		log:       logger,
	}
}

// OnError installs a handler receiving every isolated callback failure.
func (r *Registry) OnError(fn func(*SubscriberCallbackError)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onError = fn
}

// Subscribe registers callback for every new snapshot of domain.
// When predicate is non-nil the callback only runs for snapshots it accepts.
func (r *Registry) Subscribe(domain Domain, callback Callback, predicate Predicate) SubscriptionHandle {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	sub := &subscription{
		id:        r.nextID,
		domain:    domain,
		callback:  callback,
		predicate: predicate,
	}
	sub.active.Store(true)

	r.subs[domain] = append(r.subs[domain], sub)
	r.byID[sub.id] = sub

	return SubscriptionHandle{id: sub.id, domain: domain}
}

// Unsubscribe cancels a subscription. Once it returns no new invocation of
// the callback starts. Unknown or already cancelled handles are ignored.
func (r *Registry) Unsubscribe(h SubscriptionHandle) {
	r.mu.Lock()
	sub, ok := r.byID[h.id]
	if ok {
		delete(r.byID, h.id)
		remaining := lo.Reject(r.subs[sub.domain], func(s *subscription, _ int) bool {
			return s.id == h.id
		})
		if len(remaining) == 0 {
			delete(r.subs, sub.domain)
		} else {
			r.subs[sub.domain] = remaining
		}
	}
	r.mu.Unlock()

	if !ok {
		return
	}

	// A delivery already running, possibly on this goroutine, finishes;
	// deliver checks active under sub.mu so no later one starts.
	sub.active.Store(false)
}

// Count returns the number of live subscriptions for domain.
func (r *Registry) Count(domain Domain) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs[domain])
}

// Publish delivers snap to every current subscriber of domain, oldest first.
// A snapshot not newer than the last one delivered for the domain is dropped.
func (r *Registry) Publish(domain Domain, snap Snapshot) {
	if snap == nil {
		return
	}
	rev := snap.Head().Revision

	r.mu.Lock()
	if last, seen := r.delivered[domain]; seen && rev <= last {
		r.mu.Unlock()
		r.log.Debug().
			Str("domain", string(domain)).
			Uint64("revision", rev).
			Uint64("last_delivered", last).
			Msg("dropping stale snapshot")
		return
	}
	r.delivered[domain] = rev
	subs := append([]*subscription(nil), r.subs[domain]...)
	onError := r.onError
	r.mu.Unlock()

	for _, sub := range subs {
		if err := r.deliver(sub, snap); err != nil {
			cbErr := &SubscriberCallbackError{
				SubscriptionID: sub.id,
				Domain:         domain,
				Revision:       rev,
				Cause:          err,
			}
			r.log.Warn().
				Err(err).
				Str("code", cbErr.Code()).
				Str("domain", string(domain)).
				Uint64("revision", rev).
				Uint64("subscription_id", sub.id).
				Msg("subscriber callback failed")
			if onError != nil {
				onError(cbErr)
			}
		}
	}
}

func (r *Registry) deliver(sub *subscription, snap Snapshot) error {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	if !sub.active.Load() || sub.callback == nil {
		return nil
	}
	return safeCall(func() error {
		if sub.predicate != nil && !sub.predicate(snap) {
			return nil
		}
		return sub.callback(snap)
	})
}

func safeCall(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn()
}
