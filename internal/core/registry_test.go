package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryPublishNotifiesOldestSubscriberFirst(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry(nil)
	rec := newRecorder(t)

	reg.Subscribe(DomainAttendance, rec.callback("first"), nil)
	reg.Subscribe(DomainAttendance, rec.callback("second"), nil)
	reg.Subscribe(DomainAttendance, rec.callback("third"), nil)
	reg.Subscribe(DomainSecurity, rec.callback("other-domain"), nil)

	reg.Publish(DomainAttendance, snapshotAt(1, "a"))

	req.Equal([]string{"first:a", "second:a", "third:a"}, rec.seen)
}

func TestRegistryPredicateFiltersDelivery(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry(nil)
	rec := newRecorder(t)

	onlyB := func(s Snapshot) bool { return s.(testSnapshot).Value == "b" }
	reg.Subscribe(DomainAttendance, rec.callback("all"), nil)
	reg.Subscribe(DomainAttendance, rec.callback("only-b"), onlyB)

	reg.Publish(DomainAttendance, snapshotAt(1, "a"))
	reg.Publish(DomainAttendance, snapshotAt(2, "b"))

	req.Equal([]string{"all:a", "all:b", "only-b:b"}, rec.seen)
}

func TestRegistryUnsubscribeIsIdempotent(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry(nil)
	rec := newRecorder(t)

	h := reg.Subscribe(DomainAttendance, rec.callback("x"), nil)
	req.Equal(1, reg.Count(DomainAttendance))

	reg.Unsubscribe(h)
	reg.Unsubscribe(h)
	reg.Unsubscribe(SubscriptionHandle{id: 999, domain: DomainAttendance})

	reg.Publish(DomainAttendance, snapshotAt(1, "a"))

	req.Empty(rec.seen)
	req.Zero(reg.Count(DomainAttendance))
}

func TestRegistryUnsubscribeDuringPublishSkipsLaterSubscriber(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry(nil)
	rec := newRecorder(t)

	var victim SubscriptionHandle
	reg.Subscribe(DomainAttendance, func(s Snapshot) error {
		// Given a publish is in progress for another subscriber
		reg.Unsubscribe(victim)
		return rec.callback("killer")(s)
	}, nil)
	victim = reg.Subscribe(DomainAttendance, rec.callback("victim"), nil)

	reg.Publish(DomainAttendance, snapshotAt(1, "a"))
	reg.Publish(DomainAttendance, snapshotAt(2, "b"))

	req.Equal([]string{"killer:a", "killer:b"}, rec.seen)
}

func TestRegistrySelfUnsubscribeInsideCallback(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry(nil)
	calls := 0

	var self SubscriptionHandle
	self = reg.Subscribe(DomainAttendance, func(Snapshot) error {
		calls++
		reg.Unsubscribe(self)
		return nil
	}, nil)

	reg.Publish(DomainAttendance, snapshotAt(1, "a"))
	reg.Publish(DomainAttendance, snapshotAt(2, "b"))

	req.Equal(1, calls)
}

func TestRegistryIsolatesFailingCallbacks(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry(nil)
	rec := newRecorder(t)
	boom := errors.New("boom")

	var reported []*SubscriberCallbackError
	reg.OnError(func(err *SubscriberCallbackError) { reported = append(reported, err) })

	reg.Subscribe(DomainAttendance, func(Snapshot) error { return boom }, nil)
	reg.Subscribe(DomainAttendance, func(Snapshot) error { panic("widget crashed") }, nil)
	reg.Subscribe(DomainAttendance, rec.callback("healthy"), nil)

	reg.Publish(DomainAttendance, snapshotAt(1, "a"))

	req.Equal([]string{"healthy:a"}, rec.seen)
	req.Len(reported, 2)
	req.ErrorIs(reported[0], ErrSubscriberCallback)
	req.ErrorIs(reported[0], boom)
	req.Equal(uint64(1), reported[0].Revision)
	req.Contains(reported[1].Error(), "widget crashed")
}

func TestRegistryDropsStaleSnapshots(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry(nil)
	rec := newRecorder(t)

	reg.Subscribe(DomainAttendance, rec.callback("w"), nil)

	reg.Publish(DomainAttendance, snapshotAt(2, "new"))
	reg.Publish(DomainAttendance, snapshotAt(1, "old"))
	reg.Publish(DomainAttendance, snapshotAt(2, "dup"))
	reg.Publish(DomainAttendance, snapshotAt(3, "newer"))

	req.Equal([]string{"w:new", "w:newer"}, rec.seen)
}

func TestRegistrySubscribeDuringPublishWaitsForNextSnapshot(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry(nil)
	rec := newRecorder(t)

	reg.Subscribe(DomainAttendance, func(s Snapshot) error {
		if s.Head().Revision == 1 {
			reg.Subscribe(DomainAttendance, rec.callback("late"), nil)
		}
		return nil
	}, nil)

	reg.Publish(DomainAttendance, snapshotAt(1, "a"))
	reg.Publish(DomainAttendance, snapshotAt(2, "b"))

	req.Equal([]string{"late:b"}, rec.seen)
}

func TestParseDomain(t *testing.T) {
	req := require.New(t)

	d, err := ParseDomain(" Medical ")
	req.NoError(err)
	req.Equal(DomainMedical, d)

	_, err = ParseDomain("timeline")
	req.ErrorIs(err, ErrUnknownDomain)
}
