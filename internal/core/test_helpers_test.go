package core

import "testing"

type testSnapshot struct {
	Header
	Value string
}

func snapshotAt(rev uint64, value string) testSnapshot {
	return testSnapshot{Header: Header{Domain: DomainAttendance, Revision: rev}, Value: value}
}

// recorder collects the values a subscriber was notified with.
type recorder struct {
	t    *testing.T
	seen []string
}

func newRecorder(t *testing.T) *recorder {
	t.Helper()
	return &recorder{t: t}
}

func (r *recorder) callback(tag string) Callback {
	return func(s Snapshot) error {
		snap, ok := s.(testSnapshot)
		if !ok {
			r.t.Fatalf("unexpected snapshot type %T", s)
		}
		r.seen = append(r.seen, tag+":"+snap.Value)
		return nil
	}
}
