package store

import (
	"fmt"
	"sync"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/opsboard/internal/core"
)

const writers = 16

// revisionLog subscribes to domain and records every delivered revision.
func revisionLog(reg *core.Registry, domain core.Domain) func() []uint64 {
	var mu sync.Mutex
	var revs []uint64
	reg.Subscribe(domain, func(s core.Snapshot) error {
		mu.Lock()
		defer mu.Unlock()
		revs = append(revs, s.Head().Revision)
		return nil
	}, nil)
	return func() []uint64 {
		mu.Lock()
		defer mu.Unlock()
		return append([]uint64(nil), revs...)
	}
}

func TestConcurrentAppendsAreSerialized(t *testing.T) {
	req := require.New(t)
	reg := core.NewRegistry(nil)
	clock := newStepClock()
	c := NewCommunication(CommunicationConfig{Departments: seedDepartments()}, reg, clock.Now)
	delivered := revisionLog(reg, core.DomainCommunication)

	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range writers {
				_, err := c.AppendMessage(fmt.Sprintf("msg %d-%d", i, j), "You", false, "1")
				req.NoError(err)
			}
		}()
	}
	wg.Wait()

	n := writers * writers
	snap := c.Snapshot()
	req.Equal(uint64(n), snap.Revision)
	req.Equal(uint64(n), snap.Arrivals)
	req.Len(snap.Messages, n)
	req.Len(lo.UniqBy(snap.Messages, func(m core.Message) string { return m.ID }), n)
	req.Equal(lo.RangeFrom[uint64](1, n), delivered())
}

func TestConcurrentAttendanceUpdatesAreSerialized(t *testing.T) {
	req := require.New(t)
	reg := core.NewRegistry(nil)
	clock := newStepClock()
	a := NewAttendance(AttendanceConfig{TotalCapacity: 20000, Gates: venueGates}, reg, clock.Now)
	delivered := revisionLog(reg, core.DomainAttendance)

	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range writers {
				req.NoError(a.UpdateAttendance(i*writers + j))
			}
		}()
	}
	wg.Wait()

	n := writers * writers
	snap := a.Snapshot()
	req.Len(snap.History, n)
	req.Equal(lo.RangeFrom[uint64](1, n), delivered())
	req.Equal(uint64(n), snap.Revision)
}
