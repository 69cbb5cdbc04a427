package store

import (
	"sync"
	"time"

	"github.com/vovakirdan/opsboard/internal/core"
)

var baseTime = time.Date(2025, 6, 19, 0, 0, 0, 0, time.UTC)

// stepClock advances by one second on every reading.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func newStepClock() *stepClock {
	return &stepClock{t: baseTime}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

// captured records every published snapshot in delivery order.
type captured struct {
	mu    sync.Mutex
	snaps []core.Snapshot
}

func (c *captured) Publish(_ core.Domain, snap core.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snaps = append(c.snaps, snap)
}

func (c *captured) revisions() []uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]uint64, 0, len(c.snaps))
	for _, s := range c.snaps {
		out = append(out, s.Head().Revision)
	}
	return out
}

func (c *captured) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.snaps)
}

func seedDepartments() []core.Department {
	return []core.Department{
		{ID: "1", Name: "Security", Color: "#f44336"},
		{ID: "2", Name: "Concessions", Color: "#ff9800"},
		{ID: "6", Name: "Management", Color: "#795548"},
	}
}
