package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/opsboard/internal/config"
	"github.com/vovakirdan/opsboard/internal/core"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.TickInterval = time.Millisecond
	cfg.FeedInterval = time.Millisecond
	cfg.SummaryInterval = 5 * time.Millisecond
	cfg.BackendLatency = 0
	cfg.MessageChance = 1
	cfg.AttendanceStep = 500
	cfg.Seed = 11
	return cfg
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.MessageLimit = 0

	_, err := New(&cfg, nil)
	require.Error(t, err)
}

func TestSimulateIsDeterministic(t *testing.T) {
	req := require.New(t)
	cfg := testConfig()

	first, err := New(&cfg, nil)
	req.NoError(err)
	second, err := New(&cfg, nil)
	req.NoError(err)

	a := first.Simulate(30)
	b := second.Simulate(30)

	req.Equal(15000, a.Attendance)
	req.Equal(75, a.OccupancyPct)
	req.Equal(6+30, a.Messages)
	a.LastUpdated, b.LastUpdated = time.Time{}, time.Time{}
	req.Equal(a, b)
}

func TestRunUntilCancelled(t *testing.T) {
	req := require.New(t)
	cfg := testConfig()
	application, err := New(&cfg, nil)
	req.NoError(err)
	eng := application.Engine()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- application.Run(ctx) }()

	req.Eventually(func() bool {
		return eng.Attendance.Snapshot().CurrentAttendance >= 2000
	}, 2*time.Second, time.Millisecond)
	req.Eventually(func() bool {
		return eng.Subscribers(core.DomainCommunication) == 2
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	req.Zero(eng.Subscribers(core.DomainCommunication))
	stopped := eng.Attendance.Snapshot().Revision
	time.Sleep(10 * time.Millisecond)
	req.Equal(stopped, eng.Attendance.Snapshot().Revision)
}
