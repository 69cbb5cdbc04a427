package store

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/vovakirdan/opsboard/internal/core"
)

// DefaultHistoryLimit bounds the attendance history when no limit is configured.
const DefaultHistoryLimit = 720

// GateStatus is the operating state of an entry gate.
type GateStatus string

const (
	GateOpen    GateStatus = "open"
	GateClosed  GateStatus = "closed"
	GateLimited GateStatus = "limited"
)

// Sample is one point of the attendance history.
type Sample struct {
	Timestamp  time.Time `json:"timestamp"`
	Attendance int       `json:"attendance"`
}

// AttendanceSnapshot is the state of venue attendance and entry gates.
type AttendanceSnapshot struct {
	core.Header
	TotalCapacity     int
	CurrentAttendance int
	// EntryRates holds entries per minute by gate.
	EntryRates map[string]int
	GateStatus map[string]GateStatus
	// History is append-only in insertion order, oldest first.
	History []Sample
}

// Gates returns the registered gate names in sorted order.
func (s AttendanceSnapshot) Gates() []string {
	return slices.Sorted(maps.Keys(s.GateStatus))
}

// AttendanceConfig seeds the attendance store.
type AttendanceConfig struct {
	TotalCapacity int
	Gates         []string
	HistoryLimit  int
}

// Attendance is the store for attendance counts and gate state.
type Attendance struct {
	cell  *cell[AttendanceSnapshot]
	limit int
}

type gateStatusInput struct {
	Status GateStatus `validate:"oneof=open closed limited"`
}

type entryRateInput struct {
	Rate int `validate:"gte=0"`
}

// NewAttendance creates the attendance store with every gate open and idle.
func NewAttendance(cfg AttendanceConfig, pub core.Publisher, now Clock) *Attendance {
	limit := cfg.HistoryLimit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	initial := AttendanceSnapshot{
		Header:        core.Header{Domain: core.DomainAttendance, LastUpdated: orNow(now)()},
		TotalCapacity: cfg.TotalCapacity,
		EntryRates:    make(map[string]int, len(cfg.Gates)),
		GateStatus:    make(map[string]GateStatus, len(cfg.Gates)),
	}
	for _, gate := range cfg.Gates {
		gate = strings.TrimSpace(gate)
		if gate == "" {
			continue
		}
		initial.EntryRates[gate] = 0
		initial.GateStatus[gate] = GateOpen
	}
	return &Attendance{
		cell:  newCell(core.DomainAttendance, initial, pub, now),
		limit: limit,
	}
}

// Snapshot returns the current state.
func (a *Attendance) Snapshot() AttendanceSnapshot {
	return a.cell.load()
}

// UpdateAttendance sets the current head count and records a history sample.
// The count may exceed capacity.
func (a *Attendance) UpdateAttendance(count int) error {
	if count < 0 {
		return core.ValidationError("attendance", "must not be negative, got %d", count)
	}

	_, err := a.cell.commit(func(prev AttendanceSnapshot, head core.Header) (AttendanceSnapshot, bool, error) {
		start := max(0, len(prev.History)+1-a.limit)
		history := make([]Sample, 0, len(prev.History)-start+1)
		history = append(history, prev.History[start:]...)
		history = append(history, Sample{Timestamp: head.LastUpdated, Attendance: count})

		next := prev
		next.Header = head
		next.CurrentAttendance = count
		next.History = history
		return next, true, nil
	})
	return err
}

// SetGateStatus changes the operating state of a registered gate.
func (a *Attendance) SetGateStatus(gate string, status GateStatus) error {
	if err := check(gateStatusInput{Status: status}); err != nil {
		return err
	}

	_, err := a.cell.commit(func(prev AttendanceSnapshot, head core.Header) (AttendanceSnapshot, bool, error) {
		if _, ok := prev.GateStatus[gate]; !ok {
			return prev, false, core.UnknownGateError(gate)
		}
		next := prev
		next.Header = head
		next.GateStatus = maps.Clone(prev.GateStatus)
		next.GateStatus[gate] = status
		return next, true, nil
	})
	return err
}

// SetEntryRate records the entries per minute of a registered gate.
func (a *Attendance) SetEntryRate(gate string, rate int) error {
	if err := check(entryRateInput{Rate: rate}); err != nil {
		return err
	}

	_, err := a.cell.commit(func(prev AttendanceSnapshot, head core.Header) (AttendanceSnapshot, bool, error) {
		if _, ok := prev.GateStatus[gate]; !ok {
			return prev, false, core.UnknownGateError(gate)
		}
		next := prev
		next.Header = head
		next.EntryRates = maps.Clone(prev.EntryRates)
		next.EntryRates[gate] = rate
		return next, true, nil
	})
	return err
}

// RegisterGate adds an open, idle gate. Registering a known gate is a no-op.
func (a *Attendance) RegisterGate(gate string) error {
	gate = strings.TrimSpace(gate)
	if gate == "" {
		return core.ValidationError("gate", "must not be empty")
	}

	_, err := a.cell.commit(func(prev AttendanceSnapshot, head core.Header) (AttendanceSnapshot, bool, error) {
		if _, ok := prev.GateStatus[gate]; ok {
			return prev, false, nil
		}
		next := prev
		next.Header = head
		next.GateStatus = maps.Clone(prev.GateStatus)
		next.GateStatus[gate] = GateOpen
		next.EntryRates = maps.Clone(prev.EntryRates)
		next.EntryRates[gate] = 0
		return next, true, nil
	})
	return err
}

// Reset clears the attendance state between events: head count, history
// and entry rates go to zero. Gate statuses are kept.
func (a *Attendance) Reset() {
	_, _ = a.cell.commit(func(prev AttendanceSnapshot, head core.Header) (AttendanceSnapshot, bool, error) {
		rates := make(map[string]int, len(prev.EntryRates))
		for gate := range prev.EntryRates {
			rates[gate] = 0
		}
		next := prev
		next.Header = head
		next.CurrentAttendance = 0
		next.History = nil
		next.EntryRates = rates
		return next, true, nil
	})
}
