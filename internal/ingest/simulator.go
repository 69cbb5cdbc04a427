package ingest

import (
	"math/rand/v2"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/opsboard/internal/core"
	"github.com/vovakirdan/opsboard/internal/store"
)

const defaultPriorityChance = 0.2

var (
	senders = []string{"John", "Sarah", "Michael", "Emma", "David"}

	messageTemplates = []string{
		"Update on section",
		"Status report from",
		"Assistance needed at",
		"Incident resolved at",
		"Staff request from",
	}

	venueLocations = []string{
		"Gate A",
		"North Concourse",
		"Section 122",
		"VIP Lounge",
		"Parking Lot B",
		"Concession 5",
	}

	incidentKinds = []string{
		"Unauthorized Access",
		"Disruptive Behavior",
		"Lost Child",
		"Suspicious Package",
		"Crowd Congestion",
	}

	securityTeams = []string{"Team Alpha", "Team Bravo", "Team Charlie"}
)

// SimulatorConfig tunes the synthetic event mix.
type SimulatorConfig struct {
	// AttendanceStep is added to the head count every tick, up to capacity.
	AttendanceStep int
	// MessageChance is the per-tick probability of a new message.
	MessageChance float64
	// IncidentChance is the per-tick probability of a security incident
	// being reported or resolved.
	IncidentChance float64
	// PriorityChance is the share of synthetic messages and incidents
	// flagged priority. Zero means 0.2.
	PriorityChance float64
}

// Targets are the stores a simulator writes to. Security may be nil.
type Targets struct {
	Attendance    *store.Attendance
	Communication *store.Communication
	Security      *store.Incidents
}

// Simulator generates synthetic venue events. Given the same seed and the
// same store state it produces the same events.
type Simulator struct {
	loop

	cfg     SimulatorConfig
	targets Targets
	rng     *rand.Rand
}

// NewSimulator creates a stopped simulator drawing randomness from rng.
func NewSimulator(cfg SimulatorConfig, targets Targets, rng *rand.Rand, logger *zerolog.Logger) *Simulator {
	if cfg.PriorityChance <= 0 {
		cfg.PriorityChance = defaultPriorityChance
	}
	if rng == nil {
		rng = NewSeededSource(1)
	}
	s := &Simulator{cfg: cfg, targets: targets, rng: rng}
	s.loop.init("simulator", logger, s.tick)
	return s
}

// NewSeededSource returns the generator a simulator uses for seed.
func NewSeededSource(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func (s *Simulator) tick(alive func() bool) {
	if s.targets.Attendance != nil && s.cfg.AttendanceStep > 0 {
		s.advanceAttendance(alive)
	}
	if s.targets.Communication != nil && s.rng.Float64() < s.cfg.MessageChance {
		if !alive() {
			return
		}
		s.emitMessage()
	}
	if s.targets.Security != nil && s.rng.Float64() < s.cfg.IncidentChance {
		if !alive() {
			return
		}
		s.touchIncident()
	}
}

// advanceAttendance moves the head count by the configured step and spreads
// the step over the open and limited gates as entry rates.
func (s *Simulator) advanceAttendance(alive func() bool) {
	att := s.targets.Attendance
	snap := att.Snapshot()

	next := snap.CurrentAttendance + s.cfg.AttendanceStep
	if snap.TotalCapacity > 0 {
		next = min(next, max(snap.TotalCapacity, snap.CurrentAttendance))
	}
	entered := next - snap.CurrentAttendance

	if !alive() {
		return
	}
	if entered > 0 {
		if err := att.UpdateAttendance(next); err != nil {
			s.log.Warn().Err(err).Str("channel", s.name).Msg("attendance tick rejected")
			return
		}
	}

	var admitting []string
	for _, gate := range snap.Gates() {
		if snap.GateStatus[gate] != store.GateClosed {
			admitting = append(admitting, gate)
		}
	}
	rates := make(map[string]int, len(snap.GateStatus))
	for i, gate := range admitting {
		rates[gate] = entered / len(admitting)
		if i < entered%len(admitting) {
			rates[gate]++
		}
	}
	for _, gate := range snap.Gates() {
		if rates[gate] == snap.EntryRates[gate] {
			continue
		}
		if !alive() {
			return
		}
		if err := att.SetEntryRate(gate, rates[gate]); err != nil {
			s.log.Warn().Err(err).Str("channel", s.name).Str("gate", gate).Msg("entry rate rejected")
		}
	}
}

func (s *Simulator) emitMessage() {
	comm := s.targets.Communication
	msg := core.Message{
		Sender:     pick(s.rng, senders),
		Content:    pick(s.rng, messageTemplates) + " " + pick(s.rng, venueLocations),
		IsPriority: s.rng.Float64() < s.cfg.PriorityChance,
	}
	if deps := comm.Snapshot().Departments; len(deps) > 0 {
		msg.DepartmentID = pick(s.rng, deps).ID
	}
	if err := comm.IngestExternalMessage(msg); err != nil {
		s.log.Warn().Err(err).Str("channel", s.name).Msg("synthetic message rejected")
	}
}

// touchIncident resolves an active security incident half of the time and
// reports a new one otherwise.
func (s *Simulator) touchIncident() {
	sec := s.targets.Security
	active := sec.Snapshot().Active()
	if len(active) > 0 && s.rng.IntN(2) == 0 {
		target := pick(s.rng, active)
		if err := sec.SetStatus(target.ID, store.IncidentResolved); err != nil {
			s.log.Warn().Err(err).Str("channel", s.name).Str("incident_id", target.ID).Msg("incident update rejected")
		}
		return
	}
	_, err := sec.Report(
		pick(s.rng, incidentKinds),
		pick(s.rng, venueLocations),
		pick(s.rng, securityTeams),
		"",
		s.rng.Float64() < s.cfg.PriorityChance,
	)
	if err != nil {
		s.log.Warn().Err(err).Str("channel", s.name).Msg("incident report rejected")
	}
}

func pick[T any](rng *rand.Rand, items []T) T {
	return items[rng.IntN(len(items))]
}
