// Package engine assembles the domain stores around one subscription
// registry and exposes them to consumers.
package engine

import (
	"github.com/rs/zerolog"

	"github.com/vovakirdan/opsboard/internal/core"
	"github.com/vovakirdan/opsboard/internal/metrics"
	"github.com/vovakirdan/opsboard/internal/store"
)

// Config sizes the stores.
type Config struct {
	TotalCapacity int
	Gates         []string
	HistoryLimit  int
	MessageLimit  int
	IncidentLimit int
	// Clock stamps every snapshot. Nil means time.Now.
	Clock store.Clock
}

// Engine owns one store per domain. Every store publishes into the same
// registry.
type Engine struct {
	registry *core.Registry
	log      *zerolog.Logger

	Attendance    *store.Attendance
	Communication *store.Communication
	Security      *store.Incidents
	Medical       *store.Incidents
	Parking       *store.Parking
	Concessions   *store.Concessions
}

// New creates an engine with empty stores.
func New(cfg Config, logger *zerolog.Logger) *Engine {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	reg := core.NewRegistry(logger)
	incidents := store.IncidentConfig{Limit: cfg.IncidentLimit}

	return &Engine{
		registry: reg,
		log:      logger,
		Attendance: store.NewAttendance(store.AttendanceConfig{
			TotalCapacity: cfg.TotalCapacity,
			Gates:         cfg.Gates,
			HistoryLimit:  cfg.HistoryLimit,
		}, reg, cfg.Clock),
		Communication: store.NewCommunication(store.CommunicationConfig{
			MessageLimit: cfg.MessageLimit,
		}, reg, cfg.Clock),
		Security:    store.NewIncidents(core.DomainSecurity, incidents, reg, cfg.Clock),
		Medical:     store.NewIncidents(core.DomainMedical, incidents, reg, cfg.Clock),
		Parking:     store.NewParking(reg, cfg.Clock),
		Concessions: store.NewConcessions(reg, cfg.Clock),
	}
}

// Snapshot returns the current snapshot of domain.
func (e *Engine) Snapshot(domain core.Domain) (core.Snapshot, error) {
	switch domain {
	case core.DomainAttendance:
		return e.Attendance.Snapshot(), nil
	case core.DomainCommunication:
		return e.Communication.Snapshot(), nil
	case core.DomainSecurity:
		return e.Security.Snapshot(), nil
	case core.DomainMedical:
		return e.Medical.Snapshot(), nil
	case core.DomainParking:
		return e.Parking.Snapshot(), nil
	case core.DomainConcessions:
		return e.Concessions.Snapshot(), nil
	default:
		return nil, core.UnknownDomainError(domain)
	}
}

// Subscribe registers callback for every new snapshot of domain that passes
// predicate. A nil predicate passes everything.
func (e *Engine) Subscribe(domain core.Domain, callback core.Callback, predicate core.Predicate) (core.SubscriptionHandle, error) {
	d, err := core.ParseDomain(string(domain))
	if err != nil {
		return core.SubscriptionHandle{}, err
	}
	return e.registry.Subscribe(d, callback, predicate), nil
}

// Unsubscribe cancels a subscription. It is safe to call more than once.
func (e *Engine) Unsubscribe(h core.SubscriptionHandle) {
	e.registry.Unsubscribe(h)
}

// OnSubscriberError installs a handler for failing subscriber callbacks.
func (e *Engine) OnSubscriberError(fn func(*core.SubscriberCallbackError)) {
	e.registry.OnError(fn)
}

// Subscribers returns the number of live subscriptions for domain.
func (e *Engine) Subscribers(domain core.Domain) int {
	return e.registry.Count(domain)
}

// Inputs reads the current snapshot of every domain.
func (e *Engine) Inputs() metrics.Inputs {
	return metrics.Inputs{
		Attendance:    e.Attendance.Snapshot(),
		Communication: e.Communication.Snapshot(),
		Security:      e.Security.Snapshot(),
		Medical:       e.Medical.Snapshot(),
		Parking:       e.Parking.Snapshot(),
		Concessions:   e.Concessions.Snapshot(),
	}
}

// Summary computes the dashboard status row from the current snapshots.
func (e *Engine) Summary() metrics.Summary {
	return metrics.Summarize(e.Inputs())
}
