package store

import (
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/vovakirdan/opsboard/internal/core"
	"github.com/vovakirdan/opsboard/internal/utils"
)

// DefaultIncidentLimit bounds how many incidents a log keeps.
const DefaultIncidentLimit = 200

// IncidentStatus is the lifecycle state of an incident.
type IncidentStatus string

const (
	IncidentOpen       IncidentStatus = "open"
	IncidentInProgress IncidentStatus = "in_progress"
	IncidentResolved   IncidentStatus = "resolved"
)

// Incident is a security or medical case.
type Incident struct {
	ID          string         `json:"id"`
	Kind        string         `json:"kind"`
	Location    string         `json:"location"`
	AssignedTo  string         `json:"assigned_to"`
	Description string         `json:"description"`
	Priority    bool           `json:"priority"`
	Status      IncidentStatus `json:"status"`
	ReportedAt  time.Time      `json:"reported_at"`
	ResolvedAt  *time.Time     `json:"resolved_at,omitempty"`
}

// Resolved reports whether the incident is closed.
func (i Incident) Resolved() bool { return i.Status == IncidentResolved }

// IncidentSnapshot is the state of one incident log.
type IncidentSnapshot struct {
	core.Header
	// Incidents are ordered newest first.
	Incidents []Incident
}

// Active returns the incidents not yet resolved.
func (s IncidentSnapshot) Active() []Incident {
	return lo.Reject(s.Incidents, func(i Incident, _ int) bool { return i.Resolved() })
}

// IncidentConfig seeds an incident log.
type IncidentConfig struct {
	Limit     int
	Incidents []Incident
}

// Incidents is the store for one incident log. The Security and Medical
// domains each own one.
type Incidents struct {
	cell  *cell[IncidentSnapshot]
	limit int
}

type incidentInput struct {
	Kind     string `validate:"required"`
	Location string `validate:"required"`
}

type incidentStatusInput struct {
	Status IncidentStatus `validate:"oneof=open in_progress resolved"`
}

// NewIncidents creates an incident log for domain.
func NewIncidents(domain core.Domain, cfg IncidentConfig, pub core.Publisher, now Clock) *Incidents {
	limit := cfg.Limit
	if limit <= 0 {
		limit = DefaultIncidentLimit
	}
	seed := lo.Map(cfg.Incidents, func(i Incident, _ int) Incident {
		if i.ID == "" {
			i.ID = utils.NewID()
		}
		if i.Status == "" {
			i.Status = IncidentOpen
		}
		return i
	})
	initial := IncidentSnapshot{
		Header:    core.Header{Domain: domain, LastUpdated: orNow(now)()},
		Incidents: seed,
	}
	return &Incidents{
		cell:  newCell(domain, initial, pub, now),
		limit: limit,
	}
}

// Snapshot returns the current state.
func (s *Incidents) Snapshot() IncidentSnapshot {
	return s.cell.load()
}

// Report opens a new incident at the head of the log.
func (s *Incidents) Report(kind, location, assignedTo, description string, priority bool) (Incident, error) {
	in := incidentInput{Kind: strings.TrimSpace(kind), Location: strings.TrimSpace(location)}
	if err := check(in); err != nil {
		return Incident{}, err
	}

	var created Incident
	_, err := s.cell.commit(func(prev IncidentSnapshot, head core.Header) (IncidentSnapshot, bool, error) {
		created = Incident{
			ID:          utils.NewID(),
			Kind:        in.Kind,
			Location:    in.Location,
			AssignedTo:  assignedTo,
			Description: description,
			Priority:    priority,
			Status:      IncidentOpen,
			ReportedAt:  head.LastUpdated,
		}
		incidents := make([]Incident, 0, len(prev.Incidents)+1)
		incidents = append(incidents, created)
		incidents = append(incidents, prev.Incidents...)

		next := prev
		next.Header = head
		next.Incidents = s.trim(incidents)
		return next, true, nil
	})
	if err != nil {
		return Incident{}, err
	}
	return created, nil
}

// SetStatus moves an incident through its lifecycle. Resolving stamps
// ResolvedAt; reopening clears it.
func (s *Incidents) SetStatus(id string, status IncidentStatus) error {
	if err := check(incidentStatusInput{Status: status}); err != nil {
		return err
	}

	_, err := s.cell.commit(func(prev IncidentSnapshot, head core.Header) (IncidentSnapshot, bool, error) {
		changed := false
		incidents, ok, _ := replaceByID(prev.Incidents, id, incidentID, func(i *Incident) error {
			if i.Status == status {
				return nil
			}
			changed = true
			i.Status = status
			if status == IncidentResolved {
				at := head.LastUpdated
				i.ResolvedAt = &at
			} else {
				i.ResolvedAt = nil
			}
			return nil
		})
		if !ok {
			return prev, false, core.UnknownIncidentError(id)
		}
		next := prev
		next.Header = head
		next.Incidents = incidents
		return next, changed, nil
	})
	return err
}

// Assign hands an incident to a team.
func (s *Incidents) Assign(id, assignee string) error {
	_, err := s.cell.commit(func(prev IncidentSnapshot, head core.Header) (IncidentSnapshot, bool, error) {
		incidents, ok, _ := replaceByID(prev.Incidents, id, incidentID, func(i *Incident) error {
			i.AssignedTo = assignee
			return nil
		})
		if !ok {
			return prev, false, core.UnknownIncidentError(id)
		}
		next := prev
		next.Header = head
		next.Incidents = incidents
		return next, true, nil
	})
	return err
}

// trim bounds the log to its limit. The oldest resolved incident goes
// first; with none left the oldest open one is dropped.
func (s *Incidents) trim(incidents []Incident) []Incident {
	for len(incidents) > s.limit {
		idx := len(incidents) - 1
		for i := len(incidents) - 1; i >= 0; i-- {
			if incidents[i].Resolved() {
				idx = i
				break
			}
		}
		incidents = slices.Delete(incidents, idx, idx+1)
	}
	return incidents
}

func incidentID(i Incident) string { return i.ID }
