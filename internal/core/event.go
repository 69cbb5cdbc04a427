package core

import (
	"strings"
	"time"
)

// Domain identifies one monitored operational area.
type Domain string

const (
	DomainAttendance    Domain = "attendance"
	DomainCommunication Domain = "communication"
	DomainSecurity      Domain = "security"
	DomainParking       Domain = "parking"
	DomainConcessions   Domain = "concessions"
	DomainMedical       Domain = "medical"
)

// Domains lists every known domain in dashboard order.
var Domains = []Domain{
	DomainAttendance,
	DomainSecurity,
	DomainParking,
	DomainConcessions,
	DomainMedical,
	DomainCommunication,
}

// ParseDomain resolves a domain name case-insensitively.
func ParseDomain(name string) (Domain, error) {
	d := Domain(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Domains {
		if d == known {
			return d, nil
		}
	}
	return "", UnknownDomainError(Domain(name))
}

// Header carries the versioning data every snapshot embeds.
type Header struct {
	Domain      Domain
	Revision    uint64
	LastUpdated time.Time
}

// Head returns the header itself; embedding Header makes a struct a Snapshot.
func (h Header) Head() Header { return h }

// Snapshot is an immutable, versioned view of one domain.
// Values handed out by stores share backing arrays with other readers and
// must be treated as read-only.
type Snapshot interface {
	Head() Header
}

// Callback receives a domain's new snapshot after a committed mutation.
type Callback func(Snapshot) error

// Predicate decides whether a subscriber should be notified of a snapshot.
type Predicate func(Snapshot) bool

// Publisher receives committed snapshots from a store.
type Publisher interface {
	Publish(domain Domain, snap Snapshot)
}
