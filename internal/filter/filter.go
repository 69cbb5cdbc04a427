// Package filter turns message list selectors into predicates. Filters are
// applied by consumers; the communication store never sees them.
package filter

import (
	"strings"
	"sync"

	"github.com/samber/lo"

	"github.com/vovakirdan/opsboard/internal/core"
	"github.com/vovakirdan/opsboard/internal/store"
)

// Tab is a message list tab.
type Tab string

const (
	TabAll          Tab = "all"
	TabPriority     Tab = "priority"
	TabAnnouncement Tab = "announcement"
)

const announcementMarker = "announcement"

// Predicate reports whether a message passes. The snapshot is passed along
// so department references can be resolved. A nil Predicate matches every
// message.
type Predicate func(snap store.CommunicationSnapshot, msg core.Message) bool

// Match evaluates p, treating nil as match-all.
func (p Predicate) Match(snap store.CommunicationSnapshot, msg core.Message) bool {
	return p == nil || p(snap, msg)
}

// ParseTab maps a tab name, singular or plural and in any case, to a Tab.
// An empty name is TabAll.
func ParseTab(name string) (Tab, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "all":
		return TabAll, nil
	case "priority", "priorities":
		return TabPriority, nil
	case "announcement", "announcements":
		return TabAnnouncement, nil
	default:
		return "", core.ValidationError("tab", "unknown tab %q", name)
	}
}

// ByTab selects the messages shown under tab. TabAll and unknown tabs
// match everything.
func ByTab(tab Tab) Predicate {
	switch tab {
	case TabPriority:
		return func(_ store.CommunicationSnapshot, msg core.Message) bool {
			return msg.IsPriority
		}
	case TabAnnouncement:
		return func(_ store.CommunicationSnapshot, msg core.Message) bool {
			return strings.Contains(strings.ToLower(msg.Content), announcementMarker)
		}
	default:
		return nil
	}
}

// ByDepartmentNameContains matches messages whose resolved department name
// contains text, ignoring case. Dangling references resolve to "Unknown".
// Blank text matches everything.
func ByDepartmentNameContains(text string) Predicate {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return nil
	}
	return func(snap store.CommunicationSnapshot, msg core.Message) bool {
		name := snap.ResolveDepartment(msg.DepartmentID).Name
		return strings.Contains(strings.ToLower(name), needle)
	}
}

// And matches when every non-nil predicate matches.
func And(preds ...Predicate) Predicate {
	preds = lo.Filter(preds, func(p Predicate, _ int) bool { return p != nil })
	switch len(preds) {
	case 0:
		return nil
	case 1:
		return preds[0]
	}
	return func(snap store.CommunicationSnapshot, msg core.Message) bool {
		for _, p := range preds {
			if !p(snap, msg) {
				return false
			}
		}
		return true
	}
}

// Apply returns the messages of snap that pass p, newest first.
func Apply(snap store.CommunicationSnapshot, p Predicate) []core.Message {
	return lo.Filter(snap.Messages, func(msg core.Message, _ int) bool {
		return p.Match(snap, msg)
	})
}

// LatestMatches builds a subscription predicate that lets a communication
// snapshot through only when a message arrived since the last snapshot it
// saw and the newest message passes p. Commits that leave the head alone
// never pass, nor do snapshots of other domains.
func LatestMatches(p Predicate) core.Predicate {
	return LatestMatchesSince(p, 0)
}

// LatestMatchesSince is LatestMatches for a subscriber that already knows
// about the first seen arrivals, usually Snapshot().Arrivals at subscribe
// time.
func LatestMatchesSince(p Predicate, seen uint64) core.Predicate {
	var mu sync.Mutex
	return func(s core.Snapshot) bool {
		snap, ok := s.(store.CommunicationSnapshot)
		if !ok {
			return false
		}
		mu.Lock()
		fresh := snap.Arrivals > seen
		if fresh {
			seen = snap.Arrivals
		}
		mu.Unlock()
		if !fresh {
			return false
		}
		latest, ok := snap.Latest()
		return ok && p.Match(snap, latest)
	}
}
