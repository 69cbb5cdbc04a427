package store

import (
	"cmp"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/vovakirdan/opsboard/internal/core"
	"github.com/vovakirdan/opsboard/internal/utils"
)

// DefaultMessageLimit bounds the message list when no limit is configured.
const DefaultMessageLimit = 500

// CommunicationSnapshot is the state of the inter-department message board.
type CommunicationSnapshot struct {
	core.Header
	// Messages are ordered newest first; index 0 is the latest.
	Messages    []core.Message
	Departments []core.Department
	Loading     bool
	SyncError   string
	// Arrivals counts the messages that became the head of the list.
	// Edits that keep the head, such as reconciling its id, leave it as is.
	Arrivals uint64
}

// Department looks up a department by id.
func (s CommunicationSnapshot) Department(id string) (core.Department, bool) {
	return lo.Find(s.Departments, func(d core.Department) bool { return d.ID == id })
}

// ResolveDepartment returns the department for id, or the "Unknown"
// fallback when the reference dangles.
func (s CommunicationSnapshot) ResolveDepartment(id string) core.Department {
	if d, ok := s.Department(id); ok {
		return d
	}
	return core.FallbackDepartment(id)
}

// Latest returns the newest message.
func (s CommunicationSnapshot) Latest() (core.Message, bool) {
	if len(s.Messages) == 0 {
		return core.Message{}, false
	}
	return s.Messages[0], true
}

func (s CommunicationSnapshot) hasMessage(id string) bool {
	return lo.ContainsBy(s.Messages, func(m core.Message) bool { return m.ID == id })
}

// CommunicationConfig seeds the communication store.
type CommunicationConfig struct {
	MessageLimit int
	Departments  []core.Department
	Messages     []core.Message
}

// Communication is the store for messages and departments.
type Communication struct {
	cell  *cell[CommunicationSnapshot]
	limit int
	newID func() string
}

type departmentInput struct {
	Name  string `validate:"required"`
	Color string `validate:"required,hexcolor"`
}

// ValidateDepartment checks a department name and color without storing
// anything.
func ValidateDepartment(name, color string) error {
	return check(departmentInput{Name: strings.TrimSpace(name), Color: strings.TrimSpace(color)})
}

// NewCommunication creates the communication store. Seed messages are
// sorted newest first and deduplicated like a hydration.
func NewCommunication(cfg CommunicationConfig, pub core.Publisher, now Clock) *Communication {
	limit := cfg.MessageLimit
	if limit <= 0 {
		limit = DefaultMessageLimit
	}
	c := &Communication{limit: limit, newID: utils.NewID}
	initial := CommunicationSnapshot{
		Header:      core.Header{Domain: core.DomainCommunication, LastUpdated: orNow(now)()},
		Messages:    c.normalize(cfg.Messages),
		Departments: uniqueDepartments(cfg.Departments),
	}
	c.cell = newCell(core.DomainCommunication, initial, pub, now)
	return c
}

// Snapshot returns the current state.
func (c *Communication) Snapshot() CommunicationSnapshot {
	return c.cell.load()
}

// AppendMessage creates a message from local input and puts it at the head
// of the list.
func (c *Communication) AppendMessage(content, sender string, isPriority bool, departmentID string) (core.Message, error) {
	if strings.TrimSpace(content) == "" {
		return core.Message{}, core.ValidationError("content", "must not be empty")
	}

	var created core.Message
	_, err := c.cell.commit(func(prev CommunicationSnapshot, head core.Header) (CommunicationSnapshot, bool, error) {
		created = core.Message{
			ID:           c.uniqueID(prev),
			Sender:       sender,
			Content:      content,
			Timestamp:    head.LastUpdated,
			IsPriority:   isPriority,
			DepartmentID: departmentID,
		}
		return c.withHead(prev, head, created), true, nil
	})
	if err != nil {
		return core.Message{}, err
	}
	return created, nil
}

// IngestExternalMessage applies a message that originated elsewhere, such
// as a push from another department. A missing id is generated and a zero
// timestamp is set to now; a duplicate id is rejected.
func (c *Communication) IngestExternalMessage(msg core.Message) error {
	if strings.TrimSpace(msg.Content) == "" {
		return core.ValidationError("content", "must not be empty")
	}

	_, err := c.cell.commit(func(prev CommunicationSnapshot, head core.Header) (CommunicationSnapshot, bool, error) {
		if msg.ID == "" {
			msg.ID = c.uniqueID(prev)
		} else if prev.hasMessage(msg.ID) {
			return prev, false, core.ValidationError("id", "message %q already exists", msg.ID)
		}
		if msg.Timestamp.IsZero() {
			msg.Timestamp = head.LastUpdated
		}
		return c.withHead(prev, head, msg), true, nil
	})
	return err
}

// AddDepartment registers a department with a generated id.
func (c *Communication) AddDepartment(name, color string) (core.Department, error) {
	in := departmentInput{Name: strings.TrimSpace(name), Color: strings.TrimSpace(color)}
	if err := check(in); err != nil {
		return core.Department{}, err
	}

	var created core.Department
	_, err := c.cell.commit(func(prev CommunicationSnapshot, head core.Header) (CommunicationSnapshot, bool, error) {
		created = core.Department{ID: c.newID(), Name: in.Name, Color: in.Color}
		next := prev
		next.Header = head
		next.Departments = append(slices.Clip(prev.Departments), created)
		return next, true, nil
	})
	if err != nil {
		return core.Department{}, err
	}
	return created, nil
}

// UpdateDepartment renames or recolors an existing department.
func (c *Communication) UpdateDepartment(id, name, color string) error {
	in := departmentInput{Name: strings.TrimSpace(name), Color: strings.TrimSpace(color)}
	if err := check(in); err != nil {
		return err
	}

	_, err := c.cell.commit(func(prev CommunicationSnapshot, head core.Header) (CommunicationSnapshot, bool, error) {
		deps, ok, _ := replaceByID(prev.Departments, id, departmentID, func(d *core.Department) error {
			d.Name, d.Color = in.Name, in.Color
			return nil
		})
		if !ok {
			return prev, false, core.UnknownDepartmentError(id)
		}
		next := prev
		next.Header = head
		next.Departments = deps
		return next, true, nil
	})
	return err
}

// PutDepartment stores a department under its own id, such as one created
// by the backend. An existing department with that id is replaced.
func (c *Communication) PutDepartment(dep core.Department) error {
	in := departmentInput{Name: strings.TrimSpace(dep.Name), Color: strings.TrimSpace(dep.Color)}
	if err := check(in); err != nil {
		return err
	}
	if dep.ID == "" {
		return core.ValidationError("id", "must not be empty")
	}
	dep.Name, dep.Color = in.Name, in.Color

	_, err := c.cell.commit(func(prev CommunicationSnapshot, head core.Header) (CommunicationSnapshot, bool, error) {
		next := prev
		next.Header = head
		if cur, ok := prev.Department(dep.ID); ok {
			if cur == dep {
				return prev, false, nil
			}
			next.Departments, _, _ = replaceByID(prev.Departments, dep.ID, departmentID, func(d *core.Department) error {
				*d = dep
				return nil
			})
			return next, true, nil
		}
		next.Departments = append(slices.Clip(prev.Departments), dep)
		return next, true, nil
	})
	return err
}

// RemoveDepartment deletes a department. Messages that reference it are
// kept and resolve to the "Unknown" fallback. Removing an unknown id
// changes nothing.
func (c *Communication) RemoveDepartment(id string) {
	_, _ = c.cell.commit(func(prev CommunicationSnapshot, head core.Header) (CommunicationSnapshot, bool, error) {
		if _, ok := prev.Department(id); !ok {
			return prev, false, nil
		}
		next := prev
		next.Header = head
		next.Departments = lo.Reject(prev.Departments, func(d core.Department, _ int) bool { return d.ID == id })
		return next, true, nil
	})
}

// ReplaceMessages swaps the whole message list, as after a hydration.
// Messages are sorted newest first, empty ones and duplicate ids dropped,
// and the list is truncated to the retention limit.
func (c *Communication) ReplaceMessages(msgs []core.Message) {
	_, _ = c.cell.commit(func(prev CommunicationSnapshot, head core.Header) (CommunicationSnapshot, bool, error) {
		next := prev
		next.Header = head
		next.Messages = c.normalize(msgs)
		if latest, ok := next.Latest(); ok && !prev.hasMessage(latest.ID) {
			next.Arrivals++
		}
		return next, true, nil
	})
}

// ReplaceDepartments swaps the department directory.
func (c *Communication) ReplaceDepartments(deps []core.Department) {
	_, _ = c.cell.commit(func(prev CommunicationSnapshot, head core.Header) (CommunicationSnapshot, bool, error) {
		next := prev
		next.Header = head
		next.Departments = uniqueDepartments(deps)
		return next, true, nil
	})
}

// Reconcile replaces the optimistic local message localID with the id and
// timestamp the backend confirmed, keeping its position in the list.
func (c *Communication) Reconcile(localID string, remote core.Message) error {
	if remote.ID == "" {
		return core.ValidationError("id", "remote message has no id")
	}

	_, err := c.cell.commit(func(prev CommunicationSnapshot, head core.Header) (CommunicationSnapshot, bool, error) {
		idx := slices.IndexFunc(prev.Messages, func(m core.Message) bool { return m.ID == localID })
		if idx < 0 {
			// Evicted by retention or replaced by a hydration meanwhile.
			if prev.hasMessage(remote.ID) || strings.TrimSpace(remote.Content) == "" {
				return prev, false, nil
			}
			if remote.Timestamp.IsZero() {
				remote.Timestamp = head.LastUpdated
			}
			return c.withHead(prev, head, remote), true, nil
		}

		next := prev
		next.Header = head
		if remote.ID != localID && prev.hasMessage(remote.ID) {
			// The confirmed copy already arrived through a push; drop ours.
			next.Messages = slices.Delete(slices.Clone(prev.Messages), idx, idx+1)
			return next, true, nil
		}

		merged := prev.Messages[idx]
		merged.ID = remote.ID
		if !remote.Timestamp.IsZero() {
			merged.Timestamp = remote.Timestamp
		}
		if merged == prev.Messages[idx] {
			return prev, false, nil
		}
		next.Messages = slices.Clone(prev.Messages)
		next.Messages[idx] = merged
		return next, true, nil
	})
	return err
}

// SetSyncState records the backend hydration status.
func (c *Communication) SetSyncState(loading bool, syncErr error) {
	msg := ""
	if syncErr != nil {
		msg = syncErr.Error()
	}
	_, _ = c.cell.commit(func(prev CommunicationSnapshot, head core.Header) (CommunicationSnapshot, bool, error) {
		if prev.Loading == loading && prev.SyncError == msg {
			return prev, false, nil
		}
		next := prev
		next.Header = head
		next.Loading = loading
		next.SyncError = msg
		return next, true, nil
	})
}

func (c *Communication) withHead(prev CommunicationSnapshot, head core.Header, msg core.Message) CommunicationSnapshot {
	keep := min(len(prev.Messages), c.limit-1)
	msgs := make([]core.Message, 0, keep+1)
	msgs = append(msgs, msg)
	msgs = append(msgs, prev.Messages[:keep]...)

	next := prev
	next.Header = head
	next.Messages = msgs
	next.Arrivals++
	return next
}

func (c *Communication) uniqueID(prev CommunicationSnapshot) string {
	for {
		id := c.newID()
		if !prev.hasMessage(id) {
			return id
		}
	}
}

func (c *Communication) normalize(msgs []core.Message) []core.Message {
	out := lo.Filter(msgs, func(m core.Message, _ int) bool {
		return strings.TrimSpace(m.Content) != ""
	})
	out = lo.Map(out, func(m core.Message, _ int) core.Message {
		if m.ID == "" {
			m.ID = c.newID()
		}
		return m
	})
	slices.SortStableFunc(out, func(a, b core.Message) int {
		return cmp.Compare(b.Timestamp.UnixNano(), a.Timestamp.UnixNano())
	})
	out = lo.UniqBy(out, func(m core.Message) string { return m.ID })
	if len(out) > c.limit {
		out = out[:c.limit]
	}
	return out
}

func uniqueDepartments(deps []core.Department) []core.Department {
	out := lo.Map(deps, func(d core.Department, _ int) core.Department {
		if d.ID == "" {
			d.ID = utils.NewID()
		}
		return d
	})
	return lo.UniqBy(out, func(d core.Department) string { return d.ID })
}

func departmentID(d core.Department) string { return d.ID }
