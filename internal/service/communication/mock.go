// Package communication synchronizes the message board with its backend.
package communication

import (
	"context"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/vovakirdan/opsboard/internal/core"
	"github.com/vovakirdan/opsboard/internal/utils"
)

// MockConfig tunes the in-memory backend.
type MockConfig struct {
	// Latency delays every request.
	Latency time.Duration
	// PushInterval is how often a subscription may receive a message.
	PushInterval time.Duration
	// PushChance is the probability that a push interval yields a message.
	PushChance  float64
	Departments []core.Department
	Messages    []core.Message
	// Now stamps created messages. Nil means time.Now.
	Now func() time.Time
}

// MockBackend is an in-memory Backend that behaves like a slow remote
// service. It is safe for concurrent use.
type MockBackend struct {
	cfg MockConfig

	mu          sync.Mutex
	rng         *rand.Rand
	departments []core.Department
	messages    []core.Message
}

var _ Backend = (*MockBackend)(nil)

var (
	pushSenders   = []string{"John", "Sarah", "Michael", "Emma", "David"}
	pushTemplates = []string{
		"Update on section",
		"Status report from",
		"Assistance needed at",
		"Incident resolved at",
		"Staff request from",
	}
	pushLocations = []string{"Gate A", "North Concourse", "Section 122", "VIP Lounge", "Parking Lot B", "Concession 5"}
)

// NewMockBackend creates a backend holding copies of the configured data.
func NewMockBackend(cfg MockConfig, rng *rand.Rand) *MockBackend {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(cfg.Now().UnixNano()), 0))
	}
	return &MockBackend{
		cfg:         cfg,
		rng:         rng,
		departments: slices.Clone(cfg.Departments),
		messages:    slices.Clone(cfg.Messages),
	}
}

func (b *MockBackend) wait(ctx context.Context) error {
	if b.cfg.Latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(b.cfg.Latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// FetchMessages returns up to limit messages, newest first.
func (b *MockBackend) FetchMessages(ctx context.Context, limit int) ([]core.Message, error) {
	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := slices.Clone(b.messages)
	slices.SortStableFunc(out, func(a, c core.Message) int { return c.Timestamp.Compare(a.Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// FetchDepartments returns every department.
func (b *MockBackend) FetchDepartments(ctx context.Context) ([]core.Department, error) {
	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.departments), nil
}

// SendMessage stores a message and returns it with a server id and time.
func (b *MockBackend) SendMessage(ctx context.Context, content, sender string, isPriority bool, departmentID string) (core.Message, error) {
	if err := b.wait(ctx); err != nil {
		return core.Message{}, err
	}
	msg := core.Message{
		ID:           utils.NewID(),
		Sender:       sender,
		Content:      content,
		Timestamp:    b.cfg.Now(),
		IsPriority:   isPriority,
		DepartmentID: departmentID,
	}
	b.mu.Lock()
	b.messages = append(b.messages, msg)
	b.mu.Unlock()
	return msg, nil
}

// CreateDepartment stores a department under a server id.
func (b *MockBackend) CreateDepartment(ctx context.Context, name, color string) (core.Department, error) {
	if err := b.wait(ctx); err != nil {
		return core.Department{}, err
	}
	dep := core.Department{ID: utils.NewID(), Name: name, Color: color}
	b.mu.Lock()
	b.departments = append(b.departments, dep)
	b.mu.Unlock()
	return dep, nil
}

// DeleteDepartment removes a department. Unknown ids are ignored.
func (b *MockBackend) DeleteDepartment(ctx context.Context, id string) error {
	if err := b.wait(ctx); err != nil {
		return err
	}
	b.mu.Lock()
	b.departments = lo.Reject(b.departments, func(d core.Department, _ int) bool { return d.ID == id })
	b.mu.Unlock()
	return nil
}

// SubscribeToUpdates pushes a random message to cb now and then, until the
// returned function is called. Without a push interval nothing is pushed.
func (b *MockBackend) SubscribeToUpdates(cb func([]core.Message)) func() {
	done := make(chan struct{})
	var once sync.Once
	unsubscribe := func() { once.Do(func() { close(done) }) }
	if b.cfg.PushInterval <= 0 {
		return unsubscribe
	}

	go func() {
		ticker := time.NewTicker(b.cfg.PushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if msg, ok := b.randomMessage(); ok {
					cb([]core.Message{msg})
				}
			}
		}
	}()
	return unsubscribe
}

func (b *MockBackend) randomMessage() (core.Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rng.Float64() >= b.cfg.PushChance {
		return core.Message{}, false
	}
	msg := core.Message{
		ID:         utils.NewID(),
		Sender:     pushSenders[b.rng.IntN(len(pushSenders))],
		Content:    pushTemplates[b.rng.IntN(len(pushTemplates))] + " " + pushLocations[b.rng.IntN(len(pushLocations))],
		Timestamp:  b.cfg.Now(),
		IsPriority: b.rng.Float64() > 0.8,
	}
	if len(b.departments) > 0 {
		msg.DepartmentID = b.departments[b.rng.IntN(len(b.departments))].ID
	}
	b.messages = append(b.messages, msg)
	return msg, true
}
