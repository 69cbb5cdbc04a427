package communication

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/opsboard/internal/core"
	"github.com/vovakirdan/opsboard/internal/store"
)

var errUnavailable = errors.New("service unavailable")

var confirmedAt = time.Date(2025, 6, 19, 20, 0, 0, 0, time.UTC)

// fakeBackend answers from fixed data and fails on demand.
type fakeBackend struct {
	departments []core.Department
	messages    []core.Message

	failFetch  bool
	failSend   bool
	failDelete bool

	sent    int
	deleted []string
	limit   int
}

func (f *fakeBackend) FetchMessages(_ context.Context, limit int) ([]core.Message, error) {
	f.limit = limit
	if f.failFetch {
		return nil, errUnavailable
	}
	return f.messages, nil
}

func (f *fakeBackend) FetchDepartments(context.Context) ([]core.Department, error) {
	if f.failFetch {
		return nil, errUnavailable
	}
	return f.departments, nil
}

func (f *fakeBackend) SendMessage(_ context.Context, content, sender string, isPriority bool, departmentID string) (core.Message, error) {
	if f.failSend {
		return core.Message{}, errUnavailable
	}
	f.sent++
	return core.Message{
		ID:           "srv-" + content,
		Sender:       sender,
		Content:      content,
		Timestamp:    confirmedAt,
		IsPriority:   isPriority,
		DepartmentID: departmentID,
	}, nil
}

func (f *fakeBackend) CreateDepartment(_ context.Context, name, color string) (core.Department, error) {
	return core.Department{ID: "dep-" + name, Name: name, Color: color}, nil
}

func (f *fakeBackend) DeleteDepartment(_ context.Context, id string) error {
	if f.failDelete {
		return errUnavailable
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeBackend) SubscribeToUpdates(func([]core.Message)) func() { return func() {} }

func newTestService(t *testing.T, backend *fakeBackend) (*Service, *store.Communication) {
	t.Helper()
	st := store.NewCommunication(store.CommunicationConfig{
		Departments: []core.Department{{ID: "1", Name: "Security", Color: "#f44336"}},
		Messages: []core.Message{
			{ID: "local-1", Content: "Gate A is now at 90% capacity", Timestamp: confirmedAt.Add(-time.Hour)},
		},
	}, nil, nil)
	return New(backend, st, 0, nil), st
}

func TestHydrateReplacesState(t *testing.T) {
	req := require.New(t)
	backend := &fakeBackend{
		departments: []core.Department{{ID: "4", Name: "Medical", Color: "#4caf50"}},
		messages: []core.Message{
			{ID: "a", Content: "older", Timestamp: confirmedAt.Add(-time.Minute)},
			{ID: "b", Content: "newer", Timestamp: confirmedAt},
		},
	}
	svc, st := newTestService(t, backend)

	req.NoError(svc.Hydrate(context.Background()))

	snap := st.Snapshot()
	req.Equal(DefaultFetchLimit, backend.limit)
	req.Equal([]string{"b", "a"}, []string{snap.Messages[0].ID, snap.Messages[1].ID})
	req.Equal("Medical", snap.ResolveDepartment("4").Name)
	req.False(snap.Loading)
	req.Empty(snap.SyncError)
}

func TestHydrateFailureKeepsLastKnownState(t *testing.T) {
	req := require.New(t)
	svc, st := newTestService(t, &fakeBackend{failFetch: true})
	before := st.Snapshot()

	err := svc.Hydrate(context.Background())

	req.ErrorIs(err, ErrBackend)
	req.ErrorIs(err, errUnavailable)
	snap := st.Snapshot()
	req.Equal(before.Messages, snap.Messages)
	req.Equal(before.Departments, snap.Departments)
	req.False(snap.Loading)
	req.Contains(snap.SyncError, errUnavailable.Error())
}

func TestSendReconcilesInPlace(t *testing.T) {
	req := require.New(t)
	backend := &fakeBackend{}
	svc, st := newTestService(t, backend)

	_, err := svc.Send(context.Background(), "  ", "You", false, "1")
	req.ErrorIs(err, core.ErrValidation)
	req.Zero(backend.sent)

	msg, err := svc.Send(context.Background(), "Hello", "You", true, "1")
	req.NoError(err)
	req.Equal("srv-Hello", msg.ID)
	req.Equal(confirmedAt, msg.Timestamp)

	snap := st.Snapshot()
	req.Len(snap.Messages, 2)
	req.Equal(msg, snap.Messages[0])
}

func TestSendKeepsOptimisticCopyOnBackendFailure(t *testing.T) {
	req := require.New(t)
	svc, st := newTestService(t, &fakeBackend{failSend: true})

	msg, err := svc.Send(context.Background(), "Hello", "You", false, "1")

	req.ErrorIs(err, ErrBackend)
	latest, _ := st.Snapshot().Latest()
	req.Equal(msg.ID, latest.ID)
	req.Equal("Hello", latest.Content)
}

func TestDepartmentRoundTrip(t *testing.T) {
	req := require.New(t)
	backend := &fakeBackend{}
	svc, st := newTestService(t, backend)

	_, err := svc.CreateDepartment(context.Background(), "Guest Services", "cyan")
	req.ErrorIs(err, core.ErrValidation)

	dep, err := svc.CreateDepartment(context.Background(), "Guest Services", "#00bcd4")
	req.NoError(err)
	req.Equal("dep-Guest Services", dep.ID)
	req.Equal("Guest Services", st.Snapshot().ResolveDepartment(dep.ID).Name)

	req.NoError(svc.DeleteDepartment(context.Background(), "1"))
	req.Equal([]string{"1"}, backend.deleted)
	req.Equal(core.UnknownDepartmentName, st.Snapshot().ResolveDepartment("1").Name)
	req.Len(st.Snapshot().Messages, 1)

	backend.failDelete = true
	req.ErrorIs(svc.DeleteDepartment(context.Background(), dep.ID), ErrBackend)
	_, ok := st.Snapshot().Department(dep.ID)
	req.True(ok)
}

func TestMockBackend(t *testing.T) {
	req := require.New(t)
	now := func() time.Time { return confirmedAt }
	mock := NewMockBackend(MockConfig{
		Departments: []core.Department{{ID: "1", Name: "Security", Color: "#f44336"}},
		Messages: []core.Message{
			{ID: "old", Content: "old", Timestamp: confirmedAt.Add(-time.Hour)},
			{ID: "new", Content: "new", Timestamp: confirmedAt.Add(-time.Minute)},
		},
		Now: now,
	}, nil)
	ctx := context.Background()

	msgs, err := mock.FetchMessages(ctx, 1)
	req.NoError(err)
	req.Len(msgs, 1)
	req.Equal("new", msgs[0].ID)

	sent, err := mock.SendMessage(ctx, "Hello", "You", false, "1")
	req.NoError(err)
	req.NotEmpty(sent.ID)
	req.Equal(confirmedAt, sent.Timestamp)

	dep, err := mock.CreateDepartment(ctx, "Ticketing", "#2196f3")
	req.NoError(err)
	req.NoError(mock.DeleteDepartment(ctx, "1"))
	deps, err := mock.FetchDepartments(ctx)
	req.NoError(err)
	req.Equal([]core.Department{dep}, deps)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	slow := NewMockBackend(MockConfig{Latency: time.Hour}, nil)
	_, err = slow.FetchDepartments(cancelled)
	req.ErrorIs(err, context.Canceled)
}

func TestMockBackendPushesUntilUnsubscribed(t *testing.T) {
	req := require.New(t)
	mock := NewMockBackend(MockConfig{
		PushInterval: time.Millisecond,
		PushChance:   1,
		Departments:  []core.Department{{ID: "3", Name: "Ticketing", Color: "#2196f3"}},
	}, nil)

	got := make(chan core.Message, 16)
	unsubscribe := mock.SubscribeToUpdates(func(batch []core.Message) {
		for _, m := range batch {
			select {
			case got <- m:
			default:
			}
		}
	})

	select {
	case m := <-got:
		req.Equal("3", m.DepartmentID)
		req.NotEmpty(m.Content)
	case <-time.After(time.Second):
		t.Fatal("no message pushed")
	}
	unsubscribe()
	unsubscribe()
}
