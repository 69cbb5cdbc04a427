package communication

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/opsboard/internal/core"
	"github.com/vovakirdan/opsboard/internal/store"
)

// DefaultFetchLimit is how many messages a hydration asks for.
const DefaultFetchLimit = 50

// ErrBackend marks failures reported by the backend rather than by local
// validation.
var ErrBackend = errors.New("communication backend failed")

// Backend is the remote side of the message board.
type Backend interface {
	FetchMessages(ctx context.Context, limit int) ([]core.Message, error)
	FetchDepartments(ctx context.Context) ([]core.Department, error)
	SendMessage(ctx context.Context, content, sender string, isPriority bool, departmentID string) (core.Message, error)
	CreateDepartment(ctx context.Context, name, color string) (core.Department, error)
	DeleteDepartment(ctx context.Context, id string) error
	SubscribeToUpdates(cb func([]core.Message)) (unsubscribe func())
}

// Service keeps the communication store in step with the backend.
type Service struct {
	backend    Backend
	store      *store.Communication
	fetchLimit int
	log        *zerolog.Logger
}

// New creates a Service. A fetchLimit of zero means DefaultFetchLimit.
func New(backend Backend, st *store.Communication, fetchLimit int, logger *zerolog.Logger) *Service {
	if fetchLimit <= 0 {
		fetchLimit = DefaultFetchLimit
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{
		backend:    backend,
		store:      st,
		fetchLimit: fetchLimit,
		log:        logger,
	}
}

// Hydrate loads departments and messages from the backend. On failure the
// store keeps what it had and records the error.
func (s *Service) Hydrate(ctx context.Context) error {
	s.store.SetSyncState(true, nil)

	deps, err := s.backend.FetchDepartments(ctx)
	if err != nil {
		return s.hydrateFailed(fmt.Errorf("fetch departments: %w: %w", ErrBackend, err))
	}
	msgs, err := s.backend.FetchMessages(ctx, s.fetchLimit)
	if err != nil {
		return s.hydrateFailed(fmt.Errorf("fetch messages: %w: %w", ErrBackend, err))
	}

	s.store.ReplaceDepartments(deps)
	s.store.ReplaceMessages(msgs)
	s.store.SetSyncState(false, nil)

	s.log.Info().
		Int("departments", len(deps)).
		Int("messages", len(msgs)).
		Msg("communication hydrated")
	return nil
}

func (s *Service) hydrateFailed(err error) error {
	s.store.SetSyncState(false, err)
	s.log.Warn().Err(err).Msg("communication hydration failed")
	return err
}

// Send posts a message. It is applied locally first; once the backend
// confirms it, the local copy takes the confirmed id and timestamp in
// place. If the backend fails the local copy stays and the error is
// returned.
func (s *Service) Send(ctx context.Context, content, sender string, isPriority bool, departmentID string) (core.Message, error) {
	local, err := s.store.AppendMessage(content, sender, isPriority, departmentID)
	if err != nil {
		return core.Message{}, err
	}

	remote, err := s.backend.SendMessage(ctx, content, sender, isPriority, departmentID)
	if err != nil {
		s.log.Warn().Err(err).Str("message_id", local.ID).Msg("message not confirmed by backend")
		return local, fmt.Errorf("send message: %w: %w", ErrBackend, err)
	}

	if err := s.store.Reconcile(local.ID, remote); err != nil {
		return local, fmt.Errorf("reconcile message: %w", err)
	}

	confirmed := local
	confirmed.ID = remote.ID
	if !remote.Timestamp.IsZero() {
		confirmed.Timestamp = remote.Timestamp
	}
	return confirmed, nil
}

// CreateDepartment creates a department on the backend and stores it under
// the id the backend assigned.
func (s *Service) CreateDepartment(ctx context.Context, name, color string) (core.Department, error) {
	if err := store.ValidateDepartment(name, color); err != nil {
		return core.Department{}, err
	}
	dep, err := s.backend.CreateDepartment(ctx, name, color)
	if err != nil {
		return core.Department{}, fmt.Errorf("create department: %w: %w", ErrBackend, err)
	}
	if err := s.store.PutDepartment(dep); err != nil {
		return core.Department{}, fmt.Errorf("store department: %w", err)
	}
	return dep, nil
}

// DeleteDepartment deletes a department on the backend, then locally.
// Messages referencing it are kept.
func (s *Service) DeleteDepartment(ctx context.Context, id string) error {
	if err := s.backend.DeleteDepartment(ctx, id); err != nil {
		return fmt.Errorf("delete department: %w: %w", ErrBackend, err)
	}
	s.store.RemoveDepartment(id)
	return nil
}
