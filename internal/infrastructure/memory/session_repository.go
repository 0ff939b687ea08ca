package memory

import (
	"context"
	"fmt"
	"sync"

	domain "github.com/Zhima-Mochi/coffee-register/internal/domain/session"
)

type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		sessions: make(map[string]*domain.Session),
	}
}

func (r *SessionRepository) Insert(ctx context.Context, s *domain.Session) error {
	_ = ctx
	if s == nil || s.ID == "" {
		return fmt.Errorf("session repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[s.ID]; exists {
		return domain.ErrConflict
	}
	r.sessions[s.ID] = s.Clone()
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, id string) (*domain.Session, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s.Clone(), nil
}

func (r *SessionRepository) Update(ctx context.Context, s *domain.Session) error {
	_ = ctx
	if s == nil || s.ID == "" {
		return fmt.Errorf("session repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[s.ID]; !exists {
		return domain.ErrNotFound
	}
	r.sessions[s.ID] = s.Clone()
	return nil
}
