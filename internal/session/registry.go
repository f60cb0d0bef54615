package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"interview-coach/internal/interview"
)

// Factory создает сессию с заданным идентификатором
type Factory func(id string, profile interview.CandidateProfile) (*Session, error)

type entry struct {
	session   *Session
	createdAt time.Time
}

// Registry хранит активные сессии по идентификатору
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]entry
	factory  Factory
	now      func() time.Time
}

// NewRegistry создает реестр сессий
func NewRegistry(factory Factory) *Registry {
	return &Registry{
		sessions: make(map[string]entry),
		factory:  factory,
		now:      time.Now,
	}
}

// Start создает новую сессию для кандидата
func (r *Registry) Start(profile interview.CandidateProfile) (*Session, error) {
	id := uuid.New().String()
	s, err := r.factory(id, profile)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания сессии: %w", err)
	}

	r.mu.Lock()
	r.sessions[id] = entry{session: s, createdAt: r.now()}
	r.mu.Unlock()
	return s, nil
}

// Get возвращает сессию по идентификатору
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[id]
	return e.session, ok
}

// Remove удаляет сессию из реестра
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Len возвращает число сессий
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep удаляет завершенные сессии и сессии старше maxAge.
// Возвращает число удаленных.
func (r *Registry) Sweep(maxAge time.Duration) int {
	cutoff := r.now().Add(-maxAge)

	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, e := range r.sessions {
		if e.session.Status() == StatusTerminated || e.createdAt.Before(cutoff) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}
