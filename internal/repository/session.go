package repository

import (
	"fmt"
	"sync"

	"github.com/rocketscienceinc/kittycard-backend/internal/apperror"
	"github.com/rocketscienceinc/kittycard-backend/internal/entity"
)

// SessionRepository is the process-wide registry of active sessions. It is
// the only structure mutated by multiple concurrent callers, so every
// access goes through its lock; the sessions themselves are serialized by
// the usecase layer.
type SessionRepository interface {
	Create(session *entity.Session) error
	GetByID(id string) (*entity.Session, error)
	DeleteByID(id string)
	List() []*entity.Session
}

type sessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*entity.Session
}

func NewSessionRepository() SessionRepository {
	return &sessionRegistry{
		sessions: make(map[string]*entity.Session),
	}
}

// Create - atomic create-if-absent. A token collision is reported to the
// caller, which regenerates; two sessions never share an ID.
func (that *sessionRegistry) Create(session *entity.Session) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.sessions[session.ID]; ok {
		return fmt.Errorf("%w: %s", apperror.ErrSessionAlreadyExists, session.ID)
	}

	that.sessions[session.ID] = session

	return nil
}

func (that *sessionRegistry) GetByID(id string) (*entity.Session, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	session, ok := that.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperror.ErrSessionNotFound, id)
	}

	return session, nil
}

func (that *sessionRegistry) DeleteByID(id string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.sessions, id)
}

func (that *sessionRegistry) List() []*entity.Session {
	that.mu.RLock()
	defer that.mu.RUnlock()

	sessions := make([]*entity.Session, 0, len(that.sessions))
	for _, session := range that.sessions {
		sessions = append(sessions, session)
	}

	return sessions
}
