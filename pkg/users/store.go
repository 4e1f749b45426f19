// Package users registers accounts and checks their credentials.
package users

import (
	"context"
	"errors"
	"sync"

	"github.com/B0TMirage/cryptopulse/pkg/apperr"
	"github.com/B0TMirage/cryptopulse/pkg/models"
)

var ErrNotFound = errors.New("user not found")

type Store interface {
	// Create fails with apperr.ErrConflict when the email is taken.
	Create(ctx context.Context, u models.User) error
	// GetByEmail fails with ErrNotFound when no account uses the email.
	GetByEmail(ctx context.Context, email string) (models.User, error)
}

var _ Store = (*MemoryStore)(nil)

type MemoryStore struct {
	mu      sync.RWMutex
	byEmail map[string]models.User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byEmail: make(map[string]models.User)}
}

func (s *MemoryStore) Create(_ context.Context, u models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[u.Email]; ok {
		return apperr.Conflict("user with email %s already exists", u.Email)
	}
	s.byEmail[u.Email] = u
	return nil
}

func (s *MemoryStore) GetByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byEmail[email]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return u, nil
}
