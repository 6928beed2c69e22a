// Package memory is an in-process [storeAuth.UserProvider] for tests, the
// runnable example and the load test.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	storeAuth "github.com/MrEthical07/storeAuth"
	"github.com/google/uuid"
)

// Store keeps users and role assignments in maps guarded by one RWMutex.
type Store struct {
	mu           sync.RWMutex
	byID         map[string]storeAuth.UserRecord
	byEmail      map[string]string
	roles        map[string][]string
	defaultRoles []string
}

// New creates an empty directory. defaultRoles are assigned on CreateUser.
func New(defaultRoles ...string) *Store {
	return &Store{
		byID:         make(map[string]storeAuth.UserRecord),
		byEmail:      make(map[string]string),
		roles:        make(map[string][]string),
		defaultRoles: append([]string(nil), defaultRoles...),
	}
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// GetUserByIdentifier looks a user up by email.
func (s *Store) GetUserByIdentifier(_ context.Context, identifier string) (storeAuth.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[normalize(identifier)]
	if !ok {
		return storeAuth.UserRecord{}, storeAuth.ErrUserNotFound
	}
	return s.byID[id], nil
}

// GetUserByID looks a user up by id.
func (s *Store) GetUserByID(_ context.Context, userID string) (storeAuth.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[userID]
	if !ok {
		return storeAuth.UserRecord{}, storeAuth.ErrUserNotFound
	}
	return u, nil
}

// CreateUser inserts an active user with a fresh UUID.
func (s *Store) CreateUser(_ context.Context, in storeAuth.CreateUserInput) (storeAuth.UserRecord, error) {
	email := normalize(in.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[email]; exists {
		return storeAuth.UserRecord{}, fmt.Errorf("%w: %s", storeAuth.ErrAccountExists, email)
	}

	u := storeAuth.UserRecord{
		UserID:       uuid.NewString(),
		Email:        email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: in.PasswordHash,
		Status:       storeAuth.AccountActive,
	}
	s.byID[u.UserID] = u
	s.byEmail[email] = u.UserID
	s.roles[u.UserID] = append([]string(nil), s.defaultRoles...)
	return u, nil
}

// ResolveRoles returns a copy of the user's roles.
func (s *Store) ResolveRoles(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.byID[userID]; !ok {
		return nil, storeAuth.ErrUserNotFound
	}
	return append([]string{}, s.roles[userID]...), nil
}

// SetRoles replaces the user's roles.
func (s *Store) SetRoles(userID string, roles ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[userID]; !ok {
		return storeAuth.ErrUserNotFound
	}
	s.roles[userID] = append([]string(nil), roles...)
	return nil
}

// SetStatus changes the user's account status.
func (s *Store) SetStatus(userID string, status storeAuth.AccountStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[userID]
	if !ok {
		return storeAuth.ErrUserNotFound
	}
	u.Status = status
	s.byID[userID] = u
	return nil
}

// Delete removes the user.
func (s *Store) Delete(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.byID[userID]; ok {
		delete(s.byEmail, u.Email)
		delete(s.byID, userID)
		delete(s.roles, userID)
	}
}

// Len returns the number of users.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
