// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package auth

import (
	"sync"

	"github.com/synapse-labs/mindy/internal/database"
)

// Session tracks the authenticated user for a single caller process.
// The caller owns the session; the core only reads it. Safe for use from
// a UI that may re-enter concurrently.
type Session struct {
	mu   sync.RWMutex
	user *database.MindyUser
}

// NewSession returns an unauthenticated session
func NewSession() *Session {
	return &Session{}
}

// Login marks the session as authenticated for the given user
func (s *Session) Login(user *database.MindyUser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
}

// Logout clears the authenticated user
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
}

// IsLoggedIn reports whether the session is authenticated
func (s *Session) IsLoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

// User returns the authenticated user, or nil
func (s *Session) User() *database.MindyUser {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Username returns the authenticated username, or empty
func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return ""
	}
	return s.user.Username
}
