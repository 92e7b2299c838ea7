// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/synapse-labs/mindy/internal/database"
	"gorm.io/gorm"
)

const (
	// DefaultUsername is the account created on first run
	DefaultUsername = "admin"
	// DefaultPassword is the initial password for the default account
	DefaultPassword = "admin123"
	// MinPasswordLength is the minimum accepted password length for registration
	MinPasswordLength = 6
)

// Authenticator verifies credentials against the user table.
// The core never inspects credentials beyond this package; callers only
// learn whether a session is authenticated.
type Authenticator struct {
	db *gorm.DB
}

// NewAuthenticator creates a new authenticator backed by the given database
func NewAuthenticator(db *gorm.DB) *Authenticator {
	return &Authenticator{db: db}
}

// Authenticate checks a username/password pair and returns the user on success
func (a *Authenticator) Authenticate(username, password string) (*database.MindyUser, bool) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, false
	}

	var user database.MindyUser
	err := a.db.Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, false
	}

	expected := hashPassword(password, user.Salt)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(user.PasswordHash)) != 1 {
		return nil, false
	}

	return &user, true
}

// Register creates a new user account. Returns an error for invalid input
// and (nil, false) semantics via a Conflict error when the username is taken.
func (a *Authenticator) Register(username, password, fullName, email string) (*database.MindyUser, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" || strings.TrimSpace(fullName) == "" || strings.TrimSpace(email) == "" {
		return nil, fmt.Errorf("all registration fields are required")
	}
	if len(password) < MinPasswordLength {
		return nil, fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}

	var existing database.MindyUser
	err := a.db.Where("username = ?", username).First(&existing).Error
	if err == nil {
		return nil, fmt.Errorf("username '%s' already exists", username)
	}
	if err != gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	salt, err := generateSalt()
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	user := &database.MindyUser{
		Username:     username,
		PasswordHash: hashPassword(password, salt),
		Salt:         salt,
		FullName:     strings.TrimSpace(fullName),
		Email:        strings.TrimSpace(email),
	}
	if err := a.db.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// SetupDefaultUser creates the default admin account if no users exist.
// Safe to call on every startup.
func (a *Authenticator) SetupDefaultUser() (*database.MindyUser, error) {
	var count int64
	if err := a.db.Model(&database.MindyUser{}).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		return nil, nil
	}

	salt, err := generateSalt()
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	user := &database.MindyUser{
		Username:     DefaultUsername,
		PasswordHash: hashPassword(DefaultPassword, salt),
		Salt:         salt,
		FullName:     "Administrator",
		Email:        DefaultUsername + "@local",
	}
	if err := a.db.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create default user: %w", err)
	}

	return user, nil
}

// FindUser looks up a user by username
func (a *Authenticator) FindUser(username string) (*database.MindyUser, error) {
	var user database.MindyUser
	err := a.db.Where("username = ?", username).First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("user not found: %s", username)
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

// hashPassword returns the hex-encoded salted SHA-256 digest of a password
func hashPassword(password, salt string) string {
	sum := sha256.Sum256([]byte(salt + ":" + password))
	return hex.EncodeToString(sum[:])
}

// generateSalt returns a random hex-encoded salt
func generateSalt() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
