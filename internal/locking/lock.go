// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package locking provides database-backed session leases. A lease
// marks a user's data directory as owned by one server process; the
// JSON document stores are not safe under concurrent writers from
// separate processes.
package locking

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// SessionLock is a lease on one user's data directory
type SessionLock struct {
	Username  string    `gorm:"primaryKey" json:"username"`
	Version   int64     `gorm:"not null;default:1" json:"version"`
	LockedBy  string    `gorm:"not null" json:"locked_by"`
	LockedAt  time.Time `gorm:"not null" json:"locked_at"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
}

// TableName specifies the table name for SessionLock
func (SessionLock) TableName() string {
	return "mindy_session_locks"
}

// MigrateLocks runs migrations for the session lock table
func MigrateLocks(db *gorm.DB) error {
	return db.AutoMigrate(&SessionLock{})
}

// IsExpired returns true if the lease has expired
func (l *SessionLock) IsExpired() bool {
	return time.Now().After(l.ExpiresAt)
}

// LockError represents a lease acquisition failure
type LockError struct {
	Username string
	LockedBy string
}

func (e *LockError) Error() string {
	return fmt.Sprintf("user '%s' is already served by '%s'", e.Username, e.LockedBy)
}
