// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package locking

import (
	"time"

	"gorm.io/gorm"
)

// DefaultLeaseTTL is the default time-to-live for session leases
const DefaultLeaseTTL = 5 * time.Minute

// Locker manages session leases over the shared database
type Locker struct {
	db       *gorm.DB
	leaseTTL time.Duration
}

// NewLocker creates a new locker instance
func NewLocker(db *gorm.DB) *Locker {
	return &Locker{
		db:       db,
		leaseTTL: DefaultLeaseTTL,
	}
}

// WithTTL sets a custom TTL for leases
func (l *Locker) WithTTL(ttl time.Duration) *Locker {
	l.leaseTTL = ttl
	return l
}

// Acquire attempts to take the lease for a user's session.
// Returns true if acquired, false if another live process holds it.
// A process re-acquiring its own lease, or taking over an expired one,
// succeeds.
func (l *Locker) Acquire(username, ownerID string) (bool, error) {
	now := time.Now()
	expiresAt := now.Add(l.leaseTTL)

	var existing SessionLock
	err := l.db.Where("username = ?", username).First(&existing).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			return false, err
		}
		lock := SessionLock{
			Username:  username,
			Version:   1,
			LockedBy:  ownerID,
			LockedAt:  now,
			ExpiresAt: expiresAt,
		}
		if err := l.db.Create(&lock).Error; err != nil {
			// A duplicate row means another process won the race; any
			// other failure is a storage error and must surface
			var raced SessionLock
			if ferr := l.db.Where("username = ?", username).First(&raced).Error; ferr == nil {
				return false, nil
			}
			return false, err
		}
		return true, nil
	}

	if !existing.IsExpired() && existing.LockedBy != ownerID {
		return false, nil
	}

	// Takeover guarded by the version column so only one contender wins
	result := l.db.Model(&SessionLock{}).
		Where("username = ? AND version = ?", username, existing.Version).
		Updates(map[string]interface{}{
			"locked_by":  ownerID,
			"locked_at":  now,
			"expires_at": expiresAt,
			"version":    existing.Version + 1,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Release releases a lease held by the specified owner
func (l *Locker) Release(username, ownerID string) error {
	return l.db.Where("username = ? AND locked_by = ?", username, ownerID).
		Delete(&SessionLock{}).Error
}

// ReleaseAll releases all leases held by an owner
func (l *Locker) ReleaseAll(ownerID string) error {
	return l.db.Where("locked_by = ?", ownerID).Delete(&SessionLock{}).Error
}

// Extend renews the TTL of an existing lease
func (l *Locker) Extend(username, ownerID string) error {
	result := l.db.Model(&SessionLock{}).
		Where("username = ? AND locked_by = ?", username, ownerID).
		Update("expires_at", time.Now().Add(l.leaseTTL))

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return &LockError{Username: username}
	}
	return nil
}

// IsLocked reports whether a user's session has a live lease and who
// holds it
func (l *Locker) IsLocked(username string) (bool, string, error) {
	var lock SessionLock
	err := l.db.Where("username = ?", username).First(&lock).Error
	if err != nil {
		return false, "", nil
	}
	if lock.IsExpired() {
		return false, "", nil
	}
	return true, lock.LockedBy, nil
}

// CleanupExpired removes all expired leases
func (l *Locker) CleanupExpired() (int64, error) {
	result := l.db.Where("expires_at < ?", time.Now()).Delete(&SessionLock{})
	return result.RowsAffected, result.Error
}
