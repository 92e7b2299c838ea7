// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package locking

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synapse-labs/mindy/internal/config"
	"github.com/synapse-labs/mindy/internal/database"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupLockTest(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := config.DatabaseConfig{
		Type:       "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	}

	db, err := database.Connect(cfg, logger.Silent)
	require.NoError(t, err)
	require.NoError(t, MigrateLocks(db))
	return db
}

func TestAcquire_FreshLease(t *testing.T) {
	locker := NewLocker(setupLockTest(t))

	acquired, err := locker.Acquire("alice", "proc-1")
	require.NoError(t, err)
	assert.True(t, acquired)

	locked, owner, err := locker.IsLocked("alice")
	require.NoError(t, err)
	assert.True(t, locked)
	assert.Equal(t, "proc-1", owner)
}

func TestAcquire_HeldByOther(t *testing.T) {
	locker := NewLocker(setupLockTest(t))

	acquired, err := locker.Acquire("alice", "proc-1")
	require.NoError(t, err)
	require.True(t, acquired)

	acquired, err = locker.Acquire("alice", "proc-2")
	require.NoError(t, err)
	assert.False(t, acquired)
}

func TestAcquire_Reentrant(t *testing.T) {
	locker := NewLocker(setupLockTest(t))

	acquired, err := locker.Acquire("alice", "proc-1")
	require.NoError(t, err)
	require.True(t, acquired)

	acquired, err = locker.Acquire("alice", "proc-1")
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestAcquire_ExpiredTakeover(t *testing.T) {
	db := setupLockTest(t)
	locker := NewLocker(db).WithTTL(-time.Second)

	acquired, err := locker.Acquire("alice", "proc-1")
	require.NoError(t, err)
	require.True(t, acquired)

	locker2 := NewLocker(db)
	acquired, err = locker2.Acquire("alice", "proc-2")
	require.NoError(t, err)
	assert.True(t, acquired)

	locked, owner, err := locker2.IsLocked("alice")
	require.NoError(t, err)
	assert.True(t, locked)
	assert.Equal(t, "proc-2", owner)
}

func TestRelease(t *testing.T) {
	locker := NewLocker(setupLockTest(t))

	_, err := locker.Acquire("alice", "proc-1")
	require.NoError(t, err)

	require.NoError(t, locker.Release("alice", "proc-1"))

	locked, _, err := locker.IsLocked("alice")
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestRelease_WrongOwnerIsNoop(t *testing.T) {
	locker := NewLocker(setupLockTest(t))

	_, err := locker.Acquire("alice", "proc-1")
	require.NoError(t, err)

	require.NoError(t, locker.Release("alice", "proc-2"))

	locked, owner, err := locker.IsLocked("alice")
	require.NoError(t, err)
	assert.True(t, locked)
	assert.Equal(t, "proc-1", owner)
}

func TestExtend(t *testing.T) {
	locker := NewLocker(setupLockTest(t))

	_, err := locker.Acquire("alice", "proc-1")
	require.NoError(t, err)

	require.NoError(t, locker.Extend("alice", "proc-1"))

	err = locker.Extend("alice", "proc-2")
	assert.Error(t, err)
	assert.IsType(t, &LockError{}, err)
}

func TestCleanupExpired(t *testing.T) {
	db := setupLockTest(t)

	expired := NewLocker(db).WithTTL(-time.Second)
	_, err := expired.Acquire("alice", "proc-1")
	require.NoError(t, err)

	live := NewLocker(db)
	_, err = live.Acquire("bob", "proc-2")
	require.NoError(t, err)

	removed, err := live.CleanupExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	locked, _, _ := live.IsLocked("bob")
	assert.True(t, locked)
}

func TestReleaseAll(t *testing.T) {
	locker := NewLocker(setupLockTest(t))

	_, err := locker.Acquire("alice", "proc-1")
	require.NoError(t, err)
	_, err = locker.Acquire("bob", "proc-1")
	require.NoError(t, err)

	require.NoError(t, locker.ReleaseAll("proc-1"))

	locked, _, _ := locker.IsLocked("alice")
	assert.False(t, locked)
	locked, _, _ = locker.IsLocked("bob")
	assert.False(t, locked)
}

func TestAcquire_CreateRaceLostYieldsContention(t *testing.T) {
	cfg := config.DatabaseConfig{
		Type:       "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	}
	db, err := database.Connect(cfg, logger.Silent)
	require.NoError(t, err)
	require.NoError(t, MigrateLocks(db))

	// Slip a competing lease in between the read and the create, on a
	// separate connection so it commits independently of the outer
	// create's transaction — like a real rival process would
	seeded := false
	err = db.Callback().Create().Before("gorm:create").Register("seed_competing_lease", func(tx *gorm.DB) {
		if seeded {
			return
		}
		seeded = true
		rival, rerr := database.Connect(cfg, logger.Silent)
		if rerr != nil {
			_ = tx.AddError(rerr)
			return
		}
		rival.Create(&SessionLock{
			Username:  "alice",
			Version:   1,
			LockedBy:  "other-host:1",
			LockedAt:  time.Now(),
			ExpiresAt: time.Now().Add(time.Hour),
		})
	})
	require.NoError(t, err)

	acquired, err := NewLocker(db).Acquire("alice", "me:1")
	require.NoError(t, err)
	assert.False(t, acquired)

	locked, holder, err := NewLocker(db).IsLocked("alice")
	require.NoError(t, err)
	assert.True(t, locked)
	assert.Equal(t, "other-host:1", holder)
}

func TestAcquire_CreateStorageErrorSurfaced(t *testing.T) {
	db := setupLockTest(t)

	// A failure that is not a lost race must surface, not read as
	// contention
	dropped := false
	err := db.Callback().Create().Before("gorm:create").Register("drop_lease_table", func(tx *gorm.DB) {
		if dropped {
			return
		}
		dropped = true
		_ = tx.Session(&gorm.Session{NewDB: true}).Migrator().DropTable(&SessionLock{})
	})
	require.NoError(t, err)

	_, err = NewLocker(db).Acquire("alice", "me:1")
	assert.Error(t, err)
}
