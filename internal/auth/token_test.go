// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synapse-labs/mindy/internal/database"
)

func TestGenerateAndValidateToken(t *testing.T) {
	db := setupTestDB(t)

	user := &database.MindyUser{Username: "testuser", PasswordHash: "h", Salt: "s"}
	require.NoError(t, db.Create(user).Error)

	tm := NewTokenManager(db, 24)

	token, err := tm.GenerateToken(user.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, token.AccessToken)
	assert.NotEmpty(t, token.RefreshToken)
	assert.True(t, token.ExpiresAt.After(time.Now()))

	validated, err := tm.ValidateToken(token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, validated.UserID)
}

func TestValidateToken_Expired(t *testing.T) {
	db := setupTestDB(t)

	user := &database.MindyUser{Username: "testuser", PasswordHash: "h", Salt: "s"}
	require.NoError(t, db.Create(user).Error)

	token := &database.MindyAuthToken{
		UserID:      user.ID,
		AccessToken: "expired-token",
		ExpiresAt:   time.Now().Add(-time.Hour),
	}
	require.NoError(t, db.Create(token).Error)

	tm := NewTokenManager(db, 24)
	_, err := tm.ValidateToken("expired-token")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestRevokeToken(t *testing.T) {
	db := setupTestDB(t)

	user := &database.MindyUser{Username: "testuser", PasswordHash: "h", Salt: "s"}
	require.NoError(t, db.Create(user).Error)

	tm := NewTokenManager(db, 24)
	token, err := tm.GenerateToken(user.ID)
	require.NoError(t, err)

	require.NoError(t, tm.RevokeToken(token.AccessToken))

	_, err = tm.ValidateToken(token.AccessToken)
	assert.Error(t, err)

	// Revoking again reports not found
	err = tm.RevokeToken(token.AccessToken)
	assert.Error(t, err)
}

func TestCleanExpiredTokens(t *testing.T) {
	db := setupTestDB(t)

	user := &database.MindyUser{Username: "testuser", PasswordHash: "h", Salt: "s"}
	require.NoError(t, db.Create(user).Error)

	// One expired, one live
	require.NoError(t, db.Create(&database.MindyAuthToken{
		UserID: user.ID, AccessToken: "old", ExpiresAt: time.Now().Add(-time.Hour),
	}).Error)
	require.NoError(t, db.Create(&database.MindyAuthToken{
		UserID: user.ID, AccessToken: "live", ExpiresAt: time.Now().Add(time.Hour),
	}).Error)

	tm := NewTokenManager(db, 24)
	removed, err := tm.CleanExpiredTokens()
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = tm.ValidateToken("live")
	assert.NoError(t, err)
}
