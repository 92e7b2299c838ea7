// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package database

import (
	"time"
)

// MindyUser represents a user account
type MindyUser struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"` // Never expose in JSON
	Salt         string    `gorm:"not null" json:"-"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName specifies the table name for MindyUser
func (MindyUser) TableName() string {
	return "mindy_users"
}

// MindyAuthToken represents authentication tokens for users
type MindyAuthToken struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"index;not null" json:"user_id"`
	AccessToken  string    `gorm:"type:text;not null" json:"access_token"`
	RefreshToken string    `gorm:"type:text" json:"refresh_token"`
	ExpiresAt    time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Foreign key relationship
	User MindyUser `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for MindyAuthToken
func (MindyAuthToken) TableName() string {
	return "mindy_auth_tokens"
}

// MindyFolder represents a folder grouping uploaded files for a user
type MindyFolder struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index:idx_folders_user_name,unique;not null" json:"user_id"`
	Name      string    `gorm:"index:idx_folders_user_name,unique;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`

	// Foreign key relationship
	User MindyUser `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for MindyFolder
func (MindyFolder) TableName() string {
	return "mindy_folders"
}

// MindyFile is the metadata index entry for an uploaded file.
// Raw bytes live on disk under the user's data root; this row carries
// folder assignment, size and tags. Filename is unique per user, not
// per folder, so a move preserves identity.
type MindyFile struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index:idx_files_user_name,unique;not null" json:"user_id"`
	Filename  string    `gorm:"index:idx_files_user_name,unique;not null" json:"filename"`
	FolderID  uint      `gorm:"index;not null" json:"folder_id"`
	Size      int64     `gorm:"not null" json:"size"`
	Tags      string    `gorm:"type:text" json:"tags"` // JSON-encoded list of tags
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Foreign key relationships
	User   MindyUser   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Folder MindyFolder `gorm:"foreignKey:FolderID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for MindyFile
func (MindyFile) TableName() string {
	return "mindy_files"
}
