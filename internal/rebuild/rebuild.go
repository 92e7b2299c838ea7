// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package rebuild reconstructs the relational file index from the
// on-disk file tree. The bytes on disk are the source of truth; the
// database rows are a derived index that can always be regenerated.
package rebuild

import (
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/gorm"

	"github.com/synapse-labs/mindy/internal/database"
	"github.com/synapse-labs/mindy/internal/files"
)

// Options controls rebuild behavior
type Options struct {
	// Force clears existing index rows before rebuilding
	Force bool
}

// Result summarizes a rebuild run
type Result struct {
	FoldersIndexed int
	FilesIndexed   int
	FilesSkipped   int
	Errors         []string
}

// RebuildFileIndex scans a user's files directory and recreates the
// folder and file rows for that user. Existing rows abort the rebuild
// unless Force is set.
func RebuildFileIndex(db *gorm.DB, userID uint, filesRoot string, opts Options) (*Result, error) {
	if _, err := os.Stat(filesRoot); err != nil {
		return nil, fmt.Errorf("files root does not exist: %s", filesRoot)
	}

	if err := handleExistingIndex(db, userID, opts); err != nil {
		return nil, err
	}

	result := &Result{Errors: []string{}}

	entries, err := os.ReadDir(filesRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to read files root: %w", err)
	}

	seenDefault := false
	for _, entry := range entries {
		if !entry.IsDir() {
			// Stray file at the root, not part of the layout
			result.FilesSkipped++
			continue
		}

		folderName := entry.Name()
		if folderName == files.DefaultFolder {
			seenDefault = true
		}

		folder := database.MindyFolder{
			UserID: userID,
			Name:   folderName,
		}
		if err := db.Create(&folder).Error; err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("folder '%s': %v", folderName, err))
			continue
		}
		result.FoldersIndexed++

		if err := indexFolder(db, userID, folder.ID, filepath.Join(filesRoot, folderName), result); err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("folder '%s': %v", folderName, err))
		}
	}

	// The default folder always exists in the index, even when empty
	if !seenDefault {
		folder := database.MindyFolder{UserID: userID, Name: files.DefaultFolder}
		if err := db.Create(&folder).Error; err == nil {
			result.FoldersIndexed++
			if err := os.MkdirAll(filepath.Join(filesRoot, files.DefaultFolder), 0755); err != nil {
				result.Errors = append(result.Errors,
					fmt.Sprintf("default folder: %v", err))
			}
		}
	}

	return result, nil
}

// handleExistingIndex checks for existing rows and clears them when forced
func handleExistingIndex(db *gorm.DB, userID uint, opts Options) error {
	var fileCount int64
	if err := db.Model(&database.MindyFile{}).Where("user_id = ?", userID).Count(&fileCount).Error; err != nil {
		return fmt.Errorf("failed to check existing index: %w", err)
	}
	var folderCount int64
	if err := db.Model(&database.MindyFolder{}).Where("user_id = ?", userID).Count(&folderCount).Error; err != nil {
		return fmt.Errorf("failed to check existing folders: %w", err)
	}

	if fileCount == 0 && folderCount == 0 {
		return nil
	}
	if !opts.Force {
		return fmt.Errorf("index already contains %d files and %d folders for this user; use force to overwrite", fileCount, folderCount)
	}

	if err := db.Where("user_id = ?", userID).Delete(&database.MindyFile{}).Error; err != nil {
		return fmt.Errorf("failed to clear file index: %w", err)
	}
	if err := db.Where("user_id = ?", userID).Delete(&database.MindyFolder{}).Error; err != nil {
		return fmt.Errorf("failed to clear folder index: %w", err)
	}
	return nil
}

// indexFolder creates file rows for every regular file in a folder
// directory. Tags cannot be recovered from disk and start empty.
func indexFolder(db *gorm.DB, userID, folderID uint, dir string, result *Result) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read folder: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			// Nested directories are not part of the layout
			result.FilesSkipped++
			continue
		}

		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("file '%s': %v", entry.Name(), err))
			continue
		}

		row := database.MindyFile{
			UserID:   userID,
			Filename: entry.Name(),
			FolderID: folderID,
			Size:     info.Size(),
			Tags:     "[]",
		}
		if err := db.Create(&row).Error; err != nil {
			// Duplicate filename in another folder; first one wins
			result.FilesSkipped++
			continue
		}
		result.FilesIndexed++
	}
	return nil
}
