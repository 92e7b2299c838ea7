// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package files

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/synapse-labs/mindy/internal/database"
	"gorm.io/gorm"
)

// DefaultFolder is the root folder every repository starts with.
// It cannot be deleted and absorbs files from deleted folders.
const DefaultFolder = "Geral"

// ErrNotFound signals that a filename or folder does not exist.
// Callers routinely probe existence, so this is an expected condition.
var ErrNotFound = fmt.Errorf("not found")

// ErrBinaryContent signals that a file's bytes do not decode as text
var ErrBinaryContent = fmt.Errorf("content is not valid text")

// Record is the caller-visible view of an uploaded file
type Record struct {
	Filename string   `json:"filename"`
	Folder   string   `json:"folder"`
	Size     int64    `json:"size"`
	Tags     []string `json:"tags"`
}

// Repository is a folder-scoped store of uploaded files for one user.
// Raw bytes live under root/<folder>/<filename>; folder assignment, size
// and tags live in the relational index. Filenames are unique across the
// whole repository so moves preserve identity.
type Repository struct {
	mu     sync.Mutex
	db     *gorm.DB
	userID uint
	root   string
}

// NewRepository opens the repository for a user, creating the default
// folder on first use.
func NewRepository(db *gorm.DB, userID uint, root string) (*Repository, error) {
	r := &Repository{db: db, userID: userID, root: root}

	if err := os.MkdirAll(r.folderPath(DefaultFolder), 0755); err != nil {
		return nil, fmt.Errorf("failed to create default folder: %w", err)
	}

	var folder database.MindyFolder
	err := db.Where("user_id = ? AND name = ?", userID, DefaultFolder).
		FirstOrCreate(&folder, database.MindyFolder{UserID: userID, Name: DefaultFolder}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to ensure default folder: %w", err)
	}

	return r, nil
}

// Root returns the on-disk root of this repository
func (r *Repository) Root() string {
	return r.root
}

// Folders returns all folder names, default folder first, the rest
// sorted ascending.
func (r *Repository) Folders() ([]string, error) {
	var folders []database.MindyFolder
	err := r.db.Where("user_id = ?", r.userID).Order("name asc").Find(&folders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}

	out := []string{DefaultFolder}
	for _, f := range folders {
		if f.Name != DefaultFolder {
			out = append(out, f.Name)
		}
	}
	return out, nil
}

// CreateFolder creates a new folder. Returns false (never an error) for
// an empty name after trimming, an invalid name, or a name that already
// exists; the reserved default folder counts as existing.
func (r *Repository) CreateFolder(name string) bool {
	name = strings.TrimSpace(name)
	if !validName(name) {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var existing database.MindyFolder
	err := r.db.Where("user_id = ? AND name = ?", r.userID, name).First(&existing).Error
	if err == nil {
		return false
	}
	if err != gorm.ErrRecordNotFound {
		return false
	}

	if err := os.MkdirAll(r.folderPath(name), 0755); err != nil {
		return false
	}
	folder := database.MindyFolder{UserID: r.userID, Name: name}
	return r.db.Create(&folder).Error == nil
}

// DeleteFolder removes a non-default folder. Files it contains are
// reassigned to the default folder first; they are never lost and never
// left pointing at a missing folder.
func (r *Repository) DeleteFolder(name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == DefaultFolder || name == "" {
		return false, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	folder, err := r.findFolder(name)
	if err != nil {
		if err == ErrNotFound {
			return false, nil
		}
		return false, err
	}

	defFolder, err := r.findFolder(DefaultFolder)
	if err != nil {
		return false, fmt.Errorf("default folder missing: %w", err)
	}

	var contained []database.MindyFile
	if err := r.db.Where("user_id = ? AND folder_id = ?", r.userID, folder.ID).Find(&contained).Error; err != nil {
		return false, fmt.Errorf("failed to list folder contents: %w", err)
	}

	for _, f := range contained {
		src := filepath.Join(r.folderPath(name), f.Filename)
		dst := filepath.Join(r.folderPath(DefaultFolder), f.Filename)
		if err := os.Rename(src, dst); err != nil {
			return false, fmt.Errorf("failed to relocate %s: %w", f.Filename, err)
		}
		if err := r.db.Model(&database.MindyFile{}).Where("id = ?", f.ID).
			Update("folder_id", defFolder.ID).Error; err != nil {
			return false, fmt.Errorf("failed to reassign %s: %w", f.Filename, err)
		}
	}

	if err := r.db.Delete(&database.MindyFolder{}, folder.ID).Error; err != nil {
		return false, fmt.Errorf("failed to delete folder record: %w", err)
	}
	// Directory may hold stray files not in the index; leave those alone
	_ = os.Remove(r.folderPath(name))

	return true, nil
}

// Upload stores file content. A filename collision overwrites content
// and metadata for that filename in its current folder (last write
// wins); otherwise the file is created in the given folder, or the
// default folder when none is given.
func (r *Repository) Upload(filename string, content []byte, folder string) (Record, error) {
	filename = filepath.Base(strings.TrimSpace(filename))
	if filename == "" || filename == "." {
		return Record{}, fmt.Errorf("filename cannot be empty")
	}
	if folder == "" {
		folder = DefaultFolder
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var rec database.MindyFile
	err := r.db.Where("user_id = ? AND filename = ?", r.userID, filename).First(&rec).Error
	switch err {
	case nil:
		// Existing file: overwrite in place, keep its current folder and tags
		current, lookupErr := r.folderByID(rec.FolderID)
		if lookupErr != nil {
			return Record{}, lookupErr
		}
		if err := writeAtomic(filepath.Join(r.folderPath(current.Name), filename), content); err != nil {
			return Record{}, err
		}
		rec.Size = int64(len(content))
		if err := r.db.Save(&rec).Error; err != nil {
			return Record{}, fmt.Errorf("failed to update file record: %w", err)
		}
		return r.toRecord(rec, current.Name), nil

	case gorm.ErrRecordNotFound:
		target, lookupErr := r.findFolder(folder)
		if lookupErr != nil {
			return Record{}, lookupErr
		}
		if err := writeAtomic(filepath.Join(r.folderPath(folder), filename), content); err != nil {
			return Record{}, err
		}
		rec = database.MindyFile{
			UserID:   r.userID,
			Filename: filename,
			FolderID: target.ID,
			Size:     int64(len(content)),
			Tags:     "[]",
		}
		if err := r.db.Create(&rec).Error; err != nil {
			return Record{}, fmt.Errorf("failed to create file record: %w", err)
		}
		return r.toRecord(rec, folder), nil

	default:
		return Record{}, fmt.Errorf("failed to query file record: %w", err)
	}
}

// ListFiles returns all files, or only those in folder when given,
// sorted by filename ascending regardless of upload order.
func (r *Repository) ListFiles(folder string) ([]Record, error) {
	query := r.db.Where("user_id = ?", r.userID).Order("filename asc")
	if folder != "" {
		f, err := r.findFolder(folder)
		if err != nil {
			if err == ErrNotFound {
				return []Record{}, nil
			}
			return nil, err
		}
		query = query.Where("folder_id = ?", f.ID)
	}

	var rows []database.MindyFile
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	names, err := r.folderNames()
	if err != nil {
		return nil, err
	}

	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, r.toRecord(row, names[row.FolderID]))
	}
	return out, nil
}

// MoveFile relocates a file to another folder. Fails if the file or
// the folder does not exist. Moving a file onto its current folder is
// a no-op success.
func (r *Repository) MoveFile(filename, targetFolder string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.findFile(filename)
	if err != nil {
		return false
	}
	target, err := r.findFolder(targetFolder)
	if err != nil {
		return false
	}
	if rec.FolderID == target.ID {
		return true
	}

	current, err := r.folderByID(rec.FolderID)
	if err != nil {
		return false
	}

	src := filepath.Join(r.folderPath(current.Name), rec.Filename)
	dst := filepath.Join(r.folderPath(target.Name), rec.Filename)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return false
	}
	if err := os.Rename(src, dst); err != nil {
		return false
	}

	return r.db.Model(&database.MindyFile{}).Where("id = ?", rec.ID).
		Update("folder_id", target.ID).Error == nil
}

// SetFileTags replaces the file's full tag list with the given one.
// Replace (not merge) matches the edit form, which presents the current
// list for editing; pass a superset to add.
func (r *Repository) SetFileTags(filename string, tags []string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.findFile(filename)
	if err != nil {
		return false
	}

	if tags == nil {
		tags = []string{}
	}
	encoded, err := json.Marshal(dedupe(tags))
	if err != nil {
		return false
	}

	return r.db.Model(&database.MindyFile{}).Where("id = ?", rec.ID).
		Update("tags", string(encoded)).Error == nil
}

// DeleteFile removes a file's record and content. Fails if not found.
func (r *Repository) DeleteFile(filename string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.findFile(filename)
	if err != nil {
		return false
	}
	folder, err := r.folderByID(rec.FolderID)
	if err != nil {
		return false
	}

	if err := r.db.Delete(&database.MindyFile{}, rec.ID).Error; err != nil {
		return false
	}
	_ = os.Remove(filepath.Join(r.folderPath(folder.Name), rec.Filename))
	return true
}

// GetFileContent returns a prefix of the file's decoded text content up
// to maxChars characters. Missing files return ErrNotFound; bytes that
// do not decode as text return ErrBinaryContent rather than garbage.
func (r *Repository) GetFileContent(filename string, maxChars int) (string, error) {
	rec, err := r.findFile(filename)
	if err != nil {
		return "", err
	}
	folder, err := r.folderByID(rec.FolderID)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(filepath.Join(r.folderPath(folder.Name), rec.Filename))
	if err != nil {
		return "", ErrNotFound
	}

	if !utf8.Valid(data) || containsNUL(data) {
		return "", ErrBinaryContent
	}

	text := string(data)
	if maxChars > 0 {
		runes := []rune(text)
		if len(runes) > maxChars {
			text = string(runes[:maxChars])
		}
	}
	return text, nil
}

// TotalSize returns the summed byte size of all files, recomputed on
// demand so it never goes stale after a mutation.
func (r *Repository) TotalSize() (int64, error) {
	var total int64
	err := r.db.Model(&database.MindyFile{}).Where("user_id = ?", r.userID).
		Select("COALESCE(SUM(size), 0)").Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to compute total size: %w", err)
	}
	return total, nil
}

// TotalCount returns the number of files in the repository
func (r *Repository) TotalCount() (int, error) {
	var count int64
	err := r.db.Model(&database.MindyFile{}).Where("user_id = ?", r.userID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count files: %w", err)
	}
	return int(count), nil
}

// FolderCount returns the number of folders, including the default one
func (r *Repository) FolderCount() (int, error) {
	var count int64
	err := r.db.Model(&database.MindyFolder{}).Where("user_id = ?", r.userID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count folders: %w", err)
	}
	return int(count), nil
}

func (r *Repository) folderPath(name string) string {
	return filepath.Join(r.root, name)
}

func (r *Repository) findFolder(name string) (*database.MindyFolder, error) {
	var folder database.MindyFolder
	err := r.db.Where("user_id = ? AND name = ?", r.userID, strings.TrimSpace(name)).First(&folder).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query folder: %w", err)
	}
	return &folder, nil
}

func (r *Repository) folderByID(id uint) (*database.MindyFolder, error) {
	var folder database.MindyFolder
	err := r.db.First(&folder, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query folder: %w", err)
	}
	return &folder, nil
}

func (r *Repository) findFile(filename string) (*database.MindyFile, error) {
	var rec database.MindyFile
	err := r.db.Where("user_id = ? AND filename = ?", r.userID, strings.TrimSpace(filename)).First(&rec).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query file: %w", err)
	}
	return &rec, nil
}

// folderNames returns a folder-id to name map for this user
func (r *Repository) folderNames() (map[uint]string, error) {
	var folders []database.MindyFolder
	if err := r.db.Where("user_id = ?", r.userID).Find(&folders).Error; err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	names := make(map[uint]string, len(folders))
	for _, f := range folders {
		names[f.ID] = f.Name
	}
	return names, nil
}

func (r *Repository) toRecord(row database.MindyFile, folderName string) Record {
	var tags []string
	if err := json.Unmarshal([]byte(row.Tags), &tags); err != nil || tags == nil {
		tags = []string{}
	}
	return Record{
		Filename: row.Filename,
		Folder:   folderName,
		Size:     row.Size,
		Tags:     tags,
	}
}

// writeAtomic writes bytes through a temp file and rename so a reader
// never observes a partially written file.
func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace file: %w", err)
	}
	return nil
}

// validName rejects empty names and names that would escape the
// repository root.
func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, "/\\")
}

func containsNUL(data []byte) bool {
	for _, b := range data {
		if b == 0 {
			return true
		}
	}
	return false
}

func dedupe(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
