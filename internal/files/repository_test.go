// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package files

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synapse-labs/mindy/internal/config"
	"github.com/synapse-labs/mindy/internal/database"
	"gorm.io/gorm/logger"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()

	tempDir := t.TempDir()
	db, err := database.Connect(config.DatabaseConfig{
		Type:       "sqlite",
		SQLitePath: filepath.Join(tempDir, "index.db"),
	}, logger.Silent)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })

	user := &database.MindyUser{Username: "testuser", PasswordHash: "h", Salt: "s"}
	require.NoError(t, db.Create(user).Error)

	repo, err := NewRepository(db, user.ID, filepath.Join(tempDir, "files"))
	require.NoError(t, err)
	return repo
}

func TestNewRepository_CreatesDefaultFolder(t *testing.T) {
	repo := newTestRepo(t)

	folders, err := repo.Folders()
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultFolder}, folders)

	info, err := os.Stat(filepath.Join(repo.Root(), DefaultFolder))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestCreateFolder(t *testing.T) {
	repo := newTestRepo(t)

	assert.True(t, repo.CreateFolder("Projects"))
	assert.False(t, repo.CreateFolder("Projects"), "duplicate name must fail")
	assert.False(t, repo.CreateFolder("  "), "blank name must fail")
	assert.False(t, repo.CreateFolder(DefaultFolder), "reserved default name counts as existing")
	assert.False(t, repo.CreateFolder("../escape"), "path traversal must fail")

	folders, err := repo.Folders()
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultFolder, "Projects"}, folders)
}

func TestDeleteFolder_Default(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.Upload("keep.txt", []byte("content"), DefaultFolder)
	require.NoError(t, err)

	ok, err := repo.DeleteFolder(DefaultFolder)
	require.NoError(t, err)
	assert.False(t, ok)

	// Files untouched
	records, err := repo.ListFiles("")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestDeleteFolder_ReassignsFilesToDefault(t *testing.T) {
	repo := newTestRepo(t)
	require.True(t, repo.CreateFolder("Projects"))

	_, err := repo.Upload("a.txt", []byte("aaa"), "Projects")
	require.NoError(t, err)
	_, err = repo.Upload("b.txt", []byte("bbbb"), "Projects")
	require.NoError(t, err)

	before, err := repo.FolderCount()
	require.NoError(t, err)

	ok, err := repo.DeleteFolder("Projects")
	require.NoError(t, err)
	assert.True(t, ok)

	after, err := repo.FolderCount()
	require.NoError(t, err)
	assert.Equal(t, before-1, after)

	// All files survive, now in the default folder
	records, err := repo.ListFiles(DefaultFolder)
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, rec := range records {
		assert.Equal(t, DefaultFolder, rec.Folder)
	}

	// Bytes moved on disk too
	content, err := repo.GetFileContent("b.txt", 100)
	require.NoError(t, err)
	assert.Equal(t, "bbbb", content)
}

func TestDeleteFolder_NotFound(t *testing.T) {
	repo := newTestRepo(t)

	ok, err := repo.DeleteFolder("Missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpload_AndList(t *testing.T) {
	repo := newTestRepo(t)

	content := bytes.Repeat([]byte("x"), 500000)
	rec, err := repo.Upload("report.pdf", content, DefaultFolder)
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", rec.Filename)
	assert.Equal(t, DefaultFolder, rec.Folder)
	assert.Equal(t, int64(500000), rec.Size)

	records, err := repo.ListFiles("")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, DefaultFolder, records[0].Folder)
}

func TestUpload_OverwriteLastWriteWins(t *testing.T) {
	repo := newTestRepo(t)
	require.True(t, repo.CreateFolder("Projects"))

	_, err := repo.Upload("notes.txt", []byte("first version"), "Projects")
	require.NoError(t, err)
	require.True(t, repo.SetFileTags("notes.txt", []string{"draft"}))

	// Re-upload keeps the file in its current folder and overwrites content
	rec, err := repo.Upload("notes.txt", []byte("second version, longer"), DefaultFolder)
	require.NoError(t, err)
	assert.Equal(t, "Projects", rec.Folder)
	assert.Equal(t, int64(len("second version, longer")), rec.Size)
	assert.Equal(t, []string{"draft"}, rec.Tags)

	content, err := repo.GetFileContent("notes.txt", 1000)
	require.NoError(t, err)
	assert.Equal(t, "second version, longer", content)

	total, err := repo.TotalCount()
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestListFiles_SortedByFilename(t *testing.T) {
	repo := newTestRepo(t)

	for _, name := range []string{"zeta.txt", "alpha.txt", "mid.txt"} {
		_, err := repo.Upload(name, []byte("x"), DefaultFolder)
		require.NoError(t, err)
	}

	records, err := repo.ListFiles("")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "alpha.txt", records[0].Filename)
	assert.Equal(t, "mid.txt", records[1].Filename)
	assert.Equal(t, "zeta.txt", records[2].Filename)
}

func TestMoveFile(t *testing.T) {
	repo := newTestRepo(t)
	require.True(t, repo.CreateFolder("Projects"))

	content := bytes.Repeat([]byte("p"), 500000)
	_, err := repo.Upload("report.pdf", content, DefaultFolder)
	require.NoError(t, err)

	assert.True(t, repo.MoveFile("report.pdf", "Projects"))

	// Source folder no longer lists it
	inDefault, err := repo.ListFiles(DefaultFolder)
	require.NoError(t, err)
	assert.Empty(t, inDefault)

	// Target folder lists it with identical size
	inProjects, err := repo.ListFiles("Projects")
	require.NoError(t, err)
	require.Len(t, inProjects, 1)
	assert.Equal(t, "report.pdf", inProjects[0].Filename)
	assert.Equal(t, int64(500000), inProjects[0].Size)
}

func TestMoveFile_SameFolderIsNoOpSuccess(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Upload("doc.md", []byte("hello"), DefaultFolder)
	require.NoError(t, err)

	assert.True(t, repo.MoveFile("doc.md", DefaultFolder))

	records, err := repo.ListFiles(DefaultFolder)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, DefaultFolder, records[0].Folder)
	assert.Equal(t, int64(5), records[0].Size)
}

func TestMoveFile_Failures(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Upload("doc.md", []byte("hello"), DefaultFolder)
	require.NoError(t, err)

	assert.False(t, repo.MoveFile("missing.md", DefaultFolder))
	assert.False(t, repo.MoveFile("doc.md", "NoSuchFolder"))
}

func TestSetFileTags_Replace(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Upload("doc.md", []byte("hello"), DefaultFolder)
	require.NoError(t, err)

	require.True(t, repo.SetFileTags("doc.md", []string{"esg", "prioridade"}))

	records, err := repo.ListFiles("")
	require.NoError(t, err)
	assert.Equal(t, []string{"esg", "prioridade"}, records[0].Tags)

	// Replace semantics: the new list fully supersedes the old one
	require.True(t, repo.SetFileTags("doc.md", []string{"ia"}))
	records, err = repo.ListFiles("")
	require.NoError(t, err)
	assert.Equal(t, []string{"ia"}, records[0].Tags)

	// Duplicates and blanks are dropped
	require.True(t, repo.SetFileTags("doc.md", []string{"ia", "ia", " ", "esg"}))
	records, err = repo.ListFiles("")
	require.NoError(t, err)
	assert.Equal(t, []string{"ia", "esg"}, records[0].Tags)

	assert.False(t, repo.SetFileTags("missing.md", []string{"x"}))
}

func TestDeleteFile(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Upload("doc.md", []byte("hello"), DefaultFolder)
	require.NoError(t, err)

	assert.True(t, repo.DeleteFile("doc.md"))
	assert.False(t, repo.DeleteFile("doc.md"), "second delete must fail")

	_, err = repo.GetFileContent("doc.md", 100)
	assert.ErrorIs(t, err, ErrNotFound)

	// Bytes are gone
	_, err = os.Stat(filepath.Join(repo.Root(), DefaultFolder, "doc.md"))
	assert.True(t, os.IsNotExist(err))
}

func TestGetFileContent(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Upload("doc.txt", []byte("áéí content in utf-8"), DefaultFolder)
	require.NoError(t, err)

	// Prefix bounded by characters, not bytes
	content, err := repo.GetFileContent("doc.txt", 3)
	require.NoError(t, err)
	assert.Equal(t, "áéí", content)

	full, err := repo.GetFileContent("doc.txt", 1000)
	require.NoError(t, err)
	assert.Equal(t, "áéí content in utf-8", full)
}

func TestGetFileContent_NotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetFileContent("missing.txt", 1000)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetFileContent_Binary(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Upload("blob.bin", []byte{0x00, 0xff, 0x01, 0x02}, DefaultFolder)
	require.NoError(t, err)

	_, err = repo.GetFileContent("blob.bin", 1000)
	assert.ErrorIs(t, err, ErrBinaryContent)
}

func TestStats(t *testing.T) {
	repo := newTestRepo(t)
	require.True(t, repo.CreateFolder("Projects"))

	_, err := repo.Upload("a.txt", bytes.Repeat([]byte("a"), 100), DefaultFolder)
	require.NoError(t, err)
	_, err = repo.Upload("b.txt", bytes.Repeat([]byte("b"), 250), "Projects")
	require.NoError(t, err)

	size, err := repo.TotalSize()
	require.NoError(t, err)
	assert.Equal(t, int64(350), size)

	count, err := repo.TotalCount()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	folders, err := repo.FolderCount()
	require.NoError(t, err)
	assert.Equal(t, 2, folders)

	// Stats are recomputed, not cached
	require.True(t, repo.DeleteFile("b.txt"))
	size, err = repo.TotalSize()
	require.NoError(t, err)
	assert.Equal(t, int64(100), size)
}
