// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormlogger "gorm.io/gorm/logger"

	"github.com/synapse-labs/mindy/internal/assembler"
	"github.com/synapse-labs/mindy/internal/config"
	"github.com/synapse-labs/mindy/internal/database"
	"github.com/synapse-labs/mindy/internal/directives"
	"github.com/synapse-labs/mindy/internal/files"
	"github.com/synapse-labs/mindy/internal/generation"
	"github.com/synapse-labs/mindy/internal/intent"
	"github.com/synapse-labs/mindy/internal/kernel"
	"github.com/synapse-labs/mindy/internal/memory"
)

func setupToolContext(t *testing.T) *ToolContext {
	t.Helper()
	dir := t.TempDir()

	db, err := database.Connect(config.DatabaseConfig{
		Type:       "sqlite",
		SQLitePath: filepath.Join(dir, "test.db"),
	}, gormlogger.Silent)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	notes := memory.NewStore(filepath.Join(dir, "memory.json"))
	dirs := directives.NewStore(filepath.Join(dir, "directives.json"))
	repo, err := files.NewRepository(db, 1, filepath.Join(dir, "files"))
	require.NoError(t, err)

	cfg := config.ContextConfig{
		MaxHistoryTurns: 10,
		RecentNotes:     5,
		MaxNotes:        10,
		MaxDirectives:   10,
		PerFileChars:    1000,
		BudgetChars:     5000,
	}
	asm := assembler.New(cfg, notes, dirs, repo)
	k := kernel.New(intent.NewRuleResolver(nil), asm, notes, dirs,
		&generation.Static{Reply: "resposta de teste"}, nil)

	return NewToolContext(k, notes, dirs, repo, nil)
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	request := mcp.CallToolRequest{}
	request.Params.Arguments = args
	return request
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestChatHandler(t *testing.T) {
	ctx := setupToolContext(t)
	handler := ChatHandler(ctx)

	result, err := handler(context.Background(), callRequest(map[string]interface{}{
		"message": "Oi, tudo bem?",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Contains(t, resultText(t, result), "resposta de teste")
}

func TestChatHandler_MissingMessage(t *testing.T) {
	ctx := setupToolContext(t)
	handler := ChatHandler(ctx)

	result, err := handler(context.Background(), callRequest(map[string]interface{}{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestChatHandler_MemoryWriteSideEffect(t *testing.T) {
	ctx := setupToolContext(t)
	handler := ChatHandler(ctx)

	result, err := handler(context.Background(), callRequest(map[string]interface{}{
		"message": "Lembre-se que o prazo é sexta",
		"history": []interface{}{
			map[string]interface{}{"role": "user", "content": "oi"},
			map[string]interface{}{"role": "assistant", "content": "olá"},
		},
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	col := ctx.Notes.Load()
	require.Len(t, col.Items, 1)
	assert.Equal(t, "o prazo é sexta", col.Items[0].Text)
}

func TestMemoryHandlers_AddListRemoveClear(t *testing.T) {
	ctx := setupToolContext(t)

	result, err := MemoryAddHandler(ctx)(context.Background(), callRequest(map[string]interface{}{
		"text": "prefere respostas curtas",
		"tags": []interface{}{"estilo"},
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	result, err = MemoryListHandler(ctx)(context.Background(), callRequest(nil))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "prefere respostas curtas")

	result, err = MemoryRemoveHandler(ctx)(context.Background(), callRequest(map[string]interface{}{
		"id": float64(1),
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	result, err = MemoryRemoveHandler(ctx)(context.Background(), callRequest(map[string]interface{}{
		"id": float64(99),
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	_, err = MemoryAddHandler(ctx)(context.Background(), callRequest(map[string]interface{}{
		"text": "outra nota",
	}))
	require.NoError(t, err)

	result, err = MemoryClearHandler(ctx)(context.Background(), callRequest(nil))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Empty(t, ctx.Notes.Load().Items)
}

func TestDirectiveHandlers(t *testing.T) {
	ctx := setupToolContext(t)

	result, err := DirectiveAddHandler(ctx)(context.Background(), callRequest(map[string]interface{}{
		"text":    "priorizar esg",
		"domains": []interface{}{"esg"},
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	result, err = DirectiveListHandler(ctx)(context.Background(), callRequest(nil))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "priorizar esg")

	result, err = DirectiveArchiveHandler(ctx)(context.Background(), callRequest(map[string]interface{}{
		"id": float64(1),
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	// Second archive of the same directive fails
	result, err = DirectiveArchiveHandler(ctx)(context.Background(), callRequest(map[string]interface{}{
		"id": float64(1),
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = DirectiveListHandler(ctx)(context.Background(), callRequest(map[string]interface{}{
		"archived": true,
	}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "priorizar esg")
}

func TestFileHandlers_UploadListContentDelete(t *testing.T) {
	ctx := setupToolContext(t)

	result, err := FileUploadHandler(ctx)(context.Background(), callRequest(map[string]interface{}{
		"filename": "plano.txt",
		"content":  "metas do trimestre",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	result, err = FileListHandler(ctx)(context.Background(), callRequest(nil))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "plano.txt")

	result, err = FileContentHandler(ctx)(context.Background(), callRequest(map[string]interface{}{
		"filename": "plano.txt",
	}))
	require.NoError(t, err)
	assert.Equal(t, "metas do trimestre", resultText(t, result))

	result, err = FileDeleteHandler(ctx)(context.Background(), callRequest(map[string]interface{}{
		"filename": "plano.txt",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	result, err = FileContentHandler(ctx)(context.Background(), callRequest(map[string]interface{}{
		"filename": "plano.txt",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestFileUploadHandler_Base64(t *testing.T) {
	ctx := setupToolContext(t)

	// "olá" base64-encoded
	result, err := FileUploadHandler(ctx)(context.Background(), callRequest(map[string]interface{}{
		"filename": "saudacao.txt",
		"content":  "b2zDoQ==",
		"encoding": "base64",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	content, err := ctx.Files.GetFileContent("saudacao.txt", 0)
	require.NoError(t, err)
	assert.Equal(t, "olá", content)
}

func TestFolderHandlers(t *testing.T) {
	ctx := setupToolContext(t)

	result, err := FolderCreateHandler(ctx)(context.Background(), callRequest(map[string]interface{}{
		"name": "Projetos",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	// Duplicate fails
	result, err = FolderCreateHandler(ctx)(context.Background(), callRequest(map[string]interface{}{
		"name": "Projetos",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = FolderListHandler(ctx)(context.Background(), callRequest(nil))
	require.NoError(t, err)
	text := resultText(t, result)
	assert.Contains(t, text, files.DefaultFolder)
	assert.Contains(t, text, "Projetos")

	_, err = FileUploadHandler(ctx)(context.Background(), callRequest(map[string]interface{}{
		"filename": "plano.txt",
		"content":  "x",
		"folder":   "Projetos",
	}))
	require.NoError(t, err)

	result, err = FolderDeleteHandler(ctx)(context.Background(), callRequest(map[string]interface{}{
		"name": "Projetos",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	// The file survived in the default folder
	records, err := ctx.Files.ListFiles(files.DefaultFolder)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "plano.txt", records[0].Filename)
}

func TestFileMoveAndTagsHandlers(t *testing.T) {
	ctx := setupToolContext(t)

	_, err := FileUploadHandler(ctx)(context.Background(), callRequest(map[string]interface{}{
		"filename": "plano.txt",
		"content":  "x",
	}))
	require.NoError(t, err)
	_, err = FolderCreateHandler(ctx)(context.Background(), callRequest(map[string]interface{}{
		"name": "Projetos",
	}))
	require.NoError(t, err)

	result, err := FileMoveHandler(ctx)(context.Background(), callRequest(map[string]interface{}{
		"filename": "plano.txt",
		"folder":   "Projetos",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	result, err = FileTagsHandler(ctx)(context.Background(), callRequest(map[string]interface{}{
		"filename": "plano.txt",
		"tags":     []interface{}{"esg", "planejamento"},
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	records, err := ctx.Files.ListFiles("Projetos")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.ElementsMatch(t, []string{"esg", "planejamento"}, records[0].Tags)
}

func TestStatsHandler(t *testing.T) {
	ctx := setupToolContext(t)

	_, err := MemoryAddHandler(ctx)(context.Background(), callRequest(map[string]interface{}{
		"text": "uma nota",
	}))
	require.NoError(t, err)
	_, err = FileUploadHandler(ctx)(context.Background(), callRequest(map[string]interface{}{
		"filename": "a.txt",
		"content":  "abc",
	}))
	require.NoError(t, err)

	result, err := StatsHandler(ctx)(context.Background(), callRequest(nil))
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, "\"note_count\": 1")
	assert.Contains(t, text, "\"file_count\": 1")
	assert.Contains(t, text, "\"total_file_bytes\": 3")
}

func TestSpeakHandler_DisabledVoice(t *testing.T) {
	ctx := setupToolContext(t)

	result, err := SpeakHandler(ctx)(context.Background(), callRequest(map[string]interface{}{
		"text": "olá",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}
