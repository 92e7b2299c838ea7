// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package server wires per-user component stacks and exposes them over
// the MCP protocol.
package server

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/synapse-labs/mindy/internal/assembler"
	"github.com/synapse-labs/mindy/internal/auth"
	"github.com/synapse-labs/mindy/internal/config"
	"github.com/synapse-labs/mindy/internal/database"
	"github.com/synapse-labs/mindy/internal/directives"
	"github.com/synapse-labs/mindy/internal/files"
	"github.com/synapse-labs/mindy/internal/generation"
	"github.com/synapse-labs/mindy/internal/intent"
	"github.com/synapse-labs/mindy/internal/kernel"
	"github.com/synapse-labs/mindy/internal/memory"
	"github.com/synapse-labs/mindy/internal/tools"
	"github.com/synapse-labs/mindy/internal/voice"
)

// MCPServer wraps the mcp-go server with our configuration. The shared
// server carries tools for exactly one user (stdio mode); concurrent
// multi-user callers get an isolated per-user server via SessionServer.
type MCPServer struct {
	mcpServer    *server.MCPServer
	config       *config.Config
	db           *gorm.DB
	tokenManager *auth.TokenManager
	generator    generation.Generator
	voice        voice.Capability
	logger       *zap.Logger

	sessionsMu sync.Mutex
	sessions   map[uint]*server.MCPServer
}

// NewMCPServer creates a new MCP server instance. The generation and
// voice capabilities are resolved once here and shared by every user
// session.
func NewMCPServer(cfg *config.Config, db *gorm.DB, logger *zap.Logger) (*MCPServer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	mcpServer := server.NewMCPServer(
		"Mindy",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	gen := generation.NewOpenAIGenerator(cfg.Generation)
	if !gen.Available() {
		logger.Warn("generation capability not configured; replies will degrade",
			zap.String("api_key_env", cfg.Generation.APIKeyEnv))
	}

	v := voice.Resolve(cfg.Voice)
	logger.Info("voice capability resolved", zap.Bool("enabled", v.Enabled()))

	return &MCPServer{
		mcpServer:    mcpServer,
		config:       cfg,
		db:           db,
		tokenManager: auth.NewTokenManager(db, cfg.Security.TokenTTL),
		generator:    gen,
		voice:        v,
		logger:       logger,
		sessions:     make(map[uint]*server.MCPServer),
	}, nil
}

// UserDataDir returns the per-user data root under storage.data_root
func (s *MCPServer) UserDataDir(username string) string {
	return filepath.Join(s.config.Storage.DataRoot, "users", username)
}

// BuildUserStack wires the full per-user component stack: stores,
// file repository, assembler and kernel, all scoped to the user's data
// directory.
func (s *MCPServer) BuildUserStack(user *database.MindyUser) (*tools.ToolContext, error) {
	userDir := s.UserDataDir(user.Username)

	notes := memory.NewStore(filepath.Join(userDir, "memory.json"))
	dirs := directives.NewStore(filepath.Join(userDir, "directives.json"))

	repo, err := files.NewRepository(s.db, user.ID, filepath.Join(userDir, "files"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file repository: %w", err)
	}

	resolver := intent.NewRuleResolver(s.config.Intent.Domains)
	asm := assembler.New(s.config.Context, notes, dirs, repo)
	k := kernel.New(resolver, asm, notes, dirs, s.generator, s.logger)

	return tools.NewToolContext(k, notes, dirs, repo, s.voice), nil
}

// RegisterToolsForUser binds all MCP tools to one user on the shared
// server. Only for single-user transports (stdio); multi-user callers
// must use SessionServer so handlers never get rebound across users.
func (s *MCPServer) RegisterToolsForUser(user *database.MindyUser) error {
	toolCtx, err := s.BuildUserStack(user)
	if err != nil {
		return err
	}
	registerTools(s.mcpServer, toolCtx)
	return nil
}

// SessionServer returns an MCP server whose tool handlers are bound to
// one user's component stack, created on first use and cached. Each
// user gets their own server so concurrent sessions stay isolated.
func (s *MCPServer) SessionServer(user *database.MindyUser) (*server.MCPServer, error) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()

	if srv, ok := s.sessions[user.ID]; ok {
		return srv, nil
	}

	toolCtx, err := s.BuildUserStack(user)
	if err != nil {
		return nil, err
	}

	srv := server.NewMCPServer(
		"Mindy",
		"1.0.0",
		server.WithToolCapabilities(true),
	)
	registerTools(srv, toolCtx)
	s.sessions[user.ID] = srv

	s.logger.Info("session created", zap.String("username", user.Username), zap.Uint("id", user.ID))
	return srv, nil
}

// registerTools adds every tool to the given server, bound to one
// user's ToolContext
func registerTools(srv *server.MCPServer, toolCtx *tools.ToolContext) {
	// Conversation
	srv.AddTool(tools.NewChatTool(), tools.ChatHandler(toolCtx))

	// Memory
	srv.AddTool(tools.NewMemoryAddTool(), tools.MemoryAddHandler(toolCtx))
	srv.AddTool(tools.NewMemoryListTool(), tools.MemoryListHandler(toolCtx))
	srv.AddTool(tools.NewMemoryRemoveTool(), tools.MemoryRemoveHandler(toolCtx))
	srv.AddTool(tools.NewMemoryClearTool(), tools.MemoryClearHandler(toolCtx))

	// Directives
	srv.AddTool(tools.NewDirectiveAddTool(), tools.DirectiveAddHandler(toolCtx))
	srv.AddTool(tools.NewDirectiveListTool(), tools.DirectiveListHandler(toolCtx))
	srv.AddTool(tools.NewDirectiveArchiveTool(), tools.DirectiveArchiveHandler(toolCtx))

	// Files and folders
	srv.AddTool(tools.NewFileUploadTool(), tools.FileUploadHandler(toolCtx))
	srv.AddTool(tools.NewFileListTool(), tools.FileListHandler(toolCtx))
	srv.AddTool(tools.NewFileMoveTool(), tools.FileMoveHandler(toolCtx))
	srv.AddTool(tools.NewFileTagsTool(), tools.FileTagsHandler(toolCtx))
	srv.AddTool(tools.NewFileDeleteTool(), tools.FileDeleteHandler(toolCtx))
	srv.AddTool(tools.NewFileContentTool(), tools.FileContentHandler(toolCtx))
	srv.AddTool(tools.NewFolderCreateTool(), tools.FolderCreateHandler(toolCtx))
	srv.AddTool(tools.NewFolderListTool(), tools.FolderListHandler(toolCtx))
	srv.AddTool(tools.NewFolderDeleteTool(), tools.FolderDeleteHandler(toolCtx))

	// Stats and voice
	srv.AddTool(tools.NewStatsTool(), tools.StatsHandler(toolCtx))
	srv.AddTool(tools.NewSpeakTool(), tools.SpeakHandler(toolCtx))
}

// GetMCPServer returns the underlying MCP server
func (s *MCPServer) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

// GetTokenManager returns the token manager
func (s *MCPServer) GetTokenManager() *auth.TokenManager {
	return s.tokenManager
}
