// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package server

import (
	"encoding/json"
	"net/http"
	"sync"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/synapse-labs/mindy/internal/auth"
	"github.com/synapse-labs/mindy/internal/database"
)

// HTTPServer exposes authentication routes and the MCP endpoint over
// HTTP. Every authenticated user gets their own MCP transport so
// concurrent sessions never share tool handlers.
type HTTPServer struct {
	mcpServer      *MCPServer
	authenticator  *auth.Authenticator
	authMiddleware *auth.Middleware
	logger         *zap.Logger

	transportsMu sync.Mutex
	transports   map[uint]*mcpserver.StreamableHTTPServer
}

// NewHTTPServer creates a new HTTP server over the MCP server
func NewHTTPServer(mcpServer *MCPServer, logger *zap.Logger) *HTTPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPServer{
		mcpServer:      mcpServer,
		authenticator:  auth.NewAuthenticator(mcpServer.db),
		authMiddleware: auth.NewMiddleware(mcpServer.GetTokenManager()),
		transports:     make(map[uint]*mcpserver.StreamableHTTPServer),
		logger:         logger,
	}
}

// RegisterRoutes registers all HTTP routes
func (h *HTTPServer) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/auth/login", h.HandleLogin)
	mux.HandleFunc("/auth/register", h.HandleRegister)
	mux.HandleFunc("/auth/logout", h.HandleLogout)

	// MCP endpoint (protected)
	mux.Handle("/mcp", h.authMiddleware.RequireAuth(http.HandlerFunc(h.HandleMCP)))
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// HandleLogin authenticates a user and issues an access token
func (h *HTTPServer) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, ok := h.authenticator.Authenticate(req.Username, req.Password)
	if !ok {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := h.mcpServer.GetTokenManager().GenerateToken(user.ID)
	if err != nil {
		h.logger.Error("failed to generate token", zap.Error(err))
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	h.logger.Info("user logged in", zap.String("username", user.Username))

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"token":    token.AccessToken,
		"username": user.Username,
	})
}

// HandleRegister creates a new user account
func (h *HTTPServer) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.authenticator.Register(req.Username, req.Password, req.FullName, req.Email)
	if err != nil {
		http.Error(w, "Registration failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	h.logger.Info("user registered", zap.String("username", user.Username))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"username": user.Username,
	})
}

// HandleLogout revokes the caller's access token
func (h *HTTPServer) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	token := auth.ExtractToken(r)
	if token == "" {
		http.Error(w, "Missing token", http.StatusBadRequest)
		return
	}

	if err := h.mcpServer.GetTokenManager().RevokeToken(token); err != nil {
		http.Error(w, "Failed to revoke token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "logged_out"})
}

// HandleMCP forwards the request to the authenticated user's own MCP
// transport, creating it on first use
func (h *HTTPServer) HandleMCP(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var user database.MindyUser
	if err := h.mcpServer.db.First(&user, userID).Error; err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	transport, err := h.transportFor(&user)
	if err != nil {
		h.logger.Error("failed to build user session", zap.Error(err), zap.String("username", user.Username))
		http.Error(w, "Failed to build user session", http.StatusInternalServerError)
		return
	}

	transport.ServeHTTP(w, r)
}

// transportFor returns the cached streamable transport over the user's
// session server, creating both on first use
func (h *HTTPServer) transportFor(user *database.MindyUser) (*mcpserver.StreamableHTTPServer, error) {
	h.transportsMu.Lock()
	defer h.transportsMu.Unlock()

	if transport, ok := h.transports[user.ID]; ok {
		return transport, nil
	}

	sessionSrv, err := h.mcpServer.SessionServer(user)
	if err != nil {
		return nil, err
	}

	transport := mcpserver.NewStreamableHTTPServer(
		sessionSrv,
		mcpserver.WithEndpointPath("/mcp"),
	)
	h.transports[user.ID] = transport
	return transport, nil
}
