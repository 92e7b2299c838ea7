// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/synapse-labs/mindy/internal/auth"
	"github.com/synapse-labs/mindy/internal/config"
	"github.com/synapse-labs/mindy/internal/database"
	"github.com/synapse-labs/mindy/internal/locking"
	"github.com/synapse-labs/mindy/internal/rebuild"
	"github.com/synapse-labs/mindy/internal/server"
	"github.com/synapse-labs/mindy/pkg/scheduler"
)

// Version is set at build time via ldflags
var Version string

func main() {
	httpMode := flag.Bool("http", false, "Run in HTTP server mode (default: stdio for MCP)")
	username := flag.String("user", "", "Username for stdio mode (default: MINDY_USER env var, then 'admin')")
	rebuildIndex := flag.String("rebuild-index", "", "Rebuild a user's file index from disk and exit")
	forceRebuild := flag.Bool("force", false, "Overwrite existing index rows (requires --rebuild-index)")
	configPath := flag.String("config", "", "Path to config file")
	dbType := flag.String("db-type", "", "Database type (sqlite or postgres)")
	dbPath := flag.String("db-path", "", "Database path (for sqlite)")
	dbDSN := flag.String("db-dsn", "", "Database DSN (for postgres)")
	port := flag.Int("port", 0, "Server port (HTTP mode only)")
	verbose := flag.Bool("verbose", false, "Enable debug logging")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Mindy MCP Server\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Server Mode:\n")
		fmt.Fprintf(os.Stderr, "  %s                 Start MCP server (stdio) for the default user\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --user alice    Start MCP server (stdio) for a specific user\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --http          Start HTTP server with token authentication\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nIndex Rebuild:\n")
		fmt.Fprintf(os.Stderr, "  %s --rebuild-index <user>           Rebuild the file index from disk\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --rebuild-index <user> --force   Rebuild and overwrite existing rows\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  DB_TYPE           Database type (sqlite or postgres)\n")
		fmt.Fprintf(os.Stderr, "  DB_PATH           SQLite database path\n")
		fmt.Fprintf(os.Stderr, "  DB_DSN            PostgreSQL connection string\n")
		fmt.Fprintf(os.Stderr, "  PORT              Server port (HTTP mode only)\n")
		fmt.Fprintf(os.Stderr, "  MINDY_USER        Username for stdio mode\n")
		fmt.Fprintf(os.Stderr, "  OPENAI_API_KEY    API key for text generation and speech synthesis\n")
	}

	flag.Parse()

	if *forceRebuild && *rebuildIndex == "" {
		fmt.Fprintln(os.Stderr, "ERROR: --force can only be used with --rebuild-index")
		os.Exit(1)
	}
	if *rebuildIndex != "" && *httpMode {
		fmt.Fprintln(os.Stderr, "ERROR: --rebuild-index and --http cannot be used together")
		os.Exit(1)
	}

	// MCP servers must only write JSON-RPC to stdout; all logging goes
	// to stderr
	logger := newLogger(*verbose)
	defer func() { _ = logger.Sync() }()

	logger.Info("starting Mindy MCP server", zap.String("version", Version))

	cfg := loadConfig(*configPath, logger)
	applyEnvOverrides(cfg, logger)
	applyCLIOverrides(cfg, *dbType, *dbPath, *dbDSN, *port, logger)

	// Keep GORM off stdout for MCP
	db, err := database.Connect(cfg.Database, gormlogger.Silent)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() { _ = database.Close(db) }()

	logger.Info("connected to database", zap.String("type", cfg.Database.Type))

	if err := database.Migrate(db); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	if err := locking.MigrateLocks(db); err != nil {
		logger.Fatal("failed to migrate session locks", zap.Error(err))
	}
	if err := database.CreateIndexes(db); err != nil {
		logger.Warn("failed to create indexes", zap.Error(err))
	}

	authenticator := auth.NewAuthenticator(db)
	if _, err := authenticator.SetupDefaultUser(); err != nil {
		logger.Fatal("failed to set up default user", zap.Error(err))
	}

	if *rebuildIndex != "" {
		runRebuildIndexMode(cfg, db, authenticator, *rebuildIndex, *forceRebuild, logger)
		return
	}

	mcpSrv, err := server.NewMCPServer(cfg, db, logger)
	if err != nil {
		logger.Fatal("failed to create MCP server", zap.Error(err))
	}

	if *httpMode {
		logger.Info("running in HTTP server mode")
		runHTTPMode(cfg, db, mcpSrv, logger)
	} else {
		logger.Info("running in stdio mode")
		runStdioMode(cfg, db, mcpSrv, authenticator, *username, logger)
	}
}

// runRebuildIndexMode rebuilds one user's file index from disk and exits
func runRebuildIndexMode(cfg *config.Config, db *gorm.DB, authenticator *auth.Authenticator, username string, force bool, logger *zap.Logger) {
	user, err := authenticator.FindUser(username)
	if err != nil {
		logger.Fatal("user not found", zap.String("username", username), zap.Error(err))
	}

	filesRoot := filepath.Join(cfg.Storage.DataRoot, "users", user.Username, "files")
	logger.Info("rebuilding file index", zap.String("username", user.Username), zap.String("root", filesRoot))

	result, err := rebuild.RebuildFileIndex(db, user.ID, filesRoot, rebuild.Options{Force: force})
	if err != nil {
		logger.Fatal("rebuild failed", zap.Error(err))
	}

	logger.Info("rebuild completed",
		zap.Int("folders_indexed", result.FoldersIndexed),
		zap.Int("files_indexed", result.FilesIndexed),
		zap.Int("files_skipped", result.FilesSkipped))
	for _, e := range result.Errors {
		logger.Warn("rebuild warning", zap.String("detail", e))
	}
}

// newLogger builds the process logger, writing to stderr only
func newLogger(verbose bool) *zap.Logger {
	zapCfg := zap.NewProductionConfig()
	zapCfg.OutputPaths = []string{"stderr"}
	zapCfg.ErrorOutputPaths = []string{"stderr"}
	if verbose {
		zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := zapCfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

// loadConfig loads configuration from the given path, the default
// location, or built-in defaults, in that order
func loadConfig(configPath string, logger *zap.Logger) *config.Config {
	if configPath != "" {
		cfg, err := config.LoadFromPath(configPath)
		if err != nil {
			logger.Warn("failed to load config, using defaults",
				zap.String("path", configPath), zap.Error(err))
			return config.DefaultConfig()
		}
		logger.Info("loaded configuration", zap.String("path", configPath))
		return cfg
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Warn("failed to load default config, using built-in defaults", zap.Error(err))
		return config.DefaultConfig()
	}
	return cfg
}

// applyEnvOverrides applies environment variable overrides to configuration
func applyEnvOverrides(cfg *config.Config, logger *zap.Logger) {
	if dbType := getEnv("DB_TYPE", "MINDY_DB_TYPE"); dbType != "" {
		cfg.Database.Type = dbType
		logger.Info("database type from env", zap.String("type", dbType))
	}
	if dbPath := getEnv("DB_PATH", "MINDY_DB_PATH"); dbPath != "" {
		cfg.Database.SQLitePath = dbPath
	}
	if dbDSN := getEnv("DB_DSN", "MINDY_DB_DSN"); dbDSN != "" {
		cfg.Database.PostgresDSN = dbDSN
	}
	if portStr := getEnv("PORT", "MINDY_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			cfg.Server.Port = port
		}
	}
}

// applyCLIOverrides applies command-line flag overrides to configuration
func applyCLIOverrides(cfg *config.Config, dbType, dbPath, dbDSN string, port int, logger *zap.Logger) {
	if dbType != "" {
		cfg.Database.Type = dbType
		logger.Info("database type from CLI", zap.String("type", dbType))
	}
	if dbPath != "" {
		cfg.Database.SQLitePath = dbPath
	}
	if dbDSN != "" {
		cfg.Database.PostgresDSN = dbDSN
	}
	if port > 0 {
		cfg.Server.Port = port
	}
}

// getEnv tries multiple environment variable names and returns the
// first non-empty value
func getEnv(names ...string) string {
	for _, name := range names {
		if val := os.Getenv(name); val != "" {
			return val
		}
	}
	return ""
}

// runStdioMode serves the MCP protocol on stdin/stdout for one user
func runStdioMode(cfg *config.Config, db *gorm.DB, mcpSrv *server.MCPServer, authenticator *auth.Authenticator, username string, logger *zap.Logger) {
	if username == "" {
		username = os.Getenv("MINDY_USER")
	}
	if username == "" {
		username = "admin"
	}

	user, err := authenticator.FindUser(username)
	if err != nil {
		logger.Fatal("user not found; register it first or use the default 'admin' user",
			zap.String("username", username), zap.Error(err))
	}

	// The stdio process is one caller session; the session object owns
	// the authenticated user for its lifetime
	session := auth.NewSession()
	session.Login(user)
	defer session.Logout()

	logger.Info("serving user", zap.String("username", session.Username()), zap.Uint("id", user.ID))

	// Hold the session lease for the whole process lifetime; a second
	// server on the same user would corrupt the JSON stores
	locker := locking.NewLocker(db)
	ownerID := leaseOwnerID()
	acquired, err := locker.Acquire(session.Username(), ownerID)
	if err != nil {
		logger.Fatal("failed to acquire session lease", zap.Error(err))
	}
	if !acquired {
		_, holder, _ := locker.IsLocked(session.Username())
		logger.Fatal("user session is already served by another process",
			zap.String("username", session.Username()), zap.String("held_by", holder))
	}
	defer func() { _ = locker.Release(session.Username(), ownerID) }()
	go keepLeaseAlive(locker, session.Username(), ownerID, logger)

	if err := mcpSrv.RegisterToolsForUser(session.User()); err != nil {
		logger.Fatal("failed to register tools", zap.Error(err))
	}

	logger.Info("MCP server ready (stdio mode)")

	if err := mcpserver.ServeStdio(mcpSrv.GetMCPServer()); err != nil {
		logger.Fatal("MCP server error", zap.Error(err))
	}
}

// keepLeaseAlive renews the session lease at half its TTL
func keepLeaseAlive(locker *locking.Locker, username, ownerID string, logger *zap.Logger) {
	ticker := time.NewTicker(locking.DefaultLeaseTTL / 2)
	defer ticker.Stop()
	for range ticker.C {
		if err := locker.Extend(username, ownerID); err != nil {
			logger.Warn("failed to extend session lease", zap.Error(err))
		}
	}
}

// leaseOwnerID identifies this process for session leases
func leaseOwnerID() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("%s:%d", hostname, os.Getpid())
}

// runHTTPMode serves authentication routes and the MCP endpoint over HTTP
func runHTTPMode(cfg *config.Config, db *gorm.DB, mcpSrv *server.MCPServer, logger *zap.Logger) {
	httpServer := server.NewHTTPServer(mcpSrv, logger)

	mux := http.NewServeMux()
	httpServer.RegisterRoutes(mux)

	sched := scheduler.NewScheduler(db, mcpSrv.GetTokenManager(), cfg.Server.MaintenanceInterval, logger)
	sched.Start()
	defer sched.Stop()
	logger.Info("maintenance scheduler started",
		zap.Int("interval_minutes", cfg.Server.MaintenanceInterval))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("HTTP server starting", zap.String("addr", addr))

	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}
