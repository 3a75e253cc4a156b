package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/failmem-mcp/internal/embedder"
	"github.com/dshills/failmem-mcp/internal/recorder"
	"github.com/dshills/failmem-mcp/internal/retriever"
	"github.com/dshills/failmem-mcp/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "failmem-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.1.0"
	// EnvDBPath overrides the default database location
	EnvDBPath = "FAILMEM_DB_PATH"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp       *server.MCPServer
	store     storage.Store
	recorder  *recorder.Recorder
	retriever *retriever.Retriever
}

// NewServer creates a new MCP server instance. An empty dbPath falls back
// to FAILMEM_DB_PATH, then to ~/.failmem/failmem.db.
func NewServer(dbPath string) (*Server, error) {
	if dbPath == "" {
		dbPath = os.Getenv(EnvDBPath)
	}
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".failmem", "failmem.db")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	emb, err := embedder.NewFromEnv()
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:       mcpServer,
		store:     store,
		recorder:  recorder.New(store, emb),
		retriever: retriever.New(store, emb),
	}

	s.registerTools()
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.store.Close() }()
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(captureErrorTool(), s.handleCaptureError)
	s.mcp.AddTool(captureSolutionTool(), s.handleCaptureSolution)
	s.mcp.AddTool(reportOutcomeTool(), s.handleReportOutcome)
	s.mcp.AddTool(findSimilarTool(), s.handleFindSimilar)
	s.mcp.AddTool(findByTagsTool(), s.handleFindByTags)
	s.mcp.AddTool(getRelevantContextTool(), s.handleGetRelevantContext)
	s.mcp.AddTool(getStatsTool(), s.handleGetStats)
}
