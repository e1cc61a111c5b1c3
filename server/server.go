// Package server exposes the memory store as MCP tools over stdio or SSE.
// Handlers never touch clients directly: every tool call goes through the
// pool's scoped acquisition, so a crashing handler can't leak a client.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"memgate/config"
	"memgate/memstore"
	"memgate/pool"
)

// Version is reported in the MCP initialize handshake.
const Version = "0.1.0"

// ClientKey identifies the server's shared memory client in the pool. The
// binary pins this key at startup so tool calls reuse a warm connection.
const ClientKey = "main_server"

// Server wires the MCP tool surface to a client pool.
type Server struct {
	pool *pool.Manager
	cfg  *config.Config
	mcp  *mcpserver.MCPServer
}

// New creates a server exposing save_memory, get_all_memories and
// search_memories.
func New(p *pool.Manager, cfg *config.Config) *Server {
	s := &Server{
		pool: p,
		cfg:  cfg,
	}

	m := mcpserver.NewMCPServer("memgate", Version,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithRecovery(),
	)
	m.AddTool(saveMemoryTool(), s.handleSaveMemory)
	m.AddTool(getAllMemoriesTool(), s.handleGetAllMemories)
	m.AddTool(searchMemoriesTool(), s.handleSearchMemories)
	s.mcp = m

	return s
}

// Run serves until ctx is cancelled (SSE) or stdin closes (stdio).
func (s *Server) Run(ctx context.Context) error {
	if s.cfg.Transport == config.TransportStdio {
		log.Printf("[SERVER] serving MCP over stdio")
		return mcpserver.ServeStdio(s.mcp)
	}

	sse := mcpserver.NewSSEServer(s.mcp)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/stats", s.handleStatsWS)
	mux.Handle("/", sse)

	httpServer := &http.Server{
		Addr:    s.cfg.Addr(),
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("[SERVER] shutdown: %v", err)
		}
	}()

	log.Printf("[SERVER] serving MCP over SSE on %s", httpServer.Addr)
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// withMemory runs fn against the pooled memory client, acquiring and
// releasing around the call.
func (s *Server) withMemory(ctx context.Context, fn func(ctx context.Context, mc memstore.Client) error) error {
	return s.pool.WithClient(ctx, ClientKey, func(ctx context.Context, c pool.Client) error {
		mc, ok := c.(memstore.Client)
		if !ok {
			return fmt.Errorf("pooled client %T is not a memory client", c)
		}
		return fn(ctx, mc)
	})
}

func toolError(action string, err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("error %s: %v", action, err))
}
