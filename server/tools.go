package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"memgate/memstore"
)

func saveMemoryTool() mcp.Tool {
	return mcp.NewTool("save_memory",
		mcp.WithDescription("Save information to long-term memory. "+
			"The content is processed and indexed so it can be found later with semantic search."),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("The content to store in memory, including any relevant details and context"),
		),
	)
}

func getAllMemoriesTool() mcp.Tool {
	return mcp.NewTool("get_all_memories",
		mcp.WithDescription("Get all stored memories for the user. "+
			"Call this when you need complete context of everything previously remembered."),
	)
}

func searchMemoriesTool() mcp.Tool {
	return mcp.NewTool("search_memories",
		mcp.WithDescription("Search memories using semantic search. "+
			"Results are ranked by relevance, best first."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query describing what to look for"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results to return (default 3)"),
		),
	)
}

func (s *Server) handleSaveMemory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := stringArg(req, "text")
	if strings.TrimSpace(text) == "" {
		return mcp.NewToolResultError("missing required parameter: text"), nil
	}

	err := s.withMemory(ctx, func(ctx context.Context, mc memstore.Client) error {
		_, err := mc.Add(ctx, text, s.cfg.DefaultUserID)
		return err
	})
	if err != nil {
		return toolError("saving memory", err), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Successfully saved memory: %s", truncate(text, 100))), nil
}

func (s *Server) handleGetAllMemories(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var records []memstore.Record
	err := s.withMemory(ctx, func(ctx context.Context, mc memstore.Client) error {
		var err error
		records, err = mc.GetAll(ctx, s.cfg.DefaultUserID)
		return err
	})
	if err != nil {
		return toolError("retrieving memories", err), nil
	}

	return jsonResult(records)
}

func (s *Server) handleSearchMemories(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := stringArg(req, "query")
	if strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}
	limit := intArg(req, "limit", 3)

	var records []memstore.Record
	err := s.withMemory(ctx, func(ctx context.Context, mc memstore.Client) error {
		var err error
		records, err = mc.Search(ctx, query, s.cfg.DefaultUserID, limit)
		return err
	})
	if err != nil {
		return toolError("searching memories", err), nil
	}

	return jsonResult(records)
}

func jsonResult(records []memstore.Record) (*mcp.CallToolResult, error) {
	if records == nil {
		records = []memstore.Record{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return toolError("encoding memories", err), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func stringArg(req mcp.CallToolRequest, key string) string {
	v, _ := req.GetArguments()[key].(string)
	return v
}

// intArg extracts an integer argument, falling back when the key is missing
// or not a number (JSON numbers decode as float64).
func intArg(req mcp.CallToolRequest, key string, fallback int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return fallback
	}
	return int(v)
}

// truncate shortens text for tool responses.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
