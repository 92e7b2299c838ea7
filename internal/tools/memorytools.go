// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/synapse-labs/mindy/internal/memory"
)

// NewMemoryAddTool creates the mindy_memory_add tool definition
func NewMemoryAddTool() mcp.Tool {
	return mcp.NewTool("mindy_memory_add",
		mcp.WithDescription("Store a note in Mindy's long-term memory. Notes are persisted immediately and survive restarts."),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("The fact or preference to remember"),
		),
		mcp.WithArray("tags",
			mcp.Description("Domain tags for retrieval, e.g. [\"esg\", \"ia\"]"),
		),
	)
}

// MemoryAddHandler handles the mindy_memory_add tool
func MemoryAddHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := request.RequireString("text")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		tags := request.GetStringSlice("tags", []string{})

		col, err := ctx.Notes.Add(text, memory.KindManual, tags, memory.SourceUser)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to store note: %v", err)), nil
		}

		added := col.Items[len(col.Items)-1]
		return toolResultJSON(added)
	}
}

// NewMemoryListTool creates the mindy_memory_list tool definition
func NewMemoryListTool() mcp.Tool {
	return mcp.NewTool("mindy_memory_list",
		mcp.WithDescription("List all notes in Mindy's memory, oldest first."),
	)
}

// MemoryListHandler handles the mindy_memory_list tool
func MemoryListHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return toolResultJSON(ctx.Notes.Load())
	}
}

// NewMemoryRemoveTool creates the mindy_memory_remove tool definition
func NewMemoryRemoveTool() mcp.Tool {
	return mcp.NewTool("mindy_memory_remove",
		mcp.WithDescription("Remove a single note from memory by its id."),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("The note id to remove"),
		),
	)
}

// MemoryRemoveHandler handles the mindy_memory_remove tool
func MemoryRemoveHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := int64(request.GetInt("id", 0))
		if id <= 0 {
			return mcp.NewToolResultError("id must be a positive integer"), nil
		}

		_, removed, err := ctx.Notes.Remove(id)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to remove note: %v", err)), nil
		}
		if !removed {
			return mcp.NewToolResultError(fmt.Sprintf("note %d not found", id)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Note %d removed", id)), nil
	}
}

// NewMemoryClearTool creates the mindy_memory_clear tool definition
func NewMemoryClearTool() mcp.Tool {
	return mcp.NewTool("mindy_memory_clear",
		mcp.WithDescription("Erase all notes from memory. This cannot be undone."),
	)
}

// MemoryClearHandler handles the mindy_memory_clear tool
func MemoryClearHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if _, err := ctx.Notes.Clear(); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to clear memory: %v", err)), nil
		}
		return mcp.NewToolResultText("Memory cleared"), nil
	}
}
