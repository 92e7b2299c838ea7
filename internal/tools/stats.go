// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// Stats summarizes the user's stored data
type Stats struct {
	NoteCount        int   `json:"note_count"`
	ActiveDirectives int   `json:"active_directives"`
	FileCount        int   `json:"file_count"`
	FolderCount      int   `json:"folder_count"`
	TotalFileBytes   int64 `json:"total_file_bytes"`
}

// NewStatsTool creates the mindy_stats tool definition
func NewStatsTool() mcp.Tool {
	return mcp.NewTool("mindy_stats",
		mcp.WithDescription("Report storage statistics: note count, active directives, file and folder counts and total file size."),
	)
}

// StatsHandler handles the mindy_stats tool
func StatsHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		fileCount, err := ctx.Files.TotalCount()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to count files: %v", err)), nil
		}
		folderCount, err := ctx.Files.FolderCount()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to count folders: %v", err)), nil
		}
		totalSize, err := ctx.Files.TotalSize()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to total file sizes: %v", err)), nil
		}

		stats := Stats{
			NoteCount:        len(ctx.Notes.Load().Items),
			ActiveDirectives: len(ctx.Directives.List(0)),
			FileCount:        fileCount,
			FolderCount:      folderCount,
			TotalFileBytes:   totalSize,
		}
		return toolResultJSON(stats)
	}
}
