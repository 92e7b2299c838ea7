// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/synapse-labs/mindy/internal/files"
)

// NewFileUploadTool creates the mindy_file_upload tool definition
func NewFileUploadTool() mcp.Tool {
	return mcp.NewTool("mindy_file_upload",
		mcp.WithDescription("Store a file in Mindy's repository. Uploading an existing filename replaces its content in place, keeping its current folder and tags."),
		mcp.WithString("filename",
			mcp.Required(),
			mcp.Description("The file name, e.g. 'report.pdf'"),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("The file content. Plain text, or base64 when encoding is 'base64'."),
		),
		mcp.WithString("encoding",
			mcp.Description("'text' (default) or 'base64' for binary content"),
		),
		mcp.WithString("folder",
			mcp.Description("Destination folder for new files (default 'Geral')"),
		),
	)
}

// FileUploadHandler handles the mindy_file_upload tool
func FileUploadHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		filename, err := request.RequireString("filename")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		rawContent, err := request.RequireString("content")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		content := []byte(rawContent)
		if request.GetString("encoding", "text") == "base64" {
			content, err = base64.StdEncoding.DecodeString(rawContent)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("invalid base64 content: %v", err)), nil
			}
		}

		folder := request.GetString("folder", files.DefaultFolder)
		record, err := ctx.Files.Upload(filename, content, folder)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("upload failed: %v", err)), nil
		}
		return toolResultJSON(record)
	}
}

// NewFileListTool creates the mindy_file_list tool definition
func NewFileListTool() mcp.Tool {
	return mcp.NewTool("mindy_file_list",
		mcp.WithDescription("List stored files sorted by name. Scope to one folder with the folder parameter."),
		mcp.WithString("folder",
			mcp.Description("Only list files in this folder"),
		),
	)
}

// FileListHandler handles the mindy_file_list tool
func FileListHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		folder := request.GetString("folder", "")
		records, err := ctx.Files.ListFiles(folder)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to list files: %v", err)), nil
		}
		return toolResultJSON(records)
	}
}

// NewFileMoveTool creates the mindy_file_move tool definition
func NewFileMoveTool() mcp.Tool {
	return mcp.NewTool("mindy_file_move",
		mcp.WithDescription("Move a file to another folder."),
		mcp.WithString("filename",
			mcp.Required(),
			mcp.Description("The file to move"),
		),
		mcp.WithString("folder",
			mcp.Required(),
			mcp.Description("The destination folder"),
		),
	)
}

// FileMoveHandler handles the mindy_file_move tool
func FileMoveHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		filename, err := request.RequireString("filename")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		folder, err := request.RequireString("folder")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		if !ctx.Files.MoveFile(filename, folder) {
			return mcp.NewToolResultError(fmt.Sprintf("could not move '%s' to '%s': file or folder not found", filename, folder)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Moved '%s' to '%s'", filename, folder)), nil
	}
}

// NewFileTagsTool creates the mindy_file_tags tool definition
func NewFileTagsTool() mcp.Tool {
	return mcp.NewTool("mindy_file_tags",
		mcp.WithDescription("Replace a file's tags. An empty array clears all tags."),
		mcp.WithString("filename",
			mcp.Required(),
			mcp.Description("The file to tag"),
		),
		mcp.WithArray("tags",
			mcp.Description("The complete new tag set"),
		),
	)
}

// FileTagsHandler handles the mindy_file_tags tool
func FileTagsHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		filename, err := request.RequireString("filename")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		tags := request.GetStringSlice("tags", []string{})

		if !ctx.Files.SetFileTags(filename, tags) {
			return mcp.NewToolResultError(fmt.Sprintf("file '%s' not found", filename)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Tags updated for '%s'", filename)), nil
	}
}

// NewFileDeleteTool creates the mindy_file_delete tool definition
func NewFileDeleteTool() mcp.Tool {
	return mcp.NewTool("mindy_file_delete",
		mcp.WithDescription("Delete a file permanently."),
		mcp.WithString("filename",
			mcp.Required(),
			mcp.Description("The file to delete"),
		),
	)
}

// FileDeleteHandler handles the mindy_file_delete tool
func FileDeleteHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		filename, err := request.RequireString("filename")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		if !ctx.Files.DeleteFile(filename) {
			return mcp.NewToolResultError(fmt.Sprintf("file '%s' not found", filename)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Deleted '%s'", filename)), nil
	}
}

// NewFileContentTool creates the mindy_file_content tool definition
func NewFileContentTool() mcp.Tool {
	return mcp.NewTool("mindy_file_content",
		mcp.WithDescription("Read a stored file's text content, bounded to max_chars characters."),
		mcp.WithString("filename",
			mcp.Required(),
			mcp.Description("The file to read"),
		),
		mcp.WithNumber("max_chars",
			mcp.Description("Maximum characters to return (0 = whole file)"),
		),
	)
}

// FileContentHandler handles the mindy_file_content tool
func FileContentHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		filename, err := request.RequireString("filename")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		maxChars := request.GetInt("max_chars", 0)

		content, err := ctx.Files.GetFileContent(filename, maxChars)
		if err != nil {
			switch {
			case errors.Is(err, files.ErrNotFound):
				return mcp.NewToolResultError(fmt.Sprintf("file '%s' not found", filename)), nil
			case errors.Is(err, files.ErrBinaryContent):
				return mcp.NewToolResultError(fmt.Sprintf("file '%s' is binary and cannot be returned as text", filename)), nil
			default:
				return mcp.NewToolResultError(fmt.Sprintf("failed to read file: %v", err)), nil
			}
		}
		return mcp.NewToolResultText(content), nil
	}
}
