// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/synapse-labs/mindy/internal/files"
)

// NewFolderCreateTool creates the mindy_folder_create tool definition
func NewFolderCreateTool() mcp.Tool {
	return mcp.NewTool("mindy_folder_create",
		mcp.WithDescription("Create a new folder for organizing files."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("The folder name"),
		),
	)
}

// FolderCreateHandler handles the mindy_folder_create tool
func FolderCreateHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := request.RequireString("name")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		if !ctx.Files.CreateFolder(name) {
			return mcp.NewToolResultError(fmt.Sprintf("could not create folder '%s': invalid name or already exists", name)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Folder '%s' created", name)), nil
	}
}

// NewFolderListTool creates the mindy_folder_list tool definition
func NewFolderListTool() mcp.Tool {
	return mcp.NewTool("mindy_folder_list",
		mcp.WithDescription("List all folders. The default folder comes first."),
	)
}

// FolderListHandler handles the mindy_folder_list tool
func FolderListHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		folders, err := ctx.Files.Folders()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to list folders: %v", err)), nil
		}
		return toolResultJSON(folders)
	}
}

// NewFolderDeleteTool creates the mindy_folder_delete tool definition
func NewFolderDeleteTool() mcp.Tool {
	return mcp.NewTool("mindy_folder_delete",
		mcp.WithDescription(fmt.Sprintf("Delete a folder. Files inside it are moved to the '%s' folder, never deleted. The default folder itself cannot be removed.", files.DefaultFolder)),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("The folder to delete"),
		),
	)
}

// FolderDeleteHandler handles the mindy_folder_delete tool
func FolderDeleteHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := request.RequireString("name")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		ok, err := ctx.Files.DeleteFolder(name)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to delete folder: %v", err)), nil
		}
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("folder '%s' not found or cannot be deleted", name)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Folder '%s' deleted; its files were moved to '%s'", name, files.DefaultFolder)), nil
	}
}
