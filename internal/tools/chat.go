// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// NewChatTool creates the mindy_chat tool definition
func NewChatTool() mcp.Tool {
	return mcp.NewTool("mindy_chat",
		mcp.WithDescription("Converse with Mindy. One call processes one turn: the message is classified, relevant notes, directives and selected files are assembled into context, and a reply is generated. Requests like 'lembre-se que ...' or 'nova diretriz: ...' are persisted as side effects."),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("The user's message for this turn"),
		),
		mcp.WithArray("history",
			mcp.Description("Prior conversation turns, oldest first. Array of objects: [{\"role\": \"user|assistant\", \"content\": \"...\"}]"),
		),
		mcp.WithArray("active_files",
			mcp.Description("Filenames the user has selected as context for this turn"),
		),
		mcp.WithNumber("temperature",
			mcp.Description("Sampling temperature for the reply (default 0.7)"),
		),
	)
}

// ChatHandler handles the mindy_chat tool
func ChatHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		message, err := request.RequireString("message")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		history := parseHistory(request)
		activeFiles := request.GetStringSlice("active_files", []string{})
		temperature := float32(request.GetFloat("temperature", 0.7))

		result := ctx.Kernel.Process(c, message, history, temperature, activeFiles)
		return toolResultJSON(result)
	}
}
