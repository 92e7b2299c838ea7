// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package tools defines the MCP tool surface. Each tool pairs a
// NewXTool definition with an XHandler closure over the shared
// ToolContext.
package tools

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/synapse-labs/mindy/internal/directives"
	"github.com/synapse-labs/mindy/internal/files"
	"github.com/synapse-labs/mindy/internal/intent"
	"github.com/synapse-labs/mindy/internal/kernel"
	"github.com/synapse-labs/mindy/internal/memory"
	"github.com/synapse-labs/mindy/internal/voice"
)

// ToolContext holds shared dependencies for all tools. One context is
// built per authenticated user; the stores and repository inside it are
// already scoped to that user's data root.
type ToolContext struct {
	Kernel     *kernel.Kernel
	Notes      *memory.Store
	Directives *directives.Store
	Files      *files.Repository
	Voice      voice.Capability
}

// NewToolContext creates a tool context over a user's wired components
func NewToolContext(k *kernel.Kernel, notes *memory.Store, dirs *directives.Store, repo *files.Repository, v voice.Capability) *ToolContext {
	if v == nil {
		v = voice.Disabled{}
	}
	return &ToolContext{
		Kernel:     k,
		Notes:      notes,
		Directives: dirs,
		Files:      repo,
		Voice:      v,
	}
}

// parseHistory extracts the chat history array from the request
// arguments. Entries that are not {role, content} objects are skipped.
func parseHistory(request mcp.CallToolRequest) []intent.Turn {
	history := []intent.Turn{}

	args, ok := request.GetArguments()["history"]
	if !ok {
		return history
	}
	items, ok := args.([]interface{})
	if !ok {
		return history
	}

	for _, item := range items {
		turn, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		role, _ := turn["role"].(string)
		content, _ := turn["content"].(string)
		if role == "" || content == "" {
			continue
		}
		history = append(history, intent.Turn{Role: role, Content: content})
	}
	return history
}

// toolResultJSON marshals a payload as an MCP text result
func toolResultJSON(payload interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return mcp.NewToolResultError("failed to encode result: " + err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
