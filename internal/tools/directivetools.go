// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// NewDirectiveAddTool creates the mindy_directive_add tool definition
func NewDirectiveAddTool() mcp.Tool {
	return mcp.NewTool("mindy_directive_add",
		mcp.WithDescription("Register a cognitive directive: a standing long-term focus that shapes every future reply until archived."),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("The standing goal, e.g. 'priorizar experimentos de ESG'"),
		),
		mcp.WithArray("domains",
			mcp.Description("Domains the directive applies to, e.g. [\"esg\"]"),
		),
	)
}

// DirectiveAddHandler handles the mindy_directive_add tool
func DirectiveAddHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := request.RequireString("text")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		domains := request.GetStringSlice("domains", []string{})

		d, err := ctx.Directives.Create(text, domains)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to create directive: %v", err)), nil
		}
		return toolResultJSON(d)
	}
}

// NewDirectiveListTool creates the mindy_directive_list tool definition
func NewDirectiveListTool() mcp.Tool {
	return mcp.NewTool("mindy_directive_list",
		mcp.WithDescription("List directives, most recent first. Active directives by default; set archived to include retired ones."),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of directives to return (0 = all)"),
		),
		mcp.WithBoolean("archived",
			mcp.Description("List archived directives instead of active ones"),
		),
	)
}

// DirectiveListHandler handles the mindy_directive_list tool
func DirectiveListHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := request.GetInt("limit", 0)
		if request.GetBool("archived", false) {
			return toolResultJSON(ctx.Directives.ListArchived(limit))
		}
		return toolResultJSON(ctx.Directives.List(limit))
	}
}

// NewDirectiveArchiveTool creates the mindy_directive_archive tool definition
func NewDirectiveArchiveTool() mcp.Tool {
	return mcp.NewTool("mindy_directive_archive",
		mcp.WithDescription("Archive a directive by id. Archived directives stop influencing replies but remain in the history."),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("The directive id to archive"),
		),
	)
}

// DirectiveArchiveHandler handles the mindy_directive_archive tool
func DirectiveArchiveHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := int64(request.GetInt("id", 0))
		if id <= 0 {
			return mcp.NewToolResultError("id must be a positive integer"), nil
		}

		d, ok, err := ctx.Directives.Archive(id)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to archive directive: %v", err)), nil
		}
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("directive %d not found or already archived", id)), nil
		}
		return toolResultJSON(d)
	}
}
