// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// NewSpeakTool creates the mindy_speak tool definition
func NewSpeakTool() mcp.Tool {
	return mcp.NewTool("mindy_speak",
		mcp.WithDescription("Synthesize text to speech. Returns base64-encoded MP3 audio. Only available when the voice capability is enabled."),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("The text to speak"),
		),
	)
}

// SpeakHandler handles the mindy_speak tool
func SpeakHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := request.RequireString("text")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		if !ctx.Voice.Enabled() {
			return mcp.NewToolResultError("voice capability is not enabled for this session"), nil
		}

		audio, err := ctx.Voice.Synthesize(c, text)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("synthesis failed: %v", err)), nil
		}
		return mcp.NewToolResultText(base64.StdEncoding.EncodeToString(audio)), nil
	}
}
