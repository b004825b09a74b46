// Package status provides the get_server_status tool: a zero-dependency
// liveness probe the agent can call to confirm the tool surface is up.
package status

import (
	"context"
	"encoding/json"

	"github.com/poltergeist-ai/poltergeist/internal/tools"
)

// statusMessage is the fixed response body. Kept verbatim from the server's
// first release; agents key off its presence, not its content.
const statusMessage = "Poltergeist MCP Server is running and ready to haunt... I mean, help!"

// Tools returns the status toolset.
func Tools() []tools.Tool {
	return []tools.Tool{
		{
			Name:        "get_server_status",
			Description: "Returns the current status of the Poltergeist MCP server.",
			InputSchema: tools.ObjectSchema(nil),
			Handler: func(_ context.Context, _ json.RawMessage) *tools.Result {
				return tools.OK(statusMessage)
			},
		},
	}
}
