// Package tools defines the shared [Tool] type used by all Poltergeist tool
// packages and registers them with the MCP server. Each tool package exports
// a constructor returning a slice of [Tool] values ready for [Register].
//
// Handlers return a [Result] rather than a Go error: every failure is
// converted into a structured [Failure] body on an IsError tool result, so
// the host framework never sees a raw error or panic from a tool.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/poltergeist-ai/poltergeist/internal/observe"
)

// Tool represents a single named operation ready for registration with the
// MCP server.
type Tool struct {
	// Name is the unique tool name exposed to the agent host.
	Name string

	// Description is the agent-facing explanation of what the tool does.
	Description string

	// InputSchema is the hand-written JSON Schema for the tool arguments.
	InputSchema *jsonschema.Schema

	// Handler executes the tool with the raw JSON arguments. It must be safe
	// for concurrent use and must never panic past the tool boundary; panics
	// are recovered into an unexpected-failure Result.
	Handler func(ctx context.Context, args json.RawMessage) *Result
}

// Register adds every tool in ts to the MCP server. Each handler is wrapped
// so that its [Result] becomes a CallToolResult (IsError for failures) and
// its invocation is counted and timed via m. m may be nil in tests.
func Register(server *mcp.Server, m *observe.Metrics, ts ...Tool) {
	for _, t := range ts {
		tool := t
		mcp.AddTool(server,
			&mcp.Tool{
				Name:        tool.Name,
				Description: tool.Description,
				InputSchema: tool.InputSchema,
			},
			func(ctx context.Context, req *mcp.CallToolRequest, args json.RawMessage) (*mcp.CallToolResult, any, error) {
				start := time.Now()
				res := invoke(ctx, tool, args)
				duration := time.Since(start)

				if m != nil {
					m.RecordToolCall(ctx, tool.Name, res.Status())
					m.ToolDuration.Record(ctx, duration.Seconds())
				}
				if f := res.Failure(); f != nil {
					observe.Logger(ctx).Warn("tool failed",
						"tool", tool.Name,
						"kind", f.Kind,
						"error", f.Message,
						"duration", duration,
					)
				} else {
					observe.Logger(ctx).Debug("tool completed",
						"tool", tool.Name,
						"duration", duration,
					)
				}

				return toCallToolResult(res), nil, nil
			},
		)
	}
}

// invoke runs the tool handler with panic recovery. A recovered panic becomes
// a KindUnexpected failure; its message is the panic value's string form.
func invoke(ctx context.Context, t Tool, args json.RawMessage) (res *Result) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("tool handler panicked", "tool", t.Name, "panic", r)
			res = Failf(KindUnexpected, "an unexpected error occurred: %v", r)
		}
	}()
	return t.Handler(ctx, args)
}

// toCallToolResult converts a Result into the SDK result shape. The JSON body
// travels as a single text content block either way; failures additionally
// set IsError.
func toCallToolResult(res *Result) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: res.MarshalText()}},
		IsError: res.IsFailure(),
	}
}

// ParseArgs decodes raw JSON arguments into dst, returning an
// invalid-argument failure Result on malformed input and nil on success.
func ParseArgs(raw json.RawMessage, dst any) *Result {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return Fail(KindInvalidArgument, fmt.Sprintf("failed to parse arguments: %v", err), nil)
	}
	return nil
}
