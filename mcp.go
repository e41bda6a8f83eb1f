package hydrate

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/hydrate/kit"
)

// RegisterMCP registers the hydrate tools on an MCP server.
func (d *Decoder) RegisterMCP(srv *mcp.Server) {
	d.registerDecodeTool(srv)
	d.registerLocateTool(srv)
	d.registerModeTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func (d *Decoder) withRequestID(ctx context.Context) context.Context {
	return kit.WithRequestID(ctx, d.ids())
}

// --- decode ---

func (d *Decoder) registerDecodeTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "hydrate_decode",
		Description: "Extract the hydration payload from a rendered HTML page and return the decoded state as JSON.",
		InputSchema: inputSchema(map[string]any{
			"html": map[string]any{"type": "string", "description": "Full HTML document"},
		}, []string{"html"}),
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r decodeReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r, EnrichCtx: d.withRequestID}, nil
	}

	kit.RegisterMCPTool(srv, tool, d.decodeEndpoint(), decode)
}

// --- locate ---

func (d *Decoder) registerLocateTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "hydrate_locate",
		Description: "Find the hydration payload element(s) in an HTML page without decoding them.",
		InputSchema: inputSchema(map[string]any{
			"html": map[string]any{"type": "string", "description": "Full HTML document"},
			"all":  map[string]any{"type": "boolean", "description": "Return every matching element, not just the first"},
		}, []string{"html"}),
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r locateReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r, EnrichCtx: d.withRequestID}, nil
	}

	kit.RegisterMCPTool(srv, tool, d.locateEndpoint(), decode)
}

// --- mode ---

func (d *Decoder) registerModeTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "hydrate_mode",
		Description: "Report the configured payload mode (js or json) and the registered reviver tags.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(_ context.Context, _ any) (any, error) {
		return map[string]any{
			"mode":     d.cfg.Mode,
			"revivers": d.reg.Names(),
		}, nil
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
