package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

// Transport selects how a tool server is reached.
type Transport string

const (
	TransportStdio Transport = "stdio"
	TransportSSE   Transport = "sse"
	TransportHTTP  Transport = "http"
)

// ServerConfig describes one tool server to connect at startup.
type ServerConfig struct {
	ID        string
	Transport Transport
	Command   string   // stdio
	Args      []string // stdio
	URL       string   // sse / http
}

// Connect establishes an MCP client session to the configured server.
func Connect(ctx context.Context, cfg ServerConfig) (Session, error) {
	client := mcp.NewClient(&mcp.Implementation{Name: "devops-pulse", Version: "0.1.0"}, nil)

	var transport mcp.Transport
	switch cfg.Transport {
	case TransportStdio:
		if cfg.Command == "" {
			return nil, fmt.Errorf("server %q: stdio transport requires a command", cfg.ID)
		}
		transport = &mcp.CommandTransport{Command: exec.Command(cfg.Command, cfg.Args...)}
	case TransportSSE:
		if cfg.URL == "" {
			return nil, fmt.Errorf("server %q: sse transport requires a url", cfg.ID)
		}
		transport = &mcp.SSEClientTransport{Endpoint: cfg.URL}
	case TransportHTTP:
		if cfg.URL == "" {
			return nil, fmt.Errorf("server %q: http transport requires a url", cfg.ID)
		}
		transport = &mcp.StreamableClientTransport{Endpoint: cfg.URL}
	default:
		return nil, fmt.Errorf("server %q: unknown transport %q", cfg.ID, cfg.Transport)
	}

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("connect to %q: %w", cfg.ID, err)
	}

	log.Info().Str("server", cfg.ID).Str("transport", string(cfg.Transport)).Msg("Connected to tool server")
	return &mcpSession{session: session}, nil
}

// mcpSession adapts an MCP ClientSession to the Session interface.
type mcpSession struct {
	session *mcp.ClientSession
}

func (s *mcpSession) ListTools(ctx context.Context) ([]Tool, error) {
	res, err := s.session.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		return nil, err
	}

	tools := make([]Tool, 0, len(res.Tools))
	for _, t := range res.Tools {
		tools = append(tools, Tool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: toSchema(t.InputSchema),
		})
	}
	return tools, nil
}

// toSchema converts the untyped input schema the SDK carries into a typed
// one. Schemas that fail to convert degrade to nil rather than failing the
// listing; a tool without a schema is still callable.
func toSchema(v any) *jsonschema.Schema {
	switch s := v.(type) {
	case nil:
		return nil
	case *jsonschema.Schema:
		return s
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var schema jsonschema.Schema
	if err := json.Unmarshal(raw, &schema); err != nil {
		log.Warn().Err(err).Msg("Discarding unparsable tool input schema")
		return nil
	}
	return &schema
}

func (s *mcpSession) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	res, err := s.session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return nil, err
	}
	if res.IsError {
		return nil, fmt.Errorf("tool %q reported an error: %s", name, firstText(res.Content))
	}

	// Preserve the wire shape: a list whose elements may carry a text field.
	// The normalize package owns structural interpretation.
	content := make([]any, 0, len(res.Content))
	for _, c := range res.Content {
		switch tc := c.(type) {
		case *mcp.TextContent:
			content = append(content, map[string]any{"type": "text", "text": tc.Text})
		default:
			content = append(content, c)
		}
	}
	return content, nil
}

func (s *mcpSession) Close() error {
	return s.session.Close()
}

func firstText(content []mcp.Content) string {
	for _, c := range content {
		if tc, ok := c.(*mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}
