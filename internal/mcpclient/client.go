// Package mcpclient connects to an MCP tool server over streamable HTTP or
// a stdio subprocess and adapts the session to the agent's tool source.
package mcpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/flemzord/mcplab/internal/catalog"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/oauth2"
)

// ErrNoEndpoint is returned by Connect when neither URL nor Command is set.
var ErrNoEndpoint = errors.New("mcpclient: no server URL or command configured")

// ToolError is a failure reported by the tool itself (an isError result),
// as opposed to a transport failure. Its message is the tool's text.
type ToolError struct {
	Tool    string
	Message string
}

func (e *ToolError) Error() string {
	return e.Message
}

// Config selects and configures the transport.
type Config struct {
	// URL of a streamable HTTP endpoint. Ignored when Command is set.
	URL string
	// Command launches a stdio server: argv[0] plus arguments.
	Command []string

	// Token, if set, is sent as a bearer credential on every HTTP request.
	Token string
	// HTTPClient is the base client for HTTP transports.
	HTTPClient *http.Client
	// Timeout bounds each HTTP request. Zero means no bound.
	Timeout time.Duration

	ClientName    string
	ClientVersion string
	Logger        *slog.Logger
}

// Session is a connected MCP client session.
type Session struct {
	session *mcp.ClientSession
	logger  *slog.Logger
}

// Connect opens a session using cfg.
func Connect(ctx context.Context, cfg Config) (*Session, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "mcpclient")

	transport, err := newTransport(ctx, cfg)
	if err != nil {
		return nil, err
	}

	name := cfg.ClientName
	if name == "" {
		name = "mcplab"
	}
	version := cfg.ClientVersion
	if version == "" {
		version = "dev"
	}
	client := mcp.NewClient(&mcp.Implementation{Name: name, Version: version}, &mcp.ClientOptions{Logger: logger})

	cs, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("mcpclient: connect: %w", err)
	}
	if info := cs.InitializeResult(); info != nil && info.ServerInfo != nil {
		logger.Debug("connected", "server", info.ServerInfo.Name, "server_version", info.ServerInfo.Version)
	}
	return NewSession(cs, logger), nil
}

// NewSession wraps an already connected client session.
func NewSession(cs *mcp.ClientSession, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{session: cs, logger: logger}
}

func newTransport(ctx context.Context, cfg Config) (mcp.Transport, error) {
	if len(cfg.Command) > 0 {
		return &mcp.CommandTransport{Command: exec.Command(cfg.Command[0], cfg.Command[1:]...)}, nil
	}
	if cfg.URL == "" {
		return nil, ErrNoEndpoint
	}

	base := cfg.HTTPClient
	if base == nil {
		base = &http.Client{}
	}
	client := base
	if cfg.Token != "" {
		// oauth2.NewClient layers the bearer transport over the client
		// found in ctx.
		ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
		client = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: cfg.Token,
			TokenType:   "Bearer",
		}))
	}
	if cfg.Timeout > 0 {
		c := *client
		c.Timeout = cfg.Timeout
		client = &c
	}

	return &mcp.StreamableClientTransport{
		Endpoint:             cfg.URL,
		HTTPClient:           client,
		MaxRetries:           -1,
		DisableStandaloneSSE: true,
	}, nil
}

// ListTools returns the server's catalog in the order the server lists it.
func (s *Session) ListTools(ctx context.Context) ([]catalog.ToolDescriptor, error) {
	var tools []catalog.ToolDescriptor
	for tool, err := range s.session.Tools(ctx, nil) {
		if err != nil {
			return nil, fmt.Errorf("mcpclient: list tools: %w", err)
		}
		tools = append(tools, descriptor(tool))
	}
	return tools, nil
}

func descriptor(tool *mcp.Tool) catalog.ToolDescriptor {
	d := catalog.ToolDescriptor{Name: tool.Name, Description: tool.Description}
	if tool.InputSchema != nil {
		if raw, err := json.Marshal(tool.InputSchema); err == nil && string(raw) != "null" {
			d.InputSchema = raw
		}
	}
	return d
}

// CallTool invokes name with args. A tool-reported failure is returned as
// *ToolError; anything else is a transport or protocol failure.
func (s *Session) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	if args == nil {
		args = map[string]any{}
	}
	res, err := s.session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return nil, fmt.Errorf("mcpclient: call %s: %w", name, err)
	}
	return decodeResult(name, res)
}

// decodeResult turns a call result into plain data. Structured content is
// preferred; a lone "result" key is unwrapped since servers box scalar
// outputs that way. Text content that parses as JSON is decoded, any other
// text is returned as a string.
func decodeResult(name string, res *mcp.CallToolResult) (any, error) {
	text := textOf(res.Content)
	if res.IsError {
		if text == "" {
			text = "tool " + name + " failed"
		}
		return nil, &ToolError{Tool: name, Message: text}
	}

	if res.StructuredContent != nil {
		if m, ok := res.StructuredContent.(map[string]any); ok && len(m) == 1 {
			if v, ok := m["result"]; ok {
				return v, nil
			}
		}
		return res.StructuredContent, nil
	}

	var v any
	if err := json.Unmarshal([]byte(text), &v); err == nil {
		return v, nil
	}
	return text, nil
}

func textOf(content []mcp.Content) string {
	var parts []string
	for _, c := range content {
		if tc, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// Close ends the session and, for stdio servers, the subprocess.
func (s *Session) Close() error {
	return s.session.Close()
}
