package app

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/flemzord/mcplab/internal/claims/claimstest"
	"github.com/flemzord/mcplab/internal/security"
	"github.com/flemzord/mcplab/internal/toolserver"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// labServer serves the lab toolsets over streamable HTTP and records the
// Authorization header of every request.
type labServer struct {
	URL string

	mu      sync.Mutex
	headers []string
}

func newLabServer(t *testing.T) *labServer {
	t.Helper()

	server, err := toolserver.New(toolserver.Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	if err != nil {
		t.Fatalf("toolserver.New: %v", err)
	}
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return server },
		&mcp.StreamableHTTPOptions{Stateless: true, JSONResponse: true})

	ls := &labServer{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ls.mu.Lock()
		ls.headers = append(ls.headers, r.Header.Get("Authorization"))
		ls.mu.Unlock()
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(ts.Close)
	ls.URL = ts.URL
	return ls
}

func (s *labServer) authorizations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.headers...)
}

// newTokenEndpoint answers password grants for alice/secret-pw with idToken.
func newTokenEndpoint(t *testing.T, idToken string) string {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("username") != "alice" || r.PostForm.Get("password") != "secret-pw" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid user credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"opaque-access","token_type":"Bearer","expires_in":300,"id_token":"` + idToken + `"}`))
	}))
	t.Cleanup(ts.Close)
	return ts.URL
}

func TestListTools(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	env := newTestEnv(t, &out)
	env.Config.MCP.URL = newLabServer(t).URL

	if err := ListTools(context.Background(), env, ToolsParams{Schemas: true}); err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	listing := out.String()
	for _, name := range []string{"echo", "add", "now_iso", "multiply", "greet", "whoami", "admin_only_demo", "hello"} {
		if !strings.Contains(listing, name) {
			t.Errorf("expected %s in listing, got %q", name, listing)
		}
	}
	if !strings.Contains(listing, `"properties"`) {
		t.Errorf("expected input schemas in listing, got %q", listing)
	}
}

func TestCallTool(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	env := newTestEnv(t, &out)
	env.Config.MCP.URL = newLabServer(t).URL

	if err := CallTool(context.Background(), env, ToolsParams{}, "add", `{"a":2,"b":3}`); err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "5" {
		t.Errorf("expected 5, got %q", got)
	}

	out.Reset()
	if err := CallTool(context.Background(), env, ToolsParams{}, "echo", `{"text":"ping"}`); err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "ping" {
		t.Errorf("expected raw string result, got %q", got)
	}
}

func TestCallTool_InvalidArguments(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, io.Discard)
	if err := CallTool(context.Background(), env, ToolsParams{}, "add", `[1,2]`); err == nil {
		t.Fatal("expected error for non-object arguments")
	}
}

func TestCallTool_AnonymousIsUnauthorized(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	env := newTestEnv(t, &out)
	env.Config.MCP.URL = newLabServer(t).URL

	if err := CallTool(context.Background(), env, ToolsParams{}, "admin_only_demo", ""); err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != toolserver.Unauthorized {
		t.Errorf("expected %q, got %q", toolserver.Unauthorized, got)
	}
}

func TestCallTool_UnknownTool(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, io.Discard)
	env.Config.MCP.URL = newLabServer(t).URL

	if err := CallTool(context.Background(), env, ToolsParams{}, "no_such_tool", ""); err == nil {
		t.Fatal("expected error for unknown tool")
	}
}

func TestCallTool_WithCredentials(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	env := newTestEnv(t, &out)
	idToken := claimstest.WithRoles("alice", "mcp-user", "mcp-admin")
	env.Config.Identity.TokenURL = newTokenEndpoint(t, idToken)
	lab := newLabServer(t)
	env.Config.MCP.URL = lab.URL

	creds := Credentials{Username: "alice", Password: "secret-pw"}
	if err := CallTool(context.Background(), env, ToolsParams{Credentials: creds}, "admin_only_demo", ""); err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != toolserver.AdminGreeting {
		t.Errorf("expected admin greeting, got %q", got)
	}

	headers := lab.authorizations()
	if len(headers) == 0 {
		t.Fatal("expected requests to reach the tool server")
	}
	for i, h := range headers {
		if h != "Bearer "+idToken {
			t.Errorf("request %d: expected id_token bearer, got %q", i, h)
		}
	}

	if got := env.Redactor.Redact("pw=secret-pw"); strings.Contains(got, "secret-pw") {
		t.Errorf("expected password to be registered with the redactor, got %q", got)
	}
}

func TestShowToken(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	env := newTestEnv(t, &out)
	env.Config.Identity.TokenURL = newTokenEndpoint(t, claimstest.WithRoles("alice", "mcp-user"))

	creds := Credentials{Username: "alice", Password: "secret-pw"}
	if err := ShowToken(context.Background(), env, TokenParams{Credentials: creds}); err != nil {
		t.Fatalf("ShowToken: %v", err)
	}
	shown := out.String()
	for _, want := range []string{"alice", "mcp-user", "is_admin:  false", "is_user:   true"} {
		if !strings.Contains(shown, want) {
			t.Errorf("expected %q in output, got %q", want, shown)
		}
	}
}

func TestShowToken_Raw(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	env := newTestEnv(t, &out)
	idToken := claimstest.WithRoles("alice", "mcp-user")
	env.Config.Identity.TokenURL = newTokenEndpoint(t, idToken)

	creds := Credentials{Username: "alice", Password: "secret-pw"}
	if err := ShowToken(context.Background(), env, TokenParams{Credentials: creds, Raw: true}); err != nil {
		t.Fatalf("ShowToken: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != idToken {
		t.Errorf("expected raw id_token, got %q", got)
	}
}

func TestIssueToken_RejectedIsAudited(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	auditPath := filepath.Join(dir, "audit.jsonl")
	cfgPath := filepath.Join(dir, "mcplab.yaml")
	raw := strings.Replace(testConfig, "  format: text\n", "  format: text\n  audit: "+auditPath+"\n", 1)
	if err := os.WriteFile(cfgPath, []byte(raw), 0o600); err != nil {
		t.Fatal(err)
	}
	env, err := Setup(context.Background(), Options{ConfigPath: cfgPath, DataDir: dir, Stderr: io.Discard})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	env.Config.Identity.TokenURL = newTokenEndpoint(t, "unused")

	if _, err := IssueToken(context.Background(), env, Credentials{Username: "alice", Password: "wrong-pw"}); err == nil {
		t.Fatal("expected rejected credentials")
	}
	if err := env.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(auditPath)
	if err != nil {
		t.Fatalf("reading audit log: %v", err)
	}
	if !strings.Contains(string(data), string(security.EventAuthFailure)) {
		t.Errorf("expected auth failure event, got %q", data)
	}
	if strings.Contains(string(data), "wrong-pw") {
		t.Errorf("expected password absent from audit log, got %q", data)
	}
}

func TestFirstLine(t *testing.T) {
	t.Parallel()

	if got := firstLine("  Add two integers.\nMore detail."); got != "Add two integers." {
		t.Errorf("expected first line, got %q", got)
	}
}
