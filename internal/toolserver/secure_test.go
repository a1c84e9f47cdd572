package toolserver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/flemzord/mcplab/internal/claims"
	"github.com/flemzord/mcplab/internal/claims/claimstest"
	"github.com/flemzord/mcplab/internal/security"
	"github.com/flemzord/mcplab/internal/security/securitytest"
	"github.com/flemzord/mcplab/internal/telemetry"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func toolParams(name string, args map[string]any) *mcp.CallToolParams {
	return &mcp.CallToolParams{Name: name, Arguments: args}
}

func newTools(t *testing.T) (*tools, func() []security.AuditEvent) {
	t.Helper()
	audit, events := securitytest.NewTestAuditLogger()
	return &tools{
		audit:   audit,
		metrics: telemetry.NewMetrics(nil),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:     time.Now,
	}, events
}

func requestWith(header string) *mcp.CallToolRequest {
	h := http.Header{}
	if header != "" {
		h.Set("Authorization", header)
	}
	return &mcp.CallToolRequest{Extra: &mcp.RequestExtra{Header: h}}
}

func TestSecureTools_UserWithoutAdminRole(t *testing.T) {
	t.Parallel()

	tl, events := newTools(t)
	req := requestWith("Bearer " + claimstest.WithRoles("alice", "mcp-user"))

	_, who, err := tl.whoami(context.Background(), req, struct{}{})
	if err != nil {
		t.Fatalf("whoami: %v", err)
	}
	if who.Service != "mcp-secure" || who.Auth != "keycloak" {
		t.Errorf("expected authorized whoami, got %+v", who)
	}

	_, admin, err := tl.adminOnlyDemo(context.Background(), req, struct{}{})
	if err != nil {
		t.Fatalf("admin_only_demo: %v", err)
	}
	if admin.Result != "Unauthorized" {
		t.Errorf("expected %q, got %q", "Unauthorized", admin.Result)
	}

	_, hello, err := tl.hello(context.Background(), req, struct{}{})
	if err != nil {
		t.Fatalf("hello: %v", err)
	}
	if hello.Result != "Hello, alice!" {
		t.Errorf("expected greeting for alice, got %q", hello.Result)
	}

	got := events()
	if len(got) != 2 {
		t.Fatalf("expected 2 authz events, got %d", len(got))
	}
	if got[0].Decision != security.DecisionAllow || got[1].Decision != security.DecisionDeny {
		t.Errorf("expected allow then deny, got %q then %q", got[0].Decision, got[1].Decision)
	}
	if got[1].Subject != "alice" || got[1].Tool != "admin_only_demo" {
		t.Errorf("unexpected deny event %+v", got[1])
	}
}

func TestSecureTools_Admin(t *testing.T) {
	t.Parallel()

	tl, _ := newTools(t)
	req := requestWith("Bearer " + claimstest.WithRoles("root", "mcp-admin"))

	_, admin, _ := tl.adminOnlyDemo(context.Background(), req, struct{}{})
	if admin.Result != AdminGreeting {
		t.Errorf("expected admin greeting, got %q", admin.Result)
	}

	_, who, _ := tl.whoami(context.Background(), req, struct{}{})
	if who.Auth != NotAuthorized {
		t.Errorf("expected admin without mcp-user to be not authorized, got %q", who.Auth)
	}
}

func TestSecureTools_MissingOrMalformedToken(t *testing.T) {
	t.Parallel()

	for _, header := range []string{"", "Bearer not-a-token", "Bearer a..c"} {
		tl, events := newTools(t)
		req := requestWith(header)

		_, who, err := tl.whoami(context.Background(), req, struct{}{})
		if err != nil || who.Auth != NotAuthorized {
			t.Errorf("header %q: expected Not Authorized, got %+v, %v", header, who, err)
		}
		_, admin, err := tl.adminOnlyDemo(context.Background(), req, struct{}{})
		if err != nil || admin.Result != Unauthorized {
			t.Errorf("header %q: expected Unauthorized, got %q, %v", header, admin.Result, err)
		}
		for _, e := range events() {
			if e.Decision != security.DecisionDeny {
				t.Errorf("header %q: expected deny, got %q", header, e.Decision)
			}
		}
	}
}

func TestHello(t *testing.T) {
	t.Parallel()

	tl, _ := newTools(t)

	_, out, err := tl.hello(context.Background(), requestWith(""), struct{}{})
	if err != nil || out.Result != "Hello, anonymous!" {
		t.Errorf("expected anonymous greeting, got %q, %v", out.Result, err)
	}

	noName := "Bearer " + claimstest.Token(map[string]any{"realm_access": map[string]any{"roles": []string{"mcp-user"}}})
	_, out, err = tl.hello(context.Background(), requestWith(noName), struct{}{})
	if err != nil || out.Result != "Hello, anonymous!" {
		t.Errorf("expected anonymous greeting without username, got %q, %v", out.Result, err)
	}

	_, _, err = tl.hello(context.Background(), requestWith("Bearer garbage"), struct{}{})
	if !errors.Is(err, claims.ErrMalformedToken) {
		t.Errorf("expected ErrMalformedToken, got %v", err)
	}
}

func TestSecureTools_OverInMemoryTransport(t *testing.T) {
	t.Parallel()

	h := newHarness(t, ToolsetSecure)

	who := structured(t, h.call(t, "whoami", nil))
	if who["auth"] != NotAuthorized {
		t.Errorf("expected Not Authorized without headers, got %v", who)
	}

	res := h.call(t, "admin_only_demo", nil)
	if got := structured(t, res)["result"]; got != Unauthorized {
		t.Errorf("expected Unauthorized, got %v", got)
	}

	res = h.call(t, "hello", nil)
	if got := structured(t, res)["result"]; got != "Hello, anonymous!" {
		t.Errorf("expected anonymous greeting, got %v", got)
	}
}
