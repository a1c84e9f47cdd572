package toolserver

import (
	"context"
	"fmt"

	"github.com/flemzord/mcplab/internal/claims"
	"github.com/flemzord/mcplab/internal/security"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Marker values returned to unauthorized callers. They are answers, not
// errors, so the model can relay them.
const (
	NotAuthorized = "Not Authorized"
	Unauthorized  = "Unauthorized"
	AdminGreeting = "If you can call me, you have 'mcp-admin' role."
)

const (
	serviceName = "mcp-secure"
	authBackend = "keycloak"
	anonymous   = "anonymous"
)

type whoamiOutput struct {
	Service string `json:"service"`
	Auth    string `json:"auth"`
}

func (t *tools) registerSecure(s *mcp.Server) {
	addTool(t, s, &mcp.Tool{Name: "whoami", Description: "Return a simple description of this secure server."}, t.whoami)
	addTool(t, s, &mcp.Tool{Name: "admin_only_demo", Description: "Only callers with the mcp-admin role get a real answer."}, t.adminOnlyDemo)
	addTool(t, s, &mcp.Tool{Name: "hello", Description: "Greet the caller by the username in their token."}, t.hello)
}

// claimsFor extracts the caller's claims. A missing or malformed token
// yields an empty ClaimSet and the extraction error.
func (t *tools) claimsFor(req *mcp.CallToolRequest) (claims.ClaimSet, error) {
	return t.extractor.FromAuthorization(authorization(req))
}

// decide records an authorization decision and returns it.
func (t *tools) decide(tool string, cs claims.ClaimSet, allowed bool, extractErr error) bool {
	decision := security.DecisionDeny
	if allowed {
		decision = security.DecisionAllow
	}
	subject, _ := cs.Username()

	event := security.AuditEvent{
		Type:     security.EventAuthzDecision,
		Tool:     tool,
		Subject:  subject,
		Roles:    cs.Roles(),
		Decision: decision,
	}
	if extractErr != nil {
		event.Detail = extractErr.Error()
	}
	t.audit.Log(event)
	t.metrics.ObserveAuthz(tool, decision)
	t.logger.Info("authorization decision", "tool", tool, "subject", subject, "decision", decision)
	return allowed
}

func (t *tools) whoami(_ context.Context, req *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, whoamiOutput, error) {
	cs, err := t.claimsFor(req)
	out := whoamiOutput{Service: serviceName, Auth: NotAuthorized}
	if t.decide("whoami", cs, err == nil && t.policy.IsUser(cs), err) {
		out.Auth = authBackend
	}
	return nil, out, nil
}

func (t *tools) adminOnlyDemo(_ context.Context, req *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, result[string], error) {
	cs, err := t.claimsFor(req)
	if t.decide("admin_only_demo", cs, err == nil && t.policy.IsAdmin(cs), err) {
		return nil, result[string]{Result: AdminGreeting}, nil
	}
	return nil, result[string]{Result: Unauthorized}, nil
}

// hello has no role gate, but needs a readable token: a malformed one is a
// tool error.
func (t *tools) hello(_ context.Context, req *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, result[string], error) {
	header := authorization(req)
	name := anonymous
	if header != "" {
		cs, err := t.extractor.FromAuthorization(header)
		if err != nil {
			return nil, result[string]{}, fmt.Errorf("hello: %w", err)
		}
		if u, ok := cs.Username(); ok && u != "" {
			name = u
		}
	}
	return nil, result[string]{Result: fmt.Sprintf("Hello, %s!", name)}, nil
}
