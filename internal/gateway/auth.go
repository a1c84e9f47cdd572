package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/flemzord/mcplab/internal/claims"
	"github.com/flemzord/mcplab/internal/security"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/auth"
	"github.com/modelcontextprotocol/go-sdk/oauthex"
)

// verifyToken accepts any structurally valid token with an exp claim; the
// expiry itself is enforced by auth.RequireBearerToken. The signature is
// never checked.
func (g *Gateway) verifyToken(_ context.Context, token string, _ *http.Request) (*auth.TokenInfo, error) {
	cs, err := claims.Extract(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", auth.ErrInvalidToken, err)
	}
	if cs.ExpiresAt().IsZero() {
		return nil, fmt.Errorf("%w: token has no exp claim", auth.ErrInvalidToken)
	}

	username, _ := cs.Username()
	return &auth.TokenInfo{
		Scopes:     cs.Roles(),
		Expiration: cs.ExpiresAt(),
		UserID:     username,
	}, nil
}

// auditRejections emits an auth_failure event for every 401 returned by
// next. The response itself is untouched.
func (g *Gateway) auditRejections(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		if ww.Status() != http.StatusUnauthorized {
			return
		}
		g.audit.Log(security.AuditEvent{
			Type:   security.EventAuthFailure,
			Remote: r.RemoteAddr,
			Detail: "bearer token rejected",
			Metadata: map[string]string{
				"method": r.Method,
				"path":   r.URL.Path,
			},
		})
		g.logger.Warn("mcp request rejected", "remote", r.RemoteAddr, "path", r.URL.Path)
	})
}

// resourceMetadata describes the MCP endpoint as an OAuth protected
// resource. Clients find it through the WWW-Authenticate challenge on 401.
func (g *Gateway) resourceMetadata() *oauthex.ProtectedResourceMetadata {
	return &oauthex.ProtectedResourceMetadata{
		Resource:               g.config.Auth.ResourceURL,
		AuthorizationServers:   g.config.Auth.AuthorizationServers,
		BearerMethodsSupported: []string{"header"},
		ResourceName:           "mcplab",
	}
}

// resourceMetadataURL is the absolute URL of the metadata document, on the
// same origin as the resource.
func (g *Gateway) resourceMetadataURL() string {
	u, err := url.Parse(g.config.Auth.ResourceURL)
	if err != nil || u.Host == "" {
		return resourceMetadataPath
	}
	return (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: resourceMetadataPath}).String()
}
