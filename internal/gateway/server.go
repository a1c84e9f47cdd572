package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/auth"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// resourceMetadataPath serves the RFC 9728 protected resource metadata.
const resourceMetadataPath = "/.well-known/oauth-protected-resource"

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(g.instrument)

	r.Get("/health", g.handleHealth())

	gatherer := g.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	var mcpHandler http.Handler = mcp.NewStreamableHTTPHandler(
		func(*http.Request) *mcp.Server { return g.server },
		&mcp.StreamableHTTPOptions{
			Stateless:    g.config.Stateless,
			JSONResponse: g.config.JSONResponse,
			Logger:       g.logger,
		},
	)
	if g.config.Auth.RequireToken {
		r.Method(http.MethodGet, resourceMetadataPath, auth.ProtectedResourceMetadataHandler(g.resourceMetadata()))
		bearer := auth.RequireBearerToken(g.verifyToken, &auth.RequireBearerTokenOptions{
			ResourceMetadataURL: g.resourceMetadataURL(),
		})
		mcpHandler = g.auditRejections(bearer(mcpHandler))
	}
	r.Handle(g.config.Path, mcpHandler)

	return r
}
