package gateway

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/flemzord/mcplab/internal/core"
	"github.com/flemzord/mcplab/internal/security"
	"github.com/flemzord/mcplab/internal/security/securitytest"
	"github.com/flemzord/mcplab/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"
)

func mustYAMLNode(t *testing.T, s string) *yaml.Node {
	t.Helper()
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(s), &doc); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if len(doc.Content) == 0 {
		return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	}
	return doc.Content[0]
}

type testEnv struct {
	gateway  *Gateway
	appCtx   *core.AppContext
	registry *prometheus.Registry
	events   func() []security.AuditEvent
}

// newTestGateway runs Configure and Provision with shared services
// published the way pkg/app does.
func newTestGateway(t *testing.T, cfg string) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	appCtx := core.NewAppContext(logger, t.TempDir())

	audit, events := securitytest.NewTestAuditLogger()
	reg := prometheus.NewRegistry()
	appCtx.RegisterService(security.ServiceAudit, audit)
	appCtx.RegisterService(telemetry.ServiceMetrics, telemetry.NewMetrics(reg))
	appCtx.RegisterService(telemetry.ServiceGatherer, prometheus.Gatherer(reg))

	g := &Gateway{}
	if err := g.Configure(mustYAMLNode(t, cfg)); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if err := g.Provision(appCtx); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	return &testEnv{gateway: g, appCtx: appCtx, registry: reg, events: events}
}

func futureExp() int64 {
	return time.Now().Add(time.Hour).Unix()
}
