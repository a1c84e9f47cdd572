package agent

import (
	"errors"
	"testing"
)

func TestToolCallResult_Content(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		result ToolCallResult
		want   string
	}{
		{
			name:   "success",
			result: Succeeded("greet", "Hello, <Ada>!"),
			want:   `{"ok":true,"tool":"greet","data":"Hello, <Ada>!"}`,
		},
		{
			name:   "success with object",
			result: Succeeded("whoami", map[string]any{"auth": "keycloak", "service": "mcp-secure"}),
			want:   `{"ok":true,"tool":"whoami","data":{"auth":"keycloak","service":"mcp-secure"}}`,
		},
		{
			name:   "success with nil data",
			result: Succeeded("echo", nil),
			want:   `{"ok":true,"tool":"echo","data":null}`,
		},
		{
			name:   "failure",
			result: Failed("admin_only_demo", errors.New("Unauthorized")),
			want:   `{"ok":false,"tool":"admin_only_demo","error":"Unauthorized"}`,
		},
		{
			name:   "unencodable data",
			result: Succeeded("odd", make(chan int)),
			want:   `{"ok":false,"tool":"odd","error":"encode result: json: unsupported type: chan int"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.result.content(); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}
