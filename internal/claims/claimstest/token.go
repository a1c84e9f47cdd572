// Package claimstest builds unsigned identity tokens for tests.
package claimstest

import (
	"encoding/base64"
	"encoding/json"
)

// Token returns a three-segment token whose payload is payload encoded as
// JSON. The header and signature segments are fixed placeholders.
func Token(payload any) string {
	body, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	return header + "." + base64.RawURLEncoding.EncodeToString(body) + ".sig"
}

// WithRoles returns a token for username carrying the given realm roles.
func WithRoles(username string, roles ...string) string {
	if roles == nil {
		roles = []string{}
	}
	return Token(map[string]any{
		"preferred_username": username,
		"realm_access":       map[string]any{"roles": roles},
	})
}
