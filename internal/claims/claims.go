// Package claims reads identity-token claims and answers coarse role checks.
//
// Tokens are decoded, never verified: signature, issuer and audience checks
// are out of scope, so any caller able to mint a three-segment token can
// claim any role. Use this only behind a trust boundary that verifies tokens
// upstream.
package claims

import (
	"encoding/base64"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// ErrMalformedToken is returned when a token is not three non-empty
// dot-separated segments, or its payload is not a base64url JSON object.
var ErrMalformedToken = errors.New("claims: malformed token")

// Default claim paths, in gjson syntax.
const (
	DefaultRolesPath    = "realm_access.roles"
	DefaultUsernamePath = "preferred_username"
)

// ClaimSet is the subset of a token payload used for authorization.
type ClaimSet struct {
	username    string
	hasUsername bool
	roles       []string
	expiresAt   time.Time
}

// Username returns the preferred username and whether the claim was present.
func (c ClaimSet) Username() (string, bool) {
	return c.username, c.hasUsername
}

// Roles returns the distinct role names in sorted order.
func (c ClaimSet) Roles() []string {
	return slices.Clone(c.roles)
}

// HasRole reports whether role is present. Matching is exact.
func (c ClaimSet) HasRole(role string) bool {
	_, found := slices.BinarySearch(c.roles, role)
	return found
}

// ExpiresAt returns the exp claim, or the zero time when absent.
func (c ClaimSet) ExpiresAt() time.Time {
	return c.expiresAt
}

// Extractor decodes token payloads. The zero value uses the default claim paths.
type Extractor struct {
	RolesPath    string
	UsernamePath string
}

// Extract decodes token with the default Extractor.
func Extract(token string) (ClaimSet, error) {
	return Extractor{}.Extract(token)
}

// FromAuthorization extracts claims from an Authorization header value.
// A "Bearer " prefix is optional; an empty header is malformed.
func FromAuthorization(header string) (ClaimSet, error) {
	return Extractor{}.FromAuthorization(header)
}

// FromAuthorization extracts claims from an Authorization header value.
func (e Extractor) FromAuthorization(header string) (ClaimSet, error) {
	return e.Extract(BearerToken(header))
}

// BearerToken strips the Bearer scheme from an Authorization header value.
// The scheme comparison is case-insensitive.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if scheme, rest, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(rest)
	}
	return header
}

// Extract decodes the payload segment of token.
func (e Extractor) Extract(token string) (ClaimSet, error) {
	payload, err := decodePayload(token)
	if err != nil {
		return ClaimSet{}, err
	}

	rolesPath := e.RolesPath
	if rolesPath == "" {
		rolesPath = DefaultRolesPath
	}
	usernamePath := e.UsernamePath
	if usernamePath == "" {
		usernamePath = DefaultUsernamePath
	}

	var cs ClaimSet

	if u := gjson.GetBytes(payload, usernamePath); u.Exists() && u.Type != gjson.Null {
		cs.username = u.String()
		cs.hasUsername = true
	}

	if roles := gjson.GetBytes(payload, rolesPath); roles.IsArray() {
		for _, r := range roles.Array() {
			if r.Type == gjson.String {
				cs.roles = append(cs.roles, r.Str)
			}
		}
		slices.Sort(cs.roles)
		cs.roles = slices.Compact(cs.roles)
	}

	if exp := gjson.GetBytes(payload, "exp"); exp.Type == gjson.Number {
		cs.expiresAt = time.Unix(exp.Int(), 0)
	}

	return cs, nil
}

// decodePayload returns the JSON object carried in the middle segment.
func decodePayload(token string) ([]byte, error) {
	segments := strings.Split(token, ".")
	if len(segments) != 3 {
		return nil, fmt.Errorf("%w: expected 3 segments, got %d", ErrMalformedToken, len(segments))
	}
	for i, s := range segments {
		if s == "" {
			return nil, fmt.Errorf("%w: segment %d is empty", ErrMalformedToken, i)
		}
	}

	payload := segments[1]
	payload += strings.Repeat("=", (4-len(payload)%4)%4)

	decoded, err := base64.URLEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: payload: %w", ErrMalformedToken, err)
	}
	if !gjson.ValidBytes(decoded) || !gjson.ParseBytes(decoded).IsObject() {
		return nil, fmt.Errorf("%w: payload is not a JSON object", ErrMalformedToken)
	}
	return decoded, nil
}
