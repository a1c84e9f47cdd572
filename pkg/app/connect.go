package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/flemzord/mcplab/internal/claims"
	"github.com/flemzord/mcplab/internal/identity"
	"github.com/flemzord/mcplab/internal/mcpclient"
	"github.com/flemzord/mcplab/internal/security"
)

// Credentials are the end-user's identity provider credentials.
type Credentials struct {
	Username string
	Password string
}

// Empty reports whether no username was given.
func (c Credentials) Empty() bool {
	return c.Username == ""
}

// IssueToken performs the password grant configured under identity and
// records the issuance on the audit log. The token and password are
// registered with the redactor before anything is logged.
func IssueToken(ctx context.Context, env *Env, creds Credentials) (identity.TokenSet, error) {
	env.Redactor.AddLiteral(creds.Password)

	id := env.Config.Identity
	issuer := identity.NewIssuer(identity.Config{
		IssuerURL:    id.IssuerURL,
		Realm:        id.Realm,
		ClientID:     id.ClientID,
		ClientSecret: id.ClientSecret,
		Scopes:       id.Scopes,
		TokenURL:     id.TokenURL,
		Timeout:      id.Timeout,
	})

	tokens, err := issuer.PasswordGrant(ctx, creds.Username, creds.Password)
	if err != nil {
		env.Audit.Log(security.AuditEvent{
			Type:    security.EventAuthFailure,
			Subject: creds.Username,
			Detail:  identity.Describe(err),
		})
		return identity.TokenSet{}, err
	}
	env.Redactor.AddLiteral(tokens.IDToken)
	env.Redactor.AddLiteral(tokens.AccessToken)

	event := security.AuditEvent{Type: security.EventTokenIssued, Subject: creds.Username}
	if cs, err := claims.Extract(tokens.IDToken); err == nil {
		event.Roles = cs.Roles()
	}
	env.Audit.Log(event)

	env.Logger.Debug("token issued", "username", creds.Username, "expiry", tokens.Expiry)
	return tokens, nil
}

// ConnectTools opens an MCP session to the configured tool server. When
// creds are given, a token is issued first and presented as a bearer
// credential on every request.
func ConnectTools(ctx context.Context, env *Env, creds Credentials) (*mcpclient.Session, error) {
	var token string
	if !creds.Empty() {
		tokens, err := IssueToken(ctx, env, creds)
		if err != nil {
			return nil, err
		}
		token = tokens.IDToken
	}

	mc := env.Config.MCP
	session, err := mcpclient.Connect(ctx, mcpclient.Config{
		URL:           mc.URL,
		Command:       mc.Command,
		Token:         token,
		Timeout:       mc.Timeout,
		ClientName:    "mcplab",
		ClientVersion: env.Version,
		Logger:        env.Logger,
	})
	if err != nil {
		if errors.Is(err, mcpclient.ErrNoEndpoint) {
			return nil, fmt.Errorf("app: set mcp.url or mcp.command: %w", err)
		}
		return nil, err
	}
	return session, nil
}
