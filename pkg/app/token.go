package app

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/flemzord/mcplab/internal/claims"
)

// TokenParams configures ShowToken.
type TokenParams struct {
	Credentials Credentials
	// Raw prints the id_token alone.
	Raw bool
}

// ShowToken issues a token and prints its decoded claims and role checks.
func ShowToken(ctx context.Context, env *Env, params TokenParams) error {
	tokens, err := IssueToken(ctx, env, params.Credentials)
	if err != nil {
		return err
	}
	if params.Raw {
		_, err := fmt.Fprintln(env.Stdout, tokens.IDToken)
		return err
	}

	cs, err := claims.Extract(tokens.IDToken)
	if err != nil {
		return err
	}

	username, _ := cs.Username()
	roles := cs.Roles()

	tw := tabwriter.NewWriter(env.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "username:\t%s\n", orDash(username))
	fmt.Fprintf(tw, "roles:\t%s\n", orDash(strings.Join(roles, ", ")))
	fmt.Fprintf(tw, "is_admin:\t%t\n", claims.IsAdmin(cs))
	fmt.Fprintf(tw, "is_user:\t%t\n", claims.IsUser(cs))
	if exp := cs.ExpiresAt(); !exp.IsZero() {
		fmt.Fprintf(tw, "expires:\t%s (in %s)\n", exp.Format(time.RFC3339), time.Until(exp).Round(time.Second))
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
