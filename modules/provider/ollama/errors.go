package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/flemzord/mcplab/internal/provider"
	ollamaapi "github.com/ollama/ollama/api"
)

// mapError converts an Ollama client error into the matching provider
// sentinel. Caller cancellation is surfaced unchanged.
func mapError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var authErr ollamaapi.AuthorizationError
	if errors.As(err, &authErr) {
		return fmt.Errorf("%w: HTTP %d: %w", provider.ErrAuthentication, authErr.StatusCode, err)
	}

	var statusErr ollamaapi.StatusError
	if !errors.As(err, &statusErr) {
		// Transport failures and errors reported inside a 200 response.
		return fmt.Errorf("%w: %w", provider.ErrProviderDown, err)
	}

	switch code := statusErr.StatusCode; {
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: %s", provider.ErrModelNotFound, statusErr.ErrorMessage)
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", provider.ErrRateLimit, statusErr.ErrorMessage)
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d: %s", provider.ErrAuthentication, code, statusErr.ErrorMessage)
	case code >= http.StatusInternalServerError:
		return fmt.Errorf("%w: HTTP %d: %s", provider.ErrProviderDown, code, statusErr.ErrorMessage)
	case code == http.StatusBadRequest && isContextLengthError(statusErr.ErrorMessage):
		return fmt.Errorf("%w: %s", provider.ErrContextLength, statusErr.ErrorMessage)
	default:
		return fmt.Errorf("ollama: unexpected status %d: %s", code, statusErr.ErrorMessage)
	}
}

func isContextLengthError(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "context length") ||
		strings.Contains(lower, "context window") ||
		strings.Contains(lower, "too many tokens")
}
