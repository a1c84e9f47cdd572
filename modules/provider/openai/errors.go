package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/flemzord/mcplab/internal/provider"
	goopenai "github.com/sashabaranov/go-openai"
)

// mapError maps go-openai errors to provider sentinel errors.
// Context errors pass through unchanged.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	// A body go-openai cannot decode comes back as a RequestError wrapping
	// an empty APIError, so the request error is checked first.
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return mapStatus(reqErr.HTTPStatusCode, string(reqErr.Body), err)
	}

	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return mapStatus(apiErr.HTTPStatusCode, apiErr.Message, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", provider.ErrProviderDown, err)
	}
	return fmt.Errorf("openai: %w", err)
}

func mapStatus(code int, msg string, err error) error {
	switch {
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", provider.ErrRateLimit, err)
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: %w", provider.ErrAuthentication, err)
	case code == http.StatusNotFound && strings.Contains(strings.ToLower(msg), "model"):
		return fmt.Errorf("%w: %w", provider.ErrModelNotFound, err)
	case code == http.StatusBadRequest && strings.Contains(strings.ToLower(msg), "context_length"):
		return fmt.Errorf("%w: %w", provider.ErrContextLength, err)
	case code >= 500:
		return fmt.Errorf("%w: %w", provider.ErrProviderDown, err)
	default:
		return fmt.Errorf("openai: HTTP %d: %w", code, err)
	}
}
