package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/flemzord/mcplab/internal/provider"
	"github.com/tidwall/gjson"
)

// overloaded is Anthropic's non-standard "overloaded" status.
const overloaded = 529

// mapError converts an Anthropic SDK error into the matching provider
// sentinel. Context errors are surfaced unchanged.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr *sdkanthropic.Error
	if !errors.As(err, &apiErr) {
		var netErr net.Error
		if errors.As(err, &netErr) {
			return fmt.Errorf("%w: %w", provider.ErrProviderDown, err)
		}
		return fmt.Errorf("anthropic: %w", err)
	}

	switch code := apiErr.StatusCode; {
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", provider.ErrRateLimit, err)
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: %w", provider.ErrAuthentication, err)
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: %w", provider.ErrModelNotFound, err)
	case code == http.StatusBadRequest && isContextLengthError(apiErr.RawJSON()):
		return fmt.Errorf("%w: %w", provider.ErrContextLength, err)
	case code == overloaded || code >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %w", provider.ErrProviderDown, err)
	default:
		return fmt.Errorf("anthropic: HTTP %d: %w", code, err)
	}
}

// isContextLengthError reports whether an invalid_request_error body is
// about the context window.
func isContextLengthError(raw string) bool {
	if t := gjson.Get(raw, "error.type"); t.Exists() && t.String() != "invalid_request_error" {
		return false
	}
	msg := strings.ToLower(gjson.Get(raw, "error.message").String())
	if msg == "" {
		msg = strings.ToLower(raw)
	}
	return strings.Contains(msg, "context length") ||
		strings.Contains(msg, "context window") ||
		strings.Contains(msg, "too many tokens") ||
		strings.Contains(msg, "prompt is too long")
}
