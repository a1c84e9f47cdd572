package provider

import "errors"

// Sentinel errors for provider operations. Backends wrap them with %w so
// callers can classify failures with errors.Is.
var (
	// ErrRateLimit indicates the provider returned a rate limit response.
	ErrRateLimit = errors.New("provider rate limited")

	// ErrContextLength indicates the request exceeded the model's context window.
	ErrContextLength = errors.New("context length exceeded")

	// ErrProviderDown indicates the provider could not be reached or failed server-side.
	ErrProviderDown = errors.New("provider unavailable")

	// ErrAuthentication indicates the provider rejected the credentials.
	ErrAuthentication = errors.New("provider authentication failed")

	// ErrModelNotFound indicates the configured model does not exist on the backend.
	ErrModelNotFound = errors.New("model not found")

	// ErrNoProvider indicates no provider module is configured.
	ErrNoProvider = errors.New("no provider configured")
)
