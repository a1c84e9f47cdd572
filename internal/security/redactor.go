// Package security holds the log hygiene and audit primitives shared by the
// agent and the tool server: secret redaction, a redacting slog handler and
// a JSONL audit trail for authorization decisions.
package security

import (
	"regexp"
	"strings"
	"sync"
)

// RedactPlaceholder replaces every redacted secret.
const RedactPlaceholder = "***REDACTED***"

// secretKeyPattern matches map keys that likely hold secrets.
var secretKeyPattern = regexp.MustCompile(`(?i)(secret|token|password|authorization|api_key|credential)`)

// Redactor scrubs bearer tokens, JWTs, API keys and registered literal
// values (passwords, client secrets) from strings.
// All methods are safe for concurrent use.
type Redactor struct {
	mu       sync.RWMutex
	patterns []*regexp.Regexp
	literals []string
}

// ServiceRedactor is the service name of the process-wide Redactor.
const ServiceRedactor = "security.redactor"

// NewRedactor creates a Redactor loaded with DefaultPatterns.
func NewRedactor() *Redactor {
	return &Redactor{patterns: DefaultPatterns()}
}

// AddPattern registers an extra pattern.
func (r *Redactor) AddPattern(pattern *regexp.Regexp) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patterns = append(r.patterns, pattern)
}

// AddLiteral registers a value known at runtime, such as the password typed
// at the prompt. Values shorter than four bytes are ignored to keep common
// words out of the redaction set.
func (r *Redactor) AddLiteral(secret string) {
	if len(secret) < 4 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, lit := range r.literals {
		if lit == secret {
			return
		}
	}
	r.literals = append(r.literals, secret)
}

// Redact returns s with every known secret replaced by RedactPlaceholder.
// Literals are replaced before patterns so a literal that is also a JWT
// is not partially matched.
func (r *Redactor) Redact(s string) string {
	if s == "" {
		return s
	}

	r.mu.RLock()
	patterns := r.patterns
	literals := r.literals
	r.mu.RUnlock()

	for _, lit := range literals {
		s = strings.ReplaceAll(s, lit, RedactPlaceholder)
	}
	for _, p := range patterns {
		s = p.ReplaceAllString(s, RedactPlaceholder)
	}
	return s
}

// RedactMap redacts m in place. String values under secret-looking keys are
// replaced outright; every other string goes through Redact. Nested maps and
// slices are walked. Used when printing the resolved configuration.
func (r *Redactor) RedactMap(m map[string]any) {
	for k, v := range m {
		switch val := v.(type) {
		case string:
			if val != "" && secretKeyPattern.MatchString(k) {
				m[k] = RedactPlaceholder
			} else {
				m[k] = r.Redact(val)
			}
		case map[string]any:
			r.RedactMap(val)
		case []any:
			for i, item := range val {
				switch sub := item.(type) {
				case map[string]any:
					r.RedactMap(sub)
				case string:
					val[i] = r.Redact(sub)
				}
			}
		}
	}
}

// DefaultPatterns returns the patterns every Redactor starts with.
func DefaultPatterns() []*regexp.Regexp {
	return []*regexp.Regexp{
		// Authorization header values.
		regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9\-._~+/]+=*`),
		// Compact JWS: three base64url segments, header starting with {"
		regexp.MustCompile(`eyJ[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]*`),
		// OpenAI style API keys.
		regexp.MustCompile(`sk-[A-Za-z0-9\-_]{20,}`),
	}
}
