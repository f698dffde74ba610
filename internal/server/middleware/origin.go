package middleware

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// OriginPolicy decides whether a handshake's Origin header is acceptable.
type OriginPolicy func(r *http.Request) bool

// AllowAllOrigins accepts every handshake. This is the default policy.
func AllowAllOrigins(*http.Request) bool { return true }

// NewOriginPolicy builds a policy from the configured origin list. An empty
// list, or a list containing "*", allows everything. Entries are normalized
// to scheme://host; malformed entries are ignored.
func NewOriginPolicy(logger *slog.Logger, origins []string) OriginPolicy {
	allowed := make(map[string]struct{})
	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		if trimmed == "*" {
			return AllowAllOrigins
		}
		normalized, ok := normalizeOrigin(trimmed)
		if !ok {
			logger.Warn("ignoring invalid origin in configuration", slog.String("origin", origin))
			continue
		}
		allowed[normalized] = struct{}{}
	}
	if len(allowed) == 0 {
		return AllowAllOrigins
	}

	return func(r *http.Request) bool {
		normalized, ok := normalizeOrigin(r.Header.Get("Origin"))
		if !ok {
			return false
		}
		_, exists := allowed[normalized]
		return exists
	}
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil {
		return "", false
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}

// NewOriginCheck rejects handshakes whose origin the policy refuses.
func NewOriginCheck(logger *slog.Logger, policy OriginPolicy) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !policy(r) {
				logger.Warn("blocked handshake from disallowed origin",
					slog.String("origin", r.Header.Get("Origin")))
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
