// Package cors derives CORS preflight and response decoration from the
// route table's allowed-method set (C1), rather than a static
// per-route configuration — this is the reason a generic CORS middleware
// library isn't used here.
package cors

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/localstack-dotnet/badge-smith/internal/respond"
)

// Mode selects whether CORS responses are public (no credentials) or
// credentialed (must echo the exact origin).
type Mode int

const (
	ModePublic Mode = iota
	ModeCredentialed
)

// Config configures C3's behavior.
type Config struct {
	Mode          Mode
	OriginAllowed func(origin string) bool // only consulted in ModeCredentialed
	MaxAge        int                      // Access-Control-Max-Age, defaults to 3600 if zero
}

// allowedRequestHeaders is the whitelist of request headers C3 ever
// echoes back in Access-Control-Allow-Headers.
var allowedRequestHeaders = []string{
	"content-type", "authorization", "x-signature", "x-repo-secret", "x-timestamp", "x-nonce",
}

func (c Config) maxAge() int {
	if c.MaxAge > 0 {
		return c.MaxAge
	}
	return 3600
}

// Preflight builds a 204 response for an OPTIONS request. allowedMethods
// is the result of C1.AllowedMethods(path) for the requested path.
func Preflight(allowedMethods []string, origin, requestedMethod, requestedHeaders string, cfg Config) respond.Response {
	headers := make(http.Header, 6)

	applyOrigin(headers, origin, cfg)

	if requestedMethod != "" && containsFold(allowedMethods, requestedMethod) {
		headers.Set("Access-Control-Allow-Methods", requestedMethod)
	} else {
		headers.Set("Access-Control-Allow-Methods", strings.Join(allowedMethods, ", "))
	}

	if echoed := filterAllowedHeaders(requestedHeaders); echoed != "" {
		headers.Set("Access-Control-Allow-Headers", echoed)
	}

	headers.Set("Access-Control-Max-Age", strconv.Itoa(cfg.maxAge()))

	vary := []string{"Accept-Encoding", "Access-Control-Request-Method", "Access-Control-Request-Headers"}
	if cfg.Mode == ModeCredentialed {
		vary = append(vary, "Origin")
	}
	headers.Set("Vary", strings.Join(vary, ", "))

	return respond.Options(headers)
}

// ApplyResponse decorates a non-preflight response's headers with the
// Access-Control-Allow-Origin / -Credentials headers.
func ApplyResponse(origin string, headers http.Header, cfg Config) {
	applyOrigin(headers, origin, cfg)
}

func applyOrigin(headers http.Header, origin string, cfg Config) {
	switch cfg.Mode {
	case ModePublic:
		headers.Set("Access-Control-Allow-Origin", "*")
	case ModeCredentialed:
		if origin == "" || cfg.OriginAllowed == nil || !cfg.OriginAllowed(origin) {
			return
		}
		headers.Set("Access-Control-Allow-Origin", origin)
		headers.Set("Access-Control-Allow-Credentials", "true")
		existingVary := headers.Get("Vary")
		if existingVary == "" {
			headers.Set("Vary", "Origin")
		} else if !strings.Contains(existingVary, "Origin") {
			headers.Set("Vary", existingVary+", Origin")
		}
	}
}

func filterAllowedHeaders(requestedHeaders string) string {
	if requestedHeaders == "" {
		return ""
	}

	var echoed []string
	for _, h := range strings.Split(requestedHeaders, ",") {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if containsFold(allowedRequestHeaders, h) {
			echoed = append(echoed, strings.ToLower(h))
		}
	}
	return strings.Join(echoed, ", ")
}

func containsFold(list []string, target string) bool {
	for _, v := range list {
		if strings.EqualFold(v, target) {
			return true
		}
	}
	return false
}
