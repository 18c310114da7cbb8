package respond

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// canonicalJSON serializes v deterministically: encoding/json already
// serializes struct fields in declared order, so callers that want a
// stable ETag must pass a struct (never a map) as the response body.
// HTML escaping is disabled so the same body always produces the same
// bytes regardless of what characters it contains.
func canonicalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	// json.Encoder.Encode appends a trailing newline; strip it so the
	// ETag is computed over exactly the serialized body we send.
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// computeETag returns the strong, quoted ETag for body: a fixed-width hex
// of SHA-256 over the exact serialized bytes.
func computeETag(body []byte) string {
	sum := sha256.Sum256(body)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

// matchesIfNoneMatch reports whether etag satisfies the If-None-Match
// header value: a comma-separated list, each entry optionally weak
// (`W/` prefix, stripped before comparison), `*` always matching, and hex
// comparison case-insensitive.
func matchesIfNoneMatch(ifNoneMatch, etag string) bool {
	if ifNoneMatch == "" {
		return false
	}

	normalizedETag := strings.ToLower(strings.Trim(etag, `"`))

	for _, candidate := range strings.Split(ifNoneMatch, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" {
			return true
		}
		candidate = strings.TrimPrefix(candidate, "W/")
		candidate = strings.TrimSpace(candidate)
		candidate = strings.Trim(candidate, `"`)
		if strings.EqualFold(candidate, normalizedETag) {
			return true
		}
	}

	return false
}
