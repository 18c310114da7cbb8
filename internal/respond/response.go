// Package respond shapes every outbound response: canonical JSON bodies,
// strong ETags, conditional-GET 304s, and the Cache-Control directives the
// CDN in front of BadgeSmith relies on.
package respond

import (
	"net/http"
	"time"

	"github.com/localstack-dotnet/badge-smith/internal/apierr"
)

// Response is the transport-agnostic shape C9 translates into an API
// Gateway proxy response or an http.ResponseWriter call.
type Response struct {
	Status  int
	Headers http.Header
	Body    []byte
}

func newHeaders() http.Header {
	h := make(http.Header, 4)
	h.Set("Vary", "Accept-Encoding")
	return h
}

// Ok builds a 200 response for body, or a 304 if ifNoneMatch already names
// the computed ETag. lastModified is optional (zero value omits the header).
func Ok(body any, cache CacheDirective, lastModified time.Time, ifNoneMatch string) (Response, error) {
	serialized, err := canonicalJSON(body)
	if err != nil {
		return Response{}, err
	}
	etag := computeETag(serialized)

	headers := newHeaders()
	headers.Set("Content-Type", "application/json")
	headers.Set("ETag", etag)
	headers.Set("Cache-Control", cache.headerValue())
	if !lastModified.IsZero() {
		headers.Set("Last-Modified", lastModified.UTC().Format(http.TimeFormat))
	}

	if matchesIfNoneMatch(ifNoneMatch, etag) {
		return Response{Status: http.StatusNotModified, Headers: headers}, nil
	}

	return Response{Status: http.StatusOK, Headers: headers, Body: serialized}, nil
}

// Error builds a JSON error response from an *apierr.Error. Errors are
// always no-store per spec — the CDN must never cache a failure.
func Error(err *apierr.Error) Response {
	type detail struct {
		Code  string `json:"code"`
		Field string `json:"field,omitempty"`
	}
	type body struct {
		Message string   `json:"message"`
		Details []detail `json:"details,omitempty"`
	}

	b := body{Message: err.Message}
	for _, d := range err.Details {
		b.Details = append(b.Details, detail{Code: d.Code, Field: d.Field})
	}

	serialized, marshalErr := canonicalJSON(b)
	if marshalErr != nil {
		// canonicalJSON only fails on unmarshalable types; body is always
		// plain strings, so fall back to a minimal static payload.
		serialized = []byte(`{"message":"internal error"}`)
	}

	headers := newHeaders()
	headers.Set("Content-Type", "application/json")
	headers.Set("Cache-Control", NoStore().headerValue())
	headers.Set("Pragma", "no-cache")

	return Response{Status: err.Status, Headers: headers, Body: serialized}
}

// Created builds a 201 response with no-cache headers and an optional
// Location header.
func Created(body any, location string) (Response, error) {
	serialized, err := canonicalJSON(body)
	if err != nil {
		return Response{}, err
	}

	headers := newHeaders()
	headers.Set("Content-Type", "application/json")
	headers.Set("Cache-Control", NoStore().headerValue())
	headers.Set("Pragma", "no-cache")
	if location != "" {
		headers.Set("Location", location)
	}

	return Response{Status: http.StatusCreated, Headers: headers, Body: serialized}, nil
}

// Redirect builds a 302 response. cache is nil for a non-cacheable
// redirect (the common case); pass a CacheDirective to allow short public
// caching explicitly.
func Redirect(location string, cache *CacheDirective) Response {
	headers := newHeaders()
	headers.Set("Location", location)
	if cache != nil {
		headers.Set("Cache-Control", cache.headerValue())
	} else {
		headers.Set("Cache-Control", NoStore().headerValue())
	}

	return Response{Status: http.StatusFound, Headers: headers}
}

// Options builds a 204 response with no body, decorated by the supplied
// headers (built by C3's Preflight).
func Options(headers http.Header) Response {
	if headers == nil {
		headers = newHeaders()
	}
	return Response{Status: http.StatusNoContent, Headers: headers}
}
