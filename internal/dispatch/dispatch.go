// Package dispatch implements C9: the single transport-agnostic entry point
// every gateway adapter (Lambda, chi) calls into. It resolves a route via
// C1, short-circuits OPTIONS to C3, runs C4 when the route requires auth,
// invokes the registered handler, and decorates the outbound response with
// CORS headers before returning it.
package dispatch

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/localstack-dotnet/badge-smith/internal/apierr"
	"github.com/localstack-dotnet/badge-smith/internal/cors"
	"github.com/localstack-dotnet/badge-smith/internal/hmacauth"
	"github.com/localstack-dotnet/badge-smith/internal/logging"
	"github.com/localstack-dotnet/badge-smith/internal/respond"
	"github.com/localstack-dotnet/badge-smith/internal/router"
)

// Request is the transport-agnostic shape every gateway adapter builds
// from its native request type.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Headers map[string]string // lower-cased header name -> value
	Body    []byte
	Origin  string
}

func (r Request) header(name string) string {
	return r.Headers[name]
}

// HandlerRequest is what a handler receives: the resolved route values, the
// decoded query string, the raw body, and the authenticated identity when
// the route required it.
type HandlerRequest struct {
	Path    string
	Values  router.RouteValues
	Query   url.Values
	Headers map[string]string
	Body    []byte
	Auth    *hmacauth.Authenticated
}

// HandlerFunc implements one HTTP operation. A returned *apierr.Error is
// rendered through C2; any other error is treated as an internal failure.
type HandlerFunc func(ctx context.Context, req HandlerRequest) (respond.Response, error)

// Dispatcher is C9.
type Dispatcher struct {
	Routes      *router.RouteTable
	Auth        *hmacauth.Authenticator
	CORS        cors.Config
	Handlers    map[string]HandlerFunc
	ScratchSize int
	Logger      *slog.Logger
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

func (d *Dispatcher) scratchSize() int {
	if d.ScratchSize > 0 {
		return d.ScratchSize
	}
	return 8
}

// Dispatch resolves and serves req. It never panics: any recovered panic
// is converted to a 500 via apierr.Internal.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (resp respond.Response) {
	defer func() {
		if r := recover(); r != nil {
			d.logger().ErrorContext(ctx, "dispatch: recovered panic", "panic", r)
			resp = respond.Error(apierr.Internal(panicError{r}))
			cors.ApplyResponse(req.Origin, resp.Headers, d.CORS)
		}
	}()

	log := logging.FromContext(ctx, d.logger())

	if req.Method == "OPTIONS" {
		methods := d.Routes.AllowedMethods(req.Path)
		resp = cors.Preflight(methods, req.Origin, req.header("access-control-request-method"), req.header("access-control-request-headers"), d.CORS)
		return resp
	}

	scratch := make([]router.RouteValue, d.scratchSize())
	match, ok := d.Routes.TryResolve(req.Method, req.Path, scratch)
	if !ok {
		resp = respond.Error(apierr.New(apierr.KindNotFound, "no matching route"))
		cors.ApplyResponse(req.Origin, resp.Headers, d.CORS)
		return resp
	}

	handler, ok := d.Handlers[match.Descriptor.HandlerRef]
	if !ok {
		log.ErrorContext(ctx, "dispatch: no handler registered", "handler_ref", match.Descriptor.HandlerRef)
		resp = respond.Error(apierr.Internal(unregisteredHandlerError{match.Descriptor.HandlerRef}))
		cors.ApplyResponse(req.Origin, resp.Headers, d.CORS)
		return resp
	}

	var authenticated *hmacauth.Authenticated
	if match.Descriptor.RequiresAuth {
		authReq := hmacauth.Request{
			RepoSecret: req.header("x-repo-secret"),
			Timestamp:  req.header("x-timestamp"),
			Nonce:      req.header("x-nonce"),
			Signature:  req.header("x-signature"),
			Body:       req.Body,
		}
		result, apiErr := d.Auth.Validate(ctx, authReq)
		if apiErr != nil {
			resp = respond.Error(apiErr)
			cors.ApplyResponse(req.Origin, resp.Headers, d.CORS)
			return resp
		}
		authenticated = result
	}

	handlerResp, err := handler(ctx, HandlerRequest{
		Path:    req.Path,
		Values:  match.Values,
		Query:   req.Query,
		Headers: req.Headers,
		Body:    req.Body,
		Auth:    authenticated,
	})
	if err != nil {
		apiErr, ok := err.(*apierr.Error)
		if !ok {
			apiErr = apierr.Internal(err)
		}
		resp = respond.Error(apiErr)
		cors.ApplyResponse(req.Origin, resp.Headers, d.CORS)
		return resp
	}

	cors.ApplyResponse(req.Origin, handlerResp.Headers, d.CORS)
	return handlerResp
}

type panicError struct{ v any }

func (p panicError) Error() string { return "panic recovered in dispatch" }

type unregisteredHandlerError struct{ ref string }

func (u unregisteredHandlerError) Error() string { return "dispatch: unregistered handler " + u.ref }
