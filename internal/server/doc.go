// Package server hosts the loopback HTTP side of the authorization flow:
// a small router with middleware support and the OAuth callback handler.
//
// # Routing
//
// [BasicRouter] delegates routing to an [http.ServeMux] and applies
// [Middleware] in reverse registration order, so the first middleware added
// observes a request first. Handlers implement the [Handler] interface,
// which extends the stdlib handler with the path patterns it serves; a
// handler therefore owns its own route list.
//
// # OAuth Callback
//
// [CallbackHandler] receives the OAuth2 authorization code redirect.
//
// It validates the state parameter (CSRF protection), parses the code and
// error query parameters, and delivers exactly one [CallbackResult] through
// a channel for the authorization flow to consume. Repeat hits do not
// overwrite the result, and the code exchange itself happens in the flow,
// not here.
//
// When an authorization flow runs, a short-lived HTTP server starts on one
// of the loopback ports registered with the provider, handles the redirect,
// and shuts down after delivering the result.
package server
