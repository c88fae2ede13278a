// Package server runs the short-lived HTTP server that completes the Spotify authorization code flow.
//
// # Router
//
// The [Router] interface defines HTTP routing with middleware support.
// [Middleware] wraps handlers in reverse order (last added executes first).
// [BasicRouter] uses [http.ServeMux] internally with method filtering.
//
// # OAuth Callback
//
// [OAuthHandler] validates the state parameter, exchanges the authorization code for a token using the
// request context and delivers exactly one result. Later callbacks are rejected.
//
// The auth command mounts the handler on a [BasicRouter] with [RequestLogger], starts a [CallbackServer]
// on the configured host and port, opens the consent page and blocks in [OAuthHandler.Wait].
// The server is shut down as soon as a token arrives or the wait times out.
package server
