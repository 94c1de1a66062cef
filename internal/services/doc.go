// Package services implements the HTTP side of the client: a JSON REST [Client] built on resty and the
// platform calls in [BookClubService].
//
// # Client
//
// Every request gets an X-Request-ID, a per-request timeout and, when configured, waits on a token-bucket limiter.
// Authenticated requests draw a bearer token from an [oauth2.TokenSource] (the session service). When no token is
// available the request is never sent and [shared.ErrNotAuthenticated] is returned, which the CLI turns into a
// prompt to run `bookclub auth login`.
//
// No request is retried automatically.
//
// # Error Handling
//
// Errors use the typed sentinels from the shared package:
//   - [shared.ErrAPIRequest] : transport failure or any non-2xx status
//   - [shared.ErrNotAuthenticated] : missing/expired token or a 401
//   - [shared.ErrNotFound] : 404
//   - [shared.ErrTimeout] : the per-request deadline elapsed
//
// Non-2xx responses are [*APIError] values whose Message holds the server's "message" field verbatim.
//
// # Response Shapes
//
// List endpoints answer with a bare array or an object wrapping it; [Collection] normalizes both.
// Single-record endpoints may wrap the record; [Object] unwraps it.
package services
