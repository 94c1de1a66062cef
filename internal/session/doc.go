// Package session owns the client's authentication state: the bearer token and the cached record of the signed-in user.
//
// Every other package reads and updates the session through a single injected [Service] instead of touching storage
// directly. Writes are last-write-wins; subscribers registered with [Service.Subscribe] are notified after each change.
//
// # Storage
//
// [Store] abstracts the key/value persistence. The CLI uses the SQLite-backed repositories.SessionRepository;
// tests use [MemoryStore]. Values are stored under [KeyToken] and [KeyUser].
//
// # Tokens
//
// [Service] implements [oauth2.TokenSource] so the REST client can attach "Authorization: Bearer <token>".
// When the token is a JWT its "exp" claim sets the expiry; opaque tokens never expire client-side.
package session
