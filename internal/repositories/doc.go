// Package repositories implements SQLite persistence for the client's local state.
//
// Only the session is persisted locally; everything else is fetched from the REST API on demand.
//
// Key Implementations:
//   - [SessionRepository] : key/value store behind session.Service (authToken, userData)
//     plus the login/logout history shown by `bookclub auth status --history`
package repositories
