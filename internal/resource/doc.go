// Package resource implements the admin resource manager: one generic page model instantiated per
// backend collection ([Books], [Users], [Clubs], [Schedules]).
//
// A [Manager] composes three parts:
//   - [Fetcher] : parallel list requests, response-shape normalization, a single aggregate error
//   - [View] : memoized sort and search over the fetched rows
//   - [Controller] : the add/edit/delete modal with its staged draft
//
// # Sorting
//
// Sorting is stable. Numbers compare numerically and strings by byte order. Missing and null values
// compare equal to each other and always sort after present values, in either direction.
//
// # Loading
//
// [Manager.BeginLoad] returns a generation and [Manager.ApplyLoad] ignores results from older
// generations, so a page that was reloaded or discarded never applies a late response.
// Every request runs under the REST client's timeout.
package resource
