// Package ui implements the interactive admin back-office using bubbletea's Elm architecture.
//
// Each tab is one resource kind (books, users, book clubs, schedules) backed by a resource.Manager:
//   - loading shows a spinner, a failed load shows the error with a retry key, a ready page shows the stats
//     cards and the table
//   - `/` searches the kind's whitelisted fields and the number keys toggle the sort on a column
//   - `a`, `e` and `d` open the add form, the edit form and the delete confirmation
//
// Network calls run in tea.Cmds and come back as [Msg] values. Loads carry the manager's generation so a
// result that arrives after a reload, or after quitting, is dropped. Writes follow the controller's
// prepare/resolve split, keeping all state changes on the update loop.
//
// The theme and the last open tab are saved to the prefs file on quit.
package ui
