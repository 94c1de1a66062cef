// Package tasks runs long operations that span several admin collections.
//
// # Bulk Export
//
// [Exporter.Export] fetches each requested resource kind with a pool of workers sharing one rate limiter,
// writes every collection with the formatter package, and records the outcome in export_manifest.json.
// A kind that fails is reported in the manifest without aborting the others.
//
// # Progress Reporting
//
// Progress is sent on an optional channel as [ProgressUpdate] values. Sends never block: when the
// channel is full the update is dropped.
package tasks
