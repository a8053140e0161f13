// Package tasks runs long playlist operations with real-time progress reporting.
//
// # Bulk Export
//
// [Exporter.BulkExport] writes every given playlist to an output directory:
//
//  1. A producer fetches each playlist's items (and optionally durations) under a rate limit
//  2. A pool of workers orders each playlist and renders it in the chosen format
//  3. A manifest (export_manifest.json) records which playlists succeeded and their files
//
// A failure on one playlist is recorded in its result and never stops the others.
//
// # Progress Reporting
//
// Operations accept a send-only [ProgressUpdate] channel. Sends never block: when the
// channel is nil or full the update is dropped.
package tasks
