// Package tasks orchestrates the managed recommendations playlist with real-time progress reporting.
//
// # Core Operations
//
// The [Engine] interface defines four operations:
//
//  1. [Engine.Initialize] : Create the managed playlist
//     - Creates a private playlist on the user's account
//     - Records the creation as run #1 in the local history
//
//  2. [Engine.Generate] : Refresh the playlist with recommendations
//     - Gathers seeds from top tracks and recently played tracks
//     - Fetches recommendations and per-track details through a worker pool
//     - Replaces the playlist contents and records a run row
//
//  3. [Engine.History] : List past generation runs
//     - Reads run rows from the local database, newest first
//
//  4. [Engine.LatestRun] : Fetch the most recent run with its track listing
//     - Feeds the export formatters
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # Detail Fetching
//
// The recommendations endpoint returns tracks without album information, so
// [Engine.Generate] runs a bounded worker pool that fetches full details per
// track behind a shared rate limiter. Failed fetches keep the recommendation
// data and are counted, never fatal.
//
// # Implementation
//
// [RecEngine] implements [Engine] with dependencies on:
//   - [services.LibraryService] : Spotify Web API client
//   - [RunStore] : Run history persistence (repositories.RunRepository)
package tasks
