// Package tasks runs a playlist migration from YouTube to Spotify with real-time progress reporting.
//
// # Core Operation
//
// [MigrationEngine.Run] drives a single run:
//
//  1. Extract entries from the source playlist ([services.Extractor])
//  2. For each entry, in source order:
//     - Parse the label into an (artist, title) identity
//     - Fill a missing artist from the cleaned publisher name
//     - Resolve against Spotify with the ordered fallback ([matching.Resolve])
//     - Score the hit against the parsed identity and apply the threshold
//  3. Create the destination playlist and add every accepted track URI ([services.Publisher])
//
// Per-entry failures, panics included, are recorded on the item and never stop the run. Extraction
// failures and empty playlists stop it before any entry is processed.
//
// # Statistics
//
// Every processed entry lands in exactly one of Accepted, Unresolved or Failed. Low-confidence
// rejections count as Unresolved and are also tallied in LowConfidence.
//
// # Cancellation
//
// The context is checked before every entry. A cancelled run keeps the items processed so far,
// skips the commit phase and returns [shared.ErrCancelled].
//
// # Progress Reporting
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking. Item updates carry the [models.ProcessedItem].
//
// # Run History
//
// The optional [RunRecorder] persists each finished run (repositories.RunRecorderAdapter). Recorder
// failures are logged and ignored.
package tasks
