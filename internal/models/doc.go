// Package models defines domain entities and persistence interfaces for the tubeport playlist migration tool.
//
// The package contains two categories of types:
//
// 1. Pipeline values: Lightweight structs passed between the matching core and its collaborators
//   - [RawEntry] : One source playlist entry (video label and uploading channel)
//   - [ParsedIdentity] : The (artist, title) pair derived from a label
//   - [ResolutionResult] : A single destination catalog search hit
//   - [MatchOutcome] : Confidence score and acceptance decision for a hit
//   - [ProcessedItem] : Per-entry aggregate feeding the report and the commit set
//   - [RunStatistics] : Counters and timestamps for one migration run
//
// 2. Persistent Entities: Database-backed models recording run history
//   - [MigrationRun] : One migration run with its final statistics
//   - [RunItem] : One processed entry belonging to a run
//
// All persistent entities implement the Model interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
