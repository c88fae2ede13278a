// package models defines the data model for the playlist migration pipeline
package models

import (
	"time"
)

// Model defines the base interface for all persistent models in the migration tool.
// Implementations include MigrationRun and RunItem.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Update(model T) error                      // Update modifies an existing model in the database
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// Failure reasons recorded on items that did not make it into the commit set.
const (
	ReasonNoMatch       = "no match found"
	ReasonLowConfidence = "low confidence match (%.2f)"
)

// RawEntry is one source playlist item as returned by the extractor.
type RawEntry struct {
	Label     string `json:"label"`     // Video title
	Publisher string `json:"publisher"` // Uploading channel, may be empty
}

// ParsedIdentity is the (artist, title) pair derived from a label.
type ParsedIdentity struct {
	Artist string `json:"artist"`
	Title  string `json:"title"`
}

// Empty reports whether neither field carries a value.
func (p ParsedIdentity) Empty() bool {
	return p.Artist == "" && p.Title == ""
}

// ResolutionResult is a single destination catalog search hit.
type ResolutionResult struct {
	MatchedArtist string `json:"matched_artist"`
	MatchedTitle  string `json:"matched_title"`
	ExternalID    string `json:"external_id"`        // Spotify track URI
	Strategy      string `json:"strategy,omitempty"` // Resolution attempt that produced the hit
}

// MatchOutcome holds the confidence for a hit and whether it cleared the threshold.
type MatchOutcome struct {
	Confidence float64 `json:"confidence"`
	Accepted   bool    `json:"accepted"`
}

// ItemStatus classifies a finished [ProcessedItem]. Exactly one applies per item.
type ItemStatus int

const (
	StatusPending    ItemStatus = iota
	StatusAccepted              // result present and accepted
	StatusRejected              // result present, confidence below threshold
	StatusUnresolved            // no result from any attempt
	StatusFailed                // unexpected failure while processing
)

func (s ItemStatus) String() string {
	switch s {
	case StatusAccepted:
		return "accepted"
	case StatusRejected:
		return "rejected"
	case StatusUnresolved:
		return "unresolved"
	case StatusFailed:
		return "failed"
	default:
		return "pending"
	}
}

func (s ItemStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *ItemStatus) UnmarshalText(b []byte) error {
	*s = ParseItemStatus(string(b))
	return nil
}

// ParseItemStatus is the inverse of [ItemStatus.String].
func ParseItemStatus(s string) ItemStatus {
	switch s {
	case "accepted":
		return StatusAccepted
	case "rejected":
		return StatusRejected
	case "unresolved":
		return StatusUnresolved
	case "failed":
		return StatusFailed
	default:
		return StatusPending
	}
}

// ProcessedItem is the per-entry record produced by the orchestrator.
//
// Result and Outcome are nil when nothing was found or the item failed.
type ProcessedItem struct {
	Entry         RawEntry          `json:"entry"`
	Identity      ParsedIdentity    `json:"identity"`
	Result        *ResolutionResult `json:"result,omitempty"`
	Outcome       *MatchOutcome     `json:"outcome,omitempty"`
	FailureReason string            `json:"failure_reason,omitempty"`
	Status        ItemStatus        `json:"status"`
}

// Accepted reports whether the item belongs in the commit set.
func (p ProcessedItem) Accepted() bool {
	return p.Status == StatusAccepted && p.Result != nil && p.Outcome != nil && p.Outcome.Accepted
}

// Confidence returns the outcome confidence, or zero when no candidate was scored.
func (p ProcessedItem) Confidence() float64 {
	if p.Outcome == nil {
		return 0
	}
	return p.Outcome.Confidence
}

// ExternalID returns the matched track URI, or an empty string.
func (p ProcessedItem) ExternalID() string {
	if p.Result == nil {
		return ""
	}
	return p.Result.ExternalID
}

// RunState is the lifecycle state of one migration run.
type RunState int

const (
	NotStarted RunState = iota
	Running
	Finished
)

func (s RunState) String() string {
	switch s {
	case Running:
		return "running"
	case Finished:
		return "finished"
	default:
		return "not_started"
	}
}

// RunStatistics aggregates item outcomes for a run.
//
// Accepted + Unresolved + Failed always equals Total. Rejected items count as
// Unresolved; LowConfidence is the subset of Unresolved that had a candidate.
type RunStatistics struct {
	Total         int       `json:"total"`
	Accepted      int       `json:"accepted"`
	Unresolved    int       `json:"unresolved"`
	Failed        int       `json:"failed"`
	LowConfidence int       `json:"low_confidence"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
}

// Record counts a finished item.
func (s *RunStatistics) Record(item ProcessedItem) {
	s.Total++
	switch item.Status {
	case StatusAccepted:
		s.Accepted++
	case StatusRejected:
		s.Unresolved++
		s.LowConfidence++
	case StatusUnresolved:
		s.Unresolved++
	default:
		s.Failed++
	}
}

// Duration is the wall time between start and finish, or zero for an unfinished run.
func (s RunStatistics) Duration() time.Duration {
	if s.StartedAt.IsZero() || s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// SuccessRate is the accepted share of processed items as a percentage.
func (s RunStatistics) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Accepted) / float64(s.Total) * 100
}

// AveragePerItem is the mean processing time per item.
func (s RunStatistics) AveragePerItem() time.Duration {
	if s.Total == 0 {
		return 0
	}
	return s.Duration() / time.Duration(s.Total)
}

// Playlist is a destination playlist created by the commit phase.
type Playlist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Public      bool   `json:"public"`
	TrackCount  int    `json:"track_count"`
}
