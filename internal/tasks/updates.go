package tasks

import (
	"fmt"

	"github.com/desertthunder/tubeport/internal/models"
)

// ProgressUpdate represents a progress event during a migration run.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchSource Phase = iota
	ResolveEntries
	CreatePlaylist
	AddItems
	RunComplete
)

func (p Phase) String() string {
	switch p {
	case FetchSource:
		return "fetch_source"
	case ResolveEntries:
		return "resolve_entries"
	case CreatePlaylist:
		return "create_playlist"
	case AddItems:
		return "add_items"
	case RunComplete:
		return "run_complete"
	default:
		return ""
	}
}

func fetchingSourceUpdate(ref string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSource,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Fetching playlist entries from YouTube (%s)...", ref),
	}
}

func foundEntriesUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSource,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d entries", total),
	}
}

// itemUpdate reports a finished item; Data carries the [models.ProcessedItem].
func itemUpdate(step, total int, item models.ProcessedItem) ProgressUpdate {
	var message string
	switch item.Status {
	case models.StatusAccepted:
		message = fmt.Sprintf("[%d/%d] ✓ %s - %s (%.2f)", step, total, item.Result.MatchedArtist, item.Result.MatchedTitle, item.Confidence())
	default:
		message = fmt.Sprintf("[%d/%d] ✗ %s: %s", step, total, item.Entry.Label, item.FailureReason)
	}

	return ProgressUpdate{
		Phase:   ResolveEntries,
		Step:    step,
		Total:   total,
		Message: message,
		Data:    item,
	}
}

func createPlaylistUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Creating Spotify playlist %q...", name),
	}
}

func addItemsUpdate(pl *models.Playlist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddItems,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Added %d tracks to %s (ID: %s)", pl.TrackCount, pl.Name, pl.ID),
		Data:    pl,
	}
}

func runCompleteUpdate(stats models.RunStatistics) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RunComplete,
		Step:    stats.Total,
		Total:   stats.Total,
		Message: fmt.Sprintf("Done: %d accepted, %d unresolved, %d failed", stats.Accepted, stats.Unresolved, stats.Failed),
		Data:    stats,
	}
}
