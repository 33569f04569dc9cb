package tasks

import (
	"fmt"

	"spotify-cli/internal/models"
	"spotify-cli/internal/services"
)

// ProgressUpdate represents a progress event during a long-running operation.
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
	GatherSeeds Phase = iota
	FetchRecommendations
	FetchDetails
	ReplaceTracks
	RecordRun
	CreatePlaylist
)

func (p Phase) String() string {
	switch p {
	case GatherSeeds:
		return "gather_seeds"
	case FetchRecommendations:
		return "fetch_recommendations"
	case FetchDetails:
		return "fetch_details"
	case ReplaceTracks:
		return "replace_tracks"
	case RecordRun:
		return "record_run"
	case CreatePlaylist:
		return "create_playlist"
	default:
		return ""
	}
}

func gatherSeedsUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   GatherSeeds,
		Step:    step,
		Total:   total,
		Message: "Gathering seeds from listening history...",
	}
}

func seedsGatheredUpdate(step, total int, seeds services.SeedSet) ProgressUpdate {
	return ProgressUpdate{
		Phase:   GatherSeeds,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Seeding from %d tracks", seeds.Size()),
		Data:    seeds,
	}
}

func fetchRecommendationsUpdate(step, total, limit int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchRecommendations,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Fetching up to %d recommendations...", limit),
	}
}

func recommendationsFoundUpdate(step, total, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchRecommendations,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Found %d recommendations", count),
	}
}

func fetchDetailsUpdate(step, total int, tr *services.Track) ProgressUpdate {
	if tr == nil {
		return ProgressUpdate{
			Phase:   FetchDetails,
			Step:    step,
			Total:   total,
			Message: "Fetching track details...",
		}
	}
	return ProgressUpdate{
		Phase:   FetchDetails,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s - %s", step, total, tr.Artist, tr.Title),
	}
}

func detailCompletedUpdate(step, total int, title string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchDetails,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s", step, total, title),
	}
}

func detailFailedUpdate(step, total int, title string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchDetails,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, title, err),
	}
}

func replaceTracksUpdate(step, total, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ReplaceTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Replacing playlist contents with %d tracks...", count),
	}
}

func recordRunUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RecordRun,
		Step:    step,
		Total:   total,
		Message: "Recording run...",
	}
}

func runRecordedUpdate(step, total int, run *models.RecRun) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RecordRun,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Run #%d recorded (%d tracks)", run.Sequence(), run.TrackCount()),
		Data:    run,
	}
}

func createPlaylistUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Creating playlist %q...", name),
	}
}

func playlistCreatedUpdate(step, total int, pl *services.Playlist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Playlist created: %s (ID: %s)", pl.Name, pl.ID),
		Data:    pl,
	}
}
