// package tasks implements the recommendation engine behind the rec commands.
//
// The core abstraction is Engine, which orchestrates playlist initialization, generation runs, and run history lookups.
// Operations emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"fmt"

	"spotify-cli/internal/models"
	"spotify-cli/internal/services"
	"spotify-cli/internal/shared"
)

// InitResult contains the outcome of initializing the managed playlist.
type InitResult struct {
	Playlist *services.Playlist // Created playlist
	Run      *models.RecRun     // History row recording the creation
}

// GenerateResult contains all data from a full generation run.
type GenerateResult struct {
	Run            *models.RecRun     // Recorded history row
	Playlist       *services.Playlist // Managed playlist after replacement
	Tracks         []services.Track   // Tracks written to the playlist, in order
	Seeds          services.SeedSet   // Seeds the recommendations were derived from
	DetailFailures int                // Tracks whose detail fetch failed
}

// Engine defines the operations behind the rec command group.
type Engine interface {
	// Initialize creates the managed recommendations playlist on the user's account and records the action.
	Initialize(ctx context.Context, progress chan<- ProgressUpdate, name string) (*InitResult, error)

	// Generate refreshes the managed playlist by gathering seeds, fetching recommendations, and replacing the playlist contents.
	Generate(ctx context.Context, progress chan<- ProgressUpdate, playlistID string, opts GenerateOpts) (*GenerateResult, error)

	// History returns past generation runs, newest first.
	History(limit int) ([]*models.RecRun, error)

	// LatestRun returns the most recent run together with its recorded track listing.
	LatestRun() (*models.RecRun, []models.RunTrack, error)
}

// RunStore defines the persistence operations the engine needs for run history.
// This abstraction allows for easier testing and decoupling from concrete implementation.
type RunStore interface {
	Create(run *models.RecRun) error
	Latest() (*models.RecRun, error)
	List(criteria map[string]any) ([]*models.RecRun, error)
	SaveTracks(runID string, tracks []models.RunTrack) error
	Tracks(runID string) ([]models.RunTrack, error)
}

// RecEngine implements Engine for the managed recommendations playlist.
// Contains dependencies on the library service and the run history store.
type RecEngine struct {
	library services.LibraryService
	runs    RunStore
}

// NewRecEngine creates a new RecEngine with the provided dependencies.
func NewRecEngine(library services.LibraryService, runs RunStore) *RecEngine {
	return &RecEngine{
		library: library,
		runs:    runs,
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *RecEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full or closed, skip this update
	}
}

// Initialize creates the managed recommendations playlist and records a run row for it.
func (e *RecEngine) Initialize(ctx context.Context, progress chan<- ProgressUpdate, name string) (*InitResult, error) {
	if e.library == nil {
		return nil, fmt.Errorf("%w: library service not initialized", shared.ErrServiceUnavailable)
	}
	if e.runs == nil {
		return nil, fmt.Errorf("%w: run store not initialized", shared.ErrServiceUnavailable)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: playlist name", shared.ErrMissingArgument)
	}

	e.sendProgress(progress, createPlaylistUpdate(1, 2, name))

	playlist, err := e.library.CreatePlaylist(ctx, name, "Managed by spotify-cli. Refreshed by rec generate.", false)
	if err != nil {
		return nil, err
	}

	run := models.NewRecRun(0, playlist.ID, "", 0, playlist.SnapshotID)
	if err := e.runs.Create(run); err != nil {
		return nil, fmt.Errorf("playlist created but recording it failed: %w", err)
	}

	e.sendProgress(progress, playlistCreatedUpdate(2, 2, playlist))

	return &InitResult{Playlist: playlist, Run: run}, nil
}

// History returns past runs from the local database, newest first.
// A limit of zero or less returns all runs.
func (e *RecEngine) History(limit int) ([]*models.RecRun, error) {
	if e.runs == nil {
		return nil, fmt.Errorf("%w: run store not initialized", shared.ErrServiceUnavailable)
	}

	criteria := map[string]any{}
	if limit > 0 {
		criteria["limit"] = limit
	}

	return e.runs.List(criteria)
}

// LatestRun returns the most recent run and its recorded track listing.
func (e *RecEngine) LatestRun() (*models.RecRun, []models.RunTrack, error) {
	if e.runs == nil {
		return nil, nil, fmt.Errorf("%w: run store not initialized", shared.ErrServiceUnavailable)
	}

	run, err := e.runs.Latest()
	if err != nil {
		return nil, nil, err
	}

	tracks, err := e.runs.Tracks(run.ID())
	if err != nil {
		return nil, nil, err
	}

	return run, tracks, nil
}
