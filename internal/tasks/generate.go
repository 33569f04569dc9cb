package tasks

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"spotify-cli/internal/models"
	"spotify-cli/internal/services"
	"spotify-cli/internal/shared"
)

// GenerateOpts contains configuration for a generation run.
type GenerateOpts struct {
	Limit      int                // Tracks to request (default: 20, max: 100)
	NumWorkers int                // Concurrent detail fetchers (default: 5, max: 10)
	RateLimit  float64            // Requests per second for detail fetches (default: 5)
	TimeRange  services.TimeRange // Listening window for top-track seeds (default: medium)
}

// Seed counts per source. Spotify accepts five seeds in total, so top
// tracks get three slots and recently played tracks fill the rest.
const (
	topSeedCount    = 3
	recentSeedCount = services.MaxSeeds - topSeedCount
)

// trackDetailJob is a unit of work for the detail fetch worker pool.
type trackDetailJob struct {
	index int
	track services.Track
}

// trackDetailResult is the outcome of fetching details for one track.
type trackDetailResult struct {
	index int
	track services.Track
	err   error
}

// seedSummary is the JSON shape recorded in the run row's seed_summary column.
type seedSummary struct {
	TrackIDs []string `json:"track_ids"`
}

// Generate refreshes the managed playlist with seeded recommendations and records a run.
//
// This method implements a worker pool pattern to fetch album details for the
// recommended tracks, since the recommendations endpoint returns them without
// album information. It respects API rate limits, handles partial failures
// gracefully, and records the final track listing in the run history.
func (e *RecEngine) Generate(
	ctx context.Context,
	progress chan<- ProgressUpdate,
	playlistID string,
	opts GenerateOpts,
) (*GenerateResult, error) {
	if e.library == nil {
		return nil, fmt.Errorf("%w: library service not initialized", shared.ErrServiceUnavailable)
	}
	if e.runs == nil {
		return nil, fmt.Errorf("%w: run store not initialized", shared.ErrServiceUnavailable)
	}
	if playlistID == "" {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 5
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}
	if opts.TimeRange == "" {
		opts.TimeRange = services.RangeMedium
	}

	e.sendProgress(progress, gatherSeedsUpdate(1, 2))

	seeds, err := e.gatherSeeds(ctx, opts.TimeRange)
	if err != nil {
		return nil, err
	}

	e.sendProgress(progress, seedsGatheredUpdate(2, 2, seeds))
	e.sendProgress(progress, fetchRecommendationsUpdate(1, 2, opts.Limit))

	recommended, err := e.library.Recommendations(ctx, seeds, opts.Limit)
	if err != nil {
		return nil, err
	}
	if len(recommended) == 0 {
		return nil, fmt.Errorf("%w: no recommendations for the current seeds", shared.ErrTrackNotFound)
	}

	e.sendProgress(progress, recommendationsFoundUpdate(2, 2, len(recommended)))

	tracks, failures := e.fetchDetails(ctx, progress, recommended, opts)

	e.sendProgress(progress, replaceTracksUpdate(1, 2, len(tracks)))

	trackIDs := make([]string, len(tracks))
	for i, track := range tracks {
		trackIDs[i] = track.ID
	}
	if err := e.library.ReplacePlaylistTracks(ctx, playlistID, trackIDs); err != nil {
		return nil, err
	}

	playlist, err := e.library.Playlist(ctx, playlistID)
	if err != nil {
		return nil, fmt.Errorf("playlist updated but refreshing it failed: %w", err)
	}

	e.sendProgress(progress, recordRunUpdate(2, 2))

	summary, err := shared.MarshalJSON(seedSummary{TrackIDs: seeds.TrackIDs}, false)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal seed summary: %w", err)
	}

	run := models.NewRecRun(0, playlistID, string(summary), len(tracks), playlist.SnapshotID)
	if err := e.runs.Create(run); err != nil {
		return nil, fmt.Errorf("playlist updated but recording the run failed: %w", err)
	}

	runTracks := make([]models.RunTrack, len(tracks))
	for i, track := range tracks {
		runTracks[i] = models.RunTrack{
			TrackID:    track.ID,
			Title:      track.Title,
			Artist:     track.Artist,
			Album:      track.Album,
			DurationMS: track.DurationMS,
		}
	}
	if err := e.runs.SaveTracks(run.ID(), runTracks); err != nil {
		return nil, fmt.Errorf("run recorded but saving its tracks failed: %w", err)
	}

	e.sendProgress(progress, runRecordedUpdate(2, 2, run))

	return &GenerateResult{
		Run:            run,
		Playlist:       playlist,
		Tracks:         tracks,
		Seeds:          seeds,
		DetailFailures: failures,
	}, nil
}

// gatherSeeds builds a seed set from the user's top tracks and recently
// played tracks, deduplicated by track ID.
func (e *RecEngine) gatherSeeds(ctx context.Context, timeRange services.TimeRange) (services.SeedSet, error) {
	var seeds services.SeedSet

	top, err := e.library.TopTracks(ctx, timeRange, topSeedCount)
	if err != nil {
		return seeds, fmt.Errorf("failed to fetch top tracks: %w", err)
	}

	recent, err := e.library.RecentlyPlayed(ctx, 2*recentSeedCount)
	if err != nil {
		return seeds, fmt.Errorf("failed to fetch recently played: %w", err)
	}

	seen := make(map[string]bool)
	for _, track := range top {
		if len(seeds.TrackIDs) >= topSeedCount {
			break
		}
		if track.ID == "" || seen[track.ID] {
			continue
		}
		seen[track.ID] = true
		seeds.TrackIDs = append(seeds.TrackIDs, track.ID)
	}
	for _, track := range recent {
		if len(seeds.TrackIDs) >= services.MaxSeeds {
			break
		}
		if track.ID == "" || seen[track.ID] {
			continue
		}
		seen[track.ID] = true
		seeds.TrackIDs = append(seeds.TrackIDs, track.ID)
	}

	if seeds.Size() == 0 {
		return seeds, fmt.Errorf("%w: no seed tracks in listening history", shared.ErrInvalidInput)
	}

	return seeds, nil
}

// fetchDetails fetches full track details concurrently through a bounded
// worker pool. Tracks whose detail fetch fails keep their recommendation
// data, so a flaky track never sinks the run. The returned slice preserves
// recommendation order.
func (e *RecEngine) fetchDetails(
	ctx context.Context,
	progress chan<- ProgressUpdate,
	recommended []services.Track,
	opts GenerateOpts,
) ([]services.Track, int) {
	total := len(recommended)
	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan trackDetailJob, total)
	results := make(chan trackDetailResult, total)

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go e.detailWorker(ctx, &wg, limiter, jobs, results)
	}

	e.sendProgress(progress, fetchDetailsUpdate(0, total, nil))

	go func() {
		for i, track := range recommended {
			select {
			case <-ctx.Done():
				close(jobs)
				return
			default:
			}
			jobs <- trackDetailJob{index: i, track: track}
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	tracks := make([]services.Track, total)
	copy(tracks, recommended)

	completed := 0
	failures := 0
	for res := range results {
		completed++
		if res.err != nil {
			failures++
			e.sendProgress(progress, detailFailedUpdate(completed, total, tracks[res.index].Title, res.err))
			continue
		}
		tracks[res.index] = res.track
		e.sendProgress(progress, detailCompletedUpdate(completed, total, res.track.Title))
	}

	return tracks, failures
}

// detailWorker is a worker goroutine that fetches track details from the jobs channel.
func (e *RecEngine) detailWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	limiter *rate.Limiter,
	jobs <-chan trackDetailJob,
	results chan<- trackDetailResult,
) {
	defer wg.Done()

	for job := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := limiter.Wait(ctx); err != nil {
			results <- trackDetailResult{index: job.index, err: err}
			continue
		}

		full, err := e.library.Track(ctx, job.track.ID)
		if err != nil {
			results <- trackDetailResult{index: job.index, err: err}
			continue
		}
		results <- trackDetailResult{index: job.index, track: *full}
	}
}
