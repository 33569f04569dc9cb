package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"spotify-cli/internal/formatter"
	"spotify-cli/internal/models"
	"spotify-cli/internal/services"
	"spotify-cli/internal/shared"
	"spotify-cli/internal/tasks"
	"spotify-cli/internal/ui"
)

// runView is the JSON projection of a recorded generation run.
type runView struct {
	ID         string    `json:"id"`
	Sequence   int       `json:"sequence"`
	PlaylistID string    `json:"playlist_id"`
	TrackCount int       `json:"track_count"`
	SnapshotID string    `json:"snapshot_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func newRunView(run *models.RecRun) runView {
	return runView{
		ID:         run.ID(),
		Sequence:   run.Sequence(),
		PlaylistID: run.PlaylistID(),
		TrackCount: run.TrackCount(),
		SnapshotID: run.SnapshotID(),
		CreatedAt:  run.CreatedAt(),
	}
}

// RecInit creates the managed recommendations playlist and pins its id in
// the config file when one exists.
func (r *Runner) RecInit(ctx context.Context, cmd *cli.Command) error {
	name := strings.TrimSpace(cmd.String("name"))
	if name == "" {
		name = r.config.Recommendations.PlaylistName
	}
	if name == "" {
		name = "Recommended for You"
	}

	engine, err := r.recEngine(ctx)
	if err != nil {
		return err
	}

	var result *tasks.InitResult
	err = r.withReauth(ctx, func(ctx context.Context) error {
		progressCh := make(chan tasks.ProgressUpdate, 10)
		done := make(chan struct{})
		go func() {
			defer close(done)
			for update := range progressCh {
				r.writePlain("📝 %s\n", update.Message)
			}
		}()

		res, err := engine.Initialize(ctx, progressCh, name)
		close(progressCh)
		<-done
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return err
	}

	r.writePlain("\n%s\n", ui.Success("Recommendations playlist created"))
	r.writePlain("Name: %s\n", result.Playlist.Name)
	r.writePlain("ID: %s\n", result.Playlist.ID)

	r.config.Recommendations.PlaylistID = result.Playlist.ID
	configPath := r.configFile()
	if _, statErr := os.Stat(configPath); statErr == nil {
		if saveErr := shared.SaveConfig(configPath, r.config); saveErr != nil {
			r.logger.Warn("could not save playlist id", "error", saveErr)
		} else {
			r.writePlain("%s\n", ui.Success(fmt.Sprintf("Playlist ID saved to %s", configPath)))
		}
	} else {
		r.writePlain("%s\n", ui.Hint(fmt.Sprintf("Add playlist_id = %q under [recommendations] in %s to pin it.", result.Playlist.ID, configPath)))
	}

	r.writePlain("\nNext: spotify-cli rec generate\n")
	return nil
}

// RecGenerate refreshes the managed playlist from the user's listening
// history, streaming progress as the engine works through its phases.
func (r *Runner) RecGenerate(ctx context.Context, cmd *cli.Command) error {
	timeRange, err := parseTimeRange(cmd.String("time-range"))
	if err != nil {
		return err
	}

	limit := cmd.Int("limit")
	if limit <= 0 {
		limit = r.config.Recommendations.Limit
	}

	engine, err := r.recEngine(ctx)
	if err != nil {
		return err
	}

	playlistID := strings.TrimSpace(cmd.String("playlist"))
	if playlistID == "" {
		playlistID = r.config.Recommendations.PlaylistID
	}
	if playlistID == "" {
		playlistID = latestPlaylistID(engine)
	}
	if playlistID == "" {
		return fmt.Errorf("%w: no managed playlist configured, run `spotify-cli rec init`", shared.ErrMissingArgument)
	}

	return r.withReauth(ctx, func(ctx context.Context) error {
		r.writePlain("Refreshing recommendations playlist...\n\n")

		progressCh := make(chan tasks.ProgressUpdate, 50)
		done := make(chan struct{})
		go func() {
			defer close(done)
			for update := range progressCh {
				switch update.Phase {
				case tasks.GatherSeeds:
					r.writePlain("🌱 %s\n", update.Message)
				case tasks.FetchRecommendations:
					r.writePlain("🔍 %s\n", update.Message)
				case tasks.FetchDetails:
					if update.Step == 0 {
						r.writePlain("\n🎵 %s\n", update.Message)
					} else {
						r.writePlain("   %s\n", update.Message)
					}
				case tasks.ReplaceTracks:
					r.writePlain("\n📝 %s\n", update.Message)
				case tasks.RecordRun:
					r.writePlain("💾 %s\n", update.Message)
				}
			}
		}()

		result, err := engine.Generate(ctx, progressCh, playlistID, tasks.GenerateOpts{
			Limit:     limit,
			TimeRange: timeRange,
		})
		close(progressCh)
		<-done
		if err != nil {
			return err
		}

		r.writePlain("\n")
		r.writePlainHeader("Refresh Complete")
		r.writePlain("Playlist: %s (%d tracks)\n", result.Playlist.Name, result.Run.TrackCount())
		r.writePlain("Run: #%d\n", result.Run.Sequence())
		r.writePlain("Seeds: %d tracks from listening history\n", len(result.Seeds.TrackIDs))
		if result.DetailFailures > 0 {
			r.writePlain("Details missing for %d tracks\n", result.DetailFailures)
		}
		r.writePlain("\nExport it with: spotify-cli rec export\n")

		return nil
	})
}

// RecHistory lists past generation runs from the local database.
func (r *Runner) RecHistory(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.localEngine()
	if err != nil {
		return err
	}

	runs, err := engine.History(cmd.Int("limit"))
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		r.writePlain("No runs recorded yet. Run `spotify-cli rec generate` first.\n")
		return nil
	}

	if r.jsonOut {
		views := make([]runView, 0, len(runs))
		for _, run := range runs {
			views = append(views, newRunView(run))
		}
		return r.writeJSON(views, true)
	}

	r.writePlain("Found %d runs:\n\n", len(runs))
	for _, run := range runs {
		r.writePlain("#%d  %s\n", run.Sequence(), run.CreatedAt().Format("2006-01-02 15:04"))
		r.writePlain("   Playlist: %s\n", run.PlaylistID())
		r.writePlain("   Tracks: %d\n", run.TrackCount())
		if run.SnapshotID() != "" {
			r.writePlain("   Snapshot: %s\n", run.SnapshotID())
		}
		r.writePlain("\n")
	}

	return nil
}

// RecExport writes the latest run's track listing to a file.
func (r *Runner) RecExport(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.localEngine()
	if err != nil {
		return err
	}

	run, tracks, err := engine.LatestRun()
	if err != nil {
		if errors.Is(err, shared.ErrRunNotFound) {
			return fmt.Errorf("%w: nothing to export, run `spotify-cli rec generate` first", shared.ErrRunNotFound)
		}
		return err
	}

	path, err := formatter.WriteExport(run, tracks, cmd.String("format"), cmd.String("out"))
	if err != nil {
		return err
	}

	r.writePlain("%s\n", ui.Success(fmt.Sprintf("Exported run #%d to %s", run.Sequence(), path)))
	r.writePlain("Tracks: %d\n", len(tracks))
	return nil
}

// parseTimeRange accepts the short flag forms alongside the raw API values.
func parseTimeRange(raw string) (services.TimeRange, error) {
	switch raw {
	case "", "medium":
		return services.RangeMedium, nil
	case "short":
		return services.RangeShort, nil
	case "long":
		return services.RangeLong, nil
	}
	if tr := services.TimeRange(raw); tr.Valid() {
		return tr, nil
	}
	return "", fmt.Errorf("%w: time-range takes short, medium or long, got %q", shared.ErrInvalidFlag, raw)
}

// latestPlaylistID falls back to the playlist of the most recent run.
func latestPlaylistID(engine tasks.Engine) string {
	run, _, err := engine.LatestRun()
	if err != nil || run == nil {
		return ""
	}
	return run.PlaylistID()
}

// recCommand handles recommendations playlist operations
func recCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "rec",
		Usage: "Manage the recommendations playlist",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Create the managed recommendations playlist",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "Playlist name"},
				},
				Action: r.RecInit,
			},
			{
				Name:  "generate",
				Usage: "Refresh the playlist from your listening history",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Usage: "Number of tracks to request"},
					&cli.StringFlag{Name: "playlist", Usage: "Playlist id to refresh"},
					&cli.StringFlag{Name: "time-range", Usage: "Listening window: short, medium or long", Value: "medium"},
				},
				Action: r.RecGenerate,
			},
			{
				Name:  "history",
				Usage: "List past generation runs",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Usage: "Runs to show", Value: 10},
				},
				Action: r.RecHistory,
			},
			{
				Name:  "export",
				Usage: "Export the latest run to a file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "csv, markdown or text", Value: formatter.FormatText},
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output file path"},
				},
				Action: r.RecExport,
			},
		},
	}
}
