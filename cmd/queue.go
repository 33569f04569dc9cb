package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"spotify-cli/internal/services"
	"spotify-cli/internal/shared"
	"spotify-cli/internal/ui"
)

// queueView is the JSON projection of the playback queue.
type queueView struct {
	NowPlaying *trackView  `json:"now_playing,omitempty"`
	UpNext     []trackView `json:"up_next"`
}

// QueueShow prints the currently playing track and the upcoming tracks.
func (r *Runner) QueueShow(ctx context.Context, cmd *cli.Command) error {
	player, err := r.playerService(ctx)
	if err != nil {
		return err
	}

	count := 10
	if raw := strings.TrimSpace(cmd.StringArg("count")); raw != "" {
		count, err = strconv.Atoi(raw)
		if err != nil || count < 1 {
			return fmt.Errorf("%w: count takes a positive number, got %q", shared.ErrInvalidArgument, raw)
		}
	}

	return r.withReauth(ctx, func(ctx context.Context) error {
		snapshot, err := player.Queue(ctx)
		if err != nil {
			return err
		}

		if r.jsonOut {
			view := queueView{UpNext: make([]trackView, 0, len(snapshot.UpNext))}
			if snapshot.NowPlaying != nil {
				now := newTrackView(*snapshot.NowPlaying)
				view.NowPlaying = &now
			}
			for _, t := range snapshot.UpNext {
				view.UpNext = append(view.UpNext, newTrackView(t))
			}
			return r.writeJSON(view, true)
		}

		if snapshot.NowPlaying == nil && len(snapshot.UpNext) == 0 {
			r.writePlain("The queue is empty.\n")
			return nil
		}

		if snapshot.NowPlaying != nil {
			r.writePlain("Now playing: %s - %s [%s]\n",
				snapshot.NowPlaying.Artist,
				snapshot.NowPlaying.Title,
				shared.FormatDuration(snapshot.NowPlaying.DurationMS))
		}

		if len(snapshot.UpNext) > 0 {
			upNext := snapshot.UpNext
			if len(upNext) > count-1 && snapshot.NowPlaying != nil {
				upNext = upNext[:count-1]
			} else if len(upNext) > count {
				upNext = upNext[:count]
			}

			r.writePlain("\nUp next:\n")
			for i, t := range upNext {
				r.writePlain("%d. %s - %s [%s]\n", i+1, t.Artist, t.Title, shared.FormatDuration(t.DurationMS))
			}
		}

		return nil
	})
}

// QueueAdd appends a track to the playback queue. The track may be a bare
// id, a share link, a spotify: uri, or a search query.
func (r *Runner) QueueAdd(ctx context.Context, cmd *cli.Command) error {
	player, err := r.playerService(ctx)
	if err != nil {
		return err
	}

	raw := strings.TrimSpace(cmd.StringArg("track"))
	if raw == "" {
		return fmt.Errorf("%w: track id, url or search query", shared.ErrMissingArgument)
	}

	return r.withReauth(ctx, func(ctx context.Context) error {
		track, err := resolveTrack(ctx, player, raw)
		if err != nil {
			return err
		}

		if err := player.QueueTrack(ctx, track.ID); err != nil {
			return err
		}

		if track.Title != "" {
			r.writePlain("%s\n", ui.Success(fmt.Sprintf("Queued: %s - %s", track.Artist, track.Title)))
		} else {
			r.writePlain("%s\n", ui.Success(fmt.Sprintf("Queued track %s", track.ID)))
		}
		return nil
	})
}

// resolveTrack turns user input into a track. Ids, share links and uris are
// used directly; anything else goes through search and takes the first hit.
func resolveTrack(ctx context.Context, player services.PlayerService, raw string) (*services.Track, error) {
	if id, ok := parseTrackID(raw); ok {
		return &services.Track{ID: id}, nil
	}

	matches, err := player.SearchTracks(ctx, raw, 1)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: no results for %q", shared.ErrTrackNotFound, raw)
	}

	return &matches[0], nil
}

// parseTrackID extracts a track id from a bare id, a spotify:track: uri, or
// an open.spotify.com share link.
func parseTrackID(raw string) (string, bool) {
	if id, ok := strings.CutPrefix(raw, "spotify:track:"); ok {
		return id, isTrackID(id)
	}

	if i := strings.Index(raw, "open.spotify.com/track/"); i >= 0 {
		id := raw[i+len("open.spotify.com/track/"):]
		if j := strings.IndexAny(id, "?#"); j >= 0 {
			id = id[:j]
		}
		return id, isTrackID(id)
	}

	if isTrackID(raw) {
		return raw, true
	}

	return "", false
}

// isTrackID reports whether s looks like a Spotify track id, a 22 character
// base62 string.
func isTrackID(s string) bool {
	if len(s) != 22 {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		default:
			return false
		}
	}
	return true
}

// queueCommand handles queue operations
func queueCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "queue",
		Aliases: []string{"q"},
		Usage:   "Inspect and extend the playback queue",
		Action:  r.QueueShow,
		Commands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "Show the current track and what plays next",
				Arguments: []cli.Argument{&cli.StringArg{Name: "count"}},
				Action:    r.QueueShow,
			},
			{
				Name:      "add",
				Usage:     "Add a track by id, link or search query",
				Arguments: []cli.Argument{&cli.StringArg{Name: "track"}},
				Action:    r.QueueAdd,
			},
		},
	}
}
