package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"spotify-cli/internal/services"
	"spotify-cli/internal/shared"
	"spotify-cli/internal/ui"
)

// trackView is the JSON projection of a track.
type trackView struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	Album      string `json:"album,omitempty"`
	DurationMS int    `json:"duration_ms"`
	URI        string `json:"uri,omitempty"`
}

func newTrackView(t services.Track) trackView {
	return trackView{
		ID:         t.ID,
		Title:      t.Title,
		Artist:     t.Artist,
		Album:      t.Album,
		DurationMS: t.DurationMS,
		URI:        t.URI,
	}
}

// deviceView is the JSON projection of a playback device.
type deviceView struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	Active        bool   `json:"active"`
	Restricted    bool   `json:"restricted,omitempty"`
	VolumePercent int    `json:"volume_percent"`
}

func newDeviceView(d services.Device) deviceView {
	return deviceView{
		ID:            d.ID,
		Name:          d.Name,
		Type:          d.Type,
		Active:        d.Active,
		Restricted:    d.Restricted,
		VolumePercent: d.VolumePercent,
	}
}

// playbackView is the JSON projection of the player snapshot.
type playbackView struct {
	Playing    bool       `json:"playing"`
	ProgressMS int        `json:"progress_ms"`
	Shuffle    bool       `json:"shuffle"`
	Repeat     string     `json:"repeat"`
	Device     deviceView `json:"device"`
	Track      *trackView `json:"track,omitempty"`
}

func newPlaybackView(state *services.PlaybackState) playbackView {
	view := playbackView{
		Playing:    state.Playing,
		ProgressMS: state.ProgressMS,
		Shuffle:    state.ShuffleState,
		Repeat:     state.RepeatState,
		Device:     newDeviceView(state.Device),
	}
	if state.Track != nil {
		track := newTrackView(*state.Track)
		view.Track = &track
	}
	return view
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

// PlaybackShow prints a snapshot of the active player.
func (r *Runner) PlaybackShow(ctx context.Context, cmd *cli.Command) error {
	player, err := r.playerService(ctx)
	if err != nil {
		return err
	}

	return r.withReauth(ctx, func(ctx context.Context) error {
		state, err := player.CurrentPlayback(ctx)
		if err != nil {
			return err
		}

		if state.Track == nil {
			r.writePlain("Nothing is playing.\n")
			return nil
		}

		if r.jsonOut {
			return r.writeJSON(newPlaybackView(state), true)
		}

		verb := "Paused"
		if state.Playing {
			verb = "Playing"
		}

		r.writePlain("Device: %s (%s)\n", state.Device.Name, state.Device.Type)
		r.writePlain("Track: %s - %s\n", state.Track.Artist, state.Track.Title)
		if state.Track.Album != "" {
			r.writePlain("Album: %s\n", state.Track.Album)
		}
		r.writePlain("State: %s %s / %s\n", verb,
			shared.FormatDuration(state.ProgressMS),
			shared.FormatDuration(state.Track.DurationMS))
		r.writePlain("Volume: %d%%\n", state.Device.VolumePercent)
		r.writePlain("Shuffle: %s\n", onOff(state.ShuffleState))
		r.writePlain("Repeat: %s\n", state.RepeatState)

		return nil
	})
}

// PlaybackPlay resumes playback, or starts a specific track when one is
// given as an id, share link or search query.
func (r *Runner) PlaybackPlay(ctx context.Context, cmd *cli.Command) error {
	player, err := r.playerService(ctx)
	if err != nil {
		return err
	}

	raw := strings.TrimSpace(cmd.StringArg("track"))

	return r.withReauth(ctx, func(ctx context.Context) error {
		if raw == "" {
			if err := player.Play(ctx); err != nil {
				return err
			}
			r.writePlain("%s\n", ui.Success("Playback resumed"))
			return nil
		}

		track, err := resolveTrack(ctx, player, raw)
		if err != nil {
			return err
		}

		if err := player.PlayTrack(ctx, track.ID); err != nil {
			return err
		}

		if track.Title != "" {
			r.writePlain("%s\n", ui.Success(fmt.Sprintf("Playing %s - %s", track.Artist, track.Title)))
		} else {
			r.writePlain("%s\n", ui.Success(fmt.Sprintf("Playing track %s", track.ID)))
		}
		return nil
	})
}

// PlaybackPause pauses the active device.
func (r *Runner) PlaybackPause(ctx context.Context, cmd *cli.Command) error {
	player, err := r.playerService(ctx)
	if err != nil {
		return err
	}

	return r.withReauth(ctx, func(ctx context.Context) error {
		if err := player.Pause(ctx); err != nil {
			return err
		}
		r.writePlain("%s\n", ui.Success("Playback paused"))
		return nil
	})
}

// PlaybackNext skips to the next track.
func (r *Runner) PlaybackNext(ctx context.Context, cmd *cli.Command) error {
	player, err := r.playerService(ctx)
	if err != nil {
		return err
	}

	return r.withReauth(ctx, func(ctx context.Context) error {
		if err := player.Next(ctx); err != nil {
			return err
		}
		r.writePlain("%s\n", ui.Success("Skipped to next track"))
		return nil
	})
}

// PlaybackPrevious skips back to the previous track.
func (r *Runner) PlaybackPrevious(ctx context.Context, cmd *cli.Command) error {
	player, err := r.playerService(ctx)
	if err != nil {
		return err
	}

	return r.withReauth(ctx, func(ctx context.Context) error {
		if err := player.Previous(ctx); err != nil {
			return err
		}
		r.writePlain("%s\n", ui.Success("Returned to previous track"))
		return nil
	})
}

// PlaybackRestart seeks to the start of the current track.
func (r *Runner) PlaybackRestart(ctx context.Context, cmd *cli.Command) error {
	player, err := r.playerService(ctx)
	if err != nil {
		return err
	}

	return r.withReauth(ctx, func(ctx context.Context) error {
		if err := player.Restart(ctx); err != nil {
			return err
		}
		r.writePlain("%s\n", ui.Success("Restarted current track"))
		return nil
	})
}

// PlaybackShuffle turns shuffle mode on or off.
func (r *Runner) PlaybackShuffle(ctx context.Context, cmd *cli.Command) error {
	player, err := r.playerService(ctx)
	if err != nil {
		return err
	}

	mode := strings.TrimSpace(cmd.StringArg("mode"))
	if mode == "" {
		return fmt.Errorf("%w: shuffle takes on or off", shared.ErrMissingArgument)
	}

	var on bool
	switch mode {
	case "on":
		on = true
	case "off":
		on = false
	default:
		return fmt.Errorf("%w: shuffle takes on or off, got %q", shared.ErrInvalidArgument, mode)
	}

	return r.withReauth(ctx, func(ctx context.Context) error {
		if err := player.SetShuffle(ctx, on); err != nil {
			return err
		}
		r.writePlain("%s\n", ui.Success(fmt.Sprintf("Shuffle %s", mode)))
		return nil
	})
}

// PlaybackRepeat sets the repeat mode.
func (r *Runner) PlaybackRepeat(ctx context.Context, cmd *cli.Command) error {
	player, err := r.playerService(ctx)
	if err != nil {
		return err
	}

	mode := strings.TrimSpace(cmd.StringArg("mode"))
	if mode == "" {
		return fmt.Errorf("%w: repeat takes off, context or track", shared.ErrMissingArgument)
	}

	switch mode {
	case services.RepeatOff, services.RepeatContext, services.RepeatTrack:
	default:
		return fmt.Errorf("%w: repeat takes off, context or track, got %q", shared.ErrInvalidArgument, mode)
	}

	return r.withReauth(ctx, func(ctx context.Context) error {
		if err := player.SetRepeat(ctx, mode); err != nil {
			return err
		}
		r.writePlain("%s\n", ui.Success(fmt.Sprintf("Repeat set to %s", mode)))
		return nil
	})
}

// PlaybackVolume sets the device volume.
func (r *Runner) PlaybackVolume(ctx context.Context, cmd *cli.Command) error {
	player, err := r.playerService(ctx)
	if err != nil {
		return err
	}

	raw := strings.TrimSpace(cmd.StringArg("percent"))
	if raw == "" {
		return fmt.Errorf("%w: volume takes a percentage between 0 and 100", shared.ErrMissingArgument)
	}

	percent, err := strconv.Atoi(raw)
	if err != nil || percent < 0 || percent > 100 {
		return fmt.Errorf("%w: volume takes a percentage between 0 and 100, got %q", shared.ErrInvalidArgument, raw)
	}

	return r.withReauth(ctx, func(ctx context.Context) error {
		if err := player.SetVolume(ctx, percent); err != nil {
			return err
		}
		r.writePlain("%s\n", ui.Success(fmt.Sprintf("Volume set to %d%%", percent)))
		return nil
	})
}

// PlaybackDevices lists the devices registered with the account.
func (r *Runner) PlaybackDevices(ctx context.Context, cmd *cli.Command) error {
	player, err := r.playerService(ctx)
	if err != nil {
		return err
	}

	return r.withReauth(ctx, func(ctx context.Context) error {
		devices, err := player.Devices(ctx)
		if err != nil {
			return err
		}

		if r.jsonOut {
			views := make([]deviceView, 0, len(devices))
			for _, d := range devices {
				views = append(views, newDeviceView(d))
			}
			return r.writeJSON(views, true)
		}

		if len(devices) == 0 {
			r.writePlain("No devices found. Open Spotify on a device first.\n")
			return nil
		}

		r.writePlain("Found %d devices:\n\n", len(devices))
		for i, d := range devices {
			marker := " "
			if d.Active {
				marker = "▶"
			}
			r.writePlain("%d. %s %s (%s)\n", i+1, marker, d.Name, d.Type)
			r.writePlain("   ID: %s\n", d.ID)
			r.writePlain("   Volume: %d%%\n", d.VolumePercent)
			if d.Restricted {
				r.writePlain("   Restricted: yes\n")
			}
			r.writePlain("\n")
		}

		return nil
	})
}

// PlaybackTransfer moves playback to another device. With no argument it
// opens an interactive picker.
func (r *Runner) PlaybackTransfer(ctx context.Context, cmd *cli.Command) error {
	player, err := r.playerService(ctx)
	if err != nil {
		return err
	}

	target := strings.TrimSpace(cmd.StringArg("device"))

	return r.withReauth(ctx, func(ctx context.Context) error {
		device, err := r.pickDevice(ctx, player, target)
		if err != nil {
			return err
		}
		if device == nil {
			r.writePlain("No device selected.\n")
			return nil
		}

		if err := player.TransferPlayback(ctx, device.ID); err != nil {
			return err
		}

		r.writePlain("%s\n", ui.Success(fmt.Sprintf("Playback transferred to %s", device.Name)))
		return nil
	})
}

// pickDevice resolves target to a device by id or name, or runs the
// interactive picker when target is empty. A nil device with a nil error
// means the picker was dismissed.
func (r *Runner) pickDevice(ctx context.Context, player services.PlayerService, target string) (*services.Device, error) {
	if target == "" {
		picker := ui.NewDevicePicker(ctx, player)
		if _, err := tea.NewProgram(picker).Run(); err != nil {
			return nil, err
		}
		if err := picker.Err(); err != nil {
			return nil, err
		}
		return picker.Choice(), nil
	}

	devices, err := player.Devices(ctx)
	if err != nil {
		return nil, err
	}

	for i := range devices {
		if devices[i].ID == target {
			return &devices[i], nil
		}
	}
	for i := range devices {
		if strings.EqualFold(devices[i].Name, target) {
			return &devices[i], nil
		}
	}

	return nil, fmt.Errorf("%w: no device matching %q, run `spotify-cli playback devices`", shared.ErrInvalidArgument, target)
}

// playbackCommand handles player control operations
func playbackCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playback",
		Aliases: []string{"pb"},
		Usage:   "Inspect and control the active player",
		Action:  r.PlaybackShow,
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show what is playing and where",
				Action: r.PlaybackShow,
			},
			{
				Name:      "play",
				Usage:     "Resume playback, or play a track by id, link or search query",
				Arguments: []cli.Argument{&cli.StringArg{Name: "track"}},
				Action:    r.PlaybackPlay,
			},
			{
				Name:   "pause",
				Usage:  "Pause playback",
				Action: r.PlaybackPause,
			},
			{
				Name:   "next",
				Usage:  "Skip to the next track",
				Action: r.PlaybackNext,
			},
			{
				Name:   "previous",
				Usage:  "Skip back to the previous track",
				Action: r.PlaybackPrevious,
			},
			{
				Name:   "restart",
				Usage:  "Restart the current track",
				Action: r.PlaybackRestart,
			},
			{
				Name:      "shuffle",
				Usage:     "Turn shuffle on or off",
				Arguments: []cli.Argument{&cli.StringArg{Name: "mode"}},
				Action:    r.PlaybackShuffle,
			},
			{
				Name:      "repeat",
				Usage:     "Set repeat to off, context or track",
				Arguments: []cli.Argument{&cli.StringArg{Name: "mode"}},
				Action:    r.PlaybackRepeat,
			},
			{
				Name:      "volume",
				Usage:     "Set the device volume",
				Arguments: []cli.Argument{&cli.StringArg{Name: "percent"}},
				Action:    r.PlaybackVolume,
			},
			{
				Name:   "devices",
				Usage:  "List playback devices",
				Action: r.PlaybackDevices,
			},
			{
				Name:      "transfer",
				Usage:     "Move playback to another device",
				Arguments: []cli.Argument{&cli.StringArg{Name: "device"}},
				Action:    r.PlaybackTransfer,
			},
		},
	}
}
