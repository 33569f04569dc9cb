// package services defines the player and library interfaces for the
// Spotify Web API client
package services

import (
	"context"
)

// PlayerService controls the active player, its queue, and track search.
type PlayerService interface {
	// CurrentPlayback returns a snapshot of the active player.
	// The snapshot's Track is nil when nothing is loaded.
	CurrentPlayback(ctx context.Context) (*PlaybackState, error)

	// Play resumes playback on the active device.
	Play(ctx context.Context) error

	// PlayTrack starts playback of a single track on the active device.
	PlayTrack(ctx context.Context, trackID string) error

	// Pause pauses playback on the active device.
	Pause(ctx context.Context) error

	// Next skips to the next track in the queue.
	Next(ctx context.Context) error

	// Previous skips to the previous track.
	Previous(ctx context.Context) error

	// Restart seeks to the beginning of the current track.
	Restart(ctx context.Context) error

	// SetShuffle turns shuffle mode on or off.
	SetShuffle(ctx context.Context, on bool) error

	// SetRepeat sets the repeat mode to RepeatOff, RepeatContext or RepeatTrack.
	SetRepeat(ctx context.Context, mode string) error

	// SetVolume sets the device volume to a percentage between 0 and 100.
	SetVolume(ctx context.Context, percent int) error

	// Devices lists the playback devices registered with the account.
	Devices(ctx context.Context) ([]Device, error)

	// TransferPlayback moves playback to another device without pausing.
	TransferPlayback(ctx context.Context, deviceID string) error

	// Queue returns the currently playing track and the upcoming tracks.
	Queue(ctx context.Context) (*QueueSnapshot, error)

	// QueueTrack appends a track to the playback queue.
	QueueTrack(ctx context.Context, trackID string) error

	// SearchTracks searches the catalog and returns up to limit tracks.
	SearchTracks(ctx context.Context, query string, limit int) ([]Track, error)
}

// LibraryService reads listening history and manages playlists for the
// authenticated user.
type LibraryService interface {
	// CurrentUser returns the profile of the authenticated account.
	CurrentUser(ctx context.Context) (*UserProfile, error)

	// TopTracks returns the user's most played tracks over a time range.
	TopTracks(ctx context.Context, timeRange TimeRange, limit int) ([]Track, error)

	// RecentlyPlayed returns the user's most recently played tracks,
	// newest first.
	RecentlyPlayed(ctx context.Context, limit int) ([]Track, error)

	// Recommendations returns tracks similar to the given seeds.
	// Spotify accepts at most five seeds across all kinds.
	Recommendations(ctx context.Context, seeds SeedSet, limit int) ([]Track, error)

	// Track returns full details for a single track.
	Track(ctx context.Context, trackID string) (*Track, error)

	// Playlist returns a playlist owned by or followed by the user.
	Playlist(ctx context.Context, playlistID string) (*Playlist, error)

	// CreatePlaylist creates an empty playlist owned by the user.
	CreatePlaylist(ctx context.Context, name, description string, public bool) (*Playlist, error)

	// ReplacePlaylistTracks replaces the playlist's contents with the
	// given tracks, removing whatever was there before.
	ReplacePlaylistTracks(ctx context.Context, playlistID string, trackIDs []string) error
}

// Track represents a playable track from the provider
type Track struct {
	ID         string
	Title      string
	Artist     string // all artists joined with ", "
	Album      string
	DurationMS int
	URI        string
}

// Device represents a playback target registered with the provider
type Device struct {
	ID            string
	Name          string
	Type          string // Computer, Smartphone, Speaker, ...
	Active        bool
	Restricted    bool
	VolumePercent int
}

// PlaybackState represents a snapshot of the active player
type PlaybackState struct {
	Playing      bool
	ProgressMS   int
	ShuffleState bool
	RepeatState  string
	Device       Device
	Track        *Track // nil when nothing is loaded
}

// QueueSnapshot represents the playback queue at a point in time
type QueueSnapshot struct {
	NowPlaying *Track // nil when the player is idle
	UpNext     []Track
}

// Playlist represents a playlist visible to the authenticated user
type Playlist struct {
	ID         string
	Name       string
	Owner      string
	TrackCount int
	SnapshotID string
	Public     bool
}

// UserProfile identifies the authenticated account
type UserProfile struct {
	ID          string
	DisplayName string
	Product     string
}

// SeedSet holds the seed entities for a recommendation request
type SeedSet struct {
	TrackIDs  []string
	ArtistIDs []string
	Genres    []string
}

// Size returns the total number of seeds across all kinds.
func (s SeedSet) Size() int {
	return len(s.TrackIDs) + len(s.ArtistIDs) + len(s.Genres)
}

// MaxSeeds is the largest seed count the recommendations endpoint accepts.
const MaxSeeds = 5

// TimeRange selects the listening-history window for top-track queries.
type TimeRange string

const (
	RangeShort  TimeRange = "short_term"
	RangeMedium TimeRange = "medium_term"
	RangeLong   TimeRange = "long_term"
)

// Valid reports whether the range is one the API accepts.
func (r TimeRange) Valid() bool {
	switch r {
	case RangeShort, RangeMedium, RangeLong:
		return true
	}
	return false
}

// Repeat modes accepted by SetRepeat.
const (
	RepeatOff     = "off"
	RepeatContext = "context"
	RepeatTrack   = "track"
)
