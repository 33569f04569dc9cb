// Spotify Web API implementation of [PlayerService] and [LibraryService]
//
// Endpoint behavior based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/time/rate"

	"spotify-cli/internal/shared"
)

const (
	// defaultRateLimit is the request budget in requests per second when
	// the caller does not set one.
	defaultRateLimit = 10.0

	// maxPageLimit is the largest page size the Web API accepts.
	maxPageLimit = 50

	// maxReplaceTracks is the largest track list a single replace call accepts.
	maxReplaceTracks = 100
)

// SpotifyOpts configures a [SpotifyService].
type SpotifyOpts struct {
	// HTTPClient is the authenticated client, typically built from the
	// token store's [oauth2.TokenSource]. Required.
	HTTPClient *http.Client

	// BaseURL overrides the Web API base URL. Used by tests.
	BaseURL string

	// RateLimit is the outbound request budget in requests per second.
	RateLimit float64

	Logger *log.Logger
}

// SpotifyService implements [PlayerService] and [LibraryService] against the
// Spotify Web API. All outbound requests pass through a shared rate limiter.
type SpotifyService struct {
	client  *spotify.Client
	limiter *rate.Limiter
	logger  *log.Logger
}

// NewSpotifyService creates a Spotify service from an authenticated HTTP client.
func NewSpotifyService(opts SpotifyOpts) (*SpotifyService, error) {
	if opts.HTTPClient == nil {
		return nil, fmt.Errorf("%w: authenticated HTTP client required", shared.ErrMissingCredentials)
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRateLimit
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	clientOpts := []spotify.ClientOption{spotify.WithRetry(true)}
	if opts.BaseURL != "" {
		if !strings.HasSuffix(opts.BaseURL, "/") {
			opts.BaseURL += "/"
		}
		clientOpts = append(clientOpts, spotify.WithBaseURL(opts.BaseURL))
	}

	return &SpotifyService{
		client:  spotify.New(opts.HTTPClient, clientOpts...),
		limiter: rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
		logger:  opts.Logger.With("component", "spotify"),
	}, nil
}

// wait blocks until the rate limiter grants a request slot.
func (s *SpotifyService) wait(ctx context.Context) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("%w: spotify client not initialized", shared.ErrServiceUnavailable)
	}
	return s.limiter.Wait(ctx)
}

// apiError maps a Web API failure onto the shared error taxonomy. Token
// refresh failures surfaced through the HTTP client pass through unchanged.
func (s *SpotifyService) apiError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, shared.ErrNotAuthenticated) ||
		errors.Is(err, shared.ErrReauthorizationRequired) ||
		errors.Is(err, shared.ErrRefreshFailed) {
		return err
	}
	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		if apiErr.Status == http.StatusUnauthorized {
			return fmt.Errorf("%w: %s", shared.ErrReauthorizationRequired, apiErr.Message)
		}
		return fmt.Errorf("%w: %s (status %d)", shared.ErrAPIRequest, apiErr.Message, apiErr.Status)
	}
	return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
}

// playerError classifies player endpoint failures. The Web API answers 404
// when the account has no active device.
func (s *SpotifyService) playerError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr spotify.Error
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return fmt.Errorf("%w: start playback on a device first", shared.ErrNoActiveDevice)
	}
	return s.apiError(err)
}

func (s *SpotifyService) trackError(err error) error {
	var apiErr spotify.Error
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return fmt.Errorf("%w: %s", shared.ErrTrackNotFound, apiErr.Message)
	}
	return s.apiError(err)
}

func (s *SpotifyService) playlistError(err error) error {
	var apiErr spotify.Error
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, apiErr.Message)
	}
	return s.apiError(err)
}

// PlayerService implementation

// CurrentPlayback returns a snapshot of the active player.
func (s *SpotifyService) CurrentPlayback(ctx context.Context) (*PlaybackState, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	state, err := s.client.PlayerState(ctx)
	if err != nil {
		return nil, s.playerError(err)
	}

	return playbackFromState(state), nil
}

// Play resumes playback on the active device.
func (s *SpotifyService) Play(ctx context.Context) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	return s.playerError(s.client.Play(ctx))
}

// PlayTrack starts playback of a single track on the active device.
func (s *SpotifyService) PlayTrack(ctx context.Context, trackID string) error {
	if trackID == "" {
		return fmt.Errorf("%w: track id required", shared.ErrMissingArgument)
	}
	if err := s.wait(ctx); err != nil {
		return err
	}

	opts := spotify.PlayOptions{URIs: []spotify.URI{trackURI(trackID)}}
	return s.playerError(s.client.PlayOpt(ctx, &opts))
}

// Pause pauses playback on the active device.
func (s *SpotifyService) Pause(ctx context.Context) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	return s.playerError(s.client.Pause(ctx))
}

// Next skips to the next track in the queue.
func (s *SpotifyService) Next(ctx context.Context) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	return s.playerError(s.client.Next(ctx))
}

// Previous skips to the previous track.
func (s *SpotifyService) Previous(ctx context.Context) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	return s.playerError(s.client.Previous(ctx))
}

// Restart seeks to the beginning of the current track.
func (s *SpotifyService) Restart(ctx context.Context) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	return s.playerError(s.client.Seek(ctx, 0))
}

// SetShuffle turns shuffle mode on or off.
func (s *SpotifyService) SetShuffle(ctx context.Context, on bool) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	return s.playerError(s.client.Shuffle(ctx, on))
}

// SetRepeat sets the repeat mode.
func (s *SpotifyService) SetRepeat(ctx context.Context, mode string) error {
	switch mode {
	case RepeatOff, RepeatContext, RepeatTrack:
	default:
		return fmt.Errorf("%w: repeat mode %q (want %s, %s or %s)",
			shared.ErrInvalidArgument, mode, RepeatOff, RepeatContext, RepeatTrack)
	}
	if err := s.wait(ctx); err != nil {
		return err
	}
	return s.playerError(s.client.Repeat(ctx, mode))
}

// SetVolume sets the device volume to a percentage between 0 and 100.
func (s *SpotifyService) SetVolume(ctx context.Context, percent int) error {
	if percent < 0 || percent > 100 {
		return fmt.Errorf("%w: volume %d%% (want 0-100)", shared.ErrInvalidArgument, percent)
	}
	if err := s.wait(ctx); err != nil {
		return err
	}
	return s.playerError(s.client.Volume(ctx, percent))
}

// Devices lists the playback devices registered with the account.
func (s *SpotifyService) Devices(ctx context.Context) ([]Device, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	devices, err := s.client.PlayerDevices(ctx)
	if err != nil {
		return nil, s.apiError(err)
	}

	out := make([]Device, 0, len(devices))
	for _, d := range devices {
		out = append(out, deviceFromPlayer(d))
	}
	return out, nil
}

// TransferPlayback moves playback to another device without pausing.
func (s *SpotifyService) TransferPlayback(ctx context.Context, deviceID string) error {
	if deviceID == "" {
		return fmt.Errorf("%w: device id required", shared.ErrMissingArgument)
	}
	if err := s.wait(ctx); err != nil {
		return err
	}

	s.logger.Debug("transferring playback", "device", deviceID)
	return s.apiError(s.client.TransferPlayback(ctx, spotify.ID(deviceID), true))
}

// Queue returns the currently playing track and the upcoming tracks.
func (s *SpotifyService) Queue(ctx context.Context) (*QueueSnapshot, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	queue, err := s.client.GetQueue(ctx)
	if err != nil {
		return nil, s.playerError(err)
	}

	snapshot := &QueueSnapshot{UpNext: make([]Track, 0, len(queue.Items))}
	if queue.CurrentlyPlaying.ID != "" {
		now := trackFromFull(&queue.CurrentlyPlaying)
		snapshot.NowPlaying = &now
	}
	for i := range queue.Items {
		snapshot.UpNext = append(snapshot.UpNext, trackFromFull(&queue.Items[i]))
	}
	return snapshot, nil
}

// QueueTrack appends a track to the playback queue.
func (s *SpotifyService) QueueTrack(ctx context.Context, trackID string) error {
	if trackID == "" {
		return fmt.Errorf("%w: track id required", shared.ErrMissingArgument)
	}
	if err := s.wait(ctx); err != nil {
		return err
	}
	return s.playerError(s.client.QueueSong(ctx, spotify.ID(trackID)))
}

// SearchTracks searches the catalog and returns up to limit tracks.
func (s *SpotifyService) SearchTracks(ctx context.Context, query string, limit int) ([]Track, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: search query required", shared.ErrMissingArgument)
	}
	limit = clampLimit(limit)

	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	results, err := s.client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(limit))
	if err != nil {
		return nil, s.apiError(err)
	}
	if results.Tracks == nil {
		return nil, nil
	}

	tracks := make([]Track, 0, len(results.Tracks.Tracks))
	for i := range results.Tracks.Tracks {
		tracks = append(tracks, trackFromFull(&results.Tracks.Tracks[i]))
	}
	return tracks, nil
}

// LibraryService implementation

// CurrentUser returns the profile of the authenticated account.
func (s *SpotifyService) CurrentUser(ctx context.Context) (*UserProfile, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	user, err := s.client.CurrentUser(ctx)
	if err != nil {
		return nil, s.apiError(err)
	}

	return &UserProfile{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		Product:     user.Product,
	}, nil
}

// TopTracks returns the user's most played tracks over a time range.
func (s *SpotifyService) TopTracks(ctx context.Context, timeRange TimeRange, limit int) ([]Track, error) {
	if timeRange == "" {
		timeRange = RangeMedium
	}
	if !timeRange.Valid() {
		return nil, fmt.Errorf("%w: time range %q (want %s, %s or %s)",
			shared.ErrInvalidArgument, timeRange, RangeShort, RangeMedium, RangeLong)
	}
	limit = clampLimit(limit)

	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	page, err := s.client.CurrentUsersTopTracks(ctx, spotify.Limit(limit), spotify.Timerange(spotify.Range(timeRange)))
	if err != nil {
		return nil, s.apiError(err)
	}

	tracks := make([]Track, 0, len(page.Tracks))
	for i := range page.Tracks {
		tracks = append(tracks, trackFromFull(&page.Tracks[i]))
	}
	return tracks, nil
}

// RecentlyPlayed returns the user's most recently played tracks, newest first.
func (s *SpotifyService) RecentlyPlayed(ctx context.Context, limit int) ([]Track, error) {
	limit = clampLimit(limit)

	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	items, err := s.client.PlayerRecentlyPlayedOpt(ctx, &spotify.RecentlyPlayedOptions{Limit: limit})
	if err != nil {
		return nil, s.apiError(err)
	}

	tracks := make([]Track, 0, len(items))
	for _, item := range items {
		tracks = append(tracks, trackFromSimple(item.Track))
	}
	return tracks, nil
}

// Recommendations returns tracks similar to the given seeds.
func (s *SpotifyService) Recommendations(ctx context.Context, seeds SeedSet, limit int) ([]Track, error) {
	if seeds.Size() == 0 {
		return nil, fmt.Errorf("%w: at least one seed required", shared.ErrInvalidInput)
	}
	if seeds.Size() > MaxSeeds {
		return nil, fmt.Errorf("%w: at most %d seeds allowed, got %d", shared.ErrInvalidInput, MaxSeeds, seeds.Size())
	}
	limit = clampLimit(limit)

	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	spotifySeeds := spotify.Seeds{Genres: seeds.Genres}
	for _, id := range seeds.TrackIDs {
		spotifySeeds.Tracks = append(spotifySeeds.Tracks, spotify.ID(id))
	}
	for _, id := range seeds.ArtistIDs {
		spotifySeeds.Artists = append(spotifySeeds.Artists, spotify.ID(id))
	}

	recs, err := s.client.GetRecommendations(ctx, spotifySeeds, nil, spotify.Limit(limit))
	if err != nil {
		return nil, s.apiError(err)
	}

	tracks := make([]Track, 0, len(recs.Tracks))
	for _, t := range recs.Tracks {
		tracks = append(tracks, trackFromSimple(t))
	}
	return tracks, nil
}

// Track returns full details for a single track.
func (s *SpotifyService) Track(ctx context.Context, trackID string) (*Track, error) {
	if trackID == "" {
		return nil, fmt.Errorf("%w: track id required", shared.ErrMissingArgument)
	}
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	full, err := s.client.GetTrack(ctx, spotify.ID(trackID))
	if err != nil {
		return nil, s.trackError(err)
	}

	track := trackFromFull(full)
	return &track, nil
}

// Playlist returns a playlist visible to the authenticated user.
func (s *SpotifyService) Playlist(ctx context.Context, playlistID string) (*Playlist, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("%w: playlist id required", shared.ErrMissingArgument)
	}
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	full, err := s.client.GetPlaylist(ctx, spotify.ID(playlistID))
	if err != nil {
		return nil, s.playlistError(err)
	}

	playlist := playlistFromFull(full)
	return &playlist, nil
}

// CreatePlaylist creates an empty playlist owned by the authenticated user.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, name, description string, public bool) (*Playlist, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: playlist name required", shared.ErrMissingArgument)
	}

	user, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	s.logger.Debug("creating playlist", "name", name, "public", public)
	full, err := s.client.CreatePlaylistForUser(ctx, user.ID, name, description, public, false)
	if err != nil {
		return nil, s.apiError(err)
	}

	playlist := playlistFromFull(full)
	return &playlist, nil
}

// ReplacePlaylistTracks replaces the playlist's contents with the given tracks.
func (s *SpotifyService) ReplacePlaylistTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	if playlistID == "" {
		return fmt.Errorf("%w: playlist id required", shared.ErrMissingArgument)
	}
	if len(trackIDs) > maxReplaceTracks {
		return fmt.Errorf("%w: at most %d tracks per replace, got %d", shared.ErrInvalidInput, maxReplaceTracks, len(trackIDs))
	}
	if err := s.wait(ctx); err != nil {
		return err
	}

	ids := make([]spotify.ID, 0, len(trackIDs))
	for _, id := range trackIDs {
		ids = append(ids, spotify.ID(id))
	}

	s.logger.Debug("replacing playlist tracks", "playlist", playlistID, "tracks", len(ids))
	if err := s.client.ReplacePlaylistTracks(ctx, spotify.ID(playlistID), ids...); err != nil {
		return s.playlistError(err)
	}
	return nil
}

// Conversion helpers

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > maxPageLimit {
		return maxPageLimit
	}
	return limit
}

func trackURI(id string) spotify.URI {
	if strings.HasPrefix(id, "spotify:") {
		return spotify.URI(id)
	}
	return spotify.URI("spotify:track:" + id)
}

func trackFromSimple(t spotify.SimpleTrack) Track {
	names := make([]string, 0, len(t.Artists))
	for _, artist := range t.Artists {
		names = append(names, artist.Name)
	}
	return Track{
		ID:         string(t.ID),
		Title:      t.Name,
		Artist:     strings.Join(names, ", "),
		DurationMS: int(t.Duration),
		URI:        string(t.URI),
	}
}

func trackFromFull(t *spotify.FullTrack) Track {
	track := trackFromSimple(t.SimpleTrack)
	track.Album = t.Album.Name
	return track
}

func deviceFromPlayer(d spotify.PlayerDevice) Device {
	return Device{
		ID:            d.ID.String(),
		Name:          d.Name,
		Type:          d.Type,
		Active:        d.Active,
		Restricted:    d.Restricted,
		VolumePercent: int(d.Volume),
	}
}

func playbackFromState(state *spotify.PlayerState) *PlaybackState {
	if state == nil {
		return &PlaybackState{}
	}
	playback := &PlaybackState{
		Playing:      state.Playing,
		ProgressMS:   int(state.Progress),
		ShuffleState: state.ShuffleState,
		RepeatState:  state.RepeatState,
		Device:       deviceFromPlayer(state.Device),
	}
	if state.Item != nil {
		track := trackFromFull(state.Item)
		playback.Track = &track
	}
	return playback
}

func playlistFromFull(p *spotify.FullPlaylist) Playlist {
	return Playlist{
		ID:         string(p.ID),
		Name:       p.Name,
		Owner:      p.Owner.DisplayName,
		TrackCount: int(p.Tracks.Total),
		SnapshotID: p.SnapshotID,
		Public:     p.IsPublic,
	}
}
