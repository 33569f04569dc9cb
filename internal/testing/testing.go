// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"testing"

	"spotify-cli/internal/services"
)

// MockPlayerService is a scriptable test double for [services.PlayerService].
// Unset function fields return zero values.
type MockPlayerService struct {
	CurrentPlaybackFunc  func(ctx context.Context) (*services.PlaybackState, error)
	PlayFunc             func(ctx context.Context) error
	PlayTrackFunc        func(ctx context.Context, trackID string) error
	PauseFunc            func(ctx context.Context) error
	NextFunc             func(ctx context.Context) error
	PreviousFunc         func(ctx context.Context) error
	RestartFunc          func(ctx context.Context) error
	SetShuffleFunc       func(ctx context.Context, on bool) error
	SetRepeatFunc        func(ctx context.Context, mode string) error
	SetVolumeFunc        func(ctx context.Context, percent int) error
	DevicesFunc          func(ctx context.Context) ([]services.Device, error)
	TransferPlaybackFunc func(ctx context.Context, deviceID string) error
	QueueFunc            func(ctx context.Context) (*services.QueueSnapshot, error)
	QueueTrackFunc       func(ctx context.Context, trackID string) error
	SearchTracksFunc     func(ctx context.Context, query string, limit int) ([]services.Track, error)
}

func (m *MockPlayerService) CurrentPlayback(ctx context.Context) (*services.PlaybackState, error) {
	if m.CurrentPlaybackFunc != nil {
		return m.CurrentPlaybackFunc(ctx)
	}
	return &services.PlaybackState{}, nil
}

func (m *MockPlayerService) Play(ctx context.Context) error {
	if m.PlayFunc != nil {
		return m.PlayFunc(ctx)
	}
	return nil
}

func (m *MockPlayerService) PlayTrack(ctx context.Context, trackID string) error {
	if m.PlayTrackFunc != nil {
		return m.PlayTrackFunc(ctx, trackID)
	}
	return nil
}

func (m *MockPlayerService) Pause(ctx context.Context) error {
	if m.PauseFunc != nil {
		return m.PauseFunc(ctx)
	}
	return nil
}

func (m *MockPlayerService) Next(ctx context.Context) error {
	if m.NextFunc != nil {
		return m.NextFunc(ctx)
	}
	return nil
}

func (m *MockPlayerService) Previous(ctx context.Context) error {
	if m.PreviousFunc != nil {
		return m.PreviousFunc(ctx)
	}
	return nil
}

func (m *MockPlayerService) Restart(ctx context.Context) error {
	if m.RestartFunc != nil {
		return m.RestartFunc(ctx)
	}
	return nil
}

func (m *MockPlayerService) SetShuffle(ctx context.Context, on bool) error {
	if m.SetShuffleFunc != nil {
		return m.SetShuffleFunc(ctx, on)
	}
	return nil
}

func (m *MockPlayerService) SetRepeat(ctx context.Context, mode string) error {
	if m.SetRepeatFunc != nil {
		return m.SetRepeatFunc(ctx, mode)
	}
	return nil
}

func (m *MockPlayerService) SetVolume(ctx context.Context, percent int) error {
	if m.SetVolumeFunc != nil {
		return m.SetVolumeFunc(ctx, percent)
	}
	return nil
}

func (m *MockPlayerService) Devices(ctx context.Context) ([]services.Device, error) {
	if m.DevicesFunc != nil {
		return m.DevicesFunc(ctx)
	}
	return []services.Device{}, nil
}

func (m *MockPlayerService) TransferPlayback(ctx context.Context, deviceID string) error {
	if m.TransferPlaybackFunc != nil {
		return m.TransferPlaybackFunc(ctx, deviceID)
	}
	return nil
}

func (m *MockPlayerService) Queue(ctx context.Context) (*services.QueueSnapshot, error) {
	if m.QueueFunc != nil {
		return m.QueueFunc(ctx)
	}
	return &services.QueueSnapshot{}, nil
}

func (m *MockPlayerService) QueueTrack(ctx context.Context, trackID string) error {
	if m.QueueTrackFunc != nil {
		return m.QueueTrackFunc(ctx, trackID)
	}
	return nil
}

func (m *MockPlayerService) SearchTracks(ctx context.Context, query string, limit int) ([]services.Track, error) {
	if m.SearchTracksFunc != nil {
		return m.SearchTracksFunc(ctx, query, limit)
	}
	return []services.Track{}, nil
}

// MockLibraryService is a scriptable test double for [services.LibraryService].
// Unset function fields return zero values.
type MockLibraryService struct {
	CurrentUserFunc           func(ctx context.Context) (*services.UserProfile, error)
	TopTracksFunc             func(ctx context.Context, timeRange services.TimeRange, limit int) ([]services.Track, error)
	RecentlyPlayedFunc        func(ctx context.Context, limit int) ([]services.Track, error)
	RecommendationsFunc       func(ctx context.Context, seeds services.SeedSet, limit int) ([]services.Track, error)
	TrackFunc                 func(ctx context.Context, trackID string) (*services.Track, error)
	PlaylistFunc              func(ctx context.Context, playlistID string) (*services.Playlist, error)
	CreatePlaylistFunc        func(ctx context.Context, name, description string, public bool) (*services.Playlist, error)
	ReplacePlaylistTracksFunc func(ctx context.Context, playlistID string, trackIDs []string) error
}

func (m *MockLibraryService) CurrentUser(ctx context.Context) (*services.UserProfile, error) {
	if m.CurrentUserFunc != nil {
		return m.CurrentUserFunc(ctx)
	}
	return &services.UserProfile{}, nil
}

func (m *MockLibraryService) TopTracks(ctx context.Context, timeRange services.TimeRange, limit int) ([]services.Track, error) {
	if m.TopTracksFunc != nil {
		return m.TopTracksFunc(ctx, timeRange, limit)
	}
	return []services.Track{}, nil
}

func (m *MockLibraryService) RecentlyPlayed(ctx context.Context, limit int) ([]services.Track, error) {
	if m.RecentlyPlayedFunc != nil {
		return m.RecentlyPlayedFunc(ctx, limit)
	}
	return []services.Track{}, nil
}

func (m *MockLibraryService) Recommendations(ctx context.Context, seeds services.SeedSet, limit int) ([]services.Track, error) {
	if m.RecommendationsFunc != nil {
		return m.RecommendationsFunc(ctx, seeds, limit)
	}
	return []services.Track{}, nil
}

func (m *MockLibraryService) Track(ctx context.Context, trackID string) (*services.Track, error) {
	if m.TrackFunc != nil {
		return m.TrackFunc(ctx, trackID)
	}
	return &services.Track{ID: trackID}, nil
}

func (m *MockLibraryService) Playlist(ctx context.Context, playlistID string) (*services.Playlist, error) {
	if m.PlaylistFunc != nil {
		return m.PlaylistFunc(ctx, playlistID)
	}
	return &services.Playlist{ID: playlistID}, nil
}

func (m *MockLibraryService) CreatePlaylist(ctx context.Context, name, description string, public bool) (*services.Playlist, error) {
	if m.CreatePlaylistFunc != nil {
		return m.CreatePlaylistFunc(ctx, name, description, public)
	}
	return &services.Playlist{Name: name, Public: public}, nil
}

func (m *MockLibraryService) ReplacePlaylistTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	if m.ReplacePlaylistTracksFunc != nil {
		return m.ReplacePlaylistTracksFunc(ctx, playlistID, trackIDs)
	}
	return nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
