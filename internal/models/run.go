package models

import (
	"fmt"
	"time"

	"spotify-cli/internal/shared"
)

// RecRun records one refresh of the managed recommendations playlist:
// which playlist was written, the seeds that produced the tracks, and the
// snapshot the replace call left behind.
type RecRun struct {
	id          string
	sequence    int
	playlistID  string
	seedSummary string
	trackCount  int
	snapshotID  string
	createdAt   time.Time
	updatedAt   time.Time
}

// NewRecRun creates a run record for the managed playlist. Timestamps are
// set to the current time; the repository assigns id and sequence on insert.
func NewRecRun(sequence int, playlistID, seedSummary string, trackCount int, snapshotID string) *RecRun {
	now := time.Now()
	return &RecRun{
		sequence:    sequence,
		playlistID:  playlistID,
		seedSummary: seedSummary,
		trackCount:  trackCount,
		snapshotID:  snapshotID,
		createdAt:   now,
		updatedAt:   now,
	}
}

func (r *RecRun) ID() string           { return r.id }
func (r *RecRun) Sequence() int        { return r.sequence }
func (r *RecRun) PlaylistID() string   { return r.playlistID }
func (r *RecRun) SeedSummary() string  { return r.seedSummary }
func (r *RecRun) TrackCount() int      { return r.trackCount }
func (r *RecRun) SnapshotID() string   { return r.snapshotID }
func (r *RecRun) CreatedAt() time.Time { return r.createdAt }
func (r *RecRun) UpdatedAt() time.Time { return r.updatedAt }

func (r *RecRun) SetID(id string)          { r.id = id }
func (r *RecRun) SetSequence(sequence int) { r.sequence = sequence }
func (r *RecRun) SetTrackCount(count int)  { r.trackCount = count }
func (r *RecRun) SetSnapshotID(id string)  { r.snapshotID = id }
func (r *RecRun) SetCreatedAt(t time.Time) { r.createdAt = t }
func (r *RecRun) SetUpdatedAt(t time.Time) { r.updatedAt = t }

// Validate checks that the run has an identity and a target playlist.
func (r *RecRun) Validate() error {
	if r.id == "" {
		return fmt.Errorf("%w: run id is required", shared.ErrInvalidInput)
	}
	if r.playlistID == "" {
		return fmt.Errorf("%w: playlist id is required", shared.ErrInvalidInput)
	}
	if r.trackCount < 0 {
		return fmt.Errorf("%w: track count cannot be negative", shared.ErrInvalidInput)
	}
	return nil
}

// RunTrack is one row of a run's track listing, kept in playlist order.
type RunTrack struct {
	RunID      string
	Position   int
	TrackID    string
	Title      string
	Artist     string
	Album      string
	DurationMS int
}
