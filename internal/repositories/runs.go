package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"spotify-cli/internal/models"
	"spotify-cli/internal/shared"
)

// RunRepository implements models.Repository[*models.RecRun] for the
// recommendation run history.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a new run into the database with generated ID and sequence
func (r *RunRepository) Create(run *models.RecRun) error {
	sequence, err := NextSequence(r.db, "rec_runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	run.SetID(shared.GenerateID())
	run.SetSequence(sequence)

	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO rec_runs (id, sequence, playlist_id, seed_summary, track_count, snapshot_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		run.ID(),
		run.Sequence(),
		run.PlaylistID(),
		run.SeedSummary(),
		run.TrackCount(),
		run.SnapshotID(),
		run.CreatedAt(),
		run.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	return nil
}

// Get retrieves a run by ID
func (r *RunRepository) Get(id string) (*models.RecRun, error) {
	query := `
		SELECT id, sequence, playlist_id, seed_summary, track_count, snapshot_id, created_at, updated_at
		FROM rec_runs
		WHERE id = ?
	`

	return r.scanRun(r.db.QueryRow(query, id))
}

// Latest retrieves the most recent run, if any
func (r *RunRepository) Latest() (*models.RecRun, error) {
	query := `
		SELECT id, sequence, playlist_id, seed_summary, track_count, snapshot_id, created_at, updated_at
		FROM rec_runs
		ORDER BY sequence DESC
		LIMIT 1
	`

	return r.scanRun(r.db.QueryRow(query))
}

// Update modifies an existing run in the database
func (r *RunRepository) Update(run *models.RecRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	run.SetUpdatedAt(now)

	query := `
		UPDATE rec_runs
		SET seed_summary = ?, track_count = ?, snapshot_id = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query,
		run.SeedSummary(),
		run.TrackCount(),
		run.SnapshotID(),
		now,
		run.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrRunNotFound, run.ID())
	}

	return nil
}

// Delete removes a run and its recorded tracks
func (r *RunRepository) Delete(id string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM rec_run_tracks WHERE run_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete run tracks: %w", err)
	}

	result, err := tx.Exec("DELETE FROM rec_runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrRunNotFound, id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}

	return nil
}

// List retrieves runs matching the given criteria, newest first
func (r *RunRepository) List(criteria map[string]any) ([]*models.RecRun, error) {
	query := `
		SELECT id, sequence, playlist_id, seed_summary, track_count, snapshot_id, created_at, updated_at
		FROM rec_runs
	`

	args := []any{}

	if playlistID, ok := criteria["playlist_id"].(string); ok && playlistID != "" {
		query += " WHERE playlist_id = ?"
		args = append(args, playlistID)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.RecRun
	for rows.Next() {
		run, err := r.scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

// SaveTracks replaces the recorded track listing for a run. Positions are
// assigned from slice order.
func (r *RunRepository) SaveTracks(runID string, tracks []models.RunTrack) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM rec_run_tracks WHERE run_id = ?", runID); err != nil {
		return fmt.Errorf("failed to clear run tracks: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO rec_run_tracks (run_id, position, track_id, title, artist, album, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare track insert: %w", err)
	}
	defer stmt.Close()

	for i, track := range tracks {
		if _, err := stmt.Exec(runID, i, track.TrackID, track.Title, track.Artist, track.Album, track.DurationMS); err != nil {
			return fmt.Errorf("failed to insert run track %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run tracks: %w", err)
	}

	return nil
}

// Tracks retrieves the recorded track listing for a run in playlist order
func (r *RunRepository) Tracks(runID string) ([]models.RunTrack, error) {
	query := `
		SELECT run_id, position, track_id, title, artist, album, duration_ms
		FROM rec_run_tracks
		WHERE run_id = ?
		ORDER BY position ASC
	`

	rows, err := r.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run tracks: %w", err)
	}
	defer rows.Close()

	var tracks []models.RunTrack
	for rows.Next() {
		var track models.RunTrack
		if err := rows.Scan(&track.RunID, &track.Position, &track.TrackID, &track.Title, &track.Artist, &track.Album, &track.DurationMS); err != nil {
			return nil, fmt.Errorf("failed to scan run track: %w", err)
		}
		tracks = append(tracks, track)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tracks, nil
}

// scanner covers both [sql.Row] and [sql.Rows]
type scanner interface {
	Scan(dest ...any) error
}

// scanRun scans a row into a [models.RecRun]
func (r *RunRepository) scanRun(row scanner) (*models.RecRun, error) {
	var (
		id          string
		sequence    int
		playlistID  string
		seedSummary string
		trackCount  int
		snapshotID  string
		createdAt   time.Time
		updatedAt   time.Time
	)

	err := row.Scan(&id, &sequence, &playlistID, &seedSummary, &trackCount, &snapshotID, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run := models.NewRecRun(sequence, playlistID, seedSummary, trackCount, snapshotID)
	run.SetID(id)
	run.SetCreatedAt(createdAt)
	run.SetUpdatedAt(updatedAt)

	return run, nil
}
