package repositories

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"spotify-cli/internal/models"
	"spotify-cli/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	// In-memory SQLite gives every pooled connection its own database,
	// so pin the pool to a single connection.
	shared.ConfigureDatabase(db, 1, 1)

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func testRun() *models.RecRun {
	return models.NewRecRun(0, "playlist-1", `{"track_ids":["a","b"]}`, 20, "snapshot-1")
}

func TestRunRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		db := setupTestDB(t)

		repo := NewRunRepository(db)
		run := testRun()

		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		if run.ID() == "" {
			t.Error("run ID should be set after creation")
		}
		if run.Sequence() != 1 {
			t.Errorf("first run sequence = %d, want 1", run.Sequence())
		}
	})

	t.Run("Sequence Increments Per Run", func(t *testing.T) {
		db := setupTestDB(t)

		repo := NewRunRepository(db)
		for want := 1; want <= 3; want++ {
			run := testRun()
			if err := repo.Create(run); err != nil {
				t.Fatalf("failed to create run %d: %v", want, err)
			}
			if run.Sequence() != want {
				t.Errorf("run sequence = %d, want %d", run.Sequence(), want)
			}
		}
	})

	t.Run("Get", func(t *testing.T) {
		db := setupTestDB(t)

		repo := NewRunRepository(db)
		run := testRun()

		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		retrieved, err := repo.Get(run.ID())
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}

		if retrieved.ID() != run.ID() {
			t.Errorf("expected ID %s, got %s", run.ID(), retrieved.ID())
		}
		if retrieved.PlaylistID() != "playlist-1" {
			t.Errorf("expected playlist playlist-1, got %s", retrieved.PlaylistID())
		}
		if retrieved.SeedSummary() != run.SeedSummary() {
			t.Errorf("expected seed summary %s, got %s", run.SeedSummary(), retrieved.SeedSummary())
		}
		if retrieved.TrackCount() != 20 || retrieved.SnapshotID() != "snapshot-1" {
			t.Errorf("unexpected run detail: count %d snapshot %s", retrieved.TrackCount(), retrieved.SnapshotID())
		}
		if d := retrieved.CreatedAt().Sub(run.CreatedAt()); d < -time.Second || d > time.Second {
			t.Errorf("created at drifted by %v across the round trip", d)
		}
	})

	t.Run("Latest", func(t *testing.T) {
		db := setupTestDB(t)

		repo := NewRunRepository(db)
		for range 2 {
			if err := repo.Create(testRun()); err != nil {
				t.Fatalf("failed to create run: %v", err)
			}
		}
		newest := testRun()
		if err := repo.Create(newest); err != nil {
			t.Fatalf("failed to create newest run: %v", err)
		}

		latest, err := repo.Latest()
		if err != nil {
			t.Fatalf("failed to get latest run: %v", err)
		}
		if latest.ID() != newest.ID() {
			t.Errorf("latest = %s, want %s", latest.ID(), newest.ID())
		}
		if latest.Sequence() != 3 {
			t.Errorf("latest sequence = %d, want 3", latest.Sequence())
		}
	})

	t.Run("Update", func(t *testing.T) {
		db := setupTestDB(t)

		repo := NewRunRepository(db)
		run := testRun()

		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		run.SetTrackCount(25)
		run.SetSnapshotID("snapshot-2")
		if err := repo.Update(run); err != nil {
			t.Fatalf("failed to update run: %v", err)
		}

		retrieved, err := repo.Get(run.ID())
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if retrieved.TrackCount() != 25 || retrieved.SnapshotID() != "snapshot-2" {
			t.Errorf("update not persisted: count %d snapshot %s", retrieved.TrackCount(), retrieved.SnapshotID())
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)

		repo := NewRunRepository(db)
		run := testRun()

		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}
		if err := repo.SaveTracks(run.ID(), []models.RunTrack{{TrackID: "a", Title: "A"}}); err != nil {
			t.Fatalf("failed to save tracks: %v", err)
		}

		if err := repo.Delete(run.ID()); err != nil {
			t.Fatalf("failed to delete run: %v", err)
		}

		if _, err := repo.Get(run.ID()); !errors.Is(err, shared.ErrRunNotFound) {
			t.Errorf("Get after delete error = %v, want ErrRunNotFound", err)
		}

		tracks, err := repo.Tracks(run.ID())
		if err != nil {
			t.Fatalf("failed to query tracks: %v", err)
		}
		if len(tracks) != 0 {
			t.Errorf("len(tracks) = %d after delete, want 0", len(tracks))
		}
	})

	t.Run("List", func(t *testing.T) {
		db := setupTestDB(t)

		repo := NewRunRepository(db)
		for range 3 {
			if err := repo.Create(testRun()); err != nil {
				t.Fatalf("failed to create run: %v", err)
			}
		}
		other := models.NewRecRun(0, "playlist-2", "", 5, "")
		if err := repo.Create(other); err != nil {
			t.Fatalf("failed to create other run: %v", err)
		}

		t.Run("Newest First", func(t *testing.T) {
			runs, err := repo.List(map[string]any{})
			if err != nil {
				t.Fatalf("failed to list runs: %v", err)
			}
			if len(runs) != 4 {
				t.Fatalf("len(runs) = %d, want 4", len(runs))
			}
			for i := 1; i < len(runs); i++ {
				if runs[i-1].Sequence() < runs[i].Sequence() {
					t.Errorf("runs out of order at %d: %d before %d", i, runs[i-1].Sequence(), runs[i].Sequence())
				}
			}
		})

		t.Run("By Playlist", func(t *testing.T) {
			runs, err := repo.List(map[string]any{"playlist_id": "playlist-2"})
			if err != nil {
				t.Fatalf("failed to list runs: %v", err)
			}
			if len(runs) != 1 || runs[0].ID() != other.ID() {
				t.Errorf("runs = %d results, want the playlist-2 run", len(runs))
			}
		})

		t.Run("With Limit", func(t *testing.T) {
			runs, err := repo.List(map[string]any{"limit": 2})
			if err != nil {
				t.Fatalf("failed to list runs: %v", err)
			}
			if len(runs) != 2 {
				t.Fatalf("len(runs) = %d, want 2", len(runs))
			}
			if runs[0].Sequence() != 4 {
				t.Errorf("first run sequence = %d, want 4", runs[0].Sequence())
			}
		})
	})

	t.Run("Track Listing Round Trip", func(t *testing.T) {
		db := setupTestDB(t)

		repo := NewRunRepository(db)
		run := testRun()

		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		saved := []models.RunTrack{
			{TrackID: "track-1", Title: "First", Artist: "Band A", Album: "LP", DurationMS: 180000},
			{TrackID: "track-2", Title: "Second", Artist: "Band B", Album: "EP", DurationMS: 210000},
		}
		if err := repo.SaveTracks(run.ID(), saved); err != nil {
			t.Fatalf("failed to save tracks: %v", err)
		}

		tracks, err := repo.Tracks(run.ID())
		if err != nil {
			t.Fatalf("failed to load tracks: %v", err)
		}
		if len(tracks) != 2 {
			t.Fatalf("len(tracks) = %d, want 2", len(tracks))
		}
		for i, track := range tracks {
			if track.Position != i {
				t.Errorf("track %d position = %d", i, track.Position)
			}
			if track.RunID != run.ID() {
				t.Errorf("track %d run = %s, want %s", i, track.RunID, run.ID())
			}
		}
		if tracks[0].TrackID != "track-1" || tracks[1].Title != "Second" {
			t.Errorf("track order not preserved: %+v", tracks)
		}
		if tracks[1].Artist != "Band B" || tracks[1].DurationMS != 210000 {
			t.Errorf("track detail lost: %+v", tracks[1])
		}
	})

	t.Run("Save Tracks Replaces Prior Listing", func(t *testing.T) {
		db := setupTestDB(t)

		repo := NewRunRepository(db)
		run := testRun()

		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}
		if err := repo.SaveTracks(run.ID(), []models.RunTrack{{TrackID: "old", Title: "Old"}}); err != nil {
			t.Fatalf("failed to save first listing: %v", err)
		}
		if err := repo.SaveTracks(run.ID(), []models.RunTrack{{TrackID: "new", Title: "New"}}); err != nil {
			t.Fatalf("failed to save second listing: %v", err)
		}

		tracks, err := repo.Tracks(run.ID())
		if err != nil {
			t.Fatalf("failed to load tracks: %v", err)
		}
		if len(tracks) != 1 || tracks[0].TrackID != "new" {
			t.Errorf("tracks = %+v, want the replacement listing only", tracks)
		}
	})

	t.Run("Implements Repository", func(t *testing.T) {
		var _ models.Repository[*models.RecRun] = NewRunRepository(nil)
	})
}

func TestRunRepositoryErrors(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		t.Run("ValidationError", func(t *testing.T) {
			db := setupTestDB(t)

			repo := NewRunRepository(db)
			run := models.NewRecRun(0, "", "", 0, "")

			if err := repo.Create(run); !errors.Is(err, shared.ErrInvalidInput) {
				t.Fatalf("Create() error = %v, want ErrInvalidInput for missing playlist", err)
			}
		})
	})

	t.Run("Get", func(t *testing.T) {
		t.Run("NotFound", func(t *testing.T) {
			db := setupTestDB(t)

			repo := NewRunRepository(db)

			if _, err := repo.Get("nonexistent-id"); !errors.Is(err, shared.ErrRunNotFound) {
				t.Fatalf("Get() error = %v, want ErrRunNotFound", err)
			}
		})
	})

	t.Run("Latest", func(t *testing.T) {
		t.Run("EmptyHistory", func(t *testing.T) {
			db := setupTestDB(t)

			repo := NewRunRepository(db)

			if _, err := repo.Latest(); !errors.Is(err, shared.ErrRunNotFound) {
				t.Fatalf("Latest() error = %v, want ErrRunNotFound", err)
			}
		})
	})

	t.Run("Update", func(t *testing.T) {
		t.Run("NotFound", func(t *testing.T) {
			db := setupTestDB(t)

			repo := NewRunRepository(db)
			run := testRun()
			run.SetID("nonexistent-id")

			if err := repo.Update(run); !errors.Is(err, shared.ErrRunNotFound) {
				t.Fatalf("Update() error = %v, want ErrRunNotFound", err)
			}
		})
	})

	t.Run("Delete", func(t *testing.T) {
		t.Run("NotFound", func(t *testing.T) {
			db := setupTestDB(t)

			repo := NewRunRepository(db)

			if err := repo.Delete("nonexistent-id"); !errors.Is(err, shared.ErrRunNotFound) {
				t.Fatalf("Delete() error = %v, want ErrRunNotFound", err)
			}
		})
	})
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)

	for want := 1; want <= 5; want++ {
		got, err := NextSequence(db, "rec_runs")
		if err != nil {
			t.Fatalf("NextSequence() error = %v", err)
		}
		if got != want {
			t.Errorf("NextSequence() = %d, want %d", got, want)
		}
	}

	var value int
	if err := db.QueryRow("SELECT value FROM rec_runs_sequence WHERE id = 1").Scan(&value); err != nil {
		t.Fatalf("reading sequence table: %v", err)
	}
	if value != 5 {
		t.Errorf("sequence table value = %d, want 5", value)
	}
}
