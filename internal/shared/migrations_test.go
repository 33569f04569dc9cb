package shared

import (
	"database/sql"
	"strings"
	"testing"
)

func migratedDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("NewDatabase() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	ConfigureDatabase(db, 1, 1)

	if err := RunMigrations(db); err != nil {
		t.Fatalf("RunMigrations() error: %v", err)
	}

	return db
}

func TestMigrations(t *testing.T) {
	t.Run("Embedded Scripts Are Paired And Ordered", func(t *testing.T) {
		migrations, err := loadMigrations()
		if err != nil {
			t.Fatalf("loadMigrations() error: %v", err)
		}
		if len(migrations) < 2 {
			t.Fatalf("expected the run history migrations, got %d", len(migrations))
		}

		for i, m := range migrations {
			if m.Name == "" {
				t.Errorf("migration %d has no name", m.Version)
			}
			if m.Up == "" || m.Down == "" {
				t.Errorf("migration %04d_%s is missing a direction", m.Version, m.Name)
			}
			if i > 0 && m.Version <= migrations[i-1].Version {
				t.Errorf("version %d is not after %d", m.Version, migrations[i-1].Version)
			}
		}
	})

	t.Run("Apply Creates The Run History Schema", func(t *testing.T) {
		db := migratedDB(t)

		for _, table := range []string{"rec_runs", "rec_run_tracks", "rec_runs_sequence", "schema_migrations"} {
			if _, err := db.Exec("SELECT 1 FROM " + table + " LIMIT 1"); err != nil {
				t.Errorf("table %s missing after migrations: %v", table, err)
			}
		}

		migrations, _ := loadMigrations()
		var applied int
		if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied); err != nil {
			t.Fatalf("count applied migrations: %v", err)
		}
		if applied != len(migrations) {
			t.Errorf("applied = %d, want %d", applied, len(migrations))
		}
	})

	t.Run("Reapply Changes Nothing", func(t *testing.T) {
		db := migratedDB(t)

		var before int
		db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&before)

		if err := RunMigrations(db); err != nil {
			t.Fatalf("second RunMigrations() error: %v", err)
		}

		var after int
		db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&after)
		if after != before {
			t.Errorf("applied count changed from %d to %d on reapply", before, after)
		}
	})

	t.Run("Rollback Reverts The Latest Version", func(t *testing.T) {
		db := migratedDB(t)

		if err := RollbackMigration(db); err != nil {
			t.Fatalf("RollbackMigration() error: %v", err)
		}

		// 0001 carries the per-run track table; 0000 keeps the run rows.
		if _, err := db.Exec("SELECT 1 FROM rec_run_tracks LIMIT 1"); err == nil {
			t.Error("rec_run_tracks should be dropped by the rollback")
		}
		if _, err := db.Exec("SELECT 1 FROM rec_runs LIMIT 1"); err != nil {
			t.Errorf("rec_runs should survive rolling back a later version: %v", err)
		}
	})

	t.Run("Rollback With Nothing Applied Fails", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("NewDatabase() error: %v", err)
		}
		defer db.Close()

		if _, err := db.Exec("CREATE TABLE schema_migrations (version INTEGER PRIMARY KEY)"); err != nil {
			t.Fatalf("create empty schema_migrations: %v", err)
		}

		err = RollbackMigration(db)
		if err == nil || !strings.Contains(err.Error(), "no migrations") {
			t.Errorf("RollbackMigration() = %v, want no-migrations error", err)
		}
	})
}
