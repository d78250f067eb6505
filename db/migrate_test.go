package db

import (
	"database/sql"
	"os"
	"testing"
)

func openMigrationTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set")
	}
	database, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func tableExists(t *testing.T, database *sql.DB, name string) bool {
	t.Helper()
	var exists bool
	err := database.QueryRow(`SELECT EXISTS (
		SELECT 1 FROM information_schema.tables WHERE table_schema='public' AND table_name=$1
	)`, name).Scan(&exists)
	if err != nil {
		t.Fatalf("check table %s: %v", name, err)
	}
	return exists
}

func TestRunMigrationsAppliesSchema(t *testing.T) {
	database := openMigrationTestDB(t)

	if err := RunMigrations(database); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}

	for _, table := range []string{"branches", "streamers", "super_chats", "done_videos", "collections", "kv"} {
		if !tableExists(t, database, table) {
			t.Errorf("table %s missing after migration", table)
		}
	}

	version, dirty, err := GetMigrationVersion(database)
	if err != nil {
		t.Fatalf("GetMigrationVersion: %v", err)
	}
	if dirty {
		t.Error("schema reported dirty after clean migration")
	}
	if version != 1 {
		t.Errorf("version = %d, want 1", version)
	}
}

func TestRunMigrationsIdempotent(t *testing.T) {
	database := openMigrationTestDB(t)

	if err := RunMigrations(database); err != nil {
		t.Fatalf("first RunMigrations: %v", err)
	}
	// Second application must be a no-op, not an error.
	if err := RunMigrations(database); err != nil {
		t.Fatalf("second RunMigrations: %v", err)
	}

	version, dirty, err := GetMigrationVersion(database)
	if err != nil || dirty || version != 1 {
		t.Errorf("after re-apply: version=%d dirty=%v err=%v, want 1/false/nil", version, dirty, err)
	}
}

func TestMigrateDownAndReapply(t *testing.T) {
	database := openMigrationTestDB(t)

	if err := RunMigrations(database); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}

	if err := MigrateDown(database); err != nil {
		t.Fatalf("MigrateDown: %v", err)
	}
	if tableExists(t, database, "super_chats") {
		t.Error("super_chats still present after rollback")
	}
	// Rolling back the only migration leaves no version.
	version, dirty, err := GetMigrationVersion(database)
	if err != nil {
		t.Fatalf("GetMigrationVersion after rollback: %v", err)
	}
	if version != 0 || dirty {
		t.Errorf("after rollback: version=%d dirty=%v, want 0/false", version, dirty)
	}

	// Re-apply so later tests see the full schema.
	if err := RunMigrations(database); err != nil {
		t.Fatalf("re-apply after rollback: %v", err)
	}
	if !tableExists(t, database, "super_chats") {
		t.Error("super_chats missing after re-apply")
	}
}
