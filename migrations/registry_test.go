package migrations

import (
	"context"
	"database/sql"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	savedobjects "github.com/goliatone/go-savedobjects"
	_ "github.com/mattn/go-sqlite3"
)

func TestFilesystems_ReturnsPostgresAndSQLite(t *testing.T) {
	filesystems, err := Filesystems()
	if err != nil {
		t.Fatalf("filesystems: %v", err)
	}
	if len(filesystems) != 2 {
		t.Fatalf("expected 2 filesystems, got %d", len(filesystems))
	}

	var postgresFound bool
	var sqliteFound bool
	for _, entry := range filesystems {
		matches, globErr := fs.Glob(entry.FS, "*.up.sql")
		if globErr != nil {
			t.Fatalf("glob %s: %v", entry.Dialect, globErr)
		}
		if len(matches) == 0 {
			t.Fatalf("expected %s migration files, got none", entry.Dialect)
		}
		switch entry.Dialect {
		case DialectPostgres:
			postgresFound = true
		case DialectSQLite:
			sqliteFound = true
		}
	}

	if !postgresFound {
		t.Fatalf("expected postgres filesystem")
	}
	if !sqliteFound {
		t.Fatalf("expected sqlite filesystem")
	}
}

func TestRegister_UsesValidationTargets(t *testing.T) {
	var calls []string
	reg, err := Register(context.Background(), func(_ context.Context, dialect string, _ string, _ fs.FS) error {
		calls = append(calls, dialect)
		return nil
	}, WithValidationTargets(DialectSQLite))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if len(calls) != 1 {
		t.Fatalf("expected 1 registration call, got %d", len(calls))
	}
	if calls[0] != DialectSQLite {
		t.Fatalf("expected sqlite registration, got %q", calls[0])
	}
	if reg.SourceLabel != "go-savedobjects" {
		t.Fatalf("expected default source label, got %q", reg.SourceLabel)
	}
}

func TestForDialect_FiltersOtherDialects(t *testing.T) {
	var registered []fs.FS
	_, err := Register(context.Background(), ForDialect(DialectPostgres, func(fsys fs.FS) {
		registered = append(registered, fsys)
	}))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if len(registered) != 1 {
		t.Fatalf("expected only the postgres filesystem, got %d", len(registered))
	}
	if _, err := fs.ReadFile(registered[0], "00001_savedobjects_schema.up.sql"); err != nil {
		t.Fatalf("expected postgres schema in registered filesystem: %v", err)
	}
	content, _ := fs.ReadFile(registered[0], "00001_savedobjects_schema.up.sql")
	if !strings.Contains(string(content), "JSONB") {
		t.Fatalf("expected postgres variant of the schema")
	}
}

func TestDialectForDriver(t *testing.T) {
	cases := map[string]string{
		"postgres": DialectPostgres,
		"pgx":      DialectPostgres,
		"sqlite3":  DialectSQLite,
		" SQLite ": DialectSQLite,
	}
	for driver, want := range cases {
		got, err := DialectForDriver(driver)
		if err != nil {
			t.Fatalf("dialect for %q: %v", driver, err)
		}
		if got != want {
			t.Fatalf("expected %s for %q, got %s", want, driver, got)
		}
	}
	if _, err := DialectForDriver("mysql"); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
}

func TestVersions_AreOrderedAndMatchAcrossDialects(t *testing.T) {
	filesystems, err := Filesystems()
	if err != nil {
		t.Fatalf("filesystems: %v", err)
	}
	var expected []string
	for _, entry := range filesystems {
		versions, err := Versions(entry.FS)
		if err != nil {
			t.Fatalf("versions %s: %v", entry.Dialect, err)
		}
		if len(versions) < 2 || versions[0] != "00001_savedobjects_schema" {
			t.Fatalf("unexpected %s versions %v", entry.Dialect, versions)
		}
		if expected == nil {
			expected = versions
			continue
		}
		if strings.Join(expected, ",") != strings.Join(versions, ",") {
			t.Fatalf("expected dialects to share versions, got %v and %v", expected, versions)
		}
	}
}

func TestMigrationPairs_ExistForBothDialects(t *testing.T) {
	root := savedobjects.GetMigrationsFS()
	for _, name := range []string{"00001_savedobjects_schema", "00002_savedobjects_origin_lookup"} {
		paths := []string{
			"data/sql/migrations/" + name + ".up.sql",
			"data/sql/migrations/" + name + ".down.sql",
			"data/sql/migrations/sqlite/" + name + ".up.sql",
			"data/sql/migrations/sqlite/" + name + ".down.sql",
		}
		for _, migrationPath := range paths {
			content, err := fs.ReadFile(root, migrationPath)
			if err != nil {
				t.Fatalf("read migration %s: %v", migrationPath, err)
			}
			if strings.TrimSpace(string(content)) == "" {
				t.Fatalf("expected migration %s to have SQL content", migrationPath)
			}
		}
	}
}

func TestSQLiteSchemaMigration_ApplyAndRollback(t *testing.T) {
	db, err := sql.Open("sqlite3", "file:migrations-savedobjects-schema?mode=memory&cache=shared&_foreign_keys=on")
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	defer func() { _ = db.Close() }()

	sqliteMigrations, err := fs.Sub(savedobjects.GetMigrationsFS(), "data/sql/migrations/sqlite")
	if err != nil {
		t.Fatalf("resolve sqlite migrations: %v", err)
	}
	ctx := context.Background()

	for _, migration := range []string{
		"00001_savedobjects_schema.up.sql",
		"00002_savedobjects_origin_lookup.up.sql",
	} {
		if err := execSQLMigration(ctx, db, sqliteMigrations, migration); err != nil {
			t.Fatalf("apply migration %s: %v", migration, err)
		}
	}

	for _, tableName := range []string{"saved_objects", "data_source_assignments"} {
		if countSQLiteObjects(t, db, "table", tableName) != 1 {
			t.Fatalf("expected table %s to exist after up migration", tableName)
		}
	}
	if countSQLiteObjects(t, db, "index", "idx_saved_objects_origin") != 1 {
		t.Fatalf("expected origin index after up migration")
	}

	insertStatement := `
		INSERT INTO saved_objects (id, namespace, type, object_id, origin_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := db.ExecContext(ctx, insertStatement,
		"row-1", "default", "dashboard", "overview", "", "2026-01-01T00:00:00Z", "2026-01-01T00:00:00Z",
	); err != nil {
		t.Fatalf("insert saved object: %v", err)
	}
	if _, err := db.ExecContext(ctx, insertStatement,
		"row-2", "default", "dashboard", "overview", "", "2026-01-02T00:00:00Z", "2026-01-02T00:00:00Z",
	); err == nil {
		t.Fatalf("expected unique key violation for duplicate namespace/type/id")
	}
	if _, err := db.ExecContext(ctx, insertStatement,
		"row-3", "team-a", "dashboard", "overview", "", "2026-01-02T00:00:00Z", "2026-01-02T00:00:00Z",
	); err != nil {
		t.Fatalf("expected same id in another namespace to succeed: %v", err)
	}

	var attributes string
	if err := db.QueryRowContext(ctx, `SELECT attributes FROM saved_objects WHERE id = ?`, "row-1").Scan(&attributes); err != nil {
		t.Fatalf("select attributes: %v", err)
	}
	if attributes != "{}" {
		t.Fatalf("expected empty attributes default, got %q", attributes)
	}

	for _, migration := range []string{
		"00002_savedobjects_origin_lookup.down.sql",
		"00001_savedobjects_schema.down.sql",
	} {
		if err := execSQLMigration(ctx, db, sqliteMigrations, migration); err != nil {
			t.Fatalf("apply migration %s: %v", migration, err)
		}
	}
	if countSQLiteObjects(t, db, "table", "saved_objects") != 0 {
		t.Fatalf("expected saved_objects to be dropped after down migration")
	}
}

func countSQLiteObjects(t *testing.T, db *sql.DB, kind string, name string) int {
	t.Helper()
	var count int
	if err := db.QueryRowContext(
		context.Background(),
		`SELECT COUNT(*) FROM sqlite_master WHERE type=? AND name=?`,
		kind,
		name,
	).Scan(&count); err != nil {
		t.Fatalf("query sqlite_master for %s: %v", name, err)
	}
	return count
}

func execSQLMigration(ctx context.Context, db *sql.DB, fsys fs.FS, filename string) error {
	content, err := fs.ReadFile(fsys, filepath.Clean(filename))
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, string(content))
	return err
}
