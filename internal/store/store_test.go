package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestOpen_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arkos.db")

	first, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("database file was not created: %v", err)
	}
	if _, err := first.db.Exec(`INSERT INTO xp (user_id, xp, level) VALUES ('1', 5, 1)`); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	first.Close()

	for i := 0; i < 2; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("reopen %d failed: %v", i, err)
		}
		var xp int
		if err := s.db.QueryRow(`SELECT xp FROM xp WHERE user_id = '1'`).Scan(&xp); err != nil {
			t.Fatalf("reopen %d lost data: %v", i, err)
		}
		if xp != 5 {
			t.Errorf("reopen %d: xp = %d, want 5", i, xp)
		}
		s.Close()
	}
}

func TestOpen_InMemory(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	defer s.Close()

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM xp").Scan(&count); err != nil {
		t.Errorf("query failed: %v", err)
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	path := "/nonexistent/dir/test.db"

	_, err := Open(path)
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

func TestPing(t *testing.T) {
	s := createTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping() on open store: %v", err)
	}

	var unset *Store
	if err := unset.Ping(context.Background()); err == nil {
		t.Error("Ping() on nil store should fail")
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		pragma string
		want   string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"}, // NORMAL
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.pragma, func(t *testing.T) {
			if err := s.verifyPragma(tt.pragma, tt.want); err != nil {
				t.Error(err)
			}
		})
	}
}

// Schema table tests

func TestSchema_Tables(t *testing.T) {
	s := createTestStore(t)

	tests := map[string][]string{
		"proxies":     {"proxy_key", "proxy_name", "avatar_url"},
		"proxy_users": {"proxy_key", "user_id"},
		"xp":          {"user_id", "xp", "level"},
	}

	for table, expected := range tests {
		columns := getTableColumns(t, s.db, table)
		for _, col := range expected {
			if !contains(columns, col) {
				t.Errorf("%s table missing column %q", table, col)
			}
		}
	}
}

func TestSchema_ProxyUsersIndex(t *testing.T) {
	s := createTestStore(t)

	indexes := getTableIndexes(t, s.db, "proxy_users")
	if !contains(indexes, "idx_proxy_users_user") {
		t.Errorf("proxy_users missing idx_proxy_users_user, got %v", indexes)
	}
}

func TestSchema_MatchesMigratedDatabase(t *testing.T) {
	raw, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("sql.Open failed: %v", err)
	}
	defer raw.Close()
	raw.SetMaxOpenConns(1)

	if _, err := raw.Exec(schemaSQL); err != nil {
		t.Fatalf("schema failed: %v", err)
	}
	if !contains(getTableIndexes(t, raw, "proxy_users"), "idx_proxy_users_user") {
		t.Error("schema.sql alone does not create idx_proxy_users_user")
	}
}

func TestConstraint_GrantRequiresProxy(t *testing.T) {
	s := createTestStore(t)

	_, err := s.db.Exec(`INSERT INTO proxy_users (proxy_key, user_id) VALUES ('ghost', '1')`)
	if err == nil {
		t.Error("expected foreign key violation for grant on missing proxy")
	}
}

func TestConstraint_XPNonNegative(t *testing.T) {
	s := createTestStore(t)

	_, err := s.db.Exec(`INSERT INTO xp (user_id, xp, level) VALUES ('1', -1, 1)`)
	if err == nil {
		t.Error("expected check violation for negative xp")
	}
	_, err = s.db.Exec(`INSERT INTO xp (user_id, xp, level) VALUES ('1', 0, 0)`)
	if err == nil {
		t.Error("expected check violation for level 0")
	}
}

// Migration tests

func TestMigration_SchemaVersion(t *testing.T) {
	s := createTestStore(t)

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("failed to read user_version: %v", err)
	}
	if version != len(migrations) {
		t.Errorf("user_version = %d, want %d", version, len(migrations))
	}
}

func TestMigration_UpgradeFromLegacyDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")

	// Tables as written by the first release of the bot: no foreign key,
	// no index, no user_version.
	raw, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("sql.Open failed: %v", err)
	}
	for _, stmt := range []string{
		`CREATE TABLE proxies (proxy_key TEXT PRIMARY KEY, proxy_name TEXT, avatar_url TEXT)`,
		`CREATE TABLE proxy_users (proxy_key TEXT, user_id TEXT, PRIMARY KEY (proxy_key, user_id))`,
		`CREATE TABLE xp (user_id TEXT PRIMARY KEY, xp INTEGER DEFAULT 0, level INTEGER DEFAULT 1)`,
		`INSERT INTO proxies VALUES ('cap', 'Captain', 'http://x/a.png')`,
		`INSERT INTO proxy_users VALUES ('cap', '1')`,
		`INSERT INTO xp VALUES ('1', 40, 2)`,
	} {
		if _, err := raw.Exec(stmt); err != nil {
			t.Fatalf("seed %q failed: %v", stmt, err)
		}
	}
	raw.Close()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() on legacy database failed: %v", err)
	}
	defer s.Close()

	if !contains(getTableIndexes(t, s.db, "proxy_users"), "idx_proxy_users_user") {
		t.Error("migration did not add idx_proxy_users_user")
	}

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("failed to read user_version: %v", err)
	}
	if version != len(migrations) {
		t.Errorf("user_version = %d, want %d", version, len(migrations))
	}

	var level int
	if err := s.db.QueryRow("SELECT level FROM xp WHERE user_id = '1'").Scan(&level); err != nil {
		t.Fatalf("legacy xp row unreadable: %v", err)
	}
	if level != 2 {
		t.Errorf("legacy level = %d, want 2", level)
	}
}

func getTableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		t.Fatalf("failed to get table info for %q: %v", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			t.Fatalf("failed to scan column info: %v", err)
		}
		columns = append(columns, name)
	}
	return columns
}

func getTableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='index' AND tbl_name=?", table)
	if err != nil {
		t.Fatalf("failed to get indexes for %q: %v", table, err)
	}
	defer rows.Close()

	var indexes []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("failed to scan index name: %v", err)
		}
		indexes = append(indexes, name)
	}
	return indexes
}

func contains(slice []string, item string) bool {
	return slices.Contains(slice, item)
}
