package sqlstore

import (
	"context"
	"testing"
)

func newTestClient(t *testing.T) *sqlClient {
	t.Helper()

	client, err := NewSQLiteClient(context.Background(), t.TempDir(), "test.db")
	if err != nil {
		t.Fatalf("new sqlite client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestLedgerIndexesExistAfterMigrations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	tests := map[string][]string{
		"roles":    {"idx_roles_username"},
		"scammers": {"idx_scammers_username"},
		"bans":     {"idx_bans_username"},
		"warns":    {"idx_warns_username"},
		"mutes":    {"idx_mutes_username"},
	}
	for table, required := range tests {
		rows, err := client.db.QueryContext(ctx, "PRAGMA index_list('"+table+"')")
		if err != nil {
			t.Fatalf("query index_list(%s): %v", table, err)
		}

		indexes := make(map[string]struct{})
		for rows.Next() {
			var (
				seq     int
				name    string
				unique  int
				origin  string
				partial int
			)
			if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
				_ = rows.Close()
				t.Fatalf("scan index row: %v", err)
			}
			indexes[name] = struct{}{}
		}
		if err := rows.Err(); err != nil {
			t.Fatalf("iterate index rows: %v", err)
		}
		_ = rows.Close()

		for _, name := range required {
			if _, ok := indexes[name]; !ok {
				t.Fatalf("required index %q not found on %s", name, table)
			}
		}
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()

	first, err := NewSQLiteClient(ctx, dir, "test.db")
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	_ = first.Close()

	second, err := NewSQLiteClient(ctx, dir, "test.db")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { _ = second.Close() })

	if err := second.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
