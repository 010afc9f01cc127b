package sqlite

import (
	"context"
	"path/filepath"
	"testing"
)

func TestInMemory_RoundTrip(t *testing.T) {
	conn, err := Open(InMemory())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	if err := conn.ExecuteScript(ctx, `
		CREATE TABLE kv (key TEXT PRIMARY KEY, value TEXT);
		INSERT INTO kv (key, value) VALUES ('a', '1');
	`); err != nil {
		t.Fatalf("ExecuteScript: %v", err)
	}

	affected, err := conn.Execute(ctx, "INSERT INTO kv (key, value) VALUES (?, ?)", "b", "2")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if affected != 1 {
		t.Errorf("expected 1 affected row, got %d", affected)
	}

	result, err := conn.Query(ctx, "SELECT key, value FROM kv ORDER BY key")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(result.Columns) != 2 || result.Columns[0] != "key" {
		t.Errorf("unexpected columns %v", result.Columns)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(result.Rows))
	}
}

func TestFile_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spin.db")
	ctx := context.Background()

	conn, err := Open(File(path))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := conn.ExecuteScript(ctx, "CREATE TABLE t (n INTEGER); INSERT INTO t VALUES (42);"); err != nil {
		t.Fatalf("ExecuteScript: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	conn, err = Open(File(path))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer conn.Close()

	result, err := conn.Query(ctx, "SELECT n FROM t")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(result.Rows) != 1 {
		t.Fatalf("expected 1 row after reopen, got %d", len(result.Rows))
	}
}

func TestQuery_Parameters(t *testing.T) {
	conn, err := Open(InMemory())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	if err := conn.ExecuteScript(ctx, "CREATE TABLE t (n INTEGER)"); err != nil {
		t.Fatal(err)
	}
	for _, n := range []int{1, 2, 3} {
		if _, err := conn.Execute(ctx, "INSERT INTO t VALUES (?)", n); err != nil {
			t.Fatal(err)
		}
	}

	result, err := conn.Query(ctx, "SELECT n FROM t WHERE n > ?", 1)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(result.Rows) != 2 {
		t.Errorf("expected 2 rows, got %d", len(result.Rows))
	}
}
