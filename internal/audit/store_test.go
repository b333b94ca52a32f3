package audit

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"termagent/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "audit.db"), testLogger())
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLogAudit_AndRecent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	entries := []domain.AuditEntry{
		{SessionID: "A", Action: "tool_exec", ToolName: "execute_command", Command: "ls", Result: "ok", Details: "a\nb", Duration: 15 * time.Millisecond},
		{SessionID: "A", Action: "tool_missing", ToolName: "launch", Command: "now", Result: "not_found"},
		{SessionID: "B", Action: "tool_exec", ToolName: "read_file", Command: "go.mod", Result: "ok"},
	}
	for _, e := range entries {
		if err := s.LogAudit(ctx, e); err != nil {
			t.Fatalf("LogAudit: %v", err)
		}
	}

	all, err := s.Recent(ctx, "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}
	if all[0].ToolName != "read_file" {
		t.Fatalf("expected newest first, got %q", all[0].ToolName)
	}

	sessionA, err := s.Recent(ctx, "A", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(sessionA) != 2 {
		t.Fatalf("expected 2 records for session A, got %d", len(sessionA))
	}
	last := sessionA[1]
	if last.Command != "ls" || last.Details != "a\nb" || last.Duration != 15*time.Millisecond {
		t.Fatalf("unexpected record %+v", last)
	}
}

func TestRecent_Limit(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		s.LogAudit(ctx, domain.AuditEntry{Action: "tool_exec", ToolName: "list_directory"})
	}
	got, err := s.Recent(ctx, "", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
}

func TestNewSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	s, err := NewSQLiteStore(path, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	s.LogAudit(context.Background(), domain.AuditEntry{Action: "tool_exec"})
	s.Close()

	s, err = NewSQLiteStore(path, testLogger())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	got, _ := s.Recent(context.Background(), "", 0)
	if len(got) != 1 {
		t.Fatalf("expected persisted entry, got %d", len(got))
	}
}
