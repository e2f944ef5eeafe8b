package log

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"

	"immortal.idle/internal/sim/activity"
	"immortal.idle/internal/sim/progression"
)

func readJSONL(t *testing.T, path string) []progression.AuditEntry {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	defer dec.Close()
	var out []progression.AuditEntry
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		var e progression.AuditEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("decode line %q: %v", sc.Text(), err)
		}
		out = append(out, e)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return out
}

func TestAuditLogger_WritesJSONL(t *testing.T) {
	dir := t.TempDir()
	l := NewAuditLogger(dir)
	l.now = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) }

	entries := []progression.AuditEntry{
		{Tick: 1, Lifetime: "L1", Action: progression.ActionUnlocked, Activity: activity.Blacksmithing},
		{Tick: 2, Lifetime: "L1", Action: progression.ActionLevelUp, Activity: activity.Blacksmithing, Level: 1},
	}
	for _, e := range entries {
		if err := l.WriteAudit(e); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if got := l.Written(); got != 2 {
		t.Fatalf("written: got %d want 2", got)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	got := readJSONL(t, filepath.Join(dir, "audit", "audit-2026-03-04-05.jsonl.zst"))
	if len(got) != 2 {
		t.Fatalf("entries: got %d want 2", len(got))
	}
	if got[1].Action != progression.ActionLevelUp || got[1].Level != 1 || got[1].Activity != activity.Blacksmithing {
		t.Fatalf("second entry: %+v", got[1])
	}
}

func TestAuditLogger_RotatesHourly(t *testing.T) {
	dir := t.TempDir()
	l := NewAuditLogger(dir)
	now := time.Date(2026, 3, 4, 5, 59, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	if err := l.WriteAudit(progression.AuditEntry{Tick: 1}); err != nil {
		t.Fatalf("write: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if err := l.WriteAudit(progression.AuditEntry{Tick: 2}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	for i, name := range []string{"audit-2026-03-04-05.jsonl.zst", "audit-2026-03-04-06.jsonl.zst"} {
		got := readJSONL(t, filepath.Join(dir, "audit", name))
		if len(got) != 1 || got[0].Tick != uint64(i+1) {
			t.Fatalf("%s: got %+v", name, got)
		}
	}
}

func TestAuditLogger_AppendsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	at := func() time.Time { return time.Date(2026, 3, 4, 5, 0, 0, 0, time.UTC) }
	for tick := uint64(1); tick <= 2; tick++ {
		l := NewAuditLogger(dir)
		l.now = at
		if err := l.WriteAudit(progression.AuditEntry{Tick: tick}); err != nil {
			t.Fatalf("write: %v", err)
		}
		if err := l.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}
	if got := readJSONL(t, filepath.Join(dir, "audit", "audit-2026-03-04-05.jsonl.zst")); len(got) != 2 {
		t.Fatalf("entries: got %d want 2", len(got))
	}
}
