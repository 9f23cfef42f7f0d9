package oplog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/zstd"

	"stackyard.dev/internal/sim/yard"
)

// The replay tool reads these files back with zstd + a line scanner, so
// the round trip here pins the on-disk format.
func TestTickLoggerRoundTrip(t *testing.T) {
	dir := t.TempDir()

	l := NewTickLogger(dir)
	want := []yard.TickLogEntry{
		{Tick: 0, Digest: "d0"},
		{
			Tick:   1,
			Leaves: []string{"S1"},
			Cmds:   []yard.RecordedCmd{{SessionID: "S2"}},
			Aborts: 1,
			Digest: "d1",
		},
	}
	for _, e := range want {
		if err := l.WriteTick(e); err != nil {
			t.Fatalf("WriteTick: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	files, err := filepath.Glob(filepath.Join(dir, "ticks", "ticks-*.jsonl.zst"))
	if err != nil || len(files) != 1 {
		t.Fatalf("expected one tick file, got %v (err %v)", files, err)
	}

	f, err := os.Open(files[0])
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	zr, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	defer zr.Close()

	var got []yard.TickLogEntry
	sc := bufio.NewScanner(zr)
	for sc.Scan() {
		var e yard.TickLogEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("unmarshal %q: %v", sc.Text(), err)
		}
		got = append(got, e)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestOnCloseFiresForFinishedSegment(t *testing.T) {
	dir := t.TempDir()

	var closed []string
	l := NewTickLoggerWithOptions(dir, LoggerOptions{
		OnClose: func(p string) { closed = append(closed, p) },
	})
	if err := l.WriteTick(yard.TickLogEntry{Tick: 0, Digest: "d"}); err != nil {
		t.Fatalf("WriteTick: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if len(closed) != 1 {
		t.Fatalf("OnClose calls = %d, want 1 (%v)", len(closed), closed)
	}
	if _, err := os.Stat(closed[0]); err != nil {
		t.Fatalf("closed segment missing: %v", err)
	}
}

func TestOpLoggerWritesUnderOpsDir(t *testing.T) {
	dir := t.TempDir()

	l := NewOpLogger(dir)
	err := l.WriteOp(yard.OpLogEntry{
		Tick:        7,
		OpID:        "op_000001",
		Kind:        "PLACE",
		ContainerID: "C1",
		Outcome:     yard.OutcomeCompleted,
		Slot:        "A1",
		Tier:        1,
		Ticks:       42,
	})
	if err != nil {
		t.Fatalf("WriteOp: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	files, err := filepath.Glob(filepath.Join(dir, "ops", "ops-*.jsonl.zst"))
	if err != nil || len(files) != 1 {
		t.Fatalf("expected one op file, got %v (err %v)", files, err)
	}
}
