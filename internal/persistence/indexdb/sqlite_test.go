package indexdb

import (
	"database/sql"
	"path/filepath"
	"testing"

	"stackyard.dev/internal/protocol"
	"stackyard.dev/internal/sim/tuning"
	"stackyard.dev/internal/sim/yard"
)

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqTick, tick: yard.TickLogEntry{Tick: 1}}

	_ = s.WriteTick(yard.TickLogEntry{Tick: 2})
	_ = s.WriteOp(yard.OpLogEntry{Tick: 2, OpID: "op_000001"})

	st := s.Stats()
	if st.DropTickTotal != 1 {
		t.Fatalf("DropTickTotal=%d want=1", st.DropTickTotal)
	}
	if st.DropOpTotal != 1 {
		t.Fatalf("DropOpTotal=%d want=1", st.DropOpTotal)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}

func TestSQLiteIndex_TickAndOpRoundTrip(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "yard.sqlite")

	idx, err := OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	tickEntry := yard.TickLogEntry{
		Tick: 7,
		Joins: []yard.RecordedJoin{
			{SessionID: "S1", Name: "crane-1", Role: protocol.RoleDriver},
		},
		Leaves: []string{"S9"},
		Cmds: []yard.RecordedCmd{
			{SessionID: "S1", Cmd: protocol.CmdMsg{Type: protocol.TypeCmd, SessionID: "S1"}},
			{SessionID: "S1", Cmd: protocol.CmdMsg{Type: protocol.TypeCmd, SessionID: "S1"}},
		},
		Aborts: 1,
		Digest: "abc123",
	}
	if err := idx.WriteTick(tickEntry); err != nil {
		t.Fatalf("WriteTick: %v", err)
	}
	if err := idx.WriteOp(yard.OpLogEntry{
		Tick:        9,
		OpID:        "op_000001",
		Kind:        "PLACE",
		ContainerID: "C1",
		Outcome:     yard.OutcomeCompleted,
		Slot:        "A1",
		Tier:        1,
		Ticks:       60,
	}); err != nil {
		t.Fatalf("WriteOp: %v", err)
	}
	if err := idx.WriteOp(yard.OpLogEntry{
		Tick:        40,
		OpID:        "op_000002",
		Kind:        "REMOVE",
		ContainerID: "C1",
		Outcome:     yard.OutcomeAborted,
		GateIndex:   3,
		Ticks:       12,
		Message:     "aborted by operator",
	}); err != nil {
		t.Fatalf("WriteOp: %v", err)
	}
	if err := idx.UpsertConfig("", tuning.Tuning{TickRateHz: 20}); err != nil {
		t.Fatalf("UpsertConfig: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open sql: %v", err)
	}
	defer db.Close()

	{
		var digest string
		var joins, leaves, cmds, aborts int
		row := db.QueryRow(`SELECT digest,joins,leaves,cmds,aborts FROM ticks WHERE tick = ?`, 7)
		if err := row.Scan(&digest, &joins, &leaves, &cmds, &aborts); err != nil {
			t.Fatalf("scan ticks: %v", err)
		}
		if digest != "abc123" || joins != 1 || leaves != 1 || cmds != 2 || aborts != 1 {
			t.Fatalf("ticks row mismatch: digest=%q joins=%d leaves=%d cmds=%d aborts=%d",
				digest, joins, leaves, cmds, aborts)
		}
	}
	{
		var name, role string
		row := db.QueryRow(`SELECT name,role FROM joins WHERE tick = ? AND session_id = ?`, 7, "S1")
		if err := row.Scan(&name, &role); err != nil {
			t.Fatalf("scan joins: %v", err)
		}
		if name != "crane-1" || role != protocol.RoleDriver {
			t.Fatalf("joins row mismatch: name=%q role=%q", name, role)
		}
	}
	{
		var n int
		if err := db.QueryRow(`SELECT COUNT(*) FROM cmds WHERE tick = ? AND session_id = ?`, 7, "S1").Scan(&n); err != nil {
			t.Fatalf("count cmds: %v", err)
		}
		if n != 2 {
			t.Fatalf("cmds count=%d want 2", n)
		}
	}
	{
		var kind, outcome, slot string
		var tier int
		row := db.QueryRow(`SELECT kind,outcome,slot,tier FROM ops WHERE op_id = ?`, "op_000001")
		if err := row.Scan(&kind, &outcome, &slot, &tier); err != nil {
			t.Fatalf("scan ops: %v", err)
		}
		if kind != "PLACE" || outcome != yard.OutcomeCompleted || slot != "A1" || tier != 1 {
			t.Fatalf("ops row mismatch: kind=%q outcome=%q slot=%q tier=%d", kind, outcome, slot, tier)
		}
	}
	{
		var gateIndex int
		var message string
		row := db.QueryRow(`SELECT gate_index,message FROM ops WHERE op_id = ?`, "op_000002")
		if err := row.Scan(&gateIndex, &message); err != nil {
			t.Fatalf("scan aborted op: %v", err)
		}
		if gateIndex != 3 || message != "aborted by operator" {
			t.Fatalf("aborted op mismatch: gate_index=%d message=%q", gateIndex, message)
		}
	}
	{
		var digest, js string
		row := db.QueryRow(`SELECT digest,json FROM configs WHERE name = ?`, "tuning")
		if err := row.Scan(&digest, &js); err != nil {
			t.Fatalf("scan configs: %v", err)
		}
		if digest == "" || js == "" {
			t.Fatalf("configs row empty: digest=%q json=%q", digest, js)
		}
	}
}
