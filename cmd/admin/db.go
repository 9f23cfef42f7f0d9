package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	yardID := fs.String("yard", "", "yard id (required unless -db)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	limit := fs.Int("limit", 20, "result limit")
	containerID := fs.String("container", "", "container_id filter (ops)")
	outcome := fs.String("outcome", "", "outcome filter (ops): COMPLETED|ABORTED")
	_ = fs.Parse(args)

	q := "ticks"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}
	if *limit <= 0 {
		*limit = 20
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		if strings.TrimSpace(*yardID) == "" {
			fmt.Fprintln(os.Stderr, "missing -yard or -db")
			os.Exit(2)
		}
		path = filepath.Join(*dataDir, "yards", *yardID, "index", "yard.sqlite")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	switch q {
	case "ticks":
		rows, err := db.Query(`SELECT tick,digest,joins,leaves,cmds,aborts FROM ticks ORDER BY tick DESC LIMIT ?`, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Tick   int64  `json:"tick"`
				Digest string `json:"digest"`
				Joins  int    `json:"joins"`
				Leaves int    `json:"leaves"`
				Cmds   int    `json:"cmds"`
				Aborts int    `json:"aborts"`
			}
			if err := rows.Scan(&r.Tick, &r.Digest, &r.Joins, &r.Leaves, &r.Cmds, &r.Aborts); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "ops":
		query := `SELECT op_id,tick,kind,container_id,outcome,slot,tier,gate_index,ticks,message FROM ops ORDER BY tick DESC LIMIT ?`
		qargs := []any{*limit}
		switch {
		case strings.TrimSpace(*containerID) != "":
			query = `SELECT op_id,tick,kind,container_id,outcome,slot,tier,gate_index,ticks,message FROM ops WHERE container_id=? ORDER BY tick DESC LIMIT ?`
			qargs = []any{strings.TrimSpace(*containerID), *limit}
		case strings.TrimSpace(*outcome) != "":
			query = `SELECT op_id,tick,kind,container_id,outcome,slot,tier,gate_index,ticks,message FROM ops WHERE outcome=? ORDER BY tick DESC LIMIT ?`
			qargs = []any{strings.ToUpper(strings.TrimSpace(*outcome)), *limit}
		}
		rows, err := db.Query(query, qargs...)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				OpID        string `json:"op_id"`
				Tick        int64  `json:"tick"`
				Kind        string `json:"kind"`
				ContainerID string `json:"container_id"`
				Outcome     string `json:"outcome"`
				Slot        string `json:"slot,omitempty"`
				Tier        int    `json:"tier,omitempty"`
				GateIndex   int    `json:"gate_index"`
				Ticks       int    `json:"ticks"`
				Message     string `json:"message,omitempty"`
			}
			if err := rows.Scan(&r.OpID, &r.Tick, &r.Kind, &r.ContainerID, &r.Outcome, &r.Slot, &r.Tier, &r.GateIndex, &r.Ticks, &r.Message); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "slots":
		rows, err := db.Query(`SELECT slot,tier,COUNT(*) FROM ops WHERE kind='PLACE' AND outcome='COMPLETED' AND slot!='' GROUP BY slot,tier ORDER BY slot,tier`)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Slot   string `json:"slot"`
				Tier   int    `json:"tier"`
				Placed int    `json:"placed"`
			}
			if err := rows.Scan(&r.Slot, &r.Tier, &r.Placed); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "sessions":
		rows, err := db.Query(`SELECT tick,session_id,name,role FROM joins ORDER BY tick DESC LIMIT ?`, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Tick      int64  `json:"tick"`
				SessionID string `json:"session_id"`
				Name      string `json:"name"`
				Role      string `json:"role"`
			}
			if err := rows.Scan(&r.Tick, &r.SessionID, &r.Name, &r.Role); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "configs":
		rows, err := db.Query(`SELECT name,digest,updated_at FROM configs ORDER BY name`)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Name      string `json:"name"`
				Digest    string `json:"digest"`
				UpdatedAt string `json:"updated_at"`
			}
			if err := rows.Scan(&r.Name, &r.Digest, &r.UpdatedAt); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q)
		fmt.Fprintln(os.Stderr, "usage: admin db [-data ./data] [-yard YARD|-db PATH] [-limit N] ticks|ops|slots|sessions|configs")
		os.Exit(2)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
