package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"stackyard.dev/internal/persistence/indexdb"
	"stackyard.dev/internal/sim/tuning"
	"stackyard.dev/internal/sim/yard"
)

type runtimeIndex interface {
	yard.TickLogger
	yard.OpLogger
	Close() error
	UpsertConfig(schemasDir string, tune tuning.Tuning) error
	Stats() indexdb.Stats
}

func openRuntimeIndex(yardDir string, disableDB bool) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("SY_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		dbPath := filepath.Join(yardDir, "index", "yard.sqlite")
		return indexdb.OpenSQLite(dbPath)
	default:
		return nil, fmt.Errorf("unsupported SY_INDEX_BACKEND: %s", backend)
	}
}

func writeIndexMetrics(rw http.ResponseWriter, idx runtimeIndex) {
	if idx == nil {
		return
	}
	s := idx.Stats()

	fmt.Fprintf(rw, "# HELP stackyard_index_queue_depth Current index write queue depth.\n")
	fmt.Fprintf(rw, "# TYPE stackyard_index_queue_depth gauge\n")
	fmt.Fprintf(rw, "stackyard_index_queue_depth %d\n", s.QueueDepth)

	fmt.Fprintf(rw, "# HELP stackyard_index_queue_capacity Index write queue capacity.\n")
	fmt.Fprintf(rw, "# TYPE stackyard_index_queue_capacity gauge\n")
	fmt.Fprintf(rw, "stackyard_index_queue_capacity %d\n", s.QueueCapacity)

	fmt.Fprintf(rw, "# HELP stackyard_index_dropped_total Index rows dropped because the queue was full.\n")
	fmt.Fprintf(rw, "# TYPE stackyard_index_dropped_total counter\n")
	fmt.Fprintf(rw, "stackyard_index_dropped_total{stream=%q} %d\n", "ticks", s.DropTickTotal)
	fmt.Fprintf(rw, "stackyard_index_dropped_total{stream=%q} %d\n", "ops", s.DropOpTotal)
}
