package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"stackyard.dev/internal/persistence/oplog"
	"stackyard.dev/internal/sim/tuning"
	"stackyard.dev/internal/sim/yard"
	"stackyard.dev/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		yardID     = flag.String("yard", "yard_1", "yard id")
		configDir  = flag.String("configs", "./configs", "config directory")
		schemasDir = flag.String("schemas", "./schemas", "protocol schema directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite read-model index")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	yardDir := filepath.Join(*dataDir, "yards", *yardID)
	_ = os.MkdirAll(yardDir, 0o755)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("tuning not found (%s); using defaults", tp)
			tune = tuning.Defaults()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}

	// Optional: read-model index backend (does not affect sim determinism).
	idx, err := openRuntimeIndex(yardDir, *disableDB)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertConfig(*schemasDir, tune); err != nil {
			logger.Printf("index backend: upsert config: %v", err)
		}
	}

	mirror, err := buildLogMirrorRuntime(*dataDir, logger)
	if err != nil {
		logger.Fatalf("init log mirror: %v", err)
	}
	defer mirror.Close()

	y := yard.New(yard.YardConfig{
		ID:              *yardID,
		TickRateHz:      tune.TickRateHz,
		StateEveryTicks: tune.StateEveryTicks,
		CellW:           tune.Geometry.CellWidth,
		CellH:           tune.Geometry.CellHeight,
		CellD:           tune.Geometry.CellDepth,
		Origin:          vec3From(tune.Geometry.YardOrigin),
		GateBase:        vec3From(tune.Geometry.GateBase),
		GateSpacing:     tune.Geometry.GateSpacing,
		TravelY:         tune.Geometry.TravelY,
		BridgeSpeed:     tune.Crane.BridgeSpeed,
		HoistSpeed:      tune.Crane.HoistSpeed,
		MinLegTicks:     tune.Crane.MinLegTicks,
	})

	ctx, cancel := signalContext()
	defer cancel()

	logOpts := oplog.LoggerOptions{}
	if mirror.enabled {
		logOpts.RotateLayout = mirror.rotateLayout
		logOpts.OnClose = mirror.Enqueue
	}
	tickLog := oplog.NewTickLoggerWithOptions(yardDir, logOpts)
	opLog := oplog.NewOpLoggerWithOptions(yardDir, logOpts)
	defer tickLog.Close()
	defer opLog.Close()
	y.SetTickLogger(multiTickLogger{a: tickLog, b: idx})
	y.SetOpLogger(multiOpLogger{a: opLog, b: idx})

	go func() {
		if err := y.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("yard stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		m := y.Metrics()
		tick := y.CurrentTick()
		if m.Tick != 0 {
			tick = m.Tick
		}

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP stackyard_yard_tick Current yard tick.\n")
		fmt.Fprintf(rw, "# TYPE stackyard_yard_tick gauge\n")
		fmt.Fprintf(rw, "stackyard_yard_tick{yard=%q} %d\n", *yardID, tick)

		fmt.Fprintf(rw, "# HELP stackyard_yard_sessions Current number of connected sessions.\n")
		fmt.Fprintf(rw, "# TYPE stackyard_yard_sessions gauge\n")
		fmt.Fprintf(rw, "stackyard_yard_sessions{yard=%q} %d\n", *yardID, m.Sessions)

		fmt.Fprintf(rw, "# HELP stackyard_yard_containers Containers known to the yard, by state.\n")
		fmt.Fprintf(rw, "# TYPE stackyard_yard_containers gauge\n")
		fmt.Fprintf(rw, "stackyard_yard_containers{yard=%q,state=%q} %d\n", *yardID, "staged", m.Staged)
		fmt.Fprintf(rw, "stackyard_yard_containers{yard=%q,state=%q} %d\n", *yardID, "placed", m.Placed)

		fmt.Fprintf(rw, "# HELP stackyard_yard_ledger_rev Slot ledger revision.\n")
		fmt.Fprintf(rw, "# TYPE stackyard_yard_ledger_rev counter\n")
		fmt.Fprintf(rw, "stackyard_yard_ledger_rev{yard=%q} %d\n", *yardID, m.LedgerRev)

		fmt.Fprintf(rw, "# HELP stackyard_yard_op_active Whether a crane operation is in flight.\n")
		fmt.Fprintf(rw, "# TYPE stackyard_yard_op_active gauge\n")
		fmt.Fprintf(rw, "stackyard_yard_op_active{yard=%q} %d\n", *yardID, boolTo01(m.OpActive))

		fmt.Fprintf(rw, "# HELP stackyard_yard_queue_depth Channel backlog depth.\n")
		fmt.Fprintf(rw, "# TYPE stackyard_yard_queue_depth gauge\n")
		fmt.Fprintf(rw, "stackyard_yard_queue_depth{yard=%q,queue=%q} %d\n", *yardID, "inbox", m.QueueDepths.Inbox)
		fmt.Fprintf(rw, "stackyard_yard_queue_depth{yard=%q,queue=%q} %d\n", *yardID, "join", m.QueueDepths.Join)
		fmt.Fprintf(rw, "stackyard_yard_queue_depth{yard=%q,queue=%q} %d\n", *yardID, "leave", m.QueueDepths.Leave)
		fmt.Fprintf(rw, "stackyard_yard_queue_depth{yard=%q,queue=%q} %d\n", *yardID, "abort", m.QueueDepths.Abort)

		fmt.Fprintf(rw, "# HELP stackyard_yard_step_ms Last tick step duration in milliseconds.\n")
		fmt.Fprintf(rw, "# TYPE stackyard_yard_step_ms gauge\n")
		fmt.Fprintf(rw, "stackyard_yard_step_ms{yard=%q} %.3f\n", *yardID, m.StepMS)

		fmt.Fprintf(rw, "# HELP stackyard_stats_window Rolling window operation counts.\n")
		fmt.Fprintf(rw, "# TYPE stackyard_stats_window gauge\n")
		fmt.Fprintf(rw, "stackyard_stats_window{yard=%q,metric=%q} %d\n", *yardID, "admitted", m.StatsWindow.Admitted)
		fmt.Fprintf(rw, "stackyard_stats_window{yard=%q,metric=%q} %d\n", *yardID, "completed", m.StatsWindow.Completed)
		fmt.Fprintf(rw, "stackyard_stats_window{yard=%q,metric=%q} %d\n", *yardID, "aborted", m.StatsWindow.Aborted)
		fmt.Fprintf(rw, "stackyard_stats_window{yard=%q,metric=%q} %d\n", *yardID, "denied", m.StatsWindow.Denied)

		fmt.Fprintf(rw, "# HELP stackyard_stats_window_ticks Rolling window size in ticks.\n")
		fmt.Fprintf(rw, "# TYPE stackyard_stats_window_ticks gauge\n")
		fmt.Fprintf(rw, "stackyard_stats_window_ticks{yard=%q} %d\n", *yardID, m.StatsWindowTicks)

		writeLogMirrorMetrics(rw, mirror)
		writeIndexMetrics(rw, idx)
	})

	enableAdminHTTP := envBool("SY_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP())
	enablePprofHTTP := envBool("SY_ENABLE_PPROF_HTTP", false)
	if enableAdminHTTP {
		// Local-only admin endpoints (do not affect simulation determinism).
		mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			resp := struct {
				YardID  string           `json:"yard_id"`
				Tick    uint64           `json:"tick"`
				Metrics yard.YardMetrics `json:"metrics"`
			}{
				YardID:  *yardID,
				Tick:    y.CurrentTick(),
				Metrics: y.Metrics(),
			}
			_ = json.NewEncoder(rw).Encode(resp)
		})
		mux.HandleFunc("/admin/v1/abort", func(rw http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				rw.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			ctx2, cancel2 := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel2()
			aborted, err := y.RequestAbortOp(ctx2)
			rw.Header().Set("Content-Type", "application/json")
			if err != nil {
				rw.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "error": err.Error()})
				return
			}
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "aborted": aborted, "tick": y.CurrentTick()})
		})
	} else {
		logger.Printf("admin endpoints disabled (SY_ENABLE_ADMIN_HTTP=false)")
	}
	if enablePprofHTTP {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	} else {
		logger.Printf("pprof endpoints disabled (SY_ENABLE_PPROF_HTTP=false)")
	}
	mux.HandleFunc("/v1/ws", ws.NewServer(y, logger).Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func vec3From(v []float64) yard.Vec3 {
	if len(v) != 3 {
		return yard.Vec3{}
	}
	return yard.Vec3{X: v[0], Y: v[1], Z: v[2]}
}

func boolTo01(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

type multiTickLogger struct {
	a yard.TickLogger
	b yard.TickLogger
}

func (m multiTickLogger) WriteTick(entry yard.TickLogEntry) error {
	if m.a != nil {
		_ = m.a.WriteTick(entry)
	}
	if m.b != nil {
		_ = m.b.WriteTick(entry)
	}
	return nil
}

type multiOpLogger struct {
	a yard.OpLogger
	b yard.OpLogger
}

func (m multiOpLogger) WriteOp(entry yard.OpLogEntry) error {
	if m.a != nil {
		_ = m.a.WriteOp(entry)
	}
	if m.b != nil {
		_ = m.b.WriteOp(entry)
	}
	return nil
}
