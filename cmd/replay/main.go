package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"stackyard.dev/internal/sim/tuning"
	"stackyard.dev/internal/sim/yard"
)

// Rebuilds a yard from its recorded tick stream and verifies that every
// stepped tick reproduces the recorded state digest. Replays always run
// from genesis, so the log must start at tick 0.
func main() {
	var (
		dataDir    = flag.String("data", "./data", "runtime data directory")
		yardID     = flag.String("yard", "yard_1", "yard id")
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		fromTick   = flag.Uint64("from_tick", 0, "start verifying digests from tick (inclusive)")
		toTick     = flag.Uint64("to_tick", 0, "stop at tick (inclusive, 0 = all)")
	)
	flag.Parse()

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "tuning not found (%s); using defaults\n", tp)
			tune = tuning.Defaults()
		} else {
			fmt.Fprintln(os.Stderr, "load tuning:", err)
			os.Exit(1)
		}
	}

	// Geometry and crane speeds feed the digest; the replayed yard must
	// be configured exactly like the recorded run.
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

	ticksDir := filepath.Join(*dataDir, "yards", *yardID, "ticks")
	files, err := listTickFiles(ticksDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list ticks:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no tick files found in", ticksDir)
		os.Exit(1)
	}

	var checked uint64
	for _, path := range files {
		if err := replayFile(y, path, *fromTick, *toTick, &checked); err != nil {
			fmt.Fprintln(os.Stderr, "replay:", err)
			os.Exit(1)
		}
		if *toTick != 0 && y.CurrentTick() > *toTick {
			break
		}
	}
	fmt.Printf("replay ok: checked=%d ticks (final tick=%d)\n", checked, y.CurrentTick())
}

func listTickFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "ticks-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

func replayFile(y *yard.Yard, path string, verifyFrom, toTick uint64, checked *uint64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)

	for sc.Scan() {
		line := sc.Bytes()
		var entry yard.TickLogEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			return fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
		}
		if toTick != 0 && entry.Tick > toTick {
			return nil
		}
		if entry.Tick != y.CurrentTick() {
			return fmt.Errorf("tick mismatch: want=%d got=%d (file=%s)", y.CurrentTick(), entry.Tick, filepath.Base(path))
		}

		tick, gotDigest := y.StepReplay(entry)

		// Sanity check: StepReplay should have stepped the same tick.
		if tick != entry.Tick {
			return fmt.Errorf("internal tick mismatch: stepped=%d entry=%d (file=%s)", tick, entry.Tick, filepath.Base(path))
		}

		if tick >= verifyFrom {
			*checked++
			if gotDigest != entry.Digest {
				return fmt.Errorf("digest mismatch at tick %d: got=%s want=%s", tick, gotDigest, entry.Digest)
			}
		}
	}
	return sc.Err()
}

func vec3From(v []float64) yard.Vec3 {
	if len(v) != 3 {
		return yard.Vec3{}
	}
	return yard.Vec3{X: v[0], Y: v[1], Z: v[2]}
}
