// Package oplog persists the yard's tick and operation streams as
// hour-rotated zstd-compressed JSONL files. The tick stream is the
// replay input; the op stream is a human-greppable record of every
// finished crane operation.
package oplog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"stackyard.dev/internal/sim/yard"
)

// DefaultRotateLayout keys one segment per UTC hour.
const DefaultRotateLayout = "2006-01-02-15"

// LoggerOptions tune segment rotation.
type LoggerOptions struct {
	// RotateLayout is a time layout naming each segment. A finer layout
	// (e.g. per-minute) closes segments faster, which lowers RPO when a
	// mirror uploads them.
	RotateLayout string
	// OnClose is called with the path of every finished segment,
	// including the last one on Close.
	OnClose func(path string)
}

type jsonlZstdWriter struct {
	baseDir string
	prefix  string
	layout  string
	onClose func(path string)

	mu      sync.Mutex
	curKey  string
	curPath string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func newJSONLZstdWriter(baseDir, prefix string, opts LoggerOptions) *jsonlZstdWriter {
	layout := opts.RotateLayout
	if layout == "" {
		layout = DefaultRotateLayout
	}
	return &jsonlZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
		layout:  layout,
		onClose: opts.OnClose,
	}
}

func (w *jsonlZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *jsonlZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	key := time.Now().UTC().Format(w.layout)
	if key != w.curKey {
		if err := w.rotateLocked(key); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *jsonlZstdWriter) rotateLocked(key string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	dir := filepath.Dir(w.pathForKey(key))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.pathForKey(key), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.curKey = key
	w.curPath = w.pathForKey(key)
	return nil
}

func (w *jsonlZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	if w.curPath != "" && w.onClose != nil {
		w.onClose(w.curPath)
	}
	w.curPath = ""
	return err1
}

func (w *jsonlZstdWriter) pathForKey(key string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, key))
}

// TickLogger writes one JSONL entry per tick (compressed). The replay
// tool consumes these files in order.
type TickLogger struct{ w *jsonlZstdWriter }

func NewTickLogger(yardDir string) *TickLogger {
	return NewTickLoggerWithOptions(yardDir, LoggerOptions{})
}

func NewTickLoggerWithOptions(yardDir string, opts LoggerOptions) *TickLogger {
	return &TickLogger{w: newJSONLZstdWriter(filepath.Join(yardDir, "ticks"), "ticks", opts)}
}

func (l *TickLogger) WriteTick(v yard.TickLogEntry) error { return l.w.Write(v) }
func (l *TickLogger) Close() error                        { return l.w.Close() }

// OpLogger writes one JSONL entry per finished crane operation
// (compressed).
type OpLogger struct{ w *jsonlZstdWriter }

func NewOpLogger(yardDir string) *OpLogger {
	return NewOpLoggerWithOptions(yardDir, LoggerOptions{})
}

func NewOpLoggerWithOptions(yardDir string, opts LoggerOptions) *OpLogger {
	return &OpLogger{w: newJSONLZstdWriter(filepath.Join(yardDir, "ops"), "ops", opts)}
}

func (l *OpLogger) WriteOp(v yard.OpLogEntry) error { return l.w.Write(v) }
func (l *OpLogger) Close() error                    { return l.w.Close() }
