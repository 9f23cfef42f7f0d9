package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"stackyard.dev/internal/persistence/logmirror"
)

type logMirrorRuntime struct {
	enabled      bool
	rotateLayout string
	mirror       *logmirror.Mirror
}

func buildLogMirrorRuntime(dataDir string, logger *log.Logger) (*logMirrorRuntime, error) {
	enabled := envBool("SY_MIRROR", false)
	if !enabled {
		return &logMirrorRuntime{enabled: false}, nil
	}

	endpoint := strings.TrimSpace(os.Getenv("SY_MIRROR_ENDPOINT"))
	bucket := strings.TrimSpace(os.Getenv("SY_MIRROR_BUCKET"))
	region := strings.TrimSpace(os.Getenv("SY_MIRROR_REGION"))
	accessKeyID := strings.TrimSpace(os.Getenv("SY_MIRROR_ACCESS_KEY_ID"))
	secretAccessKey := strings.TrimSpace(os.Getenv("SY_MIRROR_SECRET_ACCESS_KEY"))
	prefix := strings.TrimSpace(os.Getenv("SY_MIRROR_PREFIX"))

	if endpoint == "" || bucket == "" || accessKeyID == "" || secretAccessKey == "" {
		return nil, fmt.Errorf("SY_MIRROR=true but SY_MIRROR_ENDPOINT/SY_MIRROR_BUCKET/SY_MIRROR_ACCESS_KEY_ID/SY_MIRROR_SECRET_ACCESS_KEY are not fully set")
	}

	client, err := logmirror.New(endpoint, bucket, region, accessKeyID, secretAccessKey)
	if err != nil {
		return nil, err
	}

	workers := envInt("SY_MIRROR_UPLOAD_WORKERS", 2)
	mirror := logmirror.NewMirror(client, dataDir, prefix, workers, 2048, 25*time.Millisecond, logger)

	return &logMirrorRuntime{
		enabled:      true,
		rotateLayout: "2006-01-02-15-04", // 1-minute segments to lower RPO.
		mirror:       mirror,
	}, nil
}

func (r *logMirrorRuntime) Close() {
	if r == nil || r.mirror == nil {
		return
	}
	r.mirror.Close()
}

func (r *logMirrorRuntime) Enqueue(localPath string) {
	if r == nil || !r.enabled || r.mirror == nil {
		return
	}
	r.mirror.Enqueue(localPath)
}

func writeLogMirrorMetrics(rw http.ResponseWriter, mirror *logMirrorRuntime) {
	if mirror == nil || !mirror.enabled || mirror.mirror == nil {
		return
	}
	s := mirror.mirror.Stats()

	fmt.Fprintf(rw, "# HELP stackyard_mirror_queue_depth Current log mirror queue depth.\n")
	fmt.Fprintf(rw, "# TYPE stackyard_mirror_queue_depth gauge\n")
	fmt.Fprintf(rw, "stackyard_mirror_queue_depth %d\n", s.QueueDepth)

	fmt.Fprintf(rw, "# HELP stackyard_mirror_queue_capacity Log mirror queue capacity.\n")
	fmt.Fprintf(rw, "# TYPE stackyard_mirror_queue_capacity gauge\n")
	fmt.Fprintf(rw, "stackyard_mirror_queue_capacity %d\n", s.QueueCapacity)

	fmt.Fprintf(rw, "# HELP stackyard_mirror_enqueued_total Total mirror enqueue attempts.\n")
	fmt.Fprintf(rw, "# TYPE stackyard_mirror_enqueued_total counter\n")
	fmt.Fprintf(rw, "stackyard_mirror_enqueued_total %d\n", s.EnqueuedTotal)

	fmt.Fprintf(rw, "# HELP stackyard_mirror_queue_saturated_total Total enqueue attempts when the queue was saturated.\n")
	fmt.Fprintf(rw, "# TYPE stackyard_mirror_queue_saturated_total counter\n")
	fmt.Fprintf(rw, "stackyard_mirror_queue_saturated_total %d\n", s.QueueSaturatedTotal)

	fmt.Fprintf(rw, "# HELP stackyard_mirror_dropped_total Total files dropped because the queue remained saturated.\n")
	fmt.Fprintf(rw, "# TYPE stackyard_mirror_dropped_total counter\n")
	fmt.Fprintf(rw, "stackyard_mirror_dropped_total %d\n", s.DroppedTotal)

	fmt.Fprintf(rw, "# HELP stackyard_mirror_upload_success_total Total successful mirror uploads.\n")
	fmt.Fprintf(rw, "# TYPE stackyard_mirror_upload_success_total counter\n")
	fmt.Fprintf(rw, "stackyard_mirror_upload_success_total %d\n", s.UploadSuccessTotal)

	fmt.Fprintf(rw, "# HELP stackyard_mirror_upload_fail_total Total failed mirror uploads after retry.\n")
	fmt.Fprintf(rw, "# TYPE stackyard_mirror_upload_fail_total counter\n")
	fmt.Fprintf(rw, "stackyard_mirror_upload_fail_total %d\n", s.UploadFailTotal)

	fmt.Fprintf(rw, "# HELP stackyard_mirror_last_success_unix Unix timestamp of the last successful upload.\n")
	fmt.Fprintf(rw, "# TYPE stackyard_mirror_last_success_unix gauge\n")
	fmt.Fprintf(rw, "stackyard_mirror_last_success_unix %d\n", s.LastSuccessUnix)

	fmt.Fprintf(rw, "# HELP stackyard_mirror_last_error_unix Unix timestamp of the last failed upload.\n")
	fmt.Fprintf(rw, "# TYPE stackyard_mirror_last_error_unix gauge\n")
	fmt.Fprintf(rw, "stackyard_mirror_last_error_unix %d\n", s.LastErrorUnix)
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
