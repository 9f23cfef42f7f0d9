package yard

// YardMetrics is a thread-safe read-only view of key yard runtime signals.
// It is updated from the yard loop goroutine and read from HTTP handlers/tests.
type YardMetrics struct {
	Tick uint64 `json:"tick"`

	Sessions   int    `json:"sessions"`
	Containers int    `json:"containers"`
	Staged     int    `json:"staged"`
	Placed     int    `json:"placed"`
	LedgerRev  uint64 `json:"ledger_rev"`

	OpActive      bool   `json:"op_active"`
	OpID          string `json:"op_id,omitempty"`
	OpKind        string `json:"op_kind,omitempty"`
	CraneCarrying string `json:"crane_carrying,omitempty"`

	QueueDepths QueueDepths `json:"queue_depths"`

	StepMS float64 `json:"step_ms"`

	StatsWindowTicks uint64      `json:"stats_window_ticks"`
	StatsWindow      StatsBucket `json:"stats_window"`
}

type QueueDepths struct {
	Inbox int `json:"inbox"`
	Join  int `json:"join"`
	Leave int `json:"leave"`
	Abort int `json:"abort"`
}

func (y *Yard) Metrics() YardMetrics {
	if y == nil {
		return YardMetrics{}
	}
	v := y.metrics.Load()
	if v == nil {
		return YardMetrics{}
	}
	m, ok := v.(YardMetrics)
	if !ok {
		return YardMetrics{}
	}
	return m
}

func (y *Yard) storeMetrics(stepMS float64) {
	nowTick := y.tick.Load()

	staged := 0
	for _, c := range y.containers {
		if c.Staged() {
			staged++
		}
	}

	sum := StatsBucket{}
	windowTicks := uint64(0)
	if y.stats != nil {
		sum = y.stats.Summarize(nowTick)
		windowTicks = y.stats.WindowTicks()
	}

	m := YardMetrics{
		Tick:       nowTick,
		Sessions:   len(y.sessions),
		Containers: len(y.containers),
		Staged:     staged,
		Placed:     len(y.containers) - staged,
		LedgerRev:  y.ledger.Rev(),
		QueueDepths: QueueDepths{
			Inbox: len(y.inbox),
			Join:  len(y.join),
			Leave: len(y.leave),
			Abort: len(y.abort),
		},
		StepMS:           stepMS,
		StatsWindowTicks: windowTicks,
		StatsWindow:      sum,
	}
	if y.op != nil {
		m.OpActive = true
		m.OpID = y.op.id
		m.OpKind = string(y.op.kind)
	}
	m.CraneCarrying = y.crane.carrying
	y.metrics.Store(m)
}
