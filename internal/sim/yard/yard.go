package yard

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"stackyard.dev/internal/protocol"
)

type JoinRequest struct {
	Name string
	Role string
	Out  chan []byte
	Resp chan JoinResponse
}

type JoinResponse struct {
	Welcome protocol.WelcomeMsg
}

type CmdEnvelope struct {
	SessionID string
	Cmd       protocol.CmdMsg
}

type RecordedJoin struct {
	SessionID string `json:"session_id"`
	Name      string `json:"name"`
	Role      string `json:"role"`
}

type RecordedCmd struct {
	SessionID string          `json:"session_id"`
	Cmd       protocol.CmdMsg `json:"cmd"`
}

type TickLogEntry struct {
	Tick   uint64         `json:"tick"`
	Joins  []RecordedJoin `json:"joins,omitempty"`
	Leaves []string       `json:"leaves,omitempty"`
	Cmds   []RecordedCmd  `json:"cmds,omitempty"`
	Aborts int            `json:"aborts,omitempty"`
	Digest string         `json:"digest"`
}

// OpLogEntry records one finished crane operation.
type OpLogEntry struct {
	Tick        uint64 `json:"tick"`
	OpID        string `json:"op_id"`
	Kind        string `json:"kind"`
	ContainerID string `json:"container_id"`
	Outcome     string `json:"outcome"`
	Slot        string `json:"slot,omitempty"`
	Tier        int    `json:"tier,omitempty"`
	GateIndex   int    `json:"gate_index,omitempty"`
	Ticks       int    `json:"ticks"`
	Message     string `json:"message,omitempty"`
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type OpLogger interface {
	WriteOp(entry OpLogEntry) error
}

type abortOpReq struct {
	Resp chan bool
}

// Yard is a single-threaded authoritative simulation.
// All state must be accessed only from the yard loop goroutine.
type Yard struct {
	cfg YardConfig

	tick atomic.Uint64

	ledger     *Ledger
	containers map[string]*Container
	crane      *Crane
	op         *craneOp

	sessions map[string]*Session

	inbox chan CmdEnvelope
	join  chan JoinRequest
	leave chan string
	abort chan abortOpReq
	stop  chan struct{}

	nextSessionNum   atomic.Uint64
	nextContainerNum atomic.Uint64
	nextOpNum        atomic.Uint64
	nextGateIdx      int

	// Optional loggers (may be nil). Implemented in internal/persistence/*.
	tickLogger TickLogger
	opLogger   OpLogger

	stats   *YardStats
	metrics atomic.Value // YardMetrics
}

func New(cfg YardConfig) *Yard {
	cfg.applyDefaults()
	y := &Yard{
		cfg:        cfg,
		ledger:     NewLedger(),
		containers: map[string]*Container{},
		sessions:   map[string]*Session{},
		inbox:      make(chan CmdEnvelope, 256),
		join:       make(chan JoinRequest, 16),
		leave:      make(chan string, 16),
		abort:      make(chan abortOpReq, 4),
		stop:       make(chan struct{}),
		stats:      NewYardStats(600, 72000),
	}
	y.crane = NewCrane(&y.cfg)
	return y
}

func (y *Yard) SetTickLogger(l TickLogger) { y.tickLogger = l }
func (y *Yard) SetOpLogger(l OpLogger)     { y.opLogger = l }

func (y *Yard) Inbox() chan<- CmdEnvelope { return y.inbox }
func (y *Yard) Join() chan<- JoinRequest  { return y.join }
func (y *Yard) Leave() chan<- string      { return y.leave }

func (y *Yard) CurrentTick() uint64 { return y.tick.Load() }

func (y *Yard) ID() string {
	if y == nil {
		return ""
	}
	return y.cfg.ID
}

func (y *Yard) TickRateHz() int {
	if y == nil {
		return 0
	}
	return y.cfg.TickRateHz
}

func (y *Yard) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(y.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingCmds []CmdEnvelope
	var pendingJoins []JoinRequest
	var pendingLeaves []string
	var pendingAborts []abortOpReq

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-y.stop:
			return nil
		case req := <-y.join:
			pendingJoins = append(pendingJoins, req)
		case id := <-y.leave:
			pendingLeaves = append(pendingLeaves, id)
		case req := <-y.abort:
			pendingAborts = append(pendingAborts, req)
		case env := <-y.inbox:
			pendingCmds = append(pendingCmds, env)
		case <-ticker.C:
			y.step(pendingJoins, pendingLeaves, pendingCmds, pendingAborts)
			pendingJoins = pendingJoins[:0]
			pendingLeaves = pendingLeaves[:0]
			pendingCmds = pendingCmds[:0]
			pendingAborts = pendingAborts[:0]
		}
	}
}

func (y *Yard) Stop() { close(y.stop) }

func (y *Yard) joinSession(name, role string, out chan []byte) JoinResponse {
	if name == "" {
		name = "client"
	}
	if role != protocol.RoleViewer {
		role = protocol.RoleDriver
	}

	id := fmt.Sprintf("S%d", y.nextSessionNum.Add(1))
	s := &Session{ID: id, Name: name, Role: role, Out: out}
	y.sessions[id] = s

	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       id,
		Role:            role,
		YardParams: protocol.YardParams{
			TickRateHz:  y.cfg.TickRateHz,
			Bays:        NumBays,
			Rows:        NumRows,
			Tiers:       NumTiers,
			CellSize:    [3]float64{y.cfg.CellW, y.cfg.CellH, y.cfg.CellD},
			YardOrigin:  y.cfg.Origin.ToArray(),
			GateBase:    y.cfg.GateBase.ToArray(),
			GateSpacing: y.cfg.GateSpacing,
			TravelY:     y.cfg.TravelY,
		},
	}
	return JoinResponse{Welcome: welcome}
}

func (y *Yard) handleLeave(sessionID string) {
	delete(y.sessions, sessionID)
}

func (y *Yard) step(joins []JoinRequest, leaves []string, cmds []CmdEnvelope, aborts []abortOpReq) {
	stepStart := time.Now()
	nowTick := y.tick.Load()

	// Apply leaves and joins deterministically at tick boundary.
	recordedLeaves := make([]string, 0, len(leaves))
	for _, id := range leaves {
		if _, ok := y.sessions[id]; ok {
			y.handleLeave(id)
			recordedLeaves = append(recordedLeaves, id)
		}
	}
	recordedJoins := make([]RecordedJoin, 0, len(joins))
	for _, req := range joins {
		resp := y.joinSession(req.Name, req.Role, req.Out)
		if req.Resp != nil {
			req.Resp <- resp
		}
		recordedJoins = append(recordedJoins, RecordedJoin{
			SessionID: resp.Welcome.SessionID,
			Name:      req.Name,
			Role:      resp.Welcome.Role,
		})
	}

	// Forced aborts resolve before new requests so a driver can abort
	// and immediately start over in the same tick.
	abortsDone := 0
	for _, req := range aborts {
		ok := y.op != nil
		if ok {
			y.abortOp(nowTick, "aborted by operator")
			abortsDone++
		}
		if req.Resp != nil {
			req.Resp <- ok
		}
	}

	// Apply requests in server receive order (the inbox order).
	recorded := make([]RecordedCmd, 0, len(cmds))
	for _, env := range cmds {
		s := y.sessions[env.SessionID]
		if s == nil {
			continue
		}
		env.Cmd.SessionID = env.SessionID // trust session identity
		recorded = append(recorded, RecordedCmd{SessionID: env.SessionID, Cmd: env.Cmd})
		y.applyCmd(s, env.Cmd, nowTick)
	}

	y.systemCrane(nowTick)

	// Build + send STATE.
	if y.cfg.StateEveryTicks <= 1 || nowTick%uint64(y.cfg.StateEveryTicks) == 0 {
		y.sendStates(nowTick)
	}

	digest := y.stateDigest(nowTick)
	if y.tickLogger != nil {
		_ = y.tickLogger.WriteTick(TickLogEntry{
			Tick:   nowTick,
			Joins:  recordedJoins,
			Leaves: recordedLeaves,
			Cmds:   recorded,
			Aborts: abortsDone,
			Digest: digest,
		})
	}

	stepMS := float64(time.Since(stepStart).Microseconds()) / 1000.0
	y.tick.Add(1)
	y.storeMetrics(stepMS)
}

// StepOnce advances the yard by a single tick using the same ordering
// semantics as the server. It is primarily intended for deterministic
// replays/tests.
func (y *Yard) StepOnce(joins []JoinRequest, leaves []string, cmds []CmdEnvelope) (tick uint64, digest string) {
	tick = y.tick.Load()
	y.step(joins, leaves, cmds, nil)
	return tick, y.stateDigest(tick)
}

// StepReplay re-drives one recorded tick: joins, leaves, forced aborts
// and commands in their recorded order. Out channels are not restored,
// so replayed sessions are silent.
func (y *Yard) StepReplay(entry TickLogEntry) (tick uint64, digest string) {
	joins := make([]JoinRequest, 0, len(entry.Joins))
	for _, j := range entry.Joins {
		joins = append(joins, JoinRequest{Name: j.Name, Role: j.Role})
	}
	cmds := make([]CmdEnvelope, 0, len(entry.Cmds))
	for _, rc := range entry.Cmds {
		cmds = append(cmds, CmdEnvelope{SessionID: rc.SessionID, Cmd: rc.Cmd})
	}
	aborts := make([]abortOpReq, entry.Aborts)
	tick = y.tick.Load()
	y.step(joins, entry.Leaves, cmds, aborts)
	return tick, y.stateDigest(tick)
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}

func (y *Yard) broadcast(e protocol.Event) {
	for _, s := range y.sessions {
		s.AddEvent(e)
	}
}
