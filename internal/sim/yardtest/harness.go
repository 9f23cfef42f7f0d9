package yardtest

import (
	"encoding/json"
	"fmt"
	"testing"

	"stackyard.dev/internal/protocol"
	yard "stackyard.dev/internal/sim/yard"
)

// Harness is a small black-box test helper for driving a yard via exported APIs:
// - Join() issues JoinRequest via StepOnce()
// - Step()/StepFor() issues CMD via StepOnce()
// - Per-session Out channels carry STATE JSON
// - Debug* helpers provide deterministic preconditions
//
// It intentionally avoids touching yard internals so tests can live outside the yard package.
type Harness struct {
	T *testing.T
	Y *yard.Yard

	DefaultSession string

	reqSeq   int
	sessions map[string]*session
}

type session struct {
	SessionID string
	Out       chan []byte
	lastState protocol.StateMsg
}

// FastConfig keeps crane legs short so an operation joins within a
// handful of ticks.
func FastConfig() yard.YardConfig {
	return yard.YardConfig{
		ID:          "yard-test",
		TickRateHz:  20,
		BridgeSpeed: 6,
		HoistSpeed:  6,
		MinLegTicks: 1,
	}
}

func NewHarness(t *testing.T, cfg yard.YardConfig, clientName string) *Harness {
	t.Helper()
	h := &Harness{
		T:        t,
		Y:        yard.New(cfg),
		sessions: map[string]*session{},
	}
	h.DefaultSession = h.Join(clientName, protocol.RoleDriver)
	return h
}

func (h *Harness) Join(name, role string) string {
	h.T.Helper()

	out := make(chan []byte, 16)
	resp := make(chan yard.JoinResponse, 1)
	_, _ = h.Y.StepOnce([]yard.JoinRequest{{
		Name: name,
		Role: role,
		Out:  out,
		Resp: resp,
	}}, nil, nil)
	jr := <-resp
	if jr.Welcome.SessionID == "" {
		h.T.Fatalf("join returned empty session id")
	}
	s := &session{SessionID: jr.Welcome.SessionID, Out: out}
	h.sessions[s.SessionID] = s
	h.drainAllStates()
	return s.SessionID
}

func (h *Harness) LastState() protocol.StateMsg {
	return h.LastStateFor(h.DefaultSession)
}

func (h *Harness) LastStateFor(sessionID string) protocol.StateMsg {
	h.T.Helper()
	s := h.sessions[sessionID]
	if s == nil {
		h.T.Fatalf("unknown session id: %q", sessionID)
	}
	return s.lastState
}

func (h *Harness) nextRef() string {
	h.reqSeq++
	return fmt.Sprintf("R%d", h.reqSeq)
}

// AdmitReq/PlaceReq/RemoveReq build requests with fresh refs so tests
// can match ACTION_RESULT events to them.
func (h *Harness) AdmitReq(size string) protocol.OpReq {
	return protocol.OpReq{ID: h.nextRef(), Type: protocol.ReqTypeAdmit, Size: size}
}

func (h *Harness) PlaceReq(containerID, slot string) protocol.OpReq {
	return protocol.OpReq{ID: h.nextRef(), Type: protocol.ReqTypePlace, ContainerID: containerID, Slot: slot}
}

func (h *Harness) RemoveReq(containerID string) protocol.OpReq {
	return protocol.OpReq{ID: h.nextRef(), Type: protocol.ReqTypeRemove, ContainerID: containerID}
}

func (h *Harness) Step(reqs ...protocol.OpReq) protocol.StateMsg {
	return h.StepFor(h.DefaultSession, reqs...)
}

func (h *Harness) StepFor(sessionID string, reqs ...protocol.OpReq) protocol.StateMsg {
	h.T.Helper()
	var cmds []yard.CmdEnvelope
	if len(reqs) > 0 {
		cmds = []yard.CmdEnvelope{{
			SessionID: sessionID,
			Cmd: protocol.CmdMsg{
				Type:            protocol.TypeCmd,
				ProtocolVersion: protocol.Version,
				Tick:            h.Y.CurrentTick(),
				SessionID:       sessionID,
				Requests:        reqs,
			},
		}}
	}
	_, _ = h.Y.StepOnce(nil, nil, cmds)
	h.drainAllStates()
	return h.LastStateFor(sessionID)
}

func (h *Harness) StepNoop() protocol.StateMsg {
	h.T.Helper()
	_, _ = h.Y.StepOnce(nil, nil, nil)
	h.drainAllStates()
	return h.LastState()
}

// StepUntilIdle runs empty ticks until no operation is in flight.
func (h *Harness) StepUntilIdle(maxTicks int) protocol.StateMsg {
	h.T.Helper()
	for i := 0; i < maxTicks; i++ {
		if _, _, busy := h.Y.DebugOpInFlight(); !busy {
			return h.LastState()
		}
		h.StepNoop()
	}
	if _, _, busy := h.Y.DebugOpInFlight(); busy {
		h.T.Fatalf("operation still in flight after %d ticks", maxTicks)
	}
	return h.LastState()
}

// Admit registers a container and returns its id.
func (h *Harness) Admit(size string) string {
	h.T.Helper()
	req := h.AdmitReq(size)
	state := h.Step(req)
	if code := actionResultCode(state, req.ID); code != "" {
		h.T.Fatalf("admit denied: %s", code)
	}
	id := actionResultFieldString(state, req.ID, "container_id")
	if id == "" {
		h.T.Fatalf("admit result carried no container_id")
	}
	return id
}

// Place requests a placement and runs it to completion.
func (h *Harness) Place(containerID, slot string) protocol.StateMsg {
	h.T.Helper()
	req := h.PlaceReq(containerID, slot)
	state := h.Step(req)
	if code := actionResultCode(state, req.ID); code != "" {
		h.T.Fatalf("place %s at %s denied: %s", containerID, slot, code)
	}
	return h.StepUntilIdle(4000)
}

// Remove requests a removal and runs it to completion.
func (h *Harness) Remove(containerID string) protocol.StateMsg {
	h.T.Helper()
	req := h.RemoveReq(containerID)
	state := h.Step(req)
	if code := actionResultCode(state, req.ID); code != "" {
		h.T.Fatalf("remove %s denied: %s", containerID, code)
	}
	return h.StepUntilIdle(4000)
}

// AbortOp aborts the in-flight operation from the test goroutine.
func (h *Harness) AbortOp(message string) bool {
	return h.Y.DebugAbortOp(message)
}

func (h *Harness) drainAllStates() {
	h.T.Helper()
	for _, s := range h.sessions {
		h.drainOneState(s)
	}
}

func (h *Harness) drainOneState(s *session) {
	h.T.Helper()
	var last []byte
	for {
		select {
		case b := <-s.Out:
			last = b
			continue
		default:
		}
		break
	}
	if len(last) == 0 {
		return
	}
	var state protocol.StateMsg
	if err := json.Unmarshal(last, &state); err != nil {
		h.T.Fatalf("unmarshal STATE: %v", err)
	}
	s.lastState = state
}

// actionResultCode returns "" when the result for ref reported ok, the
// error code otherwise.
func actionResultCode(state protocol.StateMsg, ref string) string {
	for _, e := range state.Events {
		if typ, _ := e["type"].(string); typ != "ACTION_RESULT" {
			continue
		}
		if got, _ := e["ref"].(string); got != ref {
			continue
		}
		if ok, _ := e["ok"].(bool); ok {
			return ""
		}
		if code, _ := e["code"].(string); code != "" {
			return code
		}
		return "E_INTERNAL"
	}
	return "E_INTERNAL"
}

func actionResultFieldString(state protocol.StateMsg, ref string, key string) string {
	for _, e := range state.Events {
		if typ, _ := e["type"].(string); typ != "ACTION_RESULT" {
			continue
		}
		if got, _ := e["ref"].(string); got != ref {
			continue
		}
		if s, _ := e[key].(string); s != "" {
			return s
		}
	}
	return ""
}
