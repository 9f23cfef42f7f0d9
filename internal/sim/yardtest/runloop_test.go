package yardtest

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"stackyard.dev/internal/protocol"
	yard "stackyard.dev/internal/sim/yard"
)

// Drives a live loop over channels: join, admit, place, abort through
// the operator request path, then reuse the released gate.
func TestRunLoopJoinPlaceAbort(t *testing.T) {
	cfg := yard.YardConfig{
		ID:         "yard-live",
		TickRateHz: 50,
		// Slow legs keep the operation in flight long enough for the
		// abort request to land mid-sequence.
		BridgeSpeed: 0.2,
		HoistSpeed:  0.2,
		MinLegTicks: 4,
	}
	y := yard.New(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = y.Run(ctx) }()

	out := make(chan []byte, 64)
	resp := make(chan yard.JoinResponse, 1)
	y.Join() <- yard.JoinRequest{Name: "live", Role: protocol.RoleDriver, Out: out, Resp: resp}

	var welcome protocol.WelcomeMsg
	select {
	case jr := <-resp:
		welcome = jr.Welcome
	case <-time.After(5 * time.Second):
		t.Fatalf("no WELCOME within deadline")
	}
	if welcome.SessionID == "" || welcome.Role != protocol.RoleDriver {
		t.Fatalf("welcome = %+v", welcome)
	}
	if welcome.YardParams.Bays != 3 || welcome.YardParams.Rows != 3 || welcome.YardParams.Tiers != 2 {
		t.Fatalf("yard params = %+v", welcome.YardParams)
	}

	waitEvent := func(evType string) protocol.Event {
		t.Helper()
		deadline := time.Now().Add(5 * time.Second)
		for {
			remain := time.Until(deadline)
			if remain <= 0 {
				t.Fatalf("no %s within deadline", evType)
			}
			select {
			case b := <-out:
				var state protocol.StateMsg
				if err := json.Unmarshal(b, &state); err != nil {
					t.Fatalf("decode STATE: %v", err)
				}
				for _, e := range state.Events {
					if typ, _ := e["type"].(string); typ == evType {
						return e
					}
				}
			case <-time.After(remain):
				t.Fatalf("no %s within deadline", evType)
			}
		}
	}

	send := func(reqs ...protocol.OpReq) {
		y.Inbox() <- yard.CmdEnvelope{
			SessionID: welcome.SessionID,
			Cmd: protocol.CmdMsg{
				Type:            protocol.TypeCmd,
				ProtocolVersion: protocol.Version,
				SessionID:       welcome.SessionID,
				Requests:        reqs,
			},
		}
	}

	// Nothing in flight yet: the abort path must decline.
	if ok, err := y.RequestAbortOp(ctx); err != nil {
		t.Fatalf("abort request: %v", err)
	} else if ok {
		t.Fatalf("abort with nothing in flight reported true")
	}

	send(protocol.OpReq{ID: "L1", Type: protocol.ReqTypeAdmit, Size: protocol.SizeOneUnit})
	admitted := waitEvent("CONTAINER_ADMITTED")
	cid, _ := admitted["container_id"].(string)
	if cid == "" {
		t.Fatalf("admitted event carried no container id: %+v", admitted)
	}

	send(protocol.OpReq{ID: "L2", Type: protocol.ReqTypePlace, ContainerID: cid, Slot: "B2"})
	waitEvent("OP_STARTED")

	if ok, err := y.RequestAbortOp(ctx); err != nil {
		t.Fatalf("abort request: %v", err)
	} else if !ok {
		t.Fatalf("mid-flight abort reported false")
	}
	aborted := waitEvent("OP_ABORTED")
	if aborted["code"] != protocol.ErrOpAborted {
		t.Fatalf("abort code = %v", aborted["code"])
	}
	if rev := y.Metrics().LedgerRev; rev != 0 {
		t.Fatalf("abort committed something: rev=%d", rev)
	}

	// The gate is free again.
	send(protocol.OpReq{ID: "L3", Type: protocol.ReqTypePlace, ContainerID: cid, Slot: "B2"})
	started := waitEvent("OP_STARTED")
	if started["container_id"] != cid {
		t.Fatalf("second start = %+v", started)
	}

	// Leaving drops the session from the metrics view.
	y.Leave() <- welcome.SessionID
	deadline := time.Now().Add(5 * time.Second)
	for y.Metrics().Sessions != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("session never left")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
