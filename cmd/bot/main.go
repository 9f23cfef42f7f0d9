package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"stackyard.dev/internal/protocol"
)

// A scripted operator: admits containers at the gate, places them slot
// by slot, and occasionally removes one. Useful as a demo load and as a
// quick end-to-end smoke against a running server.
func main() {
	var (
		url  = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name = flag.String("name", "bot", "client name")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      *name,
		Role:            protocol.RoleDriver,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	b := &bot{
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		slots: []string{"A1", "A2", "A3", "B1", "B2", "B3", "C1", "C2", "C3"},
	}

	for {
		select {
		case <-stop:
			return
		default:
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			b.sessionID = w.SessionID
			logger.Printf("WELCOME session=%s role=%s grid=%dx%dx%d", w.SessionID, w.Role,
				w.YardParams.Bays, w.YardParams.Rows, w.YardParams.Tiers)

		case protocol.TypeState:
			var st protocol.StateMsg
			if err := json.Unmarshal(msg, &st); err != nil {
				continue
			}
			b.handleState(conn, logger, &st)
		}
	}
}

type bot struct {
	sessionID string
	rng       *rand.Rand
	slots     []string
	slotIdx   int
	nextAct   uint64
}

func (b *bot) handleState(conn *websocket.Conn, logger *log.Logger, st *protocol.StateMsg) {
	for _, ev := range st.Events {
		switch ev["type"] {
		case "ACTION_RESULT":
			if ok, _ := ev["ok"].(bool); !ok {
				logger.Printf("denied ref=%v code=%v msg=%v", ev["ref"], ev["code"], ev["message"])
			}
		case "OP_DONE":
			logger.Printf("op done id=%v kind=%v container=%v", ev["op_id"], ev["kind"], ev["container_id"])
		case "OP_ABORTED":
			logger.Printf("op aborted id=%v msg=%v", ev["op_id"], ev["message"])
		}
	}

	// One request at a time, and only between crane operations.
	if st.Op != nil || st.Tick < b.nextAct {
		return
	}

	var req protocol.OpReq
	staged := ""
	placed := make([]string, 0, len(st.Containers))
	for _, c := range st.Containers {
		if c.Staged {
			staged = c.ID
		} else {
			placed = append(placed, c.ID)
		}
	}

	switch {
	case staged != "":
		req = protocol.OpReq{
			ID:          ref("place"),
			Type:        protocol.ReqTypePlace,
			ContainerID: staged,
			Slot:        b.slots[b.slotIdx%len(b.slots)],
		}
		b.slotIdx++
	case len(st.Containers) < 6:
		size := protocol.SizeOneUnit
		if b.rng.Intn(3) == 0 {
			size = protocol.SizeTwoUnit
		}
		req = protocol.OpReq{ID: ref("admit"), Type: protocol.ReqTypeAdmit, Size: size}
	case len(placed) > 0:
		req = protocol.OpReq{
			ID:          ref("remove"),
			Type:        protocol.ReqTypeRemove,
			ContainerID: placed[b.rng.Intn(len(placed))],
		}
	default:
		return
	}

	cmd := protocol.CmdMsg{
		Type:            protocol.TypeCmd,
		ProtocolVersion: protocol.Version,
		Tick:            st.Tick,
		SessionID:       b.sessionID,
		Requests:        []protocol.OpReq{req},
	}
	if err := conn.WriteJSON(cmd); err != nil {
		logger.Printf("send CMD: %v", err)
		return
	}
	logger.Printf("sent %s ref=%s", req.Type, req.ID)
	b.nextAct = st.Tick + 20
}

func ref(kind string) string {
	return fmt.Sprintf("R_%s_%s", kind, uuid.NewString()[:8])
}
