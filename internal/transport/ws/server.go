// Package ws exposes the yard over a websocket: one HELLO/WELCOME
// handshake, then CMD frames in and STATE frames out.
package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"stackyard.dev/internal/protocol"
	"stackyard.dev/internal/sim/yard"
)

type Server struct {
	yard *yard.Yard
	log  *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(y *yard.Yard, logger *log.Logger) *Server {
	s := &Server{
		yard: y,
		log:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	return s
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Connection ids are for log correlation only; they never reach
		// the deterministic core.
		connID := uuid.NewString()[:8]

		sessionID, out := s.handshake(conn, connID, r.RemoteAddr)
		if sessionID == "" {
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				continue
			}
			if base.Type != protocol.TypeCmd {
				continue
			}
			var cmd protocol.CmdMsg
			if err := json.Unmarshal(msg, &cmd); err != nil {
				continue
			}
			if cmd.ProtocolVersion != protocol.Version {
				continue
			}
			s.yard.Inbox() <- yard.CmdEnvelope{SessionID: sessionID, Cmd: cmd}
		}

		// Cleanup.
		s.yard.Leave() <- sessionID
		s.log.Printf("ws close conn=%s session=%s", connID, sessionID)
	}
}

func (s *Server) handshake(conn *websocket.Conn, connID, remote string) (sessionID string, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return "", nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", nil
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return "", nil
	}

	// A slow reader drops the oldest STATE frame, never the newest, so
	// a small buffer is enough.
	out = make(chan []byte, 8)

	respCh := make(chan yard.JoinResponse, 1)
	s.yard.Join() <- yard.JoinRequest{
		Name: hello.ClientName,
		Role: hello.Role,
		Out:  out,
		Resp: respCh,
	}
	resp := <-respCh

	if err := writeJSON(conn, resp.Welcome); err != nil {
		return "", nil
	}

	s.log.Printf("ws join conn=%s session=%s role=%s remote=%s", connID, resp.Welcome.SessionID, resp.Welcome.Role, remote)
	return resp.Welcome.SessionID, out
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
