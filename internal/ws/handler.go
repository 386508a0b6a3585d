// Package ws carries the lobby message contract over a websocket. It is a
// thin translation layer: JSON in, engine commands out, snapshots back. The
// same contract could ride an HTTP poller; nothing here leaks into the game.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kai9kono/Kuiz/internal/engine"
	"github.com/kai9kono/Kuiz/internal/hub"
	"github.com/kai9kono/Kuiz/internal/lobby"
	"github.com/kai9kono/Kuiz/pkg/types"
)

const writeTimeout = 3 * time.Second

func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		name := r.URL.Query().Get("name")
		if code == "" || name == "" {
			http.Error(w, "missing code or name", http.StatusBadRequest)
			return
		}

		reply := make(chan *lobby.Lobby, 1)
		select {
		case h.Inbox() <- hub.GetLobby{Code: code, Reply: reply}:
		case <-h.Done():
			http.Error(w, "server shutting down", http.StatusServiceUnavailable)
			return
		}
		var lb *lobby.Lobby
		select {
		case lb = <-reply:
		case <-h.Done():
			http.Error(w, "server shutting down", http.StatusServiceUnavailable)
			return
		}
		if lb == nil {
			http.Error(w, "lobby not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan types.ServerMessage, 16)
		clientID := uuid.NewString()

		joinReply := make(chan lobby.JoinResult, 1)
		select {
		case lb.Inbox() <- lobby.Join{ClientID: clientID, Name: name, Outbox: out, Reply: joinReply}:
		case <-lb.Done():
			writeMsg(r.Context(), conn, types.ServerMessage{Type: types.MsgError, Error: "lobby closed"})
			return
		}
		var res lobby.JoinResult
		select {
		case res = <-joinReply:
		case <-lb.Done():
			writeMsg(r.Context(), conn, types.ServerMessage{Type: types.MsgError, Error: "lobby closed"})
			return
		}
		if !res.OK {
			writeMsg(r.Context(), conn, types.ServerMessage{Type: types.MsgError, Error: res.Reason})
			return
		}
		defer func() {
			select {
			case lb.Inbox() <- lobby.Leave{ClientID: clientID, Name: name}:
			case <-lb.Done():
			}
		}()

		log.Info("client connected", zap.String("lobby", code), zap.String("name", name))

		// Writer goroutine; exits when the lobby closes the outbox.
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for msg := range out {
				if err := writeMsg(writeCtx, conn, msg); err != nil {
					return
				}
			}
			// Outbox closed: lobby shut down or dropped us.
			conn.Close(websocket.StatusGoingAway, "lobby closed")
		}()

		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				writeMsg(r.Context(), conn, types.ServerMessage{Type: types.MsgError, Error: "bad json"})
				continue
			}

			switch cm.Type {
			case types.MsgLeaveLobby:
				return
			case types.MsgStateSync:
				if !send(lb, lobby.StateSync{ClientID: clientID}) {
					return
				}
			default:
				cmd, ok := toCommand(cm)
				if !ok {
					writeMsg(r.Context(), conn, types.ServerMessage{Type: types.MsgError, Error: "unknown message type"})
					continue
				}
				if !send(lb, lobby.FromClient{ClientID: clientID, Cmd: cmd}) {
					return
				}
			}
		}
	}
}

func send(lb *lobby.Lobby, msg lobby.Msg) bool {
	select {
	case lb.Inbox() <- msg:
		return true
	case <-lb.Done():
		return false
	}
}

func toCommand(m types.ClientMessage) (engine.Command, bool) {
	switch m.Type {
	case types.MsgBuzz:
		return engine.Command{Type: engine.CmdBuzz}, true
	case types.MsgSubmitAnswer:
		return engine.Command{Type: engine.CmdSubmitAnswer, Text: m.Text}, true
	case types.MsgStartGame:
		s := engine.DefaultSettings()
		if m.PointsToWin > 0 {
			s.PointsToWin = m.PointsToWin
		}
		if m.MaxMistakes > 0 {
			s.MaxMistakes = m.MaxMistakes
		}
		if m.NumQuestions > 0 {
			s.NumQuestions = m.NumQuestions
		}
		return engine.Command{Type: engine.CmdStartGame, Settings: s}, true
	default:
		return engine.Command{}, false
	}
}

func writeMsg(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(wctx, websocket.MessageText, payload)
}
