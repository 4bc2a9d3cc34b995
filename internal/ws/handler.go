// Package ws bridges a websocket connection to a room inbox: one reader
// loop decoding client messages, one writer goroutine draining the
// per-connection outbox. The connection owns no game state.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/olveryu/werewolf-judge-backend/internal/hub"
	"github.com/olveryu/werewolf-judge-backend/internal/protocol"
	"github.com/olveryu/werewolf-judge-backend/internal/room"
)

// readTimeout exceeds the client heartbeat interval; a connection silent
// for this long is presumed dead.
const readTimeout = 60 * time.Second

const writeTimeout = 3 * time.Second

func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}
		uid := r.URL.Query().Get("uid")
		if uid == "" {
			uid = uuid.NewString()
		}

		rm := lookupRoom(h, code)
		if rm == nil {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan protocol.ServerMessage, 16)
		rm.Inbox() <- room.Join{UID: uid, Outbox: out}
		defer func() { rm.Inbox() <- room.Leave{UID: uid} }()

		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for msg := range out {
				payload, err := json.Marshal(msg)
				if err != nil {
					log.Error("server message marshal failed", zap.Error(err))
					continue
				}
				ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
				werr := conn.Write(ctx, websocket.MessageText, payload)
				cancel()
				if werr != nil {
					return
				}
			}
		}()

		for {
			ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}

			var cm protocol.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				_ = conn.Write(r.Context(), websocket.MessageText,
					[]byte(`{"type":"Error","error":"bad json"}`))
				continue
			}

			rm.Inbox() <- room.FromClient{UID: uid, Msg: cm}
		}
	}
}

// lookupRoom checks the live registry first and falls back to the
// journal, so a host process restart does not strand a game mid-night.
func lookupRoom(h *hub.Hub, code string) *room.Room {
	reply := make(chan *room.Room, 1)
	h.Inbox() <- hub.GetRoom{Code: code, Reply: reply}
	if rm := <-reply; rm != nil {
		return rm
	}
	reply = make(chan *room.Room, 1)
	h.Inbox() <- hub.RejoinRoom{Code: code, Reply: reply}
	return <-reply
}
