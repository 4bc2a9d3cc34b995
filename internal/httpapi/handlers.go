package httpapi

import (
	"crypto/rand"
	"encoding/json"
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/olveryu/werewolf-judge-backend/internal/engine"
	"github.com/olveryu/werewolf-judge-backend/internal/hub"
	"github.com/olveryu/werewolf-judge-backend/internal/roles"
	"github.com/olveryu/werewolf-judge-backend/internal/room"
)

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, 6)
	for i := 0; i < 6; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

type createRoomRequest struct {
	HostUID  string     `json:"hostUid"`
	Template []roles.ID `json:"template"`
}

type createRoomResponse struct {
	Code string `json:"code"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// CreateRoom validates the roster up front: a template naming an unknown
// role is rejected here with a 400, never discovered at night time.
func CreateRoom(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRoomRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad json"})
			return
		}
		if req.HostUID == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing hostUid"})
			return
		}
		if len(req.Template) == 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing template"})
			return
		}

		var code string
		for {
			c, err := GenerateCode()
			if err != nil {
				writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to generate code"})
				return
			}
			reply := make(chan *room.Room, 1)
			h.Inbox() <- hub.GetRoom{Code: c, Reply: reply}
			if <-reply == nil {
				code = c
				break
			}
			log.Warn("room code collision, regenerating", zap.String("code", c))
		}

		st, err := engine.NewState(code, req.HostUID, req.Template)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}

		reply := make(chan *room.Room, 1)
		h.Inbox() <- hub.CreateRoom{Code: code, State: st, Reply: reply}
		if <-reply == nil {
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to create room"})
			return
		}

		writeJSON(w, http.StatusCreated, createRoomResponse{Code: code})
	}
}

// GetRoom reports whether a room is reachable, resurrecting it from the
// journal when the registry misses.
func GetRoom(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		reply := make(chan *room.Room, 1)
		h.Inbox() <- hub.GetRoom{Code: code, Reply: reply}
		if <-reply == nil {
			reply = make(chan *room.Room, 1)
			h.Inbox() <- hub.RejoinRoom{Code: code, Reply: reply}
			if <-reply == nil {
				writeJSON(w, http.StatusNotFound, errorResponse{Error: "room not found"})
				return
			}
		}
		writeJSON(w, http.StatusOK, createRoomResponse{Code: code})
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
