// Package hub is the registry of live rooms. Like the rooms themselves
// it is a single goroutine owning its map; lookups and creation go
// through the inbox so there is never a concurrent map access.
package hub

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/olveryu/werewolf-judge-backend/internal/engine"
	"github.com/olveryu/werewolf-judge-backend/internal/journal"
	"github.com/olveryu/werewolf-judge-backend/internal/room"
)

type HubMsg interface{ isHubMsg() }

type CreateRoom struct {
	Code  string
	State engine.State
	Reply chan *room.Room
}

type GetRoom struct {
	Code  string
	Reply chan *room.Room
}

// RejoinRoom rebuilds a room from its journaled snapshot; the reply is
// nil when no snapshot exists or the rebuild fails.
type RejoinRoom struct {
	Code  string
	Reply chan *room.Room
}

type RemoveRoom struct {
	Code string
}

type ShutdownHub struct{}

func (CreateRoom) isHubMsg()  {}
func (GetRoom) isHubMsg()     {}
func (RejoinRoom) isHubMsg()  {}
func (RemoveRoom) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

type Hub struct {
	inbox   chan HubMsg
	rooms   map[string]*room.Room
	journal journal.Store
	log     *zap.Logger
	cfg     room.Config
	ctx     context.Context
	cancel  context.CancelFunc
}

func New(parent context.Context, js journal.Store, log *zap.Logger, cfg room.Config) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		rooms:   make(map[string]*room.Room),
		journal: js,
		log:     log,
		cfg:     cfg,
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateRoom:
				if rm := h.rooms[msg.Code]; rm != nil {
					msg.Reply <- rm
					break
				}
				rm := room.New(h.ctx, msg.State, h.journal, h.log, h.cfg)
				h.rooms[msg.Code] = rm
				h.log.Info("room created", zap.String("code", msg.Code))
				msg.Reply <- rm

			case GetRoom:
				msg.Reply <- h.rooms[msg.Code] // may be nil

			case RejoinRoom:
				if rm := h.rooms[msg.Code]; rm != nil {
					msg.Reply <- rm
					break
				}
				rm, err := room.Rejoin(h.ctx, msg.Code, h.journal, h.log, h.cfg)
				if err != nil {
					if !errors.Is(err, journal.ErrNotFound) {
						h.log.Error("room rejoin failed", zap.String("code", msg.Code), zap.Error(err))
					}
					msg.Reply <- nil
					break
				}
				h.rooms[msg.Code] = rm
				h.log.Info("room rebuilt from journal", zap.String("code", msg.Code))
				msg.Reply <- rm

			case RemoveRoom:
				if rm := h.rooms[msg.Code]; rm != nil {
					rm.Inbox() <- room.Shutdown{}
					delete(h.rooms, msg.Code)
				}
				// A removed room is finished; its rejoin snapshot goes too.
				if h.journal != nil {
					if err := h.journal.Delete(h.ctx, msg.Code); err != nil {
						h.log.Error("journal delete failed", zap.String("code", msg.Code), zap.Error(err))
					}
				}

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) shutdown() {
	for _, rm := range h.rooms {
		rm.Inbox() <- room.Shutdown{}
	}
	clear(h.rooms)
	h.cancel()
}
