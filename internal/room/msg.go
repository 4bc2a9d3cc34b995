package room

import (
	"github.com/olveryu/werewolf-judge-backend/internal/engine"
	"github.com/olveryu/werewolf-judge-backend/internal/protocol"
)

type Msg interface{ isRoomMsg() }

// Join registers a client connection and its outbox. The current snapshot
// (and any secrets addressed to this uid) are sent immediately.
type Join struct {
	UID    string
	Outbox chan protocol.ServerMessage
}

type Leave struct{ UID string }

// FromClient carries one decoded wire message from a connected client.
type FromClient struct {
	UID string
	Msg protocol.ClientMessage
}

type Shutdown struct{}

// GetView reflects internal state without data races; test-only.
type GetView struct {
	Reply chan View
}

type View struct {
	Version    int
	NumClients int
	CatchingUp bool
	State      engine.State
}

// Timer fires carry the generation they were armed under; stale fires
// are dropped.
type wolfTimerFired struct{ gen int }
type revealTimerFired struct{ gen int }
type catchupExpired struct{ gen int }

func (Join) isRoomMsg()             {}
func (Leave) isRoomMsg()            {}
func (FromClient) isRoomMsg()       {}
func (Shutdown) isRoomMsg()         {}
func (GetView) isRoomMsg()          {}
func (wolfTimerFired) isRoomMsg()   {}
func (revealTimerFired) isRoomMsg() {}
func (catchupExpired) isRoomMsg()   {}
