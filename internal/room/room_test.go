package room

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/olveryu/werewolf-judge-backend/internal/engine"
	"github.com/olveryu/werewolf-judge-backend/internal/journal"
	"github.com/olveryu/werewolf-judge-backend/internal/protocol"
	"github.com/olveryu/werewolf-judge-backend/internal/roles"
)

func testConfig() Config {
	return Config{
		WolfVoteCountdown: 30 * time.Millisecond,
		RevealAckTimeout:  30 * time.Millisecond,
		CatchupWindow:     time.Second,
	}
}

// recvType drains the outbox until a message of the wanted type arrives;
// timeouts keep a failing test from hanging.
func recvType(t *testing.T, ch <-chan protocol.ServerMessage, msgType string, within time.Duration) protocol.ServerMessage {
	t.Helper()
	deadline := time.After(within)
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				t.Fatalf("outbox closed while waiting for %s", msgType)
			}
			if msg.Type == msgType {
				return msg
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", msgType)
		}
	}
}

func recvNoType(t *testing.T, ch <-chan protocol.ServerMessage, msgType string, within time.Duration) {
	t.Helper()
	deadline := time.After(within)
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if msg.Type == msgType {
				t.Fatalf("unexpected %s: %+v", msgType, msg)
			}
		case <-deadline:
			return
		}
	}
}

// waitSnapshot skips queued older snapshots until one matches.
func waitSnapshot(t *testing.T, ch <-chan protocol.ServerMessage, within time.Duration, pred func(*protocol.Snapshot) bool) protocol.ServerMessage {
	t.Helper()
	deadline := time.After(within)
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				t.Fatalf("outbox closed while waiting for snapshot")
			}
			if msg.Type == protocol.MsgStateSnapshot && pred(msg.Snapshot) {
				return msg
			}
		case <-deadline:
			t.Fatalf("timed out waiting for matching snapshot")
		}
	}
}

func recvView(t *testing.T, r *Room, within time.Duration) View {
	t.Helper()
	reply := make(chan View, 1)
	r.Inbox() <- GetView{Reply: reply}
	select {
	case v := <-reply:
		return v
	case <-time.After(within):
		t.Fatalf("timed out waiting for view")
		return View{}
	}
}

func newTestRoom(t *testing.T, template []roles.ID) (*Room, journal.Store) {
	t.Helper()
	st, err := engine.NewState("ROOM01", "u0", template)
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	js := journal.NewMemStore()
	return New(ctx, st, js, zap.NewNop(), testConfig()), js
}

func join(t *testing.T, r *Room, uid string) chan protocol.ServerMessage {
	t.Helper()
	out := make(chan protocol.ServerMessage, 32)
	r.Inbox() <- Join{UID: uid, Outbox: out}
	return out
}

func TestJoinGetsSnapshotAndSeatingBumpsVersion(t *testing.T) {
	r, _ := newTestRoom(t, []roles.ID{roles.Wolf, roles.Villager, roles.Villager})
	out := join(t, r, "u0")

	first := recvType(t, out, protocol.MsgStateSnapshot, time.Second)
	if first.Version != 0 || first.Snapshot.RoomCode != "ROOM01" {
		t.Fatalf("join snapshot: %+v", first)
	}

	r.Inbox() <- FromClient{UID: "u0", Msg: protocol.ClientMessage{
		Type: protocol.MsgTakeSeat, Seat: 0, DisplayName: "host",
	}}
	next := recvType(t, out, protocol.MsgStateSnapshot, time.Second)
	if next.Version != 1 {
		t.Fatalf("after seat: version %d, want 1", next.Version)
	}
	seat := next.Snapshot.Seats[0]
	if !seat.Occupied || seat.UID != "u0" || seat.DisplayName != "host" {
		t.Fatalf("seat view: %+v", seat)
	}
}

func TestJournalTracksCommits(t *testing.T) {
	r, js := newTestRoom(t, []roles.ID{roles.Wolf, roles.Villager})
	out := join(t, r, "u0")
	recvType(t, out, protocol.MsgStateSnapshot, time.Second)

	r.Inbox() <- FromClient{UID: "u0", Msg: protocol.ClientMessage{Type: protocol.MsgTakeSeat, Seat: 0}}
	recvType(t, out, protocol.MsgStateSnapshot, time.Second)

	version, payload, err := js.Load(context.Background(), "ROOM01")
	if err != nil {
		t.Fatalf("journal load: %v", err)
	}
	if version != 1 {
		t.Fatalf("journaled version %d, want 1", version)
	}
	var st engine.State
	if err := json.Unmarshal(payload, &st); err != nil {
		t.Fatalf("journaled payload: %v", err)
	}
	if st.Players[0] == nil || st.Players[0].UID != "u0" {
		t.Fatalf("journaled state missing the seat: %+v", st.Players[0])
	}
}

func TestLeaveClosesOutbox(t *testing.T) {
	r, _ := newTestRoom(t, []roles.ID{roles.Wolf, roles.Villager})
	out := join(t, r, "u0")
	recvType(t, out, protocol.MsgStateSnapshot, time.Second)

	r.Inbox() <- Leave{UID: "u0"}

	// The writer side ranges over the outbox; it must observe the close.
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-out:
			if !ok {
				if view := recvView(t, r, time.Second); view.NumClients != 0 {
					t.Fatalf("left client kept: NumClients=%d", view.NumClients)
				}
				return
			}
		case <-deadline:
			t.Fatalf("outbox not closed after leave")
		}
	}
}

func TestSlowClientIsDropped(t *testing.T) {
	r, _ := newTestRoom(t, []roles.ID{roles.Wolf, roles.Villager})
	out := make(chan protocol.ServerMessage, 1)
	r.Inbox() <- Join{UID: "u0", Outbox: out}

	// The join snapshot fills the buffer; the next broadcast cannot be
	// delivered and the client is cut loose.
	r.Inbox() <- FromClient{UID: "u0", Msg: protocol.ClientMessage{Type: protocol.MsgTakeSeat, Seat: 0}}

	view := recvView(t, r, time.Second)
	if view.NumClients != 0 {
		t.Fatalf("slow client kept: NumClients=%d", view.NumClients)
	}
}

func TestLifecycleOpsAreHostOnly(t *testing.T) {
	r, _ := newTestRoom(t, []roles.ID{roles.Wolf, roles.Villager})
	out := join(t, r, "u1")
	recvType(t, out, protocol.MsgStateSnapshot, time.Second)

	r.Inbox() <- FromClient{UID: "u1", Msg: protocol.ClientMessage{Type: protocol.MsgAssignRoles, Seed: 1}}
	rej := recvType(t, out, protocol.MsgActionRejected, time.Second)
	if rej.Rejected.Reason != engine.ReasonNotActor {
		t.Fatalf("reason %q, want not_actor", rej.Rejected.Reason)
	}
	if rej.Rejected.TargetUID != "u1" || rej.Rejected.RejectionID == "" {
		t.Fatalf("rejection addressing: %+v", rej.Rejected)
	}
}

// seatAndAssign walks three human players through seating, assignment and
// role viewing, returning their outboxes.
func seatAndAssign(t *testing.T, r *Room) map[string]chan protocol.ServerMessage {
	t.Helper()
	outs := make(map[string]chan protocol.ServerMessage)
	for seat := 0; seat < 3; seat++ {
		uid := fmt.Sprintf("u%d", seat)
		outs[uid] = join(t, r, uid)
		recvType(t, outs[uid], protocol.MsgStateSnapshot, time.Second)
		r.Inbox() <- FromClient{UID: uid, Msg: protocol.ClientMessage{
			Type: protocol.MsgTakeSeat, Seat: seat, DisplayName: uid,
		}}
		recvType(t, outs[uid], protocol.MsgStateSnapshot, time.Second)
	}

	r.Inbox() <- FromClient{UID: "u0", Msg: protocol.ClientMessage{Type: protocol.MsgAssignRoles, Seed: 99}}
	for uid, out := range outs {
		recvType(t, out, protocol.MsgStateSnapshot, time.Second)
		r.Inbox() <- FromClient{UID: uid, Msg: protocol.ClientMessage{Type: protocol.MsgViewedRole}}
	}
	return outs
}

func TestRoleSecretsGoToTheirSeatOnly(t *testing.T) {
	r, _ := newTestRoom(t, []roles.ID{roles.Wolf, roles.Seer, roles.Villager})
	outs := seatAndAssign(t, r)

	for uid, out := range outs {
		msg := recvType(t, out, protocol.MsgSecretPayload, time.Second)
		if msg.Secret.RecipientUID != uid {
			t.Fatalf("secret for %s delivered to %s", msg.Secret.RecipientUID, uid)
		}
		if msg.Secret.Kind != protocol.SecretRole {
			t.Fatalf("secret kind %q, want role", msg.Secret.Kind)
		}
		var data protocol.RoleData
		if err := json.Unmarshal(msg.Secret.Data, &data); err != nil {
			t.Fatalf("role data: %v", err)
		}
		if data.Role == "" {
			t.Fatalf("empty role for %s", uid)
		}
	}

	// The public snapshot never carries a role; the view state confirms
	// the deal actually happened.
	view := recvView(t, r, time.Second)
	if view.State.Status != engine.StatusReady && view.State.Status != engine.StatusAssigned {
		t.Fatalf("status after assign: %s", view.State.Status)
	}
}

func TestWolfDeadlineForcesResolution(t *testing.T) {
	r, _ := newTestRoom(t, []roles.ID{roles.Wolf, roles.Villager, roles.Villager})
	outs := seatAndAssign(t, r)

	r.Inbox() <- FromClient{UID: "u0", Msg: protocol.ClientMessage{Type: protocol.MsgStartNight}}
	snap := waitSnapshot(t, outs["u0"], time.Second, func(s *protocol.Snapshot) bool {
		return s.Night == 1
	})
	if snap.Snapshot.WolfVoteDeadline == 0 {
		t.Fatalf("wolf deadline not armed")
	}

	// Nobody votes. The deadline path must close the step with no kill.
	deadline := time.After(2 * time.Second)
	for {
		var done bool
		select {
		case <-deadline:
			t.Fatalf("night never resolved")
		default:
			view := recvView(t, r, time.Second)
			done = view.State.CurrentStep >= len(view.State.Plan)
			if done {
				act := view.State.Actions["wolf"]
				if act == nil || !act.Skipped {
					t.Fatalf("forced resolution: %+v", act)
				}
				if len(view.State.LastNightDeaths) != 0 {
					t.Fatalf("deaths without votes: %v", view.State.LastNightDeaths)
				}
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func TestCatchupGateBlocksActionsUntilAcked(t *testing.T) {
	st, err := engine.NewState("CATCH1", "h1", []roles.ID{roles.Wolf, roles.Villager, roles.Villager})
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	if err := st.TakeSeat(0, "h1", "host", false); err != nil {
		t.Fatalf("TakeSeat: %v", err)
	}
	if err := st.TakeSeat(1, "u1", "guest", false); err != nil {
		t.Fatalf("TakeSeat: %v", err)
	}
	payload, err := json.Marshal(st)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	js := journal.NewMemStore()
	if err := js.Save(context.Background(), "CATCH1", 7, payload); err != nil {
		t.Fatalf("seed journal: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r, err := Rejoin(ctx, "CATCH1", js, zap.NewNop(), testConfig())
	if err != nil {
		t.Fatalf("Rejoin: %v", err)
	}

	hostOut := join(t, r, "h1")
	snap := recvType(t, hostOut, protocol.MsgStateSnapshot, time.Second)
	if snap.Version != 7 || !snap.Snapshot.CatchingUp {
		t.Fatalf("rejoin snapshot: version=%d catchingUp=%v", snap.Version, snap.Snapshot.CatchingUp)
	}

	// Gated: mutations bounce while acknowledgments are outstanding.
	r.Inbox() <- FromClient{UID: "h1", Msg: protocol.ClientMessage{Type: protocol.MsgTakeSeat, Seat: 2}}
	errMsg := recvType(t, hostOut, protocol.MsgError, time.Second)
	if errMsg.Error == "" {
		t.Fatalf("expected gate error")
	}

	r.Inbox() <- FromClient{UID: "h1", Msg: protocol.ClientMessage{Type: protocol.MsgSnapshotAck, Version: 7}}
	if view := recvView(t, r, time.Second); !view.CatchingUp {
		t.Fatalf("gate dropped with one ack outstanding")
	}

	guestOut := join(t, r, "u1")
	recvType(t, guestOut, protocol.MsgStateSnapshot, time.Second)
	r.Inbox() <- FromClient{UID: "u1", Msg: protocol.ClientMessage{Type: protocol.MsgSnapshotAck, Version: 7}}

	resumed := recvType(t, hostOut, protocol.MsgStateSnapshot, time.Second)
	if resumed.Snapshot.CatchingUp {
		t.Fatalf("snapshot still marked catching up after full ack")
	}

	r.Inbox() <- FromClient{UID: "h1", Msg: protocol.ClientMessage{Type: protocol.MsgTakeSeat, Seat: 2}}
	recvNoType(t, hostOut, protocol.MsgError, 100*time.Millisecond)
}

func TestHeartbeatAndResync(t *testing.T) {
	r, _ := newTestRoom(t, []roles.ID{roles.Wolf, roles.Villager})
	out := join(t, r, "u0")
	recvType(t, out, protocol.MsgStateSnapshot, time.Second)

	r.Inbox() <- FromClient{UID: "u0", Msg: protocol.ClientMessage{Type: protocol.MsgHeartbeat}}
	pong := recvType(t, out, protocol.MsgPong, time.Second)
	if pong.Version != 0 {
		t.Fatalf("pong version %d", pong.Version)
	}

	r.Inbox() <- FromClient{UID: "u0", Msg: protocol.ClientMessage{Type: protocol.MsgRequestSnapshot}}
	snap := recvType(t, out, protocol.MsgStateSnapshot, time.Second)
	if snap.Snapshot == nil {
		t.Fatalf("resync snapshot missing")
	}
}
