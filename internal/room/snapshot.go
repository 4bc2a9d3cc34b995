package room

import (
	"encoding/json"
	"sort"

	"go.uber.org/zap"

	"github.com/olveryu/werewolf-judge-backend/internal/engine"
	"github.com/olveryu/werewolf-judge-backend/internal/nightplan"
	"github.com/olveryu/werewolf-judge-backend/internal/protocol"
	"github.com/olveryu/werewolf-judge-backend/internal/roles"
)

// buildSnapshot is the anti-cheat boundary: a total function of state
// that contains no roles and no secret payloads. A client observing only
// the public channel must not be able to derive another seat's hidden
// information.
func (r *Room) buildSnapshot() *protocol.Snapshot {
	st := r.state
	seats := make([]protocol.SeatView, 0, len(st.Players))
	nums := make([]int, 0, len(st.Players))
	for seat := range st.Players {
		nums = append(nums, seat)
	}
	sort.Ints(nums)
	for _, seat := range nums {
		p := st.Players[seat]
		view := protocol.SeatView{Seat: seat}
		if p != nil {
			view.Occupied = true
			view.UID = p.UID
			view.DisplayName = p.DisplayName
			view.HasViewedRole = p.HasViewedRole
			view.IsBot = p.IsBot
			view.Alive = p.Alive
		}
		seats = append(seats, view)
	}

	snap := &protocol.Snapshot{
		Version:          r.version,
		RoomCode:         st.RoomCode,
		HostUID:          st.HostUID,
		Status:           st.Status,
		Template:         append([]roles.ID(nil), st.Template...),
		Seats:            seats,
		CurrentStepIndex: st.CurrentStep,
		StepTotal:        len(st.Plan),
		Night:            st.Night,
		LastNightDeaths:  append([]int(nil), st.LastNightDeaths...),
		Winner:           st.Winner,
		CatchingUp:       r.catchup != nil,
	}
	if st.WolfVoteDeadline != nil {
		snap.WolfVoteDeadline = st.WolfVoteDeadline.UnixMilli()
	}
	if st.CurrentNightResults != nil {
		sum := *st.CurrentNightResults
		snap.NightResults = &sum
	}
	return snap
}

func (r *Room) broadcastSnapshot() {
	snap := r.buildSnapshot()
	msg := protocol.ServerMessage{Type: protocol.MsgStateSnapshot, Version: r.version, Snapshot: snap}
	for uid, ch := range r.clients {
		select {
		case ch <- msg:
		default:
			// Slow or gone; drop the connection, the resync protocol will
			// bring the client back with a fresh snapshot request.
			close(ch)
			delete(r.clients, uid)
		}
	}
}

func (r *Room) broadcastProgress() {
	prog := r.state.Plan.ProgressAt(r.state.CurrentStep)
	msg := protocol.ServerMessage{Type: protocol.MsgNightProgress, Version: r.version, Progress: &prog}
	for uid, ch := range r.clients {
		select {
		case ch <- msg:
		default:
			close(ch)
			delete(r.clients, uid)
		}
	}
}

func (r *Room) sendSnapshotTo(uid string) {
	r.sendTo(uid, protocol.ServerMessage{
		Type: protocol.MsgStateSnapshot, Version: r.version, Snapshot: r.buildSnapshot(),
	})
}

func (r *Room) sendTo(uid string, msg protocol.ServerMessage) {
	ch, ok := r.clients[uid]
	if !ok {
		return
	}
	select {
	case ch <- msg:
	default:
		close(ch)
		delete(r.clients, uid)
	}
}

// sendSecret marshals and unicasts one payload. A payload that fails to
// name exactly one recipient is an invariant violation and is dropped.
func (r *Room) sendSecret(uid, kind string, data any) {
	if uid == "" {
		r.log.Error("secret payload without recipient dropped", zap.String("kind", kind))
		return
	}
	raw, err := json.Marshal(data)
	if err != nil {
		r.log.Error("secret payload marshal failed", zap.String("kind", kind), zap.Error(err))
		return
	}
	r.sendTo(uid, protocol.ServerMessage{
		Type:    protocol.MsgSecretPayload,
		Version: r.version,
		Secret:  &protocol.SecretPayload{RecipientUID: uid, Kind: kind, Data: raw},
	})
}

// sendRoleSecrets tells every seat its own role, privately, right after
// assignment.
func (r *Room) sendRoleSecrets() {
	for seat, p := range r.state.Players {
		if p == nil || p.Role == "" || p.IsBot {
			continue
		}
		spec, _ := roles.Lookup(p.Role)
		r.sendSecret(p.UID, protocol.SecretRole, protocol.RoleData{Seat: seat, Role: p.Role, Name: spec.Name})
	}
}

// sendWolfMeeting shows pack members each other and the standing votes.
// Only wolf-meeting participants ever receive it.
func (r *Room) sendWolfMeeting() {
	members := r.state.WolfMeetingSeats()
	sort.Ints(members)
	votes := make(map[int]int, len(r.state.WolfVotes))
	for seat, t := range r.state.WolfVotes {
		votes[seat] = t
	}
	data := protocol.WolfMeetingData{Members: members, Votes: votes}
	for _, seat := range members {
		p := r.state.Players[seat]
		if p == nil || p.IsBot {
			continue
		}
		r.sendSecret(p.UID, protocol.SecretWolfMeeting, data)
	}
}

func (r *Room) sendPendingReveal() {
	rev := r.state.PendingReveal
	if rev == nil {
		return
	}
	p := r.state.Players[rev.Seat]
	if p == nil {
		r.log.Error("pending reveal names an empty seat", zap.Int("seat", rev.Seat))
		return
	}
	r.sendSecret(p.UID, secretKindFor(rev.Kind), rev)
}

func (r *Room) sendWitchContext() {
	wc := r.state.WitchContext
	if wc == nil {
		return
	}
	p := r.state.Players[wc.Seat]
	if p == nil {
		return
	}
	r.sendSecret(p.UID, protocol.SecretWitchContext, wc)
}

func (r *Room) sendConfirmStatus(seat int) {
	p := r.state.Players[seat]
	if p == nil {
		return
	}
	r.sendSecret(p.UID, protocol.SecretConfirmStatus, protocol.ConfirmStatusData{
		Seat: seat, CanShoot: r.state.ConfirmStatus[seat],
	})
}

func (r *Room) sendImmuneWarning(seat, target int) {
	p := r.state.Players[seat]
	if p == nil {
		return
	}
	r.sendSecret(p.UID, protocol.SecretWarning, protocol.WarningData{
		Reason: engine.ReasonTargetImmune, Target: target,
	})
}

// resendSecrets re-delivers whatever secrets the uid is currently owed;
// used on join and snapshot re-request so a reconnect never loses its
// private view.
func (r *Room) resendSecrets(uid string) {
	seat := r.state.SeatOf(uid)
	if seat == engine.NoSeat {
		return
	}
	p := r.state.Players[seat]
	if p == nil {
		return
	}
	if p.Role != "" && r.state.Status != engine.StatusUnseated && r.state.Status != engine.StatusSeated {
		spec, _ := roles.Lookup(p.Role)
		r.sendSecret(uid, protocol.SecretRole, protocol.RoleData{Seat: seat, Role: p.Role, Name: spec.Name})
	}
	if r.state.NightActive() && r.state.CurrentStepID() == nightplan.StepWolfPack {
		if spec, ok := roles.Lookup(p.Role); ok && spec.WolfMeeting {
			r.sendWolfMeeting()
		}
	}
	if wc := r.state.WitchContext; wc != nil && wc.Seat == seat && r.state.Actions[string(roles.Witch)] == nil {
		r.sendSecret(uid, protocol.SecretWitchContext, wc)
	}
	if rev := r.state.PendingReveal; rev != nil && rev.Seat == seat {
		r.sendSecret(uid, secretKindFor(rev.Kind), rev)
	}
	if can, ok := r.state.ConfirmStatus[seat]; ok {
		r.sendSecret(uid, protocol.SecretConfirmStatus, protocol.ConfirmStatusData{Seat: seat, CanShoot: can})
	}
}

func secretKindFor(kind roles.RevealKind) string {
	switch kind {
	case roles.RevealSeer:
		return protocol.SecretSeerReveal
	case roles.RevealPsychic:
		return protocol.SecretPsychicReveal
	case roles.RevealGargoyle:
		return protocol.SecretGargoyle
	case roles.RevealWolfRobot:
		return protocol.SecretWolfRobot
	default:
		return protocol.SecretWarning
	}
}
