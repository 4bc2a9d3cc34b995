// Package room runs the authoritative host loop for one game session.
// The loop is the single writer of engine.State: submissions are queued
// on the inbox and resolved one at a time in arrival order, giving a
// total order over effects even when players submit concurrently.
package room

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/olveryu/werewolf-judge-backend/internal/engine"
	"github.com/olveryu/werewolf-judge-backend/internal/journal"
	"github.com/olveryu/werewolf-judge-backend/internal/nightplan"
	"github.com/olveryu/werewolf-judge-backend/internal/protocol"
)

type Config struct {
	WolfVoteCountdown time.Duration
	RevealAckTimeout  time.Duration
	CatchupWindow     time.Duration
}

func DefaultConfig() Config {
	return Config{
		WolfVoteCountdown: 45 * time.Second,
		RevealAckTimeout:  20 * time.Second,
		CatchupWindow:     15 * time.Second,
	}
}

type Room struct {
	code    string
	inbox   chan Msg
	state   engine.State
	version int
	clients map[string]chan protocol.ServerMessage

	journal journal.Store
	log     *zap.Logger
	cfg     Config

	// Timer generations; a fire with a stale generation is ignored.
	wolfGen   int
	revealGen int

	// Host-rejoin catch-up gate: uids that still owe a SnapshotAck.
	catchup    map[string]bool
	catchupGen int

	ctx    context.Context
	cancel context.CancelFunc
}

func New(parent context.Context, st engine.State, js journal.Store, log *zap.Logger, cfg Config) *Room {
	ctx, cancel := context.WithCancel(parent)
	r := &Room{
		code:    st.RoomCode,
		inbox:   make(chan Msg, 64),
		state:   st,
		clients: make(map[string]chan protocol.ServerMessage),
		journal: js,
		log:     log.With(zap.String("room", st.RoomCode)),
		cfg:     cfg,
		ctx:     ctx,
		cancel:  cancel,
	}
	go r.loop()
	return r
}

// Rejoin rebuilds a room from the journaled snapshot after a host
// restart. Resolution stays gated until every seated player acknowledges
// the rebuilt version or the catch-up window expires; a host that cannot
// prove it holds the latest state must not resume resolving.
func Rejoin(parent context.Context, code string, js journal.Store, log *zap.Logger, cfg Config) (*Room, error) {
	version, payload, err := js.Load(parent, code)
	if err != nil {
		return nil, err
	}
	var st engine.State
	if err := json.Unmarshal(payload, &st); err != nil {
		return nil, err
	}
	if err := st.EnsurePlan(); err != nil {
		return nil, err
	}
	r := New(parent, st, js, log, cfg)
	r.version = version
	r.openCatchup()
	return r, nil
}

func (r *Room) Inbox() chan<- Msg { return r.inbox }

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				r.clients[msg.UID] = msg.Outbox
				r.sendSnapshotTo(msg.UID)
				r.resendSecrets(msg.UID)

			case Leave:
				// Close the outbox so the connection's writer goroutine
				// drains out instead of blocking for the room's lifetime.
				if ch, ok := r.clients[msg.UID]; ok {
					close(ch)
					delete(r.clients, msg.UID)
				}

			case FromClient:
				r.handleClient(msg.UID, msg.Msg)

			case wolfTimerFired:
				if msg.gen != r.wolfGen {
					break
				}
				events, ns, fired := engine.ForceWolfVote(r.state)
				if fired {
					r.log.Info("wolf vote deadline elapsed, forcing resolution")
					r.commit(ns, events)
				}

			case revealTimerFired:
				if msg.gen != r.revealGen {
					break
				}
				events, ns, fired := engine.RevealTimeout(r.state)
				if fired {
					r.log.Warn("reveal unacked past timeout, advancing night",
						zap.String("step", r.state.CurrentStepID()))
					r.commit(ns, events)
				}

			case catchupExpired:
				if msg.gen != r.catchupGen || r.catchup == nil {
					break
				}
				r.log.Warn("catch-up window expired without full acknowledgment",
					zap.Int("outstanding", len(r.catchup)))
				r.closeCatchup()

			case GetView:
				msg.Reply <- View{
					Version:    r.version,
					NumClients: len(r.clients),
					CatchingUp: r.catchup != nil,
					State:      r.state.Clone(),
				}

			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Room) handleClient(uid string, msg protocol.ClientMessage) {
	switch msg.Type {
	case protocol.MsgHeartbeat:
		r.sendTo(uid, protocol.ServerMessage{Type: protocol.MsgPong, Version: r.version})
		return
	case protocol.MsgRequestSnapshot:
		r.sendSnapshotTo(uid)
		r.resendSecrets(uid)
		return
	case protocol.MsgSnapshotAck:
		r.ackCatchup(uid, msg.Version)
		return
	}

	if r.catchup != nil {
		r.sendTo(uid, protocol.ServerMessage{Type: protocol.MsgError, Error: "host catching up, retry shortly"})
		return
	}

	switch msg.Type {
	case protocol.MsgTakeSeat, protocol.MsgLeaveSeat, protocol.MsgAssignRoles,
		protocol.MsgViewedRole, protocol.MsgStartNight, protocol.MsgRestartGame:
		r.handleLifecycle(uid, msg)
	case protocol.MsgAction, protocol.MsgWolfVote:
		r.handleSubmission(uid, msg)
	case protocol.MsgRevealAck:
		events, ns, err := engine.AckReveal(r.state, uid, msg.RevealKind)
		if err != nil {
			r.reject(uid, msg.Type, err)
			return
		}
		if len(events) > 0 {
			r.revealGen++
			r.commit(ns, events)
			r.runBots()
		}
	default:
		r.sendTo(uid, protocol.ServerMessage{Type: protocol.MsgError, Error: "unknown message type"})
	}
}

func (r *Room) handleSubmission(uid string, msg protocol.ClientMessage) {
	target := engine.NoSeat
	if msg.Target != nil {
		target = *msg.Target
	}
	stepID := msg.StepID
	if msg.Type == protocol.MsgWolfVote && stepID == "" {
		stepID = nightplan.StepWolfPack
	}
	sub := engine.Submission{
		ActorUID:  uid,
		ActorSeat: msg.Seat,
		Role:      msg.Role,
		StepID:    stepID,
		SubStep:   msg.SubStep,
		Target:    target,
		Nonce:     msg.Nonce,
	}
	events, ns, err := engine.Apply(r.state, sub)
	if err != nil {
		r.reject(uid, msg.Type, err)
		return
	}
	if len(events) == 0 {
		// Duplicate accepted silently: no second effect, no second rejection.
		return
	}
	r.commit(ns, events)
	r.runBots()
}

func (r *Room) handleLifecycle(uid string, msg protocol.ClientMessage) {
	hostOnly := msg.Type == protocol.MsgAssignRoles ||
		msg.Type == protocol.MsgStartNight ||
		msg.Type == protocol.MsgRestartGame
	if hostOnly && uid != r.state.HostUID {
		r.reject(uid, msg.Type, engine.ErrNotActor)
		return
	}

	ns := r.state.Clone()
	var events []engine.Event
	var err error
	switch msg.Type {
	case protocol.MsgTakeSeat:
		seatUID := uid
		if msg.IsBot && uid == r.state.HostUID {
			seatUID = "bot-" + uuid.NewString()[:8]
		}
		err = ns.TakeSeat(msg.Seat, seatUID, msg.DisplayName, msg.IsBot)
	case protocol.MsgLeaveSeat:
		err = ns.LeaveSeat(uid)
	case protocol.MsgAssignRoles:
		seed := msg.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		err = ns.AssignRoles(seed)
	case protocol.MsgViewedRole:
		err = ns.MarkRoleViewed(uid)
	case protocol.MsgStartNight:
		events, err = ns.StartNight()
	case protocol.MsgRestartGame:
		ns, err = r.state.Restart()
	}
	if err != nil {
		r.reject(uid, msg.Type, err)
		return
	}
	assigned := msg.Type == protocol.MsgAssignRoles
	r.commit(ns, events)
	if assigned {
		r.sendRoleSecrets()
		r.autoViewBots()
	}
	r.runBots()
}

// commit installs the new state, bumps the version, journals it, and
// publishes: the redacted snapshot to everyone, secret payloads to their
// single recipients.
func (r *Room) commit(ns engine.State, events []engine.Event) {
	// State-affecting event handling runs before the snapshot is built.
	for _, ev := range events {
		switch ev.Type {
		case engine.EvtWolfStepOpened:
			at := time.Now().Add(r.cfg.WolfVoteCountdown)
			ns.ArmWolfDeadline(at)
			r.armWolfTimer()
		case engine.EvtWolfVoteResolved:
			r.wolfGen++ // cancel any pending forced resolution
		case engine.EvtRevealReady:
			r.armRevealTimer()
		}
	}

	r.state = ns
	r.version++
	r.persist()
	r.broadcastSnapshot()

	for _, ev := range events {
		switch ev.Type {
		case engine.EvtStepAdvanced, engine.EvtNightCompleted:
			r.broadcastProgress()
		case engine.EvtWolfStepOpened:
			r.sendWolfMeeting()
		case engine.EvtWolfVoteCast:
			r.sendWolfMeeting()
		case engine.EvtRevealReady:
			r.sendPendingReveal()
		case engine.EvtWitchContextReady:
			r.sendWitchContext()
		case engine.EvtConfirmComputed:
			r.sendConfirmStatus(ev.Seat)
		case engine.EvtImmuneNoOp:
			r.sendImmuneWarning(ev.Seat, ev.Target)
		case engine.EvtGameEnded:
			r.log.Info("game ended", zap.String("winner", string(ev.Winner)))
		}
	}
}

// runBots drains auto-actions for bot seats, and auto-acks reveals whose
// recipient is a bot, until the night stops moving.
func (r *Room) runBots() {
	for i := 0; i < 64; i++ {
		if pending := r.state.PendingReveal; pending != nil {
			if p, ok := r.state.Players[pending.Seat]; ok && p != nil && p.IsBot {
				events, ns, err := engine.AckReveal(r.state, p.UID, pending.Kind)
				if err == nil && len(events) > 0 {
					r.revealGen++
					r.commit(ns, events)
					continue
				}
			}
			return
		}
		subs := engine.BotSubmissions(r.state)
		if len(subs) == 0 {
			return
		}
		moved := false
		for _, sub := range subs {
			sub.Nonce = uuid.NewString()
			events, ns, err := engine.Apply(r.state, sub)
			if err != nil {
				r.log.Error("bot submission rejected", zap.Error(err), zap.Int("seat", sub.ActorSeat))
				continue
			}
			r.commit(ns, events)
			moved = true
			break // re-evaluate from the new state
		}
		if !moved {
			return
		}
	}
}

func (r *Room) autoViewBots() {
	ns := r.state.Clone()
	touched := false
	for _, p := range ns.Players {
		if p != nil && p.IsBot && !p.HasViewedRole {
			if err := ns.MarkRoleViewed(p.UID); err == nil {
				touched = true
			}
		}
	}
	if touched {
		r.commit(ns, nil)
	}
}

func (r *Room) armWolfTimer() {
	r.wolfGen++
	gen := r.wolfGen
	time.AfterFunc(r.cfg.WolfVoteCountdown, func() {
		select {
		case r.inbox <- wolfTimerFired{gen: gen}:
		case <-r.ctx.Done():
		}
	})
}

func (r *Room) armRevealTimer() {
	r.revealGen++
	gen := r.revealGen
	time.AfterFunc(r.cfg.RevealAckTimeout, func() {
		select {
		case r.inbox <- revealTimerFired{gen: gen}:
		case <-r.ctx.Done():
		}
	})
}

func (r *Room) openCatchup() {
	r.catchup = make(map[string]bool)
	for _, p := range r.state.Players {
		if p != nil && !p.IsBot {
			r.catchup[p.UID] = true
		}
	}
	if len(r.catchup) == 0 {
		r.catchup = nil
		return
	}
	r.catchupGen++
	gen := r.catchupGen
	time.AfterFunc(r.cfg.CatchupWindow, func() {
		select {
		case r.inbox <- catchupExpired{gen: gen}:
		case <-r.ctx.Done():
		}
	})
}

func (r *Room) ackCatchup(uid string, version int) {
	if r.catchup == nil || version != r.version {
		return
	}
	delete(r.catchup, uid)
	if len(r.catchup) > 0 {
		return
	}
	r.log.Info("catch-up acknowledged by all seated players", zap.Int("version", r.version))
	r.closeCatchup()
}

// closeCatchup resumes resolution and re-arms whatever the sequencer was
// waiting on at the journaled step.
func (r *Room) closeCatchup() {
	r.catchup = nil
	if r.state.NightActive() {
		if r.state.CurrentStepID() == nightplan.StepWolfPack && r.state.Actions[nightplan.StepWolfPack] == nil {
			ns := r.state.Clone()
			ns.ArmWolfDeadline(time.Now().Add(r.cfg.WolfVoteCountdown))
			r.state = ns
			r.armWolfTimer()
		}
		if r.state.PendingReveal != nil {
			r.armRevealTimer()
		}
	}
	r.broadcastSnapshot()
	r.runBots()
}

func (r *Room) reject(uid, action string, err error) {
	rej := protocol.Rejected{
		TargetUID:   uid,
		Action:      action,
		Reason:      engine.ReasonFor(err),
		RejectionID: uuid.NewString(),
	}
	r.state.ActionRejected = &engine.Rejection{
		TargetUID: rej.TargetUID, Action: rej.Action,
		Reason: rej.Reason, RejectionID: rej.RejectionID,
	}
	r.log.Debug("submission rejected",
		zap.String("uid", uid), zap.String("action", action), zap.String("reason", string(rej.Reason)))
	r.sendTo(uid, protocol.ServerMessage{Type: protocol.MsgActionRejected, Version: r.version, Rejected: &rej})
}

func (r *Room) persist() {
	if r.journal == nil {
		return
	}
	payload, err := json.Marshal(r.state)
	if err != nil {
		r.log.Error("journal marshal failed", zap.Error(err))
		return
	}
	if err := r.journal.Save(r.ctx, r.code, r.version, payload); err != nil {
		r.log.Error("journal save failed", zap.Error(err))
	}
}

func (r *Room) shutdown() {
	for uid, ch := range r.clients {
		close(ch)
		delete(r.clients, uid)
	}
	r.cancel()
}
