package engine

import (
	"fmt"

	"github.com/olveryu/werewolf-judge-backend/internal/nightplan"
	"github.com/olveryu/werewolf-judge-backend/internal/roles"
)

// Submission is a player's night-action intent. Nothing in it is trusted:
// the seat's occupant and role are re-derived from authoritative state.
type Submission struct {
	ActorUID  string
	ActorSeat int
	Role      roles.ID
	StepID    string
	SubStep   string // compound schemas only
	Target    int    // NoSeat = skip / empty, WithdrawVote = take back
	Nonce     string
}

func (sub Submission) idemKey() string {
	return fmt.Sprintf("%d|%s|%s|%s", sub.ActorSeat, sub.StepID, sub.SubStep, sub.Nonce)
}

// Apply validates one submission against the current state and either
// applies its effect or returns a typed rejection. Pure with respect to
// its input: the returned state is a fresh clone, the original is never
// touched.
//
// Validation order is fail-fast: step currency, actor eligibility, target
// legality. The idempotency set is consulted first so a duplicate of an
// already-applied submission is accepted silently even after the step
// advanced (at-least-once transport safety).
func Apply(s State, sub Submission) ([]Event, State, error) {
	if sub.Nonce != "" && s.Applied[sub.idemKey()] {
		return nil, s, nil
	}

	if !s.NightActive() {
		return nil, s, ErrStaleStep
	}
	step := s.Plan[s.CurrentStep]
	if sub.StepID != step.ID {
		return nil, s, ErrStaleStep
	}

	actor := s.player(sub.ActorSeat)
	if actor == nil || !actor.Alive || actor.UID != sub.ActorUID {
		return nil, s, ErrNotActor
	}
	if sub.Role != actor.Role {
		return nil, s, ErrRoleMismatch
	}
	spec, ok := roles.Lookup(actor.Role)
	if !ok {
		return nil, s, fmt.Errorf("%w: seat %d holds unknown role", ErrInvariant, sub.ActorSeat)
	}
	if step.ID == nightplan.StepWolfPack {
		if !spec.WolfVote {
			return nil, s, ErrNotActor
		}
	} else if !s.Plan.ActsIn(step.ID, actor.Role) {
		return nil, s, ErrNotActor
	}

	ns := s.Clone()
	var events []Event
	var err error
	switch step.Schema.Kind {
	case roles.KindWolfVote:
		err = ns.applyWolfVote(step, sub, &events)
	case roles.KindCompound:
		err = ns.applyWitch(step, sub, &events)
	case roles.KindSwap:
		err = ns.applySwap(step, sub, &events)
	case roles.KindConfirm:
		err = ns.applyConfirm(step, sub, spec, &events)
	case roles.KindChooseSeat, roles.KindConfirmTarget:
		err = ns.applyChooseSeat(step, sub, spec, &events)
	default:
		err = fmt.Errorf("%w: schema kind %q", ErrInvariant, step.Schema.Kind)
	}
	if err != nil {
		return nil, s, err
	}
	if sub.Nonce != "" {
		ns.Applied[sub.idemKey()] = true
	}
	return events, ns, nil
}

func (s *State) applyChooseSeat(step nightplan.Step, sub Submission, spec roles.Spec, events *[]Event) error {
	if s.Actions[step.ID] != nil {
		return ErrAlreadyResolved
	}

	if s.Blocked[sub.ActorSeat] {
		s.Actions[step.ID] = &ResolvedAction{
			StepID: step.ID, Seat: sub.ActorSeat, Target: NoSeat, Blocked: true,
		}
		*events = append(*events, Event{Type: EvtActionApplied, StepID: step.ID, Seat: sub.ActorSeat, Target: NoSeat})
		s.advanceStep(events)
		return nil
	}

	if sub.Target == NoSeat {
		if !step.Schema.CanSkip {
			return fmt.Errorf("%w: %s cannot be skipped", ErrConstraintViolation, step.ID)
		}
		s.Actions[step.ID] = &ResolvedAction{
			StepID: step.ID, Seat: sub.ActorSeat, Target: NoSeat, Skipped: true,
		}
		*events = append(*events, Event{Type: EvtActionApplied, StepID: step.ID, Seat: sub.ActorSeat, Target: NoSeat})
		s.advanceStep(events)
		return nil
	}

	if err := s.checkTarget(sub.ActorSeat, sub.Target, step.Schema.HasConstraint); err != nil {
		return err
	}

	act := &ResolvedAction{StepID: step.ID, Seat: sub.ActorSeat, Target: sub.Target}
	switch spec.Effect {
	case roles.EffectGuard:
		s.GuardedSeat = sub.Target
	case roles.EffectBlock:
		s.Blocked[sub.Target] = true
	case roles.EffectDream:
		s.DreamTarget = sub.Target
		s.Blocked[sub.Target] = true
	case roles.EffectReveal:
		s.Actions[step.ID] = act
		reveal := s.computeReveal(spec, sub.ActorSeat, sub.Target)
		*events = append(*events,
			Event{Type: EvtActionApplied, StepID: step.ID, Seat: sub.ActorSeat, Target: sub.Target},
			Event{Type: EvtRevealReady, StepID: step.ID, Seat: reveal.Seat, Target: sub.Target},
		)
		// The step stays open until the recipient acks the reveal, so the
		// night cannot advance past an undelivered secret.
		return nil
	default:
		return fmt.Errorf("%w: role %s has no chooseSeat effect", ErrInvariant, spec.ID)
	}
	s.Actions[step.ID] = act
	*events = append(*events, Event{Type: EvtActionApplied, StepID: step.ID, Seat: sub.ActorSeat, Target: sub.Target})
	s.advanceStep(events)
	return nil
}

func (s *State) computeReveal(spec roles.Spec, actorSeat, target int) *Reveal {
	tp := s.player(target)
	reveal := &Reveal{Kind: spec.Reveal, Seat: actorSeat, Target: target}
	switch spec.Reveal {
	case roles.RevealSeer:
		reveal.IsWolf = tp != nil && roles.IsWolfSide(tp.Role)
	case roles.RevealPsychic, roles.RevealGargoyle, roles.RevealWolfRobot:
		if tp != nil {
			reveal.Role = tp.Role
		}
	}
	switch spec.Reveal {
	case roles.RevealSeer:
		s.SeerReveal = reveal
	case roles.RevealPsychic:
		s.PsychicReveal = reveal
	case roles.RevealGargoyle:
		s.GargoyleReveal = reveal
	case roles.RevealWolfRobot:
		s.WolfRobotReveal = reveal
		if tp != nil && tp.Role == roles.Hunter {
			s.WolfRobotHunterStatusViewed = true
		}
	}
	s.PendingReveal = reveal
	return reveal
}

// applySwap tracks the magician's first pick server-side so a client
// restart mid-selection cannot desync the pair. Only the second pick
// commits an effect.
func (s *State) applySwap(step nightplan.Step, sub Submission, events *[]Event) error {
	if s.Actions[step.ID] != nil {
		return ErrAlreadyResolved
	}
	if s.Blocked[sub.ActorSeat] {
		s.Actions[step.ID] = &ResolvedAction{
			StepID: step.ID, Seat: sub.ActorSeat, Target: NoSeat, Blocked: true,
		}
		*events = append(*events, Event{Type: EvtActionApplied, StepID: step.ID, Seat: sub.ActorSeat, Target: NoSeat})
		s.advanceStep(events)
		return nil
	}

	if sub.Target == NoSeat {
		if s.PendingSwap != nil {
			return fmt.Errorf("%w: second swap seat required", ErrConstraintViolation)
		}
		s.Actions[step.ID] = &ResolvedAction{
			StepID: step.ID, Seat: sub.ActorSeat, Target: NoSeat, Skipped: true,
		}
		*events = append(*events, Event{Type: EvtActionApplied, StepID: step.ID, Seat: sub.ActorSeat, Target: NoSeat})
		s.advanceStep(events)
		return nil
	}

	if err := s.checkTarget(sub.ActorSeat, sub.Target, step.Schema.HasConstraint); err != nil {
		return err
	}

	if s.PendingSwap == nil {
		first := sub.Target
		s.PendingSwap = &first
		*events = append(*events, Event{Type: EvtSwapFirstSelected, StepID: step.ID, Seat: sub.ActorSeat, Target: first})
		return nil
	}
	if sub.Target == *s.PendingSwap {
		return fmt.Errorf("%w: swap seats must differ", ErrConstraintViolation)
	}
	pair := [2]int{*s.PendingSwap, sub.Target}
	s.Swapped = &pair
	s.PendingSwap = nil
	s.Actions[step.ID] = &ResolvedAction{
		StepID: step.ID, Seat: sub.ActorSeat, Target: sub.Target,
		Sub: map[string]int{"first": pair[0], "second": pair[1]},
	}
	*events = append(*events, Event{Type: EvtActionApplied, StepID: step.ID, Seat: sub.ActorSeat, Target: sub.Target})
	s.advanceStep(events)
	return nil
}

// applyConfirm resolves a boolean capability server-side (may this role
// trigger its death skill), independent of whether it is later exercised.
func (s *State) applyConfirm(step nightplan.Step, sub Submission, spec roles.Spec, events *[]Event) error {
	if s.Actions[step.ID] != nil {
		return ErrAlreadyResolved
	}
	// A poisoned or blocked hunter-class role loses its trigger.
	can := s.PoisonTarget != sub.ActorSeat && !s.Blocked[sub.ActorSeat]
	s.ConfirmStatus[sub.ActorSeat] = can
	s.Actions[step.ID] = &ResolvedAction{StepID: step.ID, Seat: sub.ActorSeat, Target: NoSeat}
	*events = append(*events,
		Event{Type: EvtConfirmComputed, StepID: step.ID, Seat: sub.ActorSeat, Target: NoSeat},
		Event{Type: EvtActionApplied, StepID: step.ID, Seat: sub.ActorSeat, Target: NoSeat},
	)
	s.advanceStep(events)
	return nil
}

func (s *State) applyWitch(step nightplan.Step, sub Submission, events *[]Event) error {
	if s.Actions[step.ID] != nil {
		return ErrAlreadyResolved
	}
	if s.Blocked[sub.ActorSeat] {
		s.Actions[step.ID] = &ResolvedAction{
			StepID: step.ID, Seat: sub.ActorSeat, Target: NoSeat, Blocked: true,
		}
		*events = append(*events, Event{Type: EvtActionApplied, StepID: step.ID, Seat: sub.ActorSeat, Target: NoSeat})
		s.advanceStep(events)
		return nil
	}

	var switchErr error
	switch sub.SubStep {
	case roles.SubSave:
		switchErr = s.witchSave(sub)
	case roles.SubPoison:
		switchErr = s.witchPoison(step, sub)
	default:
		switchErr = fmt.Errorf("%w: unknown sub-step %q", ErrConstraintViolation, sub.SubStep)
	}
	if switchErr != nil {
		return switchErr
	}
	*events = append(*events, Event{Type: EvtActionApplied, StepID: step.ID, Seat: sub.ActorSeat, Target: sub.Target})

	// Both legs must resolve, act or explicit skip, before the parent
	// step closes.
	if s.WitchSave == nil || s.WitchPoison == nil {
		return nil
	}
	save, poison := *s.WitchSave, *s.WitchPoison
	s.Actions[step.ID] = &ResolvedAction{
		StepID: step.ID, Seat: sub.ActorSeat, Target: NoSeat,
		Sub: map[string]int{roles.SubSave: save, roles.SubPoison: poison},
	}
	if save != NoSeat {
		s.SavedByWitch = true
		s.UsedSave = true
	}
	if poison != NoSeat {
		s.PoisonTarget = poison
		s.UsedPoison = true
	}
	s.advanceStep(events)
	return nil
}

func (s *State) witchSave(sub Submission) error {
	if s.WitchSave != nil {
		return fmt.Errorf("%w: save already decided", ErrAlreadyResolved)
	}
	if sub.Target == NoSeat {
		skip := NoSeat
		s.WitchSave = &skip
		return nil
	}
	// Save confirms the computed kill target; it is not a free choice.
	if s.UsedSave {
		return fmt.Errorf("%w: save potion already spent", ErrConstraintViolation)
	}
	if s.KillTarget == NoSeat || sub.Target != s.KillTarget {
		return fmt.Errorf("%w: save must confirm the kill target", ErrConstraintViolation)
	}
	t := sub.Target
	s.WitchSave = &t
	return nil
}

func (s *State) witchPoison(step nightplan.Step, sub Submission) error {
	if s.WitchPoison != nil {
		return fmt.Errorf("%w: poison already decided", ErrAlreadyResolved)
	}
	if sub.Target == NoSeat {
		skip := NoSeat
		s.WitchPoison = &skip
		return nil
	}
	if s.UsedPoison {
		return fmt.Errorf("%w: poison already spent", ErrConstraintViolation)
	}
	var sd roles.SubStep
	for _, cand := range step.Schema.Subs {
		if cand.ID == roles.SubPoison {
			sd = cand
		}
	}
	if err := s.checkTarget(sub.ActorSeat, sub.Target, sd.HasConstraint); err != nil {
		return err
	}
	t := sub.Target
	s.WitchPoison = &t
	return nil
}

// AckReveal closes the step a pending reveal held open. Idempotent: an
// ack with no matching pending reveal is a no-op.
func AckReveal(s State, uid string, kind roles.RevealKind) ([]Event, State, error) {
	if s.PendingReveal == nil || s.PendingReveal.Kind != kind {
		return nil, s, nil
	}
	recipient := s.player(s.PendingReveal.Seat)
	if recipient == nil || recipient.UID != uid {
		return nil, s, ErrNotActor
	}
	ns := s.Clone()
	ns.PendingReveal = nil
	ns.markRevealAcked(kind)
	events := []Event{{Type: EvtRevealAcked, StepID: ns.CurrentStepID(), Seat: s.PendingReveal.Seat, Target: NoSeat}}
	ns.advanceStep(&events)
	return events, ns, nil
}

// RevealTimeout force-advances past an unacked reveal so a dead client
// cannot deadlock the night. The caller logs the anomaly.
func RevealTimeout(s State) ([]Event, State, bool) {
	if s.PendingReveal == nil {
		return nil, s, false
	}
	ns := s.Clone()
	kind := ns.PendingReveal.Kind
	ns.PendingReveal = nil
	ns.markRevealAcked(kind)
	var events []Event
	ns.advanceStep(&events)
	return events, ns, true
}

func (s *State) markRevealAcked(kind roles.RevealKind) {
	for _, r := range []*Reveal{s.SeerReveal, s.PsychicReveal, s.GargoyleReveal, s.WolfRobotReveal} {
		if r != nil && r.Kind == kind {
			r.Acked = true
		}
	}
}

func (s State) checkTarget(actorSeat, target int, has func(roles.Constraint) bool) error {
	p, ok := s.Players[target]
	if !ok {
		return fmt.Errorf("%w: no such seat %d", ErrConstraintViolation, target)
	}
	if has(roles.NotSelf) && target == actorSeat {
		return fmt.Errorf("%w: cannot target own seat", ErrConstraintViolation)
	}
	if has(roles.TargetOccupied) && p == nil {
		return fmt.Errorf("%w: seat %d is open", ErrConstraintViolation, target)
	}
	if has(roles.TargetAlive) && (p == nil || !p.Alive) {
		return fmt.Errorf("%w: seat %d is not alive", ErrConstraintViolation, target)
	}
	return nil
}
