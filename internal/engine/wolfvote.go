package engine

import (
	"time"

	"github.com/olveryu/werewolf-judge-backend/internal/nightplan"
	"github.com/olveryu/werewolf-judge-backend/internal/roles"
)

// Wolf-vote sub-protocol: every voting wolf casts concurrently for a seat
// or an explicit empty vote; votes can be changed or withdrawn until the
// deadline. A kill needs a strict majority of the eligible voters; empty
// votes, and abstentions on the deadline path, weigh against it. A tie or
// an empty majority means no kill, never a random pick, so the outcome is
// reproducible from the vote log.

func (s *State) applyWolfVote(step nightplan.Step, sub Submission, events *[]Event) error {
	if s.Actions[step.ID] != nil {
		return ErrAlreadyResolved
	}

	switch {
	case sub.Target == WithdrawVote:
		delete(s.WolfVotes, sub.ActorSeat)
	case sub.Target == NoSeat:
		s.WolfVotes[sub.ActorSeat] = NoSeat
	default:
		if err := s.checkTarget(sub.ActorSeat, sub.Target, step.Schema.HasConstraint); err != nil {
			return err
		}
		if tp := s.player(sub.Target); tp != nil {
			if spec, ok := roles.Lookup(tp.Role); ok && spec.KillImmune {
				// Lethal submission against an immune role: accepted as a
				// no-op empty vote with a warning to the voter only. A hard
				// reject would leak the target's role through timing.
				s.WolfVotes[sub.ActorSeat] = NoSeat
				*events = append(*events,
					Event{Type: EvtImmuneNoOp, StepID: step.ID, Seat: sub.ActorSeat, Target: sub.Target},
					Event{Type: EvtWolfVoteCast, StepID: step.ID, Seat: sub.ActorSeat, Target: NoSeat},
				)
				s.maybeResolveWolfVote(events)
				return nil
			}
		}
		s.WolfVotes[sub.ActorSeat] = sub.Target
	}

	*events = append(*events, Event{Type: EvtWolfVoteCast, StepID: step.ID, Seat: sub.ActorSeat, Target: sub.Target})
	s.maybeResolveWolfVote(events)
	return nil
}

// maybeResolveWolfVote resolves once every eligible voter has a standing
// vote. Withdrawn votes leave the voter outstanding.
func (s *State) maybeResolveWolfVote(events *[]Event) {
	for _, seat := range s.WolfVoters() {
		if _, ok := s.WolfVotes[seat]; !ok {
			return
		}
	}
	s.resolveWolfVote(events)
}

// ForceWolfVote is the deadline path: abstentions count as empty votes.
// Idempotent if the timer fires after a manual resolution already closed
// the step.
func ForceWolfVote(s State) ([]Event, State, bool) {
	if !s.NightActive() || s.CurrentStepID() != nightplan.StepWolfPack {
		return nil, s, false
	}
	if s.Actions[nightplan.StepWolfPack] != nil {
		return nil, s, false
	}
	ns := s.Clone()
	var events []Event
	ns.resolveWolfVote(&events)
	return events, ns, true
}

func (s *State) resolveWolfVote(events *[]Event) {
	counts := make(map[int]int)
	for _, t := range s.WolfVotes {
		if t >= 0 {
			counts[t]++
		}
	}

	target := NoSeat
	best := 0
	tie := false
	for t, c := range counts {
		switch {
		case c > best:
			best, target, tie = c, t, false
		case c == best:
			tie = true
		}
	}
	// The denominator is every eligible voter: empty votes and, on the
	// deadline path, abstentions weigh against a kill.
	if tie || best*2 <= len(s.WolfVoters()) {
		target = NoSeat
	}

	// The magician's swap redirects the kill between the exchanged seats.
	if target != NoSeat && s.Swapped != nil {
		switch target {
		case s.Swapped[0]:
			target = s.Swapped[1]
		case s.Swapped[1]:
			target = s.Swapped[0]
		}
	}

	s.KillTarget = target
	s.WolfVoteDeadline = nil
	s.Actions[nightplan.StepWolfPack] = &ResolvedAction{
		StepID: nightplan.StepWolfPack, Seat: NoSeat, Target: target,
		Skipped: target == NoSeat,
	}
	*events = append(*events, Event{Type: EvtWolfVoteResolved, StepID: nightplan.StepWolfPack, Seat: NoSeat, Target: target})
	s.advanceStep(events)
}

// ArmWolfDeadline records the forced-resolution deadline. Called by the
// room loop (the single writer) when the wolf step opens.
func (s *State) ArmWolfDeadline(at time.Time) {
	s.WolfVoteDeadline = &at
}
