package engine

import (
	"sort"

	"github.com/olveryu/werewolf-judge-backend/internal/nightplan"
	"github.com/olveryu/werewolf-judge-backend/internal/roles"
)

// advanceStep moves the sequencer to the next step that has an eligible
// actor. Actor-less steps get a synthetic resolution so the night summary
// can tell "nobody could act" apart from "the player skipped".
func (s *State) advanceStep(events *[]Event) {
	for {
		s.CurrentStep++
		if s.CurrentStep >= len(s.Plan) {
			s.finishNight(events)
			return
		}
		step := s.Plan[s.CurrentStep]
		if s.Actions[step.ID] != nil {
			continue
		}
		if len(s.eligibleActors(step)) == 0 {
			s.Actions[step.ID] = &ResolvedAction{
				StepID: step.ID, Seat: NoSeat, Target: NoSeat,
				Skipped: true, Synthetic: true,
			}
			*events = append(*events, Event{Type: EvtStepAutoSkipped, StepID: step.ID, Seat: NoSeat, Target: NoSeat})
			continue
		}
		*events = append(*events, Event{Type: EvtStepAdvanced, StepID: step.ID, Seat: NoSeat, Target: NoSeat})
		s.openStep(step, events)
		return
	}
}

func (s *State) openStep(step nightplan.Step, events *[]Event) {
	switch {
	case step.ID == nightplan.StepWolfPack:
		// Room loop arms the countdown and its forced-resolution timer.
		*events = append(*events, Event{Type: EvtWolfStepOpened, StepID: step.ID, Seat: NoSeat, Target: NoSeat})
	case step.Schema.Kind == roles.KindCompound:
		witches := s.eligibleActors(step)
		if len(witches) != 1 {
			return
		}
		s.WitchContext = &WitchContext{
			Seat:       witches[0],
			KillTarget: s.KillTarget,
			CanSave:    !s.UsedSave && s.KillTarget != NoSeat,
			CanPoison:  !s.UsedPoison,
		}
		*events = append(*events, Event{Type: EvtWitchContextReady, StepID: step.ID, Seat: witches[0], Target: s.KillTarget})
	}
}

// finishNight settles the working set into deaths, writes the summary,
// and evaluates the win condition.
func (s *State) finishNight(events *[]Event) {
	s.CurrentStep = len(s.Plan)

	deaths := make(map[int]bool)
	if kill := s.KillTarget; kill != NoSeat {
		guarded := s.GuardedSeat == kill
		saved := s.SavedByWitch
		// Exactly one protection saves; guard and save together cancel out.
		if guarded == saved {
			deaths[kill] = true
		}
	}
	if s.PoisonTarget != NoSeat {
		deaths[s.PoisonTarget] = true
	}
	if s.DreamTarget != NoSeat {
		// The dream target follows the dreamcatcher into death.
		for seat, p := range s.Players {
			if p != nil && p.Role == roles.Dreamcatcher && deaths[seat] {
				deaths[s.DreamTarget] = true
			}
		}
	}

	list := make([]int, 0, len(deaths))
	for seat := range deaths {
		if p := s.player(seat); p != nil && p.Alive {
			p.Alive = false
			list = append(list, seat)
		}
	}
	sort.Ints(list)
	s.LastNightDeaths = list
	s.CurrentNightResults = &NightSummary{Night: s.Night, Deaths: list, Peaceful: len(list) == 0}
	*events = append(*events, Event{Type: EvtNightCompleted, StepID: "", Seat: NoSeat, Target: NoSeat})

	if winner, over := s.winCondition(); over {
		s.Status = StatusEnded
		s.Winner = winner
		*events = append(*events, Event{Type: EvtGameEnded, Seat: NoSeat, Target: NoSeat, Winner: winner})
	}
}

func (s State) winCondition() (roles.Team, bool) {
	wolves, others := 0, 0
	for _, p := range s.Players {
		if p == nil || !p.Alive {
			continue
		}
		if roles.IsWolfSide(p.Role) {
			wolves++
		} else {
			others++
		}
	}
	switch {
	case wolves == 0:
		return roles.TeamVillager, true
	case wolves >= others:
		return roles.TeamWolf, true
	default:
		return "", false
	}
}
