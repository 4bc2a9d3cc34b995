package engine

import (
	"sort"

	"github.com/olveryu/werewolf-judge-backend/internal/nightplan"
	"github.com/olveryu/werewolf-judge-backend/internal/roles"
)

// BotSubmissions proposes legal submissions for every bot seat that still
// owes the current step an action. Bots go through the same resolver path
// as humans; nothing here bypasses validation. Nonces are left empty for
// the caller to fill.
func BotSubmissions(s State) []Submission {
	if !s.NightActive() {
		return nil
	}
	step := s.Plan[s.CurrentStep]
	var subs []Submission

	actors := s.eligibleActors(step)
	sort.Ints(actors)
	for _, seat := range actors {
		p := s.player(seat)
		if p == nil || !p.IsBot {
			continue
		}
		base := Submission{
			ActorUID:  p.UID,
			ActorSeat: seat,
			Role:      p.Role,
			StepID:    step.ID,
		}
		switch {
		case step.ID == nightplan.StepWolfPack:
			if _, voted := s.WolfVotes[seat]; voted {
				continue
			}
			base.Target = NoSeat // bots cast empty votes
			subs = append(subs, base)
		case step.Schema.Kind == roles.KindCompound:
			if s.Actions[step.ID] != nil {
				continue
			}
			if s.WitchSave == nil {
				save := base
				save.SubStep = roles.SubSave
				save.Target = NoSeat
				subs = append(subs, save)
			}
			if s.WitchPoison == nil {
				poison := base
				poison.SubStep = roles.SubPoison
				poison.Target = NoSeat
				subs = append(subs, poison)
			}
		default:
			if s.Actions[step.ID] != nil {
				continue
			}
			base.Target = s.botTarget(step, seat)
			subs = append(subs, base)
		}
	}
	return subs
}

// botTarget skips when the schema allows, otherwise picks the lowest
// legal seat so a mandatory step never stalls on a bot.
func (s State) botTarget(step nightplan.Step, actorSeat int) int {
	if step.Schema.CanSkip || step.Schema.Kind == roles.KindConfirm {
		return NoSeat
	}
	seats := make([]int, 0, len(s.Players))
	for seat := range s.Players {
		seats = append(seats, seat)
	}
	sort.Ints(seats)
	for _, seat := range seats {
		if err := s.checkTarget(actorSeat, seat, step.Schema.HasConstraint); err == nil {
			return seat
		}
	}
	return NoSeat
}
