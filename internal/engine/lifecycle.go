package engine

import (
	"fmt"
	"math/rand"

	"github.com/olveryu/werewolf-judge-backend/internal/roles"
)

// Room lifecycle mutations. These run on the room loop only, same as the
// resolver; they return errors instead of mutating on failure.

func (s *State) TakeSeat(seat int, uid, displayName string, isBot bool) error {
	if s.Status != StatusUnseated && s.Status != StatusSeated {
		return fmt.Errorf("%w: cannot take seat while %s", ErrBadLifecycle, s.Status)
	}
	p, ok := s.Players[seat]
	if !ok {
		return fmt.Errorf("%w: no such seat %d", ErrConstraintViolation, seat)
	}
	if p != nil && p.UID != uid {
		return fmt.Errorf("%w: seat %d occupied", ErrConstraintViolation, seat)
	}
	if prev := s.SeatOf(uid); prev != NoSeat && prev != seat {
		s.Players[prev] = nil
	}
	s.Players[seat] = &Player{UID: uid, DisplayName: displayName, IsBot: isBot, Alive: true}
	if s.seatedCount() == len(s.Template) {
		s.Status = StatusSeated
	}
	return nil
}

func (s *State) LeaveSeat(uid string) error {
	if s.Status != StatusUnseated && s.Status != StatusSeated {
		return fmt.Errorf("%w: cannot leave seat while %s", ErrBadLifecycle, s.Status)
	}
	seat := s.SeatOf(uid)
	if seat == NoSeat {
		return fmt.Errorf("%w: uid not seated", ErrNotActor)
	}
	s.Players[seat] = nil
	s.Status = StatusUnseated
	return nil
}

// AssignRoles shuffles the template across the seats. The seed comes from
// the host so an audit can replay the assignment.
func (s *State) AssignRoles(seed int64) error {
	if s.Status != StatusSeated {
		return fmt.Errorf("%w: assign requires a fully seated room", ErrBadLifecycle)
	}
	shuffled := append([]roles.ID(nil), s.Template...)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	for seat := 0; seat < len(shuffled); seat++ {
		p := s.Players[seat]
		if p == nil {
			return fmt.Errorf("%w: seat %d empty at assignment", ErrInvariant, seat)
		}
		p.Role = shuffled[seat]
		p.HasViewedRole = false
	}
	s.Status = StatusAssigned
	return nil
}

func (s *State) MarkRoleViewed(uid string) error {
	if s.Status != StatusAssigned && s.Status != StatusReady {
		return fmt.Errorf("%w: roles not assigned", ErrBadLifecycle)
	}
	seat := s.SeatOf(uid)
	if seat == NoSeat {
		return fmt.Errorf("%w: uid not seated", ErrNotActor)
	}
	s.Players[seat].HasViewedRole = true
	for _, p := range s.Players {
		if p == nil || !p.HasViewedRole {
			return nil
		}
	}
	s.Status = StatusReady
	return nil
}

// StartNight arms the sequencer at the first step. Steps with no eligible
// actor are auto-skipped on the way in.
func (s *State) StartNight() ([]Event, error) {
	if s.Status != StatusReady && s.Status != StatusOngoing {
		return nil, fmt.Errorf("%w: night requires a ready room", ErrBadLifecycle)
	}
	if s.NightActive() {
		return nil, fmt.Errorf("%w: night already in progress", ErrBadLifecycle)
	}
	s.Status = StatusOngoing
	s.Night++
	s.Actions = make(map[string]*ResolvedAction)
	s.WolfVotes = make(map[int]int)
	s.ConfirmStatus = make(map[int]bool)
	s.Applied = make(map[string]bool)
	s.CurrentNightResults = nil
	s.resetNightWork()
	s.CurrentStep = NoSeat
	var events []Event
	s.advanceStep(&events)
	return events, nil
}

// Restart supersedes this instance with a fresh one, preserving the
// template and seating. Roles are cleared and re-dealt.
func (s State) Restart() (State, error) {
	ns, err := NewState(s.RoomCode, s.HostUID, s.Template)
	if err != nil {
		return State{}, err
	}
	for seat, p := range s.Players {
		if p == nil {
			continue
		}
		ns.Players[seat] = &Player{
			UID:         p.UID,
			DisplayName: p.DisplayName,
			IsBot:       p.IsBot,
			Alive:       true,
		}
	}
	if ns.seatedCount() == len(ns.Template) {
		ns.Status = StatusSeated
	}
	return ns, nil
}

func (s State) seatedCount() int {
	n := 0
	for _, p := range s.Players {
		if p != nil {
			n++
		}
	}
	return n
}
