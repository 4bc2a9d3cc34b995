package engine

import (
	"time"

	"github.com/olveryu/werewolf-judge-backend/internal/nightplan"
	"github.com/olveryu/werewolf-judge-backend/internal/roles"
)

type Status string

const (
	StatusUnseated Status = "unseated"
	StatusSeated   Status = "seated"
	StatusAssigned Status = "assigned"
	StatusReady    Status = "ready"
	StatusOngoing  Status = "ongoing"
	StatusEnded    Status = "ended"
)

// NoSeat is the sentinel for "no target / no seat".
const NoSeat = -1

// WithdrawVote is the wolf-vote target meaning "take my vote back".
const WithdrawVote = -2

type Player struct {
	UID           string   `json:"uid"`
	DisplayName   string   `json:"displayName"`
	Role          roles.ID `json:"role,omitempty"`
	HasViewedRole bool     `json:"hasViewedRole"`
	IsBot         bool     `json:"isBot"`
	Alive         bool     `json:"alive"`
}

// ResolvedAction is the single record a step leaves behind in Actions.
// Synthetic entries come from the sequencer auto-skipping a step with no
// eligible actor; they are distinguished from a player's explicit skip for
// night-summary accuracy.
type ResolvedAction struct {
	StepID    string         `json:"stepId"`
	Seat      int            `json:"seat"`
	Target    int            `json:"target"`
	Skipped   bool           `json:"skipped,omitempty"`
	Synthetic bool           `json:"synthetic,omitempty"`
	Blocked   bool           `json:"blocked,omitempty"`
	Warning   Reason         `json:"warning,omitempty"`
	Sub       map[string]int `json:"sub,omitempty"`
}

// Reveal is a single-recipient secret payload produced by a checking role.
type Reveal struct {
	Kind   roles.RevealKind `json:"kind"`
	Seat   int              `json:"seat"` // recipient
	Target int              `json:"target"`
	IsWolf bool             `json:"isWolf,omitempty"`
	Role   roles.ID         `json:"role,omitempty"`
	Acked  bool             `json:"acked"`
}

// WitchContext is the witch's private view of the night: who the wolves
// hit and which potions are still usable.
type WitchContext struct {
	Seat       int  `json:"seat"` // recipient
	KillTarget int  `json:"killTarget"`
	CanSave    bool `json:"canSave"`
	CanPoison  bool `json:"canPoison"`
}

// Rejection is the transient record addressed to exactly one client.
type Rejection struct {
	TargetUID   string `json:"targetUid"`
	Action      string `json:"action"`
	Reason      Reason `json:"reason"`
	RejectionID string `json:"rejectionId"`
}

// NightSummary is read-only once written.
type NightSummary struct {
	Night    int   `json:"night"`
	Deaths   []int `json:"deaths"`
	Peaceful bool  `json:"peaceful"`
}

// State is the authoritative game state. Exactly one mutator exists (the
// room loop on the Host); everything handed to other goroutines is a
// Clone. All fields serialize so the journal can rebuild a host after a
// restart.
type State struct {
	RoomCode string     `json:"roomCode"`
	HostUID  string     `json:"hostUid"`
	Status   Status     `json:"status"`
	Template []roles.ID `json:"template"`

	// Seat number -> occupant; nil entry means the seat is open.
	Players map[int]*Player `json:"players"`

	// Plan is derived from Template; recomputed (never trusted) after a
	// journal load.
	Plan nightplan.Plan `json:"-"`

	Night       int `json:"night"`
	CurrentStep int `json:"currentStepIndex"` // -1 idle, len(Plan) night complete

	Actions          map[string]*ResolvedAction `json:"actions"`
	WolfVotes        map[int]int                `json:"wolfVotes"`
	WolfVoteDeadline *time.Time                 `json:"wolfVoteDeadline,omitempty"`

	PendingSwap   *int          `json:"pendingSwap,omitempty"`
	PendingReveal *Reveal       `json:"pendingReveal,omitempty"`
	WitchContext  *WitchContext `json:"witchContext,omitempty"`

	SeerReveal      *Reveal `json:"seerReveal,omitempty"`
	PsychicReveal   *Reveal `json:"psychicReveal,omitempty"`
	GargoyleReveal  *Reveal `json:"gargoyleReveal,omitempty"`
	WolfRobotReveal *Reveal `json:"wolfRobotReveal,omitempty"`

	ActionRejected              *Rejection   `json:"actionRejected,omitempty"`
	ConfirmStatus               map[int]bool `json:"confirmStatus,omitempty"`
	WolfRobotHunterStatusViewed bool         `json:"wolfRobotHunterStatusViewed,omitempty"`

	// Night working set, reset by StartNight.
	KillTarget   int          `json:"killTarget"`
	SavedByWitch bool         `json:"savedByWitch"`
	PoisonTarget int          `json:"poisonTarget"`
	GuardedSeat  int          `json:"guardedSeat"`
	Blocked      map[int]bool `json:"blocked,omitempty"`
	DreamTarget  int          `json:"dreamTarget"`
	Swapped      *[2]int      `json:"swapped,omitempty"`

	// Witch potions are once per game instance.
	UsedSave   bool `json:"usedSave"`
	UsedPoison bool `json:"usedPoison"`

	// Witch sub-step decisions in flight; committed together.
	WitchSave   *int `json:"witchSave,omitempty"`
	WitchPoison *int `json:"witchPoison,omitempty"`

	LastNightDeaths     []int           `json:"lastNightDeaths"`
	CurrentNightResults *NightSummary   `json:"currentNightResults,omitempty"`
	Winner              roles.Team      `json:"winner,omitempty"`
	Applied             map[string]bool `json:"applied"`
}

// NewState validates the template (configuration errors surface here,
// never at night) and returns a fresh unseated room state.
func NewState(roomCode, hostUID string, template []roles.ID) (State, error) {
	plan, err := nightplan.Build(template)
	if err != nil {
		return State{}, err
	}
	s := State{
		RoomCode:    roomCode,
		HostUID:     hostUID,
		Status:      StatusUnseated,
		Template:    append([]roles.ID(nil), template...),
		Players:     make(map[int]*Player),
		Plan:        plan,
		CurrentStep: NoSeat,
		Actions:     make(map[string]*ResolvedAction),
		WolfVotes:   make(map[int]int),
		Applied:     make(map[string]bool),
	}
	for i := range template {
		s.Players[i] = nil
	}
	s.resetNightWork()
	return s, nil
}

// EnsurePlan recomputes the derived plan; called after deserializing.
func (s *State) EnsurePlan() error {
	plan, err := nightplan.Build(s.Template)
	if err != nil {
		return err
	}
	s.Plan = plan
	return nil
}

func (s *State) resetNightWork() {
	s.KillTarget = NoSeat
	s.SavedByWitch = false
	s.PoisonTarget = NoSeat
	s.GuardedSeat = NoSeat
	s.Blocked = make(map[int]bool)
	s.DreamTarget = NoSeat
	s.Swapped = nil
	s.PendingSwap = nil
	s.PendingReveal = nil
	s.WitchContext = nil
	s.WitchSave = nil
	s.WitchPoison = nil
	s.SeerReveal = nil
	s.PsychicReveal = nil
	s.GargoyleReveal = nil
	s.WolfRobotReveal = nil
	s.WolfVoteDeadline = nil
}

// Clone is a deep copy. Snapshots handed off the room loop are clones so
// recipients can never observe a torn write.
func (s State) Clone() State {
	ns := s
	ns.Template = append([]roles.ID(nil), s.Template...)
	ns.Players = make(map[int]*Player, len(s.Players))
	for seat, p := range s.Players {
		if p == nil {
			ns.Players[seat] = nil
			continue
		}
		cp := *p
		ns.Players[seat] = &cp
	}
	ns.Actions = make(map[string]*ResolvedAction, len(s.Actions))
	for k, a := range s.Actions {
		cp := *a
		if a.Sub != nil {
			cp.Sub = make(map[string]int, len(a.Sub))
			for sk, sv := range a.Sub {
				cp.Sub[sk] = sv
			}
		}
		ns.Actions[k] = &cp
	}
	ns.WolfVotes = make(map[int]int, len(s.WolfVotes))
	for k, v := range s.WolfVotes {
		ns.WolfVotes[k] = v
	}
	ns.Blocked = make(map[int]bool, len(s.Blocked))
	for k, v := range s.Blocked {
		ns.Blocked[k] = v
	}
	ns.Applied = make(map[string]bool, len(s.Applied))
	for k, v := range s.Applied {
		ns.Applied[k] = v
	}
	ns.WolfVoteDeadline = clonePtr(s.WolfVoteDeadline)
	ns.PendingSwap = clonePtr(s.PendingSwap)
	ns.PendingReveal = clonePtr(s.PendingReveal)
	ns.WitchContext = clonePtr(s.WitchContext)
	ns.SeerReveal = clonePtr(s.SeerReveal)
	ns.PsychicReveal = clonePtr(s.PsychicReveal)
	ns.GargoyleReveal = clonePtr(s.GargoyleReveal)
	ns.WolfRobotReveal = clonePtr(s.WolfRobotReveal)
	ns.ActionRejected = clonePtr(s.ActionRejected)
	if s.ConfirmStatus != nil {
		ns.ConfirmStatus = make(map[int]bool, len(s.ConfirmStatus))
		for k, v := range s.ConfirmStatus {
			ns.ConfirmStatus[k] = v
		}
	}
	ns.WitchSave = clonePtr(s.WitchSave)
	ns.WitchPoison = clonePtr(s.WitchPoison)
	ns.Swapped = clonePtr(s.Swapped)
	ns.LastNightDeaths = append([]int(nil), s.LastNightDeaths...)
	if s.CurrentNightResults != nil {
		sum := *s.CurrentNightResults
		sum.Deaths = append([]int(nil), s.CurrentNightResults.Deaths...)
		ns.CurrentNightResults = &sum
	}
	return ns
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}

// SeatOf resolves a uid to its seat, NoSeat when unseated.
func (s State) SeatOf(uid string) int {
	for seat, p := range s.Players {
		if p != nil && p.UID == uid {
			return seat
		}
	}
	return NoSeat
}

func (s State) player(seat int) *Player {
	p, ok := s.Players[seat]
	if !ok {
		return nil
	}
	return p
}

func (s State) aliveWithRole(id roles.ID) []int {
	var seats []int
	for seat, p := range s.Players {
		if p != nil && p.Alive && p.Role == id {
			seats = append(seats, seat)
		}
	}
	return seats
}

// WolfVoters lists alive seats whose role carries the wolf-vote flag.
func (s State) WolfVoters() []int {
	var seats []int
	for seat, p := range s.Players {
		if p == nil || !p.Alive {
			continue
		}
		if spec, ok := roles.Lookup(p.Role); ok && spec.WolfVote {
			seats = append(seats, seat)
		}
	}
	return seats
}

// WolfMeetingSeats lists alive seats that open their eyes with the pack,
// voting or not.
func (s State) WolfMeetingSeats() []int {
	var seats []int
	for seat, p := range s.Players {
		if p == nil || !p.Alive {
			continue
		}
		if spec, ok := roles.Lookup(p.Role); ok && spec.WolfMeeting {
			seats = append(seats, seat)
		}
	}
	return seats
}

// eligibleActors counts alive players that act in the given step.
func (s State) eligibleActors(step nightplan.Step) []int {
	if step.ID == nightplan.StepWolfPack {
		return s.WolfVoters()
	}
	var seats []int
	for _, role := range step.Roles {
		seats = append(seats, s.aliveWithRole(role)...)
	}
	return seats
}

// NightActive reports whether the night is in progress with a current step.
func (s State) NightActive() bool {
	return s.Status == StatusOngoing && s.CurrentStep >= 0 && s.CurrentStep < len(s.Plan)
}

// CurrentStepID returns the active step id, "" outside a night.
func (s State) CurrentStepID() string {
	if !s.NightActive() {
		return ""
	}
	return s.Plan[s.CurrentStep].ID
}
