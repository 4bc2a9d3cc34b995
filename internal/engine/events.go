package engine

import "github.com/olveryu/werewolf-judge-backend/internal/roles"

type EventType string

const (
	EvtActionApplied     EventType = "ActionApplied"
	EvtSwapFirstSelected EventType = "SwapFirstSelected"
	EvtWolfVoteCast      EventType = "WolfVoteCast"
	EvtWolfVoteResolved  EventType = "WolfVoteResolved"
	EvtWolfStepOpened    EventType = "WolfStepOpened"
	EvtRevealReady       EventType = "RevealReady"
	EvtRevealAcked       EventType = "RevealAcked"
	EvtConfirmComputed   EventType = "ConfirmComputed"
	EvtWitchContextReady EventType = "WitchContextReady"
	EvtImmuneNoOp        EventType = "ImmuneNoOp"
	EvtStepAdvanced      EventType = "StepAdvanced"
	EvtStepAutoSkipped   EventType = "StepAutoSkipped"
	EvtNightCompleted    EventType = "NightCompleted"
	EvtGameEnded         EventType = "GameEnded"
)

// Event describes one effect of a resolution. The room loop translates
// events into broadcasts and single-recipient secret payloads.
type Event struct {
	Type   EventType
	StepID string
	Seat   int // acting or addressed seat, -1 when not seat-scoped
	Target int
	Winner roles.Team // EvtGameEnded only
}
