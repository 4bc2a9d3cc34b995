// Package protocol defines the wire messages exchanged between clients
// and the host, plus the public snapshot shape. Secret information never
// rides in the public snapshot; it travels as a SecretPayload addressed
// to exactly one recipient.
package protocol

import (
	"encoding/json"

	"github.com/olveryu/werewolf-judge-backend/internal/engine"
	"github.com/olveryu/werewolf-judge-backend/internal/nightplan"
	"github.com/olveryu/werewolf-judge-backend/internal/roles"
)

// Client -> Server message types.
const (
	MsgAction          = "Action"
	MsgWolfVote        = "WolfVote"
	MsgRevealAck       = "RevealAck"
	MsgRequestSnapshot = "RequestSnapshot"
	MsgSnapshotAck     = "SnapshotAck"
	MsgHeartbeat       = "Heartbeat"
	MsgTakeSeat        = "TakeSeat"
	MsgLeaveSeat       = "LeaveSeat"
	MsgAssignRoles     = "AssignRoles"
	MsgViewedRole      = "ViewedRole"
	MsgStartNight      = "StartNight"
	MsgRestartGame     = "RestartGame"
)

type ClientMessage struct {
	Type        string           `json:"type"`
	Seat        int              `json:"seat,omitempty"`
	Role        roles.ID         `json:"role,omitempty"`
	StepID      string           `json:"step_id,omitempty"`
	SubStep     string           `json:"sub_step,omitempty"`
	Target      *int             `json:"target,omitempty"` // nil = skip
	Nonce       string           `json:"nonce,omitempty"`
	RevealKind  roles.RevealKind `json:"reveal_kind,omitempty"`
	DisplayName string           `json:"display_name,omitempty"`
	IsBot       bool             `json:"is_bot,omitempty"`
	Seed        int64            `json:"seed,omitempty"`
	Version     int              `json:"version,omitempty"` // SnapshotAck / Heartbeat
}

// Server -> Client message types.
const (
	MsgStateSnapshot  = "StateSnapshot"
	MsgSecretPayload  = "SecretPayload"
	MsgActionRejected = "ActionRejected"
	MsgNightProgress  = "NightProgress"
	MsgPong           = "Pong"
	MsgError          = "Error"
)

type ServerMessage struct {
	Type     string              `json:"type"`
	Version  int                 `json:"version,omitempty"`
	Snapshot *Snapshot           `json:"snapshot,omitempty"`
	Secret   *SecretPayload      `json:"secret,omitempty"`
	Rejected *Rejected           `json:"rejected,omitempty"`
	Progress *nightplan.Progress `json:"progress,omitempty"`
	Error    string              `json:"error,omitempty"`
}

// SeatView is one seat as every client may see it. Roles are absent by
// design: a client learns its own role through a secret payload.
type SeatView struct {
	Seat          int    `json:"seat"`
	Occupied      bool   `json:"occupied"`
	UID           string `json:"uid,omitempty"`
	DisplayName   string `json:"displayName,omitempty"`
	HasViewedRole bool   `json:"hasViewedRole,omitempty"`
	IsBot         bool   `json:"isBot,omitempty"`
	Alive         bool   `json:"alive"`
}

// Snapshot is the public, redacted view of the authoritative state.
// Consumers replace their whole local copy with it, keyed by Version.
type Snapshot struct {
	Version          int                  `json:"version"`
	RoomCode         string               `json:"roomCode"`
	HostUID          string               `json:"hostUid"`
	Status           engine.Status        `json:"status"`
	Template         []roles.ID           `json:"template"`
	Seats            []SeatView           `json:"seats"`
	CurrentStepIndex int                  `json:"currentStepIndex"`
	StepTotal        int                  `json:"stepTotal"`
	Night            int                  `json:"night"`
	WolfVoteDeadline int64                `json:"wolfVoteDeadline,omitempty"` // unix ms
	LastNightDeaths  []int                `json:"lastNightDeaths"`
	NightResults     *engine.NightSummary `json:"nightResults,omitempty"`
	Winner           roles.Team           `json:"winner,omitempty"`
	CatchingUp       bool                 `json:"catchingUp,omitempty"`
}

// Secret payload kinds.
const (
	SecretRole          = "role"
	SecretWolfMeeting   = "wolfMeeting"
	SecretWitchContext  = "witchContext"
	SecretSeerReveal    = "seerReveal"
	SecretPsychicReveal = "psychicReveal"
	SecretGargoyle      = "gargoyleReveal"
	SecretWolfRobot     = "wolfRobotReveal"
	SecretConfirmStatus = "confirmStatus"
	SecretWarning       = "warning"
)

// SecretPayload names exactly one recipient. The room loop drops any
// payload that fails to name one; that is an invariant violation.
type SecretPayload struct {
	RecipientUID string          `json:"recipientUid"`
	Kind         string          `json:"kind"`
	Data         json.RawMessage `json:"data"`
}

// WolfMeetingData shows pack members their teammates and the standing
// votes; it only ever goes to wolf-meeting participants.
type WolfMeetingData struct {
	Members []int       `json:"members"`
	Votes   map[int]int `json:"votes"`
}

type RoleData struct {
	Seat int      `json:"seat"`
	Role roles.ID `json:"role"`
	Name string   `json:"name"`
}

type ConfirmStatusData struct {
	Seat     int  `json:"seat"`
	CanShoot bool `json:"canShoot"`
}

type WarningData struct {
	Reason engine.Reason `json:"reason"`
	Target int           `json:"target"`
}

type Rejected struct {
	TargetUID   string        `json:"targetUid"`
	Action      string        `json:"action"`
	Reason      engine.Reason `json:"reason"`
	RejectionID string        `json:"rejectionId"`
}
