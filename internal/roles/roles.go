// Package roles holds the closed role table and the action schemas that
// govern each role's night behavior. Everything here is static read-only
// data; the resolver dispatches on schema kind, never on role name.
package roles

type ID string

const (
	Villager     ID = "villager"
	Wolf         ID = "wolf"
	WolfQueen    ID = "wolf_queen"
	DarkWolfKing ID = "dark_wolf_king"
	Nightmare    ID = "nightmare"
	Gargoyle     ID = "gargoyle"
	WolfRobot    ID = "wolf_robot"
	Guard        ID = "guard"
	Witch        ID = "witch"
	Hunter       ID = "hunter"
	Seer         ID = "seer"
	Magician     ID = "magician"
	Psychic      ID = "psychic"
	Slacker      ID = "slacker"
	Dreamcatcher ID = "dreamcatcher"
)

type Team string

const (
	TeamVillager Team = "villager"
	TeamWolf     Team = "wolf"
)

// Effect classifies what a chooseSeat action does to the night working
// set. The resolver dispatches on this, not on the role name.
type Effect string

const (
	EffectNone   Effect = ""
	EffectGuard  Effect = "guard"
	EffectBlock  Effect = "block"
	EffectDream  Effect = "dream"
	EffectReveal Effect = "reveal"
)

// RevealKind classifies which secret-payload channel a reveal-producing
// role writes to. Empty means the role reveals nothing.
type RevealKind string

const (
	RevealNone      RevealKind = ""
	RevealSeer      RevealKind = "seer"
	RevealPsychic   RevealKind = "psychic"
	RevealGargoyle  RevealKind = "gargoyle"
	RevealWolfRobot RevealKind = "wolf_robot"
)

// Spec is the static per-role metadata. NightPriority orders the night
// plan; zero means the role has no night step of its own. WolfMeeting
// roles open their eyes with the pack; only WolfVote roles actually vote.
type Spec struct {
	ID            ID
	Name          string
	Team          Team
	NightPriority int
	SchemaID      string
	Effect        Effect
	WolfMeeting   bool
	WolfVote      bool
	Reveal        RevealKind
	KillImmune    bool
}

var specs = map[ID]Spec{
	Villager: {ID: Villager, Name: "Villager", Team: TeamVillager},
	Wolf: {
		ID: Wolf, Name: "Werewolf", Team: TeamWolf,
		NightPriority: prioWolfPack, SchemaID: SchemaWolfKill,
		WolfMeeting: true, WolfVote: true, KillImmune: true,
	},
	WolfQueen: {
		ID: WolfQueen, Name: "Wolf Queen", Team: TeamWolf,
		WolfMeeting: true, KillImmune: true,
	},
	DarkWolfKing: {
		ID: DarkWolfKing, Name: "Dark Wolf King", Team: TeamWolf,
		NightPriority: prioDarkWolfKing, SchemaID: SchemaDarkWolfKingConfirm,
		WolfMeeting: true, WolfVote: true, KillImmune: true,
	},
	Nightmare: {
		ID: Nightmare, Name: "Nightmare", Team: TeamWolf,
		NightPriority: prioNightmare, SchemaID: SchemaNightmareBlock,
		Effect: EffectBlock,
	},
	Gargoyle: {
		ID: Gargoyle, Name: "Gargoyle", Team: TeamWolf,
		NightPriority: prioGargoyle, SchemaID: SchemaGargoyleCheck,
		Effect: EffectReveal, Reveal: RevealGargoyle,
	},
	WolfRobot: {
		ID: WolfRobot, Name: "Wolf Robot", Team: TeamWolf,
		NightPriority: prioWolfRobot, SchemaID: SchemaWolfRobotLearn,
		Effect: EffectReveal, Reveal: RevealWolfRobot,
	},
	Guard: {
		ID: Guard, Name: "Guard", Team: TeamVillager,
		NightPriority: prioGuard, SchemaID: SchemaGuardProtect,
		Effect: EffectGuard,
	},
	Witch: {
		ID: Witch, Name: "Witch", Team: TeamVillager,
		NightPriority: prioWitch, SchemaID: SchemaWitchPotions,
	},
	Hunter: {
		ID: Hunter, Name: "Hunter", Team: TeamVillager,
		NightPriority: prioHunter, SchemaID: SchemaHunterConfirm,
	},
	Seer: {
		ID: Seer, Name: "Seer", Team: TeamVillager,
		NightPriority: prioSeer, SchemaID: SchemaSeerCheck,
		Effect: EffectReveal, Reveal: RevealSeer,
	},
	Magician: {
		ID: Magician, Name: "Magician", Team: TeamVillager,
		NightPriority: prioMagician, SchemaID: SchemaMagicianSwap,
	},
	Psychic: {
		ID: Psychic, Name: "Psychic", Team: TeamVillager,
		NightPriority: prioPsychic, SchemaID: SchemaPsychicCheck,
		Effect: EffectReveal, Reveal: RevealPsychic,
	},
	Slacker: {ID: Slacker, Name: "Slacker", Team: TeamVillager},
	Dreamcatcher: {
		ID: Dreamcatcher, Name: "Dreamcatcher", Team: TeamVillager,
		NightPriority: prioDreamcatcher, SchemaID: SchemaDreamcatcherDream,
		Effect: EffectDream,
	},
}

// Night step priorities. Swap/block effects land before the kill they can
// redirect; the witch reacts to the kill; confirm-style checks come last.
const (
	prioMagician     = 10
	prioNightmare    = 20
	prioDreamcatcher = 30
	prioGuard        = 40
	prioWolfPack     = 50
	prioWitch        = 60
	prioSeer         = 70
	prioPsychic      = 80
	prioGargoyle     = 90
	prioHunter       = 100
	prioDarkWolfKing = 110
	prioWolfRobot    = 120
)

func Lookup(id ID) (Spec, bool) {
	s, ok := specs[id]
	return s, ok
}

// All returns every known role id. Order is unspecified.
func All() []ID {
	out := make([]ID, 0, len(specs))
	for id := range specs {
		out = append(out, id)
	}
	return out
}

func IsWolfSide(id ID) bool {
	s, ok := specs[id]
	return ok && s.Team == TeamWolf
}
