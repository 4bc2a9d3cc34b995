package roles

type SchemaKind string

const (
	KindChooseSeat    SchemaKind = "chooseSeat"
	KindConfirm       SchemaKind = "confirm"
	KindConfirmTarget SchemaKind = "confirmTarget"
	KindSwap          SchemaKind = "swap"
	KindWolfVote      SchemaKind = "wolfVote"
	KindCompound      SchemaKind = "compound"
)

type Constraint string

const (
	NotSelf        Constraint = "notSelf"
	TargetAlive    Constraint = "targetAlive"
	TargetOccupied Constraint = "targetOccupied"
)

// SubStep is one ordered leg of a compound schema (witch: save, poison).
type SubStep struct {
	ID          string
	Kind        SchemaKind
	CanSkip     bool
	Constraints []Constraint
}

// Schema is the versioned behavioral contract for one night action. One
// schema may govern several roles (all voting wolves share SchemaWolfKill).
type Schema struct {
	ID          string
	Kind        SchemaKind
	CanSkip     bool
	Constraints []Constraint
	Subs        []SubStep
}

const (
	SchemaMagicianSwap        = "magicianSwap"
	SchemaNightmareBlock      = "nightmareBlock"
	SchemaDreamcatcherDream   = "dreamcatcherDream"
	SchemaGuardProtect        = "guardProtect"
	SchemaWolfKill            = "wolfKill"
	SchemaWitchPotions        = "witchPotions"
	SchemaSeerCheck           = "seerCheck"
	SchemaPsychicCheck        = "psychicCheck"
	SchemaGargoyleCheck       = "gargoyleCheck"
	SchemaHunterConfirm       = "hunterConfirm"
	SchemaDarkWolfKingConfirm = "darkWolfKingConfirm"
	SchemaWolfRobotLearn      = "wolfRobotLearn"
)

const (
	SubSave   = "save"
	SubPoison = "poison"
)

var schemas = map[string]Schema{
	SchemaMagicianSwap: {
		ID: SchemaMagicianSwap, Kind: KindSwap, CanSkip: true,
		Constraints: []Constraint{TargetOccupied, TargetAlive},
	},
	SchemaNightmareBlock: {
		ID: SchemaNightmareBlock, Kind: KindChooseSeat,
		Constraints: []Constraint{TargetOccupied, TargetAlive, NotSelf},
	},
	SchemaDreamcatcherDream: {
		ID: SchemaDreamcatcherDream, Kind: KindChooseSeat,
		Constraints: []Constraint{TargetOccupied, TargetAlive, NotSelf},
	},
	SchemaGuardProtect: {
		ID: SchemaGuardProtect, Kind: KindChooseSeat, CanSkip: true,
		Constraints: []Constraint{TargetOccupied, TargetAlive},
	},
	SchemaWolfKill: {
		ID: SchemaWolfKill, Kind: KindWolfVote, CanSkip: true,
		Constraints: []Constraint{TargetOccupied, TargetAlive},
	},
	SchemaWitchPotions: {
		ID: SchemaWitchPotions, Kind: KindCompound,
		Subs: []SubStep{
			// Save confirms the already-computed kill target, it is not a
			// free choice.
			{ID: SubSave, Kind: KindConfirmTarget, CanSkip: true},
			{ID: SubPoison, Kind: KindChooseSeat, CanSkip: true,
				Constraints: []Constraint{TargetOccupied, TargetAlive}},
		},
	},
	SchemaSeerCheck: {
		ID: SchemaSeerCheck, Kind: KindChooseSeat,
		Constraints: []Constraint{TargetOccupied, TargetAlive, NotSelf},
	},
	SchemaPsychicCheck: {
		ID: SchemaPsychicCheck, Kind: KindChooseSeat,
		Constraints: []Constraint{TargetOccupied, NotSelf},
	},
	SchemaGargoyleCheck: {
		ID: SchemaGargoyleCheck, Kind: KindChooseSeat,
		Constraints: []Constraint{TargetOccupied, TargetAlive, NotSelf},
	},
	SchemaHunterConfirm:       {ID: SchemaHunterConfirm, Kind: KindConfirm},
	SchemaDarkWolfKingConfirm: {ID: SchemaDarkWolfKingConfirm, Kind: KindConfirm},
	SchemaWolfRobotLearn: {
		ID: SchemaWolfRobotLearn, Kind: KindChooseSeat,
		Constraints: []Constraint{TargetOccupied, TargetAlive, NotSelf},
	},
}

func SchemaByID(id string) (Schema, bool) {
	s, ok := schemas[id]
	return s, ok
}

// SchemaFor resolves a role's night schema. Roles without a night step
// return ok=false.
func SchemaFor(id ID) (Schema, bool) {
	spec, ok := specs[id]
	if !ok || spec.SchemaID == "" {
		return Schema{}, false
	}
	return SchemaByID(spec.SchemaID)
}

func (s Schema) HasConstraint(c Constraint) bool {
	for _, have := range s.Constraints {
		if have == c {
			return true
		}
	}
	return false
}

func (s SubStep) HasConstraint(c Constraint) bool {
	for _, have := range s.Constraints {
		if have == c {
			return true
		}
	}
	return false
}
