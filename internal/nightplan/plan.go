// Package nightplan derives the deterministic ordered sequence of night
// steps from a role roster. Host and clients both rebuild the same plan
// from the template, so step metadata never has to be trusted off the wire.
package nightplan

import (
	"fmt"
	"sort"

	"github.com/olveryu/werewolf-judge-backend/internal/roles"
)

// StepWolfPack is the id of the collapsed wolf-vote step. All voting
// wolves act in it concurrently; every other step id equals its role id.
const StepWolfPack = "wolf"

type Step struct {
	ID       string
	Roles    []roles.ID
	Schema   roles.Schema
	Priority int
}

type Plan []Step

// ErrUnknownRole marks a roster referencing a role id outside the closed
// table. This is a configuration error: it surfaces at room creation,
// never at night time.
type ErrUnknownRole struct {
	Role roles.ID
}

func (e ErrUnknownRole) Error() string {
	return fmt.Sprintf("unknown role %q in template", string(e.Role))
}

// Build computes the plan for a template. Pure: the same roster always
// yields the identical step list, independent of seating order.
func Build(template []roles.ID) (Plan, error) {
	present := make(map[roles.ID]bool)
	for _, id := range template {
		spec, ok := roles.Lookup(id)
		if !ok {
			return nil, ErrUnknownRole{Role: id}
		}
		present[spec.ID] = true
	}

	wolfSchema, _ := roles.SchemaByID(roles.SchemaWolfKill)
	var plan Plan
	var packRoles []roles.ID
	for id := range present {
		spec, _ := roles.Lookup(id)
		if spec.WolfVote {
			packRoles = append(packRoles, id)
		}
		if spec.NightPriority == 0 || spec.SchemaID == roles.SchemaWolfKill {
			continue
		}
		schema, ok := roles.SchemaFor(id)
		if !ok {
			return nil, ErrUnknownRole{Role: id}
		}
		plan = append(plan, Step{
			ID:       string(id),
			Roles:    []roles.ID{id},
			Schema:   schema,
			Priority: spec.NightPriority,
		})
	}
	if len(packRoles) > 0 {
		sort.Slice(packRoles, func(i, j int) bool { return packRoles[i] < packRoles[j] })
		wolfSpec, _ := roles.Lookup(roles.Wolf)
		plan = append(plan, Step{
			ID:       StepWolfPack,
			Roles:    packRoles,
			Schema:   wolfSchema,
			Priority: wolfSpec.NightPriority,
		})
	}

	sort.Slice(plan, func(i, j int) bool { return plan[i].Priority < plan[j].Priority })
	return plan, nil
}

// StepIndex returns the position of a step id, or -1.
func (p Plan) StepIndex(id string) int {
	for i, s := range p {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// ActsIn reports whether a role acts in the given step.
func (p Plan) ActsIn(stepID string, role roles.ID) bool {
	i := p.StepIndex(stepID)
	if i < 0 {
		return false
	}
	for _, r := range p[i].Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Progress is the derived read-only metadata UIs render for narration
// cues ("X of N: role name").
type Progress struct {
	StepIndex int    `json:"stepIndex"`
	Total     int    `json:"total"`
	StepID    string `json:"stepId"`
	RoleName  string `json:"roleName"`
}

func (p Plan) ProgressAt(idx int) Progress {
	prog := Progress{StepIndex: idx, Total: len(p)}
	if idx < 0 || idx >= len(p) {
		return prog
	}
	step := p[idx]
	prog.StepID = step.ID
	if step.ID == StepWolfPack {
		prog.RoleName = "Werewolves"
		return prog
	}
	if spec, ok := roles.Lookup(step.Roles[0]); ok {
		prog.RoleName = spec.Name
	}
	return prog
}
