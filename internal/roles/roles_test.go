package roles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEveryNightRoleHasASchema(t *testing.T) {
	for _, id := range All() {
		spec, ok := Lookup(id)
		require.True(t, ok)
		if spec.NightPriority == 0 {
			assert.Empty(t, spec.SchemaID, "role %s has a schema but no night step", id)
			continue
		}
		schema, ok := SchemaByID(spec.SchemaID)
		require.True(t, ok, "role %s references schema %q", id, spec.SchemaID)
		assert.Equal(t, spec.SchemaID, schema.ID)
	}
}

func TestNightPrioritiesAreUnique(t *testing.T) {
	seen := make(map[int]ID)
	for _, id := range All() {
		spec, _ := Lookup(id)
		if spec.NightPriority == 0 {
			continue
		}
		// Voting wolves share the pack priority through a single schema;
		// everything else must be unambiguous.
		if spec.SchemaID == SchemaWolfKill {
			continue
		}
		prev, dup := seen[spec.NightPriority]
		require.False(t, dup, "%s and %s share priority %d", prev, id, spec.NightPriority)
		seen[spec.NightPriority] = id
	}
}

func TestWolfSideFlags(t *testing.T) {
	assert.True(t, IsWolfSide(Wolf))
	assert.True(t, IsWolfSide(Gargoyle))
	assert.False(t, IsWolfSide(Seer))
	assert.False(t, IsWolfSide("unknown"))

	// Every kill-immune role sits in the wolf meeting; it already knows
	// who the wolves are, which is why immunity cannot leak anything new.
	for _, id := range All() {
		spec, _ := Lookup(id)
		if spec.KillImmune {
			assert.True(t, spec.WolfMeeting, "%s is immune but not in the meeting", id)
		}
	}
}

func TestWitchSchemaLegs(t *testing.T) {
	schema, ok := SchemaByID(SchemaWitchPotions)
	require.True(t, ok)
	require.Equal(t, KindCompound, schema.Kind)
	require.Len(t, schema.Subs, 2)

	assert.Equal(t, SubSave, schema.Subs[0].ID)
	assert.True(t, schema.Subs[0].CanSkip)
	assert.Equal(t, SubPoison, schema.Subs[1].ID)
	assert.True(t, schema.Subs[1].HasConstraint(TargetAlive))
}

func TestSchemaFor(t *testing.T) {
	_, ok := SchemaFor(Villager)
	assert.False(t, ok)

	schema, ok := SchemaFor(Seer)
	require.True(t, ok)
	assert.Equal(t, KindChooseSeat, schema.Kind)
	assert.True(t, schema.HasConstraint(NotSelf))
	assert.False(t, schema.CanSkip)
}
