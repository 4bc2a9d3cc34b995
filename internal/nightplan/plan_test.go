package nightplan

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olveryu/werewolf-judge-backend/internal/roles"
)

func TestBuildIsDeterministic(t *testing.T) {
	template := []roles.ID{
		roles.Wolf, roles.Wolf, roles.Witch, roles.Seer, roles.Guard,
		roles.Hunter, roles.Villager, roles.Villager, roles.Villager,
	}
	a, err := Build(template)
	require.NoError(t, err)

	// Same roster, different seat order: identical plan.
	shuffled := []roles.ID{
		roles.Villager, roles.Seer, roles.Wolf, roles.Hunter, roles.Villager,
		roles.Witch, roles.Guard, roles.Wolf, roles.Villager,
	}
	b, err := Build(shuffled)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestBuildOrdersByPriority(t *testing.T) {
	plan, err := Build([]roles.ID{
		roles.Magician, roles.Nightmare, roles.Guard, roles.Wolf,
		roles.Witch, roles.Seer, roles.Hunter, roles.Villager,
	})
	require.NoError(t, err)

	ids := make([]string, len(plan))
	for i, step := range plan {
		ids[i] = step.ID
	}
	assert.Equal(t, []string{
		string(roles.Magician), string(roles.Nightmare), string(roles.Guard),
		StepWolfPack, string(roles.Witch), string(roles.Seer), string(roles.Hunter),
	}, ids)

	for i := 1; i < len(plan); i++ {
		assert.Less(t, plan[i-1].Priority, plan[i].Priority)
	}
}

func TestBuildCollapsesVotingWolves(t *testing.T) {
	plan, err := Build([]roles.ID{
		roles.Wolf, roles.Wolf, roles.DarkWolfKing, roles.WolfQueen, roles.Villager,
	})
	require.NoError(t, err)

	idx := plan.StepIndex(StepWolfPack)
	require.GreaterOrEqual(t, idx, 0)
	assert.ElementsMatch(t, []roles.ID{roles.Wolf, roles.DarkWolfKing}, plan[idx].Roles)

	// The dark wolf king still has its own confirm step after the pack.
	confirm := plan.StepIndex(string(roles.DarkWolfKing))
	require.GreaterOrEqual(t, confirm, 0)
	assert.Greater(t, confirm, idx)

	// The wolf queen attends the meeting but neither votes nor gets a step.
	assert.Equal(t, -1, plan.StepIndex(string(roles.WolfQueen)))
	assert.False(t, plan.ActsIn(StepWolfPack, roles.WolfQueen))
	assert.True(t, plan.ActsIn(StepWolfPack, roles.DarkWolfKing))
}

func TestBuildRejectsUnknownRole(t *testing.T) {
	_, err := Build([]roles.ID{roles.Wolf, "chupacabra"})
	var unknown ErrUnknownRole
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, roles.ID("chupacabra"), unknown.Role)
}

func TestRosterWithoutNightRolesYieldsEmptyPlan(t *testing.T) {
	plan, err := Build([]roles.ID{roles.Villager, roles.Villager, roles.Slacker})
	require.NoError(t, err)
	assert.Empty(t, plan)
}

func TestProgressAt(t *testing.T) {
	plan, err := Build([]roles.ID{roles.Wolf, roles.Seer, roles.Villager})
	require.NoError(t, err)
	require.Len(t, plan, 2)

	prog := plan.ProgressAt(0)
	assert.Equal(t, StepWolfPack, prog.StepID)
	assert.Equal(t, "Werewolves", prog.RoleName)
	assert.Equal(t, 2, prog.Total)

	prog = plan.ProgressAt(1)
	assert.Equal(t, string(roles.Seer), prog.StepID)
	assert.Equal(t, "Seer", prog.RoleName)

	// Out of range carries the index and total only.
	prog = plan.ProgressAt(2)
	assert.Empty(t, prog.StepID)
	assert.Equal(t, 2, prog.StepIndex)
}
