package combat_test

import (
	"testing"

	"code_quest_backend/internal/game/combat"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestResolve_CorrectDamagesEnemy(t *testing.T) {
	res := combat.Resolve(combat.Exchange{
		PlayerHP: 100, EnemyHP: 50,
		PlayerDamage: 20, EnemyDamage: 15,
		Outcome: combat.Correct,
	})
	assert.Equal(t, 30, res.EnemyHP)
	assert.Equal(t, 100, res.PlayerHP)
	assert.Equal(t, 20, res.DamageDealt)
	assert.Equal(t, 0, res.DamageTaken)
	assert.Equal(t, combat.InProgress, res.Status)
}

func TestResolve_CorrectKillsEnemy(t *testing.T) {
	res := combat.Resolve(combat.Exchange{PlayerHP: 10, EnemyHP: 15, PlayerDamage: 20, Outcome: combat.Correct})
	assert.Equal(t, 0, res.EnemyHP) // floors at 0
	assert.Equal(t, combat.Won, res.Status)
}

func TestResolve_PowerDoublesEveryCorrectExchange(t *testing.T) {
	fx := combat.Effects{Power: true}
	res := combat.Resolve(combat.Exchange{PlayerHP: 10, EnemyHP: 100, PlayerDamage: 20, Outcome: combat.Correct, Effects: fx})
	assert.Equal(t, 40, res.DamageDealt)
	assert.Equal(t, 60, res.EnemyHP)
	assert.True(t, res.Effects.Power, "power is not single use")

	res = combat.Resolve(combat.Exchange{PlayerHP: 10, EnemyHP: res.EnemyHP, PlayerDamage: 20, Outcome: combat.Correct, Effects: res.Effects})
	assert.Equal(t, 20, res.EnemyHP)
}

func TestResolve_WrongDamagesPlayer(t *testing.T) {
	res := combat.Resolve(combat.Exchange{PlayerHP: 30, EnemyHP: 50, PlayerDamage: 20, EnemyDamage: 12, Outcome: combat.Wrong})
	assert.Equal(t, 18, res.PlayerHP)
	assert.Equal(t, 50, res.EnemyHP)
	assert.Equal(t, 12, res.DamageTaken)
	assert.Equal(t, combat.InProgress, res.Status)
}

func TestResolve_WrongKillsPlayer(t *testing.T) {
	res := combat.Resolve(combat.Exchange{PlayerHP: 5, EnemyHP: 50, EnemyDamage: 12, Outcome: combat.Wrong})
	assert.Equal(t, 0, res.PlayerHP)
	assert.Equal(t, combat.Lost, res.Status)
}

func TestResolve_ImmunityBlocksOnceThenClears(t *testing.T) {
	fx := combat.Effects{Immunity: true, Power: true}
	res := combat.Resolve(combat.Exchange{PlayerHP: 30, EnemyHP: 50, EnemyDamage: 12, Outcome: combat.Wrong, Effects: fx})
	assert.True(t, res.Blocked)
	assert.Equal(t, 30, res.PlayerHP)
	assert.Equal(t, 0, res.DamageTaken)
	assert.False(t, res.Effects.Immunity)
	assert.True(t, res.Effects.Power)

	res = combat.Resolve(combat.Exchange{PlayerHP: res.PlayerHP, EnemyHP: 50, EnemyDamage: 12, Outcome: combat.Wrong, Effects: res.Effects})
	assert.False(t, res.Blocked)
	assert.Equal(t, 18, res.PlayerHP)
}

func TestResolve_ImmunityNotConsumedByCorrectAnswer(t *testing.T) {
	res := combat.Resolve(combat.Exchange{PlayerHP: 30, EnemyHP: 50, PlayerDamage: 5, Outcome: combat.Correct, Effects: combat.Effects{Immunity: true}})
	assert.True(t, res.Effects.Immunity)
	assert.False(t, res.Blocked)
}

func TestResolve_Property_HealthNeverNegative(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		x := combat.Exchange{
			PlayerHP:     rapid.IntRange(0, 300).Draw(rt, "player_hp"),
			EnemyHP:      rapid.IntRange(0, 300).Draw(rt, "enemy_hp"),
			PlayerDamage: rapid.IntRange(-10, 500).Draw(rt, "player_dmg"),
			EnemyDamage:  rapid.IntRange(-10, 500).Draw(rt, "enemy_dmg"),
			Outcome:      combat.Outcome(rapid.IntRange(0, 1).Draw(rt, "outcome")),
			Effects: combat.Effects{
				Power:    rapid.Bool().Draw(rt, "power"),
				Immunity: rapid.Bool().Draw(rt, "immunity"),
			},
		}
		res := combat.Resolve(x)
		assert.GreaterOrEqual(rt, res.PlayerHP, 0)
		assert.GreaterOrEqual(rt, res.EnemyHP, 0)
		assert.LessOrEqual(rt, res.PlayerHP, x.PlayerHP)
		assert.LessOrEqual(rt, res.EnemyHP, x.EnemyHP)
		// only one side is hit per exchange
		assert.True(rt, res.DamageDealt == 0 || res.DamageTaken == 0)
		assert.Equal(rt, x.Effects.Power, res.Effects.Power)
	})
}

func TestResolve_WrongAfterEnemyFellLosesBattle(t *testing.T) {
	res := combat.Resolve(combat.Exchange{PlayerHP: 5, EnemyHP: 0, EnemyDamage: 10, Outcome: combat.Wrong})
	assert.Equal(t, 0, res.PlayerHP)
	assert.Equal(t, combat.Lost, res.Status)

	res = combat.Resolve(combat.Exchange{PlayerHP: 5, EnemyHP: 0, EnemyDamage: 3, Outcome: combat.Wrong})
	assert.Equal(t, 2, res.PlayerHP)
	assert.Equal(t, combat.InProgress, res.Status)
}

func TestResolve_CorrectWithPlayerDownStillWins(t *testing.T) {
	res := combat.Resolve(combat.Exchange{PlayerHP: 0, EnemyHP: 5, PlayerDamage: 10, Outcome: combat.Correct})
	assert.Equal(t, combat.Won, res.Status)
}

func TestResolve_Property_StatusFollowsAttacker(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		x := combat.Exchange{
			PlayerHP:     rapid.IntRange(0, 100).Draw(rt, "player_hp"),
			EnemyHP:      rapid.IntRange(0, 100).Draw(rt, "enemy_hp"),
			PlayerDamage: rapid.IntRange(0, 50).Draw(rt, "player_dmg"),
			EnemyDamage:  rapid.IntRange(0, 50).Draw(rt, "enemy_dmg"),
			Outcome:      combat.Outcome(rapid.IntRange(0, 1).Draw(rt, "outcome")),
			Effects:      combat.Effects{Immunity: rapid.Bool().Draw(rt, "immunity")},
		}
		res := combat.Resolve(x)
		switch x.Outcome {
		case combat.Correct:
			assert.NotEqual(rt, combat.Lost, res.Status)
			assert.Equal(rt, res.EnemyHP == 0, res.Status == combat.Won)
		default:
			assert.NotEqual(rt, combat.Won, res.Status)
			assert.Equal(rt, !res.Blocked && res.PlayerHP == 0, res.Status == combat.Lost)
		}
	})
}

func TestResolve_Property_Deterministic(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		x := combat.Exchange{
			PlayerHP:     rapid.IntRange(1, 100).Draw(rt, "player_hp"),
			EnemyHP:      rapid.IntRange(1, 100).Draw(rt, "enemy_hp"),
			PlayerDamage: rapid.IntRange(0, 50).Draw(rt, "player_dmg"),
			EnemyDamage:  rapid.IntRange(0, 50).Draw(rt, "enemy_dmg"),
			Outcome:      combat.Outcome(rapid.IntRange(0, 1).Draw(rt, "outcome")),
		}
		assert.Equal(rt, combat.Resolve(x), combat.Resolve(x))
	})
}

func TestDamageFor(t *testing.T) {
	dmg := []int{10, 25, 40}
	assert.Equal(t, 10, combat.DamageFor(dmg, 0))
	assert.Equal(t, 25, combat.DamageFor(dmg, 1))
	assert.Equal(t, 40, combat.DamageFor(dmg, 2))
	assert.Equal(t, 40, combat.DamageFor(dmg, 7))
	assert.Equal(t, 10, combat.DamageFor(dmg, -1))
	assert.Equal(t, 8, combat.DamageFor([]int{8}, 2)) // scalar damage
	assert.Equal(t, 0, combat.DamageFor(nil, 0))
}

func TestPlayerTier(t *testing.T) {
	tests := []struct{ streak, tiers, want int }{
		{0, 3, 0},
		{1, 3, 0},
		{2, 3, 1},
		{3, 3, 2},
		{9, 3, 2},
		{5, 1, 0},
		{5, 0, 0},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, combat.PlayerTier(tc.streak, tc.tiers), "streak=%d tiers=%d", tc.streak, tc.tiers)
	}
}
