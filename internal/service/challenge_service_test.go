package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"code_quest_backend/internal/model"
	"code_quest_backend/internal/service"
	"code_quest_backend/internal/testutil"
	"code_quest_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitAnswer_RetryThenCompleteLevel(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	lvl := h.world.Level
	a, b := h.challengeA(), h.challengeB()

	state, err := h.challenges.EnterLevel(ctx, h.player(), lvl.ID)
	require.NoError(t, err)
	require.NotNil(t, state.CurrentChallenge)
	assert.Equal(t, a, state.CurrentChallenge.ID)
	assert.Equal(t, 10, state.CurrentChallenge.RemainingTime)

	h.clock.Advance(2 * time.Second)
	res := h.submit(t, lvl.ID, a, `["x"]`)
	assert.True(t, res.IsCorrect)
	assert.Equal(t, 1, res.Attempts)
	assert.Empty(t, res.LevelStatus.WrongChallenges)
	assert.Equal(t, 40, res.LevelStatus.EnemyHP)
	assert.Equal(t, "player", res.FightResult.Attacker)
	require.NotNil(t, res.NextChallenge)
	assert.Equal(t, b, res.NextChallenge.ID)

	res = h.submit(t, lvl.ID, b, `["y","q"]`)
	assert.False(t, res.IsCorrect)
	assert.Equal(t, []uint{b}, res.LevelStatus.WrongChallenges)
	assert.Equal(t, 85, res.LevelStatus.PlayerHP)
	assert.Equal(t, 15, res.FightResult.DamageTaken)
	require.NotNil(t, res.NextChallenge)
	assert.Equal(t, b, res.NextChallenge.ID, "wrong answer is served again before anything new")
	assert.Nil(t, res.CompletionRewards)

	res = h.submit(t, lvl.ID, b, `["y","z"]`)
	assert.True(t, res.IsCorrect)
	assert.Equal(t, 3, res.Attempts)
	assert.Empty(t, res.LevelStatus.WrongChallenges)
	assert.True(t, res.LevelStatus.IsCompleted)
	assert.Equal(t, model.BattleWon, res.LevelStatus.BattleStatus)
	assert.Nil(t, res.NextChallenge)
	require.NotNil(t, res.CompletionRewards)
	assert.Equal(t, service.Rewards{XP: 50, Points: 20, Coins: 10}, *res.CompletionRewards)
	require.NotNil(t, res.NextLevel)
	assert.Equal(t, h.world.NextLevel.ID, res.NextLevel.ID)
	assert.True(t, res.NextLevel.NewlyUnlocked)

	p := h.progressOf(t, lvl.ID)
	assert.True(t, p.IsCompleted)
	assert.NotNil(t, p.CompletedAt)
	assert.Equal(t, model.AnswerSheet{a: {"x"}, b: {"y", "z"}}, p.Answers())

	next := h.progressOf(t, h.world.NextLevel.ID)
	assert.Equal(t, 100, next.PlayerHP)
	assert.Equal(t, 50, next.EnemyHP)
	assert.Equal(t, 0, next.Attempts)

	u := h.user(t)
	assert.Equal(t, 110, u.Coins)
	assert.Equal(t, 20, u.Points)
	assert.Equal(t, 50, u.XP)
	assert.Equal(t, 1, h.notifier.Count(service.EventLevelCompleted))
}

func TestSubmitAnswer_TimeoutIsWrongRegardlessOfContent(t *testing.T) {
	h := newHarness(t)
	lvl := h.world.Level

	_, err := h.challenges.EnterLevel(context.Background(), h.player(), lvl.ID)
	require.NoError(t, err)

	h.clock.Advance(11 * time.Second)
	res := h.submit(t, lvl.ID, h.challengeA(), `["x"]`)
	assert.False(t, res.IsCorrect)
	assert.True(t, res.TimedOut)
	assert.Equal(t, service.TimeoutMessage, res.Message)
	assert.Equal(t, "timeout", res.FightResult.Outcome)
	assert.Equal(t, []uint{h.challengeA()}, res.LevelStatus.WrongChallenges)
	assert.Equal(t, 85, res.LevelStatus.PlayerHP)

	// the window restarts with the next served challenge
	require.NotNil(t, res.NextChallenge)
	assert.Equal(t, h.challengeA(), res.NextChallenge.ID)
	assert.Equal(t, 10, res.NextChallenge.RemainingTime)

	h.clock.Advance(3 * time.Second)
	res = h.submit(t, lvl.ID, h.challengeA(), `["x"]`)
	assert.True(t, res.IsCorrect)
	assert.Empty(t, res.LevelStatus.WrongChallenges)
}

func TestSubmitAnswer_WindowIsReloadable(t *testing.T) {
	h := newHarness(t)
	lvl := h.world.Level
	h.challenges.Rules.Apply(configWindow(20))

	_, err := h.challenges.EnterLevel(context.Background(), h.player(), lvl.ID)
	require.NoError(t, err)
	h.clock.Advance(15 * time.Second)

	res := h.submit(t, lvl.ID, h.challengeA(), `["x"]`)
	assert.True(t, res.IsCorrect)
	assert.False(t, res.TimedOut)
}

func TestSubmitAnswer_FirstSubmissionWithoutEntering(t *testing.T) {
	h := newHarness(t)
	h.clock.Advance(time.Hour)

	res := h.submit(t, h.world.Level.ID, h.challengeA(), `["x"]`)
	assert.True(t, res.IsCorrect)
	assert.False(t, res.TimedOut)
}

func TestSubmitAnswer_RejectsMalformedAnswer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for _, raw := range []string{``, `null`, `"x"`, `{"a":1}`, `[1, 2]`, `["x", null]`} {
		_, err := h.challenges.SubmitAnswer(ctx, h.player(), h.world.Level.ID, h.challengeA(), []byte(raw))
		assert.ErrorIs(t, err, util.ErrInvalidInput, "payload %q", raw)
	}

	_, err := h.progress.Find(h.player(), h.world.Level.ID)
	assert.ErrorIs(t, err, util.ErrProgressNotFound, "rejected payloads must not create progress")
}

func TestSubmitAnswer_ChallengeMustBelongToLevel(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	other := h.world.NextLevel.Challenges[0].ID
	_, err := h.challenges.SubmitAnswer(ctx, h.player(), h.world.Level.ID, other, []byte(`["done"]`))
	assert.ErrorIs(t, err, util.ErrNotFound)

	_, err = h.challenges.SubmitAnswer(ctx, h.player(), h.world.Level.ID, 9999, []byte(`["x"]`))
	assert.ErrorIs(t, err, util.ErrChallengeNotFound)
}

func TestSubmitAnswer_LockedLevel(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	next := h.world.NextLevel

	_, err := h.challenges.EnterLevel(ctx, h.player(), next.ID)
	assert.ErrorIs(t, err, util.ErrLevelLocked)
	_, err = h.challenges.SubmitAnswer(ctx, h.player(), next.ID, next.Challenges[0].ID, []byte(`["done"]`))
	assert.ErrorIs(t, err, util.ErrLevelLocked)

	h.clearLevel(t)
	state, err := h.challenges.EnterLevel(ctx, h.player(), next.ID)
	require.NoError(t, err)
	require.NotNil(t, state.CurrentChallenge)
	assert.Equal(t, next.Challenges[0].ID, state.CurrentChallenge.ID)
}

func TestSubmitAnswer_WrongQueueHasNoDuplicates(t *testing.T) {
	h := newHarness(t)
	lvl := h.world.Level

	h.submit(t, lvl.ID, h.challengeA(), `["nope"]`)
	h.submit(t, lvl.ID, h.challengeA(), `["still nope"]`)
	res := h.submit(t, lvl.ID, h.challengeB(), `["y"]`)

	assert.Equal(t, []uint{h.challengeA(), h.challengeB()}, res.LevelStatus.WrongChallenges)
	require.NotNil(t, res.NextChallenge)
	assert.Equal(t, h.challengeA(), res.NextChallenge.ID)
}

func TestSubmitAnswer_CompletedLevelIsNoop(t *testing.T) {
	h := newHarness(t)
	h.clearLevel(t)
	before := h.user(t)

	res := h.submit(t, h.world.Level.ID, h.challengeA(), `["x"]`)
	assert.Contains(t, res.Message, "already completed")
	assert.Nil(t, res.FightResult)
	assert.Nil(t, res.CompletionRewards)
	assert.Equal(t, 2, res.Attempts)

	after := h.user(t)
	assert.Equal(t, before.Coins, after.Coins)
	assert.Equal(t, before.XP, after.XP)
}

func TestSubmitAnswer_StreakRaisesAttackTier(t *testing.T) {
	h := newHarness(t)
	lvl := testutil.CreateLevel(t, h.db, 7, 1, h.world.Enemy.ID, []string{"a"}, []string{"b"}, []string{"c"})

	r1 := h.submit(t, lvl.ID, lvl.Challenges[0].ID, `["a"]`)
	r2 := h.submit(t, lvl.ID, lvl.Challenges[1].ID, `["b"]`)
	assert.Equal(t, 10, r1.FightResult.DamageDealt)
	assert.Equal(t, model.AttackBasic, r1.FightResult.AttackType)
	assert.Equal(t, 20, r2.FightResult.DamageDealt)
	assert.Equal(t, model.AttackSpecial, r2.FightResult.AttackType)
	assert.Equal(t, 20, r2.LevelStatus.EnemyHP)
}

func TestSubmitAnswer_CurseReversesExpectedAnswer(t *testing.T) {
	h := newHarness(t)
	witch := testutil.CreateEnemy(t, h.db, 40, model.AttackBasic, model.TransformReverse, 5)
	lvl := testutil.CreateLevel(t, h.db, 2, 1, witch.ID, []string{"abc"})
	ch := lvl.Challenges[0].ID

	res := h.submit(t, lvl.ID, ch, `["zzz"]`)
	assert.False(t, res.IsCorrect)
	assert.True(t, res.FightResult.CurseLanded)
	assert.True(t, res.LevelStatus.Cursed)

	res = h.submit(t, lvl.ID, ch, `["abc"]`)
	assert.False(t, res.IsCorrect, "the plain answer no longer matches once cursed")
	assert.False(t, res.FightResult.CurseLanded, "curse lands only once")

	res = h.submit(t, lvl.ID, ch, `["cba"]`)
	assert.True(t, res.IsCorrect)
	assert.True(t, res.LevelStatus.IsCompleted)
	assert.False(t, res.LevelStatus.Cursed)
	assert.False(t, h.progressOf(t, lvl.ID).HasReversedCurse)
}

func TestSubmitAnswer_DefeatAndRestart(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	brute := testutil.CreateEnemy(t, h.db, 60, model.AttackSpecial, model.TransformNone, 10, 150)
	lvl := testutil.CreateLevel(t, h.db, 3, 1, brute.ID, []string{"a"}, []string{"b"})

	res := h.submit(t, lvl.ID, lvl.Challenges[0].ID, `["a"]`)
	require.True(t, res.IsCorrect)
	res = h.submit(t, lvl.ID, lvl.Challenges[1].ID, `["wrong"]`)
	assert.Equal(t, 150, res.FightResult.DamageTaken)
	assert.Equal(t, 0, res.LevelStatus.PlayerHP)
	assert.Equal(t, model.BattleLost, res.LevelStatus.BattleStatus)

	res = h.submit(t, lvl.ID, lvl.Challenges[1].ID, `["b"]`)
	assert.False(t, res.IsCorrect)
	assert.Nil(t, res.FightResult)
	assert.Equal(t, 2, res.Attempts, "a lost battle ignores submissions")
	assert.Contains(t, res.Message, "defeated")

	state, err := h.challenges.RestartLevel(ctx, h.player(), lvl.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BattleInProgress, state.Status.BattleStatus)
	assert.Equal(t, 100, state.Status.PlayerHP)
	assert.Equal(t, 60, state.Status.EnemyHP)
	assert.Empty(t, state.Status.WrongChallenges)
	assert.Equal(t, 0, state.Status.Answered)
	require.NotNil(t, state.CurrentChallenge)
	assert.Equal(t, lvl.Challenges[0].ID, state.CurrentChallenge.ID)
	assert.Equal(t, 2, state.Attempts)
}

func TestSubmitAnswer_DefeatAfterEnemyFell(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	player := testutil.CreatePlayer(t, h.db, 0)
	testutil.CreateCharacter(t, h.db, player.ID, 10, 20)
	enemy := testutil.CreateEnemy(t, h.db, 10, model.AttackBasic, model.TransformNone, 15)
	lvl := testutil.CreateLevel(t, h.db, 7, 1, enemy.ID, []string{"x"}, []string{"y"})
	first, second := lvl.Challenges[0].ID, lvl.Challenges[1].ID

	res, err := h.challenges.SubmitAnswer(ctx, player.ID, lvl.ID, first, []byte(`["x"]`))
	require.NoError(t, err)
	assert.Equal(t, 0, res.LevelStatus.EnemyHP)
	assert.False(t, res.LevelStatus.IsCompleted)

	res, err = h.challenges.SubmitAnswer(ctx, player.ID, lvl.ID, second, []byte(`["no"]`))
	require.NoError(t, err)
	assert.Equal(t, 0, res.LevelStatus.PlayerHP)
	assert.Equal(t, model.BattleLost, res.LevelStatus.BattleStatus)
	assert.Nil(t, res.CompletionRewards)

	p, err := h.progress.Find(player.ID, lvl.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BattleLost, p.BattleStatus)
	assert.False(t, p.IsCompleted)
}

func TestRestartLevel_CompletedLevelUntouched(t *testing.T) {
	h := newHarness(t)
	h.clearLevel(t)

	state, err := h.challenges.RestartLevel(context.Background(), h.player(), h.world.Level.ID)
	require.NoError(t, err)
	assert.True(t, state.Status.IsCompleted)
	assert.Contains(t, state.Message, "already completed")
	assert.Nil(t, state.CurrentChallenge)
}

func TestEnterLevel_DoesNotResetRunningWindow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.challenges.EnterLevel(ctx, h.player(), h.world.Level.ID)
	require.NoError(t, err)
	h.clock.Advance(4 * time.Second)

	state, err := h.challenges.EnterLevel(ctx, h.player(), h.world.Level.ID)
	require.NoError(t, err)
	require.NotNil(t, state.CurrentChallenge)
	assert.Equal(t, 6, state.CurrentChallenge.RemainingTime)
	assert.Empty(t, state.CurrentChallenge.Answer)
}

func TestSubmitAnswer_ConcurrentFinalAnswersGrantOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	lvl := h.world.Level
	h.submit(t, lvl.ID, h.challengeA(), `["x"]`)

	var wg sync.WaitGroup
	results := make([]*service.SubmissionResult, 6)
	errs := make([]error, 6)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = h.challenges.SubmitAnswer(ctx, h.player(), lvl.ID, h.challengeB(), []byte(`["y","z"]`))
		}(i)
	}
	wg.Wait()

	granted := 0
	for i, res := range results {
		require.NoError(t, errs[i])
		if res.CompletionRewards != nil {
			granted++
		}
	}
	assert.Equal(t, 1, granted)
	assert.Equal(t, 110, h.user(t).Coins)
	assert.Equal(t, 1, h.notifier.Count(service.EventLevelCompleted))
}

func TestCompleteLevel_ConcurrentCallsGrantOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.challenges.EnterLevel(ctx, h.player(), h.world.Level.ID)
	require.NoError(t, err)

	// every challenge answered but the completion step has not run yet
	p := h.progressOf(t, h.world.Level.ID)
	p.RecordAnswer(h.challengeA(), []string{"x"})
	p.RecordAnswer(h.challengeB(), []string{"y", "z"})
	require.NoError(t, h.progress.Save(p))

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := h.rewards.CompleteLevel(ctx, h.player(), h.world.Level.ID)
			if !assert.NoError(t, err) {
				return
			}
			if res.Granted {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, granted)
	u := h.user(t)
	assert.Equal(t, 110, u.Coins)
	assert.Equal(t, 20, u.Points)

	p = h.progressOf(t, h.world.Level.ID)
	assert.True(t, p.IsCompleted)
	assert.False(t, p.HasStrongEffect)
	assert.False(t, p.HasFreezeEffect)
}

func TestCompleteLevel_UnansweredLevelGrantsNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	lvl := h.world.Level
	_, err := h.challenges.EnterLevel(ctx, h.player(), lvl.ID)
	require.NoError(t, err)

	claim := func() {
		t.Helper()
		res, err := h.rewards.CompleteLevel(ctx, h.player(), lvl.ID)
		require.NoError(t, err)
		assert.False(t, res.Granted)
		assert.Nil(t, res.NextLevel)
		assert.NotEmpty(t, res.Message)
	}

	claim()

	h.submit(t, lvl.ID, h.challengeA(), `["x"]`)
	claim()

	// B answered but waiting in the retry queue
	h.submit(t, lvl.ID, h.challengeB(), `["y","q"]`)
	claim()

	p := h.progressOf(t, lvl.ID)
	assert.False(t, p.IsCompleted)
	assert.Nil(t, p.CompletedAt)
	assert.Equal(t, 100, h.user(t).Coins)
	assert.Equal(t, 0, h.user(t).XP)

	unlocked, err := h.progress.Exists(h.player(), h.world.NextLevel.ID)
	require.NoError(t, err)
	assert.False(t, unlocked)
	assert.Zero(t, h.notifier.Count(service.EventLevelCompleted))

	// clearing the retry queue completes the level through the normal path
	res := h.submit(t, lvl.ID, h.challengeB(), `["y","z"]`)
	require.NotNil(t, res.CompletionRewards)
	assert.Equal(t, 110, h.user(t).Coins)
}

func TestCompleteLevel_RequiresProgress(t *testing.T) {
	h := newHarness(t)
	_, err := h.rewards.CompleteLevel(context.Background(), h.player(), h.world.Level.ID)
	assert.ErrorIs(t, err, util.ErrProgressNotFound)
}

func TestLevelRewards(t *testing.T) {
	lvl := &model.Level{
		ExpReward: 30,
		Challenges: []model.Challenge{
			{PointsReward: 10, CoinsReward: 1},
			{PointsReward: 5, CoinsReward: 2},
		},
	}
	assert.Equal(t, service.Rewards{XP: 30, Points: 15, Coins: 3}, service.LevelRewards(lvl))
}

func TestDecodeAnswer(t *testing.T) {
	ans, err := service.DecodeAnswer([]byte(`["a", "", "c"]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "", "c"}, ans)

	ans, err = service.DecodeAnswer([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, ans)

	_, err = service.DecodeAnswer([]byte(`[true]`))
	assert.ErrorIs(t, err, util.ErrInvalidInput)
	assert.Contains(t, err.Error(), "answer[0]")
}
