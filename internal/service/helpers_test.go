package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"code_quest_backend/internal/config"
	"code_quest_backend/internal/model"
	"code_quest_backend/internal/repository"
	"code_quest_backend/internal/service"
	"code_quest_backend/internal/testutil"
	"code_quest_backend/internal/util"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordedEvent struct {
	PlayerID uint
	Type     service.EventType
	Data     interface{}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (n *recordingNotifier) Emit(_ context.Context, playerID uint, eventType service.EventType, data interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, recordedEvent{PlayerID: playerID, Type: eventType, Data: data})
}

func (n *recordingNotifier) Types() []service.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]service.EventType, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}

func (n *recordingNotifier) Count(t service.EventType) int {
	count := 0
	for _, got := range n.Types() {
		if got == t {
			count++
		}
	}
	return count
}

type harness struct {
	db       *gorm.DB
	world    *testutil.World
	clock    *util.FakeClock
	notifier *recordingNotifier

	users    *repository.UserRepository
	progress *repository.ProgressRepository

	challenges   *service.ChallengeService
	potions      *service.PotionService
	rewards      *service.RewardService
	quests       *service.QuestService
	achievements *service.AchievementService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.NewDB(t)
	clock := util.NewFakeClock(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
	notifier := &recordingNotifier{}

	catalog := repository.NewCatalogRepository(db)
	progress := repository.NewProgressRepository(db)
	users := repository.NewUserRepository(db)

	quests := service.NewQuestService(db, repository.NewQuestRepository(db), users, notifier, clock)
	achievements := service.NewAchievementService(db, repository.NewAchievementRepository(db), users, progress, notifier, clock)
	effects := service.NewSideEffects(quests, achievements, notifier)
	rules := service.NewGameRules(config.GameConfig{AnswerWindowSeconds: 10})
	messages := service.NewMessageCache(repository.NewBattleMessageRepository(db), clock, 10*time.Minute)
	rewards := service.NewRewardService(db, catalog, progress, users, effects, clock)

	return &harness{
		db:           db,
		world:        testutil.NewWorld(t, db),
		clock:        clock,
		notifier:     notifier,
		users:        users,
		progress:     progress,
		challenges:   service.NewChallengeService(db, catalog, progress, rewards, messages, effects, rules, clock),
		potions:      service.NewPotionService(db, catalog, progress, repository.NewPotionRepository(db), users, effects, rules, clock),
		rewards:      rewards,
		quests:       quests,
		achievements: achievements,
	}
}

func (h *harness) player() uint { return h.world.Player.ID }

func (h *harness) challengeA() uint { return h.world.Level.Challenges[0].ID }

func (h *harness) challengeB() uint { return h.world.Level.Challenges[1].ID }

func (h *harness) submit(t *testing.T, levelID, challengeID uint, answer string) *service.SubmissionResult {
	t.Helper()
	res, err := h.challenges.SubmitAnswer(context.Background(), h.player(), levelID, challengeID, []byte(answer))
	require.NoError(t, err)
	return res
}

// clearLevel answers both challenges of the first level correctly.
func (h *harness) clearLevel(t *testing.T) *service.SubmissionResult {
	t.Helper()
	_, err := h.challenges.EnterLevel(context.Background(), h.player(), h.world.Level.ID)
	require.NoError(t, err)
	h.submit(t, h.world.Level.ID, h.challengeA(), `["x"]`)
	res := h.submit(t, h.world.Level.ID, h.challengeB(), `["y","z"]`)
	require.NotNil(t, res.CompletionRewards)
	return res
}

func (h *harness) user(t *testing.T) *model.User {
	t.Helper()
	u, err := h.users.FindByID(h.player())
	require.NoError(t, err)
	return u
}

func (h *harness) progressOf(t *testing.T, levelID uint) *model.PlayerProgress {
	t.Helper()
	p, err := h.progress.Find(h.player(), levelID)
	require.NoError(t, err)
	return p
}

func configWindow(seconds int) config.GameConfig {
	return config.GameConfig{AnswerWindowSeconds: seconds}
}
