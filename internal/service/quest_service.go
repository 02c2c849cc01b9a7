package service

import (
	"context"

	"code_quest_backend/internal/model"
	"code_quest_backend/internal/repository"
	"code_quest_backend/internal/util"
	"code_quest_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type QuestService struct {
	DB        *gorm.DB
	QuestRepo *repository.QuestRepository
	UserRepo  *repository.UserRepository
	Notifier  Notifier
	Clock     util.Clock
}

func NewQuestService(db *gorm.DB, questRepo *repository.QuestRepository, userRepo *repository.UserRepository, notifier Notifier, clock util.Clock) *QuestService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if clock == nil {
		clock = util.SystemClock{}
	}
	return &QuestService{
		DB:        db,
		QuestRepo: questRepo,
		UserRepo:  userRepo,
		Notifier:  notifier,
		Clock:     clock,
	}
}

// OnQuestProgress advances the player's open quests with this objective and closes the ones
// that reached their target. Active quests are assigned on first use.
func (s *QuestService) OnQuestProgress(ctx context.Context, playerID uint, objective model.QuestObjective, delta int) error {
	if delta <= 0 {
		return nil
	}

	box := NewOutbox(playerID)
	now := s.Clock.Now()
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quests := s.QuestRepo.WithTx(tx)
		users := s.UserRepo.WithTx(tx)

		if err := quests.AssignActive(playerID); err != nil {
			return err
		}
		if err := quests.Increment(playerID, objective, delta); err != nil {
			return err
		}

		reached, err := quests.FindReached(playerID, objective)
		if err != nil {
			return err
		}
		for _, pq := range reached {
			ok, err := quests.MarkCompleted(pq.ID, now)
			if err != nil {
				return err
			}
			if !ok || pq.Quest == nil {
				continue
			}

			before, after, err := users.AddRewards(playerID, pq.Quest.RewardXP, 0, pq.Quest.RewardCoins)
			if err != nil {
				return err
			}
			box.Event(EventQuestCompleted, map[string]interface{}{
				"questId":     pq.QuestID,
				"title":       pq.Quest.Title,
				"rewardCoins": pq.Quest.RewardCoins,
				"rewardXp":    pq.Quest.RewardXP,
			})
			if prev, cur := levelOf(before), levelOf(after); cur > prev {
				box.Event(EventPlayerLeveledUp, &LevelUp{PreviousLevel: prev, Level: cur, XP: after})
			}
			logger.Log.Info("Quest completed", zap.Uint("playerId", playerID), zap.Uint("questId", pq.QuestID))
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, e := range box.events {
		s.Notifier.Emit(ctx, playerID, e.eventType, e.data)
	}
	return nil
}

func (s *QuestService) ListQuests(playerID uint) ([]model.PlayerQuest, error) {
	if err := s.QuestRepo.AssignActive(playerID); err != nil {
		return nil, err
	}
	return s.QuestRepo.ListByPlayer(playerID)
}
