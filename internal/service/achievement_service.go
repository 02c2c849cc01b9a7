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

type AchievementService struct {
	DB              *gorm.DB
	AchievementRepo *repository.AchievementRepository
	UserRepo        *repository.UserRepository
	ProgressRepo    *repository.ProgressRepository
	Notifier        Notifier
	Clock           util.Clock
}

func NewAchievementService(
	db *gorm.DB,
	achievementRepo *repository.AchievementRepository,
	userRepo *repository.UserRepository,
	progressRepo *repository.ProgressRepository,
	notifier Notifier,
	clock util.Clock,
) *AchievementService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if clock == nil {
		clock = util.SystemClock{}
	}
	return &AchievementService{
		DB:              db,
		AchievementRepo: achievementRepo,
		UserRepo:        userRepo,
		ProgressRepo:    progressRepo,
		Notifier:        notifier,
		Clock:           clock,
	}
}

type PlayerAchievements struct {
	TotalXP      int                       `json:"totalXp"`
	CurrentLevel int                       `json:"currentLevel"`
	NextLevelXP  int                       `json:"nextLevelXp"`
	Points       int                       `json:"points"`
	Coins        int                       `json:"coins"`
	Badges       []model.PlayerAchievement `json:"badges"`
	Leaderboard  []LeaderboardEntry        `json:"leaderboard"`
}

type LeaderboardEntry struct {
	Rank  int    `json:"rank"`
	User  string `json:"user"`
	XP    int    `json:"xp"`
	Level int    `json:"level"`
}

func (s *AchievementService) GetPlayerAchievements(playerID uint) (*PlayerAchievements, error) {
	// 获取玩家信息
	user, err := s.UserRepo.FindByID(playerID)
	if err != nil {
		return nil, err
	}

	badges, err := s.AchievementRepo.FindByUserID(playerID)
	if err != nil {
		return nil, err
	}

	leaderboard, err := s.GetLeaderboard(10)
	if err != nil {
		return nil, err
	}

	level, nextLevelXP := util.PlayerLevel(user.XP)

	return &PlayerAchievements{
		TotalXP:      user.XP,
		CurrentLevel: level,
		NextLevelXP:  nextLevelXP,
		Points:       user.Points,
		Coins:        user.Coins,
		Badges:       badges,
		Leaderboard:  leaderboard,
	}, nil
}

func (s *AchievementService) GetLeaderboard(limit int) ([]LeaderboardEntry, error) {
	users, err := s.UserRepo.FindTopByXP(limit)
	if err != nil {
		return nil, err
	}

	leaderboard := make([]LeaderboardEntry, len(users))
	for i, user := range users {
		level, _ := util.PlayerLevel(user.XP)
		leaderboard[i] = LeaderboardEntry{
			Rank:  i + 1,
			User:  user.Name,
			XP:    user.XP,
			Level: level,
		}
	}

	return leaderboard, nil
}

// OnAchievementCheck unlocks every achievement whose threshold the player now meets.
// Each unlock is guarded by the unique (player, achievement) row, so a concurrent check
// cannot grant the same reward twice.
func (s *AchievementService) OnAchievementCheck(ctx context.Context, playerID uint) error {
	all, err := s.AchievementRepo.FindAll()
	if err != nil {
		return err
	}
	if len(all) == 0 {
		return nil
	}

	owned, err := s.AchievementRepo.FindByUserID(playerID)
	if err != nil {
		return err
	}
	unlocked := make(map[uint]bool, len(owned))
	for _, pa := range owned {
		unlocked[pa.AchievementID] = true
	}

	user, err := s.UserRepo.FindByID(playerID)
	if err != nil {
		return err
	}
	completed, err := s.ProgressRepo.CountCompleted(playerID)
	if err != nil {
		return err
	}

	var reached []model.Achievement
	for _, a := range all {
		if unlocked[a.ID] {
			continue
		}
		if criterionValue(a.Criterion, user, completed) >= a.Threshold {
			reached = append(reached, a)
		}
	}
	if len(reached) == 0 {
		return nil
	}

	box := NewOutbox(playerID)
	now := s.Clock.Now()
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		achievements := s.AchievementRepo.WithTx(tx)
		users := s.UserRepo.WithTx(tx)
		for _, a := range reached {
			ok, err := achievements.Unlock(playerID, a.ID, now)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			before, after, err := users.AddRewards(playerID, a.RewardXP, 0, 0)
			if err != nil {
				return err
			}
			box.Event(EventAchievementUnlocked, map[string]interface{}{
				"achievementId": a.ID,
				"name":          a.Name,
				"icon":          a.Icon,
				"rewardXp":      a.RewardXP,
			})
			if prev, cur := levelOf(before), levelOf(after); cur > prev {
				box.Event(EventPlayerLeveledUp, &LevelUp{PreviousLevel: prev, Level: cur, XP: after})
			}
			logger.Log.Info("Achievement unlocked", zap.Uint("playerId", playerID), zap.String("achievement", a.Name))
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

func criterionValue(c model.AchievementCriterion, user *model.User, levelsCompleted int64) int {
	switch c {
	case model.CriterionLevelsCompleted:
		return int(levelsCompleted)
	case model.CriterionTotalPoints:
		return user.Points
	case model.CriterionTotalCoins:
		return user.Coins
	case model.CriterionPlayerLevel:
		level, _ := util.PlayerLevel(user.XP)
		return level
	default:
		return 0
	}
}
