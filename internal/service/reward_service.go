package service

import (
	"context"
	"errors"

	"code_quest_backend/internal/model"
	"code_quest_backend/internal/repository"
	"code_quest_backend/internal/util"
	"code_quest_backend/pkg/logger"
	"code_quest_backend/pkg/monitoring"
	"code_quest_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Rewards struct {
	XP     int `json:"xp"`
	Points int `json:"points"`
	Coins  int `json:"coins"`
}

type NextLevelInfo struct {
	ID       uint   `json:"id"`
	Title    string `json:"title"`
	Sequence int    `json:"sequence"`
	// NewlyUnlocked is false when the player had already opened the level.
	NewlyUnlocked bool `json:"newlyUnlocked"`
}

type LevelUp struct {
	PreviousLevel int `json:"previousLevel"`
	Level         int `json:"level"`
	XP            int `json:"xp"`
}

// CompletionResult reports what a completion attempt did. Granted is false when the level
// had already been completed or still has challenges to clear; Message then says which.
type CompletionResult struct {
	Granted   bool           `json:"granted"`
	Message   string         `json:"message,omitempty"`
	Rewards   Rewards        `json:"rewards"`
	NextLevel *NextLevelInfo `json:"nextLevel,omitempty"`
	LevelUp   *LevelUp       `json:"levelUp,omitempty"`
}

// RewardService marks levels completed and grants their rewards exactly once.
type RewardService struct {
	DB           *gorm.DB
	Catalog      *repository.CatalogRepository
	ProgressRepo *repository.ProgressRepository
	UserRepo     *repository.UserRepository
	Effects      *SideEffects
	Clock        util.Clock
}

func NewRewardService(
	db *gorm.DB,
	catalog *repository.CatalogRepository,
	progressRepo *repository.ProgressRepository,
	userRepo *repository.UserRepository,
	effects *SideEffects,
	clock util.Clock,
) *RewardService {
	if clock == nil {
		clock = util.SystemClock{}
	}
	return &RewardService{
		DB:           db,
		Catalog:      catalog,
		ProgressRepo: progressRepo,
		UserRepo:     userRepo,
		Effects:      effects,
		Clock:        clock,
	}
}

// LevelRewards sums the challenge rewards of a level and adds its experience reward.
func LevelRewards(level *model.Level) Rewards {
	r := Rewards{XP: level.ExpReward}
	for _, ch := range level.Challenges {
		r.Points += ch.PointsReward
		r.Coins += ch.CoinsReward
	}
	return r
}

// CompleteLevel marks the player's level completed and grants its rewards, provided every
// challenge has been answered and nothing waits for a retry. Calling it again, or
// concurrently, grants nothing more; a repeat on a completed level only re-runs the
// achievement check.
func (s *RewardService) CompleteLevel(ctx context.Context, playerID, levelID uint) (*CompletionResult, error) {
	ctx, span := tracing.Tracer.Start(ctx, "RewardService.CompleteLevel")
	defer span.End()

	level, err := s.Catalog.FindLevel(levelID, true, false)
	if err != nil {
		return nil, err
	}
	character, err := s.Catalog.FindActiveCharacter(playerID)
	if err != nil {
		return nil, err
	}

	box := NewOutbox(playerID)
	var result *CompletionResult
	var wasCompleted bool
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := s.ProgressRepo.WithTx(tx).FindForUpdate(playerID, levelID)
		if err != nil {
			return err
		}
		wasCompleted = p.IsCompleted
		result, err = s.completeInTx(tx, p, level, character, box)
		return err
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Bool("granted", result.Granted))
	switch {
	case result.Granted:
		monitoring.LevelCompletedCounter.Inc()
	case wasCompleted:
		box.CheckAchievements()
	}
	s.Effects.Dispatch(ctx, box)
	return result, nil
}

// completeInTx runs inside the caller's transaction with the progress row locked. level must
// carry its challenges. The conditional update on is_completed is the idempotency guard.
func (s *RewardService) completeInTx(tx *gorm.DB, p *model.PlayerProgress, level *model.Level, character *model.Character, box *Outbox) (*CompletionResult, error) {
	if p.IsCompleted {
		return &CompletionResult{Message: msgLevelCompleted}, nil
	}
	if !levelBoard(level, p).Complete() {
		return &CompletionResult{Message: msgLevelIncomplete}, nil
	}

	now := s.Clock.Now()
	progress := s.ProgressRepo.WithTx(tx)

	ok, err := progress.MarkCompleted(p.ID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &CompletionResult{Message: msgLevelCompleted}, nil
	}

	p.IsCompleted = true
	p.CompletedAt = &now
	p.BattleStatus = model.BattleWon
	p.HasStrongEffect = false
	p.HasFreezeEffect = false
	p.HasReversedCurse = false
	p.RevealedChallenges = nil
	p.SetCurrentChallenge(0, false)
	if err := progress.Save(p); err != nil {
		return nil, err
	}

	rewards := LevelRewards(level)
	before, after, err := s.UserRepo.WithTx(tx).AddRewards(p.PlayerID, rewards.XP, rewards.Points, rewards.Coins)
	if err != nil {
		return nil, err
	}

	result := &CompletionResult{Granted: true, Rewards: rewards}

	next, err := s.unlockNext(tx, p.PlayerID, level, character)
	if err != nil {
		return nil, err
	}
	result.NextLevel = next

	if prev, cur := levelOf(before), levelOf(after); cur > prev {
		result.LevelUp = &LevelUp{PreviousLevel: prev, Level: cur, XP: after}
		box.Event(EventPlayerLeveledUp, result.LevelUp)
	}

	box.Event(EventLevelCompleted, map[string]interface{}{
		"levelId":   level.ID,
		"rewards":   rewards,
		"nextLevel": next,
	})
	box.Quest(model.ObjectiveCompleteLevel, 1)
	box.Quest(model.ObjectiveEarnCoins, rewards.Coins)
	box.CheckAchievements()

	logger.Log.Info("Level completed",
		zap.Uint("playerId", p.PlayerID),
		zap.Uint("levelId", level.ID),
		zap.Int("xp", rewards.XP),
		zap.Int("points", rewards.Points),
		zap.Int("coins", rewards.Coins))
	return result, nil
}

// unlockNext creates the first progress row of the next level on the same map.
func (s *RewardService) unlockNext(tx *gorm.DB, playerID uint, level *model.Level, character *model.Character) (*NextLevelInfo, error) {
	catalog := s.Catalog.WithTx(tx)
	next, err := catalog.FindNextLevel(level.MapID, level.Sequence)
	if errors.Is(err, util.ErrLevelNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var enemy *model.Enemy
	if next.EnemyID != 0 {
		enemy, err = catalog.FindEnemy(next.EnemyID)
		if err != nil && !errors.Is(err, util.ErrEnemyNotFound) {
			return nil, err
		}
	}

	created, err := s.ProgressRepo.WithTx(tx).EnsureExists(newProgress(playerID, next, enemy, character))
	if err != nil {
		return nil, err
	}
	return &NextLevelInfo{
		ID:            next.ID,
		Title:         next.Title,
		Sequence:      next.Sequence,
		NewlyUnlocked: created,
	}, nil
}

func levelOf(xp int) int {
	level, _ := util.PlayerLevel(xp)
	return level
}
