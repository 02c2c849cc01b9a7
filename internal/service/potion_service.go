package service

import (
	"context"

	"code_quest_backend/internal/game/challenge"
	"code_quest_backend/internal/game/combat"
	"code_quest_backend/internal/game/potion"
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

type PotionResult struct {
	PotionType        model.PotionType `json:"potionType"`
	Applied           bool             `json:"applied"`
	Message           string           `json:"message"`
	AudioCue          string           `json:"audioCue,omitempty"`
	RemainingQuantity int              `json:"remainingQuantity"`
	LevelStatus       LevelStatus      `json:"levelStatus"`
	CurrentChallenge  *ChallengeView   `json:"currentChallenge"`
}

type PurchaseResult struct {
	Item  *model.PlayerPotion `json:"item"`
	Coins int                 `json:"coins"`
}

type PotionService struct {
	DB           *gorm.DB
	Catalog      *repository.CatalogRepository
	ProgressRepo *repository.ProgressRepository
	PotionRepo   *repository.PotionRepository
	UserRepo     *repository.UserRepository
	Effects      *SideEffects
	Rules        *GameRules
	Clock        util.Clock
}

func NewPotionService(
	db *gorm.DB,
	catalog *repository.CatalogRepository,
	progressRepo *repository.ProgressRepository,
	potionRepo *repository.PotionRepository,
	userRepo *repository.UserRepository,
	effects *SideEffects,
	rules *GameRules,
	clock util.Clock,
) *PotionService {
	if clock == nil {
		clock = util.SystemClock{}
	}
	return &PotionService{
		DB:           db,
		Catalog:      catalog,
		ProgressRepo: progressRepo,
		PotionRepo:   potionRepo,
		UserRepo:     userRepo,
		Effects:      effects,
		Rules:        rules,
		Clock:        clock,
	}
}

// UsePotion drinks one potion from the player's inventory row playerPotionID during the
// given level. The potion is taken out of stock before its effect is worked out, so a
// potion that turns out to be a no-op is still spent.
func (s *PotionService) UsePotion(ctx context.Context, playerID, levelID, potionID, playerPotionID uint) (*PotionResult, error) {
	ctx, span := tracing.Tracer.Start(ctx, "PotionService.UsePotion")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("player.id", int64(playerID)),
		attribute.Int64("level.id", int64(levelID)),
		attribute.Int64("potion.id", int64(potionID)),
	)

	if playerPotionID == 0 {
		return nil, util.InvalidInput("playerPotionId is required")
	}
	catalogPotion, err := s.Catalog.FindPotion(potionID)
	if err != nil {
		return nil, err
	}
	b, err := loadBattle(s.Catalog, s.ProgressRepo, playerID, levelID)
	if err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	box := NewOutbox(playerID)
	result := &PotionResult{PotionType: catalogPotion.Type}
	var p *model.PlayerPotion
	var progressRow *model.PlayerProgress

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		potions := s.PotionRepo.WithTx(tx)
		progress := s.ProgressRepo.WithTx(tx)

		var err error
		p, err = potions.FindPlayerPotion(playerPotionID, playerID)
		if err != nil {
			return err
		}
		if p.PotionID != potionID {
			return util.InvalidInput("inventory item %d does not hold potion %d", playerPotionID, potionID)
		}

		progressRow, _, err = progress.LockOrCreate(b.seed(playerID))
		if err != nil {
			return err
		}
		if progressRow.IsCompleted {
			result.Message = msgLevelCompleted
			result.RemainingQuantity = p.Quantity
			return nil
		}

		remaining, err := potions.ConsumeOne(p.ID)
		if err != nil {
			return err
		}
		result.RemainingQuantity = remaining

		out, err := potion.Apply(potion.Type(catalogPotion.Type), s.potionState(b, progressRow, catalogPotion))
		if err != nil {
			return util.InvalidInput("potion %q cannot be used in battle", catalogPotion.Type)
		}
		result.Applied = out.Applied
		result.Message = out.Message
		result.AudioCue = out.AudioCue

		progressRow.PlayerHP = out.PlayerHP
		progressRow.HasStrongEffect = out.Effects.Power
		progressRow.HasFreezeEffect = out.Effects.Immunity
		if out.Revive {
			progressRow.BattleStatus = model.BattleInProgress
		}
		if out.Revealed != nil {
			id, _ := progressRow.CurrentChallenge()
			progressRow.RecordAnswer(id, out.Revealed)
			progressRow.RevealedChallenges = challenge.Enqueue(progressRow.RevealedChallenges, id)
		}
		box.Quest(model.ObjectiveUsePotion, 1)
		return progress.Save(progressRow)
	})
	if err != nil {
		logger.Log.Warn("Potion use failed",
			zap.Uint("playerId", playerID),
			zap.Uint("levelId", levelID),
			zap.Uint("potionId", potionID),
			zap.Error(err))
		return nil, err
	}

	if !progressRow.IsCompleted {
		outcome := "noop"
		if result.Applied {
			outcome = "applied"
		}
		monitoring.PotionCounter.WithLabelValues(string(catalogPotion.Type), outcome).Inc()
	}

	window := s.Rules.AnswerWindow()
	result.LevelStatus = b.status(progressRow)
	result.CurrentChallenge = b.currentView(progressRow, now, window)

	s.Effects.Dispatch(ctx, box)
	return result, nil
}

func (s *PotionService) potionState(b *battle, p *model.PlayerProgress, catalogPotion *model.Potion) potion.State {
	st := potion.State{
		PlayerHP:   p.PlayerHP,
		MaxHP:      b.character.MaxHealth,
		Effects:    combat.Effects{Power: p.HasStrongEffect, Immunity: p.HasFreezeEffect},
		BattleLost: p.BattleStatus == model.BattleLost,
		AudioCue:   catalogPotion.AudioCue,
	}
	if id, ok := p.CurrentChallenge(); ok {
		if ch, found := b.level.FindChallenge(id); found {
			st.HasCurrent = true
			st.CurrentID = id
			st.Recorded = p.Answers()[id]
			st.Effective = b.effectiveAnswer(p, ch)
		}
	}
	return st
}

// BuyPotion spends price*quantity coins and adds the potions to the player's inventory.
func (s *PotionService) BuyPotion(ctx context.Context, playerID, potionID uint, quantity int) (*PurchaseResult, error) {
	ctx, span := tracing.Tracer.Start(ctx, "PotionService.BuyPotion")
	defer span.End()

	if quantity <= 0 {
		return nil, util.InvalidInput("quantity must be positive")
	}
	catalogPotion, err := s.Catalog.FindPotion(potionID)
	if err != nil {
		return nil, err
	}
	cost := catalogPotion.Price * quantity

	var result PurchaseResult
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := s.UserRepo.WithTx(tx)
		potions := s.PotionRepo.WithTx(tx)

		if err := users.SpendCoins(playerID, cost); err != nil {
			return err
		}
		if err := potions.AddQuantity(playerID, potionID, quantity); err != nil {
			return err
		}

		item, err := potions.FindByPotion(playerID, potionID)
		if err != nil {
			return err
		}
		user, err := users.FindByID(playerID)
		if err != nil {
			return err
		}
		result.Item = item
		result.Coins = user.Coins
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *PotionService) ListInventory(playerID uint) ([]model.PlayerPotion, error) {
	return s.PotionRepo.ListByPlayer(playerID)
}

// ListPotions returns the shop catalog.
func (s *PotionService) ListPotions() ([]model.Potion, error) {
	return s.Catalog.ListPotions()
}
