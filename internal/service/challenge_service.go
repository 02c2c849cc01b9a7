package service

import (
	"context"
	"encoding/json"
	"time"

	"code_quest_backend/internal/game/challenge"
	"code_quest_backend/internal/game/combat"
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

const (
	msgLevelCompleted  = "This level is already completed."
	msgLevelIncomplete = "Answer every challenge correctly before claiming the level."
	msgBattleLost      = "You have been defeated. Drink a Life potion or restart the level."
	msgRestarted       = "The battle starts again. Good luck!"
)

type FightResult struct {
	Outcome     string           `json:"outcome"`  // correct | wrong | timeout
	Attacker    string           `json:"attacker"` // player | enemy
	AttackType  model.AttackType `json:"attackType"`
	DamageDealt int              `json:"damageDealt"`
	DamageTaken int              `json:"damageTaken"`
	Blocked     bool             `json:"blocked"`
	CurseLanded bool             `json:"curseLanded"`
	PlayerHP    int              `json:"playerHp"`
	EnemyHP     int              `json:"enemyHp"`
	Status      combat.Status    `json:"status"`
}

type SubmissionResult struct {
	IsCorrect         bool           `json:"isCorrect"`
	TimedOut          bool           `json:"timedOut"`
	Attempts          int            `json:"attempts"`
	FightResult       *FightResult   `json:"fightResult"`
	Message           string         `json:"message"`
	NextChallenge     *ChallengeView `json:"nextChallenge"`
	LevelStatus       LevelStatus    `json:"levelStatus"`
	CompletionRewards *Rewards       `json:"completionRewards,omitempty"`
	NextLevel         *NextLevelInfo `json:"nextLevel,omitempty"`
	LevelUp           *LevelUp       `json:"levelUp,omitempty"`
}

// ChallengeService is the submission orchestrator: it grades answers, resolves the combat
// exchange and decides level completion, all inside one transaction per request.
type ChallengeService struct {
	DB           *gorm.DB
	Catalog      *repository.CatalogRepository
	ProgressRepo *repository.ProgressRepository
	Rewards      *RewardService
	Messages     *MessageCache
	Effects      *SideEffects
	Rules        *GameRules
	Clock        util.Clock
}

func NewChallengeService(
	db *gorm.DB,
	catalog *repository.CatalogRepository,
	progressRepo *repository.ProgressRepository,
	rewards *RewardService,
	messages *MessageCache,
	effects *SideEffects,
	rules *GameRules,
	clock util.Clock,
) *ChallengeService {
	if clock == nil {
		clock = util.SystemClock{}
	}
	return &ChallengeService{
		DB:           db,
		Catalog:      catalog,
		ProgressRepo: progressRepo,
		Rewards:      rewards,
		Messages:     messages,
		Effects:      effects,
		Rules:        rules,
		Clock:        clock,
	}
}

// exchange is what grading one submission did to the progress row.
type exchange struct {
	correct     bool
	timedOut    bool
	attackType  model.AttackType
	result      combat.Result
	curseLanded bool
}

// grade applies one submission to p: timing, grading, retry queue, answer record and combat.
func (s *ChallengeService) grade(b *battle, p *model.PlayerProgress, ch *model.Challenge, answer []string, now time.Time) exchange {
	var ex exchange
	elapsed := now.Sub(p.ChallengeStartTime)
	switch {
	case elapsed > s.Rules.AnswerWindow():
		ex.timedOut = true
	default:
		ex.correct = challenge.Grade(answer, b.effectiveAnswer(p, ch))
	}

	if ex.correct {
		p.WrongChallenges = challenge.Remove(p.WrongChallenges, ch.ID)
		p.CorrectStreak++
	} else {
		p.WrongChallenges = challenge.Enqueue(p.WrongChallenges, ch.ID)
		p.CorrectStreak = 0
	}
	// 揭示的答案已经被提交，不再等待确认
	p.RevealedChallenges = challenge.Remove(p.RevealedChallenges, ch.ID)
	p.RecordAnswer(ch.ID, answer)
	p.Attempts++

	x := combat.Exchange{
		PlayerHP: p.PlayerHP,
		EnemyHP:  p.EnemyHP,
		Effects:  combat.Effects{Power: p.HasStrongEffect, Immunity: p.HasFreezeEffect},
	}
	if ex.correct {
		tier := combat.PlayerTier(p.CorrectStreak, len(b.character.Damage))
		x.Outcome = combat.Correct
		x.PlayerDamage = combat.DamageFor(b.character.Damage, tier)
		ex.attackType = model.AttackTypeForTier(tier)
	} else {
		x.Outcome = combat.Wrong
		x.EnemyDamage = combat.DamageFor(b.enemy.Damage, b.enemy.AttackType.Tier())
		ex.attackType = b.enemy.AttackType
	}
	ex.result = combat.Resolve(x)

	p.PlayerHP = ex.result.PlayerHP
	p.EnemyHP = ex.result.EnemyHP
	p.HasStrongEffect = ex.result.Effects.Power
	p.HasFreezeEffect = ex.result.Effects.Immunity

	if !ex.correct && !ex.result.Blocked && b.enemy.Curses() && !p.HasReversedCurse {
		p.HasReversedCurse = true
		ex.curseLanded = true
	}

	switch ex.result.Status {
	case combat.Won:
		p.BattleStatus = model.BattleWon
	case combat.Lost:
		p.BattleStatus = model.BattleLost
	}
	return ex
}

// SubmitAnswer grades an answer to one challenge of the level. raw must be a JSON array of
// strings. Submissions against a completed level or a lost battle change nothing and come
// back with an explanatory message.
func (s *ChallengeService) SubmitAnswer(ctx context.Context, playerID, levelID, challengeID uint, raw json.RawMessage) (*SubmissionResult, error) {
	ctx, span := tracing.Tracer.Start(ctx, "ChallengeService.SubmitAnswer")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("player.id", int64(playerID)),
		attribute.Int64("level.id", int64(levelID)),
		attribute.Int64("challenge.id", int64(challengeID)),
	)

	answer, err := DecodeAnswer(raw)
	if err != nil {
		return nil, err
	}

	ch, err := s.Catalog.FindChallenge(challengeID)
	if err != nil {
		return nil, err
	}
	if ch.LevelID != levelID {
		return nil, util.ErrChallengeNotFound
	}
	b, err := loadBattle(s.Catalog, s.ProgressRepo, playerID, levelID)
	if err != nil {
		return nil, err
	}
	if inLevel, ok := b.level.FindChallenge(challengeID); ok {
		ch = inLevel
	}

	now := s.Clock.Now()
	box := NewOutbox(playerID)
	var (
		p          *model.PlayerProgress
		ex         exchange
		skipped    string
		completion *CompletionResult
	)

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		progress := s.ProgressRepo.WithTx(tx)

		var err error
		p, _, err = progress.LockOrCreate(b.seed(playerID))
		if err != nil {
			return err
		}
		if p.IsCompleted {
			skipped = msgLevelCompleted
			return nil
		}
		if p.BattleStatus == model.BattleLost {
			skipped = msgBattleLost
			return nil
		}

		if _, ok := p.CurrentChallenge(); !ok {
			// 从未下发过题目，计时从现在开始
			b.serveNext(p, now)
		}
		ex = s.grade(b, p, ch, answer, now)
		b.serveNext(p, now)
		if err := progress.Save(p); err != nil {
			return err
		}

		if b.board(p).Complete() {
			completion, err = s.Rewards.completeInTx(tx, p, b.level, b.character, box)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.Log.Error("Submission failed",
			zap.Uint("playerId", playerID),
			zap.Uint("levelId", levelID),
			zap.Uint("challengeId", challengeID),
			zap.Error(err))
		return nil, err
	}

	window := s.Rules.AnswerWindow()
	if skipped != "" {
		monitoring.SubmissionCounter.WithLabelValues("skipped").Inc()
		return &SubmissionResult{
			Attempts:      p.Attempts,
			Message:       skipped,
			NextChallenge: b.currentView(p, now, window),
			LevelStatus:   b.status(p),
		}, nil
	}

	result := &SubmissionResult{
		IsCorrect: ex.correct,
		TimedOut:  ex.timedOut,
		Attempts:  p.Attempts,
		FightResult: &FightResult{
			Outcome:     outcomeLabel(ex),
			Attacker:    "enemy",
			AttackType:  ex.attackType,
			DamageDealt: ex.result.DamageDealt,
			DamageTaken: ex.result.DamageTaken,
			Blocked:     ex.result.Blocked,
			CurseLanded: ex.curseLanded,
			PlayerHP:    ex.result.PlayerHP,
			EnemyHP:     ex.result.EnemyHP,
			Status:      ex.result.Status,
		},
		NextChallenge: b.currentView(p, now, window),
		LevelStatus:   b.status(p),
	}
	if ex.correct {
		result.FightResult.Attacker = "player"
		box.Quest(model.ObjectiveAnswerCorrect, 1)
	}
	result.Message = s.message(ex, completion)

	if completion != nil && completion.Granted {
		monitoring.LevelCompletedCounter.Inc()
		result.CompletionRewards = &completion.Rewards
		result.NextLevel = completion.NextLevel
		result.LevelUp = completion.LevelUp
	}
	monitoring.SubmissionCounter.WithLabelValues(outcomeLabel(ex)).Inc()
	span.SetAttributes(attribute.String("outcome", outcomeLabel(ex)))

	s.Effects.Dispatch(ctx, box)
	return result, nil
}

func outcomeLabel(ex exchange) string {
	switch {
	case ex.timedOut:
		return "timeout"
	case ex.correct:
		return "correct"
	default:
		return "wrong"
	}
}

func (s *ChallengeService) message(ex exchange, completion *CompletionResult) string {
	switch {
	case completion != nil && completion.Granted:
		return s.Messages.Pick(model.MessageVictory)
	case ex.timedOut:
		return TimeoutMessage
	case ex.result.Status == combat.Lost:
		return s.Messages.Pick(model.MessageDefeat)
	case ex.result.Blocked:
		return s.Messages.Pick(model.MessageBlocked)
	case ex.correct:
		return s.Messages.Pick(model.MessageCorrect)
	default:
		return s.Messages.Pick(model.MessageWrong)
	}
}

// EnterLevel returns the player's battle state, creating progress on first entry. The
// answer window only starts when a challenge is served for the first time.
func (s *ChallengeService) EnterLevel(ctx context.Context, playerID, levelID uint) (*LevelState, error) {
	ctx, span := tracing.Tracer.Start(ctx, "ChallengeService.EnterLevel")
	defer span.End()

	b, err := loadBattle(s.Catalog, s.ProgressRepo, playerID, levelID)
	if err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	var p *model.PlayerProgress
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		progress := s.ProgressRepo.WithTx(tx)
		var err error
		p, _, err = progress.LockOrCreate(b.seed(playerID))
		if err != nil {
			return err
		}
		if p.IsCompleted || p.BattleStatus == model.BattleLost {
			return nil
		}
		if _, ok := p.CurrentChallenge(); ok {
			return nil
		}
		b.serveNext(p, now)
		return progress.Save(p)
	})
	if err != nil {
		return nil, err
	}

	state := b.state(p, now, s.Rules.AnswerWindow())
	switch {
	case p.IsCompleted:
		state.Message = msgLevelCompleted
	case p.BattleStatus == model.BattleLost:
		state.Message = msgBattleLost
	}
	return state, nil
}

// RestartLevel resets a level attempt after a defeat (or at any point before completion).
// Completed levels are left untouched.
func (s *ChallengeService) RestartLevel(ctx context.Context, playerID, levelID uint) (*LevelState, error) {
	ctx, span := tracing.Tracer.Start(ctx, "ChallengeService.RestartLevel")
	defer span.End()

	b, err := loadBattle(s.Catalog, s.ProgressRepo, playerID, levelID)
	if err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	var p *model.PlayerProgress
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		progress := s.ProgressRepo.WithTx(tx)
		var err error
		p, _, err = progress.LockOrCreate(b.seed(playerID))
		if err != nil {
			return err
		}
		if p.IsCompleted {
			return nil
		}

		p.PlayerHP = b.character.MaxHealth
		p.EnemyHP = b.enemy.Health
		p.ResetAnswers()
		p.WrongChallenges = nil
		p.RevealedChallenges = nil
		p.CorrectStreak = 0
		p.HasStrongEffect = false
		p.HasFreezeEffect = false
		p.HasReversedCurse = false
		p.BattleStatus = model.BattleInProgress
		b.serveNext(p, now)
		return progress.Save(p)
	})
	if err != nil {
		return nil, err
	}

	state := b.state(p, now, s.Rules.AnswerWindow())
	if p.IsCompleted {
		state.Message = msgLevelCompleted
	} else {
		state.Message = msgRestarted
		logger.Log.Info("Level restarted", zap.Uint("playerId", playerID), zap.Uint("levelId", levelID))
	}
	return state, nil
}
