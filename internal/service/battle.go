package service

import (
	"encoding/json"
	"math"
	"time"

	"code_quest_backend/internal/game/challenge"
	"code_quest_backend/internal/model"
	"code_quest_backend/internal/repository"
	"code_quest_backend/internal/util"

	"gorm.io/datatypes"
)

type ActiveEffects struct {
	Power    bool `json:"power"`
	Immunity bool `json:"immunity"`
}

// ChallengeView is a challenge as shown to the player. It never carries the correct answer;
// Answer is only set for a challenge whose answer was filled by a Reveal potion.
type ChallengeView struct {
	ID            uint                `json:"id"`
	Type          model.ChallengeType `json:"type"`
	Question      string              `json:"question"`
	Options       []string            `json:"options,omitempty"`
	Blanks        int                 `json:"blanks"`
	Answer        []string            `json:"answer,omitempty"`
	RemainingTime int                 `json:"remainingTime"` // 秒
}

type LevelStatus struct {
	BattleStatus    model.BattleStatus `json:"battleStatus"`
	IsCompleted     bool               `json:"isCompleted"`
	PlayerHP        int                `json:"playerHp"`
	PlayerMaxHP     int                `json:"playerMaxHp"`
	EnemyHP         int                `json:"enemyHp"`
	EnemyMaxHP      int                `json:"enemyMaxHp"`
	WrongChallenges []uint             `json:"wrongChallenges"`
	Answered        int                `json:"answered"`
	Total           int                `json:"total"`
	CorrectStreak   int                `json:"correctStreak"`
	Effects         ActiveEffects      `json:"effects"`
	Cursed          bool               `json:"cursed"`
}

type EnemyView struct {
	ID         uint             `json:"id"`
	Name       string           `json:"name"`
	MaxHP      int              `json:"maxHp"`
	AttackType model.AttackType `json:"attackType"`
}

type CharacterView struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	MaxHP int    `json:"maxHp"`
}

// LevelState is the full picture returned when a player enters or restarts a level.
type LevelState struct {
	LevelID          uint           `json:"levelId"`
	Title            string         `json:"title"`
	Enemy            EnemyView      `json:"enemy"`
	Character        CharacterView  `json:"character"`
	Attempts         int            `json:"attempts"`
	Status           LevelStatus    `json:"status"`
	CurrentChallenge *ChallengeView `json:"currentChallenge"`
	Message          string         `json:"message,omitempty"`
}

// DecodeAnswer validates the answer payload: it must be a JSON array of strings.
func DecodeAnswer(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 {
		return nil, util.InvalidInput("answer is required")
	}
	var items []interface{}
	if err := json.Unmarshal(raw, &items); err != nil || items == nil {
		return nil, util.InvalidInput("answer must be an array of strings")
	}
	answer := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, util.InvalidInput("answer[%d] must be a string", i)
		}
		answer = append(answer, s)
	}
	return answer, nil
}

// battle is the catalog data one request works with: the level with its challenges and
// enemy, and the player's selected character.
type battle struct {
	level     *model.Level
	enemy     *model.Enemy
	character *model.Character
}

// loadBattle reads the catalog and enforces the unlock rule. It runs before the transaction
// opens.
func loadBattle(catalog *repository.CatalogRepository, progress *repository.ProgressRepository, playerID, levelID uint) (*battle, error) {
	level, err := catalog.FindLevel(levelID, true, true)
	if err != nil {
		return nil, err
	}
	character, err := catalog.FindActiveCharacter(playerID)
	if err != nil {
		return nil, err
	}

	first, err := catalog.FirstLevelSequence(level.MapID)
	if err != nil {
		return nil, err
	}
	if level.Sequence != first {
		unlocked, err := progress.Exists(playerID, levelID)
		if err != nil {
			return nil, err
		}
		if !unlocked {
			return nil, util.ErrLevelLocked
		}
	}

	return &battle{level: level, enemy: level.Enemy, character: character}, nil
}

// newProgress is the row a player starts a level with.
func newProgress(playerID uint, level *model.Level, enemy *model.Enemy, character *model.Character) *model.PlayerProgress {
	p := &model.PlayerProgress{
		PlayerID:     playerID,
		LevelID:      level.ID,
		PlayerAnswer: datatypes.NewJSONType(model.AnswerSheet{}),
		BattleStatus: model.BattleInProgress,
	}
	if character != nil {
		p.PlayerHP = character.MaxHealth
	}
	if enemy != nil {
		p.EnemyHP = enemy.Health
	}
	return p
}

func (b *battle) seed(playerID uint) *model.PlayerProgress {
	return newProgress(playerID, b.level, b.enemy, b.character)
}

func (b *battle) board(p *model.PlayerProgress) challenge.Board {
	return levelBoard(b.level, p)
}

// levelBoard projects a progress row onto the challenges of its level.
func levelBoard(level *model.Level, p *model.PlayerProgress) challenge.Board {
	return challenge.Board{
		Order:    level.ChallengeIDs(),
		Answers:  p.Answers(),
		Wrong:    p.WrongChallenges,
		Revealed: p.RevealedChallenges,
	}
}

// cursed reports whether answers are currently reversed for this player.
func (b *battle) cursed(p *model.PlayerProgress) bool {
	return p.HasReversedCurse && b.enemy.Curses()
}

func (b *battle) effectiveAnswer(p *model.PlayerProgress, ch *model.Challenge) []string {
	return challenge.EffectiveAnswer(ch.CorrectAnswer, b.cursed(p))
}

// serveNext picks the next challenge and restarts the answer window.
func (b *battle) serveNext(p *model.PlayerProgress, now time.Time) {
	id, ok := b.board(p).Next()
	p.SetCurrentChallenge(id, ok)
	p.ChallengeStartTime = now
}

func (b *battle) status(p *model.PlayerProgress) LevelStatus {
	answers := p.Answers()
	answered := 0
	for _, id := range b.level.ChallengeIDs() {
		if _, ok := answers[id]; ok {
			answered++
		}
	}
	wrong := append([]uint{}, p.WrongChallenges...)
	return LevelStatus{
		BattleStatus:    p.BattleStatus,
		IsCompleted:     p.IsCompleted,
		PlayerHP:        p.PlayerHP,
		PlayerMaxHP:     b.character.MaxHealth,
		EnemyHP:         p.EnemyHP,
		EnemyMaxHP:      b.enemy.Health,
		WrongChallenges: wrong,
		Answered:        answered,
		Total:           len(b.level.Challenges),
		CorrectStreak:   p.CorrectStreak,
		Effects:         ActiveEffects{Power: p.HasStrongEffect, Immunity: p.HasFreezeEffect},
		Cursed:          b.cursed(p),
	}
}

// currentView describes the challenge being served, or nil when there is none.
func (b *battle) currentView(p *model.PlayerProgress, now time.Time, window time.Duration) *ChallengeView {
	if p.IsCompleted {
		return nil
	}
	id, ok := p.CurrentChallenge()
	if !ok {
		return nil
	}
	ch, ok := b.level.FindChallenge(id)
	if !ok {
		return nil
	}

	view := &ChallengeView{
		ID:            ch.ID,
		Type:          ch.Type,
		Question:      ch.Question,
		Options:       append([]string(nil), ch.Options...),
		Blanks:        ch.Blanks(),
		RemainingTime: remainingSeconds(p.ChallengeStartTime, now, window),
	}
	if challenge.Contains(p.RevealedChallenges, id) {
		view.Answer = p.Answers()[id]
	}
	return view
}

func (b *battle) state(p *model.PlayerProgress, now time.Time, window time.Duration) *LevelState {
	return &LevelState{
		LevelID: b.level.ID,
		Title:   b.level.Title,
		Enemy: EnemyView{
			ID:         b.enemy.ID,
			Name:       b.enemy.Name,
			MaxHP:      b.enemy.Health,
			AttackType: b.enemy.AttackType,
		},
		Character: CharacterView{
			ID:    b.character.ID,
			Name:  b.character.Name,
			MaxHP: b.character.MaxHealth,
		},
		Attempts:         p.Attempts,
		Status:           b.status(p),
		CurrentChallenge: b.currentView(p, now, window),
	}
}

func remainingSeconds(start, now time.Time, window time.Duration) int {
	left := window - now.Sub(start)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Seconds()))
}
