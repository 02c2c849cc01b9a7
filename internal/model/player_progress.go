package model

import (
	"time"

	"gorm.io/datatypes"
)

type BattleStatus string

const (
	BattleInProgress BattleStatus = "in_progress"
	BattleWon        BattleStatus = "won"
	BattleLost       BattleStatus = "lost"
)

// AnswerSheet maps a challenge id to the latest answer recorded for it.
type AnswerSheet map[uint][]string

// PlayerProgress is the per-(player, level) battle record. One row per pair; rows are
// never deleted, only marked completed.
// swagger:model PlayerProgress
type PlayerProgress struct {
	BaseModel

	PlayerID uint `gorm:"uniqueIndex:idx_progress_player_level;not null" json:"playerId"`
	LevelID  uint `gorm:"uniqueIndex:idx_progress_player_level;not null" json:"levelId"`

	Attempts           int                             `gorm:"not null;default:0" json:"attempts"`
	PlayerAnswer       datatypes.JSONType[AnswerSheet] `json:"playerAnswer"`
	WrongChallenges    datatypes.JSONSlice[uint]       `json:"wrongChallenges"`
	RevealedChallenges datatypes.JSONSlice[uint]       `json:"revealedChallenges"` // 已揭示但尚未确认提交
	CurrentChallengeID *uint                           `json:"currentChallengeId,omitempty"`
	ChallengeStartTime time.Time                       `json:"challengeStartTime"`

	PlayerHP      int `gorm:"not null;default:0" json:"playerHp"`
	EnemyHP       int `gorm:"not null;default:0" json:"enemyHp"`
	CorrectStreak int `gorm:"not null;default:0" json:"correctStreak"`

	HasStrongEffect  bool `gorm:"default:false" json:"hasStrongEffect"`
	HasFreezeEffect  bool `gorm:"default:false" json:"hasFreezeEffect"`
	HasReversedCurse bool `gorm:"default:false" json:"hasReversedCurse"`

	IsCompleted  bool         `gorm:"default:false;index" json:"isCompleted"`
	CompletedAt  *time.Time   `json:"completedAt,omitempty"`
	BattleStatus BattleStatus `gorm:"size:20;default:'in_progress'" json:"battleStatus"`
}

func (PlayerProgress) TableName() string {
	return "player_progress"
}

// Answers returns a copy of the recorded answers; mutate through RecordAnswer.
func (p *PlayerProgress) Answers() AnswerSheet {
	src := p.PlayerAnswer.Data()
	out := make(AnswerSheet, len(src))
	for id, ans := range src {
		out[id] = append([]string(nil), ans...)
	}
	return out
}

func (p *PlayerProgress) RecordAnswer(challengeID uint, answer []string) {
	sheet := p.Answers()
	sheet[challengeID] = append([]string(nil), answer...)
	p.PlayerAnswer = datatypes.NewJSONType(sheet)
}

func (p *PlayerProgress) ResetAnswers() {
	p.PlayerAnswer = datatypes.NewJSONType(AnswerSheet{})
}

func (p *PlayerProgress) SetCurrentChallenge(id uint, ok bool) {
	if !ok {
		p.CurrentChallengeID = nil
		return
	}
	p.CurrentChallengeID = &id
}

// CurrentChallenge returns the challenge being served, if any.
func (p *PlayerProgress) CurrentChallenge() (uint, bool) {
	if p.CurrentChallengeID == nil {
		return 0, false
	}
	return *p.CurrentChallengeID, true
}
