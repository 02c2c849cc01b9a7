package model

import "time"

type QuestObjective string

const (
	ObjectiveCompleteLevel QuestObjective = "complete_level"
	ObjectiveAnswerCorrect QuestObjective = "answer_correct"
	ObjectiveUsePotion     QuestObjective = "use_potion"
	ObjectiveEarnCoins     QuestObjective = "earn_coins"
)

// swagger:model Quest
type Quest struct {
	BaseModel

	Title         string         `gorm:"size:255;not null" json:"title"`
	ObjectiveType QuestObjective `gorm:"size:30;index;not null" json:"objectiveType"`
	Target        int            `gorm:"not null" json:"target"`
	RewardCoins   int            `gorm:"default:0" json:"rewardCoins"`
	RewardXP      int            `gorm:"default:0" json:"rewardXp"`
	IsActive      bool           `gorm:"index" json:"isActive"`
}

func (Quest) TableName() string {
	return "quests"
}

type PlayerQuest struct {
	BaseModel

	PlayerID    uint       `gorm:"uniqueIndex:idx_player_quest;not null" json:"playerId"`
	QuestID     uint       `gorm:"uniqueIndex:idx_player_quest;not null" json:"questId"`
	Progress    int        `gorm:"not null;default:0" json:"progress"`
	IsCompleted bool       `gorm:"default:false" json:"isCompleted"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Quest       *Quest     `json:"quest,omitempty"`
}

func (PlayerQuest) TableName() string {
	return "player_quests"
}
