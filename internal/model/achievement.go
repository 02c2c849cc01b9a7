package model

import "time"

type AchievementCriterion string

const (
	CriterionLevelsCompleted AchievementCriterion = "levels_completed"
	CriterionTotalPoints     AchievementCriterion = "total_points"
	CriterionTotalCoins      AchievementCriterion = "total_coins"
	CriterionPlayerLevel     AchievementCriterion = "player_level"
)

type Achievement struct {
	BaseModel
	Name      string               `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Icon      string               `gorm:"size:255" json:"icon"`
	Criterion AchievementCriterion `gorm:"size:30;not null" json:"criterion"`
	Threshold int                  `gorm:"not null" json:"threshold"`
	RewardXP  int                  `gorm:"default:0" json:"rewardXp"`
}

func (Achievement) TableName() string {
	return "achievements"
}

type PlayerAchievement struct {
	BaseModel
	PlayerID      uint         `gorm:"uniqueIndex:idx_player_achievement;not null" json:"playerId"`
	AchievementID uint         `gorm:"uniqueIndex:idx_player_achievement;not null" json:"achievementId"`
	UnlockedAt    time.Time    `json:"unlockedAt"`
	Achievement   *Achievement `json:"achievement,omitempty"`
}

func (PlayerAchievement) TableName() string {
	return "player_achievements"
}
