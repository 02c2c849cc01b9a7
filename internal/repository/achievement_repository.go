package repository

import (
	"code_quest_backend/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AchievementRepository struct {
	DB *gorm.DB
}

func NewAchievementRepository(db *gorm.DB) *AchievementRepository {
	return &AchievementRepository{DB: db}
}

func (r *AchievementRepository) WithTx(tx *gorm.DB) *AchievementRepository {
	return &AchievementRepository{DB: tx}
}

func (r *AchievementRepository) FindAll() ([]model.Achievement, error) {
	var achievements []model.Achievement
	err := r.DB.Order("id ASC").Find(&achievements).Error
	return achievements, err
}

func (r *AchievementRepository) FindByUserID(userID uint) ([]model.PlayerAchievement, error) {
	var rows []model.PlayerAchievement
	err := r.DB.Preload("Achievement").
		Where("player_id = ?", userID).
		Order("unlocked_at ASC").
		Find(&rows).Error
	return rows, err
}

// Unlock records the achievement for the player; false means it was already unlocked.
func (r *AchievementRepository) Unlock(userID, achievementID uint, at time.Time) (bool, error) {
	row := model.PlayerAchievement{PlayerID: userID, AchievementID: achievementID, UnlockedAt: at}
	res := r.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
