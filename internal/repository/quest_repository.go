package repository

import (
	"code_quest_backend/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type QuestRepository struct {
	DB *gorm.DB
}

func NewQuestRepository(db *gorm.DB) *QuestRepository {
	return &QuestRepository{DB: db}
}

func (r *QuestRepository) WithTx(tx *gorm.DB) *QuestRepository {
	return &QuestRepository{DB: tx}
}

func (r *QuestRepository) FindActive() ([]model.Quest, error) {
	var quests []model.Quest
	err := r.DB.Where("is_active = ?", true).Order("id ASC").Find(&quests).Error
	return quests, err
}

// AssignActive gives the player every active quest they do not have yet.
func (r *QuestRepository) AssignActive(playerID uint) error {
	quests, err := r.FindActive()
	if err != nil || len(quests) == 0 {
		return err
	}
	rows := make([]model.PlayerQuest, 0, len(quests))
	for _, q := range quests {
		rows = append(rows, model.PlayerQuest{PlayerID: playerID, QuestID: q.ID})
	}
	return r.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

// Increment advances every open quest of the player with the given objective.
func (r *QuestRepository) Increment(playerID uint, objective model.QuestObjective, delta int) error {
	active := r.DB.Model(&model.Quest{}).
		Select("id").
		Where("objective_type = ? AND is_active = ?", objective, true)

	return r.DB.Model(&model.PlayerQuest{}).
		Where("player_id = ? AND is_completed = ? AND quest_id IN (?)", playerID, false, active).
		Update("progress", gorm.Expr("progress + ?", delta)).
		Error
}

// FindReached lists open quests whose progress has reached the target.
func (r *QuestRepository) FindReached(playerID uint, objective model.QuestObjective) ([]model.PlayerQuest, error) {
	var rows []model.PlayerQuest
	err := r.DB.Preload("Quest").
		Joins("JOIN quests ON quests.id = player_quests.quest_id AND quests.deleted_at IS NULL").
		Where("player_quests.player_id = ? AND player_quests.is_completed = ?", playerID, false).
		Where("quests.objective_type = ? AND player_quests.progress >= quests.target", objective).
		Find(&rows).Error
	return rows, err
}

// MarkCompleted closes a quest once; false means it was already closed.
func (r *QuestRepository) MarkCompleted(id uint, at time.Time) (bool, error) {
	res := r.DB.Model(&model.PlayerQuest{}).
		Where("id = ? AND is_completed = ?", id, false).
		Updates(map[string]interface{}{
			"is_completed": true,
			"completed_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *QuestRepository) ListByPlayer(playerID uint) ([]model.PlayerQuest, error) {
	var rows []model.PlayerQuest
	err := r.DB.Preload("Quest").
		Where("player_id = ?", playerID).
		Order("quest_id ASC").
		Find(&rows).Error
	return rows, err
}
