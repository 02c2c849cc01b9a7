package repository

import (
	"code_quest_backend/internal/model"
	"code_quest_backend/internal/util"

	"gorm.io/gorm"
)

type BattleMessageRepository struct {
	DB *gorm.DB
}

func NewBattleMessageRepository(db *gorm.DB) *BattleMessageRepository {
	return &BattleMessageRepository{DB: db}
}

// 获取启用的战斗提示语
func (r *BattleMessageRepository) GetEnabled() ([]model.BattleMessage, error) {
	var messages []model.BattleMessage
	err := r.DB.Where("is_enabled = ?", true).Order("id ASC").Find(&messages).Error
	return messages, err
}

func (r *BattleMessageRepository) Create(msg *model.BattleMessage) error {
	return r.DB.Create(msg).Error
}

// 启用/停用
func (r *BattleMessageRepository) SetEnabled(id uint, enabled bool) error {
	return r.DB.Model(&model.BattleMessage{}).Where("id = ?", id).Update("is_enabled", enabled).Error
}

func (r *BattleMessageRepository) ListAll() ([]model.BattleMessage, error) {
	var messages []model.BattleMessage
	err := r.DB.Order("category ASC").Order("id ASC").Find(&messages).Error
	return messages, err
}

func (r *BattleMessageRepository) FindByID(id uint) (*model.BattleMessage, error) {
	var msg model.BattleMessage
	if err := r.DB.First(&msg, id).Error; err != nil {
		return nil, notFound(err, util.ErrNotFound)
	}
	return &msg, nil
}
