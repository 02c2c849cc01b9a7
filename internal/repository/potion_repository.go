package repository

import (
	"code_quest_backend/internal/model"
	"code_quest_backend/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PotionRepository struct {
	DB *gorm.DB
}

func NewPotionRepository(db *gorm.DB) *PotionRepository {
	return &PotionRepository{DB: db}
}

func (r *PotionRepository) WithTx(tx *gorm.DB) *PotionRepository {
	return &PotionRepository{DB: tx}
}

func (r *PotionRepository) ListByPlayer(playerID uint) ([]model.PlayerPotion, error) {
	var items []model.PlayerPotion
	err := r.DB.Preload("Potion").
		Where("player_id = ?", playerID).
		Order("potion_id ASC").
		Find(&items).Error
	return items, err
}

// FindPlayerPotion loads one inventory row owned by the player.
func (r *PotionRepository) FindPlayerPotion(id, playerID uint) (*model.PlayerPotion, error) {
	var pp model.PlayerPotion
	err := r.DB.Preload("Potion").
		Where("id = ? AND player_id = ?", id, playerID).
		First(&pp).Error
	if err != nil {
		return nil, notFound(err, util.ErrPotionNotFound)
	}
	return &pp, nil
}

func (r *PotionRepository) FindByPotion(playerID, potionID uint) (*model.PlayerPotion, error) {
	var pp model.PlayerPotion
	err := r.DB.Preload("Potion").
		Where("player_id = ? AND potion_id = ?", playerID, potionID).
		First(&pp).Error
	if err != nil {
		return nil, notFound(err, util.ErrPotionNotFound)
	}
	return &pp, nil
}

// ConsumeOne takes one potion out of stock and returns what is left. The conditional update
// keeps the quantity from going negative under concurrent use; the remaining count is read
// back after the decrement, while the updated row is still held by the transaction.
func (r *PotionRepository) ConsumeOne(id uint) (int, error) {
	res := r.DB.Model(&model.PlayerPotion{}).
		Where("id = ? AND quantity > ?", id, 0).
		Update("quantity", gorm.Expr("quantity - ?", 1))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, util.Insufficient("no potions of this type left")
	}

	var remaining []int
	if err := r.DB.Model(&model.PlayerPotion{}).
		Where("id = ?", id).
		Pluck("quantity", &remaining).Error; err != nil {
		return 0, err
	}
	if len(remaining) == 0 {
		return 0, util.ErrPotionNotFound
	}
	return remaining[0], nil
}

// AddQuantity adds to the player's stock, creating the inventory row on first purchase.
func (r *PotionRepository) AddQuantity(playerID, potionID uint, quantity int) error {
	row := model.PlayerPotion{PlayerID: playerID, PotionID: potionID, Quantity: quantity}
	return r.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "player_id"}, {Name: "potion_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity": gorm.Expr("player_potions.quantity + ?", quantity),
		}),
	}).Create(&row).Error
}
