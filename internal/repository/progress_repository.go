package repository

import (
	"code_quest_backend/internal/model"
	"code_quest_backend/internal/util"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProgressRepository persists PlayerProgress rows. The row is the serialisation point for
// everything that happens inside one level, so writers lock it first.
type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

func (r *ProgressRepository) WithTx(tx *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: tx}
}

// LockOrCreate returns the (player, level) row locked for update, inserting seed first when
// the row does not exist yet. created reports whether this call inserted it.
func (r *ProgressRepository) LockOrCreate(seed *model.PlayerProgress) (*model.PlayerProgress, bool, error) {
	created, err := r.EnsureExists(seed)
	if err != nil {
		return nil, false, err
	}

	p, err := r.FindForUpdate(seed.PlayerID, seed.LevelID)
	if err != nil {
		return nil, false, err
	}
	return p, created, nil
}

// FindForUpdate loads the row with a row lock held until the transaction ends.
func (r *ProgressRepository) FindForUpdate(playerID, levelID uint) (*model.PlayerProgress, error) {
	var p model.PlayerProgress
	err := r.DB.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("player_id = ? AND level_id = ?", playerID, levelID).
		First(&p).Error
	if err != nil {
		return nil, notFound(err, util.ErrProgressNotFound)
	}
	return &p, nil
}

// EnsureExists inserts the row unless one already exists for the pair.
func (r *ProgressRepository) EnsureExists(seed *model.PlayerProgress) (bool, error) {
	row := *seed
	row.ID = 0
	res := r.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *ProgressRepository) Find(playerID, levelID uint) (*model.PlayerProgress, error) {
	var p model.PlayerProgress
	err := r.DB.Where("player_id = ? AND level_id = ?", playerID, levelID).First(&p).Error
	if err != nil {
		return nil, notFound(err, util.ErrProgressNotFound)
	}
	return &p, nil
}

func (r *ProgressRepository) Exists(playerID, levelID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.PlayerProgress{}).
		Where("player_id = ? AND level_id = ?", playerID, levelID).
		Count(&count).Error
	return count > 0, err
}

func (r *ProgressRepository) Save(p *model.PlayerProgress) error {
	return r.DB.Save(p).Error
}

// MarkCompleted flips is_completed exactly once. It reports false when another request got
// there first.
func (r *ProgressRepository) MarkCompleted(id uint, at time.Time) (bool, error) {
	res := r.DB.Model(&model.PlayerProgress{}).
		Where("id = ? AND is_completed = ?", id, false).
		Updates(map[string]interface{}{
			"is_completed":  true,
			"completed_at":  at,
			"battle_status": model.BattleWon,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *ProgressRepository) CountCompleted(playerID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.PlayerProgress{}).
		Where("player_id = ? AND is_completed = ?", playerID, true).
		Count(&count).Error
	return count, err
}
