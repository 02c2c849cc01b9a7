package repository

import (
	"code_quest_backend/internal/model"
	"code_quest_backend/internal/util"
	"database/sql"

	"gorm.io/gorm"
)

// CatalogRepository reads the admin-managed game content: levels, challenges, enemies,
// potions and characters. It never writes.
type CatalogRepository struct {
	DB *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{DB: db}
}

func (r *CatalogRepository) WithTx(tx *gorm.DB) *CatalogRepository {
	return &CatalogRepository{DB: tx}
}

func (r *CatalogRepository) FindLevel(id uint, withChallenges, withEnemy bool) (*model.Level, error) {
	query := r.DB
	if withChallenges {
		query = query.Preload("Challenges", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC").Order("id ASC")
		})
	}
	if withEnemy {
		query = query.Preload("Enemy")
	}

	var level model.Level
	if err := query.First(&level, id).Error; err != nil {
		return nil, notFound(err, util.ErrLevelNotFound)
	}
	if withEnemy && level.Enemy == nil {
		return nil, util.ErrEnemyNotFound
	}
	return &level, nil
}

func (r *CatalogRepository) FindChallenge(id uint) (*model.Challenge, error) {
	var ch model.Challenge
	if err := r.DB.First(&ch, id).Error; err != nil {
		return nil, notFound(err, util.ErrChallengeNotFound)
	}
	return &ch, nil
}

func (r *CatalogRepository) FindEnemy(id uint) (*model.Enemy, error) {
	var enemy model.Enemy
	if err := r.DB.First(&enemy, id).Error; err != nil {
		return nil, notFound(err, util.ErrEnemyNotFound)
	}
	return &enemy, nil
}

func (r *CatalogRepository) FindPotion(id uint) (*model.Potion, error) {
	var p model.Potion
	if err := r.DB.First(&p, id).Error; err != nil {
		return nil, notFound(err, util.ErrPotionNotFound)
	}
	return &p, nil
}

func (r *CatalogRepository) ListPotions() ([]model.Potion, error) {
	var potions []model.Potion
	err := r.DB.Order("id ASC").Find(&potions).Error
	return potions, err
}

// FindNextLevel returns the level that follows sequence on the same map, or ErrLevelNotFound
// when the map ends there.
func (r *CatalogRepository) FindNextLevel(mapID uint, sequence int) (*model.Level, error) {
	var level model.Level
	err := r.DB.Where("map_id = ? AND sequence > ?", mapID, sequence).
		Order("sequence ASC").
		First(&level).Error
	if err != nil {
		return nil, notFound(err, util.ErrLevelNotFound)
	}
	return &level, nil
}

// FirstLevelSequence is the lowest sequence on the map; that level is always open.
func (r *CatalogRepository) FirstLevelSequence(mapID uint) (int, error) {
	var seq sql.NullInt64
	err := r.DB.Model(&model.Level{}).
		Where("map_id = ?", mapID).
		Select("MIN(sequence)").
		Row().
		Scan(&seq)
	if err != nil {
		return 0, err
	}
	if !seq.Valid {
		return 0, util.ErrLevelNotFound
	}
	return int(seq.Int64), nil
}

// FindActiveCharacter returns the character the player has selected.
func (r *CatalogRepository) FindActiveCharacter(playerID uint) (*model.Character, error) {
	var pc model.PlayerCharacter
	err := r.DB.Preload("Character").
		Where("player_id = ? AND is_selected = ?", playerID, true).
		First(&pc).Error
	if err != nil {
		return nil, notFound(err, util.ErrCharacterNotFound)
	}
	if pc.Character == nil {
		return nil, util.ErrCharacterNotFound
	}
	return pc.Character, nil
}
