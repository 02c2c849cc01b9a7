package repository

import (
	"code_quest_backend/internal/model"
	"code_quest_backend/internal/util"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{DB: tx}
}

func (r *UserRepository) FindByID(id uint) (*model.User, error) {
	var user model.User
	if err := r.DB.First(&user, id).Error; err != nil {
		return nil, notFound(err, util.ErrPlayerNotFound)
	}
	return &user, nil
}

// AddRewards locks the player row and adds the deltas. It returns the XP before and after
// the grant so callers can detect a level-up.
func (r *UserRepository) AddRewards(userID uint, xp, points, coins int) (int, int, error) {
	var user model.User
	err := r.DB.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id", "xp").
		First(&user, userID).Error
	if err != nil {
		return 0, 0, notFound(err, util.ErrPlayerNotFound)
	}

	if xp == 0 && points == 0 && coins == 0 {
		return user.XP, user.XP, nil
	}

	err = r.DB.Model(&model.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"xp":     gorm.Expr("xp + ?", xp),
			"points": gorm.Expr("points + ?", points),
			"coins":  gorm.Expr("coins + ?", coins),
		}).Error
	if err != nil {
		return 0, 0, err
	}
	return user.XP, user.XP + xp, nil
}

// SpendCoins debits the player only when the balance covers the amount.
func (r *UserRepository) SpendCoins(userID uint, amount int) error {
	res := r.DB.Model(&model.User{}).
		Where("id = ? AND coins >= ?", userID, amount).
		Update("coins", gorm.Expr("coins - ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.FindByID(userID); err != nil {
			return err
		}
		return util.Insufficient("not enough coins (need %d)", amount)
	}
	return nil
}

func (r *UserRepository) UpdateLastSeen(userID uint) error {
	return r.DB.Model(&model.User{}).
		Where("id = ?", userID).
		UpdateColumn("last_seen", time.Now()).
		Error
}

func (r *UserRepository) FindTopByXP(limit int) ([]model.User, error) {
	var users []model.User
	err := r.DB.Order("xp DESC").Order("id ASC").Limit(limit).Find(&users).Error
	return users, err
}
