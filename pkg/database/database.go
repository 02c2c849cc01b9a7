package database

import (
	"fmt"

	"code_quest_backend/internal/config"
	"code_quest_backend/internal/model"
	applog "code_quest_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	applog.Log.Info("Database connection established", zap.String("host", cfg.Host), zap.String("db", cfg.DBName))

	if err := Migrate(db); err != nil {
		return nil, err
	}

	applog.Log.Info("Database migration completed")
	return db, nil
}

// Migrate creates the game tables and inserts the default catalog rows when they are missing.
// Tests run it against sqlite so the schema stays identical.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.User{},
		&model.Character{},
		&model.PlayerCharacter{},
		&model.Enemy{},
		&model.Level{},
		&model.Challenge{},
		&model.Potion{},
		&model.PlayerPotion{},
		&model.PlayerProgress{},
		&model.Quest{},
		&model.PlayerQuest{},
		&model.Achievement{},
		&model.PlayerAchievement{},
		&model.BattleMessage{},
	)
	if err != nil {
		return err
	}

	return seed(db)
}

func seed(db *gorm.DB) error {
	// 默认药水
	var potionCount int64
	if err := db.Model(&model.Potion{}).Count(&potionCount).Error; err != nil {
		return err
	}
	if potionCount == 0 {
		potions := []model.Potion{
			{Name: "Life Potion", Type: model.PotionLife, Price: 30, Description: "Restores your health to full.", AudioCue: "potions/life.mp3"},
			{Name: "Power Potion", Type: model.PotionPower, Price: 40, Description: "Doubles your damage until the level is cleared.", AudioCue: "potions/power.mp3"},
			{Name: "Immunity Potion", Type: model.PotionImmunity, Price: 35, Description: "Nullifies the enemy's next attack.", AudioCue: "potions/immunity.mp3"},
			{Name: "Reveal Potion", Type: model.PotionReveal, Price: 50, Description: "Fills in the answer of the current challenge.", AudioCue: "potions/reveal.mp3"},
		}
		if err := db.Create(&potions).Error; err != nil {
			return err
		}
	}

	// 默认战斗提示语
	var msgCount int64
	if err := db.Model(&model.BattleMessage{}).Count(&msgCount).Error; err != nil {
		return err
	}
	if msgCount == 0 {
		messages := []model.BattleMessage{
			{Category: model.MessageCorrect, Content: "Direct hit! Your code compiles and strikes true.", IsEnabled: true},
			{Category: model.MessageCorrect, Content: "Clean solution. The enemy staggers!", IsEnabled: true},
			{Category: model.MessageWrong, Content: "Syntax error! The enemy strikes back.", IsEnabled: true},
			{Category: model.MessageWrong, Content: "Not quite. Read the question again and retry.", IsEnabled: true},
			{Category: model.MessageVictory, Content: "Level cleared! Every bug has been squashed.", IsEnabled: true},
			{Category: model.MessageDefeat, Content: "You have been defeated. Drink a Life potion or restart the level.", IsEnabled: true},
			{Category: model.MessageBlocked, Content: "Your immunity shield absorbed the attack!", IsEnabled: true},
		}
		if err := db.Create(&messages).Error; err != nil {
			return err
		}
	}

	return nil
}
