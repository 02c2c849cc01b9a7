// Package testutil opens throwaway databases and builds game fixtures for tests.
package testutil

import (
	"fmt"
	"testing"

	"code_quest_backend/internal/model"
	"code_quest_backend/pkg/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB returns a migrated in-memory sqlite database private to the test. It holds a
// single connection, so concurrent transactions queue the same way row locks would make them.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// World is a playable fixture: one player with a selected character, one map with two
// levels and the default potion catalog.
type World struct {
	Player    *model.User
	Character *model.Character
	Enemy     *model.Enemy
	Level     *model.Level
	NextLevel *model.Level
}

// CreatePlayer inserts a player with the given coin balance.
func CreatePlayer(t testing.TB, db *gorm.DB, coins int) *model.User {
	t.Helper()
	u := &model.User{
		Name:  "player-" + uuid.NewString()[:8],
		Email: uuid.NewString() + "@example.com",
		Role:  model.Student,
		Coins: coins,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// CreateCharacter inserts a character and selects it for the player.
func CreateCharacter(t testing.TB, db *gorm.DB, playerID uint, maxHealth int, damage ...int) *model.Character {
	t.Helper()
	c := &model.Character{Name: "Coder", MaxHealth: maxHealth, Damage: datatypes.NewJSONSlice(damage)}
	require.NoError(t, db.Create(c).Error)
	require.NoError(t, db.Create(&model.PlayerCharacter{
		PlayerID:    playerID,
		CharacterID: c.ID,
		IsSelected:  true,
	}).Error)
	return c
}

// CreateEnemy inserts an enemy.
func CreateEnemy(t testing.TB, db *gorm.DB, health int, attack model.AttackType, transform model.AnswerTransform, damage ...int) *model.Enemy {
	t.Helper()
	e := &model.Enemy{
		Name:            "Bug",
		Health:          health,
		Damage:          datatypes.NewJSONSlice(damage),
		AttackType:      attack,
		AnswerTransform: transform,
	}
	require.NoError(t, db.Create(e).Error)
	return e
}

// CreateLevel inserts a level with one challenge per answer, in order. Each challenge is worth
// 10 points and 5 coins.
func CreateLevel(t testing.TB, db *gorm.DB, mapID uint, seq int, enemyID uint, answers ...[]string) *model.Level {
	t.Helper()
	lvl := &model.Level{
		MapID:     mapID,
		Sequence:  seq,
		Title:     fmt.Sprintf("Level %d", seq),
		EnemyID:   enemyID,
		ExpReward: 50,
	}
	require.NoError(t, db.Create(lvl).Error)

	for i, ans := range answers {
		typ := model.ChallengeFillInBlank
		if len(ans) == 1 {
			typ = model.ChallengeMultipleChoice
		}
		ch := model.Challenge{
			LevelID:       lvl.ID,
			Sequence:      i + 1,
			Type:          typ,
			Question:      fmt.Sprintf("Question %d", i+1),
			CorrectAnswer: datatypes.NewJSONSlice(ans),
			PointsReward:  10,
			CoinsReward:   5,
		}
		require.NoError(t, db.Create(&ch).Error)
		lvl.Challenges = append(lvl.Challenges, ch)
	}
	return lvl
}

// Potion returns the seeded catalog potion of the given type.
func Potion(t testing.TB, db *gorm.DB, typ model.PotionType) *model.Potion {
	t.Helper()
	var p model.Potion
	require.NoError(t, db.Where("type = ?", typ).First(&p).Error)
	return &p
}

// GivePotion sets the player's stock of a potion type and returns the inventory row.
func GivePotion(t testing.TB, db *gorm.DB, playerID uint, typ model.PotionType, quantity int) *model.PlayerPotion {
	t.Helper()
	p := Potion(t, db, typ)
	pp := &model.PlayerPotion{PlayerID: playerID, PotionID: p.ID, Quantity: quantity}
	require.NoError(t, db.Create(pp).Error)
	return pp
}

// NewWorld builds the standard two-level fixture: level 1 has challenges A(["x"]) and
// B(["y","z"]); level 2 has a single challenge. The character has 100 HP and deals 10/20/30,
// the enemy has 50 HP and deals 15.
func NewWorld(t testing.TB, db *gorm.DB) *World {
	t.Helper()
	player := CreatePlayer(t, db, 100)
	char := CreateCharacter(t, db, player.ID, 100, 10, 20, 30)
	enemy := CreateEnemy(t, db, 50, model.AttackBasic, model.TransformNone, 15)
	lvl := CreateLevel(t, db, 1, 1, enemy.ID, []string{"x"}, []string{"y", "z"})
	next := CreateLevel(t, db, 1, 2, enemy.ID, []string{"done"})
	return &World{Player: player, Character: char, Enemy: enemy, Level: lvl, NextLevel: next}
}
