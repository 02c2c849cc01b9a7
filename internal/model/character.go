package model

import "gorm.io/datatypes"

// swagger:model Character
type Character struct {
	BaseModel

	Name      string                   `gorm:"size:100;not null" json:"name"`
	MaxHealth int                      `gorm:"not null" json:"maxHealth"`
	Damage    datatypes.JSONSlice[int] `json:"damage"` // basic, special attack, special skill
}

func (Character) TableName() string {
	return "characters"
}

// PlayerCharacter links a player to an owned character; exactly one is selected.
type PlayerCharacter struct {
	BaseModel

	PlayerID    uint       `gorm:"uniqueIndex:idx_player_character;not null" json:"playerId"`
	CharacterID uint       `gorm:"uniqueIndex:idx_player_character;not null" json:"characterId"`
	IsSelected  bool       `gorm:"default:false" json:"isSelected"`
	Character   *Character `json:"character,omitempty"`
}

func (PlayerCharacter) TableName() string {
	return "player_characters"
}
