package model

type PotionType string

const (
	PotionLife     PotionType = "Life"
	PotionPower    PotionType = "Power"
	PotionImmunity PotionType = "Immunity"
	PotionReveal   PotionType = "Reveal"
)

// swagger:model Potion
type Potion struct {
	BaseModel

	Name        string     `gorm:"size:100;not null" json:"name"`
	Type        PotionType `gorm:"size:20;uniqueIndex;not null" json:"type"`
	Price       int        `gorm:"not null;default:0" json:"price"`
	Description string     `gorm:"type:text" json:"description"`
	AudioCue    string     `gorm:"size:255" json:"audioCue"`
}

func (Potion) TableName() string {
	return "potions"
}

// PlayerPotion is the player's stock of one potion type. Quantity never goes below zero.
type PlayerPotion struct {
	BaseModel

	PlayerID uint    `gorm:"uniqueIndex:idx_player_potion;not null" json:"playerId"`
	PotionID uint    `gorm:"uniqueIndex:idx_player_potion;not null" json:"potionId"`
	Quantity int     `gorm:"not null;default:0" json:"quantity"`
	Potion   *Potion `json:"potion,omitempty"`
}

func (PlayerPotion) TableName() string {
	return "player_potions"
}
