package model

type MessageCategory string

const (
	MessageCorrect MessageCategory = "correct"
	MessageWrong   MessageCategory = "wrong"
	MessageVictory MessageCategory = "victory"
	MessageDefeat  MessageCategory = "defeat"
	MessageBlocked MessageCategory = "blocked"
)

// BattleMessage is one line of flavour text shown after an exchange.
type BattleMessage struct {
	BaseModel
	Category  MessageCategory `gorm:"size:20;index;not null" json:"category"`
	Content   string          `gorm:"size:255;not null" json:"content"`
	IsEnabled bool            `gorm:"index" json:"isEnabled"`
}

func (BattleMessage) TableName() string {
	return "battle_messages"
}
