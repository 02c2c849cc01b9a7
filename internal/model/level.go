package model

import "gorm.io/datatypes"

// swagger:model Level
type Level struct {
	BaseModel

	MapID       uint   `gorm:"index:idx_level_map_seq;not null" json:"mapId"`
	Sequence    int    `gorm:"index:idx_level_map_seq;not null" json:"sequence"` // 地图内的顺序，从1开始
	Title       string `gorm:"size:255;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	EnemyID     uint   `gorm:"index" json:"enemyId"`
	ExpReward   int    `gorm:"default:0" json:"expReward"`

	Enemy      *Enemy      `json:"enemy,omitempty"`
	Challenges []Challenge `gorm:"foreignKey:LevelID" json:"challenges,omitempty"`
}

func (Level) TableName() string {
	return "levels"
}

// ChallengeIDs returns the level's challenge ids in play order.
func (l *Level) ChallengeIDs() []uint {
	ids := make([]uint, 0, len(l.Challenges))
	for _, c := range l.Challenges {
		ids = append(ids, c.ID)
	}
	return ids
}

// FindChallenge returns the challenge with the given id if it belongs to the level.
func (l *Level) FindChallenge(id uint) (*Challenge, bool) {
	for i := range l.Challenges {
		if l.Challenges[i].ID == id {
			return &l.Challenges[i], true
		}
	}
	return nil, false
}

type ChallengeType string

const (
	ChallengeMultipleChoice ChallengeType = "multiple choice"
	ChallengeFillInBlank    ChallengeType = "fill in the blank"
	ChallengeCodeWithGuide  ChallengeType = "code with guide"
)

// swagger:model Challenge
type Challenge struct {
	BaseModel

	LevelID       uint                        `gorm:"index;not null" json:"levelId"`
	Sequence      int                         `gorm:"default:0" json:"sequence"`
	Type          ChallengeType               `gorm:"size:50;not null" json:"type"`
	Question      string                      `gorm:"type:text" json:"question"`
	Options       datatypes.JSONSlice[string] `json:"options"`
	CorrectAnswer datatypes.JSONSlice[string] `json:"-"` // 每个空一个元素，按顺序
	PointsReward  int                         `gorm:"default:0" json:"pointsReward"`
	CoinsReward   int                         `gorm:"default:0" json:"coinsReward"`
}

func (Challenge) TableName() string {
	return "challenges"
}

// Blanks is the number of answer slots the player has to fill.
func (c *Challenge) Blanks() int {
	return len(c.CorrectAnswer)
}
