package model

import "gorm.io/datatypes"

type AttackType string

const (
	AttackBasic        AttackType = "basic"
	AttackSpecial      AttackType = "special attack"
	AttackSpecialSkill AttackType = "special skill"
)

// Tier is the damage array index used by an attack of this type.
func (a AttackType) Tier() int {
	switch a {
	case AttackSpecial:
		return 1
	case AttackSpecialSkill:
		return 2
	default:
		return 0
	}
}

// AttackTypeForTier is the inverse of Tier; tiers past the last one map to special skill.
func AttackTypeForTier(tier int) AttackType {
	switch {
	case tier <= 0:
		return AttackBasic
	case tier == 1:
		return AttackSpecial
	default:
		return AttackSpecialSkill
	}
}

type AnswerTransform string

const (
	TransformNone    AnswerTransform = "none"
	TransformReverse AnswerTransform = "reverse"
)

// swagger:model Enemy
type Enemy struct {
	BaseModel

	Name            string                   `gorm:"size:100;not null" json:"name"`
	Health          int                      `gorm:"not null" json:"health"`
	Damage          datatypes.JSONSlice[int] `json:"damage"`
	AttackType      AttackType               `gorm:"size:30;default:'basic'" json:"attackType"`
	AnswerTransform AnswerTransform          `gorm:"size:20;default:'none'" json:"answerTransform"`
}

func (Enemy) TableName() string {
	return "enemies"
}

// Curses reports whether a connecting attack from this enemy reverses the player's answers.
func (e *Enemy) Curses() bool {
	return e.AnswerTransform == TransformReverse
}
