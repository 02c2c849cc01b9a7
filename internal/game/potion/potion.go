// Package potion maps a consumed potion onto the battle state. It decides what changes;
// persisting the change and decrementing stock is the caller's job.
package potion

import (
	"errors"

	"code_quest_backend/internal/game/challenge"
	"code_quest_backend/internal/game/combat"
)

type Type string

const (
	Life     Type = "Life"
	Power    Type = "Power"
	Immunity Type = "Immunity"
	Reveal   Type = "Reveal"
)

var ErrUnknownType = errors.New("unknown potion type")

// State is the slice of battle state a potion can read.
type State struct {
	PlayerHP   int
	MaxHP      int
	Effects    combat.Effects
	BattleLost bool
	HasCurrent bool     // a challenge is being served
	CurrentID  uint     // id of the served challenge
	Recorded   []string // answer currently recorded for the served challenge
	Effective  []string // effective correct answer of the served challenge (curse applied)
	AudioCue   string   // cue from the potion catalog
}

// Outcome describes the mutation to apply.
type Outcome struct {
	// Applied is false when the potion was a no-op (buff already active, nothing to reveal).
	Applied bool
	// PlayerHP after the potion.
	PlayerHP int
	// Effects after the potion.
	Effects combat.Effects
	// Revive is set when a Life potion brings a lost battle back into play.
	Revive bool
	// Revealed holds the filled answer for CurrentID when a Reveal potion applied.
	Revealed []string
	Message  string
	AudioCue string
}

// Apply computes the effect of drinking a potion of type t.
func Apply(t Type, s State) (Outcome, error) {
	out := Outcome{
		PlayerHP: s.PlayerHP,
		Effects:  s.Effects,
		AudioCue: s.AudioCue,
	}

	switch t {
	case Life:
		out.Applied = true
		out.PlayerHP = s.MaxHP
		out.Revive = s.BattleLost
		out.Message = "Health fully restored!"
	case Power:
		if s.Effects.Power {
			out.Message = "You are already empowered."
			break
		}
		out.Applied = true
		out.Effects.Power = true
		out.Message = "Your attacks now deal double damage!"
	case Immunity:
		if s.Effects.Immunity {
			out.Message = "You are already protected from the next attack."
			break
		}
		out.Applied = true
		out.Effects.Immunity = true
		out.Message = "The enemy's next attack will be nullified."
	case Reveal:
		if !s.HasCurrent {
			out.Message = "There is no challenge to reveal."
			break
		}
		if challenge.Grade(s.Recorded, s.Effective) {
			out.Message = "The answer is already revealed."
			break
		}
		out.Applied = true
		out.Revealed = append([]string(nil), s.Effective...)
		out.Message = "The answer has been revealed. Attack to confirm it!"
	default:
		return Outcome{}, ErrUnknownType
	}

	if !out.Applied {
		out.AudioCue = ""
	}
	return out, nil
}
