package service

import (
	"sync/atomic"
	"time"

	"code_quest_backend/internal/config"
)

// GameRules holds the battle tuning that the config watcher may swap at runtime.
type GameRules struct {
	answerWindow atomic.Int64
}

func NewGameRules(cfg config.GameConfig) *GameRules {
	r := &GameRules{}
	r.Apply(cfg)
	return r
}

func (r *GameRules) Apply(cfg config.GameConfig) {
	window := cfg.AnswerWindow()
	if window <= 0 {
		window = 10 * time.Second
	}
	r.answerWindow.Store(int64(window))
}

// AnswerWindow is how long a served challenge may stay unanswered before it times out.
func (r *GameRules) AnswerWindow() time.Duration {
	return time.Duration(r.answerWindow.Load())
}
