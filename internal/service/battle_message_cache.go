package service

import (
	"math/rand"
	"sync"
	"time"

	"code_quest_backend/internal/model"
	"code_quest_backend/internal/util"
	"code_quest_backend/pkg/logger"

	"go.uber.org/zap"
)

const TimeoutMessage = "Time's up!"

// refreshRetry spaces out reload attempts while the source keeps failing.
const refreshRetry = 30 * time.Second

var fallbackMessages = map[model.MessageCategory]string{
	model.MessageCorrect: "Correct! You strike the enemy.",
	model.MessageWrong:   "Wrong answer! The enemy strikes back.",
	model.MessageVictory: "Level complete!",
	model.MessageDefeat:  "You have been defeated.",
	model.MessageBlocked: "Your immunity blocked the attack!",
}

// MessageSource loads the enabled battle messages.
type MessageSource interface {
	GetEnabled() ([]model.BattleMessage, error)
}

// MessageCache keeps the battle message pools in memory and reloads them once they are
// older than the refresh interval. Build one per process and share it.
type MessageCache struct {
	source  MessageSource
	clock   util.Clock
	refresh time.Duration

	mu          sync.RWMutex
	pools       map[model.MessageCategory][]string
	lastRefresh time.Time
	lastAttempt time.Time

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewMessageCache(source MessageSource, clock util.Clock, refresh time.Duration) *MessageCache {
	if clock == nil {
		clock = util.SystemClock{}
	}
	if refresh <= 0 {
		refresh = 10 * time.Minute
	}
	return &MessageCache{
		source:  source,
		clock:   clock,
		refresh: refresh,
		pools:   make(map[model.MessageCategory][]string),
		rnd:     rand.New(rand.NewSource(clock.Now().UnixNano())),
	}
}

// Pick returns a random message of the category, falling back to a built-in line when the
// pool is empty.
func (c *MessageCache) Pick(category model.MessageCategory) string {
	if c == nil {
		return fallbackMessages[category]
	}
	pool := c.Pool(category)
	if len(pool) == 0 {
		return fallbackMessages[category]
	}
	c.rndMu.Lock()
	i := c.rnd.Intn(len(pool))
	c.rndMu.Unlock()
	return pool[i]
}

// Pool returns the current messages of a category, reloading stale pools first.
func (c *MessageCache) Pool(category model.MessageCategory) []string {
	c.ensureFresh()

	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.pools[category]...)
}

// LastRefresh is the time of the last successful load.
func (c *MessageCache) LastRefresh() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastRefresh
}

func (c *MessageCache) ensureFresh() {
	now := c.clock.Now()
	retry := refreshRetry
	if c.refresh < retry {
		retry = c.refresh
	}

	c.mu.Lock()
	fresh := !c.lastRefresh.IsZero() && now.Sub(c.lastRefresh) < c.refresh
	waiting := !c.lastAttempt.IsZero() && now.Sub(c.lastAttempt) < retry
	if fresh || waiting {
		c.mu.Unlock()
		return
	}
	c.lastAttempt = now
	c.mu.Unlock()

	if err := c.Refresh(); err != nil {
		logger.Log.Warn("Battle message refresh failed, keeping previous pools", zap.Error(err))
	}
}

// Refresh reloads every pool. On error the previous pools stay in place.
func (c *MessageCache) Refresh() error {
	if c.source == nil {
		return nil
	}
	messages, err := c.source.GetEnabled()
	if err != nil {
		return err
	}

	pools := make(map[model.MessageCategory][]string)
	for _, m := range messages {
		if m.Content == "" {
			continue
		}
		pools[m.Category] = append(pools[m.Category], m.Content)
	}

	c.mu.Lock()
	c.pools = pools
	c.lastRefresh = c.clock.Now()
	c.mu.Unlock()
	return nil
}
