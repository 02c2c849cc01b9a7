package service

import (
	"context"
	"time"

	"code_quest_backend/internal/model"
	"code_quest_backend/pkg/logger"

	"go.uber.org/zap"
)

type EventType string

const (
	EventQuestCompleted      EventType = "questCompleted"
	EventAchievementUnlocked EventType = "achievementUnlocked"
	EventPlayerLeveledUp     EventType = "playerLeveledUp"
	EventLevelCompleted      EventType = "levelCompleted"
)

// Event is what a player's realtime channel receives. ID lets clients drop duplicates,
// since notifications are delivered at least once.
type Event struct {
	ID   string      `json:"id"`
	Type EventType   `json:"type"`
	Data interface{} `json:"data"`
	At   time.Time   `json:"at"`
}

// QuestProgressor advances quest objectives for a player.
type QuestProgressor interface {
	OnQuestProgress(ctx context.Context, playerID uint, objective model.QuestObjective, delta int) error
}

// AchievementChecker re-evaluates the player's locked achievements.
type AchievementChecker interface {
	OnAchievementCheck(ctx context.Context, playerID uint) error
}

// Notifier pushes an event to one player. Implementations must not block.
type Notifier interface {
	Emit(ctx context.Context, playerID uint, eventType EventType, data interface{})
}

type NopNotifier struct{}

func (NopNotifier) Emit(context.Context, uint, EventType, interface{}) {}

type questDelta struct {
	objective model.QuestObjective
	delta     int
}

type pendingEvent struct {
	eventType EventType
	data      interface{}
}

// Outbox collects the side effects of one request while its transaction is open. Nothing in
// it runs until the transaction commits.
type Outbox struct {
	PlayerID         uint
	quests           []questDelta
	checkAchievement bool
	events           []pendingEvent
}

func NewOutbox(playerID uint) *Outbox {
	return &Outbox{PlayerID: playerID}
}

func (o *Outbox) Quest(objective model.QuestObjective, delta int) {
	if delta <= 0 {
		return
	}
	o.quests = append(o.quests, questDelta{objective: objective, delta: delta})
}

func (o *Outbox) CheckAchievements() {
	o.checkAchievement = true
}

func (o *Outbox) Event(eventType EventType, data interface{}) {
	o.events = append(o.events, pendingEvent{eventType: eventType, data: data})
}

func (o *Outbox) Empty() bool {
	return len(o.quests) == 0 && !o.checkAchievement && len(o.events) == 0
}

// SideEffects runs an Outbox after commit. Failures are logged and never reach the caller:
// the battle state is already durable at this point.
type SideEffects struct {
	Quests       QuestProgressor
	Achievements AchievementChecker
	Notifier     Notifier
}

func NewSideEffects(quests QuestProgressor, achievements AchievementChecker, notifier Notifier) *SideEffects {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &SideEffects{
		Quests:       quests,
		Achievements: achievements,
		Notifier:     notifier,
	}
}

func (s *SideEffects) Dispatch(ctx context.Context, box *Outbox) {
	if s == nil || box == nil || box.Empty() {
		return
	}

	for _, e := range box.events {
		s.Notifier.Emit(ctx, box.PlayerID, e.eventType, e.data)
	}

	if s.Quests != nil {
		for _, q := range box.quests {
			if err := s.Quests.OnQuestProgress(ctx, box.PlayerID, q.objective, q.delta); err != nil {
				logger.Log.Error("Quest progress failed",
					zap.Uint("playerId", box.PlayerID),
					zap.String("objective", string(q.objective)),
					zap.Error(err))
			}
		}
	}

	if box.checkAchievement && s.Achievements != nil {
		if err := s.Achievements.OnAchievementCheck(ctx, box.PlayerID); err != nil {
			logger.Log.Error("Achievement check failed", zap.Uint("playerId", box.PlayerID), zap.Error(err))
		}
	}
}
