package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

// XPPerPlayerLevel 每200XP升一级
const XPPerPlayerLevel = 200

// PlayerLevel returns the player level for the given XP and the XP needed for the next one.
func PlayerLevel(xp int) (int, int) {
	if xp < 0 {
		xp = 0
	}
	level := xp / XPPerPlayerLevel
	return level, (level + 1) * XPPerPlayerLevel
}
