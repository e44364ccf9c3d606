package modlog

import "time"

type Action string

const (
	ActionBan       Action = "ban"
	ActionUnban     Action = "unban"
	ActionMute      Action = "mute"
	ActionUnmute    Action = "unmute"
	ActionKick      Action = "kick"
	ActionPromote   Action = "promote"
	ActionDemote    Action = "demote"
	ActionPurge     Action = "purge"
	ActionWarn      Action = "warn"
	ActionClearWarn Action = "clearwarns"
	ActionPin       Action = "pin"
	ActionUnpin     Action = "unpin"
	ActionLock      Action = "lock"
	ActionUnlock    Action = "unlock"
	ActionReport    Action = "report"
	ActionSetRank   Action = "setrank"
	ActionClearRank Action = "clearrank"
)

// Entry запись журнала модерации. TargetID 0 значит "без цели" (purge, lock).
type Entry struct {
	ID        int64
	ScopeID   int64
	ActorID   int64
	Action    Action
	TargetID  int64
	Details   string
	CreatedAt time.Time
}
