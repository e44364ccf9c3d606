package actions

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindBan  Kind = "ban"
	KindMute Kind = "mute"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindBan, KindMute:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("actions: unknown kind %q", s)
	}
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusReversed  Status = "reversed"
	StatusCancelled Status = "cancelled"
)

// Terminal: reversed и cancelled обратно в pending не переходят.
func (s Status) Terminal() bool { return s == StatusReversed || s == StatusCancelled }

// Key не больше одной pending-записи на ключ.
type Key struct {
	ScopeID   int64
	SubjectID int64
	Kind      Kind
}

func (k Key) String() string {
	return fmt.Sprintf("%d:%d:%s", k.ScopeID, k.SubjectID, k.Kind)
}

type Action struct {
	ID         uuid.UUID
	ScopeID    int64
	SubjectID  int64
	Kind       Kind
	IssuedAt   time.Time
	ExpiresAt  time.Time
	Status     Status
	Attempts   int
	LastError  string
	FlaggedAt  *time.Time
	ResolvedAt *time.Time

	// Permanent: действие без срока, в хранилище не пишется.
	Permanent bool
}

func (a Action) Key() Key {
	return Key{ScopeID: a.ScopeID, SubjectID: a.SubjectID, Kind: a.Kind}
}

// Restriction ответ транспорта о текущем состоянии участника.
type Restriction string

const (
	Unrestricted Restriction = "unrestricted"
	Restricted   Restriction = "restricted"
	Unknown      Restriction = "unknown"
)
