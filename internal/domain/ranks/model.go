package ranks

import (
	"fmt"
	"strings"
	"time"
)

// Rank упорядочен: большее значение = больше прав.
type Rank int

const (
	RankUser    Rank = 1
	RankSupport Rank = 2
	RankSudo    Rank = 3
	RankDev     Rank = 4
	RankOwner   Rank = 5
)

// All в порядке возрастания.
var All = []Rank{RankUser, RankSupport, RankSudo, RankDev, RankOwner}

func (r Rank) String() string {
	switch r {
	case RankUser:
		return "user"
	case RankSupport:
		return "support"
	case RankSudo:
		return "sudo"
	case RankDev:
		return "dev"
	case RankOwner:
		return "owner"
	default:
		return fmt.Sprintf("rank(%d)", int(r))
	}
}

func (r Rank) Valid() bool { return r >= RankUser && r <= RankOwner }

// ParseRank понимает имена рангов; "admin" = sudo.
func ParseRank(s string) (Rank, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user":
		return RankUser, nil
	case "support":
		return RankSupport, nil
	case "sudo", "admin":
		return RankSudo, nil
	case "dev":
		return RankDev, nil
	case "owner":
		return RankOwner, nil
	default:
		return 0, fmt.Errorf("ranks: unknown rank %q", s)
	}
}

type Override struct {
	SubjectID int64
	Rank      Rank
	SetBy     int64
	SetAt     time.Time
}
