package warnings

import "time"

// Warning одно предупреждение участнику в чате.
type Warning struct {
	ID        int64
	ScopeID   int64
	SubjectID int64
	WarnedBy  int64
	Reason    string
	CreatedAt time.Time
}
