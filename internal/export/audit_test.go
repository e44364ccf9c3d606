package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Spok95/mod-bot/internal/domain/actions"
	"github.com/Spok95/mod-bot/internal/domain/modlog"
	"github.com/Spok95/mod-bot/internal/domain/ranks"
)

func TestAuditWritesAllSheets(t *testing.T) {
	issued := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	resolved := issued.Add(time.Hour)
	id := uuid.New()

	data, err := Audit([]actions.Action{{
		ID:         id,
		ScopeID:    -100,
		SubjectID:  42,
		Kind:       actions.KindMute,
		Status:     actions.StatusReversed,
		IssuedAt:   issued,
		ExpiresAt:  resolved,
		ResolvedAt: &resolved,
	}}, []ranks.Override{{SubjectID: 7, Rank: ranks.RankSudo, SetBy: 1, SetAt: issued}},
		[]modlog.Entry{
			{ScopeID: -100, ActorID: 3, Action: modlog.ActionKick, TargetID: 42, Details: "spam", CreatedAt: issued},
			{ScopeID: -100, ActorID: 3, Action: modlog.ActionLock, Details: "media", CreatedAt: resolved},
		})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(SheetActions)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "action_id", rows[0][0])
	assert.Equal(t, id.String(), rows[1][0])
	assert.Equal(t, "mute", rows[1][3])
	assert.Equal(t, "reversed", rows[1][4])
	assert.Equal(t, "2025-03-01 11:00:00", rows[1][7])

	rows, err = f.GetRows(SheetRanks)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"7", "sudo", "1", "2025-03-01 10:00:00"}, rows[1])

	rows, err = f.GetRows(SheetLog)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"2025-03-01 10:00:00", "3", "kick", "42", "spam"}, rows[1])
	assert.Equal(t, []string{"2025-03-01 11:00:00", "3", "lock", "", "media"}, rows[2])
}

func TestAuditEmpty(t *testing.T) {
	data, err := Audit(nil, nil, nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(SheetActions)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestFileName(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 4, 5, 0, time.UTC)
	assert.Equal(t, "audit_-100_20250301_100405.xlsx", FileName(-100, at))
}
