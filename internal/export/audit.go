// Package export собирает xlsx-выгрузки для /export.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Spok95/mod-bot/internal/domain/actions"
	"github.com/Spok95/mod-bot/internal/domain/modlog"
	"github.com/Spok95/mod-bot/internal/domain/ranks"
)

const (
	SheetActions = "actions"
	SheetRanks   = "ranks"
	SheetLog     = "log"
)

const timeLayout = "2006-01-02 15:04:05"

// Audit вкладки: временные действия чата, назначенные ранги и журнал модерации.
func Audit(list []actions.Action, overrides []ranks.Override, entries []modlog.Entry) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	first := f.GetSheetName(f.GetActiveSheetIndex())
	if err := f.SetSheetName(first, SheetActions); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	header := []interface{}{
		"action_id",
		"scope_id",
		"subject_id",
		"kind",
		"status",
		"issued_at",
		"expires_at",
		"resolved_at",
		"attempts",
		"last_error",
		"flagged_at",
	}
	if err := f.SetSheetRow(SheetActions, "A1", &header); err != nil {
		return nil, fmt.Errorf("actions header: %w", err)
	}
	for i, a := range list {
		row := []interface{}{
			a.ID.String(),
			a.ScopeID,
			a.SubjectID,
			string(a.Kind),
			string(a.Status),
			a.IssuedAt.UTC().Format(timeLayout),
			a.ExpiresAt.UTC().Format(timeLayout),
			optTime(a.ResolvedAt),
			a.Attempts,
			a.LastError,
			optTime(a.FlaggedAt),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(SheetActions, cell, &row); err != nil {
			return nil, fmt.Errorf("actions row %d: %w", i+2, err)
		}
	}

	if _, err := f.NewSheet(SheetRanks); err != nil {
		return nil, fmt.Errorf("ranks sheet: %w", err)
	}
	header = []interface{}{"subject_id", "rank", "set_by", "set_at"}
	if err := f.SetSheetRow(SheetRanks, "A1", &header); err != nil {
		return nil, fmt.Errorf("ranks header: %w", err)
	}
	for i, o := range overrides {
		row := []interface{}{o.SubjectID, o.Rank.String(), o.SetBy, o.SetAt.UTC().Format(timeLayout)}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(SheetRanks, cell, &row); err != nil {
			return nil, fmt.Errorf("ranks row %d: %w", i+2, err)
		}
	}

	if _, err := f.NewSheet(SheetLog); err != nil {
		return nil, fmt.Errorf("log sheet: %w", err)
	}
	header = []interface{}{"created_at", "actor_id", "action", "target_id", "details"}
	if err := f.SetSheetRow(SheetLog, "A1", &header); err != nil {
		return nil, fmt.Errorf("log header: %w", err)
	}
	for i, e := range entries {
		var target interface{}
		if e.TargetID != 0 {
			target = e.TargetID
		}
		row := []interface{}{e.CreatedAt.UTC().Format(timeLayout), e.ActorID, string(e.Action), target, e.Details}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(SheetLog, cell, &row); err != nil {
			return nil, fmt.Errorf("log row %d: %w", i+2, err)
		}
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

// FileName audit_<chat>_<время>.xlsx
func FileName(scopeID int64, at time.Time) string {
	return fmt.Sprintf("audit_%d_%s.xlsx", scopeID, at.Format("20060102_150405"))
}

func optTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(timeLayout)
}
