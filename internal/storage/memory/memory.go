// Package memory потокобезопасные in-memory реализации хранилищ для тестов.
// В рабочем процессе не используется: отложенные снятия обязаны жить в Postgres.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Spok95/mod-bot/internal/domain/actions"
	"github.com/Spok95/mod-bot/internal/domain/modlog"
	"github.com/Spok95/mod-bot/internal/domain/ranks"
	"github.com/Spok95/mod-bot/internal/domain/users"
	"github.com/Spok95/mod-bot/internal/domain/warnings"
)

// Ranks хранилище назначений рангов.
type Ranks struct {
	mu   sync.RWMutex
	rows map[int64]ranks.Override
	Err  error // если задано, все вызовы возвращают эту ошибку
}

func NewRanks() *Ranks { return &Ranks{rows: make(map[int64]ranks.Override)} }

func (s *Ranks) Get(_ context.Context, subjectID int64) (*ranks.Override, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	o, ok := s.rows[subjectID]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (s *Ranks) Upsert(_ context.Context, o ranks.Override) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.rows[o.SubjectID] = o
	return nil
}

func (s *Ranks) Delete(_ context.Context, subjectID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	_, ok := s.rows[subjectID]
	delete(s.rows, subjectID)
	return ok, nil
}

func (s *Ranks) List(_ context.Context) ([]ranks.Override, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]ranks.Override, 0, len(s.rows))
	for _, o := range s.rows {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rank != out[j].Rank {
			return out[i].Rank > out[j].Rank
		}
		return out[i].SubjectID < out[j].SubjectID
	})
	return out, nil
}

// Actions таблица scheduled_actions: map по action_id.
type Actions struct {
	mu   sync.Mutex
	rows map[uuid.UUID]actions.Action
	Err  error
}

func NewActions() *Actions { return &Actions{rows: make(map[uuid.UUID]actions.Action)} }

func (s *Actions) Supersede(_ context.Context, a actions.Action) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var superseded []uuid.UUID
	for id, row := range s.rows {
		if row.Key() == a.Key() && row.Status == actions.StatusPending {
			at := a.IssuedAt
			row.Status = actions.StatusCancelled
			row.ResolvedAt = &at
			s.rows[id] = row
			superseded = append(superseded, id)
		}
	}
	a.Status = actions.StatusPending
	s.rows[a.ID] = a
	return superseded, nil
}

func (s *Actions) CancelPending(_ context.Context, k actions.Key, at time.Time) (uuid.UUID, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return uuid.Nil, false, s.Err
	}
	for id, row := range s.rows {
		if row.Key() == k && row.Status == actions.StatusPending {
			row.Status = actions.StatusCancelled
			row.ResolvedAt = &at
			s.rows[id] = row
			return id, true, nil
		}
	}
	return uuid.Nil, false, nil
}

func (s *Actions) MarkReversed(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	row, ok := s.rows[id]
	if !ok || row.Status != actions.StatusPending {
		return false, nil
	}
	row.Status = actions.StatusReversed
	row.ResolvedAt = &at
	s.rows[id] = row
	return true, nil
}

func (s *Actions) MarkFailed(_ context.Context, id uuid.UUID, attempts int, lastErr string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	row, ok := s.rows[id]
	if !ok || row.Status != actions.StatusPending {
		return nil
	}
	row.Attempts += attempts
	row.LastError = lastErr
	row.FlaggedAt = &at
	s.rows[id] = row
	return nil
}

func (s *Actions) Get(_ context.Context, id uuid.UUID) (*actions.Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	row, ok := s.rows[id]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (s *Actions) GetPending(_ context.Context, k actions.Key) (*actions.Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, row := range s.rows {
		if row.Key() == k && row.Status == actions.StatusPending {
			return &row, nil
		}
	}
	return nil, nil
}

func (s *Actions) ListPending(_ context.Context) ([]actions.Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []actions.Action
	for _, row := range s.rows {
		if row.Status == actions.StatusPending {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	return out, nil
}

func (s *Actions) ListByScope(_ context.Context, scopeID int64, onlyPending bool, limit int) ([]actions.Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []actions.Action
	for _, row := range s.rows {
		if row.ScopeID != scopeID {
			continue
		}
		if onlyPending && row.Status != actions.StatusPending {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.After(out[j].IssuedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Actions) PruneResolved(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	var n int64
	for id, row := range s.rows {
		if row.Status.Terminal() && row.ResolvedAt != nil && row.ResolvedAt.Before(before) {
			delete(s.rows, id)
			n++
		}
	}
	return n, nil
}

// All снимок таблицы для проверок в тестах.
func (s *Actions) All() []actions.Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]actions.Action, 0, len(s.rows))
	for _, row := range s.rows {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.Before(out[j].IssuedAt) })
	return out
}

// SetErr переключает режим отказа хранилища.
func (s *Actions) SetErr(err error) {
	s.mu.Lock()
	s.Err = err
	s.mu.Unlock()
}

// Users справочник увиденных пользователей.
type Users struct {
	mu   sync.RWMutex
	rows map[int64]users.User
}

func NewUsers() *Users { return &Users{rows: make(map[int64]users.User)} }

func (s *Users) Touch(_ context.Context, tg users.Telegram) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	u, ok := s.rows[tg.ID]
	if !ok {
		u = users.User{TelegramID: tg.ID, CreatedAt: now}
	}
	u.Username, u.FirstName, u.LastName, u.UpdatedAt = tg.Username, tg.FirstName, tg.LastName, now
	s.rows[tg.ID] = u
	return nil
}

func (s *Users) GetByTelegramID(_ context.Context, tgID int64) (*users.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.rows[tgID]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *Users) GetByUsername(_ context.Context, username string) (*users.User, error) {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.rows {
		if username != "" && strings.EqualFold(u.Username, username) {
			return &u, nil
		}
	}
	return nil, nil
}

// Warnings предупреждения участников.
type Warnings struct {
	mu   sync.Mutex
	rows []warnings.Warning
	seq  int64
	Err  error
}

func NewWarnings() *Warnings { return &Warnings{} }

func (s *Warnings) Add(_ context.Context, w warnings.Warning) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	s.seq++
	w.ID = s.seq
	s.rows = append(s.rows, w)
	return s.countLocked(w.ScopeID, w.SubjectID), nil
}

func (s *Warnings) List(_ context.Context, scopeID, subjectID int64) ([]warnings.Warning, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []warnings.Warning
	for i := len(s.rows) - 1; i >= 0; i-- {
		if w := s.rows[i]; w.ScopeID == scopeID && w.SubjectID == subjectID {
			out = append(out, w)
		}
	}
	return out, nil
}

func (s *Warnings) Clear(_ context.Context, scopeID, subjectID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	kept := s.rows[:0]
	var n int64
	for _, w := range s.rows {
		if w.ScopeID == scopeID && w.SubjectID == subjectID {
			n++
			continue
		}
		kept = append(kept, w)
	}
	s.rows = kept
	return n, nil
}

func (s *Warnings) countLocked(scopeID, subjectID int64) int {
	n := 0
	for _, w := range s.rows {
		if w.ScopeID == scopeID && w.SubjectID == subjectID {
			n++
		}
	}
	return n
}

// Log журнал модерации.
type Log struct {
	mu   sync.Mutex
	rows []modlog.Entry
	seq  int64
	Err  error
}

func NewLog() *Log { return &Log{} }

func (s *Log) Write(_ context.Context, e modlog.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.seq++
	e.ID = s.seq
	s.rows = append(s.rows, e)
	return nil
}

func (s *Log) List(_ context.Context, scopeID int64, limit int) ([]modlog.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []modlog.Entry
	for i := len(s.rows) - 1; i >= 0; i-- {
		if s.rows[i].ScopeID != scopeID {
			continue
		}
		out = append(out, s.rows[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Actions действия журнала по порядку записи, для проверок в тестах.
func (s *Log) Actions() []modlog.Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]modlog.Action, 0, len(s.rows))
	for _, e := range s.rows {
		out = append(out, e.Action)
	}
	return out
}
