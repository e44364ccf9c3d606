package actions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const selectCols = `action_id, scope_id, subject_id, kind, issued_at, expires_at, status,
	attempts, last_error, flagged_at, resolved_at`

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

// Supersede в одной транзакции отменяет pending по ключу и вставляет новую запись.
// Возвращает id отменённых.
func (r *Repo) Supersede(ctx context.Context, a Action) ([]uuid.UUID, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
		UPDATE scheduled_actions
		SET status = 'cancelled', resolved_at = $4
		WHERE scope_id = $1 AND subject_id = $2 AND kind = $3 AND status = 'pending'
		RETURNING action_id
	`, a.ScopeID, a.SubjectID, string(a.Kind), a.IssuedAt)
	if err != nil {
		return nil, err
	}
	var superseded []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		superseded = append(superseded, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err = tx.Exec(ctx, `
		INSERT INTO scheduled_actions (action_id, scope_id, subject_id, kind, issued_at, expires_at, status)
		VALUES ($1,$2,$3,$4,$5,$6,'pending')
	`, a.ID, a.ScopeID, a.SubjectID, string(a.Kind), a.IssuedAt, a.ExpiresAt); err != nil {
		return nil, err
	}

	return superseded, tx.Commit(ctx)
}

func (r *Repo) CancelPending(ctx context.Context, k Key, at time.Time) (uuid.UUID, bool, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
		UPDATE scheduled_actions
		SET status = 'cancelled', resolved_at = $4
		WHERE scope_id = $1 AND subject_id = $2 AND kind = $3 AND status = 'pending'
		RETURNING action_id
	`, k.ScopeID, k.SubjectID, string(k.Kind), at).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	return id, true, nil
}

// MarkReversed переводит только pending-запись.
func (r *Repo) MarkReversed(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE scheduled_actions
		SET status = 'reversed', resolved_at = $2
		WHERE action_id = $1 AND status = 'pending'
	`, id, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repo) MarkFailed(ctx context.Context, id uuid.UUID, attempts int, lastErr string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE scheduled_actions
		SET attempts = attempts + $2, last_error = $3, flagged_at = $4
		WHERE action_id = $1 AND status = 'pending'
	`, id, attempts, lastErr, at)
	return err
}

func (r *Repo) Get(ctx context.Context, id uuid.UUID) (*Action, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+selectCols+` FROM scheduled_actions WHERE action_id = $1`, id)
	a, err := scanAction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

func (r *Repo) GetPending(ctx context.Context, k Key) (*Action, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+selectCols+`
		FROM scheduled_actions
		WHERE scope_id = $1 AND subject_id = $2 AND kind = $3 AND status = 'pending'
	`, k.ScopeID, k.SubjectID, string(k.Kind))
	a, err := scanAction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

func (r *Repo) ListPending(ctx context.Context) ([]Action, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+selectCols+`
		FROM scheduled_actions
		WHERE status = 'pending'
		ORDER BY expires_at
	`)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// ListByScope последние записи чата, новые первыми; limit <= 0 = без ограничения.
func (r *Repo) ListByScope(ctx context.Context, scopeID int64, onlyPending bool, limit int) ([]Action, error) {
	q := `SELECT ` + selectCols + ` FROM scheduled_actions WHERE scope_id = $1`
	if onlyPending {
		q += ` AND status = 'pending'`
	}
	q += ` ORDER BY issued_at DESC LIMIT $2`

	var lim *int
	if limit > 0 {
		lim = &limit
	}
	rows, err := r.pool.Query(ctx, q, scopeID, lim)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *Repo) PruneResolved(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM scheduled_actions
		WHERE status <> 'pending' AND resolved_at < $1
	`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanAction(row pgx.Row) (*Action, error) {
	var a Action
	var kind, status string
	if err := row.Scan(
		&a.ID,
		&a.ScopeID,
		&a.SubjectID,
		&kind,
		&a.IssuedAt,
		&a.ExpiresAt,
		&status,
		&a.Attempts,
		&a.LastError,
		&a.FlaggedAt,
		&a.ResolvedAt,
	); err != nil {
		return nil, err
	}
	a.Kind = Kind(kind)
	a.Status = Status(status)
	return &a, nil
}

func collect(rows pgx.Rows) ([]Action, error) {
	defer rows.Close()
	var out []Action
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}
