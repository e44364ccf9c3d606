package warnings

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

// Add сохраняет предупреждение и возвращает, сколько их теперь у участника в чате.
func (r *Repo) Add(ctx context.Context, w Warning) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err = tx.Exec(ctx, `
		INSERT INTO warnings (scope_id, subject_id, warned_by, reason, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, w.ScopeID, w.SubjectID, w.WarnedBy, w.Reason, w.CreatedAt); err != nil {
		return 0, err
	}

	var n int
	if err = tx.QueryRow(ctx, `
		SELECT count(*) FROM warnings WHERE scope_id = $1 AND subject_id = $2
	`, w.ScopeID, w.SubjectID).Scan(&n); err != nil {
		return 0, err
	}
	return n, tx.Commit(ctx)
}

// List предупреждения участника, новые первыми.
func (r *Repo) List(ctx context.Context, scopeID, subjectID int64) ([]Warning, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, scope_id, subject_id, warned_by, reason, created_at
		FROM warnings
		WHERE scope_id = $1 AND subject_id = $2
		ORDER BY created_at DESC, id DESC
	`, scopeID, subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Warning
	for rows.Next() {
		var w Warning
		if err := rows.Scan(&w.ID, &w.ScopeID, &w.SubjectID, &w.WarnedBy, &w.Reason, &w.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *Repo) Clear(ctx context.Context, scopeID, subjectID int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM warnings WHERE scope_id = $1 AND subject_id = $2`, scopeID, subjectID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
