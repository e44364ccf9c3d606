package modlog

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

func (r *Repo) Write(ctx context.Context, e Entry) error {
	var target *int64
	if e.TargetID != 0 {
		target = &e.TargetID
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO moderation_log (scope_id, actor_id, action, target_id, details, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, e.ScopeID, e.ActorID, string(e.Action), target, e.Details, e.CreatedAt)
	return err
}

// List последние записи чата, новые первыми; limit <= 0 = без ограничения.
func (r *Repo) List(ctx context.Context, scopeID int64, limit int) ([]Entry, error) {
	var lim *int
	if limit > 0 {
		lim = &limit
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, scope_id, actor_id, action, COALESCE(target_id, 0), details, created_at
		FROM moderation_log
		WHERE scope_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, scopeID, lim)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var action string
		if err := rows.Scan(&e.ID, &e.ScopeID, &e.ActorID, &action, &e.TargetID, &e.Details, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Action = Action(action)
		out = append(out, e)
	}
	return out, rows.Err()
}
