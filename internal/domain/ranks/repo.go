package ranks

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

func (r *Repo) Get(ctx context.Context, subjectID int64) (*Override, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT subject_id, rank, set_by, set_at
		FROM rank_overrides WHERE subject_id = $1
	`, subjectID)

	var o Override
	if err := row.Scan(&o.SubjectID, &o.Rank, &o.SetBy, &o.SetAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

// Upsert одной командой, читатель видит либо старую строку, либо новую.
func (r *Repo) Upsert(ctx context.Context, o Override) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO rank_overrides (subject_id, rank, set_by, set_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (subject_id)
		DO UPDATE SET
			rank   = EXCLUDED.rank,
			set_by = EXCLUDED.set_by,
			set_at = EXCLUDED.set_at
	`, o.SubjectID, int(o.Rank), o.SetBy, o.SetAt)
	return err
}

func (r *Repo) Delete(ctx context.Context, subjectID int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM rank_overrides WHERE subject_id = $1`, subjectID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repo) List(ctx context.Context) ([]Override, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT subject_id, rank, set_by, set_at
		FROM rank_overrides
		ORDER BY rank DESC, subject_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Override
	for rows.Next() {
		var o Override
		if err := rows.Scan(&o.SubjectID, &o.Rank, &o.SetBy, &o.SetAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
