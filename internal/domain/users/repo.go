package users

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

func (r *Repo) GetByTelegramID(ctx context.Context, tgID int64) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT telegram_id, username, first_name, last_name, created_at, updated_at
		FROM users WHERE telegram_id = $1
	`, tgID)
	return scanUser(row)
}

// GetByUsername без учёта регистра, "@" в начале допускается.
func (r *Repo) GetByUsername(ctx context.Context, username string) (*User, error) {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		return nil, nil
	}
	row := r.pool.QueryRow(ctx, `
		SELECT telegram_id, username, first_name, last_name, created_at, updated_at
		FROM users WHERE lower(username) = lower($1)
		ORDER BY updated_at DESC
		LIMIT 1
	`, username)
	return scanUser(row)
}

// Touch Upsert по Telegram-профилю при каждом сообщении.
func (r *Repo) Touch(ctx context.Context, tg Telegram) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (telegram_id, username, first_name, last_name)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (telegram_id)
		DO UPDATE SET
			username   = EXCLUDED.username,
			first_name = EXCLUDED.first_name,
			last_name  = EXCLUDED.last_name,
			updated_at = now()
	`, tg.ID, tg.Username, tg.FirstName, tg.LastName)
	return err
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.TelegramID, &u.Username, &u.FirstName, &u.LastName, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}
