package user

import (
	"context"
	"database/sql"
	"errors"

	"chat-platform/pkg/utils"
)

// PostgresRepo is the durable user store.
//
// NOTE: This repository assumes the following table exists:
//
//	users (id, username, display_name, avatar_url, password_hash, created_at)
//	UNIQUE (username)
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Save(ctx context.Context, u User) error {
	const q = `
INSERT INTO users (id, username, display_name, avatar_url, password_hash, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id)
DO UPDATE SET username = EXCLUDED.username,
              display_name = EXCLUDED.display_name,
              avatar_url = EXCLUDED.avatar_url,
              password_hash = EXCLUDED.password_hash
`
	_, err := r.db.ExecContext(ctx, q, u.ID, u.Username, u.DisplayName, u.AvatarURL, u.PasswordHash, u.CreatedAt)
	return err
}

func (r *PostgresRepo) FindByID(ctx context.Context, id string) (User, bool, error) {
	const q = `
SELECT id, username, display_name, avatar_url, password_hash, created_at
FROM users
WHERE id = $1
`
	return r.scanOne(r.db.QueryRowContext(ctx, q, id))
}

func (r *PostgresRepo) FindByUsername(ctx context.Context, username string) (User, bool, error) {
	const q = `
SELECT id, username, display_name, avatar_url, password_hash, created_at
FROM users
WHERE username = $1
`
	return r.scanOne(r.db.QueryRowContext(ctx, q, username))
}

func (r *PostgresRepo) FindAll(ctx context.Context) ([]User, error) {
	const q = `
SELECT id, username, display_name, avatar_url, password_hash, created_at
FROM users
ORDER BY created_at
`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.DisplayName, &u.AvatarURL, &u.PasswordHash, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Update(ctx context.Context, id string, fn func(User) User) (User, bool, error) {
	var out User
	found := false

	err := utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		const sel = `
SELECT id, username, display_name, avatar_url, password_hash, created_at
FROM users
WHERE id = $1
FOR UPDATE
`
		var u User
		if err := tx.QueryRowContext(ctx, sel, id).Scan(
			&u.ID, &u.Username, &u.DisplayName, &u.AvatarURL, &u.PasswordHash, &u.CreatedAt,
		); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return err
		}

		updated := fn(u)
		updated.ID = u.ID

		const upd = `
UPDATE users
SET username = $2, display_name = $3, avatar_url = $4, password_hash = $5
WHERE id = $1
`
		if _, err := tx.ExecContext(ctx, upd, updated.ID, updated.Username, updated.DisplayName, updated.AvatarURL, updated.PasswordHash); err != nil {
			return err
		}
		out = updated
		found = true
		return nil
	})
	return out, found, err
}

func (r *PostgresRepo) scanOne(row *sql.Row) (User, bool, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.DisplayName, &u.AvatarURL, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, false, nil
		}
		return User{}, false, err
	}
	return u, true, nil
}
