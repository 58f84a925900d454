package message

import (
	"context"
	"database/sql"
	"errors"
)

// PostgresRepo is the durable message store.
//
// NOTE: This repository assumes the following table exists:
//
//	messages (id, sender_id, group_id, dm_id, content, created_at, edited_at)
//	INDEX (group_id, created_at), INDEX (dm_id, created_at)
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Save(ctx context.Context, m Message) error {
	const q = `
INSERT INTO messages (id, sender_id, group_id, dm_id, content, created_at, edited_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id)
DO UPDATE SET content = EXCLUDED.content,
              edited_at = EXCLUDED.edited_at
`
	_, err := r.db.ExecContext(ctx, q, m.ID, m.SenderID, m.GroupID, m.DMID, m.Content, m.CreatedAt, m.EditedAt)
	return err
}

func (r *PostgresRepo) FindByID(ctx context.Context, id string) (Message, bool, error) {
	const q = `
SELECT id, sender_id, group_id, dm_id, content, created_at, edited_at
FROM messages
WHERE id = $1
`
	var m Message
	err := r.db.QueryRowContext(ctx, q, id).Scan(&m.ID, &m.SenderID, &m.GroupID, &m.DMID, &m.Content, &m.CreatedAt, &m.EditedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Message{}, false, nil
		}
		return Message{}, false, err
	}
	return m, true, nil
}

func (r *PostgresRepo) FindByGroup(ctx context.Context, groupID string, limit, offset int) ([]Message, error) {
	const q = `
SELECT id, sender_id, group_id, dm_id, content, created_at, edited_at
FROM messages
WHERE group_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3
`
	return r.list(ctx, q, groupID, limit, offset)
}

func (r *PostgresRepo) FindByDM(ctx context.Context, dmID string, limit, offset int) ([]Message, error) {
	const q = `
SELECT id, sender_id, group_id, dm_id, content, created_at, edited_at
FROM messages
WHERE dm_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3
`
	return r.list(ctx, q, dmID, limit, offset)
}

func (r *PostgresRepo) Update(ctx context.Context, id string, fn func(Message) Message) (Message, bool, error) {
	m, ok, err := r.FindByID(ctx, id)
	if err != nil || !ok {
		return Message{}, ok, err
	}
	updated := fn(m)
	updated.ID = m.ID
	if err := r.Save(ctx, updated); err != nil {
		return Message{}, false, err
	}
	return updated, true, nil
}

func (r *PostgresRepo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PostgresRepo) list(ctx context.Context, q, scopeID string, limit, offset int) ([]Message, error) {
	rows, err := r.db.QueryContext(ctx, q, scopeID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.GroupID, &m.DMID, &m.Content, &m.CreatedAt, &m.EditedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
