package storage

import (
	"context"
	"database/sql"
)

const listCategories = `-- name: ListCategories :many
SELECT id, kind, parent_id, level, name, full_path, enabled, created_at
FROM categories
WHERE kind = ?1
ORDER BY id
`

func (q *Queries) ListCategories(ctx context.Context, kind string) ([]Category, error) {
	rows, err := q.db.QueryContext(ctx, listCategories, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Category
	for rows.Next() {
		var i Category
		if err := rows.Scan(
			&i.ID,
			&i.Kind,
			&i.ParentID,
			&i.Level,
			&i.Name,
			&i.FullPath,
			&i.Enabled,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getCategory = `-- name: GetCategory :one
SELECT id, kind, parent_id, level, name, full_path, enabled, created_at
FROM categories
WHERE id = ?1
`

func (q *Queries) GetCategory(ctx context.Context, id int64) (Category, error) {
	row := q.db.QueryRowContext(ctx, getCategory, id)
	var i Category
	err := row.Scan(
		&i.ID,
		&i.Kind,
		&i.ParentID,
		&i.Level,
		&i.Name,
		&i.FullPath,
		&i.Enabled,
		&i.CreatedAt,
	)
	return i, err
}

const upsertCategory = `-- name: UpsertCategory :one
INSERT INTO categories (kind, parent_id, level, name, full_path, enabled, created_at)
VALUES (?1, ?2, ?3, ?4, ?5, 1, ?6)
ON CONFLICT (kind, full_path) DO UPDATE SET full_path = excluded.full_path
RETURNING id, kind, parent_id, level, name, full_path, enabled, created_at
`

type UpsertCategoryParams struct {
	Kind      string
	ParentID  sql.NullInt64
	Level     int64
	Name      string
	FullPath  string
	CreatedAt string
}

func (q *Queries) UpsertCategory(ctx context.Context, arg UpsertCategoryParams) (Category, error) {
	row := q.db.QueryRowContext(ctx, upsertCategory,
		arg.Kind,
		arg.ParentID,
		arg.Level,
		arg.Name,
		arg.FullPath,
		arg.CreatedAt,
	)
	var i Category
	err := row.Scan(
		&i.ID,
		&i.Kind,
		&i.ParentID,
		&i.Level,
		&i.Name,
		&i.FullPath,
		&i.Enabled,
		&i.CreatedAt,
	)
	return i, err
}

const setCategoryEnabled = `-- name: SetCategoryEnabled :execrows
UPDATE categories SET enabled = ?2 WHERE id = ?1
`

func (q *Queries) SetCategoryEnabled(ctx context.Context, id int64, enabled bool) (int64, error) {
	result, err := q.db.ExecContext(ctx, setCategoryEnabled, id, enabled)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
