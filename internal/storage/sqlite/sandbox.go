package sqlite

import (
	"context"
	"fmt"

	"pzadmin/internal/storage"
)

func scanSandbox(row rowScanner) (storage.SandboxProperty, error) {
	var p storage.SandboxProperty
	var updated int64
	if err := row.Scan(&p.Key, &p.Value, &p.Description, &updated); err != nil {
		return storage.SandboxProperty{}, err
	}
	p.UpdatedAt = fromMillis(updated)
	return p, nil
}

// ListSandbox возвращает параметры, отсортированные по ключу.
func (s *Store) ListSandbox(ctx context.Context) ([]storage.SandboxProperty, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value, description, updated_at FROM sandbox_properties ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("query sandbox: %w", err)
	}
	defer rows.Close()

	props := make([]storage.SandboxProperty, 0)
	for rows.Next() {
		p, err := scanSandbox(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sandbox: %w", err)
		}
		props = append(props, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sandbox: %w", err)
	}
	return props, nil
}

func (s *Store) SandboxProperty(ctx context.Context, key string) (storage.SandboxProperty, error) {
	row := s.db.QueryRowContext(ctx, `SELECT key, value, description, updated_at FROM sandbox_properties WHERE key = ?`, key)
	p, err := scanSandbox(row)
	if err != nil {
		return storage.SandboxProperty{}, notFound("sandbox property", err)
	}
	return p, nil
}

func (s *Store) SaveSandboxProperty(ctx context.Context, p storage.SandboxProperty) (storage.SandboxProperty, error) {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO sandbox_properties(key, value, description, updated_at) VALUES(?,?,?,?)
ON CONFLICT(key) DO UPDATE SET
	value = excluded.value,
	description = excluded.description,
	updated_at = excluded.updated_at`,
		p.Key, p.Value, p.Description, toMillis(nowOr(p.UpdatedAt)))
	if err != nil {
		return storage.SandboxProperty{}, fmt.Errorf("upsert sandbox property: %w", err)
	}
	return s.SandboxProperty(ctx, p.Key)
}

func (s *Store) DeleteSandboxProperty(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sandbox_properties WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("delete sandbox property: %w", err)
	}
	return affectedOrNotFound(res, "sandbox property")
}
