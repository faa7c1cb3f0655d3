package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"contenthub/internal/hub"
)

func (r Repo) Meta(ctx context.Context, key string) (string, error) {
	const q = `SELECT value FROM metadata WHERE key = ?;`

	var value string
	err := r.db.GetContext(ctx, &value, q, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", hub.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("error fetching metadata: %s", err)
	}

	return value, nil
}

func (r Repo) SetMeta(ctx context.Context, key, value string) error {
	const q = `INSERT INTO metadata (key, value) VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value;`

	if _, err := r.db.ExecContext(ctx, q, key, value); err != nil {
		return fmt.Errorf("error writing metadata: %s", err)
	}

	return nil
}
