package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"contenthub/internal/hub"
)

func (r Repo) ReadEntry(ctx context.Context, articleURL string) (hub.ReadEntry, error) {
	const q = `SELECT * FROM read_history WHERE article_url = ?;`

	var e hub.ReadEntry
	err := r.db.GetContext(ctx, &e, q, articleURL)
	if errors.Is(err, sql.ErrNoRows) {
		return hub.ReadEntry{}, hub.ErrNotFound
	}
	if err != nil {
		return hub.ReadEntry{}, fmt.Errorf("error fetching read entry: %s", err)
	}

	return e, nil
}

// ReadEntries retrieves _all_ cached read history.
func (r Repo) ReadEntries(ctx context.Context) ([]hub.ReadEntry, error) {
	const q = "SELECT * FROM read_history ORDER BY read_at;"

	var entries []hub.ReadEntry
	if err := r.db.SelectContext(ctx, &entries, q); err != nil {
		return nil, fmt.Errorf("error selecting read history: %s", err)
	}

	return entries, nil
}

func (r Repo) UpsertReadEntry(ctx context.Context, e hub.ReadEntry) error {
	const q = `INSERT INTO read_history (article_url, title, source, category, read_at, synced)
	VALUES (:article_url, :title, :source, :category, :read_at, :synced)
	ON CONFLICT(article_url) DO UPDATE SET
		title = excluded.title,
		source = excluded.source,
		category = excluded.category,
		read_at = excluded.read_at,
		synced = excluded.synced;`
	if _, err := r.db.NamedExecContext(ctx, q, e); err != nil {
		return fmt.Errorf("error upserting read entry: %s", err)
	}

	return nil
}

func (r Repo) DeleteReadEntry(ctx context.Context, articleURL string) error {
	const q = `DELETE FROM read_history WHERE article_url = ?;`

	if _, err := r.db.ExecContext(ctx, q, articleURL); err != nil {
		return fmt.Errorf("error deleting read entry: %s", err)
	}

	return nil
}

func (r Repo) CountReadEntries(ctx context.Context) (int, error) {
	const q = "SELECT COUNT(*) FROM read_history;"

	var count int
	if err := r.db.GetContext(ctx, &count, q); err != nil {
		return 0, fmt.Errorf("error counting read history: %s", err)
	}

	return count, nil
}
