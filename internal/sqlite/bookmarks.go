package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"contenthub/internal/hub"
)

func (r Repo) Bookmark(ctx context.Context, articleURL string) (hub.Bookmark, error) {
	const q = `SELECT * FROM bookmarks WHERE article_url = ?;`

	var b hub.Bookmark
	err := r.db.GetContext(ctx, &b, q, articleURL)
	if errors.Is(err, sql.ErrNoRows) {
		return hub.Bookmark{}, hub.ErrNotFound
	}
	if err != nil {
		return hub.Bookmark{}, fmt.Errorf("error fetching bookmark: %s", err)
	}

	return b, nil
}

// Bookmarks retrieves _all_ cached bookmarks.
func (r Repo) Bookmarks(ctx context.Context) ([]hub.Bookmark, error) {
	const q = "SELECT * FROM bookmarks ORDER BY saved_at;"

	var bookmarks []hub.Bookmark
	if err := r.db.SelectContext(ctx, &bookmarks, q); err != nil {
		return nil, fmt.Errorf("error selecting bookmarks: %s", err)
	}

	return bookmarks, nil
}

// UpsertBookmark writes the bookmark keyed by its article URL. Re-saving
// the same URL overwrites rather than duplicates.
func (r Repo) UpsertBookmark(ctx context.Context, b hub.Bookmark) error {
	const q = `INSERT INTO bookmarks (article_url, title, source, saved_at, synced)
	VALUES (:article_url, :title, :source, :saved_at, :synced)
	ON CONFLICT(article_url) DO UPDATE SET
		title = excluded.title,
		source = excluded.source,
		saved_at = excluded.saved_at,
		synced = excluded.synced;`
	if _, err := r.db.NamedExecContext(ctx, q, b); err != nil {
		return fmt.Errorf("error upserting bookmark: %s", err)
	}

	return nil
}

func (r Repo) DeleteBookmark(ctx context.Context, articleURL string) error {
	const q = `DELETE FROM bookmarks WHERE article_url = ?;`

	if _, err := r.db.ExecContext(ctx, q, articleURL); err != nil {
		return fmt.Errorf("error deleting bookmark: %s", err)
	}

	return nil
}

func (r Repo) CountBookmarks(ctx context.Context) (int, error) {
	const q = "SELECT COUNT(*) FROM bookmarks;"

	var count int
	if err := r.db.GetContext(ctx, &count, q); err != nil {
		return 0, fmt.Errorf("error counting bookmarks: %s", err)
	}

	return count, nil
}
