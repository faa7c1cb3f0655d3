package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"contenthub/internal/hub"
)

func (r Repo) Article(ctx context.Context, link string) (hub.Article, error) {
	const q = `SELECT * FROM articles WHERE link = ?;`

	var a hub.Article
	err := r.db.GetContext(ctx, &a, q, link)
	if errors.Is(err, sql.ErrNoRows) {
		return hub.Article{}, hub.ErrNotFound
	}
	if err != nil {
		return hub.Article{}, fmt.Errorf("error fetching article: %s", err)
	}

	return splitCategories(a), nil
}

// Articles retrieves _all_ cached articles.
func (r Repo) Articles(ctx context.Context) ([]hub.Article, error) {
	const q = "SELECT * FROM articles;"

	var articles []hub.Article
	if err := r.db.SelectContext(ctx, &articles, q); err != nil {
		return nil, fmt.Errorf("error selecting articles: %s", err)
	}
	for i := range articles {
		articles[i] = splitCategories(articles[i])
	}

	return articles, nil
}

func (r Repo) ArticlesBySource(ctx context.Context, source string) ([]hub.Article, error) {
	query, args, err := sq.Select("*").From("articles").Where(sq.Eq{"source": source}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error constructing sql: %s", err)
	}

	var articles []hub.Article
	if err := r.db.SelectContext(ctx, &articles, query, args...); err != nil {
		return nil, fmt.Errorf("error fetching articles by source: %s", err)
	}
	for i := range articles {
		articles[i] = splitCategories(articles[i])
	}

	return articles, nil
}

// ReplaceArticles swaps the entire articles collection for items and stamps
// the lastFeedUpdate metadata entry with ts, all in one transaction so the
// cache contents and the freshness marker cannot drift apart.
func (r Repo) ReplaceArticles(ctx context.Context, items []hub.Article, ts int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %s", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM articles;"); err != nil {
		return fmt.Errorf("error clearing articles: %s", err)
	}

	const q = `INSERT INTO articles (link, title, summary, source, published, content_type, categories, cached_at)
	VALUES (:link, :title, :summary, :source, :published, :content_type, :categories, :cached_at)
	ON CONFLICT(link) DO UPDATE SET
		title = excluded.title,
		summary = excluded.summary,
		source = excluded.source,
		published = excluded.published,
		content_type = excluded.content_type,
		categories = excluded.categories,
		cached_at = excluded.cached_at;`
	if len(items) > 0 {
		rows := make([]hub.Article, len(items))
		for i, a := range items {
			a.RawCategories = strings.Join(a.Categories, ",")
			rows[i] = a
		}
		if _, err := tx.NamedExecContext(ctx, q, rows); err != nil {
			return fmt.Errorf("error inserting articles: %s", err)
		}
	}

	const metaQ = `INSERT INTO metadata (key, value) VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value;`
	if _, err := tx.ExecContext(ctx, metaQ, hub.MetaLastFeedUpdate, strconv.FormatInt(ts, 10)); err != nil {
		return fmt.Errorf("error stamping last feed update: %s", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing article replace: %s", err)
	}

	return nil
}

// CountArticles returns the total number of cached articles.
func (r Repo) CountArticles(ctx context.Context) (int, error) {
	const q = "SELECT COUNT(*) FROM articles;"

	var count int
	if err := r.db.GetContext(ctx, &count, q); err != nil {
		return 0, fmt.Errorf("error counting articles: %s", err)
	}

	return count, nil
}

func splitCategories(a hub.Article) hub.Article {
	if a.RawCategories != "" {
		a.Categories = strings.Split(a.RawCategories, ",")
	}

	return a
}
