// Package sqlite is the durable store: one local database owning the five
// cache collections behind the hub repository interfaces.
package sqlite

import (
	"github.com/jmoiron/sqlx"

	"contenthub/internal/hub"
)

// Ensure Repo implements the Repository interface
var _ hub.Repository = (*Repo)(nil)

type Repo struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) Repo {
	return Repo{db: db}
}
