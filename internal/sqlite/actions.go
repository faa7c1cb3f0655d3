package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"contenthub/internal/hub"
)

// actionRow is the persisted shape of a pending action: the discriminator
// plus the payload serialized as JSON.
type actionRow struct {
	ID         int64  `db:"id"`
	Kind       string `db:"kind"`
	Payload    []byte `db:"payload"`
	EnqueuedAt int64  `db:"enqueued_at"`
	Retries    int    `db:"retries"`
}

// EnqueueAction appends the action to the queue and returns the assigned
// auto-increment id.
func (r Repo) EnqueueAction(ctx context.Context, a hub.PendingAction) (int64, error) {
	payload, err := json.Marshal(a.Payload)
	if err != nil {
		return 0, fmt.Errorf("error encoding action payload: %s", err)
	}

	const q = `INSERT INTO pending_actions (kind, payload, enqueued_at, retries)
	VALUES (?, ?, ?, ?);`
	res, err := r.db.ExecContext(ctx, q, string(a.Kind()), payload, a.EnqueuedAt, a.Retries)
	if err != nil {
		return 0, fmt.Errorf("error enqueueing action: %s", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("error reading action id: %s", err)
	}

	return id, nil
}

// PendingActions returns the whole queue in enqueue order, oldest first. A
// later unbookmark must never replay before the bookmark it undoes.
func (r Repo) PendingActions(ctx context.Context) ([]hub.PendingAction, error) {
	const q = "SELECT * FROM pending_actions ORDER BY id;"

	var rows []actionRow
	if err := r.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, fmt.Errorf("error selecting pending actions: %s", err)
	}

	actions := make([]hub.PendingAction, 0, len(rows))
	for _, row := range rows {
		payload, err := hub.DecodeActionPayload(hub.ActionKind(row.Kind), row.Payload)
		if err != nil {
			return nil, fmt.Errorf("error decoding action %d: %s", row.ID, err)
		}
		actions = append(actions, hub.PendingAction{
			ID:         row.ID,
			Payload:    payload,
			EnqueuedAt: row.EnqueuedAt,
			Retries:    row.Retries,
		})
	}

	return actions, nil
}

func (r Repo) DeleteAction(ctx context.Context, id int64) error {
	const q = `DELETE FROM pending_actions WHERE id = ?;`

	if _, err := r.db.ExecContext(ctx, q, id); err != nil {
		return fmt.Errorf("error deleting action: %s", err)
	}

	return nil
}

// SetActionRetries persists the retry count in place, leaving the action
// queued for the next replay pass.
func (r Repo) SetActionRetries(ctx context.Context, id int64, retries int) error {
	const q = `UPDATE pending_actions SET retries = ? WHERE id = ?;`

	if _, err := r.db.ExecContext(ctx, q, retries, id); err != nil {
		return fmt.Errorf("error updating action retries: %s", err)
	}

	return nil
}

func (r Repo) CountActions(ctx context.Context) (int, error) {
	const q = "SELECT COUNT(*) FROM pending_actions;"

	var count int
	if err := r.db.GetContext(ctx, &count, q); err != nil {
		return 0, fmt.Errorf("error counting pending actions: %s", err)
	}

	return count, nil
}
