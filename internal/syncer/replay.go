package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	huberrs "contenthub/internal/errors"
	"contenthub/internal/hub"
	"contenthub/internal/logger"
)

// SyncPending replays the whole queue once, oldest action first. Each
// action is deleted on success, retry-counted on a transient failure, and
// dropped outright on a permanent one or once its retry budget is spent.
// The pass is not transactional: a crash mid-pass leaves completed actions
// removed and the rest queued, which the next pass picks up from scratch.
func (s *Syncer) SyncPending(ctx context.Context) (hub.SyncResult, error) {
	ctx = logger.Ctx(ctx, slog.String("sync_pass", uuid.NewString()))

	actions, err := s.actions.PendingActions(ctx)
	if err != nil {
		return hub.SyncResult{}, fmt.Errorf("error loading pending actions: %w", err)
	}

	res := hub.SyncResult{Total: len(actions)}
	for _, action := range actions {
		err := s.dispatch(ctx, action)
		if err == nil {
			// At-most-once removal: the action leaves the queue the
			// moment its replay succeeds.
			if err := s.actions.DeleteAction(ctx, action.ID); err != nil {
				slog.ErrorContext(ctx, "error removing synced action", "id", action.ID, "error", err)
			}
			res.Synced++
			continue
		}

		res.Failed++
		switch {
		case !retryable(err):
			slog.WarnContext(ctx, "dropping action after permanent failure",
				"id", action.ID, "kind", action.Kind(), "error", err)
			s.drop(ctx, action.ID)
		case action.Retries < maxRetries:
			if err := s.actions.SetActionRetries(ctx, action.ID, action.Retries+1); err != nil {
				slog.ErrorContext(ctx, "error updating action retries", "id", action.ID, "error", err)
			}
		default:
			slog.WarnContext(ctx, "dropping action after max retries",
				"id", action.ID, "kind", action.Kind(), "retries", action.Retries)
			s.drop(ctx, action.ID)
		}
	}

	slog.InfoContext(ctx, "sync complete", "synced", res.Synced, "failed", res.Failed, "total", res.Total)
	s.broadcast(res)

	return res, nil
}

// dispatch replays one action against the gateway, a total match over the
// payload union.
func (s *Syncer) dispatch(ctx context.Context, action hub.PendingAction) error {
	switch p := action.Payload.(type) {
	case hub.BookmarkPayload:
		return s.gw.CreateBookmark(ctx, p)
	case hub.UnbookmarkPayload:
		return s.gw.DeleteBookmark(ctx, p.BookmarkID)
	case hub.ReadPayload:
		return s.gw.CreateReadEntry(ctx, p)
	case hub.UnreadPayload:
		return s.gw.DeleteReadEntry(ctx, p)
	}

	return fmt.Errorf("unknown action kind: %q", action.Kind())
}

func (s *Syncer) drop(ctx context.Context, id int64) {
	if err := s.actions.DeleteAction(ctx, id); err != nil {
		slog.ErrorContext(ctx, "error dropping action", "id", id, "error", err)
	}
}

// retryable classifies a replay failure. Status-carrying errors answer for
// themselves; anything else (a transport-level failure) is worth retrying.
func retryable(err error) bool {
	var herr *huberrs.Error
	if errors.As(err, &herr) {
		return herr.Retryable()
	}

	return true
}
