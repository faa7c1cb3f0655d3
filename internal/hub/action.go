package hub

import (
	"encoding/json"
	"fmt"
)

// ActionKind discriminates the pending action union.
type ActionKind string

const (
	ActionBookmark   ActionKind = "bookmark"
	ActionUnbookmark ActionKind = "unbookmark"
	ActionRead       ActionKind = "read"
	ActionUnread     ActionKind = "unread"
)

type (
	// ActionPayload is the closed set of payloads a pending action can
	// carry, one per kind.
	ActionPayload interface {
		Kind() ActionKind
	}

	// BookmarkPayload is the body for POST /bookmarks.
	BookmarkPayload struct {
		ArticleURL string `json:"article_url"`
		Title      string `json:"title"`
		Source     string `json:"source"`
	}

	// UnbookmarkPayload identifies the remote bookmark to delete.
	UnbookmarkPayload struct {
		BookmarkID int64 `json:"id"`
	}

	// ReadPayload is the body for POST /read-history.
	ReadPayload struct {
		ArticleURL string `json:"article_url"`
		Title      string `json:"article_title,omitempty"`
		Source     string `json:"article_source,omitempty"`
		Category   string `json:"article_category,omitempty"`
	}

	// UnreadPayload identifies the read entry to retract. The remote has
	// no endpoint for this yet.
	UnreadPayload struct {
		ArticleURL string `json:"article_url"`
	}

	// PendingAction is a unit of deferred work queued while offline or
	// after a failed direct call, consumed on first successful replay.
	PendingAction struct {
		ID         int64
		Payload    ActionPayload
		EnqueuedAt int64 // epoch millis at enqueue time
		Retries    int
	}
)

func (BookmarkPayload) Kind() ActionKind   { return ActionBookmark }
func (UnbookmarkPayload) Kind() ActionKind { return ActionUnbookmark }
func (ReadPayload) Kind() ActionKind       { return ActionRead }
func (UnreadPayload) Kind() ActionKind     { return ActionUnread }

// Kind returns the discriminator of the carried payload.
func (a PendingAction) Kind() ActionKind {
	return a.Payload.Kind()
}

// DecodeActionPayload rebuilds the typed payload from its persisted kind
// and JSON body. It is a total match over the union: an unknown kind is a
// corrupt row, not a silently skipped one.
func DecodeActionPayload(kind ActionKind, raw []byte) (ActionPayload, error) {
	var (
		p   ActionPayload
		err error
	)
	switch kind {
	case ActionBookmark:
		var v BookmarkPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case ActionUnbookmark:
		var v UnbookmarkPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case ActionRead:
		var v ReadPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case ActionUnread:
		var v UnreadPayload
		err = json.Unmarshal(raw, &v)
		p = v
	default:
		return nil, fmt.Errorf("unknown action kind: %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("error decoding %s payload: %s", kind, err)
	}

	return p, nil
}
