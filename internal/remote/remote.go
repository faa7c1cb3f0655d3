// Package remote is the HTTP client for the ContentHub API. It performs
// authenticated JSON requests and normalizes every non-2xx response into a
// status-carrying error. No caching lives here.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	huberrs "contenthub/internal/errors"
	"contenthub/internal/hub"
)

// TokenSource supplies the bearer token for each request. An empty return
// leaves the request unauthenticated.
type TokenSource func() string

type Gateway struct {
	baseURL string
	token   TokenSource
	client  *http.Client
}

// New creates a gateway against baseURL. The client is used as-is; any
// timeout policy belongs to its transport, not to the gateway.
func New(baseURL string, token TokenSource, client *http.Client) *Gateway {
	if client == nil {
		client = http.DefaultClient
	}
	if token == nil {
		token = func() string { return "" }
	}

	return &Gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  client,
	}
}

// CreateBookmark saves a bookmark remotely.
func (g *Gateway) CreateBookmark(ctx context.Context, p hub.BookmarkPayload) error {
	return g.do(ctx, http.MethodPost, "/bookmarks", p, nil)
}

// DeleteBookmark removes the remote bookmark by its server-side id.
func (g *Gateway) DeleteBookmark(ctx context.Context, id int64) error {
	return g.do(ctx, http.MethodDelete, fmt.Sprintf("/bookmarks/%d", id), nil, nil)
}

// CreateReadEntry records an article as read remotely.
func (g *Gateway) CreateReadEntry(ctx context.Context, p hub.ReadPayload) error {
	return g.do(ctx, http.MethodPost, "/read-history", p, nil)
}

// DeleteReadEntry retracts a read entry. The API has no endpoint for this
// yet, so the gateway reports it as unimplemented without going on the wire.
func (g *Gateway) DeleteReadEntry(ctx context.Context, p hub.UnreadPayload) error {
	return huberrs.E(http.StatusNotImplemented, "unread is not supported by the remote api")
}

type feedsResp struct {
	Articles []hub.Article `json:"articles"`
}

// Feeds fetches the full current article set.
func (g *Gateway) Feeds(ctx context.Context) ([]hub.Article, error) {
	var resp feedsResp
	if err := g.do(ctx, http.MethodGet, "/feeds", nil, &resp); err != nil {
		return nil, err
	}

	return resp.Articles, nil
}

func (g *Gateway) do(ctx context.Context, method, endpoint string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		byts, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("error encoding request body: %s", err)
		}
		rdr = bytes.NewReader(byts)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+endpoint, rdr)
	if err != nil {
		return fmt.Errorf("error creating request: %s", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := g.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("error calling %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return huberrs.E(resp.StatusCode, errorMessage(resp))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("error decoding response: %s", err)
	}

	return nil
}

// errorMessage pulls the API's error description out of a failed response
// body: `message` first, then `error`, then a generic fallback.
func errorMessage(resp *http.Response) string {
	var body struct {
		Message string `json:"message"`
		ErrMsg  string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.ErrMsg != "" {
			return body.ErrMsg
		}
	}

	return fmt.Sprintf("request failed with status %d", resp.StatusCode)
}
