// Package cloudstore is the asynchronous remote half of the persistence
// boundary: a REST store keyed by user identity. Writes are last-writer-
// wins at the granularity of one full thread row; the controller never
// reads it back to reconcile concurrent writers.
package cloudstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tridinhbui/finpartner-ai/internal/logging"
	"github.com/tridinhbui/finpartner-ai/internal/thread"
)

// Store is the remote thread store contract.
type Store interface {
	UpsertThread(ctx context.Context, userID string, t *thread.Aggregate) error
	LoadThreads(ctx context.Context, userID string) ([]*thread.Aggregate, error)
	DeleteThread(ctx context.Context, userID, threadID string) error
}

// threadRow is the wire shape of one chat_threads row. The full
// aggregate rides in the payload column; the scalar columns exist for
// server-side filtering and ordering.
type threadRow struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Title     string            `json:"title"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Payload   *thread.Aggregate `json:"payload"`
}

type restStore struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     logging.Logger
}

// New constructs a REST-backed store. baseURL points at the service
// root; the store talks to its /rest/v1/chat_threads resource.
func New(baseURL, apiKey string, timeout time.Duration) Store {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &restStore{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewComponentLogger("CloudStore"),
	}
}

func (s *restStore) UpsertThread(ctx context.Context, userID string, t *thread.Aggregate) error {
	row := threadRow{
		ID:        t.ID,
		UserID:    userID,
		Title:     t.Title,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
		Payload:   t,
	}
	body, err := json.Marshal([]threadRow{row})
	if err != nil {
		return fmt.Errorf("marshal thread row: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/rest/v1/chat_threads", bytes.NewReader(body))
	if err != nil {
		return err
	}
	s.setHeaders(req)
	req.Header.Set("Prefer", "resolution=merge-duplicates")

	return s.do(req, nil)
}

func (s *restStore) LoadThreads(ctx context.Context, userID string) ([]*thread.Aggregate, error) {
	query := url.Values{}
	query.Set("user_id", "eq."+userID)
	query.Set("order", "updated_at.desc")
	endpoint := s.baseURL + "/rest/v1/chat_threads?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	s.setHeaders(req)

	var rows []threadRow
	if err := s.do(req, &rows); err != nil {
		return nil, err
	}

	threads := make([]*thread.Aggregate, 0, len(rows))
	for _, row := range rows {
		if row.Payload == nil {
			s.logger.Warn("thread row %s has no payload, skipping", row.ID)
			continue
		}
		threads = append(threads, row.Payload)
	}
	return threads, nil
}

func (s *restStore) DeleteThread(ctx context.Context, userID, threadID string) error {
	query := url.Values{}
	query.Set("user_id", "eq."+userID)
	query.Set("id", "eq."+threadID)
	endpoint := s.baseURL + "/rest/v1/chat_threads?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	s.setHeaders(req)
	return s.do(req, nil)
}

func (s *restStore) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("apikey", s.apiKey)
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
}

func (s *restStore) do(req *http.Request, out any) error {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("cloud store request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read cloud store response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("cloud store status %d: %s", resp.StatusCode, preview(body))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode cloud store response: %w", err)
	}
	return nil
}

func preview(data []byte) string {
	const maxPreview = 256
	text := strings.TrimSpace(string(data))
	if len(text) > maxPreview {
		text = text[:maxPreview] + "... (truncated)"
	}
	return text
}
