// Package blobstore is the boundary to the external binary object store
// holding listing images. The auction core stores the returned URL and path
// as opaque fields and never interprets image content.
package blobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ErrNotConfigured reports that no blob store endpoint is configured.
var ErrNotConfigured = errors.New("blob store is not configured")

// Object is a stored blob: a public URL for display and a path usable to
// delete it later.
type Object struct {
	URL  string `json:"url"`
	Path string `json:"path"`
}

// Store accepts uploads and deletes by path.
type Store interface {
	Upload(ctx context.Context, name, contentType string, body io.Reader) (*Object, error)
	Delete(ctx context.Context, path string) error
}

// HTTPStore talks to a blob service over HTTP with bearer-token auth.
type HTTPStore struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewHTTPStore(baseURL, token string) *HTTPStore {
	return &HTTPStore{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *HTTPStore) Upload(ctx context.Context, name, contentType string, body io.Reader) (*Object, error) {
	if s.baseURL == "" {
		return nil, ErrNotConfigured
	}

	endpoint := fmt.Sprintf("%s/objects?name=%s", s.baseURL, url.QueryEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("blob upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("blob upload: unexpected status %d", resp.StatusCode)
	}

	var obj Object
	if err := json.NewDecoder(resp.Body).Decode(&obj); err != nil {
		return nil, fmt.Errorf("blob upload: decode response: %w", err)
	}
	return &obj, nil
}

func (s *HTTPStore) Delete(ctx context.Context, path string) error {
	if s.baseURL == "" {
		return ErrNotConfigured
	}

	endpoint := fmt.Sprintf("%s/objects/%s", s.baseURL, url.PathEscape(path))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("blob delete: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("blob delete: unexpected status %d", resp.StatusCode)
	}
	return nil
}
