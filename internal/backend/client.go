package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/runnerr0/tabtrail/internal/exporter"
)

// Client talks to the indexing backend exported documents are pushed to.
type Client struct {
	baseURL string
	token   string
	secret  string
	http    *http.Client
}

// NewClient creates a backend client. baseURL is the backend root; token
// authenticates requests and secret rides inside the save-documents body,
// which is how the backend expects it.
func NewClient(baseURL, token, secret string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		secret:  secret,
		http:    &http.Client{Timeout: timeout},
	}
}

// VerifyToken checks the bearer token against the backend before anything
// is pushed.
func (c *Client) VerifyToken(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/verify-token", nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("verify token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("verify token: %s", serverMessage(resp))
	}
	return nil
}

// SaveResult is the backend's acknowledgment of a save.
type SaveResult struct {
	Saved     int
	Message   string
	RequestID string
}

// SaveDocuments pushes documents for indexing. Every request carries a fresh
// X-Request-ID so a batch can be correlated server-side.
func (c *Client) SaveDocuments(ctx context.Context, docs []exporter.Document) (*SaveResult, error) {
	payload := struct {
		Documents    []exporter.Document `json:"documents"`
		APISecretKey string              `json:"apisecretkey"`
	}{Documents: docs, APISecretKey: c.secret}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode documents: %w", err)
	}

	requestID := uuid.NewString()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/save-documents", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("save documents: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("save documents: %s", serverMessage(resp))
	}

	result := &SaveResult{Saved: len(docs), RequestID: requestID}

	// The ack body is optional; keep the server's message and count when
	// it sends them.
	var ack struct {
		Message string `json:"message"`
		Saved   *int   `json:"saved"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ack); err == nil {
		result.Message = ack.Message
		if ack.Saved != nil {
			result.Saved = *ack.Saved
		}
	}
	return result, nil
}

// serverMessage pulls the server-provided error message out of a non-2xx
// response, falling back to the raw body or the HTTP status.
func serverMessage(resp *http.Response) string {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil || len(strings.TrimSpace(string(body))) == 0 {
		return resp.Status
	}

	var payload struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Message != "":
			return payload.Message
		case payload.Detail != "":
			return payload.Detail
		case payload.Error != "":
			return payload.Error
		}
	}
	return fmt.Sprintf("%s: %s", resp.Status, strings.TrimSpace(string(body)))
}
