// Package tasksource is a client for the remote task-tracking service
// (Todoist REST v2). It fetches pending tasks, posts result comments,
// and closes tasks. Failures here abandon the current operation but
// are never fatal to the process.
package tasksource

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// DefaultBaseURL is the production task source endpoint.
const DefaultBaseURL = "https://api.todoist.com/rest/v2"

// Error categories surfaced by the token-validation probe so the CLI
// can tell the user what is actually wrong.
var (
	// ErrAuth means the token was rejected outright (HTTP 401).
	ErrAuth = errors.New("task source authentication failed")
	// ErrPermission means the token is valid but lacks access (HTTP 403).
	ErrPermission = errors.New("task source permission denied")
	// ErrGone means the endpoint no longer exists (HTTP 404/410).
	ErrGone = errors.New("task source endpoint gone")
)

// Task is a transient snapshot of a remote task. The remote service
// owns the record; a task is eligible for processing iff Completed is
// false at fetch time.
type Task struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	Completed bool   `json:"is_completed"`
}

// Client talks to the task source over HTTP with bearer-token auth.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *slog.Logger
}

// New creates a task source client. baseURL may be empty to use the
// production endpoint.
func New(token, baseURL string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

// ListPending fetches all tasks and filters out completed ones.
func (c *Client) ListPending(ctx context.Context) ([]Task, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/tasks", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tasks: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var all []Task
	if err := json.NewDecoder(resp.Body).Decode(&all); err != nil {
		return nil, fmt.Errorf("failed to decode task list: %w", err)
	}

	pending := make([]Task, 0, len(all))
	for _, t := range all {
		if !t.Completed {
			pending = append(pending, t)
		}
	}

	c.logger.Info("fetched tasks", "total", len(all), "pending", len(pending))
	return pending, nil
}

// AddComment posts a comment on a task. Used to report execution
// results back to the task source.
func (c *Client) AddComment(ctx context.Context, taskID, content string) error {
	body, err := json.Marshal(map[string]string{
		"task_id": taskID,
		"content": content,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal comment: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/comments", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post comment: %w", err)
	}
	defer resp.Body.Close()

	return checkStatus(resp)
}

// CloseTask marks a task as completed on the task source.
func (c *Client) CloseTask(ctx context.Context, taskID string) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/tasks/"+taskID+"/close", nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to close task %s: %w", taskID, err)
	}
	defer resp.Body.Close()

	return checkStatus(resp)
}

// ValidateToken probes the API before any scheduling or polling so
// credential problems surface immediately with a usable category.
func (c *Client) ValidateToken(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/tasks", nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach task source: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return checkStatus(resp)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	return req, nil
}

// checkStatus maps HTTP status codes onto the client's error
// categories. 2xx is success.
func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrAuth
	case resp.StatusCode == http.StatusForbidden:
		return ErrPermission
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return ErrGone
	default:
		return fmt.Errorf("task source returned %s", resp.Status)
	}
}
