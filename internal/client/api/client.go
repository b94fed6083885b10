// Package api is a typed HTTP client for the StudyDesk CRUD endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/atinyakov/StudyDesk/internal/models"
)

// Error is a non-2xx response decoded from the server's error body.
type Error struct {
	Status  int
	Message string
	Fields  map[string]string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server error: %s", http.StatusText(e.Status))
	}
	return e.Message
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Status == http.StatusNotFound
}

// IsConflict reports whether err is a 409 from the server.
func IsConflict(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Status == http.StatusConflict
}

// Client talks to one StudyDesk server.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client, e.g. with one from
// NewHTTPClient carrying TLS settings.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(cl *Client) { cl.token = token }
}

// New returns a Client for baseURL, e.g. "https://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("invalid response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	e := &Error{Status: resp.StatusCode}
	var body struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		e.Message = body.Error
		e.Fields = body.Fields
	} else {
		e.Message = strings.TrimSpace(string(data))
	}
	return e
}

// Me returns the caller's profile.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodGet, "/api/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListNotes returns the caller's notes in the given order; empty means
// most recently updated first.
func (c *Client) ListNotes(ctx context.Context, sort models.NoteSort) ([]models.Note, error) {
	path := "/api/notes"
	if sort != "" {
		path += "?sort=" + url.QueryEscape(string(sort))
	}
	var notes []models.Note
	if err := c.do(ctx, http.MethodGet, path, nil, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

// GetNote fetches one note.
func (c *Client) GetNote(ctx context.Context, id string) (*models.Note, error) {
	var n models.Note
	if err := c.do(ctx, http.MethodGet, "/api/notes/"+url.PathEscape(id), nil, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// CreateNote stores a new note and returns it with its server id.
func (c *Client) CreateNote(ctx context.Context, in models.NoteInput) (*models.Note, error) {
	var n models.Note
	if err := c.do(ctx, http.MethodPost, "/api/notes", in, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// UpdateNote changes the supplied fields of a note.
func (c *Client) UpdateNote(ctx context.Context, id string, patch models.NotePatch) (*models.Note, error) {
	var n models.Note
	if err := c.do(ctx, http.MethodPut, "/api/notes/"+url.PathEscape(id), patch, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// DeleteNote removes a note.
func (c *Client) DeleteNote(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/notes/"+url.PathEscape(id), nil, nil)
}

// ListPlans returns the caller's plans with their tasks.
func (c *Client) ListPlans(ctx context.Context) ([]models.Plan, error) {
	var plans []models.Plan
	if err := c.do(ctx, http.MethodGet, "/api/plans", nil, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// GetPlan fetches one plan with its tasks.
func (c *Client) GetPlan(ctx context.Context, id string) (*models.Plan, error) {
	var p models.Plan
	if err := c.do(ctx, http.MethodGet, "/api/plans/"+url.PathEscape(id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePlan stores a new plan.
func (c *Client) CreatePlan(ctx context.Context, in models.PlanInput) (*models.Plan, error) {
	var p models.Plan
	if err := c.do(ctx, http.MethodPost, "/api/plans", in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdatePlan renames a plan.
func (c *Client) UpdatePlan(ctx context.Context, id string, patch models.PlanPatch) (*models.Plan, error) {
	var p models.Plan
	if err := c.do(ctx, http.MethodPut, "/api/plans/"+url.PathEscape(id), patch, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeletePlan removes a plan and its tasks, returning how many tasks went with it.
func (c *Client) DeletePlan(ctx context.Context, id string) (int64, error) {
	var out struct {
		DeletedTasks int64 `json:"deletedTasks"`
	}
	if err := c.do(ctx, http.MethodDelete, "/api/plans/"+url.PathEscape(id), nil, &out); err != nil {
		return 0, err
	}
	return out.DeletedTasks, nil
}

// ListTodos returns the caller's todos narrowed by filter.
func (c *Client) ListTodos(ctx context.Context, filter models.TodoFilter) ([]models.Todo, error) {
	q := url.Values{}
	if filter.PlanID != nil {
		q.Set("planId", *filter.PlanID)
	}
	if filter.Standalone {
		q.Set("standalone", "true")
	}
	path := "/api/todos"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var todos []models.Todo
	if err := c.do(ctx, http.MethodGet, path, nil, &todos); err != nil {
		return nil, err
	}
	return todos, nil
}

// GetTodo fetches one todo.
func (c *Client) GetTodo(ctx context.Context, id string) (*models.Todo, error) {
	var t models.Todo
	if err := c.do(ctx, http.MethodGet, "/api/todos/"+url.PathEscape(id), nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTodo stores a new todo, optionally inside a plan.
func (c *Client) CreateTodo(ctx context.Context, in models.TodoInput) (*models.Todo, error) {
	var t models.Todo
	if err := c.do(ctx, http.MethodPost, "/api/todos", in, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateTodo changes the supplied fields of a todo.
func (c *Client) UpdateTodo(ctx context.Context, id string, patch models.TodoPatch) (*models.Todo, error) {
	var t models.Todo
	if err := c.do(ctx, http.MethodPut, "/api/todos/"+url.PathEscape(id), patch, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// DeleteTodo removes a todo.
func (c *Client) DeleteTodo(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/todos/"+url.PathEscape(id), nil, nil)
}
