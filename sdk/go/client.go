package quotalinesdk

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
)

// Client is a minimal Quotaline HTTP API client.
type Client struct {
	BaseURL     string
	BearerToken string
	// ActorID is sent as X-Actor-Id when no token is set. The server only
	// honours it when started with actor headers allowed.
	ActorID    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

type TodoItem struct {
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// Task represents the API task model.
type Task struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Type      string     `json:"type"`
	Status    string     `json:"status"`
	StartDate time.Time  `json:"start_date"`
	Deadline  time.Time  `json:"deadline"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	Target    *int       `json:"target,omitempty"`
	Items     []TodoItem `json:"items,omitempty"`
}

type Admin struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
	Tasks    []Task    `json:"tasks"`
}

type Progress struct {
	Completed int     `json:"completed"`
	Target    int     `json:"target"`
	Percent   float64 `json:"percent"`
}

type Score struct {
	TaskTerm    float64 `json:"task_term"`
	VolumeTerm  float64 `json:"volume_term"`
	RecencyTerm float64 `json:"recency_term"`
	Score       float64 `json:"score"`
}

type Profile struct {
	Admin       Admin     `json:"admin"`
	CurrentTask *Task     `json:"current_task,omitempty"`
	Progress    *Progress `json:"progress,omitempty"`
	Score       Score     `json:"score"`
	Uploads     int       `json:"completed_uploads"`
}

type TeamEntry struct {
	AdminID string  `json:"admin_id"`
	Name    string  `json:"name"`
	Role    string  `json:"role"`
	Status  string  `json:"current_status,omitempty"`
	Score   float64 `json:"score"`
}

// TaskRequest assigns either a target or a todo task.
type TaskRequest struct {
	Title    string     `json:"title"`
	Type     string     `json:"type"`
	Deadline *time.Time `json:"deadline,omitempty"`
	Target   *int       `json:"target,omitempty"`
	Items    []string   `json:"items,omitempty"`
}

// Event represents a journal entry.
type Event struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id"`
	AdminID    string         `json:"admin_id"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s", e.StatusCode, e.Code)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// PaginatedEvents wraps list responses with cursors.
type PaginatedEvents struct {
	Items      []Event `json:"items"`
	NextCursor string  `json:"next_cursor"`
}

// CreateAdmin adds a team member.
func (c *Client) CreateAdmin(ctx context.Context, name, role string) (Admin, error) {
	var resp Admin
	err := c.do(ctx, http.MethodPost, "v0/admins", map[string]any{"name": name, "role": role}, &resp)
	return resp, err
}

// Profile returns an admin's current task, progress and score.
func (c *Client) Profile(ctx context.Context, adminID string) (Profile, error) {
	var resp Profile
	err := c.do(ctx, http.MethodGet, adminPath(adminID, ""), nil, &resp)
	return resp, err
}

// AssignTask gives an admin a new task.
func (c *Client) AssignTask(ctx context.Context, adminID string, req TaskRequest) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPost, adminPath(adminID, "tasks"), req, &resp)
	return resp, err
}

// CancelTask cancels an unfinished task.
func (c *Client) CancelTask(ctx context.Context, adminID, taskID string) error {
	return c.do(ctx, http.MethodPost, adminPath(adminID, "tasks/"+url.PathEscape(taskID)+"/cancel"), nil, nil)
}

// CompleteTask marks an active task completed.
func (c *Client) CompleteTask(ctx context.Context, adminID, taskID string, force bool) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPost, adminPath(adminID, "tasks/"+url.PathEscape(taskID)+"/complete"), map[string]any{"force": force}, &resp)
	return resp, err
}

// ToggleItem checks or unchecks one todo item.
func (c *Client) ToggleItem(ctx context.Context, adminID, taskID string, index int, completed bool) error {
	endpoint := adminPath(adminID, fmt.Sprintf("tasks/%s/items/%d", url.PathEscape(taskID), index))
	return c.do(ctx, http.MethodPut, endpoint, map[string]any{"completed": completed}, nil)
}

// Progress returns derived progress for a task.
func (c *Client) Progress(ctx context.Context, adminID, taskID string) (Progress, error) {
	var resp Progress
	err := c.do(ctx, http.MethodGet, adminPath(adminID, "tasks/"+url.PathEscape(taskID)+"/progress"), nil, &resp)
	return resp, err
}

// Team returns admins ranked by score.
func (c *Client) Team(ctx context.Context) ([]TeamEntry, error) {
	var resp []TeamEntry
	err := c.do(ctx, http.MethodGet, "v0/team", nil, &resp)
	return resp, err
}

// Scan demotes expired active tasks and reports how many changed.
func (c *Client) Scan(ctx context.Context) (int, error) {
	var resp struct {
		Updated int `json:"updated"`
	}
	err := c.do(ctx, http.MethodPost, "v0/scan", nil, &resp)
	return resp.Updated, err
}

// Events returns recent events.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	page, err := c.EventsPage(ctx, limit, "")
	return page.Items, err
}

// EventsPage returns a paginated event listing.
func (c *Client) EventsPage(ctx context.Context, limit int, cursor string) (PaginatedEvents, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	endpoint := "v0/events"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp PaginatedEvents
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.ActorID != "":
		req.Header.Set("X-Actor-Id", c.ActorID)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var env struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &env) == nil {
			apiErr.Code = env.Error.Code
		}
		return apiErr
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func adminPath(adminID, p string) string {
	endpoint := "v0/admins/" + url.PathEscape(adminID)
	if p != "" {
		endpoint += "/" + strings.TrimLeft(p, "/")
	}
	return endpoint
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
