package server

import (
	"encoding/json"
	"time"

	"quotaline/internal/domain"
)

// Request payloads

type CreateAdminRequest struct {
	Name string `json:"name"`
	Role string `json:"role" enum:"owner,manager,uploader"`
}

type AssignTaskRequest struct {
	Title    string     `json:"title"`
	Type     string     `json:"type" enum:"target,todo"`
	Deadline *time.Time `json:"deadline,omitempty" format:"date-time"`
	Target   *int       `json:"target,omitempty"`
	Items    []string   `json:"items,omitempty"`
}

func (r AssignTaskRequest) draft() domain.TaskDraft {
	return domain.TaskDraft{
		Title:    r.Title,
		Type:     domain.TaskType(r.Type),
		Deadline: r.Deadline,
		Target:   r.Target,
		Items:    r.Items,
	}
}

type CompleteTaskRequest struct {
	Force bool `json:"force,omitempty"`
}

type ToggleItemRequest struct {
	Completed bool `json:"completed"`
}

type ImportContentRequest struct {
	Records []domain.ContentRecord `json:"records"`
}

type DevLoginRequest struct {
	AdminID string `json:"admin_id"`
}

// Responses

type AdminResponse struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Role     string        `json:"role"`
	JoinedAt time.Time     `json:"joined_at" format:"date-time"`
	Tasks    []domain.Task `json:"tasks"`
}

type ProfileResponse struct {
	Admin       AdminResponse         `json:"admin"`
	CurrentTask *domain.Task          `json:"current_task,omitempty"`
	Progress    *domain.Progress      `json:"progress,omitempty"`
	Score       domain.ScoreBreakdown `json:"score"`
	Uploads     int                   `json:"completed_uploads"`
}

type ScanResponse struct {
	Updated int `json:"updated"`
}

type ImportContentResponse struct {
	Imported int `json:"imported"`
}

type MeResponse struct {
	AdminID     string   `json:"admin_id"`
	Name        string   `json:"name"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	Source      string   `json:"source"`
}

type DevLoginResponse struct {
	Token string `json:"token"`
}

type EventResponse struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts" format:"date-time"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id,omitempty"`
	AdminID    string         `json:"admin_id,omitempty"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload,omitempty"`
}

type paginatedEvents struct {
	Items      []EventResponse `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

func adminResponse(a domain.AdminMember) AdminResponse {
	return AdminResponse{
		ID:       a.ID,
		Name:     a.Name,
		Role:     string(a.Role),
		JoinedAt: a.JoinedAt,
		Tasks:    nonNilSlice(a.Tasks),
	}
}

func mapAdmins(items []domain.AdminMember) []AdminResponse {
	res := make([]AdminResponse, 0, len(items))
	for _, a := range items {
		res = append(res, adminResponse(a))
	}
	return res
}

func profileResponse(p domain.AdminProfile) ProfileResponse {
	return ProfileResponse{
		Admin:       adminResponse(p.Admin),
		CurrentTask: p.Current,
		Progress:    p.Progress,
		Score:       p.Score,
		Uploads:     p.Uploads,
	}
}

func eventResponse(e domain.Event) EventResponse {
	return EventResponse{
		ID:         e.ID,
		TS:         e.TS,
		Type:       e.Type,
		EntityKind: e.EntityKind,
		EntityID:   e.EntityID,
		AdminID:    e.AdminID,
		ActorID:    e.ActorID,
		Payload:    decodeJSONMap(e.Payload),
	}
}

func decodeJSONMap(raw string) map[string]any {
	if raw == "" {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil
	}
	return obj
}

func nonNilSlice[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
