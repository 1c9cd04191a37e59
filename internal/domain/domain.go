package domain

import "time"

type Role string

const (
	RoleOwner    Role = "owner"
	RoleManager  Role = "manager"
	RoleUploader Role = "uploader"
)

func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleManager, RoleUploader:
		return true
	}
	return false
}

type TaskType string

const (
	TaskTypeTarget TaskType = "target"
	TaskTypeTodo   TaskType = "todo"
)

type TaskStatus string

const (
	TaskStatusActive      TaskStatus = "active"
	TaskStatusCompleted   TaskStatus = "completed"
	TaskStatusIncompleted TaskStatus = "incompleted"
	TaskStatusCancelled   TaskStatus = "cancelled"
)

// Unfinished reports whether the status still blocks a new assignment.
func (s TaskStatus) Unfinished() bool {
	return s == TaskStatusActive || s == TaskStatusIncompleted
}

type AdminMember struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Role     Role      `json:"role" enum:"owner,manager,uploader"`
	Tasks    []Task    `json:"tasks"`
	JoinedAt time.Time `json:"joined_at" format:"date-time"`
}

// UnfinishedTask returns the admin's Active or Incompleted task, if any.
func (a AdminMember) UnfinishedTask() (Task, bool) {
	for _, t := range a.Tasks {
		if t.Status.Unfinished() {
			return t, true
		}
	}
	return Task{}, false
}

// TaskIndex returns the position of taskID in the admin's task list or -1.
func (a AdminMember) TaskIndex(taskID string) int {
	for i, t := range a.Tasks {
		if t.ID == taskID {
			return i
		}
	}
	return -1
}

// LatestTask returns the most recent task of the given type by list order.
func (a AdminMember) LatestTask(typ TaskType) (Task, bool) {
	for i := len(a.Tasks) - 1; i >= 0; i-- {
		if a.Tasks[i].Type == typ {
			return a.Tasks[i], true
		}
	}
	return Task{}, false
}

type TodoItem struct {
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// Task is a unit of assigned work. Type decides which of Target or Items is set.
type Task struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Type      TaskType   `json:"type" enum:"target,todo"`
	Status    TaskStatus `json:"status" enum:"active,completed,incompleted,cancelled"`
	StartDate time.Time  `json:"start_date" format:"date-time"`
	Deadline  time.Time  `json:"deadline" format:"date-time"`
	EndDate   *time.Time `json:"end_date,omitempty" format:"date-time"`
	Target    *int       `json:"target,omitempty"`
	Items     []TodoItem `json:"items,omitempty"`
}

// TargetCount is the number of completions the task asks for.
func (t Task) TargetCount() int {
	switch t.Type {
	case TaskTypeTarget:
		if t.Target == nil {
			return 0
		}
		return *t.Target
	case TaskTypeTodo:
		return len(t.Items)
	}
	return 0
}

// Clone returns a deep copy so callers can mutate without aliasing stored state.
func (t Task) Clone() Task {
	c := t
	if t.EndDate != nil {
		end := *t.EndDate
		c.EndDate = &end
	}
	if t.Target != nil {
		target := *t.Target
		c.Target = &target
	}
	if t.Items != nil {
		c.Items = append([]TodoItem(nil), t.Items...)
	}
	return c
}

// Progress is derived on demand and never stored on the task.
type Progress struct {
	Completed int     `json:"completed"`
	Target    int     `json:"target"`
	Percent   float64 `json:"percent"`
}

type ScoreBreakdown struct {
	TaskTerm    float64 `json:"task_term"`
	VolumeTerm  float64 `json:"volume_term"`
	RecencyTerm float64 `json:"recency_term"`
	Score       float64 `json:"score"`
}

type AdminProfile struct {
	Admin    AdminMember    `json:"admin"`
	Current  *Task          `json:"current_task,omitempty"`
	Progress *Progress      `json:"progress,omitempty"`
	Score    ScoreBreakdown `json:"score"`
	Uploads  int            `json:"completed_uploads"`
}

type TeamEntry struct {
	AdminID string     `json:"admin_id"`
	Name    string     `json:"name"`
	Role    Role       `json:"role"`
	Status  TaskStatus `json:"current_status,omitempty"`
	Score   float64    `json:"score"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	AdminID    string `json:"admin_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}
