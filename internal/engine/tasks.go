package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"quotaline/internal/domain"
	"quotaline/internal/events"
	"quotaline/internal/repo"
)

// AssignTask appends a new Active task to the admin's list. The draft is
// validated before the unfinished-task check, so malformed input always
// reports a ValidationError.
func (e Engine) AssignTask(ctx context.Context, adminID string, draft domain.TaskDraft, actorID string) (domain.Task, error) {
	now := e.now()
	draft = draft.Normalize()
	if err := draft.Validate(now); err != nil {
		return domain.Task{}, err
	}
	unlock := e.lockAdmin(adminID)
	defer unlock()

	admin, err := e.getAdmin(ctx, adminID)
	if err != nil {
		return domain.Task{}, err
	}
	if current, ok := admin.UnfinishedTask(); ok {
		return domain.Task{}, &domain.ConflictError{AdminID: adminID, TaskID: current.ID}
	}
	task, err := domain.NewTask(e.newID(), draft, now)
	if err != nil {
		return domain.Task{}, err
	}
	tasks := append(cloneTasks(admin.Tasks), task)
	if err := e.Admins.SaveAdminTasks(ctx, adminID, admin.Tasks, tasks); err != nil {
		// Another process got there first; the store's unique index caught it.
		if errors.Is(err, repo.ErrUnfinishedTaskExists) {
			return domain.Task{}, &domain.ConflictError{AdminID: adminID}
		}
		return domain.Task{}, saveError(adminID, "", "assign", "", err)
	}
	e.logger().Info("task assigned", slog.String("admin_id", adminID), slog.String("task_id", task.ID), slog.String("type", string(task.Type)))
	e.record(ctx, events.Entry{
		Type:       events.TaskAssigned,
		EntityKind: "task",
		EntityID:   task.ID,
		AdminID:    adminID,
		ActorID:    actorID,
		Payload: events.Payload{
			"title":    task.Title,
			"type":     task.Type,
			"deadline": task.Deadline,
			"target":   task.TargetCount(),
		},
	})
	return task, nil
}

// CancelTask resolves an Active or Incompleted task as Cancelled.
func (e Engine) CancelTask(ctx context.Context, adminID, taskID, actorID string) error {
	unlock := e.lockAdmin(adminID)
	defer unlock()

	admin, tasks, idx, err := e.loadTask(ctx, adminID, taskID)
	if err != nil {
		return err
	}
	t := &tasks[idx]
	if !t.Status.Unfinished() {
		return &domain.InvalidStateError{TaskID: taskID, Status: t.Status, Op: "cancel"}
	}
	from := t.Status
	now := e.now()
	t.Status = domain.TaskStatusCancelled
	t.EndDate = &now
	if err := e.Admins.SaveAdminTasks(ctx, admin.ID, admin.Tasks, tasks); err != nil {
		return saveError(adminID, taskID, "cancel", from, err)
	}
	e.logger().Info("task cancelled", slog.String("admin_id", adminID), slog.String("task_id", taskID), slog.String("from", string(from)))
	e.record(ctx, events.Entry{
		Type:       events.TaskCancelled,
		EntityKind: "task",
		EntityID:   taskID,
		AdminID:    adminID,
		ActorID:    actorID,
		Payload:    events.Payload{"from": from},
	})
	return nil
}

// ToggleTodoItem sets items[index].completed on an Active Todo task. It never
// changes the task's status.
func (e Engine) ToggleTodoItem(ctx context.Context, adminID, taskID string, index int, completed bool, actorID string) error {
	unlock := e.lockAdmin(adminID)
	defer unlock()

	admin, tasks, idx, err := e.loadTask(ctx, adminID, taskID)
	if err != nil {
		return err
	}
	t := &tasks[idx]
	if t.Type != domain.TaskTypeTodo {
		return &domain.InvalidStateError{TaskID: taskID, Status: t.Status, Op: "toggle", Message: "not a todo task"}
	}
	if index < 0 || index >= len(t.Items) {
		return &domain.NotFoundError{Kind: "item", ID: fmt.Sprintf("%s[%d]", taskID, index)}
	}
	if t.Status != domain.TaskStatusActive {
		return &domain.InvalidStateError{TaskID: taskID, Status: t.Status, Op: "toggle"}
	}
	if t.Items[index].Completed == completed {
		return nil
	}
	t.Items[index].Completed = completed
	if err := e.Admins.SaveAdminTasks(ctx, admin.ID, admin.Tasks, tasks); err != nil {
		return saveError(adminID, taskID, "toggle", t.Status, err)
	}
	e.logger().Debug("todo item toggled", slog.String("task_id", taskID), slog.Int("index", index), slog.Bool("completed", completed))
	e.record(ctx, events.Entry{
		Type:       events.TaskItemToggled,
		EntityKind: "task",
		EntityID:   taskID,
		AdminID:    adminID,
		ActorID:    actorID,
		Payload:    events.Payload{"index": index, "completed": completed},
	})
	return nil
}

// CompleteTask marks an Active task Completed. Without force the task's
// progress must already meet its target.
func (e Engine) CompleteTask(ctx context.Context, adminID, taskID string, force bool, actorID string) (domain.Task, error) {
	unlock := e.lockAdmin(adminID)
	defer unlock()

	admin, tasks, idx, err := e.loadTask(ctx, adminID, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	t := &tasks[idx]
	if t.Status != domain.TaskStatusActive {
		return domain.Task{}, &domain.InvalidStateError{TaskID: taskID, Status: t.Status, Op: "complete"}
	}
	var progress domain.Progress
	if t.Type == domain.TaskTypeTarget {
		records, err := e.listContent(ctx)
		if err != nil {
			return domain.Task{}, err
		}
		progress = ComputeProgress(*t, admin.Name, records)
	} else {
		progress = ComputeProgress(*t, admin.Name, nil)
	}
	if !force && progress.Completed < progress.Target {
		return domain.Task{}, &domain.InvalidStateError{
			TaskID:  taskID,
			Status:  t.Status,
			Op:      "complete",
			Message: "progress below target",
		}
	}
	now := e.now()
	t.Status = domain.TaskStatusCompleted
	t.EndDate = &now
	if err := e.Admins.SaveAdminTasks(ctx, admin.ID, admin.Tasks, tasks); err != nil {
		return domain.Task{}, saveError(adminID, taskID, "complete", domain.TaskStatusActive, err)
	}
	e.logger().Info("task completed", slog.String("admin_id", adminID), slog.String("task_id", taskID), slog.Bool("forced", force))
	e.record(ctx, events.Entry{
		Type:       events.TaskCompleted,
		EntityKind: "task",
		EntityID:   taskID,
		AdminID:    adminID,
		ActorID:    actorID,
		Payload: events.Payload{
			"completed": progress.Completed,
			"target":    progress.Target,
			"forced":    force,
		},
	})
	return *t, nil
}

// Tasks returns the admin's task history in list order.
func (e Engine) Tasks(ctx context.Context, adminID string) ([]domain.Task, error) {
	admin, err := e.getAdmin(ctx, adminID)
	if err != nil {
		return nil, err
	}
	return admin.Tasks, nil
}

// saveError maps a failed task-list write. A task moved by another writer
// between load and save surfaces as InvalidStateError; reload and retry.
func saveError(adminID, taskID, op string, loaded domain.TaskStatus, err error) error {
	if errors.Is(err, repo.ErrTaskStatusChanged) {
		return &domain.InvalidStateError{
			TaskID:  taskID,
			Status:  loaded,
			Op:      op,
			Message: "task status changed concurrently",
		}
	}
	return repositoryError("save admin tasks", "admin", adminID, err)
}

// loadTask returns the admin, a private copy of their tasks and the index of taskID.
func (e Engine) loadTask(ctx context.Context, adminID, taskID string) (domain.AdminMember, []domain.Task, int, error) {
	admin, err := e.getAdmin(ctx, adminID)
	if err != nil {
		return admin, nil, -1, err
	}
	idx := admin.TaskIndex(taskID)
	if idx < 0 {
		return admin, nil, -1, &domain.NotFoundError{Kind: "task", ID: taskID}
	}
	return admin, cloneTasks(admin.Tasks), idx, nil
}
