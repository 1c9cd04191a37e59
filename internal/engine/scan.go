package engine

import (
	"context"
	"errors"
	"log/slog"

	"quotaline/internal/domain"
	"quotaline/internal/events"
)

// ScanAndUpdateOverdueTasks loads both repositories and demotes every expired
// Active task that has not met its target. Concurrent callers in one process
// share a single scan and its result. The shared scan runs detached from the
// caller's cancellation, so one caller giving up neither aborts it nor fails
// the others.
func (e Engine) ScanAndUpdateOverdueTasks(ctx context.Context) (int, error) {
	if e.scans == nil {
		return e.scanAll(ctx)
	}
	detached := context.WithoutCancel(ctx)
	ch := e.scans.DoChan("overdue", func() (any, error) {
		return e.scanAll(detached)
	})
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case res := <-ch:
		return res.Val.(int), res.Err
	}
}

func (e Engine) scanAll(ctx context.Context) (int, error) {
	admins, err := e.listAdmins(ctx)
	if err != nil {
		return 0, err
	}
	records, err := e.listContent(ctx)
	if err != nil {
		return 0, err
	}
	return e.ScanOverdue(ctx, admins, records)
}

// ScanOverdue runs the overdue sweep over a snapshot of admins and records.
//
// An Active task whose deadline has passed moves to Incompleted with
// endDate = deadline when its progress is below target. A task that reached
// its target stays Active; completing it is an explicit CompleteTask call.
// Each transition is a conditional write on the Active status, so a task
// already moved by another scan or a cancel is skipped and not counted.
// Failures on one task do not stop the sweep; they are joined and returned
// alongside the count of tasks that did transition.
func (e Engine) ScanOverdue(ctx context.Context, admins []domain.AdminMember, records []domain.ContentRecord) (int, error) {
	now := e.now()
	updated := 0
	var errs []error
	for _, admin := range admins {
		for _, task := range admin.Tasks {
			if task.Status != domain.TaskStatusActive || !now.After(task.Deadline) {
				continue
			}
			progress := ComputeProgress(task, admin.Name, records)
			if progress.Completed >= progress.Target {
				e.logger().Debug("expired task met its target; left active", slog.String("admin_id", admin.ID), slog.String("task_id", task.ID))
				continue
			}
			changed, err := e.markIncompleted(ctx, admin.ID, task)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if !changed {
				continue
			}
			updated++
			e.logger().Info("task marked incompleted",
				slog.String("admin_id", admin.ID),
				slog.String("task_id", task.ID),
				slog.Int("completed", progress.Completed),
				slog.Int("target", progress.Target))
			e.record(ctx, events.Entry{
				Type:       events.TaskOverdue,
				EntityKind: "task",
				EntityID:   task.ID,
				AdminID:    admin.ID,
				ActorID:    events.SystemActor,
				Payload: events.Payload{
					"completed": progress.Completed,
					"target":    progress.Target,
					"deadline":  task.Deadline,
				},
			})
		}
	}
	return updated, errors.Join(errs...)
}

func (e Engine) markIncompleted(ctx context.Context, adminID string, task domain.Task) (bool, error) {
	unlock := e.lockAdmin(adminID)
	defer unlock()
	changed, err := e.Admins.TransitionTask(ctx, adminID, task.ID, domain.TaskStatusActive, domain.TaskStatusIncompleted, task.Deadline)
	if err != nil {
		return false, repositoryError("transition task", "", task.ID, err)
	}
	return changed, nil
}
