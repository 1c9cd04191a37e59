package engine

import (
	"context"
	"math"

	"quotaline/internal/domain"
)

// ComputeProgress derives progress for a task without touching any state.
//
// Target tasks count the admin's completed uploads created strictly after the
// task's start date. Todo tasks count checked items. Target is task.target or
// len(items) respectively.
func ComputeProgress(task domain.Task, adminName string, records []domain.ContentRecord) domain.Progress {
	p := domain.Progress{Target: task.TargetCount()}
	switch task.Type {
	case domain.TaskTypeTarget:
		p.Completed = countUploadsAfter(records, adminName, task)
	case domain.TaskTypeTodo:
		for _, item := range task.Items {
			if item.Completed {
				p.Completed++
			}
		}
	}
	p.Percent = Percent(p.Completed, p.Target)
	return p
}

func countUploadsAfter(records []domain.ContentRecord, adminName string, task domain.Task) int {
	n := 0
	for _, r := range records {
		if r.UploadedBy != adminName || !r.CreatedAt.After(task.StartDate) {
			continue
		}
		if domain.IsCompletedUpload(r) {
			n++
		}
	}
	return n
}

// Percent is min(100, completed/target*100), or 0 when target is 0.
func Percent(completed, target int) float64 {
	if target <= 0 {
		return 0
	}
	return math.Min(100, float64(completed)/float64(target)*100)
}

// TaskProgress loads the admin and content repository and computes progress for one task.
func (e Engine) TaskProgress(ctx context.Context, adminID, taskID string) (domain.Progress, error) {
	admin, err := e.getAdmin(ctx, adminID)
	if err != nil {
		return domain.Progress{}, err
	}
	idx := admin.TaskIndex(taskID)
	if idx < 0 {
		return domain.Progress{}, &domain.NotFoundError{Kind: "task", ID: taskID}
	}
	records, err := e.listContent(ctx)
	if err != nil {
		return domain.Progress{}, err
	}
	return ComputeProgress(admin.Tasks[idx], admin.Name, records), nil
}
