package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"quotaline/internal/domain"
	"quotaline/internal/engine"
)

func TestComputeProgressTargetTask(t *testing.T) {
	start := base
	task := targetTask(domain.TaskStatusActive, 4)
	task.StartDate = start
	records := []domain.ContentRecord{
		{ID: "at-start", UploadedBy: "mika", CreatedAt: start, DownloadLinks: []domain.DownloadLink{{URL: "https://x"}}},
		{ID: "before", UploadedBy: "mika", CreatedAt: start.Add(-time.Second), DownloadLinks: []domain.DownloadLink{{URL: "https://x"}}},
		{ID: "after", UploadedBy: "mika", CreatedAt: start.Add(time.Nanosecond), DownloadLinks: []domain.DownloadLink{{URL: "https://x"}}},
		{ID: "blank", UploadedBy: "mika", CreatedAt: start.Add(time.Minute), DownloadLinks: []domain.DownloadLink{{URL: "  "}}},
		{ID: "series", UploadedBy: "mika", Kind: domain.ContentKindSeries, CreatedAt: start.Add(time.Hour), SeasonDownloads: []domain.DownloadLink{{URL: "https://pack"}}},
		{ID: "someone-else", UploadedBy: "sol", CreatedAt: start.Add(time.Hour), DownloadLinks: []domain.DownloadLink{{URL: "https://x"}}},
	}
	p := engine.ComputeProgress(task, "mika", records)
	assert.Equal(t, domain.Progress{Completed: 2, Target: 4, Percent: 50}, p)
	assert.Equal(t, p, engine.ComputeProgress(task, "mika", records))
}

func TestComputeProgressNeverExceedsUploadsAfterStart(t *testing.T) {
	task := targetTask(domain.TaskStatusActive, 1)
	task.StartDate = base
	records := uploads("mika", 6, base.Add(time.Minute))
	records = append(records, domain.ContentRecord{ID: "empty", UploadedBy: "mika", CreatedAt: base.Add(time.Hour)})
	p := engine.ComputeProgress(task, "mika", records)
	assert.Equal(t, 6, p.Completed)
	assert.LessOrEqual(t, p.Completed, len(records))
	assert.Equal(t, 100.0, p.Percent)
}

func TestComputeProgressTodoTargetIsItemCount(t *testing.T) {
	task := domain.Task{Type: domain.TaskTypeTodo, Status: domain.TaskStatusActive, Items: []domain.TodoItem{{Text: "a"}, {Text: "b", Completed: true}, {Text: "c"}, {Text: "d", Completed: true}}}
	p := engine.ComputeProgress(task, "mika", uploads("mika", 10, base.Add(time.Hour)))
	assert.Equal(t, 2, p.Completed)
	assert.Equal(t, len(task.Items), p.Target)
	assert.Equal(t, 50.0, p.Percent)
}

func TestPercent(t *testing.T) {
	cases := []struct {
		completed, target int
		want              float64
	}{
		{0, 0, 0},
		{5, 0, 0},
		{1, 4, 25},
		{4, 4, 100},
		{9, 4, 100},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, engine.Percent(tc.completed, tc.target))
	}
}
