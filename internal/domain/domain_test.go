package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quotaline/internal/domain"
)

func TestIsCompletedUpload(t *testing.T) {
	cases := []struct {
		name   string
		record domain.ContentRecord
		want   bool
	}{
		{
			name:   "single with url",
			record: domain.ContentRecord{Kind: domain.ContentKindSingle, DownloadLinks: []domain.DownloadLink{{URL: ""}, {URL: "https://cdn.example/a.mkv"}}},
			want:   true,
		},
		{
			name:   "single with blank urls",
			record: domain.ContentRecord{Kind: domain.ContentKindSingle, DownloadLinks: []domain.DownloadLink{{URL: "  "}, {URL: "\t"}}},
			want:   false,
		},
		{
			name:   "single with nothing",
			record: domain.ContentRecord{Kind: domain.ContentKindSingle},
			want:   false,
		},
		{
			name: "series with episode url",
			record: domain.ContentRecord{Kind: domain.ContentKindSeries, Episodes: []domain.Episode{
				{Number: 1},
				{Number: 2, DownloadLinks: []domain.DownloadLink{{URL: "https://cdn.example/e2.mkv"}}},
			}},
			want: true,
		},
		{
			name:   "series with season bulk url",
			record: domain.ContentRecord{Kind: domain.ContentKindSeries, SeasonDownloads: []domain.DownloadLink{{URL: "https://cdn.example/s1.zip"}}},
			want:   true,
		},
		{
			name: "series ignores single-asset links",
			record: domain.ContentRecord{Kind: domain.ContentKindSeries, DownloadLinks: []domain.DownloadLink{{URL: "https://cdn.example/x"}},
				Episodes: []domain.Episode{{Number: 1, DownloadLinks: []domain.DownloadLink{{URL: " "}}}}},
			want: false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, domain.IsCompletedUpload(tc.record))
		})
	}
}

func TestDraftValidation(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(24 * time.Hour)
	past := now.Add(-time.Hour)
	ten := 10
	zero := 0

	cases := []struct {
		name  string
		draft domain.TaskDraft
		field string
	}{
		{"empty title", domain.TaskDraft{Title: "  ", Type: domain.TaskTypeTarget, Deadline: &future, Target: &ten}, "title"},
		{"missing deadline", domain.TaskDraft{Title: "x", Type: domain.TaskTypeTarget, Target: &ten}, "deadline"},
		{"past deadline", domain.TaskDraft{Title: "x", Type: domain.TaskTypeTarget, Deadline: &past, Target: &ten}, "deadline"},
		{"deadline equal to now", domain.TaskDraft{Title: "x", Type: domain.TaskTypeTarget, Deadline: &now, Target: &ten}, "deadline"},
		{"target missing", domain.TaskDraft{Title: "x", Type: domain.TaskTypeTarget, Deadline: &future}, "target"},
		{"target below one", domain.TaskDraft{Title: "x", Type: domain.TaskTypeTarget, Deadline: &future, Target: &zero}, "target"},
		{"todo without items", domain.TaskDraft{Title: "x", Type: domain.TaskTypeTodo, Deadline: &future, Items: []string{" ", ""}}, "items"},
		{"unknown type", domain.TaskDraft{Title: "x", Type: "quota", Deadline: &future}, "type"},
		{"todo with target", domain.TaskDraft{Title: "x", Type: domain.TaskTypeTodo, Deadline: &future, Target: &ten, Items: []string{"a"}}, "target"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.draft.Validate(now)
			var verr *domain.ValidationError
			require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestNewTaskTodoTrimsBlankItems(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	deadline := now.Add(48 * time.Hour)
	task, err := domain.NewTask("t-1", domain.TaskDraft{
		Title:    " Upload season one ",
		Type:     domain.TaskTypeTodo,
		Deadline: &deadline,
		Items:    []string{"episode 1", "", "  ", "episode 2"},
	}, now)
	require.NoError(t, err)
	assert.Equal(t, "Upload season one", task.Title)
	assert.Equal(t, domain.TaskStatusActive, task.Status)
	assert.Equal(t, now, task.StartDate)
	assert.Nil(t, task.Target)
	require.Len(t, task.Items, 2)
	assert.Equal(t, 2, task.TargetCount())
}

func TestAdminLatestTask(t *testing.T) {
	five := 5
	admin := domain.AdminMember{Tasks: []domain.Task{
		{ID: "a", Type: domain.TaskTypeTarget, Target: &five, Status: domain.TaskStatusCompleted},
		{ID: "b", Type: domain.TaskTypeTarget, Target: &five, Status: domain.TaskStatusIncompleted},
		{ID: "c", Type: domain.TaskTypeTodo, Status: domain.TaskStatusActive},
	}}
	latest, ok := admin.LatestTask(domain.TaskTypeTarget)
	require.True(t, ok)
	assert.Equal(t, "b", latest.ID)

	unfinished, ok := admin.UnfinishedTask()
	require.True(t, ok)
	assert.Equal(t, "b", unfinished.ID)
	assert.Equal(t, 2, admin.TaskIndex("c"))
	assert.Equal(t, -1, admin.TaskIndex("zzz"))
}
