package engine_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quotaline/internal/config"
	"quotaline/internal/domain"
	"quotaline/internal/engine"
)

func uploads(name string, n int, at time.Time) []domain.ContentRecord {
	res := make([]domain.ContentRecord, 0, n)
	for i := 0; i < n; i++ {
		res = append(res, domain.ContentRecord{
			ID:            fmt.Sprintf("%s-%s-%d", name, at.Format("0102"), i),
			UploadedBy:    name,
			CreatedAt:     at,
			DownloadLinks: []domain.DownloadLink{{URL: "https://cdn.example/" + name}},
		})
	}
	return res
}

func targetTask(status domain.TaskStatus, target int) domain.Task {
	return domain.Task{ID: "t-" + string(status), Type: domain.TaskTypeTarget, Status: status, StartDate: base.Add(-30 * 24 * time.Hour), Deadline: base.Add(-20 * 24 * time.Hour), Target: &target}
}

func TestComputeScoreScenarios(t *testing.T) {
	w := config.Default("team-1").Scoring
	now := base
	old := now.Add(-30 * 24 * time.Hour)
	recent := now.Add(-2 * 24 * time.Hour)
	cases := []struct {
		name    string
		admin   domain.AdminMember
		records []domain.ContentRecord
		want    domain.ScoreBreakdown
	}{
		{
			name:  "no tasks no uploads",
			admin: domain.AdminMember{Name: "mika"},
			want:  domain.ScoreBreakdown{},
		},
		{
			name:    "completed target with some recent work",
			admin:   domain.AdminMember{Name: "mika", Tasks: []domain.Task{targetTask(domain.TaskStatusCompleted, 10)}},
			records: append(uploads("mika", 22, old), uploads("mika", 3, recent)...),
			want:    domain.ScoreBreakdown{TaskTerm: 6, VolumeTerm: 1.5, RecencyTerm: 0.6, Score: 8.1},
		},
		{
			name:    "incompleted target clamps at zero",
			admin:   domain.AdminMember{Name: "mika", Tasks: []domain.Task{targetTask(domain.TaskStatusIncompleted, 10)}},
			records: uploads("mika", 60, old),
			want:    domain.ScoreBreakdown{TaskTerm: -4, VolumeTerm: 3, RecencyTerm: 0, Score: 0},
		},
		{
			name:    "every term maxed",
			admin:   domain.AdminMember{Name: "mika", Tasks: []domain.Task{targetTask(domain.TaskStatusCompleted, 10)}},
			records: uploads("mika", 80, recent),
			want:    domain.ScoreBreakdown{TaskTerm: 6, VolumeTerm: 3, RecencyTerm: 1, Score: 10},
		},
		{
			name:    "active target contributes nothing",
			admin:   domain.AdminMember{Name: "mika", Tasks: []domain.Task{targetTask(domain.TaskStatusActive, 10)}},
			records: uploads("mika", 5, recent),
			want:    domain.ScoreBreakdown{VolumeTerm: 0.3, RecencyTerm: 1, Score: 1.3},
		},
		{
			name:    "other uploaders ignored",
			admin:   domain.AdminMember{Name: "mika"},
			records: uploads("sol", 40, recent),
			want:    domain.ScoreBreakdown{},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := engine.ComputeScore(w, tc.admin, tc.records, now)
			assert.InDelta(t, tc.want.TaskTerm, got.TaskTerm, 1e-9)
			assert.InDelta(t, tc.want.VolumeTerm, got.VolumeTerm, 1e-9)
			assert.InDelta(t, tc.want.RecencyTerm, got.RecencyTerm, 1e-9)
			assert.Equal(t, tc.want.Score, got.Score)
			assert.GreaterOrEqual(t, got.Score, 0.0)
			assert.LessOrEqual(t, got.Score, 10.0)
		})
	}
}

func TestComputeScoreUsesLatestTargetTask(t *testing.T) {
	w := config.Default("team-1").Scoring
	deadline := base.Add(time.Hour)
	todo := domain.Task{ID: "todo", Type: domain.TaskTypeTodo, Status: domain.TaskStatusIncompleted, Deadline: deadline, Items: []domain.TodoItem{{Text: "a"}}}
	admin := domain.AdminMember{Name: "mika", Tasks: []domain.Task{
		targetTask(domain.TaskStatusIncompleted, 5),
		targetTask(domain.TaskStatusCompleted, 5),
		todo,
	}}
	got := engine.ComputeScore(w, admin, nil, base)
	assert.Equal(t, 6.0, got.TaskTerm)
	assert.Equal(t, 6.0, got.Score)

	admin.Tasks = append(admin.Tasks, targetTask(domain.TaskStatusCancelled, 5))
	got = engine.ComputeScore(w, admin, nil, base)
	assert.Equal(t, 0.0, got.TaskTerm)
}

func TestComputeScoreRecencyWindow(t *testing.T) {
	w := config.Default("team-1").Scoring
	admin := domain.AdminMember{Name: "mika"}
	records := append(uploads("mika", 1, base.Add(-w.RecencyWindow)), uploads("mika", 1, base.Add(-w.RecencyWindow+time.Second))...)
	records = append(records, uploads("mika", 1, base.Add(time.Hour))...)
	got := engine.ComputeScore(w, admin, records, base)
	// only the upload one second inside the window counts as recent
	assert.InDelta(t, 0.2, got.RecencyTerm, 1e-9)
}

func TestComputeScoreIsPure(t *testing.T) {
	w := config.Default("team-1").Scoring
	admin := domain.AdminMember{Name: "mika", Tasks: []domain.Task{targetTask(domain.TaskStatusCompleted, 3)}}
	records := uploads("mika", 7, base.Add(-time.Hour))
	first := engine.ComputeScore(w, admin, records, base)
	second := engine.ComputeScore(w, admin, records, base)
	require.Equal(t, first, second)
	assert.Equal(t, domain.TaskStatusCompleted, admin.Tasks[0].Status)
	assert.Len(t, records, 7)
}

func TestComputeScoreCustomWeights(t *testing.T) {
	w := config.Default("team-1").Scoring
	w.VolumeUploads = 10
	w.TaskCompletedPoints = 5
	admin := domain.AdminMember{Name: "mika", Tasks: []domain.Task{targetTask(domain.TaskStatusCompleted, 3)}}
	got := engine.ComputeScore(w, admin, uploads("mika", 5, base.Add(-30*24*time.Hour)), base)
	assert.Equal(t, 6.5, got.Score)
}
