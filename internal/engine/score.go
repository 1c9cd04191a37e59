package engine

import (
	"context"
	"math"
	"time"

	"quotaline/internal/config"
	"quotaline/internal/domain"
)

// ComputeScore is the 0-10 performance score for an admin at instant now.
//
// The task term comes from the admin's most recent Target task: Completed
// earns TaskCompletedPoints, Incompleted TaskIncompletedPoints, anything else
// nothing. Volume and recency terms scale completed uploads against their
// thresholds and cap at their max points. The sum is clamped to [0,10] only
// after all terms are added, then rounded to one decimal.
func ComputeScore(w config.Scoring, admin domain.AdminMember, records []domain.ContentRecord, now time.Time) domain.ScoreBreakdown {
	var b domain.ScoreBreakdown
	if latest, ok := admin.LatestTask(domain.TaskTypeTarget); ok {
		switch latest.Status {
		case domain.TaskStatusCompleted:
			b.TaskTerm = w.TaskCompletedPoints
		case domain.TaskStatusIncompleted:
			b.TaskTerm = w.TaskIncompletedPoints
		}
	}
	total, recent := countUploads(records, admin.Name, now.Add(-w.RecencyWindow), now)
	b.VolumeTerm = scaled(total, w.VolumeUploads, w.VolumeMaxPoints)
	b.RecencyTerm = scaled(recent, w.RecencyUploads, w.RecencyMaxPoints)
	raw := b.TaskTerm + b.VolumeTerm + b.RecencyTerm
	b.Score = math.Round(clamp(raw, 0, 10)*10) / 10
	return b
}

// countUploads returns all-time completed uploads by name and those created in (from, to].
func countUploads(records []domain.ContentRecord, name string, from, to time.Time) (total, recent int) {
	for _, r := range records {
		if r.UploadedBy != name || !domain.IsCompletedUpload(r) {
			continue
		}
		total++
		if r.CreatedAt.After(from) && !r.CreatedAt.After(to) {
			recent++
		}
	}
	return total, recent
}

func scaled(count, threshold int, points float64) float64 {
	if threshold <= 0 {
		return 0
	}
	return math.Min(points, float64(count)/float64(threshold)*points)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// ComputeScore loads the admin and every content record and scores them at the engine clock.
func (e Engine) ComputeScore(ctx context.Context, adminID string) (domain.ScoreBreakdown, error) {
	admin, err := e.getAdmin(ctx, adminID)
	if err != nil {
		return domain.ScoreBreakdown{}, err
	}
	records, err := e.listContent(ctx)
	if err != nil {
		return domain.ScoreBreakdown{}, err
	}
	return ComputeScore(e.scoring(), admin, records, e.now()), nil
}
