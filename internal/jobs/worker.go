package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"time"

	"gorm.io/gorm"
)

type Worker struct {
	ID   string
	Repo *Repo
	DB   *gorm.DB
	Log  *slog.Logger
}

// trackedAppRow reads just what reminder dispatch needs, without importing
// the tracking package.
type trackedAppRow struct {
	ID           uint64     `gorm:"column:id"`
	UserID       uint64     `gorm:"column:user_id"`
	JobID        uint64     `gorm:"column:job_id"`
	Status       string     `gorm:"column:status"`
	ReminderDate *time.Time `gorm:"column:reminder_date"`
}

func (trackedAppRow) TableName() string { return "tracked_applications" }

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(800 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, err := w.Repo.Claim(w.ID)
			if err != nil {
				w.Log.Error("worker claim error", "worker", w.ID, "err", err)
				continue
			}
			if job == nil {
				continue
			}
			w.handle(job)
		}
	}
}

func (w *Worker) handle(job *Job) {
	switch job.Type {
	case TypeReminderDispatch:
		w.handleReminder(job)
	default:
		_ = w.Repo.MarkFailed(job.ID, "unknown job type")
	}
}

func (w *Worker) handleReminder(job *Job) {
	type payload struct {
		TrackedApplicationID uint64 `json:"tracked_application_id"`
	}
	var p payload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		_ = w.Repo.MarkFailed(job.ID, "bad payload")
		return
	}

	var row trackedAppRow
	if err := w.DB.
		Where("id=? AND user_id=?", p.TrackedApplicationID, job.UserID).
		First(&row).Error; err != nil {

		if errors.Is(err, gorm.ErrRecordNotFound) {
			// application deleted since the reminder was set
			_ = w.Repo.MarkDone(job.ID)
			return
		}
		w.retry(job, "db read error")
		return
	}

	if row.ReminderDate == nil {
		// reminder cleared since enqueue
		_ = w.Repo.MarkDone(job.ID)
		return
	}

	w.Log.Info("application reminder due",
		"user_id", job.UserID,
		"tracked_application_id", row.ID,
		"job_id", row.JobID,
		"status", row.Status,
	)
	_ = w.Repo.MarkDone(job.ID)
}

func (w *Worker) retry(job *Job, errMsg string) {
	attempts := job.Attempts + 1
	if attempts >= job.MaxAttempts {
		_ = w.Repo.MarkFailed(job.ID, errMsg)
		return
	}

	next := time.Now().Add(Backoff(attempts))
	_ = w.Repo.RetryLater(job.ID, attempts, next, errMsg)
}

// Backoff is exponential, capped at 10 minutes.
func Backoff(attempts int) time.Duration {
	sec := math.Min(math.Pow(2, float64(attempts)), 600)
	return time.Duration(sec) * time.Second
}
