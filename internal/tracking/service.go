package tracking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ReminderQueue schedules reminder dispatch jobs. Implemented by jobs.Repo.
type ReminderQueue interface {
	EnqueueReminder(ctx context.Context, userID, trackedApplicationID uint64, runAt time.Time) error
	CancelPendingReminders(ctx context.Context, userID, trackedApplicationID uint64) error
}

// Service owns every status mutation. Nothing else writes the status column
// or the history table.
type Service struct {
	Repo      Repository
	Reminders ReminderQueue // optional
	Log       *slog.Logger
}

// SetStatus moves the (userID, jobID) application to newStatus, creating the
// row on first touch. Repeating the current status changes nothing and is
// not audited. The returned record has its Job resolved.
func (s *Service) SetStatus(ctx context.Context, userID, jobID uint64, newStatus Status, note string) (*TrackedApplication, error) {
	ok, err := s.Repo.JobExists(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrJobNotFound
	}

	app, err := s.Repo.GetByUserAndJob(ctx, userID, jobID)
	switch {
	case errors.Is(err, ErrNotFound):
		created, createErr := s.firstTouch(ctx, userID, jobID, newStatus, note)
		if createErr == nil {
			return created, nil
		}
		if !errors.Is(createErr, ErrDuplicate) {
			return nil, createErr
		}
		// Lost the first-touch race. The other writer's row exists now;
		// fall through to the update path against it.
		app, err = s.Repo.GetByUserAndJob(ctx, userID, jobID)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	}

	previous := app.Status
	if previous == newStatus {
		return s.Repo.GetResolved(ctx, userID, jobID)
	}

	if err := s.Repo.UpdateStatus(ctx, app.ID, newStatus); err != nil {
		return nil, err
	}
	s.appendHistory(ctx, &StatusHistoryEntry{
		TrackedApplicationID: app.ID,
		PreviousStatus:       previous,
		NewStatus:            newStatus,
		Notes:                note,
		UpdatedBy:            userID,
	})

	return s.Repo.GetResolved(ctx, userID, jobID)
}

func (s *Service) firstTouch(ctx context.Context, userID, jobID uint64, status Status, note string) (*TrackedApplication, error) {
	app := &TrackedApplication{
		UserID:     userID,
		JobID:      jobID,
		Status:     status,
		IsFavorite: false,
	}
	if err := s.Repo.Create(ctx, app); err != nil {
		return nil, err
	}

	if note == "" {
		note = "initial status"
	}
	s.appendHistory(ctx, &StatusHistoryEntry{
		TrackedApplicationID: app.ID,
		PreviousStatus:       "",
		NewStatus:            status,
		Notes:                note,
		UpdatedBy:            userID,
	})

	return s.Repo.GetResolved(ctx, userID, jobID)
}

// appendHistory is best effort: a lost audit entry is logged, a lost status
// change is not acceptable, so the append never fails the operation.
func (s *Service) appendHistory(ctx context.Context, entry *StatusHistoryEntry) {
	if err := s.Repo.AppendHistory(ctx, entry); err != nil {
		s.Log.ErrorContext(ctx, "status history append failed",
			"tracked_application_id", entry.TrackedApplicationID,
			"previous_status", entry.PreviousStatus,
			"new_status", entry.NewStatus,
			"err", err,
		)
	}
}

// StatusCounts tallies the user's applications per status, zero-filled over
// the full enumerated set so dashboard widgets never null-check.
func (s *Service) StatusCounts(ctx context.Context, userID uint64) (map[Status]int64, error) {
	counts, err := s.Repo.CountByStatus(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make(map[Status]int64, len(AllStatuses))
	for _, st := range AllStatuses {
		out[st] = counts[st]
	}
	return out, nil
}

// History returns the audit trail oldest first, owner-scoped.
func (s *Service) History(ctx context.Context, userID, id uint64) ([]StatusHistoryEntry, error) {
	app, err := s.Repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return s.Repo.History(ctx, app.ID)
}

// FieldPatch is a whole-field replace: a nil field is untouched, a set field
// overwrites completely. List fields are last-write-wins across devices.
type FieldPatch struct {
	NextSteps      *[]string
	InterviewDates *[]time.Time
	CustomTags     *[]string
	Notes          *string
	IsFavorite     *bool
	ReminderDate   *time.Time
	ClearReminder  bool
}

// PatchFields applies a direct field edit. These edits never touch status
// and never create history entries.
func (s *Service) PatchFields(ctx context.Context, userID, id uint64, patch FieldPatch) (*TrackedApplication, error) {
	app, err := s.Repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if patch.NextSteps != nil {
		app.NextSteps = *patch.NextSteps
	}
	if patch.InterviewDates != nil {
		app.InterviewDates = *patch.InterviewDates
	}
	if patch.CustomTags != nil {
		app.CustomTags = *patch.CustomTags
	}
	if patch.Notes != nil {
		app.Notes = *patch.Notes
	}
	if patch.IsFavorite != nil {
		app.IsFavorite = *patch.IsFavorite
	}
	if patch.ReminderDate != nil {
		app.ReminderDate = patch.ReminderDate
	}
	if patch.ClearReminder {
		app.ReminderDate = nil
	}
	app.UpdatedAt = time.Now()

	if err := s.Repo.Save(ctx, app); err != nil {
		return nil, err
	}

	if s.Reminders != nil && (patch.ReminderDate != nil || patch.ClearReminder) {
		if err := s.Reminders.CancelPendingReminders(ctx, userID, app.ID); err != nil {
			return nil, fmt.Errorf("cancel pending reminders: %w", err)
		}
		if patch.ReminderDate != nil {
			if err := s.Reminders.EnqueueReminder(ctx, userID, app.ID, *patch.ReminderDate); err != nil {
				return nil, fmt.Errorf("enqueue reminder: %w", err)
			}
		}
	}

	return s.Repo.GetResolved(ctx, userID, app.JobID)
}

// Delete removes the application and its history (cascade, not tombstone)
// and cancels any pending reminder.
func (s *Service) Delete(ctx context.Context, userID, id uint64) error {
	if err := s.Repo.Delete(ctx, userID, id); err != nil {
		return err
	}
	if s.Reminders != nil {
		if err := s.Reminders.CancelPendingReminders(ctx, userID, id); err != nil {
			s.Log.ErrorContext(ctx, "cancel reminders after delete failed",
				"tracked_application_id", id, "err", err)
		}
	}
	return nil
}
