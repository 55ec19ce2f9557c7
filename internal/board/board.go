// Package board is the client-side Kanban state: tracked applications
// grouped into status columns, mutated optimistically on drag and rolled
// back when the server call fails.
package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"jobtrack/internal/tracking"
)

var (
	ErrCardNotFound  = errors.New("card not found")
	ErrMoveInFlight  = errors.New("move already in flight for this card")
	ErrCardNotSynced = errors.New("card has no server id yet")
)

// Client is the remote surface the board drives. tracking.Service
// satisfies it; tests use a scripted fake.
type Client interface {
	SetStatus(ctx context.Context, userID, jobID uint64, status tracking.Status, note string) (*tracking.TrackedApplication, error)
	PatchFields(ctx context.Context, userID, id uint64, patch tracking.FieldPatch) (*tracking.TrackedApplication, error)
}

// Card is one draggable entry.
type Card struct {
	ID        uint64 // tracked application id; 0 until the first server sync
	JobID     uint64
	Title     string
	Company   string
	UpdatedAt time.Time
}

// MarkerState tracks the interview indicator attached to a card.
type MarkerState string

const (
	// MarkerPlaceholder: card just moved into interviewing, no date yet.
	MarkerPlaceholder MarkerState = "to_be_scheduled"
	// MarkerScheduled: at least one interview date exists.
	MarkerScheduled MarkerState = "scheduled"
	// MarkerPending: card left interviewing; the marker is kept, not deleted.
	MarkerPending MarkerState = "pending"
)

type Board struct {
	userID  uint64
	client  Client
	timeout time.Duration
	log     *slog.Logger

	mu         sync.Mutex
	columns    map[tracking.Status][]Card
	markers    map[uint64]MarkerState // by job id
	nextSteps  map[uint64][]string    // by job id
	interviews map[uint64][]time.Time // by job id
	inflight   map[uint64]struct{}    // job ids with an unresolved move
}

func New(userID uint64, client Client, timeout time.Duration, log *slog.Logger) *Board {
	b := &Board{
		userID:     userID,
		client:     client,
		timeout:    timeout,
		log:        log,
		columns:    make(map[tracking.Status][]Card, len(tracking.AllStatuses)),
		markers:    make(map[uint64]MarkerState),
		nextSteps:  make(map[uint64][]string),
		interviews: make(map[uint64][]time.Time),
		inflight:   make(map[uint64]struct{}),
	}
	for _, st := range tracking.AllStatuses {
		b.columns[st] = nil
	}
	return b
}

// Load replaces the board state from a server snapshot.
func (b *Board) Load(apps []tracking.TrackedApplication) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, st := range tracking.AllStatuses {
		b.columns[st] = nil
	}
	clear(b.markers)
	clear(b.nextSteps)
	clear(b.interviews)

	for _, app := range apps {
		card := Card{ID: app.ID, JobID: app.JobID, UpdatedAt: app.UpdatedAt}
		if app.Job != nil {
			card.Title = app.Job.Title
			card.Company = app.Job.Company
		}
		b.columns[app.Status] = append(b.columns[app.Status], card)

		b.nextSteps[app.JobID] = append([]string(nil), app.NextSteps...)
		b.interviews[app.JobID] = append([]time.Time(nil), app.InterviewDates...)

		if len(app.InterviewDates) > 0 {
			if app.Status == tracking.StatusInterviewing {
				b.markers[app.JobID] = MarkerScheduled
			} else {
				b.markers[app.JobID] = MarkerPending
			}
		} else if app.Status == tracking.StatusInterviewing {
			b.markers[app.JobID] = MarkerPlaceholder
		}
	}
}

// Column returns a copy of one column's cards in order.
func (b *Board) Column(st tracking.Status) []Card {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Card(nil), b.columns[st]...)
}

// Marker reports the interview marker for a card, if any.
func (b *Board) Marker(jobID uint64) (MarkerState, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.markers[jobID]
	return m, ok
}

// NextSteps returns a copy of the local task list for a card.
func (b *Board) NextSteps(jobID uint64) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.nextSteps[jobID]...)
}

// Interviews returns a copy of the local interview dates for a card.
func (b *Board) Interviews(jobID uint64) []time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]time.Time(nil), b.interviews[jobID]...)
}

// snapshot captures the full pre-drop grouping. Rollback restores it
// wholesale rather than undoing one move, so interleaved optimistic edits
// cannot corrupt the reverted state.
type snapshot struct {
	columns map[tracking.Status][]Card
	markers map[uint64]MarkerState
}

func (b *Board) takeSnapshot() snapshot {
	s := snapshot{
		columns: make(map[tracking.Status][]Card, len(b.columns)),
		markers: make(map[uint64]MarkerState, len(b.markers)),
	}
	for st, cards := range b.columns {
		s.columns[st] = append([]Card(nil), cards...)
	}
	for id, m := range b.markers {
		s.markers[id] = m
	}
	return s
}

func (b *Board) restoreSnapshot(s snapshot) {
	b.columns = s.columns
	b.markers = s.markers
}

func (b *Board) locate(jobID uint64) (tracking.Status, int, bool) {
	for _, st := range tracking.AllStatuses {
		for i, c := range b.columns[st] {
			if c.JobID == jobID {
				return st, i, true
			}
		}
	}
	return "", 0, false
}

// Move drags the card for jobID into the target column: optimistic apply,
// remote SetStatus under the board timeout, confirm or restore the
// pre-drop snapshot. A second drag on a card with an unresolved move is
// rejected so rollback snapshots stay coherent.
func (b *Board) Move(ctx context.Context, jobID uint64, target tracking.Status, note string) error {
	b.mu.Lock()

	source, idx, ok := b.locate(jobID)
	if !ok {
		b.mu.Unlock()
		return ErrCardNotFound
	}
	if source == target {
		b.mu.Unlock()
		return nil
	}
	if _, busy := b.inflight[jobID]; busy {
		b.mu.Unlock()
		return ErrMoveInFlight
	}

	snap := b.takeSnapshot()

	card := b.columns[source][idx]
	b.columns[source] = append(append([]Card(nil), b.columns[source][:idx]...), b.columns[source][idx+1:]...)
	b.columns[target] = append(b.columns[target], card)

	if target == tracking.StatusInterviewing {
		// only a card with a real date shows as scheduled
		if len(b.interviews[jobID]) > 0 {
			b.markers[jobID] = MarkerScheduled
		} else {
			b.markers[jobID] = MarkerPlaceholder
		}
	} else if source == tracking.StatusInterviewing {
		if _, has := b.markers[jobID]; has {
			b.markers[jobID] = MarkerPending
		}
	}

	b.inflight[jobID] = struct{}{}
	b.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, b.timeout)
	app, err := b.client.SetStatus(callCtx, b.userID, jobID, target, note)
	cancel()

	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.inflight, jobID)

	if err != nil {
		b.restoreSnapshot(snap)
		b.log.Warn("board move failed, rolled back",
			"job_id", jobID, "from", source, "to", target, "err", err)
		return fmt.Errorf("move card: %w", err)
	}

	// Accept the optimistic state; fold in server-assigned fields.
	if st, i, found := b.locate(jobID); found {
		b.columns[st][i].ID = app.ID
		b.columns[st][i].UpdatedAt = app.UpdatedAt
	}
	b.nextSteps[jobID] = append([]string(nil), app.NextSteps...)
	b.interviews[jobID] = append([]time.Time(nil), app.InterviewDates...)
	if target == tracking.StatusInterviewing && len(app.InterviewDates) > 0 {
		b.markers[jobID] = MarkerScheduled
	}
	return nil
}

// AddNextStep appends a task and sends the whole new list (last-write-wins
// across devices; accepted limitation). On failure the local list reverts.
func (b *Board) AddNextStep(ctx context.Context, jobID uint64, step string) error {
	return b.replaceNextSteps(ctx, jobID, func(cur []string) []string {
		return append(cur, step)
	})
}

// RemoveNextStep completes a task by removing it; there is no separate
// done state server-side.
func (b *Board) RemoveNextStep(ctx context.Context, jobID uint64, index int) error {
	return b.replaceNextSteps(ctx, jobID, func(cur []string) []string {
		if index < 0 || index >= len(cur) {
			return cur
		}
		return append(cur[:index:index], cur[index+1:]...)
	})
}

func (b *Board) replaceNextSteps(ctx context.Context, jobID uint64, mutate func([]string) []string) error {
	b.mu.Lock()
	id, err := b.cardServerID(jobID)
	if err != nil {
		b.mu.Unlock()
		return err
	}
	prev := append([]string(nil), b.nextSteps[jobID]...)
	next := mutate(append([]string(nil), prev...))
	b.nextSteps[jobID] = next
	b.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, b.timeout)
	app, err := b.client.PatchFields(callCtx, b.userID, id, tracking.FieldPatch{NextSteps: &next})
	cancel()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.nextSteps[jobID] = prev
		b.log.Warn("next-steps update failed, reverted", "job_id", jobID, "err", err)
		return fmt.Errorf("update next steps: %w", err)
	}
	b.nextSteps[jobID] = append([]string(nil), app.NextSteps...)
	return nil
}

// ScheduleInterview appends one round (round = position + 1) and sends the
// whole list. A confirmed date upgrades the card's marker.
func (b *Board) ScheduleInterview(ctx context.Context, jobID uint64, at time.Time) error {
	b.mu.Lock()
	id, err := b.cardServerID(jobID)
	if err != nil {
		b.mu.Unlock()
		return err
	}
	prevDates := append([]time.Time(nil), b.interviews[jobID]...)
	prevMarker, hadMarker := b.markers[jobID]

	next := append(append([]time.Time(nil), prevDates...), at)
	b.interviews[jobID] = next
	b.markers[jobID] = MarkerScheduled
	b.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, b.timeout)
	app, err := b.client.PatchFields(callCtx, b.userID, id, tracking.FieldPatch{InterviewDates: &next})
	cancel()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.interviews[jobID] = prevDates
		if hadMarker {
			b.markers[jobID] = prevMarker
		} else {
			delete(b.markers, jobID)
		}
		b.log.Warn("interview schedule failed, reverted", "job_id", jobID, "err", err)
		return fmt.Errorf("schedule interview: %w", err)
	}
	b.interviews[jobID] = append([]time.Time(nil), app.InterviewDates...)
	return nil
}

// cardServerID requires the caller to hold b.mu.
func (b *Board) cardServerID(jobID uint64) (uint64, error) {
	st, i, ok := b.locate(jobID)
	if !ok {
		return 0, ErrCardNotFound
	}
	id := b.columns[st][i].ID
	if id == 0 {
		return 0, ErrCardNotSynced
	}
	return id, nil
}
