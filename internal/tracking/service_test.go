package tracking

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"jobtrack/internal/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memRepo is an in-memory Repository with the same contract as the gorm
// implementation, including ErrDuplicate on a (user, job) collision.
type memRepo struct {
	mu      sync.Mutex
	nextID  uint64
	apps    map[uint64]*TrackedApplication
	history []StatusHistoryEntry
	jobs    map[uint64]catalog.Job

	appendErr error // injected history-append failure
}

func newMemRepo(jobIDs ...uint64) *memRepo {
	r := &memRepo{
		apps: make(map[uint64]*TrackedApplication),
		jobs: make(map[uint64]catalog.Job),
	}
	for _, id := range jobIDs {
		r.jobs[id] = catalog.Job{ID: id, Title: "Backend Engineer", Company: "Acme"}
	}
	return r
}

func (r *memRepo) Create(_ context.Context, app *TrackedApplication) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.apps {
		if existing.UserID == app.UserID && existing.JobID == app.JobID {
			return ErrDuplicate
		}
	}
	r.nextID++
	app.ID = r.nextID
	now := time.Now()
	app.CreatedAt = now
	app.UpdatedAt = now
	cp := *app
	r.apps[app.ID] = &cp
	return nil
}

func (r *memRepo) findLocked(userID, jobID uint64) *TrackedApplication {
	for _, app := range r.apps {
		if app.UserID == userID && app.JobID == jobID {
			return app
		}
	}
	return nil
}

func (r *memRepo) GetByUserAndJob(_ context.Context, userID, jobID uint64) (*TrackedApplication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if app := r.findLocked(userID, jobID); app != nil {
		cp := *app
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (r *memRepo) GetByID(_ context.Context, userID, id uint64) (*TrackedApplication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[id]
	if !ok || app.UserID != userID {
		return nil, ErrNotFound
	}
	cp := *app
	return &cp, nil
}

func (r *memRepo) GetResolved(_ context.Context, userID, jobID uint64) (*TrackedApplication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	app := r.findLocked(userID, jobID)
	if app == nil {
		return nil, ErrNotFound
	}
	cp := *app
	if job, ok := r.jobs[jobID]; ok {
		j := job
		cp.Job = &j
	}
	return &cp, nil
}

func (r *memRepo) UpdateStatus(_ context.Context, id uint64, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[id]
	if !ok {
		return ErrNotFound
	}
	app.Status = status
	app.UpdatedAt = time.Now()
	return nil
}

func (r *memRepo) Save(_ context.Context, app *TrackedApplication) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *app
	r.apps[app.ID] = &cp
	return nil
}

func (r *memRepo) Delete(_ context.Context, userID, id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[id]
	if !ok || app.UserID != userID {
		return ErrNotFound
	}
	delete(r.apps, id)
	kept := r.history[:0]
	for _, e := range r.history {
		if e.TrackedApplicationID != id {
			kept = append(kept, e)
		}
	}
	r.history = kept
	return nil
}

func (r *memRepo) AppendHistory(_ context.Context, entry *StatusHistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appendErr != nil {
		return r.appendErr
	}
	r.nextID++
	entry.ID = r.nextID
	entry.CreatedAt = time.Now()
	r.history = append(r.history, *entry)
	return nil
}

func (r *memRepo) History(_ context.Context, trackedApplicationID uint64) ([]StatusHistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []StatusHistoryEntry
	for _, e := range r.history {
		if e.TrackedApplicationID == trackedApplicationID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memRepo) CountByStatus(_ context.Context, userID uint64) (map[Status]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[Status]int64)
	for _, app := range r.apps {
		if app.UserID == userID {
			out[app.Status]++
		}
	}
	return out, nil
}

func (r *memRepo) JobExists(_ context.Context, jobID uint64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.jobs[jobID]
	return ok, nil
}

type fakeReminders struct {
	enqueued  []time.Time
	cancelled int
}

func (f *fakeReminders) EnqueueReminder(_ context.Context, _, _ uint64, runAt time.Time) error {
	f.enqueued = append(f.enqueued, runAt)
	return nil
}

func (f *fakeReminders) CancelPendingReminders(_ context.Context, _, _ uint64) error {
	f.cancelled++
	return nil
}

func newTestService(repo *memRepo) *Service {
	return &Service{Repo: repo, Log: slog.Default()}
}

func TestSetStatus_FirstTouchCreates(t *testing.T) {
	repo := newMemRepo(10)
	svc := newTestService(repo)
	ctx := context.Background()

	app, err := svc.SetStatus(ctx, 1, 10, StatusNew, "")
	require.NoError(t, err)

	assert.Equal(t, StatusNew, app.Status)
	assert.False(t, app.IsFavorite)
	require.NotNil(t, app.Job)
	assert.Equal(t, "Acme", app.Job.Company)

	entries, err := svc.History(ctx, 1, app.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, Status(""), entries[0].PreviousStatus)
	assert.Equal(t, StatusNew, entries[0].NewStatus)
	assert.Equal(t, "initial status", entries[0].Notes)
	assert.Equal(t, uint64(1), entries[0].UpdatedBy)
}

func TestSetStatus_UnknownJob(t *testing.T) {
	svc := newTestService(newMemRepo())

	_, err := svc.SetStatus(context.Background(), 1, 99, StatusNew, "")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestSetStatus_Scenario(t *testing.T) {
	repo := newMemRepo(10)
	svc := newTestService(repo)
	ctx := context.Background()

	app, err := svc.SetStatus(ctx, 1, 10, StatusNew, "")
	require.NoError(t, err)
	assert.Equal(t, StatusNew, app.Status)

	app, err = svc.SetStatus(ctx, 1, 10, StatusApplied, "sent resume")
	require.NoError(t, err)
	assert.Equal(t, StatusApplied, app.Status)

	// repeating the current status is a no-op and is not audited
	app, err = svc.SetStatus(ctx, 1, 10, StatusApplied, "again")
	require.NoError(t, err)
	assert.Equal(t, StatusApplied, app.Status)

	entries, err := svc.History(ctx, 1, app.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, Status(""), entries[0].PreviousStatus)
	assert.Equal(t, StatusNew, entries[0].NewStatus)
	assert.Equal(t, StatusNew, entries[1].PreviousStatus)
	assert.Equal(t, StatusApplied, entries[1].NewStatus)
	assert.Equal(t, "sent resume", entries[1].Notes)
}

func TestSetStatus_HistoryReconstructsStatusSequence(t *testing.T) {
	repo := newMemRepo(10)
	svc := newTestService(repo)
	ctx := context.Background()

	seq := []Status{StatusNew, StatusPending, StatusInterviewing, StatusOffer, StatusClosed}
	var app *TrackedApplication
	var err error
	for _, st := range seq {
		app, err = svc.SetStatus(ctx, 7, 10, st, "")
		require.NoError(t, err)
	}

	entries, err := svc.History(ctx, 7, app.ID)
	require.NoError(t, err)
	require.Len(t, entries, len(seq))

	// each entry chains off the previous one and the trail ends at the
	// current status field
	for i, e := range entries {
		assert.Equal(t, seq[i], e.NewStatus)
		if i == 0 {
			assert.Equal(t, Status(""), e.PreviousStatus)
		} else {
			assert.Equal(t, seq[i-1], e.PreviousStatus)
		}
	}
	assert.Equal(t, seq[len(seq)-1], app.Status)
}

// firstTouchRaceRepo makes every Create lose the uniqueness race: a
// competing row appears just before the insert, as under concurrent
// first-touch calls.
type firstTouchRaceRepo struct {
	*memRepo
	raced bool
}

func (r *firstTouchRaceRepo) Create(ctx context.Context, app *TrackedApplication) error {
	if !r.raced {
		r.raced = true
		competitor := &TrackedApplication{UserID: app.UserID, JobID: app.JobID, Status: StatusPending}
		if err := r.memRepo.Create(ctx, competitor); err != nil {
			return err
		}
	}
	return ErrDuplicate
}

func TestSetStatus_CreateRaceRecoversAsUpdate(t *testing.T) {
	repo := &firstTouchRaceRepo{memRepo: newMemRepo(10)}
	svc := &Service{Repo: repo, Log: slog.Default()}
	ctx := context.Background()

	app, err := svc.SetStatus(ctx, 1, 10, StatusApplied, "raced")
	require.NoError(t, err, "conflict must be recovered, never surfaced")
	assert.Equal(t, StatusApplied, app.Status)

	// exactly one row exists for the pair
	require.Len(t, repo.apps, 1)

	// the loser's call was converted into an update with the winner's
	// status as previous
	entries, err := svc.History(ctx, 1, app.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, StatusPending, entries[0].PreviousStatus)
	assert.Equal(t, StatusApplied, entries[0].NewStatus)
}

func TestSetStatus_HistoryAppendFailureIsNonFatal(t *testing.T) {
	repo := newMemRepo(10)
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.SetStatus(ctx, 1, 10, StatusNew, "")
	require.NoError(t, err)

	repo.appendErr = errors.New("history table unavailable")
	app, err := svc.SetStatus(ctx, 1, 10, StatusApplied, "")
	require.NoError(t, err, "status correctness wins over audit completeness")
	assert.Equal(t, StatusApplied, app.Status)

	repo.appendErr = nil
	entries, err := svc.History(ctx, 1, app.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "only the first-touch entry made it")
}

func TestStatusCounts_ZeroFilledForEmptyUser(t *testing.T) {
	svc := newTestService(newMemRepo())

	counts, err := svc.StatusCounts(context.Background(), 42)
	require.NoError(t, err)

	require.Len(t, counts, len(AllStatuses))
	for _, st := range AllStatuses {
		n, ok := counts[st]
		assert.True(t, ok, "missing key %q", st)
		assert.Zero(t, n)
	}
}

func TestStatusCounts_Tally(t *testing.T) {
	repo := newMemRepo(10, 11, 12)
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.SetStatus(ctx, 1, 10, StatusNew, "")
	require.NoError(t, err)
	_, err = svc.SetStatus(ctx, 1, 11, StatusNew, "")
	require.NoError(t, err)
	_, err = svc.SetStatus(ctx, 1, 12, StatusApplied, "")
	require.NoError(t, err)

	// another user's rows must not bleed in
	_, err = svc.SetStatus(ctx, 2, 10, StatusOffer, "")
	require.NoError(t, err)

	counts, err := svc.StatusCounts(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[StatusNew])
	assert.Equal(t, int64(1), counts[StatusApplied])
	assert.Equal(t, int64(0), counts[StatusOffer])
	require.Len(t, counts, len(AllStatuses))
}

func TestPatchFields_WholeFieldReplaceWithoutHistory(t *testing.T) {
	repo := newMemRepo(10)
	svc := newTestService(repo)
	ctx := context.Background()

	app, err := svc.SetStatus(ctx, 1, 10, StatusInterviewing, "")
	require.NoError(t, err)

	steps := []string{"prepare system design", "send thank-you note"}
	tags := []string{"remote", "referral"}
	fav := true
	app, err = svc.PatchFields(ctx, 1, app.ID, FieldPatch{
		NextSteps:  &steps,
		CustomTags: &tags,
		IsFavorite: &fav,
	})
	require.NoError(t, err)
	assert.Equal(t, steps, []string(app.NextSteps))
	assert.Equal(t, tags, []string(app.CustomTags))
	assert.True(t, app.IsFavorite)

	// replacing the list again overwrites wholesale (last write wins)
	steps2 := []string{"send thank-you note"}
	app, err = svc.PatchFields(ctx, 1, app.ID, FieldPatch{NextSteps: &steps2})
	require.NoError(t, err)
	assert.Equal(t, steps2, []string(app.NextSteps))

	entries, err := svc.History(ctx, 1, app.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "field edits are not audited")
}

func TestPatchFields_ReminderLifecycle(t *testing.T) {
	repo := newMemRepo(10)
	queue := &fakeReminders{}
	svc := &Service{Repo: repo, Reminders: queue, Log: slog.Default()}
	ctx := context.Background()

	app, err := svc.SetStatus(ctx, 1, 10, StatusApplied, "")
	require.NoError(t, err)

	remindAt := time.Now().Add(48 * time.Hour).Truncate(time.Second)
	app, err = svc.PatchFields(ctx, 1, app.ID, FieldPatch{ReminderDate: &remindAt})
	require.NoError(t, err)
	require.NotNil(t, app.ReminderDate)
	assert.Equal(t, 1, queue.cancelled, "reschedule always clears pending jobs first")
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, remindAt, queue.enqueued[0])

	app, err = svc.PatchFields(ctx, 1, app.ID, FieldPatch{ClearReminder: true})
	require.NoError(t, err)
	assert.Nil(t, app.ReminderDate)
	assert.Equal(t, 2, queue.cancelled)
	assert.Len(t, queue.enqueued, 1, "clearing must not enqueue")
}

func TestDelete_CascadesHistory(t *testing.T) {
	repo := newMemRepo(10)
	svc := newTestService(repo)
	ctx := context.Background()

	app, err := svc.SetStatus(ctx, 1, 10, StatusNew, "")
	require.NoError(t, err)
	_, err = svc.SetStatus(ctx, 1, 10, StatusApplied, "")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, 1, app.ID))

	_, err = svc.History(ctx, 1, app.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, repo.history, "history rows deleted with the application")
}

func TestDelete_OtherUsersRowIsNotFound(t *testing.T) {
	repo := newMemRepo(10)
	svc := newTestService(repo)
	ctx := context.Background()

	app, err := svc.SetStatus(ctx, 1, 10, StatusNew, "")
	require.NoError(t, err)

	err = svc.Delete(ctx, 2, app.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
