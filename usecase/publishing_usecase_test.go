package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postbridge/domain/model"
)

type fakePublishingAPI struct {
	mu            sync.Mutex
	jobs          []model.PublishingJob
	jobsCalls     int
	attempts      map[int][]model.PublishingAttempt
	attemptsCalls map[int]int
	retryErr      error
	retryCalls    int
	retryBlock    chan struct{}
	cancelCalls   int
}

func newFakePublishingAPI(jobs ...model.PublishingJob) *fakePublishingAPI {
	return &fakePublishingAPI{
		jobs:          jobs,
		attempts:      map[int][]model.PublishingAttempt{},
		attemptsCalls: map[int]int{},
	}
}

func (f *fakePublishingAPI) Jobs(ctx context.Context, opts model.JobListOptions) ([]model.PublishingJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobsCalls++
	out := make([]model.PublishingJob, len(f.jobs))
	copy(out, f.jobs)
	return out, nil
}

func (f *fakePublishingAPI) Attempts(ctx context.Context, jobID int) ([]model.PublishingAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attemptsCalls[jobID]++
	return f.attempts[jobID], nil
}

func (f *fakePublishingAPI) Retry(ctx context.Context, jobID int) error {
	f.mu.Lock()
	f.retryCalls++
	block := f.retryBlock
	err := f.retryErr
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	return err
}

func (f *fakePublishingAPI) Cancel(ctx context.Context, jobID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelCalls++
	return nil
}

func (f *fakePublishingAPI) Create(ctx context.Context, req model.ReqCreateJob) (*model.PublishingJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job := model.PublishingJob{ID: 99, ConnectionID: req.ConnectionID, Status: model.JobScheduled}
	f.jobs = append(f.jobs, job)
	return &job, nil
}

func (f *fakePublishingAPI) counts() (jobs, retries, cancels int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.jobsCalls, f.retryCalls, f.cancelCalls
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	pushes [][]model.PublishingJob
}

func (f *fakeBroadcaster) BroadcastJobs(jobs []model.PublishingJob) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushes = append(f.pushes, jobs)
}

func (f *fakeBroadcaster) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pushes)
}

func job(id int, status model.PublishingJobStatus) model.PublishingJob {
	return model.PublishingJob{ID: id, Status: status}
}

func TestPublishingRefreshCachesAndBroadcasts(t *testing.T) {
	api := newFakePublishingAPI(job(1, model.JobScheduled), job(2, model.JobFailed))
	hub := &fakeBroadcaster{}
	uc := NewPublishingUsecase(api, hub)

	jobs, err := uc.Refresh(context.Background(), model.JobListOptions{})
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
	assert.Len(t, uc.Jobs(), 2)
	assert.Equal(t, 1, hub.count())
}

func TestPublishingAttemptsFetchedOnce(t *testing.T) {
	api := newFakePublishingAPI(job(1, model.JobFailed))
	api.attempts[1] = []model.PublishingAttempt{{ID: 10, JobID: 1}}
	uc := NewPublishingUsecase(api, nil)

	first, err := uc.Attempts(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, first, 1)

	_, err = uc.Attempts(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, api.attemptsCalls[1])

	uc.InvalidateAttempts(1)
	_, err = uc.Attempts(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, api.attemptsCalls[1])
}

func TestPublishingRetryReloadsListAndLoadedAttempts(t *testing.T) {
	api := newFakePublishingAPI(job(1, model.JobFailed))
	api.attempts[1] = []model.PublishingAttempt{{ID: 10, JobID: 1}}
	uc := NewPublishingUsecase(api, nil)

	_, err := uc.Attempts(context.Background(), 1)
	require.NoError(t, err)

	require.NoError(t, uc.Retry(context.Background(), 1))

	jobsCalls, retries, _ := api.counts()
	assert.Equal(t, 1, retries)
	assert.Equal(t, 1, jobsCalls)
	// history was loaded before the retry, so it must be re-fetched
	assert.Equal(t, 2, api.attemptsCalls[1])
	assert.Empty(t, uc.PendingOperation(1))
}

func TestPublishingRetrySkipsUnloadedAttempts(t *testing.T) {
	api := newFakePublishingAPI(job(1, model.JobFailed))
	uc := NewPublishingUsecase(api, nil)

	require.NoError(t, uc.Retry(context.Background(), 1))

	assert.Zero(t, api.attemptsCalls[1])
}

func TestPublishingRetryFailureLeavesCacheUntouched(t *testing.T) {
	api := newFakePublishingAPI(job(1, model.JobFailed))
	uc := NewPublishingUsecase(api, nil)
	_, err := uc.Refresh(context.Background(), model.JobListOptions{})
	require.NoError(t, err)

	api.retryErr = errors.New("backend down")
	err = uc.Retry(context.Background(), 1)
	require.Error(t, err)

	jobsCalls, _, _ := api.counts()
	assert.Equal(t, 1, jobsCalls) // only the initial refresh
	assert.Len(t, uc.Jobs(), 1)
	assert.Empty(t, uc.PendingOperation(1))
}

func TestPublishingConcurrentRetrySingleFlight(t *testing.T) {
	api := newFakePublishingAPI(job(42, model.JobFailed))
	api.retryBlock = make(chan struct{})
	uc := NewPublishingUsecase(api, nil)

	firstDone := make(chan error, 1)
	go func() { firstDone <- uc.Retry(context.Background(), 42) }()

	// Wait until the first retry is marked in flight.
	require.Eventually(t, func() bool {
		return uc.PendingOperation(42) == "retry"
	}, time.Second, time.Millisecond)

	err := uc.Retry(context.Background(), 42)
	assert.ErrorIs(t, err, ErrOperationInFlight)
	errCancel := uc.Cancel(context.Background(), 42)
	assert.ErrorIs(t, errCancel, ErrOperationInFlight)

	close(api.retryBlock)
	require.NoError(t, <-firstDone)

	_, retries, cancels := api.counts()
	assert.Equal(t, 1, retries)
	assert.Zero(t, cancels)

	// settled: a new mutation may run again
	assert.Empty(t, uc.PendingOperation(42))
}

func TestPublishingCancelReloadsListOnly(t *testing.T) {
	api := newFakePublishingAPI(job(1, model.JobScheduled))
	api.attempts[1] = []model.PublishingAttempt{{ID: 10, JobID: 1}}
	uc := NewPublishingUsecase(api, nil)

	_, err := uc.Attempts(context.Background(), 1)
	require.NoError(t, err)

	require.NoError(t, uc.Cancel(context.Background(), 1))

	jobsCalls, _, cancels := api.counts()
	assert.Equal(t, 1, cancels)
	assert.Equal(t, 1, jobsCalls)
	assert.Equal(t, 1, api.attemptsCalls[1])
}

func TestPublishingRemoveLocally(t *testing.T) {
	api := newFakePublishingAPI(job(1, model.JobScheduled), job(2, model.JobFailed))
	hub := &fakeBroadcaster{}
	uc := NewPublishingUsecase(api, hub)
	_, err := uc.Refresh(context.Background(), model.JobListOptions{})
	require.NoError(t, err)
	api.attempts[1] = []model.PublishingAttempt{{ID: 10, JobID: 1}}
	_, err = uc.Attempts(context.Background(), 1)
	require.NoError(t, err)

	uc.RemoveLocally(1)

	jobs := uc.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, 2, jobs[0].ID)

	// history cache was dropped too
	_, err = uc.Attempts(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, api.attemptsCalls[1])
	assert.Equal(t, 2, hub.count()) // refresh + removal
}

func TestPublishingCreateRefreshesList(t *testing.T) {
	api := newFakePublishingAPI(job(1, model.JobScheduled))
	uc := NewPublishingUsecase(api, nil)

	created, err := uc.Create(context.Background(), model.ReqCreateJob{ConnectionID: 3})
	require.NoError(t, err)
	assert.Equal(t, 99, created.ID)
	assert.Len(t, uc.Jobs(), 2)
}
