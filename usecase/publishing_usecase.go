package usecase

import (
	"context"
	"errors"
	"sync"

	"postbridge/domain/model"
	"postbridge/domain/repository"
	"postbridge/infrastructure/logger"
)

// ErrOperationInFlight is returned when a retry or cancel is requested for a
// job that already has one running. The first call wins; callers should
// disable the control until it settles.
var ErrOperationInFlight = errors.New("a retry or cancel is already running for this job")

type IPublishingUsecase interface {
	Refresh(ctx context.Context, opts model.JobListOptions) ([]model.PublishingJob, error)
	Jobs() []model.PublishingJob
	Attempts(ctx context.Context, jobID int) ([]model.PublishingAttempt, error)
	InvalidateAttempts(jobID int)
	Retry(ctx context.Context, jobID int) error
	Cancel(ctx context.Context, jobID int) error
	Create(ctx context.Context, req model.ReqCreateJob) (*model.PublishingJob, error)
	RemoveLocally(jobID int)
	PendingOperation(jobID int) string
}

// JobsBroadcaster pushes the refreshed job list to connected dashboards.
type JobsBroadcaster interface {
	BroadcastJobs(jobs []model.PublishingJob)
}

type publishingUsecase struct {
	api       repository.IPublishingAPI
	broadcast JobsBroadcaster

	mu       sync.Mutex
	jobs     []model.PublishingJob
	loaded   bool
	attempts map[int][]model.PublishingAttempt
	// jobID -> "retry" | "cancel" while a mutation is running
	inFlight map[int]string
}

func NewPublishingUsecase(api repository.IPublishingAPI, broadcast JobsBroadcaster) IPublishingUsecase {
	return &publishingUsecase{
		api:       api,
		broadcast: broadcast,
		attempts:  map[int][]model.PublishingAttempt{},
		inFlight:  map[int]string{},
	}
}

// Refresh replaces the cached job list with the backend's view.
func (u *publishingUsecase) Refresh(ctx context.Context, opts model.JobListOptions) ([]model.PublishingJob, error) {
	jobs, err := u.api.Jobs(ctx, opts)
	if err != nil {
		return nil, err
	}
	u.mu.Lock()
	u.jobs = jobs
	u.loaded = true
	u.mu.Unlock()

	if u.broadcast != nil {
		u.broadcast.BroadcastJobs(jobs)
	}
	return jobs, nil
}

// Jobs returns the cached list without touching the network.
func (u *publishingUsecase) Jobs() []model.PublishingJob {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]model.PublishingJob, len(u.jobs))
	copy(out, u.jobs)
	return out
}

// Attempts returns the attempt history for one job, fetching it at most once
// until InvalidateAttempts or a successful retry forces a reload.
func (u *publishingUsecase) Attempts(ctx context.Context, jobID int) ([]model.PublishingAttempt, error) {
	u.mu.Lock()
	if cached, ok := u.attempts[jobID]; ok {
		u.mu.Unlock()
		return cached, nil
	}
	u.mu.Unlock()

	attempts, err := u.api.Attempts(ctx, jobID)
	if err != nil {
		return nil, err
	}
	u.mu.Lock()
	u.attempts[jobID] = attempts
	u.mu.Unlock()
	return attempts, nil
}

func (u *publishingUsecase) InvalidateAttempts(jobID int) {
	u.mu.Lock()
	delete(u.attempts, jobID)
	u.mu.Unlock()
}

// Retry re-queues a failed job. Per job only one retry or cancel may run at a
// time; a concurrent second call returns ErrOperationInFlight without touching
// the network. On success both the job list and any already-loaded attempt
// history are re-fetched; on failure the cache is left exactly as it was.
func (u *publishingUsecase) Retry(ctx context.Context, jobID int) error {
	if err := u.begin(jobID, "retry"); err != nil {
		return err
	}
	defer u.end(jobID)

	if err := u.api.Retry(ctx, jobID); err != nil {
		return err
	}
	u.reloadAfterMutation(ctx, jobID, true)
	return nil
}

// Cancel withdraws a scheduled job. Same single-flight rule as Retry; the
// attempt history is unchanged by a cancel so only the list is re-fetched.
func (u *publishingUsecase) Cancel(ctx context.Context, jobID int) error {
	if err := u.begin(jobID, "cancel"); err != nil {
		return err
	}
	defer u.end(jobID)

	if err := u.api.Cancel(ctx, jobID); err != nil {
		return err
	}
	u.reloadAfterMutation(ctx, jobID, false)
	return nil
}

func (u *publishingUsecase) Create(ctx context.Context, req model.ReqCreateJob) (*model.PublishingJob, error) {
	job, err := u.api.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	if _, refreshErr := u.Refresh(ctx, model.JobListOptions{}); refreshErr != nil {
		logger.GetLogger().WithField("error", refreshErr).Warn("job list refresh after create failed")
	}
	return job, nil
}

// RemoveLocally drops a job and its attempt history from the cache without a
// backend call, for when the server already confirmed the job is gone.
func (u *publishingUsecase) RemoveLocally(jobID int) {
	u.mu.Lock()
	for i, job := range u.jobs {
		if job.ID == jobID {
			u.jobs = append(u.jobs[:i], u.jobs[i+1:]...)
			break
		}
	}
	delete(u.attempts, jobID)
	jobs := make([]model.PublishingJob, len(u.jobs))
	copy(jobs, u.jobs)
	u.mu.Unlock()

	if u.broadcast != nil {
		u.broadcast.BroadcastJobs(jobs)
	}
}

// PendingOperation reports "retry", "cancel", or "" for a job, so the UI can
// disable the matching control.
func (u *publishingUsecase) PendingOperation(jobID int) string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.inFlight[jobID]
}

func (u *publishingUsecase) begin(jobID int, op string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if running, ok := u.inFlight[jobID]; ok {
		logger.GetLogger().WithField("jobId", jobID).WithField("running", running).Warn("duplicate job mutation ignored")
		return ErrOperationInFlight
	}
	u.inFlight[jobID] = op
	return nil
}

func (u *publishingUsecase) end(jobID int) {
	u.mu.Lock()
	delete(u.inFlight, jobID)
	u.mu.Unlock()
}

func (u *publishingUsecase) reloadAfterMutation(ctx context.Context, jobID int, reloadAttempts bool) {
	if _, err := u.Refresh(ctx, model.JobListOptions{}); err != nil {
		logger.GetLogger().WithField("jobId", jobID).WithField("error", err).Warn("job list refresh after mutation failed")
	}

	if !reloadAttempts {
		return
	}
	u.mu.Lock()
	_, hadAttempts := u.attempts[jobID]
	u.mu.Unlock()
	if !hadAttempts {
		return
	}
	attempts, err := u.api.Attempts(ctx, jobID)
	if err != nil {
		logger.GetLogger().WithField("jobId", jobID).WithField("error", err).Warn("attempt history refresh failed")
		// stale history is better than none; keep the old entry
		return
	}
	u.mu.Lock()
	u.attempts[jobID] = attempts
	u.mu.Unlock()
}
