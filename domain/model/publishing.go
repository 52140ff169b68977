package model

import "time"

type PublishingJobStatus string

const (
	JobScheduled  PublishingJobStatus = "SCHEDULED"
	JobInProgress PublishingJobStatus = "IN_PROGRESS"
	JobSucceeded  PublishingJobStatus = "SUCCEEDED"
	JobFailed     PublishingJobStatus = "FAILED"
	JobDeadLetter PublishingJobStatus = "DEAD_LETTER"
)

// PublishingJob is owned by the backend; the tracker only caches it.
type PublishingJob struct {
	ID             int                 `json:"id"`
	PlatformID     int                 `json:"platformId"`
	ConnectionID   int                 `json:"connectionId"`
	MediaAssetIDs  []string            `json:"mediaAssetIds"`
	Caption        *string             `json:"caption"`
	ScheduledAt    time.Time           `json:"scheduledAt"`
	CreatedAt      time.Time           `json:"createdAt"`
	LastTriedAt    *time.Time          `json:"lastTriedAt"`
	CompletedAt    *time.Time          `json:"completedAt"`
	AttemptCount   int                 `json:"attemptCount"`
	Status         PublishingJobStatus `json:"status"`
	FailureReason  *string             `json:"failureReason"`
	ExternalPostID *string             `json:"externalPostId,omitempty"`
}

type PublishingAttempt struct {
	ID               int       `json:"id"`
	JobID            int       `json:"jobId"`
	AttemptedAt      time.Time `json:"attemptedAt"`
	Status           string    `json:"status"`
	Error            *string   `json:"error"`
	ProviderResponse *string   `json:"providerResponse"`
}

// JobListOptions narrows the job list call; zero value fetches everything.
type JobListOptions struct {
	Status string `url:"status,omitempty" form:"status"`
	Page   int    `url:"page,omitempty" form:"page"`
	Size   int    `url:"size,omitempty" form:"size"`
}

type ReqCreateJob struct {
	ConnectionID  int       `json:"connectionId" binding:"required"`
	Caption       string    `json:"caption,omitempty"`
	MediaAssetIDs []string  `json:"mediaAssetIds"`
	ScheduledAt   time.Time `json:"scheduledAt" binding:"required"`
}
