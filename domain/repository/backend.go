package repository

import (
	"context"
	"time"

	"postbridge/domain/model"
)

// IAuthAPI covers the backend authentication surface.
type IAuthAPI interface {
	Login(ctx context.Context, req model.ReqLogin) (*model.AuthResponse, error)
	Register(ctx context.Context, req model.ReqRegister) (*model.RegistrationPending, error)
	Refresh(ctx context.Context, refreshToken string) (*model.AuthResponse, error)
	CurrentSession(ctx context.Context) (*model.AuthResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	VerifyEmail(ctx context.Context, token string) error
	// ResendVerification returns the cooldown the backend imposes before the
	// next resend may be requested (zero when it sent no hint).
	ResendVerification(ctx context.Context) (time.Duration, error)
	ResendVerificationGuest(ctx context.Context, email string) (time.Duration, error)
	RequestPasswordReset(ctx context.Context, email string) error
	SubmitPasswordReset(ctx context.Context, token, newPassword string) error
	SubmitOnboarding(ctx context.Context, req model.OnboardingRequest) (*model.OnboardingResponse, error)
	FetchOnboarding(ctx context.Context) (*model.OnboardingResponse, error)
	Sessions(ctx context.Context) ([]model.AuthSessionInfo, error)
	RevokeSession(ctx context.Context, deviceID string) error
}

// IPlatformAPI covers platform connections and the oauth linking endpoints.
type IPlatformAPI interface {
	Connections(ctx context.Context) ([]model.PlatformConnection, error)
	DeleteConnection(ctx context.Context, connectionID int) error
	StartOAuth(ctx context.Context, provider string) (*model.PlatformAuthorization, error)
	CompleteOAuth(ctx context.Context, provider string, req model.OAuthCompletionRequest) (*model.OAuthCompletionResult, error)
}

// IPublishingAPI covers the job queue endpoints.
type IPublishingAPI interface {
	Jobs(ctx context.Context, opts model.JobListOptions) ([]model.PublishingJob, error)
	Attempts(ctx context.Context, jobID int) ([]model.PublishingAttempt, error)
	Retry(ctx context.Context, jobID int) error
	Cancel(ctx context.Context, jobID int) error
	Create(ctx context.Context, req model.ReqCreateJob) (*model.PublishingJob, error)
}
