package repository

import (
	"context"
	"time"

	"postbridge/domain/model"
)

// ILinkAttempt stores at most one short-lived link attempt per provider so the
// account-selection step survives a reload of the callback page.
type ILinkAttempt interface {
	Get(ctx context.Context, provider string) (*model.LinkAttempt, error)
	Save(ctx context.Context, attempt *model.LinkAttempt, ttl time.Duration) error
	Delete(ctx context.Context, provider string) error
}
