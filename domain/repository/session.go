package repository

import (
	"context"

	"postbridge/domain/model"
)

// ISessionRecord persists the single session blob for this browser session.
// Implementations treat a corrupted record as absent and wipe it; Load never
// fails because of bad stored data.
type ISessionRecord interface {
	Load(ctx context.Context) (*model.Session, error)
	Save(ctx context.Context, session *model.Session) error
	Delete(ctx context.Context) error
}
