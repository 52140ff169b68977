package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"postbridge/domain/model"
	"postbridge/infrastructure/logger"
)

// FileSessionRepository keeps the session record in a single JSON blob on disk,
// the durable store for single-machine deployments.
type FileSessionRepository struct {
	path string
}

func NewFileSessionRepository(path string) *FileSessionRepository {
	return &FileSessionRepository{path: path}
}

func (r *FileSessionRepository) Load(ctx context.Context) (*model.Session, error) {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var session model.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		// A corrupted record is treated as absent and wiped.
		logger.GetLogger().WithField("error", err).Warn("corrupted session record removed")
		_ = os.Remove(r.path)
		return nil, nil
	}
	if session.Tokens.AccessToken == "" {
		_ = os.Remove(r.path)
		return nil, nil
	}
	return &session, nil
}

func (r *FileSessionRepository) Save(ctx context.Context, session *model.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	tmp := r.path + ".tmp"
	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, r.path)
}

func (r *FileSessionRepository) Delete(ctx context.Context) error {
	if err := os.Remove(r.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
