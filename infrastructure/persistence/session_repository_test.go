package persistence

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postbridge/domain/model"
)

func tempRepo(t *testing.T) (*FileSessionRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.json")
	return NewFileSessionRepository(path), path
}

func TestFileSessionRepositoryRoundTrip(t *testing.T) {
	repo, _ := tempRepo(t)
	ctx := context.Background()

	session := &model.Session{
		Tokens: model.AuthTokens{AccessToken: "abc", TokenType: "Bearer", RefreshToken: "r1"},
		User:   &model.AuthUser{ID: 7, Email: "a@b.test"},
	}
	require.NoError(t, repo.Save(ctx, session))

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "abc", loaded.Tokens.AccessToken)
	require.NotNil(t, loaded.User)
	assert.Equal(t, 7, loaded.User.ID)
}

func TestFileSessionRepositoryMissingFileIsLoggedOut(t *testing.T) {
	repo, _ := tempRepo(t)
	loaded, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestFileSessionRepositoryCorruptRecordWiped(t *testing.T) {
	repo, path := tempRepo(t)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	loaded, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, loaded)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFileSessionRepositoryEmptyTokenWiped(t *testing.T) {
	repo, path := tempRepo(t)
	require.NoError(t, os.WriteFile(path, []byte(`{"tokens":{"accessToken":""},"user":null}`), 0o600))

	loaded, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, loaded)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFileSessionRepositoryDeleteIdempotent(t *testing.T) {
	repo, _ := tempRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Delete(ctx))

	require.NoError(t, repo.Save(ctx, &model.Session{Tokens: model.AuthTokens{AccessToken: "abc"}}))
	require.NoError(t, repo.Delete(ctx))
	require.NoError(t, repo.Delete(ctx))

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}
