package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postbridge/domain/model"
)

type fakeSessionRecord struct {
	mu      sync.Mutex
	stored  *model.Session
	loadErr error
	saves   int
	deletes int
}

func (f *fakeSessionRecord) Load(ctx context.Context) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.stored, nil
}

func (f *fakeSessionRecord) Save(ctx context.Context, session *model.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stored = session
	f.saves++
	return nil
}

func (f *fakeSessionRecord) Delete(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stored = nil
	f.deletes++
	return nil
}

func sessionWith(token string, user *model.AuthUser) *model.Session {
	return &model.Session{
		Tokens: model.AuthTokens{AccessToken: token, TokenType: "Bearer", RefreshToken: "r-" + token},
		User:   user,
	}
}

func TestSessionStoreLoadHydratesOnce(t *testing.T) {
	record := &fakeSessionRecord{stored: sessionWith("abc", &model.AuthUser{ID: 7})}
	store := NewSessionStore(record)

	session := store.Load()
	require.NotNil(t, session)
	assert.Equal(t, "abc", session.Tokens.AccessToken)
	assert.Equal(t, 7, session.User.ID)

	// Mutating the record after hydration must not change the view.
	record.stored = nil
	assert.NotNil(t, store.Load())
}

func TestSessionStoreLoadBrokenRecordReadsAsLoggedOut(t *testing.T) {
	record := &fakeSessionRecord{loadErr: errors.New("corrupt")}
	store := NewSessionStore(record)
	assert.Nil(t, store.Load())
}

func TestSessionStoreSetPersistsAndNotifies(t *testing.T) {
	record := &fakeSessionRecord{}
	store := NewSessionStore(record)

	var got []*model.Session
	store.Subscribe(func(s *model.Session) { got = append(got, s) })

	session := sessionWith("abc", &model.AuthUser{ID: 1})
	store.Set(session)

	require.Len(t, got, 1)
	assert.Same(t, session, got[0])
	assert.Equal(t, 1, record.saves)
	require.NotNil(t, record.stored)
	assert.Equal(t, "abc", record.stored.Tokens.AccessToken)
}

func TestSessionStoreUpdateTokensRetainsUser(t *testing.T) {
	record := &fakeSessionRecord{}
	store := NewSessionStore(record)
	store.Set(sessionWith("old", &model.AuthUser{ID: 42, Email: "a@b.test"}))

	store.UpdateTokens(model.AuthTokens{AccessToken: "new", TokenType: "Bearer"})

	session := store.Load()
	require.NotNil(t, session)
	assert.Equal(t, "new", session.Tokens.AccessToken)
	require.NotNil(t, session.User)
	assert.Equal(t, 42, session.User.ID)
}

func TestSessionStoreUpdateTokensUserOverride(t *testing.T) {
	store := NewSessionStore(&fakeSessionRecord{})
	store.Set(sessionWith("old", &model.AuthUser{ID: 1}))

	override := &model.AuthUser{ID: 2}
	store.UpdateTokens(model.AuthTokens{AccessToken: "new"}, override)

	session := store.Load()
	require.NotNil(t, session)
	assert.Same(t, override, session.User)
}

func TestSessionStoreClearNotifiesNilAndDeletes(t *testing.T) {
	record := &fakeSessionRecord{}
	store := NewSessionStore(record)
	store.Set(sessionWith("abc", nil))

	var got []*model.Session
	store.Subscribe(func(s *model.Session) { got = append(got, s) })

	store.Clear()

	require.Len(t, got, 1)
	assert.Nil(t, got[0])
	assert.Nil(t, store.Load())
	assert.GreaterOrEqual(t, record.deletes, 1)
}

func TestSessionStoreSubscribersNotifiedInOrder(t *testing.T) {
	store := NewSessionStore(&fakeSessionRecord{})

	var order []string
	store.Subscribe(func(*model.Session) { order = append(order, "first") })
	store.Subscribe(func(*model.Session) { order = append(order, "second") })
	store.Subscribe(func(*model.Session) { order = append(order, "third") })

	store.Set(sessionWith("abc", nil))

	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestSessionStoreUnsubscribeStopsDelivery(t *testing.T) {
	store := NewSessionStore(&fakeSessionRecord{})

	calls := 0
	unsubscribe := store.Subscribe(func(*model.Session) { calls++ })

	store.Set(sessionWith("one", nil))
	unsubscribe()
	store.Set(sessionWith("two", nil))

	assert.Equal(t, 1, calls)
}

func TestSessionStoreListenerMayMutateStore(t *testing.T) {
	store := NewSessionStore(&fakeSessionRecord{})

	// A listener that reacts to logout by reading the store must not deadlock.
	var sawNil bool
	store.Subscribe(func(s *model.Session) {
		if s == nil {
			sawNil = store.Load() == nil
		}
	})

	store.Set(sessionWith("abc", nil))
	store.Clear()

	assert.True(t, sawNil)
}

func TestSessionStoreTokensAccessor(t *testing.T) {
	store := NewSessionStore(&fakeSessionRecord{})
	assert.Nil(t, store.Tokens())

	store.Set(sessionWith("abc", nil))
	tokens := store.Tokens()
	require.NotNil(t, tokens)
	assert.Equal(t, "abc", tokens.AccessToken)
}
