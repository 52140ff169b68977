package usecase

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postbridge/domain/model"
)

type fakePlatformAPI struct {
	mu          sync.Mutex
	startRes    *model.PlatformAuthorization
	startErr    error
	completeFn  func(req model.OAuthCompletionRequest) (*model.OAuthCompletionResult, error)
	completions []model.OAuthCompletionRequest
}

func (f *fakePlatformAPI) Connections(ctx context.Context) ([]model.PlatformConnection, error) {
	return nil, nil
}

func (f *fakePlatformAPI) DeleteConnection(ctx context.Context, connectionID int) error {
	return nil
}

func (f *fakePlatformAPI) StartOAuth(ctx context.Context, provider string) (*model.PlatformAuthorization, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	return f.startRes, nil
}

func (f *fakePlatformAPI) CompleteOAuth(ctx context.Context, provider string, req model.OAuthCompletionRequest) (*model.OAuthCompletionResult, error) {
	f.mu.Lock()
	f.completions = append(f.completions, req)
	f.mu.Unlock()
	return f.completeFn(req)
}

func (f *fakePlatformAPI) completionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.completions)
}

type fakeAttempts struct {
	mu      sync.Mutex
	stored  map[string]*model.LinkAttempt
	ttls    map[string]time.Duration
	deletes int
}

func newFakeAttempts() *fakeAttempts {
	return &fakeAttempts{stored: map[string]*model.LinkAttempt{}, ttls: map[string]time.Duration{}}
}

func (f *fakeAttempts) Get(ctx context.Context, provider string) (*model.LinkAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stored[provider], nil
}

func (f *fakeAttempts) Save(ctx context.Context, attempt *model.LinkAttempt, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stored[attempt.Provider] = attempt
	f.ttls[attempt.Provider] = ttl
	return nil
}

func (f *fakeAttempts) Delete(ctx context.Context, provider string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.stored, provider)
	f.deletes++
	return nil
}

type fakeNavigator struct {
	mu       sync.Mutex
	replaced []string
	assigned []string
	location string
}

func (f *fakeNavigator) Replace(target string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replaced = append(f.replaced, target)
}

func (f *fakeNavigator) Assign(target string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assigned = append(f.assigned, target)
}

func (f *fakeNavigator) Location() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.location
}

func (f *fakeNavigator) setLocation(loc string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.location = loc
}

func (f *fakeNavigator) assignedTargets() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.assigned...)
}

func signedInStore() *SessionStore {
	store := NewSessionStore(&fakeSessionRecord{})
	store.Set(sessionWith("tok", &model.AuthUser{ID: 1}))
	return store
}

func newLinkFixture(t *testing.T, api *fakePlatformAPI, store *SessionStore) (*linkUsecase, *fakeAttempts, *fakeNavigator) {
	t.Helper()
	attempts := newFakeAttempts()
	nav := &fakeNavigator{}
	uc := NewLinkUsecase(api, attempts, store, nav, 10*time.Minute, "/publishing").(*linkUsecase)
	uc.fallbackDelay = 5 * time.Millisecond
	return uc, attempts, nav
}

func callbackParams(code, state string) url.Values {
	v := url.Values{}
	if code != "" {
		v.Set("code", code)
	}
	if state != "" {
		v.Set("state", state)
	}
	return v
}

func connectedResult() *model.OAuthCompletionResult {
	return &model.OAuthCompletionResult{
		Status:     model.OAuthConnected,
		Connection: &model.PlatformConnection{ID: 5, PlatformName: "TikTok"},
	}
}

func TestLinkStartNavigatesToProvider(t *testing.T) {
	api := &fakePlatformAPI{startRes: &model.PlatformAuthorization{
		AuthorizationURL: "https://provider.example/authorize?x=1",
		State:            "state-1",
	}}
	uc, _, nav := newLinkFixture(t, api, signedInStore())

	status := uc.Start(context.Background(), model.ProviderTikTok)

	assert.Equal(t, LinkAwaitingCallback, status.State)
	require.Len(t, nav.assignedTargets(), 1)
	assert.Equal(t, "https://provider.example/authorize?x=1", nav.assignedTargets()[0])
}

func TestLinkStartWithoutSessionFails(t *testing.T) {
	api := &fakePlatformAPI{}
	uc, _, nav := newLinkFixture(t, api, NewSessionStore(&fakeSessionRecord{}))

	status := uc.Start(context.Background(), model.ProviderTikTok)

	assert.Equal(t, LinkFailed, status.State)
	assert.Empty(t, nav.assignedTargets())
}

func TestLinkCallbackWithoutSessionFailsWithoutNetwork(t *testing.T) {
	api := &fakePlatformAPI{completeFn: func(model.OAuthCompletionRequest) (*model.OAuthCompletionResult, error) {
		return connectedResult(), nil
	}}
	uc, _, _ := newLinkFixture(t, api, NewSessionStore(&fakeSessionRecord{}))

	status := uc.HandleCallback(context.Background(), model.ProviderTikTok, callbackParams("c", "s"))

	assert.Equal(t, LinkFailed, status.State)
	assert.Equal(t, "Your session expired while connecting. Please sign in again and relaunch the connector.", status.Message)
	assert.Zero(t, api.completionCount())
}

func TestLinkCallbackProviderError(t *testing.T) {
	uc, _, _ := newLinkFixture(t, &fakePlatformAPI{}, signedInStore())

	params := url.Values{}
	params.Set("error", "access_denied")
	params.Set("error_description", "The user denied the request.")
	status := uc.HandleCallback(context.Background(), model.ProviderMeta, params)

	assert.Equal(t, LinkFailed, status.State)
	assert.Equal(t, "The user denied the request.", status.Message)

	params.Del("error_description")
	status = uc.HandleCallback(context.Background(), model.ProviderMeta, params)
	assert.Equal(t, "The provider returned an error.", status.Message)
}

func TestLinkCallbackMissingParams(t *testing.T) {
	uc, _, _ := newLinkFixture(t, &fakePlatformAPI{}, signedInStore())

	status := uc.HandleCallback(context.Background(), model.ProviderTikTok, callbackParams("", "s"))
	assert.Equal(t, LinkFailed, status.State)
	assert.Equal(t, "Missing authorization parameters. Please try again.", status.Message)

	status = uc.HandleCallback(context.Background(), model.ProviderTikTok, callbackParams("c", ""))
	assert.Equal(t, LinkFailed, status.State)
}

func TestLinkCallbackConnectedRedirects(t *testing.T) {
	api := &fakePlatformAPI{completeFn: func(model.OAuthCompletionRequest) (*model.OAuthCompletionResult, error) {
		return connectedResult(), nil
	}}
	uc, attempts, nav := newLinkFixture(t, api, signedInStore())

	status := uc.HandleCallback(context.Background(), model.ProviderTikTok, callbackParams("c", "s"))

	assert.Equal(t, LinkConnected, status.State)
	require.NotNil(t, status.Connection)
	require.Len(t, nav.replaced, 1)
	assert.Equal(t, "/publishing?connected=tiktok", nav.replaced[0])
	assert.GreaterOrEqual(t, attempts.deletes, 1)
}

func TestLinkRedirectFallbackHardNavigates(t *testing.T) {
	api := &fakePlatformAPI{completeFn: func(model.OAuthCompletionRequest) (*model.OAuthCompletionResult, error) {
		return connectedResult(), nil
	}}
	uc, _, nav := newLinkFixture(t, api, signedInStore())

	uc.HandleCallback(context.Background(), model.ProviderTikTok, callbackParams("c", "s"))

	// Location never changes, so the fallback must fire.
	assert.Eventually(t, func() bool {
		for _, target := range nav.assignedTargets() {
			if target == "/publishing?connected=tiktok" {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
}

func TestLinkRedirectFallbackSkippedWhenLanded(t *testing.T) {
	api := &fakePlatformAPI{completeFn: func(model.OAuthCompletionRequest) (*model.OAuthCompletionResult, error) {
		return connectedResult(), nil
	}}
	uc, _, nav := newLinkFixture(t, api, signedInStore())
	nav.setLocation("/publishing?connected=tiktok")

	uc.HandleCallback(context.Background(), model.ProviderTikTok, callbackParams("c", "s"))

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, nav.assignedTargets())
}

func TestLinkSelectionRequiredAutoSelectsFirst(t *testing.T) {
	candidates := []model.AccountCandidate{
		{PrimaryID: "page-1", PrimaryName: "Page One"},
		{PrimaryID: "page-2", PrimaryName: "Page Two"},
	}
	api := &fakePlatformAPI{completeFn: func(model.OAuthCompletionRequest) (*model.OAuthCompletionResult, error) {
		return &model.OAuthCompletionResult{Status: model.OAuthSelectionRequired, Candidates: candidates}, nil
	}}
	uc, attempts, _ := newLinkFixture(t, api, signedInStore())

	status := uc.HandleCallback(context.Background(), model.ProviderMeta, callbackParams("c", "s"))

	assert.Equal(t, LinkSelectionRequired, status.State)
	assert.Equal(t, "page-1", status.SelectedCandidateID)
	assert.Len(t, status.Candidates, 2)

	stored, err := attempts.Get(context.Background(), model.ProviderMeta)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "s", stored.State)
	assert.Equal(t, "page-1", stored.SelectedCandidateID)
	assert.Equal(t, 10*time.Minute, attempts.ttls[model.ProviderMeta])
}

func TestLinkSelectionMessagesPerProvider(t *testing.T) {
	assert.Equal(t, "Select which TikTok account you want to connect.", selectionMessage(model.ProviderTikTok))
	assert.Equal(t, "Select which Instagram account you want to connect.", selectionMessage(model.ProviderMeta))
	assert.Equal(t, "Select which channel you want to connect.", selectionMessage(model.ProviderYouTube))
	assert.Equal(t, "Select which account you want to connect.", selectionMessage("other"))
}

func TestLinkCallbackResumesStoredSelection(t *testing.T) {
	api := &fakePlatformAPI{completeFn: func(model.OAuthCompletionRequest) (*model.OAuthCompletionResult, error) {
		t.Fatal("completion must not be called on resume")
		return nil, nil
	}}
	uc, attempts, _ := newLinkFixture(t, api, signedInStore())

	require.NoError(t, attempts.Save(context.Background(), &model.LinkAttempt{
		Provider: model.ProviderMeta,
		State:    "s",
		Candidates: []model.AccountCandidate{
			{PrimaryID: "page-1"},
			{PrimaryID: "page-2"},
		},
		SelectedCandidateID: "page-2",
	}, time.Minute))

	status := uc.HandleCallback(context.Background(), model.ProviderMeta, callbackParams("c", "s"))

	assert.Equal(t, LinkSelectionRequired, status.State)
	assert.Equal(t, "page-2", status.SelectedCandidateID)
	assert.Zero(t, api.completionCount())
}

func TestLinkCallbackStateMismatchCompletesFresh(t *testing.T) {
	api := &fakePlatformAPI{completeFn: func(model.OAuthCompletionRequest) (*model.OAuthCompletionResult, error) {
		return connectedResult(), nil
	}}
	uc, attempts, _ := newLinkFixture(t, api, signedInStore())

	require.NoError(t, attempts.Save(context.Background(), &model.LinkAttempt{
		Provider:   model.ProviderMeta,
		State:      "stale",
		Candidates: []model.AccountCandidate{{PrimaryID: "page-1"}},
	}, time.Minute))

	status := uc.HandleCallback(context.Background(), model.ProviderMeta, callbackParams("c", "fresh"))

	assert.Equal(t, LinkConnected, status.State)
	assert.Equal(t, 1, api.completionCount())
}

func TestLinkSelectAndConfirm(t *testing.T) {
	candidates := []model.AccountCandidate{
		{PrimaryID: "page-1"},
		{PrimaryID: "page-2"},
	}
	api := &fakePlatformAPI{completeFn: func(req model.OAuthCompletionRequest) (*model.OAuthCompletionResult, error) {
		if req.ChosenID == "" {
			return &model.OAuthCompletionResult{Status: model.OAuthSelectionRequired, Candidates: candidates}, nil
		}
		return connectedResult(), nil
	}}
	uc, attempts, _ := newLinkFixture(t, api, signedInStore())

	uc.HandleCallback(context.Background(), model.ProviderMeta, callbackParams("c", "s"))

	status := uc.SelectCandidate(context.Background(), model.ProviderMeta, "page-2")
	assert.Equal(t, "page-2", status.SelectedCandidateID)
	stored, _ := attempts.Get(context.Background(), model.ProviderMeta)
	require.NotNil(t, stored)
	assert.Equal(t, "page-2", stored.SelectedCandidateID)

	status = uc.ConfirmSelection(context.Background(), model.ProviderMeta)
	assert.Equal(t, LinkConnected, status.State)

	require.Equal(t, 2, api.completionCount())
	assert.Equal(t, "page-2", api.completions[1].ChosenID)
	assert.Equal(t, "c", api.completions[1].Code)
	assert.Equal(t, "s", api.completions[1].State)
}

func TestLinkSelectUnknownCandidateIgnored(t *testing.T) {
	api := &fakePlatformAPI{completeFn: func(model.OAuthCompletionRequest) (*model.OAuthCompletionResult, error) {
		return &model.OAuthCompletionResult{
			Status:     model.OAuthSelectionRequired,
			Candidates: []model.AccountCandidate{{PrimaryID: "page-1"}},
		}, nil
	}}
	uc, _, _ := newLinkFixture(t, api, signedInStore())

	uc.HandleCallback(context.Background(), model.ProviderMeta, callbackParams("c", "s"))
	status := uc.SelectCandidate(context.Background(), model.ProviderMeta, "nope")

	assert.Equal(t, "page-1", status.SelectedCandidateID)
}

func TestLinkCompletionFailureClearsAttempt(t *testing.T) {
	api := &fakePlatformAPI{completeFn: func(model.OAuthCompletionRequest) (*model.OAuthCompletionResult, error) {
		return nil, errors.New("boom")
	}}
	uc, attempts, _ := newLinkFixture(t, api, signedInStore())

	status := uc.HandleCallback(context.Background(), model.ProviderTikTok, callbackParams("c", "s"))

	assert.Equal(t, LinkFailed, status.State)
	assert.Equal(t, "Unable to complete the connection. Please try again or contact support.", status.Message)
	assert.GreaterOrEqual(t, attempts.deletes, 1)
}

func TestLinkCompletionFailedStatusUsesBackendMessage(t *testing.T) {
	api := &fakePlatformAPI{completeFn: func(model.OAuthCompletionRequest) (*model.OAuthCompletionResult, error) {
		return &model.OAuthCompletionResult{Status: model.OAuthFailed, Message: "Token exchange rejected."}, nil
	}}
	uc, _, _ := newLinkFixture(t, api, signedInStore())

	status := uc.HandleCallback(context.Background(), model.ProviderTikTok, callbackParams("c", "s"))

	assert.Equal(t, LinkFailed, status.State)
	assert.Equal(t, "Token exchange rejected.", status.Message)
}

func TestLinkResetKeepsPersistedAttempt(t *testing.T) {
	api := &fakePlatformAPI{completeFn: func(model.OAuthCompletionRequest) (*model.OAuthCompletionResult, error) {
		return &model.OAuthCompletionResult{
			Status:     model.OAuthSelectionRequired,
			Candidates: []model.AccountCandidate{{PrimaryID: "page-1"}},
		}, nil
	}}
	uc, attempts, _ := newLinkFixture(t, api, signedInStore())

	uc.HandleCallback(context.Background(), model.ProviderMeta, callbackParams("c", "s"))
	uc.Reset(model.ProviderMeta)

	assert.Equal(t, LinkIdle, uc.Status(model.ProviderMeta).State)
	stored, _ := attempts.Get(context.Background(), model.ProviderMeta)
	assert.NotNil(t, stored)
}
