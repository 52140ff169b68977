package usecase

import (
	"context"
	"net/url"
	"sync"
	"time"

	"postbridge/domain/model"
	"postbridge/domain/repository"
	"postbridge/infrastructure/logger"
)

type LinkState string

const (
	LinkIdle              LinkState = "IDLE"
	LinkInitiating        LinkState = "INITIATING"
	LinkAwaitingCallback  LinkState = "AWAITING_CALLBACK"
	LinkCompleting        LinkState = "COMPLETING"
	LinkConnected         LinkState = "CONNECTED"
	LinkSelectionRequired LinkState = "SELECTION_REQUIRED"
	LinkFailed            LinkState = "FAILED"
)

// Navigator abstracts the browser location so the connect flow can redirect
// out to the provider and back to the dashboard. Replace swaps the current
// history entry, Assign pushes a new one (a hard navigation in the browser).
type Navigator interface {
	Replace(target string)
	Assign(target string)
	Location() string
}

// LinkStatus is a snapshot of one provider's connect flow.
type LinkStatus struct {
	Provider            string                    `json:"provider"`
	State               LinkState                 `json:"state"`
	Message             string                    `json:"message,omitempty"`
	Candidates          []model.AccountCandidate  `json:"candidates,omitempty"`
	SelectedCandidateID string                    `json:"selectedCandidateId,omitempty"`
	Connection          *model.PlatformConnection `json:"connection,omitempty"`
}

type ILinkUsecase interface {
	Start(ctx context.Context, provider string) LinkStatus
	HandleCallback(ctx context.Context, provider string, params url.Values) LinkStatus
	SelectCandidate(ctx context.Context, provider, candidateID string) LinkStatus
	ConfirmSelection(ctx context.Context, provider string) LinkStatus
	Status(provider string) LinkStatus
	Reset(provider string)
}

type linkFlow struct {
	status LinkStatus
	// callback params held across the selection round-trip
	code       string
	stateToken string
	fallback   *time.Timer
}

type linkUsecase struct {
	api        repository.IPlatformAPI
	attempts   repository.ILinkAttempt
	sessions   *SessionStore
	nav        Navigator
	attemptTTL time.Duration
	redirect   string
	// delay before the hard-navigation fallback fires when the soft redirect
	// did not take
	fallbackDelay time.Duration

	mu    sync.Mutex
	flows map[string]*linkFlow
}

const defaultFallbackDelay = 200 * time.Millisecond

func NewLinkUsecase(api repository.IPlatformAPI, attempts repository.ILinkAttempt, sessions *SessionStore, nav Navigator, attemptTTL time.Duration, successRedirect string) ILinkUsecase {
	return &linkUsecase{
		api:           api,
		attempts:      attempts,
		sessions:      sessions,
		nav:           nav,
		attemptTTL:    attemptTTL,
		redirect:      successRedirect,
		fallbackDelay: defaultFallbackDelay,
		flows:         map[string]*linkFlow{},
	}
}

func (u *linkUsecase) flowLocked(provider string) *linkFlow {
	flow, ok := u.flows[provider]
	if !ok {
		flow = &linkFlow{status: LinkStatus{Provider: provider, State: LinkIdle}}
		u.flows[provider] = flow
	}
	return flow
}

func (u *linkUsecase) setStatus(provider string, mutate func(*linkFlow)) LinkStatus {
	u.mu.Lock()
	defer u.mu.Unlock()
	flow := u.flowLocked(provider)
	mutate(flow)
	flow.status.Provider = provider
	return flow.status
}

// Start asks the backend for an authorization url and sends the browser there.
// Requires a signed-in session; without one there is nothing to link to.
func (u *linkUsecase) Start(ctx context.Context, provider string) LinkStatus {
	if u.sessions.Load() == nil {
		return u.fail(provider, "Please sign in before connecting an account.")
	}

	u.setStatus(provider, func(f *linkFlow) {
		f.status = LinkStatus{Provider: provider, State: LinkInitiating}
	})

	auth, err := u.api.StartOAuth(ctx, provider)
	if err != nil {
		logger.GetLogger().WithField("provider", provider).WithField("error", err).Error("oauth start failed")
		return u.fail(provider, completionErrorMessage(err, "Unable to start the connection. Please try again."))
	}

	status := u.setStatus(provider, func(f *linkFlow) {
		f.stateToken = auth.State
		f.status = LinkStatus{Provider: provider, State: LinkAwaitingCallback}
	})
	u.nav.Assign(auth.AuthorizationURL)
	return status
}

// HandleCallback drives the state machine from the provider's redirect-back.
// Params are the raw callback query string: code, state, error,
// error_description.
func (u *linkUsecase) HandleCallback(ctx context.Context, provider string, params url.Values) LinkStatus {
	if u.sessions.Load() == nil {
		// No token means the completion call can only 401; fail fast with a
		// message that tells the user what to do, and never hit the network.
		return u.fail(provider, "Your session expired while connecting. Please sign in again and relaunch the connector.")
	}

	if errCode := params.Get("error"); errCode != "" {
		message := params.Get("error_description")
		if message == "" {
			message = "The provider returned an error."
		}
		return u.fail(provider, message)
	}

	code := params.Get("code")
	stateToken := params.Get("state")
	if code == "" || stateToken == "" {
		return u.fail(provider, "Missing authorization parameters. Please try again.")
	}

	// A stored attempt with the same state token means this is a reload of the
	// selection screen: resume from the cached candidates, no completion call.
	if stored, err := u.attempts.Get(ctx, provider); err == nil && stored != nil &&
		stored.State == stateToken && len(stored.Candidates) > 0 {
		return u.resumeSelection(provider, code, stateToken, stored)
	}

	return u.complete(ctx, provider, code, stateToken, "")
}

func (u *linkUsecase) resumeSelection(provider, code, stateToken string, stored *model.LinkAttempt) LinkStatus {
	selected := stored.SelectedCandidateID
	if selected == "" {
		selected = stored.Candidates[0].PrimaryID
	}
	return u.setStatus(provider, func(f *linkFlow) {
		f.code = code
		f.stateToken = stateToken
		f.status = LinkStatus{
			Provider:            provider,
			State:               LinkSelectionRequired,
			Message:             selectionMessage(provider),
			Candidates:          stored.Candidates,
			SelectedCandidateID: selected,
		}
	})
}

func (u *linkUsecase) complete(ctx context.Context, provider, code, stateToken, chosenID string) LinkStatus {
	u.setStatus(provider, func(f *linkFlow) {
		f.code = code
		f.stateToken = stateToken
		f.status = LinkStatus{Provider: provider, State: LinkCompleting}
	})

	res, err := u.api.CompleteOAuth(ctx, provider, model.OAuthCompletionRequest{
		Code:     code,
		State:    stateToken,
		ChosenID: chosenID,
	})
	if err != nil {
		logger.GetLogger().WithField("provider", provider).WithField("error", err).Error("oauth completion failed")
		u.discardAttempt(ctx, provider)
		return u.fail(provider, completionErrorMessage(err, "Unable to complete the connection. Please try again or contact support."))
	}

	switch {
	case res.Status == model.OAuthConnected && res.Connection != nil:
		u.discardAttempt(ctx, provider)
		status := u.setStatus(provider, func(f *linkFlow) {
			f.status = LinkStatus{Provider: provider, State: LinkConnected, Connection: res.Connection}
		})
		u.redirectToSuccess(provider)
		return status

	case res.Status == model.OAuthSelectionRequired && len(res.Candidates) > 0:
		selected := chosenID
		if selected == "" {
			selected = res.Candidates[0].PrimaryID
		}
		attempt := &model.LinkAttempt{
			Provider:            provider,
			State:               stateToken,
			Candidates:          res.Candidates,
			SelectedCandidateID: selected,
		}
		if err := u.attempts.Save(ctx, attempt, u.attemptTTL); err != nil {
			logger.GetLogger().WithField("provider", provider).WithField("error", err).Warn("failed persisting link attempt")
		}
		return u.setStatus(provider, func(f *linkFlow) {
			f.status = LinkStatus{
				Provider:            provider,
				State:               LinkSelectionRequired,
				Message:             selectionMessage(provider),
				Candidates:          res.Candidates,
				SelectedCandidateID: selected,
			}
		})

	default:
		u.discardAttempt(ctx, provider)
		message := res.Message
		if message == "" {
			message = "Unable to complete the connection. Please try again or contact support."
		}
		return u.fail(provider, message)
	}
}

// SelectCandidate records the highlighted candidate, both in memory and in the
// persisted attempt so a reload lands on the same choice.
func (u *linkUsecase) SelectCandidate(ctx context.Context, provider, candidateID string) LinkStatus {
	status := u.setStatus(provider, func(f *linkFlow) {
		if f.status.State != LinkSelectionRequired {
			return
		}
		for _, c := range f.status.Candidates {
			if c.PrimaryID == candidateID {
				f.status.SelectedCandidateID = candidateID
				return
			}
		}
	})
	if status.State != LinkSelectionRequired {
		return status
	}
	u.mu.Lock()
	flow := u.flowLocked(provider)
	attempt := &model.LinkAttempt{
		Provider:            provider,
		State:               flow.stateToken,
		Candidates:          flow.status.Candidates,
		SelectedCandidateID: flow.status.SelectedCandidateID,
	}
	u.mu.Unlock()
	if err := u.attempts.Save(ctx, attempt, u.attemptTTL); err != nil {
		logger.GetLogger().WithField("provider", provider).WithField("error", err).Warn("failed persisting link attempt")
	}
	return status
}

// ConfirmSelection re-runs the completion with the chosen account id.
func (u *linkUsecase) ConfirmSelection(ctx context.Context, provider string) LinkStatus {
	u.mu.Lock()
	flow := u.flowLocked(provider)
	if flow.status.State != LinkSelectionRequired || flow.status.SelectedCandidateID == "" {
		status := flow.status
		u.mu.Unlock()
		return status
	}
	code, stateToken, chosen := flow.code, flow.stateToken, flow.status.SelectedCandidateID
	u.mu.Unlock()

	return u.complete(ctx, provider, code, stateToken, chosen)
}

func (u *linkUsecase) Status(provider string) LinkStatus {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.flowLocked(provider).status
}

// Reset drops the in-memory flow and stops a pending redirect fallback. The
// persisted attempt is left alone so a reload can still resume selection.
func (u *linkUsecase) Reset(provider string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if flow, ok := u.flows[provider]; ok && flow.fallback != nil {
		flow.fallback.Stop()
	}
	delete(u.flows, provider)
}

func (u *linkUsecase) fail(provider, message string) LinkStatus {
	return u.setStatus(provider, func(f *linkFlow) {
		f.status = LinkStatus{Provider: provider, State: LinkFailed, Message: message}
	})
}

func (u *linkUsecase) discardAttempt(ctx context.Context, provider string) {
	if err := u.attempts.Delete(ctx, provider); err != nil {
		logger.GetLogger().WithField("provider", provider).WithField("error", err).Warn("failed removing link attempt")
	}
}

// redirectToSuccess does a soft replace, then hard-navigates a beat later if
// the location never changed. Some in-app routers swallow the replace when the
// callback page is being torn down.
func (u *linkUsecase) redirectToSuccess(provider string) {
	target := u.redirect + "?connected=" + url.QueryEscape(provider)
	u.nav.Replace(target)

	u.mu.Lock()
	flow := u.flowLocked(provider)
	if flow.fallback != nil {
		flow.fallback.Stop()
	}
	flow.fallback = time.AfterFunc(u.fallbackDelay, func() {
		if u.nav.Location() != target {
			u.nav.Assign(target)
		}
	})
	u.mu.Unlock()
}

func selectionMessage(provider string) string {
	switch provider {
	case model.ProviderTikTok:
		return "Select which TikTok account you want to connect."
	case model.ProviderMeta:
		return "Select which Instagram account you want to connect."
	case model.ProviderYouTube:
		return "Select which channel you want to connect."
	default:
		return "Select which account you want to connect."
	}
}

func completionErrorMessage(err error, fallback string) string {
	if apiErr, ok := model.AsAPIError(err); ok {
		if apiErr.Detail != "" {
			return apiErr.Detail
		}
		if apiErr.Message != "" {
			return apiErr.Message
		}
	}
	return fallback
}
