package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"postbridge/domain/model"
)

// AuthAPI implements repository.IAuthAPI against the backend auth routes.
type AuthAPI struct {
	client *Client
}

func NewAuthAPI(client *Client) *AuthAPI {
	return &AuthAPI{client: client}
}

func (a *AuthAPI) Login(ctx context.Context, req model.ReqLogin) (*model.AuthResponse, error) {
	var res model.AuthResponse
	if err := a.client.Do(ctx, http.MethodPost, "/auth/login", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (a *AuthAPI) Register(ctx context.Context, req model.ReqRegister) (*model.RegistrationPending, error) {
	var res model.RegistrationPending
	if err := a.client.Do(ctx, http.MethodPost, "/auth/register", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (a *AuthAPI) Refresh(ctx context.Context, refreshToken string) (*model.AuthResponse, error) {
	body := map[string]string{}
	if refreshToken != "" {
		body["refreshToken"] = refreshToken
	}
	var res model.AuthResponse
	if err := a.client.Do(ctx, http.MethodPost, "/auth/refresh", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (a *AuthAPI) CurrentSession(ctx context.Context) (*model.AuthResponse, error) {
	var res model.AuthResponse
	if err := a.client.Do(ctx, http.MethodGet, "/auth/session", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (a *AuthAPI) Logout(ctx context.Context, refreshToken string) error {
	body := map[string]string{}
	if refreshToken != "" {
		body["refreshToken"] = refreshToken
	}
	return a.client.Do(ctx, http.MethodPost, "/auth/logout", body, nil)
}

func (a *AuthAPI) VerifyEmail(ctx context.Context, token string) error {
	return a.client.Do(ctx, http.MethodPost, "/auth/email/verify", map[string]string{"token": token}, nil)
}

func (a *AuthAPI) ResendVerification(ctx context.Context) (time.Duration, error) {
	headers, err := a.client.DoWithHeaders(ctx, http.MethodPost, "/auth/email/resend", nil, nil, nil)
	if err != nil {
		return 0, err
	}
	return RetryAfterHeader(headers), nil
}

func (a *AuthAPI) ResendVerificationGuest(ctx context.Context, email string) (time.Duration, error) {
	headers, err := a.client.DoWithHeaders(ctx, http.MethodPost, "/auth/email/resend-guest", nil, map[string]string{"email": email}, nil)
	if err != nil {
		return 0, err
	}
	return RetryAfterHeader(headers), nil
}

func (a *AuthAPI) RequestPasswordReset(ctx context.Context, email string) error {
	return a.client.Do(ctx, http.MethodPost, "/auth/password/reset-request", map[string]string{"email": email}, nil)
}

func (a *AuthAPI) SubmitPasswordReset(ctx context.Context, token, newPassword string) error {
	body := map[string]string{"token": token, "newPassword": newPassword}
	return a.client.Do(ctx, http.MethodPost, "/auth/password/reset", body, nil)
}

func (a *AuthAPI) SubmitOnboarding(ctx context.Context, req model.OnboardingRequest) (*model.OnboardingResponse, error) {
	var res model.OnboardingResponse
	if err := a.client.Do(ctx, http.MethodPost, "/onboarding", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (a *AuthAPI) FetchOnboarding(ctx context.Context) (*model.OnboardingResponse, error) {
	var res model.OnboardingResponse
	if err := a.client.Do(ctx, http.MethodGet, "/onboarding", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (a *AuthAPI) Sessions(ctx context.Context) ([]model.AuthSessionInfo, error) {
	var res []model.AuthSessionInfo
	if err := a.client.Do(ctx, http.MethodGet, "/auth/sessions", nil, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (a *AuthAPI) RevokeSession(ctx context.Context, deviceID string) error {
	path := fmt.Sprintf("/auth/sessions/%s", url.PathEscape(deviceID))
	return a.client.Do(ctx, http.MethodDelete, path, nil, nil)
}
