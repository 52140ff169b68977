package usecase

import (
	"context"
	"errors"
	"time"

	"postbridge/domain/model"
	"postbridge/domain/repository"
	"postbridge/infrastructure/logger"
)

// AuthFailureKind lets the UI branch on what went wrong (show resend action,
// show cooldown, redirect to login) instead of string-matching messages.
type AuthFailureKind string

const (
	FailureInvalidCredentials AuthFailureKind = "INVALID_CREDENTIALS"
	FailureEmailNotVerified   AuthFailureKind = "EMAIL_NOT_VERIFIED"
	FailureEmailExists        AuthFailureKind = "EMAIL_EXISTS"
	FailureRateLimited        AuthFailureKind = "RATE_LIMITED"
	FailureTokenInvalid       AuthFailureKind = "TOKEN_INVALID"
	FailureSessionExpired     AuthFailureKind = "SESSION_EXPIRED"
	FailureGeneric            AuthFailureKind = "GENERIC"
)

// AuthFailure is the typed outcome for every failed auth operation. Message is
// always human-readable; Cooldown is non-zero only for rate-limited failures.
type AuthFailure struct {
	Kind     AuthFailureKind
	Message  string
	Cooldown time.Duration
}

type IAuthUsecase interface {
	Login(ctx context.Context, req model.ReqLogin) (*model.AuthResponse, *AuthFailure)
	Register(ctx context.Context, req model.ReqRegister) (*model.RegistrationPending, *AuthFailure)
	CurrentSession(ctx context.Context) (*model.Session, *AuthFailure)
	Logout(ctx context.Context)
	VerifyEmail(ctx context.Context, token string) *AuthFailure
	ResendVerification(ctx context.Context) (time.Duration, *AuthFailure)
	ResendVerificationGuest(ctx context.Context, email string) (time.Duration, *AuthFailure)
	RequestPasswordReset(ctx context.Context, email string) *AuthFailure
	SubmitPasswordReset(ctx context.Context, token, newPassword string) *AuthFailure
	SubmitOnboarding(ctx context.Context, req model.OnboardingRequest) (*model.OnboardingResponse, *AuthFailure)
	FetchOnboarding(ctx context.Context) (*model.OnboardingResponse, *AuthFailure)
	Sessions(ctx context.Context) ([]model.AuthSessionInfo, *AuthFailure)
	RevokeSession(ctx context.Context, deviceID string) *AuthFailure
}

// Applied when the backend confirms a resend without sending its own cooldown
// hint, so the UI always has a concrete wait to show.
const defaultResendCooldown = 60 * time.Second

type authUsecase struct {
	api      repository.IAuthAPI
	sessions *SessionStore
}

func NewAuthUsecase(api repository.IAuthAPI, sessions *SessionStore) IAuthUsecase {
	return &authUsecase{api: api, sessions: sessions}
}

func (u *authUsecase) Login(ctx context.Context, req model.ReqLogin) (*model.AuthResponse, *AuthFailure) {
	res, err := u.api.Login(ctx, req)
	if err != nil {
		return nil, resolveAuthError(err, "Unable to sign in right now. Please try again.")
	}
	u.sessions.Set(res.Session())
	return res, nil
}

func (u *authUsecase) Register(ctx context.Context, req model.ReqRegister) (*model.RegistrationPending, *AuthFailure) {
	res, err := u.api.Register(ctx, req)
	if err != nil {
		return nil, resolveAuthError(err, "Unable to complete registration right now. Please try again.")
	}
	return res, nil
}

// CurrentSession re-syncs the user record from the backend; the pipeline
// underneath handles any expiry-triggered refresh transparently.
func (u *authUsecase) CurrentSession(ctx context.Context) (*model.Session, *AuthFailure) {
	if u.sessions.Load() == nil {
		return nil, &AuthFailure{Kind: FailureSessionExpired, Message: "Your session has expired. Please sign in again."}
	}
	res, err := u.api.CurrentSession(ctx)
	if err != nil {
		if errors.Is(err, model.ErrSessionInvalidated) {
			return nil, &AuthFailure{Kind: FailureSessionExpired, Message: "Your session has expired. Please sign in again."}
		}
		return nil, resolveAuthError(err, "Unable to load your session right now.")
	}
	session := res.Session()
	u.sessions.Set(session)
	return session, nil
}

func (u *authUsecase) Logout(ctx context.Context) {
	if session := u.sessions.Load(); session != nil {
		if err := u.api.Logout(ctx, session.Tokens.RefreshToken); err != nil {
			logger.GetLogger().WithField("error", err).Warn("backend logout failed; clearing local session anyway")
		}
	}
	u.sessions.Clear()
}

func (u *authUsecase) VerifyEmail(ctx context.Context, token string) *AuthFailure {
	if err := u.api.VerifyEmail(ctx, token); err != nil {
		return resolveAuthError(err, "Unable to verify your email address right now.")
	}
	return nil
}

func (u *authUsecase) ResendVerification(ctx context.Context) (time.Duration, *AuthFailure) {
	cooldown, err := u.api.ResendVerification(ctx)
	if err != nil {
		return 0, resolveAuthError(err, "Unable to send verification email right now. Please try again.")
	}
	if cooldown <= 0 {
		cooldown = defaultResendCooldown
	}
	return cooldown, nil
}

func (u *authUsecase) ResendVerificationGuest(ctx context.Context, email string) (time.Duration, *AuthFailure) {
	cooldown, err := u.api.ResendVerificationGuest(ctx, email)
	if err != nil {
		return 0, resolveAuthError(err, "Unable to send verification email right now. Please try again.")
	}
	if cooldown <= 0 {
		cooldown = defaultResendCooldown
	}
	return cooldown, nil
}

func (u *authUsecase) RequestPasswordReset(ctx context.Context, email string) *AuthFailure {
	if err := u.api.RequestPasswordReset(ctx, email); err != nil {
		return resolveAuthError(err, "Unable to reset your password right now. Please try again.")
	}
	return nil
}

func (u *authUsecase) SubmitPasswordReset(ctx context.Context, token, newPassword string) *AuthFailure {
	if err := u.api.SubmitPasswordReset(ctx, token, newPassword); err != nil {
		return resolveAuthError(err, "Unable to reset your password right now. Please try again.")
	}
	return nil
}

// SubmitOnboarding completes the profile. The backend may rotate the token
// pair alongside the user record; either way the stored session picks up the
// fresh user.
func (u *authUsecase) SubmitOnboarding(ctx context.Context, req model.OnboardingRequest) (*model.OnboardingResponse, *AuthFailure) {
	res, err := u.api.SubmitOnboarding(ctx, req)
	if err != nil {
		return nil, resolveAuthError(err, "Unable to save your profile right now. Please try again.")
	}
	if res.Tokens != nil {
		u.sessions.UpdateTokens(*res.Tokens, res.User)
	} else if res.User != nil {
		if current := u.sessions.Load(); current != nil {
			u.sessions.Set(&model.Session{Tokens: current.Tokens, User: res.User})
		}
	}
	return res, nil
}

func (u *authUsecase) FetchOnboarding(ctx context.Context) (*model.OnboardingResponse, *AuthFailure) {
	res, err := u.api.FetchOnboarding(ctx)
	if err != nil {
		return nil, resolveAuthError(err, "Unable to load your profile right now.")
	}
	return res, nil
}

func (u *authUsecase) Sessions(ctx context.Context) ([]model.AuthSessionInfo, *AuthFailure) {
	res, err := u.api.Sessions(ctx)
	if err != nil {
		return nil, resolveAuthError(err, "Unable to load your devices right now.")
	}
	return res, nil
}

func (u *authUsecase) RevokeSession(ctx context.Context, deviceID string) *AuthFailure {
	if err := u.api.RevokeSession(ctx, deviceID); err != nil {
		return resolveAuthError(err, "Unable to sign that device out right now.")
	}
	return nil
}

// resolveAuthError maps backend error codes to the user-facing messages the
// dashboard shows. Anything unrecognized falls back to the caller's generic
// message (or the backend's own detail when it sent one).
func resolveAuthError(err error, fallback string) *AuthFailure {
	if errors.Is(err, model.ErrSessionInvalidated) {
		return &AuthFailure{Kind: FailureSessionExpired, Message: "Your session has expired. Please sign in again."}
	}

	apiErr, ok := model.AsAPIError(err)
	if !ok {
		return &AuthFailure{Kind: FailureGeneric, Message: fallback}
	}

	message := fallback
	if apiErr.Detail != "" {
		message = apiErr.Detail
	} else if apiErr.Message != "" {
		message = apiErr.Message
	}

	switch apiErr.ErrorCode {
	case model.CodeInvalidCredentials:
		return &AuthFailure{Kind: FailureInvalidCredentials, Message: "The email or password you entered is incorrect."}
	case model.CodeEmailNotVerified:
		return &AuthFailure{
			Kind:    FailureEmailNotVerified,
			Message: "Please verify your email address before signing in. Check your inbox for the verification link.",
		}
	case model.CodeLoginRateLimited:
		return &AuthFailure{
			Kind:     FailureRateLimited,
			Message:  "Too many failed attempts. Please wait a few minutes and try again.",
			Cooldown: apiErr.RetryAfter(),
		}
	case model.CodeEmailExists:
		return &AuthFailure{Kind: FailureEmailExists, Message: "An account with this email already exists. Sign in or reset your password."}
	case model.CodeVerificationRateLimited:
		return &AuthFailure{
			Kind:     FailureRateLimited,
			Message:  "You requested a verification email recently. Please wait before trying again.",
			Cooldown: apiErr.RetryAfter(),
		}
	case model.CodeEmailDispatchFailed:
		return &AuthFailure{Kind: FailureGeneric, Message: "We couldn't send the verification email. Check your address or try again in a moment."}
	case model.CodeVerificationTokenExpired:
		return &AuthFailure{Kind: FailureTokenInvalid, Message: "This verification link has expired. Request a new verification email and try again."}
	case model.CodeVerificationTokenNotFound:
		return &AuthFailure{Kind: FailureTokenInvalid, Message: "This verification link is invalid or has already been used."}
	case model.CodeResetTokenExpired:
		return &AuthFailure{Kind: FailureTokenInvalid, Message: "This reset link has expired. Request a new password reset email and try again."}
	case model.CodeResetTokenNotFound:
		return &AuthFailure{Kind: FailureTokenInvalid, Message: "This reset link is invalid or has already been used."}
	}

	return &AuthFailure{Kind: FailureGeneric, Message: message, Cooldown: apiErr.RetryAfter()}
}
