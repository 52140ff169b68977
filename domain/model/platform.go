package model

import "time"

// Provider ids understood by the backend's oauth routes.
const (
	ProviderTikTok  = "tiktok"
	ProviderMeta    = "meta"
	ProviderYouTube = "youtube"
)

type PlatformConnection struct {
	ID                  int                    `json:"id"`
	UserID              int                    `json:"userId"`
	PlatformID          *int                   `json:"platformId,omitempty"`
	PlatformCode        *string                `json:"platformCode,omitempty"`
	PlatformName        string                 `json:"platformName"`
	ExternalAccountID   string                 `json:"externalAccountId"`
	ExternalUsername    *string                `json:"externalUsername"`
	ExternalDisplayName *string                `json:"externalDisplayName"`
	Status              *string                `json:"status"`
	Metadata            map[string]interface{} `json:"metadata"`
	LastSyncedAt        *time.Time             `json:"lastSyncedAt,omitempty"`
	CreatedAt           *time.Time             `json:"createdAt,omitempty"`
	UpdatedAt           *time.Time             `json:"updatedAt,omitempty"`
}

// PlatformAuthorization is the backend's answer to oauth/start: where to send the
// browser, and the opaque state token correlating the redirect-out with the
// redirect-back.
type PlatformAuthorization struct {
	AuthorizationURL string    `json:"authorizationUrl"`
	State            string    `json:"state"`
	ExpiresAt        time.Time `json:"expiresAt"`
}

// AccountCandidate is one of possibly several external accounts the provider
// offered when the authorization did not resolve to a single target.
type AccountCandidate struct {
	PrimaryID       string  `json:"primaryId"`
	PrimaryName     string  `json:"primaryName"`
	SecondaryID     *string `json:"secondaryId,omitempty"`
	SecondaryHandle *string `json:"secondaryHandle,omitempty"`
	SecondaryName   *string `json:"secondaryName,omitempty"`
}

type OAuthCompletionStatus string

const (
	OAuthConnected         OAuthCompletionStatus = "CONNECTED"
	OAuthSelectionRequired OAuthCompletionStatus = "SELECTION_REQUIRED"
	OAuthFailed            OAuthCompletionStatus = "FAILED"
)

type OAuthCompletionRequest struct {
	Code     string `json:"code"`
	State    string `json:"state"`
	ChosenID string `json:"chosenId,omitempty"`
}

type OAuthCompletionResult struct {
	Status     OAuthCompletionStatus `json:"status"`
	Connection *PlatformConnection   `json:"connection,omitempty"`
	Candidates []AccountCandidate    `json:"candidates,omitempty"`
	Message    string                `json:"message,omitempty"`
}

// LinkAttempt is the transient per-provider record that lets the selection step
// survive a full page reload. Keyed by provider; the state token is the sole
// correlation key back to the authorization that produced it.
type LinkAttempt struct {
	Provider            string             `json:"provider"`
	State               string             `json:"state"`
	Candidates          []AccountCandidate `json:"candidates"`
	SelectedCandidateID string             `json:"selectedCandidateId"`
}
