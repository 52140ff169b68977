package model

import "time"

type OnboardingStatus string

const (
	OnboardingNotStarted     OnboardingStatus = "NOT_STARTED"
	OnboardingProfilePending OnboardingStatus = "PROFILE_PENDING"
	OnboardingCompleted      OnboardingStatus = "COMPLETED"
)

// AuthTokens is the credential half of a session. Replaced wholesale on every refresh.
type AuthTokens struct {
	AccessToken  string     `json:"accessToken"`
	TokenType    string     `json:"tokenType"`
	RefreshToken string     `json:"refreshToken,omitempty"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	DeviceID     string     `json:"deviceId,omitempty"`
	DeviceName   string     `json:"deviceName,omitempty"`
}

type ReferenceDataItem struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type CountryReference struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	IsoCode string `json:"isoCode"`
}

type PersonProfile struct {
	ID                 *int                `json:"id"`
	UserID             int                 `json:"userId"`
	FullName           *string             `json:"fullName"`
	PhoneNumber        *string             `json:"phoneNumber"`
	CompanyName        *string             `json:"companyName"`
	Position           *string             `json:"position"`
	BrandColor         *string             `json:"brandColor"`
	FontStyle          *string             `json:"fontStyle"`
	Niches             []ReferenceDataItem `json:"niches"`
	Audiences          []ReferenceDataItem `json:"audiences"`
	Tones              []ReferenceDataItem `json:"tones"`
	Platforms          []ReferenceDataItem `json:"platforms"`
	Countries          []CountryReference  `json:"countries"`
	PostingFrequencies []ReferenceDataItem `json:"postingFrequencies"`
}

type AuthUser struct {
	ID               int              `json:"id"`
	Email            string           `json:"email"`
	Active           bool             `json:"active"`
	EmailVerified    bool             `json:"emailVerified"`
	OnboardingStatus OnboardingStatus `json:"onboardingStatus"`
	Roles            []string         `json:"roles"`
	Person           *PersonProfile   `json:"person"`
}

// Session pairs the credential with the user it belongs to. The two are always
// persisted and cleared together; either half may be updated independently.
type Session struct {
	Tokens AuthTokens `json:"tokens"`
	User   *AuthUser  `json:"user"`
}

// AuthResponse is the {user, tokens} pair returned by login/refresh/session.
type AuthResponse struct {
	User   *AuthUser  `json:"user"`
	Tokens AuthTokens `json:"tokens"`
}

func (r *AuthResponse) Session() *Session {
	return &Session{Tokens: r.Tokens, User: r.User}
}

type ReqLogin struct {
	Email      string `json:"email" binding:"required"`
	Password   string `json:"password" binding:"required"`
	DeviceName string `json:"deviceName,omitempty"`
}

type ReqRegister struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RegistrationPending struct {
	Email                 string `json:"email"`
	VerificationExpiresAt string `json:"verificationExpiresAt"`
	VerificationRequired  bool   `json:"verificationRequired"`
	Message               string `json:"message"`
}

type AuthSessionInfo struct {
	DeviceID   string     `json:"deviceId"`
	DeviceName *string    `json:"deviceName"`
	UserAgent  *string    `json:"userAgent"`
	IPAddress  *string    `json:"ipAddress"`
	CreatedAt  time.Time  `json:"createdAt"`
	LastUsedAt time.Time  `json:"lastUsedAt"`
	ExpiresAt  time.Time  `json:"expiresAt"`
}

type OnboardingRequest struct {
	FullName             string `json:"fullName"`
	PhoneNumber          string `json:"phoneNumber,omitempty"`
	CompanyName          string `json:"companyName,omitempty"`
	Position             string `json:"position,omitempty"`
	BrandColor           string `json:"brandColor,omitempty"`
	FontStyle            string `json:"fontStyle,omitempty"`
	NicheIDs             []int  `json:"nicheIds"`
	AudienceIDs          []int  `json:"audienceIds"`
	ToneIDs              []int  `json:"toneIds"`
	PlatformIDs          []int  `json:"platformIds"`
	CountryIDs           []int  `json:"countryIds"`
	PostingFrequencyIDs  []int  `json:"postingFrequencyIds"`
}

// OnboardingResponse rotates the user record (and possibly the tokens) once the
// profile is completed server-side.
type OnboardingResponse struct {
	User   *AuthUser      `json:"user"`
	Tokens *AuthTokens    `json:"tokens,omitempty"`
	Person *PersonProfile `json:"person,omitempty"`
}
