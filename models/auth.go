package models

type GoogleAuthSignIn struct {
	IdToken  string `json:"idToken" validate:"required"`
	Platform string `json:"platform" validate:"required"`
}

type AppleAuthRequest struct {
	IdentityToken     string `json:"identity_token" validate:"required"`
	Platform          string `json:"platform" validate:"required"`
	AuthorizationCode string `json:"authorization_code" validate:"required"`
}

type SignUpIn struct {
	ProfileIn
	IdToken  string `json:"idToken" validate:"required"`
	Platform string `json:"platform" validate:"required"`
}

type ProfileIn struct {
	Name      string `json:"name" validate:"required"`
	UTMSource string `json:"utm_source"`
}

type GoogleSignInOut struct {
	Email string `json:"email"`

	// null in the verify step
	Id string `json:"id"`

	New          bool   `json:"new"`
	Avatar       string `json:"avatar"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type UserMeOut struct {
	Id        string   `json:"id"`
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	Status    string   `json:"-"`
	AvatarURL string   `json:"avatar_url"`
	IsPremium bool     `json:"is_premium"`
	Platform  Platform `json:"platform"`

	StylePrimary      []string `json:"style_primary"`
	MainContext       *string  `json:"main_context"`
	PreferenceBalance *string  `json:"preference_balance"`
	ImprovementGoals  []string `json:"improvement_goals"`

	ReceiveNotifications bool `json:"receive_notifications"`

	// advisory only, the server enforces quota on every gated call
	Usage UsageOut `json:"usage"`
}

type UsageOut struct {
	WeekStart       string `json:"week_start"`
	RatingsUsed     int    `json:"ratings_used"`
	GenerationsUsed int    `json:"generations_used"`
	WeeklyLimit     int    `json:"weekly_limit"`
}
