package dto

const (
	ProviderGoogle = "google"
)

// ConnectGoogleRequest saves tokens obtained by the client-side OAuth flow.
type ConnectGoogleRequest struct {
	AccessToken   string `json:"access_token" validate:"required"`
	RefreshToken  string `json:"refresh_token" validate:"required"`
	ExpiresAt     string `json:"expires_at" validate:"required"` // RFC3339
	CalendarEmail string `json:"calendar_email" validate:"required,email"`
}

type CalendarConnectionResponse struct {
	ID            string `json:"id"`
	Provider      string `json:"provider"`
	CalendarEmail string `json:"calendar_email"`
	IsActive      bool   `json:"is_active"`
	ConnectedAt   string `json:"connected_at"`
}

type CalendarConnectionListResponse struct {
	Connections []CalendarConnectionResponse `json:"connections"`
}
