package http

type SignUpResponse struct {
	UserID  uint64 `json:"user_id"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

type SignInResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ValidateTokenResponse struct {
	Valid  bool   `json:"valid"`
	UserID uint64 `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
}

type ProfileResponse struct {
	ID              uint64            `json:"id"`
	Name            string            `json:"name,omitempty"`
	Email           string            `json:"email"`
	Role            string            `json:"role"`
	EmailVerified   bool              `json:"email_verified"`
	CreatedAt       string            `json:"created_at"`
	LinkedProviders []LinkedProvider  `json:"linked_providers"`
}

type LinkedProvider struct {
	Provider string `json:"provider"`
	LinkedAt string `json:"linked_at"`
}

type UserListResponse struct {
	Users []UserListItem `json:"users"`
	Total int            `json:"total"`
	Page  int            `json:"page"`
	Pages int            `json:"pages"`
}

type UserListItem struct {
	ID        uint64 `json:"id"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Verified  bool   `json:"verified"`
	CreatedAt string `json:"created_at"`
}

type UserCountResponse struct {
	Count int64 `json:"count"`
}

type UserGrowthResponse struct {
	Growth []MonthlyCount `json:"growth"`
}

type ProviderDistributionResponse struct {
	Providers map[string]int64 `json:"providers"`
}

type MonthlyCount struct {
	Month string `json:"month"`
	Count int64  `json:"count"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
