package dto

// LoginRequest payload for login.
type LoginRequest struct {
	Subject  string `json:"subject"`
	Password string `json:"password"`
}

// RegisterRequest payload for new accounts.
type RegisterRequest struct {
	Subject     string   `json:"subject"`
	Password    string   `json:"password"`
	Authorities []string `json:"authorities"`
}

// LoginResponse standard response for a successful login. Tokens travel in
// cookies, never in the body.
type LoginResponse struct {
	Status      string   `json:"status"`
	Subject     string   `json:"subject"`
	Authorities []string `json:"authorities"`
}

// RefreshResponse standard response for a successful token refresh.
type RefreshResponse struct {
	Status  string `json:"status"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// PrincipalResponse mirrors the verified caller for introspection.
type PrincipalResponse struct {
	Subject     string   `json:"subject"`
	Authorities []string `json:"authorities"`
}
