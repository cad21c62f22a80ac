package model

type RegisterResponse struct {
	AccessToken  string  `json:"accessToken"`
	ExpiresIn    int64   `json:"expiresIn"`
	RefreshToken string  `json:"refreshToken"`
	User         Profile `json:"user"`
}

type LoginResponse struct {
	AccessToken  string  `json:"accessToken"`
	ExpiresIn    int64   `json:"expiresIn"`
	RefreshToken string  `json:"refreshToken"`
	UserData     Profile `json:"userData"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse carries the HTTP status in Error, as the API always has.
type ErrorResponse struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// OAuthErrorResponse is the RFC 6749 section 5.2 error body.
type OAuthErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

type Meta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}
