package bookapi

import "time"

// SessionCookie is the cookie carrying the signed session token.
const SessionCookie = "booklog.session_token"

// User is the public view of an authenticated account.
type User struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"emailVerified"`
	Image         *string   `json:"image"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Session is the public view of a login session.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
	IPAddress string    `json:"ipAddress,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// SignUpRequest registers an email/password account.
type SignUpRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// SignInRequest logs in with email and password.
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SessionResponse is returned by sign-up, sign-in and get-session. Token is
// only set on sign-up and sign-in.
type SessionResponse struct {
	Token   string  `json:"token,omitempty"`
	User    User    `json:"user"`
	Session Session `json:"session"`
}

// SuccessResponse acknowledges an operation without a payload.
type SuccessResponse struct {
	Success bool `json:"success"`
}
