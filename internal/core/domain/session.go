package domain

import "strings"

// MinPasswordLength is the shortest password signup accepts locally.
const MinPasswordLength = 6

// User is the profile the backend returns for the logged-in account.
// It is stored opaquely; only Email is interpreted by the client.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at,omitempty"`
}

// TokenPair is the credential pair issued by login, signup and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Valid reports whether both halves of the pair are present.
func (p TokenPair) Valid() bool {
	return p.AccessToken != "" && p.RefreshToken != ""
}

// AuthResponse is the body returned by /auth/login and /auth/signup.
type AuthResponse struct {
	TokenPair
	User User `json:"user"`
}

// Session is the locally persisted authenticated session.
// At most one exists at a time.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         *User
}

// Tokens returns the session's token pair.
func (s *Session) Tokens() TokenPair {
	return TokenPair{AccessToken: s.AccessToken, RefreshToken: s.RefreshToken}
}

// Credentials are the email/password inputs for login and signup.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the login form.
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.Email) == "" {
		return ErrMissingArgument.WithDetails("Please enter your email")
	}
	if c.Password == "" {
		return ErrMissingArgument.WithDetails("Please enter your password")
	}
	return nil
}

// ValidateSignup checks the signup form, including the confirmation field.
func (c Credentials) ValidateSignup(confirm string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Password != confirm {
		return ErrInvalidArgument.WithDetails("Passwords do not match")
	}
	if len(c.Password) < MinPasswordLength {
		return ErrInvalidArgument.WithDetails("Password must be at least 6 characters")
	}
	return nil
}

// MessageResponse is the generic {message} body.
type MessageResponse struct {
	Message string `json:"message"`
}

// ForgotPasswordRequest is the body of /auth/forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// RefreshRequest is the body of /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}
