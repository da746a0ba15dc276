package domain

import "time"

// TokenType distinguishes short-lived access tokens from refresh tokens.
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// Valid reports whether t is a known kind.
func (t TokenType) Valid() bool {
	return t == TokenAccess || t == TokenRefresh
}

// TokenPayload is the decoded content of a verified token.
type TokenPayload struct {
	Subject   string
	Type      TokenType
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenPair is what a successful login returns. RefreshToken is empty when
// only the access token was reissued.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}
