package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims are the only supported JWT claims shape for this service.
// Identity invariant: UserID must be present on every token; it is the sole
// link between a bearer token and a chat user. WebSocket connections carry
// the access token in a query parameter and resolve to the same claims.
type Claims struct {
	jwt.RegisteredClaims

	UserID    string    `json:"userId"`
	TokenType TokenType `json:"token_type"`
}
