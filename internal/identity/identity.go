package identity

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the user id and display name the external identity provider
// vouches for. Both are opaque strings to the engine.
type Identity struct {
	UserID      string
	DisplayName string
}

// Claims is the token payload the identity provider issues: standard
// registered claims plus a display name.
type Claims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 bearer tokens signed with the shared secret.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates a token and returns the identity it carries.
func (v *Verifier) Verify(token string) (Identity, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("parse token: %w", err)
	}
	if !parsed.Valid {
		return Identity{}, fmt.Errorf("invalid token")
	}
	if claims.Subject == "" {
		return Identity{}, fmt.Errorf("token missing subject")
	}
	return Identity{UserID: claims.Subject, DisplayName: claims.Name}, nil
}
