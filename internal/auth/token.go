package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// SessionIdentity is the typed view of the session token the console needs.
// The token is issued and validated by the remote API; the console only reads
// the claims, it never checks the signature.
type SessionIdentity struct {
	RestaurantID   string
	RestaurantName string
}

var ErrNoRestaurant = errors.New("token has no restaurant id")

// DecodeIdentity extracts the restaurant identity from a bearer token.
func DecodeIdentity(token string) (SessionIdentity, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return SessionIdentity{}, fmt.Errorf("decode token: %w", err)
	}

	id, _ := claims["restaurantId"].(string)
	if id == "" {
		return SessionIdentity{}, ErrNoRestaurant
	}
	name, _ := claims["name"].(string)

	return SessionIdentity{RestaurantID: id, RestaurantName: name}, nil
}
