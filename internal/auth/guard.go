// Package auth is the identity tier of the authorization guard: it resolves
// who is calling. Which rows the caller may touch is decided by the
// repository's scoping predicates, never here.
package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"ordering-platform/internal/domain"
)

type Guard struct {
	secret []byte
}

func NewGuard(secret string) *Guard {
	return &Guard{secret: []byte(secret)}
}

// Resolve maps a bearer token to an actor. An empty token is the anonymous
// customer, not an error: customers place orders and simulate payment
// without authenticating.
func (g *Guard) Resolve(tokenString string) (domain.Actor, error) {
	if tokenString == "" {
		return domain.Anonymous(), nil
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return g.secret, nil
	})
	if err != nil || !token.Valid {
		return domain.Actor{}, fmt.Errorf("%w: invalid token", domain.ErrUnauthorized)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return domain.Actor{}, fmt.Errorf("%w: invalid claims", domain.ErrUnauthorized)
	}

	role, _ := claims["role"].(string)
	sub, _ := claims["sub"].(string)

	switch domain.Role(role) {
	case domain.RoleStaff:
		rawStore, _ := claims["store_id"].(string)
		storeID, err := uuid.Parse(rawStore)
		if err != nil {
			return domain.Actor{}, fmt.Errorf("%w: staff token without store", domain.ErrUnauthorized)
		}
		return domain.Actor{Role: domain.RoleStaff, Subject: sub, StoreID: storeID}, nil
	case domain.RoleOperator:
		return domain.Actor{Role: domain.RoleOperator, Subject: sub}, nil
	}
	return domain.Actor{}, fmt.Errorf("%w: unknown role %q", domain.ErrUnauthorized, role)
}

// RequireStaff admits only staff of the given store.
func (g *Guard) RequireStaff(actor domain.Actor, storeID uuid.UUID) error {
	if actor.Role != domain.RoleStaff {
		return fmt.Errorf("%w: staff role required", domain.ErrUnauthorized)
	}
	if actor.StoreID != storeID {
		// Deliberately the same error a missing order produces.
		return domain.ErrNotFound
	}
	return nil
}

// RequireOperator admits only the platform operator.
func (g *Guard) RequireOperator(actor domain.Actor) error {
	if actor.Role != domain.RoleOperator {
		return fmt.Errorf("%w: operator role required", domain.ErrUnauthorized)
	}
	return nil
}
