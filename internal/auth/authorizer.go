// Package auth validates bearer keys and resolves them to actors with
// roles. Keys are static, loaded from configuration; there is no
// external auth provider in this service.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// Roles, in increasing privilege order.
const (
	RoleMember = "member"
	RoleSales  = "sales"
	RoleAdmin  = "admin"
)

// ActorInfo identifies an authenticated caller.
type ActorInfo struct {
	ActorID string `json:"actorId"`
	Role    string `json:"role"`
}

// HasRole reports whether the actor satisfies the required role.
// Admin satisfies everything; sales satisfies sales and member.
func (a *ActorInfo) HasRole(required string) bool {
	rank := map[string]int{RoleMember: 0, RoleSales: 1, RoleAdmin: 2}
	return rank[a.Role] >= rank[required]
}

// Authorizer resolves an API key to an actor.
type Authorizer interface {
	Authorize(ctx context.Context, apiKey string) (*ActorInfo, error)
}

// ExtractAPIKey pulls the bearer token from the Authorization header.
func ExtractAPIKey(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", errors.New("missing Authorization header")
	}
	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok || token == "" {
		return "", errors.New("Authorization header must be 'Bearer <key>'")
	}
	return token, nil
}
