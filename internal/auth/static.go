package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/skillloop/skillloop-server/internal/model"
)

// StaticAuthorizer maps configured bearer keys to actors.
type StaticAuthorizer struct {
	byKey map[string]ActorInfo
}

// NewStaticAuthorizer builds an authorizer from comma-separated
// "key:actorID" pairs per role, as the config delivers them.
func NewStaticAuthorizer(adminKeys, salesKeys, memberKeys string) (*StaticAuthorizer, error) {
	a := &StaticAuthorizer{byKey: make(map[string]ActorInfo)}
	for role, raw := range map[string]string{
		RoleAdmin:  adminKeys,
		RoleSales:  salesKeys,
		RoleMember: memberKeys,
	} {
		for _, pair := range strings.Split(raw, ",") {
			pair = strings.TrimSpace(pair)
			if pair == "" {
				continue
			}
			key, actorID, ok := strings.Cut(pair, ":")
			if !ok || key == "" || actorID == "" {
				return nil, fmt.Errorf("malformed %s key entry %q, want key:actorID", role, pair)
			}
			if _, dup := a.byKey[key]; dup {
				return nil, fmt.Errorf("duplicate API key across roles")
			}
			a.byKey[key] = ActorInfo{ActorID: actorID, Role: role}
		}
	}
	return a, nil
}

func (a *StaticAuthorizer) Authorize(ctx context.Context, apiKey string) (*ActorInfo, error) {
	actor, ok := a.byKey[apiKey]
	if !ok {
		return nil, fmt.Errorf("unknown API key: %w", model.ErrUnauthenticated)
	}
	out := actor
	return &out, nil
}

// DevAuthorizer accepts any non-empty key and resolves it to a local
// admin actor. Wired only when dev mode is on.
type DevAuthorizer struct{}

func (DevAuthorizer) Authorize(ctx context.Context, apiKey string) (*ActorInfo, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("empty API key: %w", model.ErrUnauthenticated)
	}
	return &ActorInfo{ActorID: "local-dev", Role: RoleAdmin}, nil
}
