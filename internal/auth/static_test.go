package auth

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/skillloop/skillloop-server/internal/model"
)

func TestStaticAuthorizer_ResolvesRoles(t *testing.T) {
	a, err := NewStaticAuthorizer("adm-key:ops", "sales-key:rep-1, sales2:rep-2", "mem-key:u-9")
	require.NoError(t, err)

	actor, err := a.Authorize(context.Background(), "sales-key")
	require.NoError(t, err)
	require.Equal(t, "rep-1", actor.ActorID)
	require.Equal(t, RoleSales, actor.Role)

	_, err = a.Authorize(context.Background(), "nope")
	require.ErrorIs(t, err, model.ErrUnauthenticated)
}

func TestStaticAuthorizer_Malformed(t *testing.T) {
	_, err := NewStaticAuthorizer("justakey", "", "")
	require.Error(t, err)

	_, err = NewStaticAuthorizer("k:one", "k:two", "")
	require.Error(t, err, "duplicate key across roles")
}

func TestHasRole_Ordering(t *testing.T) {
	admin := &ActorInfo{Role: RoleAdmin}
	sales := &ActorInfo{Role: RoleSales}
	member := &ActorInfo{Role: RoleMember}

	require.True(t, admin.HasRole(RoleSales))
	require.True(t, admin.HasRole(RoleMember))
	require.True(t, sales.HasRole(RoleMember))
	require.False(t, sales.HasRole(RoleAdmin))
	require.False(t, member.HasRole(RoleSales))
}

func TestExtractAPIKey(t *testing.T) {
	r, _ := http.NewRequest(http.MethodGet, "/", nil)
	_, err := ExtractAPIKey(r)
	require.Error(t, err)

	r.Header.Set("Authorization", "Basic abc")
	_, err = ExtractAPIKey(r)
	require.Error(t, err)

	r.Header.Set("Authorization", "Bearer sk-123")
	key, err := ExtractAPIKey(r)
	require.NoError(t, err)
	require.Equal(t, "sk-123", key)
}

func TestDevAuthorizer(t *testing.T) {
	actor, err := DevAuthorizer{}.Authorize(context.Background(), "anything")
	require.NoError(t, err)
	require.Equal(t, RoleAdmin, actor.Role)
}
