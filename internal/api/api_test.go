package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/skillloop/skillloop-server/internal/auth"
	"github.com/skillloop/skillloop-server/internal/model"
	"github.com/skillloop/skillloop-server/internal/services"
	"github.com/skillloop/skillloop-server/internal/store/memory"
)

const (
	adminKey  = "adm-key"
	salesKey  = "sls-key"
	memberKey = "mem-key"
)

func newTestServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()
	st := memory.New()
	authorizer, err := auth.NewStaticAuthorizer(
		adminKey+":ops-1", salesKey+":rep-1", memberKey+":member-1")
	require.NoError(t, err)

	log := zerolog.Nop()
	s := NewServer(
		services.NewUserService(st),
		services.NewLeadService(st, log),
		services.NewMatchService(st),
		services.NewOrderService(st, log),
		services.NewAnalyticsService(st, log),
		authorizer,
		func() bool { return true },
	)
	return s, st
}

func doJSON(t *testing.T, s *Server, method, path, key string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	rec := httptest.NewRecorder()
	NewRouter(s, zerolog.Nop()).ServeHTTP(rec, req)
	return rec
}

func TestCreateUser_RoundTrip(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/users", memberKey, map[string]any{
		"email":    "ana@example.com",
		"name":     "Ana",
		"canTeach": []string{"go"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created model.Entity
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)

	rec = doJSON(t, s, http.MethodGet, "/api/users/"+created.ID, memberKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateUser_Validation(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/users", memberKey, map[string]any{
		"email": "not-an-email",
		"name":  "X",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/users", memberKey, map[string]any{
		"email": "ok@example.com",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code, "name required")
}

func TestAuth_MissingAndUnknownKey(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/users", "", map[string]any{})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/users", "bogus", map[string]any{})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_RoleEnforcement(t *testing.T) {
	s, _ := newTestServer(t)

	// Member cannot claim leads.
	rec := doJSON(t, s, http.MethodPost, "/api/leads/claim", memberKey, map[string]any{"limit": 1})
	require.Equal(t, http.StatusForbidden, rec.Code)

	// Sales cannot recompute metrics.
	rec = doJSON(t, s, http.MethodPost, "/api/metrics/recompute", salesKey, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	// Admin can.
	rec = doJSON(t, s, http.MethodPost, "/api/metrics/recompute", adminKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestLeadFlow_CreateClaimConvert(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/leads", memberKey, map[string]any{
		"email":         "lead@example.com",
		"phone":         "5550100",
		"name":          "Lead",
		"wantsToLearn":  []string{"go", "sql", "piano"},
		"requestedDemo": true,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var lead model.Entity
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lead))
	require.InDelta(t, 1.0, lead.Score, 1e-9)

	rec = doJSON(t, s, http.MethodPost, "/api/leads/claim", salesKey, map[string]any{"limit": 5})
	require.Equal(t, http.StatusOK, rec.Code)
	var claim struct {
		Assigned []model.Entity `json:"assigned"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &claim))
	require.Len(t, claim.Assigned, 1)
	require.Equal(t, "rep-1", *claim.Assigned[0].AssignedTo)

	rec = doJSON(t, s, http.MethodPost, "/api/leads/"+lead.ID+"/convert", salesKey, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/leads/"+lead.ID, salesKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var converted model.Entity
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &converted))
	require.Equal(t, model.StageCustomer, converted.Stage)
}

func TestClaimLeads_EmptyBodyUsesDefaultLimit(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/leads", memberKey, map[string]any{
		"email": "lead@example.com", "name": "Lead",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/leads/claim", salesKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var claim struct {
		Assigned []model.Entity `json:"assigned"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &claim))
	require.Len(t, claim.Assigned, 1)
}

func TestFindMatches_AdminQueriesAnyMember(t *testing.T) {
	s, st := newTestServer(t)
	ctx := context.Background()

	usvc := services.NewUserService(st)
	actor, err := usvc.CreateUser(ctx, &model.Entity{
		Email: "a@example.com", Phone: "1", Name: "A",
		CanTeach: []string{"piano"}, WantsToLearn: []string{"go"},
	})
	require.NoError(t, err)
	_, err = usvc.CreateUser(ctx, &model.Entity{
		Email: "b@example.com", Phone: "2", Name: "B",
		CanTeach: []string{"go"}, WantsToLearn: []string{"piano"},
	})
	require.NoError(t, err)

	rec := doJSON(t, s, http.MethodGet, "/api/users/"+actor.ID+"/matches?limit=5", adminKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Matches []struct {
			CandidateID string  `json:"candidateId"`
			Score       float64 `json:"score"`
		} `json:"matches"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Matches, 1)

	// A member cannot query someone else's matches.
	rec = doJSON(t, s, http.MethodGet, "/api/users/"+actor.ID+"/matches", memberKey, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateOrder_HandlerFlow(t *testing.T) {
	s, st := newTestServer(t)
	ctx := context.Background()

	buyer, err := services.NewUserService(st).CreateUser(ctx, &model.Entity{
		Email: "buyer@example.com", Phone: "1", Name: "Buyer",
	})
	require.NoError(t, err)
	require.NoError(t, st.Inventory().Upsert(ctx, &model.InventoryItem{
		SKU: "starter-pack", Name: "Starter Pack", Price: 25, QtyAvailable: 1,
	}))

	rec := doJSON(t, s, http.MethodPost, "/api/orders", salesKey, map[string]any{
		"accountId": buyer.ID,
		"items":     []map[string]any{{"sku": "starter-pack", "qty": 1}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var out struct {
		OrderID string  `json:"orderId"`
		Total   float64 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.NotEmpty(t, out.OrderID)
	require.InDelta(t, 25, out.Total, 1e-9)

	// Second order exhausts stock.
	rec = doJSON(t, s, http.MethodPost, "/api/orders", salesKey, map[string]any{
		"accountId": buyer.ID,
		"items":     []map[string]any{{"sku": "starter-pack", "qty": 1}},
	})
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestReferralEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	for _, e := range [][2]string{{"a", "b"}, {"b", "c"}} {
		rec := doJSON(t, s, http.MethodPost, "/api/referrals", memberKey, map[string]any{
			"referrerId": e[0], "refereeId": e[1],
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := doJSON(t, s, http.MethodGet, "/api/referrals/a/reach?maxDepth=2", memberKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var reach struct {
		Reach     int `json:"reach"`
		NodeCount int `json:"nodeCount"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reach))
	require.Equal(t, 2, reach.Reach)

	rec = doJSON(t, s, http.MethodGet, "/api/referrals/path?from=a&to=c", memberKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/referrals/path?from=c&to=a", memberKey, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/feedback", memberKey, map[string]any{
		"actorId": "u1", "score": 10,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/metrics/recompute", adminKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/metrics/nps", salesKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var snap struct {
		Name    string          `json:"name"`
		Payload json.RawMessage `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.Equal(t, "nps", snap.Name)
	require.NotEmpty(t, snap.Payload)

	rec = doJSON(t, s, http.MethodGet, "/api/metrics/unknown", salesKey, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthEndpoint_NoAuth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "healthy")
}
