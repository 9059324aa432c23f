package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/skillloop/skillloop-server/internal/api/respond"
	"github.com/skillloop/skillloop-server/internal/auth"
	"github.com/skillloop/skillloop-server/internal/model"
)

type createSessionRequest struct {
	ActorID string   `json:"actorId" validate:"required"`
	Amount  *float64 `json:"amount" validate:"omitempty,gt=0"`
	Status  string   `json:"status" validate:"omitempty,oneof=pending accepted completed rejected"`
}

func (h *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r, auth.RoleMember); !ok {
		return
	}
	var in createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validate.Struct(in); err != nil {
		respond.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess, err := h.analytics.RecordSession(r.Context(), &model.Session{
		ActorID: in.ActorID,
		Amount:  in.Amount,
		Status:  in.Status,
	})
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, sess)
}

type createFeedbackRequest struct {
	ActorID string `json:"actorId" validate:"required"`
	Score   int    `json:"score" validate:"gte=0,lte=10"`
}

func (h *Server) CreateFeedback(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r, auth.RoleMember); !ok {
		return
	}
	var in createFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validate.Struct(in); err != nil {
		respond.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	err := h.analytics.RecordFeedback(r.Context(), &model.FeedbackScore{ActorID: in.ActorID, Score: in.Score})
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, map[string]string{"status": "recorded"})
}

type createReferralRequest struct {
	ReferrerID string `json:"referrerId" validate:"required"`
	RefereeID  string `json:"refereeId" validate:"required"`
}

func (h *Server) CreateReferral(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r, auth.RoleMember); !ok {
		return
	}
	var in createReferralRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validate.Struct(in); err != nil {
		respond.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	err := h.analytics.AddReferral(r.Context(), &model.Referral{ReferrerID: in.ReferrerID, RefereeID: in.RefereeID})
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, map[string]string{"status": "recorded"})
}

func (h *Server) ReferralReach(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r, auth.RoleMember); !ok {
		return
	}
	maxDepth := 3
	if v := r.URL.Query().Get("maxDepth"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respond.WriteError(w, http.StatusBadRequest, "maxDepth must be a positive integer")
			return
		}
		maxDepth = n
	}
	res, err := h.analytics.Reach(r.Context(), mux.Vars(r)["userId"], maxDepth)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, res)
}

func (h *Server) ReferralPath(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r, auth.RoleMember); !ok {
		return
	}
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" || to == "" {
		respond.WriteError(w, http.StatusBadRequest, "from and to are required")
		return
	}
	path, err := h.analytics.FindPath(r.Context(), from, to)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]any{"path": path})
}

func (h *Server) LowStock(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r, auth.RoleSales); !ok {
		return
	}
	items, err := h.analytics.LowStock(r.Context())
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	if items == nil {
		items = []model.InventoryItem{}
	}
	respond.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Server) RecomputeMetrics(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r, auth.RoleAdmin); !ok {
		return
	}
	if err := h.analytics.ComputeAggregates(r.Context()); err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]string{"status": "computed"})
}

func (h *Server) GetMetric(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r, auth.RoleSales); !ok {
		return
	}
	snap, err := h.analytics.GetMetric(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]any{
		"name":       snap.Name,
		"payload":    json.RawMessage(snap.Payload),
		"computedAt": snap.ComputedAt,
	})
}
