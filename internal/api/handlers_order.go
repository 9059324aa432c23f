package api

import (
	"encoding/json"
	"net/http"

	"github.com/skillloop/skillloop-server/internal/api/respond"
	"github.com/skillloop/skillloop-server/internal/auth"
	"github.com/skillloop/skillloop-server/internal/model"
)

type createOrderRequest struct {
	AccountID string            `json:"accountId" validate:"required"`
	Items     []model.OrderItem `json:"items" validate:"required,min=1,dive"`
	Channel   string            `json:"channel"`
}

func (h *Server) CreateOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.authorize(w, r, auth.RoleMember)
	if !ok {
		return
	}
	var in createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validate.Struct(in); err != nil {
		respond.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	// Members order for themselves; sales and admin may order for any account.
	if in.AccountID != actor.ActorID && !actor.HasRole(auth.RoleSales) {
		respond.WriteError(w, http.StatusForbidden, "members may only order for their own account")
		return
	}
	if in.Channel == "" {
		in.Channel = "web"
	}
	order, err := h.orders.CreateOrder(r.Context(), in.AccountID, in.Items, in.Channel)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, map[string]any{
		"orderId": order.ID,
		"total":   order.Total,
	})
}
