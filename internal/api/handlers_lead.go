package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/skillloop/skillloop-server/internal/api/respond"
	"github.com/skillloop/skillloop-server/internal/auth"
	"github.com/skillloop/skillloop-server/internal/model"
)

type createLeadRequest struct {
	Email          string          `json:"email" validate:"required,email"`
	Phone          string          `json:"phone"`
	Name           string          `json:"name" validate:"required"`
	CanTeach       []string        `json:"canTeach"`
	WantsToLearn   []string        `json:"wantsToLearn"`
	Availability   []model.Slot    `json:"availability"`
	Location       *model.GeoPoint `json:"location"`
	LearningStyles []string        `json:"learningStyles"`
	RequestedDemo  bool            `json:"requestedDemo"`
	ClickedPricing bool            `json:"clickedPricing"`
}

func (h *Server) CreateLead(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r, auth.RoleMember); !ok {
		return
	}
	var in createLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validate.Struct(in); err != nil {
		respond.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	lead := &model.Entity{
		Email:          in.Email,
		Phone:          in.Phone,
		Name:           in.Name,
		CanTeach:       in.CanTeach,
		WantsToLearn:   in.WantsToLearn,
		Availability:   in.Availability,
		Location:       in.Location,
		LearningStyles: in.LearningStyles,
		Intent: model.Intent{
			RequestedDemo:  in.RequestedDemo,
			ClickedPricing: in.ClickedPricing,
		},
	}
	out, err := h.leads.CreateLead(r.Context(), lead)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, out)
}

func (h *Server) GetLead(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r, auth.RoleSales); !ok {
		return
	}
	lead, err := h.leads.GetLead(r.Context(), mux.Vars(r)["leadId"])
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, lead)
}

type claimLeadsRequest struct {
	Limit int `json:"limit" validate:"omitempty,gt=0,lte=100"`
}

// ClaimLeads assigns up to limit top-scored queued leads to the caller.
func (h *Server) ClaimLeads(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.authorize(w, r, auth.RoleSales)
	if !ok {
		return
	}
	// An empty body is a claim with the default limit.
	var in claimLeadsRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil && !errors.Is(err, io.EOF) {
		respond.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validate.Struct(in); err != nil {
		respond.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if in.Limit == 0 {
		in.Limit = 5
	}
	assigned, err := h.leads.ClaimTopLeads(r.Context(), actor.ActorID, in.Limit)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	if assigned == nil {
		assigned = []*model.Entity{}
	}
	respond.WriteJSON(w, http.StatusOK, map[string]any{"assigned": assigned})
}

func (h *Server) ConvertLead(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r, auth.RoleSales); !ok {
		return
	}
	user, err := h.leads.ConvertLead(r.Context(), mux.Vars(r)["leadId"])
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, user)
}
