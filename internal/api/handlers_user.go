package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/skillloop/skillloop-server/internal/api/respond"
	"github.com/skillloop/skillloop-server/internal/auth"
	"github.com/skillloop/skillloop-server/internal/match"
	"github.com/skillloop/skillloop-server/internal/model"
)

type createUserRequest struct {
	Email          string          `json:"email" validate:"required,email"`
	Phone          string          `json:"phone"`
	Name           string          `json:"name" validate:"required"`
	CanTeach       []string        `json:"canTeach"`
	WantsToLearn   []string        `json:"wantsToLearn"`
	Availability   []model.Slot    `json:"availability"`
	Location       *model.GeoPoint `json:"location"`
	Rating         *float64        `json:"rating" validate:"omitempty,gte=1,lte=5"`
	LearningStyles []string        `json:"learningStyles"`
}

func (h *Server) CreateUser(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r, auth.RoleMember); !ok {
		return
	}
	var in createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validate.Struct(in); err != nil {
		respond.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	u := &model.Entity{
		Email:          in.Email,
		Phone:          in.Phone,
		Name:           in.Name,
		Role:           "member",
		CanTeach:       in.CanTeach,
		WantsToLearn:   in.WantsToLearn,
		Availability:   in.Availability,
		Location:       in.Location,
		Rating:         in.Rating,
		LearningStyles: in.LearningStyles,
	}
	out, err := h.users.CreateUser(r.Context(), u)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, out)
}

func (h *Server) GetUser(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r, auth.RoleMember); !ok {
		return
	}
	u, err := h.users.GetUser(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, u)
}

// FindMatches ranks reciprocal peers for a member. Members may only
// query their own matches; admins may query anyone's.
func (h *Server) FindMatches(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.authorize(w, r, auth.RoleMember)
	if !ok {
		return
	}
	actorID := mux.Vars(r)["userId"]
	if actorID != actor.ActorID && !actor.HasRole(auth.RoleAdmin) {
		respond.WriteError(w, http.StatusForbidden, "members may only query their own matches")
		return
	}

	p := match.Params{}
	q := r.URL.Query()
	if v := q.Get("desiredMinutes"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respond.WriteError(w, http.StatusBadRequest, "desiredMinutes must be an integer")
			return
		}
		p.DesiredMinutes = n
	}
	if v := q.Get("maxKm"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			respond.WriteError(w, http.StatusBadRequest, "maxKm must be a number")
			return
		}
		p.MaxDistanceKm = f
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respond.WriteError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		p.Limit = n
	}

	matches, err := h.matches.FindMatches(r.Context(), actorID, p)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	if matches == nil {
		matches = []match.Match{}
	}
	respond.WriteJSON(w, http.StatusOK, map[string]any{"matches": matches})
}
