// Package api exposes the REST surface over gorilla/mux. Handlers
// authorize inline from the bearer key, validate request bodies, call
// the service layer and write through the respond helpers.
package api

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/skillloop/skillloop-server/internal/api/respond"
	"github.com/skillloop/skillloop-server/internal/auth"
	"github.com/skillloop/skillloop-server/internal/services"
)

// Server bundles the handlers' dependencies.
type Server struct {
	users      *services.UserService
	leads      *services.LeadService
	matches    *services.MatchService
	orders     *services.OrderService
	analytics  *services.AnalyticsService
	authorizer auth.Authorizer
	validate   *validator.Validate
	isHealthy  func() bool
}

func NewServer(
	users *services.UserService,
	leads *services.LeadService,
	matches *services.MatchService,
	orders *services.OrderService,
	analytics *services.AnalyticsService,
	authorizer auth.Authorizer,
	isHealthy func() bool,
) *Server {
	return &Server{
		users:      users,
		leads:      leads,
		matches:    matches,
		orders:     orders,
		analytics:  analytics,
		authorizer: authorizer,
		validate:   validator.New(),
		isHealthy:  isHealthy,
	}
}

// authorize resolves the caller and enforces the required role. On
// failure it writes the error response and returns false.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request, requiredRole string) (*auth.ActorInfo, bool) {
	key, err := auth.ExtractAPIKey(r)
	if err != nil {
		respond.WriteError(w, http.StatusUnauthorized, err.Error())
		return nil, false
	}
	actor, err := s.authorizer.Authorize(r.Context(), key)
	if err != nil {
		respond.WriteDomainError(w, err)
		return nil, false
	}
	if !actor.HasRole(requiredRole) {
		respond.WriteError(w, http.StatusForbidden, "insufficient role: "+requiredRole+" required")
		return nil, false
	}
	return actor, true
}
