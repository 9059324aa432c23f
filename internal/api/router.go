package api

import (
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/skillloop/skillloop-server/internal/api/recovery"
)

// NewRouter registers every route on a mux router with the recovery
// middleware applied globally.
func NewRouter(s *Server, log zerolog.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(recovery.New(log))

	// Health
	router.HandleFunc("/api/health", s.CheckHealth).Methods("GET")

	// Members
	router.HandleFunc("/api/users", s.CreateUser).Methods("POST")
	router.HandleFunc("/api/users/{userId}", s.GetUser).Methods("GET")
	router.HandleFunc("/api/users/{userId}/matches", s.FindMatches).Methods("GET")

	// Leads
	router.HandleFunc("/api/leads", s.CreateLead).Methods("POST")
	router.HandleFunc("/api/leads/claim", s.ClaimLeads).Methods("POST")
	router.HandleFunc("/api/leads/{leadId}", s.GetLead).Methods("GET")
	router.HandleFunc("/api/leads/{leadId}/convert", s.ConvertLead).Methods("POST")

	// Orders
	router.HandleFunc("/api/orders", s.CreateOrder).Methods("POST")

	// Activity
	router.HandleFunc("/api/sessions", s.CreateSession).Methods("POST")
	router.HandleFunc("/api/feedback", s.CreateFeedback).Methods("POST")

	// Referrals
	router.HandleFunc("/api/referrals", s.CreateReferral).Methods("POST")
	router.HandleFunc("/api/referrals/path", s.ReferralPath).Methods("GET")
	router.HandleFunc("/api/referrals/{userId}/reach", s.ReferralReach).Methods("GET")

	// Inventory and metrics
	router.HandleFunc("/api/inventory/low-stock", s.LowStock).Methods("GET")
	router.HandleFunc("/api/metrics/recompute", s.RecomputeMetrics).Methods("POST")
	router.HandleFunc("/api/metrics/{name}", s.GetMetric).Methods("GET")

	return router
}
