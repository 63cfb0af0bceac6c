package router

import (
	"net/http"

	"github.com/skillswap/backend/internal/auth"
	"github.com/skillswap/backend/internal/deals"
	"github.com/skillswap/backend/internal/notify"
	"github.com/skillswap/backend/internal/reviews"
	"github.com/skillswap/backend/internal/users"
)

// New returns an http.Handler that serves the API under /api/v1.
func New(authHandler *auth.Handler, dealHandler *deals.Handler, reviewHandler *reviews.Handler, userHandler *users.Handler, notifyHandler *notify.Handler) http.Handler {
	mux := http.NewServeMux()
	base := "/api/v1"

	mux.HandleFunc("POST "+base+"/auth/register", authHandler.Register)
	mux.HandleFunc("POST "+base+"/auth/login", authHandler.Login)

	mux.HandleFunc("POST "+base+"/deals", dealHandler.Propose)
	mux.HandleFunc("GET "+base+"/deals", dealHandler.List)
	mux.HandleFunc("GET "+base+"/deals/{id}", dealHandler.Get)
	mux.HandleFunc("POST "+base+"/deals/{id}/accept", dealHandler.Accept)
	mux.HandleFunc("POST "+base+"/deals/{id}/reject", dealHandler.Reject)
	mux.HandleFunc("POST "+base+"/deals/{id}/start", dealHandler.Start)
	mux.HandleFunc("POST "+base+"/deals/{id}/confirm", dealHandler.ConfirmCompletion)
	mux.HandleFunc("POST "+base+"/deals/{id}/cancel", dealHandler.Cancel)
	mux.HandleFunc("POST "+base+"/deals/{id}/dispute", dealHandler.Dispute)
	mux.HandleFunc("POST "+base+"/deals/{id}/resolve", dealHandler.ResolveDispute)

	mux.HandleFunc("POST "+base+"/reviews", reviewHandler.Add)
	mux.HandleFunc("GET "+base+"/users/{id}/reviews", reviewHandler.ListForUser)

	mux.HandleFunc("GET "+base+"/users/{id}", userHandler.GetProfile)
	mux.HandleFunc("POST "+base+"/users/{id}/verify", userHandler.Verify)

	mux.HandleFunc("GET "+base+"/notifications", notifyHandler.List)

	return mux
}
