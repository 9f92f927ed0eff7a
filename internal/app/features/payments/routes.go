// internal/app/features/payments/routes.go
package payments

import "github.com/go-chi/chi/v5"

// Routes returns a subrouter that serves the payment callback.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/verify", h.VerifyCallback) // mounted under /payments
	return r
}
