/**
 * @description
 * This file sets up the HTTP router: endpoint definitions, authentication
 * grouping and the standard middleware stack.
 *
 * @dependencies
 * - github.com/go-chi/chi/v5: Routing and standard middleware.
 * - github.com/go-chi/cors: Browser back-office origins.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// TransactionRoutes creates and returns the router for the transaction API.
func TransactionRoutes(h *TransactionHandlers, jwtSecret string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(jwtSecret))

		r.Get("/", h.ListTransactionsHandler)
		r.Post("/", h.CreateTransactionHandler)
		r.Get("/stats", h.StatsHandler)
		r.Get("/code/{code}", h.GetTransactionByCodeHandler)
		r.Get("/{id}", h.GetTransactionHandler)
		r.Delete("/{id}", h.DeleteTransactionHandler)
		r.Post("/{id}/{action}", h.ReviewTransactionHandler)
	})

	return r
}
