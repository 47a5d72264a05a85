/**
 * @description
 * This file contains the HTTP handlers for the transaction API. Handlers
 * parse requests, call the lifecycle manager and write responses; every
 * permission and transition decision belongs to the manager, so handlers
 * only translate outcomes into status codes.
 *
 * Business rejections arrive as a ReviewResult with Success=false and are
 * returned with HTTP 200: the request was processed, the operation was
 * refused. Storage failures map to 5xx.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - github.com/go-chi/chi/v5: URL parameter extraction.
 * - internal/app, internal/domain, internal/store.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/goldenelnobles/transaction-service/internal/app"
	"github.com/goldenelnobles/transaction-service/internal/domain"
	"github.com/goldenelnobles/transaction-service/internal/store"
)

// TransactionHandlers holds the lifecycle manager that handlers call into.
type TransactionHandlers struct {
	service *app.Service
}

// NewTransactionHandlers creates a new instance of TransactionHandlers.
func NewTransactionHandlers(service *app.Service) *TransactionHandlers {
	return &TransactionHandlers{service: service}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *TransactionHandlers) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("level=error component=api msg=\"response encode failed\" err=%v", err)
	}
}

func (h *TransactionHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, errorResponse{Error: message})
}

func (h *TransactionHandlers) actor(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	actor, ok := GetActor(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Authentication required")
	}
	return actor, ok
}

// CreateTransactionHandler handles POST /transactions.
func (h *TransactionHandlers) CreateTransactionHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var draft domain.TransactionDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tx, err := h.service.Create(r.Context(), actor, draft)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrPermissionDenied):
			h.writeError(w, http.StatusForbidden, err.Error())
		case errors.Is(err, app.ErrInvalidDraft):
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, store.ErrCodeConflict):
			h.writeError(w, http.StatusConflict, "Transaction code already exists")
		default:
			log.Printf("level=error component=api msg=\"transaction create failed\" actor=%s err=%v", actor.Name, err)
			h.writeError(w, http.StatusInternalServerError, "Unable to create transaction")
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, tx)
}

// ListTransactionsHandler handles GET /transactions.
func (h *TransactionHandlers) ListTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.actor(w, r); !ok {
		return
	}

	transactions, err := h.service.ListTransactions(r.Context())
	if err != nil {
		log.Printf("level=error component=api msg=\"transaction list failed\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Unable to list transactions")
		return
	}
	if transactions == nil {
		transactions = []domain.Transaction{}
	}
	h.writeJSON(w, http.StatusOK, transactions)
}

// GetTransactionHandler handles GET /transactions/{id}.
func (h *TransactionHandlers) GetTransactionHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.actor(w, r); !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid transaction id")
		return
	}

	tx, err := h.service.GetTransaction(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrTransactionNotFound) {
			h.writeError(w, http.StatusNotFound, "Transaction not found")
			return
		}
		log.Printf("level=error component=api msg=\"transaction fetch failed\" transaction_id=%s err=%v", id, err)
		h.writeError(w, http.StatusInternalServerError, "Unable to fetch transaction")
		return
	}
	h.writeJSON(w, http.StatusOK, tx)
}

// GetTransactionByCodeHandler handles GET /transactions/code/{code}, the
// receipt-code lookup used at the payout counter.
func (h *TransactionHandlers) GetTransactionByCodeHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.actor(w, r); !ok {
		return
	}

	code := chi.URLParam(r, "code")
	tx, err := h.service.GetTransactionByCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, store.ErrTransactionNotFound) {
			h.writeError(w, http.StatusNotFound, "Transaction not found")
			return
		}
		log.Printf("level=error component=api msg=\"transaction lookup by code failed\" code=%s err=%v", code, err)
		h.writeError(w, http.StatusInternalServerError, "Unable to fetch transaction")
		return
	}
	h.writeJSON(w, http.StatusOK, tx)
}

// ReviewTransactionHandler handles POST /transactions/{id}/{action} for the
// validate, complete and cancel actions.
func (h *TransactionHandlers) ReviewTransactionHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid transaction id")
		return
	}
	action := domain.Action(chi.URLParam(r, "action"))
	if !action.Valid() {
		h.writeError(w, http.StatusBadRequest, "Unknown action")
		return
	}

	result, err := h.service.Review(r.Context(), actor, id, action)
	if err != nil {
		log.Printf("level=error component=api msg=\"transaction review failed\" transaction_id=%s action=%s err=%v", id, action, err)
		h.writeError(w, http.StatusInternalServerError, "Unable to process transaction")
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// DeleteTransactionHandler handles DELETE /transactions/{id}.
func (h *TransactionHandlers) DeleteTransactionHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid transaction id")
		return
	}

	result, err := h.service.Delete(r.Context(), actor, id)
	if err != nil {
		log.Printf("level=error component=api msg=\"transaction delete failed\" transaction_id=%s err=%v", id, err)
		h.writeError(w, http.StatusInternalServerError, "Unable to delete transaction")
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// StatsHandler handles GET /transactions/stats.
func (h *TransactionHandlers) StatsHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.actor(w, r); !ok {
		return
	}

	snapshot, err := h.service.Stats(r.Context())
	if err != nil {
		log.Printf("level=error component=api msg=\"stats fetch failed\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Unable to compute statistics")
		return
	}
	h.writeJSON(w, http.StatusOK, snapshot)
}
