package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bkramer/bank-ledger-go/internal/domain"
	"github.com/bkramer/bank-ledger-go/internal/service"
)

// ============================================================
// Customer Handlers
// ============================================================

type createCustomerRequest struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
	PIN  string `json:"pin"`
}

func createCustomerHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /customers")
		defer span.End()

		var req createCustomerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if !validPIN(req.PIN) {
			writeError(w, http.StatusBadRequest, "pin must be exactly 4 digits")
			return
		}

		customer, err := svc.CreateCustomer(ctx, req.Name, req.Age, req.PIN)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, customer)
	}
}

func getCustomerHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /customers/{customerId}")
		defer span.End()

		customerID := chi.URLParam(r, "customerId")
		if CustomerIDFromContext(ctx) != customerID {
			writeError(w, http.StatusForbidden, "token does not match customer")
			return
		}

		view, err := svc.GetCustomer(ctx, customerID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

type changePINRequest struct {
	CurrentPIN string `json:"current_pin"`
	NewPIN     string `json:"new_pin"`
}

func changePINHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /customers/{customerId}/pin")
		defer span.End()

		customerID := chi.URLParam(r, "customerId")
		if CustomerIDFromContext(ctx) != customerID {
			writeError(w, http.StatusForbidden, "token does not match customer")
			return
		}

		var req changePINRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if !validPIN(req.NewPIN) {
			writeError(w, http.StatusBadRequest, "new pin must be exactly 4 digits")
			return
		}

		if err := svc.ChangePIN(ctx, customerID, req.CurrentPIN, req.NewPIN); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "pin changed"})
	}
}

type openAccountRequest struct {
	Kind domain.AccountKind `json:"kind"`
}

func openAccountHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /customers/{customerId}/accounts")
		defer span.End()

		customerID := chi.URLParam(r, "customerId")
		if CustomerIDFromContext(ctx) != customerID {
			writeError(w, http.StatusForbidden, "token does not match customer")
			return
		}

		var req openAccountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		view, err := svc.OpenAccount(ctx, customerID, req.Kind)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, view)
	}
}

type closeAccountRequest struct {
	PIN string `json:"pin"`
}

func closeAccountHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /customers/{customerId}/accounts/{accountId}")
		defer span.End()

		customerID := chi.URLParam(r, "customerId")
		accountID := chi.URLParam(r, "accountId")
		if CustomerIDFromContext(ctx) != customerID {
			writeError(w, http.StatusForbidden, "token does not match customer")
			return
		}

		var req closeAccountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := svc.CloseAccount(ctx, customerID, accountID, req.PIN); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "account closed"})
	}
}
