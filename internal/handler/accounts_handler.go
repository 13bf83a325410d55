package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bkramer/bank-ledger-go/internal/service"
)

// ============================================================
// Account Handlers
// ============================================================

func getAccountHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /accounts/{accountId}")
		defer span.End()

		accountID := chi.URLParam(r, "accountId")
		if err := svc.OwnsAccount(ctx, CustomerIDFromContext(ctx), accountID); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		view, err := svc.GetAccount(ctx, accountID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func depositHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /accounts/{accountId}/deposit")
		defer span.End()

		accountID := chi.URLParam(r, "accountId")
		if err := svc.OwnsAccount(ctx, CustomerIDFromContext(ctx), accountID); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		var req amountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		tx, err := svc.Deposit(ctx, accountID, req.Amount)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, tx)
	}
}

func withdrawHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /accounts/{accountId}/withdraw")
		defer span.End()

		accountID := chi.URLParam(r, "accountId")
		if err := svc.OwnsAccount(ctx, CustomerIDFromContext(ctx), accountID); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		var req amountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		tx, err := svc.Withdraw(ctx, accountID, req.Amount)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, tx)
	}
}

func statementHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /accounts/{accountId}/transactions")
		defer span.End()

		accountID := chi.URLParam(r, "accountId")
		if err := svc.OwnsAccount(ctx, CustomerIDFromContext(ctx), accountID); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		view, err := svc.Statement(ctx, accountID, parseLimit(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}
