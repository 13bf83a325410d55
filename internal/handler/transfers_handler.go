package handler

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bkramer/bank-ledger-go/internal/service"
)

// ============================================================
// Transfer Handlers
// ============================================================

type transferRequest struct {
	SourceAccountID      string          `json:"source_account_id"`
	DestinationAccountID string          `json:"destination_account_id"`
	Amount               decimal.Decimal `json:"amount"`
}

func transferHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /transfers")
		defer span.End()

		var req transferRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.SourceAccountID == "" || req.DestinationAccountID == "" {
			writeError(w, http.StatusBadRequest, "source_account_id and destination_account_id are required")
			return
		}

		// The source must belong to the caller; the destination may be any
		// registered account.
		if err := svc.OwnsAccount(ctx, CustomerIDFromContext(ctx), req.SourceAccountID); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		receipt, err := svc.Transfer(ctx, req.SourceAccountID, req.DestinationAccountID, req.Amount)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, receipt)
	}
}
