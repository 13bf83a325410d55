package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/bkramer/bank-ledger-go/internal/service"
)

// ============================================================
// Auth Handlers
// ============================================================

type loginRequest struct {
	CustomerID string `json:"customer_id"`
	PIN        string `json:"pin"`
}

type loginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	CustomerID  string    `json:"customer_id"`
}

func loginHandler(authSvc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /auth/login")
		defer span.End()

		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.CustomerID == "" {
			writeError(w, http.StatusBadRequest, "customer_id is required")
			return
		}
		if !validPIN(req.PIN) {
			writeError(w, http.StatusBadRequest, "pin must be exactly 4 digits")
			return
		}

		token, expiresAt, err := authSvc.Login(ctx, req.CustomerID, req.PIN)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, loginResponse{
			AccessToken: token,
			ExpiresAt:   expiresAt,
			CustomerID:  req.CustomerID,
		})
	}
}
