package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"asset-swap-go/internal/models"
	"asset-swap-go/internal/swap"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// userIDHeader carries the verified caller identity, set by the upstream
// auth layer.
const userIDHeader = "X-User-ID"

// executeRequest is the JSON body of POST /swap/execute.
type executeRequest struct {
	FromAsset       string          `json:"from_asset"`
	ToAsset         string          `json:"to_asset"`
	FromAmount      decimal.Decimal `json:"from_amount"`
	ExpectedRate    decimal.Decimal `json:"expected_rate"`
	SlippagePercent decimal.Decimal `json:"slippage_percent"`
	MinReceive      decimal.Decimal `json:"min_receive"`
	IdempotencyKey  string          `json:"idempotency_key"`
}

// executeResponse is the success payload of POST /swap/execute.
type executeResponse struct {
	Success           bool            `json:"success"`
	FromAsset         string          `json:"from_asset"`
	ToAsset           string          `json:"to_asset"`
	FromAmount        decimal.Decimal `json:"from_amount"`
	ToAmount          decimal.Decimal `json:"to_amount"`
	Rate              decimal.Decimal `json:"rate"`
	FeeAmount         decimal.Decimal `json:"fee_amount"`
	FeePercent        decimal.Decimal `json:"fee_percent"`
	RouteType         string          `json:"route_type"`
	IntermediateAsset *string         `json:"intermediate_asset"`
}

// statusForCode maps settlement failure codes to HTTP statuses.
func statusForCode(code swap.Code) int {
	switch code {
	case swap.CodeInvalidRequest:
		return http.StatusBadRequest
	case swap.CodeInsufficientBalance:
		return http.StatusPaymentRequired
	case swap.CodeSlippageExceeded:
		return http.StatusConflict
	case swap.CodeRouteUnavailable, swap.CodeMinReceiveNotMet:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) executeHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		s.writeError(w, swap.NewError(swap.CodeInvalidRequest, "missing "+userIDHeader+" header"))
		return
	}

	var body executeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, swap.NewError(swap.CodeInvalidRequest, "malformed request body"))
		return
	}

	result, err := s.engine.Execute(r.Context(), swap.Request{
		UserID:          userID,
		FromAsset:       body.FromAsset,
		ToAsset:         body.ToAsset,
		FromAmount:      body.FromAmount,
		ExpectedRate:    body.ExpectedRate,
		SlippagePercent: body.SlippagePercent,
		MinReceive:      body.MinReceive,
		IdempotencyKey:  body.IdempotencyKey,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	var intermediate *string
	if result.BridgeAsset != "" {
		intermediate = &result.BridgeAsset
	}
	s.writeJSON(w, http.StatusOK, executeResponse{
		Success:           true,
		FromAsset:         result.FromAsset,
		ToAsset:           result.ToAsset,
		FromAmount:        result.FromAmount,
		ToAmount:          result.ToAmount,
		Rate:              result.Rate,
		FeeAmount:         result.FeeAmount,
		FeePercent:        result.FeePercent,
		RouteType:         result.RouteType,
		IntermediateAsset: intermediate,
	})
}

// historyHandler returns the caller's swap records, most recent first.
func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		s.writeError(w, swap.NewError(swap.CodeInvalidRequest, "missing "+userIDHeader+" header"))
		return
	}

	var swaps []models.Swap
	if err := s.db.Where("user_id = ?", userID).Order("created_at desc").Limit(100).Find(&swaps).Error; err != nil {
		s.logger.Error("Failed to load swap history", zap.Error(err))
		s.writeError(w, swap.NewError(swap.CodeInternal, "failed to load swap history"))
		return
	}
	s.writeJSON(w, http.StatusOK, swaps)
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// writeError renders a settlement error with its structured detail fields
// inlined next to the code and message.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := swap.CodeOf(err)
	payload := map[string]any{
		"success": false,
		"code":    code,
	}

	var se *swap.Error
	if errors.As(err, &se) {
		payload["message"] = se.Message
		for k, v := range se.Detail {
			payload[k] = v
		}
	} else {
		s.logger.Error("Unclassified settlement failure", zap.Error(err))
		payload["message"] = "internal error"
	}

	s.writeJSON(w, statusForCode(code), payload)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}
