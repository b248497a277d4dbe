package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"asset-swap-go/internal/config"
	"asset-swap-go/internal/database"
	"asset-swap-go/internal/models"
	"asset-swap-go/internal/pricing"
	"asset-swap-go/internal/swap"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type staticPrices struct {
	table pricing.Table
}

func (s staticPrices) Snapshot() pricing.Table { return s.table }

// setupServer builds a server over an isolated in-memory database with a
// fixed price snapshot and one funded user.
func setupServer(t *testing.T) (*Server, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))

	require.NoError(t, db.Create(&models.Balance{
		UserID: "u1",
		Asset:  "BSK",
		Bucket: models.BucketWithdrawable,
		Amount: decimal.NewFromInt(100),
	}).Error)

	table := pricing.Table{"BSK/USDT": decimal.NewFromInt(4)}
	engine := swap.NewEngine(zap.NewNop(), db, swap.NewLedger(db), staticPrices{table: table}, config.Swap{
		BridgeAssets:           []string{"USDC"},
		DirectFeePercent:       0.1,
		TwoHopFeePercent:       0.15,
		DefaultSlippagePercent: 0.5,
	})

	return NewServer(0, engine, db, zap.NewNop()), db
}

func doExecute(t *testing.T, s *Server, userID string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/swap/execute", bytes.NewBufferString(body))
	if userID != "" {
		req.Header.Set(userIDHeader, userID)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestExecuteHandler_Success(t *testing.T) {
	s, _ := setupServer(t)

	rec := doExecute(t, s, "u1", `{
		"from_asset": "BSK",
		"to_asset": "USDT",
		"from_amount": 100,
		"expected_rate": 4.0,
		"idempotency_key": "attempt-1"
	}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "direct", resp["route_type"])
	assert.Nil(t, resp["intermediate_asset"])
	assert.Equal(t, "399.6", resp["to_amount"])
	assert.Equal(t, "0.4", resp["fee_amount"])
}

func TestExecuteHandler_MissingUserHeader(t *testing.T) {
	s, _ := setupServer(t)

	rec := doExecute(t, s, "", `{}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "INVALID_REQUEST", resp["code"])
}

func TestExecuteHandler_MalformedBody(t *testing.T) {
	s, _ := setupServer(t)

	rec := doExecute(t, s, "u1", `{not json`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExecuteHandler_SlippageConflict(t *testing.T) {
	s, _ := setupServer(t)

	rec := doExecute(t, s, "u1", `{
		"from_asset": "BSK",
		"to_asset": "USDT",
		"from_amount": 100,
		"expected_rate": 3.5,
		"idempotency_key": "attempt-1"
	}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "SLIPPAGE_EXCEEDED", resp["code"])
	assert.Equal(t, "3.5", resp["expected_rate"])
	assert.Equal(t, "4", resp["current_rate"])
}

func TestExecuteHandler_InsufficientBalance(t *testing.T) {
	s, _ := setupServer(t)

	rec := doExecute(t, s, "u1", `{
		"from_asset": "BSK",
		"to_asset": "USDT",
		"from_amount": 500,
		"expected_rate": 4.0,
		"idempotency_key": "attempt-1"
	}`)

	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "INSUFFICIENT_BALANCE", resp["code"])
	assert.Equal(t, "500", resp["required"])
	assert.Equal(t, "100", resp["available"])
}

func TestExecuteHandler_RouteUnavailable(t *testing.T) {
	s, _ := setupServer(t)

	rec := doExecute(t, s, "u1", `{
		"from_asset": "DOGE",
		"to_asset": "SHIB",
		"from_amount": 10,
		"expected_rate": 1.0,
		"idempotency_key": "attempt-1"
	}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ROUTE_UNAVAILABLE", resp["code"])
}

func TestHistoryHandler_ReturnsCallerSwaps(t *testing.T) {
	s, db := setupServer(t)

	rec := doExecute(t, s, "u1", `{
		"from_asset": "BSK",
		"to_asset": "USDT",
		"from_amount": 10,
		"expected_rate": 4.0,
		"idempotency_key": "attempt-1"
	}`)
	require.Equal(t, http.StatusOK, rec.Code)

	// Another user's record must not leak into u1's history.
	require.NoError(t, db.Create(&models.Swap{
		SwapID:         "other",
		IdempotencyKey: "other-key",
		UserID:         "u2",
		FromAsset:      "BSK",
		ToAsset:        "USDT",
		FromAmount:     decimal.NewFromInt(1),
		Status:         models.SwapStatusCompleted,
	}).Error)

	req := httptest.NewRequest(http.MethodGet, "/swap/history", nil)
	req.Header.Set(userIDHeader, "u1")
	histRec := httptest.NewRecorder()
	s.Handler().ServeHTTP(histRec, req)

	require.Equal(t, http.StatusOK, histRec.Code)
	var swaps []models.Swap
	require.NoError(t, json.Unmarshal(histRec.Body.Bytes(), &swaps))
	require.Len(t, swaps, 1)
	assert.Equal(t, "attempt-1", swaps[0].IdempotencyKey)
}

func TestHealthHandler(t *testing.T) {
	s, _ := setupServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
