package marketplace

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resobyte/ambar-hub-sub004/internal/application"
	"github.com/resobyte/ambar-hub-sub004/internal/domain"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := DefaultConfig()
	cfg.Providers = []ProviderConfig{{
		Name:       "trendyol",
		BaseURL:    server.URL,
		APIKey:     "key",
		APISecret:  "secret",
		SupplierID: "sup-1",
		BatchSize:  50,
	}}
	return NewClient(cfg, slog.Default())
}

func TestPushParsesPerItemFailures(t *testing.T) {
	var gotPath string
	var gotBody pushRequest
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "key", user)
		assert.Equal(t, "secret", pass)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"batchRequestId":"br-1","failures":[{"barcode":"B2","message":"unknown barcode"}]}`))
	})

	items := []application.StockPushItem{
		{Barcode: "B1", Quantity: 5},
		{Barcode: "B2", Quantity: 3},
	}
	result, err := client.Push(context.Background(), "trendyol", "S-1", items)
	require.NoError(t, err)

	assert.Equal(t, "/suppliers/sup-1/products/price-and-inventory", gotPath)
	assert.Equal(t, items, gotBody.Items)
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, []string{"B2"}, result.FailedBarcodes)
}

func TestPushSurfacesRateLimit(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	result, err := client.Push(context.Background(), "trendyol", "S-1",
		[]application.StockPushItem{{Barcode: "B1", Quantity: 1}})
	require.ErrorIs(t, err, domain.ErrRateLimited)
	require.NotNil(t, result)
	assert.Equal(t, http.StatusTooManyRequests, result.StatusCode)
}

func TestPushServerErrorIsPlainFailure(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	result, err := client.Push(context.Background(), "trendyol", "S-1",
		[]application.StockPushItem{{Barcode: "B1", Quantity: 1}})
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrRateLimited)
	require.NotNil(t, result)
	assert.Equal(t, http.StatusInternalServerError, result.StatusCode)
}

func TestPushUnknownProvider(t *testing.T) {
	client := NewClient(DefaultConfig(), slog.Default())

	_, err := client.Push(context.Background(), "nope", "S-1", nil)
	require.Error(t, err)
}

func TestMaxBatchSize(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {})

	assert.Equal(t, 50, client.MaxBatchSize("trendyol"))
	assert.Equal(t, defaultBatchSize, client.MaxBatchSize("unknown"))
}
