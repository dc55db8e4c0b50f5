package application

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resobyte/ambar-hub-sub004/internal/domain"
)

func newQuarantineFixture(products ...*domain.Product) (*QuarantineService, *workflowFixture) {
	wf := newWorkflowFixture(products...)
	return NewQuarantineService(wf.faulty, wf.workflow, testLogger()), wf
}

func quarantinedOrder(t *testing.T, wf *workflowFixture, rawData string) *domain.FaultyOrder {
	t.Helper()
	row := domain.NewFaultyOrder(
		"F-1", "trendyol", "S-1", "PKG-1", "1001",
		json.RawMessage(rawData), []string{"B1"}, domain.FaultyMissingProducts,
	)
	require.NoError(t, wf.faulty.Insert(context.Background(), row))
	return row
}

const retryPayload = `{"currency":"TRY","lines":[{"barcode":"B1","quantity":2,"unitPrice":1000,"vatRate":18}]}`

func TestRetryRecoversWhenStockArrives(t *testing.T) {
	service, wf := newQuarantineFixture(simpleProduct("P-1", "B1"))
	wf.shelves.put("A-1", "P-1", 10, 0)
	quarantinedOrder(t, wf, retryPayload)

	result, err := service.Retry(context.Background(), RetryFaultyOrderCommand{FaultyOrderID: "F-1"})
	require.NoError(t, err)
	require.False(t, result.Quarantined)
	require.NotNil(t, result.Order)
	assert.Equal(t, "PKG-1", result.Order.PackageID)

	// recovery clears the quarantine row
	row, err := wf.faulty.FindByID(context.Background(), "F-1")
	require.NoError(t, err)
	assert.Nil(t, row)

	assert.Equal(t, 2, wf.shelves.get("A-1", "P-1").ReservedQuantity)
}

func TestRetryStillMissingBumpsRetryCount(t *testing.T) {
	service, wf := newQuarantineFixture()
	quarantinedOrder(t, wf, retryPayload)

	result, err := service.Retry(context.Background(), RetryFaultyOrderCommand{FaultyOrderID: "F-1"})
	require.NoError(t, err)
	require.True(t, result.Quarantined)
	assert.Equal(t, []string{"B1"}, result.MissingBarcodes)

	requeued, err := wf.faulty.FindByPackageID(context.Background(), "PKG-1")
	require.NoError(t, err)
	require.NotNil(t, requeued)
	assert.Equal(t, 1, requeued.RetryCount)
}

func TestRetryInvalidPayloadMarksRow(t *testing.T) {
	service, wf := newQuarantineFixture()
	quarantinedOrder(t, wf, `{not json`)

	_, err := service.Retry(context.Background(), RetryFaultyOrderCommand{FaultyOrderID: "F-1"})
	require.Error(t, err)

	row, findErr := wf.faulty.FindByID(context.Background(), "F-1")
	require.NoError(t, findErr)
	require.NotNil(t, row)
	assert.Equal(t, 1, row.RetryCount)
	assert.Equal(t, domain.FaultyInvalidData, row.ErrorReason)
}

func TestRetryUnknownFaultyOrder(t *testing.T) {
	service, _ := newQuarantineFixture()

	_, err := service.Retry(context.Background(), RetryFaultyOrderCommand{FaultyOrderID: "missing"})
	require.Error(t, err)
}

func TestListAndGet(t *testing.T) {
	service, wf := newQuarantineFixture()
	quarantinedOrder(t, wf, retryPayload)

	rows, err := service.List(context.Background(), ListFaultyOrdersQuery{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "PKG-1", rows[0].PackageID)

	row, err := service.Get(context.Background(), "F-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"B1"}, row.MissingBarcodes)

	_, err = service.Get(context.Background(), "missing")
	require.Error(t, err)
}
