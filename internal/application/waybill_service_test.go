package application

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resobyte/ambar-hub-sub004/internal/domain"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func TestGenerateConcurrentAllocationsAreUnique(t *testing.T) {
	waybills := newFakeWaybillRepo()
	clock := fixedClock{t: time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)}
	service := NewWaybillService(waybills, newFakeOrderRepo(), clock, testLogger())

	const workers = 50
	numbers := make(chan string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			number, err := service.Generate(context.Background(), "S-1")
			if err != nil {
				t.Error(err)
				return
			}
			numbers <- number
		}()
	}
	wg.Wait()
	close(numbers)

	seen := make(map[string]bool)
	for number := range numbers {
		assert.True(t, strings.HasPrefix(number, "IRS2026"), "number %s", number)
		assert.False(t, seen[number], "duplicate waybill number %s", number)
		seen[number] = true
	}
	assert.Len(t, seen, workers)
}

func TestGenerateForOrderIsIdempotent(t *testing.T) {
	waybills := newFakeWaybillRepo()
	orders := newFakeOrderRepo()
	clock := fixedClock{t: time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)}
	service := NewWaybillService(waybills, orders, clock, testLogger())

	order := domain.NewOrder("O-1", "PKG-1", "1001", "trendyol", "S-1", "TRY")
	require.NoError(t, orders.Save(context.Background(), order))

	first, err := service.GenerateForOrder(context.Background(), "O-1")
	require.NoError(t, err)
	assert.Equal(t, domain.FormatWaybillNumber(2026, 1), first)

	second, err := service.GenerateForOrder(context.Background(), "O-1")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// the second call must not burn a sequence number
	assert.EqualValues(t, 1, waybills.seqs[2026])
}

func TestGenerateForOrderUnknownOrder(t *testing.T) {
	service := NewWaybillService(newFakeWaybillRepo(), newFakeOrderRepo(), nil, testLogger())

	_, err := service.GenerateForOrder(context.Background(), "missing")
	require.Error(t, err)
}
