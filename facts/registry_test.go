package facts_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/loyalty-engine/events"
	"github.com/warp/loyalty-engine/facts"
	"github.com/warp/loyalty-engine/ledger"
	"github.com/warp/loyalty-engine/ledger/memstore"
)

func TestBindings_Resolve_MemoizesAcrossCalls(t *testing.T) {
	// GIVEN a registry with a counting resolver
	// WHEN the same fact is resolved twice within one Bindings
	// THEN the underlying resolver runs only once

	calls := 0
	registry := facts.NewRegistry()
	registry.Register("countedFact", func(_ context.Context, _ events.Input, _ ledger.Store) (facts.Value, error) {
		calls++
		return facts.IntValue(int64(calls)), nil
	})

	store := memstore.New()
	bindings := registry.Bind(events.Input{ConsumerID: "c-1"}, store)

	first, err := bindings.Resolve(context.Background(), "countedFact")
	require.NoError(t, err)
	second, err := bindings.Resolve(context.Background(), "countedFact")
	require.NoError(t, err)

	assert.True(t, first.Equal(second))
	assert.Equal(t, 1, calls)
}

func TestBindings_Resolve_UnknownFactErrors(t *testing.T) {
	registry := facts.NewRegistry()
	store := memstore.New()
	bindings := registry.Bind(events.Input{ConsumerID: "c-1"}, store)

	_, err := bindings.Resolve(context.Background(), "doesNotExist")

	assert.Error(t, err)
}

func TestBindings_PurchaseCount_ExcludesEventsAfterTimestamp(t *testing.T) {
	// GIVEN a consumer with one purchase before the evaluated event's
	// timestamp and one purchase after it
	// WHEN purchaseCount is resolved
	// THEN it counts only strictly-prior PURCHASE history

	store := memstore.New()
	now := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.AppendHistory(context.Background(), ledger.HistoryEvent{
		ConsumerID: "c-1",
		EventID:    "e-0",
		EventType:  ledger.EventPurchase,
		Timestamp:  now.Add(-48 * time.Hour),
	}))
	require.NoError(t, store.AppendHistory(context.Background(), ledger.HistoryEvent{
		ConsumerID: "c-1",
		EventID:    "e-2",
		EventType:  ledger.EventPurchase,
		Timestamp:  now.Add(48 * time.Hour),
	}))

	registry := facts.NewRegistry()
	bindings := registry.Bind(events.Input{ConsumerID: "c-1", Timestamp: now}, store)

	v, err := bindings.Resolve(context.Background(), "purchaseCount")
	require.NoError(t, err)
	n, _ := v.AsNumber()
	assert.Equal(t, "1", n.String())

	isFirst, err := bindings.Resolve(context.Background(), "isFirstPurchase")
	require.NoError(t, err)
	b, _ := isFirst.AsBool()
	assert.False(t, b)
}

func TestBindings_StoreType_DetectsVIPStoreID(t *testing.T) {
	store := memstore.New()
	registry := facts.NewRegistry()
	bindings := registry.Bind(events.Input{
		ConsumerID: "c-1",
		Context:    map[string]any{"storeId": "SHOP-VIP-01"},
	}, store)

	v, err := bindings.Resolve(context.Background(), "storeType")
	require.NoError(t, err)
	s, _ := v.AsString()
	assert.Equal(t, "VIP", s)
}
