package catalog_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/loyalty-engine/catalog"
	"github.com/warp/loyalty-engine/ledger"
)

const sampleRules = `{
  "rules": [
    {
      "name": "base-purchase-hk",
      "priority": 100,
      "conditions": {"fact": "eventType", "operator": "equal", "value": "PURCHASE"},
      "event": {"type": "ORDER_BASE_POINT", "params": {"standardRate": 1}},
      "markets": ["HK"]
    },
    {
      "name": "base-purchase-jp",
      "priority": 100,
      "conditions": {"fact": "eventType", "operator": "equal", "value": "PURCHASE"},
      "event": {"type": "ORDER_BASE_POINT", "params": {"conversionRate": 0.1}},
      "markets": ["JP"]
    }
  ]
}`

func TestLoad_WrappedFormat_IndexesByMarket(t *testing.T) {
	cat, err := catalog.Load([]byte(sampleRules))
	require.NoError(t, err)

	hkRules := cat.RulesFor(ledger.MarketHK, ledger.EventPurchase)
	require.Len(t, hkRules, 1)
	assert.Equal(t, "base-purchase-hk", hkRules[0].Name)

	jpRules := cat.RulesFor(ledger.MarketJP, ledger.EventPurchase)
	require.Len(t, jpRules, 1)
	assert.Equal(t, "base-purchase-jp", jpRules[0].Name)
}

func TestLoad_BareArrayFormat_AlsoParses(t *testing.T) {
	bare := `[{"name":"r1","conditions":{"fact":"market","operator":"equal","value":"HK"},"event":{"type":"CONSULTATION_BONUS","params":{}}}]`

	cat, err := catalog.Load([]byte(bare))
	require.NoError(t, err)
	assert.Len(t, cat.All(), 1)
}

func TestLoad_UnscopedRule_AppliesToAllMarkets(t *testing.T) {
	unscoped := `[{"name":"global","conditions":{"fact":"market","operator":"equal","value":"HK"},"event":{"type":"CONSULTATION_BONUS","params":{}}}]`

	cat, err := catalog.Load([]byte(unscoped))
	require.NoError(t, err)

	assert.Len(t, cat.RulesFor(ledger.MarketHK, ledger.EventPurchase), 1)
	assert.Len(t, cat.RulesFor(ledger.MarketJP, ledger.EventPurchase), 1)
	assert.Len(t, cat.RulesFor(ledger.MarketTW, ledger.EventPurchase), 1)
}

func TestReload_PicksUpChangedFileContent(t *testing.T) {
	// GIVEN a file-backed catalog with one HK rule
	// WHEN the file is rewritten with a second rule and Reload is called
	// THEN RulesFor reflects the new content without rebuilding the Catalog

	path := filepath.Join(t.TempDir(), "rules.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"name":"r1","conditions":{"fact":"market","operator":"equal","value":"HK"},"event":{"type":"CONSULTATION_BONUS","params":{}},"markets":["HK"]}]`), 0o644))

	cat, err := catalog.LoadFile(path)
	require.NoError(t, err)
	require.Len(t, cat.RulesFor(ledger.MarketHK, ledger.EventPurchase), 1)
	require.Len(t, cat.RulesFor(ledger.MarketJP, ledger.EventPurchase), 0)

	require.NoError(t, os.WriteFile(path, []byte(`[
		{"name":"r1","conditions":{"fact":"market","operator":"equal","value":"HK"},"event":{"type":"CONSULTATION_BONUS","params":{}},"markets":["HK"]},
		{"name":"r2","conditions":{"fact":"market","operator":"equal","value":"JP"},"event":{"type":"CONSULTATION_BONUS","params":{}},"markets":["JP"]}
	]`), 0o644))
	require.NoError(t, cat.Reload())

	assert.Len(t, cat.RulesFor(ledger.MarketJP, ledger.EventPurchase), 1)
}

func TestReload_WithoutFileBackedCatalog_ReturnsError(t *testing.T) {
	cat, err := catalog.Load([]byte(`[]`))
	require.NoError(t, err)

	err = cat.Reload()

	assert.Error(t, err)
}
