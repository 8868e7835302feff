package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/loyalty-engine/api"
	"github.com/warp/loyalty-engine/catalog"
	"github.com/warp/loyalty-engine/engine"
	"github.com/warp/loyalty-engine/facts"
	"github.com/warp/loyalty-engine/ledger"
	"github.com/warp/loyalty-engine/ledger/memstore"
)

const mixedRules = `[
	{"name": "base-purchase-hk", "conditions": {"fact": "eventType", "operator": "equal", "value": "PURCHASE"},
	 "event": {"type": "ORDER_BASE_POINT", "params": {"standardRate": 1}}, "markets": ["HK"]},
	{"name": "summer-campaign", "conditions": {"fact": "eventType", "operator": "equal", "value": "PURCHASE"},
	 "event": {"type": "FLEXIBLE_CAMPAIGN_BONUS", "params": {"bonusPoints": 50}}, "markets": ["HK"]}
]`

func TestListDefaultRules_ReturnsEveryCatalogEntry(t *testing.T) {
	server, _ := newTestRouterWithRules(t, mixedRules)

	resp, err := http.Get(server.URL + "/api/rules/defaults")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var rules []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rules))
	assert.Len(t, rules, 2)
}

func TestListCampaigns_FiltersToCampaignStyleRulesOnly(t *testing.T) {
	server, _ := newTestRouterWithRules(t, mixedRules)

	resp, err := http.Get(server.URL + "/api/campaigns")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var campaigns []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&campaigns))
	require.Len(t, campaigns, 1)
	assert.Equal(t, "summer-campaign", campaigns[0]["name"])
}

func TestReloadRules_Endpoint_ReturnsOKOnFileBackedCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json")
	require.NoError(t, os.WriteFile(path, []byte(mixedRules), 0o644))

	cat, err := catalog.LoadFile(path)
	require.NoError(t, err)
	store := memstore.New()
	locks := ledger.NewLockTable(0)
	t.Cleanup(locks.Close)
	processor := engine.New(store, locks, facts.NewRegistry(), cat, nil)
	handler := api.NewHandler(processor, store, cat, nil)
	router := api.NewRouter(handler)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	resp, err := http.Post(server.URL+"/api/rules/reload", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
