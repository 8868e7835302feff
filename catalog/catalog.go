/*
Package catalog loads the rule file (SPEC_FULL.md §6), indexes rules by
market (not by eventType; see snapshot), and exposes hot reload via an
atomic pointer swap, grounded on the teacher engine's
policy-snapshot swap (generic/snapshot.go) generalized from a per-entity
policy assignment snapshot to a global rule-catalog snapshot.
*/
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/warp/loyalty-engine/ledger"
	"github.com/warp/loyalty-engine/rules"
)

// wireFormat mirrors §6: a rule file is either a bare array or a
// {"rules": [...]} wrapper.
type wireFormat struct {
	Rules []rules.Rule `json:"rules"`
}

// snapshot is the immutable, fully-indexed view of the rule set in effect
// at one instant. Evaluations hold a reference to one snapshot for their
// whole run, so a concurrent Reload never produces a torn read.
//
// The §6 Rule schema scopes a rule by market/channel/productLine but not by
// business event type; eventType filtering is a condition leaf like any
// other fact (almost every catalog rule has `{fact:"eventType", operator:
// "equal", value:"PURCHASE"}` as a top-level `all` member). So "rules
// applicable to {market, eventType}" from step 5 is realized here as: index
// by market only, and let Engine.Run's per-rule condition evaluation do the
// eventType narrowing.
type snapshot struct {
	all      []rules.Rule
	byMarket map[ledger.Market][]rules.Rule
}

func buildSnapshot(all []rules.Rule) *snapshot {
	idx := make(map[ledger.Market][]rules.Rule)
	for _, r := range all {
		markets := r.Markets
		if len(markets) == 0 {
			markets = []string{string(ledger.MarketJP), string(ledger.MarketHK), string(ledger.MarketTW)}
		}
		for _, m := range markets {
			idx[ledger.Market(m)] = append(idx[ledger.Market(m)], r)
		}
	}
	return &snapshot{all: all, byMarket: idx}
}

// Catalog is the hot-reloadable rule set. Zero value is not usable; build
// one with Load or LoadFile.
type Catalog struct {
	path string
	ptr  atomic.Pointer[snapshot]
}

// LoadFile reads and parses path, returning a Catalog ready for reload.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	c := &Catalog{path: path}
	if err := c.reloadFrom(data); err != nil {
		return nil, err
	}
	return c, nil
}

// Load parses data directly, for tests and embedded catalogs that don't
// live on disk.
func Load(data []byte) (*Catalog, error) {
	c := &Catalog{}
	if err := c.reloadFrom(data); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) reloadFrom(data []byte) error {
	all, err := parseRules(data)
	if err != nil {
		return err
	}
	c.ptr.Store(buildSnapshot(all))
	return nil
}

// Reload re-reads the catalog's source file and atomically swaps the active
// snapshot. In-flight evaluations holding the prior snapshot are unaffected
// (SPEC_FULL.md §5: "reloads atomically swap the catalog reference").
func (c *Catalog) Reload() error {
	if c.path == "" {
		return fmt.Errorf("catalog: reload requires a file-backed catalog")
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("catalog: reload %s: %w", c.path, err)
	}
	return c.reloadFrom(data)
}

// RulesFor returns the rules scoped to market, as they were at the moment
// of the call (a consistent snapshot even under a concurrent Reload).
// eventType itself is narrowed by rule conditions, not by this index (see
// snapshot's doc comment).
func (c *Catalog) RulesFor(market ledger.Market, _ ledger.EventType) []rules.Rule {
	snap := c.ptr.Load()
	if snap == nil {
		return nil
	}
	return snap.byMarket[market]
}

// All returns every rule in the active snapshot, for the read-only
// /api/rules/defaults and /api/campaigns projections.
func (c *Catalog) All() []rules.Rule {
	snap := c.ptr.Load()
	if snap == nil {
		return nil
	}
	return snap.all
}

func parseRules(data []byte) ([]rules.Rule, error) {
	var bare []rules.Rule
	if err := json.Unmarshal(data, &bare); err == nil {
		return bare, nil
	}
	var wrapped wireFormat
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("catalog: rule file is neither a bare array nor {\"rules\":[...]}: %w", err)
	}
	return wrapped.Rules, nil
}
