package rules_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/loyalty-engine/rules"
)

func TestRule_UnmarshalJSON_AppliesDefaults(t *testing.T) {
	// GIVEN a rule record omitting priority and active
	// WHEN unmarshalled
	// THEN priority defaults to 100 and active defaults to true

	raw := []byte(`{
		"name": "base-purchase-hk",
		"conditions": {"fact": "eventType", "operator": "equal", "value": "PURCHASE"},
		"event": {"type": "ORDER_BASE_POINT", "params": {"standardRate": 1}}
	}`)

	var r rules.Rule
	require.NoError(t, json.Unmarshal(raw, &r))

	assert.Equal(t, 100, r.Priority)
	assert.True(t, r.Active)
	assert.Equal(t, "ORDER_BASE_POINT", r.Event.Type)
	require.NotNil(t, r.Conditions.Leaf)
	assert.Equal(t, "eventType", r.Conditions.Leaf.Fact)
}

func TestParseCondition_NestedAllAny(t *testing.T) {
	// GIVEN a condition tree mixing all and any nodes
	// WHEN parsed
	// THEN the tree shape is preserved

	raw := json.RawMessage(`{
		"all": [
			{"fact": "market", "operator": "equal", "value": "HK"},
			{"any": [
				{"fact": "channel", "operator": "equal", "value": "online"},
				{"fact": "channel", "operator": "equal", "value": "store"}
			]}
		]
	}`)

	cond, err := rules.ParseCondition(raw)
	require.NoError(t, err)
	require.Len(t, cond.All, 2)
	assert.NotNil(t, cond.All[0].Leaf)
	require.Len(t, cond.All[1].Any, 2)
}

func TestParseCondition_MissingShapeErrors(t *testing.T) {
	_, err := rules.ParseCondition(json.RawMessage(`{}`))
	assert.Error(t, err)
}
