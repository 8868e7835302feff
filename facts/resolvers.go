/*
resolvers.go implements the fixed fact catalog of SPEC_FULL.md §4.2 / spec.md
§4.2, grounded on the teacher engine's derived-balance projections
(generic/projection.go) generalized from period-based derivations to
event-based ones.
*/
package facts

import (
	"context"
	"strings"
	"time"

	"github.com/warp/loyalty-engine/events"
	"github.com/warp/loyalty-engine/ledger"
)

func registerDefaults(r *Registry) {
	// Direct input fields.
	r.Register("eventType", func(_ context.Context, in events.Input, _ ledger.Store) (Value, error) {
		return StringValue(string(in.EventType)), nil
	})
	r.Register("market", func(_ context.Context, in events.Input, _ ledger.Store) (Value, error) {
		return StringValue(string(in.Market)), nil
	})
	r.Register("channel", func(_ context.Context, in events.Input, _ ledger.Store) (Value, error) {
		return StringValue(in.Channel), nil
	})
	r.Register("productLine", func(_ context.Context, in events.Input, _ ledger.Store) (Value, error) {
		return StringValue(in.ProductLine), nil
	})
	r.Register("timestamp", func(_ context.Context, in events.Input, _ ledger.Store) (Value, error) {
		return DateValue(in.Timestamp), nil
	})
	r.Register("consumerId", func(_ context.Context, in events.Input, _ ledger.Store) (Value, error) {
		return StringValue(string(in.ConsumerID)), nil
	})

	// context.* — the bare mapping plus three named sub-paths.
	r.Register("context", func(_ context.Context, in events.Input, _ ledger.Store) (Value, error) {
		return FromAny(map[string]any(in.Context)), nil
	})
	r.Register("context.externalId", ctxField("externalId"))
	r.Register("context.storeId", ctxField("storeId"))
	r.Register("context.campaignCode", ctxField("campaignCode"))

	// attributes.* — the bare mapping plus named sub-paths.
	r.Register("attributes", func(_ context.Context, in events.Input, _ ledger.Store) (Value, error) {
		return FromAny(map[string]any(in.Attributes)), nil
	})
	r.Register("attributes.amount", attrField("amount"))
	r.Register("attributes.srpAmount", attrField("srpAmount"))
	r.Register("attributes.skuList", attrField("skuList"))
	r.Register("attributes.recycledCount", attrField("recycledCount"))
	r.Register("attributes.skinTestDate", attrField("skinTestDate"))
	r.Register("attributes.comboTag", attrField("comboTag"))
	r.Register("attributes.adjustedPoints", attrField("adjustedPoints"))

	// Temporal derivations of timestamp.
	r.Register("eventDate", func(_ context.Context, in events.Input, _ ledger.Store) (Value, error) {
		t := in.Timestamp
		return DateValue(time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())), nil
	})
	r.Register("eventMonth", func(_ context.Context, in events.Input, _ ledger.Store) (Value, error) {
		return IntValue(int64(in.Timestamp.Month())), nil
	})

	// Consumer snapshot and its derived facts.
	r.Register("consumer", func(ctx context.Context, in events.Input, store ledger.Store) (Value, error) {
		c, err := store.GetConsumer(ctx, in.ConsumerID)
		if err != nil {
			return Null, err
		}
		return consumerValue(c), nil
	})
	r.Register("purchaseCount", func(ctx context.Context, in events.Input, store ledger.Store) (Value, error) {
		n, err := store.PurchaseCount(ctx, in.ConsumerID, in.Timestamp)
		if err != nil {
			return Null, err
		}
		return IntValue(int64(n)), nil
	})
	r.Register("daysSinceFirstPurchase", func(ctx context.Context, in events.Input, store ledger.Store) (Value, error) {
		first, err := store.FirstPurchaseTimestamp(ctx, in.ConsumerID, in.Timestamp)
		if err != nil {
			return Null, err
		}
		if first == nil {
			return IntValue(0), nil
		}
		days := int64(in.Timestamp.Sub(*first) / (24 * time.Hour))
		return IntValue(days), nil
	})
	r.Register("isVIP", func(ctx context.Context, in events.Input, store ledger.Store) (Value, error) {
		c, err := store.GetConsumer(ctx, in.ConsumerID)
		if err != nil {
			return Null, err
		}
		return BoolValue(c.IsVIP), nil
	})
	r.Register("birthMonth", func(ctx context.Context, in events.Input, store ledger.Store) (Value, error) {
		c, err := store.GetConsumer(ctx, in.ConsumerID)
		if err != nil {
			return Null, err
		}
		if c.BirthDate == nil {
			return Null, nil
		}
		return IntValue(int64(c.BirthDate.Month())), nil
	})
	r.Register("isBirthMonth", func(ctx context.Context, in events.Input, store ledger.Store) (Value, error) {
		c, err := store.GetConsumer(ctx, in.ConsumerID)
		if err != nil {
			return Null, err
		}
		if c.BirthDate == nil {
			return BoolValue(false), nil
		}
		return BoolValue(c.BirthDate.Month() == in.Timestamp.Month()), nil
	})
	r.Register("isFirstPurchase", func(ctx context.Context, in events.Input, store ledger.Store) (Value, error) {
		n, err := store.PurchaseCount(ctx, in.ConsumerID, in.Timestamp)
		if err != nil {
			return Null, err
		}
		return BoolValue(n == 0), nil
	})
	r.Register("storeType", func(_ context.Context, in events.Input, _ ledger.Store) (Value, error) {
		storeID, _ := in.Ctx("storeId").(string)
		if strings.Contains(storeID, "VIP") {
			return StringValue("VIP"), nil
		}
		return StringValue("STANDARD"), nil
	})
	r.Register("redemptionPoints", attrField("redemptionPoints"))
	r.Register("transactionAmount", func(_ context.Context, in events.Input, _ ledger.Store) (Value, error) {
		if v := in.Attr("amount"); v != nil {
			return FromAny(v), nil
		}
		return FromAny(in.Attr("srpAmount")), nil
	})
	r.Register("tags", func(ctx context.Context, in events.Input, store ledger.Store) (Value, error) {
		c, err := store.GetConsumer(ctx, in.ConsumerID)
		if err != nil {
			return Null, err
		}
		return FromAny(c.Tags), nil
	})
}

func ctxField(key string) Resolver {
	return func(_ context.Context, in events.Input, _ ledger.Store) (Value, error) {
		return FromAny(in.Ctx(key)), nil
	}
}

func attrField(key string) Resolver {
	return func(_ context.Context, in events.Input, _ ledger.Store) (Value, error) {
		return FromAny(in.Attr(key)), nil
	}
}

func consumerValue(c ledger.Consumer) Value {
	m := map[string]Value{
		"consumerId": StringValue(string(c.ConsumerID)),
		"market":     StringValue(string(c.Market)),
		"isVIP":      BoolValue(c.IsVIP),
		"tags":       FromAny(c.Tags),
	}
	if c.BirthDate != nil {
		m["birthDate"] = DateValue(*c.BirthDate)
	}
	return MapValue(m)
}
