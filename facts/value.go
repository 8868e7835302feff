/*
Package facts provides the lazy fact resolver registry the rule engine
evaluates conditions against (SPEC_FULL.md §4.2).

Value is a tagged-variant value type (DESIGN NOTES §9 of spec.md), grounded
on the teacher engine's Amount (a typed value+unit pair, generic/types.go)
generalized into a full sum type, and on NSXBet-rule's Value/ValueType
tagged struct (ast.go) for the enum-of-kinds shape.
*/
package facts

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Kind enumerates the variants a Value can hold.
type Kind int

const (
	KindNull Kind = iota
	KindNumber
	KindString
	KindBool
	KindDate
	KindList
	KindMap
)

// Value is a typed fact result. Exactly one of the typed fields is
// meaningful, selected by Kind.
type Value struct {
	Kind   Kind
	Number decimal.Decimal
	Str    string
	Bool   bool
	Date   time.Time
	List   []Value
	Map    map[string]Value
}

// Null is the absent-value sentinel: comparison operators treat it as "not
// equal" to anything except an explicit null comparison (SPEC_FULL.md
// §4.2 contract).
var Null = Value{Kind: KindNull}

func NumberValue(d decimal.Decimal) Value   { return Value{Kind: KindNumber, Number: d} }
func IntValue(n int64) Value                { return Value{Kind: KindNumber, Number: decimal.NewFromInt(n)} }
func FloatValue(f float64) Value            { return Value{Kind: KindNumber, Number: decimal.NewFromFloat(f)} }
func StringValue(s string) Value            { return Value{Kind: KindString, Str: s} }
func BoolValue(b bool) Value                { return Value{Kind: KindBool, Bool: b} }
func DateValue(t time.Time) Value           { return Value{Kind: KindDate, Date: t} }
func ListValue(vs []Value) Value            { return Value{Kind: KindList, List: vs} }
func MapValue(m map[string]Value) Value     { return Value{Kind: KindMap, Map: m} }

// IsNull reports whether v is the absent-value sentinel.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// AsNumber returns the numeric value, if Kind is KindNumber. Dates are also
// coercible to their Unix-second representation for cross-kind comparisons.
func (v Value) AsNumber() (decimal.Decimal, bool) {
	switch v.Kind {
	case KindNumber:
		return v.Number, true
	case KindDate:
		return decimal.NewFromInt(v.Date.Unix()), true
	case KindBool:
		if v.Bool {
			return decimal.NewFromInt(1), true
		}
		return decimal.NewFromInt(0), true
	default:
		return decimal.Decimal{}, false
	}
}

// AsString returns a human-readable rendering of v, used by string
// operators (contains, regex, in/notIn against string lists).
func (v Value) AsString() (string, bool) {
	switch v.Kind {
	case KindString:
		return v.Str, true
	case KindNumber:
		return v.Number.String(), true
	case KindBool:
		return fmt.Sprintf("%v", v.Bool), true
	case KindDate:
		return v.Date.Format(time.RFC3339), true
	default:
		return "", false
	}
}

// AsBool returns the boolean value, if Kind is KindBool.
func (v Value) AsBool() (bool, bool) {
	if v.Kind == KindBool {
		return v.Bool, true
	}
	return false, false
}

// AsDate returns the time value. KindString values are parsed as ISO-8601
// so a date-typed fact can be compared against a literal date string in a
// rule's condition leaf (SPEC_FULL.md §4.3: "comparisons across date-typed
// facts and ISO-8601 string values parse both sides to instants").
func (v Value) AsDate() (time.Time, bool) {
	switch v.Kind {
	case KindDate:
		return v.Date, true
	case KindString:
		if t, err := time.Parse(time.RFC3339, v.Str); err == nil {
			return t, true
		}
		if t, err := time.Parse("2006-01-02", v.Str); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// AsList returns the element list. A scalar value coerces to a one-element
// list so "in"/"notIn"/"contains" behave sensibly against a bare value.
func (v Value) AsList() ([]Value, bool) {
	if v.Kind == KindList {
		return v.List, true
	}
	return []Value{v}, false
}

// FromAny converts an untyped JSON-decoded value (string, float64, bool,
// []any, map[string]any, nil) into a Value.
func FromAny(a any) Value {
	switch t := a.(type) {
	case nil:
		return Null
	case Value:
		return t
	case string:
		return StringValue(t)
	case bool:
		return BoolValue(t)
	case float64:
		return NumberValue(decimal.NewFromFloat(t))
	case int:
		return IntValue(int64(t))
	case int64:
		return IntValue(t)
	case time.Time:
		return DateValue(t)
	case []any:
		list := make([]Value, len(t))
		for i, e := range t {
			list[i] = FromAny(e)
		}
		return ListValue(list)
	case []string:
		list := make([]Value, len(t))
		for i, e := range t {
			list[i] = StringValue(e)
		}
		return ListValue(list)
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, e := range t {
			m[k] = FromAny(e)
		}
		return MapValue(m)
	default:
		return StringValue(fmt.Sprintf("%v", t))
	}
}

// Equal reports whether two values are equal, comparing across Number/Date/
// String representations where Kinds differ but are coercible, and treating
// Null as equal only to Null.
func (v Value) Equal(other Value) bool {
	if v.Kind == KindNull || other.Kind == KindNull {
		return v.Kind == KindNull && other.Kind == KindNull
	}
	if vn, ok := v.AsNumber(); ok {
		if on, ok := other.AsNumber(); ok {
			return vn.Equal(on)
		}
	}
	if v.Kind == KindDate || other.Kind == KindDate {
		vd, vok := v.AsDate()
		od, ook := other.AsDate()
		if vok && ook {
			return vd.Equal(od)
		}
	}
	vs, _ := v.AsString()
	os, _ := other.AsString()
	return vs == os
}
