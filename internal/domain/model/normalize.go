package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

const (
	FieldBody      = "body"
	FieldSymbol    = "symbol"
	FieldPrice     = "price"
	FieldQuantity  = "quantity"
	FieldOrderType = "order_type"
)

// fieldAliases lists alternative input keys, checked after the canonical one.
var fieldAliases = map[string][]string{
	FieldOrderType: {"orderType"},
}

// RawOrder is an order submission as received, keyed by JSON field name.
// Unknown keys and "id" are ignored.
type RawOrder map[string]json.RawMessage

func (r RawOrder) lookup(field string) (json.RawMessage, bool) {
	for _, key := range append([]string{field}, fieldAliases[field]...) {
		v, ok := r[key]
		if !ok {
			continue
		}
		v = bytes.TrimSpace(v)
		if len(v) == 0 || bytes.Equal(v, []byte("null")) {
			continue
		}
		return v, true
	}
	return nil, false
}

func (r RawOrder) stringField(field string) (string, *Violation) {
	v, ok := r.lookup(field)
	if !ok {
		return "", missing(field)
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", malformed(field, "must be a string")
	}
	return s, nil
}

func (r RawOrder) floatField(field string) (float64, *Violation) {
	v, ok := r.lookup(field)
	if !ok {
		return 0, missing(field)
	}
	var f float64
	if err := json.Unmarshal(v, &f); err != nil {
		return 0, malformed(field, "must be a number")
	}
	return f, nil
}

func (r RawOrder) intField(field string) (int64, *Violation) {
	v, ok := r.lookup(field)
	if !ok {
		return 0, missing(field)
	}
	var f float64
	if err := json.Unmarshal(v, &f); err != nil {
		return 0, malformed(field, "must be an integer")
	}
	if n, err := strconv.ParseInt(string(v), 10, 64); err == nil {
		return n, nil
	}
	// 10.0 and 1e3 are integral; 10.5 is not.
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, malformed(field, "must be an integer")
	}
	return int64(f), nil
}

// Normalize validates a raw submission and returns the normalized order.
// All field violations are collected; on failure the error is a *ValidationError.
func Normalize(raw RawOrder) (*Order, error) {
	var (
		o  Order
		vs []Violation
	)

	if s, v := raw.stringField(FieldSymbol); v != nil {
		vs = append(vs, *v)
	} else if o.Symbol, v = normalizeSymbol(s); v != nil {
		vs = append(vs, *v)
	}

	if p, v := raw.floatField(FieldPrice); v != nil {
		vs = append(vs, *v)
	} else if o.Price, v = checkPrice(p); v != nil {
		vs = append(vs, *v)
	}

	if q, v := raw.intField(FieldQuantity); v != nil {
		vs = append(vs, *v)
	} else if o.Quantity, v = checkQuantity(q); v != nil {
		vs = append(vs, *v)
	}

	if t, v := raw.stringField(FieldOrderType); v != nil {
		vs = append(vs, *v)
	} else if o.OrderType, v = normalizeOrderType(t); v != nil {
		vs = append(vs, *v)
	}

	if len(vs) > 0 {
		return nil, &ValidationError{Violations: vs}
	}
	return &o, nil
}

// NormalizeOrder runs the same rules over an already typed order. The ID is
// carried through unchanged. Normalizing a normalized order is a no-op.
func NormalizeOrder(in Order) (*Order, error) {
	var (
		o  = Order{ID: in.ID}
		vs []Violation
		v  *Violation
	)

	if o.Symbol, v = normalizeSymbol(in.Symbol); v != nil {
		vs = append(vs, *v)
	}
	if o.Price, v = checkPrice(in.Price); v != nil {
		vs = append(vs, *v)
	}
	if o.Quantity, v = checkQuantity(in.Quantity); v != nil {
		vs = append(vs, *v)
	}
	if o.OrderType, v = normalizeOrderType(string(in.OrderType)); v != nil {
		vs = append(vs, *v)
	}

	if len(vs) > 0 {
		return nil, &ValidationError{Violations: vs}
	}
	return &o, nil
}

// BodyError reports a request body that could not be read as a JSON object.
func BodyError(msg string) *ValidationError {
	return &ValidationError{Violations: []Violation{*malformed(FieldBody, msg)}}
}

func normalizeSymbol(s string) (string, *Violation) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", invalid(FieldSymbol, "must not be empty")
	}
	return strings.ToUpper(s), nil
}

func checkPrice(p float64) (float64, *Violation) {
	if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
		return 0, invalid(FieldPrice, "must be greater than zero")
	}
	return p, nil
}

func checkQuantity(q int64) (int64, *Violation) {
	if q <= 0 {
		return 0, invalid(FieldQuantity, "must be greater than zero")
	}
	return q, nil
}

func normalizeOrderType(s string) (OrderType, *Violation) {
	t := OrderType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", invalid(FieldOrderType, `must be one of "buy", "sell"`)
	}
	return t, nil
}

func missing(field string) *Violation {
	return &Violation{Field: field, Code: CodeMissingOrMalformed, Message: "field required"}
}

func malformed(field, msg string) *Violation {
	return &Violation{Field: field, Code: CodeMissingOrMalformed, Message: msg}
}

func invalid(field, msg string) *Violation {
	return &Violation{Field: field, Code: CodeInvalid, Message: msg}
}
