package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// OrderIDAccessor extracts an order identifier from a decoded create-order
// data payload. ok is false when the accessor's field is missing or empty.
type OrderIDAccessor func(data map[string]any) (id string, ok bool)

// OrderIDAccessors is tried in order by ExtractOrderID; the first hit wins.
// The most specific numeric identifier comes first.
var OrderIDAccessors = []OrderIDAccessor{
	numericOrderID,
	orderNumber,
	topLevelOrderID,
	topLevelID,
}

// ExtractOrderID returns the order identifier carried by a create-order data
// payload, or ok=false when none of the accessors finds one.
func ExtractOrderID(data json.RawMessage) (string, bool) {
	m, err := decodeObject(data)
	if err != nil || m == nil {
		return "", false
	}
	for _, accessor := range OrderIDAccessors {
		if id, ok := accessor(m); ok {
			return id, true
		}
	}
	return "", false
}

// ExtractOrderTotal returns the server-confirmed total of the order in a
// create-order data payload, if the backend sent one.
func ExtractOrderTotal(data json.RawMessage) (Money, bool) {
	var payload struct {
		Order *struct {
			TotalAmount Money `json:"total_amount"`
			Total       Money `json:"total"`
		} `json:"order"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || payload.Order == nil {
		return Money{}, false
	}
	switch {
	case payload.Order.TotalAmount.Set:
		return payload.Order.TotalAmount, true
	case payload.Order.Total.Set:
		return payload.Order.Total, true
	}
	return Money{}, false
}

func numericOrderID(data map[string]any) (string, bool) {
	order, ok := data["order"].(map[string]any)
	if !ok {
		return "", false
	}
	n, ok := order["id"].(json.Number)
	if !ok {
		return "", false
	}
	return n.String(), true
}

func orderNumber(data map[string]any) (string, bool) {
	order, ok := data["order"].(map[string]any)
	if !ok {
		return "", false
	}
	return scalar(order["order_number"])
}

func topLevelOrderID(data map[string]any) (string, bool) {
	return scalar(data["order_id"])
}

func topLevelID(data map[string]any) (string, bool) {
	return scalar(data["id"])
}

func scalar(v any) (string, bool) {
	switch t := v.(type) {
	case json.Number:
		return t.String(), true
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	default:
		return "", false
	}
}

func decodeObject(data json.RawMessage) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode order payload: %w", err)
	}
	return m, nil
}
