package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractOrderID_Priority(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		wantID string
		wantOK bool
	}{
		{"order number only", `{"order":{"order_number":"ORD-42"}}`, "ORD-42", true},
		{"numeric id beats order number", `{"order":{"id":7,"order_number":"ORD-42"}}`, "7", true},
		{"string order id is not numeric", `{"order":{"id":"abc","order_number":"ORD-42"}}`, "ORD-42", true},
		{"numeric order number", `{"order":{"order_number":1001}}`, "1001", true},
		{"top-level order_id", `{"order_id":"55","id":"9"}`, "55", true},
		{"top-level id", `{"id":9}`, "9", true},
		{"order beats top level", `{"order":{"order_number":"ORD-1"},"order_id":"55"}`, "ORD-1", true},
		{"blank order number skipped", `{"order":{"order_number":"  "},"id":3}`, "3", true},
		{"nothing", `{"order":{}}`, "", false},
		{"not an object", `[1]`, "", false},
		{"empty", ``, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := ExtractOrderID(json.RawMessage(tt.data))
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestExtractOrderTotal(t *testing.T) {
	m, ok := ExtractOrderTotal(json.RawMessage(`{"order":{"id":1,"total_amount":"72590.00"}}`))
	assert.True(t, ok)
	assert.Equal(t, "72590", m.Amount.String())

	m, ok = ExtractOrderTotal(json.RawMessage(`{"order":{"id":1,"total":1000}}`))
	assert.True(t, ok)
	assert.Equal(t, "1000", m.Amount.String())

	_, ok = ExtractOrderTotal(json.RawMessage(`{"order_id":1}`))
	assert.False(t, ok)
}
