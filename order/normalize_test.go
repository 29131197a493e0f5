package order

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeShapes(t *testing.T) {
	tests := []struct {
		name string
		args string
		want Request
	}{
		{
			name: "items array",
			args: `{"items":[{"name":"Box Chica","quantity":2}]}`,
			want: Request{Lines: []LineRequest{{ItemName: "Box Chica", Quantity: 2}}},
		},
		{
			name: "items object",
			args: `{"items":{"box_name":"Box Grande","cantidad":"3"}}`,
			want: Request{Lines: []LineRequest{{ItemName: "Box Grande", Quantity: 3}}},
		},
		{
			name: "items as json string",
			args: `{"items":"[{\"itemName\":\"Box Chica\",\"qty\":2.0}]","confirmed":true}`,
			want: Request{Lines: []LineRequest{{ItemName: "Box Chica", Quantity: 2}}, Confirmed: true},
		},
		{
			name: "top-level single item",
			args: `{"product_name":"Box Mediana","quantity":1,"confirm":"Sí"}`,
			want: Request{Lines: []LineRequest{{ItemName: "Box Mediana", Quantity: 1}}, Confirmed: true},
		},
		{
			name: "missing quantity defaults to one",
			args: `{"boxName":"Box Chica"}`,
			want: Request{Lines: []LineRequest{{ItemName: "Box Chica", Quantity: 1}}},
		},
		{
			name: "fractional quantity is invalid",
			args: `{"items":[{"name":"Box Chica","quantity":1.5},{"name":"Box Grande","quantity":"dos"}]}`,
			want: Request{Lines: []LineRequest{{ItemName: "Box Chica", Quantity: 0}, {ItemName: "Box Grande", Quantity: 0}}},
		},
		{
			name: "customer fields and quote",
			args: `{"quoteId":"q_1234abcd","confirmation":1,"telefono":"+54 11 1234-5678","hora_retiro":"20:30","nombre":"Ana"}`,
			want: Request{Confirmed: true, QuoteID: "q_1234abcd", Phone: "+54 11 1234-5678", PickupTime: "20:30", CustomerName: "Ana"},
		},
		{
			name: "negative answer",
			args: `{"item_name":"Box Chica","confirmed":"no"}`,
			want: Request{Lines: []LineRequest{{ItemName: "Box Chica", Quantity: 1}}},
		},
		{
			name: "plain string items",
			args: `{"items":"Box Chica"}`,
			want: Request{Lines: []LineRequest{{ItemName: "Box Chica", Quantity: 1}}},
		},
		{name: "empty object", args: `{}`, want: Request{}},
		{name: "null", args: `null`, want: Request{}},
		{name: "empty", args: ``, want: Request{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(json.RawMessage(tt.args))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeAffirmatives(t *testing.T) {
	for _, answer := range []string{"si", "sí", " SÍ ", "s", "yes", "Y", "true", "ok", "dale", "confirmo", "confirmar"} {
		args, _ := json.Marshal(map[string]interface{}{"confirmed": answer})
		req, err := Normalize(args)
		require.NoError(t, err)
		assert.True(t, req.Confirmed, answer)
	}
	for _, answer := range []interface{}{"no", "quizás", "", 0, false, 2} {
		args, _ := json.Marshal(map[string]interface{}{"confirmed": answer})
		req, err := Normalize(args)
		require.NoError(t, err)
		assert.False(t, req.Confirmed, answer)
	}
}

func TestNormalizeMalformed(t *testing.T) {
	for _, args := range []string{`{"items":`, `[1,2]`, `"Box Chica"`, `42`} {
		_, err := Normalize(json.RawMessage(args))
		assert.ErrorIs(t, err, ErrMalformedArguments, args)
	}
}
