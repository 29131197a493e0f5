package order

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/itsneelabh/sushichat/internal/textmatch"
)

var (
	itemKeys     = []string{"product_name", "box_name", "boxName", "item_name", "itemName", "name", "product", "box", "item"}
	quantityKeys = []string{"quantity", "cantidad", "qty"}
	confirmKeys  = []string{"confirmed", "confirm", "confirmation"}
	quoteKeys    = []string{"quote_id", "quoteId"}
	phoneKeys    = []string{"phone", "telefono", "teléfono"}
	pickupKeys   = []string{"pickup_time", "pickupTime", "hora_retiro"}
	customerKeys = []string{"customer_name", "customerName", "nombre"}
)

var affirmatives = map[string]bool{
	"si": true, "s": true, "yes": true, "y": true, "true": true, "ok": true,
	"dale": true, "confirmo": true, "confirmar": true, "1": true,
}

// Normalize maps every accepted argument shape onto a Request. Empty or null
// arguments yield an empty request; anything that is not a JSON object is
// ErrMalformedArguments.
func Normalize(raw json.RawMessage) (Request, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Request{}, nil
	}

	args, err := decodeObject(raw)
	if err != nil {
		return Request{}, err
	}

	req := Request{
		Confirmed:    isAffirmative(lookup(args, confirmKeys)),
		QuoteID:      stringValue(lookup(args, quoteKeys)),
		Phone:        stringValue(lookup(args, phoneKeys)),
		PickupTime:   stringValue(lookup(args, pickupKeys)),
		CustomerName: stringValue(lookup(args, customerKeys)),
	}

	if items, ok := args["items"]; ok && items != nil {
		req.Lines = linesFrom(items)
	} else if name := lookup(args, itemKeys); name != nil {
		req.Lines = []LineRequest{{ItemName: stringValue(name), Quantity: quantityValue(lookup(args, quantityKeys))}}
	}
	return req, nil
}

func decodeObject(raw []byte) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var args map[string]interface{}
	if err := dec.Decode(&args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedArguments, err)
	}
	if args == nil {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrMalformedArguments)
	}
	return args, nil
}

func linesFrom(v interface{}) []LineRequest {
	switch t := v.(type) {
	case []interface{}:
		lines := make([]LineRequest, 0, len(t))
		for _, el := range t {
			lines = append(lines, linesFrom(el)...)
		}
		return lines
	case map[string]interface{}:
		return []LineRequest{{
			ItemName: stringValue(lookup(t, itemKeys)),
			Quantity: quantityValue(lookup(t, quantityKeys)),
		}}
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		if strings.HasPrefix(s, "[") || strings.HasPrefix(s, "{") {
			dec := json.NewDecoder(strings.NewReader(s))
			dec.UseNumber()
			var nested interface{}
			if err := dec.Decode(&nested); err == nil {
				return linesFrom(nested)
			}
		}
		return []LineRequest{{ItemName: s, Quantity: 1}}
	}
	return nil
}

func lookup(m map[string]interface{}, keys []string) interface{} {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func stringValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// quantityValue maps a missing quantity to 1 and anything non-integral to 0.
func quantityValue(v interface{}) int {
	switch t := v.(type) {
	case nil:
		return 1
	case json.Number:
		return integral(t.String())
	case string:
		return integral(strings.TrimSpace(t))
	case float64:
		return integral(strconv.FormatFloat(t, 'f', -1, 64))
	}
	return 0
}

func integral(s string) int {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0
	}
	return int(f)
}

func isAffirmative(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case json.Number:
		n, err := t.Float64()
		return err == nil && n == 1
	case string:
		return affirmatives[textmatch.Fold(t)]
	}
	return false
}
