package order

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/diegoholiveira/jsonlogic/v3"

	"github.com/itsneelabh/sushichat/catalog"
)

// Guards evaluates JSON-logic order rules. A rule that evaluates to a falsy
// value is a violation.
type Guards struct {
	rules []catalog.OrderRule
}

// NewGuards checks that every rule is valid JSON-logic.
func NewGuards(rules []catalog.OrderRule) (*Guards, error) {
	for _, r := range rules {
		if !jsonlogic.IsValid(bytes.NewReader(r.Logic)) {
			return nil, fmt.Errorf("guard %q is not valid json logic", r.Name)
		}
	}
	return &Guards{rules: append([]catalog.OrderRule(nil), rules...)}, nil
}

// Len returns the number of rules.
func (g *Guards) Len() int { return len(g.rules) }

// Check evaluates every rule. Rules that fail to evaluate are skipped and
// reported through the returned error.
func (g *Guards) Check(lines []Line) (ValidationErrors, error) {
	var (
		violations ValidationErrors
		evalErrs   []error
	)

	orderData := map[string]interface{}{
		"lines": lineData(lines),
		"units": Units(lines),
		"total": Total(lines).InexactFloat64(),
	}

	for _, r := range g.rules {
		switch r.Scope {
		case catalog.ScopeLine:
			for _, l := range lines {
				ok, err := evaluate(r.Logic, lineVars(l))
				if err != nil {
					evalErrs = append(evalErrs, fmt.Errorf("guard %q: %w", r.Name, err))
					break
				}
				if !ok {
					violations = append(violations, violation(r, l.ItemName))
				}
			}
		case catalog.ScopeOrder:
			ok, err := evaluate(r.Logic, orderData)
			if err != nil {
				evalErrs = append(evalErrs, fmt.Errorf("guard %q: %w", r.Name, err))
				continue
			}
			if !ok {
				violations = append(violations, violation(r, ""))
			}
		}
	}
	return violations, errors.Join(evalErrs...)
}

func violation(r catalog.OrderRule, item string) ValidationError {
	msg := r.Message
	if msg == "" {
		msg = fmt.Sprintf("El pedido no cumple la regla %s", r.Name)
	}
	return ValidationError{
		Kind:    RuleViolation,
		Item:    item,
		Message: strings.ReplaceAll(msg, "{item}", item),
	}
}

func lineVars(l Line) map[string]interface{} {
	return map[string]interface{}{
		"item":       l.ItemName,
		"quantity":   l.Quantity,
		"unit_price": l.UnitPrice.InexactFloat64(),
		"subtotal":   l.Subtotal.InexactFloat64(),
	}
}

func lineData(lines []Line) []interface{} {
	out := make([]interface{}, len(lines))
	for i, l := range lines {
		out[i] = lineVars(l)
	}
	return out
}

func evaluate(rule json.RawMessage, vars map[string]interface{}) (bool, error) {
	data, err := json.Marshal(vars)
	if err != nil {
		return false, err
	}
	var out bytes.Buffer
	if err := jsonlogic.Apply(bytes.NewReader(rule), bytes.NewReader(data), &out); err != nil {
		return false, err
	}
	var result interface{}
	if err := json.Unmarshal(bytes.TrimSpace(out.Bytes()), &result); err != nil {
		return false, err
	}
	return truthy(result), nil
}

// truthy follows JSON-logic truthiness.
func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case []interface{}:
		return len(t) > 0
	}
	return true
}
