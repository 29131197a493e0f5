package order

import (
	"errors"
	"fmt"
	"strings"

	"github.com/itsneelabh/sushichat/catalog"
	"github.com/itsneelabh/sushichat/core"
)

// ErrorKind classifies a validation failure.
type ErrorKind string

const (
	ItemNotFound      ErrorKind = "item_not_found"
	ItemUnavailable   ErrorKind = "item_unavailable"
	InvalidQuantity   ErrorKind = "invalid_quantity"
	InvalidPhone      ErrorKind = "invalid_phone"
	InvalidPickupTime ErrorKind = "invalid_pickup_time"
	RuleViolation     ErrorKind = "rule_violation"
)

// ValidationError is one customer-facing problem with a request.
type ValidationError struct {
	Kind    ErrorKind `json:"kind"`
	Item    string    `json:"item,omitempty"`
	Message string    `json:"message"`
}

func (e ValidationError) Error() string { return e.Message }

// ValidationErrors collects every problem found in a request.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	return strings.Join(v.Messages(), "; ")
}

// Messages returns the customer-facing messages in order.
func (v ValidationErrors) Messages() []string {
	out := make([]string, len(v))
	for i, e := range v {
		out[i] = e.Message
	}
	return out
}

// Has reports whether any error is of kind.
func (v ValidationErrors) Has(kind ErrorKind) bool {
	for _, e := range v {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

// Validator checks requested lines against the catalog and the guard rules.
type Validator struct {
	catalog *catalog.Catalog
	guards  *Guards
	logger  core.Logger
}

// NewValidator builds a validator. guards may be nil.
func NewValidator(c *catalog.Catalog, guards *Guards, logger core.Logger) *Validator {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &Validator{catalog: c, guards: guards, logger: logger}
}

// Validate prices every line that passes and reports every line that does not.
func (v *Validator) Validate(req Request) ([]Line, ValidationErrors) {
	var (
		lines []Line
		errs  ValidationErrors
	)

	for _, lr := range req.Lines {
		item, err := v.catalog.FindByName(lr.ItemName)
		found := err == nil
		if !found {
			errs = append(errs, ValidationError{
				Kind:    ItemNotFound,
				Item:    lr.ItemName,
				Message: fmt.Sprintf("Box no encontrado: %s", lr.ItemName),
			})
		} else if !item.IsAvailable() {
			errs = append(errs, ValidationError{
				Kind:    ItemUnavailable,
				Item:    item.Name,
				Message: fmt.Sprintf("Box no disponible: %s", item.Name),
			})
			found = false
		}

		if lr.Quantity <= 0 {
			name := lr.ItemName
			if err == nil {
				name = item.Name
			}
			errs = append(errs, ValidationError{
				Kind:    InvalidQuantity,
				Item:    name,
				Message: fmt.Sprintf("Cantidad inválida para %s", name),
			})
			continue
		}
		if found {
			lines = append(lines, NewLine(item.Name, lr.Quantity, item.Price))
		}
	}

	if req.Phone != "" && !catalog.ValidatePhone(req.Phone) {
		errs = append(errs, ValidationError{
			Kind:    InvalidPhone,
			Message: fmt.Sprintf("Teléfono inválido: %s", req.Phone),
		})
	}
	if req.PickupTime != "" {
		if _, err := catalog.ParseTimeOfDay(req.PickupTime); err != nil {
			errs = append(errs, ValidationError{
				Kind:    InvalidPickupTime,
				Message: fmt.Sprintf("Horario de retiro inválido: %s", req.PickupTime),
			})
		}
	}

	if v.guards != nil && len(lines) > 0 {
		violations, err := v.guards.Check(lines)
		if err != nil {
			v.logger.Error("Order guard evaluation failed", map[string]interface{}{
				"operation": "order_validate",
				"error":     err.Error(),
			})
		}
		errs = append(errs, violations...)
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return lines, nil
}

// AsValidationErrors extracts ValidationErrors from err.
func AsValidationErrors(err error) (ValidationErrors, bool) {
	var v ValidationErrors
	ok := errors.As(err, &v)
	return v, ok
}
