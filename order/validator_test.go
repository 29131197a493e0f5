package order

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/sushichat/catalog"
)

func TestValidatePricesLines(t *testing.T) {
	_, c := defaultCatalog(t)
	v := NewValidator(c, nil, nil)

	lines, errs := v.Validate(Request{Lines: []LineRequest{{ItemName: "box chica", Quantity: 2}}})
	require.Empty(t, errs)
	require.Len(t, lines, 1)
	assert.Equal(t, "Box Chica", lines[0].ItemName)
	assert.Equal(t, "64.48", lines[0].Subtotal.StringFixed(2))
	assert.Equal(t, "64.48", Total(lines).StringFixed(2))
}

func TestValidateReportsEveryError(t *testing.T) {
	_, c := defaultCatalog(t)
	v := NewValidator(c, nil, nil)

	lines, errs := v.Validate(Request{
		Lines: []LineRequest{
			{ItemName: "Box Inexistente", Quantity: 1},
			{ItemName: "Box Vegana (Mediana)", Quantity: 1},
			{ItemName: "Box Grande", Quantity: 0},
			{ItemName: "Box Chica", Quantity: 1},
		},
		Phone:      "1234",
		PickupTime: "25:00",
	})

	assert.Nil(t, lines)
	assert.Equal(t, []string{
		"Box no encontrado: Box Inexistente",
		"Box no disponible: Box Vegana (Mediana)",
		"Cantidad inválida para Box Grande",
		"Teléfono inválido: 1234",
		"Horario de retiro inválido: 25:00",
	}, errs.Messages())
	assert.True(t, errs.Has(ItemNotFound))
	assert.True(t, errs.Has(ItemUnavailable))
	assert.True(t, errs.Has(InvalidQuantity))
	assert.False(t, errs.Has(RuleViolation))
}

func TestValidateGuards(t *testing.T) {
	seed, c := defaultCatalog(t)
	v := NewValidator(c, defaultGuards(t, seed), nil)

	_, errs := v.Validate(Request{Lines: []LineRequest{{ItemName: "Box Chica", Quantity: 21}}})
	require.Len(t, errs, 1)
	assert.Equal(t, RuleViolation, errs[0].Kind)
	assert.Equal(t, "Podés pedir hasta 20 unidades de Box Chica por pedido.", errs[0].Message)

	_, errs = v.Validate(Request{Lines: []LineRequest{
		{ItemName: "Box Chica", Quantity: 20},
		{ItemName: "Box Mediana", Quantity: 20},
		{ItemName: "Box Grande", Quantity: 11},
	}})
	require.Len(t, errs, 1)
	assert.Equal(t, "El pedido no puede superar las 50 unidades en total.", errs[0].Message)

	lines, errs := v.Validate(Request{Lines: []LineRequest{{ItemName: "Box Chica", Quantity: 20}}})
	assert.Empty(t, errs)
	assert.Len(t, lines, 1)
}

func TestGuardsCustomRule(t *testing.T) {
	g, err := NewGuards([]catalog.OrderRule{{
		Name:  "min_total",
		Scope: catalog.ScopeOrder,
		Logic: json.RawMessage(`{">=": [{"var": "total"}, 50]}`),
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, g.Len())

	_, c := defaultCatalog(t)
	chica, err := c.FindByName("Box Chica")
	require.NoError(t, err)

	errs, err := g.Check([]Line{NewLine(chica.Name, 1, chica.Price)})
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "El pedido no cumple la regla min_total", errs[0].Message)

	errs, err = g.Check([]Line{NewLine(chica.Name, 2, chica.Price)})
	require.NoError(t, err)
	assert.Empty(t, errs)
}

func TestTruthy(t *testing.T) {
	assert.False(t, truthy(nil))
	assert.False(t, truthy(false))
	assert.False(t, truthy(0.0))
	assert.False(t, truthy(""))
	assert.False(t, truthy([]interface{}{}))
	assert.True(t, truthy(true))
	assert.True(t, truthy(1.0))
	assert.True(t, truthy("x"))
	assert.True(t, truthy(map[string]interface{}{}))
}
