package catalog

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/sushichat/core"
)

func intPtr(v int) *int { return &v }

func testItems() []Item {
	return []Item{
		{Name: "Box Chica", Price: decimal.RequireFromString("32.24"), Contents: []string{"Rollo California"}, Stock: intPtr(10)},
		{Name: "Box Mediana", Price: decimal.RequireFromString("99.16")},
		{Name: "Box Grande", Price: decimal.RequireFromString("169.89")},
		{Name: "Box Vegana (Mediana)", Price: decimal.RequireFromString("89.50"), Availability: Unavailable},
	}
}

func TestNewRejectsInvalidItems(t *testing.T) {
	tests := []struct {
		name  string
		items []Item
	}{
		{"empty name", []Item{{Name: " ", Price: decimal.NewFromInt(1)}}},
		{"duplicate folded name", []Item{
			{Name: "Box Dragón", Price: decimal.NewFromInt(1)},
			{Name: "box dragon", Price: decimal.NewFromInt(2)},
		}},
		{"zero price", []Item{{Name: "Box", Price: decimal.Zero}}},
		{"negative stock", []Item{{Name: "Box", Price: decimal.NewFromInt(1), Stock: intPtr(-1)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.items)
			assert.ErrorIs(t, err, ErrInvalidCatalog)
		})
	}
}

func TestListAvailable(t *testing.T) {
	c, err := New(testItems())
	require.NoError(t, err)

	available := c.ListAvailable()
	require.Len(t, available, 3)
	assert.Equal(t, "Box Chica", available[0].Name)
	assert.Equal(t, "32.24", available[0].PriceString())
	for _, it := range available {
		assert.True(t, it.IsAvailable())
	}
	assert.Len(t, c.All(), 4)
}

func TestFindByName(t *testing.T) {
	c, err := New(testItems())
	require.NoError(t, err)

	tests := []struct {
		query string
		want  string
	}{
		{"Box Chica", "Box Chica"},
		{"box chica", "Box Chica"},
		{"chica", "Box Chica"},
		{"  BOX GRANDE ", "Box Grande"},
		{"la box mas grande", "Box Grande"},
		{"box vegana", "Box Vegana (Mediana)"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			it, err := c.FindByName(tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, it.Name)
		})
	}
}

func TestFindByNameNotFound(t *testing.T) {
	c, err := New(testItems())
	require.NoError(t, err)

	for _, q := range []string{"Box Inexistente", "", "pizza"} {
		_, err := c.FindByName(q)
		assert.ErrorIs(t, err, ErrItemNotFound, q)
		assert.True(t, errors.Is(err, core.ErrNotFound))
	}
}

func TestFindByNameRequiresEveryDistinguishingWord(t *testing.T) {
	tests := []struct {
		name  string
		items []Item
		query string
		want  string
	}{
		{"single item unknown name", []Item{
			{Name: "Box Chica", Price: decimal.RequireFromString("32.24")},
		}, "Box Inexistente", ""},
		{"mixed catalog unknown name", []Item{
			{Name: "Box Chica", Price: decimal.RequireFromString("32.24")},
			{Name: "Box Mediana", Price: decimal.RequireFromString("99.16")},
			{Name: "Rollo Mix", Price: decimal.RequireFromString("15.00")},
		}, "Box Inexistente", ""},
		{"mixed catalog keyword match", []Item{
			{Name: "Box Chica", Price: decimal.RequireFromString("32.24")},
			{Name: "Box Mediana", Price: decimal.RequireFromString("99.16")},
			{Name: "Rollo Mix", Price: decimal.RequireFromString("15.00")},
		}, "un rollo mix", "Rollo Mix"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.items)
			require.NoError(t, err)

			it, err := c.FindByName(tt.query)
			if tt.want == "" {
				assert.ErrorIs(t, err, ErrItemNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, it.Name)
		})
	}
}

func TestParseAvailability(t *testing.T) {
	a, err := ParseAvailability("No Disponible")
	require.NoError(t, err)
	assert.Equal(t, Unavailable, a)
	assert.Equal(t, "No disponible", a.Label())

	a, err = ParseAvailability("")
	require.NoError(t, err)
	assert.Equal(t, Available, a)

	_, err = ParseAvailability("quizás")
	assert.ErrorIs(t, err, ErrInvalidCatalog)
}
