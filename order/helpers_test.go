package order

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/sushichat/catalog"
)

func defaultCatalog(t *testing.T) (*catalog.Seed, *catalog.Catalog) {
	t.Helper()
	seed := catalog.DefaultSeed()
	c, err := seed.Catalog()
	require.NoError(t, err)
	return seed, c
}

func defaultGuards(t *testing.T, seed *catalog.Seed) *Guards {
	t.Helper()
	g, err := NewGuards(seed.Rules)
	require.NoError(t, err)
	return g
}
