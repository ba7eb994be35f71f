package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lithammer/dedent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sample = dedent.Dedent(`
	products:
	  - id: aviator
	    name: Aviator Classic
	    colourways:
	      - id: gold
	        name: Brushed Gold
	        hex: "#d4af37"
	        metalness: 0.9
	        roughness: 0.3
	      - id: black
	        name: Matte Black
	        hex: "#111111"
	        metalness: 0.1
	        roughness: 0.8
	    sizes:
	      S: {lens_width: 52, bridge: 14, temple_length: 135}
	      M: {lens_width: 55, bridge: 16, temple_length: 140}
	  - id: round
	    name: Round Acetate
	    colourways:
	      - id: tortoise
	        name: Tortoise
	        hex: "6b4423"
`)

func TestParse(t *testing.T) {
	c, err := Parse([]byte(sample))
	require.NoError(t, err)
	require.Len(t, c.Products, 2)

	p, err := c.Product("aviator")
	require.NoError(t, err)
	assert.Equal(t, "Aviator Classic", p.Name)
	require.Len(t, p.Colourways, 2)
	assert.Equal(t, "Brushed Gold", p.Colourways[0].Name)
	assert.InDelta(t, 0.9, p.Colourways[0].Metalness, 1e-9)
	assert.Equal(t, 55, p.Sizes["M"].LensWidth)
	assert.Equal(t, 140, p.Sizes["M"].TempleLength)

	round, err := c.Product("round")
	require.NoError(t, err)
	assert.NotNil(t, round.Sizes)
	assert.Empty(t, round.Sizes)
}

func TestProductUnknown(t *testing.T) {
	c, err := Parse([]byte(sample))
	require.NoError(t, err)

	_, err = c.Product("cat-eye")
	assert.ErrorIs(t, err, ErrUnknownProduct)
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"not yaml", "products: [oops"},
		{"missing id", "products:\n  - name: Nameless\n"},
		{"missing name", "products:\n  - id: a\n"},
		{"duplicate product", "products:\n  - {id: a, name: A}\n  - {id: a, name: B}\n"},
		{"bad hex", "products:\n  - id: a\n    name: A\n    colourways:\n      - {id: c, name: C, hex: '#12345g'}\n"},
		{"metalness out of range", "products:\n  - id: a\n    name: A\n    colourways:\n      - {id: c, name: C, hex: '#123456', metalness: 2}\n"},
		{"duplicate colourway", "products:\n  - id: a\n    name: A\n    colourways:\n      - {id: c, name: C, hex: '#123456'}\n      - {id: c, name: D, hex: '#654321'}\n"},
		{"zero lens width", "products:\n  - id: a\n    name: A\n    sizes:\n      M: {lens_width: 0, bridge: 16, temple_length: 140}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, c.Products, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
