package vision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustColourway(t *testing.T, id, hex string) Colourway {
	t.Helper()
	c, err := NewColourway(id, id, hex, 0.5, 0.5)
	require.NoError(t, err)
	return c
}

func TestNewColourwayValidation(t *testing.T) {
	tests := []struct {
		name      string
		id, hex   string
		metal     float64
		rough     float64
		wantError bool
	}{
		{"valid long hex", "tortoise", "#6b4423", 0.1, 0.6, false},
		{"valid without hash", "black", "000000", 0, 1, false},
		{"valid short hex", "white", "#fff", 1, 0, false},
		{"empty id", "", "#000000", 0, 0, true},
		{"bad hex", "x", "#zzzzzz", 0, 0, true},
		{"short hex wrong length", "x", "#ffff", 0, 0, true},
		{"metalness above 1", "x", "#000000", 1.1, 0, true},
		{"roughness negative", "x", "#000000", 0, -0.1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewColourway(tt.id, tt.id, tt.hex, tt.metal, tt.rough)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseHex(t *testing.T) {
	c, err := ParseHex("#d4af37")
	require.NoError(t, err)
	assert.Equal(t, RGB{212, 175, 55}, c)
	assert.Equal(t, "#d4af37", c.Hex())

	c, err = ParseHex("#abc")
	require.NoError(t, err)
	assert.Equal(t, RGB{0xaa, 0xbb, 0xcc}, c)
}

func TestContrastScore(t *testing.T) {
	tests := []struct {
		c    float64
		want float64
	}{
		{0.10, 0.2},
		{0.90, 0.5},
		{0.45, 1.0},
		{0.15, 0.55},
		{0.80, 0.475},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, contrastScore(tt.c), 1e-9, "contrastScore(%v)", tt.c)
	}
}

func TestHarmonyScore(t *testing.T) {
	red := RGB{200, 0, 0}
	blue := RGB{0, 0, 200}
	mid := RGB{110, 100, 90} // warmth ~0.0995, neither warm nor cool

	assert.Equal(t, 1.0, harmonyScore(Warm, red))
	assert.Equal(t, 1.0, harmonyScore(Cool, blue))
	assert.Equal(t, 0.85, harmonyScore(Neutral, red))
	assert.Equal(t, 0.7, harmonyScore(Warm, blue))
	assert.Equal(t, 0.65, harmonyScore(Cool, red))
	assert.Equal(t, 0.5, harmonyScore(Warm, mid))
	assert.Equal(t, 0.5, harmonyScore(Cool, mid))
}

func TestDepthBonus(t *testing.T) {
	gold := RGB{212, 175, 55}
	black := RGB{0, 0, 0}
	white := RGB{255, 255, 255}

	assert.Equal(t, 0.2, depthBonus(Deep, gold))
	assert.Equal(t, 0.15, depthBonus(Deep, white))
	assert.Equal(t, 0.15, depthBonus(Tan, white))
	assert.Equal(t, 0.15, depthBonus(Fair, black))
	assert.Equal(t, 0.15, depthBonus(Light, black))
	assert.Equal(t, 0.0, depthBonus(Medium, black))
	assert.Equal(t, 0.0, depthBonus(Fair, white))
}

func TestScoreColourways(t *testing.T) {
	skin := RGB{200, 150, 130} // Light / Neutral
	candidates := []Colourway{
		mustColourway(t, "white", "#ffffff"),
		mustColourway(t, "skinlike", "#c8968a"),
		mustColourway(t, "black", "#000000"),
	}

	scored := ScoreColourways(skin, candidates)
	require.Len(t, scored, 3)

	assert.Equal(t, "black", scored[0].Colourway.ID)
	assert.Equal(t, "white", scored[1].Colourway.ID)
	assert.Equal(t, "skinlike", scored[2].Colourway.ID)

	// black: contrast ~0.638 -> 0.718*0.4 + 0.85*0.45 + 0.15 + 0.15
	assert.InDelta(t, 0.9697, scored[0].Score, 1e-3)
	// white: contrast ~0.390 -> 0.910*0.4 + 0.85*0.45 + 0 + 0.15
	assert.InDelta(t, 0.8965, scored[1].Score, 1e-3)
}

func TestScoreColourwaysIsIdempotent(t *testing.T) {
	skin := RGB{90, 60, 50}
	candidates := []Colourway{
		mustColourway(t, "gold", "#d4af37"),
		mustColourway(t, "silver", "#c0c0c0"),
		mustColourway(t, "black", "#000000"),
		mustColourway(t, "black-again", "#000000"),
		mustColourway(t, "navy", "#1f2a44"),
	}

	first := ScoreColourways(skin, candidates)
	second := ScoreColourways(skin, candidates)
	assert.Equal(t, first, second)

	// Equal scores keep catalog order
	var blackIdx, againIdx int
	for i, s := range first {
		switch s.Colourway.ID {
		case "black":
			blackIdx = i
		case "black-again":
			againIdx = i
		}
	}
	assert.Less(t, blackIdx, againIdx)
	assert.Equal(t, "gold", first[0].Colourway.ID)
}

func TestScoreColourwaysSkipsUndecodableHex(t *testing.T) {
	candidates := []Colourway{
		{ID: "broken", Hex: "not-a-colour"},
		mustColourway(t, "black", "#000000"),
	}
	scored := ScoreColourways(RGB{200, 150, 130}, candidates)
	require.Len(t, scored, 1)
	assert.Equal(t, "black", scored[0].Colourway.ID)
}

func TestRecommend(t *testing.T) {
	skin := RGB{200, 150, 130}

	t.Run("top two", func(t *testing.T) {
		res, ok := Recommend(skin, []Colourway{
			mustColourway(t, "white", "#ffffff"),
			mustColourway(t, "black", "#000000"),
		})
		require.True(t, ok)
		assert.Equal(t, "black", res.TopMatch.ID)
		assert.Equal(t, "white", res.Alternative.ID)
		assert.Equal(t, Light, res.Depth)
		assert.Equal(t, Neutral, res.Undertone)
		assert.Contains(t, res.ReasoningText, "light complexion")
		assert.Contains(t, res.ReasoningText, "black")
	})

	t.Run("single candidate doubles as alternative", func(t *testing.T) {
		res, ok := Recommend(skin, []Colourway{mustColourway(t, "black", "#000000")})
		require.True(t, ok)
		assert.Equal(t, res.TopMatch, res.Alternative)
	})

	t.Run("no candidates", func(t *testing.T) {
		_, ok := Recommend(skin, nil)
		assert.False(t, ok)
	})
}

func TestReasoningIsDeterministic(t *testing.T) {
	tone := SkinClassification{Deep, Warm}
	gold := Colourway{ID: "gold", Name: "Brushed Gold", Hex: "#d4af37"}

	text := Reasoning(tone, gold)
	assert.Equal(t, text, Reasoning(tone, gold))
	assert.Equal(t,
		"Your deep complexion has golden, warm undertones. Brushed Gold echoes that warmth for a naturally harmonious look.",
		text)
}
