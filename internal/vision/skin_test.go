package vision

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSkinPixel(t *testing.T) {
	tests := []struct {
		name string
		c    RGB
		want bool
	}{
		{"typical light skin", RGB{200, 150, 130}, true},
		{"typical deep skin", RGB{90, 60, 50}, true},
		{"red equals green", RGB{150, 150, 100}, true},

		// Rule 1: too dark
		{"red below 40", RGB{39, 25, 12}, false},
		{"red at 40", RGB{40, 25, 12}, true},
		{"green below 20", RGB{60, 19, 12}, false},
		{"green at 20", RGB{60, 20, 20}, true},
		{"blue below 10", RGB{60, 30, 9}, false},
		{"blue at 10", RGB{40, 30, 10}, true},

		// Rule 2: achromatic
		{"spread 9", RGB{109, 105, 100}, false},
		{"spread 10", RGB{110, 105, 100}, true},

		// Rule 3: dominance
		{"green dominant", RGB{120, 121, 80}, false},
		{"blue equals red", RGB{120, 80, 120}, false},
		{"blue dominant", RGB{100, 80, 140}, false},

		// Rule 4: red-blue spread
		{"red-blue spread 5", RGB{110, 90, 105}, false},
		{"red-blue spread 10", RGB{110, 90, 100}, true},

		// Rule 5: saturation
		{"saturation 0.75", RGB{200, 100, 50}, true},
		{"saturation above 0.75", RGB{200, 100, 49}, false},
		{"neon orange", RGB{255, 120, 0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSkinPixel(tt.c), "IsSkinPixel(%v)", tt.c)
		})
	}
}

// TestIsSkinPixelMatchesRules checks the predicate against the rule set
// over a coarse grid of the whole RGB cube.
func TestIsSkinPixelMatchesRules(t *testing.T) {
	for r := 0; r < 256; r += 5 {
		for g := 0; g < 256; g += 5 {
			for b := 0; b < 256; b += 5 {
				c := RGB{uint8(r), uint8(g), uint8(b)}
				maxC, minC := max(r, g, b), min(r, g, b)
				want := r >= 40 && g >= 20 && b >= 10 &&
					maxC-minC >= 10 &&
					r >= g && r > b &&
					r-b >= 10 &&
					float64(maxC-minC)/float64(max(maxC, 1)) <= 0.75
				if got := IsSkinPixel(c); got != want {
					t.Fatalf("IsSkinPixel(%v) = %v, want %v", c, got, want)
				}
			}
		}
	}
}
