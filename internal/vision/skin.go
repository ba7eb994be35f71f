package vision

const maxSkinSaturation = 0.75

// IsSkinPixel reports whether an RGB triple looks like skin. The rules run in
// order and short-circuit on the first rejection.
func IsSkinPixel(c RGB) bool {
	r, g, b := int(c.R), int(c.G), int(c.B)

	// Too dark for any skin tone
	if r < 40 || g < 20 || b < 10 {
		return false
	}

	maxC := max(r, g, b)
	minC := min(r, g, b)
	diff := maxC - minC
	// Achromatic
	if diff < 10 {
		return false
	}

	// Skin is red-dominant (or red ~ green), never blue or green dominant
	if r < g || r <= b {
		return false
	}
	if r-b < 10 {
		return false
	}

	// Neon fabrics and saturated backgrounds
	sat := float64(diff) / float64(max(maxC, 1))
	return sat <= maxSkinSaturation
}
