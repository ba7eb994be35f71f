package vision

// Depth thresholds on BT.601 luma.
const (
	fairLuma   = 185
	lightLuma  = 155
	mediumLuma = 125
	tanLuma    = 95
)

// Undertone thresholds. The +1 in both index denominators keeps black
// input defined.
const (
	warmIndexMin   = 0.15
	yellowIndexMin = 0.08
	coolIndexMax   = 0.08
)

// ClassifySkin buckets an average skin colour by depth and undertone. It is
// total: every RGB value maps to exactly one classification.
func ClassifySkin(avg RGB) SkinClassification {
	r, g, b := float64(avg.R), float64(avg.G), float64(avg.B)
	return SkinClassification{
		Depth:     depthFor(luma(r, g, b)),
		Undertone: undertoneFor(r, g, b),
	}
}

func depthFor(l float64) Depth {
	switch {
	case l > fairLuma:
		return Fair
	case l > lightLuma:
		return Light
	case l > mediumLuma:
		return Medium
	case l > tanLuma:
		return Tan
	default:
		return Deep
	}
}

func undertoneFor(r, g, b float64) Undertone {
	warmthIndex := (r - b) / (r + b + 1)
	yellowIndex := (g - b) / (g + b + 1)

	switch {
	case warmthIndex > warmIndexMin && yellowIndex > yellowIndexMin:
		return Warm
	case warmthIndex < coolIndexMax:
		return Cool
	default:
		return Neutral
	}
}
