package vision

import (
	"fmt"
	"math"
	"sort"
)

// Size thresholds on the face fill ratio.
const (
	smallFillMax = 0.42
	largeFillMin = 0.55

	// ovalProxyFactor gives the estimated oval radius as
	// cheekboneWidth * 1.4 / 2.
	ovalProxyFactor = 1.4
)

// ClassifyShape applies the shape rules in order; the first match wins and
// Oval is the default.
func ClassifyShape(m FaceMetrics) FaceShape {
	widest := math.Max(math.Max(m.ForeheadWidth, m.CheekboneWidth), math.Max(m.JawWidth, 1))

	forehead := m.ForeheadWidth / widest
	cheekbone := m.CheekboneWidth / widest
	jaw := m.JawWidth / widest
	chin := m.ChinWidth / widest
	heightToWidth := m.FaceHeight / widest
	jawTaper := cheekbone - jaw

	switch {
	case jawTaper > 0.20 && forehead > 0.80 && chin < 0.50:
		return Heart
	case jawTaper < 0.10 && forehead > 0.85 && jaw > 0.85 && heightToWidth < 1.45:
		return Square
	case cheekbone >= 0.95 && jawTaper < 0.15 && heightToWidth < 1.3:
		return Round
	case heightToWidth > 1.55:
		return Oblong
	default:
		return Oval
	}
}

// VerdictFor returns the fixed verdict carried by a shape.
func VerdictFor(s FaceShape) Verdict {
	switch s {
	case Oval, Heart:
		return GreatFit
	case Round, Square, Oblong:
		return GoodFit
	default:
		return ConsiderAlternatives
	}
}

// EstimatedOvalRadius is the placeholder proxy cheekboneWidth * 1.4 / 2. It
// is a heuristic, not a calibrated measurement.
func EstimatedOvalRadius(m FaceMetrics) float64 {
	return m.CheekboneWidth * ovalProxyFactor / 2
}

// FillRatio is cheekbone width over the estimated oval diameter. With the
// proxy radius every measured face fills 1/1.4 of it.
func FillRatio(m FaceMetrics) float64 {
	radius := EstimatedOvalRadius(m)
	if radius <= 0 {
		return 0
	}
	return m.CheekboneWidth / (2 * radius)
}

// RecommendSize picks a size from the table by face fill ratio. Sizes are
// ordered by lens width, then key. It returns false for an empty table.
func RecommendSize(m FaceMetrics, sizes SizeTable) (SizeRecommendation, bool) {
	keys := orderedSizes(sizes)
	if len(keys) == 0 {
		return SizeRecommendation{}, false
	}

	key := keys[sizeIndex(FillRatio(m), len(keys))]
	spec := sizes[key]
	return SizeRecommendation{
		SizeKey:      key,
		LensWidth:    spec.LensWidth,
		Bridge:       spec.Bridge,
		TempleLength: spec.TempleLength,
	}, true
}

// sizeIndex maps a fill ratio onto n ordered sizes: below 0.42 the smallest,
// above 0.55 the largest, otherwise the middle one.
func sizeIndex(fill float64, n int) int {
	switch {
	case fill < smallFillMax:
		return 0
	case fill > largeFillMin:
		return n - 1
	default:
		return (n - 1) / 2
	}
}

func orderedSizes(sizes SizeTable) []string {
	keys := make([]string, 0, len(sizes))
	for k := range sizes {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := sizes[keys[i]], sizes[keys[j]]
		if a.LensWidth != b.LensWidth {
			return a.LensWidth < b.LensWidth
		}
		return keys[i] < keys[j]
	})
	return keys
}

var fitTemplates = map[FaceShape]string{
	Oval:   "Your oval face suits almost any frame. The %s in size %s, with its %dmm lens, keeps your natural balance.",
	Round:  "Your round face gains definition from structured lines. The %s in size %s, with its %dmm lens, adds just enough angle.",
	Square: "Your strong jawline pairs well with softer curves. The %s in size %s, with its %dmm lens, balances your features.",
	Heart:  "Your heart-shaped face is flattered by frames that widen at the base. The %s in size %s, with its %dmm lens, is a natural match.",
	Oblong: "Your longer face benefits from frames with depth. The %s in size %s, with its %dmm lens, adds width where it counts.",
}

// RecommendFit classifies the face, picks a size and writes the explanation.
// With an empty size table the explanation omits the size details.
func RecommendFit(productName string, m FaceMetrics, sizes SizeTable) FitRecommendation {
	shape := ClassifyShape(m)
	rec := FitRecommendation{
		Shape:   shape,
		Verdict: VerdictFor(shape),
	}

	size, ok := RecommendSize(m, sizes)
	if !ok {
		rec.Explanation = fmt.Sprintf("Your face shape reads as %s. No sizes are listed for the %s yet.", shape, productName)
		return rec
	}
	rec.SizeKey = size.SizeKey
	rec.Size = size
	rec.Explanation = fmt.Sprintf(fitTemplates[shape], productName, size.SizeKey, size.LensWidth)
	return rec
}
