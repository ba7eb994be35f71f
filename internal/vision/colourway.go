package vision

import (
	"math"
	"sort"
)

// Scoring weights and thresholds.
const (
	contrastWeight = 0.40
	harmonyWeight  = 0.45
	scoreBase      = 0.15

	lowContrast   = 0.15
	highContrast  = 0.80
	idealContrast = 0.45

	frameWarmMin = 0.12
	frameCoolMax = 0.05
)

// ScoreColourways scores every candidate against the skin colour and returns
// them sorted by descending score. Ties keep catalog order, so identical
// inputs always produce identical output. Candidates whose hex does not
// decode are skipped.
func ScoreColourways(skin RGB, candidates []Colourway) []ScoredColourway {
	tone := ClassifySkin(skin)

	scored := make([]ScoredColourway, 0, len(candidates))
	for _, c := range candidates {
		frame, err := ParseHex(c.Hex)
		if err != nil {
			continue
		}
		scored = append(scored, ScoredColourway{
			Colourway: c,
			Score:     scoreFrame(skin, tone, frame),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

func scoreFrame(skin RGB, tone SkinClassification, frame RGB) float64 {
	return contrastScore(contrast(skin, frame))*contrastWeight +
		harmonyScore(tone.Undertone, frame)*harmonyWeight +
		depthBonus(tone.Depth, frame) +
		scoreBase
}

// contrast is the Euclidean RGB distance normalised to [0,1].
func contrast(a, b RGB) float64 {
	dr := (float64(a.R) - float64(b.R)) / 255
	dg := (float64(a.G) - float64(b.G)) / 255
	db := (float64(a.B) - float64(b.B)) / 255
	return math.Sqrt(dr*dr+dg*dg+db*db) / math.Sqrt(3)
}

// contrastScore peaks at idealContrast: visible but not clashing.
func contrastScore(c float64) float64 {
	switch {
	case c < lowContrast:
		return 0.2
	case c > highContrast:
		return 0.5
	default:
		return 1 - math.Abs(c-idealContrast)*1.5
	}
}

func frameWarmth(f RGB) float64 {
	r, b := float64(f.R), float64(f.B)
	return (r - b) / (r + b + 1)
}

func harmonyScore(u Undertone, frame RGB) float64 {
	w := frameWarmth(frame)
	warm, cool := w > frameWarmMin, w < frameCoolMax

	switch {
	case (u == Warm && warm) || (u == Cool && cool):
		return 1.0
	case u == Neutral:
		return 0.85
	case u == Warm && cool:
		return 0.7
	case u == Cool && warm:
		return 0.65
	default:
		return 0.5
	}
}

// depthBonus rewards dark frames on light skin and light frames on deep
// skin. Warm metallics on Deep skin get the larger bonus.
func depthBonus(d Depth, frame RGB) float64 {
	l := frame.Luma()
	switch {
	case d == Deep && frameWarmth(frame) > frameWarmMin && l > 100:
		return 0.2
	case (d == Fair || d == Light) && l < 80:
		return 0.15
	case (d == Deep || d == Tan) && l > 140:
		return 0.15
	default:
		return 0
	}
}

// Recommend scores the candidates and builds the Colour Match result. The
// alternative falls back to the top match when only one candidate scores.
// It returns false when no candidate could be scored.
func Recommend(skin RGB, candidates []Colourway) (RecommendationResult, bool) {
	scored := ScoreColourways(skin, candidates)
	if len(scored) == 0 {
		return RecommendationResult{}, false
	}

	tone := ClassifySkin(skin)
	top := scored[0].Colourway
	alt := top
	if len(scored) > 1 {
		alt = scored[1].Colourway
	}

	return RecommendationResult{
		TopMatch:      top,
		Alternative:   alt,
		ReasoningText: Reasoning(tone, top),
		Depth:         tone.Depth,
		Undertone:     tone.Undertone,
		Skin:          skin,
	}, true
}
