// Package vision implements the frame-local heuristics behind the kiosk's
// Colour Match and Fit & Sizing modes: skin sampling inside the guide oval,
// skin-tone classification, colourway scoring, face measurement and shape
// classification. Every function is pure; state between polls lives in the
// caller (see package presence).
package vision

import (
	"fmt"
	"strconv"
	"strings"
)

// RGB is a single pixel sample. Channels are bounded 0-255 by the type.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Luma returns the BT.601 perceptual luminance of c.
func (c RGB) Luma() float64 {
	return luma(float64(c.R), float64(c.G), float64(c.B))
}

// Hex formats c as #rrggbb.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func luma(r, g, b float64) float64 {
	return 0.299*r + 0.587*g + 0.114*b
}

// ParseHex decodes "#RRGGBB", "RRGGBB" or the short "#RGB" form.
func ParseHex(s string) (RGB, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return RGB{}, fmt.Errorf("invalid hex colour %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("invalid hex colour %q: %w", s, err)
	}
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// DefaultSkinTone is the neutral mid-tone estimate returned when no skin
// pixels were sampled. It classifies as Medium / Neutral. Callers that cannot
// open a camera use it as their fixed fallback.
var DefaultSkinTone = RGB{R: 180, G: 140, B: 120}

// SkinSample is the per-poll summary of a guide-region scan.
type SkinSample struct {
	Avg      RGB     `json:"avg"`
	Ratio    float64 `json:"ratio"`     // fraction of sampled pixels classified as skin, [0,1]
	FaceLike bool    `json:"face_like"` // skin concentrated in the inner 60% sub-ellipse
	Sampled  int     `json:"sampled"`
}

// AverageSamples merges two time-separated samples component-wise.
func AverageSamples(a, b SkinSample) SkinSample {
	return SkinSample{
		Avg: RGB{
			R: uint8((int(a.Avg.R) + int(b.Avg.R) + 1) / 2),
			G: uint8((int(a.Avg.G) + int(b.Avg.G) + 1) / 2),
			B: uint8((int(a.Avg.B) + int(b.Avg.B) + 1) / 2),
		},
		Ratio:    (a.Ratio + b.Ratio) / 2,
		FaceLike: a.FaceLike && b.FaceLike,
		Sampled:  a.Sampled + b.Sampled,
	}
}

// Depth is the lightness bucket of a skin tone.
type Depth int

const (
	Fair Depth = iota
	Light
	Medium
	Tan
	Deep
)

var depthNames = [...]string{"Fair", "Light", "Medium", "Tan", "Deep"}

func (d Depth) String() string {
	if d < Fair || d > Deep {
		return "Depth(" + strconv.Itoa(int(d)) + ")"
	}
	return depthNames[d]
}

func (d Depth) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Depth) UnmarshalText(text []byte) error {
	i, err := parseName("Depth", depthNames[:], text)
	if err != nil {
		return err
	}
	*d = Depth(i)
	return nil
}

// Undertone is the warm/cool colour bias of a skin tone.
type Undertone int

const (
	Warm Undertone = iota
	Cool
	Neutral
)

var undertoneNames = [...]string{"Warm", "Cool", "Neutral"}

func (u Undertone) String() string {
	if u < Warm || u > Neutral {
		return "Undertone(" + strconv.Itoa(int(u)) + ")"
	}
	return undertoneNames[u]
}

func (u Undertone) MarshalText() ([]byte, error) { return []byte(u.String()), nil }

func (u *Undertone) UnmarshalText(text []byte) error {
	i, err := parseName("Undertone", undertoneNames[:], text)
	if err != nil {
		return err
	}
	*u = Undertone(i)
	return nil
}

// SkinClassification is the two-axis result of ClassifySkin.
type SkinClassification struct {
	Depth     Depth     `json:"depth"`
	Undertone Undertone `json:"undertone"`
}

// Colourway is one frame finish from the product catalog.
type Colourway struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Hex       string  `json:"hex"`
	Metalness float64 `json:"metalness"`
	Roughness float64 `json:"roughness"`
}

// NewColourway validates the catalog fields and returns the colourway.
func NewColourway(id, name, hex string, metalness, roughness float64) (Colourway, error) {
	if strings.TrimSpace(id) == "" {
		return Colourway{}, fmt.Errorf("colourway id must not be empty")
	}
	if _, err := ParseHex(hex); err != nil {
		return Colourway{}, fmt.Errorf("colourway %s: %w", id, err)
	}
	if metalness < 0 || metalness > 1 {
		return Colourway{}, fmt.Errorf("colourway %s: metalness must be between 0.0 and 1.0, got %f", id, metalness)
	}
	if roughness < 0 || roughness > 1 {
		return Colourway{}, fmt.Errorf("colourway %s: roughness must be between 0.0 and 1.0, got %f", id, roughness)
	}
	return Colourway{ID: id, Name: name, Hex: hex, Metalness: metalness, Roughness: roughness}, nil
}

// ScoredColourway pairs a candidate with its score. Scores are only
// comparable within a single ScoreColourways call.
type ScoredColourway struct {
	Colourway Colourway `json:"colourway"`
	Score     float64   `json:"score"`
}

// RecommendationResult is the Colour Match output.
type RecommendationResult struct {
	TopMatch      Colourway `json:"top_match"`
	Alternative   Colourway `json:"alternative"`
	ReasoningText string    `json:"reasoning_text"`
	Depth         Depth     `json:"depth"`
	Undertone     Undertone `json:"undertone"`
	Skin          RGB       `json:"skin"`
}

// FaceMetrics holds band widths and face height in region-local pixels.
type FaceMetrics struct {
	ForeheadWidth  float64 `json:"forehead_width"`
	TempleWidth    float64 `json:"temple_width"`
	CheekboneWidth float64 `json:"cheekbone_width"`
	JawWidth       float64 `json:"jaw_width"`
	ChinWidth      float64 `json:"chin_width"`
	FaceHeight     float64 `json:"face_height"`
	SkinRatio      float64 `json:"skin_ratio"`
	FaceLike       bool    `json:"face_like"`
	// GuideRadius is the guide ellipse's horizontal radius in the same units.
	// It is reported for diagnostics; sizing uses EstimatedOvalRadius.
	GuideRadius float64 `json:"guide_radius"`
}

// AverageMetrics averages two measurements field by field.
func AverageMetrics(a, b FaceMetrics) FaceMetrics {
	return FaceMetrics{
		ForeheadWidth:  (a.ForeheadWidth + b.ForeheadWidth) / 2,
		TempleWidth:    (a.TempleWidth + b.TempleWidth) / 2,
		CheekboneWidth: (a.CheekboneWidth + b.CheekboneWidth) / 2,
		JawWidth:       (a.JawWidth + b.JawWidth) / 2,
		ChinWidth:      (a.ChinWidth + b.ChinWidth) / 2,
		FaceHeight:     (a.FaceHeight + b.FaceHeight) / 2,
		SkinRatio:      (a.SkinRatio + b.SkinRatio) / 2,
		FaceLike:       a.FaceLike && b.FaceLike,
		GuideRadius:    (a.GuideRadius + b.GuideRadius) / 2,
	}
}

// FaceShape is the rule-based shape category.
type FaceShape int

const (
	Oval FaceShape = iota
	Round
	Square
	Heart
	Oblong
)

var shapeNames = [...]string{"Oval", "Round", "Square", "Heart", "Oblong"}

func (s FaceShape) String() string {
	if s < Oval || s > Oblong {
		return "FaceShape(" + strconv.Itoa(int(s)) + ")"
	}
	return shapeNames[s]
}

func (s FaceShape) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *FaceShape) UnmarshalText(text []byte) error {
	i, err := parseName("FaceShape", shapeNames[:], text)
	if err != nil {
		return err
	}
	*s = FaceShape(i)
	return nil
}

// Verdict is the fixed fit verdict carried by each shape.
type Verdict int

const (
	GreatFit Verdict = iota
	GoodFit
	ConsiderAlternatives
)

var verdictNames = [...]string{"GreatFit", "GoodFit", "ConsiderAlternatives"}

func (v Verdict) String() string {
	if v < GreatFit || v > ConsiderAlternatives {
		return "Verdict(" + strconv.Itoa(int(v)) + ")"
	}
	return verdictNames[v]
}

func (v Verdict) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

func (v *Verdict) UnmarshalText(text []byte) error {
	i, err := parseName("Verdict", verdictNames[:], text)
	if err != nil {
		return err
	}
	*v = Verdict(i)
	return nil
}

// SizeSpec is one row of a product's size table, in millimetres.
type SizeSpec struct {
	LensWidth    int `json:"lens_width" yaml:"lens_width"`
	Bridge       int `json:"bridge" yaml:"bridge"`
	TempleLength int `json:"temple_length" yaml:"temple_length"`
}

// SizeTable maps a catalog size key (e.g. "S", "M", "L") to its dimensions.
type SizeTable map[string]SizeSpec

// SizeRecommendation is the size picked for a face.
type SizeRecommendation struct {
	SizeKey      string `json:"size_key"`
	LensWidth    int    `json:"lens_width"`
	Bridge       int    `json:"bridge"`
	TempleLength int    `json:"temple_length"`
}

// FitRecommendation is the Fit & Sizing output.
type FitRecommendation struct {
	Shape       FaceShape          `json:"shape"`
	Verdict     Verdict            `json:"verdict"`
	SizeKey     string             `json:"size_key"`
	Size        SizeRecommendation `json:"size"`
	Explanation string             `json:"explanation"`
}

func parseName(kind string, names []string, text []byte) (int, error) {
	for i, n := range names {
		if n == string(text) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown %s %q", kind, text)
}
