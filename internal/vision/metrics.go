package vision

import "image"

// Band centres as fractions of the guide ellipse height, top to bottom.
const (
	foreheadBand  = 0.20
	templeBand    = 0.35
	cheekboneBand = 0.48
	jawBand       = 0.70
	chinBand      = 0.85
)

const (
	bandHalfRows = 6
	heightStep   = 3
	ratioStep    = 6
)

// MeasureFace extracts the guide window from frame and measures it.
func MeasureFace(frame image.Image) (FaceMetrics, bool) {
	w, ok := GuideWindow(frame)
	if !ok {
		return FaceMetrics{}, false
	}
	return MeasureWindow(w), true
}

// MeasureWindow measures horizontal skin extent at five vertical bands, the
// vertical skin extent, and a coarse skin ratio with its face-like signal.
// All values are in region-local pixels; nothing is normalised here.
func MeasureWindow(w *Window) FaceMetrics {
	ratio, faceLike := w.coarseSkin()
	return FaceMetrics{
		ForeheadWidth:  w.bandWidth(foreheadBand),
		TempleWidth:    w.bandWidth(templeBand),
		CheekboneWidth: w.bandWidth(cheekboneBand),
		JawWidth:       w.bandWidth(jawBand),
		ChinWidth:      w.bandWidth(chinBand),
		FaceHeight:     w.faceHeight(),
		SkinRatio:      ratio,
		FaceLike:       faceLike,
		GuideRadius:    w.RX,
	}
}

// bandWidth scans the ±6-row band centred at frac of the ellipse height and
// returns max-min of the skin columns found, or 0.
func (w *Window) bandWidth(frac float64) float64 {
	top := w.CY - w.RY
	center := int(top + frac*2*w.RY)

	minX, maxX := -1, -1
	for y := max(0, center-bandHalfRows); y <= min(w.Height()-1, center+bandHalfRows); y++ {
		for x := 0; x < w.Width(); x++ {
			if !w.Contains(x, y) || !IsSkinPixel(w.At(x, y)) {
				continue
			}
			if minX < 0 || x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
		}
	}
	if minX < 0 {
		return 0
	}
	return float64(maxX - minX)
}

// faceHeight is the distance between the first and last rows that contain
// any skin pixel inside the ellipse.
func (w *Window) faceHeight() float64 {
	first, last := -1, -1
	for y := 0; y < w.Height(); y += heightStep {
		if w.rowHasSkin(y) {
			if first < 0 {
				first = y
			}
			last = y
		}
	}
	if first < 0 {
		return 0
	}
	return float64(last - first)
}

func (w *Window) rowHasSkin(y int) bool {
	for x := 0; x < w.Width(); x += heightStep {
		if w.Contains(x, y) && IsSkinPixel(w.At(x, y)) {
			return true
		}
	}
	return false
}

// coarseSkin walks the ratioStep grid once, returning the skin ratio over
// the ellipse and whether skin fills the inner sub-ellipse.
func (w *Window) coarseSkin() (float64, bool) {
	var total, skin, innerTotal, innerSkin int
	for y := 0; y < w.Height(); y += ratioStep {
		for x := 0; x < w.Width(); x += ratioStep {
			if !w.Contains(x, y) {
				continue
			}
			total++
			inner := w.inner(x, y)
			if inner {
				innerTotal++
			}
			if !IsSkinPixel(w.At(x, y)) {
				continue
			}
			skin++
			if inner {
				innerSkin++
			}
		}
	}

	var ratio float64
	if total > 0 {
		ratio = float64(skin) / float64(total)
	}
	faceLike := innerTotal > 0 && float64(innerSkin)/float64(innerTotal) > faceLikeMinSkin
	return ratio, faceLike
}
