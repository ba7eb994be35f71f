package vision

import (
	"image"
	"math"

	xdraw "golang.org/x/image/draw"
)

// Guide oval proportions relative to the frame.
const (
	guideCenterXFrac = 0.50
	guideCenterYFrac = 0.46
	guideRadiusXFrac = 0.22
	guideRadiusYFrac = 0.34
)

const (
	// maxWindowWidth bounds the per-tick cost of a scan. Wider windows are
	// downscaled when drawn offscreen.
	maxWindowWidth = 240

	sampleStep      = 4
	innerZoneFrac   = 0.60
	faceLikeMinSkin = 0.30
)

// GuideRegion is the on-screen guide ellipse in frame-pixel coordinates.
type GuideRegion struct {
	CenterX float64 `json:"center_x"`
	CenterY float64 `json:"center_y"`
	RadiusX float64 `json:"radius_x"`
	RadiusY float64 `json:"radius_y"`
}

// GuideForFrame returns the guide ellipse for a frame of the given size.
func GuideForFrame(width, height int) GuideRegion {
	w, h := float64(width), float64(height)
	return GuideRegion{
		CenterX: w * guideCenterXFrac,
		CenterY: h * guideCenterYFrac,
		RadiusX: w * guideRadiusXFrac,
		RadiusY: h * guideRadiusYFrac,
	}
}

// Contains reports whether (x, y) lies inside or on the ellipse.
func (g GuideRegion) Contains(x, y float64) bool {
	return inEllipse(x-g.CenterX, y-g.CenterY, g.RadiusX, g.RadiusY)
}

// Bounds is the integer rectangle bounding the ellipse.
func (g GuideRegion) Bounds() image.Rectangle {
	return image.Rect(
		int(math.Floor(g.CenterX-g.RadiusX)),
		int(math.Floor(g.CenterY-g.RadiusY)),
		int(math.Ceil(g.CenterX+g.RadiusX))+1,
		int(math.Ceil(g.CenterY+g.RadiusY))+1,
	)
}

func inEllipse(dx, dy, rx, ry float64) bool {
	if rx <= 0 || ry <= 0 {
		return false
	}
	nx, ny := dx/rx, dy/ry
	return nx*nx+ny*ny <= 1
}

// Window is the rectangular pixel window bounding the guide ellipse, drawn
// offscreen so that its origin is (0,0). The ellipse is stored in the same
// region-local coordinates.
type Window struct {
	Pix *image.RGBA
	CX  float64
	CY  float64
	RX  float64
	RY  float64
}

// Extract draws the part of frame covered by guide into a fresh RGBA buffer.
// It returns false when the frame is unreadable or the guide falls outside it.
func Extract(frame image.Image, guide GuideRegion) (*Window, bool) {
	if frame == nil || guide.RadiusX <= 0 || guide.RadiusY <= 0 {
		return nil, false
	}
	src := guide.Bounds().Intersect(frame.Bounds())
	if src.Empty() {
		return nil, false
	}

	// Ellipse relative to the window origin, before any scaling
	cx := guide.CenterX - float64(src.Min.X)
	cy := guide.CenterY - float64(src.Min.Y)
	rx, ry := guide.RadiusX, guide.RadiusY

	scale := 1.0
	if src.Dx() > maxWindowWidth {
		scale = float64(maxWindowWidth) / float64(src.Dx())
	}
	dw := max(1, int(math.Round(float64(src.Dx())*scale)))
	dh := max(1, int(math.Round(float64(src.Dy())*scale)))
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))

	if scale == 1.0 {
		xdraw.Copy(dst, image.Point{}, frame, src, xdraw.Src, nil)
	} else {
		xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), frame, src, xdraw.Src, nil)
	}

	return &Window{
		Pix: dst,
		CX:  cx * scale,
		CY:  cy * scale,
		RX:  rx * scale,
		RY:  ry * scale,
	}, true
}

// Width and Height of the window in region-local pixels.
func (w *Window) Width() int  { return w.Pix.Rect.Dx() }
func (w *Window) Height() int { return w.Pix.Rect.Dy() }

// Contains reports whether the region-local pixel (x, y) is inside the ellipse.
func (w *Window) Contains(x, y int) bool {
	return inEllipse(float64(x)-w.CX, float64(y)-w.CY, w.RX, w.RY)
}

// inner reports whether (x, y) is inside the 60%-radius sub-ellipse.
func (w *Window) inner(x, y int) bool {
	return inEllipse(float64(x)-w.CX, float64(y)-w.CY, w.RX*innerZoneFrac, w.RY*innerZoneFrac)
}

// At reads the pixel at region-local (x, y) straight from the buffer.
func (w *Window) At(x, y int) RGB {
	off := y*w.Pix.Stride + x*4
	p := w.Pix.Pix
	return RGB{R: p[off], G: p[off+1], B: p[off+2]}
}

// SampleGuideRegion scans the guide ellipse of frame on a coarse grid and
// summarises its skin content. The second result is false when the frame
// could not be read; callers treat that as "no detection this tick".
func SampleGuideRegion(frame image.Image) (SkinSample, bool) {
	w, ok := GuideWindow(frame)
	if !ok {
		return SkinSample{}, false
	}
	return SampleWindow(w), true
}

// GuideWindow extracts the window under the standard guide of frame.
func GuideWindow(frame image.Image) (*Window, bool) {
	if frame == nil {
		return nil, false
	}
	b := frame.Bounds()
	return Extract(frame, GuideForFrame(b.Dx(), b.Dy()).offset(b.Min))
}

// offset translates a guide computed for a zero-origin frame.
func (g GuideRegion) offset(p image.Point) GuideRegion {
	g.CenterX += float64(p.X)
	g.CenterY += float64(p.Y)
	return g
}

// SampleWindow computes the skin ratio, face-like signal and average skin
// colour of an extracted window. With no skin pixels the average falls back
// to DefaultSkinTone.
func SampleWindow(w *Window) SkinSample {
	var total, skin, innerTotal, innerSkin int
	var sumR, sumG, sumB int

	for y := 0; y < w.Height(); y += sampleStep {
		for x := 0; x < w.Width(); x += sampleStep {
			if !w.Contains(x, y) {
				continue
			}
			total++
			inner := w.inner(x, y)
			if inner {
				innerTotal++
			}

			c := w.At(x, y)
			if !IsSkinPixel(c) {
				continue
			}
			skin++
			sumR += int(c.R)
			sumG += int(c.G)
			sumB += int(c.B)
			if inner {
				innerSkin++
			}
		}
	}

	s := SkinSample{Avg: DefaultSkinTone, Sampled: total}
	if total > 0 {
		s.Ratio = float64(skin) / float64(total)
	}
	if skin > 0 {
		s.Avg = RGB{
			R: uint8(sumR / skin),
			G: uint8(sumG / skin),
			B: uint8(sumB / skin),
		}
	}
	if innerTotal > 0 {
		s.FaceLike = float64(innerSkin)/float64(innerTotal) > faceLikeMinSkin
	}
	return s
}
