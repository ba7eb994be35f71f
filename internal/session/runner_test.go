package session

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/andresmejia3/facefit/internal/camera"
	"github.com/andresmejia3/facefit/internal/presence"
	"github.com/andresmejia3/facefit/internal/vision"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	skin       = color.RGBA{200, 150, 130, 255}
	background = color.RGBA{70, 90, 140, 255}
)

func fastTiming() Timing {
	return Timing{
		WarmUp:   time.Millisecond,
		Poll:     time.Millisecond,
		Pause:    time.Millisecond,
		Scan:     5 * time.Millisecond,
		Progress: time.Millisecond,
	}
}

func solid(c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 160, 120))
	for y := 0; y < 120; y++ {
		for x := 0; x < 160; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// face paints a skin ellipse centred on the guide.
func face() *image.RGBA {
	img := solid(background)
	g := vision.GuideForFrame(160, 120)
	for y := 0; y < 120; y++ {
		for x := 0; x < 160; x++ {
			dx := (float64(x) - g.CenterX) / (g.RadiusX * 0.8)
			dy := (float64(y) - g.CenterY) / (g.RadiusY * 0.9)
			if dx*dx+dy*dy <= 1 {
				img.SetRGBA(x, y, skin)
			}
		}
	}
	return img
}

// scriptedSource replays a fixed list of frames or errors, repeating the last.
type scriptedSource struct {
	mu    sync.Mutex
	steps []any
	calls int
}

func (s *scriptedSource) Frame(ctx context.Context) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	step := s.steps[min(s.calls, len(s.steps)-1)]
	s.calls++
	switch v := step.(type) {
	case error:
		return nil, v
	case image.Image:
		return v, nil
	}
	return nil, errors.New("bad step")
}

func (s *scriptedSource) Close() error { return nil }

func TestColourRunner(t *testing.T) {
	var phases []presence.Phase
	var lastElapsed, lastTotal time.Duration
	hooks := Hooks{
		OnPhase: func(p presence.Phase) { phases = append(phases, p) },
		OnScanProgress: func(elapsed, total time.Duration) {
			lastElapsed, lastTotal = elapsed, total
		},
	}

	src := camera.NewStillSource(solid(skin))
	r := NewColourRunner(src, hooks)
	r.Timing = fastTiming()

	got, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, vision.RGB{R: 200, G: 150, B: 130}, got.Avg)
	assert.Equal(t, []presence.Phase{presence.Detected, presence.Scanning, presence.Result}, phases)
	assert.Equal(t, lastTotal, lastElapsed)
	assert.Equal(t, 5*time.Millisecond, lastTotal)
	assert.Equal(t, presence.Result, r.Machine.Phase())
}

func TestRunnerDebouncesMisses(t *testing.T) {
	hit, miss := solid(skin), solid(background)
	src := &scriptedSource{steps: []any{
		hit, hit, hit, hit, hit, miss,
		camera.ErrNoFrame, // read failure counts as no detection
		hit, hit, hit, hit, hit, hit,
	}}

	r := NewColourRunner(src, Hooks{})
	r.Timing = fastTiming()
	_, err := r.Run(context.Background())
	require.NoError(t, err)

	// 13 polls to detect plus one fresh frame.
	assert.Equal(t, 14, src.calls)
}

func TestRunnerFallsBackToSeed(t *testing.T) {
	hit := solid(skin)
	steps := []any{}
	for i := 0; i < presence.RequiredHits; i++ {
		steps = append(steps, hit)
	}
	steps = append(steps, camera.ErrNoFrame)

	r := NewColourRunner(&scriptedSource{steps: steps}, Hooks{})
	r.Timing = fastTiming()
	got, err := r.Run(context.Background())
	require.NoError(t, err)

	seed, _ := r.Machine.Seed()
	assert.Equal(t, seed.Avg, got.Avg)
	assert.Equal(t, 1.0, got.Ratio)
}

func TestRunnerCameraUnavailable(t *testing.T) {
	src := &scriptedSource{steps: []any{camera.ErrNoFrame, camera.ErrStreamEnded}}
	r := NewColourRunner(src, Hooks{})
	r.Timing = fastTiming()

	_, err := r.Run(context.Background())
	assert.ErrorIs(t, err, ErrCameraUnavailable)
	assert.ErrorIs(t, err, camera.ErrStreamEnded)
}

func TestRunnerCancellation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	r := NewColourRunner(camera.NewStillSource(solid(background)), Hooks{})
	r.Timing = fastTiming()

	_, err := r.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, presence.Waiting, r.Machine.Phase())
}

func TestFitRunner(t *testing.T) {
	r := NewFitRunner(camera.NewStillSource(face()), Hooks{})
	r.Timing = fastTiming()

	got, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Greater(t, got.CheekboneWidth, 0.0)
	assert.Greater(t, got.FaceHeight, 0.0)
	assert.Greater(t, got.SkinRatio, presence.FitHitRatio)
	assert.True(t, got.FaceLike)
	assert.Greater(t, got.GuideRadius, 0.0)
}

func TestDefaultTimings(t *testing.T) {
	c, f := ColourTiming(), FitTiming()
	assert.Equal(t, time.Second, c.WarmUp)
	assert.Equal(t, 150*time.Millisecond, c.Poll)
	assert.Equal(t, 800*time.Millisecond, c.Pause)
	assert.Equal(t, 2500*time.Millisecond, c.Scan)
	assert.Equal(t, 2800*time.Millisecond, f.Scan)
}
