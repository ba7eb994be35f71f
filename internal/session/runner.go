// Package session drives a presence machine from a camera source with the
// kiosk timers: warm-up, polling, the detection pause and the scan clock.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/andresmejia3/facefit/internal/camera"
	"github.com/andresmejia3/facefit/internal/presence"
	"github.com/andresmejia3/facefit/internal/vision"
	"github.com/rs/zerolog/log"
)

// ErrCameraUnavailable means the source stopped for good. Callers fall back
// to vision.DefaultSkinTone instead of running the pipeline.
var ErrCameraUnavailable = errors.New("session: camera unavailable")

// Timing holds the caller-owned delays of one session.
type Timing struct {
	WarmUp time.Duration
	Poll   time.Duration
	Pause  time.Duration
	Scan   time.Duration
	// Progress is how often OnScanProgress fires during the scan.
	Progress time.Duration
}

func ColourTiming() Timing {
	return Timing{
		WarmUp:   time.Second,
		Poll:     150 * time.Millisecond,
		Pause:    800 * time.Millisecond,
		Scan:     2500 * time.Millisecond,
		Progress: 50 * time.Millisecond,
	}
}

func FitTiming() Timing {
	t := ColourTiming()
	t.Scan = 2800 * time.Millisecond
	return t
}

// Hooks let the UI play cues and animate the scan clock. Nil hooks are skipped.
type Hooks struct {
	OnPhase        func(presence.Phase)
	OnScanProgress func(elapsed, total time.Duration)
}

// Measure analyses one frame and reports its gating signal. ok is false when
// the frame could not be read.
type Measure[T any] func(frame image.Image) (m T, obs presence.Observation, ok bool)

// ColourMeasure samples the guide region for colour matching.
func ColourMeasure(frame image.Image) (vision.SkinSample, presence.Observation, bool) {
	s, ok := vision.SampleGuideRegion(frame)
	return s, presence.Observe(s), ok
}

// FitMeasure measures the face. Presence is gated on the coarse skin ratio and
// face-like signal of the measurement itself.
func FitMeasure(frame image.Image) (vision.FaceMetrics, presence.Observation, bool) {
	m, ok := vision.MeasureFace(frame)
	if !ok {
		return vision.FaceMetrics{}, presence.Observation{}, false
	}
	return m, presence.Observation{Ratio: m.SkinRatio, FaceLike: m.FaceLike}, true
}

// Runner runs one detection-to-result cycle.
type Runner[T any] struct {
	Source  camera.Source
	Machine *presence.Machine[T]
	Measure Measure[T]
	Timing  Timing
	Hooks   Hooks
}

func NewColourRunner(src camera.Source, hooks Hooks) *Runner[vision.SkinSample] {
	return &Runner[vision.SkinSample]{
		Source:  src,
		Machine: presence.NewColour(),
		Measure: ColourMeasure,
		Timing:  ColourTiming(),
		Hooks:   hooks,
	}
}

func NewFitRunner(src camera.Source, hooks Hooks) *Runner[vision.FaceMetrics] {
	return &Runner[vision.FaceMetrics]{
		Source:  src,
		Machine: presence.NewFit(),
		Measure: FitMeasure,
		Timing:  FitTiming(),
		Hooks:   hooks,
	}
}

// Run resets the machine, waits for a stable face, pauses, runs the scan
// clock and returns the seed averaged with one fresh measurement. If the
// fresh frame cannot be read the seed is averaged with itself.
func (r *Runner[T]) Run(ctx context.Context) (T, error) {
	var zero T
	r.Machine.Reset()

	// 1. Camera warm-up
	if err := sleep(ctx, r.Timing.WarmUp); err != nil {
		return zero, err
	}

	// 2. Poll until detection
	if err := r.waitForFace(ctx); err != nil {
		return zero, err
	}
	r.phase(presence.Detected)

	// 3. Cue pause
	if err := sleep(ctx, r.Timing.Pause); err != nil {
		return zero, err
	}
	if err := r.Machine.BeginScan(); err != nil {
		return zero, err
	}
	r.phase(presence.Scanning)

	// 4. Scan clock
	if err := r.scanClock(ctx); err != nil {
		return zero, err
	}

	// 5. Fresh sample, averaged with the seed
	fresh, ok := r.measure(ctx)
	if !ok {
		log.Debug().Msg("fresh frame unavailable, reusing seed")
		fresh, _ = r.Machine.Seed()
	}
	result, err := r.Machine.Complete(fresh)
	if err != nil {
		return zero, err
	}
	r.phase(presence.Result)
	return result, nil
}

func (r *Runner[T]) waitForFace(ctx context.Context) error {
	poll := r.Timing.Poll
	if poll <= 0 {
		poll = ColourTiming().Poll
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		frame, err := r.Source.Frame(ctx)
		if err != nil {
			if errors.Is(err, camera.ErrStreamEnded) {
				return fmt.Errorf("%w: %w", ErrCameraUnavailable, err)
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// No detection this tick
			continue
		}

		m, obs, ok := r.Measure(frame)
		if !ok {
			continue
		}
		if r.Machine.Poll(obs, m) {
			log.Debug().Float64("ratio", obs.Ratio).Msg("face detected")
			return nil
		}
		log.Trace().Float64("ratio", obs.Ratio).Bool("faceLike", obs.FaceLike).Int("hits", r.Machine.Hits()).Msg("poll")
	}
}

func (r *Runner[T]) scanClock(ctx context.Context) error {
	total := r.Timing.Scan
	step := r.Timing.Progress
	if step <= 0 || step > total {
		step = total
	}

	start := time.Now()
	if step > 0 {
		ticker := time.NewTicker(step)
		defer ticker.Stop()
		for {
			elapsed := time.Since(start)
			if elapsed >= total {
				break
			}
			r.progress(elapsed, total)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
	}
	r.progress(total, total)
	return nil
}

func (r *Runner[T]) measure(ctx context.Context) (T, bool) {
	var zero T
	frame, err := r.Source.Frame(ctx)
	if err != nil {
		return zero, false
	}
	m, _, ok := r.Measure(frame)
	return m, ok
}

func (r *Runner[T]) phase(p presence.Phase) {
	if r.Hooks.OnPhase != nil {
		r.Hooks.OnPhase(p)
	}
}

func (r *Runner[T]) progress(elapsed, total time.Duration) {
	if r.Hooks.OnScanProgress != nil {
		r.Hooks.OnScanProgress(elapsed, total)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
