// Package presence debounces per-poll skin observations into a stable
// "face detected" transition and carries the frozen seed measurement through
// the scan.
//
// A Machine holds no timers. The caller polls it, waits, and advances it.
package presence

import (
	"errors"
	"fmt"

	"github.com/andresmejia3/facefit/internal/vision"
)

// Phase is the position of a Machine in Waiting -> Detected -> Scanning -> Result.
type Phase int

const (
	Waiting Phase = iota
	Detected
	Scanning
	Result
)

var phaseNames = [...]string{"Waiting", "Detected", "Scanning", "Result"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("Phase(%d)", int(p))
	}
	return phaseNames[p]
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

const (
	// RequiredHits is the number of consecutive hits that promotes Waiting
	// to Detected.
	RequiredHits = 6

	ColourHitRatio = 0.22
	FitHitRatio    = 0.25
)

// ErrPhase is returned when a transition is requested from the wrong phase.
var ErrPhase = errors.New("presence: transition not allowed in current phase")

// Observation is the gating signal of a single poll.
type Observation struct {
	Ratio    float64
	FaceLike bool
}

// Observe turns a skin sample into its gating signal.
func Observe(s vision.SkinSample) Observation {
	return Observation{Ratio: s.Ratio, FaceLike: s.FaceLike}
}

// Hit reports whether the observation counts towards detection at hitRatio.
func (o Observation) Hit(hitRatio float64) bool {
	return o.Ratio >= hitRatio && o.FaceLike
}

// Machine is the presence state machine. T is the measurement frozen on
// detection and averaged with a fresh one when the scan completes.
type Machine[T any] struct {
	hitRatio float64
	average  func(a, b T) T

	phase  Phase
	hits   int
	seed   T
	result T
}

// New returns a Machine in Waiting. A poll hits when its ratio is at least
// hitRatio and it is face-like.
func New[T any](hitRatio float64, average func(a, b T) T) *Machine[T] {
	return &Machine[T]{hitRatio: hitRatio, average: average}
}

// NewColour returns the machine used by colour matching.
func NewColour() *Machine[vision.SkinSample] {
	return New(ColourHitRatio, vision.AverageSamples)
}

// NewFit returns the machine used by fit and sizing.
func NewFit() *Machine[vision.FaceMetrics] {
	return New(FitHitRatio, vision.AverageMetrics)
}

func (m *Machine[T]) Phase() Phase { return m.phase }

// Hits is the current consecutive-hit count.
func (m *Machine[T]) Hits() int { return m.hits }

// Seed returns the measurement frozen on detection.
func (m *Machine[T]) Seed() (T, bool) {
	return m.seed, m.phase != Waiting
}

// Result returns the averaged measurement once the machine is in Result.
func (m *Machine[T]) Result() (T, bool) {
	return m.result, m.phase == Result
}

// Poll records one observation while Waiting. Any miss resets the hit
// counter. On the RequiredHits-th consecutive hit sample is frozen as the
// seed, the machine moves to Detected and Poll returns true. Outside
// Waiting Poll is a no-op returning false.
func (m *Machine[T]) Poll(obs Observation, sample T) bool {
	if m.phase != Waiting {
		return false
	}
	if !obs.Hit(m.hitRatio) {
		m.hits = 0
		return false
	}

	m.hits++
	if m.hits < RequiredHits {
		return false
	}
	m.seed = sample
	m.phase = Detected
	return true
}

// BeginScan moves Detected to Scanning.
func (m *Machine[T]) BeginScan() error {
	if m.phase != Detected {
		return fmt.Errorf("begin scan from %s: %w", m.phase, ErrPhase)
	}
	m.phase = Scanning
	return nil
}

// Complete averages fresh with the frozen seed, moves Scanning to Result
// and returns the averaged measurement.
func (m *Machine[T]) Complete(fresh T) (T, error) {
	if m.phase != Scanning {
		var zero T
		return zero, fmt.Errorf("complete from %s: %w", m.phase, ErrPhase)
	}
	m.result = m.average(m.seed, fresh)
	m.phase = Result
	return m.result, nil
}

// Reset returns the machine to Waiting with cleared counters from any phase.
func (m *Machine[T]) Reset() {
	var zero T
	m.phase = Waiting
	m.hits = 0
	m.seed = zero
	m.result = zero
}
