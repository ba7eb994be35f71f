package presence

import (
	"testing"

	"github.com/andresmejia3/facefit/internal/vision"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	hit  = Observation{Ratio: 0.5, FaceLike: true}
	miss = Observation{Ratio: 0.05, FaceLike: false}
)

func TestDebounceResetsOnMiss(t *testing.T) {
	m := NewColour()
	sample := vision.SkinSample{Avg: vision.RGB{R: 200, G: 150, B: 130}, Ratio: 0.5, FaceLike: true}

	for i := 0; i < 5; i++ {
		require.False(t, m.Poll(hit, sample))
	}
	assert.Equal(t, 5, m.Hits())

	require.False(t, m.Poll(miss, sample))
	assert.Equal(t, 0, m.Hits())
	assert.Equal(t, Waiting, m.Phase())

	for i := 1; i <= 5; i++ {
		require.False(t, m.Poll(hit, sample), "hit %d after reset", i)
		assert.Equal(t, Waiting, m.Phase())
	}
	require.True(t, m.Poll(hit, sample))
	assert.Equal(t, Detected, m.Phase())

	seed, ok := m.Seed()
	require.True(t, ok)
	assert.Equal(t, sample, seed)
}

func TestHitRequiresRatioAndFaceLike(t *testing.T) {
	tests := []struct {
		name string
		obs  Observation
		hit  bool
	}{
		{"at threshold", Observation{Ratio: ColourHitRatio, FaceLike: true}, true},
		{"below threshold", Observation{Ratio: ColourHitRatio - 0.001, FaceLike: true}, false},
		{"not face-like", Observation{Ratio: 0.9, FaceLike: false}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewColour()
			m.Poll(tt.obs, vision.SkinSample{})
			if tt.hit {
				assert.Equal(t, 1, m.Hits())
			} else {
				assert.Equal(t, 0, m.Hits())
			}
		})
	}

	// Fit mode uses the stricter ratio.
	fit := NewFit()
	fit.Poll(Observation{Ratio: 0.23, FaceLike: true}, vision.FaceMetrics{})
	assert.Equal(t, 0, fit.Hits())
}

func TestPhaseTransitions(t *testing.T) {
	m := New(0.2, func(a, b float64) float64 { return (a + b) / 2 })

	_, err := m.Complete(1)
	assert.ErrorIs(t, err, ErrPhase)
	assert.ErrorIs(t, m.BeginScan(), ErrPhase)
	assert.Equal(t, Waiting, m.Phase())

	for i := 0; i < RequiredHits; i++ {
		m.Poll(hit, 10)
	}
	require.Equal(t, Detected, m.Phase())

	// Polls after detection leave the seed alone.
	assert.False(t, m.Poll(hit, 99))
	_, err = m.Complete(20)
	assert.ErrorIs(t, err, ErrPhase)

	require.NoError(t, m.BeginScan())
	assert.Equal(t, Scanning, m.Phase())
	assert.ErrorIs(t, m.BeginScan(), ErrPhase)

	got, err := m.Complete(20)
	require.NoError(t, err)
	assert.Equal(t, 15.0, got)
	assert.Equal(t, Result, m.Phase())

	res, ok := m.Result()
	assert.True(t, ok)
	assert.Equal(t, 15.0, res)

	_, err = m.Complete(30)
	assert.ErrorIs(t, err, ErrPhase)
	assert.Equal(t, 15.0, m.result)
}

func TestResetFromAnyPhase(t *testing.T) {
	m := NewFit()
	metrics := vision.FaceMetrics{CheekboneWidth: 60, SkinRatio: 0.4}
	for i := 0; i < RequiredHits; i++ {
		m.Poll(hit, metrics)
	}
	require.NoError(t, m.BeginScan())

	m.Reset()
	assert.Equal(t, Waiting, m.Phase())
	assert.Equal(t, 0, m.Hits())
	_, ok := m.Seed()
	assert.False(t, ok)
	_, ok = m.Result()
	assert.False(t, ok)
}

func TestColourCompleteAveragesSamples(t *testing.T) {
	m := NewColour()
	seed := vision.SkinSample{Avg: vision.RGB{R: 200, G: 150, B: 130}, Ratio: 0.4, FaceLike: true}
	fresh := vision.SkinSample{Avg: vision.RGB{R: 190, G: 141, B: 120}, Ratio: 0.6, FaceLike: true}

	for i := 0; i < RequiredHits; i++ {
		m.Poll(Observe(seed), seed)
	}
	require.NoError(t, m.BeginScan())
	got, err := m.Complete(fresh)
	require.NoError(t, err)
	assert.Equal(t, vision.RGB{R: 195, G: 146, B: 125}, got.Avg)
	assert.InDelta(t, 0.5, got.Ratio, 1e-9)
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "Scanning", Scanning.String())
	assert.Equal(t, "Phase(7)", Phase(7).String())
}
