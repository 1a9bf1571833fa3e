package tone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// fixedSource always returns the same index, clamped to the pool size.
type fixedSource struct {
	idx   int
	calls []int
}

func (f *fixedSource) IntN(n int) int {
	f.calls = append(f.calls, n)
	if f.idx >= n {
		return n - 1
	}
	return f.idx
}

func TestClassify(t *testing.T) {
	tests := []struct {
		score float64
		want  Tone
	}{
		{0.9, Positive},
		{0.21, Positive},
		{0.2, Neutral},
		{0, Neutral},
		{-0.2, Neutral},
		{-0.21, Negative},
		{-1, Negative},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.score), "score %v", tt.score)
	}
}

func TestPickerSelectsPoolForScore(t *testing.T) {
	tests := []struct {
		name  string
		score float64
		want  Tone
	}{
		{"positive", 0.75, Positive},
		{"negative", -0.6, Negative},
		{"neutral", 0.1, Neutral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fixedSource{idx: 1}
			p := NewPicker(src)

			gotTone, msg := p.Pick(tt.score)

			assert.Equal(t, tt.want, gotTone)
			assert.Contains(t, Pool(tt.want), msg)
			assert.Equal(t, []int{len(Pool(tt.want))}, src.calls, "draws once over the whole pool")
		})
	}
}

func TestPickerCoversWholePool(t *testing.T) {
	for _, tn := range []Tone{Positive, Negative, Neutral} {
		pool := Pool(tn)
		seen := make(map[string]bool)
		for i := range pool {
			_, msg := NewPicker(&fixedSource{idx: i}).Pick(scoreFor(tn))
			seen[msg] = true
		}
		assert.Len(t, seen, len(pool), "tone %s", tn)
	}
}

func TestDefaultSourceStaysInPool(t *testing.T) {
	p := NewPicker(nil)
	for i := 0; i < 50; i++ {
		tn, msg := p.Pick(-0.5)
		assert.Equal(t, Negative, tn)
		assert.Contains(t, Pool(Negative), msg)
	}
}

func TestBanner(t *testing.T) {
	tn, line := Banner(0.1)
	assert.Equal(t, Positive, tn)
	assert.Contains(t, line, "positivo")

	tn, line = Banner(-0.06)
	assert.Equal(t, Negative, tn)
	assert.Contains(t, line, "negativo")

	tn, _ = Banner(0.05)
	assert.Equal(t, Neutral, tn)
}

func TestPoolReturnsCopy(t *testing.T) {
	pool := Pool(Neutral)
	pool[0] = "changed"
	assert.NotEqual(t, "changed", Pool(Neutral)[0])
}

func scoreFor(t Tone) float64 {
	switch t {
	case Positive:
		return 1
	case Negative:
		return -1
	default:
		return 0
	}
}
