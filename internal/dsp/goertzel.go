// Package dsp turns captured audio into key up/down edges for the listen command.
package dsp

import (
	"errors"
	"math"
)

var (
	// ErrInvalidBlockSize indicates block size must be positive
	ErrInvalidBlockSize = errors.New("block size must be positive")
	// ErrInvalidSampleRate indicates sample rate must be positive
	ErrInvalidSampleRate = errors.New("sample rate must be positive")
	// ErrInvalidFrequency indicates frequency must be positive and below Nyquist
	ErrInvalidFrequency = errors.New("tone frequency must be positive and less than Nyquist frequency")
)

// Goertzel measures the energy of a single frequency bin over a fixed block.
type Goertzel struct {
	blockSize  int
	coeff      float64 // 2*cos(omega)
	normalizer float64 // 2/N, so a full-scale sine reads about 1.0
}

// NewGoertzel prepares a filter for freq at the given sample rate.
func NewGoertzel(freq, sampleRate float64, blockSize int) (*Goertzel, error) {
	switch {
	case blockSize <= 0:
		return nil, ErrInvalidBlockSize
	case sampleRate <= 0:
		return nil, ErrInvalidSampleRate
	case freq <= 0 || freq >= sampleRate/2:
		return nil, ErrInvalidFrequency
	}

	omega := 2 * math.Pi * freq / sampleRate
	return &Goertzel{
		blockSize:  blockSize,
		coeff:      2 * math.Cos(omega),
		normalizer: 2 / float64(blockSize),
	}, nil
}

// Magnitude returns the normalized magnitude of the first BlockSize samples.
// Callers must pass at least BlockSize samples.
func (g *Goertzel) Magnitude(block []float32) float64 {
	var s1, s2 float64
	for _, x := range block[:g.blockSize] {
		s0 := float64(x) + g.coeff*s1 - s2
		s2, s1 = s1, s0
	}
	power := s1*s1 + s2*s2 - g.coeff*s1*s2
	if power < 0 {
		power = 0
	}
	return math.Sqrt(power) * g.normalizer
}

// BlockSize returns the configured block size
func (g *Goertzel) BlockSize() int {
	return g.blockSize
}
