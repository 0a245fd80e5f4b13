package analysis

import (
	"math"
	"testing"
)

func TestFFTImpulse(t *testing.T) {
	// The transform of a unit impulse is flat.
	data := []float64{1, 0, 0, 0}
	out := FFT(data)
	for i, c := range out {
		if math.Abs(real(c)-1) > 1e-12 || math.Abs(imag(c)) > 1e-12 {
			t.Errorf("bin %d = %v, expected 1", i, c)
		}
	}
}

func TestPowerSpectrumPeak(t *testing.T) {
	const n = 256
	data := make([]float64, n)
	for i := range data {
		data[i] = math.Sin(2 * math.Pi * 8 * float64(i) / n)
	}

	ps := PowerSpectrum(data)
	peak := 0
	for i := 1; i < len(ps); i++ {
		if ps[i] > ps[peak] {
			peak = i
		}
	}
	if peak != 8 {
		t.Errorf("peak at bin %d, expected 8", peak)
	}
}

func TestPadPow2(t *testing.T) {
	data := []float64{5, 5, 5, 5, 5} // constant, mean removed
	padded := PadPow2(data)
	if len(padded) != 8 {
		t.Fatalf("padded length %d, expected 8", len(padded))
	}
	for i, v := range padded {
		if v != 0 {
			t.Errorf("padded[%d] = %g, expected 0", i, v)
		}
	}
}

func TestDominantFrequency(t *testing.T) {
	// 1.25 Hz sine sampled at 100 Hz for 1000 samples (not a power of
	// 2), mimicking a heart rate of 75 bpm.
	const (
		dt = 0.01
		f0 = 1.25
	)
	data := make([]float64, 1000)
	for i := range data {
		data[i] = 3 + math.Sin(2*math.Pi*f0*float64(i)*dt)
	}

	freq, power := DominantFrequency(data, dt)
	if power <= 0 {
		t.Fatal("expected positive power at the peak")
	}
	// Padding to 1024 gives a bin width of ~0.098 Hz.
	if math.Abs(freq-f0) > 0.1 {
		t.Errorf("dominant frequency %g Hz, expected ~%g", freq, f0)
	}
}

func TestDominantFrequencyDegenerate(t *testing.T) {
	if f, _ := DominantFrequency(nil, 0.01); f != 0 {
		t.Errorf("empty series gave %g", f)
	}
	if f, _ := DominantFrequency([]float64{1, 2}, 0); f != 0 {
		t.Errorf("zero dt gave %g", f)
	}
}
