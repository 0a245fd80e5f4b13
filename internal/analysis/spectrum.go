package analysis

import (
	"math"
	"math/cmplx"
)

func FFT(data []float64) []complex128 {
	n := len(data)
	if n <= 1 {
		result := make([]complex128, n)
		for i := range data {
			result[i] = complex(data[i], 0)
		}
		return result
	}

	if n%2 != 0 {
		panic("fft requires power of 2 length")
	}

	even := make([]float64, n/2)
	odd := make([]float64, n/2)

	for i := 0; i < n/2; i++ {
		even[i] = data[2*i]
		odd[i] = data[2*i+1]
	}

	feven := FFT(even)
	fodd := FFT(odd)

	result := make([]complex128, n)
	for k := 0; k < n/2; k++ {
		w := cmplx.Exp(complex(0, -2*math.Pi*float64(k)/float64(n)))
		result[k] = feven[k] + w*fodd[k]
		result[k+n/2] = feven[k] - w*fodd[k]
	}

	return result
}

func PowerSpectrum(data []float64) []float64 {
	fft := FFT(data)
	ps := make([]float64, len(fft)/2)

	for i := range ps {
		ps[i] = cmplx.Abs(fft[i])
	}

	return ps
}

// PadPow2 zero-pads a series up to the next power-of-2 length after
// removing its mean, so a pressure trace of arbitrary length can go
// through FFT without the DC term swamping the harmonics.
func PadPow2(data []float64) []float64 {
	n := 1
	for n < len(data) {
		n *= 2
	}

	mean := 0.0
	for _, v := range data {
		mean += v
	}
	if len(data) > 0 {
		mean /= float64(len(data))
	}

	padded := make([]float64, n)
	for i, v := range data {
		padded[i] = v - mean
	}
	return padded
}

// DominantFrequency picks the strongest spectral line of a uniformly
// sampled series and converts it to Hz. For a periodic circulation run
// this recovers the heart rate.
func DominantFrequency(data []float64, dt float64) (freq, power float64) {
	padded := PadPow2(data)
	if len(padded) < 2 || dt <= 0 {
		return 0, 0
	}
	ps := PowerSpectrum(padded)
	if len(ps) < 2 {
		return 0, 0
	}

	best := 1 // skip the residual DC bin
	for i := 2; i < len(ps); i++ {
		if ps[i] > ps[best] {
			best = i
		}
	}

	df := 1.0 / (float64(len(padded)) * dt)
	return float64(best) * df, ps[best]
}
