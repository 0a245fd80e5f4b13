// Package analysis offers spectral post-processing of recorded traces:
// an FFT-based power spectrum and heart-rate recovery from the
// dominant spectral line.
package analysis
