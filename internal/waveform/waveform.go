// Package waveform defines the matched-filter SNR provider interface the
// detection pipeline consumes, plus a built-in analytic provider so the
// pipeline can run without an external waveform stack.
package waveform

import (
	"errors"
	"fmt"
	"math"
)

// ErrProviderRequired is returned when an SNR computation is attempted but
// no usable waveform provider is configured. It is raised at the point of
// use, not at construction, so projection-factor-only functionality stays
// available.
var ErrProviderRequired = errors.New("waveform provider required")

// Provider computes the optimally-oriented matched-filter SNR of a compact
// binary with (detector-frame) component masses mass1 and mass2 in solar
// masses, at distanceMpc, over a frequency grid with spacing deltaF starting
// at fLow, against the named analytic noise curve.
type Provider interface {
	SNR(approximant string, mass1, mass2, distanceMpc, deltaF, fLow float64, psdName string) (float64, error)
}

// Unavailable is the Provider used when no waveform stack is present. Every
// SNR call fails fast with ErrProviderRequired.
type Unavailable struct{}

// SNR always returns ErrProviderRequired.
func (Unavailable) SNR(string, float64, float64, float64, float64, float64, string) (float64, error) {
	return 0, ErrProviderRequired
}

// PSD is a one-sided analytic noise power spectral density in 1/Hz.
type PSD func(f float64) float64

// psds is the registry of named analytic noise curves.
var psds = map[string]PSD{
	"aLIGOZeroDetHighPower": ALIGOZeroDetHighPower,
}

// LookupPSD returns the analytic noise curve registered under name.
func LookupPSD(name string) (PSD, error) {
	psd, ok := psds[name]
	if !ok {
		return nil, fmt.Errorf("waveform: unknown PSD %q", name)
	}
	return psd, nil
}

// ALIGOZeroDetHighPower is the analytic fit to the Advanced LIGO
// zero-detuning high-power design sensitivity (Ajith 2011, Eq. 4.7):
// S(f) = 1e-49 (x^-4.14 - 5 x^-2 + 111 (1 - x^2 + x^4/2)/(1 + x^2/2)),
// x = f/215 Hz.
func ALIGOZeroDetHighPower(f float64) float64 {
	x := f / 215
	x2 := x * x
	return 1e-49 * (math.Pow(x, -4.14) - 5/x2 + 111*(1-x2+x2*x2/2)/(1+x2/2))
}
