package waveform

import (
	"fmt"
	"math"
)

// Physical constants (SI).
const (
	gravG        = 6.67430e-11           // m^3 kg^-1 s^-2
	speedOfLight = 2.99792458e8
	solarMass    = 1.98892e30            // kg
	megaparsec   = 3.0856775814913673e22 // m
)

// Newtonian is a self-contained Provider implementing the restricted
// Newtonian (quadrupole) frequency-domain inspiral:
//
//	|h(f)| = sqrt(5/24) pi^(-2/3) c (G Mc / c^3)^(5/6) f^(-7/6) / d
//
// integrated up to the Schwarzschild ISCO frequency. The approximant label
// is carried through for cache fingerprinting only; the model itself is
// always the Newtonian amplitude.
type Newtonian struct{}

// SNR returns the optimally-oriented matched-filter SNR:
// rho^2 = 4 Integral_fLow^fISCO |h(f)|^2 / S_n(f) df, as a Riemann sum on
// the deltaF grid. An ISCO at or below fLow yields SNR 0 (the signal is
// entirely outside the sensitive band).
func (Newtonian) SNR(approximant string, mass1, mass2, distanceMpc, deltaF, fLow float64, psdName string) (float64, error) {
	psd, err := LookupPSD(psdName)
	if err != nil {
		return 0, err
	}
	if mass1 <= 0 || mass2 <= 0 {
		return 0, fmt.Errorf("waveform: non-positive masses %g, %g", mass1, mass2)
	}
	if deltaF <= 0 || fLow <= 0 {
		return 0, fmt.Errorf("waveform: non-positive frequency parameters deltaF=%g fLow=%g", deltaF, fLow)
	}

	m1 := mass1 * solarMass
	m2 := mass2 * solarMass
	total := m1 + m2
	chirp := math.Pow(m1*m2, 0.6) / math.Pow(total, 0.2)

	fISCO := speedOfLight * speedOfLight * speedOfLight /
		(6 * math.Sqrt(6) * math.Pi * gravG * total)
	if fISCO <= fLow {
		return 0, nil
	}

	d := distanceMpc * megaparsec
	amp := math.Sqrt(5.0/24.0) * math.Pow(math.Pi, -2.0/3.0) * speedOfLight *
		math.Pow(gravG*chirp/(speedOfLight*speedOfLight*speedOfLight), 5.0/6.0) / d
	amp2 := amp * amp

	var snr2 float64
	for f := fLow; f < fISCO; f += deltaF {
		snr2 += 4 * amp2 * math.Pow(f, -7.0/3.0) / psd(f) * deltaF
	}
	return math.Sqrt(snr2), nil
}
