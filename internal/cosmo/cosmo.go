// Package cosmo provides the fixed reference cosmology used to convert
// redshifts into luminosity distances: a flat Lambda-CDM model with the
// Planck 2015 parameters.
package cosmo

import (
	"math"

	"gonum.org/v1/gonum/integrate/quad"
)

// Planck 2015 flat Lambda-CDM parameters. Radiation and neutrino densities
// are neglected, which is accurate to better than a percent for z < 10.
const (
	HubbleConstant = 67.74  // km/s/Mpc
	OmegaM         = 0.3089 // matter density
	speedOfLight   = 299792.458
)

// quadNodes is the Gauss-Legendre node count for the comoving-distance
// integral. The integrand is smooth, so a modest fixed rule is ample.
const quadNodes = 64

// Provider maps a redshift to a luminosity distance in Mpc. The pipeline
// accepts any Provider so tests can substitute an analytic stand-in.
type Provider func(z float64) float64

// efunc is the dimensionless Hubble parameter E(z) for a flat universe.
func efunc(z float64) float64 {
	zp := 1 + z
	return math.Sqrt(OmegaM*zp*zp*zp + (1 - OmegaM))
}

// LuminosityDistance returns the luminosity distance in Mpc under the
// reference cosmology: dL(z) = (1+z) (c/H0) Integral_0^z dz'/E(z').
func LuminosityDistance(z float64) float64 {
	if z == 0 {
		return 0
	}
	integral := quad.Fixed(func(zp float64) float64 {
		return 1 / efunc(zp)
	}, 0, z, quadNodes, nil, 0)
	return (1 + z) * speedOfLight / HubbleConstant * integral
}
