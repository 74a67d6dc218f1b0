package forward

import (
	"math"

	"github.com/xtxerr/specdb/internal/numeric"
	"github.com/xtxerr/specdb/internal/units"
)

// EffectiveTemperature derives the effective temperature (K) from a
// synthesized spectrum observed at distancePc (pc) for a body of radius
// radiusRJup (Rjup): the flux density is scaled back to the surface with
// (distance/radius)^2, integrated over wavelength, and inverted through the
// Stefan-Boltzmann law.
func EffectiveTemperature(spec Spectrum, distancePc, radiusRJup float64) (float64, error) {
	scaling := math.Pow(distancePc*units.Parsec/(radiusRJup*units.RJup), 2.)

	surface := make([]float64, len(spec.Flux))
	for i, f := range spec.Flux {
		surface[i] = scaling * f
	}

	total, err := numeric.Simpson(surface, spec.Wavelength)
	if err != nil {
		return 0, err
	}

	return math.Pow(total/units.SigmaSB, 0.25), nil
}
