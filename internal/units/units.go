// Package units defines the physical constants and unit conversions used
// throughout specdb.
//
// Canonical units in the store: wavelength in micrometres, flux density in
// W m-2 um-1, mass in Jupiter masses, age in megayears, distance in parsecs,
// pressure in bar, temperature in kelvin.
package units

import (
	"fmt"
	"math"
)

// Physical constants (SI unless noted).
const (
	// Parsec is one parsec in metres.
	Parsec = 3.08567758149e16

	// RJup is the Jupiter radius in metres.
	RJup = 6.9911e7

	// MJup is the Jupiter mass in kilograms.
	MJup = 1.89813e27

	// MSun is the solar mass in kilograms.
	MSun = 1.9891e30

	// SigmaSB is the Stefan-Boltzmann constant in W m-2 K-4.
	SigmaSB = 5.670374419e-8

	// GravConst is the gravitational constant in m3 kg-1 s-2.
	GravConst = 6.67430e-11

	// PlanckH is the Planck constant in J s.
	PlanckH = 6.62607015e-34

	// LightSpeed is the speed of light in m s-1.
	LightSpeed = 2.99792458e8

	// Boltzmann is the Boltzmann constant in J K-1.
	Boltzmann = 1.380649e-23
)

// WavelengthUnit identifies the wavelength unit of an input table.
type WavelengthUnit string

// FluxUnit identifies the flux unit of an input table.
type FluxUnit string

const (
	Micron   WavelengthUnit = "um"
	Angstrom WavelengthUnit = "angstrom"

	FluxPerMicron FluxUnit = "w m-2 um-1"
	FluxTotal     FluxUnit = "w m-2"
)

// ToMicron converts a wavelength in the given unit to micrometres.
func ToMicron(value float64, unit WavelengthUnit) (float64, error) {
	switch unit {
	case Micron, "":
		return value, nil
	case Angstrom:
		return value * 1e-4, nil
	default:
		return 0, fmt.Errorf("unknown wavelength unit '%s'", unit)
	}
}

// ToFluxDensity converts a flux in the given unit to W m-2 um-1. The
// wavelength (um) is required for the W m-2 case, where the flux is divided
// by the wavelength.
func ToFluxDensity(value, wavelength float64, unit FluxUnit) (float64, error) {
	switch unit {
	case FluxPerMicron, "":
		return value, nil
	case FluxTotal:
		return value / wavelength, nil
	default:
		return 0, fmt.Errorf("unknown flux unit '%s'", unit)
	}
}

// GyrToMyr converts gigayears to megayears.
func GyrToMyr(age float64) float64 {
	return age * 1e3
}

// MSunToMJup converts solar masses to Jupiter masses.
func MSunToMJup(mass float64) float64 {
	return mass * MSun / MJup
}

// LogGravityCGS computes log10 of the surface gravity in cm s-2 from a mass
// in Jupiter masses and a radius in Jupiter radii.
func LogGravityCGS(massMJup, radiusRJup float64) float64 {
	g := GravConst * massMJup * MJup / math.Pow(radiusRJup*RJup, 2.) // (m s-2)
	return math.Log10(1e2 * g)
}

// RadiusFromScaling derives a radius (Rjup) from a flux scaling factor
// (radius/distance)^2 and a distance in parsec.
func RadiusFromScaling(scaling, distancePc float64) float64 {
	radius := math.Sqrt(scaling) * distancePc * Parsec // (m)
	return radius / RJup
}
