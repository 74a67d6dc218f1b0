// Package forward defines the forward-model collaborator interfaces used by
// the posterior accessors, the closed-form spectrum models that live in
// core, and the registry that maps a model kind to its constructor.
//
// Grid-interpolating and radiative-transfer models are external: callers
// register their constructors at startup and the accessors look them up by
// kind.
package forward

import (
	"sort"
	"sync"

	"github.com/xtxerr/specdb/internal/errors"
)

// Parameters is a name to value mapping for one posterior sample.
type Parameters map[string]float64

// Spectrum is a wavelength (um) and flux density (W m-2 um-1) pair.
type Spectrum struct {
	Wavelength []float64
	Flux       []float64
}

// Config configures a forward-model instance.
type Config struct {
	// Model is the model family name, e.g. "planck" or "drift-phoenix".
	Model string

	// WavelRange bounds the synthesized wavelengths (um). Ignored when the
	// caller resamples onto explicit wavelengths.
	WavelRange [2]float64

	// SpecRes is the spectral resolution lambda/dlambda of the synthesized
	// grid. Zero selects the model's native sampling.
	SpecRes float64

	// FilterName selects the bandpass for GetMagnitude and GetFlux.
	FilterName string

	// Photometry performs synthetic photometry for GetMagnitude/GetFlux.
	Photometry PhotometryService
}

// SpectrumModel synthesizes spectra, magnitudes and fluxes for one model
// family.
type SpectrumModel interface {
	// GetModel synthesizes a spectrum. A non-nil wavelengths slice resamples
	// onto those wavelengths instead of the configured range.
	GetModel(params Parameters, wavelengths []float64) (Spectrum, error)

	// GetMagnitude returns the synthetic magnitude and its uncertainty in
	// the configured filter.
	GetMagnitude(params Parameters) (mag, magErr float64, err error)

	// GetFlux returns the synthetic band-averaged flux and its uncertainty
	// in the configured filter.
	GetFlux(params Parameters) (flux, fluxErr float64, err error)
}

// RetrievalModel is the radiative-transfer model used by the retrieval
// accessors. Construction is expensive; one instance is reused across all
// posterior draws.
type RetrievalModel interface {
	Evaluate(params Parameters) (Spectrum, error)
}

// ChemistryModel supplies the equilibrium-chemistry quantities appended as
// derived sample columns.
type ChemistryModel interface {
	// CondensateFraction returns the mass fraction of the condensate
	// species for one sample's pressure-temperature profile.
	CondensateFraction(params Parameters, species string, pressure, temperature []float64) (float64, error)

	// QuenchPressure returns the diffusive quenching pressure (bar) for one
	// sample's pressure-temperature profile.
	QuenchPressure(params Parameters, pressure, temperature []float64) (float64, error)
}

// PhotometryService performs filter and synthetic-photometry operations.
type PhotometryService interface {
	// Transmission returns the transmission curve of a filter.
	Transmission(filterName string) (Spectrum, error)

	// MagnitudeToFlux converts an apparent magnitude and error to a flux
	// density (W m-2 um-1) and error via the filter's zero point.
	MagnitudeToFlux(filterName string, mag, magErr float64) (flux, fluxErr float64, err error)

	// SpectrumToMagnitude integrates a spectrum to an apparent magnitude.
	SpectrumToMagnitude(filterName string, spec Spectrum) (float64, error)

	// SpectrumToFlux integrates a spectrum to a band-averaged flux density.
	SpectrumToFlux(filterName string, spec Spectrum) (float64, error)

	// EffectiveWavelength returns the mean wavelength (um) of a filter.
	EffectiveWavelength(filterName string) (float64, error)
}

// ExtinctionLaw evaluates interstellar extinction for dereddening.
type ExtinctionLaw interface {
	// Magnitude returns the extinction in magnitudes at a wavelength (um)
	// for visual extinction av and reddening parameter rv.
	Magnitude(av, rv, wavelength float64) float64
}

// Factory constructs a SpectrumModel instance.
type Factory func(cfg Config) (SpectrumModel, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register adds a model kind to the registry. Registering a kind twice
// replaces the previous factory.
func Register(kind string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[kind] = factory
}

// Kinds returns the registered model kinds in sorted order.
func Kinds() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	kinds := make([]string, 0, len(registry))
	for kind := range registry {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// New constructs a model of the given kind. An unregistered kind returns
// ErrUnsupportedModel listing the valid choices.
func New(kind string, cfg Config) (SpectrumModel, error) {
	registryMu.RLock()
	factory, ok := registry[kind]
	registryMu.RUnlock()

	if !ok {
		return nil, errors.NewUnsupported(errors.ErrUnsupportedModel, kind, Kinds())
	}

	cfg.Model = kind
	return factory(cfg)
}
