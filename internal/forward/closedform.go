package forward

import (
	"fmt"
	"math"

	"github.com/xtxerr/specdb/internal/errors"
	"github.com/xtxerr/specdb/internal/units"
)

func init() {
	Register("planck", func(cfg Config) (SpectrumModel, error) {
		return &planckModel{closedForm{cfg}}, nil
	})
	Register("powerlaw", func(cfg Config) (SpectrumModel, error) {
		return &powerlawModel{closedForm{cfg}}, nil
	})
}

// defaultSpecRes is the synthesized resolution when none is configured.
const defaultSpecRes = 500.

// closedForm carries the shared wavelength sampling and synthetic-photometry
// plumbing of the analytic models.
type closedForm struct {
	cfg Config
}

// wavelengthGrid builds a log-sampled grid over the configured range with
// step lambda/R.
func (m closedForm) wavelengthGrid() ([]float64, error) {
	lo, hi := m.cfg.WavelRange[0], m.cfg.WavelRange[1]
	if lo <= 0 || hi <= lo {
		return nil, errors.NewValidation("wavelength range", fmt.Sprintf("[%g, %g]", lo, hi))
	}

	res := m.cfg.SpecRes
	if res <= 0 {
		res = defaultSpecRes
	}

	grid := []float64{}
	for w := lo; w <= hi; w *= 1. + 1./res {
		grid = append(grid, w)
	}
	return grid, nil
}

func (m closedForm) filterGrid() ([]float64, error) {
	if m.cfg.Photometry == nil || m.cfg.FilterName == "" {
		return nil, errors.NewValidation("filter", "photometry service and filter name required")
	}

	curve, err := m.cfg.Photometry.Transmission(m.cfg.FilterName)
	if err != nil {
		return nil, err
	}
	return curve.Wavelength, nil
}

func (m closedForm) magnitude(spec Spectrum) (float64, float64, error) {
	mag, err := m.cfg.Photometry.SpectrumToMagnitude(m.cfg.FilterName, spec)
	return mag, 0, err
}

func (m closedForm) flux(spec Spectrum) (float64, float64, error) {
	flux, err := m.cfg.Photometry.SpectrumToFlux(m.cfg.FilterName, spec)
	return flux, 0, err
}

// planckModel synthesizes blackbody spectra scaled by the solid angle
// (radius/distance)^2. Parameters: teff (K), radius (Rjup), distance (pc).
type planckModel struct {
	closedForm
}

func (m *planckModel) GetModel(params Parameters, wavelengths []float64) (Spectrum, error) {
	for _, name := range []string{"teff", "radius", "distance"} {
		if _, ok := params[name]; !ok {
			return Spectrum{}, errors.Wrapf(errors.ErrMissingField, "planck parameter '%s'", name)
		}
	}

	var err error
	if wavelengths == nil {
		if wavelengths, err = m.wavelengthGrid(); err != nil {
			return Spectrum{}, err
		}
	}

	scaling := math.Pow(params["radius"]*units.RJup/(params["distance"]*units.Parsec), 2.)

	flux := make([]float64, len(wavelengths))
	for i, w := range wavelengths {
		flux[i] = scaling * math.Pi * planckRadiance(params["teff"], w)
	}

	return Spectrum{Wavelength: wavelengths, Flux: flux}, nil
}

func (m *planckModel) GetMagnitude(params Parameters) (float64, float64, error) {
	grid, err := m.filterGrid()
	if err != nil {
		return 0, 0, err
	}
	spec, err := m.GetModel(params, grid)
	if err != nil {
		return 0, 0, err
	}
	return m.magnitude(spec)
}

func (m *planckModel) GetFlux(params Parameters) (float64, float64, error) {
	grid, err := m.filterGrid()
	if err != nil {
		return 0, 0, err
	}
	spec, err := m.GetModel(params, grid)
	if err != nil {
		return 0, 0, err
	}
	return m.flux(spec)
}

// planckRadiance is the Planck spectral radiance B_lambda in W m-2 um-1 sr-1
// at wavelength w (um).
func planckRadiance(teff, w float64) float64 {
	wm := w * 1e-6 // (m)

	num := 2. * units.PlanckH * math.Pow(units.LightSpeed, 2.) / math.Pow(wm, 5.)
	den := math.Exp(units.PlanckH*units.LightSpeed/(wm*units.Boltzmann*teff)) - 1.

	return 1e-6 * num / den
}

// powerlawModel synthesizes log-log power-law spectra. Parameters:
// log_powerlaw_a, log_powerlaw_b, log_powerlaw_c with
// log10(flux) = a + b*log10(wavelength)^c.
type powerlawModel struct {
	closedForm
}

func (m *powerlawModel) GetModel(params Parameters, wavelengths []float64) (Spectrum, error) {
	for _, name := range []string{"log_powerlaw_a", "log_powerlaw_b", "log_powerlaw_c"} {
		if _, ok := params[name]; !ok {
			return Spectrum{}, errors.Wrapf(errors.ErrMissingField, "powerlaw parameter '%s'", name)
		}
	}

	var err error
	if wavelengths == nil {
		if wavelengths, err = m.wavelengthGrid(); err != nil {
			return Spectrum{}, err
		}
	}

	a := params["log_powerlaw_a"]
	b := params["log_powerlaw_b"]
	c := params["log_powerlaw_c"]

	flux := make([]float64, len(wavelengths))
	for i, w := range wavelengths {
		flux[i] = math.Pow(10., a+b*math.Pow(math.Log10(w), c))
	}

	return Spectrum{Wavelength: wavelengths, Flux: flux}, nil
}

func (m *powerlawModel) GetMagnitude(params Parameters) (float64, float64, error) {
	grid, err := m.filterGrid()
	if err != nil {
		return 0, 0, err
	}
	spec, err := m.GetModel(params, grid)
	if err != nil {
		return 0, 0, err
	}
	return m.magnitude(spec)
}

func (m *powerlawModel) GetFlux(params Parameters) (float64, float64, error) {
	grid, err := m.filterGrid()
	if err != nil {
		return 0, 0, err
	}
	spec, err := m.GetModel(params, grid)
	if err != nil {
		return 0, 0, err
	}
	return m.flux(spec)
}
