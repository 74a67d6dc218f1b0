package forward

import (
	"math"
	"testing"

	"github.com/xtxerr/specdb/internal/errors"
	"github.com/xtxerr/specdb/internal/units"
)

func TestRegistryUnsupported(t *testing.T) {
	_, err := New("no-such-model", Config{})
	if !errors.Is(err, errors.ErrUnsupportedModel) {
		t.Fatalf("New() error = %v, want ErrUnsupportedModel", err)
	}
}

func TestRegistryBuiltins(t *testing.T) {
	for _, kind := range []string{"planck", "powerlaw"} {
		if _, err := New(kind, Config{WavelRange: [2]float64{1, 2}}); err != nil {
			t.Errorf("New(%s) error = %v", kind, err)
		}
	}
}

func TestPlanckSpectrum(t *testing.T) {
	model, err := New("planck", Config{WavelRange: [2]float64{0.5, 30}, SpecRes: 200})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	params := Parameters{"teff": 1600, "radius": 1.2, "distance": 20}

	spec, err := model.GetModel(params, nil)
	if err != nil {
		t.Fatalf("GetModel() error = %v", err)
	}
	if len(spec.Wavelength) == 0 || len(spec.Wavelength) != len(spec.Flux) {
		t.Fatalf("spectrum shape: %d wavelengths, %d fluxes", len(spec.Wavelength), len(spec.Flux))
	}

	// Wien's law: the peak sits near 2898/teff um.
	best := 0
	for i, f := range spec.Flux {
		if f > spec.Flux[best] {
			best = i
		}
	}
	peak := spec.Wavelength[best]
	want := 2898. / params["teff"]
	if math.Abs(peak-want) > 0.2 {
		t.Errorf("peak at %g um, want about %g um", peak, want)
	}

	for _, f := range spec.Flux {
		if f <= 0 || math.IsNaN(f) {
			t.Fatal("non-positive blackbody flux")
		}
	}
}

func TestPlanckTotalFlux(t *testing.T) {
	model, err := New("planck", Config{WavelRange: [2]float64{0.1, 500}, SpecRes: 1000})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	params := Parameters{"teff": 1200, "radius": 1.0, "distance": 10}
	spec, err := model.GetModel(params, nil)
	if err != nil {
		t.Fatalf("GetModel() error = %v", err)
	}

	// Trapezoid integral of the flux density recovers the Stefan-Boltzmann
	// total within the truncated band.
	total := 0.
	for i := 1; i < len(spec.Wavelength); i++ {
		total += 0.5 * (spec.Flux[i] + spec.Flux[i-1]) * (spec.Wavelength[i] - spec.Wavelength[i-1])
	}

	scaling := math.Pow(params["radius"]*units.RJup/(params["distance"]*units.Parsec), 2.)
	want := scaling * units.SigmaSB * math.Pow(params["teff"], 4.)

	if math.Abs(total-want)/want > 0.02 {
		t.Errorf("integrated flux = %g, want %g", total, want)
	}
}

func TestPlanckMissingParameter(t *testing.T) {
	model, _ := New("planck", Config{WavelRange: [2]float64{1, 2}})

	_, err := model.GetModel(Parameters{"teff": 1000}, nil)
	if !errors.Is(err, errors.ErrMissingField) {
		t.Errorf("GetModel() error = %v, want ErrMissingField", err)
	}
}

func TestPowerlawSpectrum(t *testing.T) {
	model, err := New("powerlaw", Config{WavelRange: [2]float64{1, 5}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	params := Parameters{"log_powerlaw_a": -14, "log_powerlaw_b": 2, "log_powerlaw_c": 1}

	spec, err := model.GetModel(params, []float64{1, 10})
	if err != nil {
		t.Fatalf("GetModel() error = %v", err)
	}

	// log10(f) = -14 + 2*log10(w): f(1) = 1e-14, f(10) = 1e-12.
	if math.Abs(spec.Flux[0]-1e-14)/1e-14 > 1e-9 {
		t.Errorf("flux(1) = %g, want 1e-14", spec.Flux[0])
	}
	if math.Abs(spec.Flux[1]-1e-12)/1e-12 > 1e-9 {
		t.Errorf("flux(10) = %g, want 1e-12", spec.Flux[1])
	}
}

func TestGetFluxRequiresPhotometry(t *testing.T) {
	model, _ := New("planck", Config{WavelRange: [2]float64{1, 2}})

	_, _, err := model.GetFlux(Parameters{"teff": 1000, "radius": 1, "distance": 10})
	if !errors.Is(err, errors.ErrInvalidConfig) {
		t.Errorf("GetFlux() error = %v, want ErrInvalidConfig", err)
	}
}
