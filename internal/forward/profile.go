package forward

import (
	"fmt"
	"math"

	"github.com/xtxerr/specdb/internal/errors"
	"github.com/xtxerr/specdb/internal/numeric"
)

// Pressure-temperature profile kinds stored in the pt_profile attribute.
const (
	ProfileMolliere  = "molliere"
	ProfileFree      = "free"
	ProfileMonotonic = "monotonic"
)

// PressurePoints is the number of points of the canonical pressure grid.
const PressurePoints = 180

// profileKnots is the number of free temperature knots of the free and
// monotonic profiles, log-spaced over the full pressure grid.
const profileKnots = 15

// PressureGrid returns the canonical atmospheric pressure grid: 180
// log-spaced points from 1e-6 to 1e3 bar.
func PressureGrid() []float64 {
	return numeric.Logspace(-6, 3, PressurePoints)
}

// ProfileKinds returns the supported profile kinds.
func ProfileKinds() []string {
	return []string{ProfileFree, ProfileMolliere, ProfileMonotonic}
}

// TemperatureProfile reconstructs a temperature profile (K) over the given
// pressure grid (bar) from one posterior sample.
//
// The molliere kind is the Eddington-approximation parameterization:
// tau = delta * P^alpha and T^4 = 3/4 * Tint^4 * (2/3 + tau) below the
// photosphere, with three spline knots (t1, t2, t3) shaping the upper
// atmosphere. The free and monotonic kinds interpolate stored knot
// temperatures t0..t14; monotonic additionally smooths the knots with the
// pt_smooth width before a shape-preserving spline.
func TemperatureProfile(kind string, params Parameters, pressure []float64) ([]float64, error) {
	switch kind {
	case ProfileMolliere:
		return molliereProfile(params, pressure)
	case ProfileFree:
		return knotProfile(params, pressure, false)
	case ProfileMonotonic:
		return knotProfile(params, pressure, true)
	default:
		return nil, errors.NewUnsupported(errors.ErrUnsupportedProfile, kind, ProfileKinds())
	}
}

func molliereProfile(params Parameters, pressure []float64) ([]float64, error) {
	for _, name := range []string{"tint", "alpha", "log_delta", "t1", "t2", "t3"} {
		if _, ok := params[name]; !ok {
			return nil, errors.Wrapf(errors.ErrMissingField, "profile parameter '%s'", name)
		}
	}

	tint := params["tint"]
	alpha := params["alpha"]
	delta := math.Pow(10., params["log_delta"])

	temp := make([]float64, len(pressure))
	for i, p := range pressure {
		tau := delta * math.Pow(p, alpha)
		temp[i] = math.Pow(0.75*math.Pow(tint, 4.)*(2./3.+tau), 0.25)
	}

	// Photosphere top: the lowest pressure where tau reaches 0.1. The three
	// knot temperatures, given as fractions of the connection temperature,
	// shape the profile above it.
	top := len(pressure) - 1
	for i, p := range pressure {
		if delta*math.Pow(p, alpha) >= 0.1 {
			top = i
			break
		}
	}

	if top == 0 {
		return temp, nil
	}

	tConnect := temp[top]
	knotsP := []float64{
		math.Log10(pressure[0]),
		math.Log10(pressure[0]) + (math.Log10(pressure[top])-math.Log10(pressure[0]))/3.,
		math.Log10(pressure[0]) + 2.*(math.Log10(pressure[top])-math.Log10(pressure[0]))/3.,
		math.Log10(pressure[top]),
	}
	knotsT := []float64{
		params["t1"] * tConnect,
		params["t2"] * tConnect,
		params["t3"] * tConnect,
		tConnect,
	}

	spline, err := numeric.NewPchip(knotsP, knotsT)
	if err != nil {
		return nil, fmt.Errorf("upper-atmosphere spline: %w", err)
	}

	for i := 0; i < top; i++ {
		temp[i] = spline.Eval(math.Log10(pressure[i]))
	}

	return temp, nil
}

func knotProfile(params Parameters, pressure []float64, smooth bool) ([]float64, error) {
	knotsT := make([]float64, profileKnots)
	for i := range knotsT {
		name := fmt.Sprintf("t%d", i)
		value, ok := params[name]
		if !ok {
			return nil, errors.Wrapf(errors.ErrMissingField, "profile parameter '%s'", name)
		}
		knotsT[i] = value
	}

	if smooth {
		knotsT = numeric.GaussianSmooth(knotsT, params["pt_smooth"])
	}

	logLo := math.Log10(pressure[0])
	logHi := math.Log10(pressure[len(pressure)-1])
	knotsP := numeric.Linspace(logLo, logHi, profileKnots)

	spline, err := numeric.NewPchip(knotsP, knotsT)
	if err != nil {
		return nil, fmt.Errorf("knot spline: %w", err)
	}

	temp := make([]float64, len(pressure))
	for i, p := range pressure {
		temp[i] = spline.Eval(math.Log10(p))
	}
	return temp, nil
}
