package units

import (
	"math"
	"testing"
)

func TestToMicron(t *testing.T) {
	if v, err := ToMicron(10000, Angstrom); err != nil || math.Abs(v-1.0) > 1e-12 {
		t.Errorf("ToMicron(10000, angstrom) = %g, %v", v, err)
	}
	if v, err := ToMicron(2.2, Micron); err != nil || v != 2.2 {
		t.Errorf("ToMicron(2.2, um) = %g, %v", v, err)
	}
	if v, err := ToMicron(3.5, ""); err != nil || v != 3.5 {
		t.Errorf("ToMicron with empty unit = %g, %v", v, err)
	}
	if _, err := ToMicron(1, "nm"); err == nil {
		t.Error("ToMicron accepted an unknown unit")
	}
}

func TestToFluxDensity(t *testing.T) {
	if v, err := ToFluxDensity(2e-15, 4, FluxTotal); err != nil || math.Abs(v-5e-16) > 1e-30 {
		t.Errorf("ToFluxDensity(w m-2) = %g, %v", v, err)
	}
	if v, err := ToFluxDensity(3e-15, 4, FluxPerMicron); err != nil || v != 3e-15 {
		t.Errorf("ToFluxDensity(w m-2 um-1) = %g, %v", v, err)
	}
	if _, err := ToFluxDensity(1, 1, "jansky"); err == nil {
		t.Error("ToFluxDensity accepted an unknown unit")
	}
}

func TestMassAndAge(t *testing.T) {
	if got := GyrToMyr(1.5); got != 1500 {
		t.Errorf("GyrToMyr(1.5) = %g, want 1500", got)
	}

	// One solar mass is about 1048 Jupiter masses.
	if got := MSunToMJup(1); got < 1045 || got > 1050 {
		t.Errorf("MSunToMJup(1) = %g", got)
	}
}

func TestLogGravityCGS(t *testing.T) {
	// Jupiter itself: log g about 3.41 in cgs.
	if got := LogGravityCGS(1, 1); math.Abs(got-3.414) > 0.01 {
		t.Errorf("LogGravityCGS(1, 1) = %g, want about 3.414", got)
	}
}

func TestRadiusFromScaling(t *testing.T) {
	const (
		radius   = 1.5
		distance = 20.
	)
	scaling := math.Pow(radius*RJup/(distance*Parsec), 2.)

	if got := RadiusFromScaling(scaling, distance); math.Abs(got-radius) > 1e-9 {
		t.Errorf("RadiusFromScaling() = %g, want %g", got, radius)
	}
}
