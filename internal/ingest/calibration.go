package ingest

import (
	"math"

	"github.com/xtxerr/specdb/internal/errors"
	"github.com/xtxerr/specdb/internal/schema"
	"github.com/xtxerr/specdb/internal/store"
	"github.com/xtxerr/specdb/internal/units"
)

// CalibrationInput describes a calibration spectrum source table with its
// declared units and an optional linear scaling applied after conversion.
type CalibrationInput struct {
	// Path is the source table: wavelength, flux and optionally error
	// columns.
	Path string

	// Units declares the input units. Zero values mean canonical units.
	WavelUnit units.WavelengthUnit
	FluxUnit  units.FluxUnit

	// ScaleWavel and ScaleFlux multiply the converted columns. Zero values
	// mean no scaling.
	ScaleWavel float64
	ScaleFlux  float64
}

// AddCalibration stores a unit-normalized calibration spectrum under the
// given tag.
func (s *Service) AddCalibration(tag string, input CalibrationInput) error {
	rows, err := ReadTable(input.Path)
	if err != nil {
		return err
	}
	if len(rows[0]) < 2 || len(rows[0]) > 3 {
		return errors.NewMalformed(input.Path, "expected 2 or 3 columns (wavelength, flux[, error])")
	}

	scaleW, scaleF := input.ScaleWavel, input.ScaleFlux
	if scaleW == 0 {
		scaleW = 1
	}
	if scaleF == 0 {
		scaleF = 1
	}

	n := len(rows)
	wavel := make([]float64, n)
	flux := make([]float64, n)
	ferr := make([]float64, n)

	for i, row := range rows {
		w, err := units.ToMicron(row[0], input.WavelUnit)
		if err != nil {
			return errors.NewMalformed(input.Path, err.Error())
		}
		wavel[i] = scaleW * w

		f, err := units.ToFluxDensity(row[1], wavel[i], input.FluxUnit)
		if err != nil {
			return errors.NewMalformed(input.Path, err.Error())
		}
		flux[i] = scaleF * f

		if len(row) == 3 {
			e, err := units.ToFluxDensity(row[2], wavel[i], input.FluxUnit)
			if err != nil {
				return errors.NewMalformed(input.Path, err.Error())
			}
			ferr[i] = scaleF * e
		} else {
			ferr[i] = math.NaN()
		}
	}

	attrs := store.Attrs{
		"wavel_units": store.String("um"),
		"flux_units":  store.String("w m-2 um-1"),
	}

	s.log.Info("stored calibration spectrum", "tag", tag, "points", n)

	return s.store.PutDataset(schema.CalibrationPath(tag), store.ColumnStack(wavel, flux, ferr), attrs)
}
