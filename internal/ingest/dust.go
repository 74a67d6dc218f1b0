package ingest

import (
	"github.com/xtxerr/specdb/internal/errors"
	"github.com/xtxerr/specdb/internal/schema"
	"github.com/xtxerr/specdb/internal/store"
)

// DustInput describes a dust extinction cross-section table.
type DustInput struct {
	// Path is the source table: wavelength (um) in the first column and one
	// cross section (m2) per remaining column, one column per grain size
	// distribution parameter value.
	Path string

	// Distribution names the grain size distribution the columns sample,
	// e.g. "log-normal" or "power-law".
	Distribution string

	// Columns labels the cross-section columns, e.g. the distribution
	// parameter values. Optional; when set its length must match the table.
	Columns []string
}

// AddDust stores a dust extinction cross-section table under the given name.
func (s *Service) AddDust(name string, input DustInput) error {
	rows, err := ReadTable(input.Path)
	if err != nil {
		return err
	}
	if len(rows[0]) < 2 {
		return errors.NewMalformed(input.Path,
			"expected at least 2 columns (wavelength, cross section)")
	}
	if len(input.Columns) > 0 && len(input.Columns) != len(rows[0])-1 {
		return errors.Wrapf(errors.ErrShapeMismatch,
			"dust table '%s': %d column labels for %d cross-section columns",
			name, len(input.Columns), len(rows[0])-1)
	}

	n, cols := len(rows), len(rows[0])
	data := make([]float64, 0, n*cols)
	for _, row := range rows {
		data = append(data, row...)
	}

	attrs := store.Attrs{
		"wavel_units": store.String("um"),
		"units":       store.String("m2"),
	}
	if input.Distribution != "" {
		attrs["distribution"] = store.String(input.Distribution)
	}
	if len(input.Columns) > 0 {
		attrs["columns"] = store.Strings(input.Columns)
	}

	s.log.Info("stored dust cross sections", "name", name,
		"wavelengths", n, "columns", cols-1)

	return s.store.PutDataset(schema.DustPath(name), store.Matrix(n, cols, data), attrs)
}
