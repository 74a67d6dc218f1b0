package ingest

import (
	"math"
	"sort"

	"github.com/xtxerr/specdb/internal/errors"
	"github.com/xtxerr/specdb/internal/schema"
	"github.com/xtxerr/specdb/internal/store"
	"github.com/xtxerr/specdb/internal/units"
)

// IsochroneTable is a normalized evolutionary-model table. Rows are sorted
// ascending by age; canonical units are Myr, Mjup and K.
type IsochroneTable struct {
	// Columns names the evolution columns, always starting with "age" and
	// "mass".
	Columns []string

	// Rows holds one evolution record per row.
	Rows [][]float64

	// Magnitudes optionally holds a per-row magnitude table with one column
	// per entry of Filters.
	Magnitudes [][]float64
	Filters    []string
}

// IsochroneReader normalizes one source distribution into canonical form.
type IsochroneReader func(path string, filters []string) (IsochroneTable, error)

// isochroneReaders maps the provenance model tag to its reader.
var isochroneReaders = map[string]IsochroneReader{
	"manual":      readManualIsochrone,
	"marleau":     readMarleauIsochrone,
	"sonora":      readSonoraIsochrone,
	"saumon2008":  readSaumonIsochrone,
	"baraffe2015": readBaraffeIsochrone,
}

// IsochroneKinds returns the supported provenance model tags.
func IsochroneKinds() []string {
	kinds := make([]string, 0, len(isochroneReaders))
	for kind := range isochroneReaders {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// AddIsochrone stores an evolutionary-model table under the given tag. model
// selects the source-format reader; filters names the magnitude columns of
// a manual table and is ignored otherwise.
func (s *Service) AddIsochrone(tag, model, path string, filters []string) error {
	reader, ok := isochroneReaders[model]
	if !ok {
		return errors.NewUnsupported(errors.ErrUnsupportedKind, model, IsochroneKinds())
	}

	table, err := reader(path, filters)
	if err != nil {
		return errors.Wrapf(err, "isochrone '%s'", tag)
	}

	sortByAge(table.Rows, table.Magnitudes)

	base := schema.IsochronePath(tag)

	attrs := store.Attrs{"model": store.String(model)}
	schema.EncodeStrings(attrs, "column", table.Columns)

	evolution := store.NewArray(len(table.Rows), len(table.Columns))
	for i, row := range table.Rows {
		copy(evolution.Data[i*len(table.Columns):], row)
	}

	if err := s.store.PutDataset(base+"/evolution", evolution, attrs); err != nil {
		return err
	}

	if len(table.Magnitudes) > 0 {
		mags := store.NewArray(len(table.Magnitudes), len(table.Filters))
		for i, row := range table.Magnitudes {
			copy(mags.Data[i*len(table.Filters):], row)
		}

		if err := s.store.PutDataset(base+"/magnitudes", mags, nil); err != nil {
			return err
		}
		if err := s.store.PutStringDataset(base+"/filters", table.Filters, nil); err != nil {
			return err
		}
	}

	s.log.Info("stored isochrone table", "tag", tag, "model", model, "rows", len(table.Rows))
	return nil
}

// sortByAge orders the rows ascending by the first (age) column, keeping any
// magnitude rows aligned.
func sortByAge(rows, mags [][]float64) {
	idx := make([]int, len(rows))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return rows[idx[a]][0] < rows[idx[b]][0] })

	permute := func(data [][]float64) [][]float64 {
		out := make([][]float64, len(data))
		for i, j := range idx {
			out[i] = data[j]
		}
		return out
	}

	copy(rows, permute(rows))
	if len(mags) == len(rows) {
		copy(mags, permute(mags))
	}
}

// readManualIsochrone parses a pre-normalized table: age (Myr), mass (Mjup),
// Teff (K), log(L/Lsun), log(g), then one magnitude column per filter.
func readManualIsochrone(path string, filters []string) (IsochroneTable, error) {
	rows, err := ReadTable(path)
	if err != nil {
		return IsochroneTable{}, err
	}

	want := 5 + len(filters)
	if len(rows[0]) != want {
		return IsochroneTable{}, errors.NewMalformed(path,
			"manual isochrone needs 5 evolution columns plus one per filter")
	}

	table := IsochroneTable{
		Columns: []string{"age", "mass", "teff", "log_lum", "logg"},
		Filters: filters,
	}
	for _, row := range rows {
		table.Rows = append(table.Rows, row[:5])
		if len(filters) > 0 {
			table.Magnitudes = append(table.Magnitudes, row[5:])
		}
	}
	return table, nil
}

// readMarleauIsochrone parses the warm-start formation tables: age (Myr),
// mass (Mjup), radius (Rjup), log(L/Lsun). The effective temperature is
// derived from the luminosity and radius.
func readMarleauIsochrone(path string, _ []string) (IsochroneTable, error) {
	rows, err := ReadTable(path)
	if err != nil {
		return IsochroneTable{}, err
	}
	if len(rows[0]) != 4 {
		return IsochroneTable{}, errors.NewMalformed(path, "marleau isochrone needs 4 columns")
	}

	// Solar luminosity (W).
	const lSun = 3.828e26

	table := IsochroneTable{Columns: []string{"age", "mass", "teff", "log_lum", "radius"}}
	for _, row := range rows {
		age, mass, radius, logLum := row[0], row[1], row[2], row[3]

		lum := math.Pow(10., logLum) * lSun
		rm := radius * units.RJup
		teff := math.Pow(lum/(4.*math.Pi*rm*rm*units.SigmaSB), 0.25)

		table.Rows = append(table.Rows, []float64{age, mass, teff, logLum, radius})
	}
	return table, nil
}

// readSonoraIsochrone parses the Sonora Bobcat evolution tables: age (Gyr),
// mass (Msun), Teff (K), log(L/Lsun), log(g).
func readSonoraIsochrone(path string, _ []string) (IsochroneTable, error) {
	return readSolarUnitTable(path, "sonora")
}

// readSaumonIsochrone parses the Saumon & Marley (2008) tables, same layout
// as sonora.
func readSaumonIsochrone(path string, _ []string) (IsochroneTable, error) {
	return readSolarUnitTable(path, "saumon2008")
}

// readSolarUnitTable converts a Gyr/Msun table to canonical Myr/Mjup.
func readSolarUnitTable(path, kind string) (IsochroneTable, error) {
	rows, err := ReadTable(path)
	if err != nil {
		return IsochroneTable{}, err
	}
	if len(rows[0]) != 5 {
		return IsochroneTable{}, errors.NewMalformed(path, kind+" isochrone needs 5 columns")
	}

	table := IsochroneTable{Columns: []string{"age", "mass", "teff", "log_lum", "logg"}}
	for _, row := range rows {
		table.Rows = append(table.Rows, []float64{
			units.GyrToMyr(row[0]),
			units.MSunToMJup(row[1]),
			row[2],
			row[3],
			row[4],
		})
	}
	return table, nil
}

// readBaraffeIsochrone parses the Baraffe et al. (2015) tables: age (Gyr),
// mass (Msun), Teff (K), log(L/Lsun), log(g), radius (Rsun).
func readBaraffeIsochrone(path string, _ []string) (IsochroneTable, error) {
	rows, err := ReadTable(path)
	if err != nil {
		return IsochroneTable{}, err
	}
	if len(rows[0]) != 6 {
		return IsochroneTable{}, errors.NewMalformed(path, "baraffe2015 isochrone needs 6 columns")
	}

	// Solar radius in Jupiter radii.
	const rSunRJup = 6.957e8 / units.RJup

	table := IsochroneTable{Columns: []string{"age", "mass", "teff", "log_lum", "logg", "radius"}}
	for _, row := range rows {
		table.Rows = append(table.Rows, []float64{
			units.GyrToMyr(row[0]),
			units.MSunToMJup(row[1]),
			row[2],
			row[3],
			row[4],
			row[5] * rSunRJup,
		})
	}
	return table, nil
}
