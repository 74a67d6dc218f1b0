package ingest

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/xtxerr/specdb/internal/errors"
	"github.com/xtxerr/specdb/internal/numeric"
	"github.com/xtxerr/specdb/internal/schema"
	"github.com/xtxerr/specdb/internal/store"
)

// Measurement is a value with a one-sigma uncertainty.
type Measurement struct {
	Value float64
	Error float64
}

// SpectrumInput points at a spectrum table and its optional covariance.
type SpectrumInput struct {
	// Path is a 2- or 3-column table: wavelength (um), flux (W m-2 um-1)
	// and optionally error.
	Path string

	// CovPath is an optional n-by-n covariance table. A correlation matrix
	// (unit diagonal) is auto-converted using the spectrum's flux errors.
	CovPath string

	// SpecRes is the spectral resolution, 0 meaning unknown.
	SpecRes float64
}

// Deredden requests an extinction correction before flux conversion.
type Deredden struct {
	AV float64
	RV float64

	// Filters limits the correction to the listed filters. Empty applies
	// it everywhere, including across full spectra.
	Filters []string
}

func (d *Deredden) applies(filter string) bool {
	if d == nil {
		return false
	}
	if len(d.Filters) == 0 {
		return true
	}
	for _, f := range d.Filters {
		if f == filter {
			return true
		}
	}
	return false
}

// ObjectData is the payload of one AddObject call. All fields are optional;
// absent parts of an existing object record are left untouched.
type ObjectData struct {
	Distance    *Measurement             // (pc)
	AppMag      map[string][]Measurement // filter name -> measurement(s)
	FluxDensity map[string]Measurement   // filter name -> flux density pair
	Spectra     map[string]SpectrumInput // spectrum name -> input
	Deredden    *Deredden
}

// AddObject stores or updates an object record: distance, per-filter
// photometry and per-instrument spectra. A filter that cannot be resolved
// degrades to a logged warning with NaN flux for that filter; malformed
// spectrum or covariance input fails the call.
func (s *Service) AddObject(name string, data ObjectData) error {
	if name == "" {
		return errors.NewValidation("object name", "must not be empty")
	}

	for filter := range data.FluxDensity {
		if _, ok := data.AppMag[filter]; ok {
			return errors.NewValidation("photometry",
				fmt.Sprintf("filter '%s' given as both magnitude and flux density", filter))
		}
	}

	if err := s.store.EnsureGroup(schema.ObjectPath(name)); err != nil {
		return err
	}

	if data.Distance != nil {
		attrs := store.Attrs{"units": store.String("pc")}
		dist := store.Vector([]float64{data.Distance.Value, data.Distance.Error})
		if err := s.store.PutDataset(schema.ObjectDistancePath(name), dist, attrs); err != nil {
			return err
		}
	}

	for _, filter := range sortedKeys(data.AppMag) {
		if err := s.addMagnitudes(name, filter, data.AppMag[filter], data.Deredden); err != nil {
			return err
		}
	}

	for _, filter := range sortedKeys(data.FluxDensity) {
		if err := s.addFluxDensity(name, filter, data.FluxDensity[filter], data.Deredden); err != nil {
			return err
		}
	}

	for _, specName := range sortedKeys(data.Spectra) {
		if err := s.addSpectrum(name, specName, data.Spectra[specName], data.Deredden); err != nil {
			return err
		}
	}

	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// addMagnitudes converts magnitudes to fluxes and stores the entry as a
// (4, n) array: magnitude, magnitude error, flux, flux error per column.
func (s *Service) addMagnitudes(object, filter string, mags []Measurement, deredden *Deredden) error {
	if len(mags) == 0 {
		return errors.NewValidation("photometry",
			fmt.Sprintf("filter '%s': a magnitude pair or a list of pairs is required", filter))
	}

	n := len(mags)
	mag := make([]float64, n)
	magErr := make([]float64, n)
	flux := make([]float64, n)
	fluxErr := make([]float64, n)

	resolved := s.resolveFilter(object, filter)

	for i, m := range mags {
		mag[i], magErr[i] = m.Value, m.Error
		flux[i], fluxErr[i] = math.NaN(), math.NaN()

		if !resolved {
			continue
		}

		value := m.Value
		if deredden.applies(filter) {
			corr, err := s.extinctionCorrection(filter, deredden)
			if err != nil {
				return err
			}
			value -= corr
		}

		f, fe, err := s.photometry.MagnitudeToFlux(filter, value, m.Error)
		if err != nil {
			return errors.Wrapf(err, "filter '%s'", filter)
		}
		flux[i], fluxErr[i] = f, fe
	}

	attrs := store.Attrs{
		"n_phot":     store.Int(int64(n)),
		"flux_units": store.String("w m-2 um-1"),
	}

	return s.store.PutDataset(schema.ObjectPhotometryPath(object, filter),
		store.Matrix(4, n, concat(mag, magErr, flux, fluxErr)), attrs)
}

// resolveFilter makes sure the filter and photometry service are available,
// degrading to a single warning when they are not.
func (s *Service) resolveFilter(object, filter string) bool {
	var err error
	switch {
	case s.photometry == nil:
		err = errors.NewValidation("photometry", "no photometry service configured")
	default:
		err = s.ensureFilter(filter)
	}

	if err != nil {
		s.log.Warn("filter not resolvable, storing NaN flux",
			"object", object, "filter", filter, "error", err)
		return false
	}
	return true
}

func (s *Service) extinctionCorrection(filter string, deredden *Deredden) (float64, error) {
	if s.extinction == nil {
		return 0, errors.NewValidation("deredden", "no extinction law configured")
	}

	wavel, err := s.photometry.EffectiveWavelength(filter)
	if err != nil {
		return 0, errors.Wrapf(err, "effective wavelength of '%s'", filter)
	}

	return s.extinction.Magnitude(deredden.AV, deredden.RV, wavel), nil
}

// addFluxDensity stores a flux-only photometry entry: the magnitude columns
// hold NaN. Dereddening is not supported on this path and is ignored with a
// warning.
func (s *Service) addFluxDensity(object, filter string, m Measurement, deredden *Deredden) error {
	if deredden.applies(filter) {
		s.log.Warn("dereddening not supported for flux-density entries, ignored",
			"object", object, "filter", filter)
	}

	attrs := store.Attrs{
		"n_phot":     store.Int(1),
		"flux_units": store.String("w m-2 um-1"),
	}

	data := []float64{math.NaN(), math.NaN(), m.Value, m.Error}
	return s.store.PutDataset(schema.ObjectPhotometryPath(object, filter),
		store.Matrix(4, 1, data), attrs)
}

// addSpectrum stores one named spectrum with optional covariance and its
// inverse.
func (s *Service) addSpectrum(object, specName string, input SpectrumInput, deredden *Deredden) error {
	rows, err := ReadTable(input.Path)
	if err != nil {
		return err
	}
	if len(rows[0]) < 2 || len(rows[0]) > 3 {
		return errors.NewMalformed(input.Path, "expected 2 or 3 columns (wavelength, flux[, error])")
	}

	n := len(rows)
	wavel := tableColumn(rows, 0)
	flux := tableColumn(rows, 1)

	ferr := make([]float64, n)
	if len(rows[0]) == 3 {
		ferr = tableColumn(rows, 2)
	} else {
		for i := range ferr {
			ferr[i] = math.NaN()
		}
	}

	if deredden != nil && len(deredden.Filters) == 0 {
		if s.extinction == nil {
			return errors.NewValidation("deredden", "no extinction law configured")
		}
		for i := range flux {
			ext := s.extinction.Magnitude(deredden.AV, deredden.RV, wavel[i])
			flux[i] *= math.Pow(10., 0.4*ext)
			if !math.IsNaN(ferr[i]) {
				ferr[i] *= math.Pow(10., 0.4*ext)
			}
		}
	}

	attrs := store.Attrs{
		"specres":     store.Float(input.SpecRes),
		"wavel_units": store.String("um"),
		"flux_units":  store.String("w m-2 um-1"),
	}

	if err := s.store.PutDataset(schema.ObjectSpectrumPath(object, specName, "spectrum"),
		store.ColumnStack(wavel, flux, ferr), attrs); err != nil {
		return err
	}

	if input.CovPath == "" {
		return nil
	}

	cov, err := s.readCovariance(input.CovPath, specName, ferr)
	if err != nil {
		return err
	}

	if err := s.store.PutDataset(schema.ObjectSpectrumPath(object, specName, "covariance"),
		store.Matrix(n, n, cov), nil); err != nil {
		return err
	}

	inv, err := numeric.InvertMatrix(cov, n)
	if err != nil {
		return errors.NewMalformed(input.CovPath, err.Error())
	}

	return s.store.PutDataset(schema.ObjectSpectrumPath(object, specName, "inv_covariance"),
		store.Matrix(n, n, inv), nil)
}

// readCovariance reads a square matrix table. A matrix with a unit diagonal
// is treated as a correlation matrix and converted to a covariance matrix
// using the paired flux errors.
func (s *Service) readCovariance(path, specName string, fluxErr []float64) ([]float64, error) {
	rows, err := ReadTable(path)
	if err != nil {
		return nil, err
	}

	n := len(fluxErr)
	if len(rows) != n || len(rows[0]) != n {
		return nil, errors.NewMalformed(path,
			fmt.Sprintf("covariance shape (%d, %d) does not match %d spectrum points",
				len(rows), len(rows[0]), n))
	}

	cov := make([]float64, n*n)
	for i, row := range rows {
		copy(cov[i*n:], row)
	}

	unitDiagonal := true
	for i := 0; i < n; i++ {
		if math.Abs(cov[i*n+i]-1.) > 1e-10 {
			unitDiagonal = false
			break
		}
	}

	if unitDiagonal {
		s.log.Warn("unit-diagonal matrix treated as correlation, converting to covariance",
			"spectrum", specName)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				cov[i*n+j] *= fluxErr[i] * fluxErr[j]
			}
		}
	}

	return cov, nil
}

func concat(slices ...[]float64) []float64 {
	out := []float64{}
	for _, s := range slices {
		out = append(out, s...)
	}
	return out
}

// PhotometryRecord is the read-back form of one per-filter photometry entry.
// Entries ingested as flux densities hold NaN magnitudes.
type PhotometryRecord struct {
	Magnitude []Measurement
	Flux      []Measurement
}

// SpectrumRecord is the read-back form of one named object spectrum. The
// covariance arrays are nil when no covariance was ingested.
type SpectrumRecord struct {
	Wavelength []float64
	Flux       []float64
	Error      []float64

	Covariance    *store.Array
	InvCovariance *store.Array

	SpecRes float64
}

// ObjectRecord is the read-back form of a stored object.
type ObjectRecord struct {
	Name       string
	Distance   *Measurement
	Photometry map[string]PhotometryRecord
	Spectra    map[string]SpectrumRecord
}

// GetObject reconstructs an object record: distance, per-filter photometry
// and named spectra with their covariances.
func (s *Service) GetObject(name string) (ObjectRecord, error) {
	base := schema.ObjectPath(name)

	exists, err := s.store.Exists(base)
	if err != nil {
		return ObjectRecord{}, err
	}
	if !exists {
		return ObjectRecord{}, errors.NewNotFound("object", name)
	}

	record := ObjectRecord{
		Name:       name,
		Photometry: map[string]PhotometryRecord{},
		Spectra:    map[string]SpectrumRecord{},
	}

	entries, err := s.store.List(base)
	if err != nil {
		return ObjectRecord{}, err
	}

	prefix := base + "/"
	for _, e := range entries {
		if e.IsGroup || !strings.HasPrefix(e.Path, prefix) {
			continue
		}
		rel := strings.TrimPrefix(e.Path, prefix)

		switch {
		case rel == "distance":
			arr, _, err := s.store.GetDataset(e.Path)
			if err != nil {
				return ObjectRecord{}, err
			}
			record.Distance = &Measurement{Value: arr.Data[0], Error: arr.Data[1]}

		case strings.HasPrefix(rel, "spectrum/"):
			if err := s.readSpectrumPart(&record, e.Path, strings.TrimPrefix(rel, "spectrum/")); err != nil {
				return ObjectRecord{}, err
			}

		default:
			arr, _, err := s.store.GetDataset(e.Path)
			if err != nil {
				return ObjectRecord{}, err
			}

			n := arr.Shape[1]
			rec := PhotometryRecord{
				Magnitude: make([]Measurement, n),
				Flux:      make([]Measurement, n),
			}
			for i := 0; i < n; i++ {
				rec.Magnitude[i] = Measurement{Value: arr.At(0, i), Error: arr.At(1, i)}
				rec.Flux[i] = Measurement{Value: arr.At(2, i), Error: arr.At(3, i)}
			}
			record.Photometry[rel] = rec
		}
	}

	return record, nil
}

// readSpectrumPart folds one spectrum/covariance/inv_covariance dataset into
// the record's entry for its spectrum name.
func (s *Service) readSpectrumPart(record *ObjectRecord, path, rel string) error {
	parts := strings.SplitN(rel, "/", 2)
	if len(parts) != 2 {
		return nil
	}
	specName, part := parts[0], parts[1]

	arr, attrs, err := s.store.GetDataset(path)
	if err != nil {
		return err
	}

	rec := record.Spectra[specName]
	switch part {
	case "spectrum":
		rec.Wavelength = arr.Column(0)
		rec.Flux = arr.Column(1)
		rec.Error = arr.Column(2)
		rec.SpecRes, _ = attrs.GetFloat("specres")
	case "covariance":
		rec.Covariance = &arr
	case "inv_covariance":
		rec.InvCovariance = &arr
	}
	record.Spectra[specName] = rec

	return nil
}
