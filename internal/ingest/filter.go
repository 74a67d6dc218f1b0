package ingest

import (
	"github.com/xtxerr/specdb/internal/errors"
	"github.com/xtxerr/specdb/internal/schema"
	"github.com/xtxerr/specdb/internal/store"
)

// Detector types stored with filter profiles.
const (
	DetectorPhoton = "photon"
	DetectorEnergy = "energy"
)

// FilterCurve is a filter transmission profile.
type FilterCurve struct {
	Wavelength   []float64 // (um)
	Transmission []float64
	DetectorType string
}

// FilterFetcher resolves a filter profile from an external catalog. The
// fetch is an opaque download; the service only sees the resulting curve.
type FilterFetcher interface {
	Fetch(name string) (FilterCurve, error)
}

// AddFilter stores a filter transmission curve. With a nil curve the profile
// is fetched through the configured fetcher. Rows where the wavelength does
// not increase are dropped, keeping the first occurrence, since some source
// catalogs contain non-monotonic artifacts.
func (s *Service) AddFilter(name string, curve *FilterCurve) error {
	if curve == nil {
		if s.fetcher == nil {
			return errors.Wrapf(errors.ErrFilterNotFound, "filter '%s': no fetcher configured", name)
		}

		fetched, err := s.fetcher.Fetch(name)
		if err != nil {
			return errors.Wrapf(err, "fetch filter '%s'", name)
		}
		curve = &fetched
	}

	if len(curve.Wavelength) != len(curve.Transmission) {
		return errors.NewMalformed(name, "wavelength and transmission lengths differ")
	}
	if len(curve.Wavelength) == 0 {
		return errors.NewMalformed(name, "empty transmission curve")
	}

	wavel, trans := collapseNonMonotonic(curve.Wavelength, curve.Transmission)
	if dropped := len(curve.Wavelength) - len(wavel); dropped > 0 {
		s.log.Warn("dropped non-monotonic wavelength rows", "filter", name, "rows", dropped)
	}

	detType := curve.DetectorType
	if detType == "" {
		detType = DetectorPhoton
	}

	attrs := store.Attrs{
		"det_type":    store.String(detType),
		"wavel_units": store.String("um"),
	}

	return s.store.PutDataset(schema.FilterPath(name), store.ColumnStack(wavel, trans), attrs)
}

// collapseNonMonotonic drops rows whose wavelength does not strictly
// increase over the last kept row.
func collapseNonMonotonic(wavel, trans []float64) ([]float64, []float64) {
	outW := make([]float64, 0, len(wavel))
	outT := make([]float64, 0, len(trans))

	for i := range wavel {
		if i > 0 && wavel[i] <= outW[len(outW)-1] {
			continue
		}
		outW = append(outW, wavel[i])
		outT = append(outT, trans[i])
	}

	return outW, outT
}

// GetFilter reads a stored filter profile back.
func (s *Service) GetFilter(name string) (FilterCurve, error) {
	arr, attrs, err := s.store.GetDataset(schema.FilterPath(name))
	if err != nil {
		if errors.IsNotFound(err) {
			return FilterCurve{}, errors.NewNotFound("filter", name)
		}
		return FilterCurve{}, err
	}

	return FilterCurve{
		Wavelength:   arr.Column(0),
		Transmission: arr.Column(1),
		DetectorType: attrs.GetString("det_type"),
	}, nil
}

// ensureFilter makes sure a filter profile is stored, fetching it on demand.
func (s *Service) ensureFilter(name string) error {
	ok, err := s.store.HasDataset(schema.FilterPath(name))
	if err != nil || ok {
		return err
	}
	return s.AddFilter(name, nil)
}
