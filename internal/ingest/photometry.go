package ingest

import (
	"sort"
	"sync"

	"github.com/xtxerr/specdb/internal/errors"
	"github.com/xtxerr/specdb/internal/schema"
	"github.com/xtxerr/specdb/internal/store"
)

// PhotometryTable is the normalized content of one photometric library:
// per-object columns keyed by name, either numeric (parallaxes, fluxes,
// magnitudes) or textual (object names, spectral types). All columns must
// have the same length.
type PhotometryTable struct {
	FloatColumns  map[string][]float64
	StringColumns map[string][]string
}

// rows returns the common column length, or -1 when the columns disagree.
func (t PhotometryTable) rows() int {
	n := -1
	for _, col := range t.FloatColumns {
		if n >= 0 && len(col) != n {
			return -1
		}
		n = len(col)
	}
	for _, col := range t.StringColumns {
		if n >= 0 && len(col) != n {
			return -1
		}
		n = len(col)
	}
	return n
}

// PhotometryNormalizer converts one photometric library's source
// distribution, located under the data folder, into canonical columns.
type PhotometryNormalizer interface {
	Ingest(dataFolder string) (PhotometryTable, error)
}

var (
	photometryMu       sync.RWMutex
	photometryRegistry = map[string]PhotometryNormalizer{}
)

// RegisterPhotometryLibrary adds a normalizer for a photometric library.
func RegisterPhotometryLibrary(name string, normalizer PhotometryNormalizer) {
	photometryMu.Lock()
	defer photometryMu.Unlock()
	photometryRegistry[name] = normalizer
}

// PhotometryLibraries returns the registered library names in sorted order.
func PhotometryLibraries() []string {
	photometryMu.RLock()
	defer photometryMu.RUnlock()

	kinds := make([]string, 0, len(photometryRegistry))
	for kind := range photometryRegistry {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// AddPhotometry ingests a photometric library through its registered
// normalizer and stores each column as a dataset under the library's group.
// An existing library is removed first, so re-ingestion never leaves stale
// columns behind.
func (s *Service) AddPhotometry(library string) error {
	photometryMu.RLock()
	normalizer, ok := photometryRegistry[library]
	photometryMu.RUnlock()

	if !ok {
		return errors.NewUnsupported(errors.ErrUnsupportedKind, library, PhotometryLibraries())
	}

	table, err := normalizer.Ingest(s.dataFolder)
	if err != nil {
		return errors.Wrapf(err, "ingest photometric library '%s'", library)
	}

	if len(table.FloatColumns)+len(table.StringColumns) == 0 {
		return errors.NewMalformed(library, "empty photometric library")
	}

	n := table.rows()
	if n < 0 {
		return errors.Wrapf(errors.ErrShapeMismatch,
			"photometric library '%s': column lengths differ", library)
	}
	if n == 0 {
		return errors.NewMalformed(library, "empty photometric library")
	}

	base := schema.PhotometryLibraryPath(library)
	if exists, err := s.store.Exists(base); err != nil {
		return err
	} else if exists {
		if err := s.store.Delete(base); err != nil {
			return err
		}
	}

	attrs := store.Attrs{"n_objects": store.Int(int64(n))}

	for _, column := range sortedKeys(table.FloatColumns) {
		path := schema.PhotometryColumnPath(library, column)
		if err := s.store.PutDataset(path, store.Vector(table.FloatColumns[column]), attrs); err != nil {
			return err
		}
	}
	for _, column := range sortedKeys(table.StringColumns) {
		path := schema.PhotometryColumnPath(library, column)
		if err := s.store.PutStringDataset(path, table.StringColumns[column], attrs); err != nil {
			return err
		}
	}

	s.log.Info("stored photometric library", "library", library, "objects", n,
		"columns", len(table.FloatColumns)+len(table.StringColumns))

	return nil
}
