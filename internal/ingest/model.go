package ingest

import (
	"math"
	"sort"
	"sync"

	"github.com/xtxerr/specdb/internal/errors"
	"github.com/xtxerr/specdb/internal/schema"
	"github.com/xtxerr/specdb/internal/store"
)

// GridAxes is the declared parameter axis order of model grids. Axes absent
// from a source grid are backfilled with a single sentinel value so every
// model exposes the same parameter-tuple shape to downstream interpolation.
var GridAxes = []string{"teff", "logg", "feh", "c_o_ratio", "fsed"}

// Axis is one parameter axis of a model grid.
type Axis struct {
	Name   string
	Values []float64
}

// ModelGrid is a rectangular grid of pre-resampled spectra. Flux is stored
// row-major over the axes, with wavelength as the trailing dimension.
// Missing grid points hold NaN.
type ModelGrid struct {
	Axes       []Axis
	Wavelength []float64 // (um)
	Flux       []float64 // (W m-2 um-1)
	SpecRes    float64
}

// size returns the expected flux length of a rectangular grid.
func (g ModelGrid) size() int {
	n := len(g.Wavelength)
	for _, axis := range g.Axes {
		n *= len(axis.Values)
	}
	return n
}

// ModelOptions narrows what a normalizer ingests from its source.
type ModelOptions struct {
	WavelRange [2]float64 // zero value keeps the full range
	SpecRes    float64    // zero keeps the native resolution
	TeffRange  [2]float64 // zero value keeps all temperatures
}

// GridNormalizer converts one source distribution into a canonical grid.
// Produced axes must follow the GridAxes order, with any model-specific
// extra axes after them; inserting sentinel axes for absent ones does not
// reorder the flux layout.
type GridNormalizer interface {
	Ingest(source string, opts ModelOptions) (ModelGrid, error)
}

var (
	modelMu       sync.RWMutex
	modelRegistry = map[string]GridNormalizer{}
)

// RegisterModel adds a grid normalizer for a model family.
func RegisterModel(name string, normalizer GridNormalizer) {
	modelMu.Lock()
	defer modelMu.Unlock()
	modelRegistry[name] = normalizer
}

// ModelKinds returns the registered model names in sorted order.
func ModelKinds() []string {
	modelMu.RLock()
	defer modelMu.RUnlock()

	kinds := make([]string, 0, len(modelRegistry))
	for kind := range modelRegistry {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// AddModel ingests a model spectrum grid through the registered normalizer
// for modelID. source is the local path of the raw distribution, resolved
// against the configured data folder by the normalizer.
func (s *Service) AddModel(modelID, source string, opts ModelOptions) error {
	modelMu.RLock()
	normalizer, ok := modelRegistry[modelID]
	modelMu.RUnlock()

	if !ok {
		return errors.NewUnsupported(errors.ErrUnsupportedModel, modelID, ModelKinds())
	}

	grid, err := normalizer.Ingest(source, opts)
	if err != nil {
		return errors.Wrapf(err, "ingest model '%s'", modelID)
	}

	grid = backfillAxes(grid)

	if len(grid.Flux) != grid.size() {
		return errors.Wrapf(errors.ErrShapeMismatch,
			"model '%s': %d flux values for a %d-point grid", modelID, len(grid.Flux), grid.size())
	}

	base := schema.ModelPath(modelID)
	params := make(schema.ParamSet, len(grid.Axes))

	for i, axis := range grid.Axes {
		params[i] = schema.Param{Name: axis.Name, Role: schema.RoleModel}
		if err := s.store.PutDataset(base+"/"+axis.Name, store.Vector(axis.Values), nil); err != nil {
			return err
		}
	}

	if err := s.store.PutDataset(base+"/wavelength", store.Vector(grid.Wavelength), nil); err != nil {
		return err
	}

	shape := make([]int, 0, len(grid.Axes)+1)
	for _, axis := range grid.Axes {
		shape = append(shape, len(axis.Values))
	}
	shape = append(shape, len(grid.Wavelength))

	attrs := store.Attrs{
		"wavel_min":   store.Float(grid.Wavelength[0]),
		"wavel_max":   store.Float(grid.Wavelength[len(grid.Wavelength)-1]),
		"specres":     store.Float(grid.SpecRes),
		"wavel_units": store.String("um"),
		"flux_units":  store.String("w m-2 um-1"),
	}
	params.Encode(attrs)

	s.log.Info("stored model grid", "model", modelID,
		"axes", len(grid.Axes), "wavelengths", len(grid.Wavelength))

	return s.store.PutDataset(base+"/flux", store.Array{Shape: shape, Data: grid.Flux}, attrs)
}

// backfillAxes inserts single-value sentinel axes for every declared axis
// between the grid's first axis and its last, keeping the declared order.
// Axes outside the declared set are kept after the declared ones.
func backfillAxes(grid ModelGrid) ModelGrid {
	present := map[string]Axis{}
	for _, axis := range grid.Axes {
		present[axis.Name] = axis
	}

	declared := map[string]bool{}
	out := make([]Axis, 0, len(GridAxes))
	for _, name := range GridAxes {
		declared[name] = true

		if axis, ok := present[name]; ok {
			out = append(out, axis)
		} else {
			out = append(out, Axis{Name: name, Values: []float64{math.NaN()}})
		}
	}

	for _, axis := range grid.Axes {
		if !declared[axis.Name] {
			out = append(out, axis)
		}
	}

	grid.Axes = out
	return grid
}
