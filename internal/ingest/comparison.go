package ingest

import (
	"fmt"

	"github.com/xtxerr/specdb/internal/errors"
	"github.com/xtxerr/specdb/internal/numeric"
	"github.com/xtxerr/specdb/internal/schema"
	"github.com/xtxerr/specdb/internal/store"
	"github.com/xtxerr/specdb/internal/units"
)

// ComparisonInput is a grid comparison of an object against a model grid:
// a goodness-of-fit statistic and fitted flux scaling per grid point.
type ComparisonInput struct {
	Object string
	Model  string

	// Axes are the parameter axes of the grid, in storage order.
	Axes []Axis

	// GoodnessOfFit and FluxScaling span the axes, row-major.
	GoodnessOfFit store.Array
	FluxScaling   store.Array
}

// AddComparison stores a grid-comparison result: the goodness-of-fit and
// flux-scaling grids, the coordinate axes, and best-fit summary attributes
// including the radius derived from the best flux scaling and the object's
// stored distance.
func (s *Service) AddComparison(tag string, input ComparisonInput) error {
	if len(input.Axes) == 0 {
		return errors.NewValidation("comparison", "at least one parameter axis required")
	}

	wantShape := make([]int, len(input.Axes))
	size := 1
	for i, axis := range input.Axes {
		wantShape[i] = len(axis.Values)
		size *= len(axis.Values)
	}
	if input.GoodnessOfFit.Size() != size || input.FluxScaling.Size() != size {
		return errors.Wrapf(errors.ErrShapeMismatch,
			"goodness-of-fit and flux-scaling grids must span the axes (%v points)", wantShape)
	}

	distance, err := s.objectDistance(input.Object)
	if err != nil {
		return err
	}

	best := numeric.ArgMin(input.GoodnessOfFit.Data)
	bestIdx := numeric.Unravel(best, wantShape)
	bestScaling := input.FluxScaling.Data[best]

	attrs := store.Attrs{
		"object":       store.String(input.Object),
		"model":        store.String(input.Model),
		"flux_scaling": store.Float(bestScaling),
		"radius":       store.Float(units.RadiusFromScaling(bestScaling, distance)),
	}
	for i, axis := range input.Axes {
		attrs["best_"+axis.Name] = store.Float(axis.Values[bestIdx[i]])
	}

	params := make(schema.ParamSet, len(input.Axes))
	for i, axis := range input.Axes {
		params[i] = schema.Param{Name: axis.Name, Role: schema.RoleModel}
	}
	params.Encode(attrs)

	base := schema.ComparisonPath(tag)

	for _, axis := range input.Axes {
		if err := s.store.PutDataset(base+"/"+axis.Name, store.Vector(axis.Values), nil); err != nil {
			return err
		}
	}
	if err := s.store.PutDataset(base+"/flux_scaling",
		store.Array{Shape: wantShape, Data: input.FluxScaling.Data}, nil); err != nil {
		return err
	}

	s.log.Info("stored grid comparison", "tag", tag, "object", input.Object, "model", input.Model)

	return s.store.PutDataset(base+"/goodness_of_fit",
		store.Array{Shape: wantShape, Data: input.GoodnessOfFit.Data}, attrs)
}

// EmpiricalInput is a comparison of an object against a set of empirical
// template spectra.
type EmpiricalInput struct {
	Object string

	// Names identifies the template spectra, SpectralTypes their types.
	Names         []string
	SpectralTypes []string

	// GoodnessOfFit and FluxScaling hold one entry per template.
	GoodnessOfFit []float64
	FluxScaling   []float64
}

// AddEmpirical stores an empirical-template comparison with the best-fit
// template recorded in the attributes.
func (s *Service) AddEmpirical(tag string, input EmpiricalInput) error {
	n := len(input.Names)
	if n == 0 {
		return errors.NewValidation("empirical comparison", "at least one template required")
	}
	if len(input.GoodnessOfFit) != n || len(input.FluxScaling) != n {
		return errors.Wrapf(errors.ErrShapeMismatch,
			"goodness-of-fit and flux-scaling need one entry per template (%d)", n)
	}
	if len(input.SpectralTypes) != 0 && len(input.SpectralTypes) != n {
		return errors.Wrapf(errors.ErrShapeMismatch,
			"spectral types need one entry per template (%d)", n)
	}

	best := numeric.ArgMin(input.GoodnessOfFit)

	attrs := store.Attrs{
		"object":       store.String(input.Object),
		"best_name":    store.String(input.Names[best]),
		"flux_scaling": store.Float(input.FluxScaling[best]),
	}
	if len(input.SpectralTypes) == n {
		attrs["best_sptype"] = store.String(input.SpectralTypes[best])
	}

	base := schema.EmpiricalPath(tag)

	if err := s.store.PutStringDataset(base+"/names", input.Names, nil); err != nil {
		return err
	}
	if len(input.SpectralTypes) == n {
		if err := s.store.PutStringDataset(base+"/sptypes", input.SpectralTypes, nil); err != nil {
			return err
		}
	}
	if err := s.store.PutDataset(base+"/flux_scaling", store.Vector(input.FluxScaling), nil); err != nil {
		return err
	}

	s.log.Info("stored empirical comparison", "tag", tag, "object", input.Object, "templates", n)

	return s.store.PutDataset(base+"/goodness_of_fit", store.Vector(input.GoodnessOfFit), attrs)
}

// objectDistance reads the stored distance (pc) of an object.
func (s *Service) objectDistance(object string) (float64, error) {
	arr, _, err := s.store.GetDataset(schema.ObjectDistancePath(object))
	if err != nil {
		if errors.IsNotFound(err) {
			return 0, fmt.Errorf("object '%s' has no stored distance: %w", object, err)
		}
		return 0, err
	}
	return arr.Data[0], nil
}
