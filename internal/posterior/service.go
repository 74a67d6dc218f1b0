// Package posterior implements the read path over stored Posterior Sample
// Sets: point estimates, random spectrum resampling, pressure-temperature
// profile reconstruction and derived effective temperatures.
package posterior

import (
	"log/slog"

	"github.com/xtxerr/specdb/internal/errors"
	"github.com/xtxerr/specdb/internal/logging"
	"github.com/xtxerr/specdb/internal/schema"
	"github.com/xtxerr/specdb/internal/store"
)

// Service is the posterior-accessor front end over one open store.
type Service struct {
	store *store.Store
	log   *slog.Logger
}

// New creates a posterior service.
func New(st *store.Store) *Service {
	return &Service{store: st, log: logging.Component("posterior")}
}

// sampleSet is one loaded Posterior Sample Set, flattened to 2-D.
type sampleSet struct {
	Samples store.Array // (n_samples, n_param)
	LnProb  []float64   // (n_samples)
	Params  schema.ParamSet
	Attrs   store.Attrs
}

// load reads a sample set and flattens walker-shaped chains after trimming
// burnin leading steps. Flat (2-D) sample arrays ignore burnin: nested
// samplers have no burn-in phase. A burnin beyond the number of steps is a
// range error.
func (s *Service) load(tag string, burnin int) (sampleSet, error) {
	arr, attrs, err := s.store.GetDataset(schema.SamplesPath(tag))
	if err != nil {
		return sampleSet{}, err
	}

	lnProb, _, err := s.store.GetDataset(schema.LnProbPath(tag))
	if err != nil {
		return sampleSet{}, err
	}

	params, err := schema.DecodeParams(attrs)
	if err != nil {
		return sampleSet{}, errors.Wrapf(err, "sample set '%s'", tag)
	}

	set := sampleSet{Params: params, Attrs: attrs}

	switch arr.NDim() {
	case 2:
		set.Samples = arr
		set.LnProb = lnProb.Data

	case 3:
		walkers, steps, nParam := arr.Shape[0], arr.Shape[1], arr.Shape[2]
		if burnin > steps {
			return sampleSet{}, errors.Wrapf(errors.ErrBurninRange,
				"burnin %d for %d steps", burnin, steps)
		}

		kept := steps - burnin
		flat := store.NewArray(walkers*kept, nParam)
		flatProb := make([]float64, walkers*kept)

		row := 0
		for w := 0; w < walkers; w++ {
			for t := burnin; t < steps; t++ {
				copy(flat.Data[row*nParam:], arr.Data[(w*steps+t)*nParam:(w*steps+t+1)*nParam])
				flatProb[row] = lnProb.Data[w*steps+t]
				row++
			}
		}

		set.Samples = flat
		set.LnProb = flatProb

	default:
		return sampleSet{}, errors.Wrapf(errors.ErrShapeMismatch,
			"sample set '%s' has %d dimensions", tag, arr.NDim())
	}

	if len(set.LnProb) != set.Samples.Shape[0] {
		return sampleSet{}, errors.Wrapf(errors.ErrShapeMismatch,
			"sample set '%s': %d log-probabilities for %d samples",
			tag, len(set.LnProb), set.Samples.Shape[0])
	}

	// A burn-in equal to the step count is in range but leaves nothing for
	// the accessors to work with.
	if set.Samples.Shape[0] == 0 {
		return sampleSet{}, errors.Wrapf(errors.ErrNoSamples,
			"sample set '%s' after burn-in of %d steps", tag, burnin)
	}

	return set, nil
}

// toParams maps sample row i to a name -> value mapping.
func (set sampleSet) toParams(i int) map[string]float64 {
	row := set.Samples.Row(i)
	out := make(map[string]float64, len(set.Params))
	for j, p := range set.Params {
		out[p.Name] = row[j]
	}
	return out
}
