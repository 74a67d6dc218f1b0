package ingest

import (
	"github.com/xtxerr/specdb/internal/errors"
	"github.com/xtxerr/specdb/internal/numeric"
	"github.com/xtxerr/specdb/internal/schema"
	"github.com/xtxerr/specdb/internal/store"
)

// Sampler kinds accepted by AddSamples.
var samplerKinds = []string{"emcee", "multinest", "ultranest"}

// SampleSet is the payload of one AddSamples call.
type SampleSet struct {
	Sampler string

	// Samples has shape (n_samples, n_param) for nested samplers or
	// (n_walkers, n_steps, n_param) for ensemble samplers.
	Samples store.Array

	// LnProb has shape (n_samples) or (n_walkers, n_steps), matching
	// Samples.
	LnProb store.Array

	// Params names the sample columns in order.
	Params schema.ParamSet

	// Spectrum is the forward-model kind the samples were fitted with.
	Spectrum string

	// Optional metadata.
	LnEvidence *float64
	MeanAccept *float64
	Distance   *float64 // (pc)

	// Extra attributes stored verbatim alongside the generated ones.
	Attrs store.Attrs
}

// AddSamples writes a fresh Posterior Sample Set under the given tag. For
// walker-shaped chains the integrated autocorrelation time per parameter is
// estimated and stored; a chain too short for a reliable estimate logs a
// warning and the attribute is omitted.
func (s *Service) AddSamples(tag string, set SampleSet) error {
	if !contains(samplerKinds, set.Sampler) {
		return errors.NewUnsupported(errors.ErrUnsupportedSampler, set.Sampler, samplerKinds)
	}

	nDim := set.Samples.NDim()
	if nDim != 2 && nDim != 3 {
		return errors.Wrapf(errors.ErrShapeMismatch,
			"samples must be 2-D or 3-D, got %d-D", nDim)
	}

	nParam := set.Samples.Shape[nDim-1]
	if nParam != len(set.Params) {
		return errors.Wrapf(errors.ErrShapeMismatch,
			"%d parameter names for %d sample columns", len(set.Params), nParam)
	}

	wantLnProb := 1
	for _, dim := range set.Samples.Shape[:nDim-1] {
		wantLnProb *= dim
	}
	if set.LnProb.Size() != wantLnProb {
		return errors.Wrapf(errors.ErrShapeMismatch,
			"ln_prob size %d does not match samples shape %v", set.LnProb.Size(), set.Samples.Shape)
	}

	attrs := set.Attrs.Clone()
	if attrs == nil {
		attrs = store.Attrs{}
	}
	attrs["sampler"] = store.String(set.Sampler)
	if set.Spectrum != "" {
		attrs["spectrum"] = store.String(set.Spectrum)
	}
	if set.LnEvidence != nil {
		attrs["ln_evidence"] = store.Float(*set.LnEvidence)
	}
	if set.MeanAccept != nil {
		attrs["acc_fraction"] = store.Float(*set.MeanAccept)
	}
	if set.Distance != nil {
		attrs["distance"] = store.Float(*set.Distance)
	}
	set.Params.Encode(attrs)

	if nDim == 3 {
		walkers, steps := set.Samples.Shape[0], set.Samples.Shape[1]

		taus, reliable := numeric.AutocorrTimes(set.Samples.Data, walkers, steps, nParam)
		if reliable {
			attrs["autocorr_time"] = store.Floats(taus)
		} else {
			s.log.Warn("chain too short for a reliable autocorrelation estimate, attribute omitted",
				"tag", tag, "steps", steps)
		}
	}

	if err := s.store.PutDataset(schema.SamplesPath(tag), set.Samples, attrs); err != nil {
		return err
	}
	if err := s.store.PutDataset(schema.LnProbPath(tag), set.LnProb, nil); err != nil {
		return err
	}

	s.log.Info("stored posterior samples", "tag", tag,
		"sampler", set.Sampler, "shape", set.Samples.Shape)
	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
