package posterior

import (
	"context"
	"runtime"

	"github.com/DataDog/sketches-go/ddsketch"
	"golang.org/x/sync/errgroup"

	"github.com/xtxerr/specdb/internal/errors"
	"github.com/xtxerr/specdb/internal/forward"
	"github.com/xtxerr/specdb/internal/ingest"
	"github.com/xtxerr/specdb/internal/schema"
	"github.com/xtxerr/specdb/internal/store"
)

// RetrievalModelBuilder constructs the radiative-transfer forward model of a
// retrieval. Construction is expensive; the accessors build one instance per
// call and reuse it across all draws.
type RetrievalModelBuilder interface {
	Build(manifest ingest.Manifest, wavelRange [2]float64, specRes float64) (forward.RetrievalModel, error)
}

// RetrievalOptions configures the retrieval accessors.
type RetrievalOptions struct {
	DrawOptions

	// Builder constructs the forward model.
	Builder RetrievalModelBuilder

	// Workers bounds the parallel forward-model evaluations. Zero uses one
	// worker per CPU. Output order is preserved regardless.
	Workers int
}

// manifestFromAttrs rebuilds the retrieval manifest stored by AddRetrieval.
func manifestFromAttrs(attrs store.Attrs) ingest.Manifest {
	lo, _ := attrs.GetFloat("wavel_min")
	hi, _ := attrs.GetFloat("wavel_max")
	distance, _ := attrs.GetFloat("distance")

	return ingest.Manifest{
		LineSpecies:  schema.DecodeStrings(attrs, "line_species"),
		CloudSpecies: schema.DecodeStrings(attrs, "cloud_species"),
		PTProfile:    attrs.GetString("pt_profile"),
		Chemistry:    attrs.GetString("chemistry"),
		Quenching:    attrs.GetString("quenching"),
		WavelRange:   [2]float64{lo, hi},
		Distance:     distance,
	}
}

// RetrievalSpectra reconstructs full forward-model spectra for random
// posterior draws. The wavelength range defaults to the retrieval's original
// range. The reusable forward-model instance is returned alongside the
// spectra for further use by the caller.
func (s *Service) RetrievalSpectra(tag string, random int, opts RetrievalOptions) ([]SpectrumBox, forward.RetrievalModel, error) {
	if opts.Builder == nil {
		return nil, nil, errors.NewValidation("retrieval", "a forward-model builder is required")
	}

	set, err := s.load(tag, opts.Burnin)
	if err != nil {
		return nil, nil, err
	}

	kind, err := set.spectrumKind(tag)
	if err != nil {
		return nil, nil, err
	}
	if kind != ingest.RetrievalSpectrumKind {
		return nil, nil, errors.Wrapf(errors.ErrUnsupportedKind,
			"sample set '%s' was fitted with '%s', not the retrieval model", tag, kind)
	}

	manifest := manifestFromAttrs(set.Attrs)

	wavelRange := opts.WavelRange
	if wavelRange == [2]float64{} {
		wavelRange = manifest.WavelRange
	}

	model, err := opts.Builder.Build(manifest, wavelRange, opts.SpecRes)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "build forward model for '%s'", tag)
	}

	indices := drawIndices(opts.Rand, random, set.Samples.Shape[0])
	boxes := make([]SpectrumBox, len(indices))

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	group, _ := errgroup.WithContext(context.Background())
	group.SetLimit(workers)

	for i, idx := range indices {
		group.Go(func() error {
			params := set.toParams(idx)

			spec, err := model.Evaluate(params)
			if err != nil {
				return errors.Wrapf(err, "sample %d of '%s'", idx, tag)
			}

			boxes[i] = SpectrumBox{Spectrum: spec, Params: params}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, nil, err
	}

	s.log.Info("reconstructed retrieval spectra", "tag", tag, "draws", random)
	return boxes, model, nil
}

// teffSketchAccuracy is the relative accuracy of the percentile sketch.
const teffSketchAccuracy = 1e-3

// RetrievalTeff derives the effective temperature distribution of a
// retrieval: per draw, the forward-model spectrum is scaled back to the
// surface and integrated through the Stefan-Boltzmann law. The 16th, 50th
// and 84th percentiles are persisted as the sample set's teff attribute;
// the returned mean is the median and the standard deviation half the
// 16-84 spread.
func (s *Service) RetrievalTeff(tag string, random int, opts RetrievalOptions) (mean, std float64, err error) {
	boxes, _, err := s.RetrievalSpectra(tag, random, opts)
	if err != nil {
		return 0, 0, err
	}

	set, err := s.load(tag, opts.Burnin)
	if err != nil {
		return 0, 0, err
	}

	manifest := manifestFromAttrs(set.Attrs)
	if manifest.Distance <= 0 {
		return 0, 0, errors.Wrapf(errors.ErrMissingField,
			"sample set '%s' has no distance attribute", tag)
	}

	sketch, err := ddsketch.NewDefaultDDSketch(teffSketchAccuracy)
	if err != nil {
		return 0, 0, errors.Wrap(err, "create percentile sketch")
	}

	for i, box := range boxes {
		radius, ok := box.Params["radius"]
		if !ok {
			return 0, 0, errors.Wrap(errors.ErrMissingField, "sample parameter 'radius'")
		}

		teff, err := forward.EffectiveTemperature(box.Spectrum, manifest.Distance, radius)
		if err != nil {
			return 0, 0, errors.Wrapf(err, "draw %d of '%s'", i, tag)
		}
		if err := sketch.Add(teff); err != nil {
			return 0, 0, errors.Wrap(err, "add to percentile sketch")
		}
	}

	quantiles, err := sketch.GetValuesAtQuantiles([]float64{0.16, 0.50, 0.84})
	if err != nil {
		return 0, 0, errors.Wrap(err, "query percentile sketch")
	}

	if err := s.store.SetAttr(schema.SamplesPath(tag), "teff", store.Floats(quantiles)); err != nil {
		return 0, 0, err
	}

	mean = quantiles[1]
	std = 0.5 * (quantiles[2] - quantiles[0])

	s.log.Info("derived effective temperature", "tag", tag, "teff", mean, "std", std)
	return mean, std, nil
}
