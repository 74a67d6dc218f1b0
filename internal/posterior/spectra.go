package posterior

import (
	"math/rand"

	"github.com/xtxerr/specdb/internal/errors"
	"github.com/xtxerr/specdb/internal/forward"
)

// SpectrumBox pairs one reconstructed spectrum with the posterior sample it
// was synthesized from.
type SpectrumBox struct {
	Spectrum forward.Spectrum
	Params   map[string]float64
}

// PhotometryBox pairs one synthetic magnitude and flux with its sample.
type PhotometryBox struct {
	Magnitude float64
	Flux      float64
	Params    map[string]float64
}

// DrawOptions configures the random posterior draws of the spectrum and
// photometry accessors.
type DrawOptions struct {
	Burnin int

	// WavelRange bounds the synthesized spectra. The zero value falls back
	// to the wavel_min/wavel_max attributes of the sample set.
	WavelRange [2]float64

	// SpecRes selects the synthesized spectral resolution.
	SpecRes float64

	// Rand drives the index draws. A nil source leaves the output
	// non-deterministic.
	Rand *rand.Rand

	// Photometry is required by MCMCPhotometry and by models without
	// built-in synthetic photometry.
	Photometry forward.PhotometryService
}

// drawIndices draws n independent uniform sample indices; duplicates are
// possible.
func drawIndices(rng *rand.Rand, n, size int) []int {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	out := make([]int, n)
	for i := range out {
		out[i] = rng.Intn(size)
	}
	return out
}

// modelConfig builds the forward-model configuration of a sample set from
// its stored attributes and the draw options.
func (set sampleSet) modelConfig(opts DrawOptions, filterName string) forward.Config {
	cfg := forward.Config{
		WavelRange: opts.WavelRange,
		SpecRes:    opts.SpecRes,
		FilterName: filterName,
		Photometry: opts.Photometry,
	}

	if cfg.WavelRange == [2]float64{} {
		lo, _ := set.Attrs.GetFloat("wavel_min")
		hi, _ := set.Attrs.GetFloat("wavel_max")
		cfg.WavelRange = [2]float64{lo, hi}
	}

	return cfg
}

// forwardParams builds the forward-model parameter mapping of sample row i:
// scaling, error and correlation-kernel parameters are excluded, and the
// stored distance attribute is supplied when the samples lack one.
func (set sampleSet) forwardParams(i int) forward.Parameters {
	row := set.Samples.Row(i)

	params := forward.Parameters{}
	for _, name := range set.Params.ForwardNames() {
		params[name] = row[set.Params.Index(name)]
	}

	if _, ok := params["distance"]; !ok {
		if d, ok := set.Attrs.GetFloat("distance"); ok {
			params["distance"] = d
		}
	}

	return params
}

// spectrumKind reads the forward-model kind attribute of a sample set.
func (set sampleSet) spectrumKind(tag string) (string, error) {
	kind := set.Attrs.GetString("spectrum")
	if kind == "" {
		return "", errors.Wrapf(errors.ErrMissingField,
			"sample set '%s' has no spectrum attribute", tag)
	}
	return kind, nil
}

// MCMCSpectra draws random posterior samples and reconstructs one spectrum
// per draw through the sample set's forward model. Output order matches
// draw order.
func (s *Service) MCMCSpectra(tag string, random int, opts DrawOptions) ([]SpectrumBox, error) {
	set, err := s.load(tag, opts.Burnin)
	if err != nil {
		return nil, err
	}

	kind, err := set.spectrumKind(tag)
	if err != nil {
		return nil, err
	}

	model, err := forward.New(kind, set.modelConfig(opts, ""))
	if err != nil {
		return nil, err
	}

	boxes := make([]SpectrumBox, 0, random)
	for _, idx := range drawIndices(opts.Rand, random, set.Samples.Shape[0]) {
		params := set.forwardParams(idx)

		spec, err := model.GetModel(params, nil)
		if err != nil {
			return nil, errors.Wrapf(err, "sample %d of '%s'", idx, tag)
		}

		boxes = append(boxes, SpectrumBox{Spectrum: spec, Params: params})
	}

	s.log.Debug("reconstructed posterior spectra", "tag", tag, "draws", random, "model", kind)
	return boxes, nil
}

// MCMCPhotometry draws random posterior samples and synthesizes one
// magnitude and band-averaged flux per draw in the given filter.
func (s *Service) MCMCPhotometry(tag, filterName string, random int, opts DrawOptions) ([]PhotometryBox, error) {
	set, err := s.load(tag, opts.Burnin)
	if err != nil {
		return nil, err
	}

	kind, err := set.spectrumKind(tag)
	if err != nil {
		return nil, err
	}

	model, err := forward.New(kind, set.modelConfig(opts, filterName))
	if err != nil {
		return nil, err
	}

	boxes := make([]PhotometryBox, 0, random)
	for _, idx := range drawIndices(opts.Rand, random, set.Samples.Shape[0]) {
		params := set.forwardParams(idx)

		mag, _, err := model.GetMagnitude(params)
		if err != nil {
			return nil, errors.Wrapf(err, "sample %d of '%s'", idx, tag)
		}
		flux, _, err := model.GetFlux(params)
		if err != nil {
			return nil, errors.Wrapf(err, "sample %d of '%s'", idx, tag)
		}

		boxes = append(boxes, PhotometryBox{Magnitude: mag, Flux: flux, Params: params})
	}

	return boxes, nil
}
