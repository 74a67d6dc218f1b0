package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xtxerr/specdb/internal/errors"
	"github.com/xtxerr/specdb/internal/forward"
	"github.com/xtxerr/specdb/internal/schema"
	"github.com/xtxerr/specdb/internal/store"
)

// Retrieval output file names produced by the external nested sampler.
const (
	retrievalSamplesFile = "post_equal_weights.dat"
	retrievalParamsFile  = "params.json"
	retrievalConfigFile  = "radtrans.json"
)

// RetrievalSpectrumKind is the spectrum attribute value of retrieval sample
// sets.
const RetrievalSpectrumKind = "petitradtrans"

// Manifest is the forward-model configuration of an external retrieval,
// read from radtrans.json.
type Manifest struct {
	LineSpecies  []string   `json:"line_species"`
	CloudSpecies []string   `json:"cloud_species"`
	PTProfile    string     `json:"pt_profile"`
	Chemistry    string     `json:"chemistry"`
	Quenching    string     `json:"quenching"`
	WavelRange   [2]float64 `json:"wavel_range"`
	Distance     float64    `json:"distance"`
}

// RetrievalOptions selects the derived-column passes run after the samples
// are stored. Each pass is O(n_samples) forward-model evaluations; a
// forward-model error aborts the call with the samples already stored.
type RetrievalOptions struct {
	// Chemistry serves the condensate-fraction and quench-pressure passes.
	Chemistry forward.ChemistryModel

	// Model serves the effective-temperature pass.
	Model forward.RetrievalModel

	IncludeCondensates    bool
	IncludeQuenchPressure bool
	IncludeTeff           bool
}

// AddRetrieval reads an external nested-sampling output folder (equal-weight
// posterior table plus parameter and forward-model manifests) and stores it
// as a Posterior Sample Set, optionally appending derived columns.
func (s *Service) AddRetrieval(tag, folder string, opts RetrievalOptions) error {
	names, manifest, err := readRetrievalManifests(folder)
	if err != nil {
		return err
	}

	rows, err := ReadTable(filepath.Join(folder, retrievalSamplesFile))
	if err != nil {
		return err
	}
	if len(rows[0]) != len(names)+1 {
		return errors.NewMalformed(retrievalSamplesFile,
			fmt.Sprintf("%d columns for %d parameters plus log-likelihood", len(rows[0]), len(names)))
	}

	nSamples, nParam := len(rows), len(names)
	samples := store.NewArray(nSamples, nParam)
	lnProb := make([]float64, nSamples)
	for i, row := range rows {
		copy(samples.Data[i*nParam:], row[:nParam])
		lnProb[i] = row[nParam]
	}

	params := make(schema.ParamSet, nParam)
	for i, name := range names {
		params[i] = schema.Param{Name: name, Role: paramRole(name)}
	}

	attrs := store.Attrs{
		"pt_profile": store.String(manifest.PTProfile),
		"chemistry":  store.String(manifest.Chemistry),
		"quenching":  store.String(manifest.Quenching),
		"wavel_min":  store.Float(manifest.WavelRange[0]),
		"wavel_max":  store.Float(manifest.WavelRange[1]),
	}
	schema.EncodeStrings(attrs, "line_species", manifest.LineSpecies)
	schema.EncodeStrings(attrs, "cloud_species", manifest.CloudSpecies)

	var distance *float64
	if manifest.Distance > 0 {
		distance = &manifest.Distance
	}

	err = s.AddSamples(tag, SampleSet{
		Sampler:  "multinest",
		Samples:  samples,
		LnProb:   store.Vector(lnProb),
		Params:   params,
		Spectrum: RetrievalSpectrumKind,
		Distance: distance,
		Attrs:    attrs,
	})
	if err != nil {
		return err
	}

	if opts.IncludeCondensates {
		if err := s.appendCondensateFractions(tag, manifest, opts.Chemistry); err != nil {
			return err
		}
	}
	if opts.IncludeQuenchPressure {
		if err := s.appendQuenchPressure(tag, manifest, opts.Chemistry); err != nil {
			return err
		}
	}
	if opts.IncludeTeff {
		if err := s.appendTeff(tag, manifest, opts.Model); err != nil {
			return err
		}
	}

	return nil
}

// paramRole classifies a retrieval parameter by its naming convention.
func paramRole(name string) schema.Role {
	switch {
	case strings.HasPrefix(name, "scaling_"):
		return schema.RoleScaling
	case strings.HasPrefix(name, "error_"):
		return schema.RoleError
	default:
		return schema.RoleModel
	}
}

func readRetrievalManifests(folder string) ([]string, Manifest, error) {
	var names []string
	if err := readJSONFile(filepath.Join(folder, retrievalParamsFile), &names); err != nil {
		return nil, Manifest{}, err
	}
	if len(names) == 0 {
		return nil, Manifest{}, errors.NewMalformed(retrievalParamsFile, "empty parameter list")
	}

	var manifest Manifest
	if err := readJSONFile(filepath.Join(folder, retrievalConfigFile), &manifest); err != nil {
		return nil, Manifest{}, err
	}

	return names, manifest, nil
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.NewMalformed(path, err.Error())
	}
	return nil
}

// AppendSampleColumn atomically appends one derived column to a stored
// 2-D sample set: the array and its attributes are swapped in a single
// replace, with every prior attribute preserved and n_param incremented.
func (s *Service) AppendSampleColumn(tag, name string, compute func(params forward.Parameters) (float64, error)) error {
	path := schema.SamplesPath(tag)

	arr, attrs, err := s.store.GetDataset(path)
	if err != nil {
		return err
	}
	if arr.NDim() != 2 {
		return errors.Wrapf(errors.ErrShapeMismatch,
			"derived columns require a flat sample array, got shape %v", arr.Shape)
	}

	params, err := schema.DecodeParams(attrs)
	if err != nil {
		return err
	}

	column := make([]float64, arr.Shape[0])
	for i := range column {
		row := arr.Row(i)

		sample := forward.Parameters{}
		for j, p := range params {
			sample[p.Name] = row[j]
		}

		if column[i], err = compute(sample); err != nil {
			return errors.Wrapf(err, "sample %d of '%s'", i, tag)
		}
	}

	newAttrs := attrs.Clone()
	params.Append(name).Encode(newAttrs)

	return s.store.Replace(path, arr.AppendColumn(column), newAttrs)
}

func (s *Service) appendCondensateFractions(tag string, manifest Manifest, chem forward.ChemistryModel) error {
	if chem == nil {
		return errors.NewValidation("retrieval", "condensate pass requires a chemistry model")
	}

	pressure := forward.PressureGrid()

	for _, species := range manifest.CloudSpecies {
		name := condensateColumn(species)
		s.log.Info("appending condensate mass fraction", "tag", tag, "species", species)

		err := s.AppendSampleColumn(tag, name, func(params forward.Parameters) (float64, error) {
			temp, err := forward.TemperatureProfile(manifest.PTProfile, params, pressure)
			if err != nil {
				return 0, err
			}
			return chem.CondensateFraction(params, species, pressure, temp)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// condensateColumn derives the sample column name of a condensate species,
// e.g. "MgSiO3(c)" -> "mass_fraction_MgSiO3".
func condensateColumn(species string) string {
	base := species
	if i := strings.Index(base, "("); i > 0 {
		base = base[:i]
	}
	return "mass_fraction_" + base
}

func (s *Service) appendQuenchPressure(tag string, manifest Manifest, chem forward.ChemistryModel) error {
	if chem == nil {
		return errors.NewValidation("retrieval", "quench-pressure pass requires a chemistry model")
	}

	pressure := forward.PressureGrid()
	s.log.Info("appending quench pressure", "tag", tag)

	return s.AppendSampleColumn(tag, "p_quench", func(params forward.Parameters) (float64, error) {
		temp, err := forward.TemperatureProfile(manifest.PTProfile, params, pressure)
		if err != nil {
			return 0, err
		}
		return chem.QuenchPressure(params, pressure, temp)
	})
}

func (s *Service) appendTeff(tag string, manifest Manifest, model forward.RetrievalModel) error {
	if model == nil {
		return errors.NewValidation("retrieval", "effective-temperature pass requires a forward model")
	}
	if manifest.Distance <= 0 {
		return errors.NewValidation("retrieval", "effective-temperature pass requires a distance")
	}

	s.log.Info("appending effective temperature", "tag", tag)

	return s.AppendSampleColumn(tag, "teff", func(params forward.Parameters) (float64, error) {
		spec, err := model.Evaluate(params)
		if err != nil {
			return 0, err
		}

		radius, ok := params["radius"]
		if !ok {
			return 0, errors.Wrap(errors.ErrMissingField, "sample parameter 'radius'")
		}

		return forward.EffectiveTemperature(spec, manifest.Distance, radius)
	})
}
