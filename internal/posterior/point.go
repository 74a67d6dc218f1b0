package posterior

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xtxerr/specdb/internal/numeric"
	"github.com/xtxerr/specdb/internal/schema"
	"github.com/xtxerr/specdb/internal/store"
)

// ProbableSample returns the parameters of the maximum-log-probability
// sample of a sample set, after flattening and burn-in trimming.
func (s *Service) ProbableSample(tag string, burnin int) (map[string]float64, error) {
	set, err := s.load(tag, burnin)
	if err != nil {
		return nil, err
	}

	return set.toParams(numeric.ArgMax(set.LnProb)), nil
}

// MedianSample returns the per-parameter independent median of a sample set.
// The result is not a joint sample from the posterior.
func (s *Service) MedianSample(tag string, burnin int) (map[string]float64, error) {
	set, err := s.load(tag, burnin)
	if err != nil {
		return nil, err
	}

	out := make(map[string]float64, len(set.Params))
	for j, p := range set.Params {
		out[p.Name] = numeric.Median(set.Samples.Column(j))
	}
	return out, nil
}

// GetSamples returns the flattened, burn-in-trimmed sample array with its
// parameter list. A non-empty jsonPath additionally dumps the samples to a
// JSON file.
func (s *Service) GetSamples(tag string, burnin int, jsonPath string) (store.Array, schema.ParamSet, error) {
	set, err := s.load(tag, burnin)
	if err != nil {
		return store.Array{}, nil, err
	}

	if jsonPath != "" {
		if err := dumpSamplesJSON(jsonPath, set); err != nil {
			return store.Array{}, nil, err
		}
		s.log.Info("dumped posterior samples", "tag", tag, "path", jsonPath)
	}

	return set.Samples, set.Params, nil
}

func dumpSamplesJSON(path string, set sampleSet) error {
	rows := make([][]float64, set.Samples.Shape[0])
	for i := range rows {
		rows[i] = set.Samples.Row(i)
	}

	payload := struct {
		Parameters []string    `json:"parameters"`
		Samples    [][]float64 `json:"samples"`
		LnProb     []float64   `json:"ln_prob"`
	}{
		Parameters: set.Params.Names(),
		Samples:    rows,
		LnProb:     set.LnProb,
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode samples: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write samples: %w", err)
	}
	return nil
}
