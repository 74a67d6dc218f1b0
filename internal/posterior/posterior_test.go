package posterior

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/xtxerr/specdb/internal/config"
	"github.com/xtxerr/specdb/internal/errors"
	"github.com/xtxerr/specdb/internal/forward"
	"github.com/xtxerr/specdb/internal/ingest"
	"github.com/xtxerr/specdb/internal/schema"
	"github.com/xtxerr/specdb/internal/store"
	"github.com/xtxerr/specdb/internal/units"
)

func newTestServices(t *testing.T) (*Service, *ingest.Service, *store.Store) {
	t.Helper()

	cfg := store.DefaultConfig()
	cfg.Path = filepath.Join(t.TempDir(), "test.db")

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })

	return New(st), ingest.New(st, config.DefaultConfig(), ingest.Options{}), st
}

func TestProbableSample(t *testing.T) {
	s, ing, _ := newTestServices(t)

	set := ingest.SampleSet{
		Sampler: "multinest",
		Samples: store.Matrix(2, 1, []float64{1000, 1500}),
		LnProb:  store.Vector([]float64{-5.0, -1.0}),
		Params:  schema.ParamSet{{Name: "teff", Role: schema.RoleModel}},
	}
	if err := ing.AddSamples("run1", set); err != nil {
		t.Fatalf("AddSamples() error = %v", err)
	}

	got, err := s.ProbableSample("run1", 0)
	if err != nil {
		t.Fatalf("ProbableSample() error = %v", err)
	}
	if got["teff"] != 1500 {
		t.Errorf("teff = %v, want 1500 (the higher log-probability sample)", got["teff"])
	}
}

func TestMedianSample(t *testing.T) {
	s, ing, _ := newTestServices(t)

	set := ingest.SampleSet{
		Sampler: "multinest",
		Samples: store.Matrix(5, 1, []float64{3, 1, 4, 5, 2}),
		LnProb:  store.Vector(make([]float64, 5)),
		Params:  schema.ParamSet{{Name: "teff", Role: schema.RoleModel}},
	}
	if err := ing.AddSamples("run1", set); err != nil {
		t.Fatalf("AddSamples() error = %v", err)
	}

	got, err := s.MedianSample("run1", 0)
	if err != nil {
		t.Fatalf("MedianSample() error = %v", err)
	}
	if got["teff"] != 3 {
		t.Errorf("teff = %v, want 3", got["teff"])
	}
}

// addWalkerChain stores a (10 walkers, 50 steps, 3 params) emcee chain.
func addWalkerChain(t *testing.T, ing *ingest.Service, tag string) {
	t.Helper()

	const walkers, steps, nParam = 10, 50, 3

	samples := store.NewArray(walkers, steps, nParam)
	lnProb := store.NewArray(walkers, steps)
	for i := range samples.Data {
		samples.Data[i] = float64(i)
	}
	for i := range lnProb.Data {
		lnProb.Data[i] = -float64(i)
	}

	set := ingest.SampleSet{
		Sampler: "emcee",
		Samples: samples,
		LnProb:  lnProb,
		Params: schema.ParamSet{
			{Name: "teff", Role: schema.RoleModel},
			{Name: "logg", Role: schema.RoleModel},
			{Name: "radius", Role: schema.RoleModel},
		},
	}
	if err := ing.AddSamples(tag, set); err != nil {
		t.Fatalf("AddSamples() error = %v", err)
	}
}

func TestBurninValidation(t *testing.T) {
	s, ing, _ := newTestServices(t)
	addWalkerChain(t, ing, "chain")

	if _, _, err := s.GetSamples("chain", 60, ""); !errors.Is(err, errors.ErrBurninRange) {
		t.Errorf("GetSamples(burnin=60) error = %v, want ErrBurninRange", err)
	}

	// Trimming every step is in range but leaves an empty set; the accessors
	// report that instead of indexing into nothing.
	if _, err := s.ProbableSample("chain", 50); !errors.Is(err, errors.ErrNoSamples) {
		t.Errorf("ProbableSample(burnin=50) error = %v, want ErrNoSamples", err)
	}
	if _, err := s.MCMCSpectra("chain", 5, DrawOptions{Burnin: 50}); !errors.Is(err, errors.ErrNoSamples) {
		t.Errorf("MCMCSpectra(burnin=50) error = %v, want ErrNoSamples", err)
	}

	arr, params, err := s.GetSamples("chain", 10, "")
	if err != nil {
		t.Fatalf("GetSamples(burnin=10) error = %v", err)
	}
	if arr.Shape[0] != 400 {
		t.Errorf("flattened rows = %d, want 10*(50-10) = 400", arr.Shape[0])
	}
	if len(params) != 3 {
		t.Errorf("params = %d, want 3", len(params))
	}
}

func TestGetSamplesJSONDump(t *testing.T) {
	s, ing, _ := newTestServices(t)
	addWalkerChain(t, ing, "chain")

	path := filepath.Join(t.TempDir(), "samples.json")
	if _, _, err := s.GetSamples("chain", 0, path); err != nil {
		t.Fatalf("GetSamples() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read dump: %v", err)
	}
	if len(data) == 0 {
		t.Error("empty JSON dump")
	}
}

// addPlanckSamples stores a flat planck-fitted sample set with a scaling
// nuisance column.
func addPlanckSamples(t *testing.T, ing *ingest.Service, tag string) {
	t.Helper()

	distance := 20.0
	set := ingest.SampleSet{
		Sampler: "multinest",
		Samples: store.Matrix(3, 3, []float64{
			1500, 1.0, 0.9,
			1600, 1.1, 1.0,
			1550, 1.05, 1.1,
		}),
		LnProb: store.Vector([]float64{-3, -1, -2}),
		Params: schema.ParamSet{
			{Name: "teff", Role: schema.RoleModel},
			{Name: "radius", Role: schema.RoleModel},
			{Name: "scaling_GPI", Role: schema.RoleScaling},
		},
		Spectrum: "planck",
		Distance: &distance,
		Attrs: store.Attrs{
			"wavel_min": store.Float(1.0),
			"wavel_max": store.Float(5.0),
		},
	}
	if err := ing.AddSamples(tag, set); err != nil {
		t.Fatalf("AddSamples() error = %v", err)
	}
}

func TestMCMCSpectra(t *testing.T) {
	s, ing, _ := newTestServices(t)
	addPlanckSamples(t, ing, "planck-fit")

	opts := DrawOptions{Rand: rand.New(rand.NewSource(1)), SpecRes: 100}
	boxes, err := s.MCMCSpectra("planck-fit", 5, opts)
	if err != nil {
		t.Fatalf("MCMCSpectra() error = %v", err)
	}
	if len(boxes) != 5 {
		t.Fatalf("boxes = %d, want 5", len(boxes))
	}

	for _, box := range boxes {
		if len(box.Spectrum.Wavelength) == 0 {
			t.Fatal("empty spectrum")
		}
		if _, ok := box.Params["scaling_GPI"]; ok {
			t.Error("scaling parameter leaked into the forward-model parameters")
		}
		if _, ok := box.Params["distance"]; !ok {
			t.Error("distance attribute not supplied to the forward model")
		}
	}
}

func TestMCMCSpectraUnknownModel(t *testing.T) {
	s, ing, _ := newTestServices(t)

	set := ingest.SampleSet{
		Sampler:  "multinest",
		Samples:  store.Matrix(1, 1, []float64{1}),
		LnProb:   store.Vector([]float64{0}),
		Params:   schema.ParamSet{{Name: "x", Role: schema.RoleModel}},
		Spectrum: "no-such-model",
	}
	if err := ing.AddSamples("bad", set); err != nil {
		t.Fatalf("AddSamples() error = %v", err)
	}

	if _, err := s.MCMCSpectra("bad", 1, DrawOptions{}); !errors.Is(err, errors.ErrUnsupportedModel) {
		t.Errorf("MCMCSpectra() error = %v, want ErrUnsupportedModel", err)
	}
}

// addRetrievalSamples stores a retrieval sample set with a monotonic
// profile: columns tint, radius, t0..t14, pt_smooth.
func addRetrievalSamples(t *testing.T, ing *ingest.Service, tag string) {
	t.Helper()

	params := schema.ParamSet{
		{Name: "tint", Role: schema.RoleModel},
		{Name: "radius", Role: schema.RoleModel},
	}
	for i := 0; i < 15; i++ {
		params = append(params, schema.Param{Name: fmt.Sprintf("t%d", i), Role: schema.RoleModel})
	}
	params = append(params, schema.Param{Name: "pt_smooth", Role: schema.RoleModel})

	const nSamples = 4
	nParam := len(params)

	samples := store.NewArray(nSamples, nParam)
	for i := 0; i < nSamples; i++ {
		samples.Set(1200+10*float64(i), i, 0)
		samples.Set(1.2, i, 1)
		for k := 0; k < 15; k++ {
			samples.Set(500+100*float64(k), i, 2+k)
		}
		samples.Set(0.5, i, nParam-1)
	}

	distance := 20.0
	attrs := store.Attrs{
		"pt_profile": store.String("monotonic"),
		"chemistry":  store.String("equilibrium"),
		"quenching":  store.String("diffusion"),
		"wavel_min":  store.Float(1.0),
		"wavel_max":  store.Float(5.0),
	}
	schema.EncodeStrings(attrs, "line_species", []string{"H2O"})
	schema.EncodeStrings(attrs, "cloud_species", nil)

	set := ingest.SampleSet{
		Sampler:  "multinest",
		Samples:  samples,
		LnProb:   store.Vector(make([]float64, nSamples)),
		Params:   params,
		Spectrum: ingest.RetrievalSpectrumKind,
		Distance: &distance,
		Attrs:    attrs,
	}
	if err := ing.AddSamples(tag, set); err != nil {
		t.Fatalf("AddSamples() error = %v", err)
	}
}

func TestPTProfiles(t *testing.T) {
	s, ing, _ := newTestServices(t)
	addRetrievalSamples(t, ing, "ret1")

	opts := ProfileOptions{DrawOptions: DrawOptions{Rand: rand.New(rand.NewSource(1))}}
	pressure, profiles, err := s.PTProfiles("ret1", 3, opts)
	if err != nil {
		t.Fatalf("PTProfiles() error = %v", err)
	}

	if len(pressure) != forward.PressurePoints {
		t.Fatalf("pressure points = %d, want %d", len(pressure), forward.PressurePoints)
	}
	if math.Abs(pressure[0]-1e-6) > 1e-18 {
		t.Errorf("pressure[0] = %g, want 1e-6 bar", pressure[0])
	}

	for _, temp := range profiles {
		if len(temp) != forward.PressurePoints {
			t.Fatalf("profile points = %d", len(temp))
		}
		// The knot temperatures increase with depth, so the profile must too.
		if temp[0] >= temp[len(temp)-1] {
			t.Error("profile not increasing with depth")
		}
	}
}

func TestPTProfilesWrongModel(t *testing.T) {
	s, ing, _ := newTestServices(t)
	addPlanckSamples(t, ing, "planck-fit")

	_, _, err := s.PTProfiles("planck-fit", 1, ProfileOptions{})
	if !errors.Is(err, errors.ErrUnsupportedKind) {
		t.Errorf("PTProfiles() error = %v, want ErrUnsupportedKind", err)
	}
}

func TestPTProfilesExport(t *testing.T) {
	s, ing, _ := newTestServices(t)
	addRetrievalSamples(t, ing, "ret1")

	dir := t.TempDir()

	for _, format := range []string{ExportASCII, ExportParquet} {
		path := filepath.Join(dir, "profiles."+format)
		opts := ProfileOptions{
			DrawOptions:  DrawOptions{Rand: rand.New(rand.NewSource(1))},
			ExportPath:   path,
			ExportFormat: format,
		}

		if _, _, err := s.PTProfiles("ret1", 2, opts); err != nil {
			t.Fatalf("PTProfiles(%s) error = %v", format, err)
		}

		info, err := os.Stat(path)
		if err != nil || info.Size() == 0 {
			t.Errorf("export %s: missing or empty file (err = %v)", format, err)
		}
	}
}

// fakeRetrievalModel emits a flat spectrum whose Stefan-Boltzmann inversion
// recovers the sample's tint.
type fakeRetrievalModel struct{}

func (fakeRetrievalModel) Evaluate(params forward.Parameters) (forward.Spectrum, error) {
	tint := params["tint"]
	radius := params["radius"]

	distance, ok := params["distance"]
	if !ok {
		distance = 20
	}

	scaling := math.Pow(radius*units.RJup/(distance*units.Parsec), 2.)
	flux := scaling * units.SigmaSB * math.Pow(tint, 4.)

	// Constant flux density over a 1 um band integrates to flux.
	n := 101
	wavel := make([]float64, n)
	f := make([]float64, n)
	for i := range wavel {
		wavel[i] = 1. + float64(i)/float64(n-1)
		f[i] = flux
	}
	return forward.Spectrum{Wavelength: wavel, Flux: f}, nil
}

type fakeBuilder struct {
	built int
}

func (b *fakeBuilder) Build(manifest ingest.Manifest, wavelRange [2]float64, specRes float64) (forward.RetrievalModel, error) {
	b.built++
	return fakeRetrievalModel{}, nil
}

func TestRetrievalSpectra(t *testing.T) {
	s, ing, _ := newTestServices(t)
	addRetrievalSamples(t, ing, "ret1")

	builder := &fakeBuilder{}
	opts := RetrievalOptions{
		DrawOptions: DrawOptions{Rand: rand.New(rand.NewSource(1))},
		Builder:     builder,
		Workers:     2,
	}

	boxes, model, err := s.RetrievalSpectra("ret1", 6, opts)
	if err != nil {
		t.Fatalf("RetrievalSpectra() error = %v", err)
	}

	if builder.built != 1 {
		t.Errorf("model built %d times, want 1", builder.built)
	}
	if model == nil {
		t.Error("reusable model instance not returned")
	}
	if len(boxes) != 6 {
		t.Fatalf("boxes = %d, want 6", len(boxes))
	}
	for _, box := range boxes {
		if len(box.Spectrum.Wavelength) == 0 {
			t.Fatal("empty spectrum")
		}
	}
}

func TestRetrievalTeff(t *testing.T) {
	s, ing, st := newTestServices(t)
	addRetrievalSamples(t, ing, "ret1")

	opts := RetrievalOptions{
		DrawOptions: DrawOptions{Rand: rand.New(rand.NewSource(1))},
		Builder:     distanceAwareBuilder{},
	}

	mean, std, err := s.RetrievalTeff("ret1", 8, opts)
	if err != nil {
		t.Fatalf("RetrievalTeff() error = %v", err)
	}

	// tint spans 1200..1230 across the samples, so the recovered teff must
	// sit in that range with a small spread.
	if mean < 1190 || mean > 1240 {
		t.Errorf("mean teff = %g, want within 1200..1230", mean)
	}
	if std < 0 || std > 50 {
		t.Errorf("std = %g, want small", std)
	}

	attrs, err := st.GetAttrs(schema.SamplesPath("ret1"))
	if err != nil {
		t.Fatalf("GetAttrs() error = %v", err)
	}
	triple, ok := attrs["teff"]
	if !ok || len(triple.Floats) != 3 {
		t.Fatalf("teff attribute = %+v, want a percentile triple", triple)
	}
	if triple.Floats[0] > triple.Floats[1] || triple.Floats[1] > triple.Floats[2] {
		t.Errorf("percentiles not ordered: %v", triple.Floats)
	}
}

// distanceAwareBuilder builds a model that supplies the manifest distance
// to every evaluation, since distance is not a sample column.
type distanceAwareBuilder struct{}

func (distanceAwareBuilder) Build(manifest ingest.Manifest, wavelRange [2]float64, specRes float64) (forward.RetrievalModel, error) {
	return distanceAwareModel{distance: manifest.Distance}, nil
}

type distanceAwareModel struct {
	distance float64
}

func (m distanceAwareModel) Evaluate(params forward.Parameters) (forward.Spectrum, error) {
	withDistance := forward.Parameters{}
	for k, v := range params {
		withDistance[k] = v
	}
	withDistance["distance"] = m.distance
	return fakeRetrievalModel{}.Evaluate(withDistance)
}
