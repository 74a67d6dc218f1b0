package posterior

import (
	"fmt"
	"os"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/xtxerr/specdb/internal/errors"
	"github.com/xtxerr/specdb/internal/forward"
	"github.com/xtxerr/specdb/internal/ingest"
)

// Profile export formats.
const (
	ExportNone    = ""
	ExportParquet = "parquet"
	ExportASCII   = "ascii"
)

// ProfileOptions configures PTProfiles.
type ProfileOptions struct {
	DrawOptions

	// ExportPath, when set, writes the reconstructed profiles to a file in
	// ExportFormat (parquet or ascii).
	ExportPath   string
	ExportFormat string
}

// PTProfiles reconstructs pressure-temperature profiles for random
// posterior draws over the canonical 180-point pressure grid. Only sample
// sets fitted with the retrieval forward model carry profile parameters;
// any other spectrum kind is an error.
func (s *Service) PTProfiles(tag string, random int, opts ProfileOptions) (pressure []float64, profiles [][]float64, err error) {
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

	profileKind := set.Attrs.GetString("pt_profile")
	pressure = forward.PressureGrid()

	profiles = make([][]float64, 0, random)
	for _, idx := range drawIndices(opts.Rand, random, set.Samples.Shape[0]) {
		temp, err := forward.TemperatureProfile(profileKind, set.toParams(idx), pressure)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "sample %d of '%s'", idx, tag)
		}
		profiles = append(profiles, temp)
	}

	switch opts.ExportFormat {
	case ExportNone:
	case ExportParquet:
		err = exportProfilesParquet(opts.ExportPath, pressure, profiles)
	case ExportASCII:
		err = exportProfilesASCII(opts.ExportPath, pressure, profiles)
	default:
		err = errors.NewUnsupported(errors.ErrUnsupportedKind, opts.ExportFormat,
			[]string{ExportParquet, ExportASCII})
	}
	if err != nil {
		return nil, nil, err
	}

	if opts.ExportPath != "" {
		s.log.Info("exported pressure-temperature profiles",
			"tag", tag, "path", opts.ExportPath, "profiles", len(profiles))
	}

	return pressure, profiles, nil
}

// profileRow is one exported grid point of one profile.
type profileRow struct {
	Sample      int32   `parquet:"sample"`
	Pressure    float64 `parquet:"pressure"`
	Temperature float64 `parquet:"temperature"`
}

func exportProfilesParquet(path string, pressure []float64, profiles [][]float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}

	writer := parquet.NewGenericWriter[profileRow](f, parquet.Compression(&parquet.Zstd))

	rows := make([]profileRow, 0, len(pressure))
	for sample, temp := range profiles {
		rows = rows[:0]
		for i, p := range pressure {
			rows = append(rows, profileRow{
				Sample:      int32(sample),
				Pressure:    p,
				Temperature: temp[i],
			})
		}
		if _, err := writer.Write(rows); err != nil {
			f.Close()
			return fmt.Errorf("write profile rows: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		f.Close()
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return f.Close()
}

func exportProfilesASCII(path string, pressure []float64, profiles [][]float64) error {
	var b strings.Builder

	b.WriteString("# pressure (bar)")
	for i := range profiles {
		fmt.Fprintf(&b, " temperature_%d (K)", i)
	}
	b.WriteByte('\n')

	for i, p := range pressure {
		fmt.Fprintf(&b, "%e", p)
		for _, temp := range profiles {
			fmt.Fprintf(&b, " %e", temp[i])
		}
		b.WriteByte('\n')
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	return nil
}
