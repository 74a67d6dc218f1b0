// Package schema defines the hierarchical path layout of the container and
// the attribute conventions attached to each entity kind.
//
// Top-level groups: filters, models, spectra, objects, isochrones, dust,
// results. Paths and attribute names are the wire format other tools match
// when reading a container file, so they must not change.
package schema

import (
	"fmt"
	"strings"

	"github.com/xtxerr/specdb/internal/errors"
	"github.com/xtxerr/specdb/internal/store"
)

// FilterPath returns the dataset path of a filter transmission curve. Filter
// names follow the facility/filter convention, e.g. "Paranal/NACO.Lp".
func FilterPath(name string) string {
	return "filters/" + name
}

// ModelPath returns the group path of a model spectrum grid.
func ModelPath(name string) string {
	return "models/" + name
}

// CalibrationPath returns the dataset path of a calibration spectrum.
func CalibrationPath(tag string) string {
	return "spectra/calibration/" + tag
}

// ObjectPath returns the group path of an object record.
func ObjectPath(name string) string {
	return "objects/" + name
}

// ObjectDistancePath returns the dataset path of an object's distance pair.
func ObjectDistancePath(name string) string {
	return ObjectPath(name) + "/distance"
}

// ObjectPhotometryPath returns the dataset path of one per-filter photometry
// entry of an object.
func ObjectPhotometryPath(object, filter string) string {
	return ObjectPath(object) + "/" + filter
}

// ObjectSpectrumPath returns the dataset path of one named spectrum of an
// object. part selects the array: "spectrum", "covariance" or
// "inv_covariance".
func ObjectSpectrumPath(object, specName, part string) string {
	return ObjectPath(object) + "/spectrum/" + specName + "/" + part
}

// PhotometryLibraryPath returns the group path of a photometric library.
func PhotometryLibraryPath(library string) string {
	return "photometry/" + library
}

// PhotometryColumnPath returns the dataset path of one column of a
// photometric library.
func PhotometryColumnPath(library, column string) string {
	return PhotometryLibraryPath(library) + "/" + column
}

// IsochronePath returns the group path of an isochrone table.
func IsochronePath(tag string) string {
	return "isochrones/" + tag
}

// DustPath returns the dataset path of a dust extinction table.
func DustPath(name string) string {
	return "dust/" + name
}

// FitPath returns the group path of a posterior sample set.
func FitPath(tag string) string {
	return "results/fit/" + tag
}

// SamplesPath returns the dataset path of the sample array of a sample set.
func SamplesPath(tag string) string {
	return FitPath(tag) + "/samples"
}

// LnProbPath returns the dataset path of the log-probability array of a
// sample set.
func LnProbPath(tag string) string {
	return FitPath(tag) + "/ln_prob"
}

// ComparisonPath returns the group path of a grid-comparison result.
func ComparisonPath(tag string) string {
	return "results/comparison/" + tag
}

// EmpiricalPath returns the group path of an empirical-comparison result.
func EmpiricalPath(tag string) string {
	return "results/empirical/" + tag
}

// Role classifies a sample-set parameter.
type Role string

const (
	// RoleModel marks a physical forward-model parameter.
	RoleModel Role = "model"

	// RoleScaling marks a per-spectrum flux scaling parameter.
	RoleScaling Role = "scaling"

	// RoleError marks a per-spectrum error inflation parameter.
	RoleError Role = "error"
)

// Param is one sample-set parameter: a column of the sample array.
type Param struct {
	Name string
	Role Role
}

// ParamSet is the ordered parameter list of a Posterior Sample Set. Column i
// of the sample array belongs to element i. In-memory code works with this
// list; the numbered attribute convention exists only at the storage
// boundary, via Encode and DecodeParams.
type ParamSet []Param

// Names returns all parameter names in column order.
func (p ParamSet) Names() []string {
	names := make([]string, len(p))
	for i, param := range p {
		names[i] = param.Name
	}
	return names
}

// Index returns the column index of the named parameter, or -1.
func (p ParamSet) Index(name string) int {
	for i, param := range p {
		if param.Name == name {
			return i
		}
	}
	return -1
}

// ForwardNames returns the names passed to a forward model: scaling and error
// parameters are excluded, as are the correlation-kernel parameters
// (corr_len_*, corr_amp_*).
func (p ParamSet) ForwardNames() []string {
	names := []string{}
	for _, param := range p {
		if param.Role != RoleModel {
			continue
		}
		if strings.HasPrefix(param.Name, "corr_len_") || strings.HasPrefix(param.Name, "corr_amp_") {
			continue
		}
		names = append(names, param.Name)
	}
	return names
}

// Append returns a new ParamSet with one extra model parameter.
func (p ParamSet) Append(name string) ParamSet {
	out := make(ParamSet, len(p), len(p)+1)
	copy(out, p)
	return append(out, Param{Name: name, Role: RoleModel})
}

// Encode writes the parameter list onto attrs using the numbered attribute
// convention: parameter{i} for every column, scaling{j} and error{k} listing
// the names carrying those roles, plus n_param, n_scaling and n_error counts.
func (p ParamSet) Encode(attrs store.Attrs) {
	scaling, errNames := 0, 0

	for i, param := range p {
		attrs[fmt.Sprintf("parameter%d", i)] = store.String(param.Name)

		switch param.Role {
		case RoleScaling:
			attrs[fmt.Sprintf("scaling%d", scaling)] = store.String(param.Name)
			scaling++
		case RoleError:
			attrs[fmt.Sprintf("error%d", errNames)] = store.String(param.Name)
			errNames++
		}
	}

	attrs["n_param"] = store.Int(int64(len(p)))
	attrs["n_scaling"] = store.Int(int64(scaling))
	attrs["n_error"] = store.Int(int64(errNames))
}

// DecodeParams reads a numbered-attribute parameter list back into ordered
// form.
func DecodeParams(attrs store.Attrs) (ParamSet, error) {
	nParam, ok := attrs.GetInt("n_param")
	if !ok {
		return nil, errors.Wrap(errors.ErrMissingField, "n_param attribute")
	}

	roles := map[string]Role{}
	for _, group := range []struct {
		count string
		key   string
		role  Role
	}{
		{"n_scaling", "scaling%d", RoleScaling},
		{"n_error", "error%d", RoleError},
	} {
		n, _ := attrs.GetInt(group.count)
		for i := int64(0); i < n; i++ {
			name := attrs.GetString(fmt.Sprintf(group.key, i))
			if name == "" {
				return nil, errors.Wrapf(errors.ErrMissingField, group.key+" attribute", i)
			}
			roles[name] = group.role
		}
	}

	params := make(ParamSet, nParam)
	for i := int64(0); i < nParam; i++ {
		name := attrs.GetString(fmt.Sprintf("parameter%d", i))
		if name == "" {
			return nil, errors.Wrapf(errors.ErrMissingField, "parameter%d attribute", i)
		}

		role := RoleModel
		if r, ok := roles[name]; ok {
			role = r
		}
		params[i] = Param{Name: name, Role: role}
	}

	return params, nil
}

// EncodeStrings writes a named string list onto attrs as key{i} entries plus
// an n_{key} count. Used for the line_species and cloud_species lists of
// retrieval sample sets.
func EncodeStrings(attrs store.Attrs, key string, values []string) {
	for i, v := range values {
		attrs[fmt.Sprintf("%s%d", key, i)] = store.String(v)
	}
	attrs["n_"+key] = store.Int(int64(len(values)))
}

// DecodeStrings reads a string list written by EncodeStrings. A missing count
// attribute yields an empty list.
func DecodeStrings(attrs store.Attrs, key string) []string {
	n, _ := attrs.GetInt("n_" + key)
	values := make([]string, 0, n)
	for i := int64(0); i < n; i++ {
		values = append(values, attrs.GetString(fmt.Sprintf("%s%d", key, i)))
	}
	return values
}
