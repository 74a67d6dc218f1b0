package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/xtxerr/specdb/internal/errors"
)

// Dataset kinds stored in the kind column.
const (
	datasetFloat  = "float"
	datasetString = "string"
)

// ancestorPaths returns the parent group paths of a dataset path, shallowest
// first. For "objects/HR 8799 b/distance" that is "objects" and
// "objects/HR 8799 b".
func ancestorPaths(path string) []string {
	parts := strings.Split(path, "/")
	ancestors := make([]string, 0, len(parts)-1)
	for i := 1; i < len(parts); i++ {
		ancestors = append(ancestors, strings.Join(parts[:i], "/"))
	}
	return ancestors
}

// validatePath rejects empty paths and empty path segments.
func validatePath(path string) error {
	if path == "" {
		return errors.Wrap(errors.ErrInvalidPath, "empty path")
	}
	for _, part := range strings.Split(path, "/") {
		if part == "" {
			return errors.Wrapf(errors.ErrInvalidPath, "empty segment in '%s'", path)
		}
	}
	return nil
}

// EnsureGroup creates the group at path and all of its ancestors. Groups are
// created on demand and never implicitly deleted.
func (s *Store) EnsureGroup(path string) error {
	if err := validatePath(path); err != nil {
		return err
	}

	return s.Transaction(func(tx *sql.Tx) error {
		return ensureGroupTx(tx, append(ancestorPaths(path), path))
	})
}

func ensureGroupTx(tx *sql.Tx, paths []string) error {
	for _, p := range paths {
		_, err := tx.Exec(`INSERT INTO groups (path) VALUES (?) ON CONFLICT DO NOTHING`, p)
		if err != nil {
			return fmt.Errorf("insert group '%s': %w", p, err)
		}
	}
	return nil
}

// deleteTreeTx removes the dataset or group at path together with everything
// below it.
func deleteTreeTx(tx *sql.Tx, path string) error {
	prefix := path + "/%"

	for _, table := range []string{"attributes", "datasets", "groups"} {
		query := fmt.Sprintf(`DELETE FROM %s WHERE path = ? OR path LIKE ?`, table)
		if _, err := tx.Exec(query, path, prefix); err != nil {
			return fmt.Errorf("delete from %s: %w", table, err)
		}
	}

	return nil
}

// putDatasetTx writes a dataset row plus its attributes, overwriting any
// previous content at the same path.
func (s *Store) putDatasetTx(tx *sql.Tx, path, kind string, shape []int, blob []byte, sdata sql.NullString, attrs Attrs) error {
	if err := ensureGroupTx(tx, ancestorPaths(path)); err != nil {
		return err
	}

	// Prior contents at the path are deleted before rewrite.
	if err := deleteTreeTx(tx, path); err != nil {
		return err
	}

	shapeJSON, err := encodeShape(shape)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`INSERT INTO datasets (path, kind, shape, data, sdata) VALUES (?, ?, ?, ?, ?)`,
		path, kind, shapeJSON, blob, sdata)
	if err != nil {
		return fmt.Errorf("insert dataset '%s': %w", path, err)
	}

	return putAttrsTx(tx, path, attrs)
}

func putAttrsTx(tx *sql.Tx, path string, attrs Attrs) error {
	for _, name := range attrs.Names() {
		raw, err := attrs[name].marshal()
		if err != nil {
			return fmt.Errorf("attribute '%s': %w", name, err)
		}

		_, err = tx.Exec(`INSERT INTO attributes (path, name, kind, value) VALUES (?, ?, ?, ?)
			ON CONFLICT DO UPDATE SET kind = excluded.kind, value = excluded.value`,
			path, name, string(attrs[name].Kind), raw)
		if err != nil {
			return fmt.Errorf("insert attribute '%s': %w", name, err)
		}
	}
	return nil
}

// PutDataset stores a float array with its attributes at path. Any existing
// entity at the path is deleted first, so re-ingestion is idempotent.
func (s *Store) PutDataset(path string, arr Array, attrs Attrs) error {
	if err := validatePath(path); err != nil {
		return err
	}

	blob, err := encodeArray(arr)
	if err != nil {
		return err
	}

	return s.Transaction(func(tx *sql.Tx) error {
		return s.putDatasetTx(tx, path, datasetFloat, arr.Shape, blob, sql.NullString{}, attrs)
	})
}

// PutStringDataset stores a 1-D string array with its attributes at path.
func (s *Store) PutStringDataset(path string, values []string, attrs Attrs) error {
	if err := validatePath(path); err != nil {
		return err
	}

	sdata, err := Strings(values).marshal()
	if err != nil {
		return err
	}

	return s.Transaction(func(tx *sql.Tx) error {
		return s.putDatasetTx(tx, path, datasetString, []int{len(values)},
			nil, sql.NullString{String: sdata, Valid: true}, attrs)
	})
}

// Replace atomically swaps the array and attributes of the dataset at path.
// The swap happens in a single transaction so a failure leaves the previous
// entity intact.
func (s *Store) Replace(path string, arr Array, attrs Attrs) error {
	if err := validatePath(path); err != nil {
		return err
	}

	blob, err := encodeArray(arr)
	if err != nil {
		return err
	}

	return s.Transaction(func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRow(`SELECT count(*) FROM datasets WHERE path = ?`, path).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check dataset '%s': %w", path, err)
		}
		if exists == 0 {
			return errors.NewNotFound("dataset", path)
		}

		return s.putDatasetTx(tx, path, datasetFloat, arr.Shape, blob, sql.NullString{}, attrs)
	})
}

// GetDataset reads the float array and attributes stored at path.
func (s *Store) GetDataset(path string) (Array, Attrs, error) {
	if err := s.checkOpen(); err != nil {
		return Array{}, nil, err
	}

	var kind, shapeJSON string
	var blob []byte
	var sdata sql.NullString

	err := s.db.QueryRow(`SELECT kind, shape, data, sdata FROM datasets WHERE path = ?`, path).
		Scan(&kind, &shapeJSON, &blob, &sdata)
	if err == sql.ErrNoRows {
		return Array{}, nil, errors.NewNotFound("dataset", path)
	}
	if err != nil {
		return Array{}, nil, fmt.Errorf("query dataset '%s': %w", path, err)
	}

	if kind != datasetFloat {
		return Array{}, nil, fmt.Errorf("dataset '%s' holds %s data, not floats", path, kind)
	}

	shape, err := decodeShape(shapeJSON)
	if err != nil {
		return Array{}, nil, err
	}

	arr, err := decodeArray(shape, blob)
	if err != nil {
		return Array{}, nil, err
	}

	attrs, err := s.GetAttrs(path)
	if err != nil {
		return Array{}, nil, err
	}

	return arr, attrs, nil
}

// GetStringDataset reads the string array and attributes stored at path.
func (s *Store) GetStringDataset(path string) ([]string, Attrs, error) {
	if err := s.checkOpen(); err != nil {
		return nil, nil, err
	}

	var kind, shapeJSON string
	var sdata sql.NullString

	err := s.db.QueryRow(`SELECT kind, shape, sdata FROM datasets WHERE path = ?`, path).
		Scan(&kind, &shapeJSON, &sdata)
	if err == sql.ErrNoRows {
		return nil, nil, errors.NewNotFound("dataset", path)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("query dataset '%s': %w", path, err)
	}

	if kind != datasetString || !sdata.Valid {
		return nil, nil, fmt.Errorf("dataset '%s' holds %s data, not strings", path, kind)
	}

	value, err := unmarshalValue(KindStrings, sdata.String)
	if err != nil {
		return nil, nil, err
	}

	attrs, err := s.GetAttrs(path)
	if err != nil {
		return nil, nil, err
	}

	return value.Strings, attrs, nil
}

// GetAttrs reads the attribute set of the dataset at path.
func (s *Store) GetAttrs(path string) (Attrs, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`SELECT name, kind, value FROM attributes WHERE path = ?`, path)
	if err != nil {
		return nil, fmt.Errorf("query attributes '%s': %w", path, err)
	}
	defer rows.Close()

	attrs := Attrs{}
	for rows.Next() {
		var name, kind, raw string
		if err := rows.Scan(&name, &kind, &raw); err != nil {
			return nil, fmt.Errorf("scan attribute: %w", err)
		}

		value, err := unmarshalValue(ValueKind(kind), raw)
		if err != nil {
			return nil, fmt.Errorf("attribute '%s': %w", name, err)
		}
		attrs[name] = value
	}

	return attrs, rows.Err()
}

// SetAttr upserts a single attribute on the dataset at path.
func (s *Store) SetAttr(path, name string, value Value) error {
	if err := validatePath(path); err != nil {
		return err
	}

	return s.Transaction(func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRow(`SELECT count(*) FROM datasets WHERE path = ?`, path).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check dataset '%s': %w", path, err)
		}
		if exists == 0 {
			return errors.NewNotFound("dataset", path)
		}

		return putAttrsTx(tx, path, Attrs{name: value})
	})
}

// HasDataset reports whether a dataset exists at path.
func (s *Store) HasDataset(path string) (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}

	var count int
	err := s.db.QueryRow(`SELECT count(*) FROM datasets WHERE path = ?`, path).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("query dataset '%s': %w", path, err)
	}
	return count > 0, nil
}

// Exists reports whether path names a dataset or a group.
func (s *Store) Exists(path string) (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}

	var count int
	err := s.db.QueryRow(`
		SELECT (SELECT count(*) FROM datasets WHERE path = ?) +
		       (SELECT count(*) FROM groups WHERE path = ?)`, path, path).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("query path '%s': %w", path, err)
	}
	return count > 0, nil
}

// Delete removes the dataset or group at path together with everything below
// it. Deleting a missing path returns ErrNotFound.
func (s *Store) Delete(path string) error {
	if err := validatePath(path); err != nil {
		return err
	}

	exists, err := s.Exists(path)
	if err != nil {
		return err
	}
	if !exists {
		return errors.NewNotFound("path", path)
	}

	return s.Transaction(func(tx *sql.Tx) error {
		return deleteTreeTx(tx, path)
	})
}
