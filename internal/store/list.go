package store

import (
	"fmt"
	"sort"
	"strings"
)

// Entry describes one item in a container listing.
type Entry struct {
	Path    string
	IsGroup bool
	Kind    string
	Shape   []int
	Attrs   Attrs
}

// Depth returns the number of path segments.
func (e Entry) Depth() int {
	return strings.Count(e.Path, "/") + 1
}

// Name returns the final path segment.
func (e Entry) Name() string {
	if i := strings.LastIndex(e.Path, "/"); i >= 0 {
		return e.Path[i+1:]
	}
	return e.Path
}

// List returns the groups and datasets under prefix, sorted by path. An empty
// prefix lists the whole container.
func (s *Store) List(prefix string) ([]Entry, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	where := ``
	args := []any{}
	if prefix != "" {
		where = `WHERE path = ? OR path LIKE ?`
		args = []any{prefix, prefix + "/%"}
	}

	entries := []Entry{}

	rows, err := s.db.Query(`SELECT path FROM groups `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Path); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan group: %w", err)
		}
		e.IsGroup = true
		entries = append(entries, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.Query(`SELECT path, kind, shape FROM datasets `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("query datasets: %w", err)
	}
	for rows.Next() {
		var e Entry
		var shapeJSON string
		if err := rows.Scan(&e.Path, &e.Kind, &shapeJSON); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan dataset: %w", err)
		}
		if e.Shape, err = decodeShape(shapeJSON); err != nil {
			rows.Close()
			return nil, err
		}
		entries = append(entries, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range entries {
		if entries[i].Attrs, err = s.GetAttrs(entries[i].Path); err != nil {
			return nil, err
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

// Children returns the names of the direct members of the group at path.
func (s *Store) Children(path string) ([]string, error) {
	entries, err := s.List(path)
	if err != nil {
		return nil, err
	}

	depth := strings.Count(path, "/") + 2
	if path == "" {
		depth = 1
	}

	names := []string{}
	for _, e := range entries {
		if e.Path != path && e.Depth() == depth {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// Render writes an indented listing of the subtree at prefix, including
// attributes, in the format used by the inspection command.
func (s *Store) Render(prefix string, showAttrs bool) (string, error) {
	entries, err := s.List(prefix)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, e := range entries {
		indent := strings.Repeat("  ", e.Depth()-1)

		if e.IsGroup {
			fmt.Fprintf(&b, "%s%s/\n", indent, e.Name())
		} else {
			fmt.Fprintf(&b, "%s%s %s%v\n", indent, e.Name(), e.Kind, e.Shape)
		}

		if showAttrs {
			for _, name := range e.Attrs.Names() {
				fmt.Fprintf(&b, "%s  - %s = %s\n", indent, name, e.Attrs[name].Display())
			}
		}
	}

	return b.String(), nil
}
