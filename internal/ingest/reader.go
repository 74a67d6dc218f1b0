package ingest

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/xtxerr/specdb/internal/errors"
)

// ReadTable parses a whitespace-separated numeric table. Empty lines and
// lines starting with '#' or '!' are skipped. All data rows must have the
// same number of columns.
func ReadTable(path string) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}
	defer f.Close()

	var rows [][]float64

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}

		fields := strings.Fields(line)
		row := make([]float64, len(fields))
		for i, field := range fields {
			row[i], err = strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, errors.NewMalformed(path,
					fmt.Sprintf("line %d: %q is not a number", lineNo, field))
			}
		}

		if len(rows) > 0 && len(row) != len(rows[0]) {
			return nil, errors.NewMalformed(path,
				fmt.Sprintf("line %d: %d columns, expected %d", lineNo, len(row), len(rows[0])))
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read table: %w", err)
	}

	if len(rows) == 0 {
		return nil, errors.NewMalformed(path, "no data rows")
	}

	return rows, nil
}

// tableColumn extracts column j from a row list.
func tableColumn(rows [][]float64, j int) []float64 {
	col := make([]float64, len(rows))
	for i, row := range rows {
		col[i] = row[j]
	}
	return col
}
