package source

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go-grid-engine/internal/model"
	"go-grid-engine/pkg/utils"
)

// ------------------- Loading -------------------

// Format names a row file encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// DetectFormat picks the encoding from a file extension, defaulting to JSON.
func DetectFormat(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return FormatCSV
	}
	return FormatJSON
}

// LoadFile reads rows from a CSV or JSON file.
func LoadFile(ctx context.Context, path string) ([]model.Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open rows file: %w", err)
	}
	defer file.Close()

	return Load(ctx, file, DetectFormat(path))
}

// Load reads rows from r in the given format.
func Load(ctx context.Context, r io.Reader, format Format) ([]model.Row, error) {
	switch format {
	case FormatCSV:
		return loadCSV(ctx, r)
	case FormatJSON:
		return loadJSON(r)
	default:
		return nil, fmt.Errorf("unknown rows format: %s", format)
	}
}

// ------------------- CSV -------------------
func loadCSV(ctx context.Context, r io.Reader) ([]model.Row, error) {
	csvReader := csv.NewReader(r)
	csvReader.LazyQuotes = true
	csvReader.FieldsPerRecord = -1

	headers, err := csvReader.Read()
	if err == io.EOF {
		return []model.Row{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	for i, h := range headers {
		// Clean header names: trim whitespace and remove ALL quotes
		headers[i] = strings.ReplaceAll(strings.TrimSpace(h), `"`, "")
	}

	rows := []model.Row{}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := csvReader.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("CSV read error on row %d: %w", len(rows)+1, err)
		}

		row := make(model.Row, len(headers))
		for i, h := range headers {
			if i >= len(record) {
				break
			}
			row[h] = utils.ParseValue(record[i])
		}
		rows = append(rows, row)
	}
}

// ------------------- JSON -------------------

// loadJSON accepts an array of objects, a single object, or a snapshot-shaped
// object with a "data" array.
func loadJSON(r io.Reader) ([]model.Row, error) {
	var raw interface{}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		if err == io.EOF {
			return []model.Row{}, nil
		}
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}

	switch data := raw.(type) {
	case []interface{}:
		return rowsFromArray(data)
	case map[string]interface{}:
		if nested, ok := data["data"].([]interface{}); ok {
			return rowsFromArray(nested)
		}
		return []model.Row{model.Row(data)}, nil
	default:
		return nil, fmt.Errorf("unexpected JSON structure %T", raw)
	}
}

func rowsFromArray(items []interface{}) ([]model.Row, error) {
	rows := make([]model.Row, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("row %d is %T, want object", i, item)
		}
		rows = append(rows, model.Row(m))
	}
	return rows, nil
}
