package preprocess

import (
	"sort"
	"time"
)

// ColumnType is the inferred type of a dataset column.
type ColumnType string

const (
	ColumnNumber  ColumnType = "number"
	ColumnString  ColumnType = "string"
	ColumnBoolean ColumnType = "boolean"
	ColumnDate    ColumnType = "date"
	ColumnUnknown ColumnType = "unknown"
)

// Row is one record of a tabular dataset.
type Row = map[string]any

// Dataset is an ordered collection of rows.
type Dataset = []Row

// DataProfile summarizes a dataset's shape. It is computed once during Fit
// and drives conditional step execution via When predicates.
type DataProfile struct {
	RowCount           int                   `json:"row_count"`
	Columns            []string              `json:"columns"`
	InferredTypes      map[string]ColumnType `json:"inferred_types"`
	MissingRatio       map[string]float64    `json:"missing_ratio"`
	// UniqueCount counts distinct non-missing values; nulls show up in
	// MissingRatio only.
	UniqueCount map[string]int `json:"unique_count"`
	NumericColumns     []string              `json:"numeric_columns"`
	CategoricalColumns []string              `json:"categorical_columns"`
}

// InferProfile computes a DataProfile over the dataset. Columns are the
// union of keys across all rows, sorted for determinism. A column's type is
// the widest type observed: number wins over string wins over boolean.
func InferProfile(data Dataset) DataProfile {
	columnSet := map[string]bool{}
	for _, row := range data {
		for k := range row {
			columnSet[k] = true
		}
	}
	columns := make([]string, 0, len(columnSet))
	for k := range columnSet {
		columns = append(columns, k)
	}
	sort.Strings(columns)

	profile := DataProfile{
		RowCount:           len(data),
		Columns:            columns,
		InferredTypes:      map[string]ColumnType{},
		MissingRatio:       map[string]float64{},
		UniqueCount:        map[string]int{},
		NumericColumns:     []string{},
		CategoricalColumns: []string{},
	}

	for _, col := range columns {
		seen := map[string]bool{}
		missing := 0
		colType := ColumnUnknown
		for _, row := range data {
			v, ok := row[col]
			if !ok || v == nil {
				missing++
				continue
			}
			seen[categoryKey(v)] = true
			switch v.(type) {
			case float64, float32, int, int32, int64:
				colType = ColumnNumber
			case string:
				if colType != ColumnNumber {
					colType = ColumnString
				}
			case bool:
				if colType != ColumnNumber && colType != ColumnString {
					colType = ColumnBoolean
				}
			case time.Time:
				if colType == ColumnUnknown {
					colType = ColumnDate
				}
			}
		}
		profile.UniqueCount[col] = len(seen)
		if len(data) > 0 {
			profile.MissingRatio[col] = float64(missing) / float64(len(data))
		}
		profile.InferredTypes[col] = colType
		switch colType {
		case ColumnNumber:
			profile.NumericColumns = append(profile.NumericColumns, col)
		case ColumnString, ColumnBoolean:
			profile.CategoricalColumns = append(profile.CategoricalColumns, col)
		}
	}

	return profile
}

func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
