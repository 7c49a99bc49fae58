package exporter

import (
	"math"
	"strconv"

	"sheetlens/pkg/contracts/domain"
)

// formatValue renders a cell for CSV output. Missing cells are empty.
func formatValue(v domain.Value) string {
	switch v.Kind {
	case domain.KindNumber:
		return formatFloat(v.Num)
	case domain.KindText:
		return v.Text
	case domain.KindDate:
		return domain.FormatTimestamp(v.Time)
	case domain.KindBool:
		return formatBool(v.Bool)
	default:
		return ""
	}
}

// formatFloat uses the shortest representation that round-trips.
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f), math.IsInf(f, 0):
		return ""
	case math.Abs(f) >= 1e21:
		return strconv.FormatFloat(f, 'g', -1, 64)
	default:
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
}

func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// Records converts a dataset into CSV records without the header.
func Records(ds *domain.Dataset) [][]string {
	out := make([][]string, len(ds.Rows))
	for i, row := range ds.Rows {
		rec := make([]string, len(row))
		for j, v := range row {
			rec[j] = formatValue(v)
		}
		out[i] = rec
	}
	return out
}
