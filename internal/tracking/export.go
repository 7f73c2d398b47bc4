package tracking

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
)

// DefaultExportLimit bounds history exports when the caller does not
// supply a limit.
const DefaultExportLimit = 1000

// Export formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// noDataSentinel is returned instead of an empty CSV document.
const noDataSentinel = "No data available"

// csvColumns is the canonical column order; the first exported position
// decides which columns appear.
var csvColumns = []string{"timestamp", "lat", "lng", "accuracy", "altitude", "speed", "batteryLevel"}

// ExportPositions renders a device's recent position history in the given
// format. A non-positive limit selects the export default.
func (s *Service) ExportPositions(ctx context.Context, deviceID, format string, limit int) (string, error) {
	if limit <= 0 {
		limit = DefaultExportLimit
	}

	switch format {
	case FormatJSON, FormatCSV:
	default:
		return "", validationErrorf("unsupported export format %q", format)
	}

	positions, err := s.Positions(ctx, deviceID, limit)
	if err != nil {
		return "", err
	}

	if format == FormatJSON {
		out, err := json.MarshalIndent(positions, "", "  ")
		if err != nil {
			return "", upstreamErr(err)
		}
		return string(out), nil
	}
	return renderCSV(positions), nil
}

// renderCSV builds a CSV document from positions. The header is the key
// set of the first record; every following row is squeezed into it, with
// absent values rendered as empty cells and extra fields dropped.
func renderCSV(positions []Position) string {
	if len(positions) == 0 {
		return noDataSentinel
	}

	var columns []string
	for _, col := range csvColumns {
		if _, ok := positions[0].csvField(col); ok {
			columns = append(columns, col)
		}
	}

	var b strings.Builder
	b.WriteString(strings.Join(columns, ","))
	b.WriteByte('\n')
	for _, p := range positions {
		for i, col := range columns {
			if i > 0 {
				b.WriteByte(',')
			}
			if v, ok := p.csvField(col); ok {
				b.WriteString(csvEscape(v))
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// csvField returns the rendered cell value for a column and whether the
// underlying field is present on this position.
func (p Position) csvField(column string) (string, bool) {
	switch column {
	case "timestamp":
		return p.Timestamp, true
	case "lat":
		return formatFloat(p.Lat), true
	case "lng":
		return formatFloat(p.Lng), true
	case "accuracy":
		return optionalFloat(p.Accuracy)
	case "altitude":
		return optionalFloat(p.Altitude)
	case "speed":
		return optionalFloat(p.Speed)
	case "batteryLevel":
		return optionalFloat(p.BatteryLevel)
	}
	return "", false
}

func optionalFloat(v *float64) (string, bool) {
	if v == nil {
		return "", false
	}
	return formatFloat(*v), true
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// csvEscape quotes a cell containing a separator, a quote or a newline,
// doubling embedded quotes.
func csvEscape(v string) string {
	if !strings.ContainsAny(v, ",\"\n") {
		return v
	}
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}
