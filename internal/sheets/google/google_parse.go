package google

import (
	"fmt"
	"strconv"
	"strings"

	ports "github.com/FirjiAchmad24/dashmonitoring-pln/internal/sheets"
)

// parseValues converts a values matrix from the Sheets API to recap rows.
// Numbers come back as float64 when read unformatted; whole numbers are
// printed without a fraction.
func parseValues(values [][]interface{}) ports.Recap {
	if len(values) == 0 {
		return ports.Recap{}
	}
	rows := make([][]string, len(values))
	for i, row := range values {
		rows[i] = toStrings(row)
	}
	return ports.Recap{Rows: rows}
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = cellString(v)
	}
	return out
}

func cellString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		if x == float64(int64(x)) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', 2, 64)
	default:
		return fmt.Sprint(x)
	}
}
