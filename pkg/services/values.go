package services

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

// toFloat converts a driver value to float64. Drivers disagree on numeric
// types: DuckDB returns float64, int64 and *big.Int for HUGEINT; pgx returns pgtype.Numeric for NUMERIC; go-mssqldb returns DECIMAL as
// bytes, which CollectSQLRows turns into strings.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case *big.Int:
		if n == nil {
			return 0, false
		}
		f, _ := new(big.Float).SetInt(n).Float64()
		return f, true
	case string:
		return parseFloat(n)
	case []byte:
		return parseFloat(string(n))
	case pgtype.Float64Valuer:
		f8, err := n.Float64Value()
		if err != nil || !f8.Valid {
			return 0, false
		}
		return f8.Float64, true
	case interface{ Float64() float64 }:
		return n.Float64(), true
	default:
		return 0, false
	}
}

func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// toInt rounds a numeric driver value to the nearest int.
func toInt(v any) (int, bool) {
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(math.Round(f)), true
}

func toInt64(v any) int64 {
	if n, ok := v.(int64); ok {
		return n
	}
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int64(math.Round(f))
}

func toString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprint(s)
	}
}

var newlines = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// toText is toString with line endings normalized to "\n". Scraped text mixes
// CRLF and LF, and CSV readers do not preserve a CR inside a quoted field.
func toText(v any) string {
	return normalizeNewlines(toString(v))
}

func normalizeNewlines(s string) string {
	if !strings.ContainsRune(s, '\r') {
		return s
	}
	return newlines.Replace(s)
}
