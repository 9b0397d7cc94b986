// Package mapper normalizes scanned driver values into tagged scalars using
// the column's declared type.
package mapper

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/satishbabariya/querygate/internal/core/query/domain"
)

const (
	dateLayout      = "2006-01-02"
	timeOfDayLayout = "15:04:05.999999999"
	dateTimeLayout  = "2006-01-02 15:04:05.999999999"
)

// Affinity is the value class implied by a declared column type.
type Affinity int

const (
	AffinityNumeric Affinity = iota
	AffinityInteger
	AffinityReal
	AffinityText
	AffinityBlob
	AffinityBoolean
)

func (a Affinity) String() string {
	switch a {
	case AffinityInteger:
		return "integer"
	case AffinityReal:
		return "real"
	case AffinityText:
		return "text"
	case AffinityBlob:
		return "blob"
	case AffinityBoolean:
		return "boolean"
	default:
		return "numeric"
	}
}

// IsNumeric reports whether text values of this affinity are parsed as numbers.
func (a Affinity) IsNumeric() bool {
	return a == AffinityNumeric || a == AffinityInteger || a == AffinityReal
}

// AffinityOf classifies a declared type following SQLite's column affinity
// rules, extended with the type names other backends report (bytea, uuid,
// json, date/time).
func AffinityOf(declared string) Affinity {
	t := strings.ToUpper(declared)
	switch {
	case strings.Contains(t, "BOOL"):
		return AffinityBoolean
	case strings.Contains(t, "INTERVAL"), strings.Contains(t, "POINT"):
		return AffinityText
	case strings.Contains(t, "INT"):
		return AffinityInteger
	case strings.Contains(t, "CHAR"), strings.Contains(t, "CLOB"), strings.Contains(t, "TEXT"),
		strings.Contains(t, "JSON"), strings.Contains(t, "UUID"), strings.Contains(t, "ENUM"),
		strings.Contains(t, "DATE"), strings.Contains(t, "TIME"):
		return AffinityText
	case t == "", strings.Contains(t, "BLOB"), strings.Contains(t, "BYTEA"), strings.Contains(t, "BINARY"):
		return AffinityBlob
	case strings.Contains(t, "REAL"), strings.Contains(t, "FLOA"), strings.Contains(t, "DOUB"):
		return AffinityReal
	default:
		return AffinityNumeric
	}
}

// ResultMapper converts raw values for one projection.
type ResultMapper struct {
	columns    []domain.ColumnDescriptor
	affinities []Affinity
	layouts    []string
}

// NewResultMapper prepares a mapper for the given projection.
func NewResultMapper(columns []domain.ColumnDescriptor) *ResultMapper {
	m := &ResultMapper{
		columns:    columns,
		affinities: make([]Affinity, len(columns)),
		layouts:    make([]string, len(columns)),
	}
	for i, col := range columns {
		m.affinities[i] = AffinityOf(col.DeclaredType)
		m.layouts[i] = TimeLayoutOf(col.DeclaredType)
	}
	return m
}

// MapRow builds a row from scanned values, one per projected column.
func (m *ResultMapper) MapRow(values []any) (domain.Row, error) {
	if len(values) != len(m.columns) {
		return nil, fmt.Errorf("row has %d values, projection has %d columns", len(values), len(m.columns))
	}
	row := make(domain.Row, len(values))
	for i, raw := range values {
		var (
			v   domain.Value
			err error
		)
		if t, ok := raw.(time.Time); ok {
			v, err = fromTime(t, m.layouts[i])
		} else {
			v, err = Normalize(raw, m.affinities[i])
		}
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", m.columns[i].Name, err)
		}
		row[i] = domain.Field{Name: m.columns[i].Name, Value: v}
	}
	return row, nil
}

// Normalize converts one driver value. Integers and floats stay distinct;
// text is only parsed as a number when the affinity is numeric.
func Normalize(raw any, affinity Affinity) (domain.Value, error) {
	switch v := raw.(type) {
	case nil:
		return domain.Null(), nil
	case bool:
		return domain.Bool(v), nil
	case int64:
		return fromInt(v, affinity), nil
	case int:
		return fromInt(int64(v), affinity), nil
	case int8:
		return fromInt(int64(v), affinity), nil
	case int16:
		return fromInt(int64(v), affinity), nil
	case int32:
		return fromInt(int64(v), affinity), nil
	case uint8:
		return fromInt(int64(v), affinity), nil
	case uint16:
		return fromInt(int64(v), affinity), nil
	case uint32:
		return fromInt(int64(v), affinity), nil
	case uint64:
		if v > math.MaxInt64 {
			return domain.Text(strconv.FormatUint(v, 10)), nil
		}
		return fromInt(int64(v), affinity), nil
	case float64:
		return domain.Float(v), nil
	case float32:
		return domain.Float(float64(v)), nil
	case string:
		return fromText(v, affinity), nil
	case []byte:
		if affinity == AffinityBlob {
			return domain.Text(base64.StdEncoding.EncodeToString(v)), nil
		}
		return fromText(string(v), affinity), nil
	case time.Time:
		return fromTime(v, dateTimeLayout)
	case *big.Int:
		if v == nil {
			return domain.Null(), nil
		}
		if v.IsInt64() {
			return domain.Int(v.Int64()), nil
		}
		return domain.Text(v.String()), nil
	case interface{ Float64() float64 }:
		// Decimal types such as DuckDB's.
		return domain.Float(v.Float64()), nil
	case fmt.Stringer:
		return domain.Text(v.String()), nil
	default:
		// Lists, maps and structs returned by nested column types.
		b, err := json.Marshal(v)
		if err != nil {
			return domain.Value{}, fmt.Errorf("unsupported value of type %T: %w", raw, err)
		}
		return domain.Text(string(b)), nil
	}
}

func fromInt(i int64, affinity Affinity) domain.Value {
	if affinity == AffinityBoolean && (i == 0 || i == 1) {
		return domain.Bool(i == 1)
	}
	return domain.Int(i)
}

func fromText(s string, affinity Affinity) domain.Value {
	switch {
	case affinity == AffinityReal:
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return domain.Float(f)
		}
	case affinity.IsNumeric():
		t := strings.TrimSpace(s)
		if i, err := strconv.ParseInt(t, 10, 64); err == nil {
			return domain.Int(i)
		}
		if f, err := strconv.ParseFloat(t, 64); err == nil {
			return domain.Float(f)
		}
	case affinity == AffinityBoolean:
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "1", "t", "true":
			return domain.Bool(true)
		case "0", "f", "false":
			return domain.Bool(false)
		}
	}
	return domain.Text(s)
}

// TimeLayoutOf picks the text layout for time values of a declared type.
// Anything that is not a plain DATE or TIME renders as a date and time.
func TimeLayoutOf(declared string) string {
	t := strings.ToUpper(declared)
	switch {
	case strings.Contains(t, "DATETIME"), strings.Contains(t, "TIMESTAMP"):
		return dateTimeLayout
	case strings.Contains(t, "DATE"):
		return dateLayout
	case strings.Contains(t, "TIME") && !strings.Contains(t, "ZONE") && !strings.Contains(t, "TZ"):
		return timeOfDayLayout
	default:
		return dateTimeLayout
	}
}

// fromTime renders a driver time value. The SQLite driver reports text it
// cannot parse in a date column as the zero time, which is rejected rather
// than returned as a made-up date.
func fromTime(t time.Time, layout string) (domain.Value, error) {
	if t.IsZero() {
		return domain.Value{}, fmt.Errorf("unparseable date/time value")
	}
	return domain.Text(formatTime(t, layout)), nil
}

// formatTime renders UTC times in SQLite's storage form for the layout,
// keeping fractional seconds, and zoned times as RFC 3339.
func formatTime(t time.Time, layout string) string {
	midnight := t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
	if layout == dateLayout && midnight {
		return t.Format(dateLayout)
	}
	if _, offset := t.Zone(); offset != 0 {
		return t.Format(time.RFC3339Nano)
	}
	if layout == dateLayout {
		return t.Format(dateTimeLayout)
	}
	return t.Format(layout)
}
