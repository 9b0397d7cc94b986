// Package filterexpr parses the equality filters accepted on the command
// line, e.g. `ArtistId = 1 AND Name = "AC/DC"`, into a request filter map.
package filterexpr

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// FilterLexer defines the token types of a filter expression.
var FilterLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Keyword", Pattern: `(?i)\b(AND|NULL|TRUE|FALSE)\b`},
	{Name: "QuotedIdent", Pattern: "`(?:``|[^`])*`"},
	{Name: "String", Pattern: `"(?:\\.|[^"\\])*"|'(?:''|[^'])*'`},
	{Name: "Number", Pattern: `-?\d+(?:\.\d+)?(?:[eE][-+]?\d+)?`},
	{Name: "Ident", Pattern: `[\p{L}_][\p{L}\p{N}_]*`},
	{Name: "Equal", Pattern: `=`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// Expression is a conjunction of equality conditions.
type Expression struct {
	Pos        lexer.Position
	Conditions []*Condition `@@ ( "AND" @@ )*`
}

// Condition is a single column = value comparison.
type Condition struct {
	Pos    lexer.Position
	Column string   `( @Ident | @QuotedIdent ) "="`
	Value  *Literal `@@`
}

// Literal is the right-hand side of a condition.
type Literal struct {
	Null   bool    `  @"NULL"`
	True   bool    `| @"TRUE"`
	False  bool    `| @"FALSE"`
	Number *string `| @Number`
	String *string `| @String`
}

var parser = participle.MustBuild[Expression](
	participle.Lexer(FilterLexer),
	participle.Elide("Whitespace"),
	participle.CaseInsensitive("Keyword"),
)

// Parse parses expr into a filter map. Numbers are returned as json.Number so
// integers and floats stay distinct. An empty expression yields no filters.
func Parse(expr string) (map[string]any, error) {
	filters := map[string]any{}
	if strings.TrimSpace(expr) == "" {
		return filters, nil
	}

	ast, err := parser.ParseString("where", expr)
	if err != nil {
		return nil, fmt.Errorf("invalid filter expression: %w", err)
	}

	for _, cond := range ast.Conditions {
		column := unquoteIdent(cond.Column)
		if _, dup := filters[column]; dup {
			return nil, fmt.Errorf("invalid filter expression: column %q is compared more than once", column)
		}
		value, err := cond.Value.value()
		if err != nil {
			return nil, fmt.Errorf("invalid filter expression at %s: %w", cond.Pos, err)
		}
		filters[column] = value
	}
	return filters, nil
}

func (l *Literal) value() (any, error) {
	switch {
	case l.Null:
		return nil, nil
	case l.True:
		return true, nil
	case l.False:
		return false, nil
	case l.Number != nil:
		return json.Number(*l.Number), nil
	case l.String != nil:
		return unquoteString(*l.String)
	default:
		return nil, fmt.Errorf("missing value")
	}
}

func unquoteIdent(s string) string {
	if len(s) >= 2 && s[0] == '`' && s[len(s)-1] == '`' {
		return strings.ReplaceAll(s[1:len(s)-1], "``", "`")
	}
	return s
}

func unquoteString(s string) (string, error) {
	if len(s) >= 2 && s[0] == '\'' {
		return strings.ReplaceAll(s[1:len(s)-1], "''", "'"), nil
	}
	return strconv.Unquote(s)
}

// Format renders filters back into expression syntax with columns in the
// given order. Used to echo interactive selections.
func Format(columns []string, filters map[string]any) string {
	parts := make([]string, 0, len(columns))
	for _, col := range columns {
		v, ok := filters[col]
		if !ok {
			continue
		}
		name := col
		if !isPlainIdent(col) {
			name = "`" + strings.ReplaceAll(col, "`", "``") + "`"
		}
		parts = append(parts, name+" = "+formatValue(v))
	}
	return strings.Join(parts, " AND ")
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if t {
			return "TRUE"
		}
		return "FALSE"
	case json.Number:
		return t.String()
	case string:
		return strconv.Quote(t)
	default:
		return fmt.Sprint(t)
	}
}

func isPlainIdent(s string) bool {
	if s == "" {
		return false
	}
	switch strings.ToUpper(s) {
	case "AND", "NULL", "TRUE", "FALSE":
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsNumber(r)) {
			continue
		}
		return false
	}
	return true
}
