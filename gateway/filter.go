package gateway

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lib/pq"
)

var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

func quoteIdent(name string) (string, error) {
	if !identifierPattern.MatchString(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	return pq.QuoteIdentifier(name), nil
}

type condition struct {
	column string
	op     string
	value  any
	values []any
}

// where копит условия, общие для Query и Mutation. Все условия объединяются через AND.
type where struct {
	conds []condition
}

func (w *where) add(column, op string, value any) {
	w.conds = append(w.conds, condition{column: column, op: op, value: value})
}

func (w *where) addIn(column string, values []any) {
	w.conds = append(w.conds, condition{column: column, op: "IN", values: values})
}

// render строит WHERE; ref переводит имя колонки в квалифицированный идентификатор.
func (w *where) render(ref func(string) (string, error), args *[]any) (string, error) {
	if len(w.conds) == 0 {
		return "", nil
	}

	parts := make([]string, 0, len(w.conds))
	for _, c := range w.conds {
		col, err := ref(c.column)
		if err != nil {
			return "", err
		}

		switch c.op {
		case "IS NULL", "IS NOT NULL":
			parts = append(parts, fmt.Sprintf("%s %s", col, c.op))
		case "IN":
			if len(c.values) == 0 {
				parts = append(parts, "FALSE")
				continue
			}
			placeholders := make([]string, len(c.values))
			for i, v := range c.values {
				*args = append(*args, v)
				placeholders[i] = fmt.Sprintf("$%d", len(*args))
			}
			parts = append(parts, fmt.Sprintf("%s IN (%s)", col, strings.Join(placeholders, ", ")))
		default:
			*args = append(*args, c.value)
			parts = append(parts, fmt.Sprintf("%s %s $%d", col, c.op, len(*args)))
		}
	}

	return " WHERE " + strings.Join(parts, " AND "), nil
}

// ContainsPattern превращает пользовательский ввод в ILIKE-шаблон "содержит".
func ContainsPattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

