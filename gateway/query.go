package gateway

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

type CountMode int

const (
	CountExact CountMode = iota
	// CountEstimated берёт оценку планировщика (pg_class.reltuples) для запросов без фильтров.
	CountEstimated
)

// Row is satisfied by *sql.Row and *sql.Rows.
type Row interface {
	Scan(dest ...any) error
}

type ScanFunc[T any] func(Row) (T, error)

type embed struct {
	alias   string
	table   string
	fk      string
	columns []string
}

type order struct {
	column    string
	ascending bool
}

type Query struct {
	db      Querier
	table   string
	columns []string
	embeds  []embed
	where
	orders []order
	limit  int
	offset int
	err    error
}

func newQuery(db Querier, table string) *Query {
	return &Query{db: db, table: table, limit: -1}
}

// Select задаёт колонки основной таблицы. Без вызова выбираются все ("*").
func (q *Query) Select(columns ...string) *Query {
	q.columns = append(q.columns, columns...)
	return q
}

// Embed подтягивает связанную строку по внешнему ключу fk основной таблицы
// (LEFT JOIN table AS alias ON alias.id = fk). Колонки читаются после основных
// в порядке вызовов Embed; на них можно ссылаться в фильтрах как "alias.column".
func (q *Query) Embed(alias, table, fk string, columns ...string) *Query {
	q.embeds = append(q.embeds, embed{alias: alias, table: table, fk: fk, columns: columns})
	return q
}

func (q *Query) Eq(column string, value any) *Query  { q.add(column, "=", value); return q }
func (q *Query) Neq(column string, value any) *Query { q.add(column, "<>", value); return q }
func (q *Query) Gt(column string, value any) *Query  { q.add(column, ">", value); return q }
func (q *Query) Gte(column string, value any) *Query { q.add(column, ">=", value); return q }
func (q *Query) Lt(column string, value any) *Query  { q.add(column, "<", value); return q }
func (q *Query) Lte(column string, value any) *Query { q.add(column, "<=", value); return q }

func (q *Query) ILike(column, pattern string) *Query {
	q.add(column, "ILIKE", pattern)
	return q
}

func (q *Query) IsNull(column string) *Query {
	q.add(column, "IS NULL", nil)
	return q
}

func (q *Query) In(column string, values ...any) *Query {
	q.addIn(column, values)
	return q
}

func (q *Query) Order(column string, ascending bool) *Query {
	q.orders = append(q.orders, order{column: column, ascending: ascending})
	return q
}

// Range задаёт окно строк from..to включительно, считая с нуля.
func (q *Query) Range(from, to int) *Query {
	if from < 0 || to < from {
		q.err = fmt.Errorf("%w: %d..%d", ErrInvalidRange, from, to)
		return q
	}
	q.offset = from
	q.limit = to - from + 1
	return q
}

func (q *Query) Limit(n int) *Query {
	if n < 0 {
		q.err = fmt.Errorf("%w: limit %d", ErrInvalidRange, n)
		return q
	}
	q.limit = n
	return q
}

func (q *Query) ref(column string) (string, error) {
	owner, name := q.table, column
	if i := strings.IndexByte(column, '.'); i >= 0 {
		owner, name = column[:i], column[i+1:]
		if owner != q.table && !q.hasAlias(owner) {
			return "", fmt.Errorf("%w: unknown relation %q", ErrInvalidIdentifier, owner)
		}
	}

	o, err := quoteIdent(owner)
	if err != nil {
		return "", err
	}
	if name == "*" {
		return o + ".*", nil
	}
	n, err := quoteIdent(name)
	if err != nil {
		return "", err
	}
	return o + "." + n, nil
}

func (q *Query) hasAlias(alias string) bool {
	for _, e := range q.embeds {
		if e.alias == alias {
			return true
		}
	}
	return false
}

func (q *Query) from() (string, error) {
	table, err := quoteIdent(q.table)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(" FROM ")
	sb.WriteString(table)
	for _, e := range q.embeds {
		alias, err := quoteIdent(e.alias)
		if err != nil {
			return "", err
		}
		joined, err := quoteIdent(e.table)
		if err != nil {
			return "", err
		}
		fk, err := quoteIdent(e.fk)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&sb, " LEFT JOIN %s AS %s ON %s.\"id\" = %s.%s", joined, alias, alias, table, fk)
	}
	return sb.String(), nil
}

// Build возвращает SQL и аргументы; идентификаторы проверяются и экранируются.
func (q *Query) Build() (string, []any, error) {
	if q.err != nil {
		return "", nil, q.err
	}

	columns := q.columns
	if len(columns) == 0 {
		columns = []string{"*"}
	}

	selected := make([]string, 0, len(columns))
	for _, c := range columns {
		col, err := q.ref(c)
		if err != nil {
			return "", nil, err
		}
		selected = append(selected, col)
	}
	for _, e := range q.embeds {
		for _, c := range e.columns {
			col, err := q.ref(e.alias + "." + c)
			if err != nil {
				return "", nil, err
			}
			selected = append(selected, col)
		}
	}

	from, err := q.from()
	if err != nil {
		return "", nil, err
	}

	var args []any
	cond, err := q.render(q.ref, &args)
	if err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(selected, ", "))
	sb.WriteString(from)
	sb.WriteString(cond)

	if len(q.orders) > 0 {
		parts := make([]string, 0, len(q.orders))
		for _, o := range q.orders {
			col, err := q.ref(o.column)
			if err != nil {
				return "", nil, err
			}
			dir := "DESC"
			if o.ascending {
				dir = "ASC"
			}
			parts = append(parts, col+" "+dir)
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(parts, ", "))
	}

	if q.limit >= 0 {
		args = append(args, q.limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}
	if q.offset > 0 {
		args = append(args, q.offset)
		fmt.Fprintf(&sb, " OFFSET $%d", len(args))
	}

	return sb.String(), args, nil
}

// BuildCount строит точный count(*) с теми же JOIN и фильтрами; окно и порядок игнорируются.
func (q *Query) BuildCount() (string, []any, error) {
	if q.err != nil {
		return "", nil, q.err
	}
	from, err := q.from()
	if err != nil {
		return "", nil, err
	}
	var args []any
	cond, err := q.render(q.ref, &args)
	if err != nil {
		return "", nil, err
	}
	return "SELECT count(*)" + from + cond, args, nil
}

const estimateQuery = `SELECT reltuples::bigint FROM pg_class WHERE oid = to_regclass($1)`

// Count считает строки. Оценка возможна только без фильтров и JOIN, иначе
// и для ни разу не проанализированных таблиц считается точно.
func (q *Query) Count(ctx context.Context, mode CountMode) (int64, error) {
	if q.db == nil {
		return 0, ErrNoHandle
	}

	if mode == CountEstimated && len(q.conds) == 0 && len(q.embeds) == 0 {
		if _, err := quoteIdent(q.table); err != nil {
			return 0, err
		}
		var estimate sql.NullInt64
		err := q.db.QueryRowContext(ctx, estimateQuery, q.table).Scan(&estimate)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("estimate %s: %w", q.table, err)
		}
		if estimate.Valid && estimate.Int64 > 0 {
			return estimate.Int64, nil
		}
	}

	query, args, err := q.BuildCount()
	if err != nil {
		return 0, err
	}
	var n int64
	if err := q.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", q.table, err)
	}
	return n, nil
}

// Select выполняет запрос и сканирует каждую строку через scan.
func Select[T any](ctx context.Context, q *Query, scan ScanFunc[T]) ([]T, error) {
	if q.db == nil {
		return nil, ErrNoHandle
	}
	query, args, err := q.Build()
	if err != nil {
		return nil, err
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", q.table, err)
	}
	defer rows.Close()

	items := make([]T, 0)
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", q.table, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select %s: %w", q.table, err)
	}
	return items, nil
}

// Single возвращает первую строку или ErrNoRows.
func Single[T any](ctx context.Context, q *Query, scan ScanFunc[T]) (T, error) {
	var zero T
	if q.db == nil {
		return zero, ErrNoHandle
	}
	query, args, err := q.Build()
	if err != nil {
		return zero, err
	}

	item, err := scan(q.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return zero, ErrNoRows
		}
		return zero, fmt.Errorf("select %s: %w", q.table, err)
	}
	return item, nil
}
