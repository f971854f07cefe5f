package gateway

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Values: набор колонок для записи. Ключи сортируются, чтобы SQL был детерминированным.
type Values map[string]any

func (v Values) keys() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type mutationKind int

const (
	mutationInsert mutationKind = iota
	mutationUpdate
	mutationDelete
)

type Mutation struct {
	db     Querier
	kind   mutationKind
	table  string
	values Values
	where
	returning []string
}

func newMutation(db Querier, kind mutationKind, table string, values Values) *Mutation {
	return &Mutation{db: db, kind: kind, table: table, values: values}
}

func (m *Mutation) Eq(column string, value any) *Mutation  { m.add(column, "=", value); return m }
func (m *Mutation) Neq(column string, value any) *Mutation { m.add(column, "<>", value); return m }
func (m *Mutation) Gt(column string, value any) *Mutation  { m.add(column, ">", value); return m }
func (m *Mutation) Lt(column string, value any) *Mutation  { m.add(column, "<", value); return m }

func (m *Mutation) In(column string, values ...any) *Mutation {
	m.addIn(column, values)
	return m
}

func (m *Mutation) Returning(columns ...string) *Mutation {
	m.returning = append(m.returning, columns...)
	return m
}

func (m *Mutation) ref(column string) (string, error) {
	return quoteIdent(column)
}

func (m *Mutation) Build() (string, []any, error) {
	table, err := quoteIdent(m.table)
	if err != nil {
		return "", nil, err
	}

	var (
		sb   strings.Builder
		args []any
	)

	switch m.kind {
	case mutationInsert:
		if len(m.conds) > 0 {
			return "", nil, fmt.Errorf("gateway: insert into %s does not take filters", m.table)
		}
		fmt.Fprintf(&sb, "INSERT INTO %s", table)
		if len(m.values) == 0 {
			sb.WriteString(" DEFAULT VALUES")
			break
		}
		cols := make([]string, 0, len(m.values))
		placeholders := make([]string, 0, len(m.values))
		for _, k := range m.values.keys() {
			col, err := quoteIdent(k)
			if err != nil {
				return "", nil, err
			}
			args = append(args, m.values[k])
			cols = append(cols, col)
			placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
		}
		fmt.Fprintf(&sb, " (%s) VALUES (%s)", strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	case mutationUpdate:
		if len(m.values) == 0 {
			return "", nil, fmt.Errorf("gateway: update of %s has no values", m.table)
		}
		if len(m.conds) == 0 {
			return "", nil, ErrUnfilteredMutation
		}
		sets := make([]string, 0, len(m.values))
		for _, k := range m.values.keys() {
			col, err := quoteIdent(k)
			if err != nil {
				return "", nil, err
			}
			args = append(args, m.values[k])
			sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
		}
		fmt.Fprintf(&sb, "UPDATE %s SET %s", table, strings.Join(sets, ", "))
		cond, err := m.render(m.ref, &args)
		if err != nil {
			return "", nil, err
		}
		sb.WriteString(cond)

	case mutationDelete:
		if len(m.conds) == 0 {
			return "", nil, ErrUnfilteredMutation
		}
		fmt.Fprintf(&sb, "DELETE FROM %s", table)
		cond, err := m.render(m.ref, &args)
		if err != nil {
			return "", nil, err
		}
		sb.WriteString(cond)
	}

	if len(m.returning) > 0 {
		cols := make([]string, 0, len(m.returning))
		for _, c := range m.returning {
			if c == "*" {
				cols = append(cols, "*")
				continue
			}
			col, err := quoteIdent(c)
			if err != nil {
				return "", nil, err
			}
			cols = append(cols, col)
		}
		sb.WriteString(" RETURNING ")
		sb.WriteString(strings.Join(cols, ", "))
	}

	return sb.String(), args, nil
}

// Exec выполняет мутацию и возвращает число затронутых строк.
func (m *Mutation) Exec(ctx context.Context) (int64, error) {
	if m.db == nil {
		return 0, ErrNoHandle
	}
	query, args, err := m.Build()
	if err != nil {
		return 0, err
	}
	res, err := m.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("write %s: %w", m.table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return n, nil
}

// Apply выполняет мутацию с RETURNING и сканирует все возвращённые строки.
func Apply[T any](ctx context.Context, m *Mutation, scan ScanFunc[T]) ([]T, error) {
	if m.db == nil {
		return nil, ErrNoHandle
	}
	query, args, err := m.Build()
	if err != nil {
		return nil, err
	}
	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("write %s: %w", m.table, err)
	}
	defer rows.Close()

	items := make([]T, 0)
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", m.table, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("write %s: %w", m.table, err)
	}
	return items, nil
}

// ApplySingle: Apply для одной строки; отсутствие строк даёт ErrNoRows.
func ApplySingle[T any](ctx context.Context, m *Mutation, scan ScanFunc[T]) (T, error) {
	var zero T
	if m.db == nil {
		return zero, ErrNoHandle
	}
	query, args, err := m.Build()
	if err != nil {
		return zero, err
	}
	item, err := scan(m.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return zero, ErrNoRows
		}
		return zero, fmt.Errorf("write %s: %w", m.table, err)
	}
	return item, nil
}
