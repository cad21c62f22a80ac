package repository

import (
	"fmt"
	"strconv"
	"strings"
)

type trashedMode int

const (
	withoutTrashed trashedMode = iota
	withTrashed
	onlyTrashed
)

type clauseKind int

const (
	clauseCompare clauseKind = iota
	clauseIn
	clauseNotIn
	clauseBetween
	clauseNull
	clauseNotNull
)

var allowedOperators = map[string]string{
	"=":     "=",
	"!=":    "<>",
	"<>":    "<>",
	"<":     "<",
	"<=":    "<=",
	">":     ">",
	">=":    ">=",
	"like":  "LIKE",
	"ilike": "ILIKE",
}

type clause struct {
	kind   clauseKind
	column string
	op     string
	values []any
}

// Query composes a single-table SELECT. Column names are checked against the
// table's allow-list, so callers may pass field names straight from input.
// The first invalid identifier is remembered and reported by Build.
type Query struct {
	table       string
	allowed     map[string]struct{}
	softDeletes bool
	columns     []string
	wheres      []clause
	orders      []string
	limit       int
	offset      int
	trashed     trashedMode
	err         error
}

func NewQuery(table string, columns []string, softDeletes bool) *Query {
	allowed := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		allowed[c] = struct{}{}
	}
	return &Query{
		table:       table,
		allowed:     allowed,
		softDeletes: softDeletes,
		columns:     append([]string(nil), columns...),
	}
}

func (q *Query) Clone() *Query {
	c := *q
	c.columns = append([]string(nil), q.columns...)
	c.wheres = append([]clause(nil), q.wheres...)
	c.orders = append([]string(nil), q.orders...)
	return &c
}

// Columns returns the selected columns in order.
func (q *Query) Columns() []string {
	return append([]string(nil), q.columns...)
}

func (q *Query) Select(columns ...string) *Query {
	if len(columns) == 0 || (len(columns) == 1 && columns[0] == "*") {
		return q
	}
	for _, c := range columns {
		q.checkColumn(c)
	}
	q.columns = append([]string(nil), columns...)
	return q
}

func (q *Query) Where(column string, op string, value any) *Query {
	q.checkColumn(column)
	sqlOp, ok := allowedOperators[strings.ToLower(strings.TrimSpace(op))]
	if !ok && q.err == nil {
		q.err = fmt.Errorf("unsupported operator %q", op)
	}
	q.wheres = append(q.wheres, clause{kind: clauseCompare, column: column, op: sqlOp, values: []any{value}})
	return q
}

func (q *Query) WhereIn(column string, values ...any) *Query {
	q.checkColumn(column)
	q.wheres = append(q.wheres, clause{kind: clauseIn, column: column, values: values})
	return q
}

func (q *Query) WhereNotIn(column string, values ...any) *Query {
	q.checkColumn(column)
	q.wheres = append(q.wheres, clause{kind: clauseNotIn, column: column, values: values})
	return q
}

func (q *Query) WhereBetween(column string, low any, high any) *Query {
	q.checkColumn(column)
	q.wheres = append(q.wheres, clause{kind: clauseBetween, column: column, values: []any{low, high}})
	return q
}

func (q *Query) WhereNull(column string) *Query {
	q.checkColumn(column)
	q.wheres = append(q.wheres, clause{kind: clauseNull, column: column})
	return q
}

func (q *Query) WhereNotNull(column string) *Query {
	q.checkColumn(column)
	q.wheres = append(q.wheres, clause{kind: clauseNotNull, column: column})
	return q
}

func (q *Query) OrderBy(column string, direction string) *Query {
	q.checkColumn(column)
	dir := "ASC"
	switch strings.ToLower(strings.TrimSpace(direction)) {
	case "", "asc":
	case "desc":
		dir = "DESC"
	default:
		if q.err == nil {
			q.err = fmt.Errorf("unsupported sort direction %q", direction)
		}
	}
	q.orders = append(q.orders, column+" "+dir)
	return q
}

// Take is an alias for a LIMIT.
func (q *Query) Take(limit int) *Query {
	q.limit = limit
	return q
}

func (q *Query) Offset(offset int) *Query {
	q.offset = offset
	return q
}

func (q *Query) WithTrashed() *Query {
	q.trashed = withTrashed
	return q
}

func (q *Query) OnlyTrashed() *Query {
	q.trashed = onlyTrashed
	return q
}

func (q *Query) Build() (string, []any, error) {
	where, args, err := q.buildWhere()
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(q.columns, ", "))
	b.WriteString(" FROM ")
	b.WriteString(q.table)
	b.WriteString(where)

	if len(q.orders) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(q.orders, ", "))
	}
	if q.limit > 0 {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(q.limit))
	}
	if q.offset > 0 {
		b.WriteString(" OFFSET ")
		b.WriteString(strconv.Itoa(q.offset))
	}

	return b.String(), args, nil
}

// BuildCount ignores ordering and paging.
func (q *Query) BuildCount() (string, []any, error) {
	where, args, err := q.buildWhere()
	if err != nil {
		return "", nil, err
	}
	return "SELECT COUNT(*) FROM " + q.table + where, args, nil
}

func (q *Query) buildWhere() (string, []any, error) {
	if q.err != nil {
		return "", nil, q.err
	}

	parts := make([]string, 0, len(q.wheres)+1)
	args := make([]any, 0, len(q.wheres))
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	for _, c := range q.wheres {
		switch c.kind {
		case clauseCompare:
			parts = append(parts, fmt.Sprintf("%s %s %s", c.column, c.op, next(c.values[0])))
		case clauseIn, clauseNotIn:
			if len(c.values) == 0 {
				if c.kind == clauseIn {
					parts = append(parts, "FALSE")
				}
				continue
			}
			placeholders := make([]string, len(c.values))
			for i, v := range c.values {
				placeholders[i] = next(v)
			}
			op := "IN"
			if c.kind == clauseNotIn {
				op = "NOT IN"
			}
			parts = append(parts, fmt.Sprintf("%s %s (%s)", c.column, op, strings.Join(placeholders, ", ")))
		case clauseBetween:
			low := next(c.values[0])
			high := next(c.values[1])
			parts = append(parts, fmt.Sprintf("%s BETWEEN %s AND %s", c.column, low, high))
		case clauseNull:
			parts = append(parts, c.column+" IS NULL")
		case clauseNotNull:
			parts = append(parts, c.column+" IS NOT NULL")
		}
	}

	if q.softDeletes {
		switch q.trashed {
		case withoutTrashed:
			parts = append(parts, "deleted_at IS NULL")
		case onlyTrashed:
			parts = append(parts, "deleted_at IS NOT NULL")
		}
	}

	if len(parts) == 0 {
		return "", args, nil
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

func (q *Query) checkColumn(column string) {
	if q.err != nil {
		return
	}
	if _, ok := q.allowed[column]; !ok {
		q.err = fmt.Errorf("unknown column %q on %s", column, q.table)
	}
}
