package fetch

import (
	"fmt"
	"slices"
	"strings"

	"github.com/JonMunkholm/gridstate/internal/grid"
)

// Source maps a table's columns onto a Postgres relation.
type Source struct {
	// Table is the relation to select from, optionally schema-qualified
	// ("public.invoices").
	Table string `json:"table"`

	// Columns holds the database column for each grid column, by index.
	// Missing or empty entries derive the name from the column title.
	Columns []string `json:"columns,omitempty"`

	// Key orders rows that tie on every sort criterion. Defaults to the
	// first column.
	Key string `json:"key,omitempty"`
}

// column returns the database column for grid column i.
func (s Source) column(i int, columns []grid.Column) string {
	if i < len(s.Columns) && s.Columns[i] != "" {
		return s.Columns[i]
	}
	return toDBColumnName(columns[i].Title)
}

// Statement is a page query and its matching count query. Both share the
// WHERE arguments in Args; Select also takes LIMIT and OFFSET after them.
type Statement struct {
	Count  string
	Select string
	Args   []any
	Limit  int
	Offset int
}

// SelectArgs returns the arguments for Select.
func (s Statement) SelectArgs() []any {
	args := slices.Clone(s.Args)
	return append(args, s.Limit, s.Offset)
}

// Build translates q into SQL against src. The search term matches any
// searchable column, each active filter becomes one condition, and the sort
// criteria become the ORDER BY, nulls first when ascending.
func Build(src Source, columns []grid.Column, q grid.Query) (Statement, error) {
	if src.Table == "" {
		return Statement{}, fmt.Errorf("%w: no table", ErrInvalidSource)
	}
	if len(columns) == 0 {
		return Statement{}, fmt.Errorf("%w: no columns", ErrInvalidSource)
	}

	dbCols := make([]string, len(columns))
	for i := range columns {
		dbCols[i] = src.column(i, columns)
	}

	wb := NewWhereBuilder()
	var searchable []string
	for i, c := range columns {
		if c.Searchable {
			searchable = append(searchable, dbCols[i])
		}
	}
	wb.AddSearch(q.Search, searchable)

	keys := make([]int, 0, len(q.Filters))
	for k := range q.Filters {
		if k >= 0 && k < len(columns) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	for _, k := range keys {
		wb.AddFilter(dbCols[k], columns[k], q.Filters[k])
	}
	where, args := wb.Build()

	var order []string
	for _, s := range q.Sort {
		if s.Column < 0 || s.Column >= len(columns) || !columns[s.Column].Sortable {
			continue
		}
		dir := "ASC NULLS FIRST"
		if s.Direction == grid.Desc {
			dir = "DESC NULLS LAST"
		}
		order = append(order, quoteIdentifier(dbCols[s.Column])+" "+dir)
	}
	key := src.Key
	if key == "" {
		key = dbCols[0]
	}
	order = append(order, quoteIdentifier(key)+" ASC")

	quoted := make([]string, len(dbCols))
	for i, c := range dbCols {
		quoted[i] = quoteIdentifier(c)
	}

	table := quoteQualified(src.Table)
	limitIdx := wb.NextArgIndex()
	return Statement{
		Count: fmt.Sprintf("SELECT COUNT(*) FROM %s%s", table, where),
		Select: fmt.Sprintf(
			"SELECT %s FROM %s%s ORDER BY %s LIMIT $%d OFFSET $%d",
			strings.Join(quoted, ", "),
			table,
			where,
			strings.Join(order, ", "),
			limitIdx,
			limitIdx+1,
		),
		Args:   args,
		Limit:  max(q.RowsPerPage, 0),
		Offset: q.Offset(),
	}, nil
}

// WhereBuilder assembles a parameterised WHERE clause. Conditions are
// joined with AND and numbered placeholders follow the order they were added.
type WhereBuilder struct {
	conditions []string
	args       []any
	argIndex   int
}

// NewWhereBuilder returns an empty builder whose first placeholder is $1.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{argIndex: 1}
}

// Add appends "column = value". Empty values are skipped.
func (wb *WhereBuilder) Add(column, value string) {
	if value == "" {
		return
	}
	wb.addCond(fmt.Sprintf("%s = $%d", quoteIdentifier(column), wb.argIndex), value)
}

// addCond appends a condition whose placeholders start at wb.argIndex and
// consume one index per arg.
func (wb *WhereBuilder) addCond(cond string, args ...any) {
	wb.conditions = append(wb.conditions, cond)
	wb.args = append(wb.args, args...)
	wb.argIndex += len(args)
}

// AddSearch matches term against any of columns, case-insensitively.
// All columns share a single placeholder.
func (wb *WhereBuilder) AddSearch(term string, columns []string) {
	term = strings.TrimSpace(term)
	if term == "" || len(columns) == 0 {
		return
	}

	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = fmt.Sprintf("%s::text ILIKE $%d", quoteIdentifier(col), wb.argIndex)
	}
	wb.addCond("("+strings.Join(parts, " OR ")+")", "%"+escapeLike(term)+"%")
}

// AddFilter adds the condition for one column filter. Filters that would be
// inactive in memory (bad operator, missing or unparseable operand) add
// nothing.
func (wb *WhereBuilder) AddFilter(dbColumn string, col grid.Column, f grid.FilterState) {
	op := f.Operator
	if op == "" {
		op = grid.DefaultOperator(col.Filter)
	}
	if !col.Allows(op) {
		return
	}

	c := quoteIdentifier(dbColumn)
	switch col.Filter {
	case grid.FilterText:
		wb.addTextFilter(c, op, f.Value)
	case grid.FilterNumber:
		wb.addNumberFilter(c, op, f)
	case grid.FilterDate:
		wb.addDateFilter(c, op, f)
	case grid.FilterMultiSelect:
		wb.addInFilter(c, f.Values)
	}
}

func (wb *WhereBuilder) addTextFilter(c string, op grid.Operator, value string) {
	text := c + "::text"
	switch op {
	case grid.OpIsEmpty:
		wb.addCond(fmt.Sprintf("(%s IS NULL OR btrim(%s) = '')", c, text))
		return
	case grid.OpIsNotEmpty:
		wb.addCond(fmt.Sprintf("(%s IS NOT NULL AND btrim(%s) <> '')", c, text))
		return
	}

	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return
	}
	n := wb.argIndex
	esc := escapeLike(value)
	switch op {
	case grid.OpContains:
		wb.addCond(fmt.Sprintf("%s ILIKE $%d", text, n), "%"+esc+"%")
	case grid.OpNotContains:
		wb.addCond(fmt.Sprintf("(%s IS NULL OR %s NOT ILIKE $%d)", c, text, n), "%"+esc+"%")
	case grid.OpEquals:
		wb.addCond(fmt.Sprintf("lower(btrim(%s)) = $%d", text, n), value)
	case grid.OpStartsWith:
		wb.addCond(fmt.Sprintf("btrim(%s) ILIKE $%d", text, n), esc+"%")
	case grid.OpEndsWith:
		wb.addCond(fmt.Sprintf("btrim(%s) ILIKE $%d", text, n), "%"+esc)
	}
}

var comparisons = map[grid.Operator]string{
	grid.OpEquals:             "=",
	grid.OpNotEquals:          "<>",
	grid.OpGreaterThan:        ">",
	grid.OpLessThan:           "<",
	grid.OpGreaterThanOrEqual: ">=",
	grid.OpLessThanOrEqual:    "<=",
	grid.OpAfter:              ">",
	grid.OpBefore:             "<",
	grid.OpAfterOrEqual:       ">=",
	grid.OpBeforeOrEqual:      "<=",
}

func (wb *WhereBuilder) addNumberFilter(c string, op grid.Operator, f grid.FilterState) {
	switch op {
	case grid.OpIsEmpty:
		wb.addCond(c + " IS NULL")
	case grid.OpIsNotEmpty:
		wb.addCond(c + " IS NOT NULL")
	case grid.OpBetween:
		lo, okLo := grid.ParseNumber(f.From)
		hi, okHi := grid.ParseNumber(f.To)
		if okLo && okHi {
			wb.addCond(fmt.Sprintf("%s BETWEEN $%d AND $%d", c, wb.argIndex, wb.argIndex+1), lo, hi)
		}
	default:
		if v, ok := grid.ParseNumber(f.Value); ok {
			wb.addCond(fmt.Sprintf("%s %s $%d", c, comparisons[op], wb.argIndex), v)
		}
	}
}

func (wb *WhereBuilder) addDateFilter(c string, op grid.Operator, f grid.FilterState) {
	day := c + "::date"
	switch op {
	case grid.OpIsEmpty:
		wb.addCond(c + " IS NULL")
	case grid.OpIsNotEmpty:
		wb.addCond(c + " IS NOT NULL")
	case grid.OpBetween:
		from, okFrom := grid.ParseDate(f.From)
		to, okTo := grid.ParseDate(f.To)
		if okFrom && okTo {
			wb.addCond(fmt.Sprintf("%s BETWEEN $%d AND $%d", day, wb.argIndex, wb.argIndex+1), from, to)
		}
	default:
		if d, ok := grid.ParseDate(f.Value); ok {
			wb.addCond(fmt.Sprintf("%s %s $%d", day, comparisons[op], wb.argIndex), d)
		}
	}
}

func (wb *WhereBuilder) addInFilter(c string, values []string) {
	if len(values) == 0 {
		return
	}
	placeholders := make([]string, len(values))
	args := make([]any, len(values))
	for i, v := range values {
		placeholders[i] = fmt.Sprintf("$%d", wb.argIndex+i)
		args[i] = v
	}
	wb.addCond(fmt.Sprintf("%s::text IN (%s)", c, strings.Join(placeholders, ", ")), args...)
}

// Build returns the WHERE clause with a leading space, or "" and nil args
// when no conditions were added.
func (wb *WhereBuilder) Build() (string, []any) {
	if len(wb.conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(wb.conditions, " AND "), wb.args
}

// NextArgIndex returns the next placeholder index, for LIMIT and OFFSET.
func (wb *WhereBuilder) NextArgIndex() int {
	return wb.argIndex
}

// quoteIdentifier quotes a SQL identifier to prevent injection.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// quoteQualified quotes each part of a dotted name.
func quoteQualified(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = quoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}

// escapeLike escapes the LIKE wildcards in s.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// toDBColumnName converts a display column name to a database column name.
// "Transaction ID" -> "transaction_id"
func toDBColumnName(name string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", "_"))
}
