package fetch

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/gridstate/internal/grid"
)

func TestNewWhereBuilder(t *testing.T) {
	wb := NewWhereBuilder()

	if wb.NextArgIndex() != 1 {
		t.Errorf("NextArgIndex = %d, want 1", wb.NextArgIndex())
	}
	clause, args := wb.Build()
	if clause != "" || args != nil {
		t.Errorf("Build = %q, %v, want empty clause and nil args", clause, args)
	}
}

func TestWhereBuilder_Add(t *testing.T) {
	wb := NewWhereBuilder()
	wb.Add("status", "active")
	wb.Add("region", "")
	wb.Add("type", "user")

	clause, args := wb.Build()
	if want := ` WHERE "status" = $1 AND "type" = $2`; clause != want {
		t.Errorf("clause = %q, want %q", clause, want)
	}
	if !reflect.DeepEqual(args, []any{"active", "user"}) {
		t.Errorf("args = %v, want [active user]", args)
	}
	if wb.NextArgIndex() != 3 {
		t.Errorf("NextArgIndex = %d, want 3", wb.NextArgIndex())
	}
}

func TestWhereBuilder_AddSearch(t *testing.T) {
	tests := []struct {
		name       string
		term       string
		columns    []string
		wantClause string
		wantArgs   []any
	}{
		{"blank term skipped", "   ", []string{"name"}, "", nil},
		{"no searchable columns", "ann", nil, "", nil},
		{
			name:       "single column",
			term:       "ann",
			columns:    []string{"name"},
			wantClause: ` WHERE ("name"::text ILIKE $1)`,
			wantArgs:   []any{"%ann%"},
		},
		{
			name:       "columns share one placeholder",
			term:       " 50% ",
			columns:    []string{"name", "discount"},
			wantClause: ` WHERE ("name"::text ILIKE $1 OR "discount"::text ILIKE $1)`,
			wantArgs:   []any{`%50\%%`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wb := NewWhereBuilder()
			wb.AddSearch(tt.term, tt.columns)

			clause, args := wb.Build()
			if clause != tt.wantClause {
				t.Errorf("clause = %q, want %q", clause, tt.wantClause)
			}
			if !reflect.DeepEqual(args, tt.wantArgs) {
				t.Errorf("args = %v, want %v", args, tt.wantArgs)
			}
		})
	}
}

func TestWhereBuilder_AddFilter(t *testing.T) {
	text := grid.Column{Title: "Name", Filter: grid.FilterText}
	num := grid.Column{Title: "Age", Type: grid.TypeNumber, Filter: grid.FilterNumber}
	date := grid.Column{Title: "Joined", Type: grid.TypeDate, Filter: grid.FilterDate}
	multi := grid.Column{Title: "Team", Filter: grid.FilterMultiSelect}
	limited := grid.Column{Title: "Code", Filter: grid.FilterText, Operators: []grid.Operator{grid.OpEquals}}

	day := func(s string) time.Time {
		d, _ := grid.ParseDate(s)
		return d
	}

	tests := []struct {
		name       string
		col        grid.Column
		filter     grid.FilterState
		wantClause string
		wantArgs   []any
	}{
		{
			name:       "default text operator is contains",
			col:        text,
			filter:     grid.FilterState{Value: " Ann "},
			wantClause: ` WHERE "c"::text ILIKE $1`,
			wantArgs:   []any{"%ann%"},
		},
		{
			name:       "not contains keeps nulls",
			col:        text,
			filter:     grid.FilterState{Operator: grid.OpNotContains, Value: "x_y"},
			wantClause: ` WHERE ("c" IS NULL OR "c"::text NOT ILIKE $1)`,
			wantArgs:   []any{`%x\_y%`},
		},
		{
			name:       "text equals is case-insensitive",
			col:        text,
			filter:     grid.FilterState{Operator: grid.OpEquals, Value: "Bob"},
			wantClause: ` WHERE lower(btrim("c"::text)) = $1`,
			wantArgs:   []any{"bob"},
		},
		{
			name:       "starts with",
			col:        text,
			filter:     grid.FilterState{Operator: grid.OpStartsWith, Value: "an"},
			wantClause: ` WHERE btrim("c"::text) ILIKE $1`,
			wantArgs:   []any{"an%"},
		},
		{
			name:       "is empty takes no operand",
			col:        text,
			filter:     grid.FilterState{Operator: grid.OpIsEmpty},
			wantClause: ` WHERE ("c" IS NULL OR btrim("c"::text) = '')`,
		},
		{
			name:   "blank text operand is inactive",
			col:    text,
			filter: grid.FilterState{Operator: grid.OpContains, Value: "  "},
		},
		{
			name:       "number comparison",
			col:        num,
			filter:     grid.FilterState{Operator: grid.OpGreaterThanOrEqual, Value: "$1,000"},
			wantClause: ` WHERE "c" >= $1`,
			wantArgs:   []any{1000.0},
		},
		{
			name:       "number between",
			col:        num,
			filter:     grid.FilterState{Operator: grid.OpBetween, From: "1", To: "2"},
			wantClause: ` WHERE "c" BETWEEN $1 AND $2`,
			wantArgs:   []any{1.0, 2.0},
		},
		{
			name:   "unparseable number is inactive",
			col:    num,
			filter: grid.FilterState{Operator: grid.OpEquals, Value: "abc"},
		},
		{
			name:       "date before",
			col:        date,
			filter:     grid.FilterState{Operator: grid.OpBefore, Value: "2024-01-15"},
			wantClause: ` WHERE "c"::date < $1`,
			wantArgs:   []any{day("2024-01-15")},
		},
		{
			name:       "date between",
			col:        date,
			filter:     grid.FilterState{Operator: grid.OpBetween, From: "2024-01-01", To: "2024-01-31"},
			wantClause: ` WHERE "c"::date BETWEEN $1 AND $2`,
			wantArgs:   []any{day("2024-01-01"), day("2024-01-31")},
		},
		{
			name:       "multi select",
			col:        multi,
			filter:     grid.FilterState{Values: []string{"red", "blue"}},
			wantClause: ` WHERE "c"::text IN ($1, $2)`,
			wantArgs:   []any{"red", "blue"},
		},
		{
			name:   "empty multi select is inactive",
			col:    multi,
			filter: grid.FilterState{Operator: grid.OpIn},
		},
		{
			name:   "operator outside kind",
			col:    num,
			filter: grid.FilterState{Operator: grid.OpContains, Value: "1"},
		},
		{
			name:   "operator outside column allow list",
			col:    limited,
			filter: grid.FilterState{Operator: grid.OpContains, Value: "a"},
		},
		{
			name:   "column without filter",
			col:    grid.Column{Title: "Notes"},
			filter: grid.FilterState{Value: "a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wb := NewWhereBuilder()
			wb.AddFilter("c", tt.col, tt.filter)

			clause, args := wb.Build()
			if clause != tt.wantClause {
				t.Errorf("clause = %q, want %q", clause, tt.wantClause)
			}
			if !reflect.DeepEqual(args, tt.wantArgs) {
				t.Errorf("args = %v, want %v", args, tt.wantArgs)
			}
		})
	}
}

func TestBuild(t *testing.T) {
	columns := []grid.Column{
		grid.NewColumn("ID", grid.TypeNumber),
		grid.NewColumn("Name", grid.TypeString),
		{Title: "Age", Type: grid.TypeNumber, Sortable: true, Filter: grid.FilterNumber},
		{Title: "Notes", Type: grid.TypeString},
	}
	columns[1].Filter = grid.FilterText
	src := Source{Table: "public.people", Columns: []string{"id", "full_name"}}

	q := grid.Query{
		Search: "an",
		Filters: map[int]grid.FilterState{
			2: {Operator: grid.OpBetween, From: "18", To: "65"},
			1: {Operator: grid.OpStartsWith, Value: "A"},
		},
		Sort: []grid.SortCriterion{
			{Column: 2, Direction: grid.Desc},
			{Column: 3, Direction: grid.Asc}, // not sortable
			{Column: 1, Direction: grid.Asc},
		},
		Page:        3,
		RowsPerPage: 25,
	}

	stmt, err := Build(src, columns, q)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	where := ` WHERE ("id"::text ILIKE $1 OR "full_name"::text ILIKE $1)` +
		` AND btrim("full_name"::text) ILIKE $2 AND "age" BETWEEN $3 AND $4`
	if want := `SELECT COUNT(*) FROM "public"."people"` + where; stmt.Count != want {
		t.Errorf("Count =\n%s\nwant\n%s", stmt.Count, want)
	}
	wantSelect := `SELECT "id", "full_name", "age", "notes" FROM "public"."people"` + where +
		` ORDER BY "age" DESC NULLS LAST, "full_name" ASC NULLS FIRST, "id" ASC LIMIT $5 OFFSET $6`
	if stmt.Select != wantSelect {
		t.Errorf("Select =\n%s\nwant\n%s", stmt.Select, wantSelect)
	}

	wantArgs := []any{"%an%", "a%", 18.0, 65.0}
	if !reflect.DeepEqual(stmt.Args, wantArgs) {
		t.Errorf("Args = %v, want %v", stmt.Args, wantArgs)
	}
	if got := stmt.SelectArgs(); !reflect.DeepEqual(got, append(wantArgs, 25, 50)) {
		t.Errorf("SelectArgs = %v", got)
	}
}

func TestBuild_Unfiltered(t *testing.T) {
	columns := []grid.Column{grid.NewColumn("Order ID", grid.TypeString)}
	stmt, err := Build(Source{Table: "orders", Key: "created_at"}, columns, grid.Query{Page: 1, RowsPerPage: 10})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := `SELECT "order_id" FROM "orders" ORDER BY "created_at" ASC LIMIT $1 OFFSET $2`
	if stmt.Select != want {
		t.Errorf("Select = %q, want %q", stmt.Select, want)
	}
	if stmt.Args != nil || stmt.Offset != 0 || stmt.Limit != 10 {
		t.Errorf("Args/Limit/Offset = %v/%d/%d, want nil/10/0", stmt.Args, stmt.Limit, stmt.Offset)
	}
}

func TestBuild_InvalidSource(t *testing.T) {
	columns := []grid.Column{grid.NewColumn("A", grid.TypeString)}
	if _, err := Build(Source{}, columns, grid.Query{}); !errors.Is(err, ErrInvalidSource) {
		t.Errorf("Build without table error = %v, want %v", err, ErrInvalidSource)
	}
	if _, err := Build(Source{Table: "t"}, nil, grid.Query{}); !errors.Is(err, ErrInvalidSource) {
		t.Errorf("Build without columns error = %v, want %v", err, ErrInvalidSource)
	}
}

func TestQuoteIdentifier(t *testing.T) {
	if got := quoteIdentifier(`we"ird`); got != `"we""ird"` {
		t.Errorf("quoteIdentifier = %s", got)
	}
	if got := quoteQualified("s.t"); got != `"s"."t"` {
		t.Errorf("quoteQualified = %s", got)
	}
	if got := escapeLike(`a\b%c_d`); got != `a\\b\%c\_d` {
		t.Errorf("escapeLike = %s", got)
	}
	if got := toDBColumnName(" Transaction ID "); !strings.EqualFold(got, "transaction_id") {
		t.Errorf("toDBColumnName = %s", got)
	}
}
