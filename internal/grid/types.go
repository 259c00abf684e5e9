package grid

import (
	"encoding/json"
	"fmt"
	"slices"
)

// DataType represents the declared type of a column's values.
type DataType int

const (
	TypeString DataType = iota
	TypeNumber
	TypeMoney
	TypeMail
	TypeTel
	TypeDate
	TypeDateTime
	TypeBoolean
)

var dataTypeNames = []string{"string", "number", "money", "mail", "tel", "date", "datetime", "boolean"}

// String returns the configuration name of a DataType.
func (dt DataType) String() string {
	if dt >= 0 && int(dt) < len(dataTypeNames) {
		return dataTypeNames[dt]
	}
	return fmt.Sprintf("unknown(%d)", int(dt))
}

// MarshalText implements encoding.TextMarshaler.
func (dt DataType) MarshalText() ([]byte, error) {
	return []byte(dt.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (dt *DataType) UnmarshalText(b []byte) error {
	i := slices.Index(dataTypeNames, string(b))
	if i < 0 {
		return fmt.Errorf("%w: unknown data type %q", ErrInvalidConfig, b)
	}
	*dt = DataType(i)
	return nil
}

// isTemporal reports whether values of this type are dates or timestamps.
func (dt DataType) isTemporal() bool {
	return dt == TypeDate || dt == TypeDateTime
}

// FilterKind selects the per-column filter UI and its operator family.
type FilterKind int

const (
	FilterNone FilterKind = iota
	FilterText
	FilterNumber
	FilterDate
	FilterMultiSelect
)

var filterKindNames = []string{"none", "text", "number", "date", "multiSelect"}

func (k FilterKind) String() string {
	if k >= 0 && int(k) < len(filterKindNames) {
		return filterKindNames[k]
	}
	return fmt.Sprintf("unknown(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k FilterKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty string means none.
func (k *FilterKind) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*k = FilterNone
		return nil
	}
	i := slices.Index(filterKindNames, string(b))
	if i < 0 {
		return fmt.Errorf("%w: unknown filter kind %q", ErrInvalidConfig, b)
	}
	*k = FilterKind(i)
	return nil
}

// Operator is a comparison applied by a column filter.
type Operator string

const (
	OpContains           Operator = "contains"
	OpNotContains        Operator = "notContains"
	OpEquals             Operator = "equals"
	OpNotEquals          Operator = "notEquals"
	OpStartsWith         Operator = "startsWith"
	OpEndsWith           Operator = "endsWith"
	OpGreaterThan        Operator = "greaterThan"
	OpLessThan           Operator = "lessThan"
	OpGreaterThanOrEqual Operator = "greaterThanOrEqual"
	OpLessThanOrEqual    Operator = "lessThanOrEqual"
	OpAfter              Operator = "after"
	OpBefore             Operator = "before"
	OpAfterOrEqual       Operator = "afterOrEqual"
	OpBeforeOrEqual      Operator = "beforeOrEqual"
	OpBetween            Operator = "between"
	OpIn                 Operator = "in"
	OpIsEmpty            Operator = "isEmpty"
	OpIsNotEmpty         Operator = "isNotEmpty"
)

// operatorsByKind lists the operators valid for each filter kind.
// The first entry is the kind's default operator.
var operatorsByKind = map[FilterKind][]Operator{
	FilterText: {OpContains, OpNotContains, OpEquals, OpStartsWith, OpEndsWith, OpIsEmpty, OpIsNotEmpty},
	FilterNumber: {OpEquals, OpNotEquals, OpGreaterThan, OpLessThan, OpGreaterThanOrEqual,
		OpLessThanOrEqual, OpBetween, OpIsEmpty, OpIsNotEmpty},
	FilterDate: {OpEquals, OpNotEquals, OpAfter, OpBefore, OpAfterOrEqual, OpBeforeOrEqual,
		OpBetween, OpIsEmpty, OpIsNotEmpty},
	FilterMultiSelect: {OpIn},
}

// OperatorsFor returns the operators valid for a filter kind.
func OperatorsFor(kind FilterKind) []Operator {
	return slices.Clone(operatorsByKind[kind])
}

// DefaultOperator returns the operator used when a filter omits one.
func DefaultOperator(kind FilterKind) Operator {
	ops := operatorsByKind[kind]
	if len(ops) == 0 {
		return ""
	}
	return ops[0]
}

// needsValue reports whether the operator takes an operand.
func (op Operator) needsValue() bool {
	return op != OpIsEmpty && op != OpIsNotEmpty
}

// Column is the static description of one column.
type Column struct {
	Title      string     `json:"title"`
	Type       DataType   `json:"dataType"`
	Sortable   bool       `json:"sortable"`
	Searchable bool       `json:"searchable"`
	Filter     FilterKind `json:"filterKind"`
	Operators  []Operator `json:"allowedFilterOperators,omitempty"` // Empty means every operator of Filter
	Options    []string   `json:"options,omitempty"`                // Choices for multiSelect filters
	Width      int        `json:"width,omitempty"`
}

// NewColumn returns a sortable, searchable column with no filter.
func NewColumn(title string, dt DataType) Column {
	return Column{Title: title, Type: dt, Sortable: true, Searchable: true}
}

// UnmarshalJSON decodes a column, defaulting sortable and searchable to true.
func (c *Column) UnmarshalJSON(data []byte) error {
	type alias Column
	a := alias{Sortable: true, Searchable: true}
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*c = Column(a)
	return nil
}

// Allows reports whether op may be used on this column's filter.
func (c Column) Allows(op Operator) bool {
	valid := operatorsByKind[c.Filter]
	if !slices.Contains(valid, op) {
		return false
	}
	return len(c.Operators) == 0 || slices.Contains(c.Operators, op)
}

// validate checks the column's own configuration.
func (c Column) validate() error {
	if c.Type < TypeString || c.Type > TypeBoolean {
		return fmt.Errorf("%w: column %q has data type %s", ErrInvalidConfig, c.Title, c.Type)
	}
	if c.Filter < FilterNone || c.Filter > FilterMultiSelect {
		return fmt.Errorf("%w: column %q has filter kind %s", ErrInvalidConfig, c.Title, c.Filter)
	}
	for _, op := range c.Operators {
		if !slices.Contains(operatorsByKind[c.Filter], op) {
			return fmt.Errorf("%w: %q is not a %s operator (column %q)", ErrInvalidOperator, op, c.Filter, c.Title)
		}
	}
	return nil
}

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Toggle returns the opposite direction.
func (d Direction) Toggle() Direction {
	if d == Asc {
		return Desc
	}
	return Asc
}

// SortCriterion orders rows by one column.
type SortCriterion struct {
	Column    int       `json:"columnIndex"`
	Direction Direction `json:"direction"`
}

// FilterState is the filter applied to one column.
// Value is the scalar operand, From/To bound between, Values lists in-members.
type FilterState struct {
	Operator Operator `json:"operator"`
	Value    string   `json:"value,omitempty"`
	From     string   `json:"from,omitempty"`
	To       string   `json:"to,omitempty"`
	Values   []string `json:"values,omitempty"`
}

func (f FilterState) clone() FilterState {
	f.Values = slices.Clone(f.Values)
	return f
}

// Reserved width-map keys for the non-data columns.
const (
	SelectColumnKey  = -1
	ActionsColumnKey = -2
)

// ViewMode selects the final pipeline stage.
type ViewMode int

const (
	ModePaginate ViewMode = iota
	ModeVirtual
)

func (m ViewMode) String() string {
	if m == ModeVirtual {
		return "virtual"
	}
	return "paginate"
}

// MarshalText implements encoding.TextMarshaler.
func (m ViewMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *ViewMode) UnmarshalText(b []byte) error {
	switch string(b) {
	case "", "paginate":
		*m = ModePaginate
	case "virtual":
		*m = ModeVirtual
	default:
		return fmt.Errorf("%w: unknown view mode %q", ErrInvalidConfig, b)
	}
	return nil
}
