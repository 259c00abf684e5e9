package grid

// people is the three-row fixture used across the engine tests.
func people() ([]Column, []Row) {
	cols := []Column{
		{Title: "ID", Type: TypeNumber, Sortable: true, Searchable: true, Filter: FilterNumber},
		{Title: "Name", Type: TypeString, Sortable: true, Searchable: true, Filter: FilterText},
	}
	rows := []Row{
		Values(1, "Bob"),
		Values(2, "ann"),
		Values(3, "Cara"),
	}
	return cols, rows
}

// names returns column 1 of every row.
func names(rows []Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r[1].Text()
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
