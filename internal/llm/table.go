package llm

// Row is one extracted line keyed by column name. Its shape comes from the
// model output, so columns are data rather than struct fields.
type Row map[string]any

// Table is a list of rows plus the union of their columns in first-seen order.
type Table struct {
	Columns []string
	Rows    []Row

	seen map[string]struct{}
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{seen: make(map[string]struct{})}
}

func (t *Table) addColumn(name string) {
	if t.seen == nil {
		t.seen = make(map[string]struct{})
	}
	if _, ok := t.seen[name]; ok {
		return
	}
	t.seen[name] = struct{}{}
	t.Columns = append(t.Columns, name)
}

// Cell returns the value at row i for column, or nil when the row lacks it.
func (t *Table) Cell(i int, column string) any {
	if i < 0 || i >= len(t.Rows) {
		return nil
	}
	return t.Rows[i][column]
}

// Len is the number of rows.
func (t *Table) Len() int { return len(t.Rows) }
