package table

// Builder accumulates rows of heterogeneous typed values before they are
// frozen into column-major form via Build. Writer and sample code collects
// per-item metadata row by row; Builder exists so that code does not have
// to pre-size and transpose slices by hand.
type Builder struct {
	order   []string
	kinds   map[string]Kind
	strings map[string][]string
	ints    map[string][]int64
	floats  map[string][]float64
	bools   map[string][]bool
	rows    int
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		kinds:   make(map[string]Kind),
		strings: make(map[string][]string),
		ints:    make(map[string][]int64),
		floats:  make(map[string][]float64),
		bools:   make(map[string][]bool),
	}
}

func (b *Builder) ensure(name string, k Kind) {
	if _, ok := b.kinds[name]; !ok {
		b.kinds[name] = k
		b.order = append(b.order, name)
		// Backfill any prior rows with zero values so every column stays
		// aligned with the row count.
		switch k {
		case String:
			b.strings[name] = make([]string, b.rows)
		case Int64:
			b.ints[name] = make([]int64, b.rows)
		case Float64:
			b.floats[name] = make([]float64, b.rows)
		case Bool:
			b.bools[name] = make([]bool, b.rows)
		}
	}
}

// SetString sets the String value of column name for the current row.
func (b *Builder) SetString(name, v string) {
	b.ensure(name, String)
	b.strings[name] = append(b.strings[name], v)
}

// SetInt64 sets the Int64 value of column name for the current row.
func (b *Builder) SetInt64(name string, v int64) {
	b.ensure(name, Int64)
	b.ints[name] = append(b.ints[name], v)
}

// SetFloat64 sets the Float64 value of column name for the current row.
func (b *Builder) SetFloat64(name string, v float64) {
	b.ensure(name, Float64)
	b.floats[name] = append(b.floats[name], v)
}

// SetBool sets the Bool value of column name for the current row.
func (b *Builder) SetBool(name string, v bool) {
	b.ensure(name, Bool)
	b.bools[name] = append(b.bools[name], v)
}

// EndRow advances the builder to the next row, zero-filling any column
// that was not set for the row just finished.
func (b *Builder) EndRow() {
	b.rows++
	for _, name := range b.order {
		switch b.kinds[name] {
		case String:
			for len(b.strings[name]) < b.rows {
				b.strings[name] = append(b.strings[name], "")
			}
		case Int64:
			for len(b.ints[name]) < b.rows {
				b.ints[name] = append(b.ints[name], 0)
			}
		case Float64:
			for len(b.floats[name]) < b.rows {
				b.floats[name] = append(b.floats[name], 0)
			}
		case Bool:
			for len(b.bools[name]) < b.rows {
				b.bools[name] = append(b.bools[name], false)
			}
		}
	}
}

// Build freezes the accumulated rows into a Table.
func (b *Builder) Build() *Table {
	t := New()
	for _, name := range b.order {
		switch b.kinds[name] {
		case String:
			_ = t.AddColumn(NewStringColumn(name, b.strings[name]))
		case Int64:
			_ = t.AddColumn(NewInt64Column(name, b.ints[name]))
		case Float64:
			_ = t.AddColumn(NewFloat64Column(name, b.floats[name]))
		case Bool:
			_ = t.AddColumn(NewBoolColumn(name, b.bools[name]))
		}
	}

	return t
}
