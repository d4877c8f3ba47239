package models

// Table is an immutable, ordered set of listings.
//
// A Table produced by Where shares the backing rows of its parent and only
// holds the indices of the rows it keeps, so views are cheap to build and
// can never alter the table they were derived from.
type Table struct {
	rows []Listing
	idx  []int // nil selects every row of rows
}

// NewTable copies rows into a new Table.
func NewTable(rows []Listing) Table {
	cp := make([]Listing, len(rows))
	copy(cp, rows)
	return Table{rows: cp}
}

// Len returns the number of rows visible through t.
func (t Table) Len() int {
	if t.idx == nil {
		return len(t.rows)
	}
	return len(t.idx)
}

// At returns a copy of the i-th visible row.
func (t Table) At(i int) Listing {
	if t.idx == nil {
		return t.rows[i]
	}
	return t.rows[t.idx[i]]
}

// Rows returns a copy of every visible row, in order.
func (t Table) Rows() []Listing {
	out := make([]Listing, t.Len())
	for i := range out {
		out[i] = t.At(i)
	}
	return out
}

// Head returns a view of at most n leading rows. n <= 0 keeps every row.
func (t Table) Head(n int) Table {
	if n <= 0 || n >= t.Len() {
		return t
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = t.source(i)
	}
	return Table{rows: t.rows, idx: idx}
}

// Where returns the rows for which keep reports true, preserving order.
func (t Table) Where(keep func(Listing) bool) Table {
	idx := make([]int, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		src := t.source(i)
		if keep(t.rows[src]) {
			idx = append(idx, src)
		}
	}
	return Table{rows: t.rows, idx: idx}
}

func (t Table) source(i int) int {
	if t.idx == nil {
		return i
	}
	return t.idx[i]
}
