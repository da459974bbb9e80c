package sparse

// Slice is the result of a query: values of one array labelled by their
// own positions.
type Slice struct {
	Array  string
	Labels []int
	Values []float64
}

// limit is the exclusive upper end a range may reach. Offset arrays hold
// bound+1 entries and their final entry (== nnz) is reachable. The limit
// never exceeds the physical array.
func (v *View) limit(sel Selector, bound int) int {
	lim := bound
	if v.arrays[sel].offset {
		lim++
	}
	return min(lim, v.arrays[sel].len())
}

// CheckIndex validates a single-index query against the caller's bound.
func (v *View) CheckIndex(sel Selector, bound, i int) error {
	lim := min(bound, v.arrays[sel].len())
	if i < 0 || i >= lim {
		return &RangeError{Array: v.arrays[sel].name, Lo: i, Hi: i + 1, Limit: lim, Single: true}
	}
	return nil
}

// CheckRange validates a half-open [lo, hi) query against the caller's bound.
func (v *View) CheckRange(sel Selector, bound, lo, hi int) error {
	lim := v.limit(sel, bound)
	if lo >= hi || lo < 0 || hi > lim {
		return &RangeError{Array: v.arrays[sel].name, Lo: lo, Hi: hi, Limit: lim}
	}
	return nil
}

// Index returns element i of the array behind sel.
func (v *View) Index(sel Selector, bound, i int) (Slice, error) {
	if err := v.CheckIndex(sel, bound, i); err != nil {
		return Slice{}, err
	}
	a := &v.arrays[sel]
	return Slice{Array: a.name, Labels: []int{i}, Values: []float64{a.at(i)}}, nil
}

// Range returns elements [lo, hi) of the array behind sel.
func (v *View) Range(sel Selector, bound, lo, hi int) (Slice, error) {
	if err := v.CheckRange(sel, bound, lo, hi); err != nil {
		return Slice{}, err
	}
	a := &v.arrays[sel]
	out := Slice{
		Array:  a.name,
		Labels: make([]int, 0, hi-lo),
		Values: make([]float64, 0, hi-lo),
	}
	for i := lo; i < hi; i++ {
		out.Labels = append(out.Labels, i)
		out.Values = append(out.Values, a.at(i))
	}
	return out, nil
}
