package sexpcodec

// Navigation and typed-value helpers over the Node tree, generalized from
// the teacher's pkg/kicad/sexp/utils.go (FindNode, GetString, GetFloat,
// GetPosition, ...) to operate on sexpcodec.Node instead of kicadsexp.Sexp.
// Unknown shapes return ok=false / an error rather than panicking — this
// is the typed node API the spec's design notes call for in place of
// runtime type checks on S-expression shape (spec.md 9).

// Field searches the direct children of a list for the first child list
// whose head symbol equals key. Example: Field(sym, "at") finds
// (at 100 50) inside (symbol ...).
func Field(n Node, key string) (*List, bool) {
	l, ok := n.(*List)
	if !ok {
		return nil, false
	}
	for _, item := range l.Items {
		if child, ok := item.(*List); ok {
			if h, ok := child.HeadSymbol(); ok && h == key {
				return child, true
			}
		}
	}
	return nil, false
}

// Fields returns every direct child list whose head symbol equals key, in
// document order.
func Fields(n Node, key string) []*List {
	l, ok := n.(*List)
	if !ok {
		return nil
	}
	var out []*List
	for _, item := range l.Items {
		if child, ok := item.(*List); ok {
			if h, ok := child.HeadSymbol(); ok && h == key {
				out = append(out, child)
			}
		}
	}
	return out
}

// At returns the i'th item of a list (0 is the head symbol), or nil if
// out of range.
func At(n Node, i int) Node {
	l, ok := n.(*List)
	if !ok {
		return nil
	}
	if i < 0 || i >= len(l.Items) {
		return nil
	}
	return l.Items[i]
}

// String returns the text of the i'th item, treating it as an atom
// (quoted or otherwise).
func String(n Node, i int) (string, bool) {
	a, ok := At(n, i).(*Atom)
	if !ok {
		return "", false
	}
	return a.Text, true
}

// Float returns the i'th item parsed as a float64.
func Float(n Node, i int) (float64, bool) {
	a, ok := At(n, i).(*Atom)
	if !ok {
		return 0, false
	}
	v, err := a.AsFloat64()
	return v, err == nil
}

// Int returns the i'th item parsed as an int64.
func Int(n Node, i int) (int64, bool) {
	a, ok := At(n, i).(*Atom)
	if !ok {
		return 0, false
	}
	v, err := a.AsInt64()
	return v, err == nil
}

// Bool interprets the i'th item as a KiCad "yes"/"no" flag.
func Bool(n Node, i int) (bool, bool) {
	s, ok := String(n, i)
	if !ok {
		return false, false
	}
	return s == "yes", true
}
