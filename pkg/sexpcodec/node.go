package sexpcodec

import (
	"strconv"
	"strings"
)

// Node is a single S-expression term: either an Atom (a bare symbol or a
// quoted string) or a List of child Nodes. It mirrors the teacher's own
// Sexp/List/Symbol split (pkg/kicad/sexp/kicadsexp) but additionally
// carries a Span so unmodified regions can be re-emitted byte for byte.
type Node interface {
	IsAtom() bool
	IsList() bool
	Span() Span
	// fresh reports whether this node was constructed programmatically
	// (no originating span in any source buffer) rather than parsed.
	fresh() bool
}

// Atom is a leaf token: a bare symbol (123, Device:R, solid) or a quoted
// string ("Value 47k"). The codec stores the literal text exactly as
// written — "3.1" never becomes "3.10" — and exposes numeric views that
// parse on demand via AsFloat64/AsInt64.
type Atom struct {
	span   Span
	Text   string // literal text, excluding surrounding quotes
	Quoted bool   // true if this atom was written as a quoted string
	isNew  bool
	source []byte // originating buffer; nil for a freshly-constructed atom
}

func (a *Atom) IsAtom() bool { return true }
func (a *Atom) IsList() bool { return false }
func (a *Atom) Span() Span   { return a.span }
func (a *Atom) fresh() bool  { return a.isNew }

// Raw returns the atom exactly as it would appear in source: quoted and
// escaped if it was (or should be) written as a string.
func (a *Atom) Raw() string {
	if a.Quoted {
		return quoteString(a.Text)
	}
	return a.Text
}

// AsFloat64 parses the atom's text as a float64. The stored text is never
// mutated by this call; two atoms with the same numeric value but
// different literal spellings ("1" vs "1.0") remain distinguishable.
func (a *Atom) AsFloat64() (float64, error) {
	return strconv.ParseFloat(a.Text, 64)
}

// AsInt64 parses the atom's text as an int64.
func (a *Atom) AsInt64() (int64, error) {
	return strconv.ParseInt(a.Text, 10, 64)
}

// NewSymbol constructs a fresh, unquoted atom (an identifier or number)
// with no originating span — used by the writer when emitting new
// content in fresh mode.
func NewSymbol(text string) *Atom {
	return &Atom{Text: text, isNew: true}
}

// NewString constructs a fresh, quoted atom.
func NewString(text string) *Atom {
	return &Atom{Text: text, Quoted: true, isNew: true}
}

// NewFloat constructs a fresh unquoted numeric atom formatted the way
// KiCad writes floats: trimmed of trailing zeros but never in exponent
// form for ordinary magnitudes.
func NewFloat(v float64) *Atom {
	return NewSymbol(strconv.FormatFloat(v, 'f', -1, 64))
}

// NewInt constructs a fresh unquoted integer atom.
func NewInt(v int64) *Atom {
	return NewSymbol(strconv.FormatInt(v, 10))
}

// List is a parenthesized sequence of Nodes. By KiCad convention the
// first element is almost always a bare symbol naming the node ("symbol",
// "at", "property", ...); Head/Items expose this uniformly.
type List struct {
	span   Span
	Items  []Node
	isNew  bool
	source []byte // originating buffer; nil for a freshly-constructed list
}

func (l *List) IsAtom() bool { return false }
func (l *List) IsList() bool { return true }
func (l *List) Span() Span   { return l.span }
func (l *List) fresh() bool  { return l.isNew }

// Head returns the first item (conventionally the list's tag symbol), or
// nil if the list is empty.
func (l *List) Head() Node {
	if len(l.Items) == 0 {
		return nil
	}
	return l.Items[0]
}

// HeadSymbol returns the text of Head() if it is an unquoted atom, and
// whether that succeeded.
func (l *List) HeadSymbol() (string, bool) {
	h := l.Head()
	if a, ok := h.(*Atom); ok && !a.Quoted {
		return a.Text, true
	}
	return "", false
}

// NewList constructs a fresh list with no originating span.
func NewList(items ...Node) *List {
	return &List{Items: items, isNew: true}
}

// Append adds an item to the end of a fresh or parsed list. Appending to
// a parsed list does not change how it formats: Format still copies its
// original bytes, so the appended items are not emitted. To change a
// parsed list, build a replacement List via NewList and reuse unchanged
// children by reference (see the writer package).
func (l *List) Append(items ...Node) {
	l.Items = append(l.Items, items...)
}

func quoteString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
