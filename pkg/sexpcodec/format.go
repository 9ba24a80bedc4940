package sexpcodec

import "bytes"

const (
	freshIndentWidth = 2
	freshWrapColumn  = 80
)

// Format renders a Node tree to bytes.
//
// Any subtree whose root Node was produced by the parser (i.e. has not
// been replaced by a freshly-constructed Node) is emitted by slicing its
// own span — including the leading trivia that precedes it — directly out
// of the original source buffer. This is "preserve mode": a node that
// nothing touched reproduces its original bytes exactly, no matter how
// deeply it is now nested under freshly-built ancestors, which is what
// lets the writer minimize diff noise (spec.md 4.1/4.5) by reusing
// untouched subtrees wholesale.
//
// A Node built by NewList/NewSymbol/NewString/NewFloat/NewInt ("fresh
// mode") is instead laid out using KiCad's de facto style: two-space
// indent, each list whose single-line rendering would exceed 80 columns
// broken onto its own lines with children indented.
func Format(n Node) []byte {
	var buf bytes.Buffer
	writeNode(&buf, n, 0, 0)
	return buf.Bytes()
}

// FormatTree renders an entire parsed Tree, including whatever trailing
// bytes (typically a final newline) followed the root form's closing
// paren. When the tree's Root has not been replaced with a fresh node,
// this reproduces t.Source byte for byte.
func FormatTree(t *Tree) []byte {
	out := Format(t.Root)
	if len(t.Trailing) > 0 {
		out = append(out, t.Trailing...)
	}
	return out
}

func writeNode(buf *bytes.Buffer, n Node, col, indent int) int {
	if !n.fresh() {
		return writeVerbatim(buf, n, col)
	}
	switch v := n.(type) {
	case *Atom:
		s := v.Raw()
		buf.WriteString(s)
		return col + len(s)
	case *List:
		return writeFreshList(buf, v, col, indent)
	}
	return col
}

// writeVerbatim emits a node's original bytes (leading trivia + own text)
// exactly as parsed, and returns the resulting column.
func writeVerbatim(buf *bytes.Buffer, n Node, col int) int {
	span := n.Span()
	data := sourceOf(n)[span.LeadingStart:span.End]
	buf.Write(data)
	if i := bytes.LastIndexByte(data, '\n'); i >= 0 {
		return len(data) - i - 1
	}
	return col + len(data)
}

// sourceOf returns the original buffer a parsed node belongs to.
func sourceOf(n Node) []byte {
	switch v := n.(type) {
	case *Atom:
		return v.source
	case *List:
		return v.source
	}
	return nil
}

func writeFreshList(buf *bytes.Buffer, l *List, col, indent int) int {
	if inline, ok := renderInline(l, col); ok {
		buf.WriteString(inline)
		return col + len(inline)
	}

	buf.WriteByte('(')
	col++
	childIndent := indent + freshIndentWidth
	for i, item := range l.Items {
		if i == 0 {
			col = writeChildInline(buf, item, col)
			continue
		}
		if item.fresh() {
			// A freshly-built child has no original whitespace of its
			// own, so the parent supplies fresh-mode indentation.
			buf.WriteByte('\n')
			buf.WriteString(spaces(childIndent))
			col = childIndent
			col = writeNode(buf, item, col, childIndent)
		} else {
			// A preserved child carries its own leading trivia (the
			// newline and indentation it had on disk) inside its span;
			// writing fresh indentation in front of it would double up
			// whitespace, breaking byte-identity for untouched regions.
			col = writeVerbatim(buf, item, col)
		}
	}
	buf.WriteByte(')')
	return col + 1
}

// writeChildInline emits a child that shares the opening line of its
// parent list (the head symbol and, when the whole list fit inline, every
// following sibling too).
func writeChildInline(buf *bytes.Buffer, n Node, col int) int {
	return writeNode(buf, n, col, col)
}

// renderInline attempts to lay out an entire fresh list on one line,
// succeeding only if doing so keeps the line within freshWrapColumn.
func renderInline(l *List, col int) (string, bool) {
	var buf bytes.Buffer
	buf.WriteByte('(')
	width := col + 1
	for i, item := range l.Items {
		if i > 0 {
			buf.WriteByte(' ')
			width++
		}
		s := inlineText(item)
		buf.WriteString(s)
		width += len(s)
		if width > freshWrapColumn {
			return "", false
		}
	}
	buf.WriteByte(')')
	return buf.String(), true
}

// inlineText renders a node as it would look on a single line, ignoring
// its stored leading trivia (a verbatim child contributes only its own
// text to an inline rendering — the separating space is supplied by the
// parent, just as for a fresh child).
func inlineText(n Node) string {
	switch v := n.(type) {
	case *Atom:
		if !v.fresh() {
			return string(v.source[v.span.Start:v.span.End])
		}
		return v.Raw()
	case *List:
		if !v.fresh() {
			return string(v.source[v.span.Start:v.span.End])
		}
		var buf bytes.Buffer
		buf.WriteByte('(')
		for i, item := range v.Items {
			if i > 0 {
				buf.WriteByte(' ')
			}
			buf.WriteString(inlineText(item))
		}
		buf.WriteByte(')')
		return buf.String()
	}
	return ""
}

func spaces(n int) string {
	if n <= 0 {
		return ""
	}
	return string(bytes.Repeat([]byte{' '}, n))
}
