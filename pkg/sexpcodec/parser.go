package sexpcodec

// Tree is the result of parsing one KiCad file: the root Node plus the
// original byte buffer it was parsed from. Formatting an unmodified Tree
// reproduces Source byte for byte.
type Tree struct {
	Source []byte
	Root   Node

	// Trailing holds whatever bytes follow the root form's closing paren —
	// in practice the final newline every KiCad file ends with. Root's own
	// span ends at that ')', so without this the trailing newline would be
	// silently dropped on format.
	Trailing []byte
}

// Parse tokenizes and parses a single top-level S-expression (KiCad files
// always have exactly one: `(kicad_sch ...)`, `(kicad_pcb ...)`, etc.) out
// of source, retaining spans for lossless re-emission.
//
// This is a hand-written recursive descent over the lexer above, one
// token of lookahead, no error recovery — the same shape as the teacher's
// kicadsexp.Parser (pkg/kicad/sexp/kicadsexp/parser.go), generalized to
// build spanned nodes instead of discarding position information.
func Parse(source []byte) (*Tree, error) {
	p := &parser{lex: newLexer(source), src: source}
	if err := p.advance(); err != nil {
		return nil, err
	}
	root, err := p.parseNode()
	if err != nil {
		return nil, err
	}
	// Trailing trivia (if any) after the root form — KiCad files
	// universally end with a trailing newline — is captured verbatim so
	// FormatTree can re-emit it rather than silently dropping it.
	trailing := append([]byte(nil), source[root.Span().End:]...)
	return &Tree{Source: source, Root: root, Trailing: trailing}, nil
}

// ParseAll parses every top-level form in source, for formats that may
// contain more than one (none of KiCad's do today, but the codec does not
// assume otherwise).
func ParseAll(source []byte) ([]Node, error) {
	p := &parser{lex: newLexer(source), src: source}
	if err := p.advance(); err != nil {
		return nil, err
	}
	var nodes []Node
	for p.cur.kind != tokEOF {
		n, err := p.parseNode()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	return nodes, nil
}

type parser struct {
	lex *lexer
	src []byte
	cur token
}

func (p *parser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.cur = t
	return nil
}

func (p *parser) parseNode() (Node, error) {
	switch p.cur.kind {
	case tokLParen:
		return p.parseList()
	case tokAtom:
		a := &Atom{
			span:   Span{LeadingStart: p.cur.leadingStart, Start: p.cur.start, End: p.cur.end},
			Text:   p.cur.text,
			Quoted: p.cur.quoted,
			source: p.src,
		}
		return a, nil
	case tokRParen:
		return nil, newParseError(p.src, "", p.cur.start, "expression", "')'")
	default:
		return nil, newParseError(p.src, "", p.cur.start, "expression", "end of file")
	}
}

func (p *parser) parseList() (Node, error) {
	leadingStart := p.cur.leadingStart
	openStart := p.cur.start

	var items []Node
	for {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.kind == tokRParen {
			break
		}
		if p.cur.kind == tokEOF {
			return nil, newParseError(p.src, "", p.cur.start, "')'", "end of file")
		}
		item, err := p.parseNode()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	closeEnd := p.cur.end

	return &List{
		span:   Span{LeadingStart: leadingStart, Start: openStart, End: closeEnd},
		Items:  items,
		source: p.src,
	}, nil
}
