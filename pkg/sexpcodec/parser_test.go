package sexpcodec

import (
	"bytes"
	"testing"
)

func TestRoundTripIdentity(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"minimal", "(kicad_sch (version 20250114) (generator \"eeschema\"))"},
		{"nested", "(a (b 1 2) (c \"hello world\") (d))"},
		{"numeric precision preserved", "(at 3.1 1.0e-3 90)"},
		{"comment and whitespace", "(a\n  # a comment\n  (b 1)\n)"},
		{"escaped quotes", `(title "she said \"hi\"")`},
		{"trailing newline", "(kicad_sch (version 20250114) (generator \"eeschema\"))\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tree, err := Parse([]byte(tc.input))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			out := FormatTree(tree)
			if !bytes.Equal(out, []byte(tc.input)) {
				t.Errorf("round-trip mismatch:\n got: %q\nwant: %q", out, tc.input)
			}
		})
	}
}

func TestNumericLiteralPreservesForm(t *testing.T) {
	tree, err := Parse([]byte("(at 3.1 1.0e-3)"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	root := tree.Root.(*List)
	a := root.Items[1].(*Atom)
	if a.Text != "3.1" {
		t.Errorf("expected literal text 3.1, got %q", a.Text)
	}
	v, err := a.AsFloat64()
	if err != nil || v != 3.1 {
		t.Errorf("AsFloat64() = %v, %v", v, err)
	}
}

func TestParseErrorHasPosition(t *testing.T) {
	_, err := Parse([]byte("(a (b 1)"))
	if err == nil {
		t.Fatal("expected parse error for unterminated list")
	}
	pe, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if pe.Line != 1 {
		t.Errorf("expected line 1, got %d", pe.Line)
	}
}

func TestFreshListWrapsAtEightyColumns(t *testing.T) {
	// A list whose inline form would exceed 80 columns must be broken
	// across lines with 2-space-indented children.
	long := NewList(NewSymbol("property"))
	for i := 0; i < 10; i++ {
		long.Append(NewString("a-reasonably-long-property-value-segment"))
	}
	out := string(Format(long))
	if len(out) == 0 {
		t.Fatal("expected non-empty output")
	}
	if !bytes.Contains([]byte(out), []byte("\n  ")) {
		t.Errorf("expected wrapped output with 2-space indent, got: %s", out)
	}
}

func TestFreshShortListStaysInline(t *testing.T) {
	l := NewList(NewSymbol("at"), NewFloat(1.27), NewFloat(2.54))
	out := string(Format(l))
	if out != "(at 1.27 2.54)" {
		t.Errorf("expected inline rendering, got %q", out)
	}
}

func TestFieldAndAccessors(t *testing.T) {
	tree, err := Parse([]byte(`(symbol (at 1 2 90) (property "Reference" "R1"))`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	at, ok := Field(tree.Root, "at")
	if !ok {
		t.Fatal("expected to find (at ...) field")
	}
	x, ok := Float(at, 1)
	if !ok || x != 1 {
		t.Errorf("Float(at,1) = %v, %v", x, ok)
	}
	props := Fields(tree.Root, "property")
	if len(props) != 1 {
		t.Fatalf("expected 1 property, got %d", len(props))
	}
	name, _ := String(props[0], 1)
	if name != "Reference" {
		t.Errorf("expected Reference, got %q", name)
	}
}

func TestPreserveModeReusesUnchangedSubtree(t *testing.T) {
	input := `(symbols (symbol_a 1) (symbol_b 2))`
	tree, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	root := tree.Root.(*List)
	unchanged := root.Items[1] // (symbol_a 1), reused verbatim
	replacement := NewList(NewSymbol("symbol_b"), NewInt(99))

	rebuilt := NewList(root.Items[0], unchanged, replacement)
	out := string(Format(rebuilt))
	want := `(symbols (symbol_a 1) (symbol_b 99))`
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}
