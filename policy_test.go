package xmlindent

import (
	"errors"
	"testing"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	if p.IndentChar != ' ' || p.IndentWidth != 4 {
		t.Fatalf("unexpected indentation %q x %d", p.IndentChar, p.IndentWidth)
	}
	if !p.ForceNewlineBeforeStartTag || !p.ForceNewlineAfterStartTag ||
		!p.ForceNewlineBeforeEndTag || !p.ForceNewlineAfterEndTag {
		t.Fatalf("expected all force rules on: %+v", p)
	}
	if p.ForceAlways || p.WrapLongLines || p.MaxColumns != 0 {
		t.Fatalf("expected force always and wrapping off: %+v", p)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("default policy invalid: %v", err)
	}
}

func TestPolicyDisableRule(t *testing.T) {
	p := DefaultPolicy()
	for _, token := range []string{"as", "AE", " bs ", "be"} {
		if err := p.DisableRule(token); err != nil {
			t.Fatalf("disable %q: %v", token, err)
		}
	}
	if p.ForceNewlineBeforeStartTag || p.ForceNewlineAfterStartTag ||
		p.ForceNewlineBeforeEndTag || p.ForceNewlineAfterEndTag {
		t.Fatalf("expected all force rules off: %+v", p)
	}
	if err := p.DisableRule("xx"); !errors.Is(err, ErrUnknownRule) {
		t.Fatalf("expected ErrUnknownRule, got %v", err)
	}
}

func TestPolicyValidate(t *testing.T) {
	tests := map[string]func(*Policy){
		"indent char":   func(p *Policy) { p.IndentChar = '-' },
		"indent width":  func(p *Policy) { p.IndentWidth = -1 },
		"max columns":   func(p *Policy) { p.MaxColumns = -3 },
		"wrap no limit": func(p *Policy) { p.WrapLongLines = true },
	}
	for name, mutate := range tests {
		p := DefaultPolicy()
		mutate(&p)
		if err := p.Validate(); !errors.Is(err, ErrInvalidPolicy) {
			t.Fatalf("%s: expected ErrInvalidPolicy, got %v", name, err)
		}
	}
}

func TestPolicySetMaxColumns(t *testing.T) {
	p := DefaultPolicy()
	p.SetMaxColumns(72)
	if !p.WrapLongLines || p.MaxColumns != 72 {
		t.Fatalf("expected wrapping at 72: %+v", p)
	}
	p.SetMaxColumns(0)
	if p.WrapLongLines {
		t.Fatalf("expected wrapping off")
	}
}

func TestPolicyIndentUnit(t *testing.T) {
	p := DefaultPolicy()
	p.IndentWidth = 2
	unit, cols := p.indentUnit()
	if string(unit) != "  " || cols != 2 {
		t.Fatalf("space unit = %q, %d", unit, cols)
	}
	p.IndentChar = '\t'
	unit, cols = p.indentUnit()
	if string(unit) != "\t" || cols != TabColumns {
		t.Fatalf("tab unit = %q, %d", unit, cols)
	}
}
