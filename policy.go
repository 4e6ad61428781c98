package xmlindent

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidPolicy reports a Policy that cannot drive the engine.
	ErrInvalidPolicy = errors.New("invalid policy")
	// ErrUnknownRule reports a newline rule token other than as, ae, bs or be.
	ErrUnknownRule = errors.New("unknown newline rule")
)

const (
	// DefaultIndentWidth is the number of indent characters per level.
	DefaultIndentWidth = 4
	// TabColumns is the column width of one tab indent unit.
	TabColumns = 8
)

// Policy controls where newlines are forced and how lines are indented and wrapped.
type Policy struct {
	IndentChar  byte
	IndentWidth int

	ForceNewlineBeforeStartTag bool
	ForceNewlineAfterStartTag  bool
	ForceNewlineBeforeEndTag   bool
	ForceNewlineAfterEndTag    bool

	// ForceAlways applies the force rules to elements without child elements.
	ForceAlways bool

	WrapLongLines bool
	MaxColumns    int
}

// DefaultPolicy returns four-space indentation with all force rules on and wrapping off.
func DefaultPolicy() Policy {
	return Policy{
		IndentChar:                 ' ',
		IndentWidth:                DefaultIndentWidth,
		ForceNewlineBeforeStartTag: true,
		ForceNewlineAfterStartTag:  true,
		ForceNewlineBeforeEndTag:   true,
		ForceNewlineAfterEndTag:    true,
	}
}

// Validate reports why p cannot be used, if it cannot.
func (p Policy) Validate() error {
	if p.IndentChar != ' ' && p.IndentChar != '\t' {
		return fmt.Errorf("%w: indent char %q", ErrInvalidPolicy, p.IndentChar)
	}
	if p.IndentWidth < 0 {
		return fmt.Errorf("%w: indent width %d", ErrInvalidPolicy, p.IndentWidth)
	}
	if p.MaxColumns < 0 {
		return fmt.Errorf("%w: max columns %d", ErrInvalidPolicy, p.MaxColumns)
	}
	if p.WrapLongLines && p.MaxColumns == 0 {
		return fmt.Errorf("%w: wrapping needs max columns", ErrInvalidPolicy)
	}
	return nil
}

// DisableRule turns off one force rule by its short name:
// as (after start tag), ae (after end tag), bs (before start tag), be (before end tag).
func (p *Policy) DisableRule(token string) error {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "as":
		p.ForceNewlineAfterStartTag = false
	case "ae":
		p.ForceNewlineAfterEndTag = false
	case "bs":
		p.ForceNewlineBeforeStartTag = false
	case "be":
		p.ForceNewlineBeforeEndTag = false
	default:
		return fmt.Errorf("%w %q (expected as|ae|bs|be)", ErrUnknownRule, token)
	}
	return nil
}

// SetMaxColumns enables wrapping at n columns, or disables it when n is 0.
func (p *Policy) SetMaxColumns(n int) {
	p.MaxColumns = n
	p.WrapLongLines = n > 0
}

// indentUnit returns the bytes written per indent level and their column width.
func (p Policy) indentUnit() ([]byte, int) {
	if p.IndentChar == '\t' {
		return []byte{'\t'}, TabColumns
	}
	unit := make([]byte, p.IndentWidth)
	for i := range unit {
		unit[i] = p.IndentChar
	}
	return unit, p.IndentWidth
}
