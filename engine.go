package xmlindent

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/muesli/reflow/ansi"
)

const (
	outputBufferSize = 4096
	// Buffers that grew beyond this are dropped when an engine is reset.
	maxRetainedBuffer = 64 * 1024
)

// Option configures an Engine.
type Option func(*engineConfig)

type engineConfig struct {
	logger *log.Logger
}

// WithLogger routes engine diagnostics to l.
func WithLogger(l *log.Logger) Option {
	return func(cfg *engineConfig) {
		cfg.logger = l
	}
}

var discardLogger = log.New(io.Discard)

// Engine reindents the events of one EventSource onto one writer.
//
// Text since the last committed line lives in primary. A start tag is held
// in tag, and what follows it in secondary, until the next start tag, end
// tag or newline shows whether the element spans lines. Level changes made
// by tags accumulate in delta and are applied when the line is committed:
// negative before its indentation is written, positive after.
type Engine struct {
	src    EventSource
	w      *bufio.Writer
	policy Policy
	logger *log.Logger

	primary   Buffer
	secondary Buffer
	tag       Buffer
	hold      Buffer
	active    *Buffer

	level int
	delta int
	// breakPending is an after-tag newline that has not been written yet.
	// The next source newline satisfies it; blanks before other output are dropped.
	breakPending bool
	// wrapped is set while primary holds what follows a wrap break.
	wrapped bool
	// markEnd is the end of the last markup in the active buffer.
	// Wrapping never cuts before it.
	markEnd int
	// markup holds [start, end) pairs of the markup written to secondary.
	markup []int
	// parentOnLine is set while the last resolved start tag is on the
	// uncommitted line.
	parentOnLine bool

	unit     []byte
	unitCols int

	primaryWidth   measure
	tagWidth       measure
	secondaryWidth measure

	lines int
	wraps int
}

// NewEngine returns an Engine reading src and writing to w.
func NewEngine(src EventSource, w io.Writer, policy Policy, opts ...Option) *Engine {
	e := &Engine{}
	e.reset(src, w, policy, opts)
	return e
}

func newEngineConfig(opts []Option) engineConfig {
	cfg := engineConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = discardLogger
	}
	return cfg
}

func (e *Engine) reset(src EventSource, w io.Writer, policy Policy, opts []Option) {
	e.logger = newEngineConfig(opts).logger
	e.src = src
	if e.w == nil {
		e.w = bufio.NewWriterSize(w, outputBufferSize)
	} else {
		e.w.Reset(w)
	}
	e.policy = policy
	e.primary.release(maxRetainedBuffer)
	e.secondary.release(maxRetainedBuffer)
	e.tag.release(maxRetainedBuffer)
	e.hold.release(maxRetainedBuffer)
	e.active = &e.primary
	e.level = 0
	e.delta = 0
	e.breakPending = false
	e.wrapped = false
	e.markEnd = 0
	e.markup = e.markup[:0]
	e.parentOnLine = false
	e.unit, e.unitCols = policy.indentUnit()
	e.primaryWidth = measure{}
	e.tagWidth = measure{}
	e.secondaryWidth = measure{}
	e.lines = 0
	e.wraps = 0
}

// Run consumes the source to the end and flushes all output.
func (e *Engine) Run() error {
	if err := e.policy.Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	for {
		ev, err := e.src.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("engine: read: %w", err)
		}
		if err := e.handle(ev); err != nil {
			return fmt.Errorf("engine: %s: %w", ev.Kind, err)
		}
	}
	if err := e.finish(); err != nil {
		return fmt.Errorf("engine: finish: %w", err)
	}
	if err := e.w.Flush(); err != nil {
		return fmt.Errorf("engine: write: %w", err)
	}
	e.logger.Debug("formatted", "lines", e.lines, "wraps", e.wraps)
	return nil
}

func (e *Engine) handle(ev Event) error {
	switch ev.Kind {
	case EventStartTag:
		return e.startTag(ev.Text)
	case EventEndTag:
		return e.endTag(ev.Text)
	case EventEmptyTag:
		return e.emptyTag(ev.Text)
	case EventNewline:
		return e.newline(true)
	case EventContent:
		return e.content(ev.Text)
	default:
		return e.verbatim(ev.Text)
	}
}

func (e *Engine) pending() bool {
	return e.active == &e.secondary
}

func (e *Engine) startTag(text []byte) error {
	if e.pending() {
		// A nested start tag: the held element has children.
		if err := e.resolve(true); err != nil {
			return err
		}
	}
	_, _ = e.tag.Write(text)
	e.active = &e.secondary
	e.markEnd = 0
	return nil
}

func (e *Engine) endTag(text []byte) error {
	before, after := true, true
	if e.pending() {
		// The element closes its own start tag: no child elements, so only
		// ForceAlways lets the end-tag rules apply.
		if err := e.resolve(false); err != nil {
			return err
		}
		before = e.policy.ForceAlways
		after = e.policy.ForceAlways
	}
	if (before && e.policy.ForceNewlineBeforeEndTag) || e.breakPending {
		if err := e.breakLine(); err != nil {
			return err
		}
	}
	_, _ = e.primary.Write(text)
	e.markEnd = e.primary.Len()
	e.delta--
	if after && e.policy.ForceNewlineAfterEndTag {
		e.breakPending = true
	}
	return nil
}

func (e *Engine) emptyTag(text []byte) error {
	after := true
	if e.pending() {
		if err := e.resolve(true); err != nil {
			return err
		}
		// Without an after-start break the element shares the parent's
		// line and stays inline unless ForceAlways is set. A wrap may
		// already have moved it off that line.
		after = e.policy.ForceAlways || e.policy.ForceNewlineAfterStartTag || !e.parentOnLine
	}
	if e.breakPending {
		if err := e.breakLine(); err != nil {
			return err
		}
	}
	_, _ = e.primary.Write(text)
	e.markEnd = e.primary.Len()
	if after && e.policy.ForceNewlineAfterEndTag {
		e.breakPending = true
	}
	return nil
}

func (e *Engine) verbatim(text []byte) error {
	if !e.pending() && e.breakPending {
		if err := e.breakLine(); err != nil {
			return err
		}
	}
	if e.pending() {
		n := e.secondary.Len()
		e.markup = append(e.markup, n, n+len(text))
	}
	_, _ = e.active.Write(text)
	e.markEnd = e.active.Len()
	return nil
}

func (e *Engine) content(text []byte) error {
	if !e.pending() {
		if e.wrapped && e.primary.Len() == 0 && isBlank(text) {
			return nil
		}
		if e.breakPending {
			if isBlank(text) {
				return nil
			}
			if err := e.breakLine(); err != nil {
				return err
			}
		}
	}
	_, _ = e.active.Write(text)
	if e.policy.WrapLongLines && e.column() > e.policy.MaxColumns {
		return e.wrap()
	}
	return nil
}

// newline ends the current line. Source newlines also drop the indentation
// that follows them in the input; wrap breaks keep it.
func (e *Engine) newline(eatIndent bool) error {
	if e.pending() {
		if err := e.resolve(false); err != nil {
			return err
		}
	}
	e.breakPending = false
	if err := e.commit(); err != nil {
		return err
	}
	if eatIndent {
		e.skipBlanks()
	}
	return nil
}

// resolve moves the held tag and the text after it into primary. With force
// set the start-tag newline rules apply around the tag; this is only done
// once the element is known to have children. The held text then starts a
// new line when wrapping, so it is fed through again instead of copied.
func (e *Engine) resolve(force bool) error {
	secMark := e.markEnd
	if (force && e.policy.ForceNewlineBeforeStartTag) || e.breakPending {
		if err := e.breakLine(); err != nil {
			return err
		}
	}
	e.primary.AppendFrom(&e.tag)
	e.tag.Reset()
	e.delta++
	e.markEnd = e.primary.Len()
	e.parentOnLine = true
	e.active = &e.primary
	if force && e.policy.ForceNewlineAfterStartTag {
		e.breakPending = true
	}
	if force && e.policy.WrapLongLines {
		return e.replay()
	}
	e.markup = e.markup[:0]
	text := e.secondary.Bytes()
	if e.breakPending {
		trimmed := trimLeftBlank(text)
		secMark -= len(text) - len(trimmed)
		text = trimmed
		if len(text) == 0 {
			e.secondary.Reset()
			return nil
		}
		if err := e.breakLine(); err != nil {
			return err
		}
	}
	off := e.primary.Len()
	_, _ = e.primary.Write(text)
	e.secondary.Reset()
	if secMark > 0 {
		e.markEnd = off + secMark
	}
	return nil
}

// replay feeds secondary into primary rune by rune, with its markup as
// single pieces, so wrapping sees it exactly as a second pass would.
// Nothing writes to secondary while primary is active.
func (e *Engine) replay() error {
	b := e.secondary.Bytes()
	i := 0
	for k := 0; k <= len(e.markup); k += 2 {
		start, end := len(b), len(b)
		if k < len(e.markup) {
			start, end = e.markup[k], e.markup[k+1]
		}
		for i < start {
			_, size := utf8.DecodeRune(b[i:start])
			if err := e.content(b[i : i+size]); err != nil {
				return err
			}
			i += size
		}
		if start < end {
			if err := e.verbatim(b[start:end]); err != nil {
				return err
			}
			i = end
		}
	}
	e.secondary.Reset()
	e.markup = e.markup[:0]
	return nil
}

// breakLine ends the primary line early. A line holding only blanks is
// dropped instead of being written.
func (e *Engine) breakLine() error {
	e.breakPending = false
	if isBlank(e.primary.Bytes()) {
		e.primary.Reset()
		e.markEnd = 0
		return nil
	}
	return e.commit()
}

// commit writes primary as one indented line.
func (e *Engine) commit() error {
	if err := trimTrailingBlank(&e.primary); err != nil {
		return err
	}
	if e.delta < 0 {
		e.shift(e.delta)
	}
	if e.primary.Len() > 0 {
		e.writeIndent()
	}
	_ = e.primary.WriteByte('\n')
	if err := e.primary.Flush(e.w); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if e.delta > 0 {
		e.shift(e.delta)
	}
	e.delta = 0
	e.markEnd = 0
	e.wrapped = false
	e.parentOnLine = false
	e.lines++
	return nil
}

func (e *Engine) finish() error {
	if e.pending() {
		if err := e.resolve(false); err != nil {
			return err
		}
	}
	e.breakPending = false
	if err := trimTrailingBlank(&e.primary); err != nil {
		return err
	}
	if e.primary.Len() > 0 {
		if e.delta < 0 {
			e.shift(e.delta)
		}
		e.writeIndent()
		if err := e.primary.Flush(e.w); err != nil {
			return fmt.Errorf("write: %w", err)
		}
	}
	e.delta = 0
	if e.level != 0 {
		e.logger.Debug("input ended inside an element", "level", e.level)
	}
	return nil
}

func (e *Engine) shift(d int) {
	e.level += d
	if e.level < 0 {
		e.logger.Warn("end tag without start tag, indent level clamped", "level", e.level)
		e.level = 0
	}
}

func (e *Engine) writeIndent() {
	for i := 0; i < e.level; i++ {
		_, _ = e.w.Write(e.unit)
	}
}

func (e *Engine) skipBlanks() {
	for {
		c, err := e.src.ReadByte()
		if err != nil {
			return
		}
		if !isBlankByte(c) {
			_ = e.src.UnreadByte()
			return
		}
	}
}

// column returns the display column the current line reaches once written.
func (e *Engine) column() int {
	level := e.lineIndent()
	if e.breakPending {
		// primary is about to be committed with the pending delta.
		level = max(e.level+e.delta, 0)
	}
	col := level * e.unitCols
	if !e.breakPending {
		col = e.primaryWidth.advance(col, &e.primary)
	}
	if e.pending() {
		col = e.tagWidth.advance(col, &e.tag)
		col = e.secondaryWidth.advance(col, &e.secondary)
	}
	return col
}

// wrap handles a line that grew past MaxColumns. A held start tag is
// merged into the line as it stands, then the line is broken at blanks
// until it fits.
func (e *Engine) wrap() error {
	if e.pending() {
		if bytes.IndexAny(e.secondary.Bytes()[e.markEnd:], " \t") < 0 {
			// Nothing before here can become a break point later.
			e.markEnd = e.secondary.Len()
			return nil
		}
		if err := e.resolve(false); err != nil {
			return err
		}
	}
	return e.fit()
}

// fit breaks primary until it fits in MaxColumns or no break point is left.
// A single token longer than the line is never split.
func (e *Engine) fit() error {
	for e.column() > e.policy.MaxColumns {
		cut := e.breakPoint()
		if cut < 0 {
			e.markEnd = e.primary.Len()
			return nil
		}
		e.hold.Reset()
		_, _ = e.hold.Write(trimLeftBlank(e.primary.Bytes()[cut:]))
		e.primary.Truncate(cut)
		e.wraps++
		if err := e.newline(false); err != nil {
			return err
		}
		e.primary.AppendFrom(&e.hold)
		e.hold.Reset()
		e.markEnd = 0
		// Blanks that follow the break belong to it.
		e.wrapped = true
	}
	return nil
}

// breakPoint returns the start of the last blank run after markEnd whose
// preceding text fits in MaxColumns, or of the first one if none fits.
// It returns -1 if primary has no blank run preceded by text.
func (e *Engine) breakPoint() int {
	b := e.primary.Bytes()
	col := e.lineIndent() * e.unitCols
	col = advanceColumn(col, b[:e.markEnd])
	seenText := !isBlank(b[:e.markEnd])
	first, best := -1, -1
	for i := e.markEnd; i < len(b); {
		if isBlankByte(b[i]) {
			if seenText && !isBlankByte(b[i-1]) {
				if first < 0 {
					first = i
				}
				if col <= e.policy.MaxColumns {
					best = i
				}
			}
			col = advanceColumn(col, b[i:i+1])
			i++
			continue
		}
		seenText = true
		_, size := utf8.DecodeRune(b[i:])
		col = advanceColumn(col, b[i:i+size])
		i += size
	}
	if best >= 0 {
		return best
	}
	return first
}

func (e *Engine) lineIndent() int {
	level := e.level
	if e.delta < 0 {
		level += e.delta
	}
	if level < 0 {
		return 0
	}
	return level
}

// measure caches the display width of a growing buffer.
type measure struct {
	start int
	epoch uint64
	n     int
	col   int
}

func (m *measure) advance(start int, b *Buffer) int {
	if m.start != start || m.epoch != b.epoch || m.n > b.Len() {
		m.start, m.epoch, m.n, m.col = start, b.epoch, 0, start
	}
	m.col = advanceColumn(m.col, b.Bytes()[m.n:])
	m.n = b.Len()
	return m.col
}

// advanceColumn returns the column reached by writing b from column col.
// Tabs stop every TabColumns columns; an embedded newline restarts at 0.
func advanceColumn(col int, b []byte) int {
	if i := bytes.LastIndexByte(b, '\n'); i >= 0 {
		col = 0
		b = b[i+1:]
	}
	for len(b) > 0 {
		i := bytes.IndexByte(b, '\t')
		if i < 0 {
			return col + ansi.PrintableRuneWidth(string(b))
		}
		col += ansi.PrintableRuneWidth(string(b[:i]))
		col += TabColumns - col%TabColumns
		b = b[i+1:]
	}
	return col
}

func isBlankByte(c byte) bool {
	return c == ' ' || c == '\t'
}

func isBlank(b []byte) bool {
	for _, c := range b {
		if !isBlankByte(c) {
			return false
		}
	}
	return true
}

func trimLeftBlank(b []byte) []byte {
	for len(b) > 0 && isBlankByte(b[0]) {
		b = b[1:]
	}
	return b
}

func trimTrailingBlank(b *Buffer) error {
	for {
		c, ok := b.Last()
		if !ok || !isBlankByte(c) {
			return nil
		}
		if _, err := b.Pop(); err != nil {
			return err
		}
	}
}
