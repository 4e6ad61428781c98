package xmlindent

import (
	"bufio"
	"bytes"
	"io"
)

const scannerBufferSize = 4096

var (
	commentOpen  = []byte("<!--")
	commentClose = []byte("-->")
	cdataOpen    = []byte("<![CDATA[")
	cdataClose   = []byte("]]>")
	piClose      = []byte("?>")
)

// Scanner splits an XML byte stream into events. It does not validate.
type Scanner struct {
	r   *bufio.Reader
	buf []byte
	err error
}

// NewScanner returns a Scanner reading from r.
func NewScanner(r io.Reader) *Scanner {
	s := &Scanner{}
	s.Reset(r)
	return s
}

// Reset discards all state and reads from r.
func (s *Scanner) Reset(r io.Reader) {
	if s.r == nil {
		s.r = bufio.NewReaderSize(r, scannerBufferSize)
	} else {
		s.r.Reset(r)
	}
	s.buf = s.buf[:0]
	s.err = nil
}

// ReadByte returns the next raw input byte.
func (s *Scanner) ReadByte() (byte, error) {
	return s.r.ReadByte()
}

// UnreadByte pushes back the byte returned by the last ReadByte.
func (s *Scanner) UnreadByte() error {
	return s.r.UnreadByte()
}

// Next returns the next event. The returned Text is reused by the following call.
func (s *Scanner) Next() (Event, error) {
	if s.err != nil {
		return Event{}, s.err
	}
	s.buf = s.buf[:0]
	c, err := s.r.ReadByte()
	if err != nil {
		return s.fail(err)
	}
	switch c {
	case '\n':
		return s.emit(EventNewline, c)
	case '\r':
		s.buf = append(s.buf, c)
		if next, err := s.r.ReadByte(); err == nil {
			if next == '\n' {
				s.buf = append(s.buf, next)
			} else {
				_ = s.r.UnreadByte()
			}
		}
		return Event{Kind: EventNewline, Text: s.buf}, nil
	case '<':
		return s.markup()
	}
	return s.content(c)
}

func (s *Scanner) fail(err error) (Event, error) {
	s.err = err
	return Event{}, err
}

func (s *Scanner) emit(kind EventKind, c byte) (Event, error) {
	s.buf = append(s.buf, c)
	return Event{Kind: kind, Text: s.buf}, nil
}

// content returns one UTF-8 character. NEL (U+0085) is a line terminator.
func (s *Scanner) content(c byte) (Event, error) {
	s.buf = append(s.buf, c)
	n := utf8SeqLen(c)
	for i := 1; i < n; i++ {
		next, err := s.r.ReadByte()
		if err != nil {
			break
		}
		if next&0xC0 != 0x80 {
			_ = s.r.UnreadByte()
			break
		}
		s.buf = append(s.buf, next)
	}
	if len(s.buf) == 2 && s.buf[0] == 0xC2 && s.buf[1] == 0x85 {
		return Event{Kind: EventNewline, Text: s.buf}, nil
	}
	return Event{Kind: EventContent, Text: s.buf}, nil
}

func (s *Scanner) markup() (Event, error) {
	s.buf = append(s.buf, '<')
	c, err := s.r.ReadByte()
	if err != nil {
		// A lone '<' at EOF is passed through as content.
		return Event{Kind: EventContent, Text: s.buf}, nil
	}
	switch {
	case c == '!':
		s.buf = append(s.buf, c)
		return s.declaration()
	case c == '?':
		s.buf = append(s.buf, c)
		return s.procInst()
	case c == '/':
		s.buf = append(s.buf, c)
		s.readTag()
		return Event{Kind: EventEndTag, Text: s.buf}, nil
	case isNameStart(c):
		s.buf = append(s.buf, c)
		s.readTag()
		if bytes.HasSuffix(s.buf, []byte("/>")) {
			return Event{Kind: EventEmptyTag, Text: s.buf}, nil
		}
		return Event{Kind: EventStartTag, Text: s.buf}, nil
	}
	_ = s.r.UnreadByte()
	return Event{Kind: EventContent, Text: s.buf}, nil
}

// readTag reads through the closing '>' of a tag. Quoted attribute values may
// contain '>'.
func (s *Scanner) readTag() {
	var quote byte
	for {
		c, err := s.r.ReadByte()
		if err != nil {
			return
		}
		s.buf = append(s.buf, c)
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '>':
			return
		}
	}
}

func (s *Scanner) declaration() (Event, error) {
	// After "<!" decide between comment, CDATA and other declarations.
	for len(s.buf) < len(cdataOpen) {
		if !bytes.HasPrefix(commentOpen, s.buf) && !bytes.HasPrefix(cdataOpen, s.buf) {
			break
		}
		if bytes.Equal(s.buf, commentOpen) {
			break
		}
		c, err := s.r.ReadByte()
		if err != nil {
			return Event{Kind: EventDoctype, Text: s.buf}, nil
		}
		s.buf = append(s.buf, c)
	}
	switch {
	case bytes.Equal(s.buf, commentOpen):
		s.readUntil(commentClose, len(s.buf))
		return Event{Kind: EventComment, Text: s.buf}, nil
	case bytes.Equal(s.buf, cdataOpen):
		s.readUntil(cdataClose, len(s.buf))
		return Event{Kind: EventCDATA, Text: s.buf}, nil
	}
	s.readDirective()
	return Event{Kind: EventDoctype, Text: s.buf}, nil
}

// readUntil reads until s.buf ends with term, not counting bytes before from.
func (s *Scanner) readUntil(term []byte, from int) {
	for {
		if len(s.buf)-from >= len(term) && bytes.HasSuffix(s.buf, term) {
			return
		}
		c, err := s.r.ReadByte()
		if err != nil {
			return
		}
		s.buf = append(s.buf, c)
	}
}

// readDirective reads through the '>' that closes a <!...> declaration,
// skipping quoted literals and a bracketed internal subset.
func (s *Scanner) readDirective() {
	var quote byte
	depth := 0
	if last := s.buf[len(s.buf)-1]; last == '>' {
		return
	}
	for {
		c, err := s.r.ReadByte()
		if err != nil {
			return
		}
		s.buf = append(s.buf, c)
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '[':
			depth++
		case c == ']':
			if depth > 0 {
				depth--
			}
		case c == '>' && depth == 0:
			return
		}
	}
}

func (s *Scanner) procInst() (Event, error) {
	s.readUntil(piClose, 2)
	if isXMLDecl(s.buf) {
		return Event{Kind: EventXMLDecl, Text: s.buf}, nil
	}
	return Event{Kind: EventProcInst, Text: s.buf}, nil
}

func isXMLDecl(b []byte) bool {
	if len(b) < 6 || !bytes.Equal(b[:5], []byte("<?xml")) {
		return false
	}
	return isSpace(b[5]) || b[5] == '?'
}

func isNameStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_' || c == ':' || c >= 0x80
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func utf8SeqLen(c byte) int {
	switch {
	case c < 0x80:
		return 1
	case c&0xE0 == 0xC0:
		return 2
	case c&0xF0 == 0xE0:
		return 3
	case c&0xF8 == 0xF0:
		return 4
	}
	return 1
}
