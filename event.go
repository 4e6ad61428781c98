package xmlindent

import "io"

// EventKind classifies a lexical unit of the input.
type EventKind uint8

const (
	// EventContent is one character of character data.
	EventContent EventKind = iota
	// EventNewline is one line terminator: LF, CR, CRLF or NEL.
	EventNewline
	// EventXMLDecl is an XML declaration, <?xml ...?>.
	EventXMLDecl
	// EventDoctype is a DOCTYPE or other <!...> declaration.
	EventDoctype
	// EventCDATA is a CDATA section.
	EventCDATA
	// EventComment is a comment, <!-- ... -->.
	EventComment
	// EventProcInst is a processing instruction other than the XML declaration.
	EventProcInst
	// EventStartTag is a start tag, <name ...>.
	EventStartTag
	// EventEndTag is an end tag, </name>.
	EventEndTag
	// EventEmptyTag is an empty-element tag, <name .../>.
	EventEmptyTag
)

var eventKindNames = [...]string{
	EventContent:  "content",
	EventNewline:  "newline",
	EventXMLDecl:  "xml-decl",
	EventDoctype:  "doctype",
	EventCDATA:    "cdata",
	EventComment:  "comment",
	EventProcInst: "proc-inst",
	EventStartTag: "start-tag",
	EventEndTag:   "end-tag",
	EventEmptyTag: "empty-tag",
}

func (k EventKind) String() string {
	if int(k) < len(eventKindNames) {
		return eventKindNames[k]
	}
	return "unknown"
}

// Event is one lexical unit. Text holds the literal source bytes and is only
// valid until the next call to Next.
type Event struct {
	Kind EventKind
	Text []byte
}

// EventSource produces events in document order and exposes the raw input
// for one-byte lookahead.
type EventSource interface {
	// Next returns the next event, or io.EOF when the input is exhausted.
	Next() (Event, error)
	io.ByteScanner
}
