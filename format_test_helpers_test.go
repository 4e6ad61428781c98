package xmlindent

import (
	"os"
	"strings"
	"testing"
	"unicode"
)

// sampleDocuments are inputs whose formatted form is stable under every
// policy the tests use.
var sampleDocuments = []string{
	"<a><b>x</b></a>",
	"<?xml version=\"1.0\"?>\n<root><item id=\"1\">one</item>\n<item id=\"2\"><name>two</name></item></root>",
	"<p>aaa bbb ccc ddd eee fff ggg hhh</p>",
	"<a>\n\n<b/>\n</a>",
	"<r><a>x</a><b>y</b></r>",
	"<r><a/><b/></r>",
	"<r><!-- a -- b --><c>text here</c></r>",
	"<doc><p>The quick brown fox jumps over the lazy dog.</p></doc>",
	"<a>x\ny</a>",
	"<a><b>aaaaaaaaaaaaaaaaaa</b>  tail</a>",
	"<p>aaa bbb ccc ddddd  eee</p>",
	"<p>aaa bbb ccc ddd  eee   fff ggg    hhh iii</p>",
	"<r><a>some words here<b>x</b> tail</a></r>",
	"<d><b><a>yy  yy<c/>yylongerword word</a></b></d>",
}

func formatString(t *testing.T, src string, policy Policy) string {
	t.Helper()
	out, err := FormatBytes([]byte(src), policy)
	if err != nil {
		t.Fatalf("format %q: %v", src, err)
	}
	return string(out)
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func readCatalog(tb testing.TB) []byte {
	tb.Helper()
	data, err := os.ReadFile("testdata/catalog.xml")
	if err != nil {
		tb.Fatalf("read catalog.xml: %v", err)
	}
	return data
}
