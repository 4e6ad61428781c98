// Package xmlindent reindents XML documents.
//
// The formatter is streaming: it reads an io.Reader one lexical unit at a
// time and holds back at most one start tag and the text after it, until the
// next tag or newline shows whether the element has children. Source
// indentation is discarded and recomputed; all markup and non-blank text is
// copied through unchanged. Optionally, long lines are wrapped at blanks.
//
// It is not a parser: documents are not validated and malformed input is
// formatted on a best-effort basis.
//
// Example:
//
//	policy := xmlindent.DefaultPolicy()
//	policy.IndentWidth = 2
//	err := xmlindent.Format(xmlindent.FormatRequest{
//		Reader: strings.NewReader("<a><b>x</b></a>"),
//		Writer: os.Stdout,
//		Policy: policy,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Output:
//
//	<a>
//	  <b>x</b>
//	</a>
package xmlindent
