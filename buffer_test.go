package xmlindent

import (
	"bytes"
	"errors"
	"testing"
)

func TestBufferPopUnderflow(t *testing.T) {
	var b Buffer
	if _, err := b.Pop(); !errors.Is(err, ErrUnderflow) {
		t.Fatalf("expected ErrUnderflow, got %v", err)
	}
	_, _ = b.WriteString("ab")
	c, err := b.Pop()
	if err != nil || c != 'b' {
		t.Fatalf("pop = %q, %v", c, err)
	}
	if b.Len() != 1 {
		t.Fatalf("len = %d, want 1", b.Len())
	}
}

func TestBufferAppendFromKeepsSource(t *testing.T) {
	var src, dst Buffer
	_, _ = src.WriteString("<b>")
	_, _ = dst.WriteString("<a>")
	dst.AppendFrom(&src)
	if got := string(dst.Bytes()); got != "<a><b>" {
		t.Fatalf("dst = %q", got)
	}
	if got := string(src.Bytes()); got != "<b>" {
		t.Fatalf("src modified: %q", got)
	}
}

func TestBufferFlushEmpties(t *testing.T) {
	var b Buffer
	_, _ = b.WriteString("line")
	_ = b.WriteByte('\n')
	var out bytes.Buffer
	if err := b.Flush(&out); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if out.String() != "line\n" || b.Len() != 0 {
		t.Fatalf("out = %q, len = %d", out.String(), b.Len())
	}
	if err := b.Flush(&out); err != nil || out.Len() != 5 {
		t.Fatalf("second flush wrote again: %q, %v", out.String(), err)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestBufferFlushErrorStillEmpties(t *testing.T) {
	var b Buffer
	_, _ = b.WriteString("x")
	if err := b.Flush(failingWriter{}); err == nil {
		t.Fatalf("expected write error")
	}
	if b.Len() != 0 {
		t.Fatalf("buffer not emptied after failed flush")
	}
}

func TestBufferTruncateAndEpoch(t *testing.T) {
	var b Buffer
	_, _ = b.WriteString("hello world")
	epoch := b.epoch
	b.Truncate(20)
	if b.epoch != epoch || b.Len() != 11 {
		t.Fatalf("truncate past end changed buffer")
	}
	b.Truncate(5)
	if string(b.Bytes()) != "hello" || b.epoch == epoch {
		t.Fatalf("truncate = %q, epoch %d", b.Bytes(), b.epoch)
	}
	if last, ok := b.Last(); !ok || last != 'o' {
		t.Fatalf("last = %q, %v", last, ok)
	}
	b.Reset()
	if _, ok := b.Last(); ok {
		t.Fatalf("last on empty buffer")
	}
}

func TestBufferReleaseDropsLargeStorage(t *testing.T) {
	var b Buffer
	_, _ = b.Write(make([]byte, 128))
	b.release(64)
	if cap(b.b) != 0 {
		t.Fatalf("expected storage dropped, cap %d", cap(b.b))
	}
	_, _ = b.Write(make([]byte, 16))
	b.release(64)
	if cap(b.b) == 0 || b.Len() != 0 {
		t.Fatalf("expected small storage kept and emptied")
	}
}

func TestTrimTrailingBlank(t *testing.T) {
	var b Buffer
	_, _ = b.WriteString("text \t ")
	if err := trimTrailingBlank(&b); err != nil {
		t.Fatalf("trim: %v", err)
	}
	if string(b.Bytes()) != "text" {
		t.Fatalf("trim = %q", b.Bytes())
	}
	b.Reset()
	_, _ = b.WriteString("  ")
	if err := trimTrailingBlank(&b); err != nil || b.Len() != 0 {
		t.Fatalf("trim blank-only = %q, %v", b.Bytes(), err)
	}
}
