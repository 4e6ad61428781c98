package xmlindent

import (
	"bytes"
	"fmt"
	"io"
	"sync"
)

var enginePool = sync.Pool{
	New: func() any {
		return &Engine{}
	},
}

var scannerPool = sync.Pool{
	New: func() any {
		return &Scanner{}
	},
}

// FormatRequest configures Format.
type FormatRequest struct {
	Reader  io.Reader
	Writer  io.Writer
	Policy  Policy
	Options []Option
}

// Format reindents the XML read from Reader onto Writer. Every call is an
// independent run; no state is shared between calls.
func Format(req FormatRequest) error {
	if req.Reader == nil {
		return fmt.Errorf("format: reader is nil")
	}
	if req.Writer == nil {
		return fmt.Errorf("format: writer is nil")
	}
	if err := req.Policy.Validate(); err != nil {
		return fmt.Errorf("format: %w", err)
	}
	scanner := scannerPool.Get().(*Scanner)
	scanner.Reset(req.Reader)
	engine := enginePool.Get().(*Engine)
	engine.reset(scanner, req.Writer, req.Policy, req.Options)
	err := engine.Run()
	if err != nil {
		err = fmt.Errorf("format: %w", err)
	}
	engine.reset(nil, io.Discard, req.Policy, nil)
	enginePool.Put(engine)
	scanner.Reset(nil)
	scannerPool.Put(scanner)
	return err
}

// FormatBytes reindents src and returns the result.
func FormatBytes(src []byte, policy Policy, opts ...Option) ([]byte, error) {
	var out bytes.Buffer
	out.Grow(len(src) + len(src)/4)
	err := Format(FormatRequest{
		Reader:  bytes.NewReader(src),
		Writer:  &out,
		Policy:  policy,
		Options: opts,
	})
	if err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
