package xmlindent

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// HTTPFormatRequest configures HTTPFormat.
type HTTPFormatRequest struct {
	URL     string
	Client  *http.Client
	Writer  io.Writer
	Policy  Policy
	Options []Option
}

// HTTPFormat fetches a document over HTTP(S) and streams it reindented to
// Writer. The start of the body is checked with ValidateInput first; a
// binary response fails with ErrBinaryInput before anything is written.
func HTTPFormat(ctx context.Context, req HTTPFormatRequest) error {
	if req.URL == "" {
		return fmt.Errorf("format http: URL is required")
	}
	if req.Writer == nil {
		return fmt.Errorf("format http: Writer is nil")
	}
	if err := req.Policy.Validate(); err != nil {
		return fmt.Errorf("format http: %w", err)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	logger := newEngineConfig(req.Options).logger
	client := req.Client
	if client == nil {
		client = http.DefaultClient
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return fmt.Errorf("format http: build request: %w", err)
	}
	if httpReq.URL.Scheme != "http" && httpReq.URL.Scheme != "https" {
		return fmt.Errorf("format http: unsupported scheme %q", httpReq.URL.Scheme)
	}
	httpReq.Header.Set("Accept", "application/xml, text/xml;q=0.9, */*;q=0.1")
	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("format http: request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("format http: status %s", resp.Status)
	}
	logger.Debug("fetched", "url", httpReq.URL.Redacted(), "content_type", resp.Header.Get("Content-Type"), "length", resp.ContentLength)
	body := bufio.NewReaderSize(resp.Body, SniffSize)
	head, err := body.Peek(SniffSize)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return fmt.Errorf("format http: read: %w", err)
	}
	if err := ValidateInput(head); err != nil {
		return fmt.Errorf("format http: %w", err)
	}
	return Format(FormatRequest{
		Reader:  body,
		Writer:  req.Writer,
		Policy:  req.Policy,
		Options: req.Options,
	})
}
