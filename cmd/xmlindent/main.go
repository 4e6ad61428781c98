package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
	"pkt.systems/version"
	"pkt.systems/xmlindent"
)

const (
	defaultColumns = 80
	backupSuffix   = "~"
)

func init() {
	version.SetDefaultModule("pkt.systems/xmlindent")
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type options struct {
	outPath      string
	indent       int
	tabs         bool
	maxColumns   int
	wrapTerminal bool
	noNewline    []string
	forceAlways  bool
	overwrite    bool
	jobs         int
	configPath   string
	debug        bool
	showVersion  bool
	showHelp     bool
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var opts options
	flags := pflag.NewFlagSet("xmlindent", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVarP(&opts.outPath, "output", "o", "", "Output file instead of stdout")
	flags.IntVarP(&opts.indent, "indent", "i", xmlindent.DefaultIndentWidth, "Indent width in spaces")
	flags.BoolVarP(&opts.tabs, "tabs", "t", false, "Indent with tabs")
	flags.IntVarP(&opts.maxColumns, "max-columns", "l", 0, "Wrap lines longer than this many columns (0 disables)")
	flags.BoolVar(&opts.wrapTerminal, "wrap-terminal", false, "Wrap at the terminal width")
	flags.StringSliceVarP(&opts.noNewline, "no-newline", "n", nil, "Do not force a newline: as|ae|bs|be (after/before start/end tag)")
	flags.BoolVarP(&opts.forceAlways, "force-always", "f", false, "Force newlines around elements without child elements too")
	flags.BoolVarP(&opts.overwrite, "overwrite", "w", false, "Rewrite input files in place, keeping a "+backupSuffix+" backup")
	flags.IntVarP(&opts.jobs, "jobs", "j", 0, "Files formatted concurrently with --overwrite (0 uses GOMAXPROCS)")
	flags.StringVar(&opts.configPath, "config", "", fmt.Sprintf("Policy file (default %s)", xmlindent.DefaultConfigPath()))
	flags.BoolVar(&opts.debug, "debug", false, "Log debug output to stderr")
	flags.BoolVarP(&opts.showVersion, "version", "v", false, "Print version and exit")
	flags.BoolVarP(&opts.showHelp, "help", "h", false, "Print this help and exit")
	flags.SetInterspersed(true)
	flags.Usage = func() {
		fmt.Fprintln(stderr, version.Module(), version.Current())
		fmt.Fprintf(stderr, "Usage: xmlindent [flags] [inputs...]\n")
		fmt.Fprintln(stderr, "\nIf no input is provided, XML is read from stdin.")
		fmt.Fprintln(stderr, "\nFlags:")
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		return 2
	}
	if opts.showHelp {
		flags.Usage()
		return 0
	}
	if opts.showVersion {
		fmt.Fprintln(stdout, version.Module(), version.Current())
		return 0
	}

	logger := log.NewWithOptions(stderr, log.Options{Prefix: "xmlindent"})
	if opts.debug {
		logger.SetLevel(log.DebugLevel)
	}

	policy, err := resolvePolicy(flags, opts, logger)
	if err != nil {
		logger.Error("invalid policy", "err", err)
		return 2
	}

	inputs := flags.Args()
	if opts.overwrite {
		if len(inputs) == 0 {
			logger.Error("--overwrite needs input files")
			return 2
		}
		if opts.outPath != "" {
			logger.Error("--overwrite cannot be combined with --output")
			return 2
		}
		if err := overwriteAll(context.Background(), inputs, policy, opts.jobs, logger); err != nil {
			logger.Error("overwrite", "err", err)
			return 1
		}
		return 0
	}

	writer, closeOut, err := resolveOutput(opts.outPath, stdout)
	if err != nil {
		logger.Error("open output", "path", opts.outPath, "err", err)
		return 1
	}
	if closeOut != nil {
		defer func() { _ = closeOut.Close() }()
	}
	if err := formatInputs(inputs, stdin, writer, policy, logger); err != nil {
		logger.Error("format", "err", err)
		return 1
	}
	return 0
}

// resolvePolicy layers defaults, the policy file and explicit flags.
func resolvePolicy(flags *pflag.FlagSet, opts options, logger *log.Logger) (xmlindent.Policy, error) {
	policy := xmlindent.DefaultPolicy()
	var err error
	if opts.configPath != "" {
		policy, err = xmlindent.LoadPolicyFile(normalizePath(opts.configPath), policy)
		if err != nil {
			return policy, err
		}
	} else {
		var path string
		policy, path, err = xmlindent.LoadDefaultPolicy(policy)
		if err != nil {
			return policy, err
		}
		if path != "" {
			logger.Debug("loaded policy", "path", path)
		}
	}
	if flags.Changed("indent") {
		policy.IndentWidth = opts.indent
	}
	if flags.Changed("tabs") {
		if opts.tabs {
			policy.IndentChar = '\t'
		} else {
			policy.IndentChar = ' '
		}
	}
	if flags.Changed("max-columns") {
		policy.SetMaxColumns(opts.maxColumns)
	}
	if opts.wrapTerminal {
		policy.SetMaxColumns(terminalWidth(defaultColumns))
	}
	for _, rule := range opts.noNewline {
		if err := policy.DisableRule(rule); err != nil {
			return policy, err
		}
	}
	if flags.Changed("force-always") {
		policy.ForceAlways = opts.forceAlways
	}
	return policy, policy.Validate()
}

func terminalWidth(fallback int) int {
	fd := int(os.Stdout.Fd())
	if term.IsTerminal(fd) {
		if w, _, err := term.GetSize(fd); err == nil && w > 0 {
			return w
		}
	}
	if value := os.Getenv("COLUMNS"); value != "" {
		if w, err := strconvAtoi(value); err == nil && w > 0 {
			return w
		}
	}
	return fallback
}

// formatInputs formats each input as its own document, in order. The first
// input that cannot be opened stops processing.
func formatInputs(args []string, stdin io.Reader, w io.Writer, policy xmlindent.Policy, logger *log.Logger) error {
	if len(args) == 0 {
		return xmlindent.Format(xmlindent.FormatRequest{
			Reader:  stdin,
			Writer:  w,
			Policy:  policy,
			Options: []xmlindent.Option{xmlindent.WithLogger(logger.With("input", "-"))},
		})
	}
	for _, raw := range args {
		opts := []xmlindent.Option{xmlindent.WithLogger(logger.With("input", raw))}
		if isHTTPURL(raw) {
			err := xmlindent.HTTPFormat(context.Background(), xmlindent.HTTPFormatRequest{
				URL:     strings.TrimSpace(raw),
				Writer:  w,
				Policy:  policy,
				Options: opts,
			})
			if err != nil {
				return fmt.Errorf("%s: %w", raw, err)
			}
			continue
		}
		src, err := makeInputSource(raw)
		if err != nil {
			return err
		}
		reader, closer, err := src.open()
		if err != nil {
			return fmt.Errorf("open %s: %w", raw, err)
		}
		err = xmlindent.Format(xmlindent.FormatRequest{
			Reader:  reader,
			Writer:  w,
			Policy:  policy,
			Options: opts,
		})
		if closer != nil {
			_ = closer.Close()
		}
		if err != nil {
			return fmt.Errorf("%s: %w", raw, err)
		}
	}
	return nil
}

// overwriteAll rewrites every file in place, up to jobs at a time.
func overwriteAll(ctx context.Context, paths []string, policy xmlindent.Policy, jobs int, logger *log.Logger) error {
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	paths = uniqueFiles(paths, logger)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(paths)))
	for _, path := range paths {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			if err := overwriteFile(path, policy, logger.With("input", path)); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// uniqueFiles drops paths naming a file that an earlier path already names.
// Overwriting one file twice would replace its backup with formatted output.
func uniqueFiles(paths []string, logger *log.Logger) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, path := range paths {
		key := normalizePath(path)
		if resolved, err := filepath.EvalSymlinks(key); err == nil {
			key = resolved
		}
		if _, ok := seen[key]; ok {
			logger.Warn("skipping duplicate input", "input", path, "file", key)
			continue
		}
		seen[key] = struct{}{}
		out = append(out, path)
	}
	return out
}

// overwriteFile moves path to its backup name and writes the formatted
// document under the original name with the original permissions.
func overwriteFile(path string, policy xmlindent.Policy, logger *log.Logger) error {
	if u, err := url.Parse(path); err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		return fmt.Errorf("cannot overwrite %s input", u.Scheme)
	}
	clean := normalizePath(path)
	info, err := os.Stat(clean)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("is a directory")
	}
	if err := sniffFile(clean); err != nil {
		return err
	}
	backup := clean + backupSuffix
	if err := os.Rename(clean, backup); err != nil {
		return fmt.Errorf("backup: %w", err)
	}
	in, err := os.Open(backup)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()
	out, err := os.OpenFile(clean, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	err = xmlindent.Format(xmlindent.FormatRequest{
		Reader:  in,
		Writer:  out,
		Policy:  policy,
		Options: []xmlindent.Option{xmlindent.WithLogger(logger)},
	})
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	logger.Debug("rewrote", "backup", backup)
	return nil
}

func sniffFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	head := make([]byte, xmlindent.SniffSize)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return err
	}
	return xmlindent.ValidateInput(head[:n])
}

type inputSource struct {
	open func() (io.Reader, io.Closer, error)
}

func makeInputSource(raw string) (inputSource, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return inputSource{}, fmt.Errorf("empty input argument")
	}
	if raw == "-" {
		return inputSource{open: func() (io.Reader, io.Closer, error) {
			return os.Stdin, nil, nil
		}}, nil
	}
	u, err := url.Parse(raw)
	if err == nil && u.Scheme != "" {
		switch strings.ToLower(u.Scheme) {
		case "file":
			path := u.Path
			if path == "" {
				path = u.Host
			}
			if unescaped, err := url.PathUnescape(path); err == nil {
				path = unescaped
			}
			return inputSource{open: func() (io.Reader, io.Closer, error) {
				return openFile(path)
			}}, nil
		}
	}
	return inputSource{open: func() (io.Reader, io.Closer, error) {
		return openFile(raw)
	}}, nil
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func openFile(path string) (io.Reader, io.Closer, error) {
	clean := normalizePath(path)
	f, err := os.Open(clean)
	if err != nil {
		return nil, nil, err
	}
	return f, f, nil
}

func resolveOutput(path string, stdout io.Writer) (io.Writer, io.Closer, error) {
	if strings.TrimSpace(path) == "" || path == "-" {
		return stdout, nil, nil
	}
	clean := normalizePath(path)
	dir := filepath.Dir(clean)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, err
		}
	}
	f, err := os.Create(clean)
	if err != nil {
		return nil, nil, err
	}
	return f, f, nil
}

func normalizePath(path string) string {
	if strings.HasPrefix(path, "~/") || path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			if path == "~" {
				path = home
			} else {
				path = filepath.Join(home, path[2:])
			}
		}
	}
	abs, err := filepath.Abs(path)
	if err == nil {
		return abs
	}
	return path
}

func strconvAtoi(value string) (int, error) {
	var n int
	for i := 0; i < len(value); i++ {
		if value[i] < '0' || value[i] > '9' {
			return 0, fmt.Errorf("invalid int")
		}
		n = n*10 + int(value[i]-'0')
	}
	return n, nil
}
