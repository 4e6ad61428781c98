package xmlindent

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/BurntSushi/toml"
	gap "github.com/muesli/go-app-paths"
)

// ConfigFileName is the name of the per-user policy file.
const ConfigFileName = "xmlindent.toml"

type policyFile struct {
	IndentChar                 string `toml:"indent_char"`
	IndentWidth                int    `toml:"indent_width"`
	ForceNewlineBeforeStartTag bool   `toml:"force_newline_before_start_tag"`
	ForceNewlineAfterStartTag  bool   `toml:"force_newline_after_start_tag"`
	ForceNewlineBeforeEndTag   bool   `toml:"force_newline_before_end_tag"`
	ForceNewlineAfterEndTag    bool   `toml:"force_newline_after_end_tag"`
	ForceAlways                bool   `toml:"force_always"`
	WrapLongLines              bool   `toml:"wrap_long_lines"`
	MaxColumns                 int    `toml:"max_columns"`
}

// DecodePolicy reads TOML from r on top of base. Keys absent from the
// document keep the value they have in base.
func DecodePolicy(r io.Reader, base Policy) (Policy, error) {
	var raw policyFile
	meta, err := toml.NewDecoder(r).Decode(&raw)
	if err != nil {
		return base, fmt.Errorf("decode policy: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return base, fmt.Errorf("decode policy: unknown key %q", undecoded[0].String())
	}
	return applyPolicyFile(meta, raw, base)
}

// LoadPolicyFile reads the TOML policy at path on top of base.
func LoadPolicyFile(path string, base Policy) (Policy, error) {
	var raw policyFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return base, fmt.Errorf("%s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return base, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}
	p, err := applyPolicyFile(meta, raw, base)
	if err != nil {
		return base, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// LoadDefaultPolicy loads the per-user policy file if one exists, otherwise it
// returns base unchanged. The returned path is empty when no file was read.
func LoadDefaultPolicy(base Policy) (Policy, string, error) {
	scope := gap.NewScope(gap.User, "xmlindent")
	paths, err := scope.LookupConfig(ConfigFileName)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return base, "", nil
		}
		return base, "", fmt.Errorf("lookup config: %w", err)
	}
	if len(paths) == 0 {
		return base, "", nil
	}
	p, err := LoadPolicyFile(paths[0], base)
	return p, paths[0], err
}

// DefaultConfigPath returns where the per-user policy file is expected.
func DefaultConfigPath() string {
	path, _ := gap.NewScope(gap.User, "xmlindent").ConfigPath(ConfigFileName)
	return path
}

func applyPolicyFile(meta toml.MetaData, raw policyFile, p Policy) (Policy, error) {
	if meta.IsDefined("indent_char") {
		switch strings.ToLower(strings.TrimSpace(raw.IndentChar)) {
		case "space", " ":
			p.IndentChar = ' '
		case "tab", "\t":
			p.IndentChar = '\t'
		default:
			return p, fmt.Errorf("%w: indent_char %q (expected space|tab)", ErrInvalidPolicy, raw.IndentChar)
		}
	}
	if meta.IsDefined("indent_width") {
		p.IndentWidth = raw.IndentWidth
	}
	if meta.IsDefined("force_newline_before_start_tag") {
		p.ForceNewlineBeforeStartTag = raw.ForceNewlineBeforeStartTag
	}
	if meta.IsDefined("force_newline_after_start_tag") {
		p.ForceNewlineAfterStartTag = raw.ForceNewlineAfterStartTag
	}
	if meta.IsDefined("force_newline_before_end_tag") {
		p.ForceNewlineBeforeEndTag = raw.ForceNewlineBeforeEndTag
	}
	if meta.IsDefined("force_newline_after_end_tag") {
		p.ForceNewlineAfterEndTag = raw.ForceNewlineAfterEndTag
	}
	if meta.IsDefined("force_always") {
		p.ForceAlways = raw.ForceAlways
	}
	if meta.IsDefined("max_columns") {
		p.MaxColumns = raw.MaxColumns
		if !meta.IsDefined("wrap_long_lines") {
			p.WrapLongLines = raw.MaxColumns > 0
		}
	}
	if meta.IsDefined("wrap_long_lines") {
		p.WrapLongLines = raw.WrapLongLines
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}
