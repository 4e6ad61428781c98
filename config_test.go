package xmlindent

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDecodePolicyOverridesOnlyGivenKeys(t *testing.T) {
	src := `
indent_char = "tab"
force_newline_after_end_tag = false
max_columns = 100
`
	p, err := DecodePolicy(strings.NewReader(src), DefaultPolicy())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.IndentChar != '\t' {
		t.Fatalf("indent char = %q", p.IndentChar)
	}
	if p.ForceNewlineAfterEndTag {
		t.Fatalf("expected after-end rule off")
	}
	if !p.ForceNewlineBeforeStartTag || p.IndentWidth != DefaultIndentWidth {
		t.Fatalf("unspecified keys changed: %+v", p)
	}
	if !p.WrapLongLines || p.MaxColumns != 100 {
		t.Fatalf("expected wrapping at 100: %+v", p)
	}
}

func TestDecodePolicyExplicitWrapWins(t *testing.T) {
	src := "max_columns = 80\nwrap_long_lines = false\n"
	p, err := DecodePolicy(strings.NewReader(src), DefaultPolicy())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.WrapLongLines || p.MaxColumns != 80 {
		t.Fatalf("unexpected wrap settings: %+v", p)
	}
}

func TestDecodePolicyErrors(t *testing.T) {
	tests := map[string]string{
		"unknown key":   "indent = 2\n",
		"bad char":      "indent_char = \"dash\"\n",
		"bad type":      "indent_width = \"four\"\n",
		"wrap no limit": "wrap_long_lines = true\n",
		"syntax":        "indent_width = \n",
	}
	for name, src := range tests {
		if _, err := DecodePolicy(strings.NewReader(src), DefaultPolicy()); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	_, err := DecodePolicy(strings.NewReader("indent_char = \"x\"\n"), DefaultPolicy())
	if !errors.Is(err, ErrInvalidPolicy) {
		t.Fatalf("expected ErrInvalidPolicy, got %v", err)
	}
}

func TestLoadPolicyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	if err := os.WriteFile(path, []byte("indent_width = 2\nforce_always = true\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	p, err := LoadPolicyFile(path, DefaultPolicy())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p.IndentWidth != 2 || !p.ForceAlways {
		t.Fatalf("unexpected policy: %+v", p)
	}
	if _, err := LoadPolicyFile(filepath.Join(dir, "missing.toml"), DefaultPolicy()); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoadDefaultPolicyWithoutFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	base := DefaultPolicy()
	base.IndentWidth = 3
	p, path, err := LoadDefaultPolicy(base)
	if err != nil {
		t.Fatalf("load default: %v", err)
	}
	if path != "" || p != base {
		t.Fatalf("expected base policy without a file, got %+v from %q", p, path)
	}
}
