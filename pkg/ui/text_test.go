package ui

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestFormatterWithColor(t *testing.T) {
	os.Unsetenv("NO_COLOR")
	color.NoColor = false
	defer func() { color.NoColor = true }()

	result := Code.Sprint("calcvault serve")
	if strings.Contains(result, "`") {
		t.Errorf("Code.Sprint should not contain backticks when color is enabled, got: %s", result)
	}
	if !strings.Contains(result, "\x1b[") {
		t.Errorf("Code.Sprint should contain ANSI escape codes, got: %q", result)
	}
}

func TestFormatterWithNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	tests := []struct {
		name      string
		formatter Formatter
		input     string
		want      string
	}{
		{"Code adds backticks", Code, "calcvault serve", "`calcvault serve`"},
		{"Path has no decoration", Path, "hidden/u1/img_1.png", "hidden/u1/img_1.png"},
		{"Success has no decoration", Success, "✓", "✓"},
		{"Error has no decoration", Error, "✗", "✗"},
		{"Highlight adds quotes", Highlight, "alice", "'alice'"},
		{"Muted adds parentheses", Muted, "default", "(default)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.formatter.Sprint(tt.input); got != tt.want {
				t.Errorf("Sprint(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}

	if got := Highlight.Sprintf("%d images", 3); got != "'3 images'" {
		t.Errorf("Sprintf = %q", got)
	}
}

func TestEnsureNewline(t *testing.T) {
	if EnsureNewline("") != "\n" || EnsureNewline("a") != "a\n" || EnsureNewline("a\n") != "a\n" {
		t.Error("EnsureNewline did not normalize the trailing newline")
	}
}

func TestConsoleVerbosity(t *testing.T) {
	color.NoColor = true
	var out, errOut bytes.Buffer

	quiet := Console{Out: &out, Err: &errOut}
	quiet.Infof("hidden")
	quiet.Debugf("hidden")
	quiet.Warnf("shown %d", 1)
	if out.Len() != 0 {
		t.Errorf("quiet console wrote %q", out.String())
	}
	if errOut.String() != "[warn] shown 1\n" {
		t.Errorf("warn output = %q", errOut.String())
	}

	out.Reset()
	verbose := Console{Verbose: true, Out: &out, Err: &errOut}
	verbose.Infof("info")
	verbose.Debugf("debug")
	if out.String() != "[info] info\n" {
		t.Errorf("verbose output = %q", out.String())
	}

	errOut.Reset()
	debug := Console{Debug: true, Out: &out, Err: &errOut}
	err := debug.ErrorfAndReturn("open: %w", os.ErrNotExist)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("wrapped error lost: %v", err)
	}
	if !strings.Contains(errOut.String(), "[error] open:") {
		t.Errorf("error output = %q", errOut.String())
	}
}
