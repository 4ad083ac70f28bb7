package main

import (
	"strings"
	"testing"
)

func TestTranslateFlags_Parsed(t *testing.T) {
	cases := []struct {
		name string
		args []string
	}{
		{name: "root_chunk_budget", args: []string{"--chunk-budget", "500"}},
		{name: "root_provider", args: []string{"--provider", "gemini"}},
		{name: "translate_chunk_budget", args: []string{"translate", "--chunk-budget", "500"}},
		{name: "translate_provider", args: []string{"translate", "--provider", "gemini"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := executeCommand(t, tc.args...)
			if err == nil {
				t.Fatalf("expected command error from missing required args, got nil")
			}
			if strings.Contains(out, "unknown flag") {
				t.Fatalf("expected flags to be parsed, got output: %s", out)
			}
		})
	}
}

func TestTranslate_RejectsUnsupportedExtension(t *testing.T) {
	_, err := executeCommand(t, "translate", "main.docx", "out")
	if err == nil {
		t.Fatal("expected error for unsupported extension")
	}
	if !strings.Contains(err.Error(), "unsupported main source extension") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateMainSourcePath(t *testing.T) {
	for _, ok := range []string{"a.tex", "b.ltx", "c.LATEX"} {
		if err := validateMainSourcePath(ok); err != nil {
			t.Errorf("validateMainSourcePath(%q) = %v", ok, err)
		}
	}
	for _, bad := range []string{"noext", "d.pdf"} {
		if err := validateMainSourcePath(bad); err == nil {
			t.Errorf("validateMainSourcePath(%q): expected error", bad)
		}
	}
}
