package content

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeScript creates a stand-in generator that ignores its flags and prints
// the given text.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	out := filepath.Join(dir, "script.md")
	if err := os.WriteFile(out, []byte(body), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	gen := filepath.Join(dir, "gen.sh")
	if err := os.WriteFile(gen, []byte("#!/bin/sh\ncat "+out+"\n"), 0o755); err != nil {
		t.Fatalf("write generator: %v", err)
	}
	return "sh " + gen
}

func TestCommandGeneratorRequiresCommand(t *testing.T) {
	if _, err := NewCommandGenerator("  "); err == nil {
		t.Error("expected error for an empty command")
	}
}

func TestCommandGeneratorRunsCommand(t *testing.T) {
	gen, err := NewCommandGenerator(writeScript(t, sampleScript))
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}

	out, err := gen.Generate(context.Background(), Brief{Title: "Build caching", Tags: []string{"go"}})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(out, "Title:") {
		t.Errorf("output missing script content: %q", out)
	}
}

func TestCommandGeneratorRejectsEmptyOutput(t *testing.T) {
	gen, err := NewCommandGenerator(writeScript(t, ""))
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	if _, err := gen.Generate(context.Background(), Brief{}); err == nil {
		t.Error("expected error when the command prints nothing")
	}
}
