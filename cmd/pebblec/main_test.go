package main

import (
	"io"
	"os"
	"strings"
	"testing"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("failed to read captured stdout: %v", err)
	}
	return string(out)
}

func TestHandlerCompilesSingleProgram(t *testing.T) {
	tmp, err := os.CreateTemp(t.TempDir(), "*.pebble")
	if err != nil {
		t.Fatalf("failed to create temp input file: %v", err)
	}
	if _, err := tmp.WriteString("{print(3)}$"); err != nil {
		t.Fatalf("failed to write temp input file: %v", err)
	}
	tmp.Close()

	var status int
	out := captureStdout(t, func() {
		status = Handler([]string{tmp.Name()}, map[string]string{})
	})

	if status != 0 {
		t.Fatalf("expected exit status 0, got %d", status)
	}
	if !strings.Contains(out, "Code Generation for Program #1") {
		t.Errorf("expected a code generation header in output, got: %s", out)
	}
	if !strings.Contains(out, "A0 03 A2 01 FF 00") {
		t.Errorf("expected the compiled image bytes in output, got: %s", out)
	}
}

func TestHandlerCompilesMultiplePrograms(t *testing.T) {
	tmp, err := os.CreateTemp(t.TempDir(), "*.pebble")
	if err != nil {
		t.Fatalf("failed to create temp input file: %v", err)
	}
	if _, err := tmp.WriteString("{print(1)}${print(2)}$"); err != nil {
		t.Fatalf("failed to write temp input file: %v", err)
	}
	tmp.Close()

	var status int
	out := captureStdout(t, func() {
		status = Handler([]string{tmp.Name()}, map[string]string{})
	})

	if status != 0 {
		t.Fatalf("expected exit status 0, got %d", status)
	}
	if !strings.Contains(out, "Program #1") || !strings.Contains(out, "Program #2") {
		t.Errorf("expected headers for both programs, got: %s", out)
	}
}

func TestHandlerMissingArgsReturnsNonzero(t *testing.T) {
	status := Handler([]string{}, map[string]string{})
	if status == 0 {
		t.Fatalf("expected a nonzero exit status for missing arguments")
	}
}

func TestHandlerMissingFileReturnsNonzero(t *testing.T) {
	status := Handler([]string{"/no/such/file.pebble"}, map[string]string{})
	if status == 0 {
		t.Fatalf("expected a nonzero exit status for an unreadable input file")
	}
}

func TestHandlerHonorsCustomEOPOption(t *testing.T) {
	tmp, err := os.CreateTemp(t.TempDir(), "*.pebble")
	if err != nil {
		t.Fatalf("failed to create temp input file: %v", err)
	}
	if _, err := tmp.WriteString("{print(3)}#"); err != nil {
		t.Fatalf("failed to write temp input file: %v", err)
	}
	tmp.Close()

	var status int
	out := captureStdout(t, func() {
		status = Handler([]string{tmp.Name()}, map[string]string{"eop": "#"})
	})

	if status != 0 {
		t.Fatalf("expected exit status 0, got %d", status)
	}
	if !strings.Contains(out, "Code Generation for Program #1") {
		t.Errorf("expected a single compiled program with the custom delimiter, got: %s", out)
	}
}
