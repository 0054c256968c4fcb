package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, text string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestCollectSources(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.exo"), "def b(n: size):\n    pass\n")
	writeFile(t, filepath.Join(dir, "a.exo"), "def a(n: size):\n    pass\n")
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignore me")
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatal(err)
	}

	srcs, err := collectSources(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(srcs) != 2 {
		t.Fatalf("want 2 sources, got %d", len(srcs))
	}
	if srcs[0].Name != "a" || srcs[1].Name != "b" {
		t.Fatalf("want sources a, b in name order, got %s, %s", srcs[0].Name, srcs[1].Name)
	}
	if srcs[0].Path != filepath.Join(dir, "a.exo") {
		t.Fatalf("unexpected source path %s", srcs[0].Path)
	}
}

func TestDefaultExoCacheOverride(t *testing.T) {
	t.Setenv("EXOCACHE", filepath.Join(t.TempDir(), "exo"))

	want := os.Getenv("EXOCACHE")
	if got := defaultExoCache(); got != want {
		t.Fatalf("EXOCACHE override ignored, got %q want %q", got, want)
	}
}

func TestParseBindings(t *testing.T) {
	vals, err := parseBindings([]string{"n=16", "flag=1"})
	if err != nil {
		t.Fatal(err)
	}
	if vals["n"] != 16 || vals["flag"] != 1 {
		t.Fatalf("unexpected bindings: %v", vals)
	}

	if _, err := parseBindings([]string{"n"}); err == nil {
		t.Fatal("expected an error for a binding without =")
	}
	if _, err := parseBindings([]string{"n=x"}); err == nil {
		t.Fatal("expected an error for a non-integer value")
	}
}

func TestStageSourceEmitsBothTexts(t *testing.T) {
	src := exoSource{
		Name: "ident",
		Path: "ident.exo",
		Text: "def ident(n: size, x: f32[n], y: f32[n]):\n    for i in seq(0, n):\n        y[i] = x[i]\n",
	}

	csrc, hdr, err := stageSource(src)
	if err != nil {
		t.Fatal(err)
	}
	if want := `#include "ident.h"`; len(csrc) == 0 || csrc[:len(want)] != want {
		t.Fatalf("C source does not start with %s:\n%s", want, csrc)
	}
	if want := "#pragma once"; len(hdr) == 0 || hdr[:len(want)] != want {
		t.Fatalf("header does not start with %s:\n%s", want, hdr)
	}
}
