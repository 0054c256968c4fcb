package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestIsHashDir(t *testing.T) {
	if !isHashDir("0a1b2c3d") {
		t.Fatal("expected 8-char hex to be a hash dir")
	}
	for _, name := range []string{"0a1b2c3", "0a1b2c3dz", "zzzzzzzz", ".lock"} {
		if isHashDir(name) {
			t.Fatalf("%q should not be a hash dir", name)
		}
	}
}

func TestOutputsInfoHashShape(t *testing.T) {
	srcs := []exoSource{{Name: "blur", Path: "blur.exo", Text: "def f(n: size):\n    pass\n"}}

	short, full := outputsInfo(srcs)
	if len(short) != 8 || !isHashDir(short) {
		t.Fatalf("short hash %q is not an 8-char hex string", short)
	}
	if !strings.HasPrefix(full, short) {
		t.Fatalf("full hash %q does not extend short hash %q", full, short)
	}

	again, _ := outputsInfo(srcs)
	if again != short {
		t.Fatalf("hash not stable: %q then %q", short, again)
	}

	srcs[0].Text += "\n"
	changed, _ := outputsInfo(srcs)
	if changed == short {
		t.Fatal("hash did not change with source text")
	}
}

func TestPrepareOutputsStagesAndCaches(t *testing.T) {
	cache := t.TempDir()
	srcs := []exoSource{{
		Name: "axpy",
		Path: "axpy.exo",
		Text: "def axpy(n: size, x: f32[n], y: f32[n]):\n    for i in seq(0, n):\n        y[i] += 2.0 * x[i]\n",
	}}

	outs, err := prepareOutputs(cache, "demo", srcs)
	if err != nil {
		t.Fatal(err)
	}
	if len(outs) != 2 {
		t.Fatalf("want a .c and a .h, got %v", outs)
	}
	csrc, err := os.ReadFile(outs[0])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(csrc), "void axpy(void *ctxt, int_fast32_t n, const float *x, float *y)") {
		t.Fatalf("unexpected C output:\n%s", csrc)
	}

	short, full := outputsInfo(srcs)
	stored, err := os.ReadFile(filepath.Join(cache, "demo", STAGED_DIR, short, ".hash"))
	if err != nil {
		t.Fatalf("missing completion marker: %v", err)
	}
	if string(stored) != full {
		t.Fatalf("completion marker holds %q, want %q", stored, full)
	}

	// second run must reuse the cached directory
	again, err := prepareOutputs(cache, "demo", srcs)
	if err != nil {
		t.Fatal(err)
	}
	if len(again) != 2 || again[0] != outs[0] || again[1] != outs[1] {
		t.Fatalf("cached run returned %v, want %v", again, outs)
	}
}

func TestPrepareOutputsReportsStagingFailure(t *testing.T) {
	cache := t.TempDir()
	srcs := []exoSource{{
		Name: "bad",
		Path: "bad.exo",
		Text: "def f(n: size):\n    x[0] = 1.0\n",
	}}

	if _, err := prepareOutputs(cache, "demo", srcs); err == nil {
		t.Fatal("expected staging of an undefined name to fail")
	}
	short, _ := outputsInfo(srcs)
	if _, err := os.Stat(filepath.Join(cache, "demo", STAGED_DIR, short, ".hash")); !os.IsNotExist(err) {
		t.Fatal("failed staging must not leave a completion marker")
	}
}

func TestCleanupOldOutputs(t *testing.T) {
	staged := t.TempDir()
	old := time.Now().Add(-30 * 24 * time.Hour)
	names := []string{"aaaaaaaa", "bbbbbbbb", "cccccccc", "dddddddd"}
	for i, name := range names {
		dir := filepath.Join(staged, name)
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
		mtime := old.Add(time.Duration(i) * time.Hour)
		if err := os.Chtimes(dir, mtime, mtime); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.MkdirAll(filepath.Join(staged, "not-a-hash"), 0755); err != nil {
		t.Fatal(err)
	}

	cleanupOldOutputs(staged, 2, 7*24*60*60)

	for _, name := range []string{"aaaaaaaa", "bbbbbbbb"} {
		if _, err := os.Stat(filepath.Join(staged, name)); !os.IsNotExist(err) {
			t.Fatalf("expected %s to be removed", name)
		}
	}
	for _, name := range []string{"cccccccc", "dddddddd", "not-a-hash"} {
		if _, err := os.Stat(filepath.Join(staged, name)); err != nil {
			t.Fatalf("expected %s to survive: %v", name, err)
		}
	}
}
