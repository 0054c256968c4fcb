package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/ChezJrk/exo/ast"
	"github.com/ChezJrk/exo/codegen"
	"github.com/ChezJrk/exo/interp"
	"github.com/ChezJrk/exo/lexer"
	"github.com/ChezJrk/exo/parser"
	"github.com/ChezJrk/exo/staging"
	"github.com/pkg/errors"
	"github.com/xyproto/env/v2"
	"golang.org/x/term"
)

var EXO_SUFFIX = ".exo"
var C_SUFFIX = ".c"
var H_SUFFIX = ".h"

var STAGED_DIR = "staged"

const OS_WINDOWS = "windows"

const (
	colorRed   = "\033[31m"
	colorReset = "\033[0m"
)

// useColor honors EXO_COLOR=1/0 and otherwise colors diagnostics only
// when stdout is a terminal.
func useColor() bool {
	switch env.Str("EXO_COLOR") {
	case "1", "always":
		return true
	case "0", "never":
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// report prints one diagnostic line.
func report(msg string) {
	if useColor() {
		fmt.Printf("%s%s%s\n", colorRed, msg, colorReset)
		return
	}
	fmt.Println(msg)
}

// defaultExoCache gets env variable EXOCACHE
// if it is not set sets it to default value for windows, mac, linux
func defaultExoCache() string {
	if cache := env.Str("EXOCACHE"); cache != "" {
		return cache
	}

	homeDir, _ := os.UserHomeDir()
	var exocache string
	switch runtime.GOOS {
	case OS_WINDOWS:
		if localAppData := env.Str("LocalAppData"); localAppData != "" {
			exocache = filepath.Join(localAppData, "exo")
			return exocache
		}
		exocache = filepath.Join(homeDir, "AppData", "Local", "exo")

	case "darwin":
		exocache = filepath.Join(homeDir, "Library", "Caches", "exo")

	default: // Linux and others
		if xdg := env.Str("XDG_CACHE_HOME"); xdg != "" {
			exocache = filepath.Join(xdg, "exo")
			return exocache
		}
		exocache = filepath.Join(homeDir, ".cache", "exo")
	}

	os.Setenv("EXOCACHE", exocache)
	return exocache
}

// exoSource is one .exo file of the package being compiled.
type exoSource struct {
	Name string // file base name without suffix
	Path string
	Text string
}

// collectSources reads every .exo file directly under dir, in name
// order.
func collectSources(dir string) ([]exoSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}
	var srcs []exoSource
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), EXO_SUFFIX) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		text, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		srcs = append(srcs, exoSource{
			Name: strings.TrimSuffix(entry.Name(), EXO_SUFFIX),
			Path: path,
			Text: string(text),
		})
	}
	return srcs, nil
}

// stageProcs runs one file through the front end and the staging
// interpreter, reporting any diagnostics.
func stageProcs(src exoSource) ([]*ast.Proc, error) {
	l := lexer.New(src.Path, src.Text)
	p := parser.New(l)
	file := p.Parse()
	if errs := p.Errors(); len(errs) > 0 {
		for _, e := range errs {
			report(e)
		}
		return nil, fmt.Errorf("%d parse errors in %s", len(errs), src.Path)
	}
	procs, err := staging.Stage(file)
	if err != nil {
		report(err.Error())
		return nil, fmt.Errorf("staging failed for %s", src.Path)
	}
	return procs, nil
}

// stageSource lowers one staged file to its C source and header texts.
func stageSource(src exoSource) (csrc, hdr string, err error) {
	procs, err := stageProcs(src)
	if err != nil {
		return "", "", err
	}
	csrc, hdr, err = codegen.New(src.Name, procs).Generate()
	if err != nil {
		report(err.Error())
		return "", "", fmt.Errorf("lowering failed for %s", src.Path)
	}
	return csrc, hdr, nil
}

// Copy copies the contents of the file at srcpath to a regular file
// at dstpath. If the file named by dstpath already exists, it is
// truncated. The function does not copy the file mode, file
// permission bits, or file attributes.
func Copy(srcpath, dstpath string) (err error) {
	r, err := os.Open(srcpath)
	if err != nil {
		fmt.Println(err)
		return err
	}
	defer r.Close() // ignore error: file was opened read-only.

	w, err := os.Create(dstpath)
	if err != nil {
		fmt.Println(err)
		return err
	}

	defer func() {
		// Report the error, if any, from Close, but do so
		// only if there isn't already an outgoing error.
		c := w.Close()
		if c != nil {
			fmt.Println(c)
		}
		if err == nil {
			err = c
		}
	}()

	_, err = io.Copy(w, r)
	if err != nil {
		fmt.Println(err)
	}
	return err
}

// parseBindings reads name=value command line arguments for the
// interpreter. Values are integers; bools bind as 0 or 1.
func parseBindings(bindings []string) (map[string]int64, error) {
	vals := map[string]int64{}
	for _, b := range bindings {
		name, val, ok := strings.Cut(b, "=")
		if !ok {
			return nil, errors.Errorf("bad binding %q, want name=value", b)
		}
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return nil, errors.Errorf("bad value in binding %q: %v", b, err)
		}
		vals[name] = n
	}
	return vals, nil
}

// interpret stages the current directory and runs one procedure on
// freshly allocated buffers. Size, index and bool parameters come from
// the bindings; data buffers are allocated zeroed and printed after
// the run.
func interpret(name string, bindings []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return errors.Wrap(err, "get working directory")
	}
	srcs, err := collectSources(cwd)
	if err != nil {
		return err
	}
	if len(srcs) == 0 {
		return errors.Errorf("no %s files found in %s", EXO_SUFFIX, cwd)
	}

	var procs []*ast.Proc
	var target *ast.Proc
	for _, src := range srcs {
		staged, err := stageProcs(src)
		if err != nil {
			return err
		}
		procs = append(procs, staged...)
	}
	for _, p := range procs {
		if p.Name == name {
			target = p
		}
	}
	if target == nil {
		return errors.Errorf("no procedure named %s", name)
	}

	sizes, err := parseBindings(bindings)
	if err != nil {
		return err
	}

	args := map[string]any{}
	for _, prm := range target.Params {
		switch t := prm.Type.(type) {
		case *ast.Scalar:
			switch {
			case t.Kind.IsControl():
				v, ok := sizes[prm.Name]
				if !ok {
					return errors.Errorf("missing value for %s parameter %s (pass %s=N)", t.Kind, prm.Name, prm.Name)
				}
				args[prm.Name] = v
			case t.Kind == ast.BoolKind:
				args[prm.Name] = sizes[prm.Name] != 0
			default:
				args[prm.Name] = interp.NewScalar(t.Kind, 0)
			}
		case *ast.Tensor:
			shape, err := interp.ShapeOf(prm, sizes)
			if err != nil {
				return err
			}
			args[prm.Name] = interp.NewBuffer(t.Elem.Kind, shape...)
		}
	}

	if err := interp.New(procs).Run(name, args); err != nil {
		return err
	}

	for _, prm := range target.Params {
		if buf, ok := args[prm.Name].(*interp.Buffer); ok {
			fmt.Printf("%s = %s\n", prm.Name, buf)
		}
	}
	return nil
}

func main() {
	versionFlag := flag.Bool("version", false, "print version information and exit")
	interpProc := flag.String("interp", "", "run `procedure` on zeroed buffers instead of emitting C")
	flag.Parse()

	if *versionFlag {
		printVersion()
		return
	}

	if *interpProc != "" {
		if err := interpret(*interpProc, flag.Args()); err != nil {
			report(err.Error())
			os.Exit(1)
		}
		return
	}

	var cwd string
	var err error
	if flag.NArg() > 0 {
		cwd = flag.Arg(0)
	} else {
		cwd, err = os.Getwd()
		if err != nil {
			fmt.Printf("Error getting current working directory: %v\n", err)
			os.Exit(1)
		}
	}

	srcs, err := collectSources(cwd)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if len(srcs) == 0 {
		fmt.Printf("No %s files found in %s\n", EXO_SUFFIX, cwd)
		return
	}

	exocache := defaultExoCache()
	fmt.Printf("Using EXOCACHE: %s\n", exocache)
	if err := os.MkdirAll(exocache, 0755); err != nil {
		fmt.Printf("Error creating EXOCACHE directory: %v\n", err)
		os.Exit(1)
	}

	pkg := filepath.Base(cwd)
	outs, err := prepareOutputs(exocache, pkg, srcs)
	if err != nil {
		fmt.Printf("⚠️ Staging failed for package %s: %v\n", pkg, err)
		os.Exit(1)
	}

	for _, out := range outs {
		if err := Copy(out, filepath.Join(cwd, filepath.Base(out))); err != nil {
			fmt.Printf("⚠️ Failed copying %s into %s: %v\n", out, cwd, err)
			os.Exit(1)
		}
	}
	fmt.Printf("✅ Successfully staged package: %s\n", pkg)
}
