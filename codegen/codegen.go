package codegen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ChezJrk/exo/ast"
	"github.com/ChezJrk/exo/memory"
	"github.com/ChezJrk/exo/token"
)

// Generator lowers staged procedures to a C source and header pair:
// a signature comment above every procedure, a void(void *ctxt, ...)
// calling convention, flat row-major indexing and allocation text
// supplied by each buffer's memory space. Procedures called by another
// procedure in the set are emitted static; the rest form the public
// interface declared in the header.
type Generator struct {
	name  string
	procs []*ast.Proc

	byName map[string]*ast.Proc
	writes map[string]map[string]bool // proc name -> params it writes
	called map[string]bool            // procs invoked by another proc here
	sigs   map[string]string

	includes    []string // memory include lines, first use order
	seen        map[string]bool
	pubIncludes []string // subset needed by public signatures
	pubSeen     map[string]bool

	scopes []map[string]*cSym
	out    *strings.Builder
	indent int
}

// New prepares a generator for one output pair. name becomes the file
// base name, the #include in the source and the header guard.
func New(name string, procs []*ast.Proc) *Generator {
	g := &Generator{
		name:    name,
		procs:   procs,
		byName:  map[string]*ast.Proc{},
		sigs:    map[string]string{},
		seen:    map[string]bool{},
		pubSeen: map[string]bool{},
	}
	for _, p := range procs {
		g.byName[p.Name] = p
	}
	return g
}

// cerror builds a positioned lowering fault.
func cerror(tok token.Token, format string, args ...any) *token.CompileError {
	return &token.CompileError{Token: tok, Msg: fmt.Sprintf(format, args...)}
}

// Generate renders the C source and header texts.
func (g *Generator) Generate() (src, hdr string, err error) {
	g.analyze()

	defs := make([]string, 0, len(g.procs))
	for _, p := range g.procs {
		text, err := g.emitProc(p)
		if err != nil {
			return "", "", err
		}
		defs = append(defs, text)
	}

	return g.sourceText(defs), g.headerText(), nil
}

// analyze computes the call targets and the per-procedure set of
// written parameters. A parameter counts as written when the body
// assigns or reduces into it, or passes it to a callee parameter that
// is itself written, so const-ness propagates through the call graph
// to a fixed point.
func (g *Generator) analyze() {
	g.called = map[string]bool{}
	g.writes = map[string]map[string]bool{}
	for _, p := range g.procs {
		g.writes[p.Name] = map[string]bool{}
	}
	for changed := true; changed; {
		changed = false
		for _, p := range g.procs {
			params := map[string]bool{}
			for _, prm := range p.Params {
				params[prm.Name] = true
			}
			if g.scanWrites(p, p.Body, params) {
				changed = true
			}
		}
	}
}

func (g *Generator) scanWrites(p *ast.Proc, stmts []ast.Statement, params map[string]bool) bool {
	changed := false
	for _, s := range stmts {
		switch st := s.(type) {
		case *ast.Assign:
			if g.markWrite(p, st.Name, params) {
				changed = true
			}
		case *ast.Reduce:
			if g.markWrite(p, st.Name, params) {
				changed = true
			}
		case *ast.SeqFor:
			if g.scanWrites(p, st.Body, params) {
				changed = true
			}
		case *ast.If:
			if g.scanWrites(p, st.Then, params) {
				changed = true
			}
			if g.scanWrites(p, st.Else, params) {
				changed = true
			}
		case *ast.Call:
			g.called[st.Name] = true
			callee, ok := g.byName[st.Name]
			if !ok {
				continue
			}
			for i, prm := range callee.Params {
				if i >= len(st.Args) {
					break
				}
				if !g.writes[callee.Name][prm.Name] {
					continue
				}
				if r, ok := st.Args[i].(*ast.Read); ok {
					if g.markWrite(p, r.Name, params) {
						changed = true
					}
				}
			}
		}
	}
	return changed
}

func (g *Generator) markWrite(p *ast.Proc, name string, params map[string]bool) bool {
	if !params[name] || g.writes[p.Name][name] {
		return false
	}
	g.writes[p.Name][name] = true
	return true
}

func (g *Generator) emitProc(p *ast.Proc) (string, error) {
	g.out = &strings.Builder{}
	g.indent = 0
	g.scopes = []map[string]*cSym{{}}

	g.out.WriteString(commentText(p))
	sig, err := g.signature(p)
	if err != nil {
		return "", err
	}
	g.sigs[p.Name] = sig
	g.line("%s {", sig)
	g.indent++
	if err := g.emitBlock(p.Body); err != nil {
		return "", err
	}
	g.indent--
	g.line("}")
	return g.out.String(), nil
}

// commentText renders the signature comment carried above every
// declaration and definition, in the surface syntax of the procedure.
func commentText(p *ast.Proc) string {
	var b strings.Builder
	fmt.Fprintf(&b, "// %s(\n", p.Name)
	for i, prm := range p.Params {
		sep := ","
		if i == len(p.Params)-1 {
			sep = ""
		}
		fmt.Fprintf(&b, "//     %s : %s%s%s\n", prm.Name, prm.Type.String(), memComment(prm), sep)
	}
	b.WriteString("// )\n")
	return b.String()
}

// memComment renders the memory annotation data parameters carry in
// signature comments. Control and bool parameters have none.
func memComment(prm *ast.Param) string {
	if t, ok := prm.Type.(*ast.Scalar); ok && (t.Kind.IsControl() || t.Kind == ast.BoolKind) {
		return ""
	}
	return " @" + memName(prm.Mem)
}

func memName(m ast.Mem) string {
	if m == nil {
		return "DRAM"
	}
	return m.String()
}

func (g *Generator) signature(p *ast.Proc) (string, error) {
	parts := []string{"void *ctxt"}
	for _, prm := range p.Params {
		decl, err := g.paramDecl(p, prm)
		if err != nil {
			return "", err
		}
		parts = append(parts, decl)
	}
	kw := ""
	if g.called[p.Name] {
		kw = "static "
	}
	return fmt.Sprintf("%svoid %s(%s)", kw, p.Name, strings.Join(parts, ", ")), nil
}

// paramDecl renders one parameter declaration and defines its symbol.
// Control scalars pass by value, everything else by pointer, const
// qualified when the procedure never writes through it.
func (g *Generator) paramDecl(p *ast.Proc, prm *ast.Param) (string, error) {
	switch t := prm.Type.(type) {
	case *ast.Scalar:
		if t.Kind.IsControl() || t.Kind == ast.BoolKind {
			ct, _ := ctype(t.Kind)
			g.define(prm.Name, &cSym{kind: symControl, ctype: ct})
			return ct + " " + prm.Name, nil
		}
		ct, ok := ctype(t.Kind)
		if !ok {
			return "", cerror(prm.Token, "cannot lower type %s: it has no C representation", t.Kind)
		}
		g.define(prm.Name, &cSym{kind: symScalarPtr, ctype: ct})
		return constPrefix(g.writes[p.Name][prm.Name]) + ct + " *" + prm.Name, nil
	case *ast.Tensor:
		ct, ok := ctype(t.Elem.Kind)
		if !ok {
			return "", cerror(prm.Token, "cannot lower type %s: it has no C representation", t.Elem.Kind)
		}
		mem, err := g.memOf(prm.Token, prm.Mem)
		if err != nil {
			return "", err
		}
		g.addInclude(mem, !g.called[p.Name])
		if mem.Lanes > 0 {
			g.define(prm.Name, &cSym{kind: symVector, ctype: ct, dims: t.Dims, mem: mem.Name, ptr: true})
			return constPrefix(g.writes[p.Name][prm.Name]) + mem.Reg + " *" + prm.Name, nil
		}
		g.define(prm.Name, &cSym{kind: symBuffer, ctype: ct, dims: t.Dims, mem: mem.Name})
		return constPrefix(g.writes[p.Name][prm.Name]) + ct + " *" + prm.Name, nil
	}
	return "", cerror(prm.Token, "parameter %s has unstaged type %s", prm.Name, prm.Type.String())
}

func constPrefix(written bool) string {
	if written {
		return ""
	}
	return "const "
}

func (g *Generator) memOf(tok token.Token, m ast.Mem) (*memory.Memory, error) {
	name := memName(m)
	mem, ok := memory.Lookup(name)
	if !ok {
		return nil, cerror(tok, "no memory space named %s is registered", name)
	}
	return mem, nil
}

func (g *Generator) addInclude(mem *memory.Memory, public bool) {
	if mem.Header == "" {
		return
	}
	if !g.seen[mem.Header] {
		g.seen[mem.Header] = true
		g.includes = append(g.includes, mem.Header)
	}
	if public && !g.pubSeen[mem.Header] {
		g.pubSeen[mem.Header] = true
		g.pubIncludes = append(g.pubIncludes, mem.Header)
	}
}

// emitBlock renders one scope. Buffers allocated here are released at
// the end of the block, in reverse allocation order.
func (g *Generator) emitBlock(stmts []ast.Statement) error {
	g.pushScope()
	defer g.popScope()
	var frees []string
	for _, s := range stmts {
		free, err := g.emitStmt(s)
		if err != nil {
			return err
		}
		if free != "" {
			frees = append(frees, free)
		}
	}
	for i := len(frees) - 1; i >= 0; i-- {
		g.line("%s", frees[i])
	}
	return nil
}

func (g *Generator) emitStmt(s ast.Statement) (string, error) {
	switch st := s.(type) {
	case *ast.Alloc:
		return g.emitAlloc(st)
	case *ast.Assign:
		lhs, err := g.lvalue(st.Token, st.Name, st.Idx)
		if err != nil {
			return "", err
		}
		rhs, err := g.cExpr(st.Value, precLowest)
		if err != nil {
			return "", err
		}
		g.line("%s = %s;", lhs, rhs)
		return "", nil
	case *ast.Reduce:
		lhs, err := g.lvalue(st.Token, st.Name, st.Idx)
		if err != nil {
			return "", err
		}
		rhs, err := g.cExpr(st.Value, precLowest)
		if err != nil {
			return "", err
		}
		g.line("%s += %s;", lhs, rhs)
		return "", nil
	case *ast.SeqFor:
		lo, err := g.cExpr(st.Lo, precLowest)
		if err != nil {
			return "", err
		}
		hi, err := g.cExpr(st.Hi, precLowest)
		if err != nil {
			return "", err
		}
		g.line("for (int_fast32_t %s = %s; %s < %s; %s++) {", st.Iter, lo, st.Iter, hi, st.Iter)
		g.indent++
		g.pushScope()
		g.define(st.Iter, &cSym{kind: symControl, ctype: "int_fast32_t"})
		err = g.emitBlock(st.Body)
		g.popScope()
		if err != nil {
			return "", err
		}
		g.indent--
		g.line("}")
		return "", nil
	case *ast.If:
		cond, err := g.cExpr(st.Cond, precLowest)
		if err != nil {
			return "", err
		}
		g.line("if (%s) {", cond)
		g.indent++
		if err := g.emitBlock(st.Then); err != nil {
			return "", err
		}
		g.indent--
		if len(st.Else) > 0 {
			g.line("} else {")
			g.indent++
			if err := g.emitBlock(st.Else); err != nil {
				return "", err
			}
			g.indent--
		}
		g.line("}")
		return "", nil
	case *ast.Call:
		return "", g.emitCall(st)
	case *ast.Pass:
		return "", nil
	}
	return "", cerror(s.Tok(), "cannot lower unstaged statement")
}

// emitAlloc renders the declaration the buffer's memory space defines
// and returns the release statement for the end of the block, if any.
func (g *Generator) emitAlloc(a *ast.Alloc) (string, error) {
	mem, err := g.memOf(a.Token, a.Mem)
	if err != nil {
		return "", err
	}
	g.addInclude(mem, false)
	switch t := a.Type.(type) {
	case *ast.Scalar:
		ct, ok := ctype(t.Kind)
		if !ok {
			return "", cerror(a.Token, "cannot lower type %s: it has no C representation", t.Kind)
		}
		decl, err := mem.Alloc(a.Name, ct, nil)
		if err != nil {
			return "", cerror(a.Token, "cannot allocate %s in %s: %s", a.Name, mem.Name, err)
		}
		g.line("%s", decl)
		g.define(a.Name, &cSym{kind: symScalar, ctype: ct})
		return mem.Free(a.Name, ct, nil), nil
	case *ast.Tensor:
		ct, ok := ctype(t.Elem.Kind)
		if !ok {
			return "", cerror(a.Token, "cannot lower type %s: it has no C representation", t.Elem.Kind)
		}
		dims := make([]string, len(t.Dims))
		for i, d := range t.Dims {
			dims[i], err = g.cExpr(d, precMul)
			if err != nil {
				return "", err
			}
		}
		decl, err := mem.Alloc(a.Name, ct, dims)
		if err != nil {
			return "", cerror(a.Token, "cannot allocate %s in %s: %s", a.Name, mem.Name, err)
		}
		g.line("%s", decl)
		kind := symBuffer
		if mem.Lanes > 0 {
			kind = symVector
		}
		g.define(a.Name, &cSym{kind: kind, ctype: ct, dims: t.Dims, mem: mem.Name})
		return mem.Free(a.Name, ct, dims), nil
	}
	return "", cerror(a.Token, "cannot allocate %s with unstaged type %s", a.Name, a.Type.String())
}

func (g *Generator) emitCall(c *ast.Call) error {
	callee, ok := g.byName[c.Name]
	if !ok {
		return cerror(c.Token, "no procedure named %s", c.Name)
	}
	if len(c.Args) != len(callee.Params) {
		return cerror(c.Token, "calling %s with %d arguments, want %d", c.Name, len(c.Args), len(callee.Params))
	}
	args := make([]string, 0, len(callee.Params)+1)
	args = append(args, "ctxt")
	for i, prm := range callee.Params {
		text, err := g.argText(c, prm, c.Args[i])
		if err != nil {
			return err
		}
		args = append(args, text)
	}
	g.line("%s(%s);", c.Name, strings.Join(args, ", "))
	return nil
}

// argText renders one call argument. Control and bool arguments pass
// by value; buffer arguments must name storage and pass its address,
// with a trailing interval selecting a contiguous window.
func (g *Generator) argText(c *ast.Call, prm *ast.Param, arg ast.Expression) (string, error) {
	wantRank := 0
	if t, ok := prm.Type.(*ast.Tensor); ok {
		wantRank = len(t.Dims)
	} else if t, ok := prm.Type.(*ast.Scalar); ok && (t.Kind.IsControl() || t.Kind == ast.BoolKind) {
		return g.cExpr(arg, precLowest)
	}

	r, ok := arg.(*ast.Read)
	if !ok {
		return "", cerror(arg.Tok(), "argument %s of %s must name a buffer", prm.Name, c.Name)
	}
	sym, ok := g.get(r.Name)
	if !ok {
		return "", cerror(r.Token, "undefined name %s", r.Name)
	}
	switch sym.kind {
	case symControl:
		return "", cerror(r.Token, "argument %s of %s must name a buffer", prm.Name, c.Name)
	case symScalar:
		if len(r.Idx) > 0 {
			return "", cerror(r.Token, "%s is a scalar and cannot be indexed", r.Name)
		}
		if wantRank != 0 {
			return "", cerror(r.Token, "argument %s of %s has rank 0, want %d", prm.Name, c.Name, wantRank)
		}
		return "&" + r.Name, nil
	case symScalarPtr:
		if len(r.Idx) > 0 {
			return "", cerror(r.Token, "%s is a scalar and cannot be indexed", r.Name)
		}
		if wantRank != 0 {
			return "", cerror(r.Token, "argument %s of %s has rank 0, want %d", prm.Name, c.Name, wantRank)
		}
		return r.Name, nil
	case symVector:
		if len(r.Idx) > 0 {
			return "", cerror(r.Token, "cannot pass an element of %s: %s registers are not addressable", r.Name, sym.mem)
		}
		if len(sym.dims) != wantRank {
			return "", cerror(r.Token, "argument %s of %s has rank %d, want %d", prm.Name, c.Name, len(sym.dims), wantRank)
		}
		return r.Name, nil
	}

	if len(r.Idx) == 0 {
		if len(sym.dims) != wantRank {
			return "", cerror(r.Token, "argument %s of %s has rank %d, want %d", prm.Name, c.Name, len(sym.dims), wantRank)
		}
		return r.Name, nil
	}
	if len(r.Idx) != len(sym.dims) {
		return "", cerror(r.Token, "%s has rank %d but is indexed with %d indices", r.Name, len(sym.dims), len(r.Idx))
	}
	idx := make([]ast.Expression, len(r.Idx))
	intervals := 0
	for d, ix := range r.Idx {
		iv, isInterval := ix.(*ast.Interval)
		if !isInterval {
			idx[d] = ix
			continue
		}
		if d != len(r.Idx)-1 {
			return "", cerror(r.Token, "cannot pass a non-contiguous window of %s", r.Name)
		}
		intervals++
		idx[d] = iv.Lo
	}
	if intervals != wantRank {
		return "", cerror(r.Token, "argument %s of %s has rank %d, want %d", prm.Name, c.Name, intervals, wantRank)
	}
	flat, err := g.flatIndex(sym.dims, idx)
	if err != nil {
		return "", err
	}
	return "&" + r.Name + "[" + flat + "]", nil
}

func (g *Generator) sourceText(defs []string) string {
	sections := []string{
		fmt.Sprintf("#include %q", g.name+".h"),
		"#include <stdio.h>\n#include <stdlib.h>",
	}
	if len(g.includes) > 0 {
		sections = append(sections, strings.Join(g.includes, "\n"))
	}
	var statics []string
	for name := range g.called {
		if g.byName[name] != nil {
			statics = append(statics, name)
		}
	}
	sort.Strings(statics)
	for _, name := range statics {
		sections = append(sections, commentText(g.byName[name])+g.sigs[name]+";")
	}
	sections = append(sections, defs...)
	return joinSections(sections)
}

func (g *Generator) headerText() string {
	guard := g.guard()
	sections := []string{
		"#pragma once\n#ifndef " + guard + "\n#define " + guard,
		"#ifdef __cplusplus\nextern \"C\" {\n#endif",
		"#include <stdint.h>\n#include <stdbool.h>",
		featureMacros,
	}
	if len(g.pubIncludes) > 0 {
		sections = append(sections, strings.Join(g.pubIncludes, "\n"))
	}
	for _, p := range g.procs {
		if g.called[p.Name] {
			continue
		}
		sections = append(sections, commentText(p)+g.sigs[p.Name]+";")
	}
	sections = append(sections, "#ifdef __cplusplus\n}\n#endif\n#endif  // "+guard)
	return joinSections(sections)
}

func joinSections(sections []string) string {
	for i, s := range sections {
		sections[i] = strings.TrimRight(s, "\n")
	}
	return strings.Join(sections, "\n\n") + "\n"
}

// guard maps the output name to an include guard, e.g. "blur" to
// BLUR_H.
func (g *Generator) guard() string {
	var b strings.Builder
	for _, r := range strings.ToUpper(g.name) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String() + "_H"
}

const featureMacros = `// Compiler feature macros adapted from Hedley (public domain)
// https://github.com/nemequ/hedley

#if defined(__has_builtin)
#  define EXO_HAS_BUILTIN(builtin) __has_builtin(builtin)
#else
#  define EXO_HAS_BUILTIN(builtin) (0)
#endif

#if EXO_HAS_BUILTIN(__builtin_assume)
#  define EXO_ASSUME(expr) __builtin_assume(expr)
#elif EXO_HAS_BUILTIN(__builtin_unreachable)
#  define EXO_ASSUME(expr) \
      ((void)((expr) ? 1 : (__builtin_unreachable(), 1)))
#else
#  define EXO_ASSUME(expr) ((void)(expr))
#endif`

func (g *Generator) line(format string, args ...any) {
	g.out.WriteString(strings.Repeat("  ", g.indent))
	fmt.Fprintf(g.out, format, args...)
	g.out.WriteByte('\n')
}
