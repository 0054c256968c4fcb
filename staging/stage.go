package staging

import (
	"github.com/ChezJrk/exo/ast"
	"github.com/ChezJrk/exo/memory"
)

// Stage runs every procedure in file through the staging pass and
// returns the finished procedures in source order. A staged procedure
// body is placeholder free: no host regions, no splices, no
// unresolved names. The first error aborts staging; no partially
// assembled procedure is ever returned.
//
// Registered memory names are visible to host code as ambient
// bindings, so "@ {m}" annotations can pass memories around as
// ordinary host values.
func Stage(file *ast.File) ([]*ast.Proc, error) {
	root := NewEnv()
	for _, name := range memory.Names() {
		if mem, ok := memory.Lookup(name); ok {
			root.DefineHost(name, &MemRef{Mem: mem})
		}
	}

	procs := make(map[string]*ast.Proc, len(file.Procs))
	for _, p := range file.Procs {
		procs[p.Name] = p
	}

	out := make([]*ast.Proc, 0, len(file.Procs))
	for _, p := range file.Procs {
		ev := &Evaluator{procs: procs}
		staged, err := ev.stageProc(p, NewChildEnv(root))
		if err != nil {
			return nil, err
		}
		out = append(out, staged)
	}
	return out, nil
}

// stageProc instantiates one procedure. Parameters bind in order, so
// a tensor dimension can reference any parameter declared before it.
func (ev *Evaluator) stageProc(proc *ast.Proc, env *Env) (*ast.Proc, *Error) {
	params := make([]*ast.Param, len(proc.Params))
	for i, prm := range proc.Params {
		typ, err := ev.instantiateType(prm.Type, env)
		if err != nil {
			return nil, err
		}
		mem, err := ev.instantiateMem(prm.Mem, env)
		if err != nil {
			return nil, err
		}
		if !env.DefineObj(prm.Name, BufferObj) {
			return nil, newError(ErrNameResolution, prm.Token,
				"redefinition of parameter %s", prm.Name)
		}
		params[i] = &ast.Param{Token: prm.Token, Name: prm.Name, Type: typ, Mem: mem}
	}

	body, err := ev.instantiateBlock(proc.Body, env)
	if err != nil {
		return nil, err
	}
	return &ast.Proc{Token: proc.Token, Name: proc.Name, Params: params, Body: body}, nil
}
