package staging

// ObjKind distinguishes the two shapes an object-language binding can
// take during staging. Buffers cover parameters and allocations of
// every type; iterators are sequential loop variables.
type ObjKind int

const (
	BufferObj ObjKind = iota
	IterObj
)

// Env is one scope in the staging chain. Object-language bindings and
// host values share the chain so both languages see a single lexical
// structure: every staging block opens a child scope that reads its
// enclosing scopes but introduces names only locally.
type Env struct {
	objs  map[string]ObjKind
	hosts map[string]Value
	outer *Env
}

func NewEnv() *Env {
	return &Env{objs: map[string]ObjKind{}, hosts: map[string]Value{}}
}

func NewChildEnv(outer *Env) *Env {
	env := NewEnv()
	env.outer = outer
	return env
}

// DefineObj binds an object-language name in this scope. It reports
// failure when the name is already an object binding here or in an
// enclosing scope; object names cannot be redefined by nested blocks.
func (e *Env) DefineObj(name string, kind ObjKind) bool {
	if _, ok := e.LookupObj(name); ok {
		return false
	}
	e.objs[name] = kind
	return true
}

func (e *Env) LookupObj(name string) (ObjKind, bool) {
	for env := e; env != nil; env = env.outer {
		if kind, ok := env.objs[name]; ok {
			return kind, true
		}
	}
	return 0, false
}

// DefineHost binds a host value in this scope, shadowing any value of
// the same name in enclosing scopes.
func (e *Env) DefineHost(name string, v Value) {
	e.hosts[name] = v
}

// AssignHost updates the nearest scope that already binds name and
// reports whether one was found. Callers define locally on a miss.
func (e *Env) AssignHost(name string, v Value) bool {
	for env := e; env != nil; env = env.outer {
		if _, ok := env.hosts[name]; ok {
			env.hosts[name] = v
			return true
		}
	}
	return false
}

func (e *Env) LookupHost(name string) (Value, bool) {
	for env := e; env != nil; env = env.outer {
		if v, ok := env.hosts[name]; ok {
			return v, true
		}
	}
	return nil, false
}
