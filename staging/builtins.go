package staging

import (
	"github.com/ChezJrk/exo/token"
)

var builtins map[string]*Builtin

func init() {
	builtins = map[string]*Builtin{
		"range":  {Name: "range", Fn: builtinRange},
		"len":    {Name: "len", Fn: builtinLen},
		"str":    {Name: "str", Fn: builtinStr},
		"slice":  {Name: "slice", Fn: builtinSlice},
		"append": {Name: "append", Fn: builtinAppend},
	}
}

func intArgs(name string, tok token.Token, args []Value) ([]int64, *Error) {
	out := make([]int64, len(args))
	for i, a := range args {
		iv, ok := a.(*Int)
		if !ok {
			return nil, newError(ErrHost, tok, "%s arguments must be ints, got %s", name, a.Type())
		}
		out[i] = iv.Value
	}
	return out, nil
}

func builtinRange(ev *Evaluator, tok token.Token, args []Value) (Value, *Error) {
	if len(args) < 1 || len(args) > 3 {
		return nil, newError(ErrHost, tok, "range expects 1 to 3 arguments, got %d", len(args))
	}
	bounds, err := intArgs("range", tok, args)
	if err != nil {
		return nil, err
	}
	lo, hi, step := int64(0), bounds[0], int64(1)
	if len(bounds) >= 2 {
		lo, hi = bounds[0], bounds[1]
	}
	if len(bounds) == 3 {
		step = bounds[2]
	}
	if step == 0 {
		return nil, newError(ErrHost, tok, "range step cannot be zero")
	}
	list := &List{}
	if step > 0 {
		for i := lo; i < hi; i += step {
			list.Elems = append(list.Elems, &Int{Value: i})
		}
	} else {
		for i := lo; i > hi; i += step {
			list.Elems = append(list.Elems, &Int{Value: i})
		}
	}
	return list, nil
}

func builtinLen(ev *Evaluator, tok token.Token, args []Value) (Value, *Error) {
	if len(args) != 1 {
		return nil, newError(ErrHost, tok, "len expects 1 argument, got %d", len(args))
	}
	switch v := args[0].(type) {
	case *List:
		return &Int{Value: int64(len(v.Elems))}, nil
	case *Str:
		return &Int{Value: int64(len(v.Value))}, nil
	}
	return nil, newError(ErrHost, tok, "len of %s is not defined", args[0].Type())
}

func builtinStr(ev *Evaluator, tok token.Token, args []Value) (Value, *Error) {
	if len(args) != 1 {
		return nil, newError(ErrHost, tok, "str expects 1 argument, got %d", len(args))
	}
	return &Str{Value: args[0].Inspect()}, nil
}

func builtinSlice(ev *Evaluator, tok token.Token, args []Value) (Value, *Error) {
	if len(args) != 2 && len(args) != 3 {
		return nil, newError(ErrHost, tok, "slice expects 2 or 3 arguments, got %d", len(args))
	}
	bounds, err := intArgs("slice", tok, args)
	if err != nil {
		return nil, err
	}
	step := int64(1)
	if len(bounds) == 3 {
		step = bounds[2]
	}
	if step == 0 {
		return nil, newError(ErrHost, tok, "slice step cannot be zero")
	}
	return &Slice{Lo: bounds[0], Hi: bounds[1], Step: step}, nil
}

func builtinAppend(ev *Evaluator, tok token.Token, args []Value) (Value, *Error) {
	if len(args) != 2 {
		return nil, newError(ErrHost, tok, "append expects 2 arguments, got %d", len(args))
	}
	list, ok := args[0].(*List)
	if !ok {
		return nil, newError(ErrHost, tok, "append target must be a list, got %s", args[0].Type())
	}
	elems := make([]Value, len(list.Elems)+1)
	copy(elems, list.Elems)
	elems[len(list.Elems)] = args[1]
	return &List{Elems: elems}, nil
}
