package polyglot_test

import (
	"errors"
	"testing"

	"github.com/funvibe/polyglot/pkg/polyglot"
)

func concat(args ...polyglot.Object) (polyglot.Object, error) {
	out := ""
	for _, a := range args {
		s, ok := a.(*polyglot.String)
		if !ok {
			return nil, errors.New("concat: strings only")
		}
		out += s.Value
	}
	return &polyglot.String{Value: out}, nil
}

func TestFunctionalShapesAgree(t *testing.T) {
	ctx := polyglot.NewContext()
	v := ctx.Wrap(&polyglot.Builtin{Name: "concat", Fn: concat})
	args := []any{"a", "b", "c"}

	x, err := v.As(polyglot.ShapeFunc)
	if err != nil {
		t.Fatal(err)
	}
	r1, err := x.(func(any) (any, error))(args)
	if err != nil {
		t.Fatal(err)
	}

	x, err = v.As(polyglot.ShapeVarArgsFunc)
	if err != nil {
		t.Fatal(err)
	}
	r2, err := x.(func([]any) (any, error))(args)
	if err != nil {
		t.Fatal(err)
	}

	x, err = v.As(polyglot.ShapeVarArgs)
	if err != nil {
		t.Fatal(err)
	}
	r3, err := x.(polyglot.VarArgs).Invoke(args...)
	if err != nil {
		t.Fatal(err)
	}

	x, err = v.As(polyglot.InterfaceOf(polyglot.VarArgsInterface))
	if err != nil {
		t.Fatal(err)
	}
	r4, err := x.(polyglot.Implementation).Invoke("Invoke", args...)
	if err != nil {
		t.Fatal(err)
	}

	for i, r := range []any{r1, r2, r3, r4} {
		if r != "abc" {
			t.Errorf("call %d = %#v, want abc", i+1, r)
		}
	}
}

func TestUnaryFuncDoesNotSpreadScalars(t *testing.T) {
	ctx := polyglot.NewContext()
	v := ctx.Wrap(&polyglot.Builtin{Name: "concat", Fn: concat})
	x, _ := v.As(polyglot.ShapeFunc)
	r, err := x.(func(any) (any, error))("solo")
	if err != nil || r != "solo" {
		t.Errorf("f(solo) = %v, %v", r, err)
	}
}

func TestInstantiableBacksFunctionalShapes(t *testing.T) {
	ctx := polyglot.NewContext()
	v := ctx.Wrap(&polyglot.Constructor{Name: "wrap", New: func(args ...polyglot.Object) (polyglot.Object, error) {
		return polyglot.NewList(args...), nil
	}})

	x, err := v.As(polyglot.ShapeVarArgsFunc)
	if err != nil {
		t.Fatal(err)
	}
	r, err := x.(func([]any) (any, error))([]any{int64(1)})
	if err != nil {
		t.Fatal(err)
	}
	f, ok := r.(*polyglot.Foreign)
	if !ok {
		t.Fatalf("result %T is not a foreign view", r)
	}
	back, err := ctx.AsValue(f)
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := back.GetArraySize(); n != 1 {
		t.Errorf("size = %d", n)
	}

	if _, err := v.As(polyglot.InterfaceOf(polyglot.CallableInterface)); !errors.Is(err, polyglot.ErrCast) {
		t.Errorf("Callable from a constructor: err = %v", err)
	}
	impl, err := v.As(polyglot.InterfaceOf(polyglot.FactoryInterface))
	if err != nil {
		t.Fatalf("Factory: %v", err)
	}
	if _, err := impl.(polyglot.Implementation).Invoke("Create"); err != nil {
		t.Errorf("Create: %v", err)
	}
	if _, err := impl.(polyglot.Implementation).Invoke("Other"); !errors.Is(err, polyglot.ErrUnsupported) {
		t.Errorf("Other: err = %v", err)
	}
}

func TestInterfacesNeedTheRightCapability(t *testing.T) {
	ctx := polyglot.NewContext()
	tests := []struct {
		name  string
		obj   polyglot.Object
		iface *polyglot.Interface
		ok    bool
	}{
		{"empty from builtin", &polyglot.Builtin{Name: "f", Fn: concat}, polyglot.EmptyInterface, false},
		{"empty from record", polyglot.NewRecord(nil), polyglot.EmptyInterface, true},
		{"non-functional from builtin", &polyglot.Builtin{Name: "f", Fn: concat}, polyglot.NonFunctionalInterface, false},
		{"factory from builtin", &polyglot.Builtin{Name: "f", Fn: concat}, polyglot.FactoryInterface, false},
		{"callable from builtin", &polyglot.Builtin{Name: "f", Fn: concat}, polyglot.CallableInterface, true},
		{"varargs from record", polyglot.NewRecord(nil), polyglot.VarArgsInterface, false},
		{"varargs from string", &polyglot.String{Value: "f"}, polyglot.VarArgsInterface, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ctx.Wrap(tt.obj).As(polyglot.InterfaceOf(tt.iface))
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, polyglot.ErrCast) {
				t.Errorf("err = %v, want cast error", err)
			}
		})
	}
}

func TestMemberBackedInterface(t *testing.T) {
	ctx := polyglot.NewContext()
	rec := polyglot.NewRecord(map[string]polyglot.Object{
		"Foobarbaz": &polyglot.Builtin{Name: "f", Fn: concat},
	})
	x, err := ctx.Wrap(rec).As(polyglot.InterfaceOf(polyglot.NonFunctionalInterface))
	if err != nil {
		t.Fatal(err)
	}
	r, err := x.(polyglot.Implementation).Invoke("Foobarbaz", "x", "y")
	if err != nil || r != "xy" {
		t.Errorf("Foobarbaz = %v, %v", r, err)
	}
}

func TestCallErrorsPropagate(t *testing.T) {
	ctx := polyglot.NewContext()
	v := ctx.Wrap(&polyglot.Builtin{Name: "concat", Fn: concat})
	x, _ := v.As(polyglot.ShapeVarArgsFunc)
	if _, err := x.(func([]any) (any, error))([]any{int64(1)}); err == nil {
		t.Error("expected an error")
	}
}
