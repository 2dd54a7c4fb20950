package polyglot

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestToObjectPrimitives(t *testing.T) {
	m := NewContext().Marshaller()
	tests := []struct {
		in   any
		want Object
	}{
		{nil, &Nil{}},
		{true, &Boolean{Value: true}},
		{"s", &String{Value: "s"}},
		{int8(-3), &Integer{Value: -3}},
		{uint16(7), &Integer{Value: 7}},
		{uint64(math.MaxUint64), &Float{Value: math.MaxUint64}},
		{float32(0.5), &Float{Value: 0.5}},
		{(*int)(nil), &Nil{}},
		{map[string]int(nil), &Nil{}},
	}
	for _, tt := range tests {
		got, err := m.ToObject(tt.in)
		if err != nil {
			t.Errorf("ToObject(%#v): %v", tt.in, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ToObject(%#v) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}

func TestToObjectKeepsIdentity(t *testing.T) {
	ctx := NewContext()
	m := ctx.Marshaller()
	list := NewList()

	got, _ := m.ToObject(ctx.Wrap(list))
	if got != list {
		t.Error("*Value was not unwrapped")
	}
	got, _ = m.ToObject(&Foreign{ctx: ctx, obj: list})
	if got != list {
		t.Error("*Foreign was not unwrapped")
	}
	got, _ = m.ToObject(list)
	if got != list {
		t.Error("Object was not passed through")
	}
	got, _ = m.ToObject(reflect.TypeFor[int]())
	if _, ok := got.(*HostType); !ok {
		t.Errorf("reflect.Type became %T", got)
	}
}

func TestFromObject(t *testing.T) {
	ctx := NewContext()
	m := ctx.Marshaller()

	type pair struct {
		A int
		B []string
	}
	rec := NewRecord(map[string]Object{
		"A": &Integer{Value: 4},
		"B": NewList(&String{Value: "x"}),
		"c": &Integer{Value: 9},
	})
	got, err := m.FromObject(rec, reflect.TypeFor[pair]())
	if err != nil {
		t.Fatal(err)
	}
	if want := (pair{A: 4, B: []string{"x"}}); !reflect.DeepEqual(got, want) {
		t.Errorf("struct = %#v", got)
	}

	got, err = m.FromObject(rec, reflect.TypeFor[map[string]any]())
	if err != nil {
		t.Fatal(err)
	}
	if mm := got.(map[string]any); mm["A"] != int64(4) || len(mm) != 3 {
		t.Errorf("map = %#v", got)
	}

	tests := []struct {
		obj    Object
		target reflect.Type
	}{
		{&Integer{Value: 300}, reflect.TypeFor[int8]()},
		{&Integer{Value: -1}, reflect.TypeFor[uint]()},
		{&Float{Value: 1.5}, reflect.TypeFor[int]()},
		{&Float{Value: math.Copysign(0, -1)}, reflect.TypeFor[int]()},
		{&String{Value: "1"}, reflect.TypeFor[int]()},
		{&Nil{}, reflect.TypeFor[string]()},
	}
	for _, tt := range tests {
		if _, err := m.FromObject(tt.obj, tt.target); !errors.Is(err, ErrCast) {
			t.Errorf("FromObject(%s, %s) err = %v", tt.obj.Inspect(), tt.target, err)
		}
	}

	v, err := m.FromObject(&Integer{Value: 2}, reflect.TypeFor[float32]())
	if err != nil || v != float32(2) {
		t.Errorf("int to float32 = %v, %v", v, err)
	}
	obj, err := m.FromObject(&Integer{Value: 2}, objectType)
	if err != nil || obj.(*Integer).Value != 2 {
		t.Errorf("to Object = %v, %v", obj, err)
	}
}

func TestCallResults(t *testing.T) {
	m := NewContext().Marshaller()
	tests := []struct {
		name string
		fn   any
		args []Object
		want Object
	}{
		{"no results", func() {}, nil, &Nil{}},
		{"one result", func(s string) string { return s + "!" }, []Object{&String{Value: "hi"}}, &String{Value: "hi!"}},
		{"value and nil error", func() (int, error) { return 1, nil }, nil, &Integer{Value: 1}},
		{"two results", func() (int, bool) { return 1, true }, nil, NewList(&Integer{Value: 1}, &Boolean{Value: true})},
		{"variadic", func(xs ...int) int { return len(xs) }, []Object{&Integer{Value: 1}, &Integer{Value: 2}}, &Integer{Value: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.call(reflect.ValueOf(tt.fn), tt.args)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}

	boom := errors.New("boom")
	if _, err := m.call(reflect.ValueOf(func() error { return boom }), nil); err != boom {
		t.Errorf("err = %v", err)
	}
	if _, err := m.call(reflect.ValueOf(func(int) {}), []Object{&String{Value: "x"}}); !errors.Is(err, ErrCast) {
		t.Errorf("bad argument err = %v", err)
	}
}
