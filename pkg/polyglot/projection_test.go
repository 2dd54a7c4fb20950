package polyglot_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/funvibe/polyglot/pkg/hostaccess"
	"github.com/funvibe/polyglot/pkg/polyglot"
)

func intList(ns ...int64) *polyglot.List {
	els := make([]polyglot.Object, len(ns))
	for i, n := range ns {
		els[i] = &polyglot.Integer{Value: n}
	}
	return polyglot.NewList(els...)
}

func TestListProjections(t *testing.T) {
	ctx := polyglot.NewContext()
	list := intList(1, 2, 3)
	v := ctx.Wrap(list)

	x, err := v.As(polyglot.ShapeSlice)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(x, []any{int64(1), int64(2), int64(3)}) {
		t.Errorf("slice = %#v", x)
	}

	x, err = v.As(polyglot.ShapeList)
	if err != nil {
		t.Fatal(err)
	}
	view := x.(*polyglot.ListView)
	if err := view.Set(0, int64(10)); err != nil {
		t.Fatal(err)
	}
	if n := list.Elements[0].(*polyglot.Integer).Value; n != 10 {
		t.Errorf("write through view: element 0 = %d", n)
	}
	if err := view.Set(3, int64(1)); !errors.Is(err, polyglot.ErrIndex) {
		t.Errorf("Set(3) err = %v", err)
	}

	x, err = v.As(polyglot.MapOf(polyglot.KeyInt64))
	if err != nil {
		t.Fatal(err)
	}
	if want := map[int64]any{0: int64(10), 1: int64(2), 2: int64(3)}; !reflect.DeepEqual(x, want) {
		t.Errorf("map[int64] = %#v", x)
	}
	x, err = v.As(polyglot.MapOf(polyglot.KeyInt32))
	if err != nil {
		t.Fatal(err)
	}
	if m := x.(map[int32]any); len(m) != 3 || m[2] != int64(3) {
		t.Errorf("map[int32] = %#v", m)
	}
	if _, err := v.As(polyglot.MapOf(polyglot.KeyString)); !errors.Is(err, polyglot.ErrCast) {
		t.Errorf("map[string] of a list: err = %v", err)
	}
}

func TestRecordProjections(t *testing.T) {
	ctx := polyglot.NewContext()
	rec := polyglot.NewRecord(map[string]polyglot.Object{
		"b": &polyglot.String{Value: "x"},
		"a": &polyglot.Integer{Value: 1},
	})
	v := ctx.Wrap(rec)

	x, err := v.As(polyglot.MapOf(polyglot.KeyString))
	if err != nil {
		t.Fatal(err)
	}
	if want := map[string]any{"a": int64(1), "b": "x"}; !reflect.DeepEqual(x, want) {
		t.Errorf("map[string] = %#v", x)
	}
	if _, err := v.As(polyglot.ShapeSlice); !errors.Is(err, polyglot.ErrCast) {
		t.Errorf("slice of a record: err = %v", err)
	}
	if _, err := v.As(polyglot.MapOf(polyglot.KeyInt64)); !errors.Is(err, polyglot.ErrCast) {
		t.Errorf("map[int64] of a record: err = %v", err)
	}
}

func TestObjectKeyedMapMixesIndicesAndMembers(t *testing.T) {
	ctx := polyglot.NewContext()
	v := ctx.Wrap(&polyglot.Composite{
		Name:     "mixed",
		Members:  polyglot.NewRecord(map[string]polyglot.Object{"k": &polyglot.Boolean{Value: true}}),
		Elements: intList(7),
	})
	x, err := v.As(polyglot.MapOf(polyglot.KeyObject))
	if err != nil {
		t.Fatal(err)
	}
	if want := map[any]any{int64(0): int64(7), "k": true}; !reflect.DeepEqual(x, want) {
		t.Errorf("map[any] = %#v", x)
	}

	g, err := v.As(polyglot.ShapeObject)
	if err != nil {
		t.Fatal(err)
	}
	entries, err := g.(*polyglot.Foreign).Entries()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(entries, x) {
		t.Errorf("Entries = %#v", entries)
	}
}

func TestExcludedKeysAlwaysFail(t *testing.T) {
	ctx := polyglot.NewContext()
	values := []polyglot.Object{
		intList(1),
		polyglot.NewRecord(map[string]polyglot.Object{"a": &polyglot.Nil{}}),
		&polyglot.String{Value: "s"},
		&polyglot.Integer{Value: 1},
	}
	for _, obj := range values {
		for _, k := range polyglot.ExcludedKeys() {
			if !k.Excluded() {
				t.Errorf("%s is listed but not excluded", k)
			}
			_, err := ctx.Wrap(obj).As(polyglot.MapOf(k))
			if !errors.Is(err, polyglot.ErrCast) {
				t.Errorf("%s as map[%s]: err = %v", obj.Inspect(), k, err)
			}
		}
	}

	null := ctx.Wrap(&polyglot.Nil{})
	for _, k := range polyglot.ExcludedKeys() {
		if x, err := null.As(polyglot.MapOf(k)); err != nil || x != nil {
			t.Errorf("null as map[%s] = %v, %v", k, x, err)
		}
	}
}

func TestHostMapsUseHostSemantics(t *testing.T) {
	ctx := polyglot.NewContext(polyglot.WithHostAccess(hostaccess.All))
	m := map[float64]any{1.5: "x"}
	v, err := ctx.AsValue(m)
	if err != nil {
		t.Fatal(err)
	}
	x, err := v.As(polyglot.MapOf(polyglot.KeyFloat64))
	if err != nil {
		t.Fatalf("float keyed host map: %v", err)
	}
	if reflect.ValueOf(x).Pointer() != reflect.ValueOf(m).Pointer() {
		t.Error("matching host map was copied")
	}
	if _, err := v.As(polyglot.MapOf(polyglot.KeyString)); !errors.Is(err, polyglot.ErrCast) {
		t.Errorf("float keys as string keys: err = %v", err)
	}

	counts, err := ctx.AsValue(map[string]int{"a": 1})
	if err != nil {
		t.Fatal(err)
	}
	x, err = counts.As(polyglot.MapOf(polyglot.KeyString))
	if err != nil {
		t.Fatal(err)
	}
	if want := map[string]any{"a": int64(1)}; !reflect.DeepEqual(x, want) {
		t.Errorf("converted map = %#v", x)
	}
}

func TestNullProjections(t *testing.T) {
	null := polyglot.NewContext().Wrap(nil)
	for _, s := range []polyglot.Shape{polyglot.ShapeObject, polyglot.ShapeList, polyglot.ShapeSlice, polyglot.MapOf(polyglot.KeyString)} {
		x, err := null.As(s)
		if err != nil || !isNil(x) {
			t.Errorf("null as %s = %v, %v", s, x, err)
		}
	}
	for _, s := range []polyglot.Shape{polyglot.ShapeBool, polyglot.ShapeInt32, polyglot.ShapeFunc, polyglot.InterfaceOf(polyglot.EmptyInterface)} {
		if _, err := null.As(s); !errors.Is(err, polyglot.ErrCast) {
			t.Errorf("null as %s: err = %v", s, err)
		}
	}
}

func isNil(x any) bool {
	if x == nil {
		return true
	}
	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice:
		return rv.IsNil()
	}
	return false
}
