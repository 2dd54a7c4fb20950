package conformance

import (
	"math"
	"reflect"
	"strconv"

	"github.com/funvibe/polyglot/pkg/polyglot"
	"github.com/funvibe/polyglot/pkg/trait"
)

// numeric checks the fits/as laws: every FitsInX agrees with AsX, and a
// narrower exact conversion holds exactly when the narrower FitsInX does.
func (c *checker) numeric(path string, val *polyglot.Value) {
	t := trait.Number
	fitsByte, fitsShort, fitsInt := val.FitsInByte(), val.FitsInShort(), val.FitsInInt()
	fitsLong, fitsFloat := val.FitsInLong(), val.FitsInFloat()

	c.expect(!fitsByte || fitsShort, path, t, "FitsInShort", "byte fits but short does not")
	c.expect(!fitsShort || fitsInt, path, t, "FitsInInt", "short fits but int does not")
	c.expect(!fitsInt || fitsLong, path, t, "FitsInLong", "int fits but long does not")

	_, err := val.As(polyglot.ShapeNumber)
	c.expectNoErr(err, path, t, "As(number)")

	if fitsByte {
		_, err := val.AsByte()
		c.expectNoErr(err, path, t, "AsByte")
	} else {
		_, err := val.AsByte()
		c.expectCast(err, path, t, "AsByte")
	}

	if fitsShort {
		s, err := val.AsShort()
		if c.expectNoErr(err, path, t, "AsShort") {
			c.expect((int16(int8(s)) == s) == fitsByte, path, t, "AsShort", "%d narrows to int8 inconsistently", s)
		}
	} else {
		_, err := val.AsShort()
		c.expectCast(err, path, t, "AsShort")
	}

	if fitsInt {
		i, err := val.AsInt()
		if c.expectNoErr(err, path, t, "AsInt") {
			c.expect((int32(int8(i)) == i) == fitsByte, path, t, "AsInt", "%d narrows to int8 inconsistently", i)
			c.expect((int32(int16(i)) == i) == fitsShort, path, t, "AsInt", "%d narrows to int16 inconsistently", i)
		}
	} else {
		_, err := val.AsInt()
		c.expectCast(err, path, t, "AsInt")
	}

	if fitsLong {
		l, err := val.AsLong()
		if c.expectNoErr(err, path, t, "AsLong") {
			c.expect((int64(int8(l)) == l) == fitsByte, path, t, "AsLong", "%d narrows to int8 inconsistently", l)
			c.expect((int64(int16(l)) == l) == fitsShort, path, t, "AsLong", "%d narrows to int16 inconsistently", l)
			c.expect((int64(int32(l)) == l) == fitsInt, path, t, "AsLong", "%d narrows to int32 inconsistently", l)
		}
	} else {
		_, err := val.AsLong()
		c.expectCast(err, path, t, "AsLong")
	}

	if fitsFloat {
		_, err := val.AsFloat()
		c.expectNoErr(err, path, t, "AsFloat")
	} else {
		_, err := val.AsFloat()
		c.expectCast(err, path, t, "AsFloat")
	}

	if val.FitsInDouble() {
		d, err := val.AsDouble()
		if c.expectNoErr(err, path, t, "AsDouble") {
			narrows := sameFloat(float64(float32(d)), d) || fitsInt
			c.expect(narrows == fitsFloat, path, t, "AsDouble", "%v narrows to float32 inconsistently", d)
		}
	} else {
		_, err := val.AsDouble()
		c.expectCast(err, path, t, "AsDouble")
	}
}

// sameFloat is total equality: NaN equals NaN and the zeros differ.
func sameFloat(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return a == b && math.Signbit(a) == math.Signbit(b)
}

// arrays checks the list, slice and map projections against the elements
// and writes every element back into its own slot.
func (c *checker) arrays(path string, val *polyglot.Value) {
	t := trait.ArrayElements
	size, err := val.GetArraySize()
	if !c.expectNoErr(err, path, t, "GetArraySize") {
		return
	}
	c.expect(size >= 0, path, t, "GetArraySize", "negative size %d", size)

	received := make([]any, 0, size)
	for i := int64(0); i < size; i++ {
		el, err := val.GetArrayElement(i)
		if !c.expectNoErr(err, path, t, "GetArrayElement") {
			return
		}
		g, err := el.As(polyglot.ShapeObject)
		if !c.expectNoErr(err, path, t, "As(Object)") {
			return
		}
		received = append(received, g)
		c.nested(indexPath(path, i), el)
	}
	_, err = val.GetArrayElement(size)
	c.expect(err != nil, path, t, "GetArrayElement", "index %d past the end succeeded", size)

	if x, err := val.As(polyglot.ShapeList); c.expectNoErr(err, path, t, "As(list)") {
		list := x.(*polyglot.ListView)
		c.expect(int64(list.Len()) == size, path, t, "As(list)", "len %d, want %d", list.Len(), size)
		if got, err := list.Slice(); c.expectNoErr(err, path, t, "As(list)") {
			c.expect(equalSlices(got, received), path, t, "As(list)", "elements %v, want %v", got, received)
		}
	}
	if x, err := val.As(polyglot.ShapeSlice); c.expectNoErr(err, path, t, "As([]any)") {
		got := x.([]any)
		c.expect(equalSlices(got, received), path, t, "As([]any)", "elements %v, want %v", got, received)
	}

	if !isHostMap(val) {
		c.indexMaps(path, val, received)
	}

	for i := int64(0); i < size; i++ {
		el, err := val.GetArrayElement(i)
		if !c.expectNoErr(err, path, t, "GetArrayElement") {
			return
		}
		c.expectNoErr(val.SetArrayElement(i, el), path, t, "SetArrayElement")
	}
	c.expectElements(path, val, received, "SetArrayElement")

	if x, err := val.As(polyglot.ShapeList); err == nil {
		list := x.(*polyglot.ListView)
		for i, g := range received {
			c.expectNoErr(list.Set(i, g), path, t, "ListView.Set")
		}
		c.expectElements(path, val, received, "ListView.Set")
	}
}

// indexMaps checks the index keyed map projections and, for foreign views,
// Entries. The object keyed projection holds members next to the indices.
func (c *checker) indexMaps(path string, val *polyglot.Value, received []any) {
	t := trait.ArrayElements
	for _, key := range []polyglot.KeyKind{polyglot.KeyInt64, polyglot.KeyNumber} {
		check := "As(" + polyglot.MapOf(key).String() + ")"
		if x, err := val.As(polyglot.MapOf(key)); c.expectNoErr(err, path, t, check) {
			m := x.(map[int64]any)
			ok := len(m) == len(received)
			for i, g := range received {
				ok = ok && equalGeneric(m[int64(i)], g)
			}
			c.expect(ok, path, t, check, "entries %v, want %v", m, received)
		}
	}
	if x, err := val.As(polyglot.MapOf(polyglot.KeyInt32)); c.expectNoErr(err, path, t, "As(map[int32]any)") {
		m := x.(map[int32]any)
		ok := len(m) == len(received)
		for i, g := range received {
			ok = ok && equalGeneric(m[int32(i)], g)
		}
		c.expect(ok, path, t, "As(map[int32]any)", "entries %v, want %v", m, received)
	}

	want := make(map[any]any, len(received))
	for i, g := range received {
		want[int64(i)] = g
	}
	if val.HasMembers() {
		keys, err := val.GetMemberKeys()
		if !c.expectNoErr(err, path, t, "As(map[any]any)") {
			return
		}
		for _, k := range keys {
			mv, err := val.GetMember(k)
			if !c.expectNoErr(err, path, t, "As(map[any]any)") {
				return
			}
			g, err := mv.As(polyglot.ShapeObject)
			if !c.expectNoErr(err, path, t, "As(map[any]any)") {
				return
			}
			want[k] = g
		}
	}
	x, err := val.As(polyglot.MapOf(polyglot.KeyObject))
	if !c.expectNoErr(err, path, t, "As(map[any]any)") {
		return
	}
	m := x.(map[any]any)
	c.expect(equalGeneric(m, want), path, t, "As(map[any]any)", "entries %v, want %v", m, want)

	g, err := val.As(polyglot.ShapeObject)
	if err != nil {
		return
	}
	if f, ok := g.(*polyglot.Foreign); ok {
		entries, err := f.Entries()
		if c.expectNoErr(err, path, t, "Foreign.Entries") {
			c.expect(equalGeneric(entries, m), path, t, "Foreign.Entries", "entries %v, want %v", entries, m)
		}
	}
}

func (c *checker) expectElements(path string, val *polyglot.Value, want []any, check string) {
	t := trait.ArrayElements
	size, err := val.GetArraySize()
	if !c.expectNoErr(err, path, t, check) {
		return
	}
	if !c.expect(size == int64(len(want)), path, t, check, "size %d after write back, want %d", size, len(want)) {
		return
	}
	for i := int64(0); i < size; i++ {
		el, err := val.GetArrayElement(i)
		if !c.expectNoErr(err, path, t, check) {
			return
		}
		g, _ := el.As(polyglot.ShapeObject)
		c.expect(equalGeneric(g, want[i]), path, t, check, "element %d is %v after write back, want %v", i, g, want[i])
	}
}

// functional checks the functional shapes of an executable or instantiable
// value. When args is non-nil all shapes are called and must agree.
func (c *checker) functional(path string, val *polyglot.Value, args []any) {
	t := trait.Executable
	if !val.CanExecute() {
		t = trait.Instantiable
	}

	var apply func(any) (any, error)
	if val.IsHostObject() || val.IsProxyObject() {
		x, err := val.As(polyglot.ShapeFunc)
		if !c.expectNoErr(err, path, t, "As(func)") {
			return
		}
		apply = x.(func(any) (any, error))
	} else {
		g, err := val.As(polyglot.ShapeObject)
		if !c.expectNoErr(err, path, t, "As(Object)") {
			return
		}
		f, ok := g.(*polyglot.Foreign)
		if !c.expect(ok, path, t, "As(Object)", "generic form %T is not callable", g) {
			return
		}
		apply = f.Apply
	}

	x, err := val.As(polyglot.ShapeVarArgsFunc)
	if !c.expectNoErr(err, path, t, "As(varargs func)") {
		return
	}
	call := x.(func([]any) (any, error))
	x, err = val.As(polyglot.ShapeVarArgs)
	if !c.expectNoErr(err, path, t, "As(VarArgs)") {
		return
	}
	varargs := x.(polyglot.VarArgs)
	_, err = val.As(polyglot.InterfaceOf(polyglot.VarArgsInterface))
	c.expectNoErr(err, path, t, "As(interface VarArgs)")

	if !val.HasMembers() {
		_, err := val.As(polyglot.InterfaceOf(polyglot.EmptyInterface))
		c.expectCast(err, path, t, "As(interface EmptyInterface)")
		_, err = val.As(polyglot.InterfaceOf(polyglot.NonFunctionalInterface))
		c.expectCast(err, path, t, "As(interface NonFunctionalInterface)")
	}
	if val.CanExecute() && !val.CanInstantiate() {
		_, err := val.As(polyglot.InterfaceOf(polyglot.FactoryInterface))
		c.expectCast(err, path, t, "As(interface Factory)")
	}
	if val.CanInstantiate() && !val.CanExecute() {
		_, err := val.As(polyglot.InterfaceOf(polyglot.CallableInterface))
		c.expectCast(err, path, t, "As(interface Callable)")
	}

	if args == nil {
		return
	}
	calls := []struct {
		name string
		fn   func() (any, error)
	}{
		{"func", func() (any, error) { return apply(args) }},
		{"varargs func", func() (any, error) { return call(args) }},
		{"VarArgs", func() (any, error) { return varargs.Invoke(args...) }},
	}
	var first trait.Set
	for i, cl := range calls {
		res, err := cl.fn()
		if !c.expectNoErr(err, path, t, "call via "+cl.name) {
			continue
		}
		rv, err := val.Context().AsValue(res)
		if !c.expectNoErr(err, path, t, "AsValue(result)") {
			continue
		}
		if i == 0 {
			first = rv.Traits()
		} else {
			c.expect(rv.Traits().Equal(first), path, t, "call via "+cl.name,
				"result traits %s differ from %s", rv.Traits(), first)
		}
		c.nested(path+"("+cl.name+")", rv)
	}
}

func isHostMap(val *polyglot.Value) bool {
	h, err := val.AsHostObject()
	return err == nil && h != nil && reflect.TypeOf(h).Kind() == reflect.Map
}

func indexPath(path string, i int64) string {
	return path + "[" + strconv.FormatInt(i, 10) + "]"
}

// equalGeneric compares generic representations: foreign views by the
// object they observe, funcs by code pointer, floats with NaN equal to
// itself, containers element by element.
func equalGeneric(a, b any) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case *polyglot.Foreign:
		y, ok := b.(*polyglot.Foreign)
		return ok && x.Same(y)
	case float64:
		y, ok := b.(float64)
		return ok && (x == y || math.IsNaN(x) && math.IsNaN(y))
	case []any:
		y, ok := b.([]any)
		return ok && equalSlices(x, y)
	case map[any]any:
		y, ok := b.(map[any]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for k, xv := range x {
			yv, ok := y[k]
			if !ok || !equalGeneric(xv, yv) {
				return false
			}
		}
		return true
	}
	if b == nil {
		return false
	}
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Type() != rb.Type() {
		return false
	}
	if ra.Kind() == reflect.Func {
		return ra.Pointer() == rb.Pointer()
	}
	switch ra.Kind() {
	case reflect.Struct, reflect.Array:
		// Interface fields may hold slices, which == rejects at run time.
		return reflect.DeepEqual(a, b)
	}
	if ra.Type().Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

func equalSlices(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !equalGeneric(a[i], b[i]) {
			return false
		}
	}
	return true
}
