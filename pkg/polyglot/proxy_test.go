package polyglot_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/funvibe/polyglot/pkg/conformance"
	"github.com/funvibe/polyglot/pkg/polyglot"
	"github.com/funvibe/polyglot/pkg/trait"
)

type counter struct {
	n int64
}

func (c *counter) Execute(args ...*polyglot.Value) (any, error) {
	for _, a := range args {
		d, err := a.AsLong()
		if err != nil {
			return nil, err
		}
		c.n += d
	}
	return c.n, nil
}

func (c *counter) GetMember(key string) any {
	if key == "n" {
		return c.n
	}
	return nil
}

func (c *counter) GetMemberKeys() []string { return []string{"n"} }

func (c *counter) HasMember(key string) bool { return key == "n" }

func (c *counter) PutMember(key string, v *polyglot.Value) error {
	if key != "n" {
		return errors.New("read only")
	}
	n, err := v.AsLong()
	if err != nil {
		return err
	}
	c.n = n
	return nil
}

func TestProxyCapabilitiesFollowInterfaces(t *testing.T) {
	ctx := polyglot.NewContext()
	c := &counter{}
	v, err := ctx.AsValue(c)
	if err != nil {
		t.Fatal(err)
	}
	want := trait.NewSet(trait.ProxyObject, trait.Members, trait.Executable)
	if got := v.Traits(); !got.Equal(want) {
		t.Fatalf("traits = %s, want %s", got, want)
	}
	if v.IsHostObject() {
		t.Error("proxy reported as host object")
	}

	res, err := v.Execute(int64(2), int64(3))
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := res.AsLong(); n != 5 {
		t.Errorf("Execute = %d", n)
	}
	if err := v.PutMember("n", int64(40)); err != nil {
		t.Fatal(err)
	}
	n, err := v.GetMember("n")
	if err != nil {
		t.Fatal(err)
	}
	if l, _ := n.AsLong(); l != 40 {
		t.Errorf("n = %d", l)
	}
	if _, err := v.GetMember("m"); !errors.Is(err, polyglot.ErrUnsupported) {
		t.Errorf("GetMember(m) err = %v", err)
	}

	target, err := v.AsProxyObject()
	if err != nil || target != c {
		t.Errorf("AsProxyObject = %v, %v", target, err)
	}
	g, _ := v.As(polyglot.ShapeObject)
	if g != c {
		t.Errorf("generic = %#v", g)
	}

	conformance.AssertValue(t, v, []any{int64(1)}, want.Slice()...)
}

type fixedArray []any

func (a fixedArray) Get(i int64) (any, error) { return a[i], nil }

func (a fixedArray) Set(i int64, v *polyglot.Value) error {
	g, err := v.As(polyglot.ShapeObject)
	a[i] = g
	return err
}

func (a fixedArray) Size() int64 { return int64(len(a)) }

func TestProxyArrayIndexChecks(t *testing.T) {
	ctx := polyglot.NewContext()
	arr := fixedArray{int64(1), "two"}
	v, err := ctx.AsValue(arr)
	if err != nil {
		t.Fatal(err)
	}
	for _, i := range []int64{-1, 2} {
		if _, err := v.GetArrayElement(i); !errors.Is(err, polyglot.ErrIndex) {
			t.Errorf("GetArrayElement(%d) err = %v", i, err)
		}
		if err := v.SetArrayElement(i, nil); !errors.Is(err, polyglot.ErrIndex) {
			t.Errorf("SetArrayElement(%d) err = %v", i, err)
		}
	}
	if err := v.SetArrayElement(1, 2.5); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(arr, fixedArray{int64(1), 2.5}) {
		t.Errorf("arr = %#v", arr)
	}
}

type address uintptr

func (a address) AsPointer() uintptr { return uintptr(a) }

func TestNativePointers(t *testing.T) {
	ctx := polyglot.NewContext()
	v, err := ctx.AsValue(address(0x1000))
	if err != nil {
		t.Fatal(err)
	}
	p, err := v.AsNativePointer()
	if err != nil || p != 0x1000 {
		t.Errorf("AsNativePointer = %#x, %v", p, err)
	}

	guest := ctx.Wrap(&polyglot.NativePointer{Address: 0x2000})
	if p, err := guest.AsNativePointer(); err != nil || p != 0x2000 {
		t.Errorf("AsNativePointer = %#x, %v", p, err)
	}
	if _, err := ctx.Wrap(&polyglot.Integer{Value: 1}).AsNativePointer(); !errors.Is(err, polyglot.ErrCast) {
		t.Errorf("integer as pointer: err = %v", err)
	}
}

// snapshot is a read-only proxy held by value. Its static type is
// comparable, but Data may hold a slice.
type snapshot struct {
	Data any
}

func (s snapshot) GetMember(key string) any {
	if key == "data" {
		return s.Data
	}
	return nil
}

func (s snapshot) GetMemberKeys() []string                 { return []string{"data"} }
func (s snapshot) HasMember(key string) bool               { return key == "data" }
func (s snapshot) PutMember(string, *polyglot.Value) error { return errors.New("read only") }

func TestValueProxyIdentity(t *testing.T) {
	ctx := polyglot.NewContext()
	a, err := ctx.AsValue(snapshot{Data: []int{1}})
	if err != nil {
		t.Fatal(err)
	}
	b, err := ctx.AsValue(snapshot{Data: []int{1}})
	if err != nil {
		t.Fatal(err)
	}
	if id := a.Identity(); id != nil {
		t.Errorf("Identity() = %v, want nil for an unhashable target", id)
	}
	if a.Same(b) {
		t.Error("distinct unhashable proxies reported the same")
	}
	if !a.Same(a) {
		t.Error("a handle is not the same as itself")
	}

	c, _ := ctx.AsValue(snapshot{Data: "x"})
	d, _ := ctx.AsValue(snapshot{Data: "x"})
	if c.Identity() == nil || !c.Same(d) {
		t.Error("equal hashable proxies should share an identity")
	}

	p, _ := ctx.AsValue(&counter{})
	q, _ := ctx.AsValue(&counter{})
	if p.Same(q) {
		t.Error("distinct pointer proxies reported the same")
	}
}

func TestMetaName(t *testing.T) {
	ctx := polyglot.NewContext()
	host, err := ctx.AsValue(&User{})
	if err != nil {
		t.Fatal(err)
	}
	proxy, err := ctx.AsValue(snapshot{})
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		val  *polyglot.Value
		want string
	}{
		{ctx.Wrap(&polyglot.Integer{Value: 1}), string(polyglot.INTEGER_OBJ)},
		{host, "*polyglot_test.User"},
		{proxy, "polyglot_test.snapshot"},
	}
	for _, tt := range tests {
		if got := tt.val.MetaName(); got != tt.want {
			t.Errorf("MetaName(%s) = %q, want %q", tt.val, got, tt.want)
		}
	}
}
