package conformance

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/funvibe/polyglot/pkg/hostaccess"
	"github.com/funvibe/polyglot/pkg/polyglot"
	"github.com/funvibe/polyglot/pkg/trait"
)

// Sample is one corpus entry: a value, the arguments used to call it and
// the traits it is expected to have.
type Sample struct {
	Name   string
	Value  *polyglot.Value
	Args   []any
	Traits trait.Set
}

// Point is the host struct used by the corpus. Its fields are exported to
// guests through struct tags, and its Norm1 method and constructor through
// PolyglotTags.
type Point struct {
	X     int64 `polyglot:"export"`
	Y     int64 `polyglot:"export"`
	label string
}

// NewPoint is the constructor registered for the Point host type.
func NewPoint(x, y int64) *Point {
	return &Point{X: x, Y: y, label: fmt.Sprintf("(%d, %d)", x, y)}
}

// Norm1 returns the Manhattan norm.
func (p *Point) Norm1() int64 {
	return abs(p.X) + abs(p.Y)
}

// Label is never exported.
func (p *Point) Label() string { return p.label }

func (*Point) PolyglotTags() map[string][]hostaccess.Tag {
	return map[string][]hostaccess.Tag{
		"Norm1":                    {hostaccess.Export},
		hostaccess.ConstructorName: {hostaccess.Export},
	}
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

// Corpus returns samples covering every realizable trait combination plus
// the numeric boundaries. Host samples depend on the context policy.
func Corpus(ctx *polyglot.Context) []Sample {
	var out []Sample
	add := func(name string, obj polyglot.Object, args []any, ts ...trait.Trait) {
		out = append(out, Sample{Name: name, Value: ctx.Wrap(obj), Args: args, Traits: trait.NewSet(ts...)})
	}

	add("null", &polyglot.Nil{}, nil, trait.Null)
	add("bool/true", &polyglot.Boolean{Value: true}, nil, trait.Boolean)
	add("bool/false", &polyglot.Boolean{Value: false}, nil, trait.Boolean)
	add("string/empty", &polyglot.String{}, nil, trait.String)
	add("string/rune", &polyglot.String{Value: "λ"}, nil, trait.String)
	add("string/word", &polyglot.String{Value: "hello"}, nil, trait.String)

	for _, n := range numbers() {
		add(fmt.Sprintf("number/%s/%s", strings.ToLower(string(n.Type())), n.Inspect()), n, nil, trait.Number)
	}

	add("list/empty", polyglot.NewList(), nil, trait.ArrayElements)
	add("list/mixed", polyglot.NewList(
		&polyglot.Integer{Value: 1},
		&polyglot.String{Value: "two"},
		&polyglot.Float{Value: math.NaN()},
		&polyglot.Nil{},
	), nil, trait.ArrayElements)
	add("list/nested", polyglot.NewList(
		polyglot.NewList(&polyglot.Integer{Value: 1}),
		polyglot.NewList(&polyglot.Integer{Value: 2}),
	), nil, trait.ArrayElements)

	add("record/empty", polyglot.NewRecord(nil), nil, trait.Members)
	add("record/fields", polyglot.NewRecord(map[string]polyglot.Object{
		"a": &polyglot.Integer{Value: 1},
		"b": &polyglot.String{Value: "x"},
		"c": polyglot.NewList(&polyglot.Boolean{Value: true}),
	}), nil, trait.Members)
	self := polyglot.NewRecord(map[string]polyglot.Object{"name": &polyglot.String{Value: "self"}})
	_ = self.WriteMember("self", self)
	add("record/cycle", self, nil, trait.Members)

	add("builtin/sum", &polyglot.Builtin{Name: "sum", Fn: sum}, []any{int64(1), int64(2)}, trait.Executable)
	add("constructor/box", &polyglot.Constructor{Name: "box", New: box}, []any{"x"}, trait.Instantiable)
	add("native", &polyglot.NativePointer{Address: 0xdead}, nil, trait.NativePointer)

	add("composite/members+elements", &polyglot.Composite{
		Name:     "table",
		Members:  polyglot.NewRecord(map[string]polyglot.Object{"title": &polyglot.String{Value: "t"}}),
		Elements: polyglot.NewList(&polyglot.Integer{Value: 10}, &polyglot.Integer{Value: 20}),
	}, nil, trait.Members, trait.ArrayElements)
	add("composite/execute+instantiate", &polyglot.Composite{
		Name: "class", Exec: sum, New: box,
	}, []any{int64(3), int64(4)}, trait.Executable, trait.Instantiable)
	add("composite/execute+members", &polyglot.Composite{
		Name: "module", Exec: sum,
		Members: polyglot.NewRecord(map[string]polyglot.Object{"version": &polyglot.Integer{Value: 1}}),
	}, []any{int64(5)}, trait.Executable, trait.Members)
	add("composite/instantiate+members", &polyglot.Composite{
		Name: "type", New: box,
		Members: polyglot.NewRecord(map[string]polyglot.Object{"kind": &polyglot.String{Value: "box"}}),
	}, []any{true}, trait.Instantiable, trait.Members)
	add("composite/execute+elements", &polyglot.Composite{
		Name: "vector", Exec: sum,
		Elements: polyglot.NewList(&polyglot.Integer{Value: 1}),
	}, []any{}, trait.Executable, trait.ArrayElements)
	add("composite/all", &polyglot.Composite{
		Name:     "everything",
		Members:  polyglot.NewRecord(map[string]polyglot.Object{"k": &polyglot.Nil{}}),
		Elements: polyglot.NewList(&polyglot.String{Value: "e"}),
		Exec:     sum,
		New:      box,
	}, []any{int64(1)}, trait.Members, trait.ArrayElements, trait.Executable, trait.Instantiable)
	add("composite/none", &polyglot.Composite{Name: "opaque"}, nil)

	out = append(out, proxySamples(ctx)...)
	out = append(out, hostSamples(ctx)...)
	return out
}

// numbers sweeps the integral and floating boundaries of every width.
func numbers() []polyglot.Object {
	ints := []int64{
		0, 1, -1,
		math.MaxInt8, math.MaxInt8 + 1, math.MinInt8, math.MinInt8 - 1,
		math.MaxInt16, math.MaxInt16 + 1, math.MinInt16, math.MinInt16 - 1,
		math.MaxInt32, math.MaxInt32 + 1, math.MinInt32, math.MinInt32 - 1,
		1 << 24, 1<<24 + 1,
		1 << 53, 1<<53 + 1,
		math.MaxInt64, math.MinInt64,
	}
	floats := []float64{
		0, math.Copysign(0, -1), 0.5, -1.5, 42,
		math.MaxInt32, math.MaxInt32 + 1,
		math.MaxFloat32, math.SmallestNonzeroFloat32, math.SmallestNonzeroFloat64,
		1 << 63, -(1 << 63),
		math.MaxFloat64, math.Inf(1), math.Inf(-1), math.NaN(),
	}
	out := make([]polyglot.Object, 0, len(ints)+len(floats))
	for _, i := range ints {
		out = append(out, &polyglot.Integer{Value: i})
	}
	for _, f := range floats {
		out = append(out, &polyglot.Float{Value: f})
	}
	return out
}

func sum(args ...polyglot.Object) (polyglot.Object, error) {
	var total int64
	for _, a := range args {
		i, ok := a.(*polyglot.Integer)
		if !ok {
			return nil, fmt.Errorf("sum: %s is not an integer", a.Inspect())
		}
		total += i.Value
	}
	return &polyglot.Integer{Value: total}, nil
}

func box(args ...polyglot.Object) (polyglot.Object, error) {
	return polyglot.NewRecord(map[string]polyglot.Object{
		"value": polyglot.NewList(args...),
	}), nil
}

func proxySamples(ctx *polyglot.Context) []Sample {
	wrap := func(x any) *polyglot.Value {
		v, err := ctx.AsValue(x)
		if err != nil {
			panic(err)
		}
		return v
	}
	proxy := func(ts ...trait.Trait) trait.Set {
		return trait.NewSet(append(ts, trait.ProxyObject)...)
	}
	return []Sample{
		{Name: "proxy/object", Value: wrap(&MapProxy{Entries: map[string]any{"a": int64(1), "b": "two"}}),
			Traits: proxy(trait.Members)},
		{Name: "proxy/array", Value: wrap(&ArrayProxy{Items: []any{int64(1), "x", nil}}),
			Traits: proxy(trait.ArrayElements)},
		{Name: "proxy/executable", Value: wrap(FuncProxy(echo)), Args: []any{int64(7)},
			Traits: proxy(trait.Executable)},
		{Name: "proxy/instantiable", Value: wrap(FactoryProxy(echo)), Args: []any{"made"},
			Traits: proxy(trait.Instantiable)},
		{Name: "proxy/native", Value: wrap(PointerProxy(0xbeef)),
			Traits: proxy(trait.NativePointer)},
	}
}

func echo(args ...*polyglot.Value) (any, error) {
	if len(args) == 0 {
		return nil, nil
	}
	return args[0].As(polyglot.ShapeObject)
}

// MapProxy is a ProxyObject backed by a Go map.
type MapProxy struct {
	Entries map[string]any
}

func (p *MapProxy) GetMember(key string) any { return p.Entries[key] }

func (p *MapProxy) GetMemberKeys() []string {
	keys := make([]string, 0, len(p.Entries))
	for k := range p.Entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (p *MapProxy) HasMember(key string) bool {
	_, ok := p.Entries[key]
	return ok
}

func (p *MapProxy) PutMember(key string, value *polyglot.Value) error {
	g, err := value.As(polyglot.ShapeObject)
	if err != nil {
		return err
	}
	p.Entries[key] = g
	return nil
}

// ArrayProxy is a ProxyArray backed by a Go slice.
type ArrayProxy struct {
	Items []any
}

func (p *ArrayProxy) Get(index int64) (any, error) { return p.Items[index], nil }

func (p *ArrayProxy) Set(index int64, value *polyglot.Value) error {
	g, err := value.As(polyglot.ShapeObject)
	if err != nil {
		return err
	}
	p.Items[index] = g
	return nil
}

func (p *ArrayProxy) Size() int64 { return int64(len(p.Items)) }

// FuncProxy is a ProxyExecutable.
type FuncProxy func(args ...*polyglot.Value) (any, error)

func (f FuncProxy) Execute(args ...*polyglot.Value) (any, error) { return f(args...) }

// FactoryProxy is a ProxyInstantiable.
type FactoryProxy func(args ...*polyglot.Value) (any, error)

func (f FactoryProxy) NewInstance(args ...*polyglot.Value) (any, error) { return f(args...) }

// PointerProxy is a ProxyNativeObject.
type PointerProxy uintptr

func (p PointerProxy) AsPointer() uintptr { return uintptr(p) }

func hostSamples(ctx *polyglot.Context) []Sample {
	policy := ctx.Policy()
	var out []Sample
	add := func(name string, x any, args []any, ts ...trait.Trait) {
		v, err := ctx.AsValue(x)
		if err != nil {
			panic(err)
		}
		out = append(out, Sample{Name: name, Value: v, Args: args, Traits: trait.NewSet(append(ts, trait.HostObject)...)})
	}
	listTraits := func(allowed bool) []trait.Trait {
		if allowed {
			return []trait.Trait{trait.Members, trait.ArrayElements}
		}
		return []trait.Trait{trait.Members}
	}

	add("host/struct", NewPoint(1, -2), nil, trait.Members)
	add("host/struct-value", Point{X: 3}, nil, trait.Members)
	add("host/slice", []int64{1, 2, 3}, nil, listTraits(policy.AllowsListAccess())...)
	add("host/slice-empty", []string{}, nil, listTraits(policy.AllowsListAccess())...)
	add("host/array", [3]string{"a", "b", "c"}, nil, listTraits(policy.AllowsArrayAccess())...)
	add("host/map", map[string]int64{"a": 1, "b": 2}, nil, trait.Members)
	add("host/func", func(a, b int64) int64 { return a + b }, []any{int64(1), int64(2)},
		trait.Members, trait.Executable)

	pointType := reflect.TypeFor[Point]()
	ht, err := ctx.HostType(pointType, NewPoint)
	if err != nil {
		panic(err)
	}
	var ts []trait.Trait
	if policy.AllowsConstructor(pointType) {
		ts = append(ts, trait.Instantiable)
	}
	out = append(out, Sample{Name: "host/type", Value: ht, Args: []any{int64(3), int64(4)},
		Traits: trait.NewSet(append(ts, trait.HostObject)...)})
	return out
}
