// Package conformance checks that foreign values honor the contract implied
// by their traits: predicates, conversions, projections, functional shapes
// and the numeric laws.
package conformance

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/funvibe/polyglot/pkg/polyglot"
	"github.com/funvibe/polyglot/pkg/trait"
)

// DefaultMaxDepth bounds recursion into elements, members and call results.
const DefaultMaxDepth = 8

const subjectLimit = 120

// Validator runs conformance checks. A Validator is stateless between calls
// and safe for concurrent use.
type Validator struct {
	logger   zerolog.Logger
	maxDepth int
}

// Option configures a Validator.
type Option func(*Validator)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(v *Validator) { v.logger = l }
}

// WithMaxDepth sets how deep nested values are checked. Values below the
// limit are skipped silently.
func WithMaxDepth(n int) Option {
	return func(v *Validator) {
		if n > 0 {
			v.maxDepth = n
		}
	}
}

// New returns a Validator.
func New(opts ...Option) *Validator {
	v := &Validator{logger: zerolog.Nop(), maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Detect returns the trait snapshot of val.
func Detect(val *polyglot.Value) trait.Set {
	return val.Traits()
}

// Check validates val against the given traits, or against its detected
// traits when none are given. args, when non-nil, are used to call
// executable and instantiable values.
func (v *Validator) Check(val *polyglot.Value, args []any, traits ...trait.Trait) *Report {
	if len(traits) == 0 {
		return v.CheckSet(val, args, Detect(val))
	}
	return v.CheckSet(val, args, trait.NewSet(traits...))
}

// CheckSet validates val against declared. Every trait in declared gets its
// positive checks and every other trait its negative checks. Elements,
// members and call results are checked against their detected traits.
func (v *Validator) CheckSet(val *polyglot.Value, args []any, declared trait.Set) *Report {
	r := &Report{
		ID:       uuid.New(),
		Subject:  subject(val),
		Declared: declared,
		Detected: Detect(val),
		Started:  time.Now(),
	}
	c := &checker{v: v, report: r, active: make(map[any]bool)}
	c.value("$", val, args, declared)
	r.Duration = time.Since(r.Started)

	ev := v.logger.Debug()
	if !r.OK() {
		ev = v.logger.Warn()
	}
	ev.Str("report", r.ID.String()).
		Str("subject", r.Subject).
		Stringer("traits", declared).
		Int("checks", r.Checks).
		Int("failures", len(r.Failures)).
		Msg("conformance check finished")
	return r
}

func subject(val *polyglot.Value) string {
	s := val.String()
	if utf8.RuneCountInString(s) <= subjectLimit {
		return s
	}
	return string([]rune(s)[:subjectLimit]) + "..."
}

// checker accumulates the results of one Check.
type checker struct {
	v      *Validator
	report *Report
	active map[any]bool
	depth  int
}

func (c *checker) expect(ok bool, path string, t any, check, format string, args ...any) bool {
	c.report.Checks++
	if !ok {
		f := Failure{Path: path, Trait: fmt.Sprint(t), Check: check, Message: fmt.Sprintf(format, args...)}
		c.report.Failures = append(c.report.Failures, f)
		c.v.logger.Debug().Str("path", path).Str("check", check).Msg(f.Message)
	}
	return ok
}

func (c *checker) expectNoErr(err error, path string, t any, check string) bool {
	return c.expect(err == nil, path, t, check, "unexpected error: %v", err)
}

func (c *checker) expectCast(err error, path string, t any, check string) bool {
	return c.expect(errors.Is(err, polyglot.ErrCast), path, t, check, "want cast error, got %v", err)
}

func (c *checker) expectUnsupported(err error, path string, t any, check string) bool {
	return c.expect(errors.Is(err, polyglot.ErrUnsupported), path, t, check, "want unsupported error, got %v", err)
}

func (c *checker) value(path string, val *polyglot.Value, args []any, declared trait.Set) {
	if c.depth >= c.v.maxDepth {
		return
	}
	if id := val.Identity(); id != nil {
		if c.active[id] {
			return
		}
		c.active[id] = true
		defer delete(c.active, id)
	}
	c.depth++
	defer func() { c.depth-- }()

	c.general(path, val)
	for _, t := range declared.Slice() {
		c.declared(path, val, args, t)
	}
	for _, t := range declared.Complement().Slice() {
		c.undeclared(path, val, t)
	}
	c.mapExclusions(path, val)
}

// nested checks a value reached from the one at path against its detected
// traits.
func (c *checker) nested(path string, val *polyglot.Value) {
	c.value(path, val, nil, Detect(val))
}

func (c *checker) general(path string, val *polyglot.Value) {
	c.expect(val.String() != "", path, General, "String", "empty string form")
	c.expect(val.MetaName() != "", path, General, "MetaName", "no type name")

	same, err := val.As(polyglot.ShapeValue)
	if c.expectNoErr(err, path, General, "As(Value)") {
		c.expect(same == val, path, General, "As(Value)", "got a different handle %v", same)
	}

	g, err := val.As(polyglot.ShapeObject)
	if !c.expectNoErr(err, path, General, "As(Object)") {
		return
	}
	back, err := val.Context().AsValue(g)
	if !c.expectNoErr(err, path, General, "AsValue(As(Object))") {
		return
	}
	c.expect(back.Traits().Equal(val.Traits()), path, General, "AsValue(As(Object))",
		"traits %s after round trip, want %s", back.Traits(), val.Traits())
	if f, ok := g.(*polyglot.Foreign); ok {
		c.expect(back.Same(val), path, General, "AsValue(As(Object))", "round trip through %s lost identity", f)
	}
}

func (c *checker) declared(path string, val *polyglot.Value, args []any, t trait.Trait) {
	switch t {
	case trait.Null:
		c.expect(val.IsNull(), path, t, "IsNull", "false")

	case trait.Boolean:
		c.expect(val.IsBoolean(), path, t, "IsBoolean", "false")
		b, err := val.AsBoolean()
		if c.expectNoErr(err, path, t, "AsBoolean") {
			x, err := val.As(polyglot.ShapeBool)
			if c.expectNoErr(err, path, t, "As(bool)") {
				c.expect(x == b, path, t, "As(bool)", "got %v, want %v", x, b)
			}
		}

	case trait.String:
		c.expect(val.IsString(), path, t, "IsString", "false")
		s, err := val.AsString()
		if !c.expectNoErr(err, path, t, "AsString") {
			return
		}
		x, err := val.As(polyglot.ShapeString)
		if c.expectNoErr(err, path, t, "As(string)") {
			c.expect(x == s, path, t, "As(string)", "got %v, want %q", x, s)
		}
		r, err := val.As(polyglot.ShapeRune)
		if utf8.RuneCountInString(s) == 1 {
			want, _ := utf8.DecodeRuneInString(s)
			if c.expectNoErr(err, path, t, "As(rune)") {
				c.expect(r == want, path, t, "As(rune)", "got %v, want %q", r, want)
			}
		} else {
			c.expectCast(err, path, t, "As(rune)")
		}

	case trait.Number:
		c.expect(val.IsNumber(), path, t, "IsNumber", "false")
		c.numeric(path, val)

	case trait.ArrayElements:
		c.expect(val.HasArrayElements(), path, t, "HasArrayElements", "false")
		c.arrays(path, val)

	case trait.Members:
		c.expect(val.HasMembers(), path, t, "HasMembers", "false")
		keys, err := val.GetMemberKeys()
		if !c.expectNoErr(err, path, t, "GetMemberKeys") {
			return
		}
		for _, k := range keys {
			has, err := val.HasMember(k)
			if c.expectNoErr(err, path, t, "HasMember") {
				c.expect(has, path, t, "HasMember", "listed key %q is not a member", k)
			}
			m, err := val.GetMember(k)
			if c.expectNoErr(err, path, t, "GetMember") {
				c.nested(path+"."+k, m)
			}
		}

	case trait.Executable:
		c.expect(val.CanExecute(), path, t, "CanExecute", "false")
		c.functional(path, val, args)
		if args != nil {
			res, err := val.Execute(args...)
			if c.expectNoErr(err, path, t, "Execute") {
				c.nested(path+"()", res)
			}
		}

	case trait.Instantiable:
		c.expect(val.CanInstantiate(), path, t, "CanInstantiate", "false")
		_, err := val.As(polyglot.ShapeFunc)
		c.expectNoErr(err, path, t, "As(func)")
		if args != nil {
			res, err := val.NewInstance(args...)
			if c.expectNoErr(err, path, t, "NewInstance") {
				c.nested(path+".new()", res)
			}
		}
		if !val.CanExecute() {
			c.functional(path, val, args)
		}

	case trait.HostObject:
		c.expect(val.IsHostObject(), path, t, "IsHostObject", "false")
		h, err := val.AsHostObject()
		if c.expectNoErr(err, path, t, "AsHostObject") {
			c.expect(!polyglot.IsProxy(h), path, t, "AsHostObject", "host object %T is a proxy", h)
		}

	case trait.ProxyObject:
		c.expect(val.IsProxyObject(), path, t, "IsProxyObject", "false")
		p, err := val.AsProxyObject()
		if c.expectNoErr(err, path, t, "AsProxyObject") {
			c.expect(polyglot.IsProxy(p), path, t, "AsProxyObject", "%T implements no proxy interface", p)
		}

	case trait.NativePointer:
		c.expect(val.IsNativePointer(), path, t, "IsNativePointer", "false")
		_, err := val.AsNativePointer()
		c.expectNoErr(err, path, t, "AsNativePointer")
	}
}

func (c *checker) undeclared(path string, val *polyglot.Value, t trait.Trait) {
	switch t {
	case trait.Null:
		c.expect(!val.IsNull(), path, t, "IsNull", "true for an undeclared trait")

	case trait.Boolean:
		c.expect(!val.IsBoolean(), path, t, "IsBoolean", "true for an undeclared trait")
		_, err := val.AsBoolean()
		c.expectCast(err, path, t, "AsBoolean")
		_, err = val.As(polyglot.ShapeBool)
		c.expectCast(err, path, t, "As(bool)")

	case trait.String:
		c.expect(!val.IsString(), path, t, "IsString", "true for an undeclared trait")
		_, err := val.AsString()
		c.expectCast(err, path, t, "AsString")
		_, err = val.As(polyglot.ShapeString)
		c.expectCast(err, path, t, "As(string)")
		_, err = val.As(polyglot.ShapeRune)
		c.expectCast(err, path, t, "As(rune)")

	case trait.Number:
		c.expect(!val.IsNumber(), path, t, "IsNumber", "true for an undeclared trait")
		fits := []struct {
			name string
			fn   func() bool
		}{
			{"FitsInByte", val.FitsInByte},
			{"FitsInShort", val.FitsInShort},
			{"FitsInInt", val.FitsInInt},
			{"FitsInLong", val.FitsInLong},
			{"FitsInFloat", val.FitsInFloat},
			{"FitsInDouble", val.FitsInDouble},
		}
		for _, f := range fits {
			c.expect(!f.fn(), path, t, f.name, "true for a non-number")
		}
		for _, s := range numericShapes {
			_, err := val.As(s)
			c.expectCast(err, path, t, "As("+s.String()+")")
		}

	case trait.Members:
		c.expect(!val.HasMembers(), path, t, "HasMembers", "true for an undeclared trait")
		_, err := val.HasMember("asdf")
		c.expectUnsupported(err, path, t, "HasMember")
		_, err = val.GetMember("asdf")
		c.expectUnsupported(err, path, t, "GetMember")
		err = val.PutMember("", "")
		c.expectUnsupported(err, path, t, "PutMember")
		_, err = val.GetMemberKeys()
		c.expectUnsupported(err, path, t, "GetMemberKeys")

	case trait.ArrayElements:
		c.expect(!val.HasArrayElements(), path, t, "HasArrayElements", "true for an undeclared trait")
		_, err := val.GetArrayElement(0)
		c.expectUnsupported(err, path, t, "GetArrayElement")
		err = val.SetArrayElement(0, nil)
		c.expectUnsupported(err, path, t, "SetArrayElement")
		_, err = val.GetArraySize()
		c.expectUnsupported(err, path, t, "GetArraySize")

	case trait.Executable:
		c.expect(!val.CanExecute(), path, t, "CanExecute", "true for an undeclared trait")
		_, err := val.Execute()
		c.expectUnsupported(err, path, t, "Execute")
		if !val.CanInstantiate() {
			c.noFunctionalShapes(path, val, t)
		}

	case trait.Instantiable:
		c.expect(!val.CanInstantiate(), path, t, "CanInstantiate", "true for an undeclared trait")
		_, err := val.NewInstance()
		c.expectUnsupported(err, path, t, "NewInstance")
		if !val.CanExecute() {
			c.noFunctionalShapes(path, val, t)
		}

	case trait.HostObject:
		c.expect(!val.IsHostObject(), path, t, "IsHostObject", "true for an undeclared trait")
		_, err := val.AsHostObject()
		c.expectCast(err, path, t, "AsHostObject")

	case trait.ProxyObject:
		c.expect(!val.IsProxyObject(), path, t, "IsProxyObject", "true for an undeclared trait")
		_, err := val.AsProxyObject()
		c.expectCast(err, path, t, "AsProxyObject")

	case trait.NativePointer:
		c.expect(!val.IsNativePointer(), path, t, "IsNativePointer", "true for an undeclared trait")
		_, err := val.AsNativePointer()
		c.expectCast(err, path, t, "AsNativePointer")
	}
}

var numericShapes = []polyglot.Shape{
	polyglot.ShapeNumber,
	polyglot.ShapeInt8,
	polyglot.ShapeInt16,
	polyglot.ShapeInt32,
	polyglot.ShapeInt64,
	polyglot.ShapeFloat32,
	polyglot.ShapeFloat64,
}

var functionalShapes = []polyglot.Shape{
	polyglot.ShapeFunc,
	polyglot.ShapeVarArgsFunc,
	polyglot.ShapeVarArgs,
	polyglot.InterfaceOf(polyglot.VarArgsInterface),
}

func (c *checker) noFunctionalShapes(path string, val *polyglot.Value, t trait.Trait) {
	for _, s := range functionalShapes {
		_, err := val.As(s)
		c.expectCast(err, path, t, "As("+s.String()+")")
	}
}

// mapExclusions checks that the excluded key kinds never project, except
// for host Go maps which follow host semantics, and null.
func (c *checker) mapExclusions(path string, val *polyglot.Value) {
	if val.IsNull() || isHostMap(val) {
		return
	}
	for _, k := range polyglot.ExcludedKeys() {
		shape := polyglot.MapOf(k)
		_, err := val.As(shape)
		c.expectCast(err, path, General, "As("+shape.String()+")")
	}
}
