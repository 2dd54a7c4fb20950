// Package inspect audits host access statically. It loads Go packages with
// go/packages, describes their exported types as hostaccess members and
// evaluates a policy against them without running any host code.
//
// Marker tags come from the `polyglot` struct tag on fields and from
// directives in the doc comment of methods and constructors:
//
//	//polyglot:export
//	//polyglot:tags admin,audit
//
// A constructor of T is a package level function named NewT whose first
// result is T or *T.
package inspect

import (
	"context"
	"fmt"
	"go/ast"
	"go/types"
	"os"
	"reflect"
	"sort"
	"strings"

	"golang.org/x/tools/go/packages"

	"github.com/funvibe/polyglot/pkg/hostaccess"
)

const directivePrefix = "//polyglot:"

// Program is a set of loaded packages and their exported named types.
type Program struct {
	pkgs         []*packages.Package
	types        map[string]*Type
	ids          []string
	tags         map[types.Object][]hostaccess.Tag
	constructors map[string]*types.Func
}

// Load loads the packages matching patterns, resolved relative to dir.
func Load(ctx context.Context, dir string, patterns ...string) (*Program, error) {
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}
	cfg := &packages.Config{
		Context: ctx,
		Mode: packages.NeedName |
			packages.NeedTypes |
			packages.NeedTypesInfo |
			packages.NeedSyntax |
			packages.NeedImports |
			packages.NeedDeps,
		Dir: dir,
		Env: append(os.Environ(), "GOWORK=off"),
	}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("loading packages: %w", err)
	}

	var errs []string
	for _, pkg := range pkgs {
		for _, e := range pkg.Errors {
			errs = append(errs, fmt.Sprintf("%s: %s", pkg.PkgPath, e.Msg))
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("package errors:\n  %s", strings.Join(errs, "\n  "))
	}

	p := &Program{
		pkgs:         pkgs,
		types:        make(map[string]*Type),
		tags:         make(map[types.Object][]hostaccess.Tag),
		constructors: make(map[string]*types.Func),
	}
	for _, pkg := range pkgs {
		p.collectTypes(pkg)
		p.collectDirectives(pkg)
	}
	for _, pkg := range pkgs {
		p.collectConstructors(pkg)
	}
	sort.Strings(p.ids)
	return p, nil
}

func (p *Program) collectTypes(pkg *packages.Package) {
	scope := pkg.Types.Scope()
	for _, name := range scope.Names() {
		tn, ok := scope.Lookup(name).(*types.TypeName)
		if !ok || !tn.Exported() || tn.IsAlias() {
			continue
		}
		named, ok := tn.Type().(*types.Named)
		if !ok {
			continue
		}
		t := &Type{named: named}
		if _, dup := p.types[t.ID()]; !dup {
			p.types[t.ID()] = t
			p.ids = append(p.ids, t.ID())
		}
	}
}

// collectDirectives reads marker directives from function, method and
// interface method doc comments.
func (p *Program) collectDirectives(pkg *packages.Package) {
	record := func(ident *ast.Ident, doc *ast.CommentGroup) {
		if doc == nil {
			return
		}
		obj := pkg.TypesInfo.Defs[ident]
		if obj == nil {
			return
		}
		if tags := parseDirectives(doc); len(tags) > 0 {
			p.tags[obj] = append(p.tags[obj], tags...)
		}
	}
	for _, file := range pkg.Syntax {
		for _, decl := range file.Decls {
			switch d := decl.(type) {
			case *ast.FuncDecl:
				record(d.Name, d.Doc)
			case *ast.GenDecl:
				for _, spec := range d.Specs {
					ts, ok := spec.(*ast.TypeSpec)
					if !ok {
						continue
					}
					iface, ok := ts.Type.(*ast.InterfaceType)
					if !ok {
						continue
					}
					for _, m := range iface.Methods.List {
						for _, name := range m.Names {
							record(name, m.Doc)
						}
					}
				}
			}
		}
	}
}

func parseDirectives(doc *ast.CommentGroup) []hostaccess.Tag {
	var tags []hostaccess.Tag
	for _, c := range doc.List {
		rest, ok := strings.CutPrefix(c.Text, directivePrefix)
		if !ok {
			continue
		}
		verb, args, _ := strings.Cut(rest, " ")
		switch verb {
		case "export":
			tags = append(tags, hostaccess.Export)
		case "tags":
			tags = append(tags, hostaccess.ParseTags(args)...)
		}
	}
	return tags
}

func (p *Program) collectConstructors(pkg *packages.Package) {
	scope := pkg.Types.Scope()
	for _, name := range scope.Names() {
		fn, ok := scope.Lookup(name).(*types.Func)
		if !ok || !strings.HasPrefix(name, "New") {
			continue
		}
		res := fn.Type().(*types.Signature).Results()
		if res.Len() == 0 {
			continue
		}
		named := namedOf(res.At(0).Type())
		if named == nil || named.Obj().Name() != strings.TrimPrefix(name, "New") {
			continue
		}
		id := (&Type{named: named}).ID()
		if _, known := p.types[id]; known {
			p.constructors[id] = fn
		}
	}
}

// IDs returns the IDs of all exported named types, sorted.
func (p *Program) IDs() []string {
	return append([]string(nil), p.ids...)
}

// Resolve implements hostaccess.Resolver over the loaded types, so that
// policy files can exclude interfaces by implementation.
func (p *Program) Resolve(id string) (hostaccess.Type, error) {
	if t, ok := p.types[id]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("type %q is not in the loaded packages", id)
}

// Members describes the exported fields, methods and constructor of the
// type with the given ID: fields first, then methods in name order, then
// the constructor.
func (p *Program) Members(id string) ([]hostaccess.Member, error) {
	t, ok := p.types[id]
	if !ok {
		return nil, fmt.Errorf("type %q is not in the loaded packages", id)
	}
	out := p.fields(t)
	out = append(out, p.methods(t)...)
	if fn, ok := p.constructors[id]; ok {
		out = append(out, hostaccess.Member{
			Kind:  hostaccess.Constructor,
			Owner: t,
			Name:  hostaccess.ConstructorName,
			Tags:  p.tags[fn],
		})
	}
	return out, nil
}

type structLevel struct {
	owner *types.Named
	st    *types.Struct
}

// fields walks embedded structs breadth first. Shallower fields shadow
// deeper ones; names declared twice at the same depth are dropped.
func (p *Program) fields(t *Type) []hostaccess.Member {
	st, ok := t.named.Underlying().(*types.Struct)
	if !ok {
		return nil
	}
	var out []hostaccess.Member
	shadowed := make(map[string]bool)
	visited := map[*types.Named]bool{t.named: true}
	level := []structLevel{{owner: t.named, st: st}}

	for len(level) > 0 {
		var next []structLevel
		count := make(map[string]int)
		var found []hostaccess.Member
		for _, l := range level {
			for i := 0; i < l.st.NumFields(); i++ {
				f := l.st.Field(i)
				if shadowed[f.Name()] {
					continue
				}
				count[f.Name()]++
				if !f.Exported() {
					continue
				}
				found = append(found, hostaccess.Member{
					Kind:  hostaccess.Field,
					Owner: &Type{named: l.owner},
					Name:  f.Name(),
					Tags:  hostaccess.ParseTags(reflect.StructTag(l.st.Tag(i)).Get(hostaccess.StructTagKey)),
				})
				if !f.Embedded() {
					continue
				}
				en := namedOf(f.Type())
				if en == nil || visited[en] {
					continue
				}
				if est, ok := en.Underlying().(*types.Struct); ok {
					visited[en] = true
					next = append(next, structLevel{owner: en, st: est})
				}
			}
		}
		for _, m := range found {
			if count[m.Name] == 1 {
				out = append(out, m)
			}
		}
		for name := range count {
			shadowed[name] = true
		}
		level = next
	}
	return out
}

// declaring returns the type whose declaration holds fn. Methods promoted
// through embedding belong to the embedded type.
func (p *Program) declaring(t *Type, fn *types.Func) *Type {
	recv := fn.Type().(*types.Signature).Recv()
	if recv == nil {
		return t
	}
	named := namedOf(recv.Type())
	if named == nil || named.Obj() == t.named.Obj() {
		return t
	}
	owner := &Type{named: named}
	if known, ok := p.types[owner.ID()]; ok {
		return known
	}
	return owner
}

func (p *Program) methods(t *Type) []hostaccess.Member {
	var recv types.Type = t.named
	if !t.IsInterface() {
		recv = types.NewPointer(t.named)
	}
	mset := types.NewMethodSet(recv)
	var out []hostaccess.Member
	for i := 0; i < mset.Len(); i++ {
		fn, ok := mset.At(i).Obj().(*types.Func)
		if !ok || !fn.Exported() || fn.Name() == "PolyglotTags" {
			continue
		}
		out = append(out, hostaccess.Member{
			Kind:  hostaccess.Method,
			Owner: p.declaring(t, fn),
			Name:  fn.Name(),
			Tags:  p.tags[fn.Origin()],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
