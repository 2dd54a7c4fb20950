package inspect

import (
	"go/types"

	"github.com/funvibe/polyglot/pkg/hostaccess"
)

// Type is a hostaccess.Type backed by a go/types named type.
type Type struct {
	named *types.Named
}

// ID returns "import/path.Name".
func (t *Type) ID() string {
	obj := t.named.Obj()
	if obj.Pkg() == nil {
		return obj.Name()
	}
	return obj.Pkg().Path() + "." + obj.Name()
}

func (t *Type) String() string { return t.ID() }

// IsInterface reports whether the underlying type is an interface.
func (t *Type) IsInterface() bool {
	return types.IsInterface(t.named)
}

// SubtypeOf reports whether t is ban, embeds ban, or implements ban when ban
// is a loaded interface. Other Type implementations match on ID along the
// embedding chain.
func (t *Type) SubtypeOf(ban hostaccess.Type) bool {
	if ban == nil {
		return false
	}
	other, _ := ban.(*Type)
	return embedsType(t.named, ban.ID(), other, make(map[*types.Named]bool))
}

func embedsType(n *types.Named, banID string, ban *Type, seen map[*types.Named]bool) bool {
	if seen[n] {
		return false
	}
	seen[n] = true

	if (&Type{named: n}).ID() == banID {
		return true
	}
	if ban != nil {
		if types.Identical(n, ban.named) {
			return true
		}
		if iface, ok := ban.named.Underlying().(*types.Interface); ok {
			if types.Implements(n, iface) || (!types.IsInterface(n) && types.Implements(types.NewPointer(n), iface)) {
				return true
			}
		}
	}
	st, ok := n.Underlying().(*types.Struct)
	if !ok {
		return false
	}
	for i := 0; i < st.NumFields(); i++ {
		f := st.Field(i)
		if !f.Embedded() {
			continue
		}
		if en := namedOf(f.Type()); en != nil && embedsType(en, banID, ban, seen) {
			return true
		}
	}
	return false
}

// namedOf strips pointers and returns the named type, if any.
func namedOf(t types.Type) *types.Named {
	for {
		switch x := t.(type) {
		case *types.Pointer:
			t = x.Elem()
		case *types.Named:
			return x
		case *types.Alias:
			t = types.Unalias(x)
		default:
			return nil
		}
	}
}
