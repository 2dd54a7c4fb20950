package inspect

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/funvibe/polyglot/pkg/hostaccess"
)

// Decision is the policy outcome for one member.
type Decision struct {
	Member  hostaccess.Member
	Allowed bool
}

// Audit lists the decisions of one policy over a program.
type Audit struct {
	Policy    string
	Decisions []Decision
}

// Audit evaluates policy against every member of the given types, or of
// all loaded types when ids is empty.
func (p *Program) Audit(policy *hostaccess.Policy, ids ...string) (*Audit, error) {
	if len(ids) == 0 {
		ids = p.ids
	}
	a := &Audit{Policy: policy.Name()}
	for _, id := range ids {
		members, err := p.Members(id)
		if err != nil {
			return nil, err
		}
		for _, m := range members {
			a.Decisions = append(a.Decisions, Decision{Member: m, Allowed: policy.Allows(m)})
		}
	}
	return a, nil
}

// Allowed returns the members the policy exposes.
func (a *Audit) Allowed() []hostaccess.Member {
	return a.filter(true)
}

// Denied returns the members the policy hides.
func (a *Audit) Denied() []hostaccess.Member {
	return a.filter(false)
}

func (a *Audit) filter(allowed bool) []hostaccess.Member {
	var out []hostaccess.Member
	for _, d := range a.Decisions {
		if d.Allowed == allowed {
			out = append(out, d.Member)
		}
	}
	return out
}

// WriteTable prints one aligned row per decision. mark renders the
// allowed/denied column.
func (a *Audit) WriteTable(w io.Writer, mark func(allowed bool) string) error {
	if mark == nil {
		mark = func(allowed bool) string {
			if allowed {
				return "allow"
			}
			return "deny"
		}
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, d := range a.Decisions {
		name := d.Member.Name
		if d.Member.Kind == hostaccess.Constructor {
			name = hostaccess.ConstructorName
		}
		fmt.Fprintf(tw, "%s\t%s\t%s.%s\t%v\n", mark(d.Allowed), d.Member.Kind, d.Member.Owner.ID(), name, d.Member.Tags)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%s: %d allowed, %d denied\n", a.Policy, len(a.Allowed()), len(a.Denied()))
	return err
}
