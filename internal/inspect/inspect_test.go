package inspect

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/funvibe/polyglot/pkg/hostaccess"
)

const bankSource = `package bank

import "io"

type Audited struct {
	Trail []string ` + "`polyglot:\"export\"`" + `
}

// Entries returns the audit trail.
//polyglot:export
func (a *Audited) Entries() []string { return a.Trail }

type Account struct {
	Audited
	Owner   string ` + "`polyglot:\"export\"`" + `
	Balance int64  ` + "`polyglot:\"admin\"`" + `
	pin     int
}

//polyglot:export
func NewAccount(owner string) *Account { return &Account{Owner: owner} }

// Deposit adds amount.
//polyglot:export
func (a *Account) Deposit(amount int64) { a.Balance += amount }

//polyglot:tags admin,ops
func (a *Account) Close() error { return nil }

func (a *Account) Pin() int { return a.pin }

type Ledger struct{}

func (Ledger) Write(p []byte) (int, error) { return len(p), nil }

type Store interface {
	//polyglot:export
	Get(key string) string
	Put(key, value string)
}

var _ io.Writer = Ledger{}
`

func loadBank(t *testing.T) *Program {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"go.mod":  "module example.com/bank\n\ngo 1.21\n",
		"bank.go": bankSource,
	}
	for name, src := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	p, err := Load(context.Background(), dir, "./...")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return p
}

func memberNames(ms []hostaccess.Member) []string {
	var out []string
	for _, m := range ms {
		out = append(out, m.String())
	}
	return out
}

func TestIDs(t *testing.T) {
	p := loadBank(t)
	want := []string{
		"example.com/bank.Account",
		"example.com/bank.Audited",
		"example.com/bank.Ledger",
		"example.com/bank.Store",
	}
	if got := p.IDs(); !reflect.DeepEqual(got, want) {
		t.Errorf("IDs() = %v", got)
	}
}

func TestMembers(t *testing.T) {
	p := loadBank(t)
	ms, err := p.Members("example.com/bank.Account")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"field example.com/bank.Account.Audited",
		"field example.com/bank.Account.Owner",
		"field example.com/bank.Account.Balance",
		"field example.com/bank.Audited.Trail",
		"method example.com/bank.Account.Close",
		"method example.com/bank.Account.Deposit",
		"method example.com/bank.Audited.Entries",
		"method example.com/bank.Account.Pin",
		"constructor example.com/bank.Account",
	}
	if got := memberNames(ms); !reflect.DeepEqual(got, want) {
		t.Errorf("members:\n got %v\nwant %v", got, want)
	}

	tags := map[string][]hostaccess.Tag{}
	for _, m := range ms {
		tags[m.Kind.String()+" "+m.Name] = m.Tags
	}
	checks := map[string][]hostaccess.Tag{
		"field Owner":     {hostaccess.Export},
		"field Balance":   {"admin"},
		"field Trail":     {hostaccess.Export},
		"method Deposit":  {hostaccess.Export},
		"method Close":    {"admin", "ops"},
		"method Entries":  {hostaccess.Export},
		"method Pin":      nil,
		"constructor new": {hostaccess.Export},
	}
	for k, want := range checks {
		if got := tags[k]; !reflect.DeepEqual(got, want) {
			t.Errorf("%s tags = %v, want %v", k, got, want)
		}
	}

	if _, err := p.Members("example.com/bank.Missing"); err == nil {
		t.Error("expected an error for an unknown type")
	}
}

func TestInterfaceMembers(t *testing.T) {
	p := loadBank(t)
	ms, err := p.Members("example.com/bank.Store")
	if err != nil {
		t.Fatal(err)
	}
	if len(ms) != 2 || ms[0].Name != "Get" || !ms[0].HasTag(hostaccess.Export) || ms[1].HasTag(hostaccess.Export) {
		t.Errorf("Store members = %v", memberNames(ms))
	}
}

func TestAuditExplicit(t *testing.T) {
	p := loadBank(t)
	a, err := p.Audit(hostaccess.Explicit, "example.com/bank.Account")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"field example.com/bank.Account.Owner",
		"field example.com/bank.Audited.Trail",
		"method example.com/bank.Account.Deposit",
		"method example.com/bank.Audited.Entries",
		"constructor example.com/bank.Account",
	}
	if got := memberNames(a.Allowed()); !reflect.DeepEqual(got, want) {
		t.Errorf("allowed:\n got %v\nwant %v", got, want)
	}
	if len(a.Allowed())+len(a.Denied()) != len(a.Decisions) {
		t.Error("allowed and denied do not partition the decisions")
	}
}

func TestAuditExcludesEmbeddedTypes(t *testing.T) {
	p := loadBank(t)
	cfg, err := hostaccess.ParseConfig([]byte(`
name: audit
allow_public_access: true
deny:
  - type: example.com/bank.Audited
  - type: io.Writer
`), "audit.yaml")
	if err != nil {
		t.Fatal(err)
	}
	// io.Writer is not among the loaded types, so it stays nominal and
	// cannot match Ledger by implementation.
	policy, err := cfg.Build(p)
	if err != nil {
		t.Fatal(err)
	}
	a, err := p.Audit(policy)
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range a.Decisions {
		owner := d.Member.Owner.ID()
		switch {
		case owner == "example.com/bank.Account" || owner == "example.com/bank.Audited":
			if d.Allowed {
				t.Errorf("%s allowed despite excluded embedded type", d.Member)
			}
		case !d.Allowed:
			t.Errorf("%s denied", d.Member)
		}
	}
}

func TestAuditExactExclusionCoversPromotedMethods(t *testing.T) {
	p := loadBank(t)
	audited, err := p.Resolve("example.com/bank.Audited")
	if err != nil {
		t.Fatal(err)
	}
	b := hostaccess.NewBuilder().AllowPublicAccess(true)
	if err := b.DenyAccessOf(audited, false); err != nil {
		t.Fatal(err)
	}
	a, err := p.Audit(b.Build(), "example.com/bank.Account")
	if err != nil {
		t.Fatal(err)
	}
	denied := memberNames(a.Denied())
	want := []string{
		"field example.com/bank.Audited.Trail",
		"method example.com/bank.Audited.Entries",
	}
	if !reflect.DeepEqual(denied, want) {
		t.Errorf("denied:\n got %v\nwant %v", denied, want)
	}
}

func TestAuditInterfaceExclusion(t *testing.T) {
	p := loadBank(t)
	store, err := p.Resolve("example.com/bank.Store")
	if err != nil {
		t.Fatal(err)
	}
	b := hostaccess.NewBuilder().AllowPublicAccess(true)
	if err := b.DenyAccess(store); err != nil {
		t.Fatal(err)
	}
	a, err := p.Audit(b.Build(), "example.com/bank.Store", "example.com/bank.Ledger")
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range a.Decisions {
		wantAllowed := d.Member.Owner.ID() == "example.com/bank.Ledger"
		if d.Allowed != wantAllowed {
			t.Errorf("%s allowed = %v", d.Member, d.Allowed)
		}
	}
}

func TestWriteTable(t *testing.T) {
	p := loadBank(t)
	a, err := p.Audit(hostaccess.None, "example.com/bank.Ledger")
	if err != nil {
		t.Fatal(err)
	}
	var sb strings.Builder
	if err := a.WriteTable(&sb, nil); err != nil {
		t.Fatal(err)
	}
	out := sb.String()
	if !strings.Contains(out, "deny") || !strings.Contains(out, "example.com/bank.Ledger.Write") {
		t.Errorf("table = %q", out)
	}
	if !strings.HasSuffix(out, "hostaccess.None: 0 allowed, 1 denied\n") {
		t.Errorf("summary = %q", out)
	}
}
