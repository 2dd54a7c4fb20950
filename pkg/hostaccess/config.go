package hostaccess

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the file FindConfig looks for.
const ConfigFileName = "hostaccess.yaml"

// Config is the YAML form of a policy.
//
//	name: sandbox
//	allow_public_access: false
//	allow_array_access: true
//	allow_list_access: true
//	allow_tags: [export]
//	allow:
//	  - type: example.com/bank.Account
//	    method: Deposit
//	deny:
//	  - type: os.File
//	    include_subtypes: false
type Config struct {
	Name              string      `yaml:"name,omitempty"`
	AllowPublicAccess bool        `yaml:"allow_public_access,omitempty"`
	AllowArrayAccess  bool        `yaml:"allow_array_access,omitempty"`
	AllowListAccess   bool        `yaml:"allow_list_access,omitempty"`
	AllowTags         []string    `yaml:"allow_tags,omitempty"`
	Allow             []AllowRule `yaml:"allow,omitempty"`
	Deny              []DenyRule  `yaml:"deny,omitempty"`
}

// AllowRule names one member to allow. Exactly one of Field, Method and
// Constructor must be set.
type AllowRule struct {
	Type        string `yaml:"type"`
	Field       string `yaml:"field,omitempty"`
	Method      string `yaml:"method,omitempty"`
	Constructor bool   `yaml:"constructor,omitempty"`
}

// DenyRule excludes a type. IncludeSubtypes defaults to true.
type DenyRule struct {
	Type            string `yaml:"type"`
	IncludeSubtypes *bool  `yaml:"include_subtypes,omitempty"`
}

// LoadConfig reads and parses a policy file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy %s: %w", path, err)
	}
	return ParseConfig(data, path)
}

// ParseConfig parses policy YAML. The path is only used in error messages.
func ParseConfig(data []byte, path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	return &cfg, nil
}

// FindConfig searches dir and its parents for ConfigFileName. It returns
// an empty path and no error when nothing is found.
func FindConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

func (c *Config) validate(path string) error {
	for i, tag := range c.AllowTags {
		if tag == "" {
			return fmt.Errorf("%s: allow_tags[%d]: tag must not be empty", path, i)
		}
	}
	for i, rule := range c.Allow {
		if rule.Type == "" {
			return fmt.Errorf("%s: allow[%d]: type is required", path, i)
		}
		n := 0
		if rule.Field != "" {
			n++
		}
		if rule.Method != "" {
			n++
		}
		if rule.Constructor {
			n++
		}
		if n != 1 {
			return fmt.Errorf("%s: allow[%d] (%s): exactly one of field, method or constructor is required", path, i, rule.Type)
		}
	}
	seen := make(map[string]bool)
	for i, rule := range c.Deny {
		if rule.Type == "" {
			return fmt.Errorf("%s: deny[%d]: type is required", path, i)
		}
		if seen[rule.Type] {
			return fmt.Errorf("%s: deny[%d]: type %s is listed twice", path, i, rule.Type)
		}
		seen[rule.Type] = true
	}
	return nil
}

func (c *Config) setDefaults() {
	for i := range c.Deny {
		if c.Deny[i].IncludeSubtypes == nil {
			include := true
			c.Deny[i].IncludeSubtypes = &include
		}
	}
}

// Member returns the member descriptor named by the rule. The owner is
// nominal; explicit allow entries match on type ID only.
func (r AllowRule) Member() Member {
	owner := Nominal(r.Type)
	switch {
	case r.Constructor:
		return Member{Kind: Constructor, Owner: owner, Name: ConstructorName}
	case r.Method != "":
		return Member{Kind: Method, Owner: owner, Name: r.Method}
	default:
		return Member{Kind: Field, Owner: owner, Name: r.Field}
	}
}

// Build turns the configuration into a Policy. Deny types are resolved
// through resolver when one is given; unresolved or unresolvable types
// fall back to nominal types, which still match by ID and embedding but
// cannot match interface implementations.
func (c *Config) Build(resolver Resolver) (*Policy, error) {
	b := NewBuilder().
		Name(c.Name).
		AllowPublicAccess(c.AllowPublicAccess).
		AllowArrayAccess(c.AllowArrayAccess).
		AllowListAccess(c.AllowListAccess)

	for _, tag := range c.AllowTags {
		if err := b.AllowAccessTagged(Tag(tag)); err != nil {
			return nil, err
		}
	}
	for _, rule := range c.Allow {
		if err := b.AllowAccess(rule.Member()); err != nil {
			return nil, err
		}
	}
	for _, rule := range c.Deny {
		var typ Type = Nominal(rule.Type)
		if resolver != nil {
			if resolved, err := resolver.Resolve(rule.Type); err == nil {
				typ = resolved
			}
		}
		include := rule.IncludeSubtypes == nil || *rule.IncludeSubtypes
		if err := b.DenyAccessOf(typ, include); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}

// Config returns the YAML form of p. Explicit member rules and resolved
// exclusions are reported by type ID.
func (p *Policy) Config() *Config {
	cfg := &Config{
		Name:              p.name,
		AllowPublicAccess: p.allowPublic,
		AllowArrayAccess:  p.allowArrayAccess,
		AllowListAccess:   p.allowListAccess,
	}
	for _, t := range p.tags {
		cfg.AllowTags = append(cfg.AllowTags, string(t))
	}
	for k := range p.members {
		rule := AllowRule{Type: k.owner}
		switch k.kind {
		case Field:
			rule.Field = k.name
		case Method:
			rule.Method = k.name
		case Constructor:
			rule.Constructor = true
		}
		cfg.Allow = append(cfg.Allow, rule)
	}
	sortAllowRules(cfg.Allow)
	for _, ex := range p.excludes {
		include := ex.includeSubtypes
		cfg.Deny = append(cfg.Deny, DenyRule{Type: ex.typ.ID(), IncludeSubtypes: &include})
	}
	return cfg
}

// Marshal encodes the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

func sortAllowRules(rules []AllowRule) {
	sort.Slice(rules, func(i, j int) bool {
		a, b := rules[i], rules[j]
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.Field+a.Method < b.Field+b.Method
	})
}
