package rules

import (
	"regexp"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// CriterionSpec is the on-disk shape of a predicate, as it appears
// nested under a rule's `match` table or inside `all`/`any`/`exactly`.
// A table with several plain fields set is an implicit `all` of those
// fields combined with any nested combinators.
type CriterionSpec struct {
	AppID       string `toml:"app_id"`
	Title       string `toml:"title"`
	Comm        string `toml:"comm"`
	Kind        string `toml:"kind"`
	Workspace   string `toml:"workspace"`
	ContentType string `toml:"content_type"`
	ClientPID   int    `toml:"client_pid"`
	ClientUID   int    `toml:"client_uid"`

	Floating   *bool `toml:"floating"`
	Fullscreen *bool `toml:"fullscreen"`
	Urgent     *bool `toml:"urgent"`
	Visible    *bool `toml:"visible"`
	JustMapped *bool `toml:"just_mapped"`
	Focused    *bool `toml:"focused"`
	Sandboxed  *bool `toml:"sandboxed"`
	IsXWayland *bool `toml:"is_xwayland"`

	All     []CriterionSpec `toml:"all"`
	Any     []CriterionSpec `toml:"any"`
	Exactly *ExactlySpec    `toml:"exactly"`
	Not     *CriterionSpec  `toml:"not"`
}

// ExactlySpec is the `exactly` combinator's on-disk shape: fire when
// precisely N of criteria match.
type ExactlySpec struct {
	N        int             `toml:"n"`
	Criteria []CriterionSpec `toml:"criteria"`
}

// RuleSpec is one `[[rule]]` table.
type RuleSpec struct {
	Name      string        `toml:"name"`
	Match     CriterionSpec `toml:"match"`
	OnMatch   []string      `toml:"on_match"`
	OnUnmatch []string      `toml:"on_unmatch"`
}

// FileSpec is the top-level shape of a rule file: a sequence of
// `[[rule]]` tables, consistent with the compositor's bundled `config`
// package's `[[rule]]` shape.
type FileSpec struct {
	Rule []RuleSpec `toml:"rule"`
}

// ParseRules decodes a TOML rule file and builds one *Rule per
// `[[rule]]` table, binding named actions from actions. Returns an
// error naming the rule and action if a rule references an action
// name not present in actions.
func ParseRules(data []byte, actions map[string]Action) ([]*Rule, error) {
	var file FileSpec
	if _, err := toml.Decode(string(data), &file); err != nil {
		return nil, errors.Wrap(err, "rules: decode toml")
	}
	return BuildRules(file.Rule, actions)
}

// BuildRules converts already-decoded RuleSpecs (e.g. embedded in a
// larger config document parsed elsewhere) into Rules, binding named
// actions from actions exactly as ParseRules does.
func BuildRules(specs []RuleSpec, actions map[string]Action) ([]*Rule, error) {
	out := make([]*Rule, 0, len(specs))
	for _, rs := range specs {
		predicate, err := buildNode(rs.Match)
		if err != nil {
			return nil, errors.Wrapf(err, "rules: rule %q", rs.Name)
		}
		r := NewRule(rs.Name, predicate)

		for _, name := range rs.OnMatch {
			act, ok := actions[name]
			if !ok {
				return nil, errors.Errorf("rules: rule %q: unknown action %q", rs.Name, name)
			}
			r.OnMatch(act)
		}
		for _, name := range rs.OnUnmatch {
			act, ok := actions[name]
			if !ok {
				return nil, errors.Errorf("rules: rule %q: unknown action %q", rs.Name, name)
			}
			r.OnUnmatch(act)
		}
		out = append(out, r)
	}
	return out, nil
}

// boolLeaf returns n if want is true, Not(n) otherwise — bool fields
// in a CriterionSpec are *bool so "absent" and "explicitly false" are
// distinguishable.
func boolLeaf(n *node, want bool) *node {
	if want {
		return n
	}
	return Not(n)
}

func buildNode(spec CriterionSpec) (*node, error) {
	var parts []*node

	if spec.AppID != "" {
		re, err := regexp.Compile(spec.AppID)
		if err != nil {
			return nil, errors.Wrap(err, "app_id")
		}
		parts = append(parts, AppID(re))
	}
	if spec.Title != "" {
		re, err := regexp.Compile(spec.Title)
		if err != nil {
			return nil, errors.Wrap(err, "title")
		}
		parts = append(parts, Title(re))
	}
	if spec.Comm != "" {
		re, err := regexp.Compile(spec.Comm)
		if err != nil {
			return nil, errors.Wrap(err, "comm")
		}
		parts = append(parts, Comm(re))
	}
	if spec.Kind != "" {
		parts = append(parts, Kind(spec.Kind))
	}
	if spec.Workspace != "" {
		parts = append(parts, Workspace(spec.Workspace))
	}
	if spec.ContentType != "" {
		parts = append(parts, ContentTypeIs(spec.ContentType))
	}
	if spec.ClientPID != 0 {
		parts = append(parts, ClientPID(spec.ClientPID))
	}
	if spec.ClientUID != 0 {
		parts = append(parts, ClientUID(spec.ClientUID))
	}
	if spec.Floating != nil {
		parts = append(parts, boolLeaf(Floating(), *spec.Floating))
	}
	if spec.Fullscreen != nil {
		parts = append(parts, boolLeaf(Fullscreen(), *spec.Fullscreen))
	}
	if spec.Urgent != nil {
		parts = append(parts, boolLeaf(Urgent(), *spec.Urgent))
	}
	if spec.Visible != nil {
		parts = append(parts, boolLeaf(Visible(), *spec.Visible))
	}
	if spec.JustMapped != nil {
		parts = append(parts, boolLeaf(JustMapped(), *spec.JustMapped))
	}
	if spec.Focused != nil {
		parts = append(parts, boolLeaf(Focused(), *spec.Focused))
	}
	if spec.Sandboxed != nil {
		parts = append(parts, boolLeaf(Sandboxed(), *spec.Sandboxed))
	}
	if spec.IsXWayland != nil {
		parts = append(parts, boolLeaf(IsXWayland(), *spec.IsXWayland))
	}

	for _, c := range spec.All {
		n, err := buildNode(c)
		if err != nil {
			return nil, err
		}
		parts = append(parts, n)
	}
	if len(spec.Any) > 0 {
		children := make([]*node, 0, len(spec.Any))
		for _, c := range spec.Any {
			n, err := buildNode(c)
			if err != nil {
				return nil, err
			}
			children = append(children, n)
		}
		parts = append(parts, Any(children...))
	}
	if spec.Exactly != nil {
		children := make([]*node, 0, len(spec.Exactly.Criteria))
		for _, c := range spec.Exactly.Criteria {
			n, err := buildNode(c)
			if err != nil {
				return nil, err
			}
			children = append(children, n)
		}
		parts = append(parts, Exactly(spec.Exactly.N, children...))
	}
	if spec.Not != nil {
		n, err := buildNode(*spec.Not)
		if err != nil {
			return nil, err
		}
		parts = append(parts, Not(n))
	}

	if len(parts) == 0 {
		return nil, errors.New("rules: empty match criterion")
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return All(parts...), nil
}
