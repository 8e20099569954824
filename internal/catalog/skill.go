// Package catalog holds the skill model and loads skill definitions from
// SKILL.md frontmatter. Skills are immutable after load; the catalog owns
// the inverted keyword index used by the matcher.
package catalog

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ArgType is the declared type of a skill argument.
type ArgType string

const (
	TypeString ArgType = "string"
	TypeEnum   ArgType = "enum"
	TypeInt    ArgType = "int"
	TypeBool   ArgType = "bool"
	TypePath   ArgType = "path"
)

// InferSource names a source the inferrer may consult for an argument,
// tried in the order declared on the argument.
type InferSource string

const (
	InferUserQuery      InferSource = "user_query"
	InferProjectContext InferSource = "project_context"
	InferGitHistory     InferSource = "git_history"
	InferLearning       InferSource = "learning"
)

// ArgumentSpec declares one argument of a skill.
type ArgumentSpec struct {
	Name        string
	Type        ArgType
	Required    bool
	Description string
	InferFrom   []InferSource
	Default     string
	EnumValues  []string // present iff Type == TypeEnum
}

// Validate casts and validates a raw value against the argument's type.
// Returns the normalized value and whether it is acceptable. Enum values
// outside the declared set are rejected so the inferrer treats them as
// unresolved.
func (a ArgumentSpec) Validate(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	switch a.Type {
	case TypeString, TypePath:
		return raw, true
	case TypeInt:
		if _, err := strconv.Atoi(raw); err != nil {
			return "", false
		}
		return raw, true
	case TypeBool:
		switch strings.ToLower(raw) {
		case "true", "yes", "1", "on", "enable":
			return "true", true
		case "false", "no", "0", "off", "disable":
			return "false", true
		}
		return "", false
	case TypeEnum:
		for _, v := range a.EnumValues {
			if strings.EqualFold(raw, v) {
				return v, true
			}
		}
		return "", false
	}
	return raw, true
}

// SafetyCheckKind identifies a custom safety check declared on a skill.
type SafetyCheckKind string

const (
	CheckGitBranch   SafetyCheckKind = "git_branch"
	CheckDiskSpace   SafetyCheckKind = "disk_space"
	CheckNoConflicts SafetyCheckKind = "no_conflicts"
)

// SafetyCheckSpec is one custom safety check from a skill's auto_trigger config.
type SafetyCheckSpec struct {
	Kind      SafetyCheckKind
	Message   string
	Allowed   []string // git_branch: allowed branch patterns ("main", "feature/*", "*/dev")
	MinimumMB int64    // disk_space: minimum free space override
	Files     []string // no_conflicts: files that must be unmodified
}

// AutoTriggerConfig controls whether a high-confidence match may run unattended.
type AutoTriggerConfig struct {
	Enabled                bool
	ConfidenceThreshold    float64
	ConfirmBeforeExecution bool
	SafetyChecks           []SafetyCheckSpec
}

// Capabilities are derived from name/keyword heuristics at load time.
type Capabilities struct {
	Destructive   bool
	ModifiesFiles bool
}

// Skill is one immutable catalog entry.
type Skill struct {
	Name        string
	Description string
	Category    string

	Keywords []string // lowercased at load
	Contexts []string

	// Regex trigger patterns, tried in declaration order against the raw query.
	Patterns       []*regexp.Regexp
	PatternSources []string

	// Primary templates ("verb {param}") and their compiled forms.
	PrimaryTemplates []string
	primaryRegexps   []*regexp.Regexp

	Arguments    []ArgumentSpec
	AutoTrigger  AutoTriggerConfig
	Capabilities Capabilities

	// Declared external dependencies; availability is not resolved here,
	// the validator only records a warning for unavailable ones.
	Dependencies []string
}

// Argument returns the declared spec for name, if any.
func (s *Skill) Argument(name string) (ArgumentSpec, bool) {
	for _, a := range s.Arguments {
		if a.Name == name {
			return a, true
		}
	}
	return ArgumentSpec{}, false
}

// RequiredArguments returns the required subset in declaration order.
func (s *Skill) RequiredArguments() []ArgumentSpec {
	var required []ArgumentSpec
	for _, a := range s.Arguments {
		if a.Required {
			required = append(required, a)
		}
	}
	return required
}

// MatchPrimary tries each compiled primary template in declaration order
// against the query. On the first hit it returns the template index and
// the named capture groups.
func (s *Skill) MatchPrimary(query string) (int, map[string]string, bool) {
	for i, re := range s.primaryRegexps {
		groups := namedGroups(re, query)
		if groups != nil {
			return i, groups, true
		}
	}
	return -1, nil, false
}

// MatchPattern tries each regex pattern in declaration order against the
// query; first match wins.
func (s *Skill) MatchPattern(query string) (int, map[string]string, bool) {
	for i, re := range s.Patterns {
		groups := namedGroups(re, query)
		if groups != nil {
			return i, groups, true
		}
	}
	return -1, nil, false
}

func namedGroups(re *regexp.Regexp, query string) map[string]string {
	m := re.FindStringSubmatch(query)
	if m == nil {
		return nil
	}
	groups := make(map[string]string)
	for i, name := range re.SubexpNames() {
		if i == 0 || name == "" {
			continue
		}
		groups[name] = strings.TrimSpace(m[i])
	}
	return groups
}

var placeholderRe = regexp.MustCompile(`\\\{(\w+)\\\}`)

// compilePrimary turns "troubleshoot {issue}" into an anchored,
// case-insensitive regex: (?i)^troubleshoot\s+(?P<issue>.+)$.
// Literal text is preserved; whitespace between tokens is flexible.
func compilePrimary(template string) (*regexp.Regexp, error) {
	escaped := regexp.QuoteMeta(strings.TrimSpace(template))
	pattern := placeholderRe.ReplaceAllString(escaped, `(?P<$1>.+)`)
	pattern = strings.ReplaceAll(pattern, " ", `\s+`)
	return regexp.Compile(`(?i)^` + pattern + `$`)
}

// Destructive-operation and file-modification indicators, matched as
// substrings of the skill name and keywords at load time.
var (
	destructiveKeywords = []string{
		"delete", "remove", "cleanup", "reset", "drop",
		"destroy", "clear", "purge", "wipe",
	}
	fileModKeywords = []string{
		"write", "create", "update", "modify", "edit",
		"generate", "build", "compile",
	}
)

func deriveCapabilities(name string, keywords []string) Capabilities {
	text := strings.ToLower(name + " " + strings.Join(keywords, " "))
	return Capabilities{
		Destructive:   containsAny(text, destructiveKeywords),
		ModifiesFiles: containsAny(text, fileModKeywords),
	}
}

func containsAny(text string, indicators []string) bool {
	for _, kw := range indicators {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// FormatCommand renders a skill invocation as a slash command line with
// flag-style arguments, e.g. "/cleanup --target ./tmp".
func FormatCommand(skillName string, args map[string]string) string {
	var b strings.Builder
	b.WriteString("/" + skillName)

	for _, name := range sortedKeys(args) {
		value := args[name]
		if value == "true" {
			fmt.Fprintf(&b, " --%s", name)
			continue
		}
		if strings.Contains(value, " ") {
			fmt.Fprintf(&b, " --%s %q", name, value)
		} else {
			fmt.Fprintf(&b, " --%s %s", name, value)
		}
	}
	return b.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
