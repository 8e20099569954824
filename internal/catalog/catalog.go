package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"skillrouter/internal/logging"
)

// Catalog is the loaded, read-only skill collection plus the inverted
// keyword index built once at load.
type Catalog struct {
	skills       map[string]*Skill
	keywordIndex map[string][]string // lowercased keyword -> skill names
	warnings     []string            // load-time skill skips
}

// frontmatter is the YAML schema of a SKILL.md header.
type frontmatter struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Category    string `yaml:"category"`

	Intents struct {
		Primary  []string `yaml:"primary"`
		Keywords []string `yaml:"keywords"`
		Patterns []string `yaml:"patterns"`
		Contexts []string `yaml:"contexts"`
	} `yaml:"intents"`

	Arguments []struct {
		Name        string   `yaml:"name"`
		Type        string   `yaml:"type"`
		Required    bool     `yaml:"required"`
		Description string   `yaml:"description"`
		InferFrom   []string `yaml:"infer_from"`
		Default     string   `yaml:"default"`
		Values      []string `yaml:"values"`
	} `yaml:"arguments"`

	AutoTrigger struct {
		Enabled                bool             `yaml:"enabled"`
		ConfidenceThreshold    *float64         `yaml:"confidence_threshold"`
		ConfirmBeforeExecution *bool            `yaml:"confirm_before_execution"`
		SafetyChecks           []map[string]any `yaml:"safety_checks"`
	} `yaml:"auto_trigger"`

	Dependencies []string `yaml:"dependencies"`
}

var frontmatterRe = regexp.MustCompile(`(?s)^---\s*\n(.*?)\n---\s*\n`)

// LoadDir loads every <dir>/<skill>/SKILL.md under skillsDir. A skill whose
// frontmatter or regexes cannot be parsed is skipped with a warning; the
// catalog as a whole still loads. Skill files are parsed concurrently.
func LoadDir(skillsDir string) (*Catalog, error) {
	entries, err := os.ReadDir(skillsDir)
	if err != nil {
		return nil, fmt.Errorf("skills directory not found: %w", err)
	}

	timer := logging.StartTimer(logging.CategoryCatalog, "catalog load")
	defer timer.Stop()

	var (
		mu       sync.Mutex
		skills   = make(map[string]*Skill)
		warnings []string
	)

	var g errgroup.Group
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		skillFile := filepath.Join(skillsDir, entry.Name(), "SKILL.md")
		dirName := entry.Name()

		g.Go(func() error {
			data, err := os.ReadFile(skillFile)
			if os.IsNotExist(err) {
				return nil
			}
			if err != nil {
				mu.Lock()
				warnings = append(warnings, fmt.Sprintf("skill %s: %v", dirName, err))
				mu.Unlock()
				return nil
			}

			skill, err := ParseSkill(data)
			if err != nil {
				logging.CatalogWarn("skipping skill %s: %v", dirName, err)
				mu.Lock()
				warnings = append(warnings, fmt.Sprintf("skill %s: %v", dirName, err))
				mu.Unlock()
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			if _, dup := skills[skill.Name]; dup {
				warnings = append(warnings, fmt.Sprintf("skill %s: duplicate name %q", dirName, skill.Name))
				return nil
			}
			skills[skill.Name] = skill
			return nil
		})
	}
	// Workers never return errors; skips are collected as warnings instead.
	_ = g.Wait()

	c := &Catalog{skills: skills, warnings: warnings}
	c.buildKeywordIndex()

	logging.Catalog("loaded %d skills from %s (%d skipped)", len(skills), skillsDir, len(warnings))
	return c, nil
}

// ParseSkill parses a single SKILL.md document into an immutable Skill.
func ParseSkill(data []byte) (*Skill, error) {
	m := frontmatterRe.FindSubmatch(data)
	if m == nil {
		return nil, fmt.Errorf("no frontmatter found")
	}

	var fm frontmatter
	if err := yaml.Unmarshal(m[1], &fm); err != nil {
		return nil, fmt.Errorf("invalid frontmatter: %w", err)
	}
	if fm.Name == "" {
		return nil, fmt.Errorf("missing skill name")
	}

	skill := &Skill{
		Name:         fm.Name,
		Description:  fm.Description,
		Category:     fm.Category,
		Contexts:     fm.Intents.Contexts,
		Dependencies: fm.Dependencies,
	}

	for _, kw := range fm.Intents.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			skill.Keywords = append(skill.Keywords, kw)
		}
	}

	for _, src := range fm.Intents.Patterns {
		re, err := regexp.Compile("(?i)" + src)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", src, err)
		}
		skill.Patterns = append(skill.Patterns, re)
		skill.PatternSources = append(skill.PatternSources, src)
	}

	for _, tmpl := range fm.Intents.Primary {
		re, err := compilePrimary(tmpl)
		if err != nil {
			return nil, fmt.Errorf("invalid primary template %q: %w", tmpl, err)
		}
		skill.PrimaryTemplates = append(skill.PrimaryTemplates, tmpl)
		skill.primaryRegexps = append(skill.primaryRegexps, re)
	}

	for _, a := range fm.Arguments {
		spec := ArgumentSpec{
			Name:        a.Name,
			Type:        ArgType(a.Type),
			Required:    a.Required,
			Description: a.Description,
			Default:     a.Default,
			EnumValues:  a.Values,
		}
		if spec.Type == "" {
			spec.Type = TypeString
		}
		switch spec.Type {
		case TypeString, TypeEnum, TypeInt, TypeBool, TypePath:
		default:
			return nil, fmt.Errorf("argument %s: unknown type %q", a.Name, a.Type)
		}
		if spec.Type == TypeEnum && len(spec.EnumValues) == 0 {
			return nil, fmt.Errorf("argument %s: enum without values", a.Name)
		}
		for _, src := range a.InferFrom {
			spec.InferFrom = append(spec.InferFrom, InferSource(src))
		}
		skill.Arguments = append(skill.Arguments, spec)
	}

	skill.AutoTrigger = AutoTriggerConfig{
		Enabled:                fm.AutoTrigger.Enabled,
		ConfidenceThreshold:    0.85,
		ConfirmBeforeExecution: true,
	}
	if fm.AutoTrigger.ConfidenceThreshold != nil {
		skill.AutoTrigger.ConfidenceThreshold = *fm.AutoTrigger.ConfidenceThreshold
	}
	if fm.AutoTrigger.ConfirmBeforeExecution != nil {
		skill.AutoTrigger.ConfirmBeforeExecution = *fm.AutoTrigger.ConfirmBeforeExecution
	}

	for _, raw := range fm.AutoTrigger.SafetyChecks {
		check, err := parseSafetyCheck(raw)
		if err != nil {
			return nil, err
		}
		skill.AutoTrigger.SafetyChecks = append(skill.AutoTrigger.SafetyChecks, check)
	}

	skill.Capabilities = deriveCapabilities(skill.Name, skill.Keywords)

	return skill, nil
}

func parseSafetyCheck(raw map[string]any) (SafetyCheckSpec, error) {
	kind, _ := raw["check"].(string)
	check := SafetyCheckSpec{Kind: SafetyCheckKind(kind)}
	if msg, ok := raw["message"].(string); ok {
		check.Message = msg
	}

	switch check.Kind {
	case CheckGitBranch:
		check.Allowed = toStringSlice(raw["allowed"])
	case CheckDiskSpace:
		switch v := raw["minimum_mb"].(type) {
		case int:
			check.MinimumMB = int64(v)
		case int64:
			check.MinimumMB = v
		case float64:
			check.MinimumMB = int64(v)
		}
	case CheckNoConflicts:
		check.Files = toStringSlice(raw["files"])
	default:
		return check, fmt.Errorf("unknown safety check %q", kind)
	}
	return check, nil
}

func toStringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (c *Catalog) buildKeywordIndex() {
	c.keywordIndex = make(map[string][]string)
	for name, skill := range c.skills {
		for _, kw := range skill.Keywords {
			c.keywordIndex[kw] = append(c.keywordIndex[kw], name)
		}
	}
	for kw := range c.keywordIndex {
		sort.Strings(c.keywordIndex[kw])
	}
}

// New builds a catalog directly from skill values. Used by tests and by
// callers that load definitions themselves.
func New(skills ...*Skill) *Catalog {
	m := make(map[string]*Skill, len(skills))
	for _, s := range skills {
		m[s.Name] = s
	}
	c := &Catalog{skills: m}
	c.buildKeywordIndex()
	return c
}

// Get returns the named skill, if present.
func (c *Catalog) Get(name string) (*Skill, bool) {
	s, ok := c.skills[name]
	return s, ok
}

// List returns all skills sorted by name.
func (c *Catalog) List() []*Skill {
	out := make([]*Skill, 0, len(c.skills))
	for _, s := range c.skills {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of loaded skills.
func (c *Catalog) Len() int { return len(c.skills) }

// Warnings returns load-time skip messages (parse failures, duplicates).
func (c *Catalog) Warnings() []string { return c.warnings }

// KeywordSkills returns the skills indexed under the exact keyword.
func (c *Catalog) KeywordSkills(keyword string) []string {
	return c.keywordIndex[strings.ToLower(keyword)]
}

// Keywords returns every indexed keyword in sorted order.
func (c *Catalog) Keywords() []string {
	out := make([]string, 0, len(c.keywordIndex))
	for kw := range c.keywordIndex {
		out = append(out, kw)
	}
	sort.Strings(out)
	return out
}
