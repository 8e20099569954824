// Package intent ranks free-text queries against the skill catalog using
// three strategies (keyword substring, regex pattern, primary template) and
// confidence boosting from context and learned usage.
package intent

import (
	"sort"
	"strings"

	"skillrouter/internal/catalog"
	"skillrouter/internal/logging"
	"skillrouter/internal/project"
)

// Base confidence per matching strategy and the boost arithmetic.
const (
	keywordBase       = 0.60
	keywordStep       = 0.15
	keywordCap        = 0.75
	patternBase       = 0.85
	primaryBase       = 0.90
	contextBoost      = 0.05
	completenessBoost = 0.05

	// boostCeiling bounds the sum of all boosts (context, learning,
	// completeness) before the final clamp to 1.0.
	boostCeiling = 0.15

	maxCandidates = 3
)

// Booster supplies the learned ranking boost for a skill. Implemented by
// *learning.Store.
type Booster interface {
	BoostFor(skillName, query string) float64
}

// Matcher ranks queries against a catalog.
type Matcher struct {
	catalog *catalog.Catalog
	booster Booster
}

// NewMatcher builds a matcher over the given catalog. booster may be nil,
// in which case no learning boost is applied.
func NewMatcher(cat *catalog.Catalog, booster Booster) *Matcher {
	return &Matcher{catalog: cat, booster: booster}
}

// SetCatalog swaps the catalog, e.g. after a watcher reload.
func (m *Matcher) SetCatalog(cat *catalog.Catalog) {
	m.catalog = cat
}

// Rank scores the query against every skill and returns at most three
// candidates, sorted by confidence descending with deterministic
// tie-breaking (source rank, then skill name). An empty or whitespace-only
// query yields no candidates.
func (m *Matcher) Rank(query string, ctx project.Context) []Candidate {
	normalized := strings.ToLower(strings.TrimSpace(query))
	if normalized == "" {
		return nil
	}

	timer := logging.StartTimer(logging.CategoryMatcher, "rank")
	defer timer.Stop()

	// One candidate per skill; the highest-base source wins.
	best := make(map[string]Candidate)
	consider := func(c Candidate) {
		prev, ok := best[c.Skill.Name]
		if !ok || c.Base > prev.Base {
			best[c.Skill.Name] = c
		}
	}

	for _, c := range m.matchKeywords(normalized) {
		consider(c)
	}
	for _, c := range m.matchPatterns(query) {
		consider(c)
	}
	for _, c := range m.matchPrimary(query) {
		consider(c)
	}

	candidates := make([]Candidate, 0, len(best))
	for _, c := range best {
		c.Confidence = m.boost(c, query, ctx)
		candidates = append(candidates, c)
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.Source.rank() != b.Source.rank() {
			return a.Source.rank() > b.Source.rank()
		}
		return a.Skill.Name < b.Skill.Name
	})

	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}

	for _, c := range candidates {
		logging.MatcherDebug("candidate %s confidence=%.2f source=%s", c.Skill.Name, c.Confidence, c.Source)
	}
	return candidates
}

// matchKeywords performs case-insensitive substring search over the
// normalized query, walking the catalog's inverted keyword index. No
// tokenization: skill keyword lists include multi-byte-script text whose
// segmentation a whitespace tokenizer would break.
func (m *Matcher) matchKeywords(normalized string) []Candidate {
	hits := make(map[string]int)
	firstHit := make(map[string]string)
	for _, kw := range m.catalog.Keywords() {
		if !strings.Contains(normalized, kw) {
			continue
		}
		for _, name := range m.catalog.KeywordSkills(kw) {
			hits[name]++
			if _, seen := firstHit[name]; !seen {
				firstHit[name] = kw
			}
		}
	}

	var out []Candidate
	for name, count := range hits {
		skill, ok := m.catalog.Get(name)
		if !ok {
			continue
		}
		base := keywordBase + keywordStep*float64(count-1)
		if base > keywordCap {
			base = keywordCap
		}
		out = append(out, Candidate{
			Skill:       skill,
			Base:        base,
			Source:      SourceKeyword,
			Explanation: "keyword match: " + firstHit[name],
		})
	}
	return out
}

// matchPatterns tries each skill's regex patterns in declaration order
// against the original query; the first match wins and its named capture
// groups become extracted arguments.
func (m *Matcher) matchPatterns(query string) []Candidate {
	var out []Candidate
	for _, skill := range m.catalog.List() {
		i, groups, ok := skill.MatchPattern(query)
		if !ok {
			continue
		}
		out = append(out, Candidate{
			Skill:         skill,
			Base:          patternBase,
			Source:        SourcePattern,
			ExtractedArgs: groups,
			Explanation:   "pattern match: " + skill.PatternSources[i],
		})
	}
	return out
}

// matchPrimary tries each skill's compiled primary templates against the
// original query.
func (m *Matcher) matchPrimary(query string) []Candidate {
	var out []Candidate
	for _, skill := range m.catalog.List() {
		i, groups, ok := skill.MatchPrimary(query)
		if !ok {
			continue
		}
		out = append(out, Candidate{
			Skill:         skill,
			Base:          primaryBase,
			Source:        SourcePrimary,
			ExtractedArgs: groups,
			Explanation:   "primary match: " + skill.PrimaryTemplates[i],
		})
	}
	return out
}

// boost applies the additive boosts on top of the base score. The summed
// boosts are capped at boostCeiling and the result clamped to 1.0.
func (m *Matcher) boost(c Candidate, query string, ctx project.Context) float64 {
	boost := 0.0

	if ctx.HasActiveContext(c.Skill.Contexts) {
		boost += contextBoost
	}

	if m.booster != nil {
		boost += m.booster.BoostFor(c.Skill.Name, query)
	}

	if argsComplete(c.Skill, c.ExtractedArgs) {
		boost += completenessBoost
	}

	if boost > boostCeiling {
		boost = boostCeiling
	}

	confidence := c.Base + boost
	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}

// argsComplete reports whether every required argument is already
// resolvable from the extracted capture groups alone.
func argsComplete(skill *catalog.Skill, extracted map[string]string) bool {
	required := skill.RequiredArguments()
	if len(required) == 0 {
		return false
	}
	for _, arg := range required {
		raw, ok := extracted[arg.Name]
		if !ok {
			return false
		}
		if _, valid := arg.Validate(raw); !valid {
			return false
		}
	}
	return true
}
