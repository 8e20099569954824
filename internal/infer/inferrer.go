// Package infer fills declared skill arguments from query text, project
// context, git facts, and learned usage, in the priority order each
// argument declares.
package infer

import (
	"regexp"
	"strings"

	"skillrouter/internal/catalog"
	"skillrouter/internal/logging"
	"skillrouter/internal/project"
)

// History supplies the most frequent historical value for a skill argument.
// Implemented by *learning.Store.
type History interface {
	CommonArgument(skillName, argName string) (string, bool)
}

// Inferrer resolves skill arguments. Zero-value safe except for History,
// which may be nil to disable the learning source.
type Inferrer struct {
	history History
}

// New builds an inferrer. history may be nil.
func New(history History) *Inferrer {
	return &Inferrer{history: history}
}

// Infer resolves each declared argument not already present in
// candidateArgs by trying its infer_from sources in declared order, then
// the default. Returns the resolved map and whether every required
// argument has a value.
func (inf *Inferrer) Infer(query string, skill *catalog.Skill, candidateArgs map[string]string, ctx project.Context) (map[string]string, bool) {
	resolved := make(map[string]string, len(skill.Arguments))

	// Capture-group values from matching are already typed-checked here so
	// an out-of-set enum capture falls through to inference.
	for name, raw := range candidateArgs {
		spec, ok := skill.Argument(name)
		if !ok {
			continue
		}
		if value, valid := spec.Validate(raw); valid {
			resolved[name] = value
		}
	}

	for _, arg := range skill.Arguments {
		if _, done := resolved[arg.Name]; done {
			continue
		}

		value, ok := inf.trySources(query, skill, arg, ctx)
		if !ok && arg.Default != "" {
			value, ok = arg.Validate(arg.Default)
		}
		if ok {
			resolved[arg.Name] = value
			logging.InferDebug("%s.%s = %q", skill.Name, arg.Name, value)
		}
	}

	complete := true
	for _, arg := range skill.RequiredArguments() {
		if _, ok := resolved[arg.Name]; !ok {
			complete = false
			break
		}
	}
	return resolved, complete
}

func (inf *Inferrer) trySources(query string, skill *catalog.Skill, arg catalog.ArgumentSpec, ctx project.Context) (string, bool) {
	for _, src := range arg.InferFrom {
		var (
			value string
			ok    bool
		)
		switch src {
		case catalog.InferUserQuery:
			value, ok = extractFromQuery(query, skill, arg)
		case catalog.InferProjectContext:
			value, ok = ctx.Field(arg.Name)
		case catalog.InferGitHistory:
			value, ok = fromGit(ctx.Git, arg)
		case catalog.InferLearning:
			if inf.history != nil {
				value, ok = inf.history.CommonArgument(skill.Name, arg.Name)
			}
		}
		if !ok {
			continue
		}
		if validated, valid := arg.Validate(value); valid {
			return validated, true
		}
	}
	return "", false
}

// extractFromQuery applies the light extraction heuristics, in order:
// flag syntax (--name value), boolean keyword presence, a primary-template
// capture group named after the argument, and enum value mention.
func extractFromQuery(query string, skill *catalog.Skill, arg catalog.ArgumentSpec) (string, bool) {
	queryLower := strings.ToLower(query)

	// Flag-style: --name value (bool flags need no value).
	flagRe := regexp.MustCompile(`--` + regexp.QuoteMeta(arg.Name) + `(?:\s+([^\s-][^\s]*))?`)
	if m := flagRe.FindStringSubmatch(query); m != nil {
		if arg.Type == catalog.TypeBool {
			return "true", true
		}
		if m[1] != "" {
			return m[1], true
		}
	}

	if arg.Type == catalog.TypeBool {
		for _, kw := range []string{"yes", "true", "enable", "on"} {
			if strings.Contains(queryLower, kw) {
				return "true", true
			}
		}
		for _, kw := range []string{"no", "false", "disable", "off"} {
			if strings.Contains(queryLower, kw) {
				return "false", true
			}
		}
	}

	// A primary template may capture this argument even when the candidate
	// came from another source.
	if _, groups, ok := skill.MatchPrimary(query); ok {
		if v, present := groups[arg.Name]; present {
			return v, true
		}
	}

	if arg.Type == catalog.TypeEnum {
		for _, v := range arg.EnumValues {
			if strings.Contains(queryLower, strings.ToLower(v)) {
				return v, true
			}
		}
	}

	return "", false
}

// fromGit derives argument values from pre-parsed git facts; this engine
// never parses git output itself.
func fromGit(git project.GitFacts, arg catalog.ArgumentSpec) (string, bool) {
	if !git.HasRepo {
		return "", false
	}

	switch arg.Name {
	case "branch":
		if git.CurrentBranch != "" {
			return git.CurrentBranch, true
		}
	case "changes", "uncommitted", "dirty":
		if arg.Type == catalog.TypeBool {
			if git.UncommittedFileCount > 0 {
				return "true", true
			}
			return "false", true
		}
	case "message", "commit":
		if len(git.RecentCommitMessages) > 0 {
			return git.RecentCommitMessages[0], true
		}
	}
	return "", false
}
