// Package safety gates auto-execution behind deterministic pre-execution
// checks. Validation is a pure decision: no partial mutation, first hard
// failure short-circuits, soft issues accumulate as warnings.
package safety

import (
	"fmt"
	"strings"

	"skillrouter/internal/catalog"
	"skillrouter/internal/logging"
	"skillrouter/internal/project"
)

// defaultMinimumDiskBytes is the free-space floor for file-modifying
// skills unless a custom check overrides it.
const defaultMinimumDiskBytes = 100 * 1024 * 1024

// defaultConflictThreshold is the uncommitted-file count above which
// file-modifying skills are blocked.
const defaultConflictThreshold = 10

// Decision is the validator's verdict.
type Decision struct {
	Allow           bool
	Reason          string
	Warnings        []string
	ChecksPerformed []string
}

// DependencyChecker answers whether a declared external dependency is
// available. The engine does not own dependency resolution; a nil checker
// leaves availability unknown and produces no warnings.
type DependencyChecker interface {
	Available(name string) bool
}

// Validator runs the fixed-order safety checks.
type Validator struct {
	deps DependencyChecker
}

// New builds a validator. deps may be nil.
func New(deps DependencyChecker) *Validator {
	return &Validator{deps: deps}
}

// Validate evaluates the skill against the project context. Checks run in
// fixed order; the first hard failure returns immediately with its reason.
func (v *Validator) Validate(skill *catalog.Skill, ctx project.Context) Decision {
	d := Decision{Allow: true}

	// 1. Destructive operations on a protected branch (hard).
	if skill.Capabilities.Destructive {
		d.ChecksPerformed = append(d.ChecksPerformed, "destructive_operation")
		if ctx.OnProtectedBranch() {
			d.Allow = false
			d.Reason = fmt.Sprintf(
				"Destructive operation blocked on protected branch %q. Switch to a feature branch first.",
				ctx.Git.CurrentBranch)
			logging.Safety("blocked %s: destructive on %s", skill.Name, ctx.Git.CurrentBranch)
			return d
		}
	}

	// 2. Declared dependencies (soft, warning only).
	if len(skill.Dependencies) > 0 && v.deps != nil {
		d.ChecksPerformed = append(d.ChecksPerformed, "dependencies")
		var missing []string
		for _, dep := range skill.Dependencies {
			if !v.deps.Available(dep) {
				missing = append(missing, dep)
			}
		}
		if len(missing) > 0 {
			d.Warnings = append(d.Warnings,
				fmt.Sprintf("Dependencies may not be available: %s", strings.Join(missing, ", ")))
		}
	}

	// 3. Disk space (hard, file-modifying skills only). A zero or negative
	// DiskFreeBytes means the collaborator could not measure; pass.
	if skill.Capabilities.ModifiesFiles {
		d.ChecksPerformed = append(d.ChecksPerformed, "disk_space")
		if ctx.DiskFreeBytes > 0 && ctx.DiskFreeBytes < defaultMinimumDiskBytes {
			d.Allow = false
			d.Reason = "Insufficient disk space. At least 100MB required."
			logging.Safety("blocked %s: disk free %d bytes", skill.Name, ctx.DiskFreeBytes)
			return d
		}
	}

	// 4. File conflicts (hard, file-modifying skills only).
	if skill.Capabilities.ModifiesFiles && ctx.Git.HasRepo {
		d.ChecksPerformed = append(d.ChecksPerformed, "file_conflicts")
		if ctx.Git.UncommittedFileCount > defaultConflictThreshold {
			d.Allow = false
			d.Reason = fmt.Sprintf(
				"Too many uncommitted changes (%d). Commit or stash before running file-modifying skills.",
				ctx.Git.UncommittedFileCount)
			logging.Safety("blocked %s: %d uncommitted files", skill.Name, ctx.Git.UncommittedFileCount)
			return d
		}
	}

	// 5. Custom checks from the skill's auto-trigger config (hard, in
	// declaration order).
	for _, check := range skill.AutoTrigger.SafetyChecks {
		d.ChecksPerformed = append(d.ChecksPerformed, "custom:"+string(check.Kind))
		if reason, ok := runCustomCheck(check, ctx); !ok {
			d.Allow = false
			d.Reason = reason
			logging.Safety("blocked %s: custom %s", skill.Name, check.Kind)
			return d
		}
	}

	return d
}

func runCustomCheck(check catalog.SafetyCheckSpec, ctx project.Context) (string, bool) {
	switch check.Kind {
	case catalog.CheckGitBranch:
		return checkGitBranch(check, ctx)
	case catalog.CheckDiskSpace:
		return checkDiskSpace(check, ctx)
	case catalog.CheckNoConflicts:
		return checkNoConflicts(check, ctx)
	}
	// Unknown kinds are rejected at catalog load.
	return "", true
}

func checkGitBranch(check catalog.SafetyCheckSpec, ctx project.Context) (string, bool) {
	if !ctx.Git.HasRepo || len(check.Allowed) == 0 {
		return "", true
	}
	current := ctx.Git.CurrentBranch
	for _, pattern := range check.Allowed {
		if matchBranchPattern(current, pattern) {
			return "", true
		}
	}
	if check.Message != "" {
		return check.Message, false
	}
	return fmt.Sprintf("Branch %q not in allowed list: %s", current, strings.Join(check.Allowed, ", ")), false
}

func checkDiskSpace(check catalog.SafetyCheckSpec, ctx project.Context) (string, bool) {
	minimum := check.MinimumMB * 1024 * 1024
	if minimum <= 0 {
		minimum = defaultMinimumDiskBytes
	}
	if ctx.DiskFreeBytes <= 0 || ctx.DiskFreeBytes >= minimum {
		return "", true
	}
	if check.Message != "" {
		return check.Message, false
	}
	return fmt.Sprintf("Requires at least %dMB free space", minimum/(1024*1024)), false
}

func checkNoConflicts(check catalog.SafetyCheckSpec, ctx project.Context) (string, bool) {
	if !ctx.Git.HasRepo || ctx.Git.UncommittedFileCount == 0 || len(check.Files) == 0 {
		return "", true
	}

	var conflicts []string
	for _, f := range check.Files {
		for _, modified := range ctx.Git.ModifiedFiles {
			if f == modified {
				conflicts = append(conflicts, f)
				break
			}
		}
	}
	if len(conflicts) == 0 {
		return "", true
	}
	if check.Message != "" {
		return check.Message, false
	}
	return fmt.Sprintf("Modified files conflict: %s", strings.Join(conflicts, ", ")), false
}

// matchBranchPattern supports exact names plus "prefix/*" and "*/suffix"
// wildcards.
func matchBranchPattern(branch, pattern string) bool {
	if !strings.Contains(pattern, "*") {
		return branch == pattern
	}
	if strings.HasSuffix(pattern, "/*") {
		return strings.HasPrefix(branch, strings.TrimSuffix(pattern, "/*"))
	}
	if strings.HasPrefix(pattern, "*/") {
		return strings.HasSuffix(branch, strings.TrimPrefix(pattern, "*/"))
	}
	return false
}
