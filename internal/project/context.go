// Package project defines the read-only per-request context record the
// engine matches and validates against. Context discovery (git probing,
// project scanning) happens outside the engine; collaborators hand in a
// ready-made Context.
package project

import (
	"encoding/json"
	"fmt"
	"os"
)

// GitFacts are pre-parsed git facts supplied by a collaborator. The engine
// never shells out to git itself.
type GitFacts struct {
	HasRepo              bool     `json:"has_repo"`
	CurrentBranch        string   `json:"current_branch"`
	UncommittedFileCount int      `json:"uncommitted_file_count"`
	ModifiedFiles        []string `json:"modified_files"`
	RecentCommitMessages []string `json:"recent_commit_messages"`
}

// Context is the per-request project/environment snapshot.
type Context struct {
	ActiveContexts    []string `json:"active_contexts"`
	ProtectedBranches []string `json:"protected_branches"`
	DiskFreeBytes     int64    `json:"disk_free_bytes"`

	Git GitFacts `json:"git"`

	// Named fields addressable by argument inference convention.
	ProjectType string `json:"project_type"`
	Framework   string `json:"framework"`
	RootDir     string `json:"root_dir"`
	SourceDir   string `json:"source_dir"`
}

// Default returns a context with the conventional protected branches and
// nothing else known.
func Default() Context {
	return Context{
		ProtectedBranches: []string{"main", "master"},
	}
}

// Load reads a context record from a JSON file, for CLI use. Missing
// protected branches fall back to the defaults.
func Load(path string) (Context, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Context{}, fmt.Errorf("read context: %w", err)
	}
	ctx := Default()
	if err := json.Unmarshal(data, &ctx); err != nil {
		return Context{}, fmt.Errorf("parse context: %w", err)
	}
	if len(ctx.ProtectedBranches) == 0 {
		ctx.ProtectedBranches = []string{"main", "master"}
	}
	return ctx, nil
}

// HasActiveContext reports whether any of the given context names is active.
func (c Context) HasActiveContext(names []string) bool {
	for _, name := range names {
		for _, active := range c.ActiveContexts {
			if name == active {
				return true
			}
		}
	}
	return false
}

// OnProtectedBranch reports whether the current branch is protected.
func (c Context) OnProtectedBranch() bool {
	for _, b := range c.ProtectedBranches {
		if c.Git.CurrentBranch == b {
			return true
		}
	}
	return false
}

// Field looks up a context value by argument name, applying the known
// naming aliases used during inference. Returns false when the context has
// nothing for that name.
func (c Context) Field(name string) (string, bool) {
	switch name {
	case "target", "path", "file", "directory":
		if c.SourceDir != "" {
			return c.SourceDir, true
		}
		if c.RootDir != "" {
			return c.RootDir, true
		}
	case "type":
		if c.ProjectType != "" && c.ProjectType != "unknown" {
			return c.ProjectType, true
		}
	case "framework":
		if c.Framework != "" {
			return c.Framework, true
		}
	case "language", "platform":
		switch c.ProjectType {
		case "python", "typescript", "javascript", "go", "rust":
			return c.ProjectType, true
		case "mixed":
			return "typescript", true
		}
	}
	return "", false
}
