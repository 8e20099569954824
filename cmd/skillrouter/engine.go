package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"skillrouter/internal/catalog"
	"skillrouter/internal/config"
	"skillrouter/internal/history"
	"skillrouter/internal/infer"
	"skillrouter/internal/intent"
	"skillrouter/internal/learning"
	"skillrouter/internal/project"
	"skillrouter/internal/router"
	"skillrouter/internal/safety"
)

// engine bundles the wired pipeline for CLI commands.
type engine struct {
	cfg       config.Config
	catalog   *catalog.Catalog
	matcher   *intent.Matcher
	inferrer  *infer.Inferrer
	validator *safety.Validator
	store     *learning.Store
	decisions *history.Store
	router    *router.Router
}

// buildEngine loads config, catalog, and stores, and wires the router with
// the simulated executor.
func buildEngine() (*engine, error) {
	cfg, err := config.Load(workspace)
	if err != nil {
		return nil, err
	}

	cat, err := catalog.LoadDir(cfg.SkillsDir)
	if err != nil {
		return nil, fmt.Errorf("load skills: %w", err)
	}
	for _, warning := range cat.Warnings() {
		fmt.Printf("warning: %s\n", warning)
	}

	store, err := learning.Open(cfg.Learning.Path)
	if err != nil {
		return nil, fmt.Errorf("open learning store: %w", err)
	}

	var decisions *history.Store
	if cfg.History.Enabled {
		decisions, err = history.New(cfg.History.Path)
		if err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
	}

	matcher := intent.NewMatcher(cat, store)
	inferrer := infer.New(store)
	validator := safety.New(nil)

	return &engine{
		cfg:       cfg,
		catalog:   cat,
		matcher:   matcher,
		inferrer:  inferrer,
		validator: validator,
		store:     store,
		decisions: decisions,
		router:    router.New(matcher, inferrer, validator, store, simulatedExecutor{}, decisions),
	}, nil
}

// close flushes and releases engine resources.
func (e *engine) close() {
	if e.store != nil {
		_ = e.store.Save()
	}
	if e.decisions != nil {
		_ = e.decisions.Close()
	}
}

// loadContext returns the request context from --context, or defaults.
func loadContext(cfg config.Config) (project.Context, error) {
	if contextFile == "" {
		ctx := project.Default()
		ctx.ProtectedBranches = cfg.Safety.ProtectedBranches
		return ctx, nil
	}
	ctx, err := project.Load(contextFile)
	if err != nil {
		return project.Context{}, err
	}
	return ctx, nil
}

// simulatedExecutor stands in for the external execution collaborator: it
// prints what would run and reports success. Real deployments inject their
// own router.Executor.
type simulatedExecutor struct{}

func (simulatedExecutor) Execute(_ context.Context, skillName string, args map[string]string) (router.ExecutionOutput, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Executing: %s\n", skillName)
	if len(args) > 0 {
		b.WriteString("Arguments:\n")
		names := make([]string, 0, len(args))
		for name := range args {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "  - %s: %s\n", name, args[name])
		}
	}
	b.WriteString("Execution completed successfully")
	return router.ExecutionOutput{Success: true, Output: b.String()}, nil
}
