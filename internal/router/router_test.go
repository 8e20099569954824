package router

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"skillrouter/internal/catalog"
	"skillrouter/internal/history"
	"skillrouter/internal/infer"
	"skillrouter/internal/intent"
	"skillrouter/internal/learning"
	"skillrouter/internal/project"
	"skillrouter/internal/safety"
)

const autoDeployDoc = `---
name: deploy
intents:
  primary:
    - "deploy {target}"
arguments:
  - name: target
    type: string
    required: true
    infer_from: [user_query]
auto_trigger:
  enabled: true
  confidence_threshold: 0.85
  confirm_before_execution: false
---
`

const autoCleanupDoc = `---
name: cleanup
intents:
  primary:
    - "cleanup {target}"
arguments:
  - name: target
    type: path
    required: true
    infer_from: [user_query]
auto_trigger:
  enabled: true
  confidence_threshold: 0.85
  confirm_before_execution: false
---
`

func mustSkill(t *testing.T, doc string) *catalog.Skill {
	t.Helper()
	skill, err := catalog.ParseSkill([]byte(doc))
	if err != nil {
		t.Fatalf("ParseSkill: %v", err)
	}
	return skill
}

type stubExecutor struct {
	out   ExecutionOutput
	err   error
	delay time.Duration
	calls int
}

func (e *stubExecutor) Execute(ctx context.Context, skillName string, args map[string]string) (ExecutionOutput, error) {
	e.calls++
	if e.delay > 0 {
		select {
		case <-time.After(e.delay):
		case <-ctx.Done():
		}
	}
	return e.out, e.err
}

func newTestRouter(t *testing.T, exec Executor, skills ...*catalog.Skill) (*Router, *learning.Store) {
	t.Helper()
	store, err := learning.Open(filepath.Join(t.TempDir(), "learning.json"))
	if err != nil {
		t.Fatalf("learning.Open: %v", err)
	}
	cat := catalog.New(skills...)
	return New(intent.NewMatcher(cat, store), infer.New(store), safety.New(nil), store, exec, nil), store
}

func gitCtx(branch string) project.Context {
	ctx := project.Default()
	ctx.Git = project.GitFacts{HasRepo: true, CurrentBranch: branch}
	return ctx
}

func TestRouteExecutes(t *testing.T) {
	exec := &stubExecutor{out: ExecutionOutput{Success: true, Output: "done"}}
	r, store := newTestRouter(t, exec, mustSkill(t, autoDeployDoc))

	res := r.Route(context.Background(), "deploy staging", gitCtx("dev"), Options{})
	if res.Outcome != OutcomeExecuted || !res.Executed || !res.Success {
		t.Fatalf("result = %+v, want executed success", res)
	}
	if res.Skill != "deploy" || res.Arguments["target"] != "staging" {
		t.Errorf("skill=%s args=%v", res.Skill, res.Arguments)
	}
	if res.Output != "done" {
		t.Errorf("output = %q", res.Output)
	}
	if exec.calls != 1 {
		t.Errorf("executor calls = %d", exec.calls)
	}
	if stats := store.GetStats(); stats.TotalExecutions != 1 {
		t.Errorf("stats = %+v, want one tracked execution", stats)
	}
	if res.RequestID == "" {
		t.Error("request id must be set")
	}
}

func TestRouteSuggestsBelowThreshold(t *testing.T) {
	exec := &stubExecutor{}
	skill := mustSkill(t, `---
name: test-runner
intents:
  keywords: [test]
auto_trigger:
  enabled: true
  confirm_before_execution: false
---
`)
	r, store := newTestRouter(t, exec, skill)

	// Keyword match 0.60 stays below the 0.85 threshold.
	res := r.Route(context.Background(), "run the test suite", gitCtx("dev"), Options{})
	if res.Outcome != OutcomeSuggested || res.Executed {
		t.Fatalf("result = %+v, want suggested", res)
	}
	if len(res.Alternatives) != 1 {
		t.Errorf("alternatives = %d, want 1", len(res.Alternatives))
	}
	if exec.calls != 0 {
		t.Error("executor must not run on a suggestion")
	}
	if stats := store.GetStats(); stats.TotalExecutions != 0 {
		t.Error("suggestions are not tracked as executions")
	}
}

func TestRouteSuggestsWhenConfirmRequired(t *testing.T) {
	exec := &stubExecutor{}
	skill := mustSkill(t, `---
name: deploy
intents:
  primary:
    - "deploy {target}"
arguments:
  - name: target
    type: string
    required: true
auto_trigger:
  enabled: true
  confidence_threshold: 0.85
  confirm_before_execution: true
---
`)
	r, _ := newTestRouter(t, exec, skill)

	res := r.Route(context.Background(), "deploy staging", gitCtx("dev"), Options{})
	if res.Outcome != OutcomeSuggested || exec.calls != 0 {
		t.Fatalf("result = %+v calls = %d, want suggested without execution", res, exec.calls)
	}
}

func TestRouteBlocksDestructiveOnMain(t *testing.T) {
	exec := &stubExecutor{}
	r, store := newTestRouter(t, exec, mustSkill(t, autoCleanupDoc))

	res := r.Route(context.Background(), "cleanup ./tmp", gitCtx("main"), Options{})
	if res.Outcome != OutcomeBlocked || res.Executed {
		t.Fatalf("result = %+v, want blocked", res)
	}
	if !strings.Contains(res.Reason, "protected branch") {
		t.Errorf("reason = %q", res.Reason)
	}
	if exec.calls != 0 {
		t.Error("executor must not run on a block")
	}
	if stats := store.GetStats(); stats.TotalExecutions != 0 {
		t.Error("blocked requests are not tracked")
	}

	// The same request off the protected branch goes through.
	res = r.Route(context.Background(), "cleanup ./tmp", gitCtx("feature/tidy"), Options{})
	if res.Outcome != OutcomeExecuted {
		t.Errorf("result = %+v, want executed on a feature branch", res)
	}
}

func TestRouteBlocksKeywordMatchOnMain(t *testing.T) {
	// Block wins even when the match is confident enough to auto-execute.
	exec := &stubExecutor{}
	skill := mustSkill(t, `---
name: cleanup
intents:
  keywords: [cleanup, files]
auto_trigger:
  enabled: true
  confidence_threshold: 0.55
  confirm_before_execution: false
---
`)
	r, _ := newTestRouter(t, exec, skill)

	res := r.Route(context.Background(), "cleanup old files", gitCtx("main"), Options{})
	if res.Outcome != OutcomeBlocked {
		t.Fatalf("result = %+v, want blocked", res)
	}
	if res.Confidence < 0.55 {
		t.Errorf("confidence = %v, should have cleared the threshold", res.Confidence)
	}
	if exec.calls != 0 {
		t.Error("executor must not run")
	}
}

func TestRouteNoCandidates(t *testing.T) {
	exec := &stubExecutor{}
	r, _ := newTestRouter(t, exec, mustSkill(t, autoDeployDoc))

	res := r.Route(context.Background(), "completely unrelated request", gitCtx("dev"), Options{})
	if res.Outcome != OutcomeSuggested || len(res.Alternatives) != 0 {
		t.Fatalf("result = %+v, want empty suggestion", res)
	}
	if !strings.Contains(res.Suggestions(), "No matching skills") {
		t.Errorf("suggestions = %q", res.Suggestions())
	}
}

func TestRouteFailureIsTracked(t *testing.T) {
	exec := &stubExecutor{err: errors.New("deploy script exited 1")}
	r, store := newTestRouter(t, exec, mustSkill(t, autoDeployDoc))

	res := r.Route(context.Background(), "deploy staging", gitCtx("dev"), Options{})
	if res.Outcome != OutcomeExecuted || res.Success {
		t.Fatalf("result = %+v, want executed failure", res)
	}
	if !strings.Contains(res.Reason, "exited 1") {
		t.Errorf("reason = %q", res.Reason)
	}

	usage := store.Snapshot().SkillUsage["deploy"]
	if usage.Count != 1 || usage.SuccessCount != 0 {
		t.Errorf("usage = %+v, want failure tracked", usage)
	}
}

func TestRouteTimeout(t *testing.T) {
	exec := &stubExecutor{delay: time.Second, out: ExecutionOutput{Success: true}}
	r, store := newTestRouter(t, exec, mustSkill(t, autoDeployDoc))

	res := r.Route(context.Background(), "deploy staging", gitCtx("dev"), Options{Timeout: 50 * time.Millisecond})
	if res.Outcome != OutcomeExecuted || res.Success {
		t.Fatalf("result = %+v, want executed failure on timeout", res)
	}
	if !strings.Contains(res.Reason, "timed out") {
		t.Errorf("reason = %q", res.Reason)
	}

	usage := store.Snapshot().SkillUsage["deploy"]
	if usage.Count != 1 || usage.SuccessCount != 0 {
		t.Errorf("usage = %+v, want timeout tracked as failure", usage)
	}
}

func TestRouteDryRun(t *testing.T) {
	exec := &stubExecutor{out: ExecutionOutput{Success: true}}
	r, store := newTestRouter(t, exec, mustSkill(t, autoDeployDoc))

	res := r.Route(context.Background(), "deploy staging", gitCtx("dev"), Options{DryRun: true})
	if res.Outcome != OutcomeSuggested || res.Executed {
		t.Fatalf("result = %+v, want dry-run suggestion", res)
	}
	if !strings.Contains(res.Output, "/deploy --target staging") {
		t.Errorf("output = %q", res.Output)
	}
	if exec.calls != 0 {
		t.Error("dry run must not execute")
	}
	if stats := store.GetStats(); stats.TotalExecutions != 0 {
		t.Error("dry run must not track")
	}
}

func TestRouteAppendsHistory(t *testing.T) {
	decisions, err := history.New(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer decisions.Close()

	store, err := learning.Open(filepath.Join(t.TempDir(), "learning.json"))
	if err != nil {
		t.Fatal(err)
	}
	cat := catalog.New(mustSkill(t, autoCleanupDoc))
	r := New(intent.NewMatcher(cat, store), infer.New(store), safety.New(nil), store,
		&stubExecutor{out: ExecutionOutput{Success: true}}, decisions)

	r.Route(context.Background(), "cleanup ./tmp", gitCtx("main"), Options{})
	r.Route(context.Background(), "cleanup ./tmp", gitCtx("dev"), Options{})

	records, err := decisions.Recent(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	outcomes := map[string]bool{}
	for _, rec := range records {
		outcomes[rec.Outcome] = true
	}
	if !outcomes["blocked"] || !outcomes["executed"] {
		t.Errorf("recorded outcomes = %v, want blocked and executed", outcomes)
	}
}
