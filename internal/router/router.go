// Package router orchestrates matching, inference, safety validation,
// execution, and learning updates into a single decision per request. It is
// the only state machine in the system.
package router

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"skillrouter/internal/catalog"
	"skillrouter/internal/history"
	"skillrouter/internal/infer"
	"skillrouter/internal/intent"
	"skillrouter/internal/learning"
	"skillrouter/internal/logging"
	"skillrouter/internal/project"
	"skillrouter/internal/safety"
)

// DefaultExecutionTimeout bounds the external skill call when the caller
// does not supply its own.
const DefaultExecutionTimeout = 2 * time.Minute

// state is one step of the routing pipeline.
type state int

const (
	stateMatching state = iota
	stateEligibility
	stateSafety
	stateExecuting
	stateTracking
	stateDone
)

// Outcome is the terminal result of routing one request.
type Outcome string

const (
	// OutcomeExecuted: the skill ran (successfully or not) and was tracked.
	OutcomeExecuted Outcome = "executed"
	// OutcomeSuggested: no auto-execution; ranked alternatives returned.
	OutcomeSuggested Outcome = "suggested"
	// OutcomeBlocked: safety validation failed; the skill never ran.
	OutcomeBlocked Outcome = "blocked"
)

// ExecutionOutput is what the external execution collaborator returns.
type ExecutionOutput struct {
	Success bool
	Output  string
	Err     string
}

// Executor invokes a skill's business logic. It is external to this engine
// and may block; the router enforces a timeout around it.
type Executor interface {
	Execute(ctx context.Context, skillName string, args map[string]string) (ExecutionOutput, error)
}

// Result is the final decision returned to the caller.
type Result struct {
	RequestID string
	Query     string
	Outcome   Outcome

	Executed bool
	Success  bool
	Output   string

	Skill      string
	Arguments  map[string]string
	Confidence float64

	// Reason carries the safety block message; Warnings carry soft issues.
	Reason   string
	Warnings []string

	// Alternatives are the ranked candidates, returned on every outcome.
	Alternatives []intent.Candidate

	Elapsed time.Duration
}

// Suggestions renders the alternatives for plain-text display.
func (r Result) Suggestions() string {
	return intent.FormatSuggestions(r.Alternatives)
}

// Options tune a single routing request.
type Options struct {
	// DryRun evaluates the full pipeline but does not execute or track.
	DryRun bool
	// Timeout overrides DefaultExecutionTimeout when positive.
	Timeout time.Duration
}

// Router wires the pipeline together.
type Router struct {
	matcher   *intent.Matcher
	inferrer  *infer.Inferrer
	validator *safety.Validator
	store     *learning.Store
	executor  Executor
	decisions *history.Store // optional
}

// New builds a router. decisions may be nil to disable the history log.
func New(matcher *intent.Matcher, inferrer *infer.Inferrer, validator *safety.Validator,
	store *learning.Store, executor Executor, decisions *history.Store) *Router {
	return &Router{
		matcher:   matcher,
		inferrer:  inferrer,
		validator: validator,
		store:     store,
		executor:  executor,
		decisions: decisions,
	}
}

// Route runs one request through MATCHING, ELIGIBILITY, SAFETY, EXECUTING,
// and TRACKING, with early exits to the suggested and blocked outcomes.
// Each query is independent; no request cancels another.
func (r *Router) Route(ctx context.Context, query string, pctx project.Context, opts Options) Result {
	start := time.Now()
	result := Result{
		RequestID: uuid.NewString(),
		Query:     query,
	}

	var (
		candidates []intent.Candidate
		top        intent.Candidate
		resolved   map[string]string
		execOut    ExecutionOutput
	)

	current := stateMatching
	for {
		switch current {
		case stateMatching:
			candidates = r.matcher.Rank(query, pctx)
			result.Alternatives = candidates
			if len(candidates) == 0 {
				logging.Router("req=%s no candidates for %q", result.RequestID, query)
				return r.finish(result, OutcomeSuggested, start)
			}
			top = candidates[0]
			result.Skill = top.Skill.Name
			result.Confidence = top.Confidence
			current = stateEligibility

		case stateEligibility:
			var complete bool
			resolved, complete = r.inferrer.Infer(query, top.Skill, top.ExtractedArgs, pctx)
			result.Arguments = resolved

			if reason, eligible := checkEligibility(top, complete); !eligible {
				logging.Router("req=%s suggest %s: %s", result.RequestID, top.Skill.Name, reason)
				return r.finish(result, OutcomeSuggested, start)
			}
			current = stateSafety

		case stateSafety:
			decision := r.validator.Validate(top.Skill, pctx)
			result.Warnings = decision.Warnings
			if !decision.Allow {
				result.Reason = decision.Reason
				logging.RouterWarn("req=%s blocked %s: %s", result.RequestID, top.Skill.Name, decision.Reason)
				return r.finish(result, OutcomeBlocked, start)
			}
			current = stateExecuting

		case stateExecuting:
			if opts.DryRun {
				result.Output = fmt.Sprintf("[dry run] would execute: %s", catalog.FormatCommand(top.Skill.Name, resolved))
				result.Success = true
				result.Outcome = OutcomeSuggested
				result.Elapsed = time.Since(start)
				return result
			}
			execOut = r.execute(ctx, top.Skill.Name, resolved, opts.Timeout)
			result.Executed = true
			result.Success = execOut.Success
			result.Output = execOut.Output
			if execOut.Err != "" {
				result.Reason = execOut.Err
			}
			current = stateTracking

		case stateTracking:
			// Tracked regardless of success or failure.
			r.store.TrackExecution(query, top.Skill.Name, execOut.Success, resolved)
			current = stateDone

		case stateDone:
			logging.Router("req=%s executed %s success=%v", result.RequestID, top.Skill.Name, execOut.Success)
			return r.finish(result, OutcomeExecuted, start)
		}
	}
}

// checkEligibility applies the auto-execution criteria to the top
// candidate. Any failure routes the request to the suggested outcome.
func checkEligibility(top intent.Candidate, argsComplete bool) (string, bool) {
	trigger := top.Skill.AutoTrigger
	switch {
	case !trigger.Enabled:
		return "auto-trigger disabled", false
	case top.Confidence < trigger.ConfidenceThreshold:
		return fmt.Sprintf("confidence %.2f below threshold %.2f", top.Confidence, trigger.ConfidenceThreshold), false
	case !argsComplete:
		return "required arguments incomplete", false
	case trigger.ConfirmBeforeExecution:
		// Unconditionally disables auto-execution for this skill.
		return "confirmation required", false
	}
	return "", true
}

// execute invokes the external collaborator under a timeout. An exceeded
// timeout is a failed execution, not a safety block: the skill was
// attempted.
func (r *Router) execute(ctx context.Context, skillName string, args map[string]string, timeout time.Duration) ExecutionOutput {
	if timeout <= 0 {
		timeout = DefaultExecutionTimeout
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type execResult struct {
		out ExecutionOutput
		err error
	}
	done := make(chan execResult, 1)
	go func() {
		out, err := r.executor.Execute(execCtx, skillName, args)
		done <- execResult{out, err}
	}()

	select {
	case <-execCtx.Done():
		logging.RouterWarn("execution of %s timed out after %v", skillName, timeout)
		return ExecutionOutput{Success: false, Err: fmt.Sprintf("execution timed out after %v", timeout)}
	case res := <-done:
		if res.err != nil {
			return ExecutionOutput{Success: false, Output: res.out.Output, Err: res.err.Error()}
		}
		return res.out
	}
}

// finish stamps the result, appends it to the decision history, and
// returns it.
func (r *Router) finish(result Result, outcome Outcome, start time.Time) Result {
	result.Outcome = outcome
	result.Elapsed = time.Since(start)

	if r.decisions != nil {
		err := r.decisions.Append(history.Record{
			RequestID:  result.RequestID,
			Timestamp:  time.Now(),
			Query:      result.Query,
			Skill:      result.Skill,
			Outcome:    string(outcome),
			Confidence: result.Confidence,
			Reason:     result.Reason,
		})
		if err != nil {
			logging.RouterWarn("history append failed: %v", err)
		}
	}
	return result
}
