package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"skillrouter/internal/router"
)

var (
	routeDryRun  bool
	routeTimeout time.Duration
)

var routeCmd = &cobra.Command{
	Use:   "route <query>",
	Short: "Match a query and auto-execute the top skill when eligible",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")

		eng, err := buildEngine()
		if err != nil {
			return err
		}
		defer eng.close()

		pctx, err := loadContext(eng.cfg)
		if err != nil {
			return err
		}

		timeout := routeTimeout
		if timeout == 0 {
			timeout = eng.cfg.Execution.ParsedTimeout()
		}

		result := eng.router.Route(cmd.Context(), query, pctx, router.Options{
			DryRun:  routeDryRun,
			Timeout: timeout,
		})
		logger.Debug("routed query",
			zap.String("request_id", result.RequestID),
			zap.String("outcome", string(result.Outcome)),
			zap.Float64("confidence", result.Confidence))

		printResult(result)
		return nil
	},
}

func printResult(result router.Result) {
	switch result.Outcome {
	case router.OutcomeBlocked:
		fmt.Printf("BLOCKED: %s\n\n%s\n", result.Reason, result.Suggestions())
	case router.OutcomeSuggested:
		if result.Output != "" {
			fmt.Println(result.Output)
			return
		}
		fmt.Println(result.Suggestions())
	case router.OutcomeExecuted:
		if result.Success {
			fmt.Printf("Executed: /%s\n\n%s\n", result.Skill, result.Output)
		} else {
			fmt.Printf("Execution failed: %s\n", result.Reason)
		}
	}

	for _, w := range result.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
}

func init() {
	routeCmd.Flags().BoolVar(&routeDryRun, "dry-run", false, "evaluate the pipeline without executing or tracking")
	routeCmd.Flags().DurationVar(&routeTimeout, "timeout", 0, "execution timeout (default from config)")
	rootCmd.AddCommand(routeCmd)
}
