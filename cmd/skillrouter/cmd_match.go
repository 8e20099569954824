package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"skillrouter/internal/intent"
)

var matchCmd = &cobra.Command{
	Use:   "match <query>",
	Short: "Rank a query against the skill catalog without executing",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")

		eng, err := buildEngine()
		if err != nil {
			return err
		}
		defer eng.close()

		ctx, err := loadContext(eng.cfg)
		if err != nil {
			return err
		}

		candidates := eng.matcher.Rank(query, ctx)
		logger.Debug("ranked query", zap.String("query", query), zap.Int("candidates", len(candidates)))

		fmt.Println(intent.FormatSuggestions(candidates))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)
}
