package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var learningCmd = &cobra.Command{
	Use:   "learning",
	Short: "Inspect or reset accumulated usage data",
}

var learningStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show usage statistics from the learning store",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := buildEngine()
		if err != nil {
			return err
		}
		defer eng.close()

		stats := eng.store.GetStats()
		fmt.Printf("Skills tracked:    %d\n", stats.SkillsTracked)
		fmt.Printf("Total executions:  %d\n", stats.TotalExecutions)
		if stats.MostUsedSkill != "" {
			fmt.Printf("Most used skill:   %s (%.0f%% success)\n",
				stats.MostUsedSkill, eng.store.SuccessRate(stats.MostUsedSkill)*100)
		}
		fmt.Printf("Argument patterns: %d\n", stats.ArgumentKeys)

		if recent := eng.store.RecentSkills(5); len(recent) > 0 {
			fmt.Println("Recent skills:")
			for _, name := range recent {
				fmt.Printf("  - %s\n", name)
			}
		}
		return nil
	},
}

var learningResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Discard all learning data",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := buildEngine()
		if err != nil {
			return err
		}
		defer eng.close()

		eng.store.Reset()
		fmt.Println("Learning data reset.")
		return nil
	},
}

func init() {
	learningCmd.AddCommand(learningStatsCmd)
	learningCmd.AddCommand(learningResetCmd)
	rootCmd.AddCommand(learningCmd)
}
