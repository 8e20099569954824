package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var skillsCmd = &cobra.Command{
	Use:   "skills",
	Short: "List loaded skills and their trigger configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := buildEngine()
		if err != nil {
			return err
		}
		defer eng.close()

		for _, skill := range eng.catalog.List() {
			auto := "suggest-only"
			if skill.AutoTrigger.Enabled && !skill.AutoTrigger.ConfirmBeforeExecution {
				auto = fmt.Sprintf("auto >= %.2f", skill.AutoTrigger.ConfidenceThreshold)
			}
			fmt.Printf("%-20s %-14s keywords=%d patterns=%d primary=%d  [%s]\n",
				skill.Name, skill.Category,
				len(skill.Keywords), len(skill.Patterns), len(skill.PrimaryTemplates), auto)
			if skill.Description != "" {
				fmt.Printf("    %s\n", skill.Description)
			}
		}
		fmt.Printf("\n%d skills loaded\n", eng.catalog.Len())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(skillsCmd)
}
