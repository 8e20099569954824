package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent routing decisions",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := buildEngine()
		if err != nil {
			return err
		}
		defer eng.close()

		if eng.decisions == nil {
			return fmt.Errorf("decision history is disabled in config")
		}
		records, err := eng.decisions.Recent(historyLimit)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No decisions recorded yet.")
			return nil
		}
		for _, rec := range records {
			fmt.Printf("%s  %-9s %-20s %.2f  %q\n",
				rec.Timestamp.Format("2006-01-02 15:04:05"),
				rec.Outcome, rec.Skill, rec.Confidence, rec.Query)
			if rec.Reason != "" {
				fmt.Printf("    %s\n", rec.Reason)
			}
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum decisions to show")
	rootCmd.AddCommand(historyCmd)
}
