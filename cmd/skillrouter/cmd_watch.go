package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"skillrouter/internal/catalog"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the skills directory and reload the catalog on changes",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := buildEngine()
		if err != nil {
			return err
		}
		defer eng.close()

		w, err := catalog.NewWatcher(eng.cfg.SkillsDir, func(cat *catalog.Catalog) {
			eng.matcher.SetCatalog(cat)
			fmt.Printf("catalog reloaded: %d skills\n", cat.Len())
			for _, warning := range cat.Warnings() {
				fmt.Printf("warning: %s\n", warning)
			}
		})
		if err != nil {
			return fmt.Errorf("start watcher: %w", err)
		}
		if err := w.Start(cmd.Context()); err != nil {
			return err
		}
		defer w.Stop()

		fmt.Printf("watching %s (%d skills loaded), ctrl-c to stop\n",
			eng.cfg.SkillsDir, eng.catalog.Len())

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		sig := <-sigCh
		logger.Debug("watch stopped", zap.String("signal", sig.String()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
