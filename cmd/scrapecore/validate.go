package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/0xtamizh/scrapebase/internal/config"
)

var validateConfigCmd = &cobra.Command{
	Use:   "validate-config",
	Short: "Load and bounds-check the configuration without starting a browser",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("config invalid: %w", err)
		}
		fmt.Println("config OK")
		return nil
	},
}
