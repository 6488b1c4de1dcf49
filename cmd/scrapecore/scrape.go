package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/0xtamizh/scrapebase/internal/service"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape <url>",
	Short: "Scrape a single page: main content, navigation, social/contact/image/external links, footer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		url := args[0]
		return withService(func(ctx context.Context, svc *service.Service) error {
			result, err := svc.ScrapePage(ctx, url)
			if err != nil {
				return err
			}
			if !result.Success {
				return fmt.Errorf("scrape failed: %s", result.Error.Message)
			}
			return printJSON(result)
		})
	},
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
