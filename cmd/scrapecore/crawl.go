package main

import (
	"context"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/0xtamizh/scrapebase/internal/model"
	"github.com/0xtamizh/scrapebase/internal/service"
)

var (
	subpagesCount int
	maxDepth      int
	keywords      []string
)

var crawlCmd = &cobra.Command{
	Use:   "crawl <url>",
	Short: "Scrape a root URL plus its best K subpages and merge the results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		url := args[0]
		opts := model.CrawlOptions{
			SubpagesCount: subpagesCount,
			Keywords:      keywords,
			MaxDepth:      maxDepth,
		}

		return withService(func(ctx context.Context, svc *service.Service) error {
			bar := progressbar.NewOptions(1,
				progressbar.OptionSetDescription(fmt.Sprintf("crawling %s", url)),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "=",
					SaucerHead:    ">",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
			)

			result, err := svc.ScrapeWebsite(ctx, url, opts)
			_ = bar.Add(1)
			_ = bar.Finish()
			if err != nil {
				return err
			}

			fmt.Printf("\nroot: %s\n", result.MainResult.URL)
			fmt.Printf("subpages requested: %d, processed: %d, failed: %d\n",
				result.Stats.Requested, result.Stats.Processed, result.Stats.Failed)
			for _, sp := range result.Subpages {
				status := "ok"
				if !sp.Success {
					status = "failed"
				}
				fmt.Printf("  - [%s] %s\n", status, sp.URL)
			}
			return printJSON(result)
		})
	},
}

func init() {
	crawlCmd.Flags().IntVar(&subpagesCount, "subpages", 0, "number of subpages to select (0 = use configured default)")
	crawlCmd.Flags().IntVar(&maxDepth, "max-depth", 0, "maximum subpage path depth (0 = use configured default)")
	crawlCmd.Flags().StringSliceVar(&keywords, "keywords", nil, "extra keywords that boost subpage scoring")
}
