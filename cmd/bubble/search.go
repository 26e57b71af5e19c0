package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Wolverine971/bubble-search/config"
	"github.com/Wolverine971/bubble-search/internal/entity"
	"github.com/Wolverine971/bubble-search/internal/search"
	"github.com/Wolverine971/bubble-search/provider"
	web_search "github.com/Wolverine971/bubble-search/tools/web_search"
)

// searchCMD runs one query through the full pipeline without the HTTP
// server, printing progress stages to stdout.
func searchCMD() *cobra.Command {
	var cfgPath string
	var cmd = &cobra.Command{
		Use:   "search [query]",
		Short: "Run a one-shot search from the command line",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			query := strings.Join(args, " ")
			ctx := context.Background()

			searcher, err := web_search.NewSearcher(web_search.Provider(cfg.Search.Provider), cfg.Search)
			if err != nil {
				return err
			}
			llm, err := provider.NewProvider(cfg.LLM)
			if err != nil {
				return err
			}
			analyzer := entity.NewService(cfg.Entity, nil)
			pipeline := search.NewPipeline(cfg.Engine, llm, nil)
			engine := search.NewEngine(cfg.Engine, searcher, analyzer, pipeline, nil)

			intent, err := pipeline.ClassifyIntent(ctx, query)
			if err != nil {
				return err
			}
			fmt.Printf("intent: %s\n", intent)

			plan, err := pipeline.GeneratePlan(ctx, query, intent)
			if err != nil {
				return err
			}
			for _, step := range plan {
				fmt.Printf("plan: [%s] %s\n", step.Mode, step.Description)
			}

			outcome, err := engine.Execute(ctx, query, plan, intent, func(stage string, data map[string]interface{}) {
				fmt.Printf("stage: %s\n", stage)
			})
			if err != nil {
				return err
			}

			fmt.Println()
			fmt.Println(outcome.Answer)
			if len(outcome.Results) > 0 {
				fmt.Println()
				fmt.Println("sources:")
				for _, hit := range outcome.Results {
					fmt.Printf("  %s (%s)\n", hit.Title, hit.URL)
				}
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return cmd
}
