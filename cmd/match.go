package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/firmable/unify/internal/pipeline"
	"github.com/firmable/unify/internal/store"
)

var matchMaxReviews int

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Run one matching pass over the staging tables",
	Long:  "Fetches registry entities and crawl mentions, scores every pair, adjudicates ambiguous candidates, and rewrites the unified company set. Prints the run summary as JSON.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		maxReviews := cfg.Review.MaxReviews
		if cmd.Flags().Changed("max-reviews") {
			maxReviews = matchMaxReviews
		}

		p := pipeline.New(st, initReviewer(cfg), pipeline.Options{
			Registry: store.RegistryFilter{
				ActiveOnly:    cfg.Registry.ActiveOnly,
				SampleModulus: cfg.Registry.SampleModulus,
			},
			Mentions:   store.MentionFilter{SampleModulus: cfg.Crawl.SampleModulus},
			Match:      cfg.Match,
			MaxReviews: maxReviews,
		})

		summary, err := p.Run(ctx)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(summary), "encode summary")
	},
}

func init() {
	matchCmd.Flags().IntVar(&matchMaxReviews, "max-reviews", 0, "cap on oracle reviews this run (default from config)")
	rootCmd.AddCommand(matchCmd)
}
