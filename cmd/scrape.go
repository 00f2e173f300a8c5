package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/cfb-rookie-crawler/internal/input"
	"github.com/JakeFAU/cfb-rookie-crawler/internal/progress"
)

type scrapeOptions struct {
	inputDir string
	limit    int
	misses   bool
}

func newScrapeCmd(root *rootOptions) *cobra.Command {
	opts := &scrapeOptions{}
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Process every player in the draft-class files",
		Long: `Reads every draft-class CSV in the input directory, resolves each
player to a college profile and appends the merged season rows to the season
store. Players without a verified profile are skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScrape(cmd, root, opts)
		},
	}
	cmd.Flags().StringVar(&opts.inputDir, "input-dir", "", "override pipeline.input_dir")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "process at most this many players (0 = all)")
	cmd.Flags().BoolVar(&opts.misses, "show-misses", false, "list players that produced no records")
	return cmd
}

func runScrape(cmd *cobra.Command, root *rootOptions, opts *scrapeOptions) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	pc := root.cfg.Pipeline
	dir := pc.InputDir
	if opts.inputDir != "" {
		dir = opts.inputDir
	}
	queries, err := input.LoadDir(dir, pc.InputGlob, pc.Columns)
	if err != nil {
		return fmt.Errorf("load input: %w", err)
	}
	if opts.limit > 0 && opts.limit < len(queries) {
		queries = queries[:opts.limit]
	}
	appInstance.Logger().Info("loaded queries", zap.String("dir", dir), zap.Int("queries", len(queries)))

	summary, runErr := appInstance.Run(cmd.Context(), queries)
	renderSummary(cmd.OutOrStdout(), summary, opts.misses)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

func renderSummary(w io.Writer, s progress.Summary, misses bool) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Run " + s.RunID)
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRow(table.Row{"Queries", fmt.Sprintf("%d / %d", s.Processed, s.Total)})
	outcomes := make([]string, 0, len(s.Outcomes))
	for k := range s.Outcomes {
		outcomes = append(outcomes, k)
	}
	sort.Strings(outcomes)
	for _, k := range outcomes {
		t.AppendRow(table.Row{"Outcome " + k, s.Outcomes[k]})
	}
	t.AppendRow(table.Row{"Season records", s.Records})
	for _, src := range s.Sources() {
		t.AppendRow(table.Row{"From " + src, s.BySource[src]})
	}
	if s.FinishedAt != nil {
		t.AppendRow(table.Row{"Elapsed", s.FinishedAt.Sub(s.StartedAt).Round(time.Second).String()})
	}
	t.SetStyle(table.StyleLight)
	t.Render()

	if !misses || len(s.Misses) == 0 {
		return
	}
	mt := table.NewWriter()
	mt.SetOutputMirror(w)
	mt.SetTitle("Players without records")
	mt.AppendHeader(table.Row{"Player", "College", "Outcome", "Error"})
	for _, m := range s.Misses {
		mt.AppendRow(table.Row{m.Player, m.College, m.Outcome, m.Error})
	}
	mt.SetStyle(table.StyleLight)
	mt.Render()
}
