package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/s0up4200/ballot/filter"
	"github.com/s0up4200/ballot/polls"
)

var (
	skip       int
	limit      int
	fetchAll   bool
	noValidate bool
	filterExpr string
	preset     string
)

// pollsCmd represents the polls command
var pollsCmd = &cobra.Command{
	Use:     "polls",
	Aliases: []string{"list"},
	Short:   "List polls",
	Long: `List polls from the API, one page at a time or all of them.

Responses are checked for required fields unless --no-validate is given.
Use --filter or --preset to narrow the list with an expression, e.g.
  ballot polls --all --filter 'OptionCount >= 3 && contains(Question, "lunch")'`,
	RunE: runPolls,
}

func init() {
	rootCmd.AddCommand(pollsCmd)

	pollsCmd.Flags().IntVar(&skip, "skip", polls.DefaultSkip, "number of polls to skip")
	pollsCmd.Flags().IntVar(&limit, "limit", polls.DefaultLimit, "maximum number of polls to return (page size with --all)")
	pollsCmd.Flags().BoolVar(&fetchAll, "all", false, "fetch every page")
	pollsCmd.Flags().BoolVar(&noValidate, "no-validate", false, "skip per-poll schema checks")
	pollsCmd.Flags().StringVarP(&filterExpr, "filter", "f", "", "filter expression")
	pollsCmd.Flags().StringVarP(&preset, "preset", "p", "", "use a preset filter from config")
}

func runPolls(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	expr, err := getFilterExpression()
	if err != nil {
		return err
	}

	var list []polls.Poll
	switch {
	case fetchAll:
		list, err = client.FetchAllPolls(ctx, limit)
	case noValidate:
		list, err = client.FetchPolls(ctx, skip, limit)
	default:
		list, err = client.FetchPollsValidated(ctx, skip, limit)
	}
	if err != nil {
		return err
	}

	if expr != "" {
		logger.Debug().Str("filter", expr).Msg("Filtering polls")

		f, err := filter.Compile(expr)
		if err != nil {
			return fmt.Errorf("invalid filter expression: %w", err)
		}
		if list, err = f.Apply(list); err != nil {
			return err
		}
	}

	renderPolls(cmd.OutOrStdout(), list)
	return nil
}

// getFilterExpression determines the filter expression to use
func getFilterExpression() (string, error) {
	// Priority: command line filter > preset
	if filterExpr != "" {
		return filterExpr, nil
	}

	if preset != "" {
		if expr, ok := cfg.Filter.Presets[preset]; ok {
			return expr, nil
		}
		return "", fmt.Errorf("preset '%s' not found in config", preset)
	}

	return "", nil
}

// renderPolls prints a poll list
func renderPolls(w io.Writer, list []polls.Poll) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No polls found.")
		return
	}

	pollText := "poll"
	if len(list) != 1 {
		pollText = "polls"
	}
	fmt.Fprintf(w, "Found %d %s:\n", len(list), pollText)
	fmt.Fprintln(w, strings.Repeat("-", 80))

	for _, p := range list {
		fmt.Fprintf(w, "• [%d] %s\n", p.ID, p.Question)
		fmt.Fprintf(w, "  Owner: %d  Created: %s\n", p.OwnerID, describeTimestamp(p.CreatedAt))
		for _, opt := range p.Options {
			fmt.Fprintf(w, "    - %s (ID: %d)\n", opt.Text, opt.ID)
		}
	}
}

// describeTimestamp renders a timestamp relative to now when it parses
func describeTimestamp(ts polls.Timestamp) string {
	if t, ok := filter.ParseTimestamp(ts); ok {
		return fmt.Sprintf("%s (%s)", ts, humanize.Time(t))
	}
	if ts == "" {
		return "unknown"
	}
	return ts.String()
}
