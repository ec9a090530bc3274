package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/s0up4200/ballot/polls"
)

var (
	concurrency int
	interval    time.Duration
	metricsAddr string
	refreshes   int
)

// resultsCmd represents the results command
var resultsCmd = &cobra.Command{
	Use:   "results <poll-id>...",
	Short: "Show vote counts for one or more polls",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runResults,
}

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch <poll-id>...",
	Short: "Refresh poll results on an interval",
	Long: `Fetch results for the given polls every --interval until interrupted.

With --metrics-addr the command also serves Prometheus metrics about the
API requests it makes on /metrics, plus a /healthz probe.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(resultsCmd)
	rootCmd.AddCommand(watchCmd)

	resultsCmd.Flags().IntVar(&concurrency, "concurrency", 0, "maximum concurrent requests (default watch.concurrency)")

	watchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "maximum concurrent requests (default watch.concurrency)")
	watchCmd.Flags().DurationVar(&interval, "interval", 0, "refresh interval (default watch.interval)")
	watchCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve metrics on this address (default watch.metrics_addr)")
	watchCmd.Flags().IntVar(&refreshes, "count", 0, "stop after this many refreshes (0 runs until interrupted)")
}

func runResults(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}

	results, err := fetchResults(cmd.Context(), client, ids, effectiveConcurrency(cmd))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for i, r := range results {
		if i > 0 {
			fmt.Fprintln(out)
		}
		renderResults(out, r)
	}
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}

	every := cfg.Watch.Interval
	if cmd.Flags().Changed("interval") {
		every = interval
	}
	if every <= 0 {
		return fmt.Errorf("invalid interval %s: must be positive", every)
	}

	addr := cfg.Watch.MetricsAddr
	if cmd.Flags().Changed("metrics-addr") {
		addr = metricsAddr
	}

	g, ctx := errgroup.WithContext(cmd.Context())

	// Stop the metrics server once the refresh loop is done
	loopCtx, stopLoop := context.WithCancel(ctx)
	defer stopLoop()

	if addr != "" {
		srv := &http.Server{
			Addr:              addr,
			Handler:           metricsRouter(),
			ReadHeaderTimeout: 5 * time.Second,
		}

		g.Go(func() error {
			logger.Info().Str("addr", addr).Msg("Serving metrics")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-loopCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		defer stopLoop()
		return watchLoop(loopCtx, cmd.OutOrStdout(), ids, every, effectiveConcurrency(cmd), refreshes)
	})

	return g.Wait()
}

// watchLoop refreshes results until ctx is done or count refreshes ran.
// A failed refresh is logged and retried on the next tick.
func watchLoop(ctx context.Context, out io.Writer, ids []int64, every time.Duration, limit, count int) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for n := 1; ; n++ {
		results, err := fetchResults(ctx, client, ids, limit)
		switch {
		case ctx.Err() != nil:
			return nil
		case err != nil:
			logger.Error().Err(err).Int("refresh", n).Msg("Failed to refresh results")
		default:
			fmt.Fprintf(out, "── %s ──\n", time.Now().Format(time.RFC3339))
			for _, r := range results {
				renderResults(out, r)
			}
		}

		if count > 0 && n >= count {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// metricsRouter exposes the client metrics registry
func metricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return r
}

// fetchResults retrieves results for every poll concurrently, keeping the
// order of ids. The first failure cancels the remaining requests.
func fetchResults(ctx context.Context, api polls.API, ids []int64, limit int) ([]*polls.PollResults, error) {
	results := make([]*polls.PollResults, len(ids))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(limit, 1))

	for i, id := range ids {
		i, id := i, id // per-iteration copies under go 1.21 loop semantics
		g.Go(func() error {
			r, err := api.GetResults(ctx, id)
			if err != nil {
				return fmt.Errorf("poll %d: %w", id, err)
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func effectiveConcurrency(cmd *cobra.Command) int {
	if cmd.Flags().Changed("concurrency") && concurrency > 0 {
		return concurrency
	}
	return cfg.Watch.Concurrency
}

// parseIDs parses poll ID arguments
func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := parseID("poll", arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// renderResults prints one poll's vote counts with a bar per option
func renderResults(w io.Writer, r *polls.PollResults) {
	const barWidth = 30

	total := r.TotalVotes()
	winners := make(map[int64]bool)
	for _, res := range r.Winners() {
		winners[res.OptionID] = true
	}

	fmt.Fprintf(w, "Poll %d: %s\n", r.PollID, r.Question)
	for _, res := range r.Results {
		share := res.Share(total)
		bar := strings.Repeat("█", int(share*barWidth/100))
		marker := " "
		if winners[res.OptionID] {
			marker = "★"
		}
		fmt.Fprintf(w, "%s %-30s %8s votes %6.1f%% %s\n", marker, res.Text, humanize.Comma(res.VoteCount), share, bar)
	}

	voteText := "votes"
	if total == 1 {
		voteText = "vote"
	}
	fmt.Fprintf(w, "  Total: %s %s\n", humanize.Comma(total), voteText)
}
