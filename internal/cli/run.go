package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/jzx17/robustfetch/internal/config"
	"github.com/jzx17/robustfetch/pkg/fetch"
	"github.com/jzx17/robustfetch/pkg/redirect"
	"github.com/jzx17/robustfetch/pkg/retry"
	"github.com/jzx17/robustfetch/pkg/types"
	"github.com/jzx17/robustfetch/pkg/worker"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch every job in the job file",
	RunE:  runBatch,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		newLogger(os.Stderr, "info", "text", isDebug).Error("Failed to load config", "error", err)
		return err
	}

	logger := newLogger(os.Stderr, cfg.Logging.Level, cfg.Logging.Format, isDebug)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if cfg.Metrics.Listen != "" {
		server := startMetricsServer(cfg.Metrics.Listen, reg, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
	}

	jobs, err := runJobs(ctx, cfg, jobDeps{
		logger:     logger,
		registerer: reg,
		debug:      isDebug,
	})
	if jobs != nil {
		printSummary(cmd.OutOrStdout(), cfg.Jobs, jobs)
	}
	if err != nil {
		logger.Error("Batch aborted", "error", err)
		return err
	}
	return nil
}

// jobDeps carries the process-level collaborators of runJobs
type jobDeps struct {
	logger     *slog.Logger
	registerer prometheus.Registerer
	opener     fetch.Opener
	debug      bool
}

// jobResult pairs a batch report with the page bodies it fetched
type jobResult struct {
	report *worker.Report[int64]
	pages  map[int]*bytes.Buffer
}

// runJobs fetches every job of cfg. Page jobs are buffered in memory; file
// jobs are written to their output path.
func runJobs(ctx context.Context, cfg *config.JobFile, deps jobDeps) (*jobResult, error) {
	if deps.logger == nil {
		deps.logger = slog.Default()
	}

	opener := deps.opener
	if opener == nil {
		transport := fetch.NewTransport(cfg.HTTP.TransportConfig())
		defer transport.Close()
		opener = transport
	}

	opts := []retry.DriverOption{
		retry.WithLogger(deps.logger),
		retry.WithBackoff(cfg.Retry.BackoffStrategy()),
	}
	if cfg.Retry.DisableRepair {
		opts = append(opts, retry.WithRepairer(nil))
	} else {
		resolverConfig := cfg.HTTP.TransportConfig()
		resolverConfig.FollowRedirects = false
		resolver := fetch.NewTransport(resolverConfig)
		defer resolver.Close()
		opts = append(opts, retry.WithRepairer(redirect.NewResolver(resolver)))
	}
	if deps.registerer != nil {
		opts = append(opts, retry.WithEventHandler(retry.NewMetricsHandler(deps.registerer)))
	}
	if deps.debug {
		opts = append(opts, retry.WithEventHandler(retry.NewLogEventHandler(deps.logger)))
	}
	driver := retry.NewDriver(opts...)

	result := &jobResult{pages: make(map[int]*bytes.Buffer)}
	ops := make([]fetch.Operation[int64], len(cfg.Jobs))
	for i, job := range cfg.Jobs {
		budget := fetch.WithRetryBudget(job.Budget())
		if job.Output != "" {
			ops[i] = fetch.NewFileOperation(opener, job.URL, job.Output, budget)
			continue
		}
		buf := &bytes.Buffer{}
		result.pages[i] = buf
		ops[i] = fetch.NewSinkOperation(opener, job.URL, buf, budget)
	}

	report, err := worker.RunBatch(ctx, driver, worker.BatchConfig{
		Concurrency:       cfg.Batch.Concurrency,
		RequestsPerSecond: cfg.Batch.RequestsPerSecond,
		Burst:             cfg.Batch.Burst,
		Logger:            deps.logger,
	}, ops)
	if report == nil {
		return nil, err
	}
	result.report = report
	return result, err
}

// startMetricsServer serves /metrics from reg in the background
func startMetricsServer(addr string, reg *prometheus.Registry, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", "error", err)
		}
	}()

	logger.Info("Metrics server listening", "addr", addr)
	return server
}

// printSummary writes one row per job followed by the fetched pages
func printSummary(w io.Writer, jobs []config.Job, result *jobResult) {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(tw, "JOB\tSTATUS\tBYTES\tDURATION\tERROR")

	for i, res := range result.report.Results {
		errText := ""
		if res.Error != nil {
			errText = oneLine(res.Error.Error())
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			jobs[i].DisplayName(), resultStatus(res.Error), res.Value, res.Duration.Round(time.Millisecond), errText)
	}
	_ = tw.Flush()

	for i, res := range result.report.Results {
		page, ok := result.pages[i]
		if !ok || res.Error != nil {
			continue
		}
		_, _ = fmt.Fprintf(w, "\n==> %s <==\n", jobs[i].DisplayName())
		_, _ = w.Write(page.Bytes())
		_, _ = fmt.Fprintln(w)
	}
}

func resultStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, worker.ErrNotAttempted):
		return "not attempted"
	case types.IsSkipped(err):
		return "skipped"
	default:
		return "aborted"
	}
}

// oneLine flattens joined errors for the summary table
func oneLine(s string) string {
	return strings.ReplaceAll(s, "\n", ": ")
}
