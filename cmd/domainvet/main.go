package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"domainvet/internal/app"
	"domainvet/internal/config"
	"domainvet/internal/domain"
	"domainvet/internal/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	var dataDir string
	// The application is built lazily so the flag can override config.
	newApp := func() *app.Application {
		if dataDir != "" {
			cfg.DataDir = dataDir
		}
		return app.New(cfg, logger)
	}

	root := &cobra.Command{
		Use:   "domainvet",
		Short: "Domain ownership due-diligence pipeline",
		Long: `Domain ownership due-diligence pipeline.

Resolves the controlling owner of a batch of domains by escalating
through registry RDAP lookups, web-sourced WHOIS extraction, and a
DNS TXT proof-of-control challenge. All per-run state is persisted
so a run can be resumed and audited.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory holding per-run state (default from config)")
	root.AddCommand(newRunCmd(newApp), newPollCmd(newApp), newReportCmd(newApp))

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRunCmd(newApp func() *app.Application) *cobra.Command {
	var (
		domainsFile      string
		runID            string
		concurrency      int
		skipVerification bool
	)

	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Start or resume a pipeline run over a domain list",
		Example: `  domainvet run --domains domains.txt --concurrency 5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			domains, err := readDomainList(domainsFile)
			if err != nil {
				return err
			}
			if len(domains) == 0 {
				return fmt.Errorf("domain list %s is empty", domainsFile)
			}
			if runID == "" {
				runID = app.NewRunID()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			tasks, err := newApp().RunPipeline(ctx, app.RunOptions{
				RunID:            runID,
				Domains:          domains,
				Concurrency:      concurrency,
				SkipVerification: skipVerification,
			})
			if errors.Is(err, context.Canceled) {
				fmt.Fprintf(cmd.OutOrStdout(), "run %s interrupted; state persisted, resume with the same --run\n", runID)
				return nil
			}
			if err != nil {
				return err
			}

			var resolved, unresolved, awaiting int
			for _, task := range tasks {
				switch task.Stage {
				case domain.StageResolved:
					resolved++
				case domain.StageUnresolved:
					unresolved++
				case domain.StageAwaitingVerification:
					awaiting++
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"run %s: %d resolved, %d unresolved, %d awaiting verification\n",
				runID, resolved, unresolved, awaiting)
			if awaiting > 0 {
				fmt.Fprintf(cmd.OutOrStdout(),
					"start the poller with: domainvet poll --run %s\n", runID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&domainsFile, "domains", "", "path to a file with one domain per line")
	cmd.Flags().StringVar(&runID, "run", "", "run identifier (omit to start a fresh run)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "concurrent domain workers (default from config)")
	cmd.Flags().BoolVar(&skipVerification, "skip-verification", false, "mark unresolvable domains UNRESOLVED instead of issuing TXT challenges")
	_ = cmd.MarkFlagRequired("domains")
	return cmd
}

func newPollCmd(newApp func() *app.Application) *cobra.Command {
	var (
		runID    string
		interval time.Duration
		once     bool
	)

	cmd := &cobra.Command{
		Use:     "poll",
		Short:   "Run the TXT verification poller for a run",
		Example: `  domainvet poll --run 20260831-120000-1a2b3c4d --interval 60s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			err := newApp().RunPoller(ctx, runID, interval, once)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "run identifier")
	cmd.Flags().DurationVar(&interval, "interval", 0, "poll interval (default from config)")
	cmd.Flags().BoolVar(&once, "once", false, "run a single poll cycle and exit")
	_ = cmd.MarkFlagRequired("run")
	return cmd
}

func newReportCmd(newApp func() *app.Application) *cobra.Command {
	var (
		runID   string
		csvPath string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the per-domain outcome report for a run",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := newApp().Report(cmd.Context(), runID, csvPath)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "run identifier")
	cmd.Flags().StringVar(&csvPath, "csv", "", "also export the report as CSV to this path")
	_ = cmd.MarkFlagRequired("run")
	return cmd
}

// readDomainList loads one domain per line, skipping blanks and
// #-comments.
func readDomainList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open domain list: %w", err)
	}
	defer f.Close()

	var domains []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = line[:idx]
		}
		name := domain.NormalizeDomain(line)
		if name != "" {
			domains = append(domains, name)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read domain list: %w", err)
	}
	return domains, nil
}
