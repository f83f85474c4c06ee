package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"domainvet/internal/config"
	"domainvet/internal/dnsx"
	"domainvet/internal/domain"
	"domainvet/internal/logging"
	"domainvet/internal/report"
	"domainvet/internal/resolver"
	"domainvet/internal/storage"
	"domainvet/internal/usecase"
	"domainvet/internal/verify"
)

const instructionsFile = "TXT_VERIFICATION_INSTRUCTIONS.txt"

// Application wires configuration into runnable pipeline components.
type Application struct {
	cfg    config.Config
	logger *slog.Logger
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) *Application {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	return &Application{cfg: cfg, logger: baseLogger}
}

// NewRunID mints a fresh run identifier: time-derived for operator
// ergonomics, random for uniqueness.
func NewRunID() string {
	return time.Now().UTC().Format("20060102-150405") + "-" + uuid.NewString()[:8]
}

// RunOptions carries the per-invocation knobs of the run command.
type RunOptions struct {
	RunID            string
	Domains          []string
	Concurrency      int
	SkipVerification bool
}

// RunPipeline starts or resumes a pipeline run and returns the
// per-domain task state. Alongside the store it writes the operator
// instructions document for any pending challenges.
func (a *Application) RunPipeline(ctx context.Context, opts RunOptions) (map[string]domain.DomainTask, error) {
	store, err := a.openRun(opts.RunID)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	client := &http.Client{Timeout: a.cfg.Pipeline.ResolverTimeout.Std()}

	registry := resolver.NewRegistry()
	registry.Register(resolver.NewRDAPResolver(client, a.cfg.RDAP.Endpoints,
		logging.Component(a.logger, "resolver.rdap")))
	registry.Register(resolver.NewWebWhoisResolver(client, a.cfg.Secondary.BaseURL,
		logging.Component(a.logger, "resolver.webwhois")))

	resolvers, err := registry.BuildChain(a.cfg.Pipeline.Chain)
	if err != nil {
		return nil, err
	}
	chain := resolver.NewChain(resolvers, resolver.RetryPolicy{
		Attempts:  a.cfg.Pipeline.RetryAttempts,
		BaseDelay: a.cfg.Pipeline.RetryBaseDelay.Std(),
	}, logging.Component(a.logger, "chain"))

	issuer := verify.NewIssuer(store, a.cfg.Verification.TokenPrefix,
		a.cfg.Verification.MaxAttempts, verify.SystemClock{},
		logging.Component(a.logger, "issuer"))

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = a.cfg.Pipeline.Concurrency
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Store:            store,
		Chain:            chain,
		Issuer:           issuer,
		Concurrency:      concurrency,
		SkipVerification: opts.SkipVerification || a.cfg.Pipeline.SkipVerification,
		Logger:           logging.Component(a.logger, "pipeline"),
	})

	tasks, err := pipeline.Run(ctx, opts.Domains)
	if err != nil {
		return nil, err
	}

	if err := a.writeInstructions(ctx, store, opts.RunID); err != nil {
		return nil, err
	}
	return tasks, nil
}

// RunPoller binds the verification poller to a run's store and drives
// it until the context is cancelled (or once, when requested).
func (a *Application) RunPoller(ctx context.Context, runID string, interval time.Duration, once bool) error {
	store, err := storage.OpenExisting(a.storePath(runID), runID)
	if err != nil {
		return err
	}
	defer store.Close()

	if interval <= 0 {
		interval = a.cfg.Verification.PollInterval.Std()
	}

	reader := dnsx.NewReader(a.cfg.Verification.DNSServer, a.cfg.Verification.DNSTimeout.Std())
	poller := verify.NewPoller(store, reader, verify.PollerConfig{
		Interval: interval,
		MaxAge:   a.cfg.Verification.EffectiveMaxAge(interval),
	}, verify.SystemClock{}, logging.Component(a.logger, "poller"))

	if once {
		return poller.RunOnce(ctx)
	}
	return poller.Run(ctx)
}

// Report renders the current per-domain state of a run and optionally
// exports it as CSV.
func (a *Application) Report(ctx context.Context, runID, csvPath string) (string, error) {
	store, err := storage.OpenExisting(a.storePath(runID), runID)
	if err != nil {
		return "", err
	}
	defer store.Close()

	tasks, err := store.DomainTasks(ctx)
	if err != nil {
		return "", err
	}

	if csvPath != "" {
		f, err := os.Create(csvPath)
		if err != nil {
			return "", fmt.Errorf("create csv file: %w", err)
		}
		if err := report.WriteCSV(f, tasks); err != nil {
			_ = f.Close()
			return "", err
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("close csv file: %w", err)
		}
	}

	return report.Render(runID, tasks), nil
}

func (a *Application) openRun(runID string) (*storage.Store, error) {
	dir := a.runDir(runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run directory: %w", err)
	}
	return storage.Open(filepath.Join(dir, "tasks.db"), runID)
}

func (a *Application) runDir(runID string) string {
	return filepath.Join(a.cfg.DataDir, "run_"+runID)
}

func (a *Application) storePath(runID string) string {
	return filepath.Join(a.runDir(runID), "tasks.db")
}

func (a *Application) writeInstructions(ctx context.Context, store *storage.Store, runID string) error {
	waiting, err := store.WaitingVerificationTasks(ctx)
	if err != nil {
		return err
	}
	if len(waiting) == 0 {
		return nil
	}

	path := filepath.Join(a.runDir(runID), instructionsFile)
	doc := report.Instructions(runID, waiting)
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		return fmt.Errorf("write instructions: %w", err)
	}
	a.logger.Info("verification instructions written", "path", path, "pending", len(waiting))
	return nil
}
