package usecase

import (
	"context"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"domainvet/internal/domain"
	"domainvet/internal/ports"
	"domainvet/internal/resolver"
	"domainvet/internal/verify"
)

// PipelineDeps wires all collaborators into the orchestration pipeline.
type PipelineDeps struct {
	Store            ports.RunStore
	Chain            *resolver.Chain
	Issuer           *verify.Issuer
	Concurrency      int
	SkipVerification bool
	Logger           *slog.Logger
}

// Pipeline drives one run: every domain walks the resolver chain in
// priority order, stopping at the first success; domains exhausting the
// chain are handed a DNS TXT challenge (or marked UNRESOLVED when
// verification is disabled).
type Pipeline struct {
	store            ports.RunStore
	chain            *resolver.Chain
	issuer           *verify.Issuer
	concurrency      int
	skipVerification bool
	logger           *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	concurrency := deps.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Pipeline{
		store:            deps.Store,
		chain:            deps.Chain,
		issuer:           deps.Issuer,
		concurrency:      concurrency,
		skipVerification: deps.SkipVerification,
		logger:           deps.Logger,
	}
}

// Run processes the domain set with a bounded worker pool and returns
// the per-domain task state after the walk. Invoking Run again for the
// same run is idempotent: terminal domains and domains with a live
// challenge are skipped. On cancellation the store is left consistent
// and resumable, and the partial error is returned.
func (p *Pipeline) Run(ctx context.Context, domains []string) (map[string]domain.DomainTask, error) {
	names := normalizeSet(domains)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for _, name := range names {
		name := name
		g.Go(func() error {
			return p.processDomain(gctx, name)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]domain.DomainTask, len(names))
	for _, name := range names {
		task, err := p.store.DomainTask(ctx, name)
		if err != nil {
			return nil, err
		}
		out[name] = task
	}
	return out, nil
}

// processDomain runs the fully sequential resolver chain for one
// domain to completion.
func (p *Pipeline) processDomain(ctx context.Context, name string) error {
	task, err := p.store.EnsureDomainTask(ctx, name)
	if err != nil {
		return err
	}

	if task.Stage.Terminal() {
		p.debug("domain already terminal", "domain", name, "stage", task.Stage)
		return nil
	}
	if task.Stage == domain.StageAwaitingVerification {
		challenge, err := p.store.VerificationTask(ctx, name)
		if err != nil {
			return err
		}
		if challenge != nil && challenge.Status == domain.VerificationWaiting {
			p.debug("challenge already in flight", "domain", name)
			return nil
		}
		// Crashed between the stage move and issuance; fall through to
		// hand-off so a challenge exists again.
	}

	for _, res := range p.chain.Resolvers() {
		stage := res.Stage()
		if !task.Stage.AllowsAttempt(stage) {
			continue
		}
		if err := p.store.SetStage(ctx, name, stage, "attempting "+res.Name()); err != nil {
			return err
		}

		outcome, err := p.chain.AttemptWithRetry(ctx, res, name)
		if err != nil {
			// Cancelled mid-attempt; nothing partial is persisted.
			return err
		}

		switch outcome.Kind {
		case domain.OutcomeResolved:
			p.debug("domain resolved", "domain", name, "resolver", res.Name())
			return p.store.SaveResolution(ctx, name, *outcome.Record)
		default:
			if err := p.store.SetStage(ctx, name, stage, outcome.Summary()); err != nil {
				return err
			}
		}
		task.Stage = stage
	}

	if p.skipVerification {
		return p.store.MarkUnresolved(ctx, name, "resolver chain exhausted")
	}

	if err := p.store.SetStage(ctx, name, domain.StageAwaitingVerification,
		"resolver chain exhausted, issuing txt challenge"); err != nil {
		return err
	}
	_, err = p.issuer.Issue(ctx, name)
	return err
}

func (p *Pipeline) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

// normalizeSet lowercases, deduplicates and orders the input set.
func normalizeSet(domains []string) []string {
	seen := map[string]struct{}{}
	var names []string
	for _, raw := range domains {
		name := domain.NormalizeDomain(raw)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
