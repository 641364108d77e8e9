package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/skillindex/pkg/descriptor"
	"github.com/matzehuels/skillindex/pkg/discover"
	"github.com/matzehuels/skillindex/pkg/observability"
	"github.com/matzehuels/skillindex/pkg/reconcile"
	"github.com/matzehuels/skillindex/pkg/scoring"
	"github.com/matzehuels/skillindex/pkg/skill"
	"github.com/matzehuels/skillindex/pkg/store"
)

// GitHub is what a run needs from the gateway. *github.Client implements it.
type GitHub interface {
	discover.GitHub
	descriptor.Fetcher
}

// Runner executes index runs against one gateway and one store.
//
// The Runner holds no per-run state: the validator cache and discovery
// dedup set are allocated by each Execute call. It may be reused, but the
// gateway's pacer assumes runs do not overlap.
type Runner struct {
	GitHub     GitHub
	Store      store.Store
	Publishers []skill.Publisher
	// Formula is called once per scored record.
	Formula   func() scoring.Formula
	BatchSize int
	Logger    *log.Logger

	now func() time.Time
}

// NewRunner creates a runner. A nil formula selects linear scoring and a
// nil logger discards output.
func NewRunner(gh GitHub, st store.Store, publishers []skill.Publisher, formula func() scoring.Formula, logger *log.Logger) *Runner {
	if formula == nil {
		formula = func() scoring.Formula { return scoring.Linear }
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Runner{
		GitHub:     gh,
		Store:      st,
		Publishers: publishers,
		Formula:    formula,
		Logger:     logger,
		now:        time.Now,
	}
}

// Execute performs one run. Invalid options are returned as an error before
// any network call. Once the run starts, failures are collected in
// Result.Errors; only context cancellation is returned, together with the
// partial result.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	logger := r.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	}
	logger = logger.With("run", shortID(opts.RunID))

	start := r.now()
	res := &Result{
		Errors:    []string{},
		DryRun:    opts.DryRun,
		Topics:    opts.Topics,
		MaxPages:  opts.MaxPages,
		Timestamp: start.UTC(),
		RunID:     opts.RunID,
	}
	observability.Run().OnRunStart(ctx, opts.RunID, opts.Topics)

	err := r.execute(ctx, opts, res, logger)

	observability.Run().OnRunComplete(ctx, opts.RunID, observability.RunStats{
		Discovered: res.RepositoriesFound,
		Indexed:    res.Indexed,
		Updated:    res.Updated,
		Failed:     res.Failed,
		DryRun:     res.DryRun,
	}, time.Since(start), err)
	return res, err
}

func (r *Runner) execute(ctx context.Context, opts Options, res *Result, logger *log.Logger) error {
	// Fresh per run: results must never leak into the next run.
	validator := descriptor.NewValidator(r.GitHub, opts.ValidatorOptions())

	// Stage 1: Discover
	stageStart := time.Now()
	found, err := discover.New(r.GitHub, validator, logger).Discover(ctx, discover.Options{
		Topics:     opts.Topics,
		Publishers: r.Publishers,
		MaxPages:   opts.MaxPages,
		MaxRepos:   opts.MaxRepos,
	})
	if found != nil {
		res.Found = found.Found
		res.RepositoriesFound = len(found.Candidates)
		res.Errors = append(res.Errors, found.Errors...)
	}
	res.Stats.DiscoverTime = time.Since(stageStart)
	if err != nil {
		return err
	}
	logger.Info("discovered candidates",
		"candidates", res.RepositoriesFound,
		"found", res.Found,
		"duration", res.Stats.DiscoverTime)

	// Stage 2: Validate
	stageStart = time.Now()
	for _, c := range found.Candidates {
		if err := ctx.Err(); err != nil {
			return err
		}
		if c.Publisher != nil {
			continue
		}
		branch := c.DefaultBranch
		if branch == "" {
			branch = "main"
		}
		v := validator.Validate(ctx, c.Owner, c.Repo, branch, c.Path)
		c.Installable = v.Valid
		if v.Valid {
			c.Metadata = v.Metadata
		}
		res.Stats.Validated++
		if !v.Valid {
			logger.Debug("candidate rejected", "url", c.URL, "errors", v.Errors)
		}
	}
	res.Stats.ValidateTime = time.Since(stageStart)

	// Stage 3: Score
	now := r.now()
	records := make([]skill.Record, 0, len(found.Candidates))
	for _, c := range found.Candidates {
		if !Eligible(c) {
			res.Stats.Skipped++
			continue
		}
		records = append(records, scoring.BuildRecord(c, r.Formula(), now))
	}
	logger.Info("validated candidates",
		"eligible", len(records),
		"skipped", res.Stats.Skipped,
		"duration", res.Stats.ValidateTime)

	// Stage 4: Reconcile
	stageStart = time.Now()
	sum, err := reconcile.New(r.Store, r.BatchSize, logger).Reconcile(ctx, records, reconcile.Options{
		DryRun: opts.DryRun,
		RunID:  opts.RunID,
		Topics: opts.Topics,
		Found:  res.Found,
	})
	res.Stats.ReconcileTime = time.Since(stageStart)
	if sum != nil {
		res.Indexed = sum.Indexed
		res.Updated = sum.Updated
		res.Failed = sum.Failed
		res.Errors = append(res.Errors, sum.Errors...)
		res.Stats.ScoreBuckets = sum.ScoreDistribution
		res.Stats.CategoryCounts = sum.CategoryCounts
	}
	if err != nil {
		return err
	}
	logger.Info("reconciled records",
		"inserted", res.Indexed,
		"updated", res.Updated,
		"failed", res.Failed,
		"dry_run", opts.DryRun,
		"duration", res.Stats.ReconcileTime)
	return nil
}

// Eligible reports whether a candidate may be persisted. In non-strict runs
// a valid descriptor may carry no metadata; the record then falls back to
// repository metadata.
func Eligible(c *skill.Candidate) bool {
	return c.Installable
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
