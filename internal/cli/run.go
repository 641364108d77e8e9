package cli

import (
	"context"
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/skillindex/pkg/pipeline"
	"github.com/matzehuels/skillindex/pkg/reconcile"
)

// DefaultRunTimeout bounds one run so it fits the host's execution limit.
const DefaultRunTimeout = 4 * time.Minute

// runFlags holds the flags of the run command.
type runFlags struct {
	topics     []string
	maxPages   int
	maxRepos   int
	dryRun     bool
	strict     bool
	minLength  int
	timeout    time.Duration
	jsonOut    bool
	publishers string
	noCache    bool
	batchSize  int
}

// runCommand creates the run command that performs one index pass.
func (c *CLI) runCommand() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Discover, validate, score and sync skill packages once",
		Long: `Run performs one index pass: trusted publishers are scanned, topic searches
are paged, every candidate's SKILL.md is validated, eligible candidates are
scored and the results are upserted into the store named by DATABASE_URL.`,
		Example: `  # Index the default topics
  skillindex run

  # Preview a single topic without writing
  skillindex run --topics claude-skills --max-pages 1 --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runIndex(cmd, flags)
		},
	}

	cmd.Flags().StringSliceVar(&flags.topics, "topics", nil, "topics to search (default: claude-skills, claude-code-skills, agent-skills)")
	cmd.Flags().IntVar(&flags.maxPages, "max-pages", pipeline.DefaultMaxPages, "search pages per topic (capped at 10)")
	cmd.Flags().IntVar(&flags.maxRepos, "max-repos", pipeline.DefaultMaxRepos, "maximum candidates per run")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "compute everything but do not write to the store")
	cmd.Flags().BoolVar(&flags.strict, "strict", true, "require frontmatter with name and description")
	cmd.Flags().IntVar(&flags.minLength, "min-length", pipeline.DefaultMinContentLength, "minimum SKILL.md length in characters")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", DefaultRunTimeout, "overall run timeout (0 disables)")
	cmd.Flags().BoolVar(&flags.jsonOut, "json", false, "print the run result as JSON")
	cmd.Flags().StringVar(&flags.publishers, "publishers", "", "trusted publishers TOML file")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "disable the repository metadata cache")
	cmd.Flags().IntVar(&flags.batchSize, "batch-size", reconcile.DefaultBatchSize, "records per store lookup")

	return cmd
}

func (c *CLI) runIndex(cmd *cobra.Command, flags runFlags) error {
	ctx := cmd.Context()
	if flags.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flags.timeout)
		defer cancel()
	}

	strict := flags.strict
	opts := pipeline.Options{
		Topics:           flags.topics,
		MaxPages:         flags.maxPages,
		MaxRepos:         flags.maxRepos,
		DryRun:           flags.dryRun,
		StrictValidation: &strict,
		MinContentLength: flags.minLength,
		Logger:           loggerFromContext(ctx),
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return err
	}

	d, err := c.openDeps(ctx, depOptions{
		noCache:    flags.noCache,
		publishers: flags.publishers,
		store:      !flags.dryRun,
	})
	if err != nil {
		return err
	}
	defer d.Close()

	prog := newProgress(c.Logger)
	res, runErr := c.runner(d, flags.batchSize).Execute(ctx, opts)
	if res == nil {
		return runErr
	}
	prog.done("Run finished", "indexed", res.Indexed, "updated", res.Updated, "failed", res.Failed)

	out := c.stdout(cmd)
	if flags.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	} else {
		printRunSummary(out, res)
	}
	return runErr
}
