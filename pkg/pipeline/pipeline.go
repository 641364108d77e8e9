// Package pipeline runs one index pass: discover, validate, score and
// reconcile.
//
// The same [Runner] serves the CLI "run" command and the HTTP "serve" mode,
// so both entry points share defaults and produce the same [Result].
//
// # Stages
//
//  1. Discover: trusted publishers, then topic search (see package discover)
//  2. Validate: every topic candidate's root descriptor is checked; publisher
//     candidates were validated during discovery
//  3. Score: installable candidates with metadata become records
//  4. Reconcile: records are upserted in batches and an audit entry is written
//
// Every run allocates a fresh descriptor validator, so a descriptor fixed
// or broken since the last run is always re-read.
//
// # Usage
//
//	runner := pipeline.NewRunner(gh, st, publishers, cfg.ScoringFormula, logger)
//	res, err := runner.Execute(ctx, pipeline.Options{DryRun: true})
package pipeline

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/skillindex/pkg/descriptor"
	"github.com/matzehuels/skillindex/pkg/discover"
	"github.com/matzehuels/skillindex/pkg/errors"
	"github.com/matzehuels/skillindex/pkg/skill"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	DefaultMaxPages         = discover.DefaultMaxPages
	MaxPagesLimit           = discover.MaxPagesLimit
	DefaultMaxRepos         = discover.DefaultMaxRepos
	DefaultMinContentLength = descriptor.DefaultMinContentLength

	// MaxReposLimit keeps a single run inside typical scheduler time limits.
	MaxReposLimit = 1000
)

// =============================================================================
// Options - Run Configuration
// =============================================================================

// Options configures one run. The JSON form is the body of POST /v1/index;
// every field is optional.
type Options struct {
	Topics           []string `json:"topics,omitempty"`
	MaxPages         int      `json:"maxPages,omitempty"`
	MaxRepos         int      `json:"maxRepos,omitempty"`
	DryRun           bool     `json:"dryRun,omitempty"`
	StrictValidation *bool    `json:"strictValidation,omitempty"` // nil means strict
	MinContentLength int      `json:"minContentLength,omitempty"`

	// Runtime options (not serialized)
	RunID  string      `json:"-"`
	Logger *log.Logger `json:"-"`

	validated bool
}

// Strict reports whether strict descriptor validation is enabled.
func (o *Options) Strict() bool {
	return o.StrictValidation == nil || *o.StrictValidation
}

// ValidateAndSetDefaults checks the options and fills in defaults. MaxPages
// above MaxPagesLimit is capped rather than rejected. It is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if len(o.Topics) == 0 {
		o.Topics = append([]string(nil), discover.DefaultTopics...)
	}
	for _, t := range o.Topics {
		if err := errors.ValidateTopic(t); err != nil {
			return err
		}
	}

	switch {
	case o.MaxPages < 0:
		return errors.New(errors.ErrCodeInvalidInput, "maxPages must be positive, got %d", o.MaxPages)
	case o.MaxPages == 0:
		o.MaxPages = DefaultMaxPages
	case o.MaxPages > MaxPagesLimit:
		o.MaxPages = MaxPagesLimit
	}

	switch {
	case o.MaxRepos < 0:
		return errors.New(errors.ErrCodeInvalidInput, "maxRepos must be positive, got %d", o.MaxRepos)
	case o.MaxRepos == 0:
		o.MaxRepos = DefaultMaxRepos
	case o.MaxRepos > MaxReposLimit:
		return errors.New(errors.ErrCodeInvalidInput, "maxRepos must be at most %d, got %d", MaxReposLimit, o.MaxRepos)
	}

	switch {
	case o.MinContentLength < 0:
		return errors.New(errors.ErrCodeInvalidInput, "minContentLength must be positive, got %d", o.MinContentLength)
	case o.MinContentLength == 0:
		o.MinContentLength = DefaultMinContentLength
	}

	if o.RunID == "" {
		o.RunID = uuid.NewString()
	}
	o.validated = true
	return nil
}

// ValidatorOptions returns the descriptor validation settings of the run.
func (o *Options) ValidatorOptions() descriptor.Options {
	return descriptor.Options{MinContentLength: o.MinContentLength, Strict: o.Strict()}
}

// =============================================================================
// Result
// =============================================================================

// Result is the summary of one run. Its JSON form is the response of
// POST /v1/index and the output of "skillindex run --json".
type Result struct {
	// Found is the largest total_count of any single topic search.
	Found   int      `json:"found"`
	Indexed int      `json:"indexed"`
	Updated int      `json:"updated"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors"`
	DryRun  bool     `json:"dryRun"`

	// RepositoriesFound counts candidates collected by discovery.
	RepositoriesFound int `json:"repositories_found"`

	Topics    []string  `json:"topics"`
	MaxPages  int       `json:"max_pages"`
	Timestamp time.Time `json:"timestamp"`
	RunID     string    `json:"run_id"`

	Stats Stats `json:"-"`
}

// Stats contains per-stage counts and timings.
type Stats struct {
	Validated      int // topic candidates validated in the validate stage
	Skipped        int // candidates not eligible for persistence
	DiscoverTime   time.Duration
	ValidateTime   time.Duration
	ReconcileTime  time.Duration
	ScoreBuckets   map[string]int
	CategoryCounts map[skill.Category]int
}
