// Package reconcile writes scored records to a store.
//
// Records are processed in bounded batches. Each batch costs one Lookup,
// which decides for every record whether its upsert counts as an insert or
// an update, and supplies previously persisted categories. A failing
// upsert is recorded and the batch continues.
package reconcile

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/skillindex/pkg/scoring"
	"github.com/matzehuels/skillindex/pkg/skill"
	"github.com/matzehuels/skillindex/pkg/store"
)

// DefaultBatchSize bounds the records handled per Lookup.
const DefaultBatchSize = 25

// Options describes one reconciliation.
type Options struct {
	DryRun bool

	// Echoed into the audit entry.
	RunID  string
	Topics []string
	Found  int
}

// Summary counts the outcome of a reconciliation. In a dry run Indexed is
// the number of distinct records and Updated is zero.
type Summary struct {
	Indexed           int
	Updated           int
	Failed            int
	Errors            []string
	ScoreDistribution map[string]int
	CategoryCounts    map[skill.Category]int
}

// Reconciler upserts records into a Store.
type Reconciler struct {
	store     store.Store
	batchSize int
	logger    *log.Logger
	now       func() time.Time
}

// New creates a Reconciler. batchSize <= 0 selects DefaultBatchSize and a
// nil logger discards output.
func New(s store.Store, batchSize int, logger *log.Logger) *Reconciler {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Reconciler{store: s, batchSize: batchSize, logger: logger, now: time.Now}
}

// Reconcile deduplicates records by URL, keeping the first occurrence, and
// writes them. A dry run touches the store neither for reads nor writes.
// Only context cancellation is returned as an error; the summary is
// always valid.
func (r *Reconciler) Reconcile(ctx context.Context, records []skill.Record, opts Options) (*Summary, error) {
	records = dedup(records)
	sum := &Summary{
		ScoreDistribution: make(map[string]int),
		CategoryCounts:    make(map[skill.Category]int),
	}

	if opts.DryRun {
		for i := range records {
			rec := &records[i]
			rec.Categories = scoring.Categorize(rec.Tags, rec.Description)
			sum.count(*rec)
		}
		sum.Indexed = len(records)
		return sum, nil
	}

	for start := 0; start < len(records); start += r.batchSize {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		batch := records[start:min(start+r.batchSize, len(records))]
		r.reconcileBatch(ctx, batch, sum)
		r.logger.Debug("batch reconciled", "offset", start, "size", len(batch),
			"inserted", sum.Indexed, "updated", sum.Updated, "failed", sum.Failed)
	}

	r.audit(ctx, sum, opts)
	return sum, ctx.Err()
}

func (r *Reconciler) reconcileBatch(ctx context.Context, batch []skill.Record, sum *Summary) {
	urls := make([]string, len(batch))
	for i, rec := range batch {
		urls[i] = rec.RepoURL
	}
	existing, err := r.store.Lookup(ctx, urls)
	if err != nil {
		for _, u := range urls {
			sum.fail(fmt.Sprintf("%s: lookup: %v", u, err))
		}
		r.logger.Warn("batch lookup failed", "size", len(batch), "err", err)
		return
	}

	for _, rec := range batch {
		prev, exists := existing[rec.RepoURL]
		if exists && len(prev.Categories) > 0 {
			rec.Categories = prev.Categories
		} else {
			rec.Categories = scoring.Categorize(rec.Tags, rec.Description)
		}

		if err := r.store.Upsert(ctx, rec); err != nil {
			sum.fail(fmt.Sprintf("%s: %v", rec.RepoURL, err))
			continue
		}
		if exists {
			sum.Updated++
		} else {
			sum.Indexed++
		}
		sum.count(rec)
	}
}

func (r *Reconciler) audit(ctx context.Context, sum *Summary, opts Options) {
	entry := skill.AuditEntry{
		ID:                uuid.NewString(),
		RunID:             opts.RunID,
		Topics:            opts.Topics,
		Found:             opts.Found,
		Indexed:           sum.Indexed,
		Updated:           sum.Updated,
		Failed:            sum.Failed,
		ScoreDistribution: sum.ScoreDistribution,
		CategoryCounts:    sum.CategoryCounts,
		CreatedAt:         r.now().UTC(),
	}
	if err := r.store.AppendAudit(ctx, entry); err != nil {
		r.logger.Warn("audit entry not written", "err", err)
		sum.Errors = append(sum.Errors, "audit: "+err.Error())
	}
}

func (s *Summary) fail(msg string) {
	s.Failed++
	s.Errors = append(s.Errors, msg)
}

func (s *Summary) count(rec skill.Record) {
	s.ScoreDistribution[scoring.Bucket(rec.QualityScore)]++
	for _, c := range rec.Categories {
		s.CategoryCounts[c]++
	}
}

func dedup(records []skill.Record) []skill.Record {
	seen := make(map[string]bool, len(records))
	out := make([]skill.Record, 0, len(records))
	for _, rec := range records {
		if seen[rec.RepoURL] {
			continue
		}
		seen[rec.RepoURL] = true
		out = append(out, rec)
	}
	return out
}
